// Package gateway obtains hosted checkout sessions from the UPI payment
// gateway. It never settles or verifies payments.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrDisabled is returned when no gateway base URL is configured.
var ErrDisabled = errors.New("payment gateway is not configured")

// APIVersion is sent with every request.
const APIVersion = "2023-08-01"

// Currency of every session amount.
const Currency = "INR"

// Config holds the gateway endpoint and credentials.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// SessionRequest describes the order a session is created for.
type SessionRequest struct {
	OrderID       string
	Amount        decimal.Decimal
	CustomerPhone string
}

// Session is a gateway checkout session.
type Session struct {
	OrderID   string `json:"orderId"`
	SessionID string `json:"paymentSessionId"`
}

// StatusError is returned when the gateway answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return "gateway returned " + http.StatusText(e.Code) + ": " + e.Body
}

// Option configures a Client.
type Option func(*options)

type options struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	transport      http.RoundTripper
}

// WithTracerProvider sets the tracer provider of the instrumented transport.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider of the instrumented transport.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithTransport replaces the base round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// Client talks to the gateway REST API.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a Client. A Client with an empty BaseURL is valid and answers
// every call with ErrDisabled.
func New(cfg Config, opts ...Option) *Client {
	o := options{transport: http.DefaultTransport}
	for _, fn := range opts {
		fn(&o)
	}

	var otelOpts []otelhttp.Option
	if o.tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(o.tracerProvider))
	}
	if o.meterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(o.meterProvider))
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Transport: otelhttp.NewTransport(o.transport, otelOpts...),
			Timeout:   cfg.Timeout,
		},
	}
}

// Enabled reports whether a gateway is configured.
func (c *Client) Enabled() bool {
	return c.cfg.BaseURL != ""
}

type customerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerPhone string `json:"customer_phone"`
}

type createOrderRequest struct {
	OrderID         string          `json:"order_id"`
	OrderAmount     float64         `json:"order_amount"`
	OrderCurrency   string          `json:"order_currency"`
	CustomerDetails customerDetails `json:"customer_details"`
}

type createOrderResponse struct {
	OrderID          string `json:"order_id"`
	PaymentSessionID string `json:"payment_session_id"`
}

// CreateSession registers the order with the gateway and returns its
// checkout session.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	body, err := json.Marshal(createOrderRequest{
		OrderID:       req.OrderID,
		OrderAmount:   req.Amount.InexactFloat64(),
		OrderCurrency: Currency,
		CustomerDetails: customerDetails{
			CustomerID:    req.OrderID,
			CustomerPhone: req.CustomerPhone,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("x-api-version", APIVersion)
	httpReq.Header.Set("x-client-id", c.cfg.ClientID)
	httpReq.Header.Set("x-client-secret", c.cfg.ClientSecret)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		zctx.From(ctx).Warn("Gateway rejected session request",
			zap.String("order_id", req.OrderID),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var out createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	if out.PaymentSessionID == "" {
		return nil, errors.New("gateway response has no payment session id")
	}
	if out.OrderID == "" {
		out.OrderID = req.OrderID
	}
	return &Session{OrderID: out.OrderID, SessionID: out.PaymentSessionID}, nil
}
