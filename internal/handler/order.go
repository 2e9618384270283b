package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/scan-and-go/internal/domain/order"
	"github.com/xenking/scan-and-go/internal/gateway"
)

// OrderService is the order lifecycle as seen by the API.
type OrderService interface {
	CreateOrder(ctx context.Context, req order.CreateRequest) (*order.CreateResult, error)
	GetOrder(ctx context.Context, id string) (*order.Order, error)
	ClaimPayment(ctx context.Context, id string, req order.ClaimRequest) (*order.Order, error)
	ListPending(ctx context.Context, storeID string) ([]order.Order, error)
	VerifyOrder(ctx context.Context, id string, req order.VerifyRequest) (*order.VerifyResult, error)
	ListVerifications(ctx context.Context, id string) ([]order.VerificationRecord, error)
	ScanExit(ctx context.Context, id string) (*order.ExitResult, error)
}

var _ OrderService = (*order.Service)(nil)

type createOrderRequest struct {
	StoreID string `json:"storeId"`
	Items   []struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
	CustomerPhone string `json:"customerPhone"`
}

type createOrderResponse struct {
	Order   orderDTO    `json:"order"`
	Payment *paymentDTO `json:"payment"`
}

// CreateOrder prices the cart and opens a pending order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}

	in := order.CreateRequest{StoreID: req.StoreID, CustomerPhone: req.CustomerPhone}
	for _, it := range req.Items {
		in.Items = append(in.Items, order.ItemRequest{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	res, err := h.orders.CreateOrder(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := createOrderResponse{Order: toOrder(res.Order)}
	if p := res.Payment; p != nil {
		resp.Payment = &paymentDTO{UPIID: p.UPIID, QRCode: p.QRCode, Amount: res.Order.Total.InexactFloat64()}
	}
	writeData(w, http.StatusCreated, resp)
}

// GetOrder returns one order.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), r.PathValue("orderId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toOrder(o))
}

type claimRequest struct {
	UTRLast4   string          `json:"utrLast4"`
	PaidAmount decimal.Decimal `json:"paidAmount"`
}

// ClaimPayment records the customer's UPI payment claim.
func (h *Handler) ClaimPayment(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.orders.ClaimPayment(r.Context(), r.PathValue("orderId"), order.ClaimRequest{
		UTRLast4:   req.UTRLast4,
		PaidAmount: req.PaidAmount,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toOrder(o))
}

// CreatePaymentSession obtains a gateway checkout session for a pending
// order. The order itself is not changed.
func (h *Handler) CreatePaymentSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	o, err := h.orders.GetOrder(ctx, r.PathValue("orderId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if o.Status != order.StatusPendingPayment {
		writeError(w, r, &order.ConflictError{OrderID: o.ID, Status: o.Status, Reason: "already processed"})
		return
	}

	s, err := h.payments.CreateSession(ctx, gateway.SessionRequest{
		OrderID:       o.ID,
		Amount:        o.Total,
		CustomerPhone: o.CustomerPhone,
	})
	if err != nil {
		if !errors.Is(err, gateway.ErrDisabled) {
			zctx.From(ctx).Error("Payment session failed", zap.String("order_id", o.ID), zap.Error(err))
			err = &httpError{Code: http.StatusBadGateway, Message: "Payment gateway error"}
		}
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, s)
}
