package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/xenking/scan-and-go/internal/domain/catalog"
)

// ErrNoChange may be returned by an UpdateFunc to end an update without
// writing anything. Repositories then return the current order and no error.
var ErrNoChange = errors.New("no change")

// Catalog is the subset of the catalog the lifecycle needs for pricing.
type Catalog interface {
	GetStore(id string) (catalog.Store, error)
	GetProduct(id string) (catalog.Product, error)
}

// ItemRequest is one cart line as sent by the customer.
type ItemRequest struct {
	ProductID string
	Quantity  int
}

// CreateRequest holds the input for creating an order.
type CreateRequest struct {
	StoreID       string
	Items         []ItemRequest
	CustomerPhone string
}

// CreateResult holds a created order and, when the store is known, the
// UPI details to pay it.
type CreateResult struct {
	Order   *Order
	Payment *PaymentDetails
}

// ClaimRequest is the customer's assertion of a completed UPI transfer.
type ClaimRequest struct {
	UTRLast4   string
	PaidAmount decimal.Decimal
}

// VerifyRequest is a cashier decision about an order.
type VerifyRequest struct {
	CashierID string
	Verified  bool
	Notes     string
}

// VerifyResult holds the updated order and the appended log entry.
type VerifyResult struct {
	Order  *Order
	Record VerificationRecord
}

// ExitResult is the outcome of scanning an order at the store exit.
type ExitResult struct {
	AllowExit bool
	Message   string
	Order     *Order
}

// Exit gate messages.
const (
	MessageExitAllowed         = "Exit allowed. Thank you for shopping!"
	MessageVerificationPending = "Payment verification pending. Please visit the cashier."
	MessagePaymentNotCompleted = "Payment not completed. Please complete the payment first."
	MessageInvalidStatus       = "Invalid order status"
)

// Option configures a Service.
type Option func(*Service)

// WithMeter records lifecycle counters on m.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) { s.meter = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service is the order lifecycle engine.
type Service struct {
	catalog Catalog
	orders  Repository

	now   func() time.Time
	newID func() string

	meter       metric.Meter
	created     metric.Int64Counter
	transitions metric.Int64Counter
}

// NewService creates an order Service.
func NewService(c Catalog, orders Repository, opts ...Option) (*Service, error) {
	s := &Service{
		catalog: c,
		orders:  orders,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
		meter:   noop.NewMeterProvider().Meter(""),
	}
	for _, o := range opts {
		o(s)
	}

	var err error
	if s.created, err = s.meter.Int64Counter("checkout.orders.created",
		metric.WithDescription("Orders created"),
	); err != nil {
		return nil, errors.Wrap(err, "orders created counter")
	}
	if s.transitions, err = s.meter.Int64Counter("checkout.orders.transitions",
		metric.WithDescription("Order status transitions"),
	); err != nil {
		return nil, errors.Wrap(err, "order transitions counter")
	}
	return s, nil
}

// CreateOrder prices the cart against the catalog and persists a new
// pending order. Either every line resolves to a product or nothing is stored.
func (s *Service) CreateOrder(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	storeID := strings.TrimSpace(req.StoreID)
	if storeID == "" {
		return nil, &ValidationError{Field: "storeId", Reason: "required"}
	}
	if len(req.Items) == 0 {
		return nil, &ValidationError{Field: "items", Reason: "required"}
	}

	items := make([]Item, 0, len(req.Items))
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, &ValidationError{
				Field:  "items.quantity",
				Reason: "must be greater than 0 for product " + it.ProductID,
			}
		}
		p, err := s.catalog.GetProduct(it.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				return nil, &IntegrityError{ProductID: it.ProductID}
			}
			return nil, errors.Wrapf(err, "get product %s", it.ProductID)
		}
		items = append(items, snapshotItem(p, it.Quantity))
	}

	phone := strings.TrimSpace(req.CustomerPhone)
	if phone == "" {
		phone = AnonymousCustomer
	}

	totals := ComputeTotals(items)
	now := s.now()
	o := &Order{
		ID:            s.newID(),
		StoreID:       storeID,
		CustomerPhone: phone,
		Items:         items,
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		Total:         totals.Total,
		Status:        StatusPendingPayment,
		CreatedAt:     now,
		ExpiresAt:     now.Add(ExpiryWindow),
	}
	if err := s.orders.Insert(ctx, o); err != nil {
		return nil, errors.Wrap(err, "insert order")
	}

	s.created.Add(ctx, 1, metric.WithAttributes(attribute.String("store", storeID)))
	zctx.From(ctx).Info("Order created",
		zap.String("order_id", o.ID),
		zap.String("store_id", storeID),
		zap.Int("items", len(items)),
		zap.String("total", o.Total.String()),
	)

	res := &CreateResult{Order: o}
	if st, err := s.catalog.GetStore(storeID); err == nil {
		res.Payment = paymentDetails(st, o)
	}
	return res, nil
}

// GetOrder returns an order by id.
func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, s.wrap(err, "find order")
	}
	return o, nil
}

// ClaimPayment records the customer's UPI claim on a pending order.
func (s *Service) ClaimPayment(ctx context.Context, id string, req ClaimRequest) (*Order, error) {
	o, err := s.orders.Update(ctx, id, func(o *Order) error {
		if o.Status != StatusPendingPayment {
			return &ConflictError{OrderID: o.ID, Status: o.Status, Reason: "already processed"}
		}
		now := s.now()
		paid := req.PaidAmount
		o.Status = StatusPaymentClaimed
		o.ClaimedAt = &now
		o.UTRLast4 = req.UTRLast4
		o.PaidAmount = &paid
		return nil
	})
	if err != nil {
		return nil, s.wrap(err, "claim payment")
	}

	s.transitioned(ctx, o)
	return o, nil
}

// ListPending returns orders waiting on payment or verification, newest
// first. An empty storeID lists every store.
func (s *Service) ListPending(ctx context.Context, storeID string) ([]Order, error) {
	orders, err := s.orders.List(ctx, Filter{Statuses: PendingStatuses, StoreID: storeID})
	if err != nil {
		return nil, errors.Wrap(err, "list pending orders")
	}
	return orders, nil
}

// VerifyOrder applies a cashier decision. It does not look at the current
// status: any order can be re-verified, overwriting earlier stamps. Every
// successful call appends one VerificationRecord together with the status
// change.
func (s *Service) VerifyOrder(ctx context.Context, id string, req VerifyRequest) (*VerifyResult, error) {
	cashier := strings.TrimSpace(req.CashierID)
	if cashier == "" {
		cashier = DefaultCashier
	}

	now := s.now()
	rec := VerificationRecord{
		ID:        s.newID(),
		OrderID:   id,
		CashierID: cashier,
		Verified:  req.Verified,
		Notes:     req.Notes,
		CreatedAt: now,
	}
	o, err := s.orders.Verify(ctx, id, func(o *Order) error {
		if req.Verified {
			o.Status = StatusVerified
			o.VerifiedAt = &now
			o.VerifiedBy = cashier
			o.VerificationNotes = req.Notes
			return nil
		}
		o.Status = StatusRejected
		o.RejectedAt = &now
		o.RejectionReason = req.Notes
		return nil
	}, rec)
	if err != nil {
		return nil, s.wrap(err, "verify order")
	}

	s.transitioned(ctx, o)
	return &VerifyResult{Order: o, Record: rec}, nil
}

// ListVerifications returns the verification log of an order.
func (s *Service) ListVerifications(ctx context.Context, id string) ([]VerificationRecord, error) {
	if _, err := s.orders.FindByID(ctx, id); err != nil {
		return nil, s.wrap(err, "find order")
	}
	recs, err := s.orders.ListVerifications(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "list verifications")
	}
	return recs, nil
}

// ScanExit completes a verified order at the exit gate. Orders in any other
// status are refused and left unchanged.
func (s *Service) ScanExit(ctx context.Context, id string) (*ExitResult, error) {
	res := &ExitResult{}
	o, err := s.orders.Update(ctx, id, func(o *Order) error {
		switch o.Status {
		case StatusVerified:
			now := s.now()
			o.Status = StatusCompleted
			o.CompletedAt = &now
			res.AllowExit = true
			res.Message = MessageExitAllowed
			return nil
		case StatusPaymentClaimed:
			res.Message = MessageVerificationPending
		case StatusPendingPayment:
			res.Message = MessagePaymentNotCompleted
		default:
			res.Message = MessageInvalidStatus
		}
		return ErrNoChange
	})
	if err != nil {
		return nil, s.wrap(err, "scan exit")
	}

	res.Order = o
	if res.AllowExit {
		s.transitioned(ctx, o)
	}
	return res, nil
}

func (s *Service) transitioned(ctx context.Context, o *Order) {
	s.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(o.Status))))
	zctx.From(ctx).Info("Order status changed",
		zap.String("order_id", o.ID),
		zap.String("status", string(o.Status)),
	)
}

// wrap keeps domain errors matchable while adding context to storage failures.
func (s *Service) wrap(err error, msg string) error {
	var (
		conflict   *ConflictError
		validation *ValidationError
	)
	if errors.Is(err, ErrNotFound) || errors.As(err, &conflict) || errors.As(err, &validation) {
		return err
	}
	return errors.Wrap(err, msg)
}
