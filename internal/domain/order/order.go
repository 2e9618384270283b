package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status is a step of the order lifecycle.
type Status string

const (
	// StatusPendingPayment is the initial status of every order.
	StatusPendingPayment Status = "pending_payment"
	// StatusPaymentClaimed means the customer asserted a UPI transfer.
	StatusPaymentClaimed Status = "payment_claimed"
	// StatusVerified means a cashier confirmed the claim.
	StatusVerified Status = "verified"
	// StatusRejected means a cashier refused the claim. Terminal.
	StatusRejected Status = "rejected"
	// StatusCompleted means the customer left the store. Terminal.
	StatusCompleted Status = "completed"
)

// PendingStatuses are the statuses a cashier still has to act on.
var PendingStatuses = []Status{StatusPendingPayment, StatusPaymentClaimed}

// Terminal reports whether no lifecycle transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPendingPayment, StatusPaymentClaimed, StatusVerified, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

const (
	// AnonymousCustomer marks orders placed without a phone number.
	AnonymousCustomer = "anonymous"
	// DefaultCashier is recorded when a verification carries no cashier id.
	DefaultCashier = "cashier"
	// ExpiryWindow is how long an order stays payable. Advisory only.
	ExpiryWindow = 10 * time.Minute
)

// Item is a snapshot of a product at order time plus the requested quantity.
type Item struct {
	ProductID string          `json:"productId"`
	Barcode   string          `json:"barcode"`
	Name      string          `json:"name"`
	Brand     string          `json:"brand"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Total     decimal.Decimal `json:"total"`
}

// Order is a customer cart moving through the checkout lifecycle.
type Order struct {
	ID            string
	StoreID       string
	CustomerPhone string
	Items         []Item
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
	Status        Status
	CreatedAt     time.Time
	ExpiresAt     time.Time

	ClaimedAt  *time.Time
	UTRLast4   string
	PaidAmount *decimal.Decimal

	VerifiedAt        *time.Time
	VerifiedBy        string
	VerificationNotes string

	RejectedAt      *time.Time
	RejectionReason string

	CompletedAt *time.Time
}

// Clone returns a deep copy of o.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = append([]Item(nil), o.Items...)
	c.ClaimedAt = clonePtr(o.ClaimedAt)
	c.PaidAmount = clonePtr(o.PaidAmount)
	c.VerifiedAt = clonePtr(o.VerifiedAt)
	c.RejectedAt = clonePtr(o.RejectedAt)
	c.CompletedAt = clonePtr(o.CompletedAt)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// VerificationRecord is one cashier decision about an order.
type VerificationRecord struct {
	ID        string
	OrderID   string
	CashierID string
	Verified  bool
	Notes     string
	CreatedAt time.Time
}

// Filter selects orders for listing. Empty fields match everything.
type Filter struct {
	Statuses []Status
	StoreID  string
}

// Match reports whether o satisfies the filter.
func (f Filter) Match(o *Order) bool {
	if f.StoreID != "" && o.StoreID != f.StoreID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if o.Status == s {
			return true
		}
	}
	return false
}

// UpdateFunc mutates an order in place. Returning an error aborts the update
// and leaves the stored order untouched.
type UpdateFunc func(o *Order) error

// Repository defines persistence operations for orders and the verification log.
//
// Update must apply fn atomically with respect to every other Update and read
// of the same order id. Verify does the same and stores rec in the same step:
// either both the order change and the log entry are written or neither is.
// Implementations return copies, never shared pointers.
type Repository interface {
	Insert(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	// List returns matching orders, newest first.
	List(ctx context.Context, f Filter) ([]Order, error)
	Update(ctx context.Context, id string, fn UpdateFunc) (*Order, error)
	AppendVerification(ctx context.Context, rec VerificationRecord) error
	Verify(ctx context.Context, id string, fn UpdateFunc, rec VerificationRecord) (*Order, error)
	// ListVerifications returns the log of one order, oldest first.
	ListVerifications(ctx context.Context, orderID string) ([]VerificationRecord, error)
}
