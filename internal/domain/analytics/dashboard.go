// Package analytics derives dashboard metrics from stored orders.
package analytics

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/xenking/scan-and-go/internal/domain/order"
)

// Lister is the read side of the order repository.
type Lister interface {
	List(ctx context.Context, f order.Filter) ([]order.Order, error)
}

// Metrics summarises order activity.
type Metrics struct {
	TotalOrders       int
	TodayOrders       int
	CompletedOrders   int
	PendingOrders     int
	TotalRevenue      decimal.Decimal
	TodayRevenue      decimal.Decimal
	AverageOrderValue decimal.Decimal
}

// Aggregator computes Metrics on demand.
type Aggregator struct {
	orders Lister
	loc    *time.Location
	now    func() time.Time
}

// NewAggregator returns an Aggregator that decides "today" in loc.
// A nil loc means UTC.
func NewAggregator(orders Lister, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{orders: orders, loc: loc, now: time.Now}
}

// Dashboard aggregates every order, or only those of storeID when set.
func (a *Aggregator) Dashboard(ctx context.Context, storeID string) (Metrics, error) {
	orders, err := a.orders.List(ctx, order.Filter{StoreID: storeID})
	if err != nil {
		return Metrics{}, errors.Wrap(err, "list orders")
	}

	today := a.day(a.now())
	isToday := func(o order.Order) bool { return a.day(o.CreatedAt) == today }
	completed := lo.Filter(orders, func(o order.Order, _ int) bool {
		return o.Status == order.StatusCompleted
	})

	m := Metrics{
		TotalOrders:     len(orders),
		TodayOrders:     lo.CountBy(orders, isToday),
		CompletedOrders: len(completed),
		PendingOrders: lo.CountBy(orders, func(o order.Order) bool {
			return lo.Contains(order.PendingStatuses, o.Status)
		}),
		TotalRevenue:      sumTotals(completed),
		TodayRevenue:      sumTotals(lo.Filter(completed, func(o order.Order, _ int) bool { return isToday(o) })),
		AverageOrderValue: decimal.Zero,
	}
	if m.CompletedOrders > 0 {
		m.AverageOrderValue = m.TotalRevenue.Div(decimal.NewFromInt(int64(m.CompletedOrders))).Round(0)
	}
	return m, nil
}

func (a *Aggregator) day(t time.Time) string {
	return t.In(a.loc).Format(time.DateOnly)
}

func sumTotals(orders []order.Order) decimal.Decimal {
	sum := decimal.Zero
	for _, o := range orders {
		sum = sum.Add(o.Total)
	}
	return sum
}
