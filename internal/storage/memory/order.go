// Package memory implements volatile in-process storage for orders.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/scan-and-go/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository keeps orders and verification records in memory.
//
// Locking: mu guards the maps; each order id also has its own mutex, held for
// the whole read-modify-write of Update so transitions on one order are
// serialized while different orders proceed in parallel. Verification records
// are written inside that same critical section.
type OrderRepository struct {
	mu            sync.RWMutex
	orders        map[string]*order.Order
	verifications map[string][]order.VerificationRecord

	keys keyedMutex
}

// NewOrderRepository returns an empty OrderRepository.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders:        make(map[string]*order.Order),
		verifications: make(map[string][]order.VerificationRecord),
	}
}

// Insert stores a new order. Duplicate ids are rejected.
func (r *OrderRepository) Insert(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[o.ID]; ok {
		return errors.Errorf("order %q already exists", o.ID)
	}
	r.orders[o.ID] = o.Clone()
	return nil
}

// FindByID returns a copy of the order with the given id.
func (r *OrderRepository) FindByID(_ context.Context, id string) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o.Clone(), nil
}

// List returns copies of matching orders, newest first.
func (r *OrderRepository) List(_ context.Context, f order.Filter) ([]order.Order, error) {
	r.mu.RLock()
	out := make([]order.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if f.Match(o) {
			out = append(out, *o.Clone())
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Update runs fn on a private copy of the order and stores the result when fn
// succeeds.
func (r *OrderRepository) Update(_ context.Context, id string, fn order.UpdateFunc) (*order.Order, error) {
	return r.apply(id, fn, nil)
}

// Verify is Update that also appends rec to the order's log under the same
// lock. A failing fn writes neither.
func (r *OrderRepository) Verify(_ context.Context, id string, fn order.UpdateFunc, rec order.VerificationRecord) (*order.Order, error) {
	rec.OrderID = id
	return r.apply(id, fn, &rec)
}

func (r *OrderRepository) apply(id string, fn order.UpdateFunc, rec *order.VerificationRecord) (*order.Order, error) {
	unlock := r.keys.lock(id)
	defer unlock()

	r.mu.RLock()
	cur, ok := r.orders[id]
	r.mu.RUnlock()
	if !ok {
		return nil, order.ErrNotFound
	}

	next := cur.Clone()
	if err := fn(next); err != nil {
		if !errors.Is(err, order.ErrNoChange) {
			return nil, err
		}
		next = cur
	}

	r.mu.Lock()
	r.orders[id] = next
	if rec != nil {
		r.verifications[id] = append(r.verifications[id], *rec)
	}
	r.mu.Unlock()

	return next.Clone(), nil
}

// AppendVerification adds a record to the order's log.
func (r *OrderRepository) AppendVerification(_ context.Context, rec order.VerificationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.verifications[rec.OrderID] = append(r.verifications[rec.OrderID], rec)
	return nil
}

// ListVerifications returns the order's log, oldest first.
func (r *OrderRepository) ListVerifications(_ context.Context, orderID string) ([]order.VerificationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]order.VerificationRecord{}, r.verifications[orderID]...), nil
}

// Len returns the number of stored orders.
func (r *OrderRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}

// keyedMutex hands out one mutex per key and drops it once no goroutine
// holds or waits for it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
