package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/scan-and-go/internal/domain/order"
)

const (
	orderColumns = `id, store_id, customer_phone, items, subtotal, tax, total, status,
		created_at, expires_at, claimed_at, utr_last4, paid_amount,
		verified_at, verified_by, verification_notes, rejected_at, rejection_reason, completed_at`

	insertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	lockOrderSQL = getOrderSQL + ` FOR UPDATE`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE ($1::text[] IS NULL OR status = ANY($1))
		  AND ($2 = '' OR store_id = $2)
		ORDER BY created_at DESC, id DESC`

	updateOrderSQL = `UPDATE orders SET
		status = $2, claimed_at = $3, utr_last4 = $4, paid_amount = $5,
		verified_at = $6, verified_by = $7, verification_notes = $8,
		rejected_at = $9, rejection_reason = $10, completed_at = $11
		WHERE id = $1`

	insertVerificationSQL = `INSERT INTO verification_logs (id, order_id, cashier_id, verified, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	listVerificationsSQL = `SELECT id, order_id, cashier_id, verified, notes, created_at
		FROM verification_logs WHERE order_id = $1 ORDER BY created_at, id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
// Update locks the order row, applies fn and writes the lifecycle columns
// back in one transaction.
func (r *OrderRepository) Update(ctx context.Context, id string, fn order.UpdateFunc) (*order.Order, error) {
	return withTx(ctx, r.pool, func(tx pgx.Tx) (*order.Order, error) {
		return updateLocked(ctx, tx, id, fn)
	})
}

// Verify is Update plus the verification log insert, committed together.
func (r *OrderRepository) Verify(ctx context.Context, id string, fn order.UpdateFunc, rec order.VerificationRecord) (*order.Order, error) {
	return withTx(ctx, r.pool, func(tx pgx.Tx) (*order.Order, error) {
		o, err := updateLocked(ctx, tx, id, fn)
		if err != nil {
			return nil, err
		}
		rec.OrderID = id
		if err := appendVerification(ctx, tx, rec); err != nil {
			return nil, err
		}
		return o, nil
	})
}

// AppendVerification inserts a verification log entry.
func (r *OrderRepository) AppendVerification(ctx context.Context, rec order.VerificationRecord) error {
	return appendVerification(ctx, r.pool, rec)
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func appendVerification(ctx context.Context, db execer, rec order.VerificationRecord) error {
	_, err := db.Exec(ctx, insertVerificationSQL,
		rec.ID, rec.OrderID, rec.CashierID, rec.Verified, rec.Notes, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending verification for order %q: %w", rec.OrderID, err)
	}
	return nil
}

func updateLocked(ctx context.Context, tx pgx.Tx, id string, fn order.UpdateFunc) (*order.Order, error) {
	rows, err := tx.Query(ctx, lockOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("locking order %q: %w", id, err)
	}
	cur, err := collectOrder(rows, id)
	if err != nil {
		return nil, err
	}

	next := cur.Clone()
	if err := fn(next); err != nil {
		if errors.Is(err, order.ErrNoChange) {
			return cur, nil
		}
		return nil, err
	}

	_, err = tx.Exec(ctx, updateOrderSQL,
		next.ID, string(next.Status), next.ClaimedAt, next.UTRLast4, next.PaidAmount,
		next.VerifiedAt, next.VerifiedBy, next.VerificationNotes,
		next.RejectedAt, next.RejectionReason, next.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("updating order %q: %w", id, err)
	}
	return next, nil
}

// ListVerifications returns the log of one order, oldest first.
func (r *OrderRepository) ListVerifications(ctx context.Context, orderID string) ([]order.VerificationRecord, error) {
	rows, err := r.pool.Query(ctx, listVerificationsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing verifications for order %q: %w", orderID, err)
	}
	recs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.VerificationRecord, error) {
		var rec order.VerificationRecord
		err := row.Scan(&rec.ID, &rec.OrderID, &rec.CashierID, &rec.Verified, &rec.Notes, &rec.CreatedAt)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("listing verifications for order %q: %w", orderID, err)
	}
	return recs, nil
}

func collectOrder(rows pgx.Rows, id string) (*order.Order, error) {
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		itemsJSON []byte
		status    string
	)
	err := row.Scan(
		&o.ID, &o.StoreID, &o.CustomerPhone, &itemsJSON, &o.Subtotal, &o.Tax, &o.Total, &status,
		&o.CreatedAt, &o.ExpiresAt, &o.ClaimedAt, &o.UTRLast4, &o.PaidAmount,
		&o.VerifiedAt, &o.VerifiedBy, &o.VerificationNotes, &o.RejectedAt, &o.RejectionReason, &o.CompletedAt,
	)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling items of order %q: %w", o.ID, err)
	}
	o.Status = order.Status(status)
	return o, nil
}
