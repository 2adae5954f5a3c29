package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/ports"
)

type Orders struct {
	db *DB
}

func NewOrders(db *DB) *Orders { return &Orders{db: db} }

var _ ports.OrderRepository = (*Orders)(nil)

const orderColumns = `id, customer_id, customer_name, customer_email, customer_phone, items,
	subtotal, tax, total, status, payment_status, pickup_date, pickup_time, notes, quote_id,
	cancel_requested_by, cancel_reason, created_at, updated_at`

func (r *Orders) Create(ctx context.Context, o *domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("sqlstore: encode items of order %q: %w", o.ID, err)
	}
	_, err = r.db.exec(ctx, `INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.CustomerID, o.CustomerName, o.CustomerEmail, o.CustomerPhone, string(items),
		decimalValue(o.Subtotal), decimalValue(o.Tax), decimalValue(o.Total),
		string(o.Status), string(o.PaymentStatus), o.PickupDate, o.PickupTime, o.Notes, o.QuoteID,
		o.CancelRequestedBy, o.CancelReason, formatTime(o.CreatedAt), formatTime(o.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlstore: insert order %q: %w", o.ID, err)
	}
	return nil
}

func (r *Orders) Get(ctx context.Context, id string) (*domain.Order, error) {
	row := r.db.queryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlstore: order %q: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: get order %q: %w", id, err)
	}
	return o, nil
}

func (r *Orders) List(ctx context.Context, f ports.OrderFilter) ([]*domain.Order, error) {
	var conds []string
	var args []any
	if f.CustomerID != "" {
		conds = append(conds, "customer_id = ?")
		args = append(args, f.CustomerID)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}

	rows, err := r.db.query(ctx,
		`SELECT `+orderColumns+` FROM orders`+where(conds)+` ORDER BY created_at DESC`+limit(f.Limit),
		args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list orders: %w", err)
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Orders) Update(ctx context.Context, o *domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("sqlstore: encode items of order %q: %w", o.ID, err)
	}
	res, err := r.db.exec(ctx, `UPDATE orders SET
		customer_name = ?, customer_email = ?, customer_phone = ?, items = ?,
		subtotal = ?, tax = ?, total = ?, status = ?, payment_status = ?,
		pickup_date = ?, pickup_time = ?, notes = ?,
		cancel_requested_by = ?, cancel_reason = ?, updated_at = ?
		WHERE id = ?`,
		o.CustomerName, o.CustomerEmail, o.CustomerPhone, string(items),
		decimalValue(o.Subtotal), decimalValue(o.Tax), decimalValue(o.Total),
		string(o.Status), string(o.PaymentStatus),
		o.PickupDate, o.PickupTime, o.Notes,
		o.CancelRequestedBy, o.CancelReason, formatTime(o.UpdatedAt),
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: update order %q: %w", o.ID, err)
	}
	return expectRow(res, "order", o.ID)
}

func (r *Orders) Delete(ctx context.Context, id string) error {
	res, err := r.db.exec(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlstore: delete order %q: %w", id, err)
	}
	return expectRow(res, "order", id)
}

// CountByStatus aggregates in SQL. A NULL total marks an order with a
// pending price.
func (r *Orders) CountByStatus(ctx context.Context) (map[domain.OrderStatus]ports.StatusCount, error) {
	rows, err := r.db.query(ctx, `SELECT status,
		COUNT(*),
		SUM(CASE WHEN total IS NULL THEN 1 ELSE 0 END),
		SUM(CASE WHEN cancel_requested_by <> '' THEN 1 ELSE 0 END),
		SUM(CASE WHEN payment_status = ? THEN 1 ELSE 0 END)
		FROM orders GROUP BY status`, string(domain.PaymentUnpaid))
	if err != nil {
		return nil, fmt.Errorf("sqlstore: count orders: %w", err)
	}
	defer rows.Close()

	out := map[domain.OrderStatus]ports.StatusCount{}
	for rows.Next() {
		var (
			status string
			c      ports.StatusCount
		)
		if err := rows.Scan(&status, &c.Orders, &c.PendingPrice, &c.CancellationRequests, &c.Unpaid); err != nil {
			return nil, fmt.Errorf("sqlstore: scan order count: %w", err)
		}
		out[domain.OrderStatus(status)] = c
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*domain.Order, error) {
	var (
		o                    domain.Order
		items                string
		subtotal, tax, total sql.NullString
		status, payment      string
		createdAt, updatedAt string
	)
	err := s.Scan(
		&o.ID, &o.CustomerID, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone, &items,
		&subtotal, &tax, &total, &status, &payment, &o.PickupDate, &o.PickupTime, &o.Notes, &o.QuoteID,
		&o.CancelRequestedBy, &o.CancelReason, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	o.PaymentStatus = domain.PaymentStatus(payment)

	if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
		return nil, fmt.Errorf("sqlstore: decode items of order %q: %w", o.ID, err)
	}
	if o.Subtotal, err = decimalPtr(subtotal); err != nil {
		return nil, err
	}
	if o.Tax, err = decimalPtr(tax); err != nil {
		return nil, err
	}
	if o.Total, err = decimalPtr(total); err != nil {
		return nil, err
	}
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if o.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

func expectRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: %s %q: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("sqlstore: %s %q: %w", kind, id, domain.ErrNotFound)
	}
	return nil
}
