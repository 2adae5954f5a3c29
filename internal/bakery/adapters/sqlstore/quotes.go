package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/ports"
)

type Quotes struct {
	db *DB
}

func NewQuotes(db *DB) *Quotes { return &Quotes{db: db} }

var _ ports.QuoteRepository = (*Quotes)(nil)

const quoteColumns = `id, customer_id, customer_name, customer_email, customer_phone,
	occasion, theme, budget, servings, event_date, details, photo_path,
	status, estimated_price, response, order_id, created_at, updated_at`

func (r *Quotes) Create(ctx context.Context, q *domain.Quote) error {
	_, err := r.db.exec(ctx, `INSERT INTO quotes (`+quoteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.CustomerID, q.CustomerName, q.CustomerEmail, q.CustomerPhone,
		q.Occasion, q.Theme, q.Budget, q.Servings, q.EventDate, q.Details, q.PhotoPath,
		string(q.Status), decimalValue(q.EstimatedPrice), q.Response, q.OrderID,
		formatTime(q.CreatedAt), formatTime(q.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlstore: insert quote %q: %w", q.ID, err)
	}
	return nil
}

func (r *Quotes) Get(ctx context.Context, id string) (*domain.Quote, error) {
	row := r.db.queryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = ?`, id)
	q, err := scanQuote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlstore: quote %q: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: get quote %q: %w", id, err)
	}
	return q, nil
}

func (r *Quotes) List(ctx context.Context, f ports.QuoteFilter) ([]*domain.Quote, error) {
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
		`SELECT `+quoteColumns+` FROM quotes`+where(conds)+` ORDER BY created_at DESC`+limit(f.Limit),
		args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list quotes: %w", err)
	}
	defer rows.Close()

	var out []*domain.Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scan quote: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *Quotes) Update(ctx context.Context, q *domain.Quote) error {
	res, err := r.db.exec(ctx, `UPDATE quotes SET
		status = ?, estimated_price = ?, response = ?, order_id = ?, photo_path = ?, updated_at = ?
		WHERE id = ?`,
		string(q.Status), decimalValue(q.EstimatedPrice), q.Response, q.OrderID, q.PhotoPath,
		formatTime(q.UpdatedAt), q.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: update quote %q: %w", q.ID, err)
	}
	return expectRow(res, "quote", q.ID)
}

func (r *Quotes) Delete(ctx context.Context, id string) error {
	res, err := r.db.exec(ctx, `DELETE FROM quotes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlstore: delete quote %q: %w", id, err)
	}
	return expectRow(res, "quote", id)
}

func scanQuote(s scanner) (*domain.Quote, error) {
	var (
		q                    domain.Quote
		status               string
		estimate             sql.NullString
		createdAt, updatedAt string
	)
	err := s.Scan(
		&q.ID, &q.CustomerID, &q.CustomerName, &q.CustomerEmail, &q.CustomerPhone,
		&q.Occasion, &q.Theme, &q.Budget, &q.Servings, &q.EventDate, &q.Details, &q.PhotoPath,
		&status, &estimate, &q.Response, &q.OrderID, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	q.Status = domain.QuoteStatus(status)
	if q.EstimatedPrice, err = decimalPtr(estimate); err != nil {
		return nil, err
	}
	if q.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if q.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &q, nil
}
