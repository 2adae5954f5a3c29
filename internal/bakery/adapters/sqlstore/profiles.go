package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/ports"
)

type Profiles struct {
	db *DB
}

func NewProfiles(db *DB) *Profiles { return &Profiles{db: db} }

var _ ports.ProfileRepository = (*Profiles)(nil)

const profileColumns = `id, email, full_name, phone, role, language, created_at, updated_at`

func (r *Profiles) Get(ctx context.Context, id string) (*domain.Profile, error) {
	row := r.db.queryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlstore: profile %q: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: get profile %q: %w", id, err)
	}
	return p, nil
}

// Ensure inserts p unless a profile with the same id exists, then returns the
// stored row. An existing role is never overwritten.
func (r *Profiles) Ensure(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	_, err := r.db.exec(ctx, `INSERT INTO profiles (`+profileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		p.ID, p.Email, p.FullName, p.Phone, string(p.Role), p.Language,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: ensure profile %q: %w", p.ID, err)
	}
	return r.Get(ctx, p.ID)
}

func (r *Profiles) Update(ctx context.Context, p *domain.Profile) error {
	res, err := r.db.exec(ctx, `UPDATE profiles SET
		email = ?, full_name = ?, phone = ?, role = ?, language = ?, updated_at = ?
		WHERE id = ?`,
		p.Email, p.FullName, p.Phone, string(p.Role), p.Language, formatTime(p.UpdatedAt), p.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: update profile %q: %w", p.ID, err)
	}
	return expectRow(res, "profile", p.ID)
}

func (r *Profiles) List(ctx context.Context) ([]*domain.Profile, error) {
	rows, err := r.db.query(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list profiles: %w", err)
	}
	defer rows.Close()

	var out []*domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scan profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProfile(s scanner) (*domain.Profile, error) {
	var (
		p                    domain.Profile
		role                 string
		createdAt, updatedAt string
	)
	if err := s.Scan(&p.ID, &p.Email, &p.FullName, &p.Phone, &role, &p.Language, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.Role = domain.Role(role)
	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
