package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/ports"
)

type ProfileService struct {
	profiles ports.ProfileRepository
	now      Clock
}

func NewProfileService(profiles ports.ProfileRepository) *ProfileService {
	return &ProfileService{profiles: profiles, now: time.Now}
}

func (s *ProfileService) WithClock(now Clock) *ProfileService {
	s.now = now
	return s
}

// Identity is what a verified token says about its bearer.
type Identity struct {
	UserID   string
	Email    string
	FullName string
	Phone    string
}

// Resolve returns the principal for a verified identity, creating a customer
// profile on first sight.
func (s *ProfileService) Resolve(ctx context.Context, id Identity) (domain.Principal, error) {
	if id.UserID == "" {
		return domain.Principal{}, domain.ErrUnauthenticated
	}
	now := s.now().UTC()
	p, err := s.profiles.Ensure(ctx, &domain.Profile{
		ID:        id.UserID,
		Email:     id.Email,
		FullName:  id.FullName,
		Phone:     id.Phone,
		Role:      domain.RoleCustomer,
		Language:  domain.Languages[0],
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return domain.Principal{}, fmt.Errorf("resolve profile: %w", err)
	}
	email := p.Email
	if email == "" {
		email = id.Email
	}
	return domain.Principal{UserID: p.ID, Email: email, Role: p.Role}, nil
}

func (s *ProfileService) Me(ctx context.Context, p domain.Principal) (*domain.Profile, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	return s.profiles.Get(ctx, p.UserID)
}

// UpdateProfileInput leaves nil fields untouched.
type UpdateProfileInput struct {
	FullName *string
	Phone    *string
	Language *string
}

func (s *ProfileService) UpdateMe(ctx context.Context, p domain.Principal, in UpdateProfileInput) (*domain.Profile, error) {
	prof, err := s.Me(ctx, p)
	if err != nil {
		return nil, err
	}
	if in.FullName != nil {
		prof.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.Phone != nil {
		prof.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Language != nil {
		if !domain.ValidLanguage(*in.Language) {
			return nil, domain.Invalid("language", "unsupported language %q", *in.Language)
		}
		prof.Language = *in.Language
	}
	prof.UpdatedAt = s.now().UTC()
	if err := s.profiles.Update(ctx, prof); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return prof, nil
}

func (s *ProfileService) List(ctx context.Context, p domain.Principal) ([]*domain.Profile, error) {
	if err := requireStaff(p); err != nil {
		return nil, err
	}
	return s.profiles.List(ctx)
}

// SetRole changes a user's role. Owners cannot demote themselves, so the
// bakery always keeps at least the caller as owner.
func (s *ProfileService) SetRole(ctx context.Context, p domain.Principal, id string, role domain.Role) (*domain.Profile, error) {
	if err := requireOwner(p); err != nil {
		return nil, err
	}
	if _, ok := domain.ParseRole(string(role)); !ok {
		return nil, domain.Invalid("role", "unknown role %q", role)
	}
	if id == p.UserID && role != domain.RoleOwner {
		return nil, domain.Invalid("role", "owners cannot demote themselves")
	}
	prof, err := s.profiles.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := prof.Role
	prof.Role = role
	prof.UpdatedAt = s.now().UTC()
	if err := s.profiles.Update(ctx, prof); err != nil {
		return nil, fmt.Errorf("set role: %w", err)
	}
	slog.InfoContext(ctx, "role changed", "profile_id", id, "from", prev, "to", role, "by", p.UserID)
	return prof, nil
}
