// Package app holds the storefront use cases. Services take a
// domain.Principal for every call and enforce role rules themselves, so the
// HTTP layer only authenticates.
package app

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/ports"
)

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

func requireUser(p domain.Principal) error {
	if !p.Authenticated() {
		return domain.ErrUnauthenticated
	}
	return nil
}

func requireStaff(p domain.Principal) error {
	if err := requireUser(p); err != nil {
		return err
	}
	if !p.IsStaff() {
		return domain.ErrForbidden
	}
	return nil
}

func requireOwner(p domain.Principal) error {
	if err := requireUser(p); err != nil {
		return err
	}
	if !p.IsOwner() {
		return domain.ErrForbidden
	}
	return nil
}

// Contact is the customer contact block shared by orders and quotes.
type Contact struct {
	Name  string
	Email string
	Phone string
}

func (c *Contact) normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
}

func (c Contact) validate(emailRequired bool) error {
	if c.Name == "" {
		return domain.Invalid("customer_name", "name is required")
	}
	switch {
	case c.Email == "" && emailRequired:
		return domain.Invalid("customer_email", "email is required")
	case c.Email == "" && c.Phone == "":
		return domain.Invalid("customer_email", "an email or a phone number is required")
	}
	if c.Email != "" {
		if _, err := mail.ParseAddress(c.Email); err != nil {
			return domain.Invalid("customer_email", "invalid email address")
		}
	}
	return nil
}

// validatePickup requires a YYYY-MM-DD date not before today and an HH:MM time.
func validatePickup(date, clock string, now time.Time) error {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return domain.Invalid("pickup_date", "pickup date must look like 2006-01-02")
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if d.Before(today) {
		return domain.Invalid("pickup_date", "pickup date is in the past")
	}
	if _, err := time.Parse(timeLayout, clock); err != nil {
		return domain.Invalid("pickup_time", "pickup time must look like 15:04")
	}
	return nil
}

// deliver sends a notification without letting its failure reach the caller.
func deliver(ctx context.Context, n ports.Notifier, msg ports.OrderNotification) {
	if n == nil {
		return
	}
	if err := n.SendNotificationEmail(context.WithoutCancel(ctx), msg); err != nil {
		attrs := []any{"event", msg.Event, "error", err}
		if msg.Order != nil {
			attrs = append(attrs, "order_id", msg.Order.ID)
		}
		if msg.Quote != nil {
			attrs = append(attrs, "quote_id", msg.Quote.ID)
		}
		slog.WarnContext(ctx, "notification failed", attrs...)
	}
}
