package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/jcmexdev/bakery-storefront/internal/pkg/auth"
)

func TestSigner(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	signer := auth.NewSigner("0123456789abcdef", "bakery").WithClock(func() time.Time { return now })

	t.Run("a freshly issued token validates", func(t *testing.T) {
		tok, err := signer.GenerateToken("u-1", "ana@example.com", time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		claims, err := signer.ValidateToken(tok)
		if err != nil {
			t.Fatal(err)
		}
		if claims.Subject != "u-1" || claims.Email != "ana@example.com" {
			t.Errorf("claims = %+v", claims)
		}
	})

	t.Run("an expired token is rejected", func(t *testing.T) {
		tok, _ := signer.GenerateToken("u-1", "", time.Minute)
		later := auth.NewSigner("0123456789abcdef", "bakery").WithClock(func() time.Time { return now.Add(time.Hour) })
		if _, err := later.ValidateToken(tok); !errors.Is(err, auth.ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("a token signed with another secret is rejected", func(t *testing.T) {
		other := auth.NewSigner("fedcba9876543210", "bakery").WithClock(func() time.Time { return now })
		tok, _ := other.GenerateToken("u-1", "", time.Hour)
		if _, err := signer.ValidateToken(tok); !errors.Is(err, auth.ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("a token from another issuer is rejected", func(t *testing.T) {
		other := auth.NewSigner("0123456789abcdef", "elsewhere").WithClock(func() time.Time { return now })
		tok, _ := other.GenerateToken("u-1", "", time.Hour)
		if _, err := signer.ValidateToken(tok); !errors.Is(err, auth.ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("a signer with an audience only accepts its own audience", func(t *testing.T) {
		uploads := auth.NewSigner("0123456789abcdef", "bakery").WithAudience(auth.AudienceUploads).WithClock(func() time.Time { return now })
		tok, _ := uploads.GenerateToken("temp-uploads/a.png", "", time.Hour)
		claims, err := uploads.ValidateToken(tok)
		if err != nil {
			t.Fatal(err)
		}
		if len(claims.Audience) != 1 || claims.Audience[0] != auth.AudienceUploads {
			t.Errorf("audience = %v", claims.Audience)
		}

		plain, _ := signer.GenerateToken("u-1", "", time.Hour)
		if _, err := uploads.ValidateToken(plain); !errors.Is(err, auth.ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("derived secrets differ per purpose and are stable", func(t *testing.T) {
		a := auth.DeriveSecret("0123456789abcdef", "upload-urls")
		if a == "0123456789abcdef" || a == auth.DeriveSecret("0123456789abcdef", "other") {
			t.Errorf("derived secret %q is not distinct", a)
		}
		if a != auth.DeriveSecret("0123456789abcdef", "upload-urls") {
			t.Error("derivation is not deterministic")
		}
	})
}
