package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/jcmexdev/bakery-storefront/internal/bakery/app"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
	"github.com/jcmexdev/bakery-storefront/internal/pkg/auth"
)

type principalKey struct{}

func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the caller stored by the auth middleware, or a guest.
func PrincipalFrom(ctx context.Context) domain.Principal {
	p, _ := ctx.Value(principalKey{}).(domain.Principal)
	return p
}

// Resolver turns a verified identity into a principal with its role.
type Resolver interface {
	Resolve(ctx context.Context, id app.Identity) (domain.Principal, error)
}

type Authenticator struct {
	signer   *auth.Signer
	resolver Resolver
}

func NewAuthenticator(signer *auth.Signer, resolver Resolver) *Authenticator {
	return &Authenticator{signer: signer, resolver: resolver}
}

// Required rejects requests without a valid bearer token.
func (a *Authenticator) Required(next http.Handler) http.Handler {
	return a.handler(next, false)
}

// Optional lets requests without a token through as guests. A token that is
// present but invalid is still rejected.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return a.handler(next, true)
}

func (a *Authenticator) handler(next http.Handler, optional bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearer(r)
		if !ok {
			if optional {
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, http.StatusUnauthorized, "unauthenticated", "a bearer token is required")
			return
		}

		claims, err := a.signer.ValidateToken(token)
		if err == nil && slices.Contains(claims.Audience, auth.AudienceUploads) {
			err = errors.New("upload token used as bearer token")
		}
		if err != nil {
			slog.InfoContext(r.Context(), "rejected bearer token", "error", err)
			writeError(w, http.StatusUnauthorized, "unauthenticated", "invalid or expired token")
			return
		}
		p, err := a.resolver.Resolve(r.Context(), app.Identity{
			UserID:   claims.Subject,
			Email:    claims.Email,
			FullName: claims.FullName,
			Phone:    claims.Phone,
		})
		if errors.Is(err, domain.ErrUnauthenticated) {
			writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
			return
		}
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to resolve caller", "subject", claims.Subject, "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "something went wrong, please try again")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// RequireStaff lets only employees and owners through.
func RequireStaff(next http.Handler) http.Handler {
	return requireRole(next, domain.Principal.IsStaff)
}

func RequireOwner(next http.Handler) http.Handler {
	return requireRole(next, domain.Principal.IsOwner)
}

func requireRole(next http.Handler, allowed func(domain.Principal) bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := PrincipalFrom(r.Context())
		if !p.Authenticated() {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "a bearer token is required")
			return
		}
		if !allowed(p) {
			writeError(w, http.StatusForbidden, "forbidden", "your role cannot use this endpoint")
			return
		}
		next.ServeHTTP(w, r)
	})
}
