// Package httpx exposes the storefront services over HTTP.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jcmexdev/bakery-storefront/internal/api/httpx/middlewares"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/app"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/pricing"
	"github.com/jcmexdev/bakery-storefront/internal/pkg/links"
)

const maxBodySize = 1 << 20

// Services is everything the handlers call into.
type Services struct {
	Orders     *app.OrderService
	Quotes     *app.QuoteService
	Profiles   *app.ProfileService
	Carts      *app.CartService
	Uploads    *app.UploadService
	Calculator *pricing.Calculator
	Contact    links.Contact

	// Ready reports whether the backing stores answer. Nil means always ready.
	Ready func(context.Context) error
}

// Handler handles the storefront and dashboard HTTP requests.
type Handler struct {
	orders   *app.OrderService
	quotes   *app.QuoteService
	profiles *app.ProfileService
	carts    *app.CartService
	uploads  *app.UploadService
	calc     *pricing.Calculator
	contact  links.Contact
	ready    func(context.Context) error
	validate *validator.Validate
}

func NewHandler(s Services) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{
		orders:   s.Orders,
		quotes:   s.Quotes,
		profiles: s.Profiles,
		carts:    s.Carts,
		uploads:  s.Uploads,
		calc:     s.Calculator,
		contact:  s.Contact,
		ready:    s.Ready,
		validate: v,
	}
}

// decode reads a JSON body into v and validates it. It writes the error
// response itself and reports whether the handler may continue. An empty
// body is accepted when optional is set.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !(optional && errors.Is(err, io.EOF)) {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", describe(err))
		return false
	}
	return true
}

func describe(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return err.Error()
	}
	fe := ve[0]
	if fe.Param() != "" {
		return fmt.Sprintf("%s: failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag())
}

// fail maps a service error to its HTTP response. Anything unexpected is
// logged and hidden behind a generic message.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", ve.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, domain.ErrPricePending):
		writeError(w, http.StatusConflict, "price_pending", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	default:
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "something went wrong, please try again")
	}
}

func principal(r *http.Request) domain.Principal {
	return middlewares.PrincipalFrom(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
