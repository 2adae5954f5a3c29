package middlewares

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/jcmexdev/bakery-storefront/internal/pkg/interceptors/constants"
)

// AttachRequestMetadata copies the request id minted by chi and the client's
// idempotency key into the context, and echoes the request id back.
func AttachRequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())
		idempotencyKey := r.Header.Get(constants.HeaderXIdempotencyKey)

		ctx := constants.WithRequestID(r.Context(), requestID)
		if idempotencyKey != "" {
			ctx = constants.WithIdempotencyKey(ctx, idempotencyKey)
		}
		if requestID != "" {
			w.Header().Set(constants.HeaderXRequestId, requestID)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
