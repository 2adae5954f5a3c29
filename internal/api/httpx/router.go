package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jcmexdev/bakery-storefront/internal/api/httpx/middlewares"
	"github.com/jcmexdev/bakery-storefront/internal/pkg/interceptors/constants"
)

type RouterConfig struct {
	ServiceName string
	CORSOrigins []string
	Auth        *middlewares.Authenticator

	// PublicLimiter throttles the public quote and tracking endpoints. Nil
	// disables it.
	PublicLimiter *middlewares.RateLimiter
}

func NewRouter(handler *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachRequestMetadata)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", constants.HeaderXIdempotencyKey, constants.HeaderXRequestId},
		ExposedHeaders: []string{constants.HeaderXRequestId},
		MaxAge:         300,
	}))

	throttle := func(next http.Handler) http.Handler { return next }
	if cfg.PublicLimiter != nil {
		throttle = cfg.PublicLimiter.Handler
	}

	r.Get("/healthz", handler.Health)
	r.Get("/menu", handler.Menu)
	r.Get("/contact", handler.Contact)
	r.Get("/cakes/options", handler.CakeOptions)
	r.Post("/cakes/price", handler.PriceCake)
	r.With(throttle).Get("/track/{id}", handler.TrackOrder)
	r.Get("/uploads/*", handler.ServeUpload)
	r.With(throttle, cfg.Auth.Optional).Post("/quotes", handler.SubmitQuote)

	r.Group(func(r chi.Router) {
		r.Use(cfg.Auth.Required)

		r.Get("/me", handler.Me)
		r.Patch("/me", handler.UpdateMe)

		r.Get("/cart", handler.GetCart)
		r.Delete("/cart", handler.ClearCart)
		r.Post("/cart/items", handler.AddCartItem)
		r.Post("/cart/cakes", handler.AddCartCake)
		r.Delete("/cart/items/{index}", handler.RemoveCartItem)
		r.Post("/cart/checkout", handler.Checkout)

		r.Post("/orders", handler.CreateOrder)
		r.Get("/orders", handler.ListOrders)
		r.Get("/orders/{id}", handler.GetOrder)
		r.Post("/orders/{id}/pay", handler.PayOrder)
		r.Post("/orders/{id}/cancel", handler.CancelOrder)

		r.Get("/quotes", handler.ListQuotes)
		r.Get("/quotes/{id}", handler.GetQuote)
		r.Post("/quotes/{id}/accept", handler.AcceptQuote)
		r.Post("/quotes/{id}/reject", handler.RejectQuote)

		r.Post("/uploads", handler.Upload)
		r.Post("/uploads/sign", handler.SignUpload)
		r.Delete("/uploads/*", handler.DeleteUpload)

		r.Route("/dashboard", func(r chi.Router) {
			r.Use(middlewares.RequireStaff)

			r.Get("/summary", handler.Summary)
			r.Get("/orders", handler.ListOrders)
			r.Post("/orders/{id}/status", handler.AdvanceOrder)
			r.Post("/orders/{id}/cancel", handler.CancelOrder)
			r.Get("/quotes", handler.ListQuotes)
			r.Post("/quotes/{id}/respond", handler.RespondQuote)
			r.Get("/profiles", handler.ListProfiles)
			r.Get("/workflows/{id}", handler.Workflow)

			r.Group(func(r chi.Router) {
				r.Use(middlewares.RequireOwner)

				r.Post("/orders/{id}/prices", handler.ApprovePrices)
				r.Post("/orders/{id}/cancellation", handler.ResolveCancellation)
				r.Delete("/orders/{id}", handler.DeleteOrder)
				r.Delete("/quotes/{id}", handler.DeleteQuote)
				r.Put("/profiles/{id}/role", handler.SetRole)
			})
		})
	})

	return otelhttp.NewHandler(r, cfg.ServiceName,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
