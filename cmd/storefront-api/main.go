package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/jcmexdev/bakery-storefront/internal/api/httpx"
	"github.com/jcmexdev/bakery-storefront/internal/api/httpx/middlewares"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/adapters/cartstore"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/adapters/notify"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/adapters/objectstore"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/adapters/sqlstore"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/app"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/ports"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/pricing"
	"github.com/jcmexdev/bakery-storefront/internal/pkg/auth"
	"github.com/jcmexdev/bakery-storefront/internal/pkg/cache"
	"github.com/jcmexdev/bakery-storefront/internal/pkg/config"
	"github.com/jcmexdev/bakery-storefront/internal/pkg/interceptors"
	"github.com/jcmexdev/bakery-storefront/internal/pkg/links"
	"github.com/jcmexdev/bakery-storefront/internal/pkg/telemetry"
)

const (
	bakeryName   = "Sweet Crumbs Bakery"
	greeting     = "Hi! I'd like to ask about a cake."
	uploadPrefix = "/uploads"
)

func main() {
	if err := run(); err != nil {
		slog.Error("storefront-api stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	telemetry.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer := telemetry.ShutdownFunc(telemetry.NoopShutdown)
	if cfg.TracingEnabled {
		if shutdownTracer, err = telemetry.SetupTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint); err != nil {
			return err
		}
	} else {
		telemetry.SetupPropagation()
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	db, err := sqlstore.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}

	var store cache.Cache
	if cfg.RedisAddr != "" {
		client, err := cache.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer client.Close()
		store = cache.NewRedisCache(client, "storefront")
	} else {
		slog.Warn("REDIS_ADDR is not set, carts are kept in memory")
		store = cache.NewMemory("storefront")
	}

	catalog, err := pricing.NewStore(cfg.CatalogPath)
	if err != nil {
		return err
	}

	var notifier ports.Notifier
	if cfg.FunctionsURL != "" {
		notifier = notify.NewClient(notify.Config{
			BaseURL:     cfg.FunctionsURL,
			Token:       cfg.FunctionsToken,
			FallbackURL: cfg.QuoteFallbackURL,
		})
	} else {
		slog.Warn("FUNCTIONS_URL is not set, notifications are disabled")
	}

	bucket, err := objectstore.New(cfg.UploadDir, objectstore.NewSigner(cfg.UploadSigningSecret), uploadPrefix)
	if err != nil {
		return err
	}

	calc := pricing.NewCalculator(catalog)
	orders := app.NewOrderService(sqlstore.NewOrders(db), notifier, cartstore.NewIdempotencyKeys(store))
	profiles := app.NewProfileService(sqlstore.NewProfiles(db))
	handler := httpx.NewHandler(httpx.Services{
		Orders:     orders,
		Quotes:     app.NewQuoteService(sqlstore.NewQuotes(db), sqlstore.NewOrders(db), notifier, sqlstore.NewWorkflowLogs(db)),
		Profiles:   profiles,
		Carts:      app.NewCartService(cartstore.NewCarts(store), calc, orders),
		Uploads:    app.NewUploadService(bucket),
		Calculator: calc,
		Contact:    links.Build(bakeryName, cfg.BakeryPhone, cfg.BakeryWhatsApp, cfg.BakeryAddress, greeting),
		Ready:      db.Ping,
	})
	router := httpx.NewRouter(handler, httpx.RouterConfig{
		ServiceName:   cfg.ServiceName,
		CORSOrigins:   cfg.CORSOrigins,
		Auth:          middlewares.NewAuthenticator(auth.NewSigner(cfg.JWTSecret, cfg.JWTIssuer), profiles),
		PublicLimiter: middlewares.NewRateLimiter(20, 5).WithTrustedProxies(cfg.TrustedProxies),
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	healthSrv := health.NewServer()
	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(interceptors.UnaryServerInterceptor()),
	)
	healthpb.RegisterHealthServer(grpcServer, healthSrv)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}

	if err := catalog.Watch(ctx); err != nil {
		slog.Warn("catalog hot reload disabled", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("storefront HTTP running", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		slog.Info("ops gRPC running", "addr", cfg.GRPCAddr)
		healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		healthSrv.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		grpcServer.GracefulStop()
		return err
	})
	return g.Wait()
}
