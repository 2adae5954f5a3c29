// Package config reads the service settings from the environment, after
// loading an optional .env file.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/jcmexdev/bakery-storefront/internal/pkg/auth"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string

	DBDriver  string
	DBDSN     string
	RedisAddr string

	JWTSecret           string
	JWTIssuer           string
	UploadDir           string
	UploadSigningSecret string

	FunctionsURL     string
	FunctionsToken   string
	QuoteFallbackURL string

	CatalogPath string
	CORSOrigins []string

	// TrustedProxies may set X-Forwarded-For for rate limiting.
	TrustedProxies []netip.Prefix

	BakeryPhone    string
	BakeryWhatsApp string
	BakeryAddress  string

	LogLevel       string
	ServiceName    string
	OTLPEndpoint   string
	TracingEnabled bool
}

// Load reads the given .env files (".env" when none) and then the
// environment. A missing file is not an error.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	tracing, err := strconv.ParseBool(getEnv("TRACING_ENABLED", "false"))
	if err != nil {
		return nil, fmt.Errorf("config: TRACING_ENABLED: %w", err)
	}

	proxies, err := parsePrefixes(splitList(getEnv("TRUSTED_PROXIES", "")))
	if err != nil {
		return nil, fmt.Errorf("config: TRUSTED_PROXIES: %w", err)
	}

	c := &Config{
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:            getEnv("GRPC_ADDR", ":9090"),
		DBDriver:            getEnv("DB_DRIVER", "sqlite"),
		DBDSN:               getEnv("DB_DSN", "./data/bakery.db"),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		JWTIssuer:           getEnv("JWT_ISSUER", ""),
		UploadDir:           getEnv("UPLOAD_DIR", "./data/uploads"),
		UploadSigningSecret: getEnv("UPLOAD_SIGNING_SECRET", ""),
		FunctionsURL:        strings.TrimRight(getEnv("FUNCTIONS_URL", ""), "/"),
		FunctionsToken:      getEnv("FUNCTIONS_TOKEN", ""),
		QuoteFallbackURL:    getEnv("QUOTE_FALLBACK_URL", ""),
		CatalogPath:         getEnv("CATALOG_PATH", ""),
		CORSOrigins:         splitList(getEnv("CORS_ORIGINS", "*")),
		TrustedProxies:      proxies,
		BakeryPhone:         getEnv("BAKERY_PHONE", ""),
		BakeryWhatsApp:      getEnv("BAKERY_WHATSAPP", ""),
		BakeryAddress:       getEnv("BAKERY_ADDRESS", ""),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		ServiceName:         getEnv("OTEL_SERVICE_NAME", "storefront-api"),
		OTLPEndpoint:        getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TracingEnabled:      tracing,
	}
	if c.UploadSigningSecret == "" && c.JWTSecret != "" {
		c.UploadSigningSecret = auth.DeriveSecret(c.JWTSecret, "upload-urls")
	}
	return c, c.Validate()
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.DBDriver {
	case "sqlite", "pgx":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be sqlite or pgx, got %q", c.DBDriver))
	}
	if c.DBDSN == "" {
		errs = append(errs, errors.New("DB_DSN is required"))
	}
	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 bytes"))
	}
	if c.UploadSigningSecret != "" && c.UploadSigningSecret == c.JWTSecret {
		errs = append(errs, errors.New("UPLOAD_SIGNING_SECRET must differ from JWT_SECRET"))
	}
	if c.UploadDir == "" {
		errs = append(errs, errors.New("UPLOAD_DIR is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parsePrefixes accepts CIDRs and bare addresses.
func parsePrefixes(list []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, s := range list {
		if p, err := netip.ParsePrefix(s); err == nil {
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("%q is neither an address nor a CIDR", s)
		}
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}
