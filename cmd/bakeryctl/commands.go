package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/jcmexdev/bakery-storefront/internal/bakery/adapters/sqlstore"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/pricing"
	"github.com/jcmexdev/bakery-storefront/internal/pkg/auth"
)

// dbFlags are shared by the commands that open the database.
type dbFlags struct {
	driver string
	dsn    string
}

func (d *dbFlags) register(f *flag.FlagSet) {
	f.StringVar(&d.driver, "driver", envOr("DB_DRIVER", "sqlite"), "database driver: sqlite or pgx")
	f.StringVar(&d.dsn, "dsn", envOr("DB_DSN", "./data/bakery.db"), "database DSN")
}

func (d *dbFlags) open(ctx context.Context) (*sqlstore.DB, error) {
	db, err := sqlstore.Open(d.driver, d.dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.driver, err)
	}
	return db, nil
}

type migrateCmd struct{ db dbFlags }

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "create or update the database schema" }
func (*migrateCmd) Usage() string {
	return "migrate [-driver sqlite|pgx] [-dsn DSN]\n"
}
func (c *migrateCmd) SetFlags(f *flag.FlagSet) { c.db.register(f) }

func (c *migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	db, err := c.db.open(ctx)
	if err != nil {
		slog.Error("open database", "error", err)
		return subcommands.ExitFailure
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		slog.Error("migrate", "error", err)
		return subcommands.ExitFailure
	}
	slog.Info("schema is up to date", "driver", c.db.driver)
	return subcommands.ExitSuccess
}

// roleCmd bypasses the owner check of the API so the first owner can be
// appointed.
type roleCmd struct{ db dbFlags }

func (*roleCmd) Name() string     { return "role" }
func (*roleCmd) Synopsis() string { return "set the role of a profile" }
func (*roleCmd) Usage() string {
	return "role [-driver sqlite|pgx] [-dsn DSN] <profile-id> <owner|employee|customer>\n"
}
func (c *roleCmd) SetFlags(f *flag.FlagSet) { c.db.register(f) }

func (c *roleCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	role, ok := domain.ParseRole(f.Arg(1))
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", f.Arg(1))
		return subcommands.ExitUsageError
	}

	db, err := c.db.open(ctx)
	if err != nil {
		slog.Error("open database", "error", err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	profiles := sqlstore.NewProfiles(db)
	p, err := profiles.Get(ctx, f.Arg(0))
	if err != nil {
		slog.Error("load profile", "error", err)
		return subcommands.ExitFailure
	}
	p.Role = role
	p.UpdatedAt = time.Now().UTC()
	if err := profiles.Update(ctx, p); err != nil {
		slog.Error("update profile", "error", err)
		return subcommands.ExitFailure
	}
	slog.Info("role updated", "profile_id", p.ID, "role", role)
	return subcommands.ExitSuccess
}

type tokenCmd struct {
	subject string
	email   string
	ttl     time.Duration
	secret  string
	issuer  string
}

func (*tokenCmd) Name() string     { return "token" }
func (*tokenCmd) Synopsis() string { return "sign a bearer token for local testing" }
func (*tokenCmd) Usage() string {
	return "token -subject USER_ID [-email EMAIL] [-ttl 1h]\n"
}

func (c *tokenCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.subject, "subject", "", "user id the token is issued for")
	f.StringVar(&c.email, "email", "", "email claim")
	f.DurationVar(&c.ttl, "ttl", time.Hour, "token lifetime")
	f.StringVar(&c.secret, "secret", os.Getenv("JWT_SECRET"), "signing secret, defaults to JWT_SECRET")
	f.StringVar(&c.issuer, "issuer", os.Getenv("JWT_ISSUER"), "issuer claim, defaults to JWT_ISSUER")
}

func (c *tokenCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.subject == "" || c.secret == "" {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	token, err := auth.NewSigner(c.secret, c.issuer).GenerateToken(c.subject, c.email, c.ttl)
	if err != nil {
		slog.Error("sign token", "error", err)
		return subcommands.ExitFailure
	}
	fmt.Println(token)
	return subcommands.ExitSuccess
}

type priceCmd struct {
	catalog  string
	quantity int
}

func (*priceCmd) Name() string     { return "price" }
func (*priceCmd) Synopsis() string { return "price a cake selection read as JSON" }
func (*priceCmd) Usage() string {
	return "price [-catalog FILE] [-quantity N] [selection.json]\n\nReads stdin when no file is given.\n"
}

func (c *priceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.catalog, "catalog", os.Getenv("CATALOG_PATH"), "catalog YAML, defaults to the built-in menu")
	f.IntVar(&c.quantity, "quantity", 1, "number of cakes")
}

func (c *priceCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	var in io.Reader = os.Stdin
	if f.NArg() > 0 {
		file, err := os.Open(f.Arg(0))
		if err != nil {
			slog.Error("open selection", "error", err)
			return subcommands.ExitFailure
		}
		defer file.Close()
		in = file
	}

	var sel domain.CakeSelection
	if err := json.NewDecoder(in).Decode(&sel); err != nil {
		slog.Error("decode selection", "error", err)
		return subcommands.ExitFailure
	}

	store, err := pricing.NewStore(c.catalog)
	if err != nil {
		slog.Error("load catalog", "error", err)
		return subcommands.ExitFailure
	}
	b, err := pricing.NewCalculator(store).Price(&sel, c.quantity)
	if err != nil {
		slog.Error("price selection", "error", err)
		return subcommands.ExitFailure
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
