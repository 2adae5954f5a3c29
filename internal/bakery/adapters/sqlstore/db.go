// Package sqlstore persists orders, quotes, profiles and workflow logs in a
// SQL database. SQLite (pure-Go modernc driver) is the default; PostgreSQL is
// reached through pgx's database/sql driver.
//
// Queries are written with '?' placeholders and rebound for PostgreSQL, and
// the schema sticks to TEXT/INTEGER columns so one DDL serves both engines.
// Timestamps are stored as fixed-width RFC3339 TEXT so they sort lexically.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	// Register the PostgreSQL driver as "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"
	// Register the pure-Go SQLite driver as "sqlite" (no CGO needed).
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
    id          TEXT PRIMARY KEY,
    email       TEXT NOT NULL DEFAULT '',
    full_name   TEXT NOT NULL DEFAULT '',
    phone       TEXT NOT NULL DEFAULT '',
    role        TEXT NOT NULL DEFAULT 'customer',
    language    TEXT NOT NULL DEFAULT 'en',
    created_at  TEXT NOT NULL,
    updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
    id                   TEXT PRIMARY KEY,
    customer_id          TEXT NOT NULL DEFAULT '',
    customer_name        TEXT NOT NULL DEFAULT '',
    customer_email       TEXT NOT NULL DEFAULT '',
    customer_phone       TEXT NOT NULL DEFAULT '',
    -- JSON array of line items; a null price marks the item as pending.
    items                TEXT NOT NULL DEFAULT '[]',
    -- NULL while any item is pending.
    subtotal             TEXT,
    tax                  TEXT,
    total                TEXT,
    status               TEXT NOT NULL,
    payment_status       TEXT NOT NULL,
    pickup_date          TEXT NOT NULL DEFAULT '',
    pickup_time          TEXT NOT NULL DEFAULT '',
    notes                TEXT NOT NULL DEFAULT '',
    quote_id             TEXT NOT NULL DEFAULT '',
    cancel_requested_by  TEXT NOT NULL DEFAULT '',
    cancel_reason        TEXT NOT NULL DEFAULT '',
    created_at           TEXT NOT NULL,
    updated_at           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id, created_at);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status, created_at);

CREATE TABLE IF NOT EXISTS quotes (
    id               TEXT PRIMARY KEY,
    customer_id      TEXT NOT NULL DEFAULT '',
    customer_name    TEXT NOT NULL DEFAULT '',
    customer_email   TEXT NOT NULL DEFAULT '',
    customer_phone   TEXT NOT NULL DEFAULT '',
    occasion         TEXT NOT NULL DEFAULT '',
    theme            TEXT NOT NULL DEFAULT '',
    budget           TEXT NOT NULL DEFAULT '',
    servings         TEXT NOT NULL DEFAULT '',
    event_date       TEXT NOT NULL DEFAULT '',
    details          TEXT NOT NULL DEFAULT '',
    photo_path       TEXT NOT NULL DEFAULT '',
    status           TEXT NOT NULL,
    estimated_price  TEXT,
    response         TEXT NOT NULL DEFAULT '',
    order_id         TEXT NOT NULL DEFAULT '',
    created_at       TEXT NOT NULL,
    updated_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_quotes_customer ON quotes(customer_id, created_at);
CREATE INDEX IF NOT EXISTS idx_quotes_status ON quotes(status, created_at);

-- Append-only: one row per workflow transition.
CREATE TABLE IF NOT EXISTS workflow_logs (
    id              TEXT PRIMARY KEY,
    workflow_id     TEXT NOT NULL,
    run_id          TEXT NOT NULL DEFAULT '',
    kind            TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL,
    current_step    TEXT NOT NULL DEFAULT '',
    payload         TEXT,
    error_messages  TEXT NOT NULL DEFAULT '[]',
    trace_id        TEXT NOT NULL DEFAULT '',
    span_id         TEXT NOT NULL DEFAULT '',
    -- Increases across every run of the workflow.
    seq             INTEGER NOT NULL DEFAULT 0,
    updated_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_workflow_logs_workflow ON workflow_logs(workflow_id, seq);
CREATE INDEX IF NOT EXISTS idx_workflow_logs_trace ON workflow_logs(trace_id);
`

// DB is a database handle that knows its placeholder dialect.
type DB struct {
	db     *sql.DB
	driver string
}

// Open connects to the database. For SQLite, dsn is a file path; WAL mode and
// a busy timeout are enabled so readers never block the single writer.
func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite:
		if !strings.HasPrefix(dsn, "file:") {
			dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", dsn)
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	return &DB{db: db, driver: driver}, nil
}

func (d *DB) Close() error { return d.db.Close() }

func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }

func (d *DB) Driver() string { return d.driver }

// Migrate applies the schema. Idempotent due to IF NOT EXISTS.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range statements(schema) {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlstore: apply schema: %w", err)
		}
	}
	return nil
}

// statements splits the DDL into single statements, dropping comments.
func statements(ddl string) []string {
	var b strings.Builder
	for _, line := range strings.Split(ddl, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	var out []string
	for _, s := range strings.Split(b.String(), ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// rebind turns '?' placeholders into $1..$n for PostgreSQL.
func (d *DB) rebind(q string) string {
	if d.driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d *DB) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return d.db.ExecContext(ctx, d.rebind(q), args...)
}

func (d *DB) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, d.rebind(q), args...)
}

func (d *DB) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return d.db.QueryRowContext(ctx, d.rebind(q), args...)
}

// where joins non-empty conditions.
func where(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func limit(n int) string {
	if n <= 0 || n > 500 {
		n = 500
	}
	return " LIMIT " + strconv.Itoa(n)
}

// nullableString returns nil for empty strings so the column stores NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
