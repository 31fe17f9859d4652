/*
Package sqlstore provides the database/sql implementation of trade.TxStore.

PURPOSE:
  One gateway for both supported databases. Queries are written once with
  "?" placeholders and rebound for the target dialect.

DIALECTS:
  sqlite3:  default. New("./data/cocoa.db") or New(":memory:") for tests.
  postgres: selected when the DSN starts with postgres:// or postgresql://
            (driver: github.com/jackc/pgx/v5/stdlib).

KEY TABLES:
  suppliers:       Counterparties, UNIQUE(tax_document)
  balance_entries: Supplier ledger (append-only)
  tickets:         Weighing records
  purchases:       UNIQUE(ticket_id) - a ticket converts at most once
  payments:        UNIQUE(purchase_id, sequence)
  reconciliation_runs

STORAGE FORMATS:
  Decimals are TEXT in canonical form. Timestamps are TEXT in a fixed-width
  UTC layout, so lexical order equals chronological order in both dialects.
  Contact and address are JSON text.

CONCURRENCY:
  sync.RWMutex serialises writers inside the process. WithTx holds the write
  lock for the whole transaction, and on PostgreSQL rows read inside WithTx
  are also locked with SELECT ... FOR UPDATE for other processes.

ERRORS:
  Unique and foreign-key violations are returned as *trade.ConflictError
  (sqlite3.Error extended codes, pgconn.PgError SQLSTATE 23505/23503).

USAGE:
  store, err := sqlstore.New(cfg.DatabaseURL)
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := trade.NewEngine(store)

MIGRATION:
  Schema is created idempotently on New().

SEE ALSO:
  - trade/store.go: Interface definitions
*/
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cocoatrade/purchase-engine/trade"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// Store implements trade.TxStore.
type Store struct {
	*conn
	db *sql.DB
	mu sync.RWMutex
}

var _ trade.TxStore = (*Store)(nil)

// New opens the database named by dsn and migrates the schema.
func New(dsn string) (*Store, error) {
	d := dialectFor(dsn)

	var (
		db  *sql.DB
		err error
	)
	switch d {
	case postgres:
		db, err = sql.Open("pgx", dsn)
	default:
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
		db, err = sql.Open("sqlite3", sqliteDSN(dsn))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if d == sqlite {
		// Every connection to ":memory:" is a separate database, and SQLite
		// has a single writer anyway.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	s.conn = &conn{q: db, dialect: d, mu: &s.mu}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// ensureDir creates the parent directory of a SQLite database file.
func ensureDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "sqlite://")
	if i := strings.Index(path, "?"); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}

func sqliteDSN(path string) string {
	path = strings.TrimPrefix(path, "sqlite://")
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Dialect returns "sqlite" or "postgres".
func (s *Store) Dialect() string {
	return s.dialect.String()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a database transaction. If fn returns an error
// the transaction is rolled back. fn must use the Store it is given; the
// outer Store blocks until the transaction ends.
func (s *Store) WithTx(ctx context.Context, fn func(trade.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	tx := &conn{q: sqlTx, dialect: s.dialect, inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// =============================================================================
// CONNECTION - shared by Store and the per-transaction view
// =============================================================================

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn runs queries against either *sql.DB or *sql.Tx. mu is nil inside a
// transaction because WithTx already holds the write lock.
type conn struct {
	q       querier
	dialect dialect
	mu      *sync.RWMutex
	inTx    bool
}

var _ trade.Store = (*conn)(nil)

func (c *conn) rlock() func() {
	if c.mu == nil {
		return func() {}
	}
	c.mu.RLock()
	return c.mu.RUnlock
}

func (c *conn) lock() func() {
	if c.mu == nil {
		return func() {}
	}
	c.mu.Lock()
	return c.mu.Unlock
}

func (c *conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.q.ExecContext(ctx, c.dialect.rebind(query), args...)
}

func (c *conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, c.dialect.rebind(query), args...)
}

func (c *conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, c.dialect.rebind(query), args...)
}

// forUpdate returns the row-locking suffix for reads made inside a transaction.
func (c *conn) forUpdate(alias string) string {
	if !c.inTx || c.dialect != postgres {
		return ""
	}
	return " FOR UPDATE OF " + alias
}

func (c *conn) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := c.queryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// execOne runs a statement that must touch exactly one row.
func (c *conn) execOne(ctx context.Context, entity, id, query string, args ...any) error {
	res, err := c.exec(ctx, query, args...)
	if err != nil {
		return classify(err, entity, id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &trade.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}

// =============================================================================
// DIALECT
// =============================================================================

type dialect int

const (
	sqlite dialect = iota
	postgres
)

func dialectFor(dsn string) dialect {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return postgres
	}
	return sqlite
}

func (d dialect) String() string {
	if d == postgres {
		return "postgres"
	}
	return "sqlite"
}

// rebind rewrites "?" placeholders to "$1, $2, ..." for PostgreSQL.
func (d dialect) rebind(query string) string {
	if d != postgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
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

// =============================================================================
// QUERY BUILDING
// =============================================================================

type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// paginate appends LIMIT/OFFSET. A zero limit returns every row.
func paginate(query string, args []any, p trade.PageRequest) (string, []any) {
	if p.Limit <= 0 {
		return query, args
	}
	return query + " LIMIT ? OFFSET ?", append(args, p.Limit, p.Offset())
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// =============================================================================
// VALUE ENCODING
// =============================================================================

const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	return d, nil
}

func toJSON(v any) (sql.NullString, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	if string(b) == "null" {
		return sql.NullString{}, nil
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// =============================================================================
// ERROR CLASSIFICATION
// =============================================================================

// classify maps constraint violations to trade errors and wraps the rest.
func classify(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	switch {
	case isUniqueViolation(err):
		return &trade.ConflictError{Entity: entity, ID: id, Reason: entity + " already exists"}
	case isForeignKeyViolation(err):
		return &trade.ConflictError{Entity: entity, ID: id, Reason: entity + " is referenced by other records"}
	}
	return fmt.Errorf("%s %s: %w", entity, id, err)
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe.Code == "23503"
	}
	return false
}

// =============================================================================
// SCHEMA
// =============================================================================

var schema = []string{
	`CREATE TABLE IF NOT EXISTS suppliers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		tax_document TEXT NOT NULL UNIQUE,
		contact_json TEXT,
		address_json TEXT,
		balance TEXT NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_suppliers_name ON suppliers(name)`,

	`CREATE TABLE IF NOT EXISTS balance_entries (
		id TEXT PRIMARY KEY,
		supplier_id TEXT NOT NULL REFERENCES suppliers(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		delta TEXT NOT NULL,
		reference_id TEXT,
		reason TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_balance_entries_supplier
		ON balance_entries(supplier_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS tickets (
		id TEXT PRIMARY KEY,
		supplier_id TEXT NOT NULL REFERENCES suppliers(id),
		gross_weight TEXT NOT NULL,
		net_weight TEXT NOT NULL,
		notes TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_supplier ON tickets(supplier_id)`,

	`CREATE TABLE IF NOT EXISTS purchases (
		id TEXT PRIMARY KEY,
		ticket_id TEXT NOT NULL UNIQUE REFERENCES tickets(id),
		supplier_id TEXT NOT NULL REFERENCES suppliers(id),
		price_per_arroba TEXT NOT NULL,
		price_per_kg TEXT NOT NULL,
		total_value TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_purchases_supplier ON purchases(supplier_id)`,
	`CREATE INDEX IF NOT EXISTS idx_purchases_status ON purchases(payment_status)`,
	`CREATE INDEX IF NOT EXISTS idx_purchases_created ON purchases(created_at)`,

	`CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		purchase_id TEXT NOT NULL REFERENCES purchases(id),
		amount TEXT NOT NULL,
		method TEXT,
		notes TEXT,
		sequence INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE (purchase_id, sequence)
	)`,

	`CREATE TABLE IF NOT EXISTS reconciliation_runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		purchases_checked INTEGER NOT NULL DEFAULT 0,
		statuses_repaired INTEGER NOT NULL DEFAULT 0,
		suppliers_checked INTEGER NOT NULL DEFAULT 0,
		balances_repaired INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reconciliation_runs_started
		ON reconciliation_runs(started_at)`,
}

// Reset clears all data (for demo scenarios). Children go first so foreign
// keys hold throughout.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"payments", "purchases", "tickets", "balance_entries", "suppliers", "reconciliation_runs"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// migrate creates the database schema.
func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
