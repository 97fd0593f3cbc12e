// Package sqltx provides a TransactionBoundary over database/sql.
//
// The open *sql.Tx travels in the context handed to the work function; steps reach
// it through FromContext or Querier.
package sqltx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/warp/pkg/ports"
	_ "modernc.org/sqlite"
)

type txKey struct{}

// Boundary runs work inside a database transaction.
// It commits when the work returns nil and rolls back otherwise.
type Boundary struct {
	db   *sql.DB
	opts *sql.TxOptions
}

var _ ports.TransactionBoundary = (*Boundary)(nil)

// Option configures a Boundary.
type Option func(*Boundary)

// WithTxOptions sets the isolation level and read-only flag of each transaction.
func WithTxOptions(opts *sql.TxOptions) Option {
	return func(b *Boundary) {
		b.opts = opts
	}
}

// New creates a boundary over db.
func New(db *sql.DB, opts ...Option) *Boundary {
	b := &Boundary{db: db}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Do runs fn inside a transaction. When ctx already carries a transaction, fn joins it
// and the outer boundary decides the outcome.
func (b *Boundary) Do(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := FromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := b.db.BeginTx(ctx, b.opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback transaction: %w", rbErr))
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

// Provider resolves the same boundary for every execution.
func Provider(db *sql.DB, opts ...Option) ports.TransactionProvider {
	return func() (ports.TransactionBoundary, error) {
		if db == nil {
			return nil, errors.New("sql transaction provider: database is not configured")
		}
		return New(db, opts...), nil
	}
}

// FromContext returns the transaction opened by an enclosing Boundary.
func FromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}

// Querier is the subset shared by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Conn returns the transaction in ctx, or db when there is none.
func Conn(ctx context.Context, db *sql.DB) Querier {
	if tx, ok := FromContext(ctx); ok {
		return tx
	}
	return db
}

// Open opens and pings a SQLite database.
// In-memory databases are limited to one connection so that every query sees the same data.
func Open(dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return db, nil
}
