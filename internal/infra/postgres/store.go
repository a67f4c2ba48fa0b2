// Package postgres is the client for the portal's Supabase Postgres database.
// Every call is a single awaited round-trip; there is no fan-out and no
// transaction spanning more than one statement.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/digcity/portal-tools/internal/domain"
	"github.com/digcity/portal-tools/internal/logger"
)

const (
	transactionsTable = "finance_transactions"
	eventsTable       = "events"
	attendanceTable   = "attendance"
	duesTable         = "member_dues"
	postsTable        = "blog_posts"

	// DefaultPageSize is the number of rows fetched per paged read.
	DefaultPageSize = 1000
)

// ErrEventNotFound is returned when an attendance row references an event
// that does not exist.
var ErrEventNotFound = errors.New("event not found")

// DBTX is the subset of pgxpool.Pool the store uses.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads and writes portal tables.
type Store struct {
	db       DBTX
	pool     *pgxpool.Pool
	pageSize int
	newID    func() string
}

// NewStore connects to databaseURL and verifies the connection.
func NewStore(ctx context.Context, databaseURL string, pageSize int) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("NewStore: creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("NewStore: ping: %w", err)
	}

	s := NewStoreWithDB(pool, pageSize)
	s.pool = pool
	return s, nil
}

// NewStoreWithDB wraps an existing connection or pool.
func NewStoreWithDB(db DBTX, pageSize int) *Store {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Store{db: db, pageSize: pageSize, newID: newUUID}
}

// Close releases the pool when the store owns one.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// ListExisting loads every stored record of kind.
func (s *Store) ListExisting(ctx context.Context, kind domain.Kind) ([]domain.Record, error) {
	switch kind {
	case domain.KindTransaction:
		return asRecords(s.ListTransactions(ctx))
	case domain.KindEvent:
		return asRecords(s.ListEvents(ctx))
	case domain.KindAttendance:
		return asRecords(s.ListAttendance(ctx))
	case domain.KindDue:
		return asRecords(s.ListDues(ctx))
	}
	return nil, fmt.Errorf("ListExisting: unsupported kind %q", kind)
}

// Apply writes rec with the same existence guard the emitted SQL uses.
// It reports whether a row was inserted.
func (s *Store) Apply(ctx context.Context, rec domain.Record) (bool, error) {
	switch r := rec.(type) {
	case *domain.Transaction:
		return s.InsertTransaction(ctx, r)
	case *domain.Event:
		return s.InsertEvent(ctx, r)
	case *domain.Attendance:
		return s.InsertAttendance(ctx, r)
	case *domain.Due:
		return s.UpsertDue(ctx, r)
	}
	return false, fmt.Errorf("Apply: unsupported kind %q", rec.Kind())
}

// CallRPC invokes a database function, SELECT fn($1, ...).
func (s *Store) CallRPC(ctx context.Context, fn string, args ...any) error {
	if strings.TrimSpace(fn) == "" {
		return fmt.Errorf("CallRPC: empty function name")
	}

	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	ident := pgx.Identifier(strings.Split(fn, ".")).Sanitize()
	query := fmt.Sprintf("SELECT %s(%s)", ident, strings.Join(placeholders, ", "))

	log := logger.FromContext(ctx)
	log.Info().Str("function", fn).Int("args", len(args)).Msg("Calling RPC")

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("CallRPC: %s: %w", fn, err)
	}
	return nil
}

// ApplyScript executes the statements of one emitted batch file. Without
// arguments pgx uses the simple protocol, so a script may hold several
// statements.
func (s *Store) ApplyScript(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := s.db.Exec(ctx, sql); err != nil {
		return fmt.Errorf("ApplyScript: %w", err)
	}
	return nil
}

func asRecords[T domain.Record](items []T, err error) ([]domain.Record, error) {
	if err != nil {
		return nil, err
	}
	out := make([]domain.Record, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out, nil
}
