// Package postgres implements storage.Store on a pgx connection pool.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/adanyl0v/go-boards/internal/storage"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// DB opens a database/sql handle over the pool for goose.
// The caller must close it.
func (s *Store) DB() *sql.DB {
	return stdlib.OpenDBFromPool(s.pool)
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	pgTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Releases the connection back to the pool on every exit path;
	// no-op after a successful commit.
	defer pgTx.Rollback(context.WithoutCancel(ctx))

	if err = fn(ctx, &tx{tx: pgTx}); err != nil {
		return err
	}

	if err = pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", wrapErr(err))
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.ForeignKeyViolation,
			pgerrcode.UniqueViolation,
			pgerrcode.CheckViolation,
			pgerrcode.NotNullViolation:
			return fmt.Errorf("%w: %w", storage.ErrConstraint, err)
		}
	}
	return err
}
