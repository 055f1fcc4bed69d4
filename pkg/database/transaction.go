package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"bikeshop-backend/pkg/apperror"
)

// TxFunc is executed inside a transaction.
type TxFunc func(pgx.Tx) error

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx, letting repositories
// run the same statement in or out of a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Transactor runs a unit of work atomically. Implementations exist for
// PostgreSQL (PoolTransactor) and for the in-memory store.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn TxFunc) error
}

// WithTransactionOptions wraps fn in a transaction with explicit options.
// Auto rollback on error or panic, auto commit on success.
func WithTransactionOptions(ctx context.Context, pool *pgxpool.Pool, opts pgx.TxOptions, fn TxFunc) (err error) {
	tx, err := pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// -------------------------------------------------------------------
// POOL TRANSACTOR
// -------------------------------------------------------------------

// PoolTransactor is the PostgreSQL Transactor. Serialization failures
// and deadlocks surface as apperror.KindConcurrencyConflict so callers
// can retry the whole unit of work.
type PoolTransactor struct {
	pool *pgxpool.Pool
	opts pgx.TxOptions
}

func NewPoolTransactor(pool *pgxpool.Pool, opts pgx.TxOptions) *PoolTransactor {
	return &PoolTransactor{pool: pool, opts: opts}
}

// NewSerializableTransactor returns a transactor running at SERIALIZABLE.
func NewSerializableTransactor(pool *pgxpool.Pool) *PoolTransactor {
	return NewPoolTransactor(pool, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
}

func (t *PoolTransactor) WithinTransaction(ctx context.Context, fn TxFunc) error {
	err := WithTransactionOptions(ctx, t.pool, t.opts, fn)
	if err != nil && IsSerializationFailure(err) {
		return apperror.ConcurrencyConflict(err)
	}
	return err
}
