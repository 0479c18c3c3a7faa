package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const (
	DBConnKey contextKey = "db_conn"
	DBTxKey   contextKey = "db_tx"
)

// WithConn acquires a dedicated connection from the pool and stores it in the
// returned context. The caller must invoke the release func when done.
func WithConn(ctx context.Context, pool *pgxpool.Pool) (context.Context, func(), error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return ctx, nil, fmt.Errorf("acquire connection: %w", err)
	}
	return context.WithValue(ctx, DBConnKey, conn), conn.Release, nil
}

// ConnFromContext retrieves the request-scoped database connection, if any.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}

// WithTx begins a transaction on the connection stored in ctx and returns a
// derived context carrying the transaction. Repositories pick the transaction
// up automatically, so multi-step writes can share one commit point.
func WithTx(ctx context.Context) (context.Context, pgx.Tx, error) {
	conn := ConnFromContext(ctx)
	if conn == nil {
		return ctx, nil, fmt.Errorf("no database connection in context")
	}
	tx, err := conn.Begin(ctx)
	if err != nil {
		return ctx, nil, fmt.Errorf("begin transaction: %w", err)
	}
	return context.WithValue(ctx, DBTxKey, tx), tx, nil
}

// TxFromContext retrieves the active transaction from context, if any.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(DBTxKey).(pgx.Tx)
	return tx
}

// RunInTx acquires a connection, opens a transaction on it, and runs fn with
// the transaction in context. The transaction commits when fn returns nil and
// rolls back otherwise.
func RunInTx(ctx context.Context, pool *pgxpool.Pool, fn func(context.Context) error) error {
	connCtx, release, err := WithConn(ctx, pool)
	if err != nil {
		return err
	}
	defer release()

	txCtx, tx, err := WithTx(connCtx)
	if err != nil {
		return err
	}
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
