package db

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/ChristChad-mv/careflow-sub001/internal/platform/auth"
)

type contextKey string

const (
	dbConnKey contextKey = "db_conn"
	dbTxKey   contextKey = "db_tx"
)

// Queryable abstracts pgxpool.Pool, pgxpool.Conn and pgx.Tx so repositories
// work identically against the privileged pool and a tenant-scoped session
// connection.
type Queryable interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// TenantScope returns middleware that acquires a connection for the request
// and pins it to the resolved hospital via a session setting that the
// row-level-security policies key on. Requests without a resolved identity
// pass through without a scoped connection; repositories then fall back to
// the pool and the service layer's explicit checks fail closed.
//
// This is the delegated-session adapter: the privileged adapter is simply a
// repository using the pool directly (background jobs, seeding, identity
// resolution before a tenant is known). Tenant checks and audit logic live
// once in the service layer and do not depend on which adapter is active.
func TenantScope(pool *pgxpool.Pool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			ident := auth.FromContext(ctx)
			if ident.HospitalID == "" {
				return next(c)
			}

			conn, err := pool.Acquire(ctx)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "store unavailable, retry later")
			}
			defer conn.Release()

			// set_config with is_local=false scopes the setting to the
			// session; the connection is released back to the pool after the
			// request, so reset it on the way out.
			if _, err := conn.Exec(ctx,
				`SELECT set_config('app.hospital_id', $1, false)`, ident.HospitalID); err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "store unavailable, retry later")
			}
			defer conn.Exec(context.WithoutCancel(ctx), `SELECT set_config('app.hospital_id', '', false)`)

			c.SetRequest(c.Request().WithContext(context.WithValue(ctx, dbConnKey, conn)))
			return next(c)
		}
	}
}

// ConnFromContext retrieves the tenant-scoped connection, if any.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(dbConnKey).(*pgxpool.Conn)
	return conn
}

// TxFromContext retrieves an in-flight transaction, if any.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(dbTxKey).(pgx.Tx)
	return tx
}

// Conn resolves the strongest available Queryable for the context:
// transaction, then tenant-scoped connection, then the given pool.
func Conn(ctx context.Context, pool *pgxpool.Pool) Queryable {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

// WithTx runs fn inside a transaction placed in the context so repositories
// participating in the same unit of work share it.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	var begin interface {
		Begin(ctx context.Context) (pgx.Tx, error)
	} = pool
	if conn := ConnFromContext(ctx); conn != nil {
		begin = conn
	}

	tx, err := begin.Begin(ctx)
	if err != nil {
		return err
	}
	txCtx := context.WithValue(ctx, dbTxKey, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
