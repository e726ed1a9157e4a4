package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports service liveness plus the state of each backing
// dependency. Degraded dependencies flip the overall status but the endpoint
// itself still answers 200 so load balancers can read the body.
func HealthHandler(pool *pgxpool.Pool, rdb *redis.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		deps := map[string]string{}
		status := "ok"

		if err := pool.Ping(ctx); err != nil {
			deps["database"] = "unreachable"
			status = "degraded"
		} else {
			deps["database"] = "ok"
		}

		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				deps["redis"] = "unreachable"
				status = "degraded"
			} else {
				deps["redis"] = "ok"
			}
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":       status,
			"dependencies": deps,
		})
	}
}
