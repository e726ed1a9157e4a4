package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestMeta carries the per-request correlation data that outlives the
// handler: services stamp it into audit entries.
type RequestMeta struct {
	RequestID string
	ClientIP  string
}

type metaKey struct{}

func WithMeta(ctx context.Context, m RequestMeta) context.Context {
	return context.WithValue(ctx, metaKey{}, m)
}

// MetaFromContext returns the request metadata, or the zero value outside a
// request.
func MetaFromContext(ctx context.Context) RequestMeta {
	m, _ := ctx.Value(metaKey{}).(RequestMeta)
	return m
}

// RequestID attaches a correlation ID to every request, honoring one supplied
// by an upstream proxy, and plants it with the client address into the
// request context for downstream services.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get("X-Request-ID")
			if rid == "" {
				rid = uuid.New().String()
			}
			c.Set("request_id", rid)
			c.Response().Header().Set("X-Request-ID", rid)

			ctx := WithMeta(c.Request().Context(), RequestMeta{
				RequestID: rid,
				ClientIP:  c.RealIP(),
			})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
