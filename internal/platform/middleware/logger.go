package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ChristChad-mv/careflow-sub001/internal/platform/auth"
)

// Logger emits one structured line per request. When the identity resolved
// downstream, the line carries the user and hospital so tenant activity can
// be traced without joining against the audit trail.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}

			evt = evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP())

			if ident := auth.FromContext(c.Request().Context()); !ident.IsZero() {
				evt = evt.Str("user_id", ident.UserID).Str("hospital_id", ident.HospitalID)
			}

			evt.Msg("request")
			return err
		}
	}
}
