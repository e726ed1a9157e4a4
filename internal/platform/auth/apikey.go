package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// AgentKeyMiddleware authenticates the monitoring agent by API key. Only the
// SHA-256 hash of the key is configured on the server; the raw key is hashed
// and compared in constant time. A valid key resolves to the agent's
// service-account user so every downstream check and audit entry sees a real
// user identity, never a bypass.
func AgentKeyMiddleware(keyHashHex string, resolver ProfileResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rawKey := c.Request().Header.Get("X-API-Key")
			if rawKey == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "api key required")
			}
			if keyHashHex == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "agent access not configured")
			}

			sum := sha256.Sum256([]byte(rawKey))
			got := hex.EncodeToString(sum[:])
			if subtle.ConstantTimeCompare([]byte(got), []byte(keyHashHex)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid api key")
			}

			profile, err := resolver.ServiceAccount(c.Request().Context())
			if err != nil {
				log.Error().Err(err).Msg("agent key valid but service account missing")
				return echo.NewHTTPError(http.StatusUnauthorized, "service account not provisioned")
			}

			ident := Identity{
				UserID:     profile.UserID,
				Email:      profile.Email,
				Role:       profile.Role,
				HospitalID: profile.HospitalID,
				Agent:      true,
			}
			c.SetRequest(c.Request().WithContext(
				WithIdentity(c.Request().Context(), ident)))
			return next(c)
		}
	}
}
