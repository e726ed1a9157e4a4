package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/labstack/echo/v4"
)

const csrfCookieName = "careflow_csrf"

// CSRFTokenHandler issues a double-submit token: the value is returned in the
// body for the client to echo in a header, and pinned in an HttpOnly cookie
// the browser attaches automatically. A cross-site attacker can force the
// cookie to be sent but cannot read it to forge the matching header.
func CSRFTokenHandler(secureCookies bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "token generation failed")
		}
		token := hex.EncodeToString(buf)

		c.SetCookie(&http.Cookie{
			Name:     csrfCookieName,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			Secure:   secureCookies,
			SameSite: http.SameSiteStrictMode,
		})
		return c.JSON(http.StatusOK, map[string]string{"csrf_token": token})
	}
}

// CSRFGuard rejects state-changing requests whose X-CSRF-Token header does
// not match the pinned cookie. Safe methods pass through untouched.
func CSRFGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			cookie, err := c.Cookie(csrfCookieName)
			if err != nil || cookie.Value == "" {
				return echo.NewHTTPError(http.StatusForbidden, "missing csrf token")
			}
			header := c.Request().Header.Get("X-CSRF-Token")
			if header == "" {
				return echo.NewHTTPError(http.StatusForbidden, "missing csrf token")
			}
			if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(header)) != 1 {
				return echo.NewHTTPError(http.StatusForbidden, "csrf token mismatch")
			}
			return next(c)
		}
	}
}
