package audit

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ChristChad-mv/careflow-sub001/internal/platform/apperr"
	"github.com/ChristChad-mv/careflow-sub001/internal/platform/auth"
	"github.com/ChristChad-mv/careflow-sub001/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the audit-trail read endpoint. Admin only.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/audit-logs", h.List, auth.RequireRole(auth.RoleAdmin))
}

// RegisterSessionRoutes mounts the login/logout recording endpoints. The
// identity provider owns the session itself; these exist so sign-in and
// sign-out land in the same trail as data access.
func (h *Handler) RegisterSessionRoutes(g *echo.Group) {
	g.POST("/session", h.Login, auth.RequireAuth())
	g.DELETE("/session", h.Logout, auth.RequireAuth())
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)

	filter := ListFilter{
		UserID:   c.QueryParam("user_id"),
		Action:   Action(c.QueryParam("action")),
		Resource: c.QueryParam("resource"),
	}
	if since := c.QueryParam("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return apperr.HTTP(apperr.Validation(map[string]string{"since": "must be RFC 3339"}))
		}
		filter.Since = t
	}
	if until := c.QueryParam("until"); until != "" {
		t, err := time.Parse(time.RFC3339, until)
		if err != nil {
			return apperr.HTTP(apperr.Validation(map[string]string{"until": "must be RFC 3339"}))
		}
		filter.Until = t
	}

	entries, total, err := h.svc.List(c.Request().Context(), filter, p.Limit, p.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	if entries == nil {
		entries = []*Entry{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, p.Limit, p.Offset))
}

func (h *Handler) Login(c echo.Context) error {
	rid, _ := c.Get("request_id").(string)
	h.svc.Record(c.Request().Context(), Entry{
		Action:    ActionLogin,
		Resource:  "session",
		RequestID: rid,
	})
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Logout(c echo.Context) error {
	rid, _ := c.Get("request_id").(string)
	h.svc.Record(c.Request().Context(), Entry{
		Action:    ActionLogout,
		Resource:  "session",
		RequestID: rid,
	})
	return c.NoContent(http.StatusNoContent)
}
