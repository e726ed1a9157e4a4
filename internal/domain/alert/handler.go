package alert

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ChristChad-mv/careflow-sub001/internal/platform/apperr"
	"github.com/ChristChad-mv/careflow-sub001/internal/platform/triage"
	"github.com/ChristChad-mv/careflow-sub001/internal/platform/validate"
	"github.com/ChristChad-mv/careflow-sub001/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/alerts", h.List)
	g.POST("/alerts", h.Create)
	g.GET("/alerts/:id", h.Get)
	g.PATCH("/alerts/:id", h.Update)
	g.GET("/patients/:id/alerts", h.ListForPatient)
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)
	f := ListFilter{
		Status: Status(c.QueryParam("status")),
	}
	if lvl := c.QueryParam("level"); lvl != "" {
		f.Level = triage.Normalize(lvl)
	}

	alerts, total, err := h.svc.List(c.Request().Context(), f, p.Limit, p.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	if alerts == nil {
		alerts = []*Alert{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(alerts, total, p.Limit, p.Offset))
}

func (h *Handler) ListForPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		// A malformed ID can't own anything; same response as absence.
		return c.JSON(http.StatusOK, pagination.NewResponse([]*Alert{}, 0,
			pagination.FromContext(c).Limit, 0))
	}
	p := pagination.FromContext(c)
	alerts, total, err := h.svc.ListForPatient(c.Request().Context(), patientID, p.Limit, p.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	if alerts == nil {
		alerts = []*Alert{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(alerts, total, p.Limit, p.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.HTTP(apperr.ErrNotFound)
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := validate.Bind(c, &req); err != nil {
		return apperr.HTTP(err)
	}
	a, err := h.svc.Create(c.Request().Context(), req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.HTTP(apperr.ErrNotFound)
	}
	var req UpdateRequest
	if err := validate.Bind(c, &req); err != nil {
		return apperr.HTTP(err)
	}
	a, err := h.svc.Update(c.Request().Context(), id, req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}
