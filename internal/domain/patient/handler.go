package patient

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ChristChad-mv/careflow-sub001/internal/platform/apperr"
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
	g.GET("/patients", h.List)
	g.POST("/patients", h.Create)
	g.GET("/patients/:id", h.Get)
	g.PATCH("/patients/:id", h.Update)
	g.GET("/patients/:id/interactions", h.ListInteractions)
	g.POST("/patients/:id/interactions", h.AddInteraction)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		// A malformed ID can't match anything; same response as absence.
		return uuid.Nil, apperr.ErrNotFound
	}
	return id, nil
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)
	filter := ListFilter{
		Diagnosis: c.QueryParam("diagnosis"),
		Status:    Status(c.QueryParam("status")),
	}

	patients, total, err := h.svc.List(c.Request().Context(), filter, p.Limit, p.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	if patients == nil {
		patients = []*Patient{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, p.Limit, p.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return apperr.HTTP(err)
	}
	patient, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, patient)
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := validate.Bind(c, &req); err != nil {
		return apperr.HTTP(err)
	}
	patient, err := h.svc.Create(c.Request().Context(), req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, patient)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return apperr.HTTP(err)
	}
	var req UpdateRequest
	if err := validate.Bind(c, &req); err != nil {
		return apperr.HTTP(err)
	}
	patient, err := h.svc.Update(c.Request().Context(), id, req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, patient)
}

func (h *Handler) ListInteractions(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return apperr.HTTP(err)
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListInteractions(c.Request().Context(), id, p.Limit, p.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	if items == nil {
		items = []*Interaction{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) AddInteraction(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return apperr.HTTP(err)
	}
	var req AddInteractionRequest
	if err := validate.Bind(c, &req); err != nil {
		return apperr.HTTP(err)
	}
	item, err := h.svc.AddInteraction(c.Request().Context(), id, req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, item)
}
