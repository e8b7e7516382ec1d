package override

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinrota/clinrota/internal/platform/auth"
	"github.com/clinrota/clinrota/internal/platform/calendar"
	"github.com/clinrota/clinrota/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "doctor", "assistant"))
	readGroup.GET("/doctors/:id/overrides", h.List)
	readGroup.GET("/doctors/:id/overrides/:date", h.Get)

	writeGroup := api.Group("", auth.RequireRole("admin", "assistant"))
	writeGroup.PUT("/doctors/:id/overrides/:date", h.Apply)
	writeGroup.DELETE("/doctors/:id/overrides/:date", h.Revoke)
}

func (h *Handler) Apply(c echo.Context) error {
	doctorID, date, err := target(c)
	if err != nil {
		return err
	}
	var change Change
	if err := c.Bind(&change); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o, err := h.svc.Apply(c.Request().Context(), doctorID, date, change)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) Get(c echo.Context) error {
	doctorID, date, err := target(c)
	if err != nil {
		return err
	}
	o, err := h.svc.Get(c.Request().Context(), doctorID, date)
	if err != nil {
		return mapError(err)
	}
	if o == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no override for date")
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) Revoke(c echo.Context) error {
	doctorID, date, err := target(c)
	if err != nil {
		return err
	}
	if err := h.svc.Revoke(c.Request().Context(), doctorID, date); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) List(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), doctorID, pg.Limit, pg.Offset)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func target(c echo.Context) (uuid.UUID, time.Time, error) {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	date, err := calendar.ParseDay(c.Param("date"))
	if err != nil {
		return uuid.Nil, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	return doctorID, date, nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusServiceUnavailable, "override store temporarily unavailable")
	}
}
