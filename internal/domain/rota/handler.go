package rota

import (
	"errors"
	"net/http"

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
	readGroup.GET("/doctors/:id/rota", h.GetWeek)
	readGroup.GET("/doctors/:id/rota/preview", h.PreviewDay)
	readGroup.GET("/doctors/:id/special-shifts", h.ListSpecialShifts)

	writeGroup := api.Group("", auth.RequireRole("admin", "doctor"))
	writeGroup.PUT("/doctors/:id/rota", h.PutRota)
	writeGroup.POST("/doctors/:id/special-shifts", h.AddSpecialShift)
	writeGroup.DELETE("/doctors/:id/special-shifts/:sid", h.CancelSpecialShift)
}

func (h *Handler) PutRota(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	var days []DayTemplate
	if err := c.Bind(&days); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	for i := range days {
		days[i].DoctorID = doctorID
		if err := h.svc.PutDayTemplate(c.Request().Context(), &days[i]); err != nil {
			return mapError(err)
		}
	}
	return c.JSON(http.StatusOK, days)
}

func (h *Handler) GetWeek(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	week, err := h.svc.GetWeek(c.Request().Context(), doctorID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, week)
}

func (h *Handler) PreviewDay(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	date, err := calendar.ParseDay(c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date query parameter must be YYYY-MM-DD")
	}
	shifts, err := h.svc.PreviewDay(c.Request().Context(), doctorID, date)
	if err != nil {
		return mapError(err)
	}
	if shifts == nil {
		shifts = []DayShift{}
	}
	return c.JSON(http.StatusOK, shifts)
}

func (h *Handler) AddSpecialShift(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	var sp SpecialShift
	if err := c.Bind(&sp); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sp.DoctorID = doctorID
	if err := h.svc.AddSpecialShift(c.Request().Context(), &sp); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, sp)
}

func (h *Handler) CancelSpecialShift(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	sid, err := uuid.Parse(c.Param("sid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid special shift id")
	}
	if err := h.svc.CancelSpecialShift(c.Request().Context(), doctorID, sid); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListSpecialShifts(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListSpecialShifts(c.Request().Context(), doctorID, pg.Limit, pg.Offset)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusServiceUnavailable, "rota store temporarily unavailable")
	}
}
