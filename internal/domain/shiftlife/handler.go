package shiftlife

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinrota/clinrota/internal/platform/auth"
	"github.com/clinrota/clinrota/internal/platform/calendar"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "doctor", "assistant"))
	readGroup.GET("/doctors/:id/shifts/:date", h.ListDay)
	readGroup.GET("/doctors/:id/active-shift", h.ActiveShift)

	// The service re-checks capabilities; the route guard rejects the obvious
	// cases before any locking happens.
	writeGroup := api.Group("", auth.RequireRole("admin", "doctor", "assistant"))
	writeGroup.POST("/doctors/:id/shifts/:date/:name/start", h.Start,
		auth.RequireCapability(func(caps auth.Capabilities) bool { return caps.CanStartCompleteShifts }, "can_start_complete_shifts"))
	writeGroup.POST("/doctors/:id/shifts/:date/:name/complete", h.Complete,
		auth.RequireCapability(func(caps auth.Capabilities) bool { return caps.CanStartCompleteShifts }, "can_start_complete_shifts"))
	writeGroup.POST("/doctors/:id/shifts/:date/:name/cancel", h.Cancel,
		auth.RequireCapability(func(caps auth.Capabilities) bool { return caps.CanCancelShifts }, "can_cancel_shifts"))
}

func (h *Handler) Start(c echo.Context) error {
	doctorID, date, name, err := target(c)
	if err != nil {
		return err
	}
	inst, err := h.svc.Start(c.Request().Context(), actorFrom(c), doctorID, date, name)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, inst)
}

func (h *Handler) Complete(c echo.Context) error {
	doctorID, date, name, err := target(c)
	if err != nil {
		return err
	}
	inst, err := h.svc.Complete(c.Request().Context(), actorFrom(c), doctorID, date, name)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, inst)
}

func (h *Handler) Cancel(c echo.Context) error {
	doctorID, date, name, err := target(c)
	if err != nil {
		return err
	}
	inst, err := h.svc.Cancel(c.Request().Context(), actorFrom(c), doctorID, date, name)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, inst)
}

func (h *Handler) ListDay(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	date, err := calendar.ParseDay(c.Param("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	items, err := h.svc.ListDay(c.Request().Context(), doctorID, date)
	if err != nil {
		return mapError(err)
	}
	if items == nil {
		items = []*Instance{}
	}
	return c.JSON(http.StatusOK, items)
}

type activeShiftResponse struct {
	ShiftName string `json:"shift_name,omitempty"`
	Active    bool   `json:"active"`
}

// ActiveShift is the queue gate: clients hide the patient queue entirely
// unless this reports an active shift for the date.
func (h *Handler) ActiveShift(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	date := time.Now().UTC()
	if d := c.QueryParam("date"); d != "" {
		date, err = calendar.ParseDay(d)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
		}
	}
	name, active, err := h.svc.ActiveShiftName(c.Request().Context(), doctorID, date)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, activeShiftResponse{ShiftName: name, Active: active})
}

func target(c echo.Context) (uuid.UUID, time.Time, string, error) {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, time.Time{}, "", echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	date, err := calendar.ParseDay(c.Param("date"))
	if err != nil {
		return uuid.Nil, time.Time{}, "", echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	name := c.Param("name")
	if name == "" {
		return uuid.Nil, time.Time{}, "", echo.NewHTTPError(http.StatusBadRequest, "shift name is required")
	}
	return doctorID, date, name, nil
}

func actorFrom(c echo.Context) Actor {
	ctx := c.Request().Context()
	caps := auth.CapabilitiesFromContext(ctx)
	return Actor{
		UserID:                 auth.UserIDFromContext(ctx),
		CanStartCompleteShifts: caps.CanStartCompleteShifts,
		CanCancelShifts:        caps.CanCancelShifts,
	}
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrShiftNotOpen), errors.Is(err, ErrShiftAlreadyActive), errors.Is(err, ErrIllegalTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusServiceUnavailable, "shift store temporarily unavailable")
	}
}
