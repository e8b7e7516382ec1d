package availability

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinrota/clinrota/internal/platform/auth"
	"github.com/clinrota/clinrota/internal/platform/calendar"
)

type Handler struct {
	resolver *Resolver
}

func NewHandler(resolver *Resolver) *Handler {
	return &Handler{resolver: resolver}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "doctor", "assistant"))
	readGroup.GET("/doctors/:id/availability", h.ResolveDay)
}

// ResolveDay returns the effective shift list for one doctor and date.
func (h *Handler) ResolveDay(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	date, err := calendar.ParseDay(c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date query parameter must be YYYY-MM-DD")
	}
	shifts, err := h.resolver.ResolveDay(c.Request().Context(), doctorID, date)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "availability temporarily unavailable")
	}
	if shifts == nil {
		shifts = []ResolvedShift{}
	}
	return c.JSON(http.StatusOK, shifts)
}
