package leave

import (
	"errors"
	"net/http"
	"strconv"
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
	readGroup.GET("/doctors/:id/leaves", h.List)
	readGroup.GET("/doctors/:id/leaves/balance", h.Balance)
	readGroup.GET("/doctors/:id/leaves/audit", h.Audit)

	writeGroup := api.Group("", auth.RequireRole("admin", "doctor"))
	writeGroup.POST("/doctors/:id/leaves", h.Grant)
	writeGroup.POST("/doctors/:id/leaves/:leaveId/revoke", h.Revoke)
}

type grantRequest struct {
	StartDate  string   `json:"start_date"`
	EndDate    string   `json:"end_date"`
	ShiftNames []string `json:"shift_names,omitempty"`
	Reason     string   `json:"reason"`
}

func (h *Handler) Grant(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	var req grantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	start, err := calendar.ParseDay(req.StartDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "start_date must be YYYY-MM-DD")
	}
	end, err := calendar.ParseDay(req.EndDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "end_date must be YYYY-MM-DD")
	}

	byUser := auth.UserIDFromContext(c.Request().Context())
	rec, err := h.svc.Grant(c.Request().Context(), byUser, doctorID, start, end, req.ShiftNames, req.Reason)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

type revokeRequest struct {
	Dates []string `json:"dates"`
}

func (h *Handler) Revoke(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	leaveID, err := uuid.Parse(c.Param("leaveId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid leave id")
	}
	var req revokeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.Dates) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "dates is required")
	}
	dates := make([]time.Time, 0, len(req.Dates))
	for _, d := range req.Dates {
		day, err := calendar.ParseDay(d)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "dates must be YYYY-MM-DD")
		}
		dates = append(dates, day)
	}

	byUser := auth.UserIDFromContext(c.Request().Context())
	if err := h.svc.Revoke(c.Request().Context(), byUser, doctorID, leaveID, dates); err != nil {
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

func (h *Handler) Balance(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	year := time.Now().UTC().Year()
	if y := c.QueryParam("year"); y != "" {
		year, err = strconv.Atoi(y)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid year")
		}
	}
	bal, err := h.svc.BalanceFor(c.Request().Context(), doctorID, year)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, bal)
}

func (h *Handler) Audit(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAudit(c.Request().Context(), doctorID, pg.Limit, pg.Offset)
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
	case errors.Is(err, ErrLimitExceeded), errors.Is(err, ErrOverlap), errors.Is(err, ErrNoOpenShift):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusServiceUnavailable, "leave ledger temporarily unavailable")
	}
}
