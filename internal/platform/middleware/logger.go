package middleware

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinrota/clinrota/internal/platform/db"
)

// Logger emits one structured line per request. Every rota route is scoped
// to a clinic tenant and almost all of them to a doctor, so both ride along
// on the log line to make a doctor's day reconstructible from logs alone.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			status := c.Response().Status
			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
				// The error has not been written yet, so read the status off
				// the HTTPError instead of the response.
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				}
			}

			evt = evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP())

			if tenant := db.TenantFromContext(req.Context()); tenant != "" {
				evt = evt.Str("tenant_id", tenant)
			}
			if doctorID := c.Param("id"); doctorID != "" {
				evt = evt.Str("doctor_id", doctorID)
			}

			evt.Msg("request")
			return err
		}
	}
}
