package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout puts a deadline on each request. Mutations hold the
// doctor's lock, so a hung handler must not hold it indefinitely; when the
// deadline passes the caller gets a 504 and the handler's context is
// cancelled so it can unwind.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			// The handler runs on its own goroutine so the deadline can be
			// enforced even if it never checks the context.
			done := make(chan error, 1)
			go func() {
				// Recovery runs on the request goroutine and cannot see a
				// panic raised here, so it is caught locally.
				defer func() {
					if r := recover(); r != nil {
						done <- echo.NewHTTPError(http.StatusInternalServerError,
							fmt.Sprintf("handler panic: %v", r))
					}
				}()
				done <- next(c)
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				if ctx.Err() != context.DeadlineExceeded {
					// Client went away; nothing useful left to write.
					return ctx.Err()
				}
				if c.Response().Committed {
					return nil
				}
				return c.JSON(http.StatusGatewayTimeout, map[string]string{
					"message": "request processing exceeded the allowed time limit",
				})
			}
		}
	}
}
