package middleware

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// defaultBodyLimit applies when the configured limit cannot be parsed. A
// full weekly rota template is a few kilobytes, so 1MB is already generous.
const defaultBodyLimit = 1 << 20

var sizeSuffixes = []struct {
	suffix     string
	multiplier int64
}{
	{"GB", 1 << 30},
	{"G", 1 << 30},
	{"MB", 1 << 20},
	{"M", 1 << 20},
	{"KB", 1 << 10},
	{"K", 1 << 10},
}

// BodyLimit rejects request bodies above the given size with a 413. The
// limit is a human-readable string such as "1M", "512K" or "2048" (bytes).
// Requests that declare an oversize Content-Length are rejected before the
// handler runs; bodies without a declared length are cut off mid-read.
func BodyLimit(limit string) echo.MiddlewareFunc {
	limitBytes := parseLimit(limit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}

			if req.ContentLength > limitBytes {
				return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{
					"message": fmt.Sprintf("request body exceeds maximum allowed size of %d bytes", limitBytes),
				})
			}

			req.Body = &cappedBody{ReadCloser: req.Body, remaining: limitBytes}
			return next(c)
		}
	}
}

// cappedBody fails the read once more than the allowed bytes have streamed
// in, which covers chunked uploads and lying Content-Length headers.
type cappedBody struct {
	io.ReadCloser
	remaining int64
	exceeded  bool
}

func (b *cappedBody) Read(p []byte) (int, error) {
	if b.exceeded {
		return 0, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
	}

	// Read one byte past the cap so oversize is detected on this call.
	if max := b.remaining + 1; int64(len(p)) > max {
		p = p[:max]
	}

	n, err := b.ReadCloser.Read(p)
	b.remaining -= int64(n)
	if b.remaining < 0 {
		b.exceeded = true
		return 0, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
	}
	return n, err
}

// parseLimit converts "1M"-style sizes to bytes, falling back to 1MB for
// anything it cannot parse.
func parseLimit(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return defaultBodyLimit
	}

	var multiplier int64 = 1
	for _, suf := range sizeSuffixes {
		if strings.HasSuffix(s, suf.suffix) {
			multiplier = suf.multiplier
			s = strings.TrimSuffix(s, suf.suffix)
			break
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return defaultBodyLimit
	}
	return n * multiplier
}
