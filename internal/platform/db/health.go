package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats is the connection pool snapshot exposed on the health endpoint.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
}

// HealthReport is the body of /health/db. SchemaReady reports whether the
// default tenant's schema exists, so a deployment that connected to the
// wrong database (or skipped provisioning) fails its readiness probe instead
// of serving 404s for every rota route.
type HealthReport struct {
	Status      string     `json:"status"`
	Tenant      string     `json:"tenant,omitempty"`
	SchemaReady bool       `json:"schema_ready"`
	Error       string     `json:"error,omitempty"`
	Pool        *PoolStats `json:"pool"`
}

// GetPoolStats snapshots the pool counters.
func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
	}
}

// HealthHandler reports database reachability and whether the default
// tenant's schema has been provisioned.
func HealthHandler(pool *pgxpool.Pool, defaultTenant string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		report := HealthReport{
			Status: "healthy",
			Tenant: defaultTenant,
			Pool:   GetPoolStats(pool),
		}

		if err := pool.Ping(ctx); err != nil {
			report.Status = "unhealthy"
			report.Error = err.Error()
			return c.JSON(http.StatusServiceUnavailable, report)
		}

		ready, err := schemaExists(ctx, pool, schemaForTenant(defaultTenant))
		if err != nil {
			report.Status = "unhealthy"
			report.Error = err.Error()
			return c.JSON(http.StatusServiceUnavailable, report)
		}
		report.SchemaReady = ready
		if !ready {
			report.Status = "degraded"
			return c.JSON(http.StatusServiceUnavailable, report)
		}

		return c.JSON(http.StatusOK, report)
	}
}

func schemaExists(ctx context.Context, pool *pgxpool.Pool, schema string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)`,
		schema,
	).Scan(&exists)
	return exists, err
}
