package leave

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists leave records, the audit trail, and the cached yearly
// counter. The multi-write operations (Grant, ApplyRevoke) are atomic: record
// mutation, audit append and counter adjustment commit together or not at
// all.
type Repository interface {
	// Grant inserts the record, appends the audit entry and debits the
	// doctor's counter for the record's year, atomically.
	Grant(ctx context.Context, rec *Record, audit *AuditEntry) error

	// ApplyRevoke deletes the record, inserts any remainder fragments,
	// credits creditDays back to the year's counter and appends the audit
	// entry, atomically.
	ApplyRevoke(ctx context.Context, doctorID, leaveID uuid.UUID, remainder []*Record, year, creditDays int, audit *AuditEntry) error

	GetByID(ctx context.Context, doctorID, leaveID uuid.UUID) (*Record, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Record, int, error)
	// ListOverlapping returns live records whose span intersects [start, end].
	ListOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]*Record, error)
	// ListOn returns live records covering the single date.
	ListOn(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Record, error)

	// TakenCached reads the cached counter for the year (0 when absent).
	TakenCached(ctx context.Context, doctorID uuid.UUID, year int) (int, error)
	// RecomputeTaken sums DaysCount over the year's live records. The counter
	// is a cache; this is the source of truth.
	RecomputeTaken(ctx context.Context, doctorID uuid.UUID, year int) (int, error)

	ListAudit(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*AuditEntry, int, error)
}
