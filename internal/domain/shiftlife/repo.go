package shiftlife

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists shift instances. One row per (doctor, date, shift name);
// Put upserts on that key.
type Repository interface {
	Put(ctx context.Context, inst *Instance) error
	Get(ctx context.Context, doctorID uuid.UUID, date time.Time, shiftName string) (*Instance, error)
	// ActiveFor returns the doctor's in-progress instance regardless of date,
	// or nil when none is running.
	ActiveFor(ctx context.Context, doctorID uuid.UUID) (*Instance, error)
	ListByDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Instance, error)
}
