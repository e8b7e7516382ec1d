package override

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository stores at most one override per (doctor, date).
type Repository interface {
	Put(ctx context.Context, o *Override) error
	Get(ctx context.Context, doctorID uuid.UUID, date time.Time) (*Override, error)
	Delete(ctx context.Context, doctorID uuid.UUID, date time.Time) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Override, int, error)
}
