package rota

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TemplateRepository interface {
	Put(ctx context.Context, t *DayTemplate) error
	GetDay(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) (*DayTemplate, error)
	GetWeek(ctx context.Context, doctorID uuid.UUID) ([]*DayTemplate, error)
}

type SpecialShiftRepository interface {
	Create(ctx context.Context, s *SpecialShift) error
	GetByID(ctx context.Context, id uuid.UUID) (*SpecialShift, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	ListByDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*SpecialShift, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*SpecialShift, int, error)
}
