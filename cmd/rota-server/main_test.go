package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinrota/clinrota/internal/domain/leave"
)

// stubLeaveRepo implements leave.Repository for adapter tests. Only ListOn is
// exercised; the remaining methods exist to satisfy the interface.
type stubLeaveRepo struct {
	records []*leave.Record
	err     error
}

func (s *stubLeaveRepo) Grant(ctx context.Context, rec *leave.Record, audit *leave.AuditEntry) error {
	return nil
}

func (s *stubLeaveRepo) ApplyRevoke(ctx context.Context, doctorID, leaveID uuid.UUID, remainder []*leave.Record, year, creditDays int, audit *leave.AuditEntry) error {
	return nil
}

func (s *stubLeaveRepo) GetByID(ctx context.Context, doctorID, leaveID uuid.UUID) (*leave.Record, error) {
	return nil, nil
}

func (s *stubLeaveRepo) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*leave.Record, int, error) {
	return nil, 0, nil
}

func (s *stubLeaveRepo) ListOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]*leave.Record, error) {
	return nil, nil
}

func (s *stubLeaveRepo) ListOn(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*leave.Record, error) {
	return s.records, s.err
}

func (s *stubLeaveRepo) TakenCached(ctx context.Context, doctorID uuid.UUID, year int) (int, error) {
	return 0, nil
}

func (s *stubLeaveRepo) RecomputeTaken(ctx context.Context, doctorID uuid.UUID, year int) (int, error) {
	return 0, nil
}

func (s *stubLeaveRepo) ListAudit(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*leave.AuditEntry, int, error) {
	return nil, 0, nil
}

func TestLeaveSourceAdapter_ConvertsRecords(t *testing.T) {
	start := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 18, 0, 0, 0, 0, time.UTC)
	repo := &stubLeaveRepo{
		records: []*leave.Record{
			{
				ID:         uuid.New(),
				DoctorID:   uuid.New(),
				StartDate:  start,
				EndDate:    end,
				ShiftNames: []string{"Morning"},
			},
			{
				ID:        uuid.New(),
				DoctorID:  uuid.New(),
				StartDate: start,
				EndDate:   start,
			},
		},
	}

	adapter := &leaveSourceAdapter{repo: repo}
	spans, err := adapter.LeavesOn(context.Background(), uuid.New(), start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if !spans[0].Start.Equal(start) || !spans[0].End.Equal(end) {
		t.Errorf("expected span [%v, %v], got [%v, %v]", start, end, spans[0].Start, spans[0].End)
	}
	if len(spans[0].ShiftNames) != 1 || spans[0].ShiftNames[0] != "Morning" {
		t.Errorf("expected scoped span, got %v", spans[0].ShiftNames)
	}
	if len(spans[1].ShiftNames) != 0 {
		t.Errorf("expected full-day span, got %v", spans[1].ShiftNames)
	}
}

func TestLeaveSourceAdapter_PropagatesError(t *testing.T) {
	repo := &stubLeaveRepo{err: errors.New("store down")}
	adapter := &leaveSourceAdapter{repo: repo}

	_, err := adapter.LeavesOn(context.Background(), uuid.New(), time.Now())
	if err == nil {
		t.Fatal("expected error from repository")
	}
}

func TestLeaveSourceAdapter_EmptyResult(t *testing.T) {
	adapter := &leaveSourceAdapter{repo: &stubLeaveRepo{}}

	spans, err := adapter.LeavesOn(context.Background(), uuid.New(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(spans) != 0 {
		t.Errorf("expected no spans, got %d", len(spans))
	}
}
