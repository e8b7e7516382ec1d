package shiftlife

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinrota/clinrota/internal/platform/calendar"
	"github.com/clinrota/clinrota/internal/platform/keymutex"
)

// ShiftGate answers whether a shift resolves unblocked for a date. Satisfied
// by the availability resolver.
type ShiftGate interface {
	ShiftOpen(ctx context.Context, doctorID uuid.UUID, date time.Time, shiftName string) (bool, error)
}

// Service runs the shift state machine. Capability checks happen before any
// state is read or written; a doctor holds at most one in-progress shift at a
// time across all dates.
type Service struct {
	repo   Repository
	gate   ShiftGate
	locks  *keymutex.KeyMutex
	logger zerolog.Logger
}

func NewService(repo Repository, gate ShiftGate, locks *keymutex.KeyMutex, logger zerolog.Logger) *Service {
	return &Service{repo: repo, gate: gate, locks: locks, logger: logger}
}

func validateTarget(doctorID uuid.UUID, shiftName string) error {
	if doctorID == uuid.Nil {
		return fmt.Errorf("%w: doctor_id is required", ErrValidation)
	}
	if shiftName == "" {
		return fmt.Errorf("%w: shift name is required", ErrValidation)
	}
	return nil
}

// Start moves a shift to InProgress. The shift must resolve unblocked for the
// date, and the doctor must have no other shift running.
func (s *Service) Start(ctx context.Context, actor Actor, doctorID uuid.UUID, date time.Time, shiftName string) (*Instance, error) {
	if !actor.CanStartCompleteShifts {
		return nil, fmt.Errorf("%w: start requires can_start_complete_shifts", ErrForbidden)
	}
	if err := validateTarget(doctorID, shiftName); err != nil {
		return nil, err
	}
	date = calendar.Midnight(date)

	s.locks.Lock(doctorID.String())
	defer s.locks.Unlock(doctorID.String())

	inst, err := s.repo.Get(ctx, doctorID, date, shiftName)
	if err != nil {
		return nil, err
	}
	if inst != nil {
		return nil, fmt.Errorf("%w: %s is %s", ErrIllegalTransition, shiftName, inst.Status)
	}

	active, err := s.repo.ActiveFor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, fmt.Errorf("%w: %s on %s", ErrShiftAlreadyActive,
			active.ShiftName, calendar.FormatDay(active.Date))
	}

	open, err := s.gate.ShiftOpen(ctx, doctorID, date, shiftName)
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, fmt.Errorf("%w: %s on %s", ErrShiftNotOpen, shiftName, calendar.FormatDay(date))
	}

	now := time.Now().UTC()
	inst = &Instance{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		Date:      date,
		ShiftName: shiftName,
		Status:    StatusInProgress,
		StartedAt: &now,
	}
	if err := s.repo.Put(ctx, inst); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("doctor_id", doctorID.String()).
		Str("shift", shiftName).
		Str("date", calendar.FormatDay(date)).
		Str("by_user", actor.UserID).
		Msg("shift started")
	return inst, nil
}

// Complete moves an in-progress shift to Completed, its terminal state.
func (s *Service) Complete(ctx context.Context, actor Actor, doctorID uuid.UUID, date time.Time, shiftName string) (*Instance, error) {
	if !actor.CanStartCompleteShifts {
		return nil, fmt.Errorf("%w: complete requires can_start_complete_shifts", ErrForbidden)
	}
	if err := validateTarget(doctorID, shiftName); err != nil {
		return nil, err
	}
	date = calendar.Midnight(date)

	s.locks.Lock(doctorID.String())
	defer s.locks.Unlock(doctorID.String())

	inst, err := s.repo.Get(ctx, doctorID, date, shiftName)
	if err != nil {
		return nil, err
	}
	if inst == nil || inst.Status != StatusInProgress {
		return nil, transitionErr(inst, "complete")
	}

	now := time.Now().UTC()
	inst.Status = StatusCompleted
	inst.EndedAt = &now
	if err := s.repo.Put(ctx, inst); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("doctor_id", doctorID.String()).
		Str("shift", shiftName).
		Str("date", calendar.FormatDay(date)).
		Str("by_user", actor.UserID).
		Msg("shift completed")
	return inst, nil
}

// Cancel terminates a shift. A shift never started is created directly
// Cancelled; an in-progress shift is stopped. Terminal states stay terminal.
func (s *Service) Cancel(ctx context.Context, actor Actor, doctorID uuid.UUID, date time.Time, shiftName string) (*Instance, error) {
	if !actor.CanCancelShifts {
		return nil, fmt.Errorf("%w: cancel requires can_cancel_shifts", ErrForbidden)
	}
	if err := validateTarget(doctorID, shiftName); err != nil {
		return nil, err
	}
	date = calendar.Midnight(date)

	s.locks.Lock(doctorID.String())
	defer s.locks.Unlock(doctorID.String())

	inst, err := s.repo.Get(ctx, doctorID, date, shiftName)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	switch {
	case inst == nil:
		inst = &Instance{
			ID:        uuid.New(),
			DoctorID:  doctorID,
			Date:      date,
			ShiftName: shiftName,
			Status:    StatusCancelled,
			EndedAt:   &now,
		}
	case inst.Status == StatusInProgress:
		inst.Status = StatusCancelled
		inst.EndedAt = &now
	default:
		return nil, transitionErr(inst, "cancel")
	}
	if err := s.repo.Put(ctx, inst); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("doctor_id", doctorID.String()).
		Str("shift", shiftName).
		Str("date", calendar.FormatDay(date)).
		Str("by_user", actor.UserID).
		Msg("shift cancelled")
	return inst, nil
}

// ActiveShiftName is the queue gate: the doctor's in-progress shift for the
// date, or ok=false when nothing is running and the queue must stay hidden.
func (s *Service) ActiveShiftName(ctx context.Context, doctorID uuid.UUID, date time.Time) (string, bool, error) {
	active, err := s.repo.ActiveFor(ctx, doctorID)
	if err != nil {
		return "", false, err
	}
	if active == nil || !calendar.SameDay(active.Date, date) {
		return "", false, nil
	}
	return active.ShiftName, true, nil
}

// ListDay returns the date's instances; shifts with no row are NotStarted.
func (s *Service) ListDay(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Instance, error) {
	return s.repo.ListByDate(ctx, doctorID, calendar.Midnight(date))
}

func transitionErr(inst *Instance, verb string) error {
	if inst == nil {
		return fmt.Errorf("%w: cannot %s a shift that was never started", ErrIllegalTransition, verb)
	}
	return fmt.Errorf("%w: cannot %s from %s", ErrIllegalTransition, verb, inst.Status)
}
