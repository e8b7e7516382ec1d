package override

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinrota/clinrota/internal/platform/calendar"
	"github.com/clinrota/clinrota/internal/platform/keymutex"
)

// Change describes the adjustment a staff member is applying: a cancellation
// or a delay. ShiftNames empty means the whole day.
type Change struct {
	ShiftNames   []string `json:"shift_names,omitempty"`
	IsCancelled  bool     `json:"is_cancelled"`
	DelayMinutes int      `json:"delay_minutes"`
	Note         string   `json:"note,omitempty"`
}

type Service struct {
	repo   Repository
	locks  *keymutex.KeyMutex
	logger zerolog.Logger
}

func NewService(repo Repository, locks *keymutex.KeyMutex, logger zerolog.Logger) *Service {
	return &Service{repo: repo, locks: locks, logger: logger}
}

// Apply records a same-day adjustment for the doctor's date. Applying a
// change for a shift name already covered by the date's override replaces
// that entry rather than duplicating it; a whole-day change replaces the
// entire record.
func (s *Service) Apply(ctx context.Context, doctorID uuid.UUID, date time.Time, change Change) (*Override, error) {
	if doctorID == uuid.Nil {
		return nil, fmt.Errorf("%w: doctor_id is required", ErrValidation)
	}
	if date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrValidation)
	}
	if change.DelayMinutes < 0 {
		return nil, fmt.Errorf("%w: delay_minutes must not be negative", ErrValidation)
	}
	if change.IsCancelled && change.DelayMinutes != 0 {
		return nil, fmt.Errorf("%w: a cancellation carries no delay", ErrValidation)
	}
	if !change.IsCancelled && change.DelayMinutes == 0 {
		return nil, fmt.Errorf("%w: either a cancellation or a delay is required", ErrValidation)
	}
	date = calendar.Midnight(date)

	s.locks.Lock(doctorID.String())
	defer s.locks.Unlock(doctorID.String())

	existing, err := s.repo.Get(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}

	var o *Override
	switch {
	case len(change.ShiftNames) == 0:
		// Whole-day change supersedes anything recorded for the date.
		o = &Override{
			DoctorID:     doctorID,
			Date:         date,
			WholeDay:     true,
			IsCancelled:  change.IsCancelled,
			DelayMinutes: change.DelayMinutes,
			Note:         change.Note,
		}
	case existing != nil && !existing.WholeDay:
		o = existing
		o.Note = change.Note
		for _, name := range change.ShiftNames {
			o.Entries = upsertEntry(o.Entries, Entry{
				ShiftName:    name,
				IsCancelled:  change.IsCancelled,
				DelayMinutes: change.DelayMinutes,
			})
		}
	default:
		// No prior override, or a whole-day one being narrowed: start fresh.
		o = &Override{DoctorID: doctorID, Date: date, Note: change.Note}
		for _, name := range change.ShiftNames {
			o.Entries = append(o.Entries, Entry{
				ShiftName:    name,
				IsCancelled:  change.IsCancelled,
				DelayMinutes: change.DelayMinutes,
			})
		}
	}

	if err := s.repo.Put(ctx, o); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("doctor_id", doctorID.String()).
		Str("date", calendar.FormatDay(date)).
		Bool("whole_day", o.WholeDay).
		Bool("cancelled", change.IsCancelled).
		Int("delay_minutes", change.DelayMinutes).
		Msg("override applied")
	return o, nil
}

// Revoke removes the doctor's override for the date as a unit.
func (s *Service) Revoke(ctx context.Context, doctorID uuid.UUID, date time.Time) error {
	date = calendar.Midnight(date)

	s.locks.Lock(doctorID.String())
	defer s.locks.Unlock(doctorID.String())

	existing, err := s.repo.Get(ctx, doctorID, date)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%w: no override on %s", ErrNotFound, calendar.FormatDay(date))
	}
	if err := s.repo.Delete(ctx, doctorID, date); err != nil {
		return err
	}
	s.logger.Info().
		Str("doctor_id", doctorID.String()).
		Str("date", calendar.FormatDay(date)).
		Msg("override revoked")
	return nil
}

// Get returns the doctor's override for the date, or nil when none exists.
func (s *Service) Get(ctx context.Context, doctorID uuid.UUID, date time.Time) (*Override, error) {
	return s.repo.Get(ctx, doctorID, calendar.Midnight(date))
}

func (s *Service) List(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Override, int, error) {
	return s.repo.ListByDoctor(ctx, doctorID, limit, offset)
}

func upsertEntry(entries []Entry, e Entry) []Entry {
	for i, cur := range entries {
		if cur.ShiftName == e.ShiftName {
			entries[i] = e
			return entries
		}
	}
	return append(entries, e)
}
