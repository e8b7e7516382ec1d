package rota

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinrota/clinrota/internal/platform/calendar"
	"github.com/clinrota/clinrota/internal/platform/keymutex"
)

// Service owns the recurring weekly templates and the one-off special shifts.
type Service struct {
	templates TemplateRepository
	specials  SpecialShiftRepository
	locks     *keymutex.KeyMutex
	logger    zerolog.Logger
}

func NewService(templates TemplateRepository, specials SpecialShiftRepository, locks *keymutex.KeyMutex, logger zerolog.Logger) *Service {
	return &Service{templates: templates, specials: specials, locks: locks, logger: logger}
}

// PutDayTemplate validates and stores one weekday's template for a doctor.
// Within a day, shifts that can run on the same occurrence of the month must
// not overlap in time. Breaks are informational and not overlap-checked.
func (s *Service) PutDayTemplate(ctx context.Context, t *DayTemplate) error {
	if t.DoctorID == uuid.Nil {
		return fmt.Errorf("%w: doctor_id is required", ErrValidation)
	}
	if t.DayOfWeek < 0 || t.DayOfWeek > 6 {
		return fmt.Errorf("%w: day_of_week must be 0..6, got %d", ErrValidation, t.DayOfWeek)
	}
	if err := validateShifts(t.Shifts); err != nil {
		return err
	}

	s.locks.Lock(t.DoctorID.String())
	defer s.locks.Unlock(t.DoctorID.String())

	if err := s.templates.Put(ctx, t); err != nil {
		return err
	}
	s.logger.Info().
		Str("doctor_id", t.DoctorID.String()).
		Int("day_of_week", t.DayOfWeek).
		Int("shifts", len(t.Shifts)).
		Msg("day template updated")
	return nil
}

// GetWeek returns the doctor's full weekly template. Missing days are simply
// absent; a doctor with no template at all yields an empty slice.
func (s *Service) GetWeek(ctx context.Context, doctorID uuid.UUID) ([]*DayTemplate, error) {
	return s.templates.GetWeek(ctx, doctorID)
}

func (s *Service) GetDay(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) (*DayTemplate, error) {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return nil, fmt.Errorf("%w: day_of_week must be 0..6", ErrValidation)
	}
	return s.templates.GetDay(ctx, doctorID, dayOfWeek)
}

// AddSpecialShift records a one-off shift for a concrete date.
func (s *Service) AddSpecialShift(ctx context.Context, sp *SpecialShift) error {
	if sp.DoctorID == uuid.Nil {
		return fmt.Errorf("%w: doctor_id is required", ErrValidation)
	}
	if sp.ShiftName == "" {
		return fmt.Errorf("%w: shift_name is required", ErrValidation)
	}
	if sp.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}
	if err := validateClockRange(sp.StartTime, sp.EndTime); err != nil {
		return err
	}
	if sp.MaxCapacity <= 0 {
		return fmt.Errorf("%w: max_capacity must be positive", ErrValidation)
	}
	if sp.Status == "" {
		sp.Status = SpecialActive
	}
	if sp.Status != SpecialActive && sp.Status != SpecialCancelled {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, sp.Status)
	}
	sp.Date = calendar.Midnight(sp.Date)

	s.locks.Lock(sp.DoctorID.String())
	defer s.locks.Unlock(sp.DoctorID.String())

	existing, err := s.specials.ListByDate(ctx, sp.DoctorID, sp.Date)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.ShiftName == sp.ShiftName && e.Status == SpecialActive {
			return fmt.Errorf("%w: special shift %q already exists on %s",
				ErrValidation, sp.ShiftName, calendar.FormatDay(sp.Date))
		}
	}

	if err := s.specials.Create(ctx, sp); err != nil {
		return err
	}
	s.logger.Info().
		Str("doctor_id", sp.DoctorID.String()).
		Str("shift", sp.ShiftName).
		Str("date", calendar.FormatDay(sp.Date)).
		Msg("special shift added")
	return nil
}

// CancelSpecialShift marks a special shift cancelled. A cancelled special is
// never shown by the resolver; a template shift it was shadowing reappears.
func (s *Service) CancelSpecialShift(ctx context.Context, doctorID, id uuid.UUID) error {
	s.locks.Lock(doctorID.String())
	defer s.locks.Unlock(doctorID.String())

	sp, err := s.specials.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sp == nil || sp.DoctorID != doctorID {
		return fmt.Errorf("%w: special shift %s", ErrNotFound, id)
	}
	return s.specials.SetStatus(ctx, id, SpecialCancelled)
}

func (s *Service) ListSpecialShifts(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*SpecialShift, int, error) {
	return s.specials.ListByDoctor(ctx, doctorID, limit, offset)
}

// SpecialsOn returns the doctor's special shifts dated on the given day, in
// creation order, regardless of status.
func (s *Service) SpecialsOn(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]SpecialShift, error) {
	specials, err := s.specials.ListByDate(ctx, doctorID, calendar.Midnight(date))
	if err != nil {
		return nil, err
	}
	out := make([]SpecialShift, len(specials))
	for i, sp := range specials {
		out[i] = *sp
	}
	return out, nil
}

// PreviewDay shows what a date's shift list looks like after specials are
// merged in, before leave and overrides are considered. Used by staff tooling;
// the same merge feeds the availability resolver.
func (s *Service) PreviewDay(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]DayShift, error) {
	date = calendar.Midnight(date)
	base, err := s.BaseShiftsOn(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	specials, err := s.SpecialsOn(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	return MergeSpecials(base, specials), nil
}

// BaseShiftsOn returns the template shifts active on the given date, taking
// the weekday's availability flag and each shift's repeat weeks into account.
func (s *Service) BaseShiftsOn(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]ShiftDefinition, error) {
	tpl, err := s.templates.GetDay(ctx, doctorID, calendar.DayOfWeek(date))
	if err != nil {
		return nil, err
	}
	if tpl == nil || !tpl.IsAvailable {
		// No template for the weekday is a valid "doctor off" outcome.
		return nil, nil
	}
	occurrence := calendar.OccurrenceOfMonth(date)
	var out []ShiftDefinition
	for _, sh := range tpl.Shifts {
		if sh.ActiveOn(occurrence) {
			out = append(out, sh)
		}
	}
	return out, nil
}

func validateShifts(shifts []ShiftDefinition) error {
	type span struct {
		def        ShiftDefinition
		start, end int
	}
	seen := make(map[string]bool, len(shifts))
	spans := make([]span, 0, len(shifts))

	for _, sh := range shifts {
		if sh.ShiftName == "" {
			return fmt.Errorf("%w: shift_name is required", ErrValidation)
		}
		if seen[sh.ShiftName] {
			return fmt.Errorf("%w: duplicate shift name %q", ErrValidation, sh.ShiftName)
		}
		seen[sh.ShiftName] = true
		if sh.MaxCapacity <= 0 {
			return fmt.Errorf("%w: shift %q: max_capacity must be positive", ErrValidation, sh.ShiftName)
		}
		start, err := calendar.ParseClock(sh.StartTime)
		if err != nil {
			return fmt.Errorf("%w: shift %q: %v", ErrValidation, sh.ShiftName, err)
		}
		end, err := calendar.ParseClock(sh.EndTime)
		if err != nil {
			return fmt.Errorf("%w: shift %q: %v", ErrValidation, sh.ShiftName, err)
		}
		if start >= end {
			return fmt.Errorf("%w: shift %q: start_time must precede end_time", ErrValidation, sh.ShiftName)
		}
		for _, w := range sh.RepeatWeeks {
			if w < 1 || w > 5 {
				return fmt.Errorf("%w: shift %q: repeat week %d out of range 1..5", ErrValidation, sh.ShiftName, w)
			}
		}
		for _, b := range sh.Breaks {
			bs, err := calendar.ParseClock(b.StartTime)
			if err != nil {
				return fmt.Errorf("%w: shift %q break %q: %v", ErrValidation, sh.ShiftName, b.Label, err)
			}
			be, err := calendar.ParseClock(b.EndTime)
			if err != nil {
				return fmt.Errorf("%w: shift %q break %q: %v", ErrValidation, sh.ShiftName, b.Label, err)
			}
			if bs >= be {
				return fmt.Errorf("%w: shift %q break %q: start must precede end", ErrValidation, sh.ShiftName, b.Label)
			}
		}
		spans = append(spans, span{def: sh, start: start, end: end})
	}

	// Shifts that can run on the same occurrence must not overlap in time.
	for i := 0; i < len(spans); i++ {
		for j := i + 1; j < len(spans); j++ {
			if !shareOccurrence(spans[i].def, spans[j].def) {
				continue
			}
			if spans[i].start < spans[j].end && spans[j].start < spans[i].end {
				return fmt.Errorf("%w: shifts %q and %q overlap",
					ErrValidation, spans[i].def.ShiftName, spans[j].def.ShiftName)
			}
		}
	}
	return nil
}

func validateClockRange(startTime, endTime string) error {
	start, err := calendar.ParseClock(startTime)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	end, err := calendar.ParseClock(endTime)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if start >= end {
		return fmt.Errorf("%w: start_time must precede end_time", ErrValidation)
	}
	return nil
}

func shareOccurrence(a, b ShiftDefinition) bool {
	for occ := 1; occ <= 5; occ++ {
		if a.ActiveOn(occ) && b.ActiveOn(occ) {
			return true
		}
	}
	return false
}
