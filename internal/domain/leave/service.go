package leave

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinrota/clinrota/internal/domain/availability"
	"github.com/clinrota/clinrota/internal/platform/calendar"
	"github.com/clinrota/clinrota/internal/platform/keymutex"
)

// DayResolver is the slice of the availability resolver the ledger needs to
// validate that requested leave dates actually carry open shifts.
type DayResolver interface {
	ResolveDay(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]availability.ResolvedShift, error)
}

// Service is the leave ledger: grants debit a yearly balance, every mutation
// appends an immutable audit entry, and revocation credits days back while
// shrinking or splitting the record.
type Service struct {
	repo     Repository
	resolver DayResolver
	locks    *keymutex.KeyMutex
	limit    int // leave days allowed per doctor per calendar year
	logger   zerolog.Logger
}

func NewService(repo Repository, resolver DayResolver, locks *keymutex.KeyMutex, limitPerYear int, logger zerolog.Logger) *Service {
	return &Service{repo: repo, resolver: resolver, locks: locks, limit: limitPerYear, logger: logger}
}

// Grant validates and records a leave. On success the record insert, the
// audit append and the counter debit have committed together; on any
// rejection the ledger is untouched, so retrying an over-limit grant fails
// identically until the balance changes.
func (s *Service) Grant(ctx context.Context, byUser string, doctorID uuid.UUID, start, end time.Time, shiftNames []string, reason string) (*Record, error) {
	if doctorID == uuid.Nil {
		return nil, fmt.Errorf("%w: doctor_id is required", ErrValidation)
	}
	if start.IsZero() || end.IsZero() {
		return nil, fmt.Errorf("%w: start and end dates are required", ErrValidation)
	}
	start, end = calendar.Midnight(start), calendar.Midnight(end)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date precedes start date", ErrValidation)
	}
	if start.Year() != end.Year() {
		return nil, fmt.Errorf("%w: a leave must fall within one calendar year", ErrValidation)
	}

	s.locks.Lock(doctorID.String())
	defer s.locks.Unlock(doctorID.String())

	// Every requested date must have at least one open shift in scope.
	for _, day := range calendar.EnumerateDays(start, end) {
		shifts, err := s.resolver.ResolveDay(ctx, doctorID, day)
		if err != nil {
			return nil, err
		}
		if !hasOpenShift(shifts, shiftNames) {
			return nil, fmt.Errorf("%w: %s", ErrNoOpenShift, calendar.FormatDay(day))
		}
	}

	// The dates must not already be covered by a leave of conflicting scope.
	existing, err := s.repo.ListOverlapping(ctx, doctorID, start, end)
	if err != nil {
		return nil, err
	}
	for _, rec := range existing {
		if scopesConflict(rec.ShiftNames, shiftNames) {
			return nil, fmt.Errorf("%w: leave %s covers %s..%s", ErrOverlap,
				rec.ID, calendar.FormatDay(rec.StartDate), calendar.FormatDay(rec.EndDate))
		}
	}

	days := calendar.DaysBetween(start, end)
	taken, err := s.repo.TakenCached(ctx, doctorID, start.Year())
	if err != nil {
		return nil, err
	}
	if taken+days > s.limit {
		return nil, fmt.Errorf("%w: %d taken + %d requested > %d allowed",
			ErrLimitExceeded, taken, days, s.limit)
	}

	rec := &Record{
		ID:         uuid.New(),
		DoctorID:   doctorID,
		StartDate:  start,
		EndDate:    end,
		ShiftNames: shiftNames,
		Reason:     reason,
		DaysCount:  days,
	}
	audit := &AuditEntry{
		ID:       uuid.New(),
		DoctorID: doctorID,
		LeaveID:  rec.ID,
		Action:   AuditGranted,
		ByUser:   byUser,
		Details:  grantDetails(rec),
		Dates:    formatDays(calendar.EnumerateDays(start, end)),
	}
	if err := s.repo.Grant(ctx, rec, audit); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("doctor_id", doctorID.String()).
		Str("leave_id", rec.ID.String()).
		Int("days", days).
		Str("by_user", byUser).
		Msg("leave granted")
	return rec, nil
}

// Revoke removes the given dates from a leave. Revoking the full span deletes
// the record and credits its whole DaysCount back; a strict subset shrinks or
// splits the record and credits only the revoked days. Dates outside the span
// are ignored without error; if nothing valid remains the call is a no-op.
func (s *Service) Revoke(ctx context.Context, byUser string, doctorID, leaveID uuid.UUID, dates []time.Time) error {
	s.locks.Lock(doctorID.String())
	defer s.locks.Unlock(doctorID.String())

	rec, err := s.repo.GetByID(ctx, doctorID, leaveID)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%w: leave %s", ErrNotFound, leaveID)
	}

	revoked := make(map[string]bool)
	for _, d := range dates {
		d = calendar.Midnight(d)
		if d.Before(rec.StartDate) || d.After(rec.EndDate) {
			continue
		}
		revoked[calendar.FormatDay(d)] = true
	}
	if len(revoked) == 0 {
		return nil
	}

	span := calendar.EnumerateDays(rec.StartDate, rec.EndDate)
	var kept []time.Time
	var revokedDays []string
	for _, d := range span {
		if revoked[calendar.FormatDay(d)] {
			revokedDays = append(revokedDays, calendar.FormatDay(d))
		} else {
			kept = append(kept, d)
		}
	}

	year := rec.StartDate.Year()
	credit := len(revokedDays)

	if len(kept) == 0 {
		audit := &AuditEntry{
			ID:       uuid.New(),
			DoctorID: doctorID,
			LeaveID:  rec.ID,
			Action:   AuditRevoked,
			ByUser:   byUser,
			Details:  fmt.Sprintf("leave voided, %d day(s) credited", credit),
			Dates:    revokedDays,
		}
		if err := s.repo.ApplyRevoke(ctx, doctorID, leaveID, nil, year, credit, audit); err != nil {
			return err
		}
		s.logger.Info().
			Str("doctor_id", doctorID.String()).
			Str("leave_id", leaveID.String()).
			Int("credited", credit).
			Str("by_user", byUser).
			Msg("leave revoked")
		return nil
	}

	// Shrink or split: the first remaining run keeps the leave id so external
	// references stay valid; further runs become new records.
	remainder := make([]*Record, 0, 2)
	for i, run := range contiguousRuns(kept) {
		frag := &Record{
			ID:         uuid.New(),
			DoctorID:   doctorID,
			StartDate:  run[0],
			EndDate:    run[len(run)-1],
			ShiftNames: rec.ShiftNames,
			Reason:     rec.Reason,
			DaysCount:  len(run),
			CreatedAt:  rec.CreatedAt,
		}
		if i == 0 {
			frag.ID = rec.ID
		}
		remainder = append(remainder, frag)
	}

	audit := &AuditEntry{
		ID:       uuid.New(),
		DoctorID: doctorID,
		LeaveID:  rec.ID,
		Action:   AuditPartiallyRevoked,
		ByUser:   byUser,
		Details:  fmt.Sprintf("%d day(s) credited, %d fragment(s) remain", credit, len(remainder)),
		Dates:    revokedDays,
	}
	if err := s.repo.ApplyRevoke(ctx, doctorID, leaveID, remainder, year, credit, audit); err != nil {
		return err
	}
	s.logger.Info().
		Str("doctor_id", doctorID.String()).
		Str("leave_id", leaveID.String()).
		Int("credited", credit).
		Int("fragments", len(remainder)).
		Str("by_user", byUser).
		Msg("leave partially revoked")
	return nil
}

// BalanceFor reports the doctor's yearly position from the cached counter.
func (s *Service) BalanceFor(ctx context.Context, doctorID uuid.UUID, year int) (*Balance, error) {
	taken, err := s.repo.TakenCached(ctx, doctorID, year)
	if err != nil {
		return nil, err
	}
	return &Balance{DoctorID: doctorID, Year: year, Taken: taken, Limit: s.limit}, nil
}

// RecomputeTaken sums the live records for the year, bypassing the cached
// counter. Kept alongside BalanceFor so drift is detectable.
func (s *Service) RecomputeTaken(ctx context.Context, doctorID uuid.UUID, year int) (int, error) {
	return s.repo.RecomputeTaken(ctx, doctorID, year)
}

func (s *Service) List(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	return s.repo.ListByDoctor(ctx, doctorID, limit, offset)
}

func (s *Service) ListAudit(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*AuditEntry, int, error) {
	return s.repo.ListAudit(ctx, doctorID, limit, offset)
}

// hasOpenShift reports whether at least one unblocked shift matches the
// requested scope (any shift when the scope is full-day).
func hasOpenShift(shifts []availability.ResolvedShift, scope []string) bool {
	for _, sh := range shifts {
		if sh.IsBlocked {
			continue
		}
		if len(scope) == 0 {
			return true
		}
		for _, name := range scope {
			if sh.ShiftName == name {
				return true
			}
		}
	}
	return false
}

// scopesConflict reports whether two leave scopes cannot coexist on the same
// dates: a full-day leave conflicts with everything, and shift-scoped leaves
// conflict when they share a shift name.
func scopesConflict(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// contiguousRuns splits an ascending day list into runs of consecutive days.
func contiguousRuns(days []time.Time) [][]time.Time {
	var runs [][]time.Time
	for _, d := range days {
		if n := len(runs); n > 0 {
			last := runs[n-1][len(runs[n-1])-1]
			if d.Sub(last) == 24*time.Hour {
				runs[n-1] = append(runs[n-1], d)
				continue
			}
		}
		runs = append(runs, []time.Time{d})
	}
	return runs
}

func grantDetails(rec *Record) string {
	scope := "full day"
	if !rec.FullDay() {
		scope = "shifts: " + strings.Join(rec.ShiftNames, ", ")
	}
	return fmt.Sprintf("%s..%s (%d day(s), %s)",
		calendar.FormatDay(rec.StartDate), calendar.FormatDay(rec.EndDate), rec.DaysCount, scope)
}

func formatDays(days []time.Time) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = calendar.FormatDay(d)
	}
	return out
}
