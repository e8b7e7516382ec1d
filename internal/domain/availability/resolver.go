// Package availability computes the authoritative effective shift list for a
// doctor on a calendar date. It layers four independently-mutated sources
// with fixed precedence: recurring weekly templates, date-specific special
// shifts, the leave ledger, and same-day operational overrides. Planned leave
// always wins over an override for the visible blocking reason; an override
// never un-blocks a shift that leave has blocked.
package availability

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinrota/clinrota/internal/domain/override"
	"github.com/clinrota/clinrota/internal/domain/rota"
	"github.com/clinrota/clinrota/internal/platform/calendar"
)

// BlockReason says why a resolved shift is blocked or delayed.
type BlockReason string

const (
	BlockNone              BlockReason = ""
	BlockLeave             BlockReason = "leave"
	BlockOverrideCancelled BlockReason = "override-cancelled"
	BlockOverrideDelayed   BlockReason = "override-delayed"
)

// ResolvedShift is one entry of a date's effective shift list.
type ResolvedShift struct {
	ShiftName    string      `json:"shift_name"`
	StartTime    string      `json:"start_time"`
	EndTime      string      `json:"end_time"`
	Capacity     int         `json:"capacity"`
	IsBlocked    bool        `json:"is_blocked"`
	BlockReason  BlockReason `json:"block_reason,omitempty"`
	DelayMinutes int         `json:"delay_minutes,omitempty"`
}

// LeaveSpan is the slice of a leave record the resolver needs: its date range
// and scope. Empty ShiftNames means a full-day leave.
type LeaveSpan struct {
	Start      time.Time
	End        time.Time
	ShiftNames []string
}

// Covers reports whether the span includes the given date.
func (l LeaveSpan) Covers(date time.Time) bool {
	date = calendar.Midnight(date)
	return !date.Before(calendar.Midnight(l.Start)) && !date.After(calendar.Midnight(l.End))
}

// Resolve merges one date's template shifts, special shifts, leave spans and
// override into the effective shift list. It is pure: absent inputs resolve
// to the empty list, never an error. Order is stable: template order first,
// then appended specials by creation order.
func Resolve(date time.Time, base []rota.ShiftDefinition, specials []rota.SpecialShift, leaves []LeaveSpan, ov *override.Override) []ResolvedShift {
	merged := rota.MergeSpecials(base, specials)
	if len(merged) == 0 {
		return nil
	}

	fullDayLeave := false
	shiftLeave := make(map[string]bool)
	for _, l := range leaves {
		if !l.Covers(date) {
			continue
		}
		if len(l.ShiftNames) == 0 {
			fullDayLeave = true
			continue
		}
		for _, name := range l.ShiftNames {
			shiftLeave[name] = true
		}
	}

	out := make([]ResolvedShift, 0, len(merged))
	for _, sh := range merged {
		rs := ResolvedShift{
			ShiftName: sh.ShiftName,
			StartTime: sh.StartTime,
			EndTime:   sh.EndTime,
			Capacity:  sh.MaxCapacity,
		}

		if fullDayLeave || shiftLeave[sh.ShiftName] {
			rs.IsBlocked = true
			rs.BlockReason = BlockLeave
			out = append(out, rs)
			continue
		}

		if ov != nil {
			if entry, ok := ov.EntryFor(sh.ShiftName); ok {
				if entry.IsCancelled {
					rs.IsBlocked = true
					rs.BlockReason = BlockOverrideCancelled
				} else if entry.DelayMinutes > 0 {
					rs.DelayMinutes = entry.DelayMinutes
					rs.BlockReason = BlockOverrideDelayed
				}
			}
		}
		out = append(out, rs)
	}
	return out
}

// TemplateSource yields the template shifts active on a date (weekday
// availability and repeat weeks already applied).
type TemplateSource interface {
	BaseShiftsOn(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]rota.ShiftDefinition, error)
}

// SpecialSource yields a date's special shifts in creation order.
type SpecialSource interface {
	SpecialsOn(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]rota.SpecialShift, error)
}

// LeaveSource yields the leave spans covering a date.
type LeaveSource interface {
	LeavesOn(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]LeaveSpan, error)
}

// OverrideSource yields a date's override, or nil when none exists.
type OverrideSource interface {
	OverrideOn(ctx context.Context, doctorID uuid.UUID, date time.Time) (*override.Override, error)
}

// Resolver reads the four stores and applies Resolve. Reads run against the
// latest committed state without taking the doctor's mutation lock; a read
// racing a mutation may see state from at most one mutation ago.
type Resolver struct {
	templates TemplateSource
	specials  SpecialSource
	leaves    LeaveSource
	overrides OverrideSource
}

func NewResolver(templates TemplateSource, specials SpecialSource, leaves LeaveSource, overrides OverrideSource) *Resolver {
	return &Resolver{templates: templates, specials: specials, leaves: leaves, overrides: overrides}
}

// ResolveDay returns the doctor's effective shift list for the date. A doctor
// with no data for the date gets an empty list, which is a valid "off that
// day" outcome rather than an error.
func (r *Resolver) ResolveDay(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]ResolvedShift, error) {
	date = calendar.Midnight(date)

	base, err := r.templates.BaseShiftsOn(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	specials, err := r.specials.SpecialsOn(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	leaves, err := r.leaves.LeavesOn(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	ov, err := r.overrides.OverrideOn(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}

	return Resolve(date, base, specials, leaves, ov), nil
}

// ShiftOpen reports whether the named shift resolves unblocked for the date.
// Used by the shift lifecycle to gate Start transitions.
func (r *Resolver) ShiftOpen(ctx context.Context, doctorID uuid.UUID, date time.Time, shiftName string) (bool, error) {
	shifts, err := r.ResolveDay(ctx, doctorID, date)
	if err != nil {
		return false, err
	}
	for _, sh := range shifts {
		if sh.ShiftName == shiftName {
			return !sh.IsBlocked, nil
		}
	}
	return false, nil
}
