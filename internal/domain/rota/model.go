package rota

import (
	"time"

	"github.com/google/uuid"
)

// BreakPeriod is an informational pause inside a shift (lunch, rounds).
// Breaks are displayed to staff but never overlap-checked against other shifts.
type BreakPeriod struct {
	Label     string `db:"label" json:"label"`
	StartTime string `db:"start_time" json:"start_time"`
	EndTime   string `db:"end_time" json:"end_time"`
}

// ShiftDefinition is one named working period inside a weekday template.
// RepeatWeeks restricts the shift to specific occurrences of the weekday
// within a month (1st..5th); empty means every occurrence.
type ShiftDefinition struct {
	ShiftName   string        `db:"shift_name" json:"shift_name"`
	StartTime   string        `db:"start_time" json:"start_time"`
	EndTime     string        `db:"end_time" json:"end_time"`
	MaxCapacity int           `db:"max_capacity" json:"max_capacity"`
	RepeatWeeks []int         `db:"repeat_weeks" json:"repeat_weeks,omitempty"`
	Breaks      []BreakPeriod `db:"breaks" json:"breaks,omitempty"`
}

// ActiveOn reports whether the shift runs on the given occurrence of its
// weekday (1..5). An empty RepeatWeeks set means every occurrence.
func (s ShiftDefinition) ActiveOn(occurrence int) bool {
	if len(s.RepeatWeeks) == 0 {
		return true
	}
	for _, w := range s.RepeatWeeks {
		if w == occurrence {
			return true
		}
	}
	return false
}

// DayTemplate is a doctor's recurring template for one weekday.
type DayTemplate struct {
	DoctorID    uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	DayOfWeek   int               `db:"day_of_week" json:"day_of_week"` // 0=Sunday .. 6=Saturday
	IsAvailable bool              `db:"is_available" json:"is_available"`
	Shifts      []ShiftDefinition `db:"shifts" json:"shifts"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
}

// Special shift statuses.
const (
	SpecialActive    = "active"
	SpecialCancelled = "cancelled"
)

// SpecialShift is a one-off, date-specific shift outside the weekly template.
// A special shift whose name matches a recurring shift active on its date
// replaces that shift; a non-matching name is an extra shift for the day.
type SpecialShift struct {
	ID          uuid.UUID `db:"id" json:"id"`
	DoctorID    uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Date        time.Time `db:"date" json:"date"`
	ShiftName   string    `db:"shift_name" json:"shift_name"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	MaxCapacity int       `db:"max_capacity" json:"max_capacity"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
