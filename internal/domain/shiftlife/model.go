package shiftlife

import (
	"time"

	"github.com/google/uuid"
)

// Shift statuses. NotStarted is implicit: an instance row is only created on
// the first Start or Cancel, so a shift with no row is NotStarted.
const (
	StatusNotStarted = "not-started"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Instance is the live state of one shift occurrence, unique per
// (doctor, date, shift name). Completed and Cancelled are terminal.
type Instance struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	DoctorID  uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	Date      time.Time  `db:"date" json:"date"`
	ShiftName string     `db:"shift_name" json:"shift_name"`
	Status    string     `db:"status" json:"status"`
	StartedAt *time.Time `db:"started_at" json:"started_at,omitempty"`
	EndedAt   *time.Time `db:"ended_at" json:"ended_at,omitempty"`
}

// Terminal reports whether the instance can accept no further transitions.
func (i *Instance) Terminal() bool {
	return i.Status == StatusCompleted || i.Status == StatusCancelled
}

// Actor is the authenticated caller of a lifecycle operation, with the
// capability flags carried in their token.
type Actor struct {
	UserID                 string
	CanStartCompleteShifts bool
	CanCancelShifts        bool
}
