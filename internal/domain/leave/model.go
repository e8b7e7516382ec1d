package leave

import (
	"time"

	"github.com/google/uuid"
)

// Record is one granted, still-standing leave. ShiftNames empty means the
// whole day is off; otherwise only the named shifts are blocked. DaysCount is
// fixed at grant time as the inclusive calendar-day span and is the unit
// debited from the yearly balance. Partial revocation shrinks or splits the
// record; full revocation deletes it.
type Record struct {
	ID         uuid.UUID `db:"id" json:"id"`
	DoctorID   uuid.UUID `db:"doctor_id" json:"doctor_id"`
	StartDate  time.Time `db:"start_date" json:"start_date"`
	EndDate    time.Time `db:"end_date" json:"end_date"`
	ShiftNames []string  `db:"shift_names" json:"shift_names,omitempty"`
	Reason     string    `db:"reason" json:"reason"`
	DaysCount  int       `db:"days_count" json:"days_count"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// FullDay reports whether the leave covers every shift of its dates.
func (r *Record) FullDay() bool { return len(r.ShiftNames) == 0 }

// Audit actions. The audit trail is a log: entries are appended on every
// ledger mutation and never edited or deleted.
const (
	AuditGranted          = "granted"
	AuditRevoked          = "revoked"
	AuditPartiallyRevoked = "partially-revoked"
)

// AuditEntry is one immutable line of the leave audit trail.
type AuditEntry struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	LeaveID   uuid.UUID `db:"leave_id" json:"leave_id"`
	Action    string    `db:"action" json:"action"`
	ByUser    string    `db:"by_user" json:"by_user"`
	Details   string    `db:"details" json:"details"`
	Dates     []string  `db:"dates" json:"dates,omitempty"` // ISO days the action touched
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Balance is a doctor's yearly leave position. Taken is a cached counter;
// the sum of DaysCount over live records is the source of truth.
type Balance struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Year     int       `json:"year"`
	Taken    int       `json:"taken"`
	Limit    int       `json:"limit"`
}
