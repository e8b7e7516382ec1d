package override

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one shift-name's adjustment inside a day override: either a
// cancellation or a delay in minutes, never both.
type Entry struct {
	ShiftName    string `json:"shift_name"`
	IsCancelled  bool   `json:"is_cancelled"`
	DelayMinutes int    `json:"delay_minutes"`
}

// Override is a doctor's ad-hoc adjustment for one calendar date, created by
// operational staff on the day itself. WholeDay overrides carry a single
// cancellation/delay applied to every shift; otherwise Entries lists the
// affected shift names. Overrides are not audited and never touch the leave
// balance; revoking removes the whole record.
type Override struct {
	ID           uuid.UUID `db:"id" json:"id"`
	DoctorID     uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Date         time.Time `db:"date" json:"date"`
	WholeDay     bool      `db:"whole_day" json:"whole_day"`
	IsCancelled  bool      `db:"is_cancelled" json:"is_cancelled"`
	DelayMinutes int       `db:"delay_minutes" json:"delay_minutes"`
	Entries      []Entry   `db:"entries" json:"entries,omitempty"`
	Note         string    `db:"note" json:"note,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// EntryFor returns the adjustment that applies to shiftName, if any. A
// whole-day override applies to every shift.
func (o *Override) EntryFor(shiftName string) (Entry, bool) {
	if o.WholeDay {
		return Entry{ShiftName: shiftName, IsCancelled: o.IsCancelled, DelayMinutes: o.DelayMinutes}, true
	}
	for _, e := range o.Entries {
		if e.ShiftName == shiftName {
			return e, true
		}
	}
	return Entry{}, false
}
