package rota

// DayShift is a shift as it stands for one concrete date after the weekly
// template and the date's special shifts have been merged. Special reports
// whether the entry came from (or was replaced by) a special shift.
type DayShift struct {
	ShiftName   string
	StartTime   string
	EndTime     string
	MaxCapacity int
	Special     bool
}

// MergeSpecials combines a date's template shifts with its special shifts.
// Identity is the shift name: an active special whose name matches a base
// shift replaces it in place, keeping the template's position; non-matching
// active specials are appended in creation order. Cancelled specials never
// participate: they are dropped before the merge, so a cancelled special
// leaves the template shift it would have replaced visible.
func MergeSpecials(base []ShiftDefinition, specials []SpecialShift) []DayShift {
	active := make([]SpecialShift, 0, len(specials))
	for _, sp := range specials {
		if sp.Status == SpecialActive {
			active = append(active, sp)
		}
	}

	byName := make(map[string]SpecialShift, len(active))
	for _, sp := range active {
		byName[sp.ShiftName] = sp
	}

	out := make([]DayShift, 0, len(base)+len(active))
	for _, b := range base {
		sp, ok := byName[b.ShiftName]
		if !ok {
			out = append(out, DayShift{
				ShiftName:   b.ShiftName,
				StartTime:   b.StartTime,
				EndTime:     b.EndTime,
				MaxCapacity: b.MaxCapacity,
			})
			continue
		}
		delete(byName, b.ShiftName)
		out = append(out, DayShift{
			ShiftName:   sp.ShiftName,
			StartTime:   sp.StartTime,
			EndTime:     sp.EndTime,
			MaxCapacity: sp.MaxCapacity,
			Special:     true,
		})
	}

	// Append the remaining specials in their original (creation) order.
	for _, sp := range active {
		if _, pending := byName[sp.ShiftName]; !pending {
			continue
		}
		delete(byName, sp.ShiftName)
		out = append(out, DayShift{
			ShiftName:   sp.ShiftName,
			StartTime:   sp.StartTime,
			EndTime:     sp.EndTime,
			MaxCapacity: sp.MaxCapacity,
			Special:     true,
		})
	}
	return out
}
