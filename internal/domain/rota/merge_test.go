package rota

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func special(name, start, end string, capacity int, status string) SpecialShift {
	return SpecialShift{
		ID:          uuid.New(),
		Date:        time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC),
		ShiftName:   name,
		StartTime:   start,
		EndTime:     end,
		MaxCapacity: capacity,
		Status:      status,
	}
}

func TestMergeSpecialsReplacesByNameInPlace(t *testing.T) {
	base := []ShiftDefinition{
		{ShiftName: "Morning", StartTime: "09:00", EndTime: "12:00", MaxCapacity: 10},
		{ShiftName: "Evening", StartTime: "17:00", EndTime: "20:00", MaxCapacity: 8},
	}
	specials := []SpecialShift{special("Morning", "10:00", "13:00", 15, SpecialActive)}

	got := MergeSpecials(base, specials)
	if len(got) != 2 {
		t.Fatalf("expected 2 shifts, got %d", len(got))
	}
	if got[0].ShiftName != "Morning" || got[0].StartTime != "10:00" || got[0].MaxCapacity != 15 {
		t.Errorf("expected Morning replaced in place, got %+v", got[0])
	}
	if !got[0].Special {
		t.Error("replaced shift should be flagged special")
	}
	if got[1].ShiftName != "Evening" || got[1].Special {
		t.Errorf("Evening should be untouched, got %+v", got[1])
	}
}

func TestMergeSpecialsAppendsNonMatching(t *testing.T) {
	base := []ShiftDefinition{
		{ShiftName: "Morning", StartTime: "09:00", EndTime: "12:00", MaxCapacity: 10},
	}
	specials := []SpecialShift{
		special("Saturday Clinic", "14:00", "17:00", 12, SpecialActive),
	}

	got := MergeSpecials(base, specials)
	if len(got) != 2 {
		t.Fatalf("expected 2 shifts, got %d", len(got))
	}
	if got[0].ShiftName != "Morning" {
		t.Errorf("template shift must come first, got %+v", got[0])
	}
	if got[1].ShiftName != "Saturday Clinic" || !got[1].Special {
		t.Errorf("special should be appended, got %+v", got[1])
	}
}

func TestMergeSpecialsDropsCancelled(t *testing.T) {
	base := []ShiftDefinition{
		{ShiftName: "Morning", StartTime: "09:00", EndTime: "12:00", MaxCapacity: 10},
	}
	specials := []SpecialShift{
		special("Morning", "10:00", "13:00", 15, SpecialCancelled),
		special("Extra", "14:00", "16:00", 5, SpecialCancelled),
	}

	got := MergeSpecials(base, specials)
	if len(got) != 1 {
		t.Fatalf("cancelled specials must not participate, got %+v", got)
	}
	if got[0].ShiftName != "Morning" || got[0].StartTime != "09:00" || got[0].Special {
		t.Errorf("template shift must reappear untouched when its special is cancelled, got %+v", got[0])
	}
}

func TestMergeSpecialsPreservesCreationOrder(t *testing.T) {
	specials := []SpecialShift{
		special("B", "10:00", "11:00", 1, SpecialActive),
		special("A", "09:00", "10:00", 1, SpecialActive),
	}
	got := MergeSpecials(nil, specials)
	if len(got) != 2 || got[0].ShiftName != "B" || got[1].ShiftName != "A" {
		t.Errorf("appended specials must keep creation order, got %+v", got)
	}
}

func TestMergeSpecialsEmptyInputs(t *testing.T) {
	if got := MergeSpecials(nil, nil); len(got) != 0 {
		t.Errorf("expected empty result, got %+v", got)
	}
}
