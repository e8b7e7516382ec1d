package rota

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinrota/clinrota/internal/platform/keymutex"
)

// -- Mock Repositories --

type mockTemplateRepo struct {
	days map[string]*DayTemplate
	err  error
}

func newMockTemplateRepo() *mockTemplateRepo {
	return &mockTemplateRepo{days: make(map[string]*DayTemplate)}
}

func tplKey(doctorID uuid.UUID, day int) string {
	return fmt.Sprintf("%s/%d", doctorID, day)
}

func (m *mockTemplateRepo) Put(_ context.Context, t *DayTemplate) error {
	t.UpdatedAt = time.Now()
	m.days[tplKey(t.DoctorID, t.DayOfWeek)] = t
	return nil
}

func (m *mockTemplateRepo) GetDay(_ context.Context, doctorID uuid.UUID, day int) (*DayTemplate, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.days[tplKey(doctorID, day)], nil
}

func (m *mockTemplateRepo) GetWeek(_ context.Context, doctorID uuid.UUID) ([]*DayTemplate, error) {
	var out []*DayTemplate
	for day := 0; day <= 6; day++ {
		if t, ok := m.days[tplKey(doctorID, day)]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

type mockSpecialRepo struct {
	shifts map[uuid.UUID]*SpecialShift
	order  []uuid.UUID
	err    error
}

func newMockSpecialRepo() *mockSpecialRepo {
	return &mockSpecialRepo{shifts: make(map[uuid.UUID]*SpecialShift)}
}

func (m *mockSpecialRepo) Create(_ context.Context, s *SpecialShift) error {
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	m.shifts[s.ID] = s
	m.order = append(m.order, s.ID)
	return nil
}

func (m *mockSpecialRepo) GetByID(_ context.Context, id uuid.UUID) (*SpecialShift, error) {
	if m.err != nil {
		return nil, m.err
	}
	// Absent rows come back as nil without error, matching the pg repo.
	return m.shifts[id], nil
}

func (m *mockSpecialRepo) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	s, ok := m.shifts[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	s.Status = status
	return nil
}

func (m *mockSpecialRepo) ListByDate(_ context.Context, doctorID uuid.UUID, date time.Time) ([]*SpecialShift, error) {
	var out []*SpecialShift
	for _, id := range m.order {
		s := m.shifts[id]
		if s.DoctorID == doctorID && s.Date.Equal(date) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSpecialRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]*SpecialShift, int, error) {
	var out []*SpecialShift
	for _, id := range m.order {
		if m.shifts[id].DoctorID == doctorID {
			out = append(out, m.shifts[id])
		}
	}
	return out, len(out), nil
}

func newTestService() (*Service, *mockTemplateRepo, *mockSpecialRepo) {
	templates := newMockTemplateRepo()
	specials := newMockSpecialRepo()
	svc := NewService(templates, specials, keymutex.New(), zerolog.Nop())
	return svc, templates, specials
}

func mondayTemplate(doctorID uuid.UUID, shifts ...ShiftDefinition) *DayTemplate {
	return &DayTemplate{DoctorID: doctorID, DayOfWeek: 1, IsAvailable: true, Shifts: shifts}
}

// -- Tests --

func TestPutDayTemplateValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	doctor := uuid.New()

	tests := []struct {
		name string
		tpl  *DayTemplate
	}{
		{"missing doctor", &DayTemplate{DayOfWeek: 1, IsAvailable: true}},
		{"bad weekday", &DayTemplate{DoctorID: doctor, DayOfWeek: 7, IsAvailable: true}},
		{"missing shift name", mondayTemplate(doctor,
			ShiftDefinition{StartTime: "09:00", EndTime: "12:00", MaxCapacity: 5})},
		{"duplicate shift name", mondayTemplate(doctor,
			ShiftDefinition{ShiftName: "Morning", StartTime: "09:00", EndTime: "12:00", MaxCapacity: 5},
			ShiftDefinition{ShiftName: "Morning", StartTime: "13:00", EndTime: "15:00", MaxCapacity: 5})},
		{"inverted clock range", mondayTemplate(doctor,
			ShiftDefinition{ShiftName: "Morning", StartTime: "12:00", EndTime: "09:00", MaxCapacity: 5})},
		{"bad clock", mondayTemplate(doctor,
			ShiftDefinition{ShiftName: "Morning", StartTime: "9am", EndTime: "12:00", MaxCapacity: 5})},
		{"zero capacity", mondayTemplate(doctor,
			ShiftDefinition{ShiftName: "Morning", StartTime: "09:00", EndTime: "12:00"})},
		{"repeat week out of range", mondayTemplate(doctor,
			ShiftDefinition{ShiftName: "Morning", StartTime: "09:00", EndTime: "12:00", MaxCapacity: 5, RepeatWeeks: []int{0}})},
		{"overlap same occurrence", mondayTemplate(doctor,
			ShiftDefinition{ShiftName: "Morning", StartTime: "09:00", EndTime: "12:00", MaxCapacity: 5},
			ShiftDefinition{ShiftName: "Late Morning", StartTime: "11:00", EndTime: "13:00", MaxCapacity: 5})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.PutDayTemplate(ctx, tt.tpl); !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestPutDayTemplateDisjointRepeatWeeksMayOverlap(t *testing.T) {
	svc, _, _ := newTestService()
	doctor := uuid.New()

	// Same clock range but never on the same occurrence of the month.
	tpl := mondayTemplate(doctor,
		ShiftDefinition{ShiftName: "Odd Weeks", StartTime: "09:00", EndTime: "12:00", MaxCapacity: 5, RepeatWeeks: []int{1, 3}},
		ShiftDefinition{ShiftName: "Even Weeks", StartTime: "09:00", EndTime: "12:00", MaxCapacity: 5, RepeatWeeks: []int{2, 4}},
	)
	if err := svc.PutDayTemplate(context.Background(), tpl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBaseShiftsOnHonorsRepeatWeeks(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	doctor := uuid.New()

	tpl := mondayTemplate(doctor,
		ShiftDefinition{ShiftName: "Every Week", StartTime: "09:00", EndTime: "12:00", MaxCapacity: 10},
		ShiftDefinition{ShiftName: "Third Monday Only", StartTime: "14:00", EndTime: "16:00", MaxCapacity: 5, RepeatWeeks: []int{3}},
	)
	if err := svc.PutDayTemplate(ctx, tpl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	thirdMonday := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)  // 3rd Monday
	firstMonday := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)   // 1st Monday

	shifts, err := svc.BaseShiftsOn(ctx, doctor, thirdMonday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(shifts) != 2 {
		t.Errorf("3rd Monday: expected 2 shifts, got %d", len(shifts))
	}

	shifts, err = svc.BaseShiftsOn(ctx, doctor, firstMonday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(shifts) != 1 || shifts[0].ShiftName != "Every Week" {
		t.Errorf("1st Monday: expected only the weekly shift, got %+v", shifts)
	}
}

func TestBaseShiftsOnUnavailableDay(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	doctor := uuid.New()

	tpl := mondayTemplate(doctor,
		ShiftDefinition{ShiftName: "Morning", StartTime: "09:00", EndTime: "12:00", MaxCapacity: 10})
	tpl.IsAvailable = false
	if err := svc.PutDayTemplate(ctx, tpl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	shifts, err := svc.BaseShiftsOn(ctx, doctor, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(shifts) != 0 {
		t.Errorf("unavailable day must yield no shifts, got %+v", shifts)
	}
}

func TestBaseShiftsOnStorageFailure(t *testing.T) {
	svc, templates, _ := newTestService()
	templates.err = errors.New("connection refused")

	shifts, err := svc.BaseShiftsOn(context.Background(), uuid.New(),
		time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC))
	if err == nil {
		t.Fatal("storage failure must surface, not read as a day off")
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) {
		t.Errorf("storage failure must not map to a domain error, got %v", err)
	}
	if shifts != nil {
		t.Errorf("expected no shifts on failure, got %+v", shifts)
	}
}

func TestAddSpecialShiftRejectsDuplicateName(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	doctor := uuid.New()
	date := time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC)

	first := &SpecialShift{DoctorID: doctor, Date: date, ShiftName: "Saturday Clinic",
		StartTime: "10:00", EndTime: "13:00", MaxCapacity: 8}
	if err := svc.AddSpecialShift(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dup := &SpecialShift{DoctorID: doctor, Date: date, ShiftName: "Saturday Clinic",
		StartTime: "14:00", EndTime: "16:00", MaxCapacity: 8}
	if err := svc.AddSpecialShift(ctx, dup); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for duplicate special, got %v", err)
	}
}

func TestCancelSpecialShiftWrongDoctor(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	doctor := uuid.New()
	date := time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC)

	sp := &SpecialShift{DoctorID: doctor, Date: date, ShiftName: "Clinic",
		StartTime: "10:00", EndTime: "13:00", MaxCapacity: 8}
	if err := svc.AddSpecialShift(ctx, sp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.CancelSpecialShift(ctx, uuid.New(), sp.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign doctor, got %v", err)
	}
	if err := svc.CancelSpecialShift(ctx, doctor, sp.ID); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if sp.Status != SpecialCancelled {
		t.Errorf("expected status cancelled, got %s", sp.Status)
	}
}

func TestCancelSpecialShiftUnknownID(t *testing.T) {
	svc, _, _ := newTestService()

	err := svc.CancelSpecialShift(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown special, got %v", err)
	}
}

func TestCancelSpecialShiftStorageFailure(t *testing.T) {
	svc, _, specials := newTestService()
	specials.err = errors.New("connection refused")

	err := svc.CancelSpecialShift(context.Background(), uuid.New(), uuid.New())
	if err == nil {
		t.Fatal("storage failure must surface")
	}
	if errors.Is(err, ErrNotFound) {
		t.Errorf("storage failure must not read as not-found, got %v", err)
	}
}

func TestPreviewDayMergesSpecials(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	doctor := uuid.New()
	monday := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)

	tpl := mondayTemplate(doctor,
		ShiftDefinition{ShiftName: "Morning", StartTime: "09:00", EndTime: "12:00", MaxCapacity: 10})
	if err := svc.PutDayTemplate(ctx, tpl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sp := &SpecialShift{DoctorID: doctor, Date: monday, ShiftName: "Morning",
		StartTime: "10:00", EndTime: "13:00", MaxCapacity: 12}
	if err := svc.AddSpecialShift(ctx, sp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	day, err := svc.PreviewDay(ctx, doctor, monday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(day) != 1 || day[0].StartTime != "10:00" || !day[0].Special {
		t.Errorf("expected replaced Morning shift, got %+v", day)
	}
}
