package service

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"studio_sales_backend/internal/appointments/repository"
	"studio_sales_backend/internal/appointments/transport"
	"studio_sales_backend/internal/leads/ports"
	"studio_sales_backend/platform/apperr"

	"github.com/google/uuid"
)

type memoryStore struct {
	rules []repository.AvailabilityRule
	appts map[uuid.UUID]*repository.Appointment
}

func newMemoryStore(rules ...repository.AvailabilityRule) *memoryStore {
	return &memoryStore{rules: rules, appts: map[uuid.UUID]*repository.Appointment{}}
}

func (m *memoryStore) Create(_ context.Context, appt repository.Appointment) (*repository.Appointment, error) {
	saved := appt
	m.appts[appt.ID] = &saved
	return &saved, nil
}

func (m *memoryStore) GetByID(_ context.Context, id uuid.UUID) (*repository.Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, apperr.NotFound("appointment not found")
	}
	return a, nil
}

func (m *memoryStore) Update(_ context.Context, id uuid.UUID, status, location *string) error {
	a, ok := m.appts[id]
	if !ok {
		return apperr.NotFound("appointment not found")
	}
	if status != nil {
		a.Status = *status
	}
	if location != nil {
		a.Location = *location
	}
	return nil
}

func (m *memoryStore) ListBooked(_ context.Context, resourceID string, from, to time.Time) ([]repository.Appointment, error) {
	var out []repository.Appointment
	for _, a := range m.appts {
		if a.ResourceID == resourceID && a.Status != ports.AppointmentCancelled && a.StartTime.Before(to) && a.EndTime.After(from) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memoryStore) CreateAvailabilityRule(_ context.Context, rule repository.AvailabilityRule) (*repository.AvailabilityRule, error) {
	m.rules = append(m.rules, rule)
	return &rule, nil
}

func (m *memoryStore) ListAvailabilityRules(_ context.Context, resourceID string) ([]repository.AvailabilityRule, error) {
	var out []repository.AvailabilityRule
	for _, r := range m.rules {
		if resourceID == "" || r.ResourceID == resourceID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryStore) DeleteAvailabilityRule(_ context.Context, id uuid.UUID) error {
	return nil
}

func clock(h, m int) time.Time {
	return time.Date(0, 1, 1, h, m, 0, 0, time.UTC)
}

// Tuesdays 13:00-15:00 in New York.
func tuesdayAfternoons() repository.AvailabilityRule {
	return repository.AvailabilityRule{ID: uuid.New(), ResourceID: "res-mara", Weekday: int(time.Tuesday), StartTime: clock(13, 0), EndTime: clock(15, 0), Timezone: "America/New_York"}
}

func TestFreeSlotsFollowsRulesInTheirTimezone(t *testing.T) {
	svc := New(newMemoryStore(tuesdayAfternoons()))
	ny, _ := time.LoadLocation("America/New_York")
	from := time.Date(2024, time.December, 16, 0, 0, 0, 0, ny)
	to := from.AddDate(0, 0, 7)

	slots, err := svc.FreeSlots(context.Background(), "res-mara", from, to, 30*time.Minute)
	if err != nil {
		t.Fatalf("FreeSlots: %v", err)
	}
	if len(slots) != 4 {
		t.Fatalf("got %d slots, want 4", len(slots))
	}
	want := time.Date(2024, time.December, 17, 13, 0, 0, 0, ny)
	if !slots[0].Start.Equal(want) || !slots[3].End.Equal(want.Add(2*time.Hour)) {
		t.Fatalf("slots = %v", slots)
	}
}

func TestFreeSlotsSkipsBookedTimeAndClips(t *testing.T) {
	store := newMemoryStore(tuesdayAfternoons())
	svc := New(store)
	ny, _ := time.LoadLocation("America/New_York")
	booked := time.Date(2024, time.December, 17, 13, 30, 0, 0, ny)
	if _, err := svc.CreateAppointment(context.Background(), ports.AppointmentRequest{ResourceID: "res-mara", Start: booked, End: booked.Add(30 * time.Minute)}); err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}

	from := time.Date(2024, time.December, 17, 13, 15, 0, 0, ny)
	slots, err := svc.FreeSlots(context.Background(), "res-mara", from, from.AddDate(0, 0, 1), 30*time.Minute)
	if err != nil {
		t.Fatalf("FreeSlots: %v", err)
	}
	// 13:00 starts before the range and 13:30 is booked.
	if len(slots) != 2 || !slots[0].Start.Equal(booked.Add(30*time.Minute)) {
		t.Fatalf("slots = %v", slots)
	}
}

func TestFreeSlotsWithoutRules(t *testing.T) {
	svc := New(newMemoryStore())
	now := time.Now()
	slots, err := svc.FreeSlots(context.Background(), "res-x", now, now.Add(time.Hour), 30*time.Minute)
	if err != nil || len(slots) != 0 {
		t.Fatalf("got %v %v", slots, err)
	}
}

func TestCreateAppointmentRejectsOverlap(t *testing.T) {
	svc := New(newMemoryStore())
	start := time.Date(2024, time.December, 17, 18, 0, 0, 0, time.UTC)
	req := ports.AppointmentRequest{ResourceID: "res-mara", ContactID: "c1", Start: start, End: start.Add(30 * time.Minute)}

	appt, err := svc.CreateAppointment(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}
	if appt.Status != ports.AppointmentNew {
		t.Fatalf("status = %s", appt.Status)
	}
	if _, err := svc.CreateAppointment(context.Background(), req); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	if err := svc.CancelAppointment(context.Background(), appt.ID); err != nil {
		t.Fatalf("CancelAppointment: %v", err)
	}
	if err := svc.CancelAppointment(context.Background(), appt.ID); err != nil {
		t.Fatalf("second cancel should be a no-op: %v", err)
	}
	if _, err := svc.CreateAppointment(context.Background(), req); err != nil {
		t.Fatalf("cancelled time should be bookable: %v", err)
	}
}

func TestUpdateAppointment(t *testing.T) {
	store := newMemoryStore()
	svc := New(store)
	start := time.Date(2024, time.December, 17, 18, 0, 0, 0, time.UTC)
	appt, err := svc.CreateAppointment(context.Background(), ports.AppointmentRequest{ResourceID: "res-mara", Start: start, End: start.Add(time.Hour)})
	if err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}

	err = svc.UpdateAppointment(context.Background(), appt.ID, ports.AppointmentChange{Status: ports.AppointmentConfirmed, Location: "https://video.example/room"})
	if err != nil {
		t.Fatalf("UpdateAppointment: %v", err)
	}
	saved := store.appts[uuid.MustParse(appt.ID)]
	if saved.Status != ports.AppointmentConfirmed || saved.Location != "https://video.example/room" {
		t.Fatalf("saved = %+v", saved)
	}
	if err := svc.UpdateAppointment(context.Background(), appt.ID, ports.AppointmentChange{Status: "done"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := svc.UpdateAppointment(context.Background(), "not-a-uuid", ports.AppointmentChange{Status: ports.AppointmentConfirmed}); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateAvailabilityRuleValidatesTimes(t *testing.T) {
	svc := New(newMemoryStore())
	ctx := context.Background()

	rule, err := svc.CreateAvailabilityRule(ctx, transport.CreateAvailabilityRuleRequest{ResourceID: "res-mara", Weekday: 2, StartTime: "11:00", EndTime: "18:00", Timezone: "America/New_York"})
	if err != nil {
		t.Fatalf("CreateAvailabilityRule: %v", err)
	}
	if rule.StartTime != "11:00" || rule.EndTime != "18:00" {
		t.Fatalf("rule = %+v", rule)
	}

	bad := []transport.CreateAvailabilityRuleRequest{
		{ResourceID: "res-mara", StartTime: "18:00", EndTime: "11:00"},
		{ResourceID: "res-mara", StartTime: "9am", EndTime: "11:00"},
		{ResourceID: "res-mara", StartTime: "09:00", EndTime: "11:00", Timezone: "Mars/Olympus"},
	}
	for _, req := range bad {
		if _, err := svc.CreateAvailabilityRule(ctx, req); !apperr.Is(err, apperr.KindBadRequest) {
			t.Fatalf("%+v: expected bad request, got %v", req, err)
		}
	}
}
