// Package service turns availability rules and booked appointments into the
// calendar the slot engine and hold manager talk to.
package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"studio_sales_backend/internal/appointments/repository"
	"studio_sales_backend/internal/appointments/transport"
	"studio_sales_backend/internal/leads/ports"
	"studio_sales_backend/platform/apperr"

	"github.com/google/uuid"
)

const (
	clockFormat          = "15:04"
	defaultTimezone      = "UTC"
	errEndTimeAfterStart = "endTime must be after startTime"
)

// Store is the persistence the calendar needs.
type Store interface {
	Create(ctx context.Context, appt repository.Appointment) (*repository.Appointment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Appointment, error)
	Update(ctx context.Context, id uuid.UUID, status, location *string) error
	ListBooked(ctx context.Context, resourceID string, from, to time.Time) ([]repository.Appointment, error)
	CreateAvailabilityRule(ctx context.Context, rule repository.AvailabilityRule) (*repository.AvailabilityRule, error)
	ListAvailabilityRules(ctx context.Context, resourceID string) ([]repository.AvailabilityRule, error)
	DeleteAvailabilityRule(ctx context.Context, id uuid.UUID) error
}

// Service is the studio calendar.
type Service struct {
	repo Store
}

// New creates a calendar service.
func New(repo Store) *Service {
	return &Service{repo: repo}
}

var _ ports.Calendar = (*Service)(nil)

// FreeSlots returns windows of the given duration inside [from, to) that the
// resource's weekly rules open and no live appointment overlaps.
func (s *Service) FreeSlots(ctx context.Context, resourceID string, from, to time.Time, duration time.Duration) ([]ports.TimeRange, error) {
	if duration <= 0 {
		return nil, apperr.Validation("slot duration must be positive")
	}
	if !to.After(from) {
		return nil, nil
	}
	rules, err := s.repo.ListAvailabilityRules(ctx, resourceID)
	if err != nil {
		return nil, apperr.Unavailable("calendar", err)
	}
	if len(rules) == 0 {
		return nil, nil
	}
	booked, err := s.repo.ListBooked(ctx, resourceID, from, to)
	if err != nil {
		return nil, apperr.Unavailable("calendar", err)
	}
	return generateFreeSlots(from, to, rules, booked, duration), nil
}

// generateFreeSlots walks every calendar day touching [from, to), opening each
// rule in its own timezone, then clips to the range.
func generateFreeSlots(from, to time.Time, rules []repository.AvailabilityRule, booked []repository.Appointment, duration time.Duration) []ports.TimeRange {
	var out []ports.TimeRange
	seen := map[int64]bool{}
	first := from.UTC().AddDate(0, 0, -1)
	last := to.UTC().AddDate(0, 0, 1)
	for d := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, time.UTC); !d.After(last); d = d.AddDate(0, 0, 1) {
		for _, rule := range rules {
			loc := ruleLocation(rule.Timezone)
			day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
			if int(day.Weekday()) != rule.Weekday {
				continue
			}
			windowStart := time.Date(day.Year(), day.Month(), day.Day(), rule.StartTime.Hour(), rule.StartTime.Minute(), 0, 0, loc)
			windowEnd := time.Date(day.Year(), day.Month(), day.Day(), rule.EndTime.Hour(), rule.EndTime.Minute(), 0, 0, loc)
			for _, slot := range generateSlotsForWindow(windowStart.UTC(), windowEnd.UTC(), duration, booked) {
				if slot.Start.Before(from) || slot.End.After(to) || seen[slot.Start.Unix()] {
					continue
				}
				seen[slot.Start.Unix()] = true
				out = append(out, slot)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// generateSlotsForWindow cuts a window (UTC) into back-to-back slots, skipping
// any that overlap an appointment.
func generateSlotsForWindow(windowStart, windowEnd time.Time, duration time.Duration, booked []repository.Appointment) []ports.TimeRange {
	var slots []ports.TimeRange
	for slotStart := windowStart; !slotStart.Add(duration).After(windowEnd); slotStart = slotStart.Add(duration) {
		slotEnd := slotStart.Add(duration)

		conflicts := false
		for _, appt := range booked {
			if slotStart.Before(appt.EndTime) && slotEnd.After(appt.StartTime) {
				conflicts = true
				break
			}
		}
		if !conflicts {
			slots = append(slots, ports.TimeRange{Start: slotStart, End: slotEnd})
		}
	}
	return slots
}

func ruleLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CreateAppointment books a resource. A live overlapping appointment is a conflict.
func (s *Service) CreateAppointment(ctx context.Context, req ports.AppointmentRequest) (ports.Appointment, error) {
	if strings.TrimSpace(req.ResourceID) == "" {
		return ports.Appointment{}, apperr.Validation("resource is required")
	}
	if !req.End.After(req.Start) {
		return ports.Appointment{}, apperr.Validation(errEndTimeAfterStart)
	}
	status := req.Status
	if status == "" {
		status = ports.AppointmentNew
	}
	if !validStatus(status) {
		return ports.Appointment{}, apperr.Validation("unknown appointment status")
	}

	overlapping, err := s.repo.ListBooked(ctx, req.ResourceID, req.Start, req.End)
	if err != nil {
		return ports.Appointment{}, apperr.Unavailable("calendar", err)
	}
	if len(overlapping) > 0 {
		return ports.Appointment{}, apperr.Conflict("time is no longer available")
	}

	saved, err := s.repo.Create(ctx, repository.Appointment{
		ID:         uuid.New(),
		ResourceID: req.ResourceID,
		ContactID:  req.ContactID,
		AssigneeID: req.AssigneeID,
		Title:      req.Title,
		Status:     status,
		StartTime:  req.Start.UTC(),
		EndTime:    req.End.UTC(),
	})
	if err != nil {
		return ports.Appointment{}, apperr.Unavailable("calendar", err)
	}
	return toPort(saved), nil
}

// UpdateAppointment changes status and/or location.
func (s *Service) UpdateAppointment(ctx context.Context, appointmentID string, change ports.AppointmentChange) error {
	id, err := uuid.Parse(appointmentID)
	if err != nil {
		return apperr.NotFound("appointment not found")
	}
	var status, location *string
	if change.Status != "" {
		if !validStatus(change.Status) {
			return apperr.Validation("unknown appointment status")
		}
		status = &change.Status
	}
	if change.Location != "" {
		location = &change.Location
	}
	if status == nil && location == nil {
		return nil
	}
	return s.repo.Update(ctx, id, status, location)
}

// CancelAppointment frees the time. Cancelling twice is a no-op.
func (s *Service) CancelAppointment(ctx context.Context, appointmentID string) error {
	id, err := uuid.Parse(appointmentID)
	if err != nil {
		return apperr.NotFound("appointment not found")
	}
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if appt.Status == ports.AppointmentCancelled {
		return nil
	}
	status := ports.AppointmentCancelled
	return s.repo.Update(ctx, id, &status, nil)
}

func validStatus(status string) bool {
	switch status {
	case ports.AppointmentNew, ports.AppointmentConfirmed, ports.AppointmentCancelled:
		return true
	}
	return false
}

func toPort(a *repository.Appointment) ports.Appointment {
	return ports.Appointment{
		ID:         a.ID.String(),
		ResourceID: a.ResourceID,
		Status:     a.Status,
		Start:      a.StartTime,
		End:        a.EndTime,
	}
}

// CreateAvailabilityRule validates and stores a weekly window.
func (s *Service) CreateAvailabilityRule(ctx context.Context, req transport.CreateAvailabilityRuleRequest) (*transport.AvailabilityRuleResponse, error) {
	start, end, timezone, err := parseAvailabilityTimes(req.StartTime, req.EndTime, req.Timezone)
	if err != nil {
		return nil, err
	}
	saved, err := s.repo.CreateAvailabilityRule(ctx, repository.AvailabilityRule{
		ID:         uuid.New(),
		ResourceID: req.ResourceID,
		Weekday:    req.Weekday,
		StartTime:  start,
		EndTime:    end,
		Timezone:   timezone,
	})
	if err != nil {
		return nil, err
	}
	return mapAvailabilityRule(saved), nil
}

func (s *Service) ListAvailabilityRules(ctx context.Context, resourceID string) ([]transport.AvailabilityRuleResponse, error) {
	rules, err := s.repo.ListAvailabilityRules(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.AvailabilityRuleResponse, 0, len(rules))
	for i := range rules {
		out = append(out, *mapAvailabilityRule(&rules[i]))
	}
	return out, nil
}

func (s *Service) DeleteAvailabilityRule(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteAvailabilityRule(ctx, id)
}

func parseAvailabilityTimes(startTime string, endTime string, timezone string) (time.Time, time.Time, string, error) {
	start, err := time.Parse(clockFormat, startTime)
	if err != nil {
		return time.Time{}, time.Time{}, "", apperr.BadRequest("invalid startTime format")
	}
	end, err := time.Parse(clockFormat, endTime)
	if err != nil {
		return time.Time{}, time.Time{}, "", apperr.BadRequest("invalid endTime format")
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, "", apperr.BadRequest(errEndTimeAfterStart)
	}
	if timezone == "" {
		timezone = defaultTimezone
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return time.Time{}, time.Time{}, "", apperr.BadRequest("unknown timezone")
	}
	return start, end, timezone, nil
}

func mapAvailabilityRule(rule *repository.AvailabilityRule) *transport.AvailabilityRuleResponse {
	return &transport.AvailabilityRuleResponse{
		ID:         rule.ID,
		ResourceID: rule.ResourceID,
		Weekday:    rule.Weekday,
		StartTime:  rule.StartTime.Format(clockFormat),
		EndTime:    rule.EndTime.Format(clockFormat),
		Timezone:   rule.Timezone,
		CreatedAt:  rule.CreatedAt,
	}
}

// GetFreeSlots serves the admin view of a resource's open windows.
func (s *Service) GetFreeSlots(ctx context.Context, req transport.FreeSlotsRequest) (*transport.FreeSlotsResponse, error) {
	minutes := req.Minutes
	if minutes == 0 {
		minutes = 30
	}
	windows, err := s.FreeSlots(ctx, req.ResourceID, req.From, req.To, time.Duration(minutes)*time.Minute)
	if err != nil {
		return nil, err
	}
	resp := &transport.FreeSlotsResponse{ResourceID: req.ResourceID, Slots: make([]transport.TimeSlot, 0, len(windows))}
	for _, w := range windows {
		resp.Slots = append(resp.Slots, transport.TimeSlot{StartTime: w.Start, EndTime: w.End})
	}
	return resp, nil
}
