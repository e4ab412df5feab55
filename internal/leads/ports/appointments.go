package ports

import (
	"context"
	"time"
)

// TimeRange is a free window on a calendar resource.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// AppointmentStatus values accepted by the calendar.
const (
	AppointmentNew       = "new"
	AppointmentConfirmed = "confirmed"
	AppointmentCancelled = "cancelled"
)

// AppointmentRequest books one consult on a calendar resource.
type AppointmentRequest struct {
	ResourceID string
	ContactID  string
	AssigneeID string
	Title      string
	Status     string
	Start      time.Time
	End        time.Time
}

// AppointmentChange updates an existing appointment. Empty fields are left unchanged.
type AppointmentChange struct {
	Status   string
	Location string
}

// Appointment is what the calendar returns after booking.
type Appointment struct {
	ID         string
	ResourceID string
	Status     string
	Start      time.Time
	End        time.Time
}

// Calendar is the scheduling system. FreeSlots returns windows of exactly
// duration length inside [from, to) that are not taken.
type Calendar interface {
	FreeSlots(ctx context.Context, resourceID string, from, to time.Time, duration time.Duration) ([]TimeRange, error)
	CreateAppointment(ctx context.Context, req AppointmentRequest) (Appointment, error)
	UpdateAppointment(ctx context.Context, appointmentID string, change AppointmentChange) error
	CancelAppointment(ctx context.Context, appointmentID string) error
}

// VideoLinks provisions a meeting link for an appointment consult.
type VideoLinks interface {
	CreateMeetingLink(ctx context.Context, appointmentID string) (string, error)
}
