// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"studio_sales_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Conversation Events
// =============================================================================

// InboundMessageHandled is published after one inbound pass finished.
type InboundMessageHandled struct {
	BaseEvent
	ContactID string `json:"contactId"`
	MessageID string `json:"messageId"`
	Route     string `json:"route"`
	Marker    string `json:"marker,omitempty"`
	Phase     string `json:"phase"`
	Replied   bool   `json:"replied"`
}

func (e InboundMessageHandled) EventName() string { return "leads.inbound.handled" }

// HandoffRequested is published when the assistant asks for a human to take over.
type HandoffRequested struct {
	BaseEvent
	ContactID string `json:"contactId"`
	Message   string `json:"message"`
}

func (e HandoffRequested) EventName() string { return "leads.handoff.requested" }

// =============================================================================
// Hold Events
// =============================================================================

// HoldCreated is published when a slot was reserved for a lead.
type HoldCreated struct {
	BaseEvent
	ContactID     string    `json:"contactId"`
	AppointmentID string    `json:"appointmentId"`
	ArtistID      string    `json:"artistId"`
	Start         time.Time `json:"start"`
	DepositPaid   bool      `json:"depositPaid"`
}

func (e HoldCreated) EventName() string { return "holds.created" }

// HoldConfirmed is published when the deposit confirmed a hold.
type HoldConfirmed struct {
	BaseEvent
	ContactID     string `json:"contactId"`
	AppointmentID string `json:"appointmentId"`
}

func (e HoldConfirmed) EventName() string { return "holds.confirmed" }

// HoldCancelled is published when a hold or booked consult was released.
type HoldCancelled struct {
	BaseEvent
	ContactID     string `json:"contactId"`
	AppointmentID string `json:"appointmentId"`
	Reason        string `json:"reason"`
}

func (e HoldCancelled) EventName() string { return "holds.cancelled" }

// HoldExpiryWarningSent is published once per hold before it expires.
type HoldExpiryWarningSent struct {
	BaseEvent
	ContactID     string `json:"contactId"`
	AppointmentID string `json:"appointmentId"`
}

func (e HoldExpiryWarningSent) EventName() string { return "holds.expiry_warning_sent" }

// DepositLinkFailed is published when the payment provider could not create a link.
type DepositLinkFailed struct {
	BaseEvent
	ContactID     string `json:"contactId"`
	AppointmentID string `json:"appointmentId"`
	Error         string `json:"error"`
}

func (e DepositLinkFailed) EventName() string { return "holds.deposit_link_failed" }
