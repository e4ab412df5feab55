package domain

import (
	"errors"
	"time"
)

// HoldStatus mirrors the calendar appointment status of a hold.
type HoldStatus string

const (
	HoldNew       HoldStatus = "new"
	HoldConfirmed HoldStatus = "confirmed"
	HoldCancelled HoldStatus = "cancelled"
)

// ErrInvalidHoldTransition is returned for any move not in the state machine.
var ErrInvalidHoldTransition = errors.New("invalid hold transition")

// Hold is a tentative appointment awaiting the consult deposit.
type Hold struct {
	ID                      string
	ContactID               string
	ArtistID                string
	TranslatorAppointmentID string
	Start                   time.Time
	End                     time.Time
	Status                  HoldStatus
	CreatedAt               time.Time
	LastActivityAt          time.Time
	WarningSent             bool
}

// CanTransition encodes NEW→CONFIRMED, NEW→CANCELLED, CONFIRMED→CANCELLED.
// CANCELLED is terminal.
func CanTransition(from, to HoldStatus) bool {
	switch from {
	case HoldNew:
		return to == HoldConfirmed || to == HoldCancelled
	case HoldConfirmed:
		return to == HoldCancelled
	}
	return false
}

// Transition returns h in status to, or ErrInvalidHoldTransition.
func (h Hold) Transition(to HoldStatus) (Hold, error) {
	if !CanTransition(h.Status, to) {
		return h, ErrInvalidHoldTransition
	}
	h.Status = to
	return h, nil
}

// HoldFromState rebuilds the open hold linked to a lead, if any.
func HoldFromState(contactID string, s CanonicalState) (Hold, bool) {
	id, ok := s.HoldAppointmentID.Get()
	if !ok {
		return Hold{}, false
	}
	created := s.HoldCreatedAt.OrElse(time.Time{})
	return Hold{
		ID:                      id,
		ContactID:               contactID,
		ArtistID:                s.HoldArtistID.OrElse(""),
		TranslatorAppointmentID: s.HoldTranslatorApptID.OrElse(""),
		Start:                   s.HoldStart.OrElse(time.Time{}),
		End:                     s.HoldEnd.OrElse(time.Time{}),
		Status:                  HoldNew,
		CreatedAt:               created,
		LastActivityAt:          s.HoldLastActivityAt.OrElse(created),
		WarningSent:             s.HoldWarningSent,
	}, true
}

// ExpiryAction is what the sweep must do with a hold right now.
type ExpiryAction int

const (
	ExpiryNone ExpiryAction = iota
	ExpiryWarn
	ExpiryRelease
)

// EvaluateExpiry measures elapsed time since the hold was created (last
// activity when the creation stamp is missing). A hold at or past ttl is
// released; inside the final warning window a single warning is due.
func EvaluateExpiry(h Hold, now time.Time, ttl, warningWindow time.Duration) ExpiryAction {
	if h.Status != HoldNew {
		return ExpiryNone
	}
	anchor := h.CreatedAt
	if anchor.IsZero() {
		anchor = h.LastActivityAt
	}
	if anchor.IsZero() {
		return ExpiryNone
	}
	elapsed := now.Sub(anchor)
	switch {
	case elapsed >= ttl:
		return ExpiryRelease
	case elapsed >= ttl-warningWindow && !h.WarningSent:
		return ExpiryWarn
	}
	return ExpiryNone
}
