package domain

import (
	"testing"
	"time"
)

func TestCanonicalizePrefersCanonicalKeyOverAliases(t *testing.T) {
	s := Canonicalize(map[string]string{
		FieldPlacement:   "  ",
		"placement":      "",
		"body_placement": "upper arm",
		"tattoo_location": "ignored",
	})
	if got := s.Placement.OrElse(""); got != "upper arm" {
		t.Fatalf("placement = %q, want first non-empty alias", got)
	}

	s = Canonicalize(map[string]string{FieldPlacement: "ribs", "placement": "calf"})
	if got := s.Placement.OrElse(""); got != "ribs" {
		t.Fatalf("canonical key must win, got %q", got)
	}
}

func TestCanonicalizeWhitespaceIsAbsent(t *testing.T) {
	s := Canonicalize(map[string]string{FieldTattooSummary: " \t\n", FieldTimeline: ""})
	if s.Summary.IsSet() || s.Timeline.IsSet() {
		t.Fatal("whitespace-only and empty values must be absent")
	}
}

func TestCanonicalizeTypedFields(t *testing.T) {
	created := time.Date(2026, 12, 1, 15, 0, 0, 0, time.UTC)
	s := Canonicalize(map[string]string{
		"consult_type":         "Video",
		"needs_translator":     "yes",
		FieldDepositPaid:       "no",
		FieldHoldCreatedAt:     FormatTime(created),
		FieldDepositLinkStatus: "FAILED",
		FieldLastOfferedSlots:  "not json",
	})
	if mode, _ := s.ConsultMode.Get(); mode != ConsultModeAppointment {
		t.Fatalf("consult mode = %q", mode)
	}
	if !s.TranslatorNeeded || s.DepositPaid || !s.DepositLinkFailed {
		t.Fatalf("unexpected booleans: %+v", s)
	}
	if got, _ := s.HoldCreatedAt.Get(); !got.Equal(created) {
		t.Fatalf("hold created at = %v", got)
	}
	if s.LastOfferedSlots != nil {
		t.Fatal("unreadable offered slots decode as none")
	}
}

func TestFieldUpdateDropClearsAliases(t *testing.T) {
	u := NewFieldUpdate().Drop(FieldHoldAppointmentID).Put(FieldDepositPaid, "true")
	out := u.Apply(map[string]string{"hold_id": "h1", FieldHoldAppointmentID: "h1", "other": "keep"})
	if _, ok := out["hold_id"]; ok {
		t.Fatal("alias must be cleared with its canonical key")
	}
	if out["other"] != "keep" || out[FieldDepositPaid] != "true" {
		t.Fatalf("unexpected result %v", out)
	}
	if Canonicalize(out).HasOpenHold() {
		t.Fatal("hold must not survive the clear")
	}
}

func TestFormatSlot(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	start := time.Date(2026, 12, 18, 17, 0, 0, 0, loc)
	if got := FormatSlot(start, loc); got != "Fri Dec 18 5pm" {
		t.Fatalf("FormatSlot = %q", got)
	}
	if got := FormatSlot(start.Add(30*time.Minute), loc); got != "Fri Dec 18 5:30pm" {
		t.Fatalf("FormatSlot = %q", got)
	}
}
