package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Slot is a bookable consult window for one artist, optionally paired with
// an interpreter.
type Slot struct {
	Start                time.Time `json:"start"`
	End                  time.Time `json:"end"`
	ArtistID             string    `json:"artistId"`
	ResourceID           string    `json:"resourceId,omitempty"`
	TranslatorID         string    `json:"translatorId,omitempty"`
	TranslatorResourceID string    `json:"translatorResourceId,omitempty"`
	Display              string    `json:"display,omitempty"`
}

// Key identifies a slot by start instant.
func (s Slot) Key() int64 {
	return s.Start.Unix()
}

// FormatSlot renders a slot the way leads see it, e.g. "Fri Dec 20 5pm".
func FormatSlot(start time.Time, loc *time.Location) string {
	if loc != nil {
		start = start.In(loc)
	}
	hour := start.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	suffix := "am"
	if start.Hour() >= 12 {
		suffix = "pm"
	}
	clock := fmt.Sprintf("%d%s", hour, suffix)
	if start.Minute() != 0 {
		clock = fmt.Sprintf("%d:%02d%s", hour, start.Minute(), suffix)
	}
	return fmt.Sprintf("%s %s", start.Format("Mon Jan 2"), clock)
}

// EncodeSlots serializes offered slots for the last_offered_slots field.
func EncodeSlots(slots []Slot) string {
	if len(slots) == 0 {
		return ""
	}
	raw, err := json.Marshal(slots)
	if err != nil {
		return ""
	}
	return string(raw)
}

// DecodeSlots reads the last_offered_slots field. Unreadable values decode as
// no slots so the lead is simply re-offered.
func DecodeSlots(raw string) []Slot {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var slots []Slot
	if err := json.Unmarshal([]byte(raw), &slots); err != nil {
		return nil
	}
	return slots
}
