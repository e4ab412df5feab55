package domain

import (
	"strings"
	"time"
)

// ConsultMode is how the pre-tattoo consult happens.
type ConsultMode string

const (
	ConsultModeMessage     ConsultMode = "message"
	ConsultModeAppointment ConsultMode = "appointment"
)

// ParseConsultMode accepts the stored value or common synonyms.
func ParseConsultMode(raw string) (ConsultMode, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "message", "messages", "text", "chat", "dm", "message_consult":
		return ConsultModeMessage, true
	case "appointment", "video", "video_call", "call", "zoom", "phone", "in_person", "appointment_consult":
		return ConsultModeAppointment, true
	}
	return "", false
}

// CanonicalState is the normalized view of a lead's custom fields.
type CanonicalState struct {
	Summary               Optional[string]
	Placement             Optional[string]
	Size                  Optional[string]
	Timeline              Optional[string]
	ConsultMode           Optional[ConsultMode]
	TranslatorNeeded      bool
	Language              Optional[string]
	TattooNotes           Optional[string]
	PreferredArtistID     Optional[string]
	DepositPaid           bool
	DepositLinkSent       bool
	DepositLinkURL        Optional[string]
	DepositLinkFailed     bool
	HoldAppointmentID     Optional[string]
	HoldTranslatorApptID  Optional[string]
	HoldArtistID          Optional[string]
	HoldStart             Optional[time.Time]
	HoldEnd               Optional[time.Time]
	HoldCreatedAt         Optional[time.Time]
	HoldLastActivityAt    Optional[time.Time]
	HoldWarningSent       bool
	UpcomingAppointmentID Optional[string]
	LastOfferedSlots      []Slot
	VideoLink             Optional[string]
	PendingCancelIDs      []string
}

// Canonicalize reads lead fields through the alias table. Missing, empty and
// whitespace-only values are absent; booleans accept yes/true/1 and friends.
func Canonicalize(fields map[string]string) CanonicalState {
	get := func(key string) string { return lookupField(fields, key) }

	s := CanonicalState{
		Summary:               Text(get(FieldTattooSummary)),
		Placement:             Text(get(FieldPlacement)),
		Size:                  Text(get(FieldSize)),
		Timeline:              Text(get(FieldTimeline)),
		TranslatorNeeded:      parseBool(get(FieldTranslatorNeeded)),
		Language:              Text(get(FieldLanguage)),
		TattooNotes:           Text(get(FieldTattooNotes)),
		PreferredArtistID:     Text(get(FieldPreferredArtistID)),
		DepositPaid:           parseBool(get(FieldDepositPaid)),
		DepositLinkSent:       parseBool(get(FieldDepositLinkSent)),
		DepositLinkURL:        Text(get(FieldDepositLinkURL)),
		DepositLinkFailed:     strings.EqualFold(get(FieldDepositLinkStatus), DepositLinkFailed),
		HoldAppointmentID:     Text(get(FieldHoldAppointmentID)),
		HoldTranslatorApptID:  Text(get(FieldHoldTranslatorApptID)),
		HoldArtistID:          Text(get(FieldHoldArtistID)),
		HoldStart:             parseTime(get(FieldHoldStart)),
		HoldEnd:               parseTime(get(FieldHoldEnd)),
		HoldCreatedAt:         parseTime(get(FieldHoldCreatedAt)),
		HoldLastActivityAt:    parseTime(get(FieldHoldLastActivityAt)),
		HoldWarningSent:       parseBool(get(FieldHoldWarningSent)),
		UpcomingAppointmentID: Text(get(FieldUpcomingAppointmentID)),
		LastOfferedSlots:      DecodeSlots(get(FieldLastOfferedSlots)),
		VideoLink:             Text(get(FieldVideoLink)),
		PendingCancelIDs:      splitIDs(get(FieldPendingCancelIDs)),
	}
	if mode, ok := ParseConsultMode(get(FieldConsultMode)); ok {
		s.ConsultMode = Some(mode)
	}
	return s
}

// HasSize treats "the artist will guide sizing" as a size answer.
func (s CanonicalState) HasSize() bool {
	return s.Size.IsSet()
}

// HasOpenHold reports whether an unconfirmed hold is linked to the lead.
func (s CanonicalState) HasOpenHold() bool {
	return s.HoldAppointmentID.IsSet()
}

func splitIDs(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "y", "1", "paid", "sent", "received", "needed":
		return true
	}
	return false
}

// FormatBool is the stored form of a boolean field.
func FormatBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func parseTime(raw string) Optional[time.Time] {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return None[time.Time]()
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return None[time.Time]()
	}
	return Some(t)
}

// FormatTime is the stored form of a timestamp field.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
