package domain

// Canonical custom-field keys written by the engine.
const (
	FieldTattooSummary          = "tattoo_summary"
	FieldPlacement              = "tattoo_placement"
	FieldSize                   = "tattoo_size"
	FieldTimeline               = "timeline"
	FieldConsultMode            = "consult_mode"
	FieldTranslatorNeeded       = "translator_needed"
	FieldLanguage               = "language"
	FieldTattooNotes            = "tattoo_notes"
	FieldPreferredArtistID      = "preferred_artist_id"
	FieldDepositPaid            = "deposit_paid"
	FieldDepositLinkSent        = "deposit_link_sent"
	FieldDepositLinkURL         = "deposit_link_url"
	FieldDepositLinkStatus      = "deposit_link_status"
	FieldHoldAppointmentID      = "hold_appointment_id"
	FieldHoldTranslatorApptID   = "hold_translator_appointment_id"
	FieldHoldArtistID           = "hold_artist_id"
	FieldHoldStart              = "hold_start"
	FieldHoldEnd                = "hold_end"
	FieldHoldCreatedAt          = "hold_created_at"
	FieldHoldLastActivityAt     = "hold_last_activity_at"
	FieldHoldWarningSent        = "hold_warning_sent"
	FieldUpcomingAppointmentID  = "upcoming_appointment_id"
	FieldLastOfferedSlots       = "last_offered_slots"
	FieldVideoLink              = "consult_video_link"
	FieldPhase                  = "conversation_phase"
	FieldLastIntent             = "last_intent"
	FieldLastInboundChannel     = "last_inbound_channel"
	FieldTranslatorBookingState = "translator_booking_status"
	FieldPendingCancelIDs       = "pending_cancel_appointment_ids"
)

// Deposit link states stored in FieldDepositLinkStatus.
const (
	DepositLinkOK     = "ok"
	DepositLinkFailed = "failed"
)

// SizeArtistWillGuide is stored as the size when the lead defers sizing to the artist.
const SizeArtistWillGuide = "artist will guide"

// fieldAliases lists legacy keys per canonical key, in read priority order.
var fieldAliases = map[string][]string{
	FieldTattooSummary:         {"tattoo_idea", "summary", "tattoo_description"},
	FieldPlacement:             {"placement", "body_placement", "tattoo_location"},
	FieldSize:                  {"size", "approx_size", "tattoo_size_inches"},
	FieldTimeline:              {"tattoo_timeline", "when", "desired_timeline"},
	FieldConsultMode:           {"consultation_type", "consult_type"},
	FieldTranslatorNeeded:      {"needs_translator", "language_barrier"},
	FieldLanguage:              {"preferred_language", "lang"},
	FieldTattooNotes:           {"notes", "tattoo_style_notes"},
	FieldPreferredArtistID:     {"artist_preference", "requested_artist"},
	FieldDepositPaid:           {"deposit_status", "deposit_received"},
	FieldDepositLinkSent:       {"deposit_sent"},
	FieldDepositLinkURL:        {"deposit_url", "payment_link"},
	FieldHoldAppointmentID:     {"hold_id", "pending_appointment_id"},
	FieldUpcomingAppointmentID: {"appointment_id", "booked_appointment_id"},
	FieldLastOfferedSlots:      {"offered_slots", "last_slots"},
}

// FieldAliases returns the legacy keys that canonicalize to key.
func FieldAliases(key string) []string {
	return fieldAliases[key]
}

// lookupField returns the first non-empty value among key and its aliases.
func lookupField(fields map[string]string, key string) string {
	if v := Text(fields[key]); v.IsSet() {
		return v.OrElse("")
	}
	for _, alias := range fieldAliases[key] {
		if v := Text(fields[alias]); v.IsSet() {
			return v.OrElse("")
		}
	}
	return ""
}
