package domain

import (
	"testing"
	"time"
)

func fullIntake() map[string]string {
	return map[string]string{
		FieldTattooSummary: "fine line peony",
		FieldPlacement:     "forearm",
		FieldSize:          "palm sized",
		FieldTimeline:      "next month",
	}
}

func with(base map[string]string, kv ...string) map[string]string {
	out := make(map[string]string, len(base)+len(kv)/2)
	for k, v := range base {
		out[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = kv[i+1]
	}
	return out
}

func TestDerivePhaseLadder(t *testing.T) {
	offered := EncodeSlots([]Slot{{Start: time.Date(2026, 12, 20, 22, 0, 0, 0, time.UTC), ArtistID: "mara"}})

	cases := []struct {
		name   string
		fields map[string]string
		want   Phase
	}{
		{"empty lead", map[string]string{}, PhaseIntake},
		{"summary only", map[string]string{FieldTattooSummary: "rose"}, PhaseIntake},
		{"placement without summary", map[string]string{FieldPlacement: "calf"}, PhaseDiscovery},
		{"no timeline", with(fullIntake(), FieldTimeline, ""), PhaseQualification},
		{"artist will guide counts as size", with(fullIntake(), FieldSize, SizeArtistWillGuide, FieldTimeline, ""), PhaseQualification},
		{"missing size", with(fullIntake(), FieldSize, "", FieldTimeline, ""), PhaseDiscovery},
		{"needs consult path", fullIntake(), PhaseConsultPath},
		{"slots offered", with(fullIntake(), FieldConsultMode, "appointment", FieldLastOfferedSlots, offered), PhaseScheduling},
		{"hold active", with(fullIntake(), FieldConsultMode, "message", FieldHoldAppointmentID, "appt-1"), PhaseDepositPending},
		{"link sent unpaid", with(fullIntake(), FieldConsultMode, "appointment", FieldDepositLinkSent, "true"), PhaseDepositPending},
		{"paid no appointment", with(fullIntake(), FieldConsultMode, "appointment", FieldDepositPaid, "yes"), PhaseQualified},
		{"paid and booked", with(fullIntake(), FieldConsultMode, "appointment", FieldDepositPaid, "true", FieldUpcomingAppointmentID, "appt-9"), PhaseBooked},
		{"consult mode, nothing pending", with(fullIntake(), FieldConsultMode, "appointment"), PhaseDiscovery},
		{"legacy aliases", map[string]string{"tattoo_idea": "koi", "body_placement": "back", "size": "large", "tattoo_timeline": "summer", "consultation_type": "video", "hold_id": "h1"}, PhaseDepositPending},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DerivePhase(Canonicalize(tc.fields))
			if got != tc.want {
				t.Fatalf("DerivePhase = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestDerivePhaseIsTotal(t *testing.T) {
	keys := []string{FieldTattooSummary, FieldPlacement, FieldSize, FieldTimeline, FieldConsultMode, FieldDepositPaid, FieldDepositLinkSent, FieldHoldAppointmentID, FieldUpcomingAppointmentID}
	values := map[string]string{
		FieldTattooSummary: "x", FieldPlacement: "x", FieldSize: "x", FieldTimeline: "x",
		FieldConsultMode: "message", FieldDepositPaid: "true", FieldDepositLinkSent: "true",
		FieldHoldAppointmentID: "h", FieldUpcomingAppointmentID: "u",
	}
	known := map[Phase]bool{
		PhaseIntake: true, PhaseDiscovery: true, PhaseQualification: true, PhaseConsultPath: true,
		PhaseScheduling: true, PhaseDepositPending: true, PhaseQualified: true, PhaseBooked: true,
	}

	for mask := 0; mask < 1<<len(keys); mask++ {
		fields := map[string]string{}
		for i, k := range keys {
			if mask&(1<<i) != 0 {
				fields[k] = values[k]
			}
		}
		if p := DerivePhase(Canonicalize(fields)); !known[p] {
			t.Fatalf("mask %b produced unknown phase %q", mask, p)
		}
	}
}

func TestStageForPhase(t *testing.T) {
	if StageForPhase(PhaseScheduling, ConsultModeMessage) != PipelineStageMessageConsult {
		t.Fatal("message consult scheduling maps to Message_Consult")
	}
	if StageForPhase(PhaseScheduling, ConsultModeAppointment) != PipelineStageAppointmentConsult {
		t.Fatal("appointment consult scheduling maps to Appointment_Consult")
	}
	if !IsKnownPipelineStage(StageForPhase(PhaseBooked, "")) {
		t.Fatal("booked maps to a known stage")
	}
}
