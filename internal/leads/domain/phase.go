package domain

// Phase is the conversation stage derived from a lead's canonical fields.
// It is never authoritative; it is recomputed on every pass.
type Phase string

const (
	PhaseIntake         Phase = "INTAKE"
	PhaseDiscovery      Phase = "DISCOVERY"
	PhaseQualification  Phase = "QUALIFICATION"
	PhaseConsultPath    Phase = "CONSULT_PATH"
	PhaseScheduling     Phase = "SCHEDULING"
	PhaseDepositPending Phase = "DEPOSIT_PENDING"
	PhaseQualified      Phase = "QUALIFIED"
	PhaseBooked         Phase = "BOOKED"
)

type phaseRung struct {
	phase Phase
	when  func(CanonicalState) bool
}

func intakeComplete(s CanonicalState) bool {
	return s.Summary.IsSet() && s.Placement.IsSet() && s.HasSize()
}

func consultReady(s CanonicalState) bool {
	return intakeComplete(s) && s.Timeline.IsSet() && s.ConsultMode.IsSet()
}

// phaseLadder is evaluated top to bottom; the first matching rung wins.
var phaseLadder = []phaseRung{
	{PhaseIntake, func(s CanonicalState) bool {
		return !s.Placement.IsSet()
	}},
	{PhaseQualification, func(s CanonicalState) bool {
		return intakeComplete(s) && !s.Timeline.IsSet()
	}},
	{PhaseConsultPath, func(s CanonicalState) bool {
		return intakeComplete(s) && s.Timeline.IsSet() && !s.ConsultMode.IsSet()
	}},
	{PhaseScheduling, func(s CanonicalState) bool {
		return consultReady(s) && len(s.LastOfferedSlots) > 0
	}},
	{PhaseDepositPending, func(s CanonicalState) bool {
		return consultReady(s) && (s.HoldAppointmentID.IsSet() || (s.DepositLinkSent && !s.DepositPaid))
	}},
	{PhaseQualified, func(s CanonicalState) bool {
		return s.DepositPaid && !s.UpcomingAppointmentID.IsSet()
	}},
	{PhaseBooked, func(s CanonicalState) bool {
		return s.DepositPaid && s.UpcomingAppointmentID.IsSet()
	}},
}

// DerivePhase is total: every state maps to exactly one phase.
func DerivePhase(s CanonicalState) Phase {
	for _, rung := range phaseLadder {
		if rung.when(s) {
			return rung.phase
		}
	}
	return PhaseDiscovery
}
