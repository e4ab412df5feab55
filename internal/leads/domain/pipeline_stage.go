package domain

// Pipeline stages of the studio's sales opportunity board. The consult and
// booking stages carry workload weight for artist balancing.
const (
	PipelineStageNewLead            = "New_Lead"
	PipelineStageQualifying         = "Qualifying"
	PipelineStageMessageConsult     = "Message_Consult"
	PipelineStageAppointmentConsult = "Appointment_Consult"
	PipelineStageDepositPending     = "Deposit_Pending"
	PipelineStageTattooBooked       = "Tattoo_Booked"
	PipelineStageManualIntervention = "Manual_Intervention"
	PipelineStageLost               = "Lost"
)

var knownPipelineStages = map[string]struct{}{
	PipelineStageNewLead:            {},
	PipelineStageQualifying:         {},
	PipelineStageMessageConsult:     {},
	PipelineStageAppointmentConsult: {},
	PipelineStageDepositPending:     {},
	PipelineStageTattooBooked:       {},
	PipelineStageManualIntervention: {},
	PipelineStageLost:               {},
}

func IsKnownPipelineStage(stage string) bool {
	_, ok := knownPipelineStages[stage]
	return ok
}

// StageForPhase maps a conversation phase onto the board. Phases that do not
// move the opportunity return "".
func StageForPhase(p Phase, mode ConsultMode) string {
	switch p {
	case PhaseIntake, PhaseDiscovery:
		return PipelineStageNewLead
	case PhaseQualification, PhaseConsultPath:
		return PipelineStageQualifying
	case PhaseScheduling:
		if mode == ConsultModeMessage {
			return PipelineStageMessageConsult
		}
		return PipelineStageAppointmentConsult
	case PhaseDepositPending:
		return PipelineStageDepositPending
	case PhaseQualified, PhaseBooked:
		return PipelineStageTattooBooked
	}
	return ""
}
