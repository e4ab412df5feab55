package ports

import (
	"context"

	"studio_sales_backend/internal/leads/domain"
)

// AssistantFocus tells the language model what kind of reply is wanted.
type AssistantFocus string

const (
	FocusGeneral        AssistantFocus = "general"
	FocusProcessOrPrice AssistantFocus = "process_or_price"
)

// AssistantObjection is the hesitation detected in the latest message.
type AssistantObjection struct {
	Category    string
	BeliefToFix string
	Reframe     string
}

// AssistantRequest is the structured context handed to the language model.
type AssistantRequest struct {
	Lead        domain.Lead
	State       domain.CanonicalState
	Phase       domain.Phase
	Focus       AssistantFocus
	Message     string
	History     []ConversationMessage
	Objection   *AssistantObjection
	DepositText string
}

// AssistantMeta carries requests from the model. The router treats them as
// suggestions and still applies its own precedence.
type AssistantMeta struct {
	WantsDepositLink      bool
	WantsAppointmentOffer bool
	HandoffToHuman        bool
}

// AssistantReply is free text plus meta flags.
type AssistantReply struct {
	Text string
	Meta AssistantMeta
}

// Assistant produces free-form replies for messages no deterministic route handles.
type Assistant interface {
	Reply(ctx context.Context, req AssistantRequest) (AssistantReply, error)
}
