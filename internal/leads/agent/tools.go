package agent

import (
	"sync"

	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"studio_sales_backend/internal/leads/ports"
)

// ToolInput carries the model's stated reason, kept for logs.
type ToolInput struct {
	Reason string `json:"reason,omitempty"`
}

// ToolAck is returned to the model so it knows the request was noted.
type ToolAck struct {
	Noted   bool   `json:"noted"`
	Message string `json:"message"`
}

type metaRecorder struct {
	mu   sync.Mutex
	meta ports.AssistantMeta
}

func (m *metaRecorder) snapshot() ports.AssistantMeta {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meta
}

func (m *metaRecorder) requestDepositLink(_ tool.Context, _ ToolInput) (ToolAck, error) {
	m.mu.Lock()
	m.meta.WantsDepositLink = true
	m.mu.Unlock()
	return ToolAck{Noted: true, Message: "The studio will send the deposit link. Do not write a link yourself."}, nil
}

func (m *metaRecorder) requestAppointmentOffer(_ tool.Context, _ ToolInput) (ToolAck, error) {
	m.mu.Lock()
	m.meta.WantsAppointmentOffer = true
	m.mu.Unlock()
	return ToolAck{Noted: true, Message: "The studio will send available times. Do not invent times."}, nil
}

func (m *metaRecorder) handoffToHuman(_ tool.Context, _ ToolInput) (ToolAck, error) {
	m.mu.Lock()
	m.meta.HandoffToHuman = true
	m.mu.Unlock()
	return ToolAck{Noted: true, Message: "A team member will follow up."}, nil
}

func buildTools(rec *metaRecorder) ([]tool.Tool, error) {
	deposit, err := functiontool.New(functiontool.Config{
		Name:        "RequestDepositLink",
		Description: "Call when the lead is ready to pay the deposit or asks how to pay it.",
	}, rec.requestDepositLink)
	if err != nil {
		return nil, err
	}
	offer, err := functiontool.New(functiontool.Config{
		Name:        "RequestAppointmentOffer",
		Description: "Call when the lead wants to see available consultation times.",
	}, rec.requestAppointmentOffer)
	if err != nil {
		return nil, err
	}
	handoff, err := functiontool.New(functiontool.Config{
		Name:        "HandoffToHuman",
		Description: "Call when the lead asks for a person, is upset, or the question needs an artist's judgement.",
	}, rec.handoffToHuman)
	if err != nil {
		return nil, err
	}
	return []tool.Tool{deposit, offer, handoff}, nil
}
