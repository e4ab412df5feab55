// Package agent answers free-form lead messages through a language model.
// It only produces text and meta flags; the router decides what happens.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"studio_sales_backend/internal/leads/ports"
	"studio_sales_backend/platform/ai/moonshot"
	"studio_sales_backend/platform/apperr"
	"studio_sales_backend/platform/config"
	"studio_sales_backend/platform/logger"
)

const appName = "studio_sales_assistant"

// SalesAssistant implements ports.Assistant on top of an ADK llmagent.
type SalesAssistant struct {
	llm            model.LLM
	sessionService session.Service
	log            *logger.Logger
}

var _ ports.Assistant = (*SalesAssistant)(nil)

// New builds the assistant around the configured Moonshot model.
func New(cfg config.AssistantConfig, log *logger.Logger) *SalesAssistant {
	return NewWithModel(moonshot.NewModel(moonshot.Config{
		APIKey:          cfg.GetMoonshotAPIKey(),
		Model:           cfg.GetMoonshotModel(),
		DisableThinking: true,
	}), log)
}

// NewWithModel is used by tests and alternative providers.
func NewWithModel(llm model.LLM, log *logger.Logger) *SalesAssistant {
	return &SalesAssistant{
		llm:            llm,
		sessionService: session.InMemoryService(),
		log:            log,
	}
}

// Reply runs one single-turn session. Tools record meta flags on a
// recorder owned by this call, so concurrent leads never share state.
func (a *SalesAssistant) Reply(ctx context.Context, req ports.AssistantRequest) (ports.AssistantReply, error) {
	rec := &metaRecorder{}
	tools, err := buildTools(rec)
	if err != nil {
		return ports.AssistantReply{}, fmt.Errorf("build assistant tools: %w", err)
	}

	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        "StudioSalesAssistant",
		Model:       a.llm,
		Description: "Replies to tattoo studio leads that the deterministic flows did not handle.",
		Instruction: systemPrompt,
		Tools:       tools,
	})
	if err != nil {
		return ports.AssistantReply{}, fmt.Errorf("create assistant agent: %w", err)
	}
	r, err := runner.New(runner.Config{
		AppName:        appName,
		Agent:          adkAgent,
		SessionService: a.sessionService,
	})
	if err != nil {
		return ports.AssistantReply{}, fmt.Errorf("create assistant runner: %w", err)
	}

	userID := "lead-" + req.Lead.ID
	sessionID := uuid.New().String()
	if _, err := a.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   appName,
		UserID:    userID,
		SessionID: sessionID,
	}); err != nil {
		return ports.AssistantReply{}, fmt.Errorf("create assistant session: %w", err)
	}
	defer func() {
		if err := a.sessionService.Delete(context.WithoutCancel(ctx), &session.DeleteRequest{
			AppName:   appName,
			UserID:    userID,
			SessionID: sessionID,
		}); err != nil {
			a.log.Warn("assistant session cleanup failed", "session_id", sessionID, "error", err)
		}
	}()

	message := &genai.Content{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: buildPrompt(req)}},
	}

	var out strings.Builder
	for event, err := range r.Run(ctx, userID, sessionID, message, agent.RunConfig{StreamingMode: agent.StreamingModeNone}) {
		if err != nil {
			return ports.AssistantReply{}, apperr.Unavailable("assistant", err)
		}
		if event == nil || event.Content == nil {
			continue
		}
		for _, part := range event.Content.Parts {
			if part != nil && part.Text != "" {
				if out.Len() > 0 {
					out.WriteString("\n")
				}
				out.WriteString(part.Text)
			}
		}
	}

	reply := ports.AssistantReply{Text: strings.TrimSpace(out.String()), Meta: rec.snapshot()}
	if reply.Text == "" && !reply.Meta.HandoffToHuman {
		return ports.AssistantReply{}, apperr.Unavailable("assistant", fmt.Errorf("empty reply"))
	}
	return reply, nil
}
