package agent

import (
	"fmt"
	"strings"
	"time"

	"studio_sales_backend/internal/leads/domain"
	"studio_sales_backend/internal/leads/ports"
)

const systemPrompt = `You are the front desk of a tattoo studio, writing short chat replies to people who enquired about a tattoo.

Rules:
- Reply in at most three sentences, warm and plain. No markdown.
- Never quote prices beyond the deposit text you are given.
- Never promise appointment times or write payment links. Use the tools instead.
- Ask for at most one missing detail (idea, placement, size, timeline) per reply.
- If the lead hesitates, acknowledge the concern, then use the reframe you are given.
- If the lead asks for a human or is upset, call HandoffToHuman.`

const historyTimeLayout = "Jan 2 15:04"

func buildPrompt(req ports.AssistantRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Lead: %s\n", req.Lead.DisplayName())
	fmt.Fprintf(&b, "Phase: %s\n", req.Phase)
	fmt.Fprintf(&b, "Focus: %s\n", req.Focus)

	b.WriteString("\nKnown details:\n")
	writeDetail(&b, "idea", req.State.Summary)
	writeDetail(&b, "placement", req.State.Placement)
	writeDetail(&b, "size", req.State.Size)
	writeDetail(&b, "timeline", req.State.Timeline)
	if mode, ok := req.State.ConsultMode.Get(); ok {
		fmt.Fprintf(&b, "- consult: %s\n", mode)
	}
	if req.State.TranslatorNeeded {
		b.WriteString("- needs a translator\n")
	}
	if req.State.DepositPaid {
		b.WriteString("- deposit paid\n")
	}

	if missing := missingDetails(req.State); len(missing) > 0 {
		fmt.Fprintf(&b, "Still missing: %s\n", strings.Join(missing, ", "))
	}

	if req.DepositText != "" {
		fmt.Fprintf(&b, "\nDeposit: %s\n", req.DepositText)
	}

	if req.Objection != nil {
		fmt.Fprintf(&b, "\nHesitation: %s\n", req.Objection.Category)
		if req.Objection.BeliefToFix != "" {
			fmt.Fprintf(&b, "Belief to address: %s\n", req.Objection.BeliefToFix)
		}
		if req.Objection.Reframe != "" {
			fmt.Fprintf(&b, "Reframe: %s\n", req.Objection.Reframe)
		}
	}

	if len(req.History) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, msg := range req.History {
			who := "Lead"
			if msg.Role == ports.RoleAssistant {
				who = "Studio"
			}
			fmt.Fprintf(&b, "[%s] %s: %s\n", formatStamp(msg.CreatedAt), who, strings.TrimSpace(msg.Body))
		}
	}

	fmt.Fprintf(&b, "\nLatest message from the lead:\n%s\n", strings.TrimSpace(req.Message))
	return b.String()
}

func writeDetail(b *strings.Builder, label string, value domain.Optional[string]) {
	if v, ok := value.Get(); ok {
		fmt.Fprintf(b, "- %s: %s\n", label, v)
	}
}

func missingDetails(state domain.CanonicalState) []string {
	var missing []string
	if !state.Summary.IsSet() {
		missing = append(missing, "idea")
	}
	if !state.Placement.IsSet() {
		missing = append(missing, "placement")
	}
	if !state.Size.IsSet() {
		missing = append(missing, "size")
	}
	if !state.Timeline.IsSet() {
		missing = append(missing, "timeline")
	}
	return missing
}

func formatStamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(historyTimeLayout)
}
