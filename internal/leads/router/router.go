package router

import (
	"context"
	"strings"
	"time"

	"studio_sales_backend/internal/events"
	"studio_sales_backend/internal/leads/domain"
	"studio_sales_backend/internal/leads/holds"
	"studio_sales_backend/internal/leads/intent"
	"studio_sales_backend/internal/leads/ports"
	"studio_sales_backend/internal/leads/slots"
	"studio_sales_backend/internal/studio"
	"studio_sales_backend/platform/apperr"
	"studio_sales_backend/platform/logger"
	"studio_sales_backend/platform/sanitize"
)

// Deps are the collaborators of the router. History, Assistant and Bus are optional.
type Deps struct {
	Leads      ports.LeadStore
	Messenger  ports.Messenger
	History    ports.ConversationStore
	Assistant  ports.Assistant
	Locker     ports.LeadLocker
	Deduper    ports.MessageDeduper
	Classifier *intent.Classifier
	Slots      *slots.Engine
	Holds      *holds.Manager
	Roster     *studio.Roster
	Bus        events.Bus
}

// Config tunes the inbound pass.
type Config struct {
	LockWait           time.Duration
	HistoryLimit       int
	DepositAmountCents int64
	Currency           string
}

// Router is the single entry point for inbound messages and deposit payments.
// It is also the only component that replies to an inbound message.
type Router struct {
	deps Deps
	cfg  Config
	log  *logger.Logger
	now  func() time.Time
}

// New creates a router.
func New(deps Deps, cfg Config, log *logger.Logger) *Router {
	if cfg.LockWait <= 0 {
		cfg.LockWait = 10 * time.Second
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 20
	}
	return &Router{deps: deps, cfg: cfg, log: log, now: time.Now}
}

// WithClock overrides the time source.
func (r *Router) WithClock(now func() time.Time) *Router {
	r.now = now
	return r
}

// Inbound is one message from a lead.
type Inbound struct {
	ContactID string
	MessageID string
	Channel   string
	Text      string
}

// Outcome reports what the pass did.
type Outcome struct {
	Route     Route
	Marker    string
	Reply     string
	Phase     domain.Phase
	Intents   []string
	Selection *slots.Selection
	Duplicate bool
	Sent      bool
}

// Handle processes one inbound message. Lead-level failures never surface as
// errors: the lead always gets some reply. Errors are returned only when the
// lead cannot be reached at all (unknown contact, CRM down) so the webhook
// caller can retry.
func (r *Router) Handle(ctx context.Context, in Inbound) (Outcome, error) {
	if strings.TrimSpace(in.ContactID) == "" {
		return Outcome{}, apperr.Validation("contactId is required")
	}
	ctx = context.WithValue(ctx, logger.ContactIDKey, in.ContactID)
	if in.MessageID != "" {
		ctx = context.WithValue(ctx, logger.MessageIDKey, in.MessageID)
	}
	log := r.log.WithContext(ctx)

	lead, err := r.deps.Leads.GetLead(ctx, in.ContactID)
	if err != nil {
		log.CollaboratorError("crm", "get_lead", err)
		return Outcome{}, apperr.Unavailable("crm", err)
	}

	if r.deps.Deduper != nil {
		first, err := r.deps.Deduper.FirstSeen(ctx, in.MessageID)
		if err != nil {
			log.Warn("inbound dedupe unavailable", "error", err)
		} else if !first {
			log.Info("duplicate inbound message ignored")
			return Outcome{Duplicate: true}, nil
		}
	}

	lockCtx, cancel := context.WithTimeout(ctx, r.cfg.LockWait)
	release, err := r.deps.Locker.Lock(lockCtx, in.ContactID)
	cancel()
	if err != nil {
		log.Error("lead lock unavailable", "error", err)
		// Unmark the message so the provider's redelivery gets a real answer.
		if r.deps.Deduper != nil && in.MessageID != "" {
			if err := r.deps.Deduper.Forget(context.WithoutCancel(ctx), in.MessageID); err != nil {
				log.Warn("could not unmark busy message", "error", err)
			}
		}
		out := Outcome{Route: RouteFallback, Marker: "lock_busy", Reply: busyReply}
		out.Sent = r.send(ctx, log, lead, out.Reply)
		return out, nil
	}
	defer release()

	// Re-read inside the lock; another pass may have changed the lead.
	if fresh, err := r.deps.Leads.GetLead(ctx, in.ContactID); err == nil {
		lead = fresh
	} else {
		log.CollaboratorError("crm", "reread_lead", err)
	}

	text := sanitize.Message(in.Text)
	r.remember(ctx, log, lead.ID, ports.RoleLead, in.Channel, text)

	state := domain.Canonicalize(lead.Fields)
	rec := r.deps.Classifier.Classify(text, &state)
	var selection *slots.Selection
	if implicitSelectionAllowed(rec, state) {
		// A reply like "the 24th" picks a slot without any selection keyword.
		if sel := slots.SelectImplicit(text, state.LastOfferedSlots, r.deps.Slots.Location()); sel.Matched() {
			rec.SlotSelection = true
			selection = &sel
		}
	}
	route := Decide(rec, state)

	pass := &pass{
		router:    r,
		log:       log,
		lead:      lead,
		state:     state,
		rec:       rec,
		text:      text,
		selection: selection,
		update:    domain.NewFieldUpdate(),
	}
	pass.applySideEffects()

	reply := pass.dispatch(ctx, route)
	if strings.TrimSpace(reply.text) == "" {
		reply.text = fallbackReply
	}

	phase := r.writeBack(ctx, log, pass, in.Channel)
	out := Outcome{
		Route:     route,
		Marker:    reply.marker,
		Reply:     reply.text,
		Phase:     phase,
		Intents:   rec.Names(),
		Selection: pass.selection,
	}
	out.Sent = r.send(ctx, log, pass.lead, out.Reply)
	if out.Sent {
		r.remember(ctx, log, lead.ID, ports.RoleAssistant, in.Channel, out.Reply)
	}

	r.publish(ctx, events.InboundMessageHandled{
		BaseEvent: events.NewBaseEvent(),
		ContactID: lead.ID,
		MessageID: in.MessageID,
		Route:     string(route),
		Marker:    reply.marker,
		Phase:     string(phase),
		Replied:   out.Sent,
	})
	log.Info("inbound message handled", "route", string(route), "marker", reply.marker, "phase", string(phase), "intents", out.Intents)
	return out, nil
}

// implicitSelectionAllowed keeps questions and hesitations out of booking:
// only a plain reply to an open offer may pick a slot without selection wording.
func implicitSelectionAllowed(rec intent.Record, state domain.CanonicalState) bool {
	if len(state.LastOfferedSlots) == 0 || rec.SlotSelection || rec.Scheduling {
		return false
	}
	return !rec.ProcessOrPriceQuestion && rec.Objection == nil && !rec.Deposit &&
		!rec.Reschedule && !rec.Cancel
}

// HandleDepositPaid confirms the lead's hold after the payment provider
// reported the deposit, and tells the lead.
func (r *Router) HandleDepositPaid(ctx context.Context, contactID string) (Outcome, error) {
	if strings.TrimSpace(contactID) == "" {
		return Outcome{}, apperr.Validation("contact id missing from payment")
	}
	ctx = context.WithValue(ctx, logger.ContactIDKey, contactID)
	log := r.log.WithContext(ctx)

	lockCtx, cancel := context.WithTimeout(ctx, r.cfg.LockWait)
	release, err := r.deps.Locker.Lock(lockCtx, contactID)
	cancel()
	if err != nil {
		return Outcome{}, apperr.Unavailable("locker", err)
	}
	defer release()

	res, err := r.deps.Holds.ConfirmDeposit(ctx, contactID)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Route: RouteDeposit, Marker: "deposit_confirmed", Reply: res.Message, Phase: domain.DerivePhase(domain.Canonicalize(res.Lead.Fields))}
	if res.AlreadyPaid {
		out.Marker = "deposit_confirmed_duplicate"
		return out, nil
	}
	out.Sent = r.send(ctx, log, res.Lead, res.Message)
	if out.Sent {
		r.remember(ctx, log, contactID, ports.RoleAssistant, "", res.Message)
	}
	return out, nil
}

// writeBack persists the pass's field changes plus the phase cache, intent
// marker and inbound channel. Failures are logged; the reply still goes out.
func (r *Router) writeBack(ctx context.Context, log *logger.Logger, p *pass, channel string) domain.Phase {
	fields := p.update.Apply(p.lead.Fields)
	state := domain.Canonicalize(fields)
	phase := domain.DerivePhase(state)

	p.update.Put(domain.FieldPhase, string(phase))
	if names := p.rec.Names(); len(names) > 0 {
		p.update.Put(domain.FieldLastIntent, strings.Join(names, ","))
	}
	if channel != "" {
		p.update.Put(domain.FieldLastInboundChannel, channel)
	}
	if p.update.PipelineStage == "" {
		stage := domain.StageForPhase(phase, state.ConsultMode.OrElse(domain.ConsultModeAppointment))
		if stage != "" && stage != p.lead.PipelineStage && p.lead.PipelineStage != domain.PipelineStageManualIntervention {
			p.update.PipelineStage = stage
		}
	}

	stored, err := r.deps.Leads.UpdateLead(ctx, p.lead.ID, p.update)
	if err != nil {
		log.CollaboratorError("crm", "write_back", err)
		return phase
	}
	p.lead = stored
	return phase
}

func (r *Router) send(ctx context.Context, log *logger.Logger, lead domain.Lead, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	channel, err := r.deps.Messenger.Send(ctx, lead, text)
	if err != nil {
		log.CollaboratorError("messaging", "send_reply", err)
		return false
	}
	log.Debug("reply sent", "channel", channel)
	return true
}

func (r *Router) remember(ctx context.Context, log *logger.Logger, contactID string, role ports.ConversationRole, channel, body string) {
	if r.deps.History == nil || body == "" {
		return
	}
	err := r.deps.History.AppendMessage(ctx, contactID, ports.ConversationMessage{
		Role: role, Channel: channel, Body: body, CreatedAt: r.now(),
	})
	if err != nil {
		log.CollaboratorError("history", "append_message", err)
	}
}

func (r *Router) publish(ctx context.Context, event events.Event) {
	if r.deps.Bus != nil {
		r.deps.Bus.Publish(ctx, event)
	}
}
