package router

import (
	"context"
	"errors"

	"studio_sales_backend/internal/events"
	"studio_sales_backend/internal/leads/domain"
	"studio_sales_backend/internal/leads/holds"
	"studio_sales_backend/internal/leads/intent"
	"studio_sales_backend/internal/leads/ports"
	"studio_sales_backend/internal/leads/slots"
	"studio_sales_backend/platform/apperr"
	"studio_sales_backend/platform/logger"
)

// Internal markers distinguishing handler outcomes.
const (
	MarkerRescheduled          = "rescheduled_offer_slots"
	MarkerCancelled            = "cancelled"
	MarkerNothingToCancel      = "nothing_to_cancel"
	MarkerHoldCreated          = "hold_created"
	MarkerBooked               = "booked_deposit_on_file"
	MarkerHoldAlreadyOpen      = "hold_already_open"
	MarkerHoldFailed           = "hold_failed"
	MarkerSelectionClarify     = "selection_clarify"
	MarkerDepositLinkSent      = "deposit_link_sent"
	MarkerDepositLinkResent    = "deposit_link_resent"
	MarkerDepositLinkPending   = "deposit_link_pending"
	MarkerDepositPaidOffer     = "deposit_already_paid_offer_slots"
	MarkerDepositPaidBooked    = "deposit_already_paid_booked"
	MarkerDepositNoHoldOffer   = "deposit_no_hold_offer_slots"
	MarkerSlotsOffered         = "slots_offered"
	MarkerNoSlots              = "no_slots"
	MarkerConsultChoiceSaved   = "consult_choice_saved"
	MarkerProcessAnswer        = "process_or_price_answer"
	MarkerProcessFAQ           = "process_or_price_faq"
	MarkerAssistant            = "assistant_reply"
	MarkerAssistantUnavailable = "assistant_unavailable"
	MarkerHandoff              = "handoff_to_human"
)

type reply struct {
	text   string
	marker string
}

// pass is the working state of one inbound message.
type pass struct {
	router    *Router
	log       *logger.Logger
	lead      domain.Lead
	state     domain.CanonicalState
	rec       intent.Record
	text      string
	selection *slots.Selection
	update    *domain.FieldUpdate
}

// applySideEffects records answers carried by the message whatever the route:
// a consult-path choice and an "artist will guide the size" answer.
func (p *pass) applySideEffects() {
	if mode, ok := p.rec.ConsultChoice.Get(); ok {
		p.update.Put(domain.FieldConsultMode, string(mode))
		p.state.ConsultMode = domain.Some(mode)
	}
	if p.rec.ArtistGuidedSize && !p.state.Size.IsSet() {
		p.update.Put(domain.FieldSize, domain.SizeArtistWillGuide)
		p.state.Size = domain.Some(domain.SizeArtistWillGuide)
	}
}

func (p *pass) dispatch(ctx context.Context, route Route) reply {
	switch route {
	case RouteRescheduleCancel:
		return p.rescheduleOrCancel(ctx)
	case RouteSlotSelection:
		return p.selectSlot(ctx)
	case RouteDeposit:
		return p.deposit(ctx)
	case RouteScheduling:
		return p.scheduling(ctx)
	case RouteConsultChoice:
		return p.consultChoice(ctx)
	case RouteProcessOrPrice:
		return p.processOrPrice(ctx)
	}
	return p.fallback(ctx)
}

// adopt replaces the working lead with what a collaborator persisted, keeping
// the pending update on top.
func (p *pass) adopt(lead domain.Lead) {
	if lead.ID == "" {
		return
	}
	p.lead = lead
	p.state = domain.Canonicalize(p.update.Apply(lead.Fields))
}

func (p *pass) rescheduleOrCancel(ctx context.Context) reply {
	r := p.router
	var (
		res holds.CancelResult
		err error
	)
	if p.rec.Reschedule {
		res, err = r.deps.Holds.Reschedule(ctx, p.lead)
	} else {
		res, err = r.deps.Holds.Cancel(ctx, p.lead, "lead_request")
	}
	if err != nil {
		p.log.Error("cancel failed", "error", err)
		return reply{text: cancelFailedReply, marker: MarkerHoldFailed}
	}
	p.adopt(res.Lead)
	p.update.Drop(domain.FieldLastOfferedSlots)
	p.state.LastOfferedSlots = nil

	if p.rec.Reschedule {
		offer := p.offerSlots(ctx)
		prefix := rescheduleNothingHeld
		if len(res.Cancelled) > 0 {
			prefix = rescheduleReleased
		}
		offer.text = prefix + " " + offer.text
		if offer.marker == MarkerSlotsOffered {
			offer.marker = MarkerRescheduled
		}
		return offer
	}
	if len(res.Cancelled) == 0 {
		return reply{text: nothingToCancelReply, marker: MarkerNothingToCancel}
	}
	return reply{text: cancelledReply(p.state.DepositPaid), marker: MarkerCancelled}
}

func (p *pass) selectSlot(ctx context.Context) reply {
	r := p.router
	offered := p.state.LastOfferedSlots
	sel := slots.Select(p.text, offered, r.deps.Slots.Location())
	p.selection = &sel
	if !sel.Matched() {
		p.log.Info("slot selection unresolved", "rule", string(sel.Rule), "reason", sel.Reason)
		return reply{text: clarifyReply(offered, r.deps.Roster), marker: MarkerSelectionClarify}
	}

	// The hold is created against the lead as it will be after this pass, so
	// a consult choice in the same message picks the right calendar.
	pending := p.lead
	pending.Fields = p.update.Apply(p.lead.Fields)
	res, err := r.deps.Holds.CreateFromSelection(ctx, pending, offered[sel.Index])
	switch {
	case err == nil:
	case apperr.Is(err, apperr.KindConflict):
		return p.holdAlreadyOpen()
	default:
		p.log.Error("hold creation failed", "error", err)
		return reply{text: holdFailedReply, marker: MarkerHoldFailed}
	}
	p.adopt(res.Lead)
	if res.AlreadyPaid {
		return reply{text: res.Message, marker: MarkerBooked}
	}
	return reply{text: res.Message, marker: MarkerHoldCreated}
}

func (p *pass) holdAlreadyOpen() reply {
	display := domain.FormatSlot(p.state.HoldStart.OrElse(p.router.now()), p.router.deps.Slots.Location())
	return reply{text: holdAlreadyOpenReply(display, p.state.DepositLinkURL.OrElse("")), marker: MarkerHoldAlreadyOpen}
}

// deposit answers "send me the link". A paid lead never gets a new link.
func (p *pass) deposit(ctx context.Context) reply {
	r := p.router
	switch {
	case p.state.DepositPaid && p.state.UpcomingAppointmentID.IsSet():
		return reply{text: depositPaidBookedReply, marker: MarkerDepositPaidBooked}

	case p.state.DepositPaid:
		offer := p.offerSlots(ctx)
		offer.text = depositPaidPrefix + " " + offer.text
		offer.marker = MarkerDepositPaidOffer
		return offer

	case p.state.HasOpenHold():
		if url, ok := p.state.DepositLinkURL.Get(); ok && !p.state.DepositLinkFailed {
			return reply{text: depositResendReply(r.depositText(), url), marker: MarkerDepositLinkResent}
		}
		url, err := r.deps.Holds.RetryDepositLink(ctx, p.lead)
		if err != nil || url == "" {
			return reply{text: depositPendingReply, marker: MarkerDepositLinkPending}
		}
		if fresh, err := r.deps.Leads.GetLead(ctx, p.lead.ID); err == nil {
			p.adopt(fresh)
		}
		return reply{text: depositLinkReply(r.depositText(), url), marker: MarkerDepositLinkSent}
	}

	offer := p.offerSlots(ctx)
	offer.text = depositNoHoldPrefix + " " + offer.text
	offer.marker = MarkerDepositNoHoldOffer
	return offer
}

// scheduling offers slots. The consult choice in the same message was
// already applied as a side effect.
func (p *pass) scheduling(ctx context.Context) reply {
	if p.state.HasOpenHold() {
		return p.holdAlreadyOpen()
	}
	return p.offerSlots(ctx)
}

func (p *pass) consultChoice(ctx context.Context) reply {
	mode := p.state.ConsultMode.OrElse(domain.ConsultModeAppointment)
	confirmation := consultChoiceReply(mode)
	if p.state.HasOpenHold() {
		return reply{text: confirmation, marker: MarkerConsultChoiceSaved}
	}
	if question, missing := nextIntakeQuestion(p.state); missing {
		return reply{text: confirmation + " " + question, marker: MarkerConsultChoiceSaved}
	}
	offer := p.offerSlots(ctx)
	offer.text = confirmation + " " + offer.text
	return offer
}

func (p *pass) processOrPrice(ctx context.Context) reply {
	r := p.router
	if r.deps.Assistant != nil {
		res, err := r.deps.Assistant.Reply(ctx, p.assistantRequest(ctx, ports.FocusProcessOrPrice))
		if err == nil && res.Text != "" {
			return reply{text: res.Text, marker: MarkerProcessAnswer}
		}
		if err != nil {
			p.log.CollaboratorError("assistant", "process_or_price", err)
		}
	}
	return reply{text: processFAQReply(r.depositText()), marker: MarkerProcessFAQ}
}

// fallback asks the language model. Its meta flags are requests: the router
// only honours them when its own rules allow.
func (p *pass) fallback(ctx context.Context) reply {
	r := p.router
	if r.deps.Assistant == nil {
		return reply{text: fallbackReply, marker: MarkerAssistantUnavailable}
	}
	res, err := r.deps.Assistant.Reply(ctx, p.assistantRequest(ctx, ports.FocusGeneral))
	if err != nil || res.Text == "" {
		if err == nil {
			err = errors.New("empty reply")
		}
		p.log.CollaboratorError("assistant", "reply", err)
		return reply{text: fallbackReply, marker: MarkerAssistantUnavailable}
	}

	out := reply{text: res.Text, marker: MarkerAssistant}
	switch {
	case res.Meta.HandoffToHuman:
		p.update.PipelineStage = domain.PipelineStageManualIntervention
		r.publish(ctx, events.HandoffRequested{BaseEvent: events.NewBaseEvent(), ContactID: p.lead.ID, Message: p.text})
		out.marker = MarkerHandoff

	case res.Meta.WantsDepositLink && p.state.HasOpenHold() && !p.state.DepositPaid:
		if url, ok := p.state.DepositLinkURL.Get(); ok {
			out.text += "\n\n" + depositResendReply(r.depositText(), url)
			out.marker = MarkerDepositLinkResent
		}

	case res.Meta.WantsAppointmentOffer && !p.state.HasOpenHold():
		if _, missing := nextIntakeQuestion(p.state); !missing && p.state.ConsultMode.IsSet() {
			offer := p.offerSlots(ctx)
			if offer.marker == MarkerSlotsOffered {
				out.text += "\n\n" + offer.text
				out.marker = MarkerSlotsOffered
			}
		}
	}
	return out
}

func (p *pass) assistantRequest(ctx context.Context, focus ports.AssistantFocus) ports.AssistantRequest {
	r := p.router
	req := ports.AssistantRequest{
		Lead:        p.lead,
		State:       p.state,
		Phase:       domain.DerivePhase(p.state),
		Focus:       focus,
		Message:     p.text,
		DepositText: r.depositText(),
	}
	if o := p.rec.Objection; o != nil {
		req.Objection = &ports.AssistantObjection{Category: o.Category, BeliefToFix: o.BeliefToFix, Reframe: o.Reframe}
	}
	if r.deps.History != nil {
		history, err := r.deps.History.RecentMessages(ctx, p.lead.ID, r.cfg.HistoryLimit)
		if err != nil {
			p.log.CollaboratorError("history", "recent_messages", err)
		}
		req.History = history
	}
	return req
}

// offerSlots generates slots from the message and state, stores them as the
// offered list and formats them.
func (p *pass) offerSlots(ctx context.Context) reply {
	r := p.router
	offered, err := r.deps.Slots.Generate(ctx, slots.Request{Text: p.text, State: p.state})
	if err != nil {
		p.log.Error("slot generation failed", "error", err)
		return reply{text: noSlotsReply, marker: MarkerNoSlots}
	}
	if len(offered) == 0 {
		return reply{text: noSlotsReply, marker: MarkerNoSlots}
	}
	p.update.Put(domain.FieldLastOfferedSlots, domain.EncodeSlots(offered))
	p.state.LastOfferedSlots = offered
	return reply{text: offerReply(offered, r.deps.Roster), marker: MarkerSlotsOffered}
}

func (r *Router) depositText() string {
	return holds.FormatAmount(r.cfg.DepositAmountCents, r.cfg.Currency)
}
