package holds

import (
	"context"

	"studio_sales_backend/internal/events"
	"studio_sales_backend/internal/leads/domain"
	"studio_sales_backend/platform/apperr"
)

// SweepReport summarizes one pass over leads with open holds.
type SweepReport struct {
	Visited  int
	Skipped  int
	Warned   int
	Released int
	Retried  int
	Failed   int
}

// Sweep visits every lead with an open hold. Leads locked by an inbound pass
// are skipped and picked up on the next tick.
func (m *Manager) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	ids, err := m.deps.Index.ListLeadsWithOpenHolds(ctx)
	if err != nil {
		m.log.CollaboratorError("crm", "list_open_holds", err)
		return report, apperr.Unavailable("crm", err)
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		release, ok, err := m.deps.Locker.TryLock(ctx, id)
		if err != nil {
			m.log.Error("sweep lock failed", "contact_id", id, "error", err)
			report.Failed++
			continue
		}
		if !ok {
			report.Skipped++
			continue
		}
		outcome, err := m.SweepLead(ctx, id)
		release()

		report.Visited++
		if err != nil {
			m.log.Error("sweep lead failed", "contact_id", id, "error", err)
			report.Failed++
			continue
		}
		switch outcome {
		case SweepWarned:
			report.Warned++
		case SweepReleased:
			report.Released++
		case SweepRetriedLink:
			report.Retried++
		}
	}
	m.log.Info("hold sweep finished", "visited", report.Visited, "skipped", report.Skipped,
		"warned", report.Warned, "released", report.Released, "retried", report.Retried, "failed", report.Failed)
	return report, nil
}

// SweepOutcome is what SweepLead did.
type SweepOutcome string

const (
	SweepNothing     SweepOutcome = "nothing"
	SweepStamped     SweepOutcome = "stamped"
	SweepWarned      SweepOutcome = "warned"
	SweepReleased    SweepOutcome = "released"
	SweepRetriedLink SweepOutcome = "retried_link"
)

// SweepLead applies expiry to one lead. The caller holds the lead lock.
func (m *Manager) SweepLead(ctx context.Context, contactID string) (SweepOutcome, error) {
	log := m.log.WithContactID(contactID)
	lead, err := m.deps.Leads.GetLead(ctx, contactID)
	if err != nil {
		return SweepNothing, apperr.Unavailable("crm", err)
	}
	state := domain.Canonicalize(lead.Fields)
	hold, ok := domain.HoldFromState(contactID, state)
	if !ok || state.DepositPaid {
		return SweepNothing, nil
	}

	now := m.now()
	if hold.CreatedAt.IsZero() && hold.LastActivityAt.IsZero() {
		// Holds written without timestamps start their clock now.
		update := domain.NewFieldUpdate().
			Put(domain.FieldHoldCreatedAt, domain.FormatTime(now)).
			Put(domain.FieldHoldLastActivityAt, domain.FormatTime(now))
		if _, err := m.deps.Leads.UpdateLead(ctx, contactID, update); err != nil {
			return SweepNothing, apperr.Unavailable("crm", err)
		}
		return SweepStamped, nil
	}

	display := domain.FormatSlot(hold.Start, m.cfg.Location)
	switch domain.EvaluateExpiry(hold, now, m.cfg.TTL, m.cfg.WarningWindow) {
	case domain.ExpiryWarn:
		anchor := hold.CreatedAt
		if anchor.IsZero() {
			anchor = hold.LastActivityAt
		}
		remaining := m.cfg.TTL - now.Sub(anchor)
		if _, err := m.deps.Messenger.Send(ctx, lead, warningMessage(display, remaining, state.DepositLinkURL.OrElse(""))); err != nil {
			log.CollaboratorError("messaging", "send_hold_warning", err)
			return SweepNothing, apperr.Unavailable("messaging", err)
		}
		update := domain.NewFieldUpdate().Put(domain.FieldHoldWarningSent, domain.FormatBool(true))
		if _, err := m.deps.Leads.UpdateLead(ctx, contactID, update); err != nil {
			log.CollaboratorError("crm", "mark_warning_sent", err)
			return SweepWarned, apperr.Unavailable("crm", err)
		}
		m.publish(ctx, events.HoldExpiryWarningSent{BaseEvent: events.NewBaseEvent(), ContactID: contactID, AppointmentID: hold.ID})
		log.Info("hold expiry warning sent", "appointment_id", hold.ID)
		return SweepWarned, nil

	case domain.ExpiryRelease:
		if _, err := m.release(ctx, lead, "expired", false); err != nil {
			return SweepNothing, err
		}
		if _, err := m.deps.Messenger.Send(ctx, lead, expiredMessage(display)); err != nil {
			log.CollaboratorError("messaging", "send_hold_expired", err)
		}
		log.Info("hold released", "appointment_id", hold.ID)
		return SweepReleased, nil
	}

	if state.DepositLinkFailed {
		url, err := m.RetryDepositLink(ctx, lead)
		if err != nil {
			return SweepNothing, err
		}
		if url != "" {
			if _, err := m.deps.Messenger.Send(ctx, lead, retriedLinkMessage(m.depositText(), url)); err != nil {
				log.CollaboratorError("messaging", "send_deposit_link", err)
			}
			return SweepRetriedLink, nil
		}
	}
	return SweepNothing, nil
}

// RetryDepositLink completes a hold whose deposit link failed at creation and
// returns the new URL, or "" when there was nothing to do or the provider is
// still failing. It reuses the hold's idempotency key, so the provider never
// issues two links. Delivering the link is up to the caller.
func (m *Manager) RetryDepositLink(ctx context.Context, lead domain.Lead) (string, error) {
	log := m.log.WithContactID(lead.ID)
	state := domain.Canonicalize(lead.Fields)
	hold, ok := domain.HoldFromState(lead.ID, state)
	if !ok || state.DepositPaid || !state.DepositLinkFailed {
		return "", nil
	}
	link, err := m.createDepositLink(ctx, lead, hold.ID, domain.Slot{Start: hold.Start, End: hold.End})
	if err != nil {
		log.CollaboratorError("payments", "retry_deposit_link", err)
		return "", nil
	}
	update := domain.NewFieldUpdate().
		Put(domain.FieldDepositLinkURL, link.URL).
		Put(domain.FieldDepositLinkSent, domain.FormatBool(true)).
		Put(domain.FieldDepositLinkStatus, domain.DepositLinkOK)
	if _, err := m.deps.Leads.UpdateLead(ctx, lead.ID, update); err != nil {
		log.CollaboratorError("crm", "persist_deposit_link", err)
		return "", apperr.Unavailable("crm", err)
	}
	log.Info("deposit link retried", "appointment_id", hold.ID)
	return link.URL, nil
}
