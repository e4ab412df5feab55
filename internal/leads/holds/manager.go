// Package holds manages tentative consult reservations: creation from a
// selected slot, deposit confirmation, cancellation and expiry.
//
// Callers serialize work per lead through ports.LeadLocker before calling
// any Manager method; the sweep takes the lock itself.
package holds

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"studio_sales_backend/internal/events"
	"studio_sales_backend/internal/leads/domain"
	"studio_sales_backend/internal/leads/ports"
	"studio_sales_backend/internal/studio"
	"studio_sales_backend/platform/apperr"
	"studio_sales_backend/platform/logger"
)

// Config holds lifecycle timings and the deposit terms.
type Config struct {
	TTL                time.Duration
	WarningWindow      time.Duration
	DepositAmountCents int64
	Currency           string
	Location           *time.Location
}

// Deps are the collaborators the manager drives. Video and Bus are optional.
type Deps struct {
	Leads     ports.LeadStore
	Index     ports.HoldIndex
	Calendar  ports.Calendar
	Video     ports.VideoLinks
	Payments  ports.Payments
	Messenger ports.Messenger
	Locker    ports.LeadLocker
	Roster    *studio.Roster
	Bus       events.Bus
}

// Manager owns the hold state machine.
type Manager struct {
	deps Deps
	cfg  Config
	log  *logger.Logger
	now  func() time.Time
}

// New creates a hold manager.
func New(deps Deps, cfg Config, log *logger.Logger) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = 20 * time.Minute
	}
	if cfg.WarningWindow <= 0 || cfg.WarningWindow >= cfg.TTL {
		cfg.WarningWindow = cfg.TTL / 4
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Manager{deps: deps, cfg: cfg, log: log, now: time.Now}
}

// WithClock overrides the time source.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// TTL is how long an unpaid hold is kept.
func (m *Manager) TTL() time.Duration {
	return m.cfg.TTL
}

// CreateResult describes a new hold and the single message to send for it.
type CreateResult struct {
	Hold              domain.Hold
	Lead              domain.Lead
	Message           string
	DepositLinkURL    string
	DepositLinkFailed bool
	AlreadyPaid       bool
}

// CreateFromSelection books slot for lead. With the deposit already paid the
// appointment is created confirmed and no hold message is produced; the
// result message is then a booking confirmation.
func (m *Manager) CreateFromSelection(ctx context.Context, lead domain.Lead, slot domain.Slot) (CreateResult, error) {
	if lead.ID == "" {
		return CreateResult{}, apperr.Invariant("missing contact id")
	}
	log := m.log.WithContactID(lead.ID)
	state := domain.Canonicalize(lead.Fields)
	if state.HasOpenHold() {
		return CreateResult{}, apperr.Conflict("lead already holds a slot").WithOp("holds.create")
	}

	artist, ok := m.deps.Roster.Artist(slot.ArtistID)
	if !ok {
		return CreateResult{}, apperr.Invariant(fmt.Sprintf("unknown artist %q", slot.ArtistID))
	}
	mode := state.ConsultMode.OrElse(domain.ConsultModeAppointment)
	resource := slot.ResourceID
	if resource == "" {
		resource, _ = artist.ResourceFor(mode)
	}
	if resource == "" {
		return CreateResult{}, apperr.Invariant(fmt.Sprintf("artist %q has no %s calendar", artist.ID, mode))
	}

	paid := state.DepositPaid
	status := ports.AppointmentNew
	if paid {
		status = ports.AppointmentConfirmed
	}

	appt, err := m.deps.Calendar.CreateAppointment(ctx, ports.AppointmentRequest{
		ResourceID: resource,
		ContactID:  lead.ID,
		AssigneeID: artist.ID,
		Title:      "Tattoo consult: " + lead.DisplayName(),
		Status:     status,
		Start:      slot.Start,
		End:        slot.End,
	})
	if err != nil {
		log.CollaboratorError("calendar", "create_appointment", err)
		return CreateResult{}, apperr.Unavailable("calendar", err)
	}

	now := m.now()
	hold := domain.Hold{
		ID:             appt.ID,
		ContactID:      lead.ID,
		ArtistID:       artist.ID,
		Start:          slot.Start,
		End:            slot.End,
		Status:         domain.HoldNew,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	update := domain.NewFieldUpdate().Drop(domain.FieldLastOfferedSlots)

	if slot.TranslatorID != "" {
		hold.TranslatorAppointmentID = m.bookTranslator(ctx, log, lead, slot, status, update)
	}

	videoLink := ""
	if mode == domain.ConsultModeAppointment && m.deps.Video != nil {
		videoLink = m.attachVideo(ctx, log, appt.ID, update)
	}

	result := CreateResult{AlreadyPaid: paid}
	if paid {
		confirmed, _ := hold.Transition(domain.HoldConfirmed)
		hold = confirmed
		update.Put(domain.FieldUpcomingAppointmentID, appt.ID)
		update.Drop(holdFields...)
		update.Put(domain.FieldPreferredArtistID, artist.ID)
	} else {
		update.
			Put(domain.FieldHoldAppointmentID, appt.ID).
			Put(domain.FieldHoldArtistID, artist.ID).
			Put(domain.FieldHoldStart, domain.FormatTime(slot.Start)).
			Put(domain.FieldHoldEnd, domain.FormatTime(slot.End)).
			Put(domain.FieldHoldCreatedAt, domain.FormatTime(now)).
			Put(domain.FieldHoldLastActivityAt, domain.FormatTime(now)).
			Put(domain.FieldHoldWarningSent, domain.FormatBool(false)).
			Put(domain.FieldPreferredArtistID, artist.ID)
		if hold.TranslatorAppointmentID != "" {
			update.Put(domain.FieldHoldTranslatorApptID, hold.TranslatorAppointmentID)
		}

		link, linkErr := m.createDepositLink(ctx, lead, appt.ID, slot)
		if linkErr != nil {
			log.CollaboratorError("payments", "create_deposit_link", linkErr)
			update.Put(domain.FieldDepositLinkStatus, domain.DepositLinkFailed)
			result.DepositLinkFailed = true
			m.publish(ctx, events.DepositLinkFailed{
				BaseEvent: events.NewBaseEvent(), ContactID: lead.ID, AppointmentID: appt.ID, Error: linkErr.Error(),
			})
		} else {
			update.
				Put(domain.FieldDepositLinkURL, link.URL).
				Put(domain.FieldDepositLinkSent, domain.FormatBool(true)).
				Put(domain.FieldDepositLinkStatus, domain.DepositLinkOK)
			result.DepositLinkURL = link.URL
		}
	}
	update.PipelineStage = stageAfter(lead.Fields, update, mode)

	stored, err := m.deps.Leads.UpdateLead(ctx, lead.ID, update)
	if err != nil {
		log.CollaboratorError("crm", "persist_hold", err)
		m.compensate(ctx, log, appt.ID, hold.TranslatorAppointmentID)
		return CreateResult{}, apperr.Unavailable("crm", err)
	}

	result.Hold = hold
	result.Lead = stored
	display := domain.FormatSlot(slot.Start, m.cfg.Location)
	switch {
	case paid:
		result.Message = bookedMessage(display, artist.Name, videoLink)
	case result.DepositLinkFailed:
		result.Message = holdMessage(display, artist.Name, videoLink, "", m.depositText(), m.cfg.TTL)
	default:
		result.Message = holdMessage(display, artist.Name, videoLink, result.DepositLinkURL, m.depositText(), m.cfg.TTL)
	}

	m.publish(ctx, events.HoldCreated{
		BaseEvent: events.NewBaseEvent(), ContactID: lead.ID, AppointmentID: appt.ID,
		ArtistID: artist.ID, Start: slot.Start, DepositPaid: paid,
	})
	log.Info("hold created", "appointment_id", appt.ID, "artist_id", artist.ID, "deposit_paid", paid, "deposit_link_failed", result.DepositLinkFailed)
	return result, nil
}

func (m *Manager) bookTranslator(ctx context.Context, log *logger.Logger, lead domain.Lead, slot domain.Slot, status string, update *domain.FieldUpdate) string {
	resourceID := slot.TranslatorResourceID
	if resourceID == "" {
		// Offers stored before the resource was recorded on the slot.
		if translator, ok := m.deps.Roster.Translator(slot.TranslatorID); ok {
			resourceID = translator.ResourceID
		}
	}
	if resourceID == "" {
		log.Warn("translator resource unknown", "translator_id", slot.TranslatorID)
		update.Put(domain.FieldTranslatorBookingState, "failed")
		return ""
	}
	appt, err := m.deps.Calendar.CreateAppointment(ctx, ports.AppointmentRequest{
		ResourceID: resourceID,
		ContactID:  lead.ID,
		AssigneeID: slot.TranslatorID,
		Title:      "Interpreter: " + lead.DisplayName(),
		Status:     status,
		Start:      slot.Start,
		End:        slot.End,
	})
	if err != nil {
		log.CollaboratorError("calendar", "create_translator_appointment", err)
		update.Put(domain.FieldTranslatorBookingState, "failed")
		return ""
	}
	update.Put(domain.FieldTranslatorBookingState, "booked")
	return appt.ID
}

func (m *Manager) attachVideo(ctx context.Context, log *logger.Logger, appointmentID string, update *domain.FieldUpdate) string {
	link, err := m.deps.Video.CreateMeetingLink(ctx, appointmentID)
	if err != nil {
		log.CollaboratorError("video", "create_meeting_link", err)
		return ""
	}
	if err := m.deps.Calendar.UpdateAppointment(ctx, appointmentID, ports.AppointmentChange{Location: link}); err != nil {
		log.CollaboratorError("calendar", "set_location", err)
	}
	update.Put(domain.FieldVideoLink, link)
	return link
}

func (m *Manager) createDepositLink(ctx context.Context, lead domain.Lead, appointmentID string, slot domain.Slot) (ports.DepositLink, error) {
	if m.deps.Payments == nil {
		return ports.DepositLink{}, errors.New("payments not configured")
	}
	return m.deps.Payments.CreateDepositLink(ctx, ports.DepositLinkRequest{
		ContactID:      lead.ID,
		HoldID:         appointmentID,
		AmountCents:    m.cfg.DepositAmountCents,
		Currency:       m.cfg.Currency,
		Description:    "Consult deposit " + domain.FormatSlot(slot.Start, m.cfg.Location),
		CustomerEmail:  lead.Email,
		IdempotencyKey: DepositIdempotencyKey(lead.ID, appointmentID),
	})
}

// DepositIdempotencyKey is stable per hold so a retry never creates a second
// payable link.
func DepositIdempotencyKey(contactID, appointmentID string) string {
	return "deposit:" + contactID + ":" + appointmentID
}

// compensate releases calendar time booked for a hold whose linkage could
// not be persisted.
func (m *Manager) compensate(ctx context.Context, log *logger.Logger, ids ...string) {
	for _, id := range ids {
		if id == "" {
			continue
		}
		if err := m.deps.Calendar.CancelAppointment(ctx, id); err != nil {
			log.CollaboratorError("calendar", "compensate_cancel", err)
		}
	}
}

// ConfirmResult describes a deposit confirmation.
type ConfirmResult struct {
	Lead          domain.Lead
	AppointmentID string
	Message       string
	AlreadyPaid   bool
}

// ConfirmDeposit records the deposit and moves the open hold to CONFIRMED.
// Repeated confirmations are no-ops.
func (m *Manager) ConfirmDeposit(ctx context.Context, contactID string) (ConfirmResult, error) {
	if contactID == "" {
		return ConfirmResult{}, apperr.Invariant("missing contact id")
	}
	log := m.log.WithContactID(contactID)
	lead, err := m.deps.Leads.GetLead(ctx, contactID)
	if err != nil {
		return ConfirmResult{}, apperr.Unavailable("crm", err)
	}
	state := domain.Canonicalize(lead.Fields)
	hold, hasHold := domain.HoldFromState(contactID, state)
	if state.DepositPaid && !hasHold {
		return ConfirmResult{Lead: lead, AlreadyPaid: true, AppointmentID: state.UpcomingAppointmentID.OrElse("")}, nil
	}

	update := domain.NewFieldUpdate().
		Put(domain.FieldDepositPaid, domain.FormatBool(true)).
		Put(domain.FieldDepositLinkStatus, domain.DepositLinkOK)

	result := ConfirmResult{}
	if hasHold {
		confirmed, err := hold.Transition(domain.HoldConfirmed)
		if err != nil {
			return ConfirmResult{}, apperr.Invariant(err.Error())
		}
		for _, id := range []string{confirmed.ID, confirmed.TranslatorAppointmentID} {
			if id == "" {
				continue
			}
			if err := m.deps.Calendar.UpdateAppointment(ctx, id, ports.AppointmentChange{Status: ports.AppointmentConfirmed}); err != nil {
				log.CollaboratorError("calendar", "confirm_appointment", err)
			}
		}
		update.Put(domain.FieldUpcomingAppointmentID, confirmed.ID).Drop(holdFields...)
		result.AppointmentID = confirmed.ID
	}
	update.PipelineStage = stageAfter(lead.Fields, update, state.ConsultMode.OrElse(domain.ConsultModeAppointment))

	stored, err := m.deps.Leads.UpdateLead(ctx, contactID, update)
	if err != nil {
		log.CollaboratorError("crm", "confirm_deposit", err)
		return ConfirmResult{}, apperr.Unavailable("crm", err)
	}
	result.Lead = stored

	if hasHold {
		artistName := ""
		if a, ok := m.deps.Roster.Artist(hold.ArtistID); ok {
			artistName = a.Name
		}
		result.Message = confirmedMessage(domain.FormatSlot(hold.Start, m.cfg.Location), artistName, state.VideoLink.OrElse(""))
		m.publish(ctx, events.HoldConfirmed{BaseEvent: events.NewBaseEvent(), ContactID: contactID, AppointmentID: hold.ID})
	} else {
		result.Message = depositNoHoldMessage()
	}
	log.Info("deposit confirmed", "appointment_id", result.AppointmentID)
	return result, nil
}

// CancelResult lists what was released.
type CancelResult struct {
	Lead      domain.Lead
	Cancelled []string
	// Pending failed to cancel and is stored for the next release.
	Pending []string
}

// Cancel releases the open hold and any booked consult for lead. A paid
// deposit stays on the lead as credit.
func (m *Manager) Cancel(ctx context.Context, lead domain.Lead, reason string) (CancelResult, error) {
	return m.release(ctx, lead, reason, true)
}

// Reschedule cancels like Cancel; the caller then offers fresh slots.
func (m *Manager) Reschedule(ctx context.Context, lead domain.Lead) (CancelResult, error) {
	return m.Cancel(ctx, lead, "reschedule")
}

func (m *Manager) release(ctx context.Context, lead domain.Lead, reason string, includeBooked bool) (CancelResult, error) {
	if lead.ID == "" {
		return CancelResult{}, apperr.Invariant("missing contact id")
	}
	log := m.log.WithContactID(lead.ID)
	state := domain.Canonicalize(lead.Fields)

	var ids []string
	if hold, ok := domain.HoldFromState(lead.ID, state); ok {
		if _, err := hold.Transition(domain.HoldCancelled); err != nil {
			return CancelResult{}, apperr.Invariant(err.Error())
		}
		ids = append(ids, hold.ID, hold.TranslatorAppointmentID)
	}
	if id, ok := state.UpcomingAppointmentID.Get(); ok && includeBooked {
		ids = append(ids, id)
	}
	ids = append(ids, state.PendingCancelIDs...)

	// The first failure before anything was released leaves the lead as it
	// was. A failure after that is recorded as pending so the linkage still
	// clears and the next release retries it.
	var cancelled, pending []string
	for _, id := range ids {
		if id == "" || slices.Contains(cancelled, id) || slices.Contains(pending, id) {
			continue
		}
		if err := m.deps.Calendar.CancelAppointment(ctx, id); err != nil {
			log.CollaboratorError("calendar", "cancel_appointment", err)
			if len(cancelled) == 0 {
				return CancelResult{}, apperr.Unavailable("calendar", err)
			}
			pending = append(pending, id)
			continue
		}
		cancelled = append(cancelled, id)
	}
	if len(cancelled) == 0 {
		return CancelResult{Lead: lead}, nil
	}

	update := domain.NewFieldUpdate().Drop(holdFields...).Drop(domain.FieldTranslatorBookingState)
	if len(pending) > 0 {
		log.Warn("appointments left to cancel", "appointments", pending)
		update.Put(domain.FieldPendingCancelIDs, strings.Join(pending, ","))
	} else {
		update.Drop(domain.FieldPendingCancelIDs)
	}
	if includeBooked || !state.UpcomingAppointmentID.IsSet() {
		update.Drop(domain.FieldUpcomingAppointmentID, domain.FieldVideoLink)
	}
	if !state.DepositPaid {
		update.Drop(depositLinkFields...)
	}
	update.PipelineStage = stageAfter(lead.Fields, update, state.ConsultMode.OrElse(domain.ConsultModeAppointment))
	stored, err := m.deps.Leads.UpdateLead(ctx, lead.ID, update)
	if err != nil {
		log.CollaboratorError("crm", "clear_hold", err)
		return CancelResult{}, apperr.Unavailable("crm", err)
	}

	for _, id := range cancelled {
		m.publish(ctx, events.HoldCancelled{BaseEvent: events.NewBaseEvent(), ContactID: lead.ID, AppointmentID: id, Reason: reason})
	}
	log.Info("hold cancelled", "appointments", cancelled, "reason", reason)
	return CancelResult{Lead: stored, Cancelled: cancelled, Pending: pending}, nil
}

// holdFields is the linkage written for an open hold.
var holdFields = []string{
	domain.FieldHoldAppointmentID,
	domain.FieldHoldTranslatorApptID,
	domain.FieldHoldArtistID,
	domain.FieldHoldStart,
	domain.FieldHoldEnd,
	domain.FieldHoldCreatedAt,
	domain.FieldHoldLastActivityAt,
	domain.FieldHoldWarningSent,
}

var depositLinkFields = []string{
	domain.FieldDepositLinkURL,
	domain.FieldDepositLinkSent,
	domain.FieldDepositLinkStatus,
}

// stageAfter derives the pipeline stage the lead will be in once update lands.
func stageAfter(fields map[string]string, update *domain.FieldUpdate, mode domain.ConsultMode) string {
	return domain.StageForPhase(domain.DerivePhase(domain.Canonicalize(update.Apply(fields))), mode)
}

func (m *Manager) publish(ctx context.Context, event events.Event) {
	if m.deps.Bus != nil {
		m.deps.Bus.Publish(ctx, event)
	}
}

func (m *Manager) depositText() string {
	return FormatAmount(m.cfg.DepositAmountCents, m.cfg.Currency)
}
