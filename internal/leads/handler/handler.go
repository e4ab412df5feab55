package handler

import (
	"context"
	"net/http"
	"strings"

	"studio_sales_backend/internal/leads/domain"
	"studio_sales_backend/internal/leads/holds"
	"studio_sales_backend/internal/leads/router"
	"studio_sales_backend/internal/leads/transport"
	"studio_sales_backend/platform/httpkit"
	"studio_sales_backend/platform/logger"
	"studio_sales_backend/platform/phone"
	"studio_sales_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// InboundRouter is implemented by router.Router.
type InboundRouter interface {
	Handle(ctx context.Context, in router.Inbound) (router.Outcome, error)
}

// ContactStore creates leads on first contact and reads them for the admin view.
type ContactStore interface {
	EnsureContact(ctx context.Context, lead domain.Lead) (domain.Lead, error)
	GetLead(ctx context.Context, contactID string) (domain.Lead, error)
}

// SweepTrigger runs or queues a hold sweep. queued is true when the sweep
// was handed to the worker instead of run inline.
type SweepTrigger interface {
	TriggerSweep(ctx context.Context) (report holds.SweepReport, queued bool, err error)
}

type Handler struct {
	router   InboundRouter
	contacts ContactStore
	sweeps   SweepTrigger
	val      *validator.Validator
	log      *logger.Logger
}

func New(r InboundRouter, contacts ContactStore, sweeps SweepTrigger, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{router: r, contacts: contacts, sweeps: sweeps, val: val, log: log}
}

// RegisterWebhookRoutes mounts the provider-facing endpoints.
func (h *Handler) RegisterWebhookRoutes(rg *gin.RouterGroup) {
	rg.POST("/messages", h.InboundMessage)
}

// RegisterAdminRoutes mounts the staff tooling endpoints.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/leads/:id/state", h.LeadState)
	rg.POST("/holds/sweep", h.Sweep)
}

func (h *Handler) InboundMessage(c *gin.Context) {
	var req transport.InboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	ctx := c.Request.Context()
	if _, err := h.contacts.EnsureContact(ctx, domain.Lead{
		ID:        strings.TrimSpace(req.ContactID),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     phone.NormalizeE164(req.Phone),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
	}); err != nil {
		h.log.WithContext(ctx).CollaboratorError("crm", "ensure_contact", err)
	}

	out, err := h.router.Handle(ctx, router.Inbound{
		ContactID: strings.TrimSpace(req.ContactID),
		MessageID: req.MessageID,
		Channel:   strings.ToLower(strings.TrimSpace(req.Channel)),
		Text:      req.Text,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.InboundMessageResponse{
		Route:     string(out.Route),
		Marker:    out.Marker,
		Phase:     string(out.Phase),
		Intents:   out.Intents,
		Replied:   out.Sent,
		Duplicate: out.Duplicate,
	})
}

func (h *Handler) LeadState(c *gin.Context) {
	lead, err := h.contacts.GetLead(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toLeadStateResponse(lead))
}

func (h *Handler) Sweep(c *gin.Context) {
	report, queued, err := h.sweeps.TriggerSweep(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	status := http.StatusOK
	if queued {
		status = http.StatusAccepted
	}
	httpkit.JSON(c, status, transport.SweepResponse{
		Queued:   queued,
		Visited:  report.Visited,
		Skipped:  report.Skipped,
		Warned:   report.Warned,
		Released: report.Released,
		Retried:  report.Retried,
		Failed:   report.Failed,
	})
}

func toLeadStateResponse(lead domain.Lead) transport.LeadStateResponse {
	state := domain.Canonicalize(lead.Fields)
	resp := transport.LeadStateResponse{
		ContactID:        lead.ID,
		Phase:            string(domain.DerivePhase(state)),
		PipelineStage:    lead.PipelineStage,
		TranslatorNeeded: state.TranslatorNeeded,
		DepositPaid:      state.DepositPaid,
		DepositLinkSent:  state.DepositLinkSent,
		OfferedSlots:     make([]transport.SlotResponse, 0, len(state.LastOfferedSlots)),
	}
	if mode, ok := state.ConsultMode.Get(); ok {
		resp.ConsultMode = string(mode)
	}
	if id, ok := state.HoldAppointmentID.Get(); ok {
		hold := &transport.HoldResponse{
			AppointmentID: id,
			ArtistID:      state.HoldArtistID.OrElse(""),
			WarningSent:   state.HoldWarningSent,
		}
		hold.Start = optionalPtr(state.HoldStart)
		hold.End = optionalPtr(state.HoldEnd)
		hold.CreatedAt = optionalPtr(state.HoldCreatedAt)
		resp.Hold = hold
	}
	for _, s := range state.LastOfferedSlots {
		resp.OfferedSlots = append(resp.OfferedSlots, transport.SlotResponse{
			Start:    s.Start,
			End:      s.End,
			ArtistID: s.ArtistID,
			Label:    s.Display,
		})
	}
	return resp
}

func optionalPtr[T any](o domain.Optional[T]) *T {
	if v, ok := o.Get(); ok {
		return &v
	}
	return nil
}
