package payments

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	apphttp "studio_sales_backend/internal/http"
	"studio_sales_backend/internal/leads/router"
	"studio_sales_backend/platform/httpkit"
	"studio_sales_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

const maxWebhookBody = 64 << 10

// DepositConfirmer is told when a lead's deposit has been paid.
type DepositConfirmer interface {
	HandleDepositPaid(ctx context.Context, contactID string) (router.Outcome, error)
}

// WebhookModule receives Stripe events on /api/v1/webhook/stripe.
type WebhookModule struct {
	secret    string
	confirmer DepositConfirmer
	log       *logger.Logger
}

// NewWebhookModule creates the Stripe webhook module.
func NewWebhookModule(secret string, confirmer DepositConfirmer, log *logger.Logger) *WebhookModule {
	return &WebhookModule{secret: secret, confirmer: confirmer, log: log}
}

func (m *WebhookModule) Name() string {
	return "payments"
}

// RegisterRoutes mounts the provider callback. It authenticates by signature,
// not API key.
func (m *WebhookModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/webhook/stripe", m.handle)
}

var _ apphttp.Module = (*WebhookModule)(nil)

func (m *WebhookModule) handle(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "unreadable body", nil)
		return
	}
	event, err := webhook.ConstructEventWithOptions(payload, c.GetHeader("Stripe-Signature"), m.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		m.log.Warn("stripe webhook rejected", "error", err)
		httpkit.Error(c, http.StatusBadRequest, "invalid signature", nil)
		return
	}

	contactID, paid := paidContact(event)
	if !paid {
		m.log.Debug("stripe event ignored", "type", string(event.Type), "event_id", event.ID)
		httpkit.OK(c, gin.H{"received": true})
		return
	}
	if contactID == "" {
		m.log.Error("paid checkout without contact id", "event_id", event.ID)
		httpkit.OK(c, gin.H{"received": true})
		return
	}

	out, err := m.confirmer.HandleDepositPaid(c.Request.Context(), contactID)
	if err != nil {
		m.log.Error("deposit confirmation failed", "error", err, "contact_id", contactID, "event_id", event.ID)
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"received": true, "marker": out.Marker})
}

// paidContact extracts the contact of a completed, paid checkout.
func paidContact(event stripe.Event) (string, bool) {
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
	default:
		return "", false
	}
	if event.Data == nil {
		return "", false
	}
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return "", false
	}
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return "", false
	}
	contactID := strings.TrimSpace(session.Metadata[MetadataContactID])
	if contactID == "" {
		contactID = strings.TrimSpace(session.ClientReferenceID)
	}
	return contactID, true
}
