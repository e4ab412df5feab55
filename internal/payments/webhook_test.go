package payments

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apphttp "studio_sales_backend/internal/http"
	"studio_sales_backend/internal/leads/router"
	"studio_sales_backend/platform/apperr"
	"studio_sales_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testSecret = "whsec_test"

type fakeConfirmer struct {
	contacts []string
	err      error
}

func (f *fakeConfirmer) HandleDepositPaid(_ context.Context, contactID string) (router.Outcome, error) {
	f.contacts = append(f.contacts, contactID)
	if f.err != nil {
		return router.Outcome{}, f.err
	}
	return router.Outcome{Marker: "deposit_confirmed"}, nil
}

func newWebhookEngine(confirmer DepositConfirmer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	module := NewWebhookModule(testSecret, confirmer, logger.Discard())
	module.RegisterRoutes(&apphttp.RouterContext{Engine: engine, V1: engine.Group("/api/v1")})
	return engine
}

func post(engine *gin.Engine, payload []byte, secret string) *httptest.ResponseRecorder {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: secret, Timestamp: time.Now()})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

const paidCheckout = `{
	"id": "evt_1",
	"object": "event",
	"type": "checkout.session.completed",
	"data": {"object": {"id": "cs_1", "object": "checkout.session", "payment_status": "paid", "client_reference_id": "c1", "metadata": {"contact_id": "c1"}}}
}`

func TestWebhookConfirmsPaidCheckout(t *testing.T) {
	confirmer := &fakeConfirmer{}
	rec := post(newWebhookEngine(confirmer), []byte(paidCheckout), testSecret)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if len(confirmer.contacts) != 1 || confirmer.contacts[0] != "c1" {
		t.Fatalf("confirmed = %v", confirmer.contacts)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	confirmer := &fakeConfirmer{}
	rec := post(newWebhookEngine(confirmer), []byte(paidCheckout), "whsec_other")

	if rec.Code != http.StatusBadRequest || len(confirmer.contacts) != 0 {
		t.Fatalf("status = %d confirmed = %v", rec.Code, confirmer.contacts)
	}
}

func TestWebhookIgnoresUnpaidAndOtherEvents(t *testing.T) {
	confirmer := &fakeConfirmer{}
	engine := newWebhookEngine(confirmer)

	unpaid := `{"id":"evt_2","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_2","object":"checkout.session","payment_status":"unpaid","metadata":{"contact_id":"c1"}}}}`
	other := `{"id":"evt_3","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`
	for _, payload := range []string{unpaid, other} {
		if rec := post(engine, []byte(payload), testSecret); rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	}
	if len(confirmer.contacts) != 0 {
		t.Fatalf("confirmed = %v", confirmer.contacts)
	}
}

func TestWebhookSurfacesConfirmationFailure(t *testing.T) {
	confirmer := &fakeConfirmer{err: apperr.Unavailable("crm", errors.New("timeout"))}
	rec := post(newWebhookEngine(confirmer), []byte(paidCheckout), testSecret)

	if rec.Code < 500 {
		t.Fatalf("provider must retry on failure, got %d", rec.Code)
	}
}
