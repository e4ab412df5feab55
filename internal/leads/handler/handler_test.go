package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"studio_sales_backend/internal/leads/domain"
	"studio_sales_backend/internal/leads/holds"
	"studio_sales_backend/internal/leads/router"
	"studio_sales_backend/internal/leads/transport"
	"studio_sales_backend/platform/apperr"
	"studio_sales_backend/platform/logger"
	"studio_sales_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

type fakeRouter struct {
	got []router.Inbound
	out router.Outcome
	err error
}

func (f *fakeRouter) Handle(_ context.Context, in router.Inbound) (router.Outcome, error) {
	f.got = append(f.got, in)
	return f.out, f.err
}

type fakeContacts struct {
	ensured []domain.Lead
	leads   map[string]domain.Lead
	err     error
}

func (f *fakeContacts) EnsureContact(_ context.Context, lead domain.Lead) (domain.Lead, error) {
	f.ensured = append(f.ensured, lead)
	return lead, f.err
}

func (f *fakeContacts) GetLead(_ context.Context, id string) (domain.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, nil
}

type fakeSweeps struct {
	queued bool
	report holds.SweepReport
}

func (f fakeSweeps) TriggerSweep(context.Context) (holds.SweepReport, bool, error) {
	return f.report, f.queued, nil
}

func newEngine(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h.RegisterWebhookRoutes(engine.Group("/webhook"))
	h.RegisterAdminRoutes(engine.Group("/admin"))
	return engine
}

func postJSON(engine *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestInboundMessage(t *testing.T) {
	r := &fakeRouter{out: router.Outcome{Route: router.RouteScheduling, Marker: "slots_offered", Phase: domain.PhaseScheduling, Sent: true}}
	contacts := &fakeContacts{}
	engine := newEngine(New(r, contacts, fakeSweeps{}, validator.New(), logger.Discard()))

	rec := postJSON(engine, "/webhook/messages", transport.InboundMessageRequest{
		ContactID: " c1 ",
		MessageID: "wamid.1",
		Channel:   "WhatsApp",
		Text:      "video call this week",
		FirstName: "Ana",
		Phone:     "(415) 555-2671",
		Email:     "Ana@Example.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var resp transport.InboundMessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Marker != "slots_offered" || resp.Phase != "SCHEDULING" || !resp.Replied {
		t.Fatalf("resp = %+v", resp)
	}
	if len(r.got) != 1 || r.got[0].ContactID != "c1" || r.got[0].Channel != "whatsapp" {
		t.Fatalf("router got %+v", r.got)
	}
	if len(contacts.ensured) != 1 {
		t.Fatalf("ensured = %+v", contacts.ensured)
	}
	if got := contacts.ensured[0]; got.Phone != "+14155552671" || got.Email != "ana@example.com" || got.FirstName != "Ana" {
		t.Fatalf("ensured lead = %+v", got)
	}
}

func TestInboundMessageValidation(t *testing.T) {
	r := &fakeRouter{}
	engine := newEngine(New(r, &fakeContacts{}, fakeSweeps{}, validator.New(), logger.Discard()))

	cases := map[string]transport.InboundMessageRequest{
		"missing contact": {MessageID: "m1", Channel: "sms", Text: "hi"},
		"bad channel":     {ContactID: "c1", MessageID: "m1", Channel: "pigeon", Text: "hi"},
		"bad email":       {ContactID: "c1", MessageID: "m1", Channel: "email", Text: "hi", Email: "nope"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if rec := postJSON(engine, "/webhook/messages", body); rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
		})
	}
	if len(r.got) != 0 {
		t.Fatalf("router should not be called, got %+v", r.got)
	}
}

func TestInboundMessageCRMDownIsRetryable(t *testing.T) {
	r := &fakeRouter{err: apperr.Unavailable("crm", errors.New("timeout"))}
	contacts := &fakeContacts{err: errors.New("timeout")}
	engine := newEngine(New(r, contacts, fakeSweeps{}, validator.New(), logger.Discard()))

	rec := postJSON(engine, "/webhook/messages", transport.InboundMessageRequest{ContactID: "c1", MessageID: "m1", Channel: "sms", Text: "hi"})
	if rec.Code < http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestLeadState(t *testing.T) {
	start := time.Date(2024, 12, 17, 16, 0, 0, 0, time.UTC)
	contacts := &fakeContacts{leads: map[string]domain.Lead{
		"c1": {
			ID:            "c1",
			PipelineStage: domain.PipelineStageAppointmentConsult,
			Fields: map[string]string{
				domain.FieldHoldAppointmentID: "appt-1",
				domain.FieldHoldArtistID:      "mara",
				domain.FieldHoldStart:         domain.FormatTime(start),
				domain.FieldConsultMode:       "appointment",
			},
		},
	}}
	engine := newEngine(New(&fakeRouter{}, contacts, fakeSweeps{}, validator.New(), logger.Discard()))

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/leads/c1/state", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp transport.LeadStateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Hold == nil || resp.Hold.AppointmentID != "appt-1" || resp.Hold.ArtistID != "mara" || resp.Hold.Start == nil || !resp.Hold.Start.Equal(start) {
		t.Fatalf("hold = %+v", resp.Hold)
	}
	if resp.ConsultMode != "appointment" {
		t.Fatalf("consult mode = %q", resp.ConsultMode)
	}

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/leads/missing/state", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing lead status = %d", rec.Code)
	}
}

func TestSweep(t *testing.T) {
	engine := newEngine(New(&fakeRouter{}, &fakeContacts{}, fakeSweeps{queued: true}, validator.New(), logger.Discard()))
	if rec := postJSON(engine, "/admin/holds/sweep", nil); rec.Code != http.StatusAccepted {
		t.Fatalf("queued status = %d", rec.Code)
	}

	engine = newEngine(New(&fakeRouter{}, &fakeContacts{}, fakeSweeps{report: holds.SweepReport{Visited: 2, Released: 1}}, validator.New(), logger.Discard()))
	rec := postJSON(engine, "/admin/holds/sweep", nil)
	var resp transport.SweepResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if rec.Code != http.StatusOK || resp.Visited != 2 || resp.Released != 1 {
		t.Fatalf("status=%d resp=%+v", rec.Code, resp)
	}
}
