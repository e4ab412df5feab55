package router

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"studio_sales_backend/internal/leads/domain"
	"studio_sales_backend/internal/leads/holds"
	"studio_sales_backend/internal/leads/intent"
	"studio_sales_backend/internal/leads/locker"
	"studio_sales_backend/internal/leads/ports"
	"studio_sales_backend/internal/leads/ports/portstest"
	"studio_sales_backend/internal/leads/slots"
	"studio_sales_backend/internal/leads/workload"
	"studio_sales_backend/internal/studio"
	"studio_sales_backend/platform/logger"
)

var est = time.FixedZone("EST", -5*3600)

type harness struct {
	crm       *portstest.CRM
	cal       *portstest.Calendar
	pay       *portstest.Payments
	msg       *portstest.Messenger
	history   *portstest.Conversations
	assistant *portstest.Assistant
	locks     *locker.Memory
	router    *Router
	now       time.Time
	seq       int
}

func qualified() map[string]string {
	return map[string]string{
		domain.FieldTattooSummary: "fine line peony",
		domain.FieldPlacement:     "forearm",
		domain.FieldSize:          "palm sized",
		domain.FieldTimeline:      "next month",
	}
}

func decemberOffer() []domain.Slot {
	at := func(day int) domain.Slot {
		start := time.Date(2024, time.December, day, 17, 0, 0, 0, est)
		return domain.Slot{Start: start, End: start.Add(30 * time.Minute), ArtistID: "mara", ResourceID: "res-mara"}
	}
	return []domain.Slot{at(20), at(23), at(24)}
}

func newHarness(t *testing.T, fields map[string]string) *harness {
	t.Helper()
	roster, err := studio.NewRoster([]domain.Artist{
		{ID: "mara", Name: "Mara", Active: true, Resources: map[domain.ConsultMode]string{
			domain.ConsultModeAppointment: "res-mara",
			domain.ConsultModeMessage:     "res-mara-msg",
		}},
		{ID: "sol", Name: "Sol", Active: true, Resources: map[domain.ConsultMode]string{
			domain.ConsultModeAppointment: "res-sol",
			domain.ConsultModeMessage:     "res-sol-msg",
		}},
	}, nil)
	if err != nil {
		t.Fatalf("NewRoster: %v", err)
	}
	rules, err := intent.DefaultRuleSet()
	if err != nil {
		t.Fatalf("DefaultRuleSet: %v", err)
	}

	h := &harness{
		crm:       portstest.NewCRM(domain.Lead{ID: "c1", FirstName: "Rosa", Phone: "+15551234567", Fields: fields}),
		cal:       portstest.NewCalendar(),
		pay:       portstest.NewPayments(),
		msg:       &portstest.Messenger{},
		history:   portstest.NewConversations(),
		assistant: &portstest.Assistant{Canned: ports.AssistantReply{Text: "Happy to help!"}},
		locks:     locker.NewMemory(time.Hour),
		now:       time.Date(2024, time.December, 16, 10, 0, 0, 0, est),
	}
	clock := func() time.Time { return h.now }
	log := logger.Discard()

	engine := slots.NewEngine(nil, roster, workload.New(h.crm, log), slots.Config{
		Location: est, OfferCount: 3, ConsultDuration: 30 * time.Minute, HorizonDays: 21, Synthetic: true,
	}, log).WithClock(clock)

	manager := holds.New(holds.Deps{
		Leads:     h.crm,
		Index:     h.crm,
		Calendar:  h.cal,
		Video:     portstest.Video{},
		Payments:  h.pay,
		Messenger: h.msg,
		Locker:    h.locks,
		Roster:    roster,
	}, holds.Config{TTL: 20 * time.Minute, WarningWindow: 5 * time.Minute, DepositAmountCents: 10000, Currency: "usd", Location: est}, log).WithClock(clock)

	h.router = New(Deps{
		Leads:      h.crm,
		Messenger:  h.msg,
		History:    h.history,
		Assistant:  h.assistant,
		Locker:     h.locks,
		Deduper:    h.locks,
		Classifier: intent.NewClassifier(rules),
		Slots:      engine,
		Holds:      manager,
		Roster:     roster,
	}, Config{LockWait: 50 * time.Millisecond, DepositAmountCents: 10000, Currency: "usd"}, log).WithClock(clock)
	return h
}

func (h *harness) send(t *testing.T, text string) Outcome {
	t.Helper()
	h.seq++
	out, err := h.router.Handle(context.Background(), Inbound{
		ContactID: "c1",
		MessageID: "m" + strconv.Itoa(h.seq),
		Channel:   "whatsapp",
		Text:      text,
	})
	if err != nil {
		t.Fatalf("Handle(%q): %v", text, err)
	}
	return out
}

func TestVideoCallThisWeekSchedulesAndRecordsChoice(t *testing.T) {
	h := newHarness(t, qualified())

	out := h.send(t, "Video call this week—what times?")
	if out.Route != RouteScheduling || out.Marker != MarkerSlotsOffered {
		t.Fatalf("route = %s marker = %s", out.Route, out.Marker)
	}
	state := h.crm.State("c1")
	if mode, _ := state.ConsultMode.Get(); mode != domain.ConsultModeAppointment {
		t.Fatalf("consult choice not applied: %+v", state.ConsultMode)
	}
	if len(state.LastOfferedSlots) != 3 {
		t.Fatalf("offered slots not stored: %d", len(state.LastOfferedSlots))
	}
	if out.Phase != domain.PhaseScheduling || h.crm.Lead("c1").PipelineStage != domain.PipelineStageAppointmentConsult {
		t.Fatalf("phase %s stage %s", out.Phase, h.crm.Lead("c1").PipelineStage)
	}
	if !out.Sent || !strings.Contains(h.msg.Last(), "1) Tue Dec 17 11am with Mara") {
		t.Fatalf("reply = %q", h.msg.Last())
	}
}

func TestOptionOneCreatesHold(t *testing.T) {
	fields := qualified()
	fields[domain.FieldConsultMode] = "appointment"
	fields[domain.FieldLastOfferedSlots] = domain.EncodeSlots(decemberOffer())
	h := newHarness(t, fields)

	out := h.send(t, "Option 1")
	if out.Route != RouteSlotSelection || out.Marker != MarkerHoldCreated {
		t.Fatalf("route = %s marker = %s", out.Route, out.Marker)
	}
	if out.Selection == nil || out.Selection.Index != 0 {
		t.Fatalf("selection = %+v", out.Selection)
	}
	if !h.cal.Created[0].Start.Equal(decemberOffer()[0].Start) {
		t.Fatalf("booked %s", h.cal.Created[0].Start)
	}
	state := h.crm.State("c1")
	if !strings.Contains(h.msg.Last(), state.DepositLinkURL.OrElse("missing")) {
		t.Fatalf("hold reply should carry the deposit link: %q", h.msg.Last())
	}
	if out.Phase != domain.PhaseDepositPending {
		t.Fatalf("phase = %s", out.Phase)
	}
	if len(h.msg.Sent()) != 1 {
		t.Fatalf("exactly one combined message, got %d", len(h.msg.Sent()))
	}
}

func TestAmbiguousSelectionAsksToClarify(t *testing.T) {
	fields := qualified()
	fields[domain.FieldConsultMode] = "appointment"
	fields[domain.FieldLastOfferedSlots] = domain.EncodeSlots(decemberOffer())
	h := newHarness(t, fields)

	out := h.send(t, "I'll take friday or monday")
	if out.Route != RouteSlotSelection || out.Marker != MarkerSelectionClarify {
		t.Fatalf("route = %s marker = %s", out.Route, out.Marker)
	}
	if h.cal.CreatedCount() != 0 {
		t.Fatal("an ambiguous reply must never book")
	}
	if !strings.Contains(h.msg.Last(), "1) Fri Dec 20 5pm") {
		t.Fatalf("clarification should list the options: %q", h.msg.Last())
	}
}

func TestNumbersInOtherMessagesNeverBook(t *testing.T) {
	for _, text := range []string{
		"How much would a 3 inch rose cost?",
		"I have 2 questions before I decide",
	} {
		fields := qualified()
		fields[domain.FieldConsultMode] = "appointment"
		fields[domain.FieldLastOfferedSlots] = domain.EncodeSlots(decemberOffer())
		h := newHarness(t, fields)

		out := h.send(t, text)
		if out.Route == RouteSlotSelection || h.cal.CreatedCount() != 0 {
			t.Errorf("%q: route = %s marker = %s booked = %d", text, out.Route, out.Marker, h.cal.CreatedCount())
		}
		if h.crm.State("c1").HasOpenHold() {
			t.Errorf("%q must not create a hold", text)
		}
	}
}

func TestBareDateReplyPicksOfferedSlot(t *testing.T) {
	fields := qualified()
	fields[domain.FieldConsultMode] = "appointment"
	fields[domain.FieldLastOfferedSlots] = domain.EncodeSlots(decemberOffer())
	h := newHarness(t, fields)

	out := h.send(t, "the 24th")
	if out.Route != RouteSlotSelection || out.Marker != MarkerHoldCreated {
		t.Fatalf("route = %s marker = %s", out.Route, out.Marker)
	}
	if !h.cal.Created[0].Start.Equal(decemberOffer()[2].Start) {
		t.Fatalf("booked %s", h.cal.Created[0].Start)
	}
}

func TestDepositMarkers(t *testing.T) {
	t.Run("already paid offers slots", func(t *testing.T) {
		fields := qualified()
		fields[domain.FieldConsultMode] = "appointment"
		fields[domain.FieldDepositPaid] = "true"
		h := newHarness(t, fields)

		out := h.send(t, "send me the link")
		if out.Marker != MarkerDepositPaidOffer {
			t.Fatalf("marker = %s", out.Marker)
		}
		if len(h.pay.Requests) != 0 {
			t.Fatal("no deposit link for a paid lead")
		}
		if !strings.Contains(out.Reply, "Here are the next openings") {
			t.Fatalf("reply should offer slots: %q", out.Reply)
		}
	})

	t.Run("open hold resends link", func(t *testing.T) {
		fields := qualified()
		fields[domain.FieldConsultMode] = "appointment"
		fields[domain.FieldLastOfferedSlots] = domain.EncodeSlots(decemberOffer())
		h := newHarness(t, fields)
		h.send(t, "option 2")

		out := h.send(t, "can you send me the link again")
		if out.Marker != MarkerDepositLinkResent {
			t.Fatalf("marker = %s", out.Marker)
		}
		if h.pay.LinkCount() != 1 {
			t.Fatal("resending must not create a second link")
		}
	})

	t.Run("no hold offers slots", func(t *testing.T) {
		fields := qualified()
		fields[domain.FieldConsultMode] = "appointment"
		h := newHarness(t, fields)

		out := h.send(t, "where do I pay the deposit?")
		if out.Marker != MarkerDepositNoHoldOffer {
			t.Fatalf("marker = %s", out.Marker)
		}
	})
}

func TestCancelReleasesHold(t *testing.T) {
	fields := qualified()
	fields[domain.FieldConsultMode] = "appointment"
	fields[domain.FieldLastOfferedSlots] = domain.EncodeSlots(decemberOffer())
	h := newHarness(t, fields)
	h.send(t, "option 1")

	out := h.send(t, "please cancel my appointment")
	if out.Route != RouteRescheduleCancel || out.Marker != MarkerCancelled {
		t.Fatalf("route = %s marker = %s", out.Route, out.Marker)
	}
	if h.cal.Status("appt-1") != ports.AppointmentCancelled || h.crm.State("c1").HasOpenHold() {
		t.Fatal("hold not released")
	}
}

func TestRescheduleOffersNewSlots(t *testing.T) {
	fields := qualified()
	fields[domain.FieldConsultMode] = "appointment"
	fields[domain.FieldLastOfferedSlots] = domain.EncodeSlots(decemberOffer())
	h := newHarness(t, fields)
	h.send(t, "option 1")

	out := h.send(t, "can I reschedule to thursday?")
	if out.Marker != MarkerRescheduled {
		t.Fatalf("marker = %s", out.Marker)
	}
	state := h.crm.State("c1")
	if state.HasOpenHold() || len(state.LastOfferedSlots) == 0 {
		t.Fatalf("expected released hold and fresh offers: %+v", state)
	}
	for _, s := range state.LastOfferedSlots {
		if s.Start.In(est).Weekday() != time.Thursday {
			t.Fatalf("preference ignored: %s", s.Start)
		}
	}
}

func TestProcessQuestionFallsBackToFAQ(t *testing.T) {
	h := newHarness(t, qualified())
	h.assistant.Err = errors.New("model timeout")

	out := h.send(t, "how much does a sleeve cost?")
	if out.Route != RouteProcessOrPrice || out.Marker != MarkerProcessFAQ {
		t.Fatalf("route = %s marker = %s", out.Route, out.Marker)
	}
	if !strings.Contains(out.Reply, "$100 deposit") {
		t.Fatalf("reply = %q", out.Reply)
	}
}

func TestAssistantFailureStillReplies(t *testing.T) {
	h := newHarness(t, qualified())
	h.assistant.Err = errors.New("model timeout")

	out := h.send(t, "love your work btw")
	if out.Route != RouteFallback || out.Marker != MarkerAssistantUnavailable {
		t.Fatalf("route = %s marker = %s", out.Route, out.Marker)
	}
	if !out.Sent || h.msg.Last() != fallbackReply {
		t.Fatalf("the lead must always get a reply, got %q", h.msg.Last())
	}
}

func TestAssistantReceivesContext(t *testing.T) {
	h := newHarness(t, qualified())

	h.send(t, "hi there")
	out := h.send(t, "it's a bit expensive for me honestly")
	if out.Marker != MarkerAssistant {
		t.Fatalf("marker = %s", out.Marker)
	}
	reqs := h.assistant.Requests()
	last := reqs[len(reqs)-1]
	if last.Objection == nil || last.Objection.Category != "price" {
		t.Fatalf("objection not passed: %+v", last.Objection)
	}
	if len(last.History) < 3 || last.Phase != domain.PhaseConsultPath {
		t.Fatalf("history/phase not passed: %d %s", len(last.History), last.Phase)
	}
}

func TestAssistantHandoff(t *testing.T) {
	h := newHarness(t, qualified())
	h.assistant.Canned = ports.AssistantReply{Text: "Let me get the team.", Meta: ports.AssistantMeta{HandoffToHuman: true}}

	out := h.send(t, "I need to talk to a real person")
	if out.Marker != MarkerHandoff || h.crm.Lead("c1").PipelineStage != domain.PipelineStageManualIntervention {
		t.Fatalf("marker = %s stage = %s", out.Marker, h.crm.Lead("c1").PipelineStage)
	}
}

func TestDuplicateDeliveryIsIgnored(t *testing.T) {
	h := newHarness(t, qualified())
	in := Inbound{ContactID: "c1", MessageID: "wamid.dup", Channel: "whatsapp", Text: "hello"}

	if _, err := h.router.Handle(context.Background(), in); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	out, err := h.router.Handle(context.Background(), in)
	if err != nil || !out.Duplicate {
		t.Fatalf("second delivery should be a duplicate, got %+v %v", out, err)
	}
	if len(h.msg.Sent()) != 1 {
		t.Fatalf("replies = %d, want 1", len(h.msg.Sent()))
	}
}

func TestBusyLeadGetsHoldingReply(t *testing.T) {
	h := newHarness(t, qualified())
	release, ok, _ := h.locks.TryLock(context.Background(), "c1")
	if !ok {
		t.Fatal("lock should be free")
	}
	defer release()

	out := h.send(t, "hello?")
	if out.Marker != "lock_busy" || h.msg.Last() != busyReply {
		t.Fatalf("marker = %s reply = %q", out.Marker, h.msg.Last())
	}
}

func TestBusyMessageIsProcessedOnRedelivery(t *testing.T) {
	h := newHarness(t, qualified())
	in := Inbound{ContactID: "c1", MessageID: "wamid.retry", Channel: "whatsapp", Text: "hello?"}

	release, ok, _ := h.locks.TryLock(context.Background(), "c1")
	if !ok {
		t.Fatal("lock should be free")
	}
	out, err := h.router.Handle(context.Background(), in)
	if err != nil || out.Marker != "lock_busy" {
		t.Fatalf("first delivery should hit the busy lead, got %+v %v", out, err)
	}
	release()

	out, err = h.router.Handle(context.Background(), in)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if out.Duplicate || out.Marker == "lock_busy" {
		t.Fatalf("redelivery must be handled, got %+v", out)
	}
	if h.msg.Last() == busyReply {
		t.Fatalf("redelivery should get a real reply, got %q", h.msg.Last())
	}
}

func TestWriteBackRecordsPhaseAndIntent(t *testing.T) {
	h := newHarness(t, qualified())

	h.send(t, "what times do you have next week?")
	lead := h.crm.Lead("c1")
	if lead.Fields[domain.FieldLastIntent] != "scheduling" {
		t.Fatalf("last intent = %q", lead.Fields[domain.FieldLastIntent])
	}
	if lead.Fields[domain.FieldLastInboundChannel] != "whatsapp" {
		t.Fatalf("channel = %q", lead.Fields[domain.FieldLastInboundChannel])
	}
	if lead.Fields[domain.FieldPhase] == "" {
		t.Fatal("phase cache not written")
	}
}

func TestHandleDepositPaid(t *testing.T) {
	fields := qualified()
	fields[domain.FieldConsultMode] = "appointment"
	fields[domain.FieldLastOfferedSlots] = domain.EncodeSlots(decemberOffer())
	h := newHarness(t, fields)
	h.send(t, "option 3")

	out, err := h.router.HandleDepositPaid(context.Background(), "c1")
	if err != nil {
		t.Fatalf("HandleDepositPaid: %v", err)
	}
	if out.Phase != domain.PhaseBooked || !out.Sent {
		t.Fatalf("outcome = %+v", out)
	}
	if h.cal.Status("appt-1") != ports.AppointmentConfirmed {
		t.Fatal("appointment not confirmed")
	}

	again, err := h.router.HandleDepositPaid(context.Background(), "c1")
	if err != nil || again.Sent {
		t.Fatalf("duplicate webhook must not message the lead again: %+v %v", again, err)
	}
}

func TestUnknownLeadIsAnError(t *testing.T) {
	h := newHarness(t, qualified())
	if _, err := h.router.Handle(context.Background(), Inbound{ContactID: "nobody", Text: "hi"}); err == nil {
		t.Fatal("expected an error for an unknown contact")
	}
	if _, err := h.router.Handle(context.Background(), Inbound{Text: "hi"}); err == nil {
		t.Fatal("expected a validation error without contact id")
	}
}
