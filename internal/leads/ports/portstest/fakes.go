// Package portstest provides in-memory collaborators for tests of the leads
// engine. Every fake is safe for concurrent use and records what it was asked
// to do.
package portstest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"studio_sales_backend/internal/leads/domain"
	"studio_sales_backend/internal/leads/ports"
)

// ErrNotFound is returned by CRM for unknown contacts.
var ErrNotFound = errors.New("contact not found")

// CRM is an in-memory contact store.
type CRM struct {
	mu        sync.Mutex
	leads     map[string]domain.Lead
	Items     []ports.PipelineItem
	Updates   []domain.FieldUpdate
	GetErr    error
	UpdateErr error
	ItemsErr  error
}

// NewCRM seeds the store.
func NewCRM(leads ...domain.Lead) *CRM {
	c := &CRM{leads: map[string]domain.Lead{}}
	for _, l := range leads {
		if l.Fields == nil {
			l.Fields = map[string]string{}
		}
		c.leads[l.ID] = l
	}
	return c
}

func (c *CRM) GetLead(_ context.Context, contactID string) (domain.Lead, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.GetErr != nil {
		return domain.Lead{}, c.GetErr
	}
	l, ok := c.leads[contactID]
	if !ok {
		return domain.Lead{}, ErrNotFound
	}
	return l, nil
}

func (c *CRM) UpdateLead(_ context.Context, contactID string, update *domain.FieldUpdate) (domain.Lead, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.UpdateErr != nil {
		return domain.Lead{}, c.UpdateErr
	}
	l, ok := c.leads[contactID]
	if !ok {
		return domain.Lead{}, ErrNotFound
	}
	l.Fields = update.Apply(l.Fields)
	for _, tag := range update.AddTags {
		if !l.HasTag(tag) {
			l.Tags = append(l.Tags, tag)
		}
	}
	if update.PipelineStage != "" {
		l.PipelineStage = update.PipelineStage
	}
	c.leads[contactID] = l
	c.Updates = append(c.Updates, *update)
	return l, nil
}

func (c *CRM) ListOpenItems(_ context.Context, filter ports.ItemFilter) ([]ports.PipelineItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ItemsErr != nil {
		return nil, c.ItemsErr
	}
	var out []ports.PipelineItem
	for _, item := range c.Items {
		if len(filter.AssigneeIDs) > 0 && !contains(filter.AssigneeIDs, item.AssigneeID) {
			continue
		}
		if len(filter.Stages) > 0 && !contains(filter.Stages, item.Stage) {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (c *CRM) ListLeadsWithOpenHolds(_ context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ids []string
	for id, l := range c.leads {
		if domain.Canonicalize(l.Fields).HasOpenHold() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Lead returns the stored copy.
func (c *CRM) Lead(contactID string) domain.Lead {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.leads[contactID]
}

// State canonicalizes the stored copy.
func (c *CRM) State(contactID string) domain.CanonicalState {
	return domain.Canonicalize(c.Lead(contactID).Fields)
}

// Calendar books appointments in memory. Windows maps resource ids to free
// windows; resources not in the map have none.
type Calendar struct {
	mu         sync.Mutex
	Windows    map[string][]ports.TimeRange
	Created    []ports.AppointmentRequest
	Changes    map[string][]ports.AppointmentChange
	Cancelled  []string
	FreeErr    error
	CreateErr  map[string]error
	CancelErr  error
	// CancelErrFor fails cancellation of specific appointment ids.
	CancelErrFor map[string]error
	nextID       int
	statusByID   map[string]string
}

// NewCalendar returns an empty calendar.
func NewCalendar() *Calendar {
	return &Calendar{
		Windows:    map[string][]ports.TimeRange{},
		Changes:    map[string][]ports.AppointmentChange{},
		CreateErr:  map[string]error{},
		statusByID: map[string]string{},
	}
}

func (c *Calendar) FreeSlots(_ context.Context, resourceID string, from, to time.Time, _ time.Duration) ([]ports.TimeRange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FreeErr != nil {
		return nil, c.FreeErr
	}
	var out []ports.TimeRange
	for _, w := range c.Windows[resourceID] {
		if !w.Start.Before(from) && w.Start.Before(to) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (c *Calendar) CreateAppointment(_ context.Context, req ports.AppointmentRequest) (ports.Appointment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.CreateErr[req.ResourceID]; err != nil {
		return ports.Appointment{}, err
	}
	c.nextID++
	id := fmt.Sprintf("appt-%d", c.nextID)
	c.Created = append(c.Created, req)
	c.statusByID[id] = req.Status
	return ports.Appointment{ID: id, ResourceID: req.ResourceID, Status: req.Status, Start: req.Start, End: req.End}, nil
}

func (c *Calendar) UpdateAppointment(_ context.Context, appointmentID string, change ports.AppointmentChange) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Changes[appointmentID] = append(c.Changes[appointmentID], change)
	if change.Status != "" {
		c.statusByID[appointmentID] = change.Status
	}
	return nil
}

func (c *Calendar) CancelAppointment(_ context.Context, appointmentID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.CancelErr != nil {
		return c.CancelErr
	}
	if err := c.CancelErrFor[appointmentID]; err != nil {
		return err
	}
	c.Cancelled = append(c.Cancelled, appointmentID)
	c.statusByID[appointmentID] = ports.AppointmentCancelled
	return nil
}

// Status returns the last known status of an appointment.
func (c *Calendar) Status(appointmentID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusByID[appointmentID]
}

// CreatedCount is the number of appointments booked so far.
func (c *Calendar) CreatedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Created)
}

// Video hands out predictable meeting links.
type Video struct {
	Err error
}

func (v Video) CreateMeetingLink(_ context.Context, appointmentID string) (string, error) {
	if v.Err != nil {
		return "", v.Err
	}
	return "https://meet.example.test/" + appointmentID, nil
}

// Payments returns one link per idempotency key.
type Payments struct {
	mu       sync.Mutex
	Err      error
	Requests []ports.DepositLinkRequest
	links    map[string]ports.DepositLink
}

// NewPayments returns a working payment provider.
func NewPayments() *Payments {
	return &Payments{links: map[string]ports.DepositLink{}}
}

func (p *Payments) CreateDepositLink(_ context.Context, req ports.DepositLinkRequest) (ports.DepositLink, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Requests = append(p.Requests, req)
	if p.Err != nil {
		return ports.DepositLink{}, p.Err
	}
	if link, ok := p.links[req.IdempotencyKey]; ok {
		return link, nil
	}
	id := fmt.Sprintf("cs_%d", len(p.links)+1)
	link := ports.DepositLink{ID: id, URL: "https://pay.example.test/" + id}
	p.links[req.IdempotencyKey] = link
	return link, nil
}

// LinkCount is the number of distinct links created.
func (p *Payments) LinkCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.links)
}

// SetErr changes the failure mode.
func (p *Payments) SetErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Err = err
}

// SentMessage is one outbound message.
type SentMessage struct {
	ContactID string
	Text      string
}

// Messenger records outbound messages.
type Messenger struct {
	mu      sync.Mutex
	Err     error
	Channel string
	sent    []SentMessage
}

func (m *Messenger) Send(_ context.Context, lead domain.Lead, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	m.sent = append(m.sent, SentMessage{ContactID: lead.ID, Text: text})
	if m.Channel == "" {
		return "whatsapp", nil
	}
	return m.Channel, nil
}

// Sent returns a copy of everything delivered.
func (m *Messenger) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.sent...)
}

// Last returns the most recent message text, or "".
func (m *Messenger) Last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].Text
}

// Conversations keeps history in memory.
type Conversations struct {
	mu       sync.Mutex
	messages map[string][]ports.ConversationMessage
}

// NewConversations returns an empty store.
func NewConversations() *Conversations {
	return &Conversations{messages: map[string][]ports.ConversationMessage{}}
}

func (c *Conversations) AppendMessage(_ context.Context, contactID string, msg ports.ConversationMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages[contactID] = append(c.messages[contactID], msg)
	return nil
}

func (c *Conversations) RecentMessages(_ context.Context, contactID string, limit int) ([]ports.ConversationMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	all := c.messages[contactID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]ports.ConversationMessage(nil), all...), nil
}

// Assistant returns a canned reply.
type Assistant struct {
	mu       sync.Mutex
	Canned   ports.AssistantReply
	Err      error
	requests []ports.AssistantRequest
}

func (a *Assistant) Reply(_ context.Context, req ports.AssistantRequest) (ports.AssistantReply, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, req)
	if a.Err != nil {
		return ports.AssistantReply{}, a.Err
	}
	return a.Canned, nil
}

// Requests returns what the assistant was asked.
func (a *Assistant) Requests() []ports.AssistantRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]ports.AssistantRequest(nil), a.requests...)
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
