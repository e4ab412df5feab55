package transport

import "time"

// InboundMessageRequest is posted by the messaging provider for every
// message a lead sends. Contact details are optional and only fill gaps.
type InboundMessageRequest struct {
	ContactID string `json:"contactId" validate:"required,max=128"`
	MessageID string `json:"messageId" validate:"required,max=256"`
	Channel   string `json:"channel" validate:"required,channel"`
	Text      string `json:"text" validate:"max=4000"`
	FirstName string `json:"firstName,omitempty" validate:"max=100"`
	LastName  string `json:"lastName,omitempty" validate:"max=100"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
}

type InboundMessageResponse struct {
	Route     string   `json:"route,omitempty"`
	Marker    string   `json:"marker,omitempty"`
	Phase     string   `json:"phase,omitempty"`
	Intents   []string `json:"intents,omitempty"`
	Replied   bool     `json:"replied"`
	Duplicate bool     `json:"duplicate"`
}

type SlotResponse struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	ArtistID string    `json:"artistId"`
	Label    string    `json:"label"`
}

type HoldResponse struct {
	AppointmentID string     `json:"appointmentId"`
	ArtistID      string     `json:"artistId,omitempty"`
	Start         *time.Time `json:"start,omitempty"`
	End           *time.Time `json:"end,omitempty"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
	WarningSent   bool       `json:"warningSent"`
}

// LeadStateResponse is the admin view of a lead's derived state.
type LeadStateResponse struct {
	ContactID        string         `json:"contactId"`
	Phase            string         `json:"phase"`
	PipelineStage    string         `json:"pipelineStage"`
	ConsultMode      string         `json:"consultMode,omitempty"`
	TranslatorNeeded bool           `json:"translatorNeeded"`
	DepositPaid      bool           `json:"depositPaid"`
	DepositLinkSent  bool           `json:"depositLinkSent"`
	Hold             *HoldResponse  `json:"hold,omitempty"`
	OfferedSlots     []SlotResponse `json:"offeredSlots"`
}

type SweepResponse struct {
	Queued   bool `json:"queued"`
	Visited  int  `json:"visited"`
	Skipped  int  `json:"skipped"`
	Warned   int  `json:"warned"`
	Released int  `json:"released"`
	Retried  int  `json:"retried"`
	Failed   int  `json:"failed"`
}
