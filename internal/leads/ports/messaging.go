package ports

import (
	"context"
	"time"

	"studio_sales_backend/internal/leads/domain"
)

// Messenger delivers one outbound message to a lead over the best channel and
// reports which channel it used.
type Messenger interface {
	Send(ctx context.Context, lead domain.Lead, text string) (channel string, err error)
}

// ConversationRole marks who wrote a stored message.
type ConversationRole string

const (
	RoleLead      ConversationRole = "lead"
	RoleAssistant ConversationRole = "assistant"
)

// ConversationMessage is one stored turn.
type ConversationMessage struct {
	Role      ConversationRole
	Channel   string
	Body      string
	CreatedAt time.Time
}

// ConversationStore keeps recent history for the language-model fallback.
type ConversationStore interface {
	AppendMessage(ctx context.Context, contactID string, msg ConversationMessage) error
	RecentMessages(ctx context.Context, contactID string, limit int) ([]ConversationMessage, error)
}
