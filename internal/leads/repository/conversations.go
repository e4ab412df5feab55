package repository

import (
	"context"

	"studio_sales_backend/internal/leads/ports"

	"github.com/google/uuid"
)

// AppendMessage stores one turn of the conversation.
func (s *Store) AppendMessage(ctx context.Context, contactID string, msg ports.ConversationMessage) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conversation_messages (id, contact_id, role, channel, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.New(), contactID, string(msg.Role), msg.Channel, msg.Body, storedAt(msg.CreatedAt))
	return err
}

// RecentMessages returns up to limit messages, oldest first.
func (s *Store) RecentMessages(ctx context.Context, contactID string, limit int) ([]ports.ConversationMessage, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT role, channel, body, created_at
		FROM conversation_messages
		WHERE contact_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, contactID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]ports.ConversationMessage, 0, limit)
	for rows.Next() {
		var (
			msg  ports.ConversationMessage
			role string
		)
		if err := rows.Scan(&role, &msg.Channel, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.Role = ports.ConversationRole(role)
		messages = append(messages, msg)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
