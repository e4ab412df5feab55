// Package email delivers lead replies over SMTP.
package email

import "context"

// Sender delivers one plain reply to a lead's inbox.
type Sender interface {
	SendMessage(ctx context.Context, toEmail, toName, text string) error
}

// NoopSender drops every message. Used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendMessage(ctx context.Context, toEmail, toName, text string) error {
	return nil
}
