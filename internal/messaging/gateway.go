// Package messaging picks the outbound channel for a lead and hands the
// reply to the matching sender.
package messaging

import (
	"context"
	"errors"
	"strings"

	"studio_sales_backend/internal/leads/domain"
	"studio_sales_backend/internal/leads/ports"
	"studio_sales_backend/platform/apperr"
	"studio_sales_backend/platform/logger"
	"studio_sales_backend/platform/phone"
)

const (
	ChannelWhatsApp = "whatsapp"
	ChannelEmail    = "email"
	// ChannelLog marks replies that were only logged because no sender is configured.
	ChannelLog = "log"
)

var errNoChannel = errors.New("lead has no reachable channel")

// WhatsAppSender is implemented by whatsapp.Client.
type WhatsAppSender interface {
	SendMessage(ctx context.Context, phoneNumber, message string) error
}

// EmailSender is implemented by email.SMTPSender.
type EmailSender interface {
	SendMessage(ctx context.Context, toEmail, toName, text string) error
}

// Gateway implements ports.Messenger.
type Gateway struct {
	whatsapp WhatsAppSender
	email    EmailSender
	dryRun   bool
	log      *logger.Logger
}

var _ ports.Messenger = (*Gateway)(nil)

// NewGateway accepts nil senders for disabled channels. With dryRun set and
// no sender able to reach the lead, the reply is logged instead of failing.
func NewGateway(wa WhatsAppSender, mail EmailSender, dryRun bool, log *logger.Logger) *Gateway {
	return &Gateway{whatsapp: wa, email: mail, dryRun: dryRun, log: log}
}

// Send tries channels in preference order and reports the one that worked.
func (g *Gateway) Send(ctx context.Context, lead domain.Lead, text string) (string, error) {
	var lastErr error
	for _, channel := range g.channels(lead) {
		err := g.sendVia(ctx, channel, lead, text)
		if err == nil {
			return channel, nil
		}
		lastErr = err
		g.log.WithContactID(lead.ID).Warn("send failed, trying next channel", "channel", channel, "error", err)
	}
	if g.dryRun {
		g.log.WithContactID(lead.ID).Info("reply not delivered (dry run)", "text", text)
		return ChannelLog, nil
	}
	if lastErr == nil {
		return "", apperr.Unavailable("messaging", errNoChannel)
	}
	return "", lastErr
}

func (g *Gateway) sendVia(ctx context.Context, channel string, lead domain.Lead, text string) error {
	switch channel {
	case ChannelWhatsApp:
		return g.whatsapp.SendMessage(ctx, lead.Phone, text)
	case ChannelEmail:
		return g.email.SendMessage(ctx, lead.Email, lead.FirstName, text)
	}
	return errNoChannel
}

// channels lists reachable channels, preferred first: the channel the lead
// last wrote on, then channel tags, then whatever contact data exists.
func (g *Gateway) channels(lead domain.Lead) []string {
	var ordered []string
	add := func(channel string) {
		if channel == "" || !g.reachable(channel, lead) {
			return
		}
		for _, c := range ordered {
			if c == channel {
				return
			}
		}
		ordered = append(ordered, channel)
	}

	add(normalize(lead.Fields[domain.FieldLastInboundChannel]))
	for _, tag := range lead.Tags {
		add(normalize(strings.TrimPrefix(strings.ToLower(tag), "channel:")))
	}
	add(ChannelWhatsApp)
	add(ChannelEmail)
	return ordered
}

func (g *Gateway) reachable(channel string, lead domain.Lead) bool {
	switch channel {
	case ChannelWhatsApp:
		return g.whatsapp != nil && phone.Messageable(lead.Phone)
	case ChannelEmail:
		return g.email != nil && strings.Contains(lead.Email, "@")
	}
	return false
}

// normalize folds inbound channel names onto the senders that exist.
// SMS leads are answered on WhatsApp because the number is the same.
func normalize(channel string) string {
	switch strings.ToLower(strings.TrimSpace(channel)) {
	case "whatsapp", "sms":
		return ChannelWhatsApp
	case "email":
		return ChannelEmail
	}
	return ""
}
