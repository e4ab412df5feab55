package messaging

import (
	"context"
	"errors"
	"testing"

	"studio_sales_backend/internal/leads/domain"
	"studio_sales_backend/platform/apperr"
	"studio_sales_backend/platform/logger"
)

type fakeWhatsApp struct {
	sent []string
	err  error
}

func (f *fakeWhatsApp) SendMessage(_ context.Context, phoneNumber, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, phoneNumber)
	return nil
}

type fakeEmail struct {
	sent []string
	err  error
}

func (f *fakeEmail) SendMessage(_ context.Context, toEmail, _, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, toEmail)
	return nil
}

func TestSendPrefersLastInboundChannel(t *testing.T) {
	wa, mail := &fakeWhatsApp{}, &fakeEmail{}
	g := NewGateway(wa, mail, false, logger.Discard())
	lead := domain.Lead{
		ID:     "c1",
		Phone:  "+14155552671",
		Email:  "ana@example.com",
		Fields: map[string]string{domain.FieldLastInboundChannel: "email"},
	}

	channel, err := g.Send(context.Background(), lead, "hi")
	if err != nil || channel != ChannelEmail {
		t.Fatalf("channel=%q err=%v", channel, err)
	}
	if len(mail.sent) != 1 || len(wa.sent) != 0 {
		t.Fatalf("wa=%v mail=%v", wa.sent, mail.sent)
	}
}

func TestSendUsesTagsThenContactData(t *testing.T) {
	wa, mail := &fakeWhatsApp{}, &fakeEmail{}
	g := NewGateway(wa, mail, false, logger.Discard())

	tagged := domain.Lead{ID: "c1", Phone: "+14155552671", Email: "ana@example.com", Tags: []string{"channel:email"}}
	if ch, _ := g.Send(context.Background(), tagged, "hi"); ch != ChannelEmail {
		t.Fatalf("tagged channel = %q", ch)
	}

	sms := domain.Lead{ID: "c2", Phone: "+14155552671", Fields: map[string]string{domain.FieldLastInboundChannel: "sms"}}
	if ch, _ := g.Send(context.Background(), sms, "hi"); ch != ChannelWhatsApp {
		t.Fatalf("sms channel = %q", ch)
	}
}

func TestSendFallsBackWhenPreferredFails(t *testing.T) {
	wa := &fakeWhatsApp{err: apperr.Unavailable("whatsapp", errors.New("offline"))}
	mail := &fakeEmail{}
	g := NewGateway(wa, mail, false, logger.Discard())
	lead := domain.Lead{ID: "c1", Phone: "+14155552671", Email: "ana@example.com"}

	channel, err := g.Send(context.Background(), lead, "hi")
	if err != nil || channel != ChannelEmail {
		t.Fatalf("channel=%q err=%v", channel, err)
	}
}

func TestSendUnreachableLead(t *testing.T) {
	g := NewGateway(&fakeWhatsApp{}, nil, false, logger.Discard())
	_, err := g.Send(context.Background(), domain.Lead{ID: "c1", Email: "ana@example.com"}, "hi")
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("err = %v", err)
	}

	dry := NewGateway(nil, nil, true, logger.Discard())
	channel, err := dry.Send(context.Background(), domain.Lead{ID: "c1"}, "hi")
	if err != nil || channel != ChannelLog {
		t.Fatalf("dry run channel=%q err=%v", channel, err)
	}
}
