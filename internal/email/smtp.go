package email

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"

	"studio_sales_backend/platform/config"
)

// SMTPSender implements Sender with a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

var _ Sender = (*SMTPSender)(nil)

// NewSMTPSender builds a sender from config.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

// SendMessage renders the reply as a plain-text body with an HTML
// alternative and delivers it.
func (s *SMTPSender) SendMessage(ctx context.Context, toEmail, toName, text string) error {
	msg, err := s.buildMessage(toEmail, toName, text)
	if err != nil {
		return err
	}

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}
	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) buildMessage(toEmail, toName, text string) (*gomail.Msg, error) {
	content, err := renderEmailTemplate("message.html", messageEmailData{
		baseEmailData: baseEmailData{Title: s.subject(), Heading: s.fromName},
		Greeting:      greeting(toName),
		Paragraphs:    paragraphs(text),
		Signature:     s.fromName,
	})
	if err != nil {
		return nil, err
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return nil, fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(s.subject())
	msg.SetBodyString(gomail.TypeTextPlain, text)
	msg.AddAlternativeString(gomail.TypeTextHTML, content)
	return msg, nil
}

func (s *SMTPSender) subject() string {
	if strings.TrimSpace(s.fromName) == "" {
		return subjectFallback
	}
	return fmt.Sprintf(subjectMessageFmt, s.fromName)
}

func greeting(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return "Hi,"
	}
	return "Hi " + name + ","
}
