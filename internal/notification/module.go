// Package notification alerts studio staff when a conversation needs a person:
// handoffs, failed deposit links and confirmed bookings.
package notification

import (
	"context"
	"fmt"
	"strings"

	"studio_sales_backend/internal/email"
	"studio_sales_backend/internal/events"
	"studio_sales_backend/platform/logger"
)

// Module subscribes to engine events and emails the staff inbox.
type Module struct {
	sender     email.Sender
	staffEmail string
	log        *logger.Logger
}

// New returns a module. With an empty staffEmail alerts are only logged.
func New(sender email.Sender, staffEmail string, log *logger.Logger) *Module {
	if sender == nil {
		sender = email.NoopSender{}
	}
	return &Module{sender: sender, staffEmail: strings.TrimSpace(staffEmail), log: log}
}

// RegisterHandlers subscribes to the events staff care about.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.HandoffRequested{}.EventName(), m)
	bus.Subscribe(events.DepositLinkFailed{}.EventName(), m)
	bus.Subscribe(events.HoldConfirmed{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate alert.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.HandoffRequested:
		return m.alert(ctx, e.ContactID, "Lead asked for a person",
			fmt.Sprintf("Lead %s needs a reply from the team.\n\nLast message:\n%s", e.ContactID, e.Message))
	case events.DepositLinkFailed:
		return m.alert(ctx, e.ContactID, "Deposit link failed",
			fmt.Sprintf("The deposit link for lead %s (hold %s) could not be created.\n\nError: %s\n\nThe sweep will retry while the hold is open.", e.ContactID, e.AppointmentID, e.Error))
	case events.HoldConfirmed:
		return m.alert(ctx, e.ContactID, "Consult booked",
			fmt.Sprintf("Lead %s paid the deposit. Appointment %s is confirmed.", e.ContactID, e.AppointmentID))
	default:
		return nil
	}
}

func (m *Module) alert(ctx context.Context, contactID, title, body string) error {
	log := m.log.WithContactID(contactID)
	log.Info("staff alert", "title", title)
	if m.staffEmail == "" {
		return nil
	}
	if err := m.sender.SendMessage(ctx, m.staffEmail, "", title+"\n\n"+body); err != nil {
		log.CollaboratorError("email", "staff_alert", err)
		return err
	}
	return nil
}
