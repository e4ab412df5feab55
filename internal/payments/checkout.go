// Package payments creates consult-deposit checkout links and receives the
// provider's payment confirmations.
package payments

import (
	"context"
	"errors"
	"strings"

	"studio_sales_backend/internal/leads/ports"
	"studio_sales_backend/platform/apperr"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// Metadata keys stamped on every checkout session.
const (
	MetadataContactID = "contact_id"
	MetadataHoldID    = "hold_appointment_id"
)

type sessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// Checkout creates Stripe Checkout sessions for deposits.
type Checkout struct {
	sessions   sessionCreator
	successURL string
}

// NewCheckout builds a Stripe-backed deposit link provider.
func NewCheckout(secretKey, successURL string) *Checkout {
	api := client.New(secretKey, nil)
	return &Checkout{sessions: api.CheckoutSessions, successURL: successURL}
}

var _ ports.Payments = (*Checkout)(nil)

// CreateDepositLink opens a one-item payment session. The idempotency key is
// passed through so a retried request returns the session already created.
func (c *Checkout) CreateDepositLink(ctx context.Context, req ports.DepositLinkRequest) (ports.DepositLink, error) {
	if req.AmountCents <= 0 {
		return ports.DepositLink{}, apperr.Validation("deposit amount must be positive")
	}
	if strings.TrimSpace(req.ContactID) == "" {
		return ports.DepositLink{}, apperr.Validation("contact id is required")
	}
	description := req.Description
	if description == "" {
		description = "Consult deposit"
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(c.successURL),
		ClientReferenceID: stripe.String(req.ContactID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(req.Currency)),
				UnitAmount: stripe.Int64(req.AmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(description),
				},
			},
		}},
		Metadata: map[string]string{
			MetadataContactID: req.ContactID,
			MetadataHoldID:    req.HoldID,
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Description: stripe.String(description),
			Metadata: map[string]string{
				MetadataContactID: req.ContactID,
				MetadataHoldID:    req.HoldID,
			},
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.Context = ctx

	session, err := c.sessions.New(params)
	if err != nil {
		return ports.DepositLink{}, apperr.Unavailable("payments", err)
	}
	if session.URL == "" {
		return ports.DepositLink{}, apperr.Unavailable("payments", errors.New("checkout session has no url"))
	}
	return ports.DepositLink{ID: session.ID, URL: session.URL}, nil
}
