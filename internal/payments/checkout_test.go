package payments

import (
	"context"
	"errors"
	"testing"

	"studio_sales_backend/internal/leads/ports"
	"studio_sales_backend/platform/apperr"

	"github.com/stripe/stripe-go/v76"
)

type fakeSessions struct {
	params *stripe.CheckoutSessionParams
	err    error
	url    string
}

func (f *fakeSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.CheckoutSession{ID: "cs_test_1", URL: f.url}, nil
}

func TestCreateDepositLink(t *testing.T) {
	sessions := &fakeSessions{url: "https://checkout.stripe.test/cs_test_1"}
	checkout := &Checkout{sessions: sessions, successURL: "https://studio.test/thanks"}

	link, err := checkout.CreateDepositLink(context.Background(), ports.DepositLinkRequest{
		ContactID:      "c1",
		HoldID:         "appt-1",
		AmountCents:    10000,
		Currency:       "USD",
		Description:    "Consult deposit with Mara",
		CustomerEmail:  "rosa@example.test",
		IdempotencyKey: "deposit:c1:appt-1",
	})
	if err != nil {
		t.Fatalf("CreateDepositLink: %v", err)
	}
	if link.ID != "cs_test_1" || link.URL != sessions.url {
		t.Fatalf("link = %+v", link)
	}

	p := sessions.params
	if stripe.StringValue(p.IdempotencyKey) != "deposit:c1:appt-1" {
		t.Fatalf("idempotency key = %q", stripe.StringValue(p.IdempotencyKey))
	}
	if p.Metadata[MetadataContactID] != "c1" || p.Metadata[MetadataHoldID] != "appt-1" {
		t.Fatalf("metadata = %v", p.Metadata)
	}
	item := p.LineItems[0].PriceData
	if stripe.Int64Value(item.UnitAmount) != 10000 || stripe.StringValue(item.Currency) != "usd" {
		t.Fatalf("price = %d %s", stripe.Int64Value(item.UnitAmount), stripe.StringValue(item.Currency))
	}
	if stripe.StringValue(p.Mode) != "payment" || stripe.StringValue(p.CustomerEmail) != "rosa@example.test" {
		t.Fatalf("mode/email = %s %s", stripe.StringValue(p.Mode), stripe.StringValue(p.CustomerEmail))
	}
}

func TestCreateDepositLinkFailures(t *testing.T) {
	checkout := &Checkout{sessions: &fakeSessions{err: errors.New("card network down")}}
	_, err := checkout.CreateDepositLink(context.Background(), ports.DepositLinkRequest{ContactID: "c1", AmountCents: 100, Currency: "usd"})
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}

	checkout = &Checkout{sessions: &fakeSessions{}}
	if _, err := checkout.CreateDepositLink(context.Background(), ports.DepositLinkRequest{ContactID: "c1", AmountCents: 100}); !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("session without url should be unavailable, got %v", err)
	}
	if _, err := checkout.CreateDepositLink(context.Background(), ports.DepositLinkRequest{ContactID: "c1"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("zero amount should be invalid, got %v", err)
	}
}
