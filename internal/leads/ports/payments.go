package ports

import "context"

// DepositLinkRequest asks for a hosted checkout for the consult deposit.
// IdempotencyKey must be stable for one hold so retries never create a
// second payable link.
type DepositLinkRequest struct {
	ContactID      string
	HoldID         string
	AmountCents    int64
	Currency       string
	Description    string
	CustomerEmail  string
	IdempotencyKey string
}

// DepositLink is a payable URL.
type DepositLink struct {
	ID  string
	URL string
}

// Payments creates deposit links. Payment confirmation arrives asynchronously
// through the provider webhook.
type Payments interface {
	CreateDepositLink(ctx context.Context, req DepositLinkRequest) (DepositLink, error)
}
