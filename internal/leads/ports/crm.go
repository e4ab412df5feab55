// Package ports defines the interfaces that the leads engine requires from
// external systems. These interfaces form the Anti-Corruption Layer (ACL),
// so the engine only knows about the data it needs, shaped the way it wants.
package ports

import (
	"context"
	"time"

	"studio_sales_backend/internal/leads/domain"
)

// PipelineItem is one open opportunity on the studio's sales board.
type PipelineItem struct {
	ID         string
	ContactID  string
	AssigneeID string
	Stage      string
	UpdatedAt  time.Time
}

// ItemFilter narrows ListOpenItems. Empty slices mean "any".
type ItemFilter struct {
	AssigneeIDs []string
	Stages      []string
}

// LeadStore reads and updates contacts. UpdateLead applies one FieldUpdate
// atomically and returns the lead as stored afterwards.
type LeadStore interface {
	GetLead(ctx context.Context, contactID string) (domain.Lead, error)
	UpdateLead(ctx context.Context, contactID string, update *domain.FieldUpdate) (domain.Lead, error)
}

// PipelineReader lists open opportunities for workload scoring.
type PipelineReader interface {
	ListOpenItems(ctx context.Context, filter ItemFilter) ([]PipelineItem, error)
}

// HoldIndex finds leads that may carry an unconfirmed hold.
type HoldIndex interface {
	ListLeadsWithOpenHolds(ctx context.Context) ([]string, error)
}

// CRM is the full contact-system surface used by the composition root.
type CRM interface {
	LeadStore
	PipelineReader
	HoldIndex
}
