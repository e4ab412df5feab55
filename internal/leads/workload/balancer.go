// Package workload scores artists by their open pipeline so new leads go to
// whoever has the most room.
package workload

import (
	"context"
	"sort"

	"studio_sales_backend/internal/leads/domain"
	"studio_sales_backend/internal/leads/ports"
	"studio_sales_backend/platform/logger"
)

// StageWeights are the workload points per open opportunity in each stage.
var StageWeights = map[string]int{
	domain.PipelineStageMessageConsult:     1,
	domain.PipelineStageAppointmentConsult: 2,
	domain.PipelineStageTattooBooked:       3,
}

// Ranked is an artist with a computed score (lower is less loaded).
type Ranked struct {
	Artist domain.Artist
	Score  int
}

// Balancer computes workload scores from the CRM pipeline.
type Balancer struct {
	pipeline ports.PipelineReader
	log      *logger.Logger
}

// New builds a Balancer.
func New(pipeline ports.PipelineReader, log *logger.Logger) *Balancer {
	return &Balancer{pipeline: pipeline, log: log}
}

// Scores returns a score for every requested artist. When no open item carries
// a stage the score falls back to a plain count of open items. A pipeline
// failure yields all zeros so callers keep working with roster order.
func (b *Balancer) Scores(ctx context.Context, artistIDs []string) map[string]int {
	scores := make(map[string]int, len(artistIDs))
	for _, id := range artistIDs {
		scores[id] = 0
	}
	if len(artistIDs) == 0 {
		return scores
	}

	items, err := b.pipeline.ListOpenItems(ctx, ports.ItemFilter{AssigneeIDs: artistIDs})
	if err != nil {
		b.log.CollaboratorError("crm", "list_open_items", err)
		return scores
	}

	staged := false
	for _, item := range items {
		if item.Stage != "" {
			staged = true
			break
		}
	}

	for _, item := range items {
		if _, ok := scores[item.AssigneeID]; !ok {
			continue
		}
		if !staged {
			scores[item.AssigneeID]++
			continue
		}
		scores[item.AssigneeID] += StageWeights[item.Stage]
	}
	return scores
}

// Rank orders artists by score ascending, ties by artist id.
func (b *Balancer) Rank(ctx context.Context, artists []domain.Artist) []Ranked {
	ids := make([]string, len(artists))
	for i, a := range artists {
		ids[i] = a.ID
	}
	scores := b.Scores(ctx, ids)
	ranked := make([]Ranked, len(artists))
	for i, a := range artists {
		ranked[i] = Ranked{Artist: a, Score: scores[a.ID]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score < ranked[j].Score
		}
		return ranked[i].Artist.ID < ranked[j].Artist.ID
	})
	return ranked
}

// Pick returns the least-loaded active artist, preferring those whose styles
// appear in hint. ok is false when no artist is active.
func (b *Balancer) Pick(ctx context.Context, artists []domain.Artist, hint string) (domain.Artist, bool) {
	var pool, styled []domain.Artist
	for _, a := range artists {
		if !a.Active {
			continue
		}
		pool = append(pool, a)
		if hint != "" && a.DoesStyle(hint) {
			styled = append(styled, a)
		}
	}
	if len(styled) > 0 {
		pool = styled
	}
	if len(pool) == 0 {
		return domain.Artist{}, false
	}
	return b.Rank(ctx, pool)[0].Artist, true
}
