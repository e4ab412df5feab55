package workload

import (
	"context"
	"errors"
	"testing"

	"studio_sales_backend/internal/leads/domain"
	"studio_sales_backend/internal/leads/ports"
	"studio_sales_backend/platform/logger"
)

type stubPipeline struct {
	items []ports.PipelineItem
	err   error
}

func (s stubPipeline) ListOpenItems(_ context.Context, _ ports.ItemFilter) ([]ports.PipelineItem, error) {
	return s.items, s.err
}

func artists(ids ...string) []domain.Artist {
	out := make([]domain.Artist, len(ids))
	for i, id := range ids {
		out[i] = domain.Artist{ID: id, Active: true}
	}
	return out
}

func TestScoresUseStageWeights(t *testing.T) {
	b := New(stubPipeline{items: []ports.PipelineItem{
		{AssigneeID: "mara", Stage: domain.PipelineStageMessageConsult},
		{AssigneeID: "mara", Stage: domain.PipelineStageTattooBooked},
		{AssigneeID: "jonah", Stage: domain.PipelineStageAppointmentConsult},
		{AssigneeID: "jonah", Stage: domain.PipelineStageNewLead},
		{AssigneeID: "stranger", Stage: domain.PipelineStageTattooBooked},
	}}, logger.Discard())

	scores := b.Scores(context.Background(), []string{"mara", "jonah", "sol"})
	want := map[string]int{"mara": 4, "jonah": 2, "sol": 0}
	for id, w := range want {
		if scores[id] != w {
			t.Errorf("score[%s] = %d, want %d", id, scores[id], w)
		}
	}
	if _, ok := scores["stranger"]; ok {
		t.Error("unrequested assignees must not be scored")
	}
}

func TestScoresFallBackToCountsWithoutStages(t *testing.T) {
	b := New(stubPipeline{items: []ports.PipelineItem{
		{AssigneeID: "mara"}, {AssigneeID: "mara"}, {AssigneeID: "jonah"},
	}}, logger.Discard())

	scores := b.Scores(context.Background(), []string{"mara", "jonah"})
	if scores["mara"] != 2 || scores["jonah"] != 1 {
		t.Fatalf("unexpected unweighted scores %v", scores)
	}
}

func TestScoresDegradeToZeroOnError(t *testing.T) {
	b := New(stubPipeline{err: errors.New("crm down")}, logger.Discard())
	scores := b.Scores(context.Background(), []string{"mara"})
	if scores["mara"] != 0 {
		t.Fatalf("expected zero score on error, got %v", scores)
	}
}

func TestRankBreaksTiesByID(t *testing.T) {
	b := New(stubPipeline{items: []ports.PipelineItem{
		{AssigneeID: "zed", Stage: domain.PipelineStageMessageConsult},
		{AssigneeID: "amy", Stage: domain.PipelineStageMessageConsult},
	}}, logger.Discard())

	ranked := b.Rank(context.Background(), artists("zed", "bob", "amy"))
	got := []string{ranked[0].Artist.ID, ranked[1].Artist.ID, ranked[2].Artist.ID}
	want := []string{"bob", "amy", "zed"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rank order = %v, want %v", got, want)
		}
	}
}

func TestPickPrefersStyleMatch(t *testing.T) {
	roster := []domain.Artist{
		{ID: "mara", Active: true, Styles: []string{"fine line"}},
		{ID: "jonah", Active: true, Styles: []string{"blackwork"}},
		{ID: "off", Active: false},
	}
	b := New(stubPipeline{items: []ports.PipelineItem{
		{AssigneeID: "jonah", Stage: domain.PipelineStageTattooBooked},
	}}, logger.Discard())

	if a, ok := b.Pick(context.Background(), roster, "a blackwork sleeve"); !ok || a.ID != "jonah" {
		t.Fatalf("style match should win despite load, got %+v", a)
	}
	if a, ok := b.Pick(context.Background(), roster, "something small"); !ok || a.ID != "mara" {
		t.Fatalf("least loaded should win without style, got %+v", a)
	}
	if _, ok := b.Pick(context.Background(), roster[2:], ""); ok {
		t.Fatal("no active artists means no pick")
	}
}
