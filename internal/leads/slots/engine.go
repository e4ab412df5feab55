// Package slots generates consult slots to offer a lead and resolves the
// lead's free-text reply to one of the offered slots.
package slots

import (
	"context"
	"regexp"
	"sort"
	"time"

	"studio_sales_backend/internal/leads/domain"
	"studio_sales_backend/internal/leads/ports"
	"studio_sales_backend/internal/leads/workload"
	"studio_sales_backend/internal/studio"
	"studio_sales_backend/platform/apperr"
	"studio_sales_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

// Config controls generation.
type Config struct {
	Location        *time.Location
	OfferCount      int
	ConsultDuration time.Duration
	HorizonDays     int
	Synthetic       bool
}

// Engine produces slot offers.
type Engine struct {
	calendar ports.Calendar
	roster   *studio.Roster
	balancer *workload.Balancer
	cfg      Config
	log      *logger.Logger
	now      func() time.Time
}

// NewEngine builds an Engine. calendar may be nil, in which case the
// synthetic schedule is used.
func NewEngine(calendar ports.Calendar, roster *studio.Roster, balancer *workload.Balancer, cfg Config, log *logger.Logger) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.OfferCount <= 0 {
		cfg.OfferCount = 3
	}
	if cfg.ConsultDuration <= 0 {
		cfg.ConsultDuration = 30 * time.Minute
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 21
	}
	return &Engine{calendar: calendar, roster: roster, balancer: balancer, cfg: cfg, log: log, now: time.Now}
}

// WithClock overrides the time source.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Location is the studio timezone slots are presented in.
func (e *Engine) Location() *time.Location {
	return e.cfg.Location
}

// Request describes one offer.
type Request struct {
	Text  string
	State domain.CanonicalState
}

var artistOverrideRe = regexp.MustCompile(`(?:[?&]artist=|\bartist:\s*)([a-z0-9_-]+)`)

// ResolveArtist returns the artist the lead explicitly asked for: a URL-style
// override in the message, then a name or alias in the message, then the
// stored preference. Inactive or unknown artists are ignored.
func (e *Engine) ResolveArtist(text string, state domain.CanonicalState) (domain.Artist, bool) {
	lower := normalizeText(text)
	if m := artistOverrideRe.FindStringSubmatch(lower); m != nil {
		if a, ok := e.roster.Artist(m[1]); ok && a.Active {
			return a, true
		}
	}
	if a, ok := e.roster.FindMention(lower); ok {
		return a, true
	}
	if id, ok := state.PreferredArtistID.Get(); ok {
		if a, ok := e.roster.Artist(id); ok && a.Active {
			return a, true
		}
	}
	return domain.Artist{}, false
}

// Generate returns up to OfferCount slots sorted by start time. Artist-first
// when the lead named an artist, otherwise time-first across active artists.
func (e *Engine) Generate(ctx context.Context, req Request) ([]domain.Slot, error) {
	mode := req.State.ConsultMode.OrElse(domain.ConsultModeAppointment)
	now := e.now()
	from := now
	to := now.AddDate(0, 0, e.cfg.HorizonDays+1)

	var candidates []domain.Slot
	if artist, ok := e.ResolveArtist(req.Text, req.State); ok {
		candidates = e.artistSlots(ctx, artist, mode, now, from, to)
	} else {
		active := e.roster.ActiveArtists()
		if len(active) == 0 {
			return nil, apperr.Invariant("no active artists on the roster")
		}
		candidates = e.timeFirst(ctx, active, mode, now, from, to)
	}

	prefs := ParsePreferences(req.Text, now, e.cfg.Location)
	candidates = prefs.Filter(candidates, e.cfg.Location)
	sortSlots(candidates)

	if req.State.TranslatorNeeded {
		candidates = e.pairTranslators(ctx, candidates, req.State.Language.OrElse(""), now, from, to)
	}

	if len(candidates) > e.cfg.OfferCount {
		candidates = candidates[:e.cfg.OfferCount]
	}
	for i := range candidates {
		candidates[i].Display = domain.FormatSlot(candidates[i].Start, e.cfg.Location)
	}
	return candidates, nil
}

// timeFirst fetches every artist in parallel and keeps one slot per start
// time, owned by the lower-workload artist (ties by artist id).
func (e *Engine) timeFirst(ctx context.Context, artists []domain.Artist, mode domain.ConsultMode, now, from, to time.Time) []domain.Slot {
	ids := make([]string, len(artists))
	for i, a := range artists {
		ids[i] = a.ID
	}
	scores := e.balancer.Scores(ctx, ids)

	results := make([][]domain.Slot, len(artists))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range artists {
		g.Go(func() error {
			results[i] = e.artistSlots(gctx, a, mode, now, from, to)
			return nil
		})
	}
	_ = g.Wait()

	return dedupeByStart(results, scores)
}

func dedupeByStart(perArtist [][]domain.Slot, scores map[string]int) []domain.Slot {
	best := map[int64]domain.Slot{}
	for _, list := range perArtist {
		for _, s := range list {
			current, ok := best[s.Key()]
			if !ok || preferArtist(s.ArtistID, current.ArtistID, scores) {
				best[s.Key()] = s
			}
		}
	}
	out := make([]domain.Slot, 0, len(best))
	for _, s := range best {
		out = append(out, s)
	}
	sortSlots(out)
	return out
}

func preferArtist(candidate, current string, scores map[string]int) bool {
	if scores[candidate] != scores[current] {
		return scores[candidate] < scores[current]
	}
	return candidate < current
}

func sortSlots(list []domain.Slot) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].Start.Equal(list[j].Start) {
			return list[i].Start.Before(list[j].Start)
		}
		return list[i].ArtistID < list[j].ArtistID
	})
}

func (e *Engine) artistSlots(ctx context.Context, artist domain.Artist, mode domain.ConsultMode, now, from, to time.Time) []domain.Slot {
	resource, ok := artist.ResourceFor(mode)
	if !ok {
		e.log.Warn("artist has no calendar resource for consult mode", "artist_id", artist.ID, "mode", string(mode))
		return nil
	}
	windows := e.freeWindows(ctx, resource, e.roster.Index(artist.ID), now, from, to)
	out := make([]domain.Slot, 0, len(windows))
	for _, w := range windows {
		if !w.Start.After(now) {
			continue
		}
		out = append(out, domain.Slot{Start: w.Start, End: w.End, ArtistID: artist.ID, ResourceID: resource})
	}
	return out
}

// freeWindows reads the calendar, falling back to the synthetic schedule when
// no calendar is configured or the call fails.
func (e *Engine) freeWindows(ctx context.Context, resource string, index int, now, from, to time.Time) []ports.TimeRange {
	if e.cfg.Synthetic || e.calendar == nil {
		return syntheticWindows(now, e.cfg.Location, index, e.cfg.HorizonDays, e.cfg.ConsultDuration)
	}
	windows, err := e.calendar.FreeSlots(ctx, resource, from, to, e.cfg.ConsultDuration)
	if err != nil {
		e.log.CollaboratorError("calendar", "free_slots", err)
		return syntheticWindows(now, e.cfg.Location, index, e.cfg.HorizonDays, e.cfg.ConsultDuration)
	}
	return windows
}

// pairTranslators tries each interpreter in roster order for every slot and
// attaches the first one free at that time, so each start time is still
// offered once. Slots nobody can interpret are dropped. With no interpreters
// on the roster the slots are returned as-is.
func (e *Engine) pairTranslators(ctx context.Context, candidates []domain.Slot, language string, now, from, to time.Time) []domain.Slot {
	translators := e.roster.Translators(language)
	if len(translators) == 0 {
		e.log.Warn("translator needed but none on roster", "language", language)
		return candidates
	}

	free := make([]map[int64]bool, len(translators))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range translators {
		g.Go(func() error {
			set := map[int64]bool{}
			for _, w := range e.freeWindows(gctx, t.ResourceID, -1, now, from, to) {
				set[w.Start.Unix()] = true
			}
			free[i] = set
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.Slot, 0, len(candidates))
	for _, s := range candidates {
		for i, t := range translators {
			if free[i][s.Key()] {
				s.TranslatorID = t.ID
				s.TranslatorResourceID = t.ResourceID
				out = append(out, s)
				break
			}
		}
	}
	return out
}
