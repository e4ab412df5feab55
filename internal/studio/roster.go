// Package studio loads the artist and interpreter roster.
package studio

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"studio_sales_backend/internal/leads/domain"

	"gopkg.in/yaml.v3"
)

type rosterDoc struct {
	Artists []struct {
		ID        string            `yaml:"id"`
		Name      string            `yaml:"name"`
		Aliases   []string          `yaml:"aliases"`
		Styles    []string          `yaml:"styles"`
		Resources map[string]string `yaml:"resources"`
		Active    *bool             `yaml:"active"`
	} `yaml:"artists"`
	Translators []domain.Translator `yaml:"translators"`
}

// Roster is the immutable studio line-up.
type Roster struct {
	artists     []domain.Artist
	translators []domain.Translator
	index       map[string]int
	mentions    []mention
}

type mention struct {
	pattern  *regexp.Regexp
	artistID string
	length   int
}

// LoadRoster reads a roster YAML file.
func LoadRoster(path string) (*Roster, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	return ParseRoster(raw)
}

// ParseRoster parses roster YAML. Artists default to active.
func ParseRoster(raw []byte) (*Roster, error) {
	var doc rosterDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	artists := make([]domain.Artist, 0, len(doc.Artists))
	for _, a := range doc.Artists {
		resources := make(map[domain.ConsultMode]string, len(a.Resources))
		for mode, id := range a.Resources {
			parsed, ok := domain.ParseConsultMode(mode)
			if !ok {
				return nil, fmt.Errorf("roster: artist %q has unknown consult mode %q", a.ID, mode)
			}
			resources[parsed] = id
		}
		artists = append(artists, domain.Artist{
			ID:        a.ID,
			Name:      a.Name,
			Aliases:   a.Aliases,
			Styles:    a.Styles,
			Resources: resources,
			Active:    a.Active == nil || *a.Active,
		})
	}
	return NewRoster(artists, doc.Translators)
}

// NewRoster validates and indexes a roster.
func NewRoster(artists []domain.Artist, translators []domain.Translator) (*Roster, error) {
	r := &Roster{
		artists:     artists,
		translators: translators,
		index:       make(map[string]int, len(artists)),
	}
	for i, a := range artists {
		if strings.TrimSpace(a.ID) == "" {
			return nil, fmt.Errorf("roster: artist %d has no id", i)
		}
		if _, dup := r.index[a.ID]; dup {
			return nil, fmt.Errorf("roster: duplicate artist id %q", a.ID)
		}
		r.index[a.ID] = i
		for _, name := range a.Names() {
			r.mentions = append(r.mentions, mention{
				pattern:  regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`),
				artistID: a.ID,
				length:   len(name),
			})
		}
	}
	// Longest names first so "mara quinn" beats a shorter alias of someone else.
	sort.SliceStable(r.mentions, func(i, j int) bool { return r.mentions[i].length > r.mentions[j].length })
	return r, nil
}

// Artists returns every artist in roster order.
func (r *Roster) Artists() []domain.Artist {
	return r.artists
}

// ActiveArtists returns bookable artists in roster order.
func (r *Roster) ActiveArtists() []domain.Artist {
	out := make([]domain.Artist, 0, len(r.artists))
	for _, a := range r.artists {
		if a.Active {
			out = append(out, a)
		}
	}
	return out
}

// Artist looks up an artist by id.
func (r *Roster) Artist(id string) (domain.Artist, bool) {
	i, ok := r.index[id]
	if !ok {
		return domain.Artist{}, false
	}
	return r.artists[i], true
}

// Index is the artist's roster position, or -1.
func (r *Roster) Index(id string) int {
	if i, ok := r.index[id]; ok {
		return i
	}
	return -1
}

// FindMention returns the active artist named in text (lowercased match).
func (r *Roster) FindMention(text string) (domain.Artist, bool) {
	lower := strings.ToLower(text)
	for _, m := range r.mentions {
		if !m.pattern.MatchString(lower) {
			continue
		}
		if a, ok := r.Artist(m.artistID); ok && a.Active {
			return a, true
		}
	}
	return domain.Artist{}, false
}

// Translators returns interpreters covering language (all when empty).
func (r *Roster) Translators(language string) []domain.Translator {
	out := make([]domain.Translator, 0, len(r.translators))
	for _, t := range r.translators {
		if t.Speaks(language) {
			out = append(out, t)
		}
	}
	return out
}

// Translator looks up an interpreter by id.
func (r *Roster) Translator(id string) (domain.Translator, bool) {
	for _, t := range r.translators {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Translator{}, false
}
