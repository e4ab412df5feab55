// Package intent classifies one inbound message into an intent record using a
// data-driven rule table.
package intent

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// Category names used in rules.yaml.
const (
	CategoryReschedule         = "reschedule"
	CategoryCancel             = "cancel"
	CategorySlotSelection      = "slot_selection"
	CategoryDeposit            = "deposit"
	CategoryScheduling         = "scheduling"
	CategoryConsultAppointment = "consult_appointment"
	CategoryConsultMessage     = "consult_message"
	CategoryProcessOrPrice     = "process_or_price"
	CategoryArtistGuidedSize   = "artist_guided_size"
	CategoryAffirmation        = "affirmation"
)

var requiredCategories = []string{
	CategoryReschedule, CategoryCancel, CategorySlotSelection, CategoryDeposit,
	CategoryScheduling, CategoryConsultAppointment, CategoryConsultMessage,
	CategoryProcessOrPrice, CategoryArtistGuidedSize, CategoryAffirmation,
}

type ruleDoc struct {
	Rules []struct {
		Category string   `yaml:"category"`
		Priority int      `yaml:"priority"`
		Patterns []string `yaml:"patterns"`
	} `yaml:"rules"`
	Objections []struct {
		Category string   `yaml:"category"`
		Belief   string   `yaml:"belief"`
		Reframe  string   `yaml:"reframe"`
		Patterns []string `yaml:"patterns"`
	} `yaml:"objections"`
}

// Rule is one compiled category.
type Rule struct {
	Category string
	Priority int
	patterns []*regexp.Regexp
}

func (r Rule) matches(text string) bool {
	return matchesAny(r.patterns, text)
}

type objectionRule struct {
	objection Objection
	patterns  []*regexp.Regexp
}

// RuleSet is the compiled rule table, ordered by priority.
type RuleSet struct {
	rules      []Rule
	objections []objectionRule
}

// DefaultRuleSet compiles the embedded rules.yaml.
func DefaultRuleSet() (*RuleSet, error) {
	return ParseRuleSet(defaultRules)
}

// ParseRuleSet compiles a rules document. Every known category must be present.
func ParseRuleSet(raw []byte) (*RuleSet, error) {
	var doc ruleDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse intent rules: %w", err)
	}

	rs := &RuleSet{}
	seen := map[string]bool{}
	for _, r := range doc.Rules {
		if seen[r.Category] {
			return nil, fmt.Errorf("intent rules: duplicate category %q", r.Category)
		}
		seen[r.Category] = true
		compiled, err := compileAll(r.Category, r.Patterns)
		if err != nil {
			return nil, err
		}
		rs.rules = append(rs.rules, Rule{Category: r.Category, Priority: r.Priority, patterns: compiled})
	}
	for _, c := range requiredCategories {
		if !seen[c] {
			return nil, fmt.Errorf("intent rules: missing category %q", c)
		}
	}
	sort.SliceStable(rs.rules, func(i, j int) bool { return rs.rules[i].Priority < rs.rules[j].Priority })

	for _, o := range doc.Objections {
		compiled, err := compileAll("objection "+o.Category, o.Patterns)
		if err != nil {
			return nil, err
		}
		rs.objections = append(rs.objections, objectionRule{
			objection: Objection{Category: o.Category, BeliefToFix: o.Belief, Reframe: o.Reframe},
			patterns:  compiled,
		})
	}
	return rs, nil
}

func compileAll(name string, patterns []string) ([]*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("intent rules: %s has no patterns", name)
	}
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("intent rules: %s: %w", name, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Categories returns category names in priority order.
func (rs *RuleSet) Categories() []string {
	out := make([]string, len(rs.rules))
	for i, r := range rs.rules {
		out[i] = r.Category
	}
	return out
}

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
