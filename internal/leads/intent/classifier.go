package intent

import (
	"strings"

	"studio_sales_backend/internal/leads/domain"
	"studio_sales_backend/platform/sanitize"
)

// Objection describes a hesitation and the reframe to lead with.
type Objection struct {
	Category    string
	BeliefToFix string
	Reframe     string
}

// Record is the classification of one message. Several flags may be true at once.
type Record struct {
	Scheduling             bool
	SlotSelection          bool
	Deposit                bool
	Reschedule             bool
	Cancel                 bool
	ConsultPathChoice      bool
	ProcessOrPriceQuestion bool
	ArtistGuidedSize       bool
	ConsultChoice          domain.Optional[domain.ConsultMode]
	Objection              *Objection
}

// Any reports whether at least one intent flag is set.
func (r Record) Any() bool {
	return r.Scheduling || r.SlotSelection || r.Deposit || r.Reschedule || r.Cancel ||
		r.ConsultPathChoice || r.ProcessOrPriceQuestion || r.ArtistGuidedSize
}

// Names lists the set flags for logging and the last_intent field.
func (r Record) Names() []string {
	var names []string
	add := func(ok bool, name string) {
		if ok {
			names = append(names, name)
		}
	}
	add(r.Reschedule, CategoryReschedule)
	add(r.Cancel, CategoryCancel)
	add(r.SlotSelection, CategorySlotSelection)
	add(r.Deposit, CategoryDeposit)
	add(r.Scheduling, CategoryScheduling)
	add(r.ConsultPathChoice, "consult_path_choice")
	add(r.ProcessOrPriceQuestion, CategoryProcessOrPrice)
	add(r.ArtistGuidedSize, CategoryArtistGuidedSize)
	if r.Objection != nil {
		names = append(names, "objection_"+r.Objection.Category)
	}
	return names
}

// Classifier applies a RuleSet. It holds no mutable state.
type Classifier struct {
	rules *RuleSet
}

// NewClassifier wraps a compiled rule set.
func NewClassifier(rules *RuleSet) *Classifier {
	return &Classifier{rules: rules}
}

// Normalize lowercases text, folds punctuation and collapses whitespace.
func Normalize(text string) string {
	return strings.ToLower(sanitize.Message(text))
}

// Classify is pure: the same text and state always yield the same Record.
// state may be nil; it only gates the bare-affirmation consult confirmation.
func (c *Classifier) Classify(text string, state *domain.CanonicalState) Record {
	normalized := Normalize(text)
	var rec Record
	if normalized == "" {
		return rec
	}

	hits := map[string]bool{}
	for _, r := range c.rules.rules {
		if r.matches(normalized) {
			hits[r.Category] = true
		}
	}

	rec.Reschedule = hits[CategoryReschedule]
	rec.Cancel = hits[CategoryCancel]
	rec.SlotSelection = hits[CategorySlotSelection]
	rec.Deposit = hits[CategoryDeposit]
	rec.Scheduling = hits[CategoryScheduling]
	rec.ProcessOrPriceQuestion = hits[CategoryProcessOrPrice]
	rec.ArtistGuidedSize = hits[CategoryArtistGuidedSize]

	switch {
	case hits[CategoryConsultAppointment]:
		rec.ConsultChoice = domain.Some(domain.ConsultModeAppointment)
	case hits[CategoryConsultMessage]:
		rec.ConsultChoice = domain.Some(domain.ConsultModeMessage)
	case hits[CategoryAffirmation] && affirmationConfirmsConsult(state):
		rec.ConsultChoice = domain.Some(domain.ConsultModeAppointment)
	}
	rec.ConsultPathChoice = rec.ConsultChoice.IsSet()

	for _, o := range c.rules.objections {
		if matchesAny(o.patterns, normalized) {
			obj := o.objection
			rec.Objection = &obj
			break
		}
	}
	return rec
}

// affirmationConfirmsConsult is the one context-gated rule: "yes" confirms the
// video consult only for leads that need a translator on an appointment consult.
func affirmationConfirmsConsult(state *domain.CanonicalState) bool {
	if state == nil || !state.TranslatorNeeded {
		return false
	}
	mode, ok := state.ConsultMode.Get()
	return ok && mode == domain.ConsultModeAppointment
}
