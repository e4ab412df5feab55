package slots

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"studio_sales_backend/internal/leads/domain"
)

// Rule names the step of the selection ladder that decided.
type Rule string

const (
	RuleNone              Rule = ""
	RuleGuardQuestion     Rule = "guard_availability_question"
	RuleGuardMultipleDays Rule = "guard_multiple_days"
	RuleNumbered          Rule = "numbered_reference"
	RuleUniqueWeekday     Rule = "unique_weekday"
	RuleOrdinal           Rule = "ordinal_word"
	RuleWeekdayTime       Rule = "weekday_with_time"
	RuleUniqueDayOfMonth  Rule = "unique_day_of_month"
	RuleMonthDay          Rule = "month_day"
	RuleDayOfMonthTime    Rule = "day_of_month_with_time"
	RuleTimeOfDay         Rule = "time_of_day"
	RuleBareNumber        Rule = "bare_number"
)

// Selection is the outcome of resolving a reply against offered slots.
// Index is -1 when nothing was selected; Reason then explains why.
type Selection struct {
	Index  int
	Rule   Rule
	Reason string
}

// Matched reports whether a slot was chosen.
func (s Selection) Matched() bool {
	return s.Index >= 0
}

func pick(i int, rule Rule) Selection {
	return Selection{Index: i, Rule: rule}
}

func noMatch(rule Rule, reason string) Selection {
	return Selection{Index: -1, Rule: rule, Reason: reason}
}

var (
	questionWordsRe = regexp.MustCompile(`^(do|does|are|is|any|what|when|which|can you|could you|would you|how about)\b`)
	availabilityRe  = regexp.MustCompile(`\b(available|availability|open|openings|free|anything (else|other|later|earlier)|other (times|days|options|slots)|what about|do you have|are there|is there)\b`)
	optionRe        = regexp.MustCompile(`\b(?:option|number|slot|choice|no\.?)\s*#?\s*(\d{1,2})\b`)
	hashRe          = regexp.MustCompile(`(?:^|\s)#(\d{1,2})\b`)
	bareDigitRe     = regexp.MustCompile(`^\s*(\d{1,2})\s*[.!)]?\s*$`)
	ordinalWordRe   = regexp.MustCompile(`\b(first|second|third|last)\b`)
	ordinalNumRe    = regexp.MustCompile(`\b(1st|2nd|3rd)\s+(?:one|option|slot|time|choice)\b`)
)

var ordinalIndex = map[string]int{"first": 0, "1st": 0, "second": 1, "2nd": 1, "third": 2, "3rd": 2}

type rule func(scan, []time.Time) (Selection, bool)

var ladder = []rule{
	numberedReference,
	uniqueWeekday,
	ordinalWord,
	weekdayWithTime,
	uniqueDayOfMonth,
	monthDayReference,
	dayOfMonthWithTime,
	timeOfDay,
	bareNumber,
}

// implicitLadder decides only on day, date and time references. Option
// numbers and ordinals are recognized by the classifier, and a stray number
// in free text is never a choice.
var implicitLadder = []rule{
	uniqueWeekday,
	weekdayWithTime,
	uniqueDayOfMonth,
	monthDayReference,
	dayOfMonthWithTime,
	timeOfDay,
}

// Select resolves text to one of offered. Guards run first and force a
// no-match for availability questions and for messages naming more than one
// day; then the rules run in order and the first decision wins.
func Select(text string, offered []domain.Slot, loc *time.Location) Selection {
	return resolve(scanText(text), offered, loc, ladder)
}

// SelectImplicit resolves a message that carried no selection wording, such as
// "the 24th" or "friday at 5". Messages without a day, date or time never
// select.
func SelectImplicit(text string, offered []domain.Slot, loc *time.Location) Selection {
	s := scanText(text)
	if !s.namesDayOrTime() {
		return noMatch(RuleNone, "no day, date or time mentioned")
	}
	return resolve(s, offered, loc, implicitLadder)
}

func resolve(s scan, offered []domain.Slot, loc *time.Location, rules []rule) Selection {
	if loc == nil {
		loc = time.UTC
	}
	if len(offered) == 0 {
		return noMatch(RuleNone, "no slots were offered")
	}
	if s.text == "" {
		return noMatch(RuleNone, "empty message")
	}

	if isAvailabilityQuestion(s.text) {
		return noMatch(RuleGuardQuestion, "message asks about availability")
	}

	local := make([]time.Time, len(offered))
	for i, o := range offered {
		local[i] = o.Start.In(loc)
	}
	if s.distinctDays(local) > 1 {
		return noMatch(RuleGuardMultipleDays, "message mentions more than one day")
	}

	for _, r := range rules {
		if sel, decided := r(s, local); decided {
			return sel
		}
	}
	return noMatch(RuleNone, "no rule matched")
}

func isAvailabilityQuestion(text string) bool {
	if !availabilityRe.MatchString(text) {
		return false
	}
	return strings.Contains(text, "?") || questionWordsRe.MatchString(text)
}

func inRange(n, count int) bool {
	return n >= 1 && n <= count
}

// 1. "option 2", "#2", a bare "2".
func numberedReference(s scan, offered []time.Time) (Selection, bool) {
	var raw string
	if m := optionRe.FindStringSubmatch(s.text); m != nil {
		raw = m[1]
	} else if m := hashRe.FindStringSubmatch(s.text); m != nil {
		raw = m[1]
	} else if m := bareDigitRe.FindStringSubmatch(s.text); m != nil {
		raw = m[1]
	}
	if raw == "" {
		return Selection{}, false
	}
	n, _ := strconv.Atoi(raw)
	if !inRange(n, len(offered)) {
		return noMatch(RuleNumbered, "option "+raw+" was not offered"), true
	}
	return pick(n-1, RuleNumbered), true
}

// 2. One weekday, no time, exactly one offered slot on it.
func uniqueWeekday(s scan, offered []time.Time) (Selection, bool) {
	if len(s.weekdays) != 1 || s.clock != nil {
		return Selection{}, false
	}
	idx := indexesWhere(offered, func(t time.Time) bool { return t.Weekday() == s.weekdays[0] })
	if len(idx) == 1 {
		return pick(idx[0], RuleUniqueWeekday), true
	}
	return Selection{}, false
}

// 3. "first", "second", "third", "the 2nd one", "last".
func ordinalWord(s scan, offered []time.Time) (Selection, bool) {
	var idx int
	if m := ordinalNumRe.FindStringSubmatch(s.text); m != nil {
		idx = ordinalIndex[m[1]]
	} else if m := ordinalWordRe.FindStringSubmatch(s.text); m != nil {
		if m[1] == "last" {
			idx = len(offered) - 1
		} else {
			idx = ordinalIndex[m[1]]
		}
	} else {
		return Selection{}, false
	}
	if idx >= len(offered) {
		return noMatch(RuleOrdinal, "ordinal beyond offered slots"), true
	}
	return pick(idx, RuleOrdinal), true
}

// 4. Weekday plus explicit time. A weekday+time that matches nothing is a
// decision (no-match) so a later rule never books the wrong day.
func weekdayWithTime(s scan, offered []time.Time) (Selection, bool) {
	if len(s.weekdays) != 1 || s.clock == nil {
		return Selection{}, false
	}
	idx := indexesWhere(offered, func(t time.Time) bool {
		return t.Weekday() == s.weekdays[0] && s.clock.matches(t)
	})
	if len(idx) == 1 {
		return pick(idx[0], RuleWeekdayTime), true
	}
	return noMatch(RuleWeekdayTime, "no single offered slot on that day and time"), true
}

// 5. Bare day of month ("the 20th"), no time, exactly one offered slot that day.
func uniqueDayOfMonth(s scan, offered []time.Time) (Selection, bool) {
	if len(s.days) != 1 || len(s.monthDays) > 0 || s.clock != nil {
		return Selection{}, false
	}
	idx := indexesWhere(offered, func(t time.Time) bool { return t.Day() == s.days[0] })
	if len(idx) == 1 {
		return pick(idx[0], RuleUniqueDayOfMonth), true
	}
	return Selection{}, false
}

// 6. Month and day ("Dec 20"), with or without time. Always decides.
func monthDayReference(s scan, offered []time.Time) (Selection, bool) {
	if len(s.monthDays) != 1 {
		return Selection{}, false
	}
	md := s.monthDays[0]
	idx := indexesWhere(offered, func(t time.Time) bool {
		if t.Month() != md.month || t.Day() != md.day {
			return false
		}
		return s.clock == nil || s.clock.matches(t)
	})
	if len(idx) == 1 {
		return pick(idx[0], RuleMonthDay), true
	}
	return noMatch(RuleMonthDay, "date does not identify a single offered slot"), true
}

// 7. Day of month with time needs an exact match; any day-of-month reference
// still undecided here is a no-match.
func dayOfMonthWithTime(s scan, offered []time.Time) (Selection, bool) {
	if len(s.days) != 1 {
		return Selection{}, false
	}
	if s.clock != nil {
		idx := indexesWhere(offered, func(t time.Time) bool { return t.Day() == s.days[0] && s.clock.matches(t) })
		if len(idx) == 1 {
			return pick(idx[0], RuleDayOfMonthTime), true
		}
	}
	return noMatch(RuleDayOfMonthTime, "day of month does not identify a single offered slot"), true
}

// 8. An explicit hour, or morning/afternoon/evening, naming exactly one slot.
func timeOfDay(s scan, offered []time.Time) (Selection, bool) {
	var idx []int
	switch {
	case s.clock != nil:
		idx = indexesWhere(offered, s.clock.matches)
	case s.part != AnyTime:
		idx = indexesWhere(offered, func(t time.Time) bool { return s.part.Contains(t.Hour()) })
	default:
		return Selection{}, false
	}
	if len(idx) == 1 {
		return pick(idx[0], RuleTimeOfDay), true
	}
	return Selection{}, false
}

// 9. A single standalone number left after removing times and dates.
func bareNumber(s scan, offered []time.Time) (Selection, bool) {
	matches := numberRe.FindAllStringSubmatch(s.residue, -1)
	seen := map[int]bool{}
	for _, m := range matches {
		n, _ := strconv.Atoi(m[1])
		seen[n] = true
	}
	if len(seen) != 1 {
		return Selection{}, false
	}
	for n := range seen {
		if inRange(n, len(offered)) {
			return pick(n-1, RuleBareNumber), true
		}
	}
	return Selection{}, false
}

func indexesWhere(offered []time.Time, pred func(time.Time) bool) []int {
	var out []int
	for i, t := range offered {
		if pred(t) {
			out = append(out, i)
		}
	}
	return out
}
