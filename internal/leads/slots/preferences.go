package slots

import (
	"regexp"
	"time"

	"studio_sales_backend/internal/leads/domain"
)

var (
	weekendRe  = regexp.MustCompile(`\bweekends?\b`)
	weekdaysRe = regexp.MustCompile(`\bweekdays?\b`)
	tomorrowRe = regexp.MustCompile(`\btomorrow\b`)
)

// Preferences are the scheduling constraints a lead expressed in free text.
type Preferences struct {
	Weekdays map[time.Weekday]bool
	Part     PartOfDay
	Clock    *clock
	Dates    []time.Time
	Days     []int
	Months   []time.Month
}

// ParsePreferences extracts day-of-week, time-of-day, explicit date and month
// preferences. Dates without a year resolve to the next occurrence after now.
func ParsePreferences(text string, now time.Time, loc *time.Location) Preferences {
	s := scanText(text)
	now = now.In(loc)
	p := Preferences{Weekdays: map[time.Weekday]bool{}, Part: s.part, Clock: s.clock, Days: s.days, Months: s.months}

	for _, wd := range s.weekdays {
		p.Weekdays[wd] = true
	}
	if weekendRe.MatchString(s.text) {
		p.Weekdays[time.Saturday] = true
		p.Weekdays[time.Sunday] = true
	}
	if weekdaysRe.MatchString(s.text) {
		for wd := time.Monday; wd <= time.Friday; wd++ {
			p.Weekdays[wd] = true
		}
	}

	for _, md := range s.monthDays {
		p.Dates = append(p.Dates, nextOccurrence(md, now))
	}
	if tomorrowRe.MatchString(s.text) {
		p.Dates = append(p.Dates, dayStart(now.AddDate(0, 0, 1)))
	}
	return p
}

// Empty reports whether no constraint was expressed.
func (p Preferences) Empty() bool {
	return len(p.Weekdays) == 0 && p.Part == AnyTime && p.Clock == nil &&
		len(p.Dates) == 0 && len(p.Days) == 0 && len(p.Months) == 0
}

// Match reports whether a slot start (in studio time) satisfies every constraint.
func (p Preferences) Match(start time.Time) bool {
	if len(p.Weekdays) > 0 && !p.Weekdays[start.Weekday()] {
		return false
	}
	if !p.Part.Contains(start.Hour()) {
		return false
	}
	if p.Clock != nil && !p.Clock.matches(start) {
		return false
	}
	if len(p.Dates) > 0 && !anyDate(p.Dates, start) {
		return false
	}
	if len(p.Days) > 0 && !containsInt(p.Days, start.Day()) {
		return false
	}
	if len(p.Months) > 0 && !containsMonth(p.Months, start.Month()) {
		return false
	}
	return true
}

// Filter keeps matching slots. When nothing matches the unfiltered list is
// returned so the lead always gets something to pick from.
func (p Preferences) Filter(candidates []domain.Slot, loc *time.Location) []domain.Slot {
	if p.Empty() {
		return candidates
	}
	out := make([]domain.Slot, 0, len(candidates))
	for _, s := range candidates {
		if p.Match(s.Start.In(loc)) {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return candidates
	}
	return out
}

func nextOccurrence(md monthDay, now time.Time) time.Time {
	candidate := time.Date(now.Year(), md.month, md.day, 0, 0, 0, 0, now.Location())
	if candidate.Before(dayStart(now)) {
		candidate = candidate.AddDate(1, 0, 0)
	}
	return candidate
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func anyDate(dates []time.Time, start time.Time) bool {
	y, m, d := start.Date()
	for _, date := range dates {
		dy, dm, dd := date.Date()
		if dy == y && dm == m && dd == d {
			return true
		}
	}
	return false
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func containsMonth(values []time.Month, v time.Month) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
