package slots

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"studio_sales_backend/platform/sanitize"
)

var (
	weekdayRe  = regexp.MustCompile(`\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday|mon|tues|tue|wed|thurs|thur|thu|fri|sat|sun)\b`)
	meridiemRe = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am\b|pm\b|a\.m\.|p\.m\.)`)
	noonRe     = regexp.MustCompile(`\bnoon\b`)
	atHourRe   = regexp.MustCompile(`\bat (\d{1,2})(?::(\d{2}))?\b`)
	colonRe    = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	monthDayRe = regexp.MustCompile(`\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sept?(?:ember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	slashRe    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})\b`)
	domRe      = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)\b`)
	monthRe    = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december)\b`)
	partRe     = regexp.MustCompile(`\b(morning|afternoon|evening|night|tonight)\b`)
	numberRe   = regexp.MustCompile(`\b(\d{1,2})\b`)
)

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tues": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thurs": time.Thursday, "thur": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

var monthPrefixes = []struct {
	prefix string
	month  time.Month
}{
	{"jan", time.January}, {"feb", time.February}, {"mar", time.March}, {"apr", time.April},
	{"may", time.May}, {"jun", time.June}, {"jul", time.July}, {"aug", time.August},
	{"sep", time.September}, {"oct", time.October}, {"nov", time.November}, {"dec", time.December},
}

// PartOfDay is a coarse time window.
type PartOfDay int

const (
	AnyTime PartOfDay = iota
	Morning
	Afternoon
	Evening
)

// Contains reports whether the hour (0-23) falls in the window:
// morning before noon, afternoon noon to 5pm, evening from 5pm.
func (p PartOfDay) Contains(hour int) bool {
	switch p {
	case Morning:
		return hour < 12
	case Afternoon:
		return hour >= 12 && hour < 17
	case Evening:
		return hour >= 17
	}
	return true
}

type clock struct {
	hour      int
	minute    int
	hasMinute bool
}

func (c clock) matches(t time.Time) bool {
	if t.Hour() != c.hour {
		return false
	}
	return !c.hasMinute || t.Minute() == c.minute
}

type monthDay struct {
	month time.Month
	day   int
}

// scan is everything slot-related extracted from one message.
type scan struct {
	text      string
	weekdays  []time.Weekday
	clock     *clock
	monthDays []monthDay
	days      []int
	months    []time.Month
	part      PartOfDay
	residue   string
}

func normalizeText(text string) string {
	return strings.ToLower(sanitize.Message(text))
}

// scanText extracts weekdays, an explicit time, dates and a part of day.
// residue is the text with time and date tokens removed so bare numbers can
// be found without mistaking "5pm" or "the 20th" for an option number.
func scanText(text string) scan {
	s := scan{text: normalizeText(text)}
	residue := s.text

	seenWeekday := map[time.Weekday]bool{}
	for _, m := range weekdayRe.FindAllStringSubmatch(s.text, -1) {
		wd := weekdayNames[m[1]]
		if !seenWeekday[wd] {
			seenWeekday[wd] = true
			s.weekdays = append(s.weekdays, wd)
		}
	}

	s.clock, residue = extractClock(residue)

	seenDate := map[monthDay]bool{}
	for _, m := range monthDayRe.FindAllStringSubmatch(residue, -1) {
		day, _ := strconv.Atoi(m[2])
		md := monthDay{month: parseMonth(m[1]), day: day}
		if day >= 1 && day <= 31 && !seenDate[md] {
			seenDate[md] = true
			s.monthDays = append(s.monthDays, md)
		}
	}
	residue = monthDayRe.ReplaceAllString(residue, " ")
	for _, m := range slashRe.FindAllStringSubmatch(residue, -1) {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		md := monthDay{month: time.Month(month), day: day}
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 && !seenDate[md] {
			seenDate[md] = true
			s.monthDays = append(s.monthDays, md)
		}
	}
	residue = slashRe.ReplaceAllString(residue, " ")

	seenDay := map[int]bool{}
	for _, m := range domRe.FindAllStringSubmatch(residue, -1) {
		if isOrdinalChoice(residue, m[0]) {
			continue
		}
		day, _ := strconv.Atoi(m[1])
		if day >= 1 && day <= 31 && !seenDay[day] {
			seenDay[day] = true
			s.days = append(s.days, day)
		}
	}
	residue = domRe.ReplaceAllStringFunc(residue, func(tok string) string {
		if isOrdinalChoice(residue, tok) {
			return tok
		}
		return " "
	})

	for _, m := range monthRe.FindAllStringSubmatch(residue, -1) {
		s.months = append(s.months, parseMonth(m[1]))
	}

	if m := partRe.FindStringSubmatch(s.text); m != nil {
		switch m[1] {
		case "morning":
			s.part = Morning
		case "afternoon":
			s.part = Afternoon
		default:
			s.part = Evening
		}
	}

	s.residue = strings.TrimSpace(residue)
	return s
}

// extractClock finds the first explicit time and strips every time token.
func extractClock(text string) (*clock, string) {
	var found *clock
	if m := meridiemRe.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		c := clock{hour: hour % 12}
		if strings.HasPrefix(m[3], "p") {
			c.hour += 12
		}
		if m[2] != "" {
			c.minute, _ = strconv.Atoi(m[2])
			c.hasMinute = true
		}
		if hour >= 1 && hour <= 12 {
			found = &c
		}
	}
	text = meridiemRe.ReplaceAllString(text, " ")

	if found == nil && noonRe.MatchString(text) {
		found = &clock{hour: 12}
	}
	text = noonRe.ReplaceAllString(text, " ")

	if found == nil {
		if m := atHourRe.FindStringSubmatch(text); m != nil {
			hour, _ := strconv.Atoi(m[1])
			if hour >= 1 && hour <= 23 {
				c := clock{hour: inferHour(hour)}
				if m[2] != "" {
					c.minute, _ = strconv.Atoi(m[2])
					c.hasMinute = true
				}
				found = &c
			}
		}
	}
	text = atHourRe.ReplaceAllString(text, " ")

	if found == nil {
		if m := colonRe.FindStringSubmatch(text); m != nil {
			hour, _ := strconv.Atoi(m[1])
			minute, _ := strconv.Atoi(m[2])
			if hour <= 23 && minute <= 59 {
				found = &clock{hour: inferHour(hour), minute: minute, hasMinute: true}
			}
		}
	}
	text = colonRe.ReplaceAllString(text, " ")
	return found, text
}

// inferHour reads a meridiem-less studio hour: 1-7 is afternoon/evening,
// 8-11 morning, 12 noon, 13-23 already 24h.
func inferHour(hour int) int {
	if hour >= 1 && hour <= 7 {
		return hour + 12
	}
	return hour
}

func parseMonth(token string) time.Month {
	for _, mp := range monthPrefixes {
		if strings.HasPrefix(token, mp.prefix) {
			return mp.month
		}
	}
	return 0
}

var ordinalChoiceRe = regexp.MustCompile(`\b(1st|2nd|3rd)\s+(one|option|slot|time|choice)\b`)

// isOrdinalChoice distinguishes "the 2nd one" (a choice) from "the 2nd" (a date).
func isOrdinalChoice(text, token string) bool {
	for _, m := range ordinalChoiceRe.FindAllStringSubmatch(text, -1) {
		if m[1] == token {
			return true
		}
	}
	return false
}

// namesDayOrTime reports whether the message points at a day, a date or a
// time of day.
func (s scan) namesDayOrTime() bool {
	return len(s.weekdays) > 0 || len(s.monthDays) > 0 || len(s.days) > 0 ||
		s.clock != nil || s.part != AnyTime
}

// distinctDays counts the calendar days the message names. A weekday and a
// date name the same day ("friday dec 20") when the date falls on that
// weekday in the year, or month for a bare day, of some offered slot.
func (s scan) distinctDays(offered []time.Time) int {
	n := len(s.monthDays) + len(s.days)
	for _, wd := range s.weekdays {
		if !s.dateFallsOn(wd, offered) {
			n++
		}
	}
	return n
}

func (s scan) dateFallsOn(wd time.Weekday, offered []time.Time) bool {
	for _, t := range offered {
		for _, md := range s.monthDays {
			if time.Date(t.Year(), md.month, md.day, 12, 0, 0, 0, t.Location()).Weekday() == wd {
				return true
			}
		}
		for _, d := range s.days {
			if time.Date(t.Year(), t.Month(), d, 12, 0, 0, 0, t.Location()).Weekday() == wd {
				return true
			}
		}
	}
	return false
}
