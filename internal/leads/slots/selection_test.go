package slots

import (
	"testing"
	"time"

	"studio_sales_backend/internal/leads/domain"
)

var est = time.FixedZone("EST", -5*3600)

// Fri Dec 20, Mon Dec 23, Tue Dec 24 2024, all at 5pm.
func offeredDecember() []domain.Slot {
	at := func(day int) domain.Slot {
		start := time.Date(2024, time.December, day, 17, 0, 0, 0, est)
		return domain.Slot{Start: start, End: start.Add(30 * time.Minute), ArtistID: "mara"}
	}
	return []domain.Slot{at(20), at(23), at(24)}
}

func TestSelectOptionOne(t *testing.T) {
	sel := Select("Option 1", offeredDecember(), est)
	if !sel.Matched() || sel.Index != 0 || sel.Rule != RuleNumbered {
		t.Fatalf("Select(Option 1) = %+v", sel)
	}
}

func TestSelectRules(t *testing.T) {
	cases := []struct {
		text  string
		index int
		rule  Rule
	}{
		{"#2", 1, RuleNumbered},
		{"3", 2, RuleNumbered},
		{"option 4", -1, RuleNumbered},
		{"Friday", 0, RuleUniqueWeekday},
		{"monday works", 1, RuleUniqueWeekday},
		{"Friday Dec 20", 0, RuleUniqueWeekday},
		{"friday the 20th", 0, RuleUniqueWeekday},
		{"the second one", 1, RuleOrdinal},
		{"the 3rd one please", 2, RuleOrdinal},
		{"last", 2, RuleOrdinal},
		{"Monday at 5pm", 1, RuleWeekdayTime},
		{"friday at 5", 0, RuleWeekdayTime},
		{"Tuesday at 2pm", -1, RuleWeekdayTime},
		{"the 24th", 2, RuleUniqueDayOfMonth},
		{"Dec 23", 1, RuleMonthDay},
		{"december 24th at 5pm", 2, RuleMonthDay},
		{"Dec 22", -1, RuleMonthDay},
		{"12/20", 0, RuleMonthDay},
		{"the 22nd", -1, RuleDayOfMonthTime},
		{"the 23rd at 5pm", 1, RuleDayOfMonthTime},
		{"the 23rd at 2pm", -1, RuleDayOfMonthTime},
		{"I'll take 2 please", 1, RuleBareNumber},
		{"5pm", -1, RuleNone},
		{"sounds great", -1, RuleNone},
	}
	for _, tc := range cases {
		sel := Select(tc.text, offeredDecember(), est)
		if sel.Index != tc.index || sel.Rule != tc.rule {
			t.Errorf("Select(%q) = index %d rule %q, want index %d rule %q", tc.text, sel.Index, sel.Rule, tc.index, tc.rule)
		}
	}
}

func TestSelectTimeOfDayUniqueHour(t *testing.T) {
	base := time.Date(2024, time.December, 20, 0, 0, 0, 0, est)
	offered := []domain.Slot{
		{Start: base.Add(11 * time.Hour)},
		{Start: base.Add(14 * time.Hour)},
		{Start: base.Add(17 * time.Hour)},
	}
	cases := map[string]int{
		"2pm":               1,
		"the evening one":   2,
		"morning is better": 0,
		"2:00 pm":           1,
	}
	for text, want := range cases {
		sel := Select(text, offered, est)
		if sel.Index != want || sel.Rule != RuleTimeOfDay {
			t.Errorf("Select(%q) = %+v, want index %d by time of day", text, sel, want)
		}
	}
}

func TestSelectGuards(t *testing.T) {
	cases := map[string]Rule{
		"What about Tuesday?":          RuleGuardQuestion,
		"is friday available?":         RuleGuardQuestion,
		"do you have anything later":   RuleGuardQuestion,
		"Friday or Monday":             RuleGuardMultipleDays,
		"the 20th or the 23rd":         RuleGuardMultipleDays,
		"Friday or the 23rd":           RuleGuardMultipleDays,
		"friday or dec 24":             RuleGuardMultipleDays,
		"either friday or 12/23 works": RuleGuardMultipleDays,
	}
	for text, want := range cases {
		sel := Select(text, offeredDecember(), est)
		if sel.Rule != want {
			t.Errorf("Select(%q) rule = %q, want %q", text, sel.Rule, want)
		}
		if sel.Matched() {
			t.Errorf("guarded message %q must not select", text)
		}
	}
}

func TestSelectWithoutOffers(t *testing.T) {
	if sel := Select("option 1", nil, est); sel.Matched() {
		t.Fatal("nothing can be selected when nothing was offered")
	}
}

func TestSelectImplicitNeedsDayOrTime(t *testing.T) {
	cases := []struct {
		text  string
		index int
	}{
		{"How much would a 3 inch rose cost?", -1},
		{"I have 2 questions before I decide", -1},
		{"it's my first tattoo", -1},
		{"the 24th", 2},
		{"monday at 5pm", 1},
		{"Dec 20 is perfect", 0},
		{"friday or the 23rd", -1},
	}
	for _, tc := range cases {
		if sel := SelectImplicit(tc.text, offeredDecember(), est); sel.Index != tc.index {
			t.Errorf("SelectImplicit(%q) = %+v, want index %d", tc.text, sel, tc.index)
		}
	}
}
