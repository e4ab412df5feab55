package slots

import (
	"time"

	"studio_sales_backend/internal/leads/ports"
)

var syntheticHours = []int{11, 14, 17}

// syntheticWindows is a deterministic stand-in calendar: Tuesday to Saturday
// at 11:00, 14:00 and 17:00 starting the day after now. Each artist skips the
// days where (yearDay + artistIndex) % 3 == 0 so schedules differ.
func syntheticWindows(now time.Time, loc *time.Location, artistIndex, horizonDays int, duration time.Duration) []ports.TimeRange {
	local := now.In(loc)
	first := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)

	var out []ports.TimeRange
	for i := 0; i < horizonDays; i++ {
		day := first.AddDate(0, 0, i)
		if wd := day.Weekday(); wd == time.Sunday || wd == time.Monday {
			continue
		}
		if artistIndex >= 0 && (day.YearDay()+artistIndex)%3 == 0 {
			continue
		}
		for _, hour := range syntheticHours {
			start := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, loc)
			out = append(out, ports.TimeRange{Start: start, End: start.Add(duration)})
		}
	}
	return out
}
