package domain

import "time"

// WaterYear returns the water year a date falls in. The water year is named
// for the calendar year it ends in: Oct 2023 through Sep 2024 is water year 2024.
func WaterYear(t time.Time) int {
	if t.Month() >= time.October {
		return t.Year() + 1
	}
	return t.Year()
}

// WaterYearMonth maps a calendar month to its water-year month: October is 1,
// September is 12.
func WaterYearMonth(m time.Month) int {
	if m >= time.October {
		return int(m) - 9
	}
	return int(m) + 3
}

// WaterYearDay returns the 1-based day within the water year: October 1 is 1.
func WaterYearDay(t time.Time) int {
	start := time.Date(t.Year(), time.October, 1, 0, 0, 0, 0, time.UTC)
	if t.Month() < time.October {
		start = start.AddDate(-1, 0, 0)
	}
	return int(Day(t).Sub(start).Hours()/24) + 1
}

// Season labels a date's meteorological season.
func Season(t time.Time) string {
	switch t.Month() {
	case time.December, time.January, time.February:
		return "winter"
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	default:
		return "fall"
	}
}

// SeasonPhase splits the water year into early (Oct-Dec), mid (Jan-Mar), and
// late (Apr-Sep) avalanche season phases.
func SeasonPhase(t time.Time) string {
	switch wm := WaterYearMonth(t.Month()); {
	case wm <= 3:
		return "early"
	case wm <= 6:
		return "mid"
	default:
		return "late"
	}
}

// IsWeekend reports whether a date is a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
