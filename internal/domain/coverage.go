package domain

import "time"

type yearMonth struct {
	year  int
	month int
}

// Coverage records how many distinct days of each season month are on record
// per historical year. Records must already be leap-normalized to the target
// year, so every February is expected to have the target year's length.
type Coverage struct {
	season Season
	target int
	days   map[yearMonth]int
}

// NewCoverage counts the season-window days of records.
func NewCoverage(records []DailyRecord, s Season, targetYear int) Coverage {
	seen := make(map[DailyRecord]bool)
	days := make(map[yearMonth]int)
	for _, r := range records {
		if !s.Contains(r.Month) {
			continue
		}
		key := DailyRecord{Year: r.Year, Month: r.Month, Day: r.Day}
		if seen[key] {
			continue
		}
		seen[key] = true
		days[yearMonth{r.Year, r.Month}]++
	}
	return Coverage{season: s, target: targetYear, days: days}
}

func (c Coverage) monthComplete(year, month int) bool {
	return c.days[yearMonth{year, month}] == monthLength(c.target, month)
}

// CalendarComplete reports whether every season month of the calendar year is
// fully on record. Only such years enter the tercile sample.
func (c Coverage) CalendarComplete(year int) bool {
	for _, m := range c.season.Months() {
		if !c.monthComplete(year, m) {
			return false
		}
	}
	return true
}

// WindowComplete reports whether a member drawn for year would stitch a full
// window. A season crossing the year boundary takes Start..December from year
// and January..End from year+1.
func (c Coverage) WindowComplete(year int) bool {
	for _, m := range c.season.Months() {
		y := year
		if c.season.CrossesYear() && m < c.season.Start {
			y = year + 1
		}
		if !c.monthComplete(y, m) {
			return false
		}
	}
	return true
}

// Length is the number of days in the season window when February has the
// length of targetYear's February.
func (s Season) Length(targetYear int) int {
	n := 0
	for _, m := range s.Months() {
		n += monthLength(targetYear, m)
	}
	return n
}

func monthLength(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
