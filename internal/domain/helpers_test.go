package domain

import (
	"math/rand/v2"
	"time"
)

// dailyHistory builds one record per calendar day from Jan 1 of firstYear to
// Dec 31 of lastYear. prec decides the precipitation of each day; the other
// variables vary so the series is never degenerate.
func dailyHistory(firstYear, lastYear int, prec func(year, month, day int) float64) []DailyRecord {
	var out []DailyRecord
	for d := time.Date(firstYear, time.January, 1, 0, 0, 0, 0, time.UTC); d.Year() <= lastYear; d = d.AddDate(0, 0, 1) {
		y, m, day := d.Year(), int(d.Month()), d.Day()
		out = append(out, DailyRecord{
			Day:    day,
			Month:  m,
			Year:   y,
			Prec:   prec(y, m, day),
			TMax:   25 + float64(day%5),
			TMin:   12 + float64(m%3),
			SolRad: 15 + float64(d.YearDay()%7),
		})
	}
	return out
}

// yearlyPrec spreads a yearly amount evenly over the days of a year.
func yearlyPrec(amount float64) func(year, month, day int) float64 {
	return func(year, _, _ int) float64 {
		days := 365.0
		if IsLeapYear(year) {
			days = 366
		}
		return amount / days
	}
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0x5eed))
}

func daysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func februaryRows(records []DailyRecord, year int) []DailyRecord {
	var out []DailyRecord
	for _, r := range records {
		if r.Year == year && r.Month == 2 {
			out = append(out, r)
		}
	}
	return out
}

func mustSeason(t interface{ Fatalf(string, ...any) }, mode Mode, name string) Season {
	seasons, err := BuildSeasons(mode)
	if err != nil {
		t.Fatalf("build seasons: %v", err)
	}
	s, err := SeasonByName(seasons, name)
	if err != nil {
		t.Fatalf("season %s: %v", name, err)
	}
	return s
}
