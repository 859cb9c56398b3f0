package domain

import (
	"math/rand/v2"
	"slices"
)

// IsLeapYear applies the Gregorian rule.
func IsLeapYear(year int) bool {
	return year%400 == 0 || (year%4 == 0 && year%100 != 0)
}

// NormalizeLeapDays reconciles every historical February with the calendar
// of targetYear and returns the records sorted by (year, month, day).
//
// When targetYear is a leap year, a non-leap historical February without a
// day 29 gains one: a randomly chosen February day of that year is copied and
// relabelled as day 29. When targetYear is not a leap year, day 29 rows are
// dropped. Running the function twice with the same target leaves the output
// unchanged. The input slice is not modified.
func NormalizeLeapDays(records []DailyRecord, targetYear int, rng *rand.Rand) []DailyRecord {
	targetLeap := IsLeapYear(targetYear)

	out := make([]DailyRecord, 0, len(records)+len(records)/365+1)
	february := make(map[int][]DailyRecord)
	for _, r := range records {
		if r.Month != 2 {
			out = append(out, r)
			continue
		}
		february[r.Year] = append(february[r.Year], r)
	}

	years := make([]int, 0, len(february))
	for y := range february {
		years = append(years, y)
	}
	slices.Sort(years)

	for _, y := range years {
		rows := february[y]
		hasLeapDay := slices.ContainsFunc(rows, func(r DailyRecord) bool { return r.Day == 29 })

		switch {
		case targetLeap && !IsLeapYear(y) && !hasLeapDay:
			extra := rows[rng.IntN(len(rows))]
			extra.Day = 29
			rows = append(rows, extra)
		case !targetLeap && hasLeapDay:
			rows = slices.DeleteFunc(slices.Clone(rows), func(r DailyRecord) bool { return r.Day == 29 })
		}
		out = append(out, rows...)
	}

	SortRecords(out)
	return out
}
