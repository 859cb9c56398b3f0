package domain

import (
	"fmt"
	"math"
	"slices"
)

// Tercile split points.
const (
	lowerTercile = 0.33
	upperTercile = 0.66
)

// SelectSeason returns the records whose month falls inside the season window.
func SelectSeason(records []DailyRecord, s Season) []DailyRecord {
	var out []DailyRecord
	for _, r := range records {
		if s.Contains(r.Month) {
			out = append(out, r)
		}
	}
	return out
}

// Quantile returns the q-th quantile of sorted values using linear
// interpolation between closest ranks. It returns NaN for an empty slice.
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	h := q * float64(n-1)
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// Classify labels a precipitation total against the season's terciles.
func (t Terciles) Classify(total float64) Category {
	switch {
	case total <= t.P33:
		return CategoryBelow
	case total >= t.P66:
		return CategoryAbove
	default:
		return CategoryNormal
	}
}

// ClassifyYears sums season precipitation per calendar year and labels every
// year below, normal or above. Years whose season months are not fully on
// record for targetYear's calendar are left out. Fewer than three distinct
// years cannot form meaningful terciles; the labels are still computed but
// will be lopsided.
func ClassifyYears(records []DailyRecord, s Season, targetYear int) ([]YearClassification, Terciles, error) {
	window := SelectSeason(records, s)
	if len(window) == 0 {
		return nil, Terciles{}, fmt.Errorf("season %s: %w", s.Name, ErrNoSeasonData)
	}

	cov := NewCoverage(window, s, targetYear)
	totals := make(map[int]float64)
	for _, r := range window {
		if cov.CalendarComplete(r.Year) {
			totals[r.Year] += r.Prec
		}
	}
	if len(totals) == 0 {
		return nil, Terciles{}, fmt.Errorf("season %s: no complete year: %w", s.Name, ErrNoSeasonData)
	}

	years := make([]int, 0, len(totals))
	for y := range totals {
		years = append(years, y)
	}
	slices.Sort(years)

	values := make([]float64, len(years))
	for i, y := range years {
		values[i] = totals[y]
	}
	slices.Sort(values)

	t := Terciles{
		P33: Quantile(values, lowerTercile),
		P66: Quantile(values, upperTercile),
	}

	classes := make([]YearClassification, len(years))
	for i, y := range years {
		classes[i] = YearClassification{
			Season:   s.Name,
			Year:     y,
			Total:    totals[y],
			Category: t.Classify(totals[y]),
		}
	}
	return classes, t, nil
}
