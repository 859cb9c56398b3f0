package domain

import (
	"cmp"
	"math"
	"slices"
)

// BuildScenarios groups stitched records by sample id and relabels each
// record's year with its season's target year. Scenarios are returned in
// sample id order and their records in season order: by target year, then
// by position inside the window, so a season crossing the year boundary
// lists its start months before January.
func BuildScenarios(stationID string, forecastYear int, seasons []Season, stitched []StitchedRecord) []Scenario {
	byName := make(map[string]Season, len(seasons))
	for _, s := range seasons {
		byName[s.Name] = s
	}

	type keyed struct {
		record DailyRecord
		pos    int
	}
	bySample := make(map[int][]keyed)
	for _, sr := range stitched {
		s := byName[sr.Season]
		r := sr.DailyRecord
		r.Year = s.TargetYear(forecastYear)
		bySample[sr.SampleID] = append(bySample[sr.SampleID], keyed{record: r, pos: s.position(r.Month)})
	}

	ids := make([]int, 0, len(bySample))
	for id := range bySample {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	scenarios := make([]Scenario, 0, len(ids))
	for _, id := range ids {
		rows := bySample[id]
		slices.SortStableFunc(rows, func(a, b keyed) int {
			return cmp.Or(
				cmp.Compare(a.record.Year, b.record.Year),
				cmp.Compare(a.pos, b.pos),
				cmp.Compare(a.record.Day, b.record.Day),
			)
		})
		records := make([]DailyRecord, len(rows))
		for i, k := range rows {
			records[i] = k.record
		}
		scenarios = append(scenarios, Scenario{StationID: stationID, SampleID: id, Records: records})
	}
	return scenarios
}

// Summarize computes, for every (day, month) present in any scenario, the
// maximum and minimum of each variable across the ensemble. Both results are
// sorted by (month, day).
func Summarize(scenarios []Scenario) (maxima, minima []DailyRecord) {
	hi := make(map[monthDay]DailyRecord)
	lo := make(map[monthDay]DailyRecord)

	for _, sc := range scenarios {
		for _, r := range sc.Records {
			key := monthDay{month: r.Month, day: r.Day}
			cur, ok := hi[key]
			if !ok {
				hi[key] = r
				lo[key] = r
				continue
			}
			hi[key] = combine(cur, r, math.Max)
			lo[key] = combine(lo[key], r, math.Min)
		}
	}

	maxima = collect(hi)
	minima = collect(lo)
	return maxima, minima
}

func combine(a, b DailyRecord, pick func(x, y float64) float64) DailyRecord {
	return DailyRecord{
		Day:    a.Day,
		Month:  a.Month,
		Year:   int(pick(float64(a.Year), float64(b.Year))),
		Prec:   pick(a.Prec, b.Prec),
		TMax:   pick(a.TMax, b.TMax),
		TMin:   pick(a.TMin, b.TMin),
		SolRad: pick(a.SolRad, b.SolRad),
	}
}

func collect(m map[monthDay]DailyRecord) []DailyRecord {
	out := make([]DailyRecord, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	sortByMonthDay(out)
	return out
}

// Climatology averages the history of a season per (day, month): mean t_max,
// t_min and sol_rad, median prec. Records are labelled with targetYear and
// sorted by (month, day). Downstream month completion falls back to these
// values when no observed data exists for the month.
func Climatology(records []DailyRecord, s Season, targetYear int) []DailyRecord {
	type acc struct {
		prec               []float64
		tmax, tmin, solRad float64
		n                  int
	}
	groups := make(map[monthDay]*acc)
	for _, r := range SelectSeason(records, s) {
		key := monthDay{month: r.Month, day: r.Day}
		a, ok := groups[key]
		if !ok {
			a = &acc{}
			groups[key] = a
		}
		a.prec = append(a.prec, r.Prec)
		a.tmax += r.TMax
		a.tmin += r.TMin
		a.solRad += r.SolRad
		a.n++
	}

	out := make([]DailyRecord, 0, len(groups))
	for key, a := range groups {
		slices.Sort(a.prec)
		n := float64(a.n)
		out = append(out, DailyRecord{
			Day:    key.day,
			Month:  key.month,
			Year:   targetYear,
			Prec:   Quantile(a.prec, 0.5),
			TMax:   a.tmax / n,
			TMin:   a.tmin / n,
			SolRad: a.solRad / n,
		})
	}
	sortByMonthDay(out)
	return out
}
