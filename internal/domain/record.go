package domain

import (
	"cmp"
	"slices"
)

// DailyRecord is one day of station history, or one day of a scenario once
// its year has been relabelled to the forecast year.
type DailyRecord struct {
	Day    int
	Month  int
	Year   int
	Prec   float64
	TMax   float64
	TMin   float64
	SolRad float64
}

// Station carries the coordinates listed next to a daily series.
type Station struct {
	ID  string
	Lat float64
	Lon float64
}

// ProbabilityRow is one row of the upstream seasonal forecast table.
type ProbabilityRow struct {
	Year      int
	StationID string
	Month     int
	Below     float64
	Normal    float64
	Above     float64
}

// Sum returns below+normal+above.
func (r ProbabilityRow) Sum() float64 {
	return r.Below + r.Normal + r.Above
}

// Category is a precipitation tercile label.
type Category string

const (
	CategoryBelow  Category = "below"
	CategoryNormal Category = "normal"
	CategoryAbove  Category = "above"
)

// Categories lists the tercile labels in sampling order.
var Categories = []Category{CategoryBelow, CategoryNormal, CategoryAbove}

// CategoryProbability is the normalized (long) form of a probability row
// after it has been joined to a season.
type CategoryProbability struct {
	StationID   string
	Year        int
	Season      string
	Start       int
	End         int
	Category    Category
	Probability float64
}

// YearClassification is the tercile label of one historical year for one season.
type YearClassification struct {
	Season   string
	Year     int
	Total    float64
	Category Category
}

// Terciles holds the two split points of a season's precipitation totals.
type Terciles struct {
	P33 float64
	P66 float64
}

// EnsembleMember is one sampled historical realization of a season.
type EnsembleMember struct {
	SampleID int
	Season   string
	Category Category
	Year     int
	NextYear int
}

// StitchedRecord is a historical day assigned to an ensemble member.
type StitchedRecord struct {
	DailyRecord
	SampleID int
	Season   string
}

// Scenario is the forecast-year daily series of one ensemble member.
type Scenario struct {
	StationID string
	SampleID  int
	Records   []DailyRecord
}

// Issue is a row of the issue log: a station that could not be fully processed.
type Issue struct {
	StationID   string
	Description string
	Season      string
}

// SortRecords orders records chronologically by (year, month, day).
func SortRecords(records []DailyRecord) {
	slices.SortStableFunc(records, func(a, b DailyRecord) int {
		return cmp.Or(
			cmp.Compare(a.Year, b.Year),
			cmp.Compare(a.Month, b.Month),
			cmp.Compare(a.Day, b.Day),
		)
	})
}

// sortByMonthDay orders records by (month, day), the summary file order.
func sortByMonthDay(records []DailyRecord) {
	slices.SortStableFunc(records, func(a, b DailyRecord) int {
		return cmp.Or(
			cmp.Compare(a.Month, b.Month),
			cmp.Compare(a.Day, b.Day),
		)
	})
}

type monthDay struct {
	month int
	day   int
}
