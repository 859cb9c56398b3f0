package domain

import (
	"fmt"
	"math"
	"slices"
)

// Probability row tolerance. The three category probabilities of a row must
// sum to a value inside [minProbabilitySum, maxProbabilitySum].
const (
	minProbabilitySum = 0.9
	maxProbabilitySum = 1.1
)

// RejectionKind classifies why a station was excluded from resampling.
type RejectionKind string

const (
	RejectDegenerateSeries   RejectionKind = "degenerate_series"
	RejectProbabilityAnomaly RejectionKind = "probability_anomaly"
	RejectOutsidePredictor   RejectionKind = "outside_predictor_area"
)

// Rejection is one excluded station with a human-readable reason.
type Rejection struct {
	StationID string
	Kind      RejectionKind
	Reason    string
}

// Issue converts the rejection to an issue log row.
func (r Rejection) Issue() Issue {
	return Issue{StationID: r.StationID, Description: r.Reason}
}

// ValidationReport partitions stations into usable and rejected ones.
// Probabilities holds only the valid rows of usable stations.
type ValidationReport struct {
	Usable        []string
	Rejected      []Rejection
	Probabilities []ProbabilityRow
}

// ValidateInputs screens the daily series and the probability table.
//
// A series is degenerate when t_max, t_min or sol_rad is constant over the
// whole record. A probability row is invalid when normal is zero, when the
// three probabilities sum outside [0.9, 1.1], or when any single probability
// lies outside [0, 1]. A station needs a non-degenerate series and at least
// one valid probability row to be usable. An empty series is a contract
// violation and aborts validation.
func ValidateInputs(series map[string][]DailyRecord, probs []ProbabilityRow) (ValidationReport, error) {
	var report ValidationReport

	degenerate := make(map[string]bool)
	for _, id := range sortedKeys(series) {
		records := series[id]
		if len(records) == 0 {
			return ValidationReport{}, fmt.Errorf("station %s: %w", id, ErrEmptySeries)
		}
		if reason, ok := degenerateReason(records); ok {
			degenerate[id] = true
			report.Rejected = append(report.Rejected, Rejection{
				StationID: id,
				Kind:      RejectDegenerateSeries,
				Reason:    reason,
			})
		}
	}

	valid := make(map[string][]ProbabilityRow)
	anyRow := make(map[string]bool)
	badRows := make(map[string]bool)
	var order []string
	for _, row := range probs {
		if !anyRow[row.StationID] {
			order = append(order, row.StationID)
		}
		anyRow[row.StationID] = true
		if ValidProbabilityRow(row) {
			valid[row.StationID] = append(valid[row.StationID], row)
		} else {
			badRows[row.StationID] = true
		}
	}

	for _, id := range order {
		if badRows[id] && len(valid[id]) == 0 {
			report.Rejected = append(report.Rejected, Rejection{
				StationID: id,
				Kind:      RejectProbabilityAnomaly,
				Reason:    "probability database problem",
			})
		}
		if _, ok := series[id]; !ok {
			report.Rejected = append(report.Rejected, Rejection{
				StationID: id,
				Kind:      RejectOutsidePredictor,
				Reason:    "station has probabilities but no daily series",
			})
		}
	}

	for _, id := range sortedKeys(series) {
		if !anyRow[id] {
			report.Rejected = append(report.Rejected, Rejection{
				StationID: id,
				Kind:      RejectOutsidePredictor,
				Reason:    "station is outside the predictor area",
			})
			continue
		}
		if degenerate[id] || len(valid[id]) == 0 {
			continue
		}
		report.Usable = append(report.Usable, id)
		report.Probabilities = append(report.Probabilities, valid[id]...)
	}

	return report, nil
}

// ValidProbabilityRow reports whether a forecast row can be used for sampling.
func ValidProbabilityRow(row ProbabilityRow) bool {
	for _, p := range []float64{row.Below, row.Normal, row.Above} {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return false
		}
	}
	if row.Normal == 0 {
		return false
	}
	sum := row.Sum()
	return sum >= minProbabilitySum && sum <= maxProbabilitySum
}

// degenerateReason returns a diagnostic when any of t_max, t_min or sol_rad
// never varies across the record.
func degenerateReason(records []DailyRecord) (string, bool) {
	tmax := spanOf(records, func(r DailyRecord) float64 { return r.TMax })
	tmin := spanOf(records, func(r DailyRecord) float64 { return r.TMin })
	srad := spanOf(records, func(r DailyRecord) float64 { return r.SolRad })

	if tmax.constant() || tmin.constant() || srad.constant() {
		return fmt.Sprintf("degenerate series: tmax = %g; tmin = %g; srad = %g", tmax.max, tmin.max, srad.max), true
	}
	return "", false
}

type span struct {
	min float64
	max float64
}

func (s span) constant() bool { return s.max == s.min }

func spanOf(records []DailyRecord, value func(DailyRecord) float64) span {
	s := span{min: math.Inf(1), max: math.Inf(-1)}
	for _, r := range records {
		v := value(r)
		s.min = math.Min(s.min, v)
		s.max = math.Max(s.max, v)
	}
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
