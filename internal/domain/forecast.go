package domain

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"
)

// StationState is a step of the per-station processing state machine.
type StationState string

const (
	StateValidated        StationState = "validated"
	StateSeasonsBuilt     StationState = "seasons_built"
	StateClassified       StationState = "classified"
	StateSampled          StationState = "sampled"
	StateStitched         StationState = "stitched"
	StateScenariosWritten StationState = "scenarios_written"
	StateSummarized       StationState = "summarized"
	StateFailed           StationState = "failed"
)

// ForecastStatus is the overall outcome of ForecastStation.
type ForecastStatus string

const (
	StatusComplete        ForecastStatus = "complete"
	StatusPartial         ForecastStatus = "partial"
	StatusNoProbabilities ForecastStatus = "no_probabilities"
	StatusFailed          ForecastStatus = "failed"
)

// Issue descriptions shared with the issue log.
const (
	IssueNoProbabilities = "station does not have probabilities"
	IssuePartialCoverage = "station has fewer seasons available than expected"
)

// ForecastRequest is everything needed to resample one station.
type ForecastRequest struct {
	StationID     string
	Records       []DailyRecord
	Probabilities []CategoryProbability
	Catalogue     []Season
	ForecastYear  int
	// ExpectedSeasons below one disables the partial coverage check.
	ExpectedSeasons int
	Rand            *rand.Rand
	// Observe, when set, is called on every state transition. season is empty
	// for station-level states.
	Observe func(state StationState, season string)
}

// SeasonResult keeps the intermediate products of one resampled season.
type SeasonResult struct {
	Season     Season
	TargetYear int
	Terciles   Terciles
	Classes    []YearClassification
	Members    []EnsembleMember
}

// StationForecast is the outcome of resampling one station.
type StationForecast struct {
	StationID    string
	ForecastYear int
	Status       ForecastStatus
	Seasons      []SeasonResult
	Scenarios    []Scenario
	Max          []DailyRecord
	Min          []DailyRecord
	Climatology  []DailyRecord
	Issues       []Issue
}

// SeasonNames lists the seasons that produced scenarios.
func (f StationForecast) SeasonNames() []string {
	names := make([]string, len(f.Seasons))
	for i, s := range f.Seasons {
		names[i] = s.Season.Name
	}
	return names
}

// ForecastStation runs validation-to-summary resampling for one station.
//
// A station without probability rows yields StatusNoProbabilities and an
// issue instead of an error. A season that cannot be resampled (no history in
// the window, empty category) is recorded as an issue and the remaining
// seasons continue. Contract violations are returned as errors.
func ForecastStation(req ForecastRequest) (StationForecast, error) {
	f := StationForecast{StationID: req.StationID, ForecastYear: req.ForecastYear}
	observe := req.Observe
	if observe == nil {
		observe = func(StationState, string) {}
	}

	if len(req.Records) == 0 {
		return f, fmt.Errorf("station %s: %w", req.StationID, ErrEmptySeries)
	}
	if req.Rand == nil {
		return f, fmt.Errorf("station %s: %w: nil random source", req.StationID, ErrContract)
	}
	observe(StateValidated, "")

	probs := make([]CategoryProbability, 0, len(req.Probabilities))
	for _, p := range req.Probabilities {
		if p.StationID == req.StationID {
			probs = append(probs, p)
		}
	}
	if len(probs) == 0 {
		f.Status = StatusNoProbabilities
		f.Issues = append(f.Issues, Issue{StationID: req.StationID, Description: IssueNoProbabilities})
		return f, nil
	}

	seasons, err := stationSeasons(req.Catalogue, probs)
	if err != nil {
		return f, fmt.Errorf("station %s: %w", req.StationID, err)
	}
	observe(StateSeasonsBuilt, "")

	normalized := make(map[int][]DailyRecord)
	var stitched []StitchedRecord
	var produced []Season
	for _, s := range seasons {
		target := s.TargetYear(req.ForecastYear)
		records, ok := normalized[target]
		if !ok {
			records = NormalizeLeapDays(req.Records, target, req.Rand)
			normalized[target] = records
		}

		result, rows, err := resampleSeason(records, s, target, probs, req.Rand, observe)
		if err != nil {
			if errors.Is(err, ErrContract) {
				return f, fmt.Errorf("station %s: %w", req.StationID, err)
			}
			f.Issues = append(f.Issues, Issue{StationID: req.StationID, Description: err.Error(), Season: s.Name})
			continue
		}
		result.TargetYear = target
		f.Seasons = append(f.Seasons, result)
		f.Climatology = append(f.Climatology, Climatology(records, s, target)...)
		stitched = append(stitched, rows...)
		produced = append(produced, s)
	}

	if len(produced) == 0 {
		f.Status = StatusFailed
		observe(StateFailed, "")
		return f, nil
	}

	f.Scenarios = BuildScenarios(req.StationID, req.ForecastYear, produced, stitched)
	f.Max, f.Min = Summarize(f.Scenarios)
	sortByMonthDay(f.Climatology)

	f.Status = StatusComplete
	if req.ExpectedSeasons > 0 && len(produced) < req.ExpectedSeasons {
		f.Status = StatusPartial
		names := f.SeasonNames()
		for _, name := range names {
			f.Issues = append(f.Issues, Issue{StationID: req.StationID, Description: IssuePartialCoverage, Season: name})
		}
	}
	return f, nil
}

func resampleSeason(
	records []DailyRecord,
	s Season,
	target int,
	probs []CategoryProbability,
	rng *rand.Rand,
	observe func(StationState, string),
) (SeasonResult, []StitchedRecord, error) {
	classes, terciles, err := ClassifyYears(records, s, target)
	if err != nil {
		return SeasonResult{}, nil, err
	}
	observe(StateClassified, s.Name)

	members, err := SampleEnsemble(s, probs, BuildYearPool(classes, NewCoverage(records, s, target)), rng)
	if err != nil {
		return SeasonResult{}, nil, err
	}
	observe(StateSampled, s.Name)

	rows := Stitch(records, s, members)
	observe(StateStitched, s.Name)

	return SeasonResult{Season: s, Terciles: terciles, Classes: classes, Members: members}, rows, nil
}

// stationSeasons resolves the distinct seasons named by a station's
// probabilities, in catalogue order.
func stationSeasons(catalogue []Season, probs []CategoryProbability) ([]Season, error) {
	names := make(map[string]bool)
	for _, p := range probs {
		names[p.Season] = true
	}

	var seasons []Season
	for name := range names {
		s, err := SeasonByName(catalogue, name)
		if err != nil {
			return nil, err
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		seasons = append(seasons, s)
	}
	slices.SortFunc(seasons, func(a, b Season) int {
		return slices.IndexFunc(catalogue, func(s Season) bool { return s.Name == a.Name }) -
			slices.IndexFunc(catalogue, func(s Season) bool { return s.Name == b.Name })
	})
	return seasons, nil
}

// ForecastReady announces a station whose scenarios have been written.
type ForecastReady struct {
	StationID    string    `json:"station_id"`
	Lat          float64   `json:"lat,omitempty"`
	Lon          float64   `json:"lon,omitempty"`
	ForecastYear int       `json:"forecast_year"`
	Mode         Mode      `json:"mode"`
	Period       string    `json:"period"`
	Status       string    `json:"status"`
	Seasons      []string  `json:"seasons"`
	Scenarios    int       `json:"scenarios"`
	Directory    string    `json:"directory"`
	Issues       int       `json:"issues"`
	ProducedAt   time.Time `json:"produced_at"`
}

// NewForecastReady builds the completion event for a written forecast.
func NewForecastReady(f StationForecast, station Station, mode Mode, period, dir string) ForecastReady {
	return ForecastReady{
		StationID:    f.StationID,
		Lat:          station.Lat,
		Lon:          station.Lon,
		ForecastYear: f.ForecastYear,
		Mode:         mode,
		Period:       period,
		Status:       string(f.Status),
		Seasons:      f.SeasonNames(),
		Scenarios:    len(f.Scenarios),
		Directory:    dir,
		Issues:       len(f.Issues),
		ProducedAt:   clock.Now().UTC(),
	}
}
