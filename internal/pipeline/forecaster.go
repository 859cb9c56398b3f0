package pipeline

import (
	"context"
	"hash/fnv"
	"math/rand/v2"

	"github.com/couchcryptid/seasonal-resampler/internal/domain"
)

// StationForecaster resamples stations against a fixed season catalogue.
// Each station draws from its own PCG stream keyed by the run seed and the
// station id, so results do not depend on worker scheduling.
type StationForecaster struct {
	catalogue       []domain.Season
	forecastYear    int
	expectedSeasons int
	seed            uint64
}

// NewStationForecaster builds the season catalogue for mode.
func NewStationForecaster(mode domain.Mode, forecastYear, expectedSeasons int, seed uint64) (*StationForecaster, error) {
	catalogue, err := domain.BuildSeasons(mode)
	if err != nil {
		return nil, err
	}
	return &StationForecaster{
		catalogue:       catalogue,
		forecastYear:    forecastYear,
		expectedSeasons: expectedSeasons,
		seed:            seed,
	}, nil
}

// Forecast implements Forecaster.
func (f *StationForecaster) Forecast(ctx context.Context, in StationInput) (domain.StationForecast, error) {
	if err := ctx.Err(); err != nil {
		return domain.StationForecast{StationID: in.StationID}, err
	}
	return domain.ForecastStation(domain.ForecastRequest{
		StationID:       in.StationID,
		Records:         in.Records,
		Probabilities:   in.Probabilities,
		Catalogue:       f.catalogue,
		ForecastYear:    f.forecastYear,
		ExpectedSeasons: f.expectedSeasons,
		Rand:            rand.New(rand.NewPCG(f.seed, stationStream(in.StationID))),
		Observe:         in.Observe,
	})
}

func stationStream(id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return h.Sum64()
}
