package csvfile

import (
	"context"

	"github.com/couchcryptid/seasonal-resampler/internal/domain"
)

// Source reads the batch inputs from a daily data directory and a
// probability table. It implements pipeline.Extractor.
type Source struct {
	DailyDir          string
	ProbabilitiesPath string
}

// NewSource creates a Source.
func NewSource(dailyDir, probabilitiesPath string) *Source {
	return &Source{DailyDir: dailyDir, ProbabilitiesPath: probabilitiesPath}
}

func (s *Source) DailySeries(ctx context.Context) (map[string][]domain.DailyRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadDailySeries(s.DailyDir)
}

func (s *Source) Coordinates(ctx context.Context) (map[string]domain.Station, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadCoordinates(s.DailyDir)
}

func (s *Source) Probabilities(ctx context.Context) ([]domain.ProbabilityRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadProbabilities(s.ProbabilitiesPath)
}
