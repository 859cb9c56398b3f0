package domain

import (
	"fmt"
	"math/rand/v2"
)

// EnsembleSize is the number of members drawn per station and season.
const EnsembleSize = 100

// YearPool groups the historical years eligible for a season by category.
type YearPool map[Category][]int

// BuildYearPool collects classified years per category. A year is only
// eligible when its stitched window is fully on record; for seasons crossing
// the year boundary that includes the early months of the following year.
func BuildYearPool(classes []YearClassification, cov Coverage) YearPool {
	pool := make(YearPool)
	for _, c := range classes {
		if !cov.WindowComplete(c.Year) {
			continue
		}
		pool[c.Category] = append(pool[c.Category], c.Year)
	}
	return pool
}

// CategoryWeights sums the probability mass of each category over every row
// attached to the season. Bimonthly seasons joined twice contribute twice.
func CategoryWeights(probs []CategoryProbability, season string) map[Category]float64 {
	weights := make(map[Category]float64, len(Categories))
	for _, p := range probs {
		if p.Season == season {
			weights[p.Category] += p.Probability
		}
	}
	return weights
}

// SampleEnsemble draws EnsembleSize members for a season. Each draw picks a
// category with probability proportional to its weight, then a historical
// year uniformly from that category's pool. Years may repeat across draws.
func SampleEnsemble(s Season, probs []CategoryProbability, pool YearPool, rng *rand.Rand) ([]EnsembleMember, error) {
	weights := CategoryWeights(probs, s.Name)

	var total float64
	for _, c := range Categories {
		total += weights[c]
	}
	if !(total > 0) {
		return nil, fmt.Errorf("season %s: %w", s.Name, ErrInvalidWeights)
	}

	members := make([]EnsembleMember, EnsembleSize)
	for i := range members {
		c := drawCategory(weights, total, rng)
		years := pool[c]
		if len(years) == 0 {
			return nil, fmt.Errorf("season %s category %s: %w", s.Name, c, ErrEmptyCategory)
		}
		year := years[rng.IntN(len(years))]
		members[i] = EnsembleMember{
			SampleID: i,
			Season:   s.Name,
			Category: c,
			Year:     year,
			NextYear: year + 1,
		}
	}
	return members, nil
}

func drawCategory(weights map[Category]float64, total float64, rng *rand.Rand) Category {
	u := rng.Float64() * total
	var cumulative float64
	for _, c := range Categories {
		if weights[c] <= 0 {
			continue
		}
		cumulative += weights[c]
		if u < cumulative {
			return c
		}
	}
	// u can land on total through rounding; fall back to the last weighted category.
	for i := len(Categories) - 1; i >= 0; i-- {
		if weights[Categories[i]] > 0 {
			return Categories[i]
		}
	}
	return CategoryNormal
}
