package domain

import (
	"errors"
	"fmt"
)

// ErrContract marks a broken upstream contract. Errors wrapping it abort the
// batch instead of being recorded as a per-station issue.
var ErrContract = errors.New("input contract violation")

var (
	ErrEmptySeries   = fmt.Errorf("%w: empty daily series", ErrContract)
	ErrUnknownMode   = fmt.Errorf("%w: unknown forecast mode", ErrContract)
	ErrUnknownSeason = fmt.Errorf("%w: unknown season", ErrContract)
	ErrInvalidMonth  = fmt.Errorf("%w: month out of range", ErrContract)
)

var (
	ErrNoSeasonData   = errors.New("no historical records in season window")
	ErrEmptyCategory  = errors.New("no eligible historical year in sampled category")
	ErrInvalidWeights = errors.New("season probabilities do not sum to a positive weight")
)
