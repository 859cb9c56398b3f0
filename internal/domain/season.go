package domain

import (
	"fmt"
	"strings"
)

// Mode selects the width of the forecast season windows.
type Mode string

const (
	ModeBimonthly  Mode = "bi"
	ModeTrimonthly Mode = "tri"
)

// ParseMode validates a forecast mode string.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeBimonthly, ModeTrimonthly:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

var monthAbbrev = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Season is a named window of contiguous calendar months. Start > End means
// the window crosses the year boundary. Central is set for trimonthly seasons
// only and is the month probability rows join on.
type Season struct {
	Name    string
	Start   int
	Central int
	End     int
}

// CrossesYear reports whether the window wraps from December into January.
func (s Season) CrossesYear() bool {
	return s.Start > s.End
}

// Contains reports whether month falls inside the window.
func (s Season) Contains(month int) bool {
	if s.CrossesYear() {
		return month >= s.Start || month <= s.End
	}
	return month >= s.Start && month <= s.End
}

// Months lists the window's months in calendar order of the season.
func (s Season) Months() []int {
	var months []int
	for m := s.Start; ; m = wrapMonth(m + 1) {
		months = append(months, m)
		if m == s.End {
			return months
		}
	}
}

// position orders month inside the window. Months from Start to December of
// a season crossing the year boundary come before January.
func (s Season) position(month int) int {
	if s.CrossesYear() && month >= s.Start {
		return month - 12
	}
	return month
}

// TargetYear is the calendar year a scenario of this season is labelled with.
// Seasons crossing the year boundary belong to the following year.
func (s Season) TargetYear(forecastYear int) int {
	if s.CrossesYear() {
		return forecastYear + 1
	}
	return forecastYear
}

// Validate checks the window is well formed.
func (s Season) Validate() error {
	for _, m := range []int{s.Start, s.End} {
		if m < 1 || m > 12 {
			return fmt.Errorf("%w: season %q month %d", ErrInvalidMonth, s.Name, m)
		}
	}
	if s.Central != 0 && !s.Contains(s.Central) {
		return fmt.Errorf("%w: season %q central month %d outside window", ErrUnknownSeason, s.Name, s.Central)
	}
	if s.Name == "" {
		return fmt.Errorf("%w: unnamed season", ErrUnknownSeason)
	}
	return nil
}

// BuildSeasons returns the ordered season catalogue for a forecast mode.
func BuildSeasons(mode Mode) ([]Season, error) {
	switch mode {
	case ModeTrimonthly:
		seasons := make([]Season, 0, 12)
		for start := 1; start <= 12; start++ {
			central := wrapMonth(start + 1)
			end := wrapMonth(start + 2)
			seasons = append(seasons, Season{
				Name:    seasonName(start, central, end),
				Start:   start,
				Central: central,
				End:     end,
			})
		}
		return seasons, nil
	case ModeBimonthly:
		seasons := make([]Season, 0, 6)
		for start := 1; start <= 12; start += 2 {
			end := start + 1
			seasons = append(seasons, Season{
				Name:  seasonName(start, end),
				Start: start,
				End:   end,
			})
		}
		return seasons, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// NormalizeProbabilities joins forecast rows to the season catalogue and
// reshapes each match into one CategoryProbability per tercile.
//
// Trimonthly rows join the season whose central month equals the row month.
// Bimonthly rows join the season starting on the row month and, separately,
// the season ending on it; both matches are kept.
func NormalizeProbabilities(mode Mode, rows []ProbabilityRow) ([]CategoryProbability, error) {
	seasons, err := BuildSeasons(mode)
	if err != nil {
		return nil, err
	}

	var out []CategoryProbability
	for _, row := range rows {
		if row.Month < 1 || row.Month > 12 {
			return nil, fmt.Errorf("station %s: %w: %d", row.StationID, ErrInvalidMonth, row.Month)
		}
		for _, s := range seasons {
			switch mode {
			case ModeTrimonthly:
				if row.Month == s.Central {
					out = appendCategories(out, row, s)
				}
			case ModeBimonthly:
				if row.Month == s.Start {
					out = appendCategories(out, row, s)
				}
				if row.Month == s.End {
					out = appendCategories(out, row, s)
				}
			}
		}
	}
	return out, nil
}

func appendCategories(out []CategoryProbability, row ProbabilityRow, s Season) []CategoryProbability {
	values := map[Category]float64{
		CategoryBelow:  row.Below,
		CategoryNormal: row.Normal,
		CategoryAbove:  row.Above,
	}
	for _, c := range Categories {
		out = append(out, CategoryProbability{
			StationID:   row.StationID,
			Year:        row.Year,
			Season:      s.Name,
			Start:       s.Start,
			End:         s.End,
			Category:    c,
			Probability: values[c],
		})
	}
	return out
}

// SeasonByName looks a season up in a catalogue.
func SeasonByName(seasons []Season, name string) (Season, error) {
	for _, s := range seasons {
		if s.Name == name {
			return s, nil
		}
	}
	return Season{}, fmt.Errorf("%w: %q", ErrUnknownSeason, name)
}

func seasonName(months ...int) string {
	parts := make([]string, len(months))
	for i, m := range months {
		parts[i] = monthAbbrev[m-1]
	}
	return strings.Join(parts, "-")
}

func wrapMonth(m int) int {
	return (m-1)%12 + 1
}
