// Command genmock writes a synthetic resampling batch: one daily series and
// coordinate file per station plus a probability table. The output is fully
// determined by the seed, so it can back reproducible local runs.
//
// Usage:
//
//	go run ./cmd/genmock --out data/mock --stations 8 --seed 42
package main

import (
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"

	"github.com/couchcryptid/seasonal-resampler/internal/adapter/csvfile"
	"github.com/couchcryptid/seasonal-resampler/internal/domain"
)

type cli struct {
	Out          string  `help:"Output directory." required:"" type:"path"`
	Stations     int     `help:"Number of usable stations." default:"5"`
	Degenerate   int     `help:"Extra stations with a constant temperature series." default:"1"`
	Unforecast   int     `help:"Extra stations without probability rows." default:"1"`
	FirstYear    int     `help:"First year of history." default:"1990"`
	LastYear     int     `help:"Last year of history." default:"2020"`
	ForecastYear int     `help:"Year the probabilities refer to." default:"2024"`
	Months       []int   `help:"Forecast months with probability rows." default:"2,5"`
	Seed         uint64  `help:"Random seed." default:"1"`
	RainyDays    float64 `help:"Share of days with precipitation." default:"0.35"`
}

func main() {
	var c cli
	ctx := kong.Parse(&c,
		kong.Name("genmock"),
		kong.Description("Generate a synthetic daily-weather and probability batch."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(run(c))
}

func run(c cli) error {
	if c.FirstYear > c.LastYear {
		return fmt.Errorf("first year %d is after last year %d", c.FirstYear, c.LastYear)
	}
	if c.Stations < 1 {
		return fmt.Errorf("need at least one station")
	}
	for _, m := range c.Months {
		if m < 1 || m > 12 {
			return fmt.Errorf("%w: %d", domain.ErrInvalidMonth, m)
		}
	}

	dailyDir := filepath.Join(c.Out, "daily")
	if err := os.MkdirAll(dailyDir, 0o755); err != nil {
		return err
	}
	rng := rand.New(rand.NewPCG(c.Seed, 0x6d6f636b))

	var rows []domain.ProbabilityRow
	total := c.Stations + c.Degenerate + c.Unforecast
	for i := range total {
		st := domain.Station{
			ID:  fmt.Sprintf("ws-%03d", i+1),
			Lat: round(rng.Float64()*10-2, 4),
			Lon: round(-78+rng.Float64()*8, 4),
		}
		records := series(rng, c.FirstYear, c.LastYear, st.Lat, c.RainyDays)
		if i >= c.Stations && i < c.Stations+c.Degenerate {
			for j := range records {
				records[j].TMax = 30
			}
		}
		if err := csvfile.WriteDailyFile(filepath.Join(dailyDir, st.ID+".csv"), records); err != nil {
			return err
		}
		if err := csvfile.WriteCoordinates(dailyDir, st); err != nil {
			return err
		}
		if i < c.Stations+c.Degenerate {
			rows = append(rows, probabilities(rng, st.ID, c.ForecastYear, c.Months)...)
		}
		log.Printf("%s: %d days", st.ID, len(records))
	}

	path := filepath.Join(c.Out, "probabilities.csv")
	if err := csvfile.WriteProbabilities(path, rows); err != nil {
		return err
	}
	log.Printf("probabilities: %d rows written to %s", len(rows), path)
	return nil
}

// series draws a daily record for every calendar day with a seasonal
// temperature cycle and exponentially distributed rain amounts.
func series(rng *rand.Rand, first, last int, lat, rainy float64) []domain.DailyRecord {
	var out []domain.DailyRecord
	base := 24 - math.Abs(lat)*0.3
	for d := time.Date(first, time.January, 1, 0, 0, 0, 0, time.UTC); d.Year() <= last; d = d.AddDate(0, 0, 1) {
		cycle := math.Sin(2 * math.Pi * float64(d.YearDay()) / 365)
		wetness := 1 + 0.5*cycle
		prec := 0.0
		if rng.Float64() < rainy*wetness {
			prec = round(rng.ExpFloat64()*8*wetness, 1)
		}
		tmax := base + 6 + 3*cycle + rng.NormFloat64()
		out = append(out, domain.DailyRecord{
			Day:    d.Day(),
			Month:  int(d.Month()),
			Year:   d.Year(),
			Prec:   prec,
			TMax:   round(tmax, 1),
			TMin:   round(tmax-8-rng.Float64()*4, 1),
			SolRad: round(16+4*cycle+rng.NormFloat64(), 2),
		})
	}
	return out
}

// probabilities emits one row per forecast month. below and normal are rounded
// to two decimals and above takes the remainder so every row sums to one.
func probabilities(rng *rand.Rand, stationID string, year int, months []int) []domain.ProbabilityRow {
	rows := make([]domain.ProbabilityRow, 0, len(months))
	for _, month := range months {
		w := [3]float64{0.5 + rng.Float64(), 0.5 + rng.Float64(), 0.5 + rng.Float64()}
		sum := w[0] + w[1] + w[2]
		below := round(w[0]/sum, 2)
		normal := round(w[1]/sum, 2)
		rows = append(rows, domain.ProbabilityRow{
			Year:      year,
			StationID: stationID,
			Month:     month,
			Below:     below,
			Normal:    normal,
			Above:     round(1-below-normal, 2),
		})
	}
	return rows
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
