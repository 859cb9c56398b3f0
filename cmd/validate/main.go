// Command validate checks the integrity of a resampling output tree: scenario
// counts, calendar coverage, summary envelopes and the issue log.
//
// Usage:
//
//	go run ./cmd/validate --out data/output --period 15-06-2024_10-30-00
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/alecthomas/kong"

	"github.com/couchcryptid/seasonal-resampler/internal/adapter/csvfile"
	"github.com/couchcryptid/seasonal-resampler/internal/domain"
)

type cli struct {
	Out       string `help:"Output directory written by the resampler." required:"" type:"existingdir"`
	Period    string `help:"Run folder to check. Defaults to the latest folder of each station."`
	Scenarios int    `help:"Expected scenarios per station." default:"100"`
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// stationRun is the loaded output of one station.
type stationRun struct {
	id        string
	dir       string
	scenarios map[int][]domain.DailyRecord
	max       []domain.DailyRecord
	min       []domain.DailyRecord
	clim      []domain.DailyRecord
}

func main() {
	var c cli
	kong.Parse(&c,
		kong.Name("validate"),
		kong.Description("Check a resampling output tree."),
		kong.UsageOnError(),
	)
	os.Exit(run(c))
}

func run(c cli) int {
	fmt.Println("=== Resampling Output Validation ===")
	fmt.Println()

	runs, err := loadRuns(c.Out, c.Period)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load output: %v\n", err)
		return 1
	}
	issues, err := loadIssues(c.Out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load issue log: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateScenarioCount(runs, c.Scenarios),
		validateCalendar(runs),
		validateEnvelope(runs),
		validateIssues(runs, issues),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Stations: %d with output, %d issue rows\n", len(runs), len(issues))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadRuns(root, period string) ([]stationRun, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var runs []stationRun
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir, err := runDir(filepath.Join(root, e.Name()), period)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		if dir == "" {
			continue
		}
		sr, err := loadStation(e.Name(), dir)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		runs = append(runs, sr)
	}
	return runs, nil
}

// runDir picks the requested run folder, or the most recent one by label.
func runDir(stationDir, period string) (string, error) {
	if period != "" {
		dir := filepath.Join(stationDir, period)
		if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return dir, nil
	}
	entries, err := os.ReadDir(stationDir)
	if err != nil {
		return "", err
	}
	var latest time.Time
	var dir string
	for _, e := range entries {
		t, err := time.Parse(domain.RunLabelLayout, e.Name())
		if err != nil || !e.IsDir() {
			continue
		}
		if dir == "" || t.After(latest) {
			latest, dir = t, filepath.Join(stationDir, e.Name())
		}
	}
	return dir, nil
}

func loadStation(id, dir string) (stationRun, error) {
	sr := stationRun{id: id, dir: dir, scenarios: make(map[int][]domain.DailyRecord)}
	for i := 0; ; i++ {
		path := filepath.Join(dir, "escenario_"+strconv.Itoa(i)+".csv")
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			break
		}
		records, err := csvfile.ReadDailyFile(path)
		if err != nil {
			return sr, err
		}
		sr.scenarios[i] = records
	}

	var err error
	if sr.max, err = csvfile.ReadDailyFile(filepath.Join(dir, "summary", id+"_max.csv")); err != nil {
		return sr, err
	}
	if sr.min, err = csvfile.ReadDailyFile(filepath.Join(dir, "summary", id+"_min.csv")); err != nil {
		return sr, err
	}
	if sr.clim, err = csvfile.ReadDailyFile(filepath.Join(dir, "summary", id+"_climatology.csv")); err != nil {
		return sr, err
	}
	return sr, nil
}

func loadIssues(root string) ([]domain.Issue, error) {
	path := filepath.Join(root, csvfile.IssuesFile)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return csvfile.ReadIssues(path)
}

// ── Validation phases ──

func validateScenarioCount(runs []stationRun, want int) *phase {
	p := &phase{name: "Scenario count"}
	for _, sr := range runs {
		if len(sr.scenarios) != want {
			p.errorf("%s: %d scenarios, want %d", sr.id, len(sr.scenarios), want)
		}
	}
	return p
}

// validateCalendar checks that every scenario covers whole months and that
// all scenarios of a station share the same days. Overlapping seasons repeat
// days, so coverage is checked on distinct dates.
func validateCalendar(runs []stationRun) *phase {
	p := &phase{name: "Calendar coverage"}
	type yearMonth struct{ year, month int }
	for _, sr := range runs {
		var ref []string
		for i := range len(sr.scenarios) {
			records := sr.scenarios[i]
			if len(records) == 0 {
				p.errorf("%s: scenario %d is empty", sr.id, i)
				continue
			}
			days := make(map[yearMonth]map[int]bool)
			keys := make([]string, 0, len(records))
			for _, r := range records {
				ym := yearMonth{r.Year, r.Month}
				if days[ym] == nil {
					days[ym] = make(map[int]bool)
				}
				days[ym][r.Day] = true
				keys = append(keys, fmt.Sprintf("%04d-%02d-%02d", r.Year, r.Month, r.Day))
			}
			for ym, seen := range days {
				if n, want := len(seen), daysIn(ym.year, ym.month); n != want {
					p.errorf("%s: scenario %d has %d days in %04d-%02d, want %d", sr.id, i, n, ym.year, ym.month, want)
				}
			}
			slices.Sort(keys)
			if ref == nil {
				ref = keys
			} else if !slices.Equal(ref, keys) {
				p.errorf("%s: scenario %d covers different days than scenario 0", sr.id, i)
			}
		}
		if len(sr.clim) != len(ref) {
			p.errorf("%s: climatology has %d days, scenarios have %d", sr.id, len(sr.clim), len(ref))
		}
	}
	return p
}

// validateEnvelope checks that the max and min summaries bound every scenario.
func validateEnvelope(runs []stationRun) *phase {
	p := &phase{name: "Summary envelope"}
	type key struct{ month, day int }
	for _, sr := range runs {
		upper := make(map[key]domain.DailyRecord, len(sr.max))
		lower := make(map[key]domain.DailyRecord, len(sr.min))
		for _, r := range sr.max {
			upper[key{r.Month, r.Day}] = r
		}
		for _, r := range sr.min {
			lower[key{r.Month, r.Day}] = r
		}
		errs := 0
	scenarios:
		for i, records := range sr.scenarios {
			for _, r := range records {
				k := key{r.Month, r.Day}
				hi, okHi := upper[k]
				lo, okLo := lower[k]
				if !okHi || !okLo {
					p.errorf("%s: scenario %d day %02d-%02d missing from summary", sr.id, i, r.Month, r.Day)
					errs++
				} else if r.Prec > hi.Prec || r.Prec < lo.Prec || r.TMax > hi.TMax || r.TMin < lo.TMin {
					p.errorf("%s: scenario %d day %02d-%02d outside summary envelope", sr.id, i, r.Month, r.Day)
					errs++
				}
				if errs >= 10 {
					break scenarios
				}
			}
		}
	}
	return p
}

// validateIssues checks that no station with output is also logged as lacking
// probabilities.
func validateIssues(runs []stationRun, issues []domain.Issue) *phase {
	p := &phase{name: "Issue log consistency"}
	written := make(map[string]bool, len(runs))
	for _, sr := range runs {
		written[sr.id] = true
	}
	for _, is := range issues {
		if is.StationID == "" {
			p.errorf("issue without station id: %q", is.Description)
			continue
		}
		if is.Description == domain.IssueNoProbabilities && written[is.StationID] {
			p.errorf("%s: logged without probabilities but has scenarios", is.StationID)
		}
	}
	return p
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
