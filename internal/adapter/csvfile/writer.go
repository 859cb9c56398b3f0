package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/couchcryptid/seasonal-resampler/internal/domain"
)

// IssuesFile is the name of the batch issue log under the output root.
const IssuesFile = "issues.csv"

// Writer persists station forecasts under <root>/<station>/<period>/ and
// appends to the shared issue log. It is safe for concurrent use; station
// directories never overlap and the issue log is guarded by a mutex.
type Writer struct {
	root   string
	period string

	mu sync.Mutex
}

// NewWriter creates a Writer for one run folder.
func NewWriter(root, period string) *Writer {
	return &Writer{root: root, period: period}
}

// StationDir is the run folder of a station.
func (w *Writer) StationDir(stationID string) string {
	return filepath.Join(w.root, stationID, w.period)
}

// IssuesPath is the location of the issue log.
func (w *Writer) IssuesPath() string {
	return filepath.Join(w.root, IssuesFile)
}

// WriteForecast writes one file per scenario, the ensemble summaries, the
// climatology and the table of sampled years. It returns the station folder.
func (w *Writer) WriteForecast(ctx context.Context, f domain.StationForecast, mode domain.Mode) (string, error) {
	dir := w.StationDir(f.StationID)
	if err := os.MkdirAll(filepath.Join(dir, "summary"), 0o755); err != nil {
		return "", fmt.Errorf("create station dir: %w", err)
	}

	for _, sc := range f.Scenarios {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		name := "escenario_" + strconv.Itoa(sc.SampleID) + ".csv"
		if err := WriteDailyFile(filepath.Join(dir, name), sc.Records); err != nil {
			return "", err
		}
	}

	summaries := []struct {
		suffix  string
		records []domain.DailyRecord
	}{
		{"_max.csv", f.Max},
		{"_min.csv", f.Min},
		{"_climatology.csv", f.Climatology},
	}
	for _, s := range summaries {
		path := filepath.Join(dir, "summary", f.StationID+s.suffix)
		if err := WriteDailyFile(path, s.records); err != nil {
			return "", err
		}
	}

	if err := writeSamples(filepath.Join(dir, "samples_for_forecast_"+string(mode)+".csv"), f.Seasons); err != nil {
		return "", err
	}
	return dir, nil
}

// AppendIssues adds rows to the issue log, writing the header when the file
// is created.
func (w *Writer) AppendIssues(_ context.Context, issues []domain.Issue) error {
	if len(issues) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(w.root, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.OpenFile(w.IssuesPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open issue log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat issue log: %w", err)
	}

	rows := make([][]string, 0, len(issues)+1)
	if info.Size() == 0 {
		rows = append(rows, IssueColumns)
	}
	for _, is := range issues {
		rows = append(rows, []string{is.StationID, is.Description, is.Season})
	}
	cw := csv.NewWriter(f)
	err = cw.WriteAll(rows)
	return errors.Join(err, f.Close())
}

// WriteDailyFile writes records with the daily columns.
func WriteDailyFile(path string, records []domain.DailyRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			strconv.Itoa(r.Day),
			strconv.Itoa(r.Month),
			strconv.Itoa(r.Year),
			formatFloat(r.Prec),
			formatFloat(r.TMax),
			formatFloat(r.TMin),
			formatFloat(r.SolRad),
		})
	}
	return writeTable(path, DailyColumns, rows)
}

// WriteCoordinates writes a <station>_coords.csv file into dir.
func WriteCoordinates(dir string, st domain.Station) error {
	path := filepath.Join(dir, st.ID+coordsSuffix)
	return writeTable(path, CoordinateColumns, [][]string{{formatFloat(st.Lat), formatFloat(st.Lon)}})
}

// WriteProbabilities writes a probability table.
func WriteProbabilities(path string, rows []domain.ProbabilityRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			strconv.Itoa(r.Year),
			r.StationID,
			strconv.Itoa(r.Month),
			formatFloat(r.Below),
			formatFloat(r.Normal),
			formatFloat(r.Above),
		})
	}
	return writeTable(path, ProbabilityColumns, out)
}

// writeSamples records which historical year every sample drew per season:
// columns id,<season>...
func writeSamples(path string, seasons []domain.SeasonResult) error {
	header := []string{"id"}
	for _, s := range seasons {
		header = append(header, s.Season.Name)
	}

	rows := make([][]string, domain.EnsembleSize)
	for i := range rows {
		rows[i] = make([]string, len(header))
		rows[i][0] = strconv.Itoa(i)
	}
	for col, s := range seasons {
		for _, m := range s.Members {
			if m.SampleID >= 0 && m.SampleID < len(rows) {
				rows[m.SampleID][col+1] = strconv.Itoa(m.Year)
			}
		}
	}
	return writeTable(path, header, rows)
}

func writeTable(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := cw.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
