// Package csvfile reads the resampler's CSV inputs and writes its CSV outputs.
package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/seasonal-resampler/internal/domain"
)

const coordsSuffix = "_coords.csv"

// Column sets of the input and output tables.
var (
	DailyColumns       = []string{"day", "month", "year", "prec", "t_max", "t_min", "sol_rad"}
	ProbabilityColumns = []string{"year", "id", "month", "below", "normal", "above"}
	CoordinateColumns  = []string{"lat", "lon"}
	IssueColumns       = []string{"id", "issue", "season"}
)

// LoadDailySeries reads every <station>.csv file in dir, keyed by station id.
// Coordinate files (<station>_coords.csv) are skipped. Records are returned in
// chronological order.
func LoadDailySeries(dir string) (map[string][]domain.DailyRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read daily data dir: %w", err)
	}

	series := make(map[string][]domain.DailyRecord)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, coordsSuffix) {
			continue
		}
		records, err := ReadDailyFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		series[strings.TrimSuffix(name, ".csv")] = records
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%s: %w: no daily series files", dir, domain.ErrContract)
	}
	return series, nil
}

// ReadDailyFile parses one table with the daily columns. Scenario and summary
// outputs share the same layout.
func ReadDailyFile(path string) ([]domain.DailyRecord, error) {
	rows, col, err := readTable(path, DailyColumns)
	if err != nil {
		return nil, err
	}

	records := make([]domain.DailyRecord, 0, len(rows))
	for i, row := range rows {
		p := parser{path: path, line: i + 2, row: row, col: col}
		records = append(records, domain.DailyRecord{
			Day:    p.asInt("day"),
			Month:  p.asInt("month"),
			Year:   p.asInt("year"),
			Prec:   p.asFloat("prec"),
			TMax:   p.asFloat("t_max"),
			TMin:   p.asFloat("t_min"),
			SolRad: p.asFloat("sol_rad"),
		})
		if p.err != nil {
			return nil, p.err
		}
	}
	domain.SortRecords(records)
	return records, nil
}

// LoadCoordinates reads every <station>_coords.csv in dir. Stations without a
// coordinates file are simply absent from the result.
func LoadCoordinates(dir string) (map[string]domain.Station, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read daily data dir: %w", err)
	}

	stations := make(map[string]domain.Station)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, coordsSuffix) {
			continue
		}
		path := filepath.Join(dir, name)
		rows, col, err := readTable(path, CoordinateColumns)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			continue
		}
		p := parser{path: path, line: 2, row: rows[0], col: col}
		id := strings.TrimSuffix(name, coordsSuffix)
		st := domain.Station{ID: id, Lat: p.asFloat("lat"), Lon: p.asFloat("lon")}
		if p.err != nil {
			return nil, p.err
		}
		stations[id] = st
	}
	return stations, nil
}

// LoadProbabilities reads the seasonal probability table.
func LoadProbabilities(path string) ([]domain.ProbabilityRow, error) {
	rows, col, err := readTable(path, ProbabilityColumns)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ProbabilityRow, 0, len(rows))
	for i, row := range rows {
		p := parser{path: path, line: i + 2, row: row, col: col}
		out = append(out, domain.ProbabilityRow{
			Year:      p.asInt("year"),
			StationID: p.asString("id"),
			Month:     p.asInt("month"),
			Below:     p.asFloat("below"),
			Normal:    p.asFloat("normal"),
			Above:     p.asFloat("above"),
		})
		if p.err != nil {
			return nil, p.err
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w: probability table is empty", path, domain.ErrContract)
	}
	return out, nil
}

// ReadIssues parses an issue log written by Writer.AppendIssues.
func ReadIssues(path string) ([]domain.Issue, error) {
	rows, col, err := readTable(path, IssueColumns)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Issue, 0, len(rows))
	for i, row := range rows {
		p := parser{path: path, line: i + 2, row: row, col: col}
		out = append(out, domain.Issue{StationID: p.asString("id"), Description: p.asString("issue"), Season: p.asString("season")})
	}
	return out, nil
}

// readTable loads a CSV file and maps each required column to its index.
// A missing column breaks the input contract.
func readTable(path string, required []string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%s: %w: missing header", path, domain.ErrContract)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}

	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			return nil, nil, fmt.Errorf("%s: %w: missing column %q", path, domain.ErrContract, name)
		}
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, col, nil
}

// parser converts the cells of one row and keeps the first failure.
type parser struct {
	path string
	line int
	row  []string
	col  map[string]int
	err  error
}

func (p *parser) asString(name string) string {
	i := p.col[name]
	if i >= len(p.row) {
		return ""
	}
	return strings.TrimSpace(p.row[i])
}

func (p *parser) asInt(name string) int {
	s := p.asString(name)
	if p.err != nil {
		return 0
	}
	// Some upstream tables write integer columns as floats ("2001.0").
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v != float64(int(v)) {
		p.err = fmt.Errorf("%s line %d: %w: column %s: invalid integer %q", p.path, p.line, domain.ErrContract, name, s)
		return 0
	}
	return int(v)
}

func (p *parser) asFloat(name string) float64 {
	s := p.asString(name)
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.err = fmt.Errorf("%s line %d: %w: column %s: invalid number %q", p.path, p.line, domain.ErrContract, name, s)
		return 0
	}
	return v
}
