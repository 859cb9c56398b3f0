package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/couchcryptid/seasonal-resampler/internal/domain"
)

// Run status values.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunAborted   = "aborted"
)

// RunMeta identifies a batch run.
type RunMeta struct {
	Period       string
	ForecastYear int
	Mode         domain.Mode
	Seed         uint64
}

// RunTotals are the station counts stored when a run finishes.
type RunTotals struct {
	Processed int
	Partial   int
	Skipped   int
	Rejected  int
	Failed    int
}

// Run records the progress of one batch. It implements pipeline.StateRecorder.
type Run struct {
	ID    int64
	store *Store
}

// StateRecord is one row of station_states.
type StateRecord struct {
	StationID  string
	Season     string
	State      domain.StationState
	RecordedAt time.Time
}

// RunRecord is one row of runs.
type RunRecord struct {
	ID           int64
	Period       string
	ForecastYear int
	Mode         string
	Status       string
	ErrorMessage sql.NullString
	StartedAt    time.Time
	FinishedAt   sql.NullTime
	Totals       RunTotals
}

// BeginRun inserts a running batch and returns its handle.
func (s *Store) BeginRun(ctx context.Context, meta RunMeta) (*Run, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (period, forecast_year, mode, seed, started_at, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, meta.Period, meta.ForecastYear, string(meta.Mode), int64(meta.Seed), s.clock.Now().UTC(), RunRunning)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &Run{ID: id, store: s}, nil
}

// RecordState appends a station state transition. season is empty for
// station-level states.
func (r *Run) RecordState(ctx context.Context, stationID, season string, state domain.StationState) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO station_states (run_id, station_id, season, state, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`, r.ID, stationID, season, string(state), r.store.clock.Now().UTC())
	if err != nil {
		return fmt.Errorf("record state %s for %s: %w", state, stationID, err)
	}
	return nil
}

// RecordIssue stores one issue log row.
func (r *Run) RecordIssue(ctx context.Context, issue domain.Issue) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO station_issues (run_id, station_id, issue, season, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`, r.ID, issue.StationID, issue.Description, issue.Season, r.store.clock.Now().UTC())
	if err != nil {
		return fmt.Errorf("record issue for %s: %w", issue.StationID, err)
	}
	return nil
}

// Finish closes the run with its totals. A non-nil runErr marks it aborted.
func (r *Run) Finish(ctx context.Context, totals RunTotals, runErr error) error {
	status := RunCompleted
	var msg sql.NullString
	if runErr != nil {
		status = RunAborted
		msg = sql.NullString{String: runErr.Error(), Valid: true}
	}

	_, err := r.store.db.ExecContext(ctx, `
		UPDATE runs SET
			finished_at = ?,
			status = ?,
			error_message = ?,
			stations_processed = ?,
			stations_partial = ?,
			stations_skipped = ?,
			stations_rejected = ?,
			stations_failed = ?
		WHERE id = ?
	`, r.store.clock.Now().UTC(), status, msg,
		totals.Processed, totals.Partial, totals.Skipped, totals.Rejected, totals.Failed, r.ID)
	if err != nil {
		return fmt.Errorf("finish run %d: %w", r.ID, err)
	}
	return nil
}

// GetRun loads one run.
func (s *Store) GetRun(ctx context.Context, id int64) (*RunRecord, error) {
	var rec RunRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, period, forecast_year, mode, status, error_message, started_at, finished_at,
			stations_processed, stations_partial, stations_skipped, stations_rejected, stations_failed
		FROM runs WHERE id = ?
	`, id).Scan(&rec.ID, &rec.Period, &rec.ForecastYear, &rec.Mode, &rec.Status, &rec.ErrorMessage,
		&rec.StartedAt, &rec.FinishedAt,
		&rec.Totals.Processed, &rec.Totals.Partial, &rec.Totals.Skipped, &rec.Totals.Rejected, &rec.Totals.Failed)
	if err != nil {
		return nil, fmt.Errorf("get run %d: %w", id, err)
	}
	return &rec, nil
}

// StationHistory returns the state transitions of a station in one run, in
// the order they were recorded.
func (s *Store) StationHistory(ctx context.Context, runID int64, stationID string) ([]StateRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT station_id, season, state, recorded_at
		FROM station_states
		WHERE run_id = ? AND station_id = ?
		ORDER BY id
	`, runID, stationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StateRecord
	for rows.Next() {
		var rec StateRecord
		var state string
		if err := rows.Scan(&rec.StationID, &rec.Season, &state, &rec.RecordedAt); err != nil {
			return nil, err
		}
		rec.State = domain.StationState(state)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RunIssues returns every issue of a run.
func (s *Store) RunIssues(ctx context.Context, runID int64) ([]domain.Issue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT station_id, issue, season FROM station_issues WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Issue
	for rows.Next() {
		var is domain.Issue
		if err := rows.Scan(&is.StationID, &is.Description, &is.Season); err != nil {
			return nil, err
		}
		out = append(out, is)
	}
	return out, rows.Err()
}
