package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/seasonal-resampler/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

func setupTestStore(t *testing.T) (*Store, *clockwork.FakeClock) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	clock := clockwork.NewFakeClockAt(testStart)
	s := New(db, clock, slog.Default())
	require.NoError(t, s.Migrate(context.Background()))
	return s, clock
}

func testMeta() RunMeta {
	return RunMeta{Period: "15-06-2024_10-30-00", ForecastYear: 2024, Mode: domain.ModeTrimonthly, Seed: 42}
}

func TestMigrate_Idempotent(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Migrate(ctx))

	version, err := s.MigrationVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), version)
}

func TestRun_Lifecycle(t *testing.T) {
	s, clock := setupTestStore(t)
	ctx := context.Background()

	run, err := s.BeginRun(ctx, testMeta())
	require.NoError(t, err)

	rec, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunRunning, rec.Status)
	assert.False(t, rec.FinishedAt.Valid)
	assert.True(t, testStart.Equal(rec.StartedAt))

	clock.Advance(time.Minute)
	totals := RunTotals{Processed: 3, Partial: 1, Skipped: 1, Rejected: 2}
	require.NoError(t, run.Finish(ctx, totals, nil))

	rec, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, rec.Status)
	assert.Equal(t, totals, rec.Totals)
	assert.Equal(t, "15-06-2024_10-30-00", rec.Period)
	assert.Equal(t, "tri", rec.Mode)
	require.True(t, rec.FinishedAt.Valid)
	assert.True(t, testStart.Add(time.Minute).Equal(rec.FinishedAt.Time))
}

func TestRun_FinishAborted(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	run, err := s.BeginRun(ctx, testMeta())
	require.NoError(t, err)
	require.NoError(t, run.Finish(ctx, RunTotals{}, errors.New("input contract violation: empty daily series")))

	rec, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunAborted, rec.Status)
	assert.Equal(t, "input contract violation: empty daily series", rec.ErrorMessage.String)
}

func TestRun_StationHistory(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	run, err := s.BeginRun(ctx, testMeta())
	require.NoError(t, err)

	transitions := []struct {
		season string
		state  domain.StationState
	}{
		{"", domain.StateValidated},
		{"", domain.StateSeasonsBuilt},
		{"Mar-Apr-May", domain.StateClassified},
		{"Mar-Apr-May", domain.StateSampled},
		{"Mar-Apr-May", domain.StateStitched},
		{"", domain.StateScenariosWritten},
		{"", domain.StateSummarized},
	}
	for _, tr := range transitions {
		require.NoError(t, run.RecordState(ctx, "ws-1", tr.season, tr.state))
	}
	require.NoError(t, run.RecordState(ctx, "ws-2", "", domain.StateValidated))

	history, err := s.StationHistory(ctx, run.ID, "ws-1")
	require.NoError(t, err)
	require.Len(t, history, len(transitions))
	for i, tr := range transitions {
		assert.Equal(t, tr.state, history[i].State)
		assert.Equal(t, tr.season, history[i].Season)
		assert.Equal(t, "ws-1", history[i].StationID)
	}
}

func TestRun_Issues(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	first, err := s.BeginRun(ctx, testMeta())
	require.NoError(t, err)
	second, err := s.BeginRun(ctx, testMeta())
	require.NoError(t, err)

	issue := domain.Issue{StationID: "ws-1", Description: domain.IssuePartialCoverage, Season: "Mar-Apr-May"}
	require.NoError(t, first.RecordIssue(ctx, issue))
	require.NoError(t, second.RecordIssue(ctx, domain.Issue{StationID: "ws-9", Description: domain.IssueNoProbabilities}))

	issues, err := s.RunIssues(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Issue{issue}, issues)
}

func TestOpen_FileLedger(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	s, err := Open(ctx, path, slog.Default())
	require.NoError(t, err)
	require.NoError(t, s.CheckReadiness(ctx))
	_, err = s.BeginRun(ctx, testMeta())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(ctx, path, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	rec, err := reopened.GetRun(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2024, rec.ForecastYear)
}
