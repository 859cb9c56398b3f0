package pipeline_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/couchcryptid/seasonal-resampler/internal/adapter/csvfile"
	"github.com/couchcryptid/seasonal-resampler/internal/domain"
	"github.com/couchcryptid/seasonal-resampler/internal/observability"
	"github.com/couchcryptid/seasonal-resampler/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline_Run_CSVRoundTrip(t *testing.T) {
	root := t.TempDir()
	dailyDir := filepath.Join(root, "daily")
	outDir := filepath.Join(root, "out")
	probsPath := filepath.Join(root, "probabilities.csv")
	require.NoError(t, os.MkdirAll(dailyDir, 0o755))

	ext := batch()
	for id, records := range ext.series {
		require.NoError(t, csvfile.WriteDailyFile(filepath.Join(dailyDir, id+".csv"), records))
	}
	require.NoError(t, csvfile.WriteCoordinates(dailyDir, ext.stations["ws-a"]))
	require.NoError(t, csvfile.WriteProbabilities(probsPath, ext.rows))

	period := "15-06-2024_10-30-00"
	writer := csvfile.NewWriter(outDir, period)
	p := pipeline.New(
		csvfile.NewSource(dailyDir, probsPath),
		newForecaster(t, 42),
		writer,
		pipeline.Settings{Mode: domain.ModeTrimonthly, Period: period, Workers: 2},
		slog.Default(),
		observability.NewMetricsForTesting(),
	)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 2, summary.Rejected)

	for _, id := range []string{"ws-a", "ws-b"} {
		dir := writer.StationDir(id)
		for i := range domain.EnsembleSize {
			records, err := csvfile.ReadDailyFile(filepath.Join(dir, "escenario_"+strconv.Itoa(i)+".csv"))
			require.NoError(t, err)
			// Mar-Apr-May plus Jun-Jul-Aug in the forecast year.
			require.Len(t, records, 92+92)
			assert.Equal(t, 2024, records[0].Year)
		}

		maxRecords, err := csvfile.ReadDailyFile(filepath.Join(dir, "summary", id+"_max.csv"))
		require.NoError(t, err)
		minRecords, err := csvfile.ReadDailyFile(filepath.Join(dir, "summary", id+"_min.csv"))
		require.NoError(t, err)
		require.Len(t, maxRecords, len(minRecords))
		for i := range maxRecords {
			assert.GreaterOrEqual(t, maxRecords[i].Prec, minRecords[i].Prec)
		}
		assert.FileExists(t, filepath.Join(dir, "summary", id+"_climatology.csv"))
		assert.FileExists(t, filepath.Join(dir, "samples_for_forecast_tri.csv"))
	}
	assert.NoDirExists(t, writer.StationDir("ws-flat"))

	issues, err := csvfile.ReadIssues(writer.IssuesPath())
	require.NoError(t, err)
	ids := make([]string, len(issues))
	for i, is := range issues {
		ids[i] = is.StationID
	}
	assert.ElementsMatch(t, []string{"ws-flat", "ws-far"}, ids)
}
