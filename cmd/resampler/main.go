package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/seasonal-resampler/internal/adapter/csvfile"
	httpadapter "github.com/couchcryptid/seasonal-resampler/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/seasonal-resampler/internal/adapter/kafka"
	"github.com/couchcryptid/seasonal-resampler/internal/config"
	"github.com/couchcryptid/seasonal-resampler/internal/domain"
	"github.com/couchcryptid/seasonal-resampler/internal/observability"
	"github.com/couchcryptid/seasonal-resampler/internal/pipeline"
	"github.com/couchcryptid/seasonal-resampler/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	if err := run(cfg, logger, metrics); err != nil {
		logger.Error("resampling failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	period := cfg.OutputPeriod
	if period == "" {
		period = domain.RunLabel()
	}
	seed := cfg.Seed
	if !cfg.SeedSet {
		seed = domain.DefaultSeed()
	}

	forecaster, err := pipeline.NewStationForecaster(cfg.Mode, cfg.ForecastYear, cfg.ExpectedSeasons, seed)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []pipeline.Option
	if cfg.KafkaEnabled {
		publisher := kafkaadapter.NewPublisher(cfg, logger)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		opts = append(opts, pipeline.WithNotifier(publisher))
		logger.Info("forecast events enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	var checks readiness
	var ledgerRun *store.Run
	if cfg.LedgerPath != "" {
		st, err := store.Open(ctx, cfg.LedgerPath, logger)
		if err != nil {
			return err
		}
		defer st.Close()
		ledgerRun, err = st.BeginRun(ctx, store.RunMeta{
			Period:       period,
			ForecastYear: cfg.ForecastYear,
			Mode:         cfg.Mode,
			Seed:         seed,
		})
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithRecorder(ledgerRun))
		checks = append(checks, st)
		logger.Info("run ledger enabled", "path", cfg.LedgerPath, "run_id", ledgerRun.ID)
	}

	p := pipeline.New(
		csvfile.NewSource(cfg.DailyDataDir, cfg.ProbabilitiesFile),
		forecaster,
		csvfile.NewWriter(cfg.OutputDir, period),
		pipeline.Settings{Mode: cfg.Mode, Period: period, Workers: cfg.Workers},
		logger,
		metrics,
		opts...,
	)

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		checks = append(checks, p)
		srv = httpadapter.NewServer(cfg.HTTPAddr, checks, func() any { return p.Progress() }, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	logger.Info("resampling started",
		"forecast_year", cfg.ForecastYear,
		"mode", cfg.Mode,
		"period", period,
		"seed", seed,
		"output_dir", cfg.OutputDir,
	)
	summary, runErr := p.Run(ctx)

	if ledgerRun != nil {
		// The run context may already be cancelled; the ledger still needs the outcome.
		finishCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		totals := store.RunTotals{
			Processed: summary.Processed,
			Partial:   summary.Partial,
			Skipped:   summary.Skipped,
			Rejected:  summary.Rejected,
			Failed:    summary.Failed,
		}
		if err := ledgerRun.Finish(finishCtx, totals, runErr); err != nil {
			logger.Error("ledger finish error", "error", err)
		}
		cancel()
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	if runErr != nil {
		return runErr
	}
	logger.Info("resampling complete",
		"processed", summary.Processed,
		"partial", summary.Partial,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"rejected", summary.Rejected,
		"scenarios", summary.Scenarios,
	)
	return nil
}

// readiness is ready when every check passes.
type readiness []sharedobs.ReadinessChecker

func (r readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
