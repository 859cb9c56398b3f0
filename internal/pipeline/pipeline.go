package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/seasonal-resampler/internal/domain"
	"github.com/couchcryptid/seasonal-resampler/internal/observability"
	"golang.org/x/sync/errgroup"
)

// Extractor reads the batch inputs.
type Extractor interface {
	DailySeries(ctx context.Context) (map[string][]domain.DailyRecord, error)
	Coordinates(ctx context.Context) (map[string]domain.Station, error)
	Probabilities(ctx context.Context) ([]domain.ProbabilityRow, error)
}

// StationInput is the work item of one station.
type StationInput struct {
	StationID     string
	Records       []domain.DailyRecord
	Probabilities []domain.CategoryProbability
	Observe       func(state domain.StationState, season string)
}

// Forecaster resamples one station.
type Forecaster interface {
	Forecast(ctx context.Context, in StationInput) (domain.StationForecast, error)
}

// Loader persists station forecasts and the issue log.
type Loader interface {
	WriteForecast(ctx context.Context, f domain.StationForecast, mode domain.Mode) (string, error)
	AppendIssues(ctx context.Context, issues []domain.Issue) error
}

// Notifier announces a station whose outputs have been written.
type Notifier interface {
	Publish(ctx context.Context, event domain.ForecastReady) error
}

// StateRecorder keeps an audit trail of station state transitions and issues.
type StateRecorder interface {
	RecordState(ctx context.Context, stationID, season string, state domain.StationState) error
	RecordIssue(ctx context.Context, issue domain.Issue) error
}

// Settings are the batch parameters shared by every station.
type Settings struct {
	Mode    domain.Mode
	Period  string
	Workers int
}

// Option configures optional pipeline collaborators.
type Option func(*Pipeline)

// WithNotifier publishes a ForecastReady event per written station.
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// WithRecorder records state transitions and issues.
func WithRecorder(r StateRecorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// RunSummary counts station outcomes of one batch.
type RunSummary struct {
	Usable    int
	Processed int
	Partial   int
	Skipped   int
	Failed    int
	Rejected  int
	Issues    int
	Scenarios int
}

// Progress is a point-in-time view of a running batch.
type Progress struct {
	Phase    string `json:"phase"`
	Period   string `json:"period"`
	Usable   int    `json:"usable"`
	Done     int    `json:"done"`
	Rejected int    `json:"rejected"`
	Issues   int    `json:"issues"`
}

// Pipeline orchestrates extract, validate, resample and load for one batch.
type Pipeline struct {
	extractor  Extractor
	forecaster Forecaster
	loader     Loader
	notifier   Notifier
	recorder   StateRecorder
	settings   Settings
	logger     *slog.Logger
	metrics    *observability.Metrics
	ready      atomic.Bool

	mu       sync.Mutex
	progress Progress
}

// New creates a Pipeline with the given stages and observability.
func New(e Extractor, f Forecaster, l Loader, settings Settings, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	if settings.Workers < 1 {
		settings.Workers = 1
	}
	p := &Pipeline{
		extractor:  e,
		forecaster: f,
		loader:     l,
		settings:   settings,
		logger:     logger,
		metrics:    metrics,
		progress:   Progress{Phase: "pending", Period: settings.Period},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once the batch inputs have been validated.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("batch inputs have not been validated yet")
	}
	return nil
}

// Progress returns a snapshot of the batch state.
func (p *Pipeline) Progress() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progress
}

// Run processes the whole batch. Per-station problems are written to the
// issue log and never stop the batch. Contract violations, an unwritable
// issue log, and cancellation stop it and are returned.
func (p *Pipeline) Run(ctx context.Context) (RunSummary, error) {
	var summary RunSummary

	p.logger.Info("pipeline started", "mode", p.settings.Mode, "period", p.settings.Period, "workers", p.settings.Workers)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)
	defer p.setPhase("done")

	p.setPhase("extracting")
	series, err := p.extractor.DailySeries(ctx)
	if err != nil {
		return summary, fmt.Errorf("extract daily series: %w", err)
	}
	stations, err := p.extractor.Coordinates(ctx)
	if err != nil {
		return summary, fmt.Errorf("extract coordinates: %w", err)
	}
	rows, err := p.extractor.Probabilities(ctx)
	if err != nil {
		return summary, fmt.Errorf("extract probabilities: %w", err)
	}

	p.setPhase("validating")
	report, err := domain.ValidateInputs(series, rows)
	if err != nil {
		return summary, fmt.Errorf("validate inputs: %w", err)
	}
	rejected := make([]domain.Issue, 0, len(report.Rejected))
	for _, r := range report.Rejected {
		p.logger.Warn("station rejected", "station", r.StationID, "reason", r.Kind, "error", r.Reason)
		p.metrics.StationsRejected.WithLabelValues(string(r.Kind)).Inc()
		rejected = append(rejected, r.Issue())
	}
	if err := p.recordIssues(ctx, rejected); err != nil {
		return summary, err
	}
	summary.Rejected = len(report.Rejected)
	summary.Issues = len(rejected)
	summary.Usable = len(report.Usable)

	probs, err := domain.NormalizeProbabilities(p.settings.Mode, report.Probabilities)
	if err != nil {
		return summary, fmt.Errorf("normalize probabilities: %w", err)
	}
	byStation := make(map[string][]domain.CategoryProbability)
	for _, pr := range probs {
		byStation[pr.StationID] = append(byStation[pr.StationID], pr)
	}

	p.ready.Store(true)
	p.mu.Lock()
	p.progress.Usable = summary.Usable
	p.progress.Rejected = summary.Rejected
	p.progress.Issues = summary.Issues
	p.mu.Unlock()
	p.setPhase("resampling")

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.settings.Workers)
	for _, id := range report.Usable {
		if gctx.Err() != nil {
			break
		}
		in := StationInput{StationID: id, Records: series[id], Probabilities: byStation[id]}
		station := stations[id]
		station.ID = id
		g.Go(func() error {
			res, err := p.processStation(gctx, in, station)
			mu.Lock()
			summary.add(res)
			mu.Unlock()
			p.advance(res.issues)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	p.logger.Info("pipeline finished",
		"processed", summary.Processed,
		"partial", summary.Partial,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"rejected", summary.Rejected,
	)
	return summary, nil
}

type stationResult struct {
	status    domain.ForecastStatus
	written   bool
	issues    int
	scenarios int
}

func (s *RunSummary) add(r stationResult) {
	s.Issues += r.issues
	s.Scenarios += r.scenarios
	switch {
	case r.written && r.status == domain.StatusPartial:
		s.Processed++
		s.Partial++
	case r.written:
		s.Processed++
	case r.status == domain.StatusNoProbabilities:
		s.Skipped++
	case r.status != "":
		s.Failed++
	}
}

// processStation resamples and writes one station. The returned error is
// non-nil only when the batch must stop.
func (p *Pipeline) processStation(ctx context.Context, in StationInput, station domain.Station) (stationResult, error) {
	start := time.Now()
	logger := p.logger.With("station", in.StationID, "period", p.settings.Period)
	in.Observe = func(state domain.StationState, season string) {
		p.recordState(ctx, in.StationID, season, state)
	}

	f, err := p.forecaster.Forecast(ctx, in)
	if err != nil {
		if errors.Is(err, domain.ErrContract) {
			p.metrics.StationsProcessed.WithLabelValues("error").Inc()
			return stationResult{}, fmt.Errorf("station %s: %w", in.StationID, err)
		}
		if ctx.Err() != nil {
			return stationResult{}, ctx.Err()
		}
		logger.Error("resample station failed", "error", err)
		return p.fail(ctx, in.StationID, err.Error()), nil
	}

	res := stationResult{status: f.Status, issues: len(f.Issues)}
	switch f.Status {
	case domain.StatusNoProbabilities, domain.StatusFailed:
		logger.Warn("station not resampled", "status", f.Status, "issues", len(f.Issues))
		p.logIssues(ctx, f.Issues)
		p.metrics.StationsProcessed.WithLabelValues(string(f.Status)).Inc()
		return res, nil
	}

	dir, err := p.loader.WriteForecast(ctx, f, p.settings.Mode)
	if err != nil {
		if ctx.Err() != nil {
			return stationResult{}, ctx.Err()
		}
		logger.Error("write scenarios failed", "error", err)
		failed := p.fail(ctx, in.StationID, fmt.Sprintf("write scenarios: %v", err))
		failed.issues += res.issues
		p.logIssues(ctx, f.Issues)
		return failed, nil
	}
	res.written = true
	res.scenarios = len(f.Scenarios)
	p.metrics.ScenariosWritten.Add(float64(len(f.Scenarios)))
	p.recordState(ctx, in.StationID, "", domain.StateScenariosWritten)
	p.recordState(ctx, in.StationID, "", domain.StateSummarized)

	for _, issue := range f.Issues {
		logger.Warn("station issue", "season", issue.Season, "error", issue.Description)
	}
	p.logIssues(ctx, f.Issues)

	if p.notifier != nil {
		event := domain.NewForecastReady(f, station, p.settings.Mode, p.settings.Period, dir)
		if err := p.notifier.Publish(ctx, event); err != nil {
			logger.Warn("publish forecast event failed", "error", err)
			p.metrics.EventsPublished.WithLabelValues("error").Inc()
		} else {
			p.metrics.EventsPublished.WithLabelValues("success").Inc()
		}
	}

	p.metrics.StationsProcessed.WithLabelValues(string(f.Status)).Inc()
	p.metrics.StationDuration.Observe(time.Since(start).Seconds())
	logger.Info("station resampled",
		"status", f.Status,
		"seasons", len(f.Seasons),
		"scenarios", len(f.Scenarios),
		"dir", dir,
	)
	return res, nil
}

// fail records a station-level failure that is not a contract violation.
func (p *Pipeline) fail(ctx context.Context, stationID, reason string) stationResult {
	p.recordState(ctx, stationID, "", domain.StateFailed)
	p.logIssues(ctx, []domain.Issue{{StationID: stationID, Description: reason}})
	p.metrics.StationsProcessed.WithLabelValues(string(domain.StatusFailed)).Inc()
	return stationResult{status: domain.StatusFailed, issues: 1}
}

// recordIssues appends to the issue log and the ledger. Only the issue log
// error is returned; the ledger is best effort.
func (p *Pipeline) recordIssues(ctx context.Context, issues []domain.Issue) error {
	if len(issues) == 0 {
		return nil
	}
	if err := p.loader.AppendIssues(ctx, issues); err != nil {
		return fmt.Errorf("append issue log: %w", err)
	}
	p.metrics.IssuesRecorded.Add(float64(len(issues)))
	if p.recorder == nil {
		return nil
	}
	for _, issue := range issues {
		if err := p.recorder.RecordIssue(ctx, issue); err != nil {
			p.logger.Warn("ledger issue write failed", "station", issue.StationID, "error", err)
		}
	}
	return nil
}

func (p *Pipeline) logIssues(ctx context.Context, issues []domain.Issue) {
	if err := p.recordIssues(ctx, issues); err != nil {
		p.logger.Error("issue log write failed", "error", err, "issues", len(issues))
	}
}

func (p *Pipeline) recordState(ctx context.Context, stationID, season string, state domain.StationState) {
	p.logger.Debug("station state", "station", stationID, "season", season, "state", state)
	if p.recorder == nil {
		return
	}
	if err := p.recorder.RecordState(ctx, stationID, season, state); err != nil {
		p.logger.Warn("ledger state write failed", "station", stationID, "state", state, "error", err)
	}
}

func (p *Pipeline) setPhase(phase string) {
	p.mu.Lock()
	p.progress.Phase = phase
	p.mu.Unlock()
}

func (p *Pipeline) advance(issues int) {
	p.mu.Lock()
	p.progress.Done++
	p.progress.Issues += issues
	p.mu.Unlock()
}
