package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"LPPLWatch/internal/domain/models"
	drepo "LPPLWatch/internal/domain/repository"
	domsvc "LPPLWatch/internal/domain/service"
	"LPPLWatch/internal/services/artifacts"
	"LPPLWatch/internal/services/clustering"
	"LPPLWatch/internal/services/confidence"
	"LPPLWatch/internal/services/narrative"
	"LPPLWatch/internal/services/retention"
	"LPPLWatch/pkg/config"
	"LPPLWatch/pkg/logger"
	"LPPLWatch/pkg/util"

	"github.com/google/uuid"
)

// RunOptions are the batch parameters taken from configuration.
type RunOptions struct {
	Tickers         []string
	StartDate       time.Time
	KeepHistoryDays int
	MaxSearches     int
	Nested          models.NestedParams
}

func NewRunOptions(cfg *config.Config) RunOptions {
	return RunOptions{
		Tickers:         cfg.Run.Tickers,
		StartDate:       cfg.StartDate(),
		KeepHistoryDays: cfg.Run.KeepHistoryDays,
		MaxSearches:     cfg.Fit.MaxSearches,
		Nested: models.NestedParams{
			WindowSize:         cfg.Fit.WindowSize,
			SmallestWindowSize: cfg.Fit.SmallestWindowSize,
			OuterIncrement:     cfg.Fit.OuterIncrement,
			InnerIncrement:     cfg.Fit.InnerIncrement,
			MaxSearches:        cfg.Fit.MaxSearches,
			Workers:            cfg.Fit.Workers,
		},
	}
}

// RunOrchestrator runs the signal pipeline per instrument, strictly one
// instrument at a time. A failure in one instrument never stops the batch,
// and retention always runs last for every instrument.
type RunOrchestrator struct {
	prices     domsvc.PriceHistoryProvider
	fitter     domsvc.CurveFitter
	aggregator *confidence.Aggregator
	renderer   domsvc.Renderer
	retention  *retention.Manager
	layout     artifacts.Layout
	store      drepo.ConfidenceStore
	publisher  drepo.SignalPublisher
	metrics    drepo.Metrics
	logger     *logger.Logger
	opts       RunOptions
	now        func() time.Time
}

// NewRunOrchestrator wires the pipeline. renderer, store, and publisher may be
// nil, in which case charts, persistence, and publishing are skipped.
func NewRunOrchestrator(
	prices domsvc.PriceHistoryProvider,
	fitter domsvc.CurveFitter,
	aggregator *confidence.Aggregator,
	renderer domsvc.Renderer,
	retention *retention.Manager,
	layout artifacts.Layout,
	store drepo.ConfidenceStore,
	publisher drepo.SignalPublisher,
	metrics drepo.Metrics,
	l *logger.Logger,
	opts RunOptions,
) *RunOrchestrator {
	return &RunOrchestrator{
		prices:     prices,
		fitter:     fitter,
		aggregator: aggregator,
		renderer:   renderer,
		retention:  retention,
		layout:     layout,
		store:      store,
		publisher:  publisher,
		metrics:    metrics,
		logger:     l,
		opts:       opts,
		now:        time.Now,
	}
}

// Tickers returns the configured instruments.
func (o *RunOrchestrator) Tickers() []string { return o.opts.Tickers }

// RunBatch processes symbols (or the configured tickers when empty) in order.
func (o *RunOrchestrator) RunBatch(ctx context.Context, symbols []string) *models.BatchOutcome {
	return o.RunBatchWithID(ctx, uuid.New(), symbols)
}

// RunBatchWithID is RunBatch with a caller-assigned run ID.
func (o *RunOrchestrator) RunBatchWithID(ctx context.Context, runID uuid.UUID, symbols []string) *models.BatchOutcome {
	if len(symbols) == 0 {
		symbols = o.opts.Tickers
	}
	batch := &models.BatchOutcome{
		RunID:     runID,
		RunDate:   util.Day(o.now()),
		StartedAt: o.now(),
	}
	o.logger.Info("batch started",
		logger.String("run_id", batch.RunID.String()),
		logger.String("run_date", util.FormatDay(batch.RunDate)),
		logger.Strings("symbols", symbols))

	for _, symbol := range symbols {
		if ctx.Err() != nil {
			o.logger.Warn("batch cancelled", logger.String("next_symbol", symbol), logger.Error(ctx.Err()))
			break
		}
		batch.Instruments = append(batch.Instruments, o.RunInstrument(ctx, batch.RunID, symbol, batch.RunDate))
	}

	batch.FinishedAt = o.now()
	o.logger.Info("batch finished",
		logger.String("run_id", batch.RunID.String()),
		logger.Int("instruments", len(batch.Instruments)),
		logger.Int("failed", batch.Failed()),
		logger.Duration("elapsed_ms", batch.FinishedAt.Sub(batch.StartedAt)))
	return batch
}

// instrumentRun carries intermediate state between stages.
type instrumentRun struct {
	out    *models.InstrumentOutcome
	log    *logger.Logger
	series *models.Series
	fit    models.FitOutcome
	fits   []models.RawFit
}

// RunInstrument runs every stage for one symbol. It never panics and always
// returns a non-nil outcome.
func (o *RunOrchestrator) RunInstrument(ctx context.Context, runID uuid.UUID, symbol string, runDate time.Time) (out *models.InstrumentOutcome) {
	run := &instrumentRun{
		out: &models.InstrumentOutcome{RunID: runID, Symbol: symbol, RunDate: runDate},
		log: o.logger.With(logger.String("symbol", symbol), logger.String("run_id", runID.String())),
	}

	defer func() {
		out = run.out
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			run.log.Error("instrument run panicked", logger.Error(err), logger.String("stack", string(debug.Stack())))
			o.metrics.RecordError("panic")
			if run.out.Err == nil {
				run.out.Err = err
			}
		}
		o.stage(ctx, run, models.StageRetention, o.cleanup)
		o.metrics.RecordRun(symbol, run.out.Failed())
		if run.out.Failed() {
			run.log.Error("instrument run failed", logger.Error(run.out.Err))
		} else {
			run.log.Info("instrument run finished",
				logger.Int("clusters", len(run.out.Clusters)),
				logger.Int("artifacts", len(run.out.Artifacts)))
		}
	}()

	stages := []struct {
		name models.Stage
		fn   func(context.Context, *instrumentRun) error
	}{
		{models.StageHistory, o.loadHistory},
		{models.StageFit, o.fitSeries},
		{models.StageNestedFit, o.nestedFits},
		{models.StageAggregate, o.aggregate},
		{models.StageCluster, o.cluster},
		{models.StageNarrative, o.synthesize},
		{models.StageEmit, o.emit},
		{models.StagePersist, o.persist},
		{models.StagePublish, o.publish},
	}
	for _, s := range stages {
		if err := o.stage(ctx, run, s.name, s.fn); models.IsFatal(err) {
			break
		}
	}
	return run.out
}

// stage times fn, records its result, and logs failures. Only fatal errors
// set the outcome error.
func (o *RunOrchestrator) stage(ctx context.Context, run *instrumentRun, name models.Stage, fn func(context.Context, *instrumentRun) error) error {
	start := time.Now()
	err := fn(ctx, run)
	elapsed := time.Since(start)

	run.out.Stages = append(run.out.Stages, models.StageResult{Stage: name, Err: err, Duration: elapsed})
	o.metrics.RecordStage(name, elapsed.Seconds(), err)
	if err == nil {
		run.log.Debug("stage done", logger.String("stage", string(name)), logger.Duration("elapsed_ms", elapsed))
		return nil
	}

	kind := models.ErrorKind(err)
	o.metrics.RecordError(kind)
	if models.IsFatal(err) {
		if run.out.Err == nil {
			run.out.Err = fmt.Errorf("%s: %w", name, err)
		}
		run.log.Error("stage failed", logger.String("stage", string(name)), logger.String("kind", kind), logger.Error(err))
	} else {
		run.log.Warn("stage degraded", logger.String("stage", string(name)), logger.String("kind", kind), logger.Error(err))
	}
	return err
}

func (o *RunOrchestrator) loadHistory(ctx context.Context, run *instrumentRun) error {
	series, err := o.prices.History(ctx, run.out.Symbol, o.opts.StartDate, run.out.RunDate)
	if err != nil {
		if errors.Is(err, models.ErrDataUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", models.ErrDataUnavailable, err)
	}
	if series == nil || series.Len() == 0 {
		return fmt.Errorf("%w: empty history", models.ErrDataUnavailable)
	}
	run.series = series
	return nil
}

func (o *RunOrchestrator) fitSeries(ctx context.Context, run *instrumentRun) error {
	fit, err := o.fitter.Fit(ctx, run.series, o.opts.MaxSearches)
	if err != nil {
		return engineError(err)
	}
	run.fit = fit
	run.out.CriticalTime = fit.CriticalTime
	if !fit.CriticalTime.Converged {
		return models.ErrFitNonConvergence
	}
	return nil
}

func (o *RunOrchestrator) nestedFits(ctx context.Context, run *instrumentRun) error {
	fits, err := o.fitter.NestedFits(ctx, run.series, o.opts.Nested)
	if err != nil {
		return engineError(err)
	}
	run.fits = fits
	return nil
}

func (o *RunOrchestrator) aggregate(_ context.Context, run *instrumentRun) error {
	rows, err := o.aggregator.Aggregate(run.series, run.fits)
	if err != nil {
		return err
	}
	run.out.Rows = rows
	return nil
}

func (o *RunOrchestrator) cluster(_ context.Context, run *instrumentRun) error {
	run.out.Clusters = clustering.Detect(run.out.Rows)
	top, bottom := clustering.Count(run.out.Clusters)
	o.metrics.RecordClusters(run.out.Symbol, models.LabelTop, top)
	o.metrics.RecordClusters(run.out.Symbol, models.LabelBottom, bottom)
	return nil
}

func (o *RunOrchestrator) synthesize(_ context.Context, run *instrumentRun) error {
	n := narrative.Synthesize(run.out.Clusters, run.out.CriticalTime, run.out.RunDate)
	run.out.Narrative = &n
	return nil
}

func (o *RunOrchestrator) persist(ctx context.Context, run *instrumentRun) error {
	if o.store == nil {
		return nil
	}
	if err := o.store.SaveRun(ctx, run.out); err != nil {
		return fmt.Errorf("%w: save run: %v", models.ErrPersistence, err)
	}
	return nil
}

func (o *RunOrchestrator) publish(ctx context.Context, run *instrumentRun) error {
	if o.publisher == nil || len(run.out.Clusters) == 0 {
		return nil
	}
	if err := o.publisher.PublishClusters(ctx, run.out); err != nil {
		return fmt.Errorf("%w: publish clusters: %v", models.ErrPersistence, err)
	}
	return nil
}

func (o *RunOrchestrator) cleanup(_ context.Context, run *instrumentRun) error {
	res, err := o.retention.Cleanup(o.layout.InstrumentDir(run.out.Symbol), o.opts.KeepHistoryDays)
	run.out.Purged = res.Purged
	if len(res.Purged) > 0 {
		o.metrics.RecordPurged(run.out.Symbol, len(res.Purged))
	}
	if err != nil && !errors.Is(err, models.ErrRetentionIO) {
		return fmt.Errorf("%w: %v", models.ErrRetentionIO, err)
	}
	return err
}

// emit writes every artifact for the run. Individual failures are collected
// so one broken chart does not prevent the others.
func (o *RunOrchestrator) emit(ctx context.Context, run *instrumentRun) error {
	out := run.out
	if err := o.layout.Ensure(out.Symbol); err != nil {
		return fmt.Errorf("%w: %v", models.ErrRender, err)
	}

	var errs []error
	images := make(map[models.ArtifactKind]string)
	base := models.ChartSpec{
		Symbol:    out.Symbol,
		RunDate:   out.RunDate,
		StartDate: o.opts.StartDate,
		Rows:      out.Rows,
		Clusters:  out.Clusters,
	}

	var charts []models.ArtifactKind
	if run.fit.CriticalTime.Converged {
		charts = append(charts, models.ArtifactFit)
	}
	charts = append(charts, models.ArtifactConfidence, models.ArtifactCumulative)
	if len(out.Clusters) > 0 {
		charts = append(charts, models.ArtifactCumulativeTable)
	}
	if o.renderer != nil {
		for _, kind := range charts {
			spec := base
			spec.Kind = kind
			if kind == models.ArtifactFit {
				spec.Series = run.series.Points()
				spec.Fit = &run.fit
			}
			path := o.layout.Path(out.Symbol, out.RunDate, kind)
			if err := o.renderTo(ctx, spec, path); err != nil {
				errs = append(errs, err)
				continue
			}
			images[kind] = path
			out.Artifacts = append(out.Artifacts, models.Artifact{Kind: kind, Path: path})
		}
	}

	csvPath := o.layout.Path(out.Symbol, out.RunDate, models.ArtifactConfidenceCSV)
	if err := writeFile(csvPath, func(w io.Writer) error { return artifacts.WriteConfidenceCSV(w, out.Rows) }); err != nil {
		errs = append(errs, fmt.Errorf("%w: confidence csv: %v", models.ErrRender, err))
	} else {
		out.Artifacts = append(out.Artifacts, models.Artifact{Kind: models.ArtifactConfidenceCSV, Path: csvPath})
	}

	var report strings.Builder
	data := artifacts.ReportData{
		Symbol:    out.Symbol,
		RunDate:   out.RunDate,
		StartDate: o.opts.StartDate,
		Narrative: *out.Narrative,
		Clusters:  out.Clusters,
		Images:    images,
	}
	if err := artifacts.WriteReport(&report, data); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", models.ErrRender, err))
		return errors.Join(errs...)
	}
	mdPath := o.layout.Path(out.Symbol, out.RunDate, models.ArtifactReport)
	if err := writeFile(mdPath, func(w io.Writer) error {
		_, err := io.WriteString(w, report.String())
		return err
	}); err != nil {
		errs = append(errs, fmt.Errorf("%w: report: %v", models.ErrRender, err))
	} else {
		out.Artifacts = append(out.Artifacts, models.Artifact{Kind: models.ArtifactReport, Path: mdPath})
	}

	if o.renderer != nil {
		spec := base
		spec.Kind = models.ArtifactReportPDF
		spec.Markdown = report.String()
		pdfPath := o.layout.Path(out.Symbol, out.RunDate, models.ArtifactReportPDF)
		if err := o.renderTo(ctx, spec, pdfPath); err != nil {
			errs = append(errs, err)
		} else {
			out.Artifacts = append(out.Artifacts, models.Artifact{Kind: models.ArtifactReportPDF, Path: pdfPath})
		}
	}
	return errors.Join(errs...)
}

// renderTo acquires a canvas for spec and releases it on every path.
func (o *RunOrchestrator) renderTo(ctx context.Context, spec models.ChartSpec, path string) (err error) {
	canvas, err := o.renderer.Acquire(ctx, spec)
	if err != nil {
		return ensureKind(err, models.ErrRender)
	}
	defer func() {
		if rerr := canvas.Release(); rerr != nil {
			o.logger.Warn("canvas release failed", logger.String("kind", string(spec.Kind)), logger.Error(rerr))
			if err == nil {
				err = fmt.Errorf("%w: release %s: %v", models.ErrRender, spec.Kind, rerr)
			}
		}
	}()

	if err := writeFile(path, func(w io.Writer) error { return canvas.Render(ctx, w) }); err != nil {
		return ensureKind(err, models.ErrRender)
	}
	return nil
}

// writeFile writes through a temp file in the target directory and renames
// it into place, so a failed write never leaves a dated artifact behind.
func writeFile(path string, fill func(io.Writer) error) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := fill(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func engineError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return ensureKind(err, models.ErrFitEngine)
}

func ensureKind(err, kind error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %v", kind, err)
}
