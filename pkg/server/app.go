package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"LPPLWatch/internal/domain/models"
	"LPPLWatch/internal/services/artifacts"
	"LPPLWatch/internal/services/retention"
	"LPPLWatch/internal/usecase"
	"LPPLWatch/pkg/config"
	xhttp "LPPLWatch/pkg/http"
	applogger "LPPLWatch/pkg/logger"
	"LPPLWatch/pkg/queue"
)

// App encapsulates the application lifecycle for every CLI mode.
type App struct {
	cfg       *config.Config
	logger    *applogger.Logger
	runner    *usecase.BatchRunner
	retention *retention.Manager
	layout    artifacts.Layout
	handler   xhttp.Handler
	queue     *queue.RedisQueue
}

// New creates a new App. q may be nil when the run queue is disabled.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	runner *usecase.BatchRunner,
	ret *retention.Manager,
	layout artifacts.Layout,
	handler xhttp.Handler,
	q *queue.RedisQueue,
) *App {
	return &App{
		cfg:       cfg,
		logger:    l,
		runner:    runner,
		retention: ret,
		layout:    layout,
		handler:   handler,
		queue:     q,
	}
}

// Layout exposes the artifact archive layout.
func (a *App) Layout() artifacts.Layout { return a.layout }

// RunOnce executes one batch over symbols, or the configured tickers.
func (a *App) RunOnce(ctx context.Context, symbols []string) (*models.BatchOutcome, error) {
	return a.runner.Run(ctx, symbols)
}

// Cleanup applies retention to each instrument archive without running the
// pipeline. Failures are collected; every symbol is attempted.
func (a *App) Cleanup(symbols []string) (map[string]retention.Result, error) {
	if len(symbols) == 0 {
		symbols = a.cfg.Run.Tickers
	}
	results := make(map[string]retention.Result, len(symbols))
	var errs []error
	for _, s := range symbols {
		res, err := a.retention.Cleanup(a.layout.InstrumentDir(s), a.cfg.Run.KeepHistoryDays)
		results[s] = res
		if err != nil {
			a.logger.Warn("retention failed", applogger.String("symbol", s), applogger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", s, err))
		}
	}
	return results, errors.Join(errs...)
}

// Serve runs the HTTP API, the optional batch scheduler and the optional
// queue worker until ctx is cancelled, then shuts them down.
func (a *App) Serve(ctx context.Context) error {
	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	srv := xhttp.NewServer(a.handler, a.logger,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	if a.queue != nil {
		if err := a.queue.Start(ctx); err != nil {
			a.stopServer(srv)
			return fmt.Errorf("run queue: %w", err)
		}
		a.logger.Info("run queue worker started")
	}

	var wg sync.WaitGroup
	if a.cfg.Run.Interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.runner.Schedule(ctx, a.cfg.Run.Interval)
		}()
		a.logger.Info("batch scheduler started", applogger.String("interval", a.cfg.Run.Interval.String()))
	}

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	a.stopServer(srv)

	if a.queue != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		if err := a.queue.Stop(stopCtx); err != nil {
			a.logger.Warn("run queue stop error", applogger.Error(err))
		}
		cancel()
	}
	wg.Wait()
	a.runner.Wait()
	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) stopServer(srv *xhttp.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}
}
