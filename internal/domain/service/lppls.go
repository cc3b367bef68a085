package service

import (
	"context"
	"io"
	"time"

	"LPPLWatch/internal/domain/models"
)

// PriceHistoryProvider returns daily log-price history for a symbol.
type PriceHistoryProvider interface {
	History(ctx context.Context, symbol string, from, to time.Time) (*models.Series, error)
}

// CurveFitter is the external LPPLS fit engine.
type CurveFitter interface {
	// Fit fits the whole series. A non-converged tc is reported through
	// FitOutcome.CriticalTime, not as an error.
	Fit(ctx context.Context, series *models.Series, maxSearches int) (models.FitOutcome, error)
	// NestedFits runs the multi-scale window search and blocks until every
	// window has been fitted.
	NestedFits(ctx context.Context, series *models.Series, params models.NestedParams) ([]models.RawFit, error)
}

// Qualifier classifies a window fit as top, bottom, or neither.
type Qualifier interface {
	Classify(fit models.RawFit) models.Qualification
}

// Renderer hands out a canvas per artifact. Every acquired canvas must be
// released, whether or not Render succeeded.
type Renderer interface {
	Acquire(ctx context.Context, spec models.ChartSpec) (Canvas, error)
}

// Canvas is a scoped drawing handle for one artifact.
type Canvas interface {
	Render(ctx context.Context, dst io.Writer) error
	Release() error
}
