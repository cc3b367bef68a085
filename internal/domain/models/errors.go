package models

import "errors"

// Error kinds surfaced by an instrument run. Stages wrap one of these with %w.
var (
	ErrDataUnavailable   = errors.New("price history unavailable")
	ErrFitNonConvergence = errors.New("critical time did not converge")
	ErrFitEngine         = errors.New("fit engine failure")
	ErrAggregation       = errors.New("aggregation failed")
	ErrRender            = errors.New("artifact rendering failed")
	ErrRetentionIO       = errors.New("retention delete failed")
	ErrPersistence       = errors.New("persistence failed")
)

// ErrSymbolNotFound is returned by read paths when no run has produced data
// for a symbol.
var ErrSymbolNotFound = errors.New("symbol not found")

// IsFatal reports whether err aborts the remaining stages of an instrument run.
// Non-convergence, render, retention, and persistence errors are logged and the
// run continues.
func IsFatal(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrFitNonConvergence),
		errors.Is(err, ErrRender),
		errors.Is(err, ErrRetentionIO),
		errors.Is(err, ErrPersistence):
		return false
	default:
		return true
	}
}

// ErrorKind names the sentinel err wraps, for logs and metrics labels.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDataUnavailable):
		return "data_unavailable"
	case errors.Is(err, ErrFitNonConvergence):
		return "fit_non_convergence"
	case errors.Is(err, ErrFitEngine):
		return "fit_engine"
	case errors.Is(err, ErrAggregation):
		return "aggregation"
	case errors.Is(err, ErrRender):
		return "render"
	case errors.Is(err, ErrRetentionIO):
		return "retention_io"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	default:
		return "internal"
	}
}
