package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"LPPLWatch/internal/domain/models"
	drepo "LPPLWatch/internal/domain/repository"
)

// RunTrigger starts a batch asynchronously and returns a tracking ID.
type RunTrigger interface {
	Trigger(ctx context.Context, symbols []string) (string, error)
}

// ErrSymbolNotFound is returned when no run has produced data for a symbol.
var ErrSymbolNotFound = models.ErrSymbolNotFound

// SignalQuery answers read requests from the store when one is configured,
// falling back to the last in-process batch otherwise.
type SignalQuery struct {
	store  drepo.ConfidenceStore
	runner *BatchRunner
}

func NewSignalQuery(store drepo.ConfidenceStore, runner *BatchRunner) *SignalQuery {
	return &SignalQuery{store: store, runner: runner}
}

// Clusters returns up to limit clusters, most recent first. An empty label
// means both directions.
func (q *SignalQuery) Clusters(ctx context.Context, symbol string, label models.SignalLabel, limit int) ([]models.Cluster, error) {
	if q.store != nil {
		return q.store.LatestClusters(ctx, symbol, label, limit)
	}
	out, err := q.lastOutcome(symbol)
	if err != nil {
		return nil, err
	}
	var res []models.Cluster
	for _, c := range out.Clusters {
		if label != "" && c.Label != label {
			continue
		}
		res = append(res, c)
		if len(res) == limit {
			break
		}
	}
	return res, nil
}

// Confidence returns aggregated rows within [from, to]. Zero bounds are open.
func (q *SignalQuery) Confidence(ctx context.Context, symbol string, from, to time.Time) ([]models.AggregatedRow, error) {
	if q.store != nil {
		return q.store.Confidence(ctx, symbol, from, to)
	}
	out, err := q.lastOutcome(symbol)
	if err != nil {
		return nil, err
	}
	var res []models.AggregatedRow
	for _, r := range out.Rows {
		if (!from.IsZero() && r.Time.Before(from)) || (!to.IsZero() && r.Time.After(to)) {
			continue
		}
		res = append(res, r)
	}
	return res, nil
}

// LastBatch returns the last in-process batch, or nil.
func (q *SignalQuery) LastBatch() *models.BatchOutcome {
	return q.runner.Last()
}

// Outcome returns the last in-process outcome for symbol.
func (q *SignalQuery) Outcome(symbol string) (*models.InstrumentOutcome, error) {
	return q.lastOutcome(symbol)
}

func (q *SignalQuery) lastOutcome(symbol string) (*models.InstrumentOutcome, error) {
	batch := q.runner.Last()
	if batch == nil {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}
	for _, o := range batch.Instruments {
		if strings.EqualFold(o.Symbol, symbol) {
			return o, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
}
