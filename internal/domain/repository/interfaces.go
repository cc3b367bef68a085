package repository

import (
	"context"
	"time"

	"LPPLWatch/internal/domain/models"
)

// ConfidenceStore persists aggregated confidence and clusters per run.
type ConfidenceStore interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, outcome *models.InstrumentOutcome) error
	Confidence(ctx context.Context, symbol string, from, to time.Time) ([]models.AggregatedRow, error)
	LatestClusters(ctx context.Context, symbol string, label models.SignalLabel, limit int) ([]models.Cluster, error)
	Health(ctx context.Context) error
	Close() error
}

// SignalPublisher emits cluster events downstream.
type SignalPublisher interface {
	PublishClusters(ctx context.Context, outcome *models.InstrumentOutcome) error
	Close() error
}

type Metrics interface {
	RecordRun(symbol string, failed bool)
	RecordStage(stage models.Stage, seconds float64, err error)
	RecordClusters(symbol string, label models.SignalLabel, n int)
	RecordPurged(symbol string, dates int)
	RecordError(kind string)
}
