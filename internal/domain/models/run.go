package models

import (
	"time"

	"github.com/google/uuid"
)

// Stage names one step of an instrument run.
type Stage string

const (
	StageHistory   Stage = "history"
	StageFit       Stage = "fit"
	StageNestedFit Stage = "nested_fit"
	StageAggregate Stage = "aggregate"
	StageCluster   Stage = "cluster"
	StageNarrative Stage = "narrative"
	StageEmit      Stage = "emit"
	StagePersist   Stage = "persist"
	StagePublish   Stage = "publish"
	StageRetention Stage = "retention"
)

// StageResult records the outcome of one stage.
type StageResult struct {
	Stage    Stage
	Err      error
	Duration time.Duration
}

func (r StageResult) OK() bool { return r.Err == nil }

// ArtifactKind is the suffix of an artifact filename ({symbol}_{date}_{kind}.{ext}).
type ArtifactKind string

const (
	ArtifactFit             ArtifactKind = "fit"
	ArtifactConfidence      ArtifactKind = "confidence"
	ArtifactConfidenceCSV   ArtifactKind = "confidence_csv"
	ArtifactCumulative      ArtifactKind = "cumulative"
	ArtifactCumulativeTable ArtifactKind = "cumulative_table"
	ArtifactReport          ArtifactKind = "report"
	ArtifactReportPDF       ArtifactKind = "report_pdf"
)

// Artifact is a file written during emission.
type Artifact struct {
	Kind ArtifactKind
	Path string
}

// ChartSpec is everything a renderer needs for one artifact. The renderer
// only receives data; layout is its own concern.
type ChartSpec struct {
	Kind      ArtifactKind
	Symbol    string
	RunDate   time.Time
	StartDate time.Time
	Series    []Observation
	Fit       *FitOutcome
	Rows      []AggregatedRow
	Clusters  []Cluster
	Markdown  string
}

// InstrumentOutcome aggregates every stage of one instrument run.
type InstrumentOutcome struct {
	RunID        uuid.UUID
	Symbol       string
	RunDate      time.Time
	Stages       []StageResult
	CriticalTime CriticalTime
	Rows         []AggregatedRow
	Clusters     []Cluster
	Narrative    *Narrative
	Artifacts    []Artifact
	Purged       []string
	// Err is the first fatal stage error, if any.
	Err error
}

// Failed reports whether a fatal stage aborted the run.
func (o *InstrumentOutcome) Failed() bool { return o.Err != nil }

// StageErrors returns every non-nil stage error in execution order.
func (o *InstrumentOutcome) StageErrors() []StageResult {
	var out []StageResult
	for _, s := range o.Stages {
		if s.Err != nil {
			out = append(out, s)
		}
	}
	return out
}

// BatchOutcome is the result of one pass over all tracked instruments.
type BatchOutcome struct {
	RunID       uuid.UUID
	RunDate     time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
	Instruments []*InstrumentOutcome
}

// Failed counts instruments whose run aborted.
func (b *BatchOutcome) Failed() int {
	n := 0
	for _, o := range b.Instruments {
		if o.Failed() {
			n++
		}
	}
	return n
}
