package models

import (
	"time"

	"LPPLWatch/pkg/util"
)

// AggregatedRow carries per-day confidence for one window-end day.
type AggregatedRow struct {
	Time    time.Time
	Price   float64
	PosConf float64
	NegConf float64
}

// Ordinal returns the Gregorian day ordinal of the row.
func (r AggregatedRow) Ordinal() int64 { return util.ToOrdinal(r.Time) }

// SignalLabel is the direction of a cluster.
type SignalLabel string

const (
	LabelTop    SignalLabel = "Top"
	LabelBottom SignalLabel = "Bottom"
)

// ConfidenceSelector picks one confidence column from a row.
type ConfidenceSelector func(AggregatedRow) float64

func PosConf(r AggregatedRow) float64 { return r.PosConf }
func NegConf(r AggregatedRow) float64 { return r.NegConf }

// Cluster is a maximal run of calendar-contiguous days with nonzero confidence.
type Cluster struct {
	Start          time.Time
	End            time.Time
	Label          SignalLabel
	PeakConfidence float64
}

// DateRange renders "YYYY-MM-DD" for single-day clusters and
// "YYYY-MM-DD to YYYY-MM-DD" otherwise.
func (c Cluster) DateRange() string {
	start := util.FormatDay(c.Start)
	if c.Start.Equal(c.End) {
		return start
	}
	return start + " to " + util.FormatDay(c.End)
}

// Days is the inclusive length of the cluster.
func (c Cluster) Days() int {
	return util.DaysBetween(c.Start, c.End) + 1
}
