package narrative

import (
	"testing"
	"time"

	"LPPLWatch/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func cluster(start string, label models.SignalLabel, peak float64) models.Cluster {
	return models.Cluster{Start: day(start), End: day(start), Label: label, PeakConfidence: peak}
}

func TestTimingRemark(t *testing.T) {
	today := day("2024-06-01")

	tests := []struct {
		name  string
		ct    models.CriticalTime
		kind  models.RemarkKind
		count int
	}{
		{"not converged", models.CriticalTime{}, models.RemarkNoConvergence, 0},
		{"future", models.CriticalTime{Date: day("2024-06-15"), Converged: true}, models.RemarkDaysRemaining, 14},
		{"past", models.CriticalTime{Date: day("2024-05-01"), Converged: true}, models.RemarkCriticalPassed, 0},
		{"today", models.CriticalTime{Date: day("2024-06-01"), Converged: true}, models.RemarkCriticalPassed, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Synthesize(nil, tt.ct, today)
			assert.Equal(t, tt.kind, n.Timing.Kind)
			assert.Equal(t, tt.count, n.Timing.Count)
			assert.NotEmpty(t, n.Timing.Text)
		})
	}
}

func TestTimingIgnoresTimeOfDay(t *testing.T) {
	today := time.Date(2024, 6, 1, 23, 30, 0, 0, time.UTC)
	n := Synthesize(nil, models.CriticalTime{Date: day("2024-06-15"), Converged: true}, today)
	assert.Equal(t, 14, n.Timing.Count)
	assert.Contains(t, n.Timing.Text, "14 days")
}

func TestConfidenceRemark(t *testing.T) {
	low := []models.Cluster{
		cluster("2024-05-01", models.LabelTop, 0.3),
		cluster("2024-04-01", models.LabelBottom, 0.05),
	}
	n := Synthesize(low, models.CriticalTime{}, day("2024-06-01"))
	assert.Equal(t, models.RemarkLowConfidence, n.Confidence.Kind)

	high := append(low, cluster("2024-03-01", models.LabelTop, 0.31), cluster("2024-02-01", models.LabelTop, 0.9))
	n = Synthesize(high, models.CriticalTime{}, day("2024-06-01"))
	assert.Equal(t, models.RemarkHighConfidence, n.Confidence.Kind)
	assert.Equal(t, 2, n.Confidence.Count)

	n = Synthesize(nil, models.CriticalTime{}, day("2024-06-01"))
	assert.Equal(t, models.RemarkLowConfidence, n.Confidence.Kind)
}

func TestRecencyRemark(t *testing.T) {
	tests := []struct {
		name     string
		clusters []models.Cluster
		kind     models.RemarkKind
	}{
		{"none", nil, models.RemarkNoRecentSignals},
		{"top top bottom", []models.Cluster{
			cluster("2024-06-05", models.LabelTop, 0.1),
			cluster("2024-06-01", models.LabelTop, 0.1),
			cluster("2024-05-20", models.LabelBottom, 0.1),
		}, models.RemarkMixed},
		{"only first three count", []models.Cluster{
			cluster("2024-06-05", models.LabelTop, 0.1),
			cluster("2024-06-01", models.LabelTop, 0.1),
			cluster("2024-05-25", models.LabelTop, 0.1),
			cluster("2024-05-20", models.LabelBottom, 0.1),
		}, models.RemarkPersistentTop},
		{"all bottom", []models.Cluster{
			cluster("2024-06-05", models.LabelBottom, 0.1),
			cluster("2024-06-01", models.LabelBottom, 0.1),
		}, models.RemarkPersistentBot},
		{"single top", []models.Cluster{cluster("2024-06-05", models.LabelTop, 0.1)}, models.RemarkPersistentTop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Synthesize(tt.clusters, models.CriticalTime{}, day("2024-06-10"))
			assert.Equal(t, tt.kind, n.Recency.Kind)
		})
	}
}

func TestSummaryCounts(t *testing.T) {
	clusters := []models.Cluster{
		cluster("2024-06-05", models.LabelBottom, 0.4),
		cluster("2024-06-01", models.LabelTop, 0.1),
		cluster("2024-05-20", models.LabelTop, 0.2),
	}
	n := Synthesize(clusters, models.CriticalTime{}, day("2024-06-10"))
	assert.Equal(t, 2, n.NumTop)
	assert.Equal(t, 1, n.NumBottom)
	assert.Equal(t, 3, n.Total)
	require.NotNil(t, n.Latest)
	assert.Equal(t, models.LabelBottom, n.Latest.Label)
	assert.Len(t, n.Remarks(), 3)
}
