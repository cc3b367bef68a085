// Package clustering groups calendar-contiguous signal days into clusters.
package clustering

import (
	"sort"

	"LPPLWatch/internal/domain/models"
	"LPPLWatch/pkg/util"
)

// MaxGapDays is the largest calendar gap between two qualifying days that
// still joins them into one cluster.
const MaxGapDays = 1

// Cluster returns the clusters for one confidence column in ascending order.
// Days with confidence <= 0 never belong to a cluster.
func Cluster(rows []models.AggregatedRow, conf models.ConfidenceSelector, label models.SignalLabel) []models.Cluster {
	hits := make([]models.AggregatedRow, 0, len(rows))
	for _, r := range rows {
		if conf(r) > 0 {
			hits = append(hits, r)
		}
	}
	if len(hits) == 0 {
		return nil
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Time.Before(hits[j].Time) })

	var out []models.Cluster
	cur := models.Cluster{Start: hits[0].Time, End: hits[0].Time, Label: label, PeakConfidence: conf(hits[0])}
	for _, r := range hits[1:] {
		if util.DaysBetween(cur.End, r.Time) > MaxGapDays {
			out = append(out, cur)
			cur = models.Cluster{Start: r.Time, End: r.Time, Label: label, PeakConfidence: conf(r)}
			continue
		}
		cur.End = r.Time
		if c := conf(r); c > cur.PeakConfidence {
			cur.PeakConfidence = c
		}
	}
	return append(out, cur)
}

// Merge concatenates the lists in argument order and sorts by start date,
// most recent first. Equal start dates keep argument order.
func Merge(lists ...[]models.Cluster) []models.Cluster {
	var out []models.Cluster
	for _, l := range lists {
		out = append(out, l...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.After(out[j].Start) })
	return out
}

// Detect clusters both columns, Top first, and merges them.
func Detect(rows []models.AggregatedRow) []models.Cluster {
	return Merge(
		Cluster(rows, models.PosConf, models.LabelTop),
		Cluster(rows, models.NegConf, models.LabelBottom),
	)
}

// Count tallies clusters per label.
func Count(clusters []models.Cluster) (top, bottom int) {
	for _, c := range clusters {
		switch c.Label {
		case models.LabelTop:
			top++
		case models.LabelBottom:
			bottom++
		}
	}
	return top, bottom
}
