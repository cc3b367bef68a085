// Package narrative turns clusters and the critical-time estimate into
// analyst observations.
package narrative

import (
	"fmt"
	"time"

	"LPPLWatch/internal/domain/models"
	"LPPLWatch/internal/services/clustering"
	"LPPLWatch/pkg/util"
)

const (
	// HighConfidenceThreshold is the peak confidence a cluster must exceed to
	// count as cross-scale agreement.
	HighConfidenceThreshold = 0.3
	// RecentWindow is how many of the most recent clusters the recency
	// observation inspects.
	RecentWindow = 3
)

// Synthesize evaluates the timing, confidence, and recency rules. clusters
// must already be ordered most recent first.
func Synthesize(clusters []models.Cluster, ct models.CriticalTime, today time.Time) models.Narrative {
	top, bottom := clustering.Count(clusters)
	n := models.Narrative{
		CriticalTime: ct,
		Timing:       timing(ct, today),
		Confidence:   confidence(clusters),
		Recency:      recency(clusters),
		NumTop:       top,
		NumBottom:    bottom,
		Total:        len(clusters),
	}
	if len(clusters) > 0 {
		latest := clusters[0]
		n.Latest = &latest
	}
	return n
}

func timing(ct models.CriticalTime, today time.Time) models.Remark {
	if !ct.Converged {
		return models.Remark{
			Kind: models.RemarkNoConvergence,
			Text: "No valid critical time could be converged upon, possibly due to a lack of distinct super-exponential behavior in the current window.",
		}
	}

	tc := util.FormatDay(ct.Date)
	days := util.DaysBetween(today, ct.Date)
	if days <= 0 {
		return models.Remark{
			Kind: models.RemarkCriticalPassed,
			Text: fmt.Sprintf("The projected critical time (%s) has passed. The market may have entered a new regime or released the bubble pressure sideways.", tc),
		}
	}
	return models.Remark{
		Kind:  models.RemarkDaysRemaining,
		Count: days,
		Text:  fmt.Sprintf("We are currently %d days away from the projected critical point (%s). Oscillations typically accelerate as this gap closes.", days, tc),
	}
}

func confidence(clusters []models.Cluster) models.Remark {
	high := 0
	for _, c := range clusters {
		if c.PeakConfidence > HighConfidenceThreshold {
			high++
		}
	}
	if high > 0 {
		return models.Remark{
			Kind:  models.RemarkHighConfidence,
			Count: high,
			Text:  fmt.Sprintf("%d signal clusters peak above %.0f%% confidence. Agreement across time scales reinforces the trend identification.", high, HighConfidenceThreshold*100),
		}
	}
	return models.Remark{
		Kind: models.RemarkLowConfidence,
		Text: fmt.Sprintf("Signals stay below %.0f%% confidence. Super-exponential traces are present but not uniform across time scales, which may be noise.", HighConfidenceThreshold*100),
	}
}

func recency(clusters []models.Cluster) models.Remark {
	if len(clusters) == 0 {
		return models.Remark{
			Kind: models.RemarkNoRecentSignals,
			Text: "No recent signals. Price is following a linear or exponential walk without the accelerating oscillations characteristic of a bubble.",
		}
	}

	recent := clusters
	if len(recent) > RecentWindow {
		recent = recent[:RecentWindow]
	}
	allTop, allBottom := true, true
	for _, c := range recent {
		allTop = allTop && c.Label == models.LabelTop
		allBottom = allBottom && c.Label == models.LabelBottom
	}

	switch {
	case allTop:
		return models.Remark{
			Kind: models.RemarkPersistentTop,
			Text: fmt.Sprintf("The last %d signal clusters were all Top signals. The market is persistently testing upper limits.", len(recent)),
		}
	case allBottom:
		return models.Remark{
			Kind: models.RemarkPersistentBot,
			Text: fmt.Sprintf("The last %d signal clusters were all Bottom signals, suggesting repeated capitulation or support testing.", len(recent)),
		}
	default:
		return models.Remark{
			Kind: models.RemarkMixed,
			Text: "Recent signals are mixed between Top and Bottom, indicating high uncertainty or a transition phase.",
		}
	}
}
