package models

// RemarkKind identifies which narrative rule branch fired.
type RemarkKind string

const (
	RemarkNoConvergence   RemarkKind = "no_convergence"
	RemarkCriticalPassed  RemarkKind = "critical_passed"
	RemarkDaysRemaining   RemarkKind = "days_remaining"
	RemarkHighConfidence  RemarkKind = "high_confidence"
	RemarkLowConfidence   RemarkKind = "low_confidence"
	RemarkPersistentTop   RemarkKind = "persistent_top"
	RemarkPersistentBot   RemarkKind = "persistent_bottom"
	RemarkMixed           RemarkKind = "mixed"
	RemarkNoRecentSignals RemarkKind = "no_recent_signals"
)

// Remark is one synthesized observation.
type Remark struct {
	Kind RemarkKind
	Text string
	// Count is the day count for RemarkDaysRemaining and the cluster count
	// for RemarkHighConfidence; zero otherwise.
	Count int
}

// Narrative is the analyst commentary for one instrument run.
type Narrative struct {
	CriticalTime CriticalTime
	Timing       Remark
	Confidence   Remark
	Recency      Remark
	NumTop       int
	NumBottom    int
	Total        int
	Latest       *Cluster
}

// Remarks returns the three observations in report order.
func (n Narrative) Remarks() []Remark {
	return []Remark{n.Timing, n.Confidence, n.Recency}
}
