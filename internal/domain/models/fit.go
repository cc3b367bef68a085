package models

import "time"

// Qualification is the directional class of a single window fit.
type Qualification int

const (
	// QualUnclassified means the engine did not classify the fit and the
	// configured qualifier must decide.
	QualUnclassified Qualification = iota
	QualNone
	QualTop
	QualBottom
)

func (q Qualification) String() string {
	switch q {
	case QualNone:
		return "none"
	case QualTop:
		return "top"
	case QualBottom:
		return "bottom"
	default:
		return "unclassified"
	}
}

// RawFit is the outcome of fitting one (window end, window length) pair.
// TC is a fractional Gregorian ordinal as produced by the engine.
type RawFit struct {
	WindowStart time.Time
	WindowEnd   time.Time
	TC          float64
	M           float64
	W           float64
	A           float64
	B           float64
	C           float64
	C1          float64
	C2          float64
	O           float64 // oscillation count
	D           float64 // damping
	Valid       bool
	Class       Qualification
}

// WindowDays is the calendar length of the fitted window.
func (f RawFit) WindowDays() int {
	return int(f.WindowEnd.Sub(f.WindowStart).Hours() / 24)
}

// CriticalTime is the tc estimate of the whole-series fit. Date is only
// meaningful when Converged is true.
type CriticalTime struct {
	Date      time.Time
	Converged bool
}

// FitOutcome is the whole-series fit.
type FitOutcome struct {
	CriticalTime CriticalTime
	M            float64
	W            float64
	A            float64
	B            float64
	C            float64
	C1           float64
	C2           float64
	O            float64
	D            float64
}

// NestedParams drives the multi-scale window search.
type NestedParams struct {
	WindowSize         int
	SmallestWindowSize int
	OuterIncrement     int
	InnerIncrement     int
	MaxSearches        int
	Workers            int
}
