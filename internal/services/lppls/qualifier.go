package lppls

import (
	"math"

	"LPPLWatch/internal/domain/models"
	domsvc "LPPLWatch/internal/domain/service"
	"LPPLWatch/pkg/config"
)

// FilterQualifier applies the standard LPPLS filter bounds to a window fit.
// A passing fit with b < 0 is a top (positive bubble), b > 0 a bottom.
type FilterQualifier struct {
	cfg config.FilterConfig
}

var _ domsvc.Qualifier = (*FilterQualifier)(nil)

func NewFilterQualifier(cfg config.FilterConfig) *FilterQualifier {
	return &FilterQualifier{cfg: cfg}
}

func (q *FilterQualifier) Classify(f models.RawFit) models.Qualification {
	if !f.Valid || f.TC == 0 || f.B == 0 {
		return models.QualNone
	}

	t1 := ordinal(f.WindowStart)
	t2 := ordinal(f.WindowEnd)
	delta := q.cfg.TcWindowPercent * math.Abs(t2-t1)

	c := f.C
	if c == 0 {
		c = math.Hypot(f.C1, f.C2)
	}

	ok := f.TC > t2-delta && f.TC < t2+delta &&
		f.M > q.cfg.MMin && f.M < q.cfg.MMax &&
		f.W > q.cfg.WMin && f.W < q.cfg.WMax &&
		Oscillations(f.W, f.TC, t1, t2, f.B, c) > q.cfg.OMin &&
		Damping(f.M, f.W, f.B, c) > q.cfg.DMin
	if !ok {
		return models.QualNone
	}
	if f.B < 0 {
		return models.QualTop
	}
	return models.QualBottom
}

// Oscillations counts log-periodic cycles between t1 and t2. It is +Inf when
// the power-law or oscillation amplitude is zero.
func Oscillations(w, tc, t1, t2, b, c float64) float64 {
	if b == 0 || c == 0 {
		return math.Inf(1)
	}
	return w / (2 * math.Pi) * math.Log(math.Abs((tc-t1)/(tc-t2)))
}

// Damping is m|b| / (w|c|).
func Damping(m, w, b, c float64) float64 {
	if w == 0 || c == 0 {
		return math.Inf(1)
	}
	return m * math.Abs(b) / (w * math.Abs(c))
}
