// Package lppls adapts the external LPPLS fit engine and qualifies its
// window fits.
package lppls

import (
	"context"
	"fmt"
	"time"

	"LPPLWatch/internal/domain/models"
	domsvc "LPPLWatch/internal/domain/service"
	"LPPLWatch/pkg/config"
	"LPPLWatch/pkg/util"
)

// HTTPCurveFitter calls the fit engine over HTTP. Times travel as Gregorian
// ordinals, prices as log-prices.
type HTTPCurveFitter struct {
	base *HTTPServiceBase
}

var _ domsvc.CurveFitter = (*HTTPCurveFitter)(nil)

func NewHTTPCurveFitter(cfg *config.Config) *HTTPCurveFitter {
	return &HTTPCurveFitter{base: NewHTTPServiceBase(cfg.Fit.ServiceURL, cfg.Fit.Timeout, cfg.Fit.Attempts)}
}

type fitRequest struct {
	Symbol       string       `json:"symbol"`
	Observations [][2]float64 `json:"observations"`
	MaxSearches  int          `json:"max_searches"`
}

type fitParams struct {
	TC float64 `json:"tc"`
	M  float64 `json:"m"`
	W  float64 `json:"w"`
	A  float64 `json:"a"`
	B  float64 `json:"b"`
	C  float64 `json:"c"`
	C1 float64 `json:"c1"`
	C2 float64 `json:"c2"`
	O  float64 `json:"O"`
	D  float64 `json:"D"`
}

type nestedRequest struct {
	Symbol             string       `json:"symbol"`
	Observations       [][2]float64 `json:"observations"`
	WindowSize         int          `json:"window_size"`
	SmallestWindowSize int          `json:"smallest_window_size"`
	OuterIncrement     int          `json:"outer_increment"`
	InnerIncrement     int          `json:"inner_increment"`
	MaxSearches        int          `json:"max_searches"`
	Workers            int          `json:"workers"`
}

type windowFit struct {
	fitParams
	T1            float64 `json:"t1"`
	T2            float64 `json:"t2"`
	Valid         *bool   `json:"valid,omitempty"`
	Qualification string  `json:"qualification,omitempty"`
}

type nestedResponse struct {
	Fits []windowFit `json:"fits"`
}

// Fit fits the whole series. The engine reports tc == 0 when no fit
// converged.
func (f *HTTPCurveFitter) Fit(ctx context.Context, series *models.Series, maxSearches int) (models.FitOutcome, error) {
	var out models.FitOutcome
	var resp fitParams
	req := fitRequest{Symbol: series.Symbol(), Observations: encodeSeries(series), MaxSearches: maxSearches}
	if err := f.base.PostJSONWithRetry(ctx, "/lppls/fit", req, &resp); err != nil {
		return out, fmt.Errorf("%w: %v", models.ErrFitEngine, err)
	}

	out = models.FitOutcome{
		M: resp.M, W: resp.W, A: resp.A, B: resp.B, C: resp.C,
		C1: resp.C1, C2: resp.C2, O: resp.O, D: resp.D,
	}
	if resp.TC != 0 {
		out.CriticalTime = models.CriticalTime{Date: util.FromFractionalOrdinal(resp.TC), Converged: true}
	}
	return out, nil
}

// NestedFits runs the multi-scale search. The engine fans out across
// params.Workers itself; this call blocks for the complete collection.
func (f *HTTPCurveFitter) NestedFits(ctx context.Context, series *models.Series, params models.NestedParams) ([]models.RawFit, error) {
	req := nestedRequest{
		Symbol:             series.Symbol(),
		Observations:       encodeSeries(series),
		WindowSize:         params.WindowSize,
		SmallestWindowSize: params.SmallestWindowSize,
		OuterIncrement:     params.OuterIncrement,
		InnerIncrement:     params.InnerIncrement,
		MaxSearches:        params.MaxSearches,
		Workers:            params.Workers,
	}
	var resp nestedResponse
	if err := f.base.PostJSONWithRetry(ctx, "/lppls/nested", req, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrFitEngine, err)
	}

	fits := make([]models.RawFit, 0, len(resp.Fits))
	for _, w := range resp.Fits {
		valid := w.TC != 0
		if w.Valid != nil {
			valid = *w.Valid
		}
		fits = append(fits, models.RawFit{
			WindowStart: util.FromFractionalOrdinal(w.T1),
			WindowEnd:   util.FromFractionalOrdinal(w.T2),
			TC:          w.TC,
			M:           w.M,
			W:           w.W,
			A:           w.A,
			B:           w.B,
			C:           w.C,
			C1:          w.C1,
			C2:          w.C2,
			O:           w.O,
			D:           w.D,
			Valid:       valid,
			Class:       parseQualification(w.Qualification),
		})
	}
	return fits, nil
}

func encodeSeries(s *models.Series) [][2]float64 {
	points := s.Points()
	out := make([][2]float64, len(points))
	for i, p := range points {
		out[i] = [2]float64{float64(util.ToOrdinal(p.Time)), p.Price}
	}
	return out
}

func parseQualification(s string) models.Qualification {
	switch s {
	case "top":
		return models.QualTop
	case "bottom":
		return models.QualBottom
	case "none":
		return models.QualNone
	default:
		return models.QualUnclassified
	}
}

func ordinal(t time.Time) float64 {
	return float64(util.ToOrdinal(t))
}
