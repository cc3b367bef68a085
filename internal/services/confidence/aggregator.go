// Package confidence reduces per-window fit results into per-day confidence.
package confidence

import (
	"fmt"
	"sort"
	"time"

	"LPPLWatch/internal/domain/models"
	"LPPLWatch/internal/domain/service"
	"LPPLWatch/pkg/util"
)

// Aggregator groups window fits by window-end day and computes the fraction
// of fits qualifying as top and as bottom.
type Aggregator struct {
	qualifier service.Qualifier
}

// NewAggregator uses q for fits the engine left unclassified.
func NewAggregator(q service.Qualifier) *Aggregator {
	return &Aggregator{qualifier: q}
}

type tally struct {
	total  int
	top    int
	bottom int
}

// Aggregate returns one row per distinct window-end day, ordered by day.
// Every fit counts in the denominator, valid or not.
func (a *Aggregator) Aggregate(series *models.Series, fits []models.RawFit) ([]models.AggregatedRow, error) {
	if len(fits) == 0 {
		return nil, fmt.Errorf("%w: no window fits", models.ErrAggregation)
	}

	tallies := make(map[time.Time]*tally)
	for _, f := range fits {
		day := util.Day(f.WindowEnd)
		t, ok := tallies[day]
		if !ok {
			t = &tally{}
			tallies[day] = t
		}
		t.total++
		switch a.classify(f) {
		case models.QualTop:
			t.top++
		case models.QualBottom:
			t.bottom++
		}
	}

	days := make([]time.Time, 0, len(tallies))
	for day := range tallies {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	rows := make([]models.AggregatedRow, 0, len(days))
	for _, day := range days {
		price, ok := series.PriceAt(day)
		if !ok {
			return nil, fmt.Errorf("%w: window end %s not in %s history",
				models.ErrAggregation, util.FormatDay(day), series.Symbol())
		}
		t := tallies[day]
		rows = append(rows, models.AggregatedRow{
			Time:    day,
			Price:   price,
			PosConf: ratio(t.top, t.total),
			NegConf: ratio(t.bottom, t.total),
		})
	}
	return rows, nil
}

func (a *Aggregator) classify(f models.RawFit) models.Qualification {
	if f.Class != models.QualUnclassified {
		return f.Class
	}
	if !f.Valid || a.qualifier == nil {
		return models.QualNone
	}
	return a.qualifier.Classify(f)
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
