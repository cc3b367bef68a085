package models

import (
	"fmt"
	"math"
	"sort"
	"time"

	"LPPLWatch/pkg/util"
)

// Observation is one daily log-price sample.
type Observation struct {
	Time  time.Time
	Price float64
}

// Series is an immutable, strictly increasing sequence of daily observations.
type Series struct {
	symbol string
	points []Observation
}

// NewSeries normalizes every timestamp to its calendar day and rejects
// unordered or duplicate days.
func NewSeries(symbol string, obs []Observation) (*Series, error) {
	points := make([]Observation, len(obs))
	for i, o := range obs {
		points[i] = Observation{Time: util.Day(o.Time), Price: o.Price}
		if i > 0 && !points[i].Time.After(points[i-1].Time) {
			return nil, fmt.Errorf("series %s: observation %d (%s) not after %s",
				symbol, i, util.FormatDay(points[i].Time), util.FormatDay(points[i-1].Time))
		}
	}
	return &Series{symbol: symbol, points: points}, nil
}

func (s *Series) Symbol() string { return s.symbol }

func (s *Series) Len() int { return len(s.points) }

// Points returns a copy of the observations.
func (s *Series) Points() []Observation {
	out := make([]Observation, len(s.points))
	copy(out, s.points)
	return out
}

// First and Last panic on an empty series.
func (s *Series) First() Observation { return s.points[0] }
func (s *Series) Last() Observation  { return s.points[len(s.points)-1] }

// PriceAt looks up the price for the calendar day of t.
func (s *Series) PriceAt(t time.Time) (float64, bool) {
	day := util.Day(t)
	i := sort.Search(len(s.points), func(i int) bool { return !s.points[i].Time.Before(day) })
	if i < len(s.points) && s.points[i].Time.Equal(day) {
		return s.points[i].Price, true
	}
	return 0, false
}

// DailyClose is a raw closing price as stored or served upstream.
type DailyClose struct {
	Date  time.Time
	Close float64
}

// SeriesFromCloses converts closes to a log-price series, sorting by day and
// dropping non-positive closes. Duplicate days keep the last close. An empty
// result is ErrDataUnavailable.
func SeriesFromCloses(symbol string, closes []DailyClose) (*Series, error) {
	byDay := make(map[time.Time]float64, len(closes))
	for _, c := range closes {
		if c.Close > 0 && !math.IsInf(c.Close, 0) {
			byDay[util.Day(c.Date)] = c.Close
		}
	}
	if len(byDay) == 0 {
		return nil, fmt.Errorf("%w: no usable closes for %s", ErrDataUnavailable, symbol)
	}

	obs := make([]Observation, 0, len(byDay))
	for d, c := range byDay {
		obs = append(obs, Observation{Time: d, Price: math.Log(c)})
	}
	sort.Slice(obs, func(i, j int) bool { return obs[i].Time.Before(obs[j].Time) })
	return NewSeries(symbol, obs)
}
