package lppls

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"LPPLWatch/internal/domain/models"
	"LPPLWatch/pkg/config"
	"LPPLWatch/pkg/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var filter = config.FilterConfig{MMin: 0, MMax: 1, WMin: 2, WMax: 15, OMin: 2.5, DMin: 0.5, TcWindowPercent: 0.5}

func day(s string) time.Time {
	t, err := time.Parse(util.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func qualifyingFit(b float64) models.RawFit {
	start, end := day("2024-01-01"), day("2024-04-30")
	return models.RawFit{
		WindowStart: start,
		WindowEnd:   end,
		TC:          ordinal(end) + 10,
		M:           0.5,
		W:           8,
		B:           b,
		C:           0.1,
		Valid:       true,
	}
}

func TestFilterQualifier(t *testing.T) {
	q := NewFilterQualifier(filter)

	assert.Equal(t, models.QualTop, q.Classify(qualifyingFit(-1)))
	assert.Equal(t, models.QualBottom, q.Classify(qualifyingFit(1)))

	tests := []struct {
		name   string
		mutate func(*models.RawFit)
	}{
		{"invalid", func(f *models.RawFit) { f.Valid = false }},
		{"zero b", func(f *models.RawFit) { f.B = 0 }},
		{"m out of range", func(f *models.RawFit) { f.M = 1.2 }},
		{"w out of range", func(f *models.RawFit) { f.W = 16 }},
		{"tc too late", func(f *models.RawFit) { f.TC = ordinal(f.WindowEnd) + 70 }},
		{"too damped", func(f *models.RawFit) { f.C = 1 }},
		{"too few oscillations", func(f *models.RawFit) { f.W = 3 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := qualifyingFit(-1)
			tt.mutate(&f)
			assert.Equal(t, models.QualNone, q.Classify(f))
		})
	}
}

func TestOscillationsAndDamping(t *testing.T) {
	assert.True(t, Oscillations(8, 10, 0, 5, 0, 1) > 1e300)
	assert.InDelta(t, 8/(2*3.141592653589793)*0.6931471805599453, Oscillations(8, 10, 0, 5, 1, 1), 1e-12)
	assert.InDelta(t, 0.625, Damping(0.5, 8, -1, 0.1), 1e-12)
}

func seriesFor(t *testing.T) *models.Series {
	t.Helper()
	s, err := models.NewSeries("SPY", []models.Observation{
		{Time: day("2024-01-01"), Price: 6.1},
		{Time: day("2024-01-02"), Price: 6.2},
	})
	require.NoError(t, err)
	return s
}

func newFitter(url string) *HTTPCurveFitter {
	f := NewHTTPCurveFitter(&config.Config{Fit: config.FitConfig{ServiceURL: url, Timeout: 5 * time.Second, Attempts: 2}})
	f.base.backoff = time.Millisecond
	return f
}

func TestFitConverged(t *testing.T) {
	tc := float64(util.ToOrdinal(day("2024-06-15"))) + 0.7
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lppls/fit", r.URL.Path)
		var req fitRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "SPY", req.Symbol)
		assert.Equal(t, 25, req.MaxSearches)
		assert.Equal(t, [2]float64{float64(util.ToOrdinal(day("2024-01-01"))), 6.1}, req.Observations[0])
		_ = json.NewEncoder(w).Encode(fitParams{TC: tc, M: 0.4, W: 9, B: -0.2})
	}))
	defer srv.Close()

	out, err := newFitter(srv.URL).Fit(context.Background(), seriesFor(t), 25)
	require.NoError(t, err)
	assert.True(t, out.CriticalTime.Converged)
	assert.Equal(t, day("2024-06-15"), out.CriticalTime.Date)
	assert.Equal(t, 0.4, out.M)
}

func TestFitNotConverged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tc":0}`))
	}))
	defer srv.Close()

	out, err := newFitter(srv.URL).Fit(context.Background(), seriesFor(t), 25)
	require.NoError(t, err)
	assert.False(t, out.CriticalTime.Converged)
}

func TestFitRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"tc":0}`))
	}))
	defer srv.Close()

	_, err := newFitter(srv.URL).Fit(context.Background(), seriesFor(t), 25)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFitDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad series", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := newFitter(srv.URL).Fit(context.Background(), seriesFor(t), 25)
	assert.ErrorIs(t, err, models.ErrFitEngine)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNestedFits(t *testing.T) {
	t1 := float64(util.ToOrdinal(day("2023-09-01")))
	t2 := float64(util.ToOrdinal(day("2024-01-02")))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lppls/nested", r.URL.Path)
		var req nestedRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 120, req.WindowSize)
		assert.Equal(t, 30, req.SmallestWindowSize)
		assert.Equal(t, 4, req.Workers)
		_, _ = w.Write([]byte(`{"fits":[
			{"t1":` + jsonNum(t1) + `,"t2":` + jsonNum(t2) + `,"tc":` + jsonNum(t2+5) + `,"b":-1,"qualification":"top"},
			{"t1":` + jsonNum(t1) + `,"t2":` + jsonNum(t2) + `,"tc":0},
			{"t1":` + jsonNum(t1) + `,"t2":` + jsonNum(t2) + `,"tc":` + jsonNum(t2+5) + `,"valid":false}
		]}`))
	}))
	defer srv.Close()

	fits, err := newFitter(srv.URL).NestedFits(context.Background(), seriesFor(t), models.NestedParams{
		WindowSize: 120, SmallestWindowSize: 30, OuterIncrement: 1, InnerIncrement: 5, MaxSearches: 25, Workers: 4,
	})
	require.NoError(t, err)
	require.Len(t, fits, 3)
	assert.Equal(t, day("2024-01-02"), fits[0].WindowEnd)
	assert.Equal(t, day("2023-09-01"), fits[0].WindowStart)
	assert.Equal(t, models.QualTop, fits[0].Class)
	assert.True(t, fits[0].Valid)
	assert.False(t, fits[1].Valid)
	assert.Equal(t, models.QualUnclassified, fits[1].Class)
	assert.False(t, fits[2].Valid)
}

func jsonNum(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}
