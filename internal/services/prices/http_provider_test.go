package prices

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"LPPLWatch/internal/domain/models"
	"LPPLWatch/pkg/cache"
	"LPPLWatch/pkg/config"
	"LPPLWatch/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProvider(url string) *HTTPProvider {
	cfg := &config.Config{Prices: config.PricesConfig{ServiceURL: url, Timeout: 5 * time.Second, CacheTTL: time.Hour}}
	return NewHTTPProvider(cfg, cache.NewMemoryCache(16), logger.Nop())
}

func TestHistoryFetchesAndCaches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/prices/daily", r.URL.Path)
		assert.Equal(t, "^NDX", r.URL.Query().Get("symbol"))
		assert.Equal(t, "2019-01-01", r.URL.Query().Get("from"))
		_, _ = w.Write([]byte(`{"symbol":"^NDX","closes":[
			{"date":"2024-01-03","close":100},
			{"date":"2024-01-02","close":1}
		]}`))
	}))
	defer srv.Close()

	p := newProvider(srv.URL)
	from := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	s, err := p.History(context.Background(), "^NDX", from, to)
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, 0.0, s.First().Price)
	assert.InDelta(t, math.Log(100), s.Last().Price, 1e-12)

	_, err = p.History(context.Background(), "^NDX", from, to)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHistoryUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") == "EMPTY" {
			_, _ = w.Write([]byte(`{"closes":[]}`))
			return
		}
		http.Error(w, "unknown symbol", http.StatusNotFound)
	}))
	defer srv.Close()

	p := newProvider(srv.URL)
	now := time.Now()

	_, err := p.History(context.Background(), "NOPE", now.AddDate(-1, 0, 0), now)
	assert.ErrorIs(t, err, models.ErrDataUnavailable)

	_, err = p.History(context.Background(), "EMPTY", now.AddDate(-1, 0, 0), now)
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
}
