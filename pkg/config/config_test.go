package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
environment: test
fit:
  service_url: http://fit.local:8000
prices:
  service_url: http://prices.local:8001
`

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "test", c.Environment)
	assert.Equal(t, []string{"^NDX", "SPY", "^GSPC", "QQQ", "BTC-USD"}, c.Run.Tickers)
	assert.Equal(t, "daily_plots", c.Run.OutputDir)
	assert.Equal(t, 3, c.Run.KeepHistoryDays)
	assert.Equal(t, 25, c.Fit.MaxSearches)
	assert.Equal(t, 4, c.Fit.Workers)
	assert.Equal(t, 120, c.Fit.WindowSize)
	assert.Equal(t, 30, c.Fit.SmallestWindowSize)
	assert.Equal(t, 1, c.Fit.OuterIncrement)
	assert.Equal(t, 5, c.Fit.InnerIncrement)
	assert.Equal(t, 2.5, c.Fit.Filter.OMin)
	assert.Equal(t, 10*time.Minute, c.Fit.Timeout)
	assert.Equal(t, time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), c.StartDate())
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
environment: test
run:
  tickers: [NFLX]
  keep_history_days: 7
  start_date: "2007-01-01"
fit:
  service_url: http://fit.local:8000
  window_size: 200
prices:
  service_url: http://prices.local:8001
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"NFLX"}, c.Run.Tickers)
	assert.Equal(t, 7, c.Run.KeepHistoryDays)
	assert.Equal(t, 200, c.Fit.WindowSize)
	assert.Equal(t, 30, c.Fit.SmallestWindowSize)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := map[string]string{
		"missing fit url": `
prices:
  service_url: http://prices.local
`,
		"keep below one": minimalYAML + `
run:
  keep_history_days: 0
`,
		"inverted windows": `
fit:
  service_url: http://fit.local
  window_size: 20
  smallest_window_size: 30
prices:
  service_url: http://prices.local
`,
		"bad start date": minimalYAML + `
run:
  start_date: yesterday
`,
		"clickhouse source disabled": `
fit:
  service_url: http://fit.local
prices:
  source: clickhouse
`,
		"queue without redis": minimalYAML + `
queue:
  enabled: true
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	t.Setenv("LPPL_TICKERS", "SPY, QQQ ,")
	t.Setenv("LPPL_OUTPUT_DIR", "/tmp/out")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	c.ApplyEnv()

	assert.Equal(t, []string{"SPY", "QQQ"}, c.Run.Tickers)
	assert.Equal(t, "/tmp/out", c.Run.OutputDir)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
}
