package render

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"LPPLWatch/internal/domain/models"
	"LPPLWatch/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanvasLifecycle(t *testing.T) {
	var deletes atomic.Int32
	var got specDTO
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/canvases":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_, _ = w.Write([]byte(`{"id":"c-1"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/canvases/c-1":
			_, _ = w.Write([]byte("PNGDATA"))
		case r.Method == http.MethodDelete && r.URL.Path == "/canvases/c-1":
			deletes.Add(1)
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	r := NewHTTPRenderer(&config.Config{Render: config.RenderConfig{ServiceURL: srv.URL, Timeout: 5 * time.Second}})
	run := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	canvas, err := r.Acquire(context.Background(), models.ChartSpec{
		Kind:    models.ArtifactCumulative,
		Symbol:  "SPY",
		RunDate: run,
		Rows:    []models.AggregatedRow{{Time: run, Price: 6, PosConf: 0.5}},
	})
	require.NoError(t, err)
	assert.Equal(t, "cumulative", got.Kind)
	assert.Equal(t, "png", got.Format)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, "2024-06-01", got.Rows[0].Date)

	var buf bytes.Buffer
	require.NoError(t, canvas.Render(context.Background(), &buf))
	assert.Equal(t, "PNGDATA", buf.String())

	require.NoError(t, canvas.Release())
	require.NoError(t, canvas.Release())
	assert.Equal(t, int32(1), deletes.Load())

	err = canvas.Render(context.Background(), &buf)
	assert.ErrorIs(t, err, ErrReleased)
	assert.ErrorIs(t, err, models.ErrRender)
}

func TestAcquireFailureIsRenderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := NewHTTPRenderer(&config.Config{Render: config.RenderConfig{ServiceURL: srv.URL, Timeout: time.Second}})
	_, err := r.Acquire(context.Background(), models.ChartSpec{Kind: models.ArtifactFit})
	assert.ErrorIs(t, err, models.ErrRender)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "pdf", Format(models.ArtifactReportPDF))
	assert.Equal(t, "png", Format(models.ArtifactFit))
}
