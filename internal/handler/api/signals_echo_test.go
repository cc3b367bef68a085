package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"LPPLWatch/internal/domain/models"
	"LPPLWatch/internal/usecase"
	xlogger "LPPLWatch/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

type fakeReader struct {
	clusters []models.Cluster
	rows     []models.AggregatedRow
	batch    *models.BatchOutcome
	err      error
	gotLabel models.SignalLabel
	gotLimit int
	gotFrom  time.Time
	gotTo    time.Time
}

func (f *fakeReader) Clusters(_ context.Context, symbol string, label models.SignalLabel, limit int) ([]models.Cluster, error) {
	f.gotLabel, f.gotLimit = label, limit
	if f.err != nil {
		return nil, f.err
	}
	return f.clusters, nil
}

func (f *fakeReader) Confidence(_ context.Context, symbol string, from, to time.Time) ([]models.AggregatedRow, error) {
	f.gotFrom, f.gotTo = from, to
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeReader) LastBatch() *models.BatchOutcome { return f.batch }

type fakeTrigger struct {
	symbols []string
	err     error
}

func (f *fakeTrigger) Trigger(_ context.Context, symbols []string) (string, error) {
	f.symbols = symbols
	return "42", f.err
}

func serve(h *SignalsEchoHandler, method, target, body string) *httptest.ResponseRecorder {
	e := echo.New()
	h.RegisterRoutes(e)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestSignalsEndpoint(t *testing.T) {
	reader := &fakeReader{clusters: []models.Cluster{
		{Start: day("2024-01-04"), End: day("2024-01-05"), Label: models.LabelTop, PeakConfidence: 1},
	}}
	h := NewSignalsEchoHandler(xlogger.Nop(), reader, &fakeTrigger{})

	rec := serve(h, http.MethodGet, "/api/instruments/SPY/signals?label=Top", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.LabelTop, reader.gotLabel)
	assert.Equal(t, 50, reader.gotLimit)

	env := decode(t, rec)
	assert.JSONEq(t, `{"rows":[{"start":"2024-01-04","end":"2024-01-05","range":"2024-01-04 to 2024-01-05","label":"Top","days":2,"peak_confidence":1}],"total":1}`, string(env.Data))
}

func TestSignalsEndpointValidation(t *testing.T) {
	h := NewSignalsEchoHandler(xlogger.Nop(), &fakeReader{}, &fakeTrigger{})

	rec := serve(h, http.MethodGet, "/api/instruments/SPY/signals?label=Sideways", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_ONEOF")

	rec = serve(h, http.MethodGet, "/api/instruments/SPY/signals?limit=1000", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_LTE")
}

func TestSignalsEndpointUnknownSymbol(t *testing.T) {
	reader := &fakeReader{err: fmt.Errorf("%w: QQQ", usecase.ErrSymbolNotFound)}
	h := NewSignalsEchoHandler(xlogger.Nop(), reader, &fakeTrigger{})

	rec := serve(h, http.MethodGet, "/api/instruments/QQQ/signals", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_NOT_FOUND")
}

func TestConfidenceEndpoint(t *testing.T) {
	reader := &fakeReader{rows: []models.AggregatedRow{
		{Time: day("2024-01-04"), Price: 4.5, PosConf: 0.25, NegConf: 0},
	}}
	h := NewSignalsEchoHandler(xlogger.Nop(), reader, &fakeTrigger{})

	rec := serve(h, http.MethodGet, "/api/instruments/SPY/confidence?from=2024-01-01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, day("2024-01-01"), reader.gotFrom)
	assert.True(t, reader.gotTo.IsZero())
	assert.JSONEq(t, `{"rows":[{"date":"2024-01-04","price":4.5,"pos_conf":0.25,"neg_conf":0}],"total":1}`, string(decode(t, rec).Data))

	rec = serve(h, http.MethodGet, "/api/instruments/SPY/confidence?from=01/04/2024", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLatestRunEndpoint(t *testing.T) {
	reader := &fakeReader{}
	h := NewSignalsEchoHandler(xlogger.Nop(), reader, &fakeTrigger{})

	rec := serve(h, http.MethodGet, "/api/runs/latest", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	reader.batch = &models.BatchOutcome{
		RunID:   uuid.MustParse("6f1c2a8e-34c1-4b8e-9a55-0a3b0c7d9e10"),
		RunDate: day("2024-01-10"),
		Instruments: []*models.InstrumentOutcome{
			{Symbol: "SPY", Stages: []models.StageResult{{Stage: models.StageHistory}}},
			{Symbol: "GONE", Err: fmt.Errorf("history: %w", models.ErrDataUnavailable)},
		},
	}
	rec = serve(h, http.MethodGet, "/api/runs/latest", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got batchDTO
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &got))
	assert.Equal(t, "2024-01-10", got.RunDate)
	assert.Equal(t, 1, got.Failed)
	require.Len(t, got.Instruments, 2)
	assert.Equal(t, "history", got.Instruments[0].Stages[0].Stage)
	assert.Equal(t, "history: price history unavailable", got.Instruments[1].Error)
}

func TestTriggerRunEndpoint(t *testing.T) {
	trigger := &fakeTrigger{}
	h := NewSignalsEchoHandler(xlogger.Nop(), &fakeReader{}, trigger)

	rec := serve(h, http.MethodPost, "/api/runs", `{"symbols":["SPY","QQQ"]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"SPY", "QQQ"}, trigger.symbols)
	assert.JSONEq(t, `{"id":"42"}`, string(decode(t, rec).Data))

	trigger.err = usecase.ErrBatchInProgress
	rec = serve(h, http.MethodPost, "/api/runs", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}
