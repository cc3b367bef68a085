package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"LPPLWatch/internal/domain/models"
	domsvc "LPPLWatch/internal/domain/service"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

type fakePrices struct {
	missing map[string]bool
	gate    chan struct{}
}

func (p *fakePrices) History(_ context.Context, symbol string, _, _ time.Time) (*models.Series, error) {
	if p.gate != nil {
		<-p.gate
	}
	if p.missing[symbol] {
		return nil, fmt.Errorf("%w: %s", models.ErrDataUnavailable, symbol)
	}
	var obs []models.Observation
	for d := day("2024-01-01"); !d.After(day("2024-01-10")); d = d.AddDate(0, 0, 1) {
		obs = append(obs, models.Observation{Time: d, Price: 5})
	}
	return models.NewSeries(symbol, obs)
}

type fakeFitter struct {
	noConverge map[string]bool
	panics     map[string]bool
	badDays    map[string]bool
	fail       map[string]error
}

func (f *fakeFitter) Fit(_ context.Context, s *models.Series, _ int) (models.FitOutcome, error) {
	if f.panics[s.Symbol()] {
		panic("fit engine exploded")
	}
	if err := f.fail[s.Symbol()]; err != nil {
		return models.FitOutcome{}, err
	}
	if f.noConverge[s.Symbol()] {
		return models.FitOutcome{}, nil
	}
	return models.FitOutcome{CriticalTime: models.CriticalTime{Date: day("2024-01-24"), Converged: true}}, nil
}

// NestedFits yields two fits per day from 01-03 to 01-10: both Top on 01-04
// and 01-05, one Bottom on 01-08, nothing elsewhere.
func (f *fakeFitter) NestedFits(_ context.Context, s *models.Series, _ models.NestedParams) ([]models.RawFit, error) {
	if f.badDays[s.Symbol()] {
		return []models.RawFit{{WindowEnd: day("2023-06-01"), Valid: true, Class: models.QualTop}}, nil
	}
	var fits []models.RawFit
	for d := day("2024-01-03"); !d.After(day("2024-01-10")); d = d.AddDate(0, 0, 1) {
		a, b := models.QualNone, models.QualNone
		switch d.Day() {
		case 4, 5:
			a, b = models.QualTop, models.QualTop
		case 8:
			a = models.QualBottom
		}
		fits = append(fits,
			models.RawFit{WindowEnd: d, Valid: true, Class: a},
			models.RawFit{WindowEnd: d, Valid: true, Class: b},
		)
	}
	return fits, nil
}

type fakeRenderer struct {
	mu          sync.Mutex
	acquired    int
	released    int
	acquireFail map[models.ArtifactKind]bool
	renderFail  map[models.ArtifactKind]bool
	pdfMarkdown string
}

func (r *fakeRenderer) Acquire(_ context.Context, spec models.ChartSpec) (domsvc.Canvas, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.acquireFail[spec.Kind] {
		return nil, fmt.Errorf("%w: renderer busy", models.ErrRender)
	}
	r.acquired++
	if spec.Kind == models.ArtifactReportPDF {
		r.pdfMarkdown = spec.Markdown
	}
	return &fakeCanvas{r: r, kind: spec.Kind}, nil
}

func (r *fakeRenderer) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acquired, r.released
}

type fakeCanvas struct {
	r    *fakeRenderer
	kind models.ArtifactKind
}

func (c *fakeCanvas) Render(_ context.Context, dst io.Writer) error {
	if _, err := io.WriteString(dst, "partial"); err != nil {
		return err
	}
	if c.r.renderFail[c.kind] {
		return errors.New("rasterizer crashed")
	}
	_, err := io.WriteString(dst, string(c.kind))
	return err
}

func (c *fakeCanvas) Release() error {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	c.r.released++
	return nil
}

type fakeStore struct {
	saved []*models.InstrumentOutcome
	err   error
}

func (s *fakeStore) Init(context.Context) error { return nil }
func (s *fakeStore) SaveRun(_ context.Context, o *models.InstrumentOutcome) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, o)
	return nil
}
func (s *fakeStore) Confidence(context.Context, string, time.Time, time.Time) ([]models.AggregatedRow, error) {
	return nil, nil
}
func (s *fakeStore) LatestClusters(context.Context, string, models.SignalLabel, int) ([]models.Cluster, error) {
	return nil, nil
}
func (s *fakeStore) Health(context.Context) error { return nil }
func (s *fakeStore) Close() error                 { return nil }

type fakePublisher struct {
	published []string
}

func (p *fakePublisher) PublishClusters(_ context.Context, o *models.InstrumentOutcome) error {
	p.published = append(p.published, o.Symbol)
	return nil
}
func (p *fakePublisher) Close() error { return nil }

type fakeMetrics struct {
	mu     sync.Mutex
	runs   map[string]bool
	errors map[string]int
	purged map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{runs: map[string]bool{}, errors: map[string]int{}, purged: map[string]int{}}
}

func (m *fakeMetrics) RecordRun(symbol string, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[symbol] = failed
}
func (m *fakeMetrics) RecordStage(models.Stage, float64, error) {}
func (m *fakeMetrics) RecordClusters(string, models.SignalLabel, int) {}
func (m *fakeMetrics) RecordPurged(symbol string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purged[symbol] += n
}
func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

type fakeEnqueuer struct {
	msgType string
	payload []byte
}

func (q *fakeEnqueuer) Enqueue(_ context.Context, msgType string, payload interface{}) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	q.msgType, q.payload = msgType, raw
	return "msg-1", nil
}
