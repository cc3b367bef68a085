// Package render drives the external chart and document renderer.
package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"LPPLWatch/internal/domain/models"
	domsvc "LPPLWatch/internal/domain/service"
	"LPPLWatch/pkg/config"
	xhttp "LPPLWatch/pkg/http"
	"LPPLWatch/pkg/util"
)

var ErrReleased = errors.New("canvas already released")

// HTTPRenderer allocates one remote canvas per artifact. The canvas lives
// on the renderer until Release deletes it.
type HTTPRenderer struct {
	baseURL string
	client  *xhttp.Client
}

var _ domsvc.Renderer = (*HTTPRenderer)(nil)

func NewHTTPRenderer(cfg *config.Config) *HTTPRenderer {
	return &HTTPRenderer{
		baseURL: strings.TrimRight(cfg.Render.ServiceURL, "/"),
		client:  xhttp.NewClient(xhttp.WithTimeout(cfg.Render.Timeout)),
	}
}

type canvasResponse struct {
	ID string `json:"id"`
}

// Acquire uploads the chart data and returns the canvas handle.
func (r *HTTPRenderer) Acquire(ctx context.Context, spec models.ChartSpec) (domsvc.Canvas, error) {
	var resp canvasResponse
	err := r.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    r.baseURL + "/canvases",
		Body:   encodeSpec(spec),
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire %s canvas: %v", models.ErrRender, spec.Kind, err)
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("%w: renderer returned empty canvas id", models.ErrRender)
	}
	return &httpCanvas{renderer: r, id: resp.ID, kind: spec.Kind}, nil
}

type httpCanvas struct {
	renderer *HTTPRenderer
	id       string
	kind     models.ArtifactKind

	mu       sync.Mutex
	released bool
}

// Render streams the finished artifact bytes into dst.
func (c *httpCanvas) Render(ctx context.Context, dst io.Writer) error {
	c.mu.Lock()
	released := c.released
	c.mu.Unlock()
	if released {
		return fmt.Errorf("%w: %w", models.ErrRender, ErrReleased)
	}

	err := c.renderer.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.renderer.baseURL + "/canvases/" + c.id,
	}, dst)
	if err != nil {
		return fmt.Errorf("%w: render %s: %v", models.ErrRender, c.kind, err)
	}
	return nil
}

// Release frees the remote canvas. A second call is a no-op.
func (c *httpCanvas) Release() error {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return nil
	}
	c.released = true
	c.mu.Unlock()

	err := c.renderer.client.SendAndParse(context.Background(), &xhttp.RequestOptions{
		Method: xhttp.MethodDelete,
		URL:    c.renderer.baseURL + "/canvases/" + c.id,
	}, nil)
	if err != nil {
		return fmt.Errorf("release canvas %s: %w", c.id, err)
	}
	return nil
}

type rowDTO struct {
	Date    string  `json:"date"`
	Price   float64 `json:"price"`
	PosConf float64 `json:"pos_conf"`
	NegConf float64 `json:"neg_conf"`
}

type clusterDTO struct {
	Start string  `json:"start"`
	End   string  `json:"end"`
	Label string  `json:"label"`
	Peak  float64 `json:"peak_confidence"`
}

type fitDTO struct {
	TC        string  `json:"tc,omitempty"`
	Converged bool    `json:"converged"`
	M         float64 `json:"m"`
	W         float64 `json:"w"`
	A         float64 `json:"a"`
	B         float64 `json:"b"`
	C1        float64 `json:"c1"`
	C2        float64 `json:"c2"`
}

type specDTO struct {
	Kind      string       `json:"kind"`
	Format    string       `json:"format"`
	Title     string       `json:"title"`
	Symbol    string       `json:"symbol"`
	RunDate   string       `json:"run_date"`
	StartDate string       `json:"start_date,omitempty"`
	Series    []rowDTO     `json:"series,omitempty"`
	Fit       *fitDTO      `json:"fit,omitempty"`
	Rows      []rowDTO     `json:"rows,omitempty"`
	Clusters  []clusterDTO `json:"clusters,omitempty"`
	Markdown  string       `json:"markdown,omitempty"`
}

func encodeSpec(spec models.ChartSpec) specDTO {
	dto := specDTO{
		Kind:     string(spec.Kind),
		Format:   Format(spec.Kind),
		Title:    title(spec),
		Symbol:   spec.Symbol,
		RunDate:  util.FormatDay(spec.RunDate),
		Markdown: spec.Markdown,
	}
	if !spec.StartDate.IsZero() {
		dto.StartDate = util.FormatDay(spec.StartDate)
	}
	for _, o := range spec.Series {
		dto.Series = append(dto.Series, rowDTO{Date: util.FormatDay(o.Time), Price: o.Price})
	}
	for _, r := range spec.Rows {
		dto.Rows = append(dto.Rows, rowDTO{Date: util.FormatDay(r.Time), Price: r.Price, PosConf: r.PosConf, NegConf: r.NegConf})
	}
	for _, c := range spec.Clusters {
		dto.Clusters = append(dto.Clusters, clusterDTO{
			Start: util.FormatDay(c.Start), End: util.FormatDay(c.End), Label: string(c.Label), Peak: c.PeakConfidence,
		})
	}
	if f := spec.Fit; f != nil {
		dto.Fit = &fitDTO{Converged: f.CriticalTime.Converged, M: f.M, W: f.W, A: f.A, B: f.B, C1: f.C1, C2: f.C2}
		if f.CriticalTime.Converged {
			dto.Fit.TC = util.FormatDay(f.CriticalTime.Date)
		}
	}
	return dto
}

// Format is the file format a renderer produces for kind.
func Format(kind models.ArtifactKind) string {
	if kind == models.ArtifactReportPDF {
		return "pdf"
	}
	return "png"
}

func title(spec models.ChartSpec) string {
	run := util.FormatDay(spec.RunDate)
	switch spec.Kind {
	case models.ArtifactFit:
		return fmt.Sprintf("LPPLS Fit: %s (%s)", spec.Symbol, run)
	case models.ArtifactConfidence:
		return fmt.Sprintf("Confidence Indicators: %s (%s to %s)", spec.Symbol, util.FormatDay(spec.StartDate), run)
	case models.ArtifactCumulative:
		return fmt.Sprintf("%s Analysis (%s to %s)", spec.Symbol, util.FormatDay(spec.StartDate), run)
	case models.ArtifactCumulativeTable:
		return fmt.Sprintf("%s Signal Table (%s)", spec.Symbol, run)
	default:
		return fmt.Sprintf("LPPLS Analyst Report: %s (%s)", spec.Symbol, run)
	}
}
