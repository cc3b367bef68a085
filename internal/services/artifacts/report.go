package artifacts

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"LPPLWatch/internal/domain/models"
	"LPPLWatch/pkg/util"
)

// ReportData feeds the Markdown analyst report.
type ReportData struct {
	Symbol    string
	RunDate   time.Time
	StartDate time.Time
	Narrative models.Narrative
	Clusters  []models.Cluster
	// Images maps chart kinds to the filenames written this run. Missing
	// kinds are omitted from the report.
	Images map[models.ArtifactKind]string
}

var reportFuncs = template.FuncMap{
	"day": util.FormatDay,
	"conf": func(v float64) string {
		return fmt.Sprintf("%.4f", v)
	},
	"image": func(images map[models.ArtifactKind]string, kind models.ArtifactKind) string {
		name, ok := images[kind]
		if !ok {
			return ""
		}
		return "../" + ImagesDir + "/" + filepath.Base(name)
	},
}

var reportTemplate = template.Must(template.New("report").Funcs(reportFuncs).Parse(strings.TrimSpace(`
# LPPLS Analyst Report: {{.Symbol}}
**Date:** {{day .RunDate}}

---

## 1. Model Fit & Critical Time

**Projected Critical Time:** {{if .Narrative.CriticalTime.Converged}}{{day .Narrative.CriticalTime.Date}}{{else}}N/A{{end}}

**Observation:** {{.Narrative.Timing.Text}}
{{with image .Images "fit"}}
![Fit]({{.}})
{{end}}
---

## 2. Confidence Indicators (Multi-Scale)

Fraction of nested window fits ending on each day that qualify as a Top (red) or Bottom (green) signal.

**Observation:** {{.Narrative.Confidence.Text}}
{{with image .Images "confidence"}}
![Confidence]({{.}})
{{end}}
---

## 3. Cumulative Price & Signal Analysis

**Observation:** {{.Narrative.Recency.Text}}
{{with image .Images "cumulative"}}
![Cumulative]({{.}})
{{end}}
---

## 4. Signal Data Table
{{if .Clusters}}
| Date Range | Max Confidence | Signal Type |
|---|---|---|
{{- range .Clusters}}
| {{.DateRange}} | {{conf .PeakConfidence}} | {{.Label}} |
{{- end}}
{{else}}
No signal clusters detected.
{{end}}
---

## 5. Analyst Conclusion

### Executive Summary
The analysis for **{{.Symbol}}** ({{day .StartDate}} to {{day .RunDate}}) has detected a total of **{{.Narrative.Total}}** LPPLS signal clusters.

- **{{.Narrative.NumTop}}** Top signals: bubble-like behavior and potential local maxima.
- **{{.Narrative.NumBottom}}** Bottom signals: negative bubbles and potential buying opportunities.
{{with .Narrative.Latest}}
The most recent alert was a **{{.Label}}** signal during **{{.DateRange}}**, peaking at a confidence of **{{conf .PeakConfidence}}**.
{{else}}
No significant super-exponential signals were detected in this timeframe.
{{end}}`)))

// WriteReport renders the Markdown report.
func WriteReport(w io.Writer, data ReportData) error {
	if err := reportTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}
