// Package artifacts names, lays out, and writes per-instrument run artifacts.
package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"LPPLWatch/internal/domain/models"
	"LPPLWatch/pkg/util"
)

const (
	ImagesDir  = "images"
	ReportsDir = "reports"
)

// SafeName strips characters that do not belong in a directory or file
// name, such as the index caret in "^NDX".
func SafeName(symbol string) string {
	return strings.NewReplacer("^", "", "/", "-", "\\", "-").Replace(symbol)
}

// Layout maps instruments and artifact kinds onto the archive tree
// {root}/{symbol}/{images,reports}/{symbol}_{date}_{kind}.{ext}.
type Layout struct {
	Root string
}

func NewLayout(root string) Layout { return Layout{Root: root} }

// InstrumentDir is the archive root for one instrument.
func (l Layout) InstrumentDir(symbol string) string {
	return filepath.Join(l.Root, SafeName(symbol))
}

// Ensure creates the images and reports directories for symbol.
func (l Layout) Ensure(symbol string) error {
	for _, d := range []string{ImagesDir, ReportsDir} {
		if err := os.MkdirAll(filepath.Join(l.InstrumentDir(symbol), d), 0o755); err != nil {
			return fmt.Errorf("create %s dir: %w", d, err)
		}
	}
	return nil
}

// FileName is the bare artifact filename.
func FileName(symbol string, date time.Time, kind models.ArtifactKind) string {
	suffix, ext := split(kind)
	return fmt.Sprintf("%s_%s_%s.%s", SafeName(symbol), util.FormatDay(date), suffix, ext)
}

// Path is the full artifact path.
func (l Layout) Path(symbol string, date time.Time, kind models.ArtifactKind) string {
	return filepath.Join(l.InstrumentDir(symbol), Dir(kind), FileName(symbol, date, kind))
}

// Dir is the archive subdirectory that holds kind.
func Dir(kind models.ArtifactKind) string {
	if _, ext := split(kind); ext == "png" {
		return ImagesDir
	}
	return ReportsDir
}

func split(kind models.ArtifactKind) (suffix, ext string) {
	switch kind {
	case models.ArtifactConfidenceCSV:
		return "confidence", "csv"
	case models.ArtifactReport:
		return "report", "md"
	case models.ArtifactReportPDF:
		return "report", "pdf"
	default:
		return string(kind), "png"
	}
}

// ErrNoReport is returned when an instrument has no archived report.
var ErrNoReport = errors.New("no report archived")

// LatestReport returns the path of the most recent dated Markdown report for
// symbol. Names sort by date because the date is zero-padded.
func (l Layout) LatestReport(symbol string) (string, error) {
	pattern := filepath.Join(l.InstrumentDir(symbol), ReportsDir, SafeName(symbol)+"_*_report.md")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w for %s", ErrNoReport, symbol)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}
