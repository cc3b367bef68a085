// Package retention bounds a per-instrument archive to the most recent run
// dates embedded in artifact filenames.
package retention

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"LPPLWatch/internal/domain/models"
	"LPPLWatch/pkg/logger"
	"LPPLWatch/pkg/util"
)

var dateToken = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

var (
	DefaultDirs       = []string{"images", "reports"}
	DefaultExtensions = []string{".png", ".csv", ".md", ".pdf"}
)

// Result lists what a cleanup pass did. Purged dates are ascending.
type Result struct {
	Kept    []string
	Purged  []string
	Deleted []string
	Missing []string
	Failed  []string
}

// Manager deletes artifacts whose filename date falls outside the newest
// keep distinct dates. Modification times are never consulted.
type Manager struct {
	logger     *logger.Logger
	dirs       []string
	extensions map[string]struct{}
	remove     func(string) error
}

// Option configures Manager.
type Option func(*Manager)

// WithDirs sets the archive subdirectories that are scanned.
func WithDirs(dirs ...string) Option {
	return func(m *Manager) { m.dirs = dirs }
}

// WithExtensions sets the tracked file extensions (with leading dot).
func WithExtensions(exts ...string) Option {
	return func(m *Manager) {
		m.extensions = make(map[string]struct{}, len(exts))
		for _, e := range exts {
			m.extensions[strings.ToLower(e)] = struct{}{}
		}
	}
}

func NewManager(l *logger.Logger, opts ...Option) *Manager {
	m := &Manager{logger: l, remove: os.Remove}
	WithDirs(DefaultDirs...)(m)
	WithExtensions(DefaultExtensions...)(m)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type trackedFile struct {
	path  string
	dates []string
}

// Cleanup prunes root so at most keep distinct dates remain. It recomputes
// the date set from disk every call, so a pass interrupted midway is
// completed by the next one. Per-file delete failures are logged and
// reported as ErrRetentionIO after every file has been attempted.
func (m *Manager) Cleanup(root string, keep int) (Result, error) {
	var res Result
	if keep < 1 {
		return res, fmt.Errorf("%w: keep must be >= 1, got %d", models.ErrRetentionIO, keep)
	}

	files, err := m.scan(root)
	if err != nil {
		return res, err
	}

	distinct := make(map[string]struct{})
	for _, f := range files {
		for _, d := range f.dates {
			distinct[d] = struct{}{}
		}
	}
	dates := make([]string, 0, len(distinct))
	for d := range distinct {
		dates = append(dates, d)
	}
	// YYYY-MM-DD sorts lexically in calendar order.
	sort.Strings(dates)

	if len(dates) <= keep {
		res.Kept = dates
		return res, nil
	}
	res.Purged = dates[:len(dates)-keep]
	res.Kept = dates[len(dates)-keep:]

	purge := make(map[string]struct{}, len(res.Purged))
	for _, d := range res.Purged {
		purge[d] = struct{}{}
	}

	for _, f := range files {
		if !containsAny(f.dates, purge) {
			continue
		}
		err := m.remove(f.path)
		switch {
		case err == nil:
			res.Deleted = append(res.Deleted, f.path)
		case errors.Is(err, fs.ErrNotExist):
			m.logger.Warn("archive file vanished before delete", logger.String("path", f.path))
			res.Missing = append(res.Missing, f.path)
		default:
			m.logger.Error("archive delete failed", logger.String("path", f.path), logger.Error(err))
			res.Failed = append(res.Failed, f.path)
		}
	}

	m.logger.Info("archive pruned",
		logger.String("root", root),
		logger.Strings("purged_dates", res.Purged),
		logger.Int("deleted", len(res.Deleted)))

	if len(res.Failed) > 0 {
		return res, fmt.Errorf("%w: %d of %d files under %s", models.ErrRetentionIO,
			len(res.Failed), len(res.Failed)+len(res.Deleted)+len(res.Missing), root)
	}
	return res, nil
}

func (m *Manager) scan(root string) ([]trackedFile, error) {
	var files []trackedFile
	for _, dir := range m.dirs {
		entries, err := os.ReadDir(filepath.Join(root, dir))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("%w: scan %s: %v", models.ErrRetentionIO, dir, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name := e.Name()
			if _, ok := m.extensions[strings.ToLower(filepath.Ext(name))]; !ok {
				continue
			}
			if dates := embeddedDates(name); len(dates) > 0 {
				files = append(files, trackedFile{path: filepath.Join(root, dir, name), dates: dates})
			}
		}
	}
	return files, nil
}

// embeddedDates returns every valid calendar date token in name.
func embeddedDates(name string) []string {
	var out []string
	for _, tok := range dateToken.FindAllString(name, -1) {
		if _, err := time.Parse(util.DateLayout, tok); err == nil {
			out = append(out, tok)
		}
	}
	return out
}

func containsAny(dates []string, set map[string]struct{}) bool {
	for _, d := range dates {
		if _, ok := set[d]; ok {
			return true
		}
	}
	return false
}
