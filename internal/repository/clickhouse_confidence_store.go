package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"LPPLWatch/internal/domain/models"
	domrepo "LPPLWatch/internal/domain/repository"
	pkgch "LPPLWatch/pkg/clickhouse"
	applogger "LPPLWatch/pkg/logger"
)

// CHConfidenceStore implements ConfidenceStore backed by ClickHouse. Confidence
// rows are keyed by (symbol, day) so the latest run wins; clusters are read
// back by the run that produced them.
type CHConfidenceStore struct {
	ch       *pkgch.Client
	db       *sql.DB
	database string
	l        *applogger.Logger
}

var _ domrepo.ConfidenceStore = (*CHConfidenceStore)(nil)

func NewCHConfidenceStore(ch *pkgch.Client, database string, l *applogger.Logger) *CHConfidenceStore {
	return &CHConfidenceStore{ch: ch, db: ch.DB(), database: database, l: l}
}

// Schema returns the idempotent DDL for database.
func Schema(database string) []string {
	return []string{
		"CREATE DATABASE IF NOT EXISTS " + database,
		`CREATE TABLE IF NOT EXISTS ` + database + `.confidence (
			symbol LowCardinality(String),
			day Date,
			price Float64,
			pos_conf Float64,
			neg_conf Float64,
			run_id UUID,
			run_date Date,
			inserted_at DateTime DEFAULT now()
		) ENGINE = ReplacingMergeTree(inserted_at) ORDER BY (symbol, day)`,
		`CREATE TABLE IF NOT EXISTS ` + database + `.clusters (
			symbol LowCardinality(String),
			run_date Date,
			start Date,
			end Date,
			label LowCardinality(String),
			peak Float64,
			run_id UUID
		) ENGINE = ReplacingMergeTree ORDER BY (symbol, run_id, label, start)`,
		`CREATE TABLE IF NOT EXISTS ` + database + `.runs (
			run_id UUID,
			symbol LowCardinality(String),
			run_date Date,
			failed UInt8,
			error String,
			converged UInt8,
			critical_time Date,
			clusters UInt32,
			inserted_at DateTime64(3) DEFAULT now64(3)
		) ENGINE = ReplacingMergeTree(inserted_at) ORDER BY (symbol, run_id)`,
	}
}

func (s *CHConfidenceStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, Schema(s.database))
}

// SaveRun writes the run summary, its aggregated rows and its clusters in one
// batch. ClickHouse commits batches per table, not atomically across them.
func (s *CHConfidenceStore) SaveRun(ctx context.Context, out *models.InstrumentOutcome) error {
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	if err := s.insert(ctx, tx, "runs", "run_id, symbol, run_date, failed, error, converged, critical_time, clusters", [][]interface{}{runRow(out)}); err != nil {
		return err
	}
	if err := s.insert(ctx, tx, "confidence", "symbol, day, price, pos_conf, neg_conf, run_id, run_date", confidenceRows(out)); err != nil {
		return err
	}
	if err := s.insert(ctx, tx, "clusters", "symbol, run_date, start, end, label, peak, run_id", clusterRows(out)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	s.l.Debug("clickhouse save_run ok",
		applogger.String("symbol", out.Symbol),
		applogger.Int("rows", len(out.Rows)),
		applogger.Int("clusters", len(out.Clusters)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (s *CHConfidenceStore) insert(ctx context.Context, tx *sql.Tx, table, cols string, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s.%s (%s)", s.database, table, cols))
	if err != nil {
		return fmt.Errorf("prepare %s: %w", table, err)
	}
	defer stmt.Close()
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("append %s: %w", table, err)
		}
	}
	return nil
}

func runRow(out *models.InstrumentOutcome) []interface{} {
	errText := ""
	if out.Err != nil {
		errText = out.Err.Error()
	}
	return []interface{}{
		out.RunID,
		out.Symbol,
		out.RunDate,
		boolToUInt8(out.Failed()),
		errText,
		boolToUInt8(out.CriticalTime.Converged),
		out.CriticalTime.Date,
		uint32(len(out.Clusters)),
	}
}

func confidenceRows(out *models.InstrumentOutcome) [][]interface{} {
	rows := make([][]interface{}, 0, len(out.Rows))
	for _, r := range out.Rows {
		rows = append(rows, []interface{}{out.Symbol, r.Time, r.Price, r.PosConf, r.NegConf, out.RunID, out.RunDate})
	}
	return rows
}

func clusterRows(out *models.InstrumentOutcome) [][]interface{} {
	rows := make([][]interface{}, 0, len(out.Clusters))
	for _, c := range out.Clusters {
		rows = append(rows, []interface{}{out.Symbol, out.RunDate, c.Start, c.End, string(c.Label), c.PeakConfidence, out.RunID})
	}
	return rows
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// latestRun resolves the most recent successful run of symbol from the runs
// table, so a run that found no clusters still supersedes older ones.
func (s *CHConfidenceStore) latestRun(ctx context.Context, symbol string) (string, error) {
	const qtpl = `
        SELECT toString(run_id)
        FROM %s.runs
        WHERE symbol = ? AND failed = 0
        ORDER BY run_date DESC, inserted_at DESC
        LIMIT 1
    `
	var runID string
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(qtpl, s.database), symbol).Scan(&runID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("%w: %s", models.ErrSymbolNotFound, symbol)
	case err != nil:
		s.l.Error("clickhouse latest run query error", applogger.String("symbol", symbol), applogger.Error(err))
		return "", fmt.Errorf("query latest run: %w", err)
	}
	return runID, nil
}

// Confidence returns stored rows within [from, to]; zero bounds are open.
// Symbols that were never persisted yield ErrSymbolNotFound.
func (s *CHConfidenceStore) Confidence(ctx context.Context, symbol string, from, to time.Time) ([]models.AggregatedRow, error) {
	if _, err := s.latestRun(ctx, symbol); err != nil {
		return nil, err
	}
	if to.IsZero() {
		to = time.Date(2149, 6, 6, 0, 0, 0, 0, time.UTC)
	}
	const qtpl = `
        SELECT day, price, pos_conf, neg_conf
        FROM %s.confidence FINAL
        WHERE symbol = ? AND day >= ? AND day <= ?
        ORDER BY day ASC
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.database), symbol, from, to)
	if err != nil {
		s.l.Error("clickhouse confidence query error", applogger.String("symbol", symbol), applogger.Error(err))
		return nil, fmt.Errorf("query confidence: %w", err)
	}
	defer rows.Close()

	var out []models.AggregatedRow
	for rows.Next() {
		var r models.AggregatedRow
		if err := rows.Scan(&r.Time, &r.Price, &r.PosConf, &r.NegConf); err != nil {
			return nil, fmt.Errorf("scan confidence: %w", err)
		}
		r.Time = r.Time.UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// LatestClusters returns clusters from the most recent run of symbol, most
// recent first with Top ahead of Bottom on equal start dates. A latest run
// without clusters yields an empty result.
func (s *CHConfidenceStore) LatestClusters(ctx context.Context, symbol string, label models.SignalLabel, limit int) ([]models.Cluster, error) {
	runID, err := s.latestRun(ctx, symbol)
	if err != nil {
		return nil, err
	}
	const qtpl = `
        SELECT start, end, label, peak
        FROM %s.clusters FINAL
        WHERE symbol = ? AND run_id = toUUID(?)
          AND (? = '' OR label = ?)
        ORDER BY start DESC, label DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.database), symbol, runID, string(label), string(label), limit)
	if err != nil {
		s.l.Error("clickhouse clusters query error", applogger.String("symbol", symbol), applogger.Error(err))
		return nil, fmt.Errorf("query clusters: %w", err)
	}
	defer rows.Close()

	var out []models.Cluster
	for rows.Next() {
		var (
			c   models.Cluster
			lbl string
		)
		if err := rows.Scan(&c.Start, &c.End, &lbl, &c.PeakConfidence); err != nil {
			return nil, fmt.Errorf("scan cluster: %w", err)
		}
		c.Start, c.End, c.Label = c.Start.UTC(), c.End.UTC(), models.SignalLabel(lbl)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHConfidenceStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op: the pool belongs to the ClickHouse client.
func (s *CHConfidenceStore) Close() error { return nil }
