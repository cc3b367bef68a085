package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"LPPLWatch/internal/domain/models"
	domsvc "LPPLWatch/internal/domain/service"
	pkgch "LPPLWatch/pkg/clickhouse"
	applogger "LPPLWatch/pkg/logger"
)

// CHPriceStore reads daily closes from a warehouse table with columns
// (symbol String, day Date, close Float64).
type CHPriceStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

var _ domsvc.PriceHistoryProvider = (*CHPriceStore)(nil)

func NewCHPriceStore(ch *pkgch.Client, table string, l *applogger.Logger) *CHPriceStore {
	return &CHPriceStore{db: ch.DB(), table: table, l: l}
}

func (s *CHPriceStore) History(ctx context.Context, symbol string, from, to time.Time) (*models.Series, error) {
	start := time.Now()
	const qtpl = `
        SELECT day, close
        FROM %s
        WHERE symbol = ? AND day >= ? AND day <= ?
        ORDER BY day ASC
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.table), symbol, from, to)
	if err != nil {
		s.l.Error("clickhouse history query error",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("%w: query %s: %v", models.ErrDataUnavailable, symbol, err)
	}
	defer rows.Close()

	closes := make([]models.DailyClose, 0, 2048)
	for rows.Next() {
		var c models.DailyClose
		if err := rows.Scan(&c.Date, &c.Close); err != nil {
			return nil, fmt.Errorf("%w: scan close: %v", models.ErrDataUnavailable, err)
		}
		closes = append(closes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", models.ErrDataUnavailable, err)
	}

	s.l.Debug("clickhouse history ok",
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(closes)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return models.SeriesFromCloses(symbol, closes)
}
