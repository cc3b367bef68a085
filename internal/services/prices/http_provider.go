// Package prices serves daily price history to the run orchestrator.
package prices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"LPPLWatch/internal/domain/models"
	domsvc "LPPLWatch/internal/domain/service"
	"LPPLWatch/pkg/cache"
	"LPPLWatch/pkg/config"
	xhttp "LPPLWatch/pkg/http"
	"LPPLWatch/pkg/logger"
	"LPPLWatch/pkg/util"
)

// HTTPProvider reads daily closes from the price service and caches the raw
// closes per (symbol, from, to).
type HTTPProvider struct {
	baseURL string
	client  *xhttp.Client
	cache   cache.Service
	ttl     time.Duration
	logger  *logger.Logger
}

var _ domsvc.PriceHistoryProvider = (*HTTPProvider)(nil)

func NewHTTPProvider(cfg *config.Config, c cache.Service, l *logger.Logger) *HTTPProvider {
	return &HTTPProvider{
		baseURL: strings.TrimRight(cfg.Prices.ServiceURL, "/"),
		client:  xhttp.NewClient(xhttp.WithTimeout(cfg.Prices.Timeout)),
		cache:   c,
		ttl:     cfg.Prices.CacheTTL,
		logger:  l,
	}
}

type closeDTO struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

type historyResponse struct {
	Symbol string     `json:"symbol"`
	Closes []closeDTO `json:"closes"`
}

func (p *HTTPProvider) History(ctx context.Context, symbol string, from, to time.Time) (*models.Series, error) {
	key := cache.Key("prices", symbol, util.FormatDay(from), util.FormatDay(to))

	var closes []closeDTO
	if p.cache != nil {
		err := p.cache.Get(ctx, key, &closes)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			p.logger.Warn("price cache read failed", logger.String("symbol", symbol), logger.Error(err))
		}
	}

	if len(closes) == 0 {
		var resp historyResponse
		err := p.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodGet,
			URL:    p.baseURL + "/prices/daily",
			QueryParams: map[string][]string{
				"symbol": {symbol},
				"from":   {util.FormatDay(from)},
				"to":     {util.FormatDay(to)},
			},
		}, &resp)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", models.ErrDataUnavailable, symbol, err)
		}
		closes = resp.Closes
		if p.cache != nil && len(closes) > 0 {
			if err := p.cache.Set(ctx, key, closes, p.ttl); err != nil {
				p.logger.Warn("price cache write failed", logger.String("symbol", symbol), logger.Error(err))
			}
		}
	}

	raw := make([]models.DailyClose, 0, len(closes))
	for _, c := range closes {
		t, ok := util.ParseTime(c.Date)
		if !ok {
			continue
		}
		raw = append(raw, models.DailyClose{Date: t, Close: c.Close})
	}
	return models.SeriesFromCloses(symbol, raw)
}
