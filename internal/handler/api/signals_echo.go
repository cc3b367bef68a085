package api

import (
	"context"
	"errors"
	"time"

	"LPPLWatch/internal/domain/models"
	"LPPLWatch/internal/usecase"
	xhttp "LPPLWatch/pkg/http"
	"LPPLWatch/pkg/http/middleware"
	xlogger "LPPLWatch/pkg/logger"
	"LPPLWatch/pkg/util"

	"github.com/labstack/echo/v4"
)

// SignalReader is the read side used by the handlers.
type SignalReader interface {
	Clusters(ctx context.Context, symbol string, label models.SignalLabel, limit int) ([]models.Cluster, error)
	Confidence(ctx context.Context, symbol string, from, to time.Time) ([]models.AggregatedRow, error)
	LastBatch() *models.BatchOutcome
}

// SignalsEchoHandler serves signal clusters, confidence series and batch
// runs over Echo.
type SignalsEchoHandler struct {
	logger  *xlogger.Logger
	query   SignalReader
	trigger usecase.RunTrigger
	limiter *middleware.Limiter
}

var _ xhttp.Handler = (*SignalsEchoHandler)(nil)

func NewSignalsEchoHandler(logger *xlogger.Logger, query SignalReader, trigger usecase.RunTrigger) *SignalsEchoHandler {
	return &SignalsEchoHandler{
		logger:  logger,
		query:   query,
		trigger: trigger,
		limiter: middleware.NewLimiter(3, 6),
	}
}

func (h *SignalsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/instruments/:symbol/signals", h.Signals)
	g.GET("/instruments/:symbol/confidence", h.Confidence)
	g.GET("/runs/latest", h.LatestRun)
	g.POST("/runs", h.TriggerRun, middleware.RateLimit(h.limiter))
}

func (h *SignalsEchoHandler) Signals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.BindAndValidate(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	clusters, err := h.query.Clusters(c.Request().Context(), req.Symbol, models.SignalLabel(req.Label), req.Limit)
	if err != nil {
		return h.fail(c, "signals", err)
	}
	rows := make([]clusterDTO, 0, len(clusters))
	for _, cl := range clusters {
		rows = append(rows, toClusterDTO(cl))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *SignalsEchoHandler) Confidence(c echo.Context) error {
	req := &models.ConfidenceRequest{}
	if verr := xhttp.BindAndValidate(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, _ := util.ParseTime(req.From)
	to, _ := util.ParseTime(req.To)

	data, err := h.query.Confidence(c.Request().Context(), req.Symbol, from, to)
	if err != nil {
		return h.fail(c, "confidence", err)
	}
	rows := make([]confidenceDTO, 0, len(data))
	for _, r := range data {
		rows = append(rows, confidenceDTO{Date: util.FormatDay(r.Time), Price: r.Price, PosConf: r.PosConf, NegConf: r.NegConf})
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *SignalsEchoHandler) LatestRun(c echo.Context) error {
	batch := h.query.LastBatch()
	if batch == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no batch has finished yet"))
	}
	return xhttp.SuccessResponse(c, toBatchDTO(batch))
}

func (h *SignalsEchoHandler) TriggerRun(c echo.Context) error {
	req := &models.RunRequest{}
	if verr := xhttp.BindAndValidate(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	id, err := h.trigger.Trigger(c.Request().Context(), req.Symbols)
	if err != nil {
		return h.fail(c, "trigger run", err)
	}
	h.logger.Info("batch triggered", xlogger.String("id", id), xlogger.Strings("symbols", req.Symbols))
	return xhttp.AcceptedResponse(c, map[string]string{"id": id})
}

func (h *SignalsEchoHandler) fail(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, usecase.ErrSymbolNotFound):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("%s", err.Error()))
	case errors.Is(err, usecase.ErrBatchInProgress):
		return xhttp.AppErrorResponse(c, xhttp.ConflictError(err.Error()))
	}
	h.logger.Error(op+" usecase error", xlogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}
