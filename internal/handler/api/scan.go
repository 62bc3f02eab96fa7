package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"BreakoutScan/internal/domain/models"
	domrepo "BreakoutScan/internal/domain/repository"
	"BreakoutScan/internal/service/ratelimit"
	xhttp "BreakoutScan/pkg/http"
	xlogger "BreakoutScan/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Evaluator runs the detectors for one ticker on demand.
type Evaluator interface {
	EvaluateOne(ctx context.Context, ticker string) (models.ScanResult, error)
}

// Enqueuer accepts on-demand scan requests for the serving workers.
type Enqueuer interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error)
}

// RateLimit bounds on-demand evaluations per client IP.
type RateLimit struct {
	Burst        float64
	RefillPerSec float64
}

// ScanHandler serves the latest scan run and on-demand evaluations.
type ScanHandler struct {
	logger *xlogger.Logger
	runs   domrepo.RunStore
	eval   Evaluator
	jobs   Enqueuer
	rl     *ratelimit.Limiter
	limit  RateLimit
}

// NewScanHandler builds the handler; a nil jobs disables POST /run.
func NewScanHandler(logger *xlogger.Logger, runs domrepo.RunStore, eval Evaluator, jobs Enqueuer, rl *ratelimit.Limiter, limit RateLimit) *ScanHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	if rl == nil {
		rl = ratelimit.New()
	}
	if limit.Burst < 1 {
		limit.Burst = 5
	}
	if limit.RefillPerSec <= 0 {
		limit.RefillPerSec = 0.2
	}
	return &ScanHandler{logger: logger, runs: runs, eval: eval, jobs: jobs, rl: rl, limit: limit}
}

func (h *ScanHandler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/scan")
	g.GET("/latest", h.Latest)
	g.GET("/ticker", h.Ticker)
	g.GET("/skipped", h.Skipped)
	g.POST("/evaluate", h.Evaluate)
	g.POST("/run", h.RequestRun)
}

// RunQueued is returned when a scan request was accepted.
type RunQueued struct {
	JobID   string `json:"job_id"`
	Tickers int    `json:"tickers"`
}

// RunSummary is the run header returned with list responses.
type RunSummary struct {
	ID             string  `json:"id"`
	RunDate        string  `json:"run_date"`
	Benchmark      string  `json:"benchmark"`
	Scanned        int     `json:"scanned"`
	Alerts         int     `json:"alerts"`
	Skipped        int     `json:"skipped"`
	AlertThreshold int     `json:"alert_threshold"`
	DurationSec    float64 `json:"duration_sec"`
	Cancelled      bool    `json:"cancelled"`
}

// LatestResponse wraps the ranked rows of the latest run.
type LatestResponse struct {
	Run RunSummary `json:"run"`
	*xhttp.ListDataResponse
}

func summarize(run *models.ScanRun) RunSummary {
	return RunSummary{
		ID:             run.ID,
		RunDate:        models.DateKey(run.RunDate),
		Benchmark:      run.Benchmark,
		Scanned:        run.Scanned,
		Alerts:         len(run.Alerts()),
		Skipped:        len(run.Skipped),
		AlertThreshold: run.AlertThreshold,
		DurationSec:    run.Duration().Seconds(),
		Cancelled:      run.Cancelled,
	}
}

func (h *ScanHandler) Latest(c echo.Context) error {
	req := &models.LatestScanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	run, err := h.runs.Latest(c.Request().Context())
	if err != nil {
		return h.fail(c, "latest", err)
	}

	rows := run.Results
	if req.AlertsOnly {
		rows = run.Alerts()
	}
	total := len(rows)
	if len(rows) > req.Limit {
		rows = rows[:req.Limit]
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, LatestResponse{
		Run:              summarize(run),
		ListDataResponse: &xhttp.ListDataResponse{Rows: rows, Total: int64(total)},
	})
}

func (h *ScanHandler) Ticker(c echo.Context) error {
	req := &models.TickerResultRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))

	run, err := h.runs.Latest(c.Request().Context())
	if err != nil {
		return h.fail(c, "ticker", err)
	}
	res, ok := run.Find(symbol)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("%s is not in run %s", symbol, run.ID).WithParam("symbol", symbol))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ScanHandler) Skipped(c echo.Context) error {
	run, err := h.runs.Latest(c.Request().Context())
	if err != nil {
		return h.fail(c, "skipped", err)
	}
	rows := run.Skipped
	if rows == nil {
		rows = []models.SkippedTicker{}
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *ScanHandler) Evaluate(c echo.Context) error {
	req := &models.EvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if !h.rl.Allow("evaluate:"+c.RealIP(), h.limit.Burst, h.limit.RefillPerSec) {
		h.logger.Warn("scan.evaluate rate_limited", xlogger.String("remote", c.RealIP()))
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many evaluations, retry later"))
	}

	res, err := h.eval.EvaluateOne(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.fail(c, "evaluate", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ScanHandler) RequestRun(c echo.Context) error {
	if h.jobs == nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("scan queue is not configured"))
	}
	req := &models.ScanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if !h.rl.Allow("run:"+c.RealIP(), h.limit.Burst, h.limit.RefillPerSec) {
		h.logger.Warn("scan.run rate_limited", xlogger.String("remote", c.RealIP()))
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many scan requests, retry later"))
	}

	for i, t := range req.Tickers {
		req.Tickers[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	if req.RequestedBy == "" {
		req.RequestedBy = c.RealIP()
	}
	req.RequestedAt = time.Now().UTC()

	id, err := h.jobs.Enqueue(c.Request().Context(), models.JobTypeScan, req)
	if err != nil {
		h.logger.Error("scan.run enqueue error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("scan queue unavailable").WithError(err))
	}
	h.logger.Info("scan.run queued", xlogger.String("job_id", id), xlogger.Int("tickers", len(req.Tickers)))
	return xhttp.DataResponse(c, http.StatusAccepted, RunQueued{JobID: id, Tickers: len(req.Tickers)})
}

// fail maps domain errors onto API errors.
func (h *ScanHandler) fail(c echo.Context, op string, err error) error {
	var (
		appErr   *xhttp.AppError
		upstream *xhttp.StatusError
	)
	switch {
	case errors.Is(err, models.ErrNoRun):
		appErr = xhttp.NotFoundError("no scan run available yet")
	case errors.Is(err, models.ErrNoData):
		appErr = xhttp.NotFoundError("no market data for symbol")
	case errors.Is(err, models.ErrRunInProgress):
		appErr = xhttp.ConflictError("scan already running")
	case errors.Is(err, models.ErrUnorderedSeries), errors.Is(err, models.ErrInsufficientHistory):
		appErr = xhttp.BadGatewayError("market data unusable")
	case errors.As(err, &upstream):
		h.logger.Warn("scan "+op+" upstream error", xlogger.Int("status", upstream.Code), xlogger.Error(err))
		appErr = xhttp.BadGatewayError("market data provider error")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		appErr = xhttp.BadGatewayError("market data request timed out")
	default:
		h.logger.Error("scan "+op+" error", xlogger.Error(err))
		appErr = xhttp.InternalError("scan " + op + " failed")
	}
	return xhttp.AppErrorResponse(c, appErr.WithError(err))
}
