package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"BreakoutScan/internal/domain/models"
	domrepo "BreakoutScan/internal/domain/repository"
	"BreakoutScan/pkg/logger"
	"BreakoutScan/pkg/util"

	"golang.org/x/sync/errgroup"
)

// Skip reasons recorded on SkippedTicker.
const (
	SkipNoData        = "no_data"
	SkipInvalidSeries = "invalid_series"
	SkipFetchError    = "fetch_error"
)

type ScannerConfig struct {
	Benchmark   string
	Concurrency int
	// MaxFailureRatio above which the run is reported as ErrDataSourceDown; >= 1 disables.
	MaxFailureRatio float64
}

// Scanner runs the engine over a ticker list on a bounded worker pool.
type Scanner struct {
	data    domrepo.MarketData
	engine  *Engine
	metrics domrepo.Metrics
	log     *logger.Logger
	cfg     ScannerConfig
	now     func() time.Time
}

func NewScanner(data domrepo.MarketData, engine *Engine, metrics domrepo.Metrics, l *logger.Logger, cfg ScannerConfig) *Scanner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.MaxFailureRatio <= 0 {
		cfg.MaxFailureRatio = 1
	}
	cfg.Benchmark = normalizeTicker(cfg.Benchmark)
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if l == nil {
		l = logger.Nop()
	}
	return &Scanner{data: data, engine: engine, metrics: metrics, log: l, cfg: cfg, now: time.Now}
}

func (s *Scanner) Benchmark() string { return s.cfg.Benchmark }

// Run scans tickers once. Benchmark loss is fatal. A cancelled context stops
// dispatching new tickers; what finished is kept and ranked.
func (s *Scanner) Run(ctx context.Context, tickers []string) (*models.ScanRun, error) {
	started := s.now()
	run := &models.ScanRun{
		ID:             started.UTC().Format("20060102T150405Z"),
		RunDate:        util.DayStart(started),
		Benchmark:      s.cfg.Benchmark,
		StartedAt:      started,
		AlertThreshold: s.engine.AlertThreshold(),
		Results:        make([]models.ScanResult, 0, len(tickers)),
	}
	l := s.log.With(logger.String("run_id", run.ID))

	minBars := s.engine.MinBars()
	bench, err := s.fetch(ctx, s.cfg.Benchmark, minBars)
	if err != nil {
		s.metrics.RecordError("benchmark")
		return nil, fmt.Errorf("fetch benchmark %s: %w", s.cfg.Benchmark, err)
	}
	run.BenchmarkClose = bench.Last().Close

	candidates := s.candidates(tickers)
	l.Info("scan started",
		logger.Int("tickers", len(candidates)),
		logger.String("benchmark", s.cfg.Benchmark),
		logger.Int("min_bars", minBars),
		logger.Int("workers", s.cfg.Concurrency))

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.cfg.Concurrency)
	for _, ticker := range candidates {
		if ctx.Err() != nil {
			break
		}
		// failures land in run.Skipped; the group never sees an error
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			res, skip := s.scanTicker(ctx, l, ticker, bench, minBars)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case res != nil:
				run.Results = append(run.Results, *res)
			case skip != nil:
				run.Skipped = append(run.Skipped, *skip)
			}
			return nil
		})
	}
	_ = g.Wait()

	run.Cancelled = ctx.Err() != nil
	run.Scanned = len(run.Results) + len(run.Skipped)
	Rank(run.Results)
	sortSkipped(run.Skipped)
	run.FinishedAt = s.now()

	alerts := len(run.Alerts())
	s.metrics.RecordRun(run.Scanned, alerts, len(run.Skipped))
	s.metrics.RecordLatency("scan_run", run.Duration().Seconds())
	l.Info("scan finished",
		logger.Int("scanned", run.Scanned),
		logger.Int("alerts", alerts),
		logger.Int("skipped", len(run.Skipped)),
		logger.Bool("cancelled", run.Cancelled),
		logger.Duration("duration_ms", run.Duration()))

	if run.Scanned > 0 && float64(len(run.Skipped))/float64(run.Scanned) > s.cfg.MaxFailureRatio {
		s.metrics.RecordError("data_source_down")
		return run, fmt.Errorf("%d of %d tickers failed: %w", len(run.Skipped), run.Scanned, models.ErrDataSourceDown)
	}
	return run, nil
}

// EvaluateOne fetches the benchmark and one ticker and evaluates it.
func (s *Scanner) EvaluateOne(ctx context.Context, ticker string) (models.ScanResult, error) {
	ticker = normalizeTicker(ticker)
	if ticker == "" {
		return models.ScanResult{}, fmt.Errorf("empty ticker: %w", models.ErrNoData)
	}
	minBars := s.engine.MinBars()
	bench, err := s.fetch(ctx, s.cfg.Benchmark, minBars)
	if err != nil {
		return models.ScanResult{}, fmt.Errorf("fetch benchmark %s: %w", s.cfg.Benchmark, err)
	}
	series, err := s.fetch(ctx, ticker, minBars)
	if err != nil {
		return models.ScanResult{}, fmt.Errorf("fetch %s: %w", ticker, err)
	}
	res := s.engine.Evaluate(series, bench)
	res.Ticker = ticker
	return res, nil
}

// scanTicker returns either a result or a skip record; both nil means the
// context was cancelled mid-fetch and the ticker does not count as scanned.
func (s *Scanner) scanTicker(ctx context.Context, l *logger.Logger, ticker string, bench *models.PriceSeries, minBars int) (*models.ScanResult, *models.SkippedTicker) {
	start := time.Now()
	series, err := s.fetch(ctx, ticker, minBars)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil
		}
		reason := skipReason(err)
		s.metrics.RecordTickerScanned(reason)
		s.metrics.RecordError(reason)
		l.Warn("ticker skipped", logger.String("ticker", ticker), logger.String("reason", reason), logger.Error(err))
		return nil, &models.SkippedTicker{Ticker: ticker, Reason: reason}
	}

	res := s.engine.Evaluate(series, bench)
	res.Ticker = ticker
	for _, sig := range res.Signals() {
		if sig.Evaluated {
			s.metrics.RecordSignal(sig.Detector, sig.Triggered, sig.Score)
		} else {
			s.metrics.RecordError(sig.Error)
		}
	}
	s.metrics.RecordTickerScanned("ok")
	s.metrics.RecordLatency("ticker", time.Since(start).Seconds())
	l.Debug("ticker evaluated",
		logger.String("ticker", ticker),
		logger.Int("score", res.TotalScore),
		logger.Int("signals_met", res.SignalsMet),
		logger.Strings("unevaluated", res.Unevaluated()))
	return &res, nil
}

// fetch applies the data-source contract. A shortfall with bars is not an
// error here: the engine marks the detectors that cannot run.
func (s *Scanner) fetch(ctx context.Context, symbol string, minBars int) (*models.PriceSeries, error) {
	series, err := s.data.Fetch(ctx, symbol, minBars)
	var short *models.HistoryShortfall
	if errors.As(err, &short) && short.Series.Len() > 0 {
		series, err = short.Series, nil
	}
	if err != nil {
		return nil, err
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}
	return series, nil
}

func (s *Scanner) candidates(tickers []string) []string {
	seen := make(map[string]struct{}, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = normalizeTicker(t)
		if t == "" || t == s.cfg.Benchmark {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, models.ErrNoData):
		return SkipNoData
	case errors.Is(err, models.ErrUnorderedSeries):
		return SkipInvalidSeries
	default:
		return SkipFetchError
	}
}

func sortSkipped(skipped []models.SkippedTicker) {
	sort.Slice(skipped, func(i, j int) bool { return skipped[i].Ticker < skipped[j].Ticker })
}

func normalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

type noopMetrics struct{}

func (noopMetrics) RecordTickerScanned(string)     {}
func (noopMetrics) RecordSignal(string, bool, int) {}
func (noopMetrics) RecordError(string)             {}
func (noopMetrics) RecordLatency(string, float64)  {}
func (noopMetrics) RecordRun(int, int, int)        {}
