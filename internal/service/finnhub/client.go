package finnhub

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"BreakoutScan/internal/domain/models"
	"BreakoutScan/internal/service/ratelimit"
	apphttp "BreakoutScan/pkg/http"
	"BreakoutScan/pkg/logger"
	"BreakoutScan/pkg/util"
)

const limiterKey = "finnhub"

// Config holds the REST endpoint, credentials and throttle settings.
type Config struct {
	APIKey     string
	BaseURL    string
	RatePerSec float64
	Burst      int
	// MaxRetries applies to throttled (429) and 5xx responses.
	MaxRetries int
	RetryDelay time.Duration
}

// CandleClient implements repository.MarketData over the Finnhub daily
// candle endpoint.
type CandleClient struct {
	cfg     Config
	http    *apphttp.Client
	limiter *ratelimit.Limiter
	log     *logger.Logger
	now     func() time.Time
}

// New creates a candle client. A nil limiter gets a private one.
func New(cfg Config, client *apphttp.Client, limiter *ratelimit.Limiter, l *logger.Logger) *CandleClient {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if limiter == nil {
		limiter = ratelimit.New()
	}
	if l == nil {
		l = logger.Nop()
	}
	return &CandleClient{
		cfg:     cfg,
		http:    client,
		limiter: limiter,
		log:     l,
		now:     time.Now,
	}
}

// candleResponse is the column-oriented payload of /stock/candle.
type candleResponse struct {
	Status string    `json:"s"`
	Time   []int64   `json:"t"`
	Open   []float64 `json:"o"`
	High   []float64 `json:"h"`
	Low    []float64 `json:"l"`
	Close  []float64 `json:"c"`
	Volume []float64 `json:"v"`
}

// Fetch returns the most recent minBars daily bars for symbol.
func (c *CandleClient) Fetch(ctx context.Context, symbol string, minBars int) (*models.PriceSeries, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	from, to := util.TradingWindow(c.now(), minBars)

	opts := &apphttp.RequestOptions{
		Method: apphttp.MethodGet,
		URL:    strings.TrimRight(c.cfg.BaseURL, "/") + "/stock/candle",
		QueryParams: map[string][]string{
			"symbol":     {symbol},
			"resolution": {"D"},
			"from":       {strconv.FormatInt(from.Unix(), 10)},
			"to":         {strconv.FormatInt(to.Unix(), 10)},
			"token":      {c.cfg.APIKey},
		},
		Headers: map[string]string{"Accept": "application/json"},
	}

	var resp candleResponse
	if err := c.do(ctx, symbol, opts, &resp); err != nil {
		return nil, err
	}

	series, err := toSeries(symbol, &resp)
	if err != nil {
		return nil, err
	}
	checked, err := models.CheckHistory(series, minBars)
	if err != nil {
		return checked, err
	}
	return checked.Tail(minBars), nil
}

func (c *CandleClient) do(ctx context.Context, symbol string, opts *apphttp.RequestOptions, dest *candleResponse) error {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.cfg.RetryDelay * time.Duration(1<<(attempt-1))
			c.log.Warn("finnhub retry",
				logger.String("symbol", symbol),
				logger.Int("attempt", attempt),
				logger.Duration("delay", delay),
				logger.Error(lastErr))
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}

		if err := c.limiter.Wait(ctx, limiterKey, float64(c.cfg.Burst), c.cfg.RatePerSec); err != nil {
			return err
		}

		err := c.http.SendAndParse(ctx, opts, dest)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil || !unavailable(err) {
			break
		}
	}
	if ctx.Err() == nil && unavailable(lastErr) {
		return fmt.Errorf("finnhub candles %s: %w: %w", symbol, models.ErrDataSourceDown, lastErr)
	}
	return fmt.Errorf("finnhub candles %s: %w", symbol, lastErr)
}

// unavailable reports throttling, 5xx and transport failures.
func unavailable(err error) bool {
	var se *apphttp.StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	var ue *url.Error
	return errors.As(err, &ue)
}

func toSeries(symbol string, r *candleResponse) (*models.PriceSeries, error) {
	if r.Status == "no_data" || len(r.Time) == 0 {
		return nil, fmt.Errorf("finnhub %s: %w", symbol, models.ErrNoData)
	}
	if r.Status != "ok" {
		return nil, fmt.Errorf("finnhub %s: unexpected status %q", symbol, r.Status)
	}
	n := len(r.Time)
	if len(r.Open) != n || len(r.High) != n || len(r.Low) != n || len(r.Close) != n || len(r.Volume) != n {
		return nil, fmt.Errorf("finnhub %s: ragged candle columns (%d timestamps)", symbol, n)
	}

	bars := make([]models.Bar, n)
	for i := 0; i < n; i++ {
		bars[i] = models.Bar{
			Date:   util.DayStart(time.Unix(r.Time[i], 0)),
			Open:   r.Open[i],
			High:   r.High[i],
			Low:    r.Low[i],
			Close:  r.Close[i],
			Volume: r.Volume[i],
		}
	}
	return &models.PriceSeries{Symbol: symbol, Bars: bars}, nil
}
