package repository

import (
	"context"
	"errors"
	"time"

	"BreakoutScan/internal/domain/models"
	domrepo "BreakoutScan/internal/domain/repository"
	"BreakoutScan/pkg/cache"
	"BreakoutScan/pkg/logger"
)

// cachedSeries is the stored form; Short marks a HistoryShortfall.
type cachedSeries struct {
	Series *models.PriceSeries `json:"series"`
	Short  bool                `json:"short,omitempty"`
}

// CachedMarketData memoizes a MarketData source per symbol, day and window.
// Source errors other than a history shortfall are never cached.
type CachedMarketData struct {
	next  domrepo.MarketData
	cache cache.Service
	ttl   time.Duration
	log   *logger.Logger
	now   func() time.Time
}

func NewCachedMarketData(next domrepo.MarketData, c cache.Service, ttl time.Duration, l *logger.Logger) *CachedMarketData {
	if l == nil {
		l = logger.Nop()
	}
	return &CachedMarketData{next: next, cache: c, ttl: ttl, log: l, now: time.Now}
}

func (c *CachedMarketData) Fetch(ctx context.Context, symbol string, minBars int) (*models.PriceSeries, error) {
	key := cache.GenerateKeyWithParams("bars", symbol, models.DateKey(c.now()), minBars)

	var hit cachedSeries
	switch err := c.cache.Get(ctx, key, &hit); {
	case err == nil && hit.Series != nil:
		if hit.Short {
			return hit.Series, &models.HistoryShortfall{Need: minBars, Series: hit.Series}
		}
		return hit.Series, nil
	case err != nil && !errors.Is(err, cache.ErrCacheMiss):
		c.log.Warn("bar cache read failed", logger.String("key", key), logger.Error(err))
	}

	series, err := c.next.Fetch(ctx, symbol, minBars)
	var short *models.HistoryShortfall
	switch {
	case err == nil:
		c.store(ctx, key, cachedSeries{Series: series})
	case errors.As(err, &short) && short.Series.Len() > 0:
		c.store(ctx, key, cachedSeries{Series: short.Series, Short: true})
	}
	return series, err
}

func (c *CachedMarketData) store(ctx context.Context, key string, v cachedSeries) {
	if err := c.cache.Set(ctx, key, v, c.ttl); err != nil {
		c.log.Warn("bar cache write failed", logger.String("key", key), logger.Error(err))
	}
}
