package repository

import (
	"context"

	"BreakoutScan/internal/domain/models"
)

// MarketData supplies daily bars for a symbol. Implementations return
// models.ErrNoData when the source has nothing and models.ErrInsufficientHistory
// when fewer than minBars bars are available.
type MarketData interface {
	Fetch(ctx context.Context, symbol string, minBars int) (*models.PriceSeries, error)
}

// TickerSource loads the watch-list.
type TickerSource interface {
	Load(ctx context.Context) ([]string, error)
}

// ResultSink persists a finalized scan run.
type ResultSink interface {
	Name() string
	Save(ctx context.Context, run *models.ScanRun) error
}

// Notifier delivers the alert subset of a run.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, run *models.ScanRun, alerts []models.ScanResult) error
}

// RunStore keeps the latest finalized run for readers.
type RunStore interface {
	Save(ctx context.Context, run *models.ScanRun) error
	Latest(ctx context.Context) (*models.ScanRun, error)
}

type Metrics interface {
	RecordTickerScanned(outcome string)
	RecordSignal(detector string, triggered bool, score int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordRun(scanned, alerts, skipped int)
}
