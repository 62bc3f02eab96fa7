package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"BreakoutScan/internal/domain/models"
	"BreakoutScan/internal/services/signals"
)

var day0 = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func bar(i int, open, close, volume float64) models.Bar {
	return models.Bar{
		Date:   day0.AddDate(0, 0, i),
		Open:   open,
		High:   max(open, close) + 0.5,
		Low:    min(open, close) - 0.5,
		Close:  close,
		Volume: volume,
	}
}

// breakoutSeries triggers all three detectors against a flat benchmark:
// volume dry-up 6, momentum 5, relative strength 10.
func breakoutSeries(symbol string) *models.PriceSeries {
	s := &models.PriceSeries{Symbol: symbol}
	i := 0
	for ; i < 45; i++ {
		c := 100 + 0.5*float64(i)
		s.Bars = append(s.Bars, bar(i, c-0.3, c, 1_000_000))
	}
	c := s.Last().Close
	for k := 0; k < 10; k, i = k+1, i+1 {
		c -= 0.6
		s.Bars = append(s.Bars, bar(i, c+0.3, c, 400_000))
	}
	for k := 0; k < 5; k, i = k+1, i+1 {
		c += 2.0
		s.Bars = append(s.Bars, bar(i, c-0.5, c, 1_500_000))
	}
	return s
}

func flatSeries(symbol string, n int, price float64) *models.PriceSeries {
	s := &models.PriceSeries{Symbol: symbol}
	for i := 0; i < n; i++ {
		s.Bars = append(s.Bars, bar(i, price, price, 1_000_000))
	}
	return s
}

func newTestEngine() *Engine {
	return NewEngine(
		signals.NewVolumeDryUp(signals.DefaultVolumeDryUpConfig()),
		signals.NewMomentumDivergence(signals.DefaultMomentumConfig()),
		signals.NewRelativeStrength(signals.DefaultRelativeStrengthConfig()),
		EngineConfig{AlertThreshold: 2, Tiers: DefaultAlertTiers(), MinBars: 60},
	)
}

func signal(detector string, triggered bool, score int) models.SignalResult {
	return models.SignalResult{Detector: detector, Triggered: triggered, Score: score, Evaluated: true}
}

func result(ticker string, score, met int) models.ScanResult {
	return models.ScanResult{Ticker: ticker, TotalScore: score, SignalsMet: met}
}

// fakeData serves fixed series; errs take precedence. onFetch runs before
// each lookup.
type fakeData struct {
	mu      sync.Mutex
	series  map[string]*models.PriceSeries
	errs    map[string]error
	calls   map[string]int
	onFetch func(symbol string)
}

func newFakeData() *fakeData {
	return &fakeData{
		series: make(map[string]*models.PriceSeries),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (f *fakeData) Fetch(_ context.Context, symbol string, minBars int) (*models.PriceSeries, error) {
	f.mu.Lock()
	f.calls[symbol]++
	hook := f.onFetch
	s, ok := f.series[symbol]
	err := f.errs[symbol]
	f.mu.Unlock()

	if hook != nil {
		hook(symbol)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, models.ErrNoData)
	}
	return models.CheckHistory(s, minBars)
}

func (f *fakeData) callCount(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

type fakeMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
	signals  map[string]int
	errors   map[string]int
	runs     [][3]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{outcomes: map[string]int{}, signals: map[string]int{}, errors: map[string]int{}}
}

func (m *fakeMetrics) RecordTickerScanned(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[outcome]++
}

func (m *fakeMetrics) RecordSignal(detector string, triggered bool, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if triggered {
		m.signals[detector]++
	}
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *fakeMetrics) RecordLatency(string, float64) {}

func (m *fakeMetrics) RecordRun(scanned, alerts, skipped int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, [3]int{scanned, alerts, skipped})
}
