package usecase

import (
	"fmt"

	"BreakoutScan/internal/domain/models"
	domsvc "BreakoutScan/internal/domain/service"
)

// EngineConfig holds the aggregation policy and the configured fetch floor.
type EngineConfig struct {
	AlertThreshold int
	Tiers          AlertTiers
	// MinBars is the smallest history requested from data sources.
	MinBars int
}

// Engine evaluates one ticker against the three detectors.
type Engine struct {
	volume   domsvc.Detector
	momentum domsvc.Detector
	strength domsvc.Detector
	cfg      EngineConfig
}

func NewEngine(volume, momentum, strength domsvc.Detector, cfg EngineConfig) *Engine {
	if cfg.AlertThreshold <= 0 {
		cfg.AlertThreshold = DefaultAlertThreshold
	}
	if cfg.Tiers == (AlertTiers{}) {
		cfg.Tiers = DefaultAlertTiers()
	}
	return &Engine{volume: volume, momentum: momentum, strength: strength, cfg: cfg}
}

func (e *Engine) AlertThreshold() int { return e.cfg.AlertThreshold }

// MinBars is the fetch size: the longest detector requirement, floored at
// the configured minimum.
func (e *Engine) MinBars() int {
	return max(e.cfg.MinBars, e.volume.MinBars(), e.momentum.MinBars(), e.strength.MinBars())
}

// Evaluate runs every detector. A failing detector yields its marker and
// never stops the others.
func (e *Engine) Evaluate(series, benchmark *models.PriceSeries) models.ScanResult {
	a := run(e.volume, series, benchmark)
	b := run(e.momentum, series, benchmark)
	c := run(e.strength, series, benchmark)
	return Aggregate(series.Symbol, series, a, b, c, e.cfg.AlertThreshold, e.cfg.Tiers)
}

func run(d domsvc.Detector, series, benchmark *models.PriceSeries) (res models.SignalResult) {
	defer func() {
		if r := recover(); r != nil {
			res = models.Unevaluated(d.Name(), fmt.Errorf("panic in %s: %v", d.Name(), r))
		}
	}()
	res, err := d.Evaluate(series, benchmark)
	if err != nil {
		return models.Unevaluated(d.Name(), err)
	}
	return res
}
