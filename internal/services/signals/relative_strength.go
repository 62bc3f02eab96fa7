package signals

import (
	"fmt"

	"BreakoutScan/internal/domain/models"
	"BreakoutScan/internal/services/indicators"
)

// RelativeStrength flags a ticker that outperforms the benchmark over the
// lookback with the outperformance still widening.
type RelativeStrength struct {
	cfg RelativeStrengthConfig
}

// NewRelativeStrength builds the detector with defaults for zero fields.
func NewRelativeStrength(cfg RelativeStrengthConfig) *RelativeStrength {
	return &RelativeStrength{cfg: cfg.withDefaults()}
}

func (d *RelativeStrength) Name() string { return models.DetectorRelativeStrength }

// MinBars counts closes: an rsLookback-day return needs rsLookback+1 of them.
func (d *RelativeStrength) MinBars() int { return d.cfg.RSLookback + 1 }

func (d *RelativeStrength) Evaluate(series, benchmark *models.PriceSeries) (models.SignalResult, error) {
	need := d.MinBars()
	if n := series.Len(); n < need {
		return models.SignalResult{}, indicators.Insufficient(d.Name(), need, n)
	}
	if benchmark.Len() == 0 {
		return models.SignalResult{}, fmt.Errorf("%s: benchmark: %w", d.Name(), models.ErrNoData)
	}

	stock, bench := AlignCloses(series, benchmark)
	if len(stock) < need {
		return models.SignalResult{}, fmt.Errorf("%s: %d aligned bars, need %d: %w",
			d.Name(), len(stock), need, models.ErrAlignmentFailure)
	}
	stock = indicators.Tail(stock, need)
	bench = indicators.Tail(bench, need)

	curve, err := indicators.AnchoredRatio(stock, bench)
	if err != nil {
		return models.SignalResult{}, err
	}
	slope, _ := indicators.Slope(curve)
	daily, err := indicators.RollingRatio(stock, bench, 1)
	if err != nil {
		return models.SignalResult{}, err
	}

	ratio := curve[len(curve)-1]
	stockChange := stock[len(stock)-1]/stock[0] - 1
	benchChange := bench[len(bench)-1]/bench[0] - 1
	outperforming := ratio-1 > slopeEpsilon
	accelerating := slope > slopeEpsilon

	daysOutperforming := 0
	for _, r := range daily {
		if r-1 > slopeEpsilon {
			daysOutperforming++
		}
	}

	res := newResult(d.Name())
	m := res.Metrics
	m["rs_ratio"] = ratio
	m["rs_slope"] = slope
	m["outperformance_pct"] = (stockChange - benchChange) * 100
	m["stock_change_pct"] = stockChange * 100
	m["benchmark_change_pct"] = benchChange * 100
	m["days_outperforming"] = float64(daysOutperforming)
	m["aligned_bars"] = float64(len(curve))

	res.Triggered = outperforming && accelerating
	res.Score = clampScore(
		5*indicators.Clamp01((ratio-1)/d.cfg.OutperformanceFull) +
			5*indicators.Clamp01(slope/d.cfg.SlopeFull),
	)
	return res, nil
}

// AlignCloses keeps only the calendar dates present in both series and
// returns their closes in date order.
func AlignCloses(series, benchmark *models.PriceSeries) (stock, bench []float64) {
	byDate := make(map[string]float64, benchmark.Len())
	for _, b := range benchmark.Bars {
		byDate[models.DateKey(b.Date)] = b.Close
	}
	stock = make([]float64, 0, series.Len())
	bench = make([]float64, 0, series.Len())
	for _, b := range series.Bars {
		if c, ok := byDate[models.DateKey(b.Date)]; ok {
			stock = append(stock, b.Close)
			bench = append(bench, c)
		}
	}
	return stock, bench
}
