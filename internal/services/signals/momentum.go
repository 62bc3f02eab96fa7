package signals

import (
	"math"

	"BreakoutScan/internal/domain/models"
	"BreakoutScan/internal/services/indicators"
)

// MomentumDivergence flags strengthening momentum under a flat or falling
// price: RSI divergence, a fresh MACD histogram cross and rising OBV.
type MomentumDivergence struct {
	cfg MomentumConfig
}

// NewMomentumDivergence builds the detector with defaults for zero fields.
func NewMomentumDivergence(cfg MomentumConfig) *MomentumDivergence {
	return &MomentumDivergence{cfg: cfg.withDefaults()}
}

func (d *MomentumDivergence) Name() string { return models.DetectorMomentumDivergence }

func (d *MomentumDivergence) MinBars() int {
	c := d.cfg
	return max(
		c.RSIPeriod+c.RSILookback,
		c.MACDSlow+c.MACDSignal-1+c.MACDLookback,
		c.OBVLookback+1,
	)
}

func (d *MomentumDivergence) Evaluate(series, _ *models.PriceSeries) (models.SignalResult, error) {
	if n := series.Len(); n < d.MinBars() {
		return models.SignalResult{}, indicators.Insufficient(d.Name(), d.MinBars(), n)
	}
	c := d.cfg

	closes := series.Closes()
	volumes := series.Volumes()
	rsi, err := indicators.RSI(closes, c.RSIPeriod)
	if err != nil {
		return models.SignalResult{}, err
	}
	hist, err := indicators.MACDHistogram(closes, c.MACDFast, c.MACDSlow, c.MACDSignal)
	if err != nil {
		return models.SignalResult{}, err
	}
	obv, err := indicators.OBV(closes, volumes)
	if err != nil {
		return models.SignalResult{}, err
	}

	res := newResult(d.Name())
	m := res.Metrics

	// (a) RSI rising while price is flat to down
	rsiWindow := indicators.Tail(rsi, c.RSILookback)
	priceWindow := indicators.Tail(closes, c.RSILookback)
	rsiSlope, _ := indicators.Slope(rsiWindow)
	priceSlope, _ := indicators.Slope(priceWindow)
	priceSlopePct := 0.0
	if mean := indicators.Mean(priceWindow); mean > 0 {
		priceSlopePct = priceSlope / mean
	}
	rsiRising := !indicators.IsFlat(priceWindow) && rsiSlope > slopeEpsilon
	divergence := rsiRising && priceSlopePct <= c.PriceFlatTolerance

	// (b) histogram crossed from negative to positive and is still positive
	histWindow := indicators.Tail(hist, c.MACDLookback+1)
	eps := 1e-9 * math.Abs(series.Last().Close)
	crossed := false
	deepest := 0.0
	for i, h := range histWindow {
		if h < deepest {
			deepest = h
		}
		if i > 0 && histWindow[i-1] < -eps && h > eps {
			crossed = true
		}
	}
	lastHist := hist[len(hist)-1]
	macdCross := crossed && lastHist > eps

	// (c) OBV trending up
	obvWindow := indicators.Tail(obv, c.OBVLookback)
	obvSlope, _ := indicators.Slope(obvWindow)
	obvRising := obvSlope > slopeEpsilon
	daysRising := 0
	for i := 1; i < len(obvWindow); i++ {
		if obvWindow[i] > obvWindow[i-1] {
			daysRising++
		}
	}
	avgVolume := indicators.Mean(indicators.Tail(volumes, c.OBVLookback))

	checks := 0
	points := 0.0
	if divergence {
		checks++
		points += 2 + 2*indicators.Clamp01(rsiSlope/c.RSISlopeFull)
	}
	if macdCross {
		checks++
		points += 2 + indicators.Clamp01(lastHist/math.Abs(deepest))
	}
	if obvRising {
		checks++
		strength := 0.0
		if avgVolume > 0 {
			strength = indicators.Clamp01(obvSlope / avgVolume)
		}
		points += 1 + 2*strength
	}

	lastRSI := rsi[len(rsi)-1]
	m["rsi"] = lastRSI
	m["rsi_slope"] = rsiSlope
	m["price_slope_pct"] = priceSlopePct * 100
	m["macd_histogram"] = lastHist
	if len(hist) > 1 {
		m["macd_histogram_prev"] = hist[len(hist)-2]
	}
	m["obv_slope"] = obvSlope
	m["obv_days_rising"] = float64(daysRising)
	m["rsi_divergence"] = boolMetric(divergence)
	m["macd_cross"] = boolMetric(macdCross)
	m["obv_rising"] = boolMetric(obvRising)
	m["checks_passed"] = float64(checks)
	m["rsi_accumulation_zone"] = boolMetric(lastRSI >= c.AccumulationLow && lastRSI <= c.AccumulationHigh)

	res.Triggered = checks >= c.MinSubChecks
	res.Score = clampScore(points)
	return res, nil
}
