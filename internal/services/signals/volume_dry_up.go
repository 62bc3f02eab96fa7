package signals

import (
	"BreakoutScan/internal/domain/models"
	"BreakoutScan/internal/services/indicators"
)

// VolumeDryUp flags a pullback on light selling volume while price holds
// above its EMA support.
type VolumeDryUp struct {
	cfg VolumeDryUpConfig
}

// NewVolumeDryUp builds the detector; zero fields other than PullbackMaxGap
// take their defaults.
func NewVolumeDryUp(cfg VolumeDryUpConfig) *VolumeDryUp {
	return &VolumeDryUp{cfg: cfg.withDefaults()}
}

func (d *VolumeDryUp) Name() string { return models.DetectorVolumeDryUp }

func (d *VolumeDryUp) MinBars() int { return max(d.cfg.LookbackPeriod, d.cfg.EMAPeriod) }

func (d *VolumeDryUp) Evaluate(series, _ *models.PriceSeries) (models.SignalResult, error) {
	if n := series.Len(); n < d.MinBars() {
		return models.SignalResult{}, indicators.Insufficient(d.Name(), d.MinBars(), n)
	}

	closes := series.Closes()
	ema, err := indicators.EMA(closes, d.cfg.EMAPeriod)
	if err != nil {
		return models.SignalResult{}, err
	}

	window := series.Tail(d.cfg.LookbackPeriod)
	avgVolume := indicators.Mean(window.Volumes())
	last := series.Last()
	lastEMA := ema[len(ema)-1]

	res := newResult(d.Name())
	m := res.Metrics
	m["close"] = last.Close
	m["ema"] = lastEMA
	m["avg_volume"] = avgVolume
	m["closes_above_ema"] = float64(closesAbove(closes, ema, 3))

	var redVolumes, greenVolumes []float64
	for _, b := range window.Bars {
		switch {
		case b.IsRed():
			redVolumes = append(redVolumes, b.Volume)
		case b.IsGreen():
			greenVolumes = append(greenVolumes, b.Volume)
		}
	}
	redAvg := indicators.Mean(redVolumes)
	greenAvg := indicators.Mean(greenVolumes)
	m["red_days"] = float64(len(redVolumes))
	m["red_day_avg_volume"] = redAvg
	m["green_day_avg_volume"] = greenAvg
	if redAvg > 0 && greenAvg > 0 {
		m["red_green_spread"] = greenAvg / redAvg
	}

	if len(redVolumes) == 0 || avgVolume <= 0 || lastEMA <= 0 {
		return res, nil
	}

	pullback := mostRecentPullback(window.Bars, d.cfg.PullbackMaxGap)
	dry := 0
	ratioSum := 0.0
	for _, b := range pullback {
		r := b.Volume / avgVolume
		ratioSum += r
		if r < d.cfg.RedDayVolumeRatio {
			dry++
		}
	}
	ratio := ratioSum / float64(len(pullback))
	dryFraction := float64(dry) / float64(len(pullback))
	distance := (last.Close - lastEMA) / lastEMA
	held := last.Close > lastEMA

	m["pullback_red_days"] = float64(len(pullback))
	m["pullback_dry_fraction"] = dryFraction
	m["red_volume_ratio"] = ratio
	m["ema_distance_pct"] = distance * 100

	res.Triggered = dryFraction > 0.5 && held
	res.Score = clampScore(d.volumePoints(ratio) + d.emaPoints(distance, held))
	return res, nil
}

// volumePoints is 7 at zero volume, 4 at the ratio threshold and 0 at average
// volume or above; non-increasing in ratio.
func (d *VolumeDryUp) volumePoints(ratio float64) float64 {
	t := d.cfg.RedDayVolumeRatio
	switch {
	case ratio >= 1:
		return 0
	case ratio < t:
		return 4 + 3*(t-ratio)/t
	default:
		return 4 * (1 - ratio) / (1 - t)
	}
}

// emaPoints rewards a close just above the EMA; nothing below it or at
// MaxEMADistance and beyond.
func (d *VolumeDryUp) emaPoints(distance float64, held bool) float64 {
	if !held {
		return 0
	}
	return 3 * indicators.Clamp01(1-distance/d.cfg.MaxEMADistance)
}

// mostRecentPullback collects the red bars of the latest pullback, walking
// back from the last red bar and tolerating up to maxGap non-red bars in a row.
func mostRecentPullback(bars []models.Bar, maxGap int) []models.Bar {
	var out []models.Bar
	gap := 0
	for i := len(bars) - 1; i >= 0; i-- {
		if bars[i].IsRed() {
			out = append(out, bars[i])
			gap = 0
			continue
		}
		if len(out) == 0 {
			continue
		}
		gap++
		if gap > maxGap {
			break
		}
	}
	return out
}

func closesAbove(closes, ema []float64, n int) int {
	n = min(n, len(ema))
	count := 0
	for i := 1; i <= n; i++ {
		if closes[len(closes)-i] > ema[len(ema)-i] {
			count++
		}
	}
	return count
}
