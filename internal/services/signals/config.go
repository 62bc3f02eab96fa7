package signals

import "fmt"

// VolumeDryUpConfig parameterises the volume dry-up detector.
type VolumeDryUpConfig struct {
	LookbackPeriod    int
	RedDayVolumeRatio float64
	EMAPeriod         int
	// PullbackMaxGap is how many non-red bars may separate red days of one pullback.
	PullbackMaxGap int
	// MaxEMADistance is the fractional distance above the EMA that earns no proximity points.
	MaxEMADistance float64
}

// DefaultVolumeDryUpConfig returns the standard 20-bar, 21-EMA settings.
func DefaultVolumeDryUpConfig() VolumeDryUpConfig {
	return VolumeDryUpConfig{
		LookbackPeriod:    20,
		RedDayVolumeRatio: 0.7,
		EMAPeriod:         21,
		PullbackMaxGap:    1,
		MaxEMADistance:    0.10,
	}
}

// withDefaults fills zero fields. PullbackMaxGap is left alone: zero asks for
// strictly consecutive red days.
func (c VolumeDryUpConfig) withDefaults() VolumeDryUpConfig {
	d := DefaultVolumeDryUpConfig()
	if c.LookbackPeriod == 0 {
		c.LookbackPeriod = d.LookbackPeriod
	}
	if c.RedDayVolumeRatio == 0 {
		c.RedDayVolumeRatio = d.RedDayVolumeRatio
	}
	if c.EMAPeriod == 0 {
		c.EMAPeriod = d.EMAPeriod
	}
	if c.MaxEMADistance == 0 {
		c.MaxEMADistance = d.MaxEMADistance
	}
	return c
}

// Validate rejects periods and ratios the detector cannot evaluate.
func (c VolumeDryUpConfig) Validate() error {
	if c.LookbackPeriod < 2 {
		return fmt.Errorf("volume dry-up: lookback_period must be >= 2, got %d", c.LookbackPeriod)
	}
	if c.EMAPeriod < 1 {
		return fmt.Errorf("volume dry-up: ema_period must be >= 1, got %d", c.EMAPeriod)
	}
	if c.RedDayVolumeRatio <= 0 {
		return fmt.Errorf("volume dry-up: red_day_volume_ratio must be > 0, got %g", c.RedDayVolumeRatio)
	}
	if c.PullbackMaxGap < 0 || c.MaxEMADistance <= 0 {
		return fmt.Errorf("volume dry-up: pullback_max_gap >= 0 and max_ema_distance > 0 required")
	}
	return nil
}

// MomentumConfig parameterises the momentum divergence detector.
type MomentumConfig struct {
	RSIPeriod    int
	RSILookback  int
	OBVLookback  int
	MACDFast     int
	MACDSlow     int
	MACDSignal   int
	MACDLookback int
	// PriceFlatTolerance is the highest normalised price slope (fraction per bar)
	// still counted as flat-to-down.
	PriceFlatTolerance float64
	MinSubChecks       int
	// RSISlopeFull is the RSI slope (points per bar) that earns full divergence strength.
	RSISlopeFull     float64
	AccumulationLow  float64
	AccumulationHigh float64
}

// DefaultMomentumConfig returns RSI 14, MACD 12/26/9 and a 2-of-3 majority.
func DefaultMomentumConfig() MomentumConfig {
	return MomentumConfig{
		RSIPeriod:          14,
		RSILookback:        5,
		OBVLookback:        5,
		MACDFast:           12,
		MACDSlow:           26,
		MACDSignal:         9,
		MACDLookback:       5,
		PriceFlatTolerance: 0.002,
		MinSubChecks:       2,
		RSISlopeFull:       2.0,
		AccumulationLow:    40,
		AccumulationHigh:   65,
	}
}

func (c MomentumConfig) withDefaults() MomentumConfig {
	d := DefaultMomentumConfig()
	if c.RSIPeriod == 0 {
		c.RSIPeriod = d.RSIPeriod
	}
	if c.RSILookback == 0 {
		c.RSILookback = d.RSILookback
	}
	if c.OBVLookback == 0 {
		c.OBVLookback = d.OBVLookback
	}
	if c.MACDFast == 0 {
		c.MACDFast = d.MACDFast
	}
	if c.MACDSlow == 0 {
		c.MACDSlow = d.MACDSlow
	}
	if c.MACDSignal == 0 {
		c.MACDSignal = d.MACDSignal
	}
	if c.MACDLookback == 0 {
		c.MACDLookback = d.MACDLookback
	}
	if c.PriceFlatTolerance == 0 {
		c.PriceFlatTolerance = d.PriceFlatTolerance
	}
	if c.MinSubChecks == 0 {
		c.MinSubChecks = d.MinSubChecks
	}
	if c.RSISlopeFull == 0 {
		c.RSISlopeFull = d.RSISlopeFull
	}
	if c.AccumulationLow == 0 && c.AccumulationHigh == 0 {
		c.AccumulationLow, c.AccumulationHigh = d.AccumulationLow, d.AccumulationHigh
	}
	return c
}

// Validate checks lookbacks, MACD period ordering and the majority rule.
func (c MomentumConfig) Validate() error {
	if c.RSIPeriod < 1 || c.RSILookback < 2 || c.OBVLookback < 2 || c.MACDLookback < 1 {
		return fmt.Errorf("momentum: rsi_period >= 1, rsi_lookback >= 2, obv_lookback >= 2, macd_lookback >= 1 required")
	}
	if c.MACDFast < 1 || c.MACDFast >= c.MACDSlow || c.MACDSignal < 1 {
		return fmt.Errorf("momentum: macd periods %d/%d/%d invalid", c.MACDFast, c.MACDSlow, c.MACDSignal)
	}
	if c.MinSubChecks < 1 || c.MinSubChecks > 3 {
		return fmt.Errorf("momentum: min_sub_checks must be 1..3, got %d", c.MinSubChecks)
	}
	return nil
}

// RelativeStrengthConfig parameterises the relative strength detector.
type RelativeStrengthConfig struct {
	RSLookback int
	// OutperformanceFull is the excess growth ratio (0.05 = 5%) that earns full points.
	OutperformanceFull float64
	// SlopeFull is the RS curve slope per bar that earns full points.
	SlopeFull float64
}

// DefaultRelativeStrengthConfig returns a 5-bar lookback.
func DefaultRelativeStrengthConfig() RelativeStrengthConfig {
	return RelativeStrengthConfig{
		RSLookback:         5,
		OutperformanceFull: 0.05,
		SlopeFull:          0.005,
	}
}

func (c RelativeStrengthConfig) withDefaults() RelativeStrengthConfig {
	d := DefaultRelativeStrengthConfig()
	if c.RSLookback == 0 {
		c.RSLookback = d.RSLookback
	}
	if c.OutperformanceFull == 0 {
		c.OutperformanceFull = d.OutperformanceFull
	}
	if c.SlopeFull == 0 {
		c.SlopeFull = d.SlopeFull
	}
	return c
}

// Validate requires a usable lookback and positive full-score scales.
func (c RelativeStrengthConfig) Validate() error {
	if c.RSLookback < 2 {
		return fmt.Errorf("relative strength: rs_lookback must be >= 2, got %d", c.RSLookback)
	}
	if c.OutperformanceFull <= 0 || c.SlopeFull <= 0 {
		return fmt.Errorf("relative strength: outperformance_full and slope_full must be > 0")
	}
	return nil
}
