package indicators

import (
	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
)

// MACDHistogram computes (EMA(fast) - EMA(slow)) minus its own EMA(signal).
// It needs slow+signal-1 values and returns len(values)-slow-signal+2 points,
// aligned to the end of the input.
func MACDHistogram(values []float64, fast, slow, signal int) ([]float64, error) {
	if fast < 1 || fast >= slow {
		return nil, invalidPeriod("macd fast", fast)
	}
	if signal < 1 {
		return nil, invalidPeriod("macd signal", signal)
	}
	macd := trend.NewMacdWithPeriod[float64](fast, slow, signal)
	if need := macd.IdlePeriod() + 1; len(values) < need {
		return nil, Insufficient("macd", need, len(values))
	}

	// both outputs must be read in lockstep or the duplicated input blocks
	line, sig := macd.Compute(helper.SliceToChan(values))
	return helper.ChanToSlice(helper.Subtract(line, sig)), nil
}
