package indicators

import (
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
)

// RSI computes Wilder's relative strength index. The result has
// len(values)-period points; out[i] corresponds to values[i+period].
// A window with no movement reads 50.
func RSI(values []float64, period int) ([]float64, error) {
	if period < 1 {
		return nil, invalidPeriod("rsi", period)
	}
	rsi := momentum.NewRsiWithPeriod[float64](period)
	if need := rsi.IdlePeriod() + 1; len(values) < need {
		return nil, Insufficient("rsi", need, len(values))
	}

	out := helper.ChanToSlice(rsi.Compute(helper.SliceToChan(values)))
	for i, v := range out {
		// 0/0 average gain over average loss
		if math.IsNaN(v) {
			out[i] = 50
		}
	}
	return out, nil
}
