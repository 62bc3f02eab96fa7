package indicators

import (
	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
)

// EMA computes the exponential moving average seeded with the simple average
// of the first period values. The result has len(values)-period+1 points;
// out[i] corresponds to values[i+period-1].
func EMA(values []float64, period int) ([]float64, error) {
	if period < 1 {
		return nil, invalidPeriod("ema", period)
	}
	ema := trend.NewEmaWithPeriod[float64](period)
	if need := ema.IdlePeriod() + 1; len(values) < need {
		return nil, Insufficient("ema", need, len(values))
	}
	return helper.ChanToSlice(ema.Compute(helper.SliceToChan(values))), nil
}
