package indicators

import (
	"fmt"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/volume"
)

// OBV computes on-balance volume rebased to zero on the first bar. Up closes
// add the bar's volume, down closes subtract it, flat closes leave it unchanged.
func OBV(closes, volumes []float64) ([]float64, error) {
	if len(closes) != len(volumes) {
		return nil, fmt.Errorf("obv: %d closes, %d volumes: %w", len(closes), len(volumes), ErrLengthMismatch)
	}
	if len(closes) == 0 {
		return nil, Insufficient("obv", 1, 0)
	}

	obv := volume.NewObv[float64]()
	out := helper.ChanToSlice(obv.Compute(helper.SliceToChan(closes), helper.SliceToChan(volumes)))
	if len(out) != len(closes) {
		return nil, fmt.Errorf("obv: %d points for %d bars: %w", len(out), len(closes), ErrLengthMismatch)
	}
	base := out[0]
	for i := range out {
		out[i] -= base
	}
	return out, nil
}
