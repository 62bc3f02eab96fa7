package signals

import (
	"math"

	"BreakoutScan/internal/domain/models"
)

// slopeEpsilon separates a genuine slope from float noise on flat input.
const slopeEpsilon = 1e-9

func newResult(detector string) models.SignalResult {
	return models.SignalResult{
		Detector:  detector,
		Evaluated: true,
		Metrics:   make(map[string]float64),
	}
}

// clampScore rounds accumulated points to an integer score in [0,10].
func clampScore(points float64) int {
	s := int(math.Round(points))
	switch {
	case s < 0:
		return 0
	case s > models.MaxSignalScore:
		return models.MaxSignalScore
	default:
		return s
	}
}

func boolMetric(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
