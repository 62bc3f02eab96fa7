package models

// Detector names used as keys, column prefixes and metric labels.
const (
	DetectorVolumeDryUp        = "volume_dry_up"
	DetectorMomentumDivergence = "momentum_divergence"
	DetectorRelativeStrength   = "relative_strength"
)

// DetectorNames lists detectors in their fixed reporting order.
var DetectorNames = []string{DetectorVolumeDryUp, DetectorMomentumDivergence, DetectorRelativeStrength}

const MaxSignalScore = 10

// SignalResult is one detector's verdict for one ticker.
type SignalResult struct {
	Detector  string             `json:"detector"`
	Triggered bool               `json:"triggered"`
	Score     int                `json:"score"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	// Evaluated is false when the detector could not run; Error then holds the marker.
	Evaluated bool   `json:"evaluated"`
	Error     string `json:"error,omitempty"`
}

// Unevaluated builds the marker result for a detector that failed.
func Unevaluated(detector string, err error) SignalResult {
	return SignalResult{
		Detector: detector,
		Error:    MarkerFor(err),
	}
}

// Status is a short label for tabular output.
func (r SignalResult) Status() string {
	switch {
	case !r.Evaluated:
		return r.Error
	case r.Triggered:
		return "triggered"
	default:
		return "not_triggered"
	}
}
