package service

import "BreakoutScan/internal/domain/models"

// Detector evaluates one signal over already-fetched series. Implementations
// are pure: no I/O and no shared mutable state.
type Detector interface {
	Name() string
	// MinBars is the shortest ticker history the detector accepts.
	MinBars() int
	Evaluate(series, benchmark *models.PriceSeries) (models.SignalResult, error)
}
