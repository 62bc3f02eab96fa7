package usecase

import (
	"testing"

	"BreakoutScan/internal/domain/models"
	"BreakoutScan/internal/services/signals"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineMinBarsUsesFloor(t *testing.T) {
	assert.Equal(t, 60, newTestEngine().MinBars())

	e := NewEngine(
		signals.NewVolumeDryUp(signals.DefaultVolumeDryUpConfig()),
		signals.NewMomentumDivergence(signals.DefaultMomentumConfig()),
		signals.NewRelativeStrength(signals.DefaultRelativeStrengthConfig()),
		EngineConfig{},
	)
	assert.Equal(t, 39, e.MinBars())
	assert.Equal(t, DefaultAlertThreshold, e.AlertThreshold())
}

func TestEngineBreakoutScenario(t *testing.T) {
	res := newTestEngine().Evaluate(breakoutSeries("BRK"), flatSeries("SPY", 60, 400))

	assert.Equal(t, "BRK", res.Ticker)
	assert.Equal(t, 3, res.SignalsMet)
	assert.Equal(t, 6, res.VolumeDryUp.Score)
	assert.Equal(t, 5, res.MomentumDivergence.Score)
	assert.Equal(t, 10, res.RelativeStrength.Score)
	assert.Equal(t, 21, res.TotalScore)
	assert.True(t, res.Alert)
	assert.Equal(t, models.AlertLevelHighPriority, res.AlertLevel)
	assert.Empty(t, res.Unevaluated())
}

func TestEngineFlatScenario(t *testing.T) {
	res := newTestEngine().Evaluate(flatSeries("FLAT", 60, 50), flatSeries("SPY", 60, 400))

	assert.Zero(t, res.SignalsMet)
	assert.Zero(t, res.TotalScore)
	assert.False(t, res.Alert)
	for _, s := range res.Signals() {
		assert.True(t, s.Evaluated, s.Detector)
		assert.False(t, s.Triggered, s.Detector)
	}
}

func TestEngineShortHistoryMarksOnlyFailingDetectors(t *testing.T) {
	bench := flatSeries("SPY", 60, 400)

	res := newTestEngine().Evaluate(breakoutSeries("BRK").Tail(20), bench)
	assert.Equal(t, models.MarkerInsufficientHistory, res.VolumeDryUp.Error)
	assert.Equal(t, models.MarkerInsufficientHistory, res.MomentumDivergence.Error)
	assert.Zero(t, res.VolumeDryUp.Score)
	require.True(t, res.RelativeStrength.Evaluated)
	assert.Equal(t, 10, res.RelativeStrength.Score)
	assert.Equal(t, 10, res.TotalScore)
	assert.Equal(t, 1, res.SignalsMet)

	res = newTestEngine().Evaluate(breakoutSeries("BRK").Tail(30), bench)
	assert.True(t, res.VolumeDryUp.Evaluated)
	assert.Equal(t, models.MarkerInsufficientHistory, res.MomentumDivergence.Status())
	assert.True(t, res.RelativeStrength.Evaluated)
}

func TestEngineMissingBenchmark(t *testing.T) {
	res := newTestEngine().Evaluate(breakoutSeries("BRK"), nil)
	assert.Equal(t, models.MarkerNoBenchmark, res.RelativeStrength.Error)
	assert.True(t, res.VolumeDryUp.Evaluated)
	assert.True(t, res.MomentumDivergence.Evaluated)
	assert.Equal(t, 11, res.TotalScore)
}

type panicDetector struct{}

func (panicDetector) Name() string { return "boom" }
func (panicDetector) MinBars() int { return 1 }
func (panicDetector) Evaluate(_, _ *models.PriceSeries) (models.SignalResult, error) {
	panic("bad input")
}

func TestEngineIsolatesPanickingDetector(t *testing.T) {
	e := NewEngine(
		panicDetector{},
		signals.NewMomentumDivergence(signals.DefaultMomentumConfig()),
		signals.NewRelativeStrength(signals.DefaultRelativeStrengthConfig()),
		EngineConfig{},
	)
	res := e.Evaluate(breakoutSeries("BRK"), flatSeries("SPY", 60, 400))
	assert.False(t, res.VolumeDryUp.Evaluated)
	assert.Equal(t, models.MarkerError, res.VolumeDryUp.Error)
	assert.Equal(t, 15, res.TotalScore)
	assert.Equal(t, 2, res.SignalsMet)
}
