package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(symbol string, n int) *PriceSeries {
	s := &PriceSeries{Symbol: symbol}
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		s.Bars = append(s.Bars, Bar{Date: day.AddDate(0, 0, i), Open: 10, Close: 10 + float64(i%2), Volume: 100})
	}
	return s
}

func TestCheckHistory(t *testing.T) {
	_, err := CheckHistory(&PriceSeries{Symbol: "GONE"}, 10)
	assert.ErrorIs(t, err, ErrNoData)

	s, err := CheckHistory(series("IPO", 5), 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
	var short *HistoryShortfall
	require.True(t, errors.As(err, &short))
	assert.Equal(t, 10, short.Need)
	assert.Equal(t, 5, s.Len(), "partial series is still returned")
	assert.Contains(t, err.Error(), "IPO: 5 bars, need 10")

	bad := series("BAD", 3)
	bad.Bars[2].Date = bad.Bars[0].Date
	_, err = CheckHistory(bad, 1)
	assert.ErrorIs(t, err, ErrUnorderedSeries)

	s, err = CheckHistory(series("OK", 12), 10)
	require.NoError(t, err)
	assert.Equal(t, 12, s.Len())
}

func TestMarkerFor(t *testing.T) {
	assert.Equal(t, "", MarkerFor(nil))
	assert.Equal(t, MarkerAlignmentFailure, MarkerFor(fmt.Errorf("rs: %w", ErrAlignmentFailure)))
	assert.Equal(t, MarkerInsufficientHistory, MarkerFor(&HistoryShortfall{Need: 30, Series: series("X", 3)}))
	assert.Equal(t, MarkerNoBenchmark, MarkerFor(ErrNoData))
	assert.Equal(t, MarkerError, MarkerFor(errors.New("nan")))

	assert.ErrorIs(t, ErrAlignmentFailure, ErrInsufficientHistory)
}

func TestTailAndAccessors(t *testing.T) {
	s := series("AAPL", 5)
	tail := s.Tail(2)
	assert.Equal(t, 2, tail.Len())
	assert.Equal(t, s.Last(), tail.Last())
	assert.Same(t, s, s.Tail(9))
	assert.Equal(t, []float64{10, 11, 10, 11, 10}, s.Closes())
	assert.Len(t, s.Volumes(), 5)
	assert.True(t, s.Bars[1].IsGreen())
	assert.False(t, s.Bars[1].IsRed())

	var nilSeries *PriceSeries
	assert.Zero(t, nilSeries.Len())
}

func TestSignalResultStatus(t *testing.T) {
	assert.Equal(t, "triggered", SignalResult{Evaluated: true, Triggered: true}.Status())
	assert.Equal(t, "not_triggered", SignalResult{Evaluated: true}.Status())
	u := Unevaluated(DetectorRelativeStrength, ErrAlignmentFailure)
	assert.Equal(t, MarkerAlignmentFailure, u.Status())
	assert.False(t, u.Triggered)
	assert.Zero(t, u.Score)
}

func TestScanRunHelpers(t *testing.T) {
	start := time.Date(2024, 3, 1, 21, 0, 0, 0, time.UTC)
	run := &ScanRun{
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
		Results: []ScanResult{
			{Ticker: "NVDA", Alert: true, MomentumDivergence: SignalResult{Detector: DetectorMomentumDivergence}},
			{Ticker: "KO"},
		},
	}
	assert.Equal(t, 90*time.Second, run.Duration())
	require.Len(t, run.Alerts(), 1)
	res, ok := run.Find("KO")
	assert.True(t, ok)
	assert.Equal(t, "KO", res.Ticker)
	_, ok = run.Find("ZZZ")
	assert.False(t, ok)
	assert.Contains(t, run.Results[0].Unevaluated(), DetectorMomentumDivergence)

	assert.Equal(t, "2024-03-01", DateKey(start.In(time.FixedZone("x", 3600))))
}
