package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientHistory means a series is shorter than a required window.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrNoData means the data source returned nothing for a symbol.
	ErrNoData = errors.New("no data")
	// ErrAlignmentFailure means the ticker/benchmark date overlap is too short.
	// It matches ErrInsufficientHistory through errors.Is.
	ErrAlignmentFailure error = &alignmentError{}
	// ErrUnorderedSeries means bar dates are not strictly increasing.
	ErrUnorderedSeries = errors.New("series dates not strictly increasing")
	// ErrDataSourceDown means too many fetches failed for the run to be meaningful.
	ErrDataSourceDown = errors.New("data source unavailable")
	// ErrRunInProgress means another scan holds the run lock for the same date.
	ErrRunInProgress = errors.New("scan already running")
	// ErrNoRun means no finalized scan run is available yet.
	ErrNoRun = errors.New("no scan run available")
)

type alignmentError struct{}

func (e *alignmentError) Error() string { return "benchmark alignment failure" }

func (e *alignmentError) Is(target error) bool { return target == ErrInsufficientHistory }

// Marker codes recorded on a SignalResult that could not be evaluated.
const (
	MarkerInsufficientHistory = "insufficient_history"
	MarkerAlignmentFailure    = "alignment_failure"
	MarkerNoBenchmark         = "no_benchmark"
	MarkerError               = "error"
)

// MarkerFor maps a detector error to its marker code.
func MarkerFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAlignmentFailure):
		return MarkerAlignmentFailure
	case errors.Is(err, ErrInsufficientHistory):
		return MarkerInsufficientHistory
	case errors.Is(err, ErrNoData):
		return MarkerNoBenchmark
	default:
		return MarkerError
	}
}

// HistoryShortfall is returned by data sources holding fewer bars than
// requested. Series carries whatever was available so detectors with shorter
// requirements can still run.
type HistoryShortfall struct {
	Need   int
	Series *PriceSeries
}

func (e *HistoryShortfall) Error() string {
	return fmt.Sprintf("%s: %d bars, need %d: %v", e.Series.symbol(), e.Series.Len(), e.Need, ErrInsufficientHistory)
}

func (e *HistoryShortfall) Is(target error) bool { return target == ErrInsufficientHistory }

// CheckHistory applies the data-source contract to a fetched series: no bars
// is ErrNoData, fewer than minBars is a *HistoryShortfall.
func CheckHistory(series *PriceSeries, minBars int) (*PriceSeries, error) {
	if series.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", series.symbol(), ErrNoData)
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}
	if series.Len() < minBars {
		return series, &HistoryShortfall{Need: minBars, Series: series}
	}
	return series, nil
}
