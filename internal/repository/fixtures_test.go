package repository

import (
	"time"

	"BreakoutScan/internal/domain/models"
)

var runDay = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func sampleRun() *models.ScanRun {
	return &models.ScanRun{
		ID:             "20240301T210000Z",
		RunDate:        runDay,
		Benchmark:      "SPY",
		BenchmarkClose: 509.9,
		StartedAt:      runDay.Add(21 * time.Hour),
		FinishedAt:     runDay.Add(21*time.Hour + 75*time.Second),
		Scanned:        4,
		AlertThreshold: 2,
		Results: []models.ScanResult{
			{
				Ticker:     "NVDA",
				Date:       runDay,
				SignalsMet: 3,
				TotalScore: 24,
				VolumeDryUp: models.SignalResult{
					Detector: models.DetectorVolumeDryUp, Triggered: true, Score: 8, Evaluated: true,
					Metrics: map[string]float64{"red_volume_ratio": 0.41237, "ema": 812.5},
				},
				MomentumDivergence: models.SignalResult{
					Detector: models.DetectorMomentumDivergence, Triggered: true, Score: 7, Evaluated: true,
					Metrics: map[string]float64{"rsi": 58.2},
				},
				RelativeStrength: models.SignalResult{
					Detector: models.DetectorRelativeStrength, Triggered: true, Score: 9, Evaluated: true,
				},
				CurrentPrice:  822.789,
				CurrentVolume: 41234567.4,
				Alert:         true,
				AlertLevel:    models.AlertLevelHighPriority,
			},
			{
				Ticker:     "IPO",
				Date:       runDay,
				SignalsMet: 0,
				TotalScore: 0,
				VolumeDryUp: models.SignalResult{
					Detector: models.DetectorVolumeDryUp, Error: models.MarkerInsufficientHistory,
				},
				MomentumDivergence: models.SignalResult{
					Detector: models.DetectorMomentumDivergence, Error: models.MarkerInsufficientHistory,
				},
				RelativeStrength: models.SignalResult{
					Detector: models.DetectorRelativeStrength, Evaluated: true,
				},
				CurrentPrice:  12,
				CurrentVolume: 1000,
				AlertLevel:    models.AlertLevelNone,
			},
		},
		Skipped: []models.SkippedTicker{
			{Ticker: "GONE", Reason: "no_data"},
			{Ticker: "ODD", Reason: "invalid_series"},
		},
	}
}
