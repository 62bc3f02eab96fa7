package models

import "time"

// Alert levels derived from the total score.
const (
	AlertLevelHighPriority = "high_priority"
	AlertLevelWatchList    = "watch_list"
	AlertLevelNone         = "none"
)

// ScanResult aggregates the three detector results for one ticker.
type ScanResult struct {
	Ticker             string       `json:"ticker"`
	Date               time.Time    `json:"date"`
	SignalsMet         int          `json:"signals_met"`
	TotalScore         int          `json:"total_score"`
	VolumeDryUp        SignalResult `json:"volume_dry_up"`
	MomentumDivergence SignalResult `json:"momentum_divergence"`
	RelativeStrength   SignalResult `json:"relative_strength"`
	CurrentPrice       float64      `json:"current_price"`
	CurrentVolume      float64      `json:"current_volume"`
	Alert              bool         `json:"alert"`
	AlertLevel         string       `json:"alert_level"`
}

// Signals returns the detector results in reporting order.
func (r ScanResult) Signals() []SignalResult {
	return []SignalResult{r.VolumeDryUp, r.MomentumDivergence, r.RelativeStrength}
}

// Unevaluated lists the detectors that carry a failure marker.
func (r ScanResult) Unevaluated() []string {
	var out []string
	for _, s := range r.Signals() {
		if !s.Evaluated {
			out = append(out, s.Detector)
		}
	}
	return out
}

// SkippedTicker records a ticker that produced no result.
type SkippedTicker struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason"`
}

// ScanRun is one full batch: ranked results plus what was skipped.
type ScanRun struct {
	ID             string          `json:"id"`
	RunDate        time.Time       `json:"run_date"`
	Benchmark      string          `json:"benchmark"`
	BenchmarkClose float64         `json:"benchmark_close"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     time.Time       `json:"finished_at"`
	Scanned        int             `json:"scanned"`
	AlertThreshold int             `json:"alert_threshold"`
	Results        []ScanResult    `json:"results"`
	Skipped        []SkippedTicker `json:"skipped,omitempty"`
	Cancelled      bool            `json:"cancelled"`
}

// Alerts returns the alert-eligible results in ranked order.
func (r *ScanRun) Alerts() []ScanResult {
	out := make([]ScanResult, 0)
	for _, res := range r.Results {
		if res.Alert {
			out = append(out, res)
		}
	}
	return out
}

// Duration is the wall time of the run.
func (r *ScanRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Find returns the result for ticker, if present.
func (r *ScanRun) Find(ticker string) (ScanResult, bool) {
	for _, res := range r.Results {
		if res.Ticker == ticker {
			return res, true
		}
	}
	return ScanResult{}, false
}
