package usecase

import (
	"sort"

	"BreakoutScan/internal/domain/models"
)

// DefaultAlertThreshold is the number of triggered detectors that makes a
// ticker alert-eligible.
const DefaultAlertThreshold = 2

// AlertTiers are the total-score cut-offs for alert levels.
type AlertTiers struct {
	HighPriority int
	Watch        int
}

func DefaultAlertTiers() AlertTiers {
	return AlertTiers{HighPriority: 20, Watch: 15}
}

// Level maps a total score to its alert level.
func (t AlertTiers) Level(total int) string {
	switch {
	case total >= t.HighPriority:
		return models.AlertLevelHighPriority
	case total >= t.Watch:
		return models.AlertLevelWatchList
	default:
		return models.AlertLevelNone
	}
}

// Aggregate combines the three detector results for one ticker. Unevaluated
// results contribute zero to both counters.
func Aggregate(ticker string, series *models.PriceSeries, a, b, c models.SignalResult, threshold int, tiers AlertTiers) models.ScanResult {
	res := models.ScanResult{
		Ticker:             ticker,
		VolumeDryUp:        a,
		MomentumDivergence: b,
		RelativeStrength:   c,
	}
	for _, s := range res.Signals() {
		if s.Triggered {
			res.SignalsMet++
		}
		res.TotalScore += s.Score
	}
	if series.Len() > 0 {
		last := series.Last()
		res.Date = last.Date
		res.CurrentPrice = last.Close
		res.CurrentVolume = last.Volume
	}
	res.Alert = res.SignalsMet >= threshold
	res.AlertLevel = tiers.Level(res.TotalScore)
	return res
}

// Rank sorts results in place: total score desc, signals met desc, ticker asc.
func Rank(results []models.ScanResult) []models.ScanResult {
	sort.SliceStable(results, func(i, j int) bool {
		return rankedBefore(results[i], results[j])
	})
	return results
}

func rankedBefore(x, y models.ScanResult) bool {
	if x.TotalScore != y.TotalScore {
		return x.TotalScore > y.TotalScore
	}
	if x.SignalsMet != y.SignalsMet {
		return x.SignalsMet > y.SignalsMet
	}
	return x.Ticker < y.Ticker
}

// AlertEligible returns the results meeting threshold, keeping their order.
func AlertEligible(results []models.ScanResult, threshold int) []models.ScanResult {
	out := make([]models.ScanResult, 0, len(results))
	for _, r := range results {
		if r.SignalsMet >= threshold {
			out = append(out, r)
		}
	}
	return out
}
