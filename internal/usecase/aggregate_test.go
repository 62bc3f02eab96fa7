package usecase

import (
	"math/rand"
	"testing"

	"BreakoutScan/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateCountsAndSums(t *testing.T) {
	series := breakoutSeries("BRK")
	res := Aggregate("BRK", series,
		signal(models.DetectorVolumeDryUp, true, 6),
		signal(models.DetectorMomentumDivergence, false, 7),
		models.Unevaluated(models.DetectorRelativeStrength, models.ErrAlignmentFailure),
		2, DefaultAlertTiers())

	assert.Equal(t, 1, res.SignalsMet)
	assert.Equal(t, 13, res.TotalScore)
	assert.False(t, res.Alert)
	assert.Equal(t, models.AlertLevelNone, res.AlertLevel)
	assert.Equal(t, series.Last().Close, res.CurrentPrice)
	assert.Equal(t, series.Last().Volume, res.CurrentVolume)
	assert.True(t, res.Date.Equal(series.Last().Date))
	assert.Equal(t, []string{models.DetectorRelativeStrength}, res.Unevaluated())
	assert.Equal(t, models.MarkerAlignmentFailure, res.RelativeStrength.Status())
}

func TestAggregateSignalsMetIndependentOfScore(t *testing.T) {
	res := Aggregate("X", nil,
		signal(models.DetectorVolumeDryUp, true, 0),
		signal(models.DetectorMomentumDivergence, true, 0),
		signal(models.DetectorRelativeStrength, false, 10),
		2, DefaultAlertTiers())
	assert.Equal(t, 2, res.SignalsMet)
	assert.Equal(t, 10, res.TotalScore)
	assert.True(t, res.Alert)
	assert.Zero(t, res.CurrentPrice)
}

func TestAlertTiers(t *testing.T) {
	tiers := DefaultAlertTiers()
	tests := []struct {
		total int
		want  string
	}{
		{30, models.AlertLevelHighPriority},
		{20, models.AlertLevelHighPriority},
		{19, models.AlertLevelWatchList},
		{15, models.AlertLevelWatchList},
		{14, models.AlertLevelNone},
		{0, models.AlertLevelNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tiers.Level(tt.total), "total=%d", tt.total)
	}
}

func TestRankOrder(t *testing.T) {
	results := []models.ScanResult{
		result("MSFT", 18, 2),
		result("AAPL", 18, 2),
		result("NVDA", 25, 3),
		result("AMD", 18, 3),
		result("TSLA", 4, 0),
	}
	Rank(results)

	got := make([]string, len(results))
	for i, r := range results {
		got[i] = r.Ticker
	}
	assert.Equal(t, []string{"NVDA", "AMD", "AAPL", "MSFT", "TSLA"}, got)
}

func TestRankIdempotentAndTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	results := make([]models.ScanResult, 0, 200)
	for i := 0; i < 200; i++ {
		results = append(results, result(string(rune('A'+i%26))+string(rune('A'+i/26)), rng.Intn(31), rng.Intn(4)))
	}
	once := append([]models.ScanResult(nil), Rank(results)...)
	twice := Rank(append([]models.ScanResult(nil), once...))
	require.Equal(t, once, twice)

	for i := 1; i < len(once); i++ {
		assert.False(t, rankedBefore(once[i], once[i-1]), "position %d out of order", i)
	}

	rng.Shuffle(len(results), func(i, j int) { results[i], results[j] = results[j], results[i] })
	assert.Equal(t, once, Rank(results))
}

func TestAlertEligibleMonotonicInThreshold(t *testing.T) {
	results := Rank([]models.ScanResult{
		result("A", 25, 3),
		result("B", 20, 2),
		result("C", 18, 1),
		result("D", 5, 0),
		result("E", 16, 2),
	})

	prev := len(results) + 1
	for threshold := 0; threshold <= 4; threshold++ {
		eligible := AlertEligible(results, threshold)
		assert.LessOrEqual(t, len(eligible), prev)
		prev = len(eligible)
		for _, r := range eligible {
			assert.GreaterOrEqual(t, r.SignalsMet, threshold)
		}
	}

	two := AlertEligible(results, 2)
	require.Len(t, two, 3)
	assert.Equal(t, "A", two[0].Ticker)
	assert.Equal(t, "B", two[1].Ticker)
	assert.Equal(t, "E", two[2].Ticker)
}
