package signals

import (
	"time"

	"BreakoutScan/internal/domain/models"
)

var day0 = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func bar(i int, open, close, volume float64) models.Bar {
	return models.Bar{
		Date:   day0.AddDate(0, 0, i),
		Open:   open,
		High:   max(open, close) + 0.5,
		Low:    min(open, close) - 0.5,
		Close:  close,
		Volume: volume,
	}
}

// breakoutSeries: 45-bar uptrend, 10-bar red pullback on light volume,
// 5-bar rebound on heavy volume.
func breakoutSeries(symbol string) *models.PriceSeries {
	s := &models.PriceSeries{Symbol: symbol}
	i := 0
	for ; i < 45; i++ {
		c := 100 + 0.5*float64(i)
		s.Bars = append(s.Bars, bar(i, c-0.3, c, 1_000_000))
	}
	c := s.Last().Close
	for k := 0; k < 10; k, i = k+1, i+1 {
		c -= 0.6
		s.Bars = append(s.Bars, bar(i, c+0.3, c, 400_000))
	}
	for k := 0; k < 5; k, i = k+1, i+1 {
		c += 2.0
		s.Bars = append(s.Bars, bar(i, c-0.5, c, 1_500_000))
	}
	return s
}

func flatSeries(symbol string, n int, price float64) *models.PriceSeries {
	s := &models.PriceSeries{Symbol: symbol}
	for i := 0; i < n; i++ {
		s.Bars = append(s.Bars, bar(i, price, price, 1_000_000))
	}
	return s
}

// divergenceSeries: steady decline, then a choppy drift lower where losses
// shrink and up-days carry the volume.
func divergenceSeries() *models.PriceSeries {
	s := &models.PriceSeries{Symbol: "DIV"}
	c := 150.0
	for i := 0; i < 40; i++ {
		s.Bars = append(s.Bars, bar(i, c+0.5, c, 1_000_000))
		c -= 1.0
	}
	for k := 0; k < 10; k++ {
		vol := 500_000.0
		if k%2 == 0 {
			c += 0.3
			vol = 1_000_000
		} else {
			c -= 0.4
		}
		s.Bars = append(s.Bars, bar(40+k, c, c, vol))
	}
	return s
}
