package models

import (
	"fmt"
	"time"
)

// Bar is one daily OHLCV record.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// IsRed reports a down candle (close below open).
func (b Bar) IsRed() bool { return b.Close < b.Open }

// IsGreen reports an up candle (close above open).
func (b Bar) IsGreen() bool { return b.Close > b.Open }

// PriceSeries is a date-ordered sequence of bars for one symbol.
// It is treated as read-only once fetched.
type PriceSeries struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

// Len returns the number of bars.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Last returns the most recent bar. Callers check Len first.
func (s *PriceSeries) Last() Bar {
	return s.Bars[len(s.Bars)-1]
}

// Tail returns a view over the last n bars (all bars when n >= Len).
func (s *PriceSeries) Tail(n int) *PriceSeries {
	if n >= len(s.Bars) {
		return s
	}
	return &PriceSeries{Symbol: s.Symbol, Bars: s.Bars[len(s.Bars)-n:]}
}

func (s *PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

func (s *PriceSeries) Opens() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Open
	}
	return out
}

func (s *PriceSeries) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Volume
	}
	return out
}

// Validate checks the series is non-empty and strictly increasing by date.
func (s *PriceSeries) Validate() error {
	if s.Len() == 0 {
		return fmt.Errorf("%s: %w", s.symbol(), ErrNoData)
	}
	for i := 1; i < len(s.Bars); i++ {
		if !s.Bars[i].Date.After(s.Bars[i-1].Date) {
			return fmt.Errorf("%s: bar %d at %s: %w", s.Symbol, i, s.Bars[i].Date.Format(DateLayout), ErrUnorderedSeries)
		}
	}
	return nil
}

func (s *PriceSeries) symbol() string {
	if s == nil {
		return ""
	}
	return s.Symbol
}

// DateLayout is the calendar-date format used for run dates and file names.
const DateLayout = "2006-01-02"

// DateKey truncates a timestamp to its UTC calendar date string.
func DateKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
