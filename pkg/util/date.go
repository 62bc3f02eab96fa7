package util

import "time"

// DayStart truncates t to midnight UTC.
func DayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TradingWindow returns a calendar range ending at end that spans at least
// bars trading sessions: five sessions per seven days plus slack for holidays.
func TradingWindow(end time.Time, bars int) (from, to time.Time) {
	if bars < 1 {
		bars = 1
	}
	days := (bars*7+4)/5 + 10
	return DayStart(end).AddDate(0, 0, -days), end.UTC()
}
