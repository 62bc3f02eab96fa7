package indicators

import (
	"errors"
	"fmt"

	"BreakoutScan/internal/domain/models"
)

var (
	ErrInvalidPeriod    = errors.New("invalid period")
	ErrLengthMismatch   = errors.New("series length mismatch")
	ErrNonPositivePrice = errors.New("non-positive price")
)

// HistoryError reports how much history a computation needed. It matches
// models.ErrInsufficientHistory through errors.Is.
type HistoryError struct {
	Indicator string
	Need      int
	Have      int
}

func (e *HistoryError) Error() string {
	return fmt.Sprintf("%s: need %d values, have %d: %v", e.Indicator, e.Need, e.Have, models.ErrInsufficientHistory)
}

func (e *HistoryError) Is(target error) bool { return target == models.ErrInsufficientHistory }

// Insufficient builds a HistoryError.
func Insufficient(name string, need, have int) error {
	return &HistoryError{Indicator: name, Need: need, Have: have}
}

func invalidPeriod(name string, period int) error {
	return fmt.Errorf("%s period %d: %w", name, period, ErrInvalidPeriod)
}
