package indicators

import "fmt"

// RollingRatio divides a's growth over window periods by b's growth over the
// same periods: out[j] = (a[i]/a[i-window]) / (b[i]/b[i-window]) with
// i = j+window. Values above 1 mean a outperformed b.
func RollingRatio(a, b []float64, window int) ([]float64, error) {
	if window < 1 {
		return nil, invalidPeriod("rolling ratio", window)
	}
	if len(a) != len(b) {
		return nil, fmt.Errorf("rolling ratio: %d vs %d: %w", len(a), len(b), ErrLengthMismatch)
	}
	if len(a) < window+1 {
		return nil, Insufficient("rolling ratio", window+1, len(a))
	}
	if err := positive(a, b); err != nil {
		return nil, fmt.Errorf("rolling ratio: %w", err)
	}

	out := make([]float64, 0, len(a)-window)
	for i := window; i < len(a); i++ {
		out = append(out, (a[i]/a[i-window])/(b[i]/b[i-window]))
	}
	return out, nil
}

// AnchoredRatio is the relative performance of a against b measured from the
// first point: out[k] = (a[k]/a[0]) / (b[k]/b[0]), so out[0] is always 1.
func AnchoredRatio(a, b []float64) ([]float64, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("anchored ratio: %d vs %d: %w", len(a), len(b), ErrLengthMismatch)
	}
	if len(a) < 2 {
		return nil, Insufficient("anchored ratio", 2, len(a))
	}
	if err := positive(a, b); err != nil {
		return nil, fmt.Errorf("anchored ratio: %w", err)
	}

	out := make([]float64, len(a))
	for k := range a {
		out[k] = (a[k] / a[0]) / (b[k] / b[0])
	}
	return out, nil
}

func positive(series ...[]float64) error {
	for _, s := range series {
		for i, v := range s {
			if v <= 0 {
				return fmt.Errorf("value %g at %d: %w", v, i, ErrNonPositivePrice)
			}
		}
	}
	return nil
}
