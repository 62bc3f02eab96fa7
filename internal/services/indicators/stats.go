package indicators

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Variance returns the population variance, or 0 for an empty slice.
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := Mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values))
}

// IsFlat reports whether values show no variation beyond float noise
// relative to their magnitude.
func IsFlat(values []float64) bool {
	m := Mean(values)
	return Variance(values) <= 1e-18*(1+m*m)
}

// Slope is the least-squares slope of values against their index, in value
// units per step.
func Slope(values []float64) (float64, error) {
	n := len(values)
	if n < 2 {
		return 0, Insufficient("slope", 2, n)
	}

	xMean := float64(n-1) / 2
	yMean := Mean(values)
	var num, den float64
	for i, v := range values {
		dx := float64(i) - xMean
		num += dx * (v - yMean)
		den += dx * dx
	}
	return num / den, nil
}

// Tail returns the last n values (all of them when n >= len).
func Tail(values []float64, n int) []float64 {
	if n >= len(values) {
		return values
	}
	return values[len(values)-n:]
}

// Clamp01 limits x to [0,1].
func Clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
