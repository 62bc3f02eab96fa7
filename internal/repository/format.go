package repository

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"BreakoutScan/internal/domain/models"

	"github.com/shopspring/decimal"
)

func formatPrice(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func formatVolume(v float64) string {
	return decimal.NewFromFloat(v).Round(0).String()
}

func formatMetric(v float64) string {
	return decimal.NewFromFloat(v).Round(4).String()
}

// formatMetrics renders detector metrics as key=value pairs sorted by key.
func formatMetrics(m map[string]float64) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + formatMetric(m[k])
	}
	return strings.Join(parts, ";")
}

func datedFile(dir, prefix string, day time.Time, ext string) string {
	return filepath.Join(dir, prefix+"_"+models.DateKey(day)+ext)
}
