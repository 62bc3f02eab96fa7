package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportRender(t *testing.T) {
	out := string(NewReportSink(t.TempDir(), 10, nil).Render(sampleRun()))

	assert.Contains(t, out, "EARLY BREAKOUT SCANNER - DETAILED REPORT")
	assert.Contains(t, out, "Stocks Scanned:   4")
	assert.Contains(t, out, "Skipped:          2")
	assert.Contains(t, out, "Alerts:           1 (high priority 1, watch list 0)")
	assert.Contains(t, out, "Duration:         75.0s")
	assert.Contains(t, out, "#1 NVDA - $822.79 | 24 POINTS | 3/3 SIGNALS | HIGH_PRIORITY")
	assert.Contains(t, out, "VOLUME DRY-UP (8/10, triggered)")
	assert.Contains(t, out, "  red_volume_ratio=0.4124")
	assert.NotContains(t, out, "#2 IPO", "only alerts get a detail block")
	assert.Contains(t, out, "TOP 2")
	assert.NotContains(t, out, "CANCELLED")

	lines := strings.Split(out, "\n")
	var tableRows int
	for _, l := range lines {
		if strings.HasPrefix(l, "1  ") || strings.HasPrefix(l, "2  ") {
			tableRows++
		}
	}
	assert.Equal(t, 2, tableRows)
}

func TestReportTopNAndCancelled(t *testing.T) {
	run := sampleRun()
	run.Cancelled = true
	out := string(NewReportSink("", 1, nil).Render(run))
	assert.Contains(t, out, "TOP 1")
	assert.Contains(t, out, "CANCELLED (partial results)")
}

func TestReportSinkSave(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewReportSink(dir, 10, nil).Save(context.Background(), sampleRun()))
	b, err := os.ReadFile(filepath.Join(dir, "scan_report_2024-03-01.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "END OF REPORT")
}
