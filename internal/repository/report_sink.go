package repository

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"BreakoutScan/internal/domain/models"
	"BreakoutScan/pkg/logger"
)

var (
	rule     = strings.Repeat("=", 80)
	thinRule = strings.Repeat("-", 80)
)

var detectorTitles = map[string]string{
	models.DetectorVolumeDryUp:        "VOLUME DRY-UP",
	models.DetectorMomentumDivergence: "MOMENTUM DIVERGENCE",
	models.DetectorRelativeStrength:   "RELATIVE STRENGTH",
}

// ReportSink writes a human-readable scan_report_<date>.txt.
type ReportSink struct {
	dir  string
	topN int
	log  *logger.Logger
}

func NewReportSink(dir string, topN int, l *logger.Logger) *ReportSink {
	if topN < 1 {
		topN = 10
	}
	if l == nil {
		l = logger.Nop()
	}
	return &ReportSink{dir: dir, topN: topN, log: l}
}

func (s *ReportSink) Name() string { return "report" }

func (s *ReportSink) Save(_ context.Context, run *models.ScanRun) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("report sink: %w", err)
	}
	path := datedFile(s.dir, "scan_report", run.RunDate, ".txt")
	if err := os.WriteFile(path, s.Render(run), 0o644); err != nil {
		return fmt.Errorf("report write: %w", err)
	}
	s.log.Info("scan report written", logger.String("path", path))
	return nil
}

// Render builds the report body.
func (s *ReportSink) Render(run *models.ScanRun) []byte {
	var b bytes.Buffer
	alerts := run.Alerts()

	var high, watch int
	for _, a := range alerts {
		switch a.AlertLevel {
		case models.AlertLevelHighPriority:
			high++
		case models.AlertLevelWatchList:
			watch++
		}
	}

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "EARLY BREAKOUT SCANNER - DETAILED REPORT")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Run:              %s\n", run.ID)
	fmt.Fprintf(&b, "Date:             %s\n", models.DateKey(run.RunDate))
	fmt.Fprintf(&b, "Benchmark:        %s ($%s)\n", run.Benchmark, formatPrice(run.BenchmarkClose))
	fmt.Fprintf(&b, "Stocks Scanned:   %d\n", run.Scanned)
	fmt.Fprintf(&b, "Skipped:          %d\n", len(run.Skipped))
	fmt.Fprintf(&b, "Alert Threshold:  %d of 3 signals\n", run.AlertThreshold)
	fmt.Fprintf(&b, "Alerts:           %d (high priority %d, watch list %d)\n", len(alerts), high, watch)
	fmt.Fprintf(&b, "Duration:         %.1fs\n", run.Duration().Seconds())
	if run.Cancelled {
		fmt.Fprintln(&b, "Status:           CANCELLED (partial results)")
	}
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b)

	for i, a := range alerts {
		writeAlertBlock(&b, i+1, a)
		fmt.Fprintln(&b)
	}

	s.writeTopTable(&b, run.Results)

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "END OF REPORT")
	fmt.Fprintln(&b, rule)
	return b.Bytes()
}

func writeAlertBlock(b *bytes.Buffer, rank int, r models.ScanResult) {
	fmt.Fprintln(b, rule)
	fmt.Fprintf(b, "#%d %s - $%s | %d POINTS | %d/3 SIGNALS | %s\n",
		rank, r.Ticker, formatPrice(r.CurrentPrice), r.TotalScore, r.SignalsMet, strings.ToUpper(r.AlertLevel))
	fmt.Fprintln(b, rule)
	fmt.Fprintf(b, "  Total Score:    %d/30\n", r.TotalScore)
	fmt.Fprintf(b, "  Current Volume: %s shares\n", formatVolume(r.CurrentVolume))
	fmt.Fprintf(b, "  Bar Date:       %s\n", models.DateKey(r.Date))

	for _, sig := range r.Signals() {
		fmt.Fprintln(b, thinRule)
		fmt.Fprintf(b, "%s (%d/10, %s)\n", detectorTitles[sig.Detector], sig.Score, sig.Status())
		fmt.Fprintln(b, thinRule)
		for _, kv := range strings.Split(formatMetrics(sig.Metrics), ";") {
			if kv != "" {
				fmt.Fprintf(b, "  %s\n", kv)
			}
		}
	}
}

func (s *ReportSink) writeTopTable(b *bytes.Buffer, results []models.ScanResult) {
	n := s.topN
	if n > len(results) {
		n = len(results)
	}
	fmt.Fprintf(b, "TOP %d\n", n)
	fmt.Fprintln(b, thinRule)

	tw := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tTICKER\tSCORE\tSIGNALS\tVDU\tMOM\tRS\tPRICE\tLEVEL")
	for i, r := range results[:n] {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d/3\t%d\t%d\t%d\t%s\t%s\n",
			i+1, r.Ticker, r.TotalScore, r.SignalsMet,
			r.VolumeDryUp.Score, r.MomentumDivergence.Score, r.RelativeStrength.Score,
			formatPrice(r.CurrentPrice), r.AlertLevel)
	}
	_ = tw.Flush()
	fmt.Fprintln(b)
}
