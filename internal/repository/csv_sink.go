package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"BreakoutScan/internal/domain/models"
	"BreakoutScan/pkg/logger"
)

var csvBaseColumns = []string{
	"ticker", "date", "signals_met", "total_score", "alert", "alert_level", "current_price", "volume",
}

// CSVHeader is the column order of the results file.
func CSVHeader() []string {
	cols := append([]string(nil), csvBaseColumns...)
	for _, d := range models.DetectorNames {
		cols = append(cols, d+"_signal", d+"_score", d+"_status", d+"_metrics")
	}
	return cols
}

// CSVSink writes scan_results_<date>.csv and scan_skipped_<date>.csv.
type CSVSink struct {
	dir string
	log *logger.Logger
}

func NewCSVSink(dir string, l *logger.Logger) *CSVSink {
	if l == nil {
		l = logger.Nop()
	}
	return &CSVSink{dir: dir, log: l}
}

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) Save(_ context.Context, run *models.ScanRun) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("csv sink: %w", err)
	}

	rows := make([][]string, 0, len(run.Results)+1)
	rows = append(rows, CSVHeader())
	for _, r := range run.Results {
		rows = append(rows, csvRow(r))
	}
	path := datedFile(s.dir, "scan_results", run.RunDate, ".csv")
	if err := writeCSV(path, rows); err != nil {
		return err
	}
	s.log.Info("scan results written", logger.String("path", path), logger.Int("rows", len(run.Results)))

	if len(run.Skipped) == 0 {
		return nil
	}
	skipped := [][]string{{"ticker", "reason"}}
	for _, sk := range run.Skipped {
		skipped = append(skipped, []string{sk.Ticker, sk.Reason})
	}
	return writeCSV(datedFile(s.dir, "scan_skipped", run.RunDate, ".csv"), skipped)
}

func csvRow(r models.ScanResult) []string {
	row := []string{
		r.Ticker,
		models.DateKey(r.Date),
		strconv.Itoa(r.SignalsMet),
		strconv.Itoa(r.TotalScore),
		strconv.FormatBool(r.Alert),
		r.AlertLevel,
		formatPrice(r.CurrentPrice),
		formatVolume(r.CurrentVolume),
	}
	for _, sig := range r.Signals() {
		row = append(row,
			strconv.FormatBool(sig.Triggered),
			strconv.Itoa(sig.Score),
			sig.Status(),
			formatMetrics(sig.Metrics),
		)
	}
	return row
}

// writeCSV writes to a temp file in the same directory and renames it, so a
// reader never sees a half-written file.
func writeCSV(path string, rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.csv")
	if err != nil {
		return fmt.Errorf("csv create: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.WriteAll(rows); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("csv write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("csv close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("csv rename: %w", err)
	}
	return nil
}
