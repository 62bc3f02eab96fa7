package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"BreakoutScan/internal/domain/models"
	"BreakoutScan/pkg/logger"
)

const (
	resultColumns = "run_id, run_date, rank, ticker, signals_met, total_score, alert, alert_level, " +
		"current_price, current_volume, vdu_score, vdu_status, momentum_score, momentum_status, " +
		"rs_score, rs_status, metrics"
	resultPlaceholders = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	resultChunkSize    = 2000
)

// ClickHouseSink appends every ranked result of a run to <db>.scan_results.
type ClickHouseSink struct {
	db    *sql.DB
	table string
	log   *logger.Logger
}

func NewClickHouseSink(db *sql.DB, database string, l *logger.Logger) *ClickHouseSink {
	if l == nil {
		l = logger.Nop()
	}
	return &ClickHouseSink{db: db, table: database + ".scan_results", log: l}
}

func (s *ClickHouseSink) Name() string { return "clickhouse" }

// Save inserts the run with multi-row VALUES, chunked to bound statement size.
func (s *ClickHouseSink) Save(ctx context.Context, run *models.ScanRun) error {
	if len(run.Results) == 0 {
		return nil
	}
	for start := 0; start < len(run.Results); start += resultChunkSize {
		end := start + resultChunkSize
		if end > len(run.Results) {
			end = len(run.Results)
		}
		q, args := s.insertStatement(run, start, end)
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.log.Error("clickhouse insert scan_results",
				logger.String("table", s.table),
				logger.Int("rows", end-start),
				logger.Error(err))
			return fmt.Errorf("insert scan results: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseSink) insertStatement(run *models.ScanRun, start, end int) (string, []interface{}) {
	values := make([]string, 0, end-start)
	args := make([]interface{}, 0, (end-start)*17)
	for i := start; i < end; i++ {
		values = append(values, resultPlaceholders)
		args = append(args, resultRow(run, i+1, run.Results[i])...)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", s.table, resultColumns, strings.Join(values, ","))
	return q, args
}

func resultRow(run *models.ScanRun, rank int, r models.ScanResult) []interface{} {
	var alert uint8
	if r.Alert {
		alert = 1
	}
	metrics := make([]string, 0, 3)
	for _, sig := range r.Signals() {
		metrics = append(metrics, sig.Detector+":"+formatMetrics(sig.Metrics))
	}
	return []interface{}{
		run.ID,
		run.RunDate,
		uint32(rank),
		r.Ticker,
		uint8(r.SignalsMet),
		uint8(r.TotalScore),
		alert,
		r.AlertLevel,
		r.CurrentPrice,
		r.CurrentVolume,
		uint8(r.VolumeDryUp.Score),
		r.VolumeDryUp.Status(),
		uint8(r.MomentumDivergence.Score),
		r.MomentumDivergence.Status(),
		uint8(r.RelativeStrength.Score),
		r.RelativeStrength.Status(),
		strings.Join(metrics, "|"),
	}
}
