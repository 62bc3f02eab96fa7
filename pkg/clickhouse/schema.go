package clickhouse

import "fmt"

// ScannerSchema returns the idempotent DDL for the scanner tables in db.
// daily_bars is filled by an external loader; scan_results is written once
// per run.
func ScannerSchema(db string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.daily_bars (
			symbol LowCardinality(String),
			date   Date,
			open   Float64,
			high   Float64,
			low    Float64,
			close  Float64,
			volume Float64
		) ENGINE = ReplacingMergeTree ORDER BY (symbol, date)`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.scan_results (
			run_id         String,
			run_date       Date,
			rank           UInt32,
			ticker         LowCardinality(String),
			signals_met    UInt8,
			total_score    UInt8,
			alert          UInt8,
			alert_level    LowCardinality(String),
			current_price  Float64,
			current_volume Float64,
			vdu_score      UInt8,
			vdu_status     LowCardinality(String),
			momentum_score UInt8,
			momentum_status LowCardinality(String),
			rs_score       UInt8,
			rs_status      LowCardinality(String),
			metrics        String
		) ENGINE = ReplacingMergeTree ORDER BY (run_date, ticker, run_id)`, db),
	}
}
