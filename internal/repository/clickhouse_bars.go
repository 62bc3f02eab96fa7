package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"BreakoutScan/internal/domain/models"
	"BreakoutScan/pkg/logger"
	"BreakoutScan/pkg/util"
)

// ClickHouseBars implements MarketData over <db>.daily_bars.
type ClickHouseBars struct {
	db    *sql.DB
	table string
	log   *logger.Logger
}

func NewClickHouseBars(db *sql.DB, database string, l *logger.Logger) *ClickHouseBars {
	if l == nil {
		l = logger.Nop()
	}
	return &ClickHouseBars{db: db, table: database + ".daily_bars", log: l}
}

// rowScanner is the part of *sql.Rows the bar reader needs.
type rowScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// Fetch reads the latest minBars bars in ascending date order.
func (s *ClickHouseBars) Fetch(ctx context.Context, symbol string, minBars int) (*models.PriceSeries, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	const qtpl = `
        SELECT date, open, high, low, close, volume
        FROM (
            SELECT date, open, high, low, close, volume
            FROM %s FINAL
            WHERE symbol = ?
            ORDER BY date DESC
            LIMIT ?
        )
        ORDER BY date ASC
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.table), symbol, minBars)
	if err != nil {
		s.log.Error("clickhouse daily_bars query error",
			logger.String("table", s.table),
			logger.String("symbol", symbol),
			logger.Error(err))
		return nil, fmt.Errorf("query bars %s: %w", symbol, err)
	}
	defer rows.Close()

	series, err := readBars(symbol, rows)
	if err != nil {
		return nil, err
	}
	return models.CheckHistory(series, minBars)
}

func readBars(symbol string, rows rowScanner) (*models.PriceSeries, error) {
	series := &models.PriceSeries{Symbol: symbol}
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar %s: %w", symbol, err)
		}
		b.Date = util.DayStart(b.Date)
		series.Bars = append(series.Bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows %s: %w", symbol, err)
	}
	return series, nil
}
