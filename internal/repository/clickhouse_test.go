package repository

import (
	"errors"
	"strings"
	"testing"
	"time"

	"BreakoutScan/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultRow(t *testing.T) {
	run := sampleRun()
	row := resultRow(run, 1, run.Results[0])

	require.Len(t, row, 17)
	assert.Equal(t, "20240301T210000Z", row[0])
	assert.Equal(t, uint32(1), row[2])
	assert.Equal(t, "NVDA", row[3])
	assert.Equal(t, uint8(3), row[4])
	assert.Equal(t, uint8(24), row[5])
	assert.Equal(t, uint8(1), row[6])
	assert.Equal(t, "triggered", row[11])
	assert.Equal(t, "volume_dry_up:ema=812.5;red_volume_ratio=0.4124|momentum_divergence:rsi=58.2|relative_strength:", row[16])

	ipo := resultRow(run, 2, run.Results[1])
	assert.Equal(t, uint8(0), ipo[6])
	assert.Equal(t, "insufficient_history", ipo[11])
}

func TestInsertStatementChunk(t *testing.T) {
	s := NewClickHouseSink(nil, "scanner", nil)
	q, args := s.insertStatement(sampleRun(), 0, 2)
	assert.True(t, strings.HasPrefix(q, "INSERT INTO scanner.scan_results (run_id,"))
	assert.Equal(t, 2, strings.Count(q, resultPlaceholders))
	assert.Len(t, args, 34)
}

type fakeRows struct {
	bars []models.Bar
	i    int
	err  error
}

func (r *fakeRows) Next() bool { r.i++; return r.i <= len(r.bars) }

func (r *fakeRows) Scan(dest ...interface{}) error {
	b := r.bars[r.i-1]
	*dest[0].(*time.Time) = b.Date
	*dest[1].(*float64) = b.Open
	*dest[2].(*float64) = b.High
	*dest[3].(*float64) = b.Low
	*dest[4].(*float64) = b.Close
	*dest[5].(*float64) = b.Volume
	return nil
}

func (r *fakeRows) Err() error { return r.err }

func TestReadBars(t *testing.T) {
	src := bars("AAPL", 3).Bars
	src[1].Date = src[1].Date.Add(4 * time.Hour)

	s, err := readBars("AAPL", &fakeRows{bars: src})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, runDay.AddDate(0, 0, 1), s.Bars[1].Date, "dates truncate to the day")
	assert.NoError(t, s.Validate())

	_, err = readBars("AAPL", &fakeRows{err: errors.New("conn reset")})
	assert.ErrorContains(t, err, "conn reset")
}
