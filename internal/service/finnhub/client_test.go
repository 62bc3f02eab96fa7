package finnhub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"BreakoutScan/internal/domain/models"
	apphttp "BreakoutScan/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candles(n int) candleResponse {
	r := candleResponse{Status: "ok"}
	start := time.Date(2024, 1, 2, 21, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		r.Time = append(r.Time, start.AddDate(0, 0, i).Unix())
		p := 100 + float64(i)
		r.Open = append(r.Open, p)
		r.High = append(r.High, p+1)
		r.Low = append(r.Low, p-1)
		r.Close = append(r.Close, p+0.5)
		r.Volume = append(r.Volume, 1000+float64(i))
	}
	return r
}

func newClient(t *testing.T, h http.HandlerFunc) *CandleClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := New(Config{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		RatePerSec: 1000,
		Burst:      10,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	}, apphttp.NewClient(apphttp.WithTimeout(time.Second)), nil, nil)
	c.now = func() time.Time { return time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC) }
	return c
}

func TestFetchTrimsToMinBars(t *testing.T) {
	var query map[string][]string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stock/candle", r.URL.Path)
		query = r.URL.Query()
		_ = json.NewEncoder(w).Encode(candles(80))
	})

	s, err := c.Fetch(context.Background(), " aapl ", 60)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", s.Symbol)
	assert.Equal(t, 60, s.Len())
	assert.Equal(t, 179.5, s.Last().Close)
	assert.Equal(t, time.Date(2024, 3, 21, 0, 0, 0, 0, time.UTC), s.Last().Date)

	assert.Equal(t, []string{"AAPL"}, query["symbol"])
	assert.Equal(t, []string{"D"}, query["resolution"])
	assert.Equal(t, []string{"test-key"}, query["token"])
	assert.NotEmpty(t, query["from"])
}

func TestFetchNoData(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"s":"no_data"}`))
	})
	_, err := c.Fetch(context.Background(), "GONE", 60)
	assert.ErrorIs(t, err, models.ErrNoData)
}

func TestFetchShortHistory(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(candles(25))
	})
	s, err := c.Fetch(context.Background(), "IPO", 60)
	require.ErrorIs(t, err, models.ErrInsufficientHistory)

	var short *models.HistoryShortfall
	require.ErrorAs(t, err, &short)
	assert.Equal(t, 60, short.Need)
	assert.Equal(t, 25, s.Len())
}

func TestFetchRetriesThrottledResponses(t *testing.T) {
	var calls int32
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(candles(60))
	})
	s, err := c.Fetch(context.Background(), "MSFT", 60)
	require.NoError(t, err)
	assert.Equal(t, 60, s.Len())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchReportsSourceDownAfterRetries(t *testing.T) {
	var calls int32
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.Fetch(context.Background(), "MSFT", 60)
	require.ErrorIs(t, err, models.ErrDataSourceDown)
	var se *apphttp.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchReportsSourceDownOnTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := New(Config{
		APIKey:     "test-key",
		BaseURL:    base,
		RatePerSec: 1000,
		Burst:      10,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	}, apphttp.NewClient(apphttp.WithTimeout(time.Second)), nil, nil)
	_, err := c.Fetch(context.Background(), "MSFT", 60)
	assert.ErrorIs(t, err, models.ErrDataSourceDown)
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	})
	_, err := c.Fetch(context.Background(), "MSFT", 60)
	var se *apphttp.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.NotErrorIs(t, err, models.ErrDataSourceDown)
}

func TestFetchRejectsRaggedColumns(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		r := candles(5)
		r.Volume = r.Volume[:3]
		_ = json.NewEncoder(w).Encode(r)
	})
	_, err := c.Fetch(context.Background(), "BAD", 5)
	assert.ErrorContains(t, err, "ragged")
}
