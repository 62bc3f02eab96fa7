package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.RecordTickerScanned("ok")
	r.RecordTickerScanned("ok")
	r.RecordTickerScanned("no_data")
	r.RecordSignal("volume_dry_up", true, 7)
	r.RecordSignal("volume_dry_up", false, 2)
	r.RecordError("insufficient_history")
	r.RecordRun(40, 3, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.tickersScanned.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.tickersScanned.WithLabelValues("no_data")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.signalsTotal.WithLabelValues("volume_dry_up", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("insufficient_history")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.lastRun.WithLabelValues("alerts")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.signalScore))
}

func TestRecordersAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.RecordError("x")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.errorsTotal.WithLabelValues("x")))
}

func TestHandlerServesScannerMetrics(t *testing.T) {
	r := New()
	r.RecordTickerScanned("ok")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `scanner_tickers_scanned_total{outcome="ok"} 1`)
}

func TestPush(t *testing.T) {
	var hits atomic.Int32
	var path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		path = req.URL.Path
		b, _ := io.ReadAll(req.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := New()
	r.RecordRun(10, 1, 0)
	require.NoError(t, r.Push(context.Background(), srv.URL, "breakout_scanner"))
	assert.Equal(t, int32(1), hits.Load())
	assert.True(t, strings.HasSuffix(path, "/metrics/job/breakout_scanner"), path)
	assert.NotEmpty(t, body)

	require.NoError(t, r.Push(context.Background(), "", "job"))
	assert.Equal(t, int32(1), hits.Load(), "empty url is a no-op")
}
