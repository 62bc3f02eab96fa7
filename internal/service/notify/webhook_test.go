package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"BreakoutScan/internal/domain/models"
	apphttp "BreakoutScan/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	mu       sync.Mutex
	payloads []payload
	status   int
}

func (c *captured) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var p payload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		c.mu.Lock()
		c.payloads = append(c.payloads, p)
		c.mu.Unlock()
		if c.status != 0 {
			w.WriteHeader(c.status)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func testRun(alerts int) (*models.ScanRun, []models.ScanResult) {
	start := time.Date(2024, 3, 1, 21, 0, 0, 0, time.UTC)
	run := &models.ScanRun{
		ID:             "run",
		StartedAt:      start,
		FinishedAt:     start.Add(90 * time.Second),
		Scanned:        40,
		AlertThreshold: 2,
		Skipped:        []models.SkippedTicker{{Ticker: "GONE", Reason: "no_data"}},
	}
	for i := 0; i < alerts; i++ {
		run.Results = append(run.Results, models.ScanResult{
			Ticker:             fmt.Sprintf("T%02d", i),
			TotalScore:         20 - i%5,
			SignalsMet:         2,
			VolumeDryUp:        models.SignalResult{Detector: models.DetectorVolumeDryUp, Triggered: true, Score: 8, Evaluated: true},
			MomentumDivergence: models.SignalResult{Detector: models.DetectorMomentumDivergence, Evaluated: true},
			RelativeStrength:   models.SignalResult{Detector: models.DetectorRelativeStrength, Triggered: true, Score: 7, Evaluated: true},
			CurrentPrice:       123.456,
			Alert:              true,
			AlertLevel:         models.AlertLevelHighPriority,
		})
	}
	return run, run.Alerts()
}

func newWebhook(url string) *Webhook {
	w := NewWebhook(WebhookConfig{URL: url, Username: "scanner", MaxFields: 10}, apphttp.NewClient(apphttp.WithTimeout(time.Second)), nil)
	w.now = func() time.Time { return time.Date(2024, 3, 1, 21, 2, 0, 0, time.UTC) }
	return w
}

func TestNotifyCapsAlertFields(t *testing.T) {
	c := &captured{}
	srv := httptest.NewServer(c.handler(t))
	defer srv.Close()

	run, alerts := testRun(14)
	require.NoError(t, newWebhook(srv.URL).Notify(context.Background(), run, alerts))

	require.Len(t, c.payloads, 2)
	alert := c.payloads[0].Embeds[0]
	assert.Equal(t, "scanner", c.payloads[0].Username)
	assert.Len(t, alert.Fields, 10)
	assert.Equal(t, "T00", alert.Fields[0].Name)
	assert.Contains(t, alert.Description, "**14**")
	assert.Contains(t, alert.Description, "showing top 10")
	assert.Contains(t, alert.Fields[0].Value, "+ Volume Dry-Up (8)")
	assert.NotContains(t, alert.Fields[0].Value, "Divergences")
	assert.Contains(t, alert.Fields[0].Value, "$123.46")

	summary := c.payloads[1].Embeds[0]
	assert.Equal(t, "Scan Complete", summary.Title)
	assert.Equal(t, "40", summary.Fields[0].Value)
	assert.Equal(t, "14", summary.Fields[1].Value)
	assert.Equal(t, "1", summary.Fields[2].Value)
	assert.Equal(t, "90.0s", summary.Fields[3].Value)
}

func TestNotifyWithoutAlertsSendsSummaryOnly(t *testing.T) {
	c := &captured{}
	srv := httptest.NewServer(c.handler(t))
	defer srv.Close()

	run, alerts := testRun(0)
	require.NoError(t, newWebhook(srv.URL).Notify(context.Background(), run, alerts))
	require.Len(t, c.payloads, 1)
	assert.Equal(t, "Scan Complete", c.payloads[0].Embeds[0].Title)
}

func TestNotifyWithoutURLSendsNothing(t *testing.T) {
	run, alerts := testRun(3)
	assert.NoError(t, newWebhook("").Notify(context.Background(), run, alerts))
}

func TestNotifyReportsRejectedWebhook(t *testing.T) {
	c := &captured{status: http.StatusBadRequest}
	srv := httptest.NewServer(c.handler(t))
	defer srv.Close()

	run, alerts := testRun(1)
	err := newWebhook(srv.URL).Notify(context.Background(), run, alerts)
	var se *apphttp.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Len(t, c.payloads, 1, "summary is not sent after the alert post fails")
}
