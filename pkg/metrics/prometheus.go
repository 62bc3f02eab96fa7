package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "scanner"

// Recorder implements domain.repository.Metrics using Prometheus. Each
// Recorder owns its registry so tests can build as many as they like.
type Recorder struct {
	reg *prometheus.Registry

	tickersScanned *prometheus.CounterVec
	signalsTotal   *prometheus.CounterVec
	signalScore    *prometheus.HistogramVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	lastRun        *prometheus.GaugeVec
	lastRunTime    prometheus.Gauge
}

// New creates a recorder. Go and process collectors come from the default
// registry through Gatherer.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		reg: reg,
		tickersScanned: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tickers_scanned_total",
				Help:      "Tickers processed by outcome (ok or a skip reason)",
			},
			[]string{"outcome"},
		),
		signalsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signals_evaluated_total",
				Help:      "Detector evaluations by detector and verdict",
			},
			[]string{"detector", "triggered"},
		),
		signalScore: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "signal_score",
				Help:      "Distribution of detector scores",
				Buckets:   prometheus.LinearBuckets(0, 1, 11),
			},
			[]string{"detector"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Errors and unevaluated detectors by kind",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of operations in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300, 900},
			},
			[]string{"operation"},
		),
		lastRun: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_tickers",
				Help:      "Ticker counts of the most recent run",
			},
			[]string{"kind"},
		),
		lastRunTime: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the most recent run finished",
		}),
	}
}

func (r *Recorder) RecordTickerScanned(outcome string) {
	r.tickersScanned.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordSignal(detector string, triggered bool, score int) {
	r.signalsTotal.WithLabelValues(detector, strconv.FormatBool(triggered)).Inc()
	r.signalScore.WithLabelValues(detector).Observe(float64(score))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordRun(scanned, alerts, skipped int) {
	r.lastRun.WithLabelValues("scanned").Set(float64(scanned))
	r.lastRun.WithLabelValues("alerts").Set(float64(alerts))
	r.lastRun.WithLabelValues("skipped").Set(float64(skipped))
	r.lastRunTime.SetToCurrentTime()
}

// Registerer exposes the recorder's registry to other collectors (HTTP
// middleware, Kafka producer).
func (r *Recorder) Registerer() prometheus.Registerer { return r.reg }

// Gatherer merges this registry with the default one, which carries the Go
// runtime and process collectors.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return prometheus.Gatherers{r.reg, prometheus.DefaultGatherer}
}

// Handler serves the merged metrics for scraping.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.Gatherer(), promhttp.HandlerOpts{})
}

// Push sends the current metrics to a Pushgateway; used by one-shot runs
// that exit before any scrape.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	p := push.New(url, job).Gatherer(r.Gatherer())
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
