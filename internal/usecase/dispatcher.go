package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"BreakoutScan/internal/domain/models"
	domrepo "BreakoutScan/internal/domain/repository"
	"BreakoutScan/pkg/logger"
)

// Dispatcher hands a finalized run to every sink and its alerts to every notifier.
type Dispatcher struct {
	store     domrepo.RunStore
	sinks     []domrepo.ResultSink
	notifiers []domrepo.Notifier
	metrics   domrepo.Metrics
	log       *logger.Logger
}

func NewDispatcher(store domrepo.RunStore, sinks []domrepo.ResultSink, notifiers []domrepo.Notifier, metrics domrepo.Metrics, l *logger.Logger) *Dispatcher {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if l == nil {
		l = logger.Nop()
	}
	return &Dispatcher{store: store, sinks: sinks, notifiers: notifiers, metrics: metrics, log: l}
}

// Dispatch never stops at the first failure; all errors are joined.
func (d *Dispatcher) Dispatch(ctx context.Context, run *models.ScanRun) error {
	var errs []error

	if d.store != nil {
		if err := d.store.Save(ctx, run); err != nil {
			errs = append(errs, fmt.Errorf("run store: %w", err))
		}
	}

	for _, sink := range d.sinks {
		start := time.Now()
		if err := sink.Save(ctx, run); err != nil {
			d.metrics.RecordError("sink_" + sink.Name())
			d.log.Error("result sink failed", logger.String("sink", sink.Name()), logger.Error(err))
			errs = append(errs, fmt.Errorf("sink %s: %w", sink.Name(), err))
			continue
		}
		d.metrics.RecordLatency("sink_"+sink.Name(), time.Since(start).Seconds())
		d.log.Debug("results saved", logger.String("sink", sink.Name()))
	}

	alerts := run.Alerts()
	for _, n := range d.notifiers {
		if err := n.Notify(ctx, run, alerts); err != nil {
			d.metrics.RecordError("notify_" + n.Name())
			d.log.Error("notifier failed", logger.String("notifier", n.Name()), logger.Error(err))
			errs = append(errs, fmt.Errorf("notifier %s: %w", n.Name(), err))
			continue
		}
		d.log.Info("alerts delivered", logger.String("notifier", n.Name()), logger.Int("alerts", len(alerts)))
	}

	return errors.Join(errs...)
}
