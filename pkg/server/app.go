package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"BreakoutScan/internal/domain/models"
	domrepo "BreakoutScan/internal/domain/repository"
	"BreakoutScan/pkg/cache"
	xhttp "BreakoutScan/pkg/http"
	applogger "BreakoutScan/pkg/logger"
	"BreakoutScan/pkg/queue"
)

// Scanner runs one batch over a ticker list.
type Scanner interface {
	Run(ctx context.Context, tickers []string) (*models.ScanRun, error)
}

// Dispatcher hands a finished run to sinks and notifiers.
type Dispatcher interface {
	Dispatch(ctx context.Context, run *models.ScanRun) error
}

// Locker guards a scan date across processes.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// Pusher sends metrics to a Pushgateway.
type Pusher interface {
	Push(ctx context.Context, url, job string) error
}

// Queue delivers on-demand scan requests in serve mode.
type Queue interface {
	Register(job queue.Job)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Options control the run mode and its limits.
type Options struct {
	// Serve keeps the HTTP API up and, with Interval > 0, rescans periodically.
	Serve          bool
	Timeout        time.Duration
	LockTTL        time.Duration
	Interval       time.Duration
	PushgatewayURL string
	Job            string
}

// App encapsulates the entire application lifecycle.
type App struct {
	opts       Options
	log        *applogger.Logger
	tickers    domrepo.TickerSource
	scanner    Scanner
	dispatcher Dispatcher
	locker     Locker
	pusher     Pusher
	queue      Queue
	httpServer *xhttp.Server
	now        func() time.Time
}

// New creates a new App instance with all dependencies. httpServer, pusher
// and q may be nil.
func New(
	opts Options,
	l *applogger.Logger,
	tickers domrepo.TickerSource,
	scanner Scanner,
	dispatcher Dispatcher,
	locker Locker,
	pusher Pusher,
	q Queue,
	httpServer *xhttp.Server,
) *App {
	if l == nil {
		l = applogger.Nop()
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Minute
	}
	return &App{
		opts:       opts,
		log:        l,
		tickers:    tickers,
		scanner:    scanner,
		dispatcher: dispatcher,
		locker:     locker,
		pusher:     pusher,
		queue:      q,
		httpServer: httpServer,
		now:        time.Now,
	}
}

// SetServe switches between one-shot and serve mode (command-line override).
func (a *App) SetServe(serve bool) { a.opts.Serve = serve }

// Run executes one scan, or serves until interrupted in serve mode.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !a.opts.Serve {
		_, err := a.ScanOnce(ctx)
		a.pushMetrics()
		return err
	}
	return a.serve(ctx)
}

func (a *App) serve(ctx context.Context) error {
	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			a.log.Error("http server start error", applogger.Error(err))
			return err
		}
	}

	if a.queue != nil {
		a.queue.Register(scanJob{app: a})
		if err := a.queue.Start(ctx); err != nil {
			a.log.Error("scan queue start error", applogger.Error(err))
			_ = a.shutdown()
			return err
		}
	}

	a.scanLogged(ctx)

	var tick <-chan time.Time
	if a.opts.Interval > 0 {
		t := time.NewTicker(a.opts.Interval)
		defer t.Stop()
		tick = t.C
		a.log.Info("periodic scan enabled", applogger.Duration("interval", a.opts.Interval))
	}

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-tick:
			a.scanLogged(ctx)
		}
	}

	a.log.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) scanLogged(ctx context.Context) {
	if _, err := a.ScanOnce(ctx); err != nil {
		if errors.Is(err, models.ErrRunInProgress) {
			a.log.Warn("scan skipped", applogger.Error(err))
			return
		}
		a.log.Error("scan failed", applogger.Error(err))
	}
}

// ScanOnce loads the watch-list, takes the day's run lock, scans and
// dispatches. A partial run (cancelled or data source down) is still
// dispatched; its error is returned alongside.
func (a *App) ScanOnce(ctx context.Context) (*models.ScanRun, error) {
	return a.scan(ctx, nil)
}

// scan runs ScanOnce over override instead of the watch-list when given.
func (a *App) scan(ctx context.Context, override []string) (*models.ScanRun, error) {
	tickers := override
	if len(tickers) == 0 {
		var err error
		if tickers, err = a.tickers.Load(ctx); err != nil {
			return nil, fmt.Errorf("load tickers: %w", err)
		}
	}
	if len(tickers) == 0 {
		return nil, errors.New("ticker list is empty")
	}

	lockKey := cache.GenerateKey("scan:lock", models.DateKey(a.now()))
	if a.locker != nil {
		ok, err := a.locker.TryLock(ctx, lockKey, a.opts.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", lockKey, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s held: %w", lockKey, models.ErrRunInProgress)
		}
		defer func() {
			// the lock must be released even when ctx was cancelled
			if err := a.locker.Unlock(context.Background(), lockKey); err != nil {
				a.log.Warn("release scan lock", applogger.String("key", lockKey), applogger.Error(err))
			}
		}()
	}

	scanCtx := ctx
	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	run, scanErr := a.scanner.Run(scanCtx, tickers)
	if run == nil {
		return nil, scanErr
	}

	a.log.Info("dispatching run",
		applogger.String("run_id", run.ID),
		applogger.Int("results", len(run.Results)),
		applogger.Int("alerts", len(run.Alerts())),
		applogger.Bool("cancelled", run.Cancelled))

	// sinks get a fresh deadline so a timed-out scan can still be written out
	dispatchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
	defer cancel()
	dispatchErr := a.dispatcher.Dispatch(dispatchCtx, run)

	return run, errors.Join(scanErr, dispatchErr)
}

func (a *App) pushMetrics() {
	if a.pusher == nil || a.opts.PushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.pusher.Push(ctx, a.opts.PushgatewayURL, a.opts.Job); err != nil {
		a.log.Warn("metrics push failed", applogger.Error(err))
	}
}

// shutdown stops the queue workers, then the HTTP server. Infrastructure
// clients are closed by the DI cleanup.
func (a *App) shutdown() error {
	var errs []error
	if a.queue != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := a.queue.Stop(ctx); err != nil {
			a.log.Error("scan queue stop error", applogger.Error(err))
			errs = append(errs, err)
		}
		cancel()
	}
	if a.httpServer != nil {
		if err := a.httpServer.Stop(context.Background()); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}

// scanJob runs queued scan requests. Only a held run lock is retried: any
// other failure already produced (and dispatched) whatever partial run it could.
type scanJob struct {
	app *App
}

func (j scanJob) Type() string { return models.JobTypeScan }

func (j scanJob) Handle(ctx context.Context, payload json.RawMessage) error {
	req, err := queue.Decode[models.ScanRequest](payload)
	if err != nil {
		return err
	}
	j.app.log.Info("queued scan started",
		applogger.String("requested_by", req.RequestedBy),
		applogger.Int("tickers", len(req.Tickers)))

	_, err = j.app.scan(ctx, req.Tickers)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrRunInProgress):
		return err
	default:
		j.app.log.Error("queued scan failed", applogger.Error(err))
		return nil
	}
}
