// Package daemon runs the tower order daemon: it watches the intake
// directory, claims order files, and drives them through the pipeline with a
// bounded worker pool.
package daemon

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/exchangetower/tower/internal/alpaca"
	"github.com/exchangetower/tower/internal/config"
	"github.com/exchangetower/tower/internal/dedupe"
	"github.com/exchangetower/tower/internal/lock"
	"github.com/exchangetower/tower/internal/model"
	"github.com/exchangetower/tower/internal/ratelimit"
	"github.com/exchangetower/tower/internal/response"
)

// settleDelay is how long an intake file rests after an fsnotify event before
// it is offered to the pool. Files renamed into intake are already complete
// and only pay the delay.
const settleDelay = 200 * time.Millisecond

// Daemon owns the long-running process: single-instance lock, intake watcher,
// periodic rescans, worker pool, and graceful shutdown.
type Daemon struct {
	layout Layout
	cfg    config.Config
	logger *slog.Logger

	fileLock *lock.FileLock
	watcher  *fsnotify.Watcher
	ticker   *time.Ticker
	limiter  *ratelimit.Limiter
	pipeline *Pipeline
	stats    *Stats

	work chan string

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	shutdown sync.Once
}

// New assembles a daemon over the given base directory. Credentials select
// which modes can dispatch; a mode without credentials still validates and
// archives its orders, but every dispatch fails as an auth error.
func New(baseDir string, cfg config.Config, creds map[model.Mode]config.Credentials, logger *slog.Logger) (*Daemon, error) {
	layout := Layout{Base: baseDir}

	cache, err := dedupe.NewRecencyCache(cfg.Dedupe.CacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "dedupe cache")
	}

	clients := make(map[model.Mode]Upstream, len(creds))
	chains := make(map[model.Mode]*dedupe.Chain, len(creds))
	archive := dedupe.NewArchiveScanner(layout.CompletedDir())
	for mode, cred := range creds {
		client := alpaca.New(mode,
			alpaca.Credentials{APIKey: cred.APIKey, APISecret: cred.APISecret},
			alpaca.Options{
				BaseURL:     cfg.Alpaca.BaseURLFor(mode),
				DataBaseURL: cfg.Alpaca.DataBaseURL,
				Timeout:     cfg.Alpaca.Timeout(),
				Policy:      cfg.Retry.Policy(),
			},
			logger)
		clients[mode] = client
		chains[mode] = dedupe.NewChain(logger, cache, archive, dedupe.NewUpstreamChecker(client))
	}

	ctx, cancel := context.WithCancel(context.Background())
	limiter := ratelimit.New(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)
	stats := &Stats{}

	d := &Daemon{
		layout:   layout,
		cfg:      cfg,
		logger:   logger,
		fileLock: lock.NewFileLock(layout.LockPath()),
		ticker:   time.NewTicker(time.Duration(cfg.Daemon.ScanIntervalSec) * time.Second),
		limiter:  limiter,
		stats:    stats,
		work:     make(chan string, 256),
		ctx:      ctx,
		cancel:   cancel,
	}
	d.pipeline = NewPipeline(layout, logger, limiter, cache, chains, clients,
		response.NewWriter(layout.ResponsesDir()), lock.NewMutexMap(), stats)
	return d, nil
}

// Run starts the daemon and blocks until shutdown completes.
func (d *Daemon) Run() error {
	for _, dir := range d.layout.Dirs() {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "ensure dir %s", dir)
		}
	}
	if err := d.fileLock.TryLock(); err != nil {
		return errors.Wrap(err, "daemon lock")
	}
	d.logger.Info("daemon_starting", "pid", os.Getpid(), "base", d.layout.Base)

	// Orphans from a previous run go back to intake before new work starts.
	requeued, err := Reconcile(d.layout, d.logger)
	if err != nil {
		d.fileLock.Unlock()
		return err
	}
	if requeued > 0 {
		d.logger.Info("reconcile_done", "requeued", requeued)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		d.fileLock.Unlock()
		return errors.Wrap(err, "create fsnotify watcher")
	}
	d.watcher = watcher
	if err := watcher.Add(d.layout.IncomingDir()); err != nil {
		d.cleanup()
		return errors.Wrapf(err, "watch %s", d.layout.IncomingDir())
	}

	d.startWorkers()

	d.wg.Add(2)
	go d.fsnotifyLoop()
	go d.tickerLoop()

	d.scanIncoming()
	d.logger.Info("daemon_ready", "workers", d.cfg.Daemon.Workers)

	d.waitSignals()
	return nil
}

// startWorkers launches the processing pool. Each worker carries a short id
// so interleaved log lines are attributable.
func (d *Daemon) startWorkers() {
	g, ctx := errgroup.WithContext(d.ctx)
	for i := 0; i < d.cfg.Daemon.Workers; i++ {
		workerID := uuid.NewString()[:8]
		logger := d.logger.With("worker", workerID)
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case path, ok := <-d.work:
					if !ok {
						return nil
					}
					if err := d.pipeline.Process(ctx, path); err != nil {
						logger.Error("process_error", "file", filepath.Base(path), "error", err)
					}
				}
			}
		})
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		g.Wait()
	}()
}

// enqueue offers a path to the pool without blocking; a full queue is fine
// because the periodic scan will re-offer anything still in intake.
func (d *Daemon) enqueue(path string) {
	select {
	case d.work <- path:
	default:
	}
}

// scanIncoming enqueues every intake file, oldest timestamp first.
func (d *Daemon) scanIncoming() {
	entries, err := os.ReadDir(d.layout.IncomingDir())
	if err != nil {
		d.logger.Error("scan_incoming", "error", err)
		return
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		d.enqueue(filepath.Join(d.layout.IncomingDir(), name))
	}
}

func (d *Daemon) fsnotifyLoop() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			// Create covers both direct writes and renames into intake.
			// The enqueue is delayed so an agent writing in place has
			// finished before a worker claims the file; a half-written
			// order would otherwise fail validation instead of being
			// processed once complete.
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				if strings.HasPrefix(filepath.Base(event.Name), ".") {
					continue
				}
				name := event.Name
				time.AfterFunc(settleDelay, func() { d.enqueue(name) })
			}
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.logger.Error("fsnotify_error", "error", err)
		}
	}
}

func (d *Daemon) tickerLoop() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case <-d.ticker.C:
			d.scanIncoming()
			d.stats.LogSummary(d.logger)
		}
	}
}

func (d *Daemon) waitSignals() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigCh
	d.logger.Info("signal_received", "signal", sig.String())

	go func() {
		<-sigCh
		d.logger.Warn("second_signal_forcing_exit")
		os.Exit(1)
	}()

	d.Shutdown()
}

// Shutdown drains in-flight work within the configured timeout. Idempotent.
func (d *Daemon) Shutdown() {
	d.shutdown.Do(func() {
		d.logger.Info("shutdown_started")

		d.cancel()
		d.ticker.Stop()
		if d.watcher != nil {
			d.watcher.Close()
		}
		d.limiter.Close()

		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()

		timeout := time.Duration(d.cfg.Daemon.ShutdownTimeoutSec) * time.Second
		select {
		case <-done:
			d.logger.Info("workers_drained")
		case <-time.After(timeout):
			d.logger.Warn("shutdown_timeout", "timeout", timeout)
		}

		d.cleanup()
		d.stats.LogSummary(d.logger)
		d.logger.Info("daemon_stopped")
	})
}

func (d *Daemon) cleanup() {
	if d.watcher != nil {
		d.watcher.Close()
	}
	d.fileLock.Unlock()
}
