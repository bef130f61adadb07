package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"darkroom/internal/config"
	"darkroom/internal/lifecycle"
	"darkroom/internal/logging"
	"darkroom/internal/workflow"
)

// Runner executes one sync run. Satisfied by *workflow.Runner.
type Runner interface {
	RunOnce(ctx context.Context) (workflow.Summary, error)
}

// Daemon schedules sync runs and enforces single-instance execution.
type Daemon struct {
	cfg       *config.Config
	runner    Runner
	lifecycle *lifecycle.Manager
	logger    *slog.Logger

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, runner Runner, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || runner == nil {
		return nil, errors.New("daemon requires config and runner")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "darkroom.lock")
	return &Daemon{
		cfg:       cfg,
		runner:    runner,
		lifecycle: lifecycle.NewManager(cfg, logger),
		logger:    logging.NewComponentLogger(logger, "daemon"),
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// LockPath returns the path of the single-instance lock file.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// Start acquires the daemon lock and launches the schedule loop. It
// returns immediately; use Stop or cancel the context to shut down.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another darkroom instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.running.Store(true)

	go d.loop(runCtx)
	return nil
}

// Stop cancels the schedule loop and releases the lock. It blocks until
// an in-flight run finishes.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.cancel()
	<-d.done
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release lock", logging.Error(err))
	}
	d.running.Store(false)
}

// Running reports whether the schedule loop is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

func (d *Daemon) loop(ctx context.Context) {
	defer close(d.done)

	interval := d.cfg.SyncInterval()
	d.logger.Info("daemon started",
		logging.Duration("interval", interval),
		logging.String("lock_path", d.lockPath))

	d.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweepTimer := time.NewTimer(untilNextMidnight(time.Now()))
	defer sweepTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("daemon stopping")
			return
		case <-ticker.C:
			d.runOnce(ctx)
		case <-sweepTimer.C:
			if removed := d.lifecycle.CleanupArchive(); removed > 0 {
				d.logger.Info("nightly archive sweep complete", logging.Int("removed", removed))
			}
			sweepTimer.Reset(untilNextMidnight(time.Now()))
		}
	}
}

func (d *Daemon) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	summary, err := d.runner.RunOnce(ctx)
	if err != nil {
		d.logger.Error("sync run aborted", logging.Error(err))
		return
	}
	if summary.Failed > 0 {
		d.logger.Warn("sync run finished with failures",
			logging.Int("failed", summary.Failed),
			logging.Int("succeeded", summary.Succeeded))
	}
}

// untilNextMidnight returns the duration until the next local midnight.
func untilNextMidnight(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	return next.Sub(now)
}
