package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"creatorsync/internal/logging"
)

// Task executes one run of a schedule.
type Task func(ctx context.Context) error

// Schedule is a run type triggered every Interval.
type Schedule struct {
	Name     string
	Interval time.Duration
	Task     Task
	// RunOnStart triggers the first run immediately instead of after one interval.
	RunOnStart bool
}

// Daemon coordinates the scheduled runs and enforces single-instance execution.
type Daemon struct {
	schedules []Schedule
	logger    *slog.Logger

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Schedules    []string
	LockFilePath string
}

// New constructs a daemon that locks lockDir/daemon.lock while running.
func New(lockDir string, schedules []Schedule, logger *slog.Logger) (*Daemon, error) {
	if len(schedules) == 0 {
		return nil, errors.New("daemon requires at least one schedule")
	}
	for _, s := range schedules {
		if s.Interval <= 0 || s.Task == nil {
			return nil, fmt.Errorf("schedule %q needs a positive interval and a task", s.Name)
		}
	}
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lockPath := filepath.Join(lockDir, "daemon.lock")
	return &Daemon{
		schedules: schedules,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches one loop per schedule.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another creatorsync daemon instance is already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	for _, s := range d.schedules {
		d.wg.Add(1)
		go d.loop(loopCtx, s)
	}

	d.running.Store(true)
	d.logger.Info("creatorsync daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("schedules", len(d.schedules)),
	)
	return nil
}

func (d *Daemon) loop(ctx context.Context, s Schedule) {
	defer d.wg.Done()
	logger := d.logger.With(logging.String(logging.FieldRunType, s.Name))

	if s.RunOnStart {
		d.tick(ctx, s, logger)
	}
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx, s, logger)
		}
	}
}

func (d *Daemon) tick(ctx context.Context, s Schedule, logger *slog.Logger) {
	if ctx.Err() != nil {
		return
	}
	if err := s.Task(ctx); err != nil {
		logging.WarnWithContext(logger, "scheduled run failed", "scheduled_run_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the next tick retries"),
		)
	}
}

// Stop cancels the loops, waits for in-progress runs, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("creatorsync daemon stopped")
}

// Status reports whether the daemon is running and what it schedules.
func (d *Daemon) Status() Status {
	names := make([]string, 0, len(d.schedules))
	for _, s := range d.schedules {
		names = append(names, s.Name)
	}
	return Status{Running: d.running.Load(), Schedules: names, LockFilePath: d.lockPath}
}
