package runs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"creatorsync/internal/logging"
	"creatorsync/internal/notifications"
	"creatorsync/internal/services"
	"creatorsync/internal/store"
)

// Run types.
const (
	TypeSync       = "sync"
	TypeEnrichment = "enrichment"
)

// StopTimeBudget is the stop reason recorded when the outer time budget expires.
const StopTimeBudget = "time_budget"

// Ledger persists run entries.
type Ledger interface {
	BeginRun(ctx context.Context, run store.Run) error
	Heartbeat(ctx context.Context, id string, counters map[string]int) error
	FinishRun(ctx context.Context, id string, status store.RunStatus, stopReason string, counters map[string]int, errMessage string) error
	ReclaimStaleRuns(ctx context.Context, runType string, cutoff time.Time) (int64, error)
}

// Outcome is what a job reports back.
type Outcome struct {
	Counters   map[string]int
	StopReason string
	Err        error
}

// Job performs the work of one run. progress writes a heartbeat with the
// running counters and should be called between pages or items.
type Job func(ctx context.Context, progress func(counters map[string]int)) Outcome

// Summary describes a finished (or skipped) run.
type Summary struct {
	RunID      string
	Type       string
	Status     store.RunStatus
	StopReason string
	Counters   map[string]int
	Duration   time.Duration
	Duplicate  bool
	Err        error
}

// Options configures a Coordinator.
type Options struct {
	Ledger     Ledger
	Locks      []Locker
	Notifier   notifications.Service
	TimeBudget time.Duration
	Logger     *slog.Logger
}

// Coordinator runs jobs under the single-flight guard.
type Coordinator struct {
	ledger   Ledger
	locks    []Locker
	notifier notifications.Service
	budget   time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewCoordinator constructs a Coordinator. Nil lockers are ignored.
func NewCoordinator(opts Options) *Coordinator {
	locks := make([]Locker, 0, len(opts.Locks))
	for _, l := range opts.Locks {
		if l != nil {
			locks = append(locks, l)
		}
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewNoop()
	}
	budget := opts.TimeBudget
	if budget <= 0 {
		budget = time.Hour
	}
	return &Coordinator{
		ledger:   opts.Ledger,
		locks:    locks,
		notifier: notifier,
		budget:   budget,
		logger:   logging.NewComponentLogger(opts.Logger, "runs"),
		now:      time.Now,
	}
}

// SetClock overrides the time source. Intended for tests.
func (c *Coordinator) SetClock(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

// Execute runs job as runType. A run already in flight yields a duplicate
// summary and a nil error. The returned error covers guard and ledger failures
// only; job failures are reported in Summary.Err.
func (c *Coordinator) Execute(ctx context.Context, runType string, params map[string]any, job Job) (Summary, error) {
	summary := Summary{Type: runType}
	logger := c.logger.With(logging.String(logging.FieldRunType, runType))

	for _, locker := range c.locks {
		release, ok, err := locker.Acquire(ctx, runType, c.budget+time.Minute)
		if err != nil {
			return summary, fmt.Errorf("%s run lock: %w", runType, err)
		}
		if !ok {
			logger.Info("run already in flight; skipping", logging.String(logging.FieldEventType, "run_duplicate"))
			summary.Duplicate = true
			return summary, nil
		}
		defer release()
	}

	if reclaimed, err := c.ledger.ReclaimStaleRuns(ctx, runType, c.now().Add(-c.budget)); err != nil {
		return summary, err
	} else if reclaimed > 0 {
		logging.WarnWithContext(logger, "reclaimed stale runs", "run_reclaimed",
			logging.Int64("reclaimed", reclaimed),
			logging.String(logging.FieldErrorHint, "a previous run stopped without finishing; check earlier logs"),
			logging.String(logging.FieldImpact, "the stale entries are marked failed"),
		)
	}

	summary.RunID = uuid.NewString()
	if err := c.ledger.BeginRun(ctx, store.Run{ID: summary.RunID, Type: runType, Params: params}); err != nil {
		if errors.Is(err, services.ErrRunInFlight) {
			logger.Info("run already in flight; skipping", logging.String(logging.FieldEventType, "run_duplicate"))
			return Summary{Type: runType, Duplicate: true}, nil
		}
		return summary, err
	}

	runCtx := services.WithRunID(ctx, summary.RunID)
	runCtx = services.WithRunType(runCtx, runType)
	runCtx = services.WithRequestID(runCtx, uuid.NewString())
	runCtx, cancel := context.WithTimeout(runCtx, c.budget)
	defer cancel()
	logger = logging.WithContext(runCtx, c.logger)

	// Ledger and notification writes must land even after the budget expires.
	bookkeeping := context.WithoutCancel(runCtx)

	c.publish(bookkeeping, logger, notifications.EventRunStarted, notifications.Payload{
		"run_type": runType,
		"run_id":   summary.RunID,
	})
	logger.Info("run started", logging.String(logging.FieldEventType, "run_started"))

	start := c.now()
	progress := func(counters map[string]int) {
		if err := c.ledger.Heartbeat(bookkeeping, summary.RunID, counters); err != nil {
			logging.WarnWithContext(logger, "run heartbeat failed", "heartbeat_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "the run may be reclaimed as stale"),
			)
		}
	}
	outcome := job(runCtx, progress)

	summary.Duration = c.now().Sub(start)
	summary.Counters = outcome.Counters
	summary.StopReason = outcome.StopReason
	summary.Err = outcome.Err
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		summary.StopReason = StopTimeBudget
	}
	summary.Status = StatusFor(summary.StopReason, summary.Err)

	errMessage := ""
	if summary.Err != nil {
		errMessage = summary.Err.Error()
	}
	if err := c.ledger.FinishRun(bookkeeping, summary.RunID, summary.Status, summary.StopReason, summary.Counters, errMessage); err != nil {
		return summary, err
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "run_completed"),
		logging.String("status", string(summary.Status)),
		logging.String("stop_reason", summary.StopReason),
		logging.Duration("duration", summary.Duration),
		logging.Any("counters", summary.Counters),
	}
	if summary.Status == store.RunFailed {
		logging.ErrorWithContext(logger, "run failed", "run_failed", append(attrs,
			logging.Error(summary.Err),
			logging.String(logging.FieldErrorHint, "check credentials and connectivity, then rerun"),
		)...)
	} else {
		logger.Info("run finished", logging.Args(attrs...)...)
	}

	payload := notifications.Payload{
		"run_type":    runType,
		"run_id":      summary.RunID,
		"status":      string(summary.Status),
		"stop_reason": summary.StopReason,
		"duration":    summary.Duration.Round(time.Second).String(),
		"counters":    summary.Counters,
	}
	if errMessage != "" {
		payload["error"] = errMessage
	}
	c.publish(bookkeeping, logger, notifications.EventRunCompleted, payload)
	return summary, nil
}

func (c *Coordinator) publish(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if err := c.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "run report not delivered"),
		)
	}
}

// StatusFor maps a stop reason and error onto the ledger status. Natural ends
// are completed; early stops that keep committed work are stopped; anything
// that prevented the run from doing its work is failed.
func StatusFor(stopReason string, err error) store.RunStatus {
	switch stopReason {
	case "token_absent", "batch_complete", "empty":
		return store.RunCompleted
	case "page_cap", "quota_exceeded", "cancelled", StopTimeBudget:
		return store.RunStopped
	case "api_error", "configuration_error", "selection_error":
		return store.RunFailed
	}
	if err != nil {
		return store.RunFailed
	}
	return store.RunCompleted
}
