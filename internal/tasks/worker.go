package tasks

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/angelmondragon/kudibooks-backend/pkg/config"
	"github.com/angelmondragon/kudibooks-backend/pkg/db/models"
	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	"github.com/angelmondragon/kudibooks-backend/pkg/logger"
	"github.com/angelmondragon/kudibooks-backend/pkg/metrics"
)

const (
	defaultBatchSize   = 20
	defaultPollMs      = 1000
	defaultConcurrency = 4
	defaultTimeout     = 60 * time.Second
	defaultLease       = 2 * time.Minute
	maxIdleBackoff     = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

// Handler executes one task. Returning an error wrapped with Permanent stops retries.
type Handler func(ctx context.Context, task models.AsyncTask) error

type pinger interface {
	Ping(context.Context) error
}

type failureAlerter interface {
	TaskFailedPermanently(ctx context.Context, task models.AsyncTask, err error)
}

type WorkerParams struct {
	Config   config.TasksConfig
	Logger   *logger.Logger
	DB       pinger
	Repo     *Repository
	Handlers map[enums.TaskKind]Handler
	Metrics  *metrics.TaskMetrics
	Alerter  failureAlerter
	Owner    string
}

// Worker polls the task table and runs due tasks on a bounded pool.
type Worker struct {
	logg         *logger.Logger
	db           pinger
	repo         *Repository
	handlers     map[enums.TaskKind]Handler
	metrics      *metrics.TaskMetrics
	alerter      failureAlerter
	owner        string
	batchSize    int
	concurrency  int
	pollInterval time.Duration
	lease        time.Duration
	timeout      time.Duration
	retry        RetryPolicy
	clock        func() time.Time
}

func NewWorker(params WorkerParams) (*Worker, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Repo == nil {
		return nil, errors.New("task repository is required")
	}
	if len(params.Handlers) == 0 {
		return nil, errors.New("at least one task handler is required")
	}
	if params.Owner == "" {
		return nil, errors.New("worker owner id is required")
	}

	cfg := params.Config
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := cfg.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	lease := cfg.LeaseDuration
	if lease <= timeout {
		lease = timeout + defaultLease
	}
	retry := RetryPolicy{Base: cfg.BaseBackoff, Max: cfg.MaxBackoff}
	if retry.Base <= 0 {
		retry.Base = 5 * time.Second
	}
	if retry.Max < retry.Base {
		retry.Max = time.Hour
	}

	return &Worker{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repo,
		handlers:     params.Handlers,
		metrics:      params.Metrics,
		alerter:      params.Alerter,
		owner:        params.Owner,
		batchSize:    batch,
		concurrency:  concurrency,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
		lease:        lease,
		timeout:      timeout,
		retry:        retry,
		clock:        func() time.Time { return time.Now().UTC() },
	}, nil
}

func (w *Worker) Run(ctx context.Context) error {
	if w.db != nil {
		if err := w.db.Ping(ctx); err != nil {
			w.logg.Error(ctx, "database ping failed", err)
			return fmt.Errorf("database ping failed: %w", err)
		}
	}

	interval := w.pollInterval
	backoff := interval
	ctx = w.logg.WithField(ctx, "worker", w.owner)
	w.logg.Info(ctx, "task worker started")

	for {
		select {
		case <-ctx.Done():
			w.logg.Info(ctx, "task worker context canceled")
			return ctx.Err()
		default:
		}

		processed, err := w.RunOnce(ctx)
		if err != nil {
			w.logg.Error(ctx, "task batch error", err)
			backoff = nextBackoff(backoff, interval, maxIdleBackoff)
			if err := sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval
		if processed > 0 {
			continue
		}
		if err := sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

// RunOnce claims one batch and executes it to completion.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	tasks, err := w.repo.Claim(ctx, w.owner, w.clock(), w.lease, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("claim tasks: %w", err)
	}
	if len(tasks) == 0 {
		return 0, nil
	}

	p := pool.New().WithMaxGoroutines(w.concurrency)
	for _, task := range tasks {
		task := task
		p.Go(func() {
			w.execute(ctx, task)
		})
	}
	p.Wait()
	return len(tasks), nil
}

func (w *Worker) execute(ctx context.Context, task models.AsyncTask) {
	taskCtx := w.logg.WithTask(ctx, task.ID.String(), string(task.Kind))
	if task.InvoiceID != nil {
		taskCtx = w.logg.WithInvoiceID(taskCtx, *task.InvoiceID)
	}
	taskCtx = w.logg.WithField(taskCtx, "attempt_count", task.AttemptCount)

	started := time.Now()
	err := w.invoke(taskCtx, task)
	result := "succeeded"
	defer func() {
		if w.metrics != nil {
			w.metrics.Observe(string(task.Kind), result, time.Since(started))
		}
	}()

	now := w.clock()
	if err == nil {
		if markErr := w.repo.Complete(ctx, task.ID, w.owner, now); markErr != nil {
			w.logg.Error(taskCtx, "mark task succeeded", markErr)
			return
		}
		w.logg.Info(taskCtx, "task succeeded")
		return
	}

	if IsPermanent(err) || task.AttemptCount >= task.MaxAttempts {
		result = "failed_permanent"
		if markErr := w.repo.FailPermanent(ctx, task.ID, w.owner, err.Error(), now); markErr != nil {
			w.logg.Error(taskCtx, "mark task failed", markErr)
			return
		}
		if w.metrics != nil {
			w.metrics.IncFailedPermanent(string(task.Kind))
		}
		if w.alerter != nil {
			w.alerter.TaskFailedPermanently(taskCtx, task, err)
		}
		return
	}

	result = "retry"
	next := now.Add(w.retry.Delay(task.AttemptCount))
	if markErr := w.repo.Reschedule(ctx, task.ID, w.owner, next, err.Error(), now); markErr != nil {
		w.logg.Error(taskCtx, "reschedule task", markErr)
		return
	}
	retryCtx := w.logg.WithFields(taskCtx, map[string]any{
		"error":         err.Error(),
		"next_retry_at": next.Format(time.RFC3339),
	})
	w.logg.Warn(retryCtx, "task failed, retry scheduled")
}

func (w *Worker) invoke(ctx context.Context, task models.AsyncTask) (err error) {
	handler, ok := w.handlers[task.Kind]
	if !ok {
		return Permanent(fmt.Errorf("no handler registered for %s", task.Kind))
	}

	execCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task handler panic: %v", rec)
		}
	}()
	return handler(execCtx, task)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}
