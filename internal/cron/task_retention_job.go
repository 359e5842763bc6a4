package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/kudibooks-backend/pkg/logger"
)

const defaultTaskRetentionDays = 14

type taskPurger interface {
	PurgeFinished(ctx context.Context, cutoff time.Time) (int64, error)
}

type TaskRetentionJobParams struct {
	Logger        *logger.Logger
	Tasks         taskPurger
	RetentionDays int
	Now           func() time.Time
}

// NewTaskRetentionJob deletes completed and dead async tasks older than the retention window.
func NewTaskRetentionJob(params TaskRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Tasks == nil {
		return nil, fmt.Errorf("task repository required")
	}
	days := params.RetentionDays
	if days <= 0 {
		days = defaultTaskRetentionDays
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &taskRetentionJob{logg: params.Logger, tasks: params.Tasks, days: days, now: now}, nil
}

type taskRetentionJob struct {
	logg  *logger.Logger
	tasks taskPurger
	days  int
	now   func() time.Time
}

func (j *taskRetentionJob) Name() string { return "task-retention" }

func (j *taskRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.days) * 24 * time.Hour)
	deleted, err := j.tasks.PurgeFinished(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge finished tasks: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.days,
		"rows_deleted":   deleted,
	}), "task retention cleanup complete")
	return nil
}
