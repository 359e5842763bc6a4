package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/kudibooks-backend/pkg/db/models"
	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kudibooks-backend/pkg/errors"
	"github.com/angelmondragon/kudibooks-backend/pkg/logger"
)

const defaultMaxAttempts = 8

// ErrLeaseLost is returned when a worker finishes a task it no longer owns.
var ErrLeaseLost = errors.New("task lease lost")

type EnqueueRequest struct {
	Kind        enums.TaskKind
	TenantID    *uuid.UUID
	InvoiceID   *string
	Payload     any
	DedupeKey   string
	RunAt       time.Time
	MaxAttempts int
}

type EnqueueResult struct {
	TaskID       uuid.UUID
	Deduplicated bool
}

// Dispatcher writes durable tasks, usually inside the transaction of the state change that caused them.
type Dispatcher struct {
	repo        *Repository
	logg        *logger.Logger
	maxAttempts int
	clock       func() time.Time
}

func NewDispatcher(repo *Repository, logg *logger.Logger, maxAttempts int) *Dispatcher {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &Dispatcher{
		repo:        repo,
		logg:        logg,
		maxAttempts: maxAttempts,
		clock:       func() time.Time { return time.Now().UTC() },
	}
}

func (d *Dispatcher) Enqueue(ctx context.Context, req EnqueueRequest) (EnqueueResult, error) {
	return d.EnqueueTx(ctx, nil, req)
}

func (d *Dispatcher) EnqueueTx(ctx context.Context, tx *gorm.DB, req EnqueueRequest) (EnqueueResult, error) {
	if !req.Kind.IsValid() {
		return EnqueueResult{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown task kind")
	}
	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return EnqueueResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode task payload")
	}

	now := d.clock()
	runAt := req.RunAt
	if runAt.IsZero() {
		runAt = now
	}
	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = d.maxAttempts
	}

	task := &models.AsyncTask{
		ID:          uuid.New(),
		Kind:        req.Kind,
		TenantID:    req.TenantID,
		InvoiceID:   req.InvoiceID,
		Payload:     payload,
		State:       enums.TaskStatePending,
		MaxAttempts: maxAttempts,
		NextRetryAt: runAt.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if key := strings.TrimSpace(req.DedupeKey); key != "" {
		task.DedupeKey = &key
	}

	inserted, err := d.repo.Insert(ctx, tx, task)
	if err != nil {
		return EnqueueResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enqueue task")
	}
	if !inserted {
		if task.DedupeKey == nil {
			return EnqueueResult{}, pkgerrors.New(pkgerrors.CodeInternal, "task insert skipped without dedupe key")
		}
		existing, err := d.repo.FindByDedupeKey(ctx, tx, *task.DedupeKey)
		if err != nil {
			return EnqueueResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load deduplicated task")
		}
		return EnqueueResult{TaskID: existing.ID, Deduplicated: true}, nil
	}

	if d.logg != nil {
		fields := map[string]any{
			"task_id":   task.ID.String(),
			"task_kind": task.Kind,
			"run_at":    runAt.Format(time.RFC3339Nano),
		}
		if req.InvoiceID != nil {
			fields["invoice_id"] = *req.InvoiceID
		}
		d.logg.Info(d.logg.WithFields(ctx, fields), "task queued")
	}
	return EnqueueResult{TaskID: task.ID}, nil
}
