package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/kudibooks-backend/pkg/logger"
)

const (
	defaultReconcileAfter = 30 * time.Minute
	defaultReconcileBatch = 100
)

type staleVerifier interface {
	EnqueueStaleVerifications(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

type PaymentReconcileJobParams struct {
	Logger   *logger.Logger
	Invoices staleVerifier
	After    time.Duration
	Batch    int
}

// NewPaymentReconcileJob queues provider verification for invoices stuck in
// awaiting_confirmation, covering webhooks that never arrived.
func NewPaymentReconcileJob(params PaymentReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Invoices == nil {
		return nil, fmt.Errorf("invoice service required")
	}
	after := params.After
	if after <= 0 {
		after = defaultReconcileAfter
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	return &paymentReconcileJob{logg: params.Logger, invoices: params.Invoices, after: after, batch: batch}, nil
}

type paymentReconcileJob struct {
	logg     *logger.Logger
	invoices staleVerifier
	after    time.Duration
	batch    int
}

func (j *paymentReconcileJob) Name() string { return "payment-reconcile" }

func (j *paymentReconcileJob) Run(ctx context.Context) error {
	queued, err := j.invoices.EnqueueStaleVerifications(ctx, j.after, j.batch)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"stale_after": j.after.String(),
		"batch":       j.batch,
		"queued":      queued,
	})
	if err != nil {
		return fmt.Errorf("enqueue stale verifications: %w", err)
	}
	j.logg.Info(logCtx, "payment reconcile pass complete")
	return nil
}
