package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/kudibooks-backend/pkg/config"
	"github.com/angelmondragon/kudibooks-backend/pkg/db/models"
	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kudibooks-backend/pkg/errors"
	"github.com/angelmondragon/kudibooks-backend/pkg/metrics"
)

type recordingAlerter struct {
	mu     sync.Mutex
	failed []models.AsyncTask
}

func (a *recordingAlerter) TaskFailedPermanently(_ context.Context, task models.AsyncTask, _ error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failed = append(a.failed, task)
}

func newWorker(t *testing.T, repo *Repository, handlers map[enums.TaskKind]Handler, alerter failureAlerter) *Worker {
	t.Helper()
	w, err := NewWorker(WorkerParams{
		Config: config.TasksConfig{
			BatchSize:   10,
			Concurrency: 2,
			Timeout:     time.Second,
			BaseBackoff: time.Second,
			MaxBackoff:  time.Minute,
		},
		Logger:   testLogger(),
		Repo:     repo,
		Handlers: handlers,
		Metrics:  metrics.NewTaskMetrics(prometheus.NewRegistry()),
		Alerter:  alerter,
		Owner:    "test-worker",
	})
	require.NoError(t, err)
	return w
}

func TestWorkerCompletesTask(t *testing.T) {
	d, repo, _ := newDispatcher(t)
	ctx := context.Background()
	var seen atomic.Int32
	w := newWorker(t, repo, map[enums.TaskKind]Handler{
		enums.TaskKindRenderInvoicePDF: func(ctx context.Context, task models.AsyncTask) error {
			seen.Add(1)
			return nil
		},
	}, nil)

	res, err := d.Enqueue(ctx, EnqueueRequest{Kind: enums.TaskKindRenderInvoicePDF, Payload: RenderPayload{InvoiceID: "INV-9"}})
	require.NoError(t, err)

	w.clock = func() time.Time { return time.Now().UTC().Add(time.Second) }
	processed, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.EqualValues(t, 1, seen.Load())

	stored, err := repo.FindByID(ctx, res.TaskID)
	require.NoError(t, err)
	assert.Equal(t, enums.TaskStateSucceeded, stored.State)
	assert.Nil(t, stored.LeaseOwner)
	assert.NotNil(t, stored.CompletedAt)
}

func TestWorkerRetriesThenExhausts(t *testing.T) {
	d, repo, _ := newDispatcher(t)
	ctx := context.Background()
	alerter := &recordingAlerter{}
	w := newWorker(t, repo, map[enums.TaskKind]Handler{
		enums.TaskKindVerifyPayment: func(ctx context.Context, task models.AsyncTask) error {
			return errors.New("provider timeout")
		},
	}, alerter)

	res, err := d.Enqueue(ctx, EnqueueRequest{Kind: enums.TaskKindVerifyPayment, Payload: VerifyPayload{InvoiceID: "INV-5"}, MaxAttempts: 2})
	require.NoError(t, err)

	now := time.Now().UTC().Add(time.Second)
	w.clock = func() time.Time { return now }
	_, err = w.RunOnce(ctx)
	require.NoError(t, err)

	stored, err := repo.FindByID(ctx, res.TaskID)
	require.NoError(t, err)
	assert.Equal(t, enums.TaskStatePending, stored.State)
	assert.Equal(t, 1, stored.AttemptCount)
	require.NotNil(t, stored.LastError)
	assert.Equal(t, "provider timeout", *stored.LastError)
	assert.True(t, stored.NextRetryAt.After(now))

	// not due yet
	processed, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, processed)

	now = now.Add(2 * time.Minute)
	processed, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	stored, err = repo.FindByID(ctx, res.TaskID)
	require.NoError(t, err)
	assert.Equal(t, enums.TaskStateFailedPermanent, stored.State)
	assert.Equal(t, 2, stored.AttemptCount)
	require.Len(t, alerter.failed, 1)
	assert.Equal(t, res.TaskID, alerter.failed[0].ID)
}

func TestWorkerPermanentErrorStopsImmediately(t *testing.T) {
	d, repo, _ := newDispatcher(t)
	ctx := context.Background()
	alerter := &recordingAlerter{}
	w := newWorker(t, repo, map[enums.TaskKind]Handler{
		enums.TaskKindVerifyPayment: func(ctx context.Context, task models.AsyncTask) error {
			return pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		},
	}, alerter)

	res, err := d.Enqueue(ctx, EnqueueRequest{Kind: enums.TaskKindVerifyPayment, Payload: VerifyPayload{InvoiceID: "INV-6"}})
	require.NoError(t, err)

	w.clock = func() time.Time { return time.Now().UTC().Add(time.Second) }
	_, err = w.RunOnce(ctx)
	require.NoError(t, err)

	stored, err := repo.FindByID(ctx, res.TaskID)
	require.NoError(t, err)
	assert.Equal(t, enums.TaskStateFailedPermanent, stored.State)
	assert.Equal(t, 1, stored.AttemptCount)
	assert.Len(t, alerter.failed, 1)
}

func TestWorkerRecoversHandlerPanic(t *testing.T) {
	d, repo, _ := newDispatcher(t)
	ctx := context.Background()
	w := newWorker(t, repo, map[enums.TaskKind]Handler{
		enums.TaskKindRenderInvoicePDF: func(ctx context.Context, task models.AsyncTask) error {
			panic("boom")
		},
	}, nil)

	res, err := d.Enqueue(ctx, EnqueueRequest{Kind: enums.TaskKindRenderInvoicePDF, Payload: RenderPayload{InvoiceID: "INV-7"}})
	require.NoError(t, err)
	w.clock = func() time.Time { return time.Now().UTC().Add(time.Second) }
	_, err = w.RunOnce(ctx)
	require.NoError(t, err)

	stored, err := repo.FindByID(ctx, res.TaskID)
	require.NoError(t, err)
	assert.Equal(t, enums.TaskStatePending, stored.State)
	require.NotNil(t, stored.LastError)
	assert.Contains(t, *stored.LastError, "panic")
}

func TestWorkerUnknownKindFailsPermanently(t *testing.T) {
	d, repo, _ := newDispatcher(t)
	ctx := context.Background()
	w := newWorker(t, repo, map[enums.TaskKind]Handler{
		enums.TaskKindRenderInvoicePDF: func(ctx context.Context, task models.AsyncTask) error { return nil },
	}, nil)

	res, err := d.Enqueue(ctx, EnqueueRequest{Kind: enums.TaskKindSendNotification, Payload: NotificationPayload{RecipientRef: "x"}})
	require.NoError(t, err)
	w.clock = func() time.Time { return time.Now().UTC().Add(time.Second) }
	_, err = w.RunOnce(ctx)
	require.NoError(t, err)

	stored, err := repo.FindByID(ctx, res.TaskID)
	require.NoError(t, err)
	assert.Equal(t, enums.TaskStateFailedPermanent, stored.State)
}

func TestNewWorkerValidatesParams(t *testing.T) {
	_, err := NewWorker(WorkerParams{})
	require.Error(t, err)
	_, err = NewWorker(WorkerParams{Logger: testLogger(), Repo: &Repository{}, Owner: "w"})
	require.Error(t, err, "handlers are required")
}

func TestWithJitterStaysInWindowAcrossGoroutines(t *testing.T) {
	base := time.Second
	var wg sync.WaitGroup
	var outOfRange atomic.Int64
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				d := withJitter(base)
				if d < base || d >= base+jitterWindow {
					outOfRange.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, outOfRange.Load())
	assert.Zero(t, withJitter(0))
}
