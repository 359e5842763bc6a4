package tasks

import (
	"context"
	"encoding/json"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/kudibooks-backend/pkg/db/models"
	"github.com/angelmondragon/kudibooks-backend/pkg/logger"
)

// Alerter surfaces permanently failed tasks to operators.
type Alerter struct {
	logg *logger.Logger
	pub  publisher
}

// NewAlerter builds an alerter. alerts may be nil when no alert topic is configured.
func NewAlerter(logg *logger.Logger, alerts *gcppubsub.Publisher) *Alerter {
	return &Alerter{logg: logg, pub: newGCPPublisher(alerts)}
}

type alertMessage struct {
	TaskID     string    `json:"task_id"`
	Kind       string    `json:"kind"`
	TenantID   string    `json:"tenant_id,omitempty"`
	InvoiceID  string    `json:"invoice_id,omitempty"`
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"last_error"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (a *Alerter) TaskFailedPermanently(ctx context.Context, task models.AsyncTask, err error) {
	msg := alertMessage{
		TaskID:     task.ID.String(),
		Kind:       string(task.Kind),
		Attempts:   task.AttemptCount,
		LastError:  err.Error(),
		OccurredAt: time.Now().UTC(),
	}
	if task.TenantID != nil {
		msg.TenantID = task.TenantID.String()
	}
	if task.InvoiceID != nil {
		msg.InvoiceID = *task.InvoiceID
	}

	if a.logg != nil {
		alertCtx := a.logg.WithFields(ctx, map[string]any{
			"alert":    "task_failed_permanent",
			"attempts": msg.Attempts,
		})
		a.logg.Error(alertCtx, "task failed permanently", err)
	}

	if a.pub == nil {
		return
	}
	body, marshalErr := json.Marshal(msg)
	if marshalErr != nil {
		return
	}
	if pubErr := publish(ctx, a.pub, &gcppubsub.Message{
		Data:       body,
		Attributes: map[string]string{"alert": "task_failed_permanent", "kind": msg.Kind},
	}); pubErr != nil && a.logg != nil {
		a.logg.Error(ctx, "publish operator alert", pubErr)
	}
}
