package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
)

const defaultPublishTimeout = 15 * time.Second

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// PubSubNotifier publishes notifications to the topic consumed by the channel transports.
type PubSubNotifier struct {
	pub publisher
}

func NewPubSubNotifier(p *gcppubsub.Publisher) (*PubSubNotifier, error) {
	pub := newGCPPublisher(p)
	if pub == nil {
		return nil, errors.New("notification publisher is required")
	}
	return &PubSubNotifier{pub: pub}, nil
}

type notificationMessage struct {
	Channel      enums.NotificationChannel  `json:"channel"`
	RecipientRef string                     `json:"recipient_ref"`
	Template     enums.NotificationTemplate `json:"template"`
	Data         map[string]any             `json:"data,omitempty"`
	QueuedAt     time.Time                  `json:"queued_at"`
}

func (n *PubSubNotifier) Send(ctx context.Context, channel enums.NotificationChannel, recipientRef string, template enums.NotificationTemplate, data map[string]any) error {
	body, err := json.Marshal(notificationMessage{
		Channel:      channel,
		RecipientRef: recipientRef,
		Template:     template,
		Data:         data,
		QueuedAt:     time.Now().UTC(),
	})
	if err != nil {
		return Permanent(fmt.Errorf("encode notification: %w", err))
	}
	attrs := map[string]string{
		"channel":  string(channel),
		"template": string(template),
	}
	if id, ok := data["notification_id"].(string); ok {
		attrs["notification_id"] = id
	}
	return publish(ctx, n.pub, &gcppubsub.Message{Data: body, Attributes: attrs})
}

func publish(ctx context.Context, pub publisher, msg *gcppubsub.Message) error {
	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, msg)
	if result == nil {
		return Permanent(errors.New("publisher returned nil result"))
	}
	if _, err := result.Get(publishCtx); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func newGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{Publisher: p}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}

// LogNotifier records notifications when no Pub/Sub project is configured.
type LogNotifier struct {
	Log func(ctx context.Context, msg string, fields map[string]any)
}

func (n LogNotifier) Send(ctx context.Context, channel enums.NotificationChannel, recipientRef string, template enums.NotificationTemplate, data map[string]any) error {
	if n.Log != nil {
		n.Log(ctx, "notification dropped: pubsub disabled", map[string]any{
			"channel":  channel,
			"template": template,
		})
	}
	return nil
}
