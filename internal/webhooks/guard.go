package webhooks

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
)

type markStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	WebhookKey(provider, eventID string) string
}

// Guard remembers processed events in Redis so replays skip the database.
// The webhook_events table stays authoritative; a mark is only a shortcut.
type Guard struct {
	store markStore
	ttl   time.Duration
}

func NewGuard(store markStore, ttl time.Duration) (*Guard, error) {
	if store == nil {
		return nil, errors.New("webhook mark store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Guard{store: store, ttl: ttl}, nil
}

// Seen reports whether eventKey was already processed for provider.
func (g *Guard) Seen(ctx context.Context, provider enums.PaymentProvider, eventKey string) (bool, error) {
	if eventKey == "" {
		return false, errors.New("event key is required")
	}
	_, err := g.store.Get(ctx, g.store.WebhookKey(string(provider), eventKey))
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read webhook mark: %w", err)
	}
	return true, nil
}

// Mark records eventKey after its transaction committed.
func (g *Guard) Mark(ctx context.Context, provider enums.PaymentProvider, eventKey string, outcome enums.WebhookOutcome) error {
	if eventKey == "" {
		return errors.New("event key is required")
	}
	if _, err := g.store.SetNX(ctx, g.store.WebhookKey(string(provider), eventKey), string(outcome), g.ttl); err != nil {
		return fmt.Errorf("set webhook mark: %w", err)
	}
	return nil
}
