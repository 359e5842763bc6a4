package webhooks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/kudibooks-backend/pkg/db/models"
	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
)

// Repository persists the webhook event ledger.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// Insert records event unless (provider, event_id) already exists.
func (r *Repository) Insert(ctx context.Context, tx *gorm.DB, event *models.WebhookEvent) (bool, error) {
	res := r.conn(ctx, tx).Clauses(clause.OnConflict{DoNothing: true}).Create(event)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

type resolution struct {
	Outcome   enums.WebhookOutcome
	Reason    string
	InvoiceID *string
	TenantID  *uuid.UUID
}

// Resolve stores the processing outcome on a freshly inserted row.
func (r *Repository) Resolve(ctx context.Context, tx *gorm.DB, id uuid.UUID, res resolution, now time.Time) error {
	fields := map[string]any{
		"outcome":      res.Outcome,
		"processed_at": now,
	}
	if res.Reason != "" {
		fields["reason"] = res.Reason
	}
	if res.InvoiceID != nil {
		fields["invoice_id"] = *res.InvoiceID
	}
	if res.TenantID != nil {
		fields["tenant_id"] = *res.TenantID
	}
	return r.conn(ctx, tx).Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(fields).Error
}

func (r *Repository) FindByKey(ctx context.Context, provider enums.PaymentProvider, eventID string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	if err := r.db.WithContext(ctx).Where("provider = ? AND event_id = ?", provider, eventID).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}
