package credentials

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/kudibooks-backend/pkg/db/models"
	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	"github.com/angelmondragon/kudibooks-backend/pkg/types"
)

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

func (r *Repository) FindTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.conn(ctx, tx).Where("id = ?", tenantID).First(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

// sealedSet is the column set written by the admin credential path.
type sealedSet struct {
	Provider            *enums.PaymentProvider
	SealedSecretKey     *string
	PublicKey           *string
	SealedWebhookSecret *string
}

func (r *Repository) SaveCredentials(ctx context.Context, tenantID uuid.UUID, set sealedSet, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Tenant{}).
		Where("id = ?", tenantID).
		Updates(map[string]any{
			"payment_provider":       set.Provider,
			"sealed_secret_key":      set.SealedSecretKey,
			"public_key":             set.PublicKey,
			"sealed_webhook_secret":  set.SealedWebhookSecret,
			"credentials_updated_at": now,
			"updated_at":             now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) SaveBankDetails(ctx context.Context, tenantID uuid.UUID, details *types.BankDetails, now time.Time) (bool, error) {
	var value any
	if details != nil {
		value = *details
	}
	res := r.db.WithContext(ctx).
		Model(&models.Tenant{}).
		Where("id = ?", tenantID).
		Updates(map[string]any{
			"bank_details": value,
			"updated_at":   now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
