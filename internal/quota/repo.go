package quota

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/kudibooks-backend/pkg/db/models"
	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
)

// Repository owns the tenant usage counters.
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

// ResetIfDue zeroes usage when the period has elapsed. Only the first caller of a new period gets true.
func (r *Repository) ResetIfDue(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, now, next time.Time) (bool, error) {
	res := r.conn(ctx, tx).
		Model(&models.Tenant{}).
		Where("id = ? AND period_resets_at <= ?", tenantID, now).
		Updates(map[string]any{
			"usage_count":      0,
			"period_resets_at": next,
			"updated_at":       now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// TryIncrement is the single-statement compare-and-increment for limited plans.
func (r *Repository) TryIncrement(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, limit int, now time.Time) (bool, error) {
	res := r.conn(ctx, tx).
		Model(&models.Tenant{}).
		Where("id = ? AND usage_count < ?", tenantID, limit).
		Updates(map[string]any{
			"usage_count": gorm.Expr("usage_count + 1"),
			"updated_at":  now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) Increment(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, now time.Time) error {
	return r.conn(ctx, tx).
		Model(&models.Tenant{}).
		Where("id = ?", tenantID).
		Updates(map[string]any{
			"usage_count": gorm.Expr("usage_count + 1"),
			"updated_at":  now,
		}).Error
}

func (r *Repository) SetPlan(ctx context.Context, tenantID uuid.UUID, plan enums.Plan, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Tenant{}).
		Where("id = ?", tenantID).
		Updates(map[string]any{"plan": plan, "updated_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	return r.conn(ctx, nil).Create(tenant).Error
}
