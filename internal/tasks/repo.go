package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/kudibooks-backend/pkg/db/models"
	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
)

// Repository persists the async task table.
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

// Insert writes task unless its dedupe key already exists. It reports whether a row was written.
func (r *Repository) Insert(ctx context.Context, tx *gorm.DB, task *models.AsyncTask) (bool, error) {
	res := r.conn(ctx, tx).Clauses(clause.OnConflict{DoNothing: true}).Create(task)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) FindByDedupeKey(ctx context.Context, tx *gorm.DB, key string) (*models.AsyncTask, error) {
	var task models.AsyncTask
	if err := r.conn(ctx, tx).Where("dedupe_key = ?", key).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.AsyncTask, error) {
	var task models.AsyncTask
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// Claim leases up to limit due tasks to owner. Tasks whose lease expired are reclaimable.
func (r *Repository) Claim(ctx context.Context, owner string, now time.Time, lease time.Duration, limit int) ([]models.AsyncTask, error) {
	var claimed []models.AsyncTask
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&models.AsyncTask{}).
			Select("id").
			Where("state = ? AND next_retry_at <= ?", enums.TaskStatePending, now).
			Where("(lease_expires_at IS NULL OR lease_expires_at < ?)", now).
			Order("next_retry_at ASC").
			Limit(limit)
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}

		var ids []uuid.UUID
		if err := query.Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		expires := now.Add(lease)
		if err := tx.Model(&models.AsyncTask{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"lease_owner":      owner,
				"lease_expires_at": expires,
				"attempt_count":    gorm.Expr("attempt_count + 1"),
				"updated_at":       now,
			}).Error; err != nil {
			return err
		}

		return tx.Where("id IN ? AND lease_owner = ?", ids, owner).
			Order("next_retry_at ASC").
			Find(&claimed).Error
	})
	return claimed, err
}

func (r *Repository) Complete(ctx context.Context, id uuid.UUID, owner string, now time.Time) error {
	return r.finish(ctx, id, owner, map[string]any{
		"state":        enums.TaskStateSucceeded,
		"completed_at": now,
		"last_error":   nil,
		"updated_at":   now,
	})
}

func (r *Repository) Reschedule(ctx context.Context, id uuid.UUID, owner string, next time.Time, lastErr string, now time.Time) error {
	return r.finish(ctx, id, owner, map[string]any{
		"next_retry_at": next,
		"last_error":    lastErr,
		"updated_at":    now,
	})
}

func (r *Repository) FailPermanent(ctx context.Context, id uuid.UUID, owner string, lastErr string, now time.Time) error {
	return r.finish(ctx, id, owner, map[string]any{
		"state":        enums.TaskStateFailedPermanent,
		"completed_at": now,
		"last_error":   lastErr,
		"updated_at":   now,
	})
}

// finish releases the lease. A stale owner (lease stolen after expiry) writes nothing.
func (r *Repository) finish(ctx context.Context, id uuid.UUID, owner string, fields map[string]any) error {
	fields["lease_owner"] = nil
	fields["lease_expires_at"] = nil
	res := r.db.WithContext(ctx).
		Model(&models.AsyncTask{}).
		Where("id = ? AND lease_owner = ?", id, owner).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrLeaseLost
	}
	return nil
}

// PurgeFinished deletes terminal tasks completed before cutoff.
func (r *Repository) PurgeFinished(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("state IN ? AND completed_at < ?", []enums.TaskState{enums.TaskStateSucceeded, enums.TaskStateFailedPermanent}, cutoff).
		Delete(&models.AsyncTask{})
	return res.RowsAffected, res.Error
}

// CountByState is used by readiness and tests.
func (r *Repository) CountByState(ctx context.Context, kind enums.TaskKind, state enums.TaskState) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.AsyncTask{}).
		Where("kind = ? AND state = ?", kind, state).
		Count(&n).Error
	return n, err
}
