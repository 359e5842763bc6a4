package invoices

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgdb "github.com/angelmondragon/kudibooks-backend/pkg/db"
	"github.com/angelmondragon/kudibooks-backend/pkg/db/models"
	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kudibooks-backend/pkg/errors"
	"github.com/angelmondragon/kudibooks-backend/pkg/pagination"
)

// Repository persists invoices, their lines and the status audit trail.
type Repository struct {
	db *gorm.DB
}

const referenceConstraint = "ux_invoices_tenant_provider_reference"

// isDuplicateReference matches the Postgres constraint by name and SQLite by
// the column it reports.
func isDuplicateReference(err error) bool {
	return pkgdb.IsUniqueViolation(err, referenceConstraint) ||
		pkgdb.IsUniqueViolation(err, "invoices.payment_reference")
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

// Create writes the invoice and its lines.
func (r *Repository) Create(ctx context.Context, tx *gorm.DB, invoice *models.Invoice) error {
	db := r.conn(ctx, tx)
	if err := db.Omit("Lines").Create(invoice).Error; err != nil {
		if isDuplicateReference(err) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "payment reference already issued").
				WithDetails(map[string]any{"payment_reference": invoice.PaymentReference})
		}
		return err
	}
	if len(invoice.Lines) == 0 {
		return nil
	}
	return db.Create(&invoice.Lines).Error
}

// FindByID loads an invoice with its lines. tenantID scopes the lookup when set.
func (r *Repository) FindByID(ctx context.Context, tx *gorm.DB, tenantID *uuid.UUID, id string) (*models.Invoice, error) {
	var invoice models.Invoice
	q := r.conn(ctx, tx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", id)
	if tenantID != nil {
		q = q.Where("tenant_id = ?", *tenantID)
	}
	if err := q.First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// FindByReference resolves the invoice a provider callback refers to.
func (r *Repository) FindByReference(ctx context.Context, tx *gorm.DB, provider enums.PaymentProvider, reference string, tenantID *uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	q := r.conn(ctx, tx).Where("provider = ? AND payment_reference = ?", provider, reference)
	if tenantID != nil {
		q = q.Where("tenant_id = ?", *tenantID)
	}
	if err := q.First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// CompareAndSetStatus applies fields only while the invoice is still in from.
func (r *Repository) CompareAndSetStatus(ctx context.Context, tx *gorm.DB, id string, from enums.InvoiceStatus, fields map[string]any) (bool, error) {
	res := r.conn(ctx, tx).
		Model(&models.Invoice{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) InsertStatusChange(ctx context.Context, tx *gorm.DB, change *models.InvoiceStatusChange) error {
	return r.conn(ctx, tx).Create(change).Error
}

func (r *Repository) ListStatusChanges(ctx context.Context, invoiceID string) ([]models.InvoiceStatusChange, error) {
	var changes []models.InvoiceStatusChange
	err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at ASC").
		Find(&changes).Error
	return changes, err
}

// SetPaymentLink stores the hosted checkout link while the invoice is still pending.
func (r *Repository) SetPaymentLink(ctx context.Context, id, link string, providerRef *string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ? AND status = ?", id, enums.InvoiceStatusPending).
		Updates(map[string]any{
			"payment_link":       link,
			"provider_reference": providerRef,
			"updated_at":         now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) SetDocumentURL(ctx context.Context, id, url string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", id).
		Updates(map[string]any{"document_url": url, "updated_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// List returns one page of a tenant's invoices, newest first.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, status *enums.InvoiceStatus, cursor *pagination.Cursor, limit int) ([]models.Invoice, error) {
	q := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	if cursor != nil {
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var out []models.Invoice
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListStaleAwaiting returns invoices stuck in awaiting_confirmation since before cutoff.
func (r *Repository) ListStaleAwaiting(ctx context.Context, cutoff time.Time, limit int) ([]models.Invoice, error) {
	var out []models.Invoice
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", enums.InvoiceStatusAwaitingConfirmation, cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
