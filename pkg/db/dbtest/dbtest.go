// Package dbtest opens in-memory SQLite databases carrying the ledger schema
// for repository and service tests.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/kudibooks-backend/pkg/db/models"
	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  contact_email TEXT,
  plan TEXT NOT NULL DEFAULT 'free',
  usage_count INTEGER NOT NULL DEFAULT 0,
  period_resets_at DATETIME NOT NULL,
  payment_provider TEXT,
  sealed_secret_key TEXT,
  public_key TEXT,
  sealed_webhook_secret TEXT,
  credentials_updated_at DATETIME,
  bank_details TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS invoices (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  customer_name TEXT NOT NULL,
  customer_email TEXT,
  customer_phone TEXT,
  description TEXT,
  amount TEXT NOT NULL,
  currency TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  provider TEXT NOT NULL,
  payment_reference TEXT NOT NULL,
  provider_reference TEXT,
  payment_link TEXT,
  document_url TEXT,
  tenant_owned_credentials INTEGER NOT NULL DEFAULT 0,
  due_date DATETIME,
  paid_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_invoices_tenant_provider_reference ON invoices (tenant_id, provider, payment_reference);`,
	`CREATE TABLE IF NOT EXISTS invoice_lines (
  id TEXT PRIMARY KEY,
  invoice_id TEXT NOT NULL,
  position INTEGER NOT NULL,
  description TEXT NOT NULL,
  quantity TEXT NOT NULL,
  unit_price TEXT NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS invoice_status_changes (
  id TEXT PRIMARY KEY,
  invoice_id TEXT NOT NULL,
  tenant_id TEXT NOT NULL,
  from_status TEXT,
  to_status TEXT NOT NULL,
  source TEXT NOT NULL,
  reason TEXT,
  created_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS webhook_events (
  id TEXT PRIMARY KEY,
  provider TEXT NOT NULL,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  tenant_id TEXT,
  payment_reference TEXT,
  invoice_id TEXT,
  outcome TEXT NOT NULL,
  reason TEXT,
  payload TEXT,
  received_at DATETIME NOT NULL,
  processed_at DATETIME
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_webhook_events_provider_event ON webhook_events (provider, event_id);`,
	`CREATE TABLE IF NOT EXISTS async_tasks (
  id TEXT PRIMARY KEY,
  kind TEXT NOT NULL,
  tenant_id TEXT,
  invoice_id TEXT,
  payload TEXT NOT NULL,
  state TEXT NOT NULL DEFAULT 'pending',
  attempt_count INTEGER NOT NULL DEFAULT 0,
  max_attempts INTEGER NOT NULL,
  next_retry_at DATETIME NOT NULL,
  lease_owner TEXT,
  lease_expires_at DATETIME,
  last_error TEXT,
  dedupe_key TEXT,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_async_tasks_dedupe_key ON async_tasks (dedupe_key);`,
}

// Open returns a fresh, isolated in-memory database with the ledger tables.
// The pool is pinned to a single connection so concurrent tests serialize on
// SQLite's writer lock instead of failing with SQLITE_BUSY.
func Open(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		tb.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			tb.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}

// SeedTenant inserts a tenant on plan whose period resets next month.
func SeedTenant(tb testing.TB, conn *gorm.DB, plan enums.Plan, mutate ...func(*models.Tenant)) *models.Tenant {
	tb.Helper()

	now := time.Now().UTC()
	tenant := &models.Tenant{
		ID:             uuid.New(),
		Name:           "Tenant " + uuid.NewString()[:8],
		Plan:           plan,
		PeriodResetsAt: time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, fn := range mutate {
		fn(tenant)
	}
	if err := conn.Create(tenant).Error; err != nil {
		tb.Fatalf("seed tenant: %v", err)
	}
	return tenant
}
