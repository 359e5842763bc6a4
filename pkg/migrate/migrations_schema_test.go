package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/kudibooks-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestWebhookEventsMigrationHasIdempotencyKey(t *testing.T) {
	content := readMigration(t, "create_webhook_events")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS webhook_events",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_webhook_events_provider_event",
		"ON webhook_events (provider, event_id)",
		"DROP TABLE IF EXISTS webhook_events",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestInvoicesMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "create_invoices")
	for _, sub := range []string{
		"CHECK (amount > 0)",
		"ux_invoices_tenant_provider_reference",
		"ON invoices (tenant_id, provider, payment_reference)",
		"FOREIGN KEY (invoice_id) REFERENCES invoices(id) ON DELETE CASCADE",
		"CREATE TABLE IF NOT EXISTS invoice_status_changes",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestAsyncTasksMigrationIndexesPolling(t *testing.T) {
	content := readMigration(t, "create_async_tasks")
	for _, sub := range []string{
		"ON async_tasks (state, next_retry_at)",
		"ux_async_tasks_dedupe_key",
		"CHECK (state IN ('pending', 'succeeded', 'failed_permanent'))",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Tenant Webhook-Secret")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_tenant_webhook_secret.sql") {
		t.Fatalf("unexpected migration path %q", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	if err := migrate.ValidateFS(migrate.Embedded()); err != nil {
		t.Fatalf("validate embedded migrations: %v", err)
	}
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	for _, path := range onDisk {
		if _, err := fs.Stat(migrate.Embedded(), filepath.Base(path)); err != nil {
			t.Errorf("%s not embedded: %v", path, err)
		}
	}
}
