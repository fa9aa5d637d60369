package migrations

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	gobilling "github.com/goliatone/go-billing"
	_ "github.com/mattn/go-sqlite3"
)

func TestFilesystems_ReturnsPostgresAndSQLite(t *testing.T) {
	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	if len(filesystems) != 2 {
		t.Fatalf("expected 2 filesystems, got %d", len(filesystems))
	}

	var postgresFound bool
	var sqliteFound bool
	for _, entry := range filesystems {
		matches, globErr := fs.Glob(entry.FS, "*.up.sql")
		if globErr != nil {
			t.Fatalf("glob %s: %v", entry.Dialect, globErr)
		}
		if len(matches) == 0 {
			t.Fatalf("expected %s migration files, got none", entry.Dialect)
		}
		switch entry.Dialect {
		case DialectPostgres:
			postgresFound = true
		case DialectSQLite:
			sqliteFound = true
		}
	}

	if !postgresFound {
		t.Fatalf("expected postgres filesystem")
	}
	if !sqliteFound {
		t.Fatalf("expected sqlite filesystem")
	}
}

func TestRegister_UsesValidationTargets(t *testing.T) {
	var calls []string
	_, err := Register(context.Background(), func(_ context.Context, dialect string, _ string, _ fs.FS) error {
		calls = append(calls, dialect)
		return nil
	}, WithValidationTargets(DialectSQLite))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if len(calls) != 1 {
		t.Fatalf("expected 1 registration call, got %d", len(calls))
	}
	if calls[0] != DialectSQLite {
		t.Fatalf("expected sqlite registration, got %q", calls[0])
	}
}

func TestBillingCoreSchemaMigrationPair_ExistsForBothDialects(t *testing.T) {
	root := gobilling.GetCoreMigrationsFS()
	paths := []string{
		"data/sql/migrations/00001_billing_core_schema.up.sql",
		"data/sql/migrations/00001_billing_core_schema.down.sql",
		"data/sql/migrations/sqlite/00001_billing_core_schema.up.sql",
		"data/sql/migrations/sqlite/00001_billing_core_schema.down.sql",
	}
	for _, migrationPath := range paths {
		content, err := fs.ReadFile(root, migrationPath)
		if err != nil {
			t.Fatalf("read migration %s: %v", migrationPath, err)
		}
		if strings.TrimSpace(string(content)) == "" {
			t.Fatalf("expected migration %s to have SQL content", migrationPath)
		}
	}
}

func TestSQLiteBillingCoreSchemaMigration_ApplyAndRollback(t *testing.T) {
	db, err := sql.Open("sqlite3", "file:migrations-billing-core?mode=memory&cache=shared&_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	defer func() { _ = db.Close() }()

	root := gobilling.GetCoreMigrationsFS()
	sqliteMigrations, err := fs.Sub(root, "data/sql/migrations/sqlite")
	if err != nil {
		t.Fatalf("resolve sqlite migrations: %v", err)
	}

	if err := execSQLMigration(context.Background(), db, sqliteMigrations, "00001_billing_core_schema.up.sql"); err != nil {
		t.Fatalf("apply core schema migration up: %v", err)
	}

	requiredTables := []string{
		"billing_accounts",
		"credit_ledger_entries",
		"usage_records",
		"credit_alerts",
		"credit_packages",
		"billing_subscriptions",
		"tier_definitions",
		"usage_quotas",
		"access_repositories",
		"repository_packages",
		"repository_access",
		"webhook_deliveries",
	}
	for _, tableName := range requiredTables {
		var count int
		if err := db.QueryRowContext(
			context.Background(),
			`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`,
			tableName,
		).Scan(&count); err != nil {
			t.Fatalf("query sqlite_master for %s: %v", tableName, err)
		}
		if count != 1 {
			t.Fatalf("expected table %s to exist after up migration", tableName)
		}
	}

	insertDelivery := `
		INSERT INTO webhook_deliveries
			(id, source, delivery_id, status, attempts, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := db.ExecContext(
		context.Background(),
		insertDelivery,
		"wd-1", "polar", "evt-1", "processed", 1, "",
		"2026-01-01T00:00:00Z", "2026-01-01T00:00:00Z",
	); err != nil {
		t.Fatalf("insert webhook delivery: %v", err)
	}
	if _, err := db.ExecContext(
		context.Background(),
		insertDelivery,
		"wd-2", "polar", "evt-1", "processing", 1, "",
		"2026-01-01T00:01:00Z", "2026-01-01T00:01:00Z",
	); err == nil {
		t.Fatalf("expected unique (source, delivery_id) violation")
	}

	if _, err := db.ExecContext(
		context.Background(),
		`INSERT INTO billing_accounts (id, email, polar_customer_id) VALUES (?, ?, ?)`,
		"acc-1", "one@example.com", "cus-1",
	); err != nil {
		t.Fatalf("insert account: %v", err)
	}
	insertPurchase := `
		INSERT INTO credit_ledger_entries
			(id, account_id, entry_type, status, amount, balance_before, balance_after, polar_order_id, processed_at)
		VALUES (?, ?, 'purchase', 'completed', ?, ?, ?, ?, ?)
	`
	if _, err := db.ExecContext(
		context.Background(),
		insertPurchase,
		"led-1", "acc-1", 100.0, 0.0, 100.0, "ord-1", "2026-01-01T00:00:00Z",
	); err != nil {
		t.Fatalf("insert purchase entry: %v", err)
	}
	if _, err := db.ExecContext(
		context.Background(),
		insertPurchase,
		"led-2", "acc-1", 100.0, 100.0, 200.0, "ord-1", "2026-01-01T00:05:00Z",
	); err == nil {
		t.Fatalf("expected unique purchase order violation")
	}

	if err := execSQLMigration(context.Background(), db, sqliteMigrations, "00001_billing_core_schema.down.sql"); err != nil {
		t.Fatalf("apply core schema migration down: %v", err)
	}

	var count int
	if err := db.QueryRowContext(
		context.Background(),
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`,
		"billing_accounts",
	).Scan(&count); err != nil {
		t.Fatalf("query sqlite_master after down migration: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected billing_accounts to be dropped after down migration")
	}
}

func execSQLMigration(ctx context.Context, db *sql.DB, fsys fs.FS, filename string) error {
	content, err := fs.ReadFile(fsys, filepath.Clean(filename))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, string(content))
	return err
}
