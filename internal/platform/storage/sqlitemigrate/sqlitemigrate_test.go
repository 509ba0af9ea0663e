package sqlitemigrate

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}

func TestApplyRunsMigrationsInOrder(t *testing.T) {
	t.Parallel()

	migrationFS := fstest.MapFS{
		"0002_add_column.sql":  {Data: []byte("ALTER TABLE things ADD COLUMN label TEXT;")},
		"0001_create.sql":      {Data: []byte("CREATE TABLE things (id INTEGER PRIMARY KEY);")},
		"README.md":            {Data: []byte("not a migration")},
		"0003_empty_noise.sql": {Data: []byte("   \n")},
	}

	sqlDB := openTestDB(t)
	if err := Apply(sqlDB, migrationFS); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if _, err := sqlDB.Exec("INSERT INTO things (id, label) VALUES (1, 'a')"); err != nil {
		t.Fatalf("insert into migrated table: %v", err)
	}

	var applied int
	if err := sqlDB.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied); err != nil {
		t.Fatalf("count applied: %v", err)
	}
	if applied != 2 {
		t.Fatalf("applied = %d, want 2 (empty file skipped)", applied)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	t.Parallel()

	migrationFS := fstest.MapFS{
		"0001_create.sql": {Data: []byte("CREATE TABLE things (id INTEGER PRIMARY KEY);")},
	}

	sqlDB := openTestDB(t)
	if err := Apply(sqlDB, migrationFS); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if err := Apply(sqlDB, migrationFS); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	var applied int
	if err := sqlDB.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied); err != nil {
		t.Fatalf("count applied: %v", err)
	}
	if applied != 1 {
		t.Fatalf("applied = %d, want 1", applied)
	}
}

func TestApplyRejectsNilDB(t *testing.T) {
	t.Parallel()

	if err := Apply(nil, fstest.MapFS{}); err == nil {
		t.Fatal("expected error for nil db")
	}
}

func TestApplyToleratesPreexistingSchema(t *testing.T) {
	t.Parallel()

	sqlDB := openTestDB(t)
	if _, err := sqlDB.Exec("CREATE TABLE things (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatalf("pre-create table: %v", err)
	}

	migrationFS := fstest.MapFS{
		"0001_create.sql": {Data: []byte("CREATE TABLE things (id INTEGER PRIMARY KEY);")},
	}
	if err := Apply(sqlDB, migrationFS); err != nil {
		t.Fatalf("apply over existing schema: %v", err)
	}
}
