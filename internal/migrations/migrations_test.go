package migrations

import (
	"path/filepath"
	"testing"

	"kaderisasi-backend-go/internal/db"
)

func TestApplyIsIdempotent(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer func() { _ = database.Close() }()

	if err := Apply(database); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if err := Apply(database); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	for _, table := range []string{"groups", "students", "images", "group_images", "server_metric_samples"} {
		var exists bool
		err := database.Get(&exists, `
SELECT EXISTS(SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?)`, table)
		if err != nil {
			t.Fatalf("probe %s: %v", table, err)
		}
		if !exists {
			t.Fatalf("table %s missing after migrations", table)
		}
	}

	// The seed ran exactly once.
	var groups int
	if err := database.Get(&groups, `SELECT COUNT(*) FROM groups`); err != nil {
		t.Fatalf("count groups: %v", err)
	}
	if groups != 18 {
		t.Fatalf("expected 18 seeded groups, got %d", groups)
	}
}

func TestMigrationsSortByVersion(t *testing.T) {
	migs, err := listMigrations(FS, "sql")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(migs) == 0 {
		t.Fatal("no embedded migrations found")
	}
	last := -1
	for _, mig := range migs {
		version, ok := parseVersionNumber(mig.Name)
		if !ok {
			t.Fatalf("migration %s has no version prefix", mig.Name)
		}
		if version <= last {
			t.Fatalf("migration %s out of order", mig.Name)
		}
		last = version
	}
}
