package repositories

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"kaderisasi-backend-go/internal/db"
	"kaderisasi-backend-go/internal/migrations"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	if err := migrations.Apply(database); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return database
}

func groupIDByName(t *testing.T, database *sqlx.DB, name string) int64 {
	t.Helper()
	var id int64
	if err := database.Get(&id, `SELECT id FROM groups WHERE name = ?`, name); err != nil {
		t.Fatalf("look up group %s: %v", name, err)
	}
	return id
}

func strPtr(value string) *string {
	return &value
}

func mustCreateStudent(t *testing.T, repo *StudentRepo, input StudentInput) int64 {
	t.Helper()
	student, err := repo.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("create student %s: %v", input.Name, err)
	}
	return student.ID
}
