package services

import (
	"path/filepath"
	"testing"

	"kaderisasi-backend-go/internal/db"
	"kaderisasi-backend-go/internal/migrations"
)

func TestCaptureAndReplayMetrics(t *testing.T) {
	dir := t.TempDir()
	database, err := db.Open(filepath.Join(dir, "app.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer func() { _ = database.Close() }()
	if err := migrations.Apply(database); err != nil {
		t.Fatalf("migrations: %v", err)
	}

	sample, err := CaptureMetrics(database, dir)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if sample.CapturedAt.IsZero() {
		t.Fatal("expected a capture timestamp")
	}
	if sample.StudentCount != 0 || sample.ImageCount != 0 {
		t.Fatalf("fresh database should report zero counts, got %d/%d",
			sample.StudentCount, sample.ImageCount)
	}

	history, err := LatestMetrics(database, 10)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected one persisted sample, got %d", len(history))
	}
}

func TestBroadcastNeverBlocks(t *testing.T) {
	hub := NewMetricsHub()
	// No Run loop draining; the buffered channel overflows silently.
	for i := 0; i < 100; i++ {
		hub.Broadcast(MetricSample{})
	}
}
