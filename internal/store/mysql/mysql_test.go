//go:build integration

package mysql

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/campuskit/facemark/internal/config"
	"github.com/campuskit/facemark/internal/gallery"
	"github.com/campuskit/facemark/internal/store"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8.4",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "test",
			"MYSQL_DATABASE":      "testdb",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").
			WithStartupTimeout(120 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		DSN:          fmt.Sprintf("root:test@tcp(%s:%s)/testdb", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func TestAttendanceUpsert(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	defer cleanup()

	ctx := context.Background()
	sub := store.Student{SubjectID: "S100", FullName: "Jana Dvorak", GroupLabel: "CS-1"}
	day := time.Date(2026, 3, 2, 8, 45, 0, 0, time.UTC)

	if err := pool.UpsertAttendance(ctx, sub, day, store.StatusPresent); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	// A second mark later the same day must keep the row count at one,
	// keep the original status and time-in, and set time-out.
	later := day.Add(6 * time.Hour)
	if err := pool.UpsertAttendance(ctx, sub, later, store.StatusLate); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	records, err := pool.RecordsOn(ctx, day)
	if err != nil {
		t.Fatalf("RecordsOn failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.Status != store.StatusPresent {
		t.Errorf("status changed on repeat mark: got %q", r.Status)
	}
	if r.TimeIn != "08:45:00" {
		t.Errorf("time_in changed on repeat mark: got %q", r.TimeIn)
	}
	if r.TimeOut != "14:45:00" {
		t.Errorf("expected time_out 14:45:00, got %q", r.TimeOut)
	}
}

func TestForceAbsent(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	defer cleanup()

	ctx := context.Background()
	marked := store.Student{SubjectID: "S200", FullName: "Petr Novak"}
	unmarked := store.Student{SubjectID: "S201", FullName: "Eva Mala"}
	day := time.Date(2026, 3, 2, 11, 15, 0, 0, time.UTC)

	if err := pool.UpsertAttendance(ctx, marked, day.Add(-2*time.Hour), store.StatusPresent); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	inserted, err := pool.ForceAbsent(ctx, marked, day)
	if err != nil {
		t.Fatalf("ForceAbsent failed: %v", err)
	}
	if inserted {
		t.Error("ForceAbsent inserted over an existing record")
	}

	inserted, err = pool.ForceAbsent(ctx, unmarked, day)
	if err != nil {
		t.Fatalf("ForceAbsent failed: %v", err)
	}
	if !inserted {
		t.Error("ForceAbsent did not insert for an unmarked subject")
	}

	records, err := pool.RecordsOn(ctx, day)
	if err != nil {
		t.Fatalf("RecordsOn failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	for _, r := range records {
		if r.SubjectID == marked.SubjectID && r.Status != store.StatusPresent {
			t.Errorf("marked subject status overwritten: got %q", r.Status)
		}
		if r.SubjectID == unmarked.SubjectID && r.Status != store.StatusAbsent {
			t.Errorf("unmarked subject status: got %q, want absent", r.Status)
		}
	}
}

func TestGalleryRoundTrip(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	defer cleanup()

	ctx := context.Background()
	sub := store.Student{SubjectID: "S300", FullName: "Karel Zeman", GroupLabel: "CS-2", Active: true}
	if err := pool.RegisterStudent(ctx, sub); err != nil {
		t.Fatalf("RegisterStudent failed: %v", err)
	}

	emb := make(gallery.Embedding, 16)
	for i := range emb {
		emb[i] = float32(i) / 16
	}
	if err := pool.SaveEncoding(ctx, sub.SubjectID, emb); err != nil {
		t.Fatalf("SaveEncoding failed: %v", err)
	}

	entries, err := pool.LoadGallery(ctx, 16)
	if err != nil {
		t.Fatalf("LoadGallery failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 gallery entry, got %d", len(entries))
	}
	if entries[0].SubjectID != sub.SubjectID || len(entries[0].Embedding) != 16 {
		t.Errorf("unexpected entry: %+v", entries[0])
	}

	// A dimension mismatch means the stored encoding is unusable and
	// the row must be skipped, not returned.
	entries, err = pool.LoadGallery(ctx, 32)
	if err != nil {
		t.Fatalf("LoadGallery failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected mismatched-dim row to be skipped, got %d entries", len(entries))
	}
}

func TestActiveRoster(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	defer cleanup()

	ctx := context.Background()
	if err := pool.RegisterStudent(ctx, store.Student{SubjectID: "S400", FullName: "Adam First"}); err != nil {
		t.Fatalf("RegisterStudent failed: %v", err)
	}
	if err := pool.RegisterStudent(ctx, store.Student{SubjectID: "S401", FullName: "Bela Second"}); err != nil {
		t.Fatalf("RegisterStudent failed: %v", err)
	}

	students, err := pool.ActiveRoster(ctx)
	if err != nil {
		t.Fatalf("ActiveRoster failed: %v", err)
	}
	if len(students) != 2 {
		t.Fatalf("expected 2 students, got %d", len(students))
	}
	if students[0].FullName != "Adam First" {
		t.Errorf("expected roster ordered by name, got %q first", students[0].FullName)
	}
}
