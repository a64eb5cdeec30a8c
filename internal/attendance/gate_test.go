package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campuskit/facemark/internal/logger"
	"github.com/campuskit/facemark/internal/store"
	"github.com/campuskit/facemark/internal/store/mock"
)

func testGate(t *testing.T, st store.AttendanceStore) *Gate {
	t.Helper()
	cutoff, err := ParseLateAfter("09:00:00")
	if err != nil {
		t.Fatalf("ParseLateAfter failed: %v", err)
	}
	return NewGate(st, nil, logger.Discard(), cutoff)
}

func at(clock string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", "2026-03-02 "+clock)
	if err != nil {
		panic(err)
	}
	return t
}

func TestStatusBoundary(t *testing.T) {
	g := testGate(t, mock.New())

	tests := []struct {
		clock    string
		expected store.Status
	}{
		{"08:59:59", store.StatusPresent},
		{"09:00:00", store.StatusPresent},
		{"09:00:01", store.StatusLate},
		{"00:00:00", store.StatusPresent},
		{"23:59:59", store.StatusLate},
	}

	for _, tt := range tests {
		if got := g.StatusAt(at(tt.clock)); got != tt.expected {
			t.Errorf("StatusAt(%s) = %q, want %q", tt.clock, got, tt.expected)
		}
	}
}

func TestMarkOncePerSession(t *testing.T) {
	st := mock.New()
	g := testGate(t, st)
	sub := store.Student{SubjectID: "S1", FullName: "Jana"}

	mark, ok := g.Mark(context.Background(), sub, at("08:30:00"))
	if !ok {
		t.Fatal("first mark rejected")
	}
	if mark.Status != store.StatusPresent {
		t.Errorf("first mark status = %q, want present", mark.Status)
	}

	if _, ok := g.Mark(context.Background(), sub, at("08:30:05")); ok {
		t.Error("second mark in the same session was not suppressed")
	}

	records, _ := st.RecordsOn(context.Background(), at("08:30:00"))
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

func TestFailedWriteRetries(t *testing.T) {
	st := mock.New()
	st.UpsertError = errors.New("connection refused")
	g := testGate(t, st)
	sub := store.Student{SubjectID: "S1", FullName: "Jana"}

	if _, ok := g.Mark(context.Background(), sub, at("08:30:00")); ok {
		t.Fatal("mark reported success on a failed write")
	}
	if g.Seen(sub.SubjectID) {
		t.Error("failed write added subject to the seen set")
	}

	st.UpsertError = nil
	if _, ok := g.Mark(context.Background(), sub, at("08:31:00")); !ok {
		t.Error("retry after failed write was rejected")
	}
}

func TestResetClearsSession(t *testing.T) {
	st := mock.New()
	g := testGate(t, st)
	sub := store.Student{SubjectID: "S1", FullName: "Jana"}

	if _, ok := g.Mark(context.Background(), sub, at("08:30:00")); !ok {
		t.Fatal("first mark rejected")
	}
	g.Reset()
	if _, ok := g.Mark(context.Background(), sub, at("14:00:00")); !ok {
		t.Fatal("mark after reset rejected")
	}

	// The storage layer still holds a single row; the second mark only
	// refreshed the time-out.
	records, _ := st.RecordsOn(context.Background(), at("08:30:00"))
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Status != store.StatusPresent {
		t.Errorf("status changed on repeat mark: got %q", records[0].Status)
	}
	if records[0].TimeOut != "14:00:00" {
		t.Errorf("time_out = %q, want 14:00:00", records[0].TimeOut)
	}
}

func TestParseLateAfterInvalid(t *testing.T) {
	if _, err := ParseLateAfter("9am"); err == nil {
		t.Error("expected error for malformed cutoff")
	}
}
