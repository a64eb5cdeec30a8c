// Package attendance turns recognition matches into attendance records.
// The gate enforces at-most-once-per-day marking with time-of-day status
// inference; storage-level uniqueness is the real safety net, the in-session
// seen set only saves redundant write attempts.
package attendance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/campuskit/facemark/internal/logger"
	"github.com/campuskit/facemark/internal/store"
)

// Mark is the result of a successful gate write, handed to observers.
type Mark struct {
	Student store.Student
	Status  store.Status
	At      time.Time
}

// Gate marks attendance for recognized subjects.
type Gate struct {
	store     store.AttendanceStore
	mirror    Mirror
	log       *logger.Logger
	lateAfter int // seconds since midnight; marks at or before this are present

	mu   sync.Mutex
	seen map[string]struct{}
}

// Mirror is the optional CSV side channel for marks.
type Mirror interface {
	Append(r store.AttendanceRecord) error
}

// ParseLateAfter parses an HH:MM:SS cutoff into seconds since midnight.
func ParseLateAfter(s string) (int, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return 0, fmt.Errorf("invalid late-after time %q: %w", s, err)
	}
	return t.Hour()*3600 + t.Minute()*60 + t.Second(), nil
}

// NewGate creates a gate. mirror may be nil.
func NewGate(st store.AttendanceStore, mirror Mirror, log *logger.Logger, lateAfterSeconds int) *Gate {
	return &Gate{
		store:     st,
		mirror:    mirror,
		log:       log,
		lateAfter: lateAfterSeconds,
		seen:      make(map[string]struct{}),
	}
}

// StatusAt derives the first-write status from time-of-day. The cutoff is
// inclusive: a mark at exactly the cutoff is still present.
func (g *Gate) StatusAt(at time.Time) store.Status {
	secs := at.Hour()*3600 + at.Minute()*60 + at.Second()
	if secs <= g.lateAfter {
		return store.StatusPresent
	}
	return store.StatusLate
}

// Seen reports whether the subject was already marked this session.
func (g *Gate) Seen(subjectID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.seen[subjectID]
	return ok
}

// Mark writes an attendance record for the subject. Returns the mark and
// true when a write happened; false when the subject was already seen this
// session or the write failed. A failed write leaves the subject out of the
// seen set so a later detection retries.
func (g *Gate) Mark(ctx context.Context, sub store.Student, at time.Time) (Mark, bool) {
	g.mu.Lock()
	if _, ok := g.seen[sub.SubjectID]; ok {
		g.mu.Unlock()
		return Mark{}, false
	}
	g.mu.Unlock()

	status := g.StatusAt(at)
	if err := g.store.UpsertAttendance(ctx, sub, at, status); err != nil {
		g.log.Error("attendance write failed for %s: %v", sub.SubjectID, err)
		return Mark{}, false
	}

	g.mu.Lock()
	g.seen[sub.SubjectID] = struct{}{}
	g.mu.Unlock()

	if g.mirror != nil {
		rec := store.AttendanceRecord{
			SubjectID:  sub.SubjectID,
			FullName:   sub.FullName,
			GroupLabel: sub.GroupLabel,
			Date:       store.DateKey(at),
			TimeIn:     store.ClockKey(at),
			Status:     status,
		}
		if err := g.mirror.Append(rec); err != nil {
			g.log.Warning("csv mirror write failed for %s: %v", sub.SubjectID, err)
		}
	}

	g.log.Info("marked %s (%s) as %s", sub.FullName, sub.SubjectID, status)
	return Mark{Student: sub, Status: status, At: at}, true
}

// Reset clears the session seen set. Called when a capture session restarts
// or the gallery is reloaded.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seen = make(map[string]struct{})
}
