// Package mock provides an in-memory store.Store for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/campuskit/facemark/internal/gallery"
	"github.com/campuskit/facemark/internal/store"
)

// ActivityEntry is one recorded audit call.
type ActivityEntry struct {
	Actor  string
	Action string
	Detail string
}

// Store is an in-memory store.Store. It mirrors the MySQL upsert semantics:
// one row per (subject, date), first write fixes the status, later writes
// only refresh the time-out.
type Store struct {
	mu       sync.RWMutex
	students map[string]store.Student
	encoding map[string]gallery.Embedding
	records  map[string]store.AttendanceRecord // key: subjectID + "|" + date
	Activity []ActivityEntry

	// Error injection
	UpsertError      error
	ForceAbsentError error
	RecordsError     error
	RosterError      error
	GalleryError     error
	SaveError        error
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		students: make(map[string]store.Student),
		encoding: make(map[string]gallery.Embedding),
		records:  make(map[string]store.AttendanceRecord),
	}
}

// AddStudent seeds a roster row.
func (m *Store) AddStudent(s store.Student) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[s.SubjectID] = s
}

func recordKey(subjectID, date string) string {
	return subjectID + "|" + date
}

// UpsertAttendance inserts or refreshes the time-out of a record.
func (m *Store) UpsertAttendance(ctx context.Context, sub store.Student, at time.Time, status store.Status) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	date := store.DateKey(at)
	clock := store.ClockKey(at)
	key := recordKey(sub.SubjectID, date)
	if existing, ok := m.records[key]; ok {
		existing.TimeOut = clock
		m.records[key] = existing
		return nil
	}
	m.records[key] = store.AttendanceRecord{
		SubjectID:  sub.SubjectID,
		FullName:   sub.FullName,
		GroupLabel: sub.GroupLabel,
		Date:       date,
		TimeIn:     clock,
		Status:     status,
	}
	return nil
}

// ForceAbsent inserts an absent record only when the day has none.
func (m *Store) ForceAbsent(ctx context.Context, sub store.Student, at time.Time) (bool, error) {
	if m.ForceAbsentError != nil {
		return false, m.ForceAbsentError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	date := store.DateKey(at)
	key := recordKey(sub.SubjectID, date)
	if _, ok := m.records[key]; ok {
		return false, nil
	}
	m.records[key] = store.AttendanceRecord{
		SubjectID:  sub.SubjectID,
		FullName:   sub.FullName,
		GroupLabel: sub.GroupLabel,
		Date:       date,
		TimeIn:     store.ClockKey(at),
		Status:     store.StatusAbsent,
	}
	return true, nil
}

// RecordsOn returns all records for a day, ordered by time-in.
func (m *Store) RecordsOn(ctx context.Context, day time.Time) ([]store.AttendanceRecord, error) {
	return m.RecordsBetween(ctx, day, day)
}

// RecordsBetween returns records with from <= date <= to.
func (m *Store) RecordsBetween(ctx context.Context, from, to time.Time) ([]store.AttendanceRecord, error) {
	if m.RecordsError != nil {
		return nil, m.RecordsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	lo, hi := store.DateKey(from), store.DateKey(to)
	var records []store.AttendanceRecord
	for _, r := range m.records {
		if r.Date >= lo && r.Date <= hi {
			records = append(records, r)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date < records[j].Date
		}
		return records[i].TimeIn < records[j].TimeIn
	})
	return records, nil
}

// ActiveRoster returns seeded students marked active, ordered by name.
func (m *Store) ActiveRoster(ctx context.Context) ([]store.Student, error) {
	if m.RosterError != nil {
		return nil, m.RosterError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var students []store.Student
	for _, s := range m.students {
		if s.Active {
			students = append(students, s)
		}
	}
	sort.Slice(students, func(i, j int) bool {
		return students[i].FullName < students[j].FullName
	})
	return students, nil
}

// LoadGallery returns entries for active students with an embedding.
func (m *Store) LoadGallery(ctx context.Context, wantDim int) ([]gallery.Entry, error) {
	if m.GalleryError != nil {
		return nil, m.GalleryError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []gallery.Entry
	for id, emb := range m.encoding {
		s, ok := m.students[id]
		if !ok || !s.Active || len(emb) != wantDim {
			continue
		}
		entries = append(entries, gallery.Entry{
			SubjectID:   s.SubjectID,
			DisplayName: s.FullName,
			GroupLabel:  s.GroupLabel,
			Embedding:   emb,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].SubjectID < entries[j].SubjectID
	})
	return entries, nil
}

// SaveEncoding stores an embedding for a subject.
func (m *Store) SaveEncoding(ctx context.Context, subjectID string, emb gallery.Embedding) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.encoding[subjectID] = emb
	return nil
}

// LogActivity appends an audit entry.
func (m *Store) LogActivity(ctx context.Context, actor, action, detail string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Activity = append(m.Activity, ActivityEntry{Actor: actor, Action: action, Detail: detail})
	return nil
}

// Close is a no-op.
func (m *Store) Close() error { return nil }

var _ store.Store = (*Store)(nil)
