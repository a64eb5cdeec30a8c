// Package store defines the persistence interfaces shared by the capture
// loop and the scheduled tasks, plus the record types they exchange. The
// MySQL backend lives in the mysql subpackage; an in-memory implementation
// for tests lives in mock.
package store

import (
	"context"
	"time"

	"github.com/campuskit/facemark/internal/gallery"
)

// Status of one attendance record. The first write of a day fixes the
// status; later writes only refresh the time-out.
type Status string

const (
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	StatusAbsent  Status = "absent"
)

// Student is one roster row.
type Student struct {
	SubjectID  string
	FullName   string
	GroupLabel string
	Email      string
	Phone      string
	Active     bool
}

// AttendanceRecord is one (subject, date) attendance row. Date is formatted
// YYYY-MM-DD; TimeIn and TimeOut are HH:MM:SS.
type AttendanceRecord struct {
	SubjectID  string
	FullName   string
	GroupLabel string
	Date       string
	TimeIn     string
	TimeOut    string
	Status     Status
}

// GalleryStore loads and saves subject embeddings.
type GalleryStore interface {
	// LoadGallery returns entries for active subjects with a stored
	// embedding. Rows whose embedding fails schema validation are skipped.
	LoadGallery(ctx context.Context, wantDim int) ([]gallery.Entry, error)
	// SaveEncoding stores the embedding for a subject.
	SaveEncoding(ctx context.Context, subjectID string, emb gallery.Embedding) error
}

// AttendanceStore writes and reads attendance rows. Uniqueness on
// (subject, date) is enforced by the store; both background writers may race
// and the store resolves the race: first write wins on status, last write
// wins on time-out.
type AttendanceStore interface {
	// UpsertAttendance inserts a record for (subject, day) or, when one
	// already exists, updates only its time-out.
	UpsertAttendance(ctx context.Context, sub Student, at time.Time, status Status) error
	// ForceAbsent inserts an absent record for (subject, day) only when no
	// record exists yet. Returns true when a row was inserted.
	ForceAbsent(ctx context.Context, sub Student, at time.Time) (bool, error)
	// RecordsOn returns all records for the given day.
	RecordsOn(ctx context.Context, day time.Time) ([]AttendanceRecord, error)
	// RecordsBetween returns records with from <= date <= to.
	RecordsBetween(ctx context.Context, from, to time.Time) ([]AttendanceRecord, error)
}

// RosterStore reads the active roster.
type RosterStore interface {
	ActiveRoster(ctx context.Context) ([]Student, error)
}

// ActivityLogger records audit entries for marks and scheduler runs.
type ActivityLogger interface {
	LogActivity(ctx context.Context, actor, action, detail string) error
}

// Store is the full persistence surface.
type Store interface {
	GalleryStore
	AttendanceStore
	RosterStore
	ActivityLogger
	Close() error
}

// DateKey formats a day the way attendance rows store it.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// ClockKey formats a time-of-day the way attendance rows store it.
func ClockKey(t time.Time) string {
	return t.Format("15:04:05")
}
