package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/campuskit/facemark/internal/store"
)

// UpsertAttendance inserts the first record of the day for a subject, or
// refreshes time_out on a repeat mark. The status column is never touched on
// conflict, so first write wins.
func (p *Pool) UpsertAttendance(ctx context.Context, sub store.Student, at time.Time, status store.Status) error {
	clock := store.ClockKey(at)
	query := `INSERT INTO attendance (subject_id, full_name, group_label, date, time_in, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE time_out = ?`

	_, err := p.db.ExecContext(ctx, query,
		sub.SubjectID, sub.FullName, sub.GroupLabel, store.DateKey(at), clock, string(status), clock)
	if err != nil {
		return fmt.Errorf("upsert attendance for %s: %w", sub.SubjectID, err)
	}
	return nil
}

// ForceAbsent inserts an absent record only when the subject has no record
// for the day. An existing row is left exactly as-is; on conflict the update
// is a no-op, which MySQL reports as zero affected rows.
func (p *Pool) ForceAbsent(ctx context.Context, sub store.Student, at time.Time) (bool, error) {
	query := `INSERT INTO attendance (subject_id, full_name, group_label, date, time_in, status)
		VALUES (?, ?, ?, ?, ?, 'absent')
		ON DUPLICATE KEY UPDATE subject_id = subject_id`

	res, err := p.db.ExecContext(ctx, query,
		sub.SubjectID, sub.FullName, sub.GroupLabel, store.DateKey(at), store.ClockKey(at))
	if err != nil {
		return false, fmt.Errorf("force absent for %s: %w", sub.SubjectID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("force absent rows affected: %w", err)
	}
	return affected == 1, nil
}

// RecordsOn returns all attendance records for one day.
func (p *Pool) RecordsOn(ctx context.Context, day time.Time) ([]store.AttendanceRecord, error) {
	key := store.DateKey(day)
	return p.queryRecords(ctx,
		`SELECT subject_id, full_name, group_label, DATE_FORMAT(date, '%Y-%m-%d'),
			TIME_FORMAT(time_in, '%H:%i:%s'), IFNULL(TIME_FORMAT(time_out, '%H:%i:%s'), ''), status
		FROM attendance WHERE date = ? ORDER BY time_in`, key)
}

// RecordsBetween returns records with from <= date <= to.
func (p *Pool) RecordsBetween(ctx context.Context, from, to time.Time) ([]store.AttendanceRecord, error) {
	return p.queryRecords(ctx,
		`SELECT subject_id, full_name, group_label, DATE_FORMAT(date, '%Y-%m-%d'),
			TIME_FORMAT(time_in, '%H:%i:%s'), IFNULL(TIME_FORMAT(time_out, '%H:%i:%s'), ''), status
		FROM attendance WHERE date BETWEEN ? AND ? ORDER BY date, time_in`,
		store.DateKey(from), store.DateKey(to))
}

func (p *Pool) queryRecords(ctx context.Context, query string, args ...interface{}) ([]store.AttendanceRecord, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var records []store.AttendanceRecord
	for rows.Next() {
		var r store.AttendanceRecord
		var status string
		if err := rows.Scan(&r.SubjectID, &r.FullName, &r.GroupLabel, &r.Date, &r.TimeIn, &r.TimeOut, &status); err != nil {
			return nil, fmt.Errorf("scan attendance row: %w", err)
		}
		r.Status = store.Status(status)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance rows: %w", err)
	}
	return records, nil
}

// LogActivity records an audit entry.
func (p *Pool) LogActivity(ctx context.Context, actor, action, detail string) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO activity_log (actor, action, detail) VALUES (?, ?, ?)`,
		actor, action, detail)
	if err != nil {
		return fmt.Errorf("log activity: %w", err)
	}
	return nil
}
