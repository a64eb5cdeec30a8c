package mysql

import (
	"context"
	"fmt"

	"github.com/campuskit/facemark/internal/gallery"
	"github.com/campuskit/facemark/internal/store"
)

// ActiveRoster returns every student with status 'active'.
func (p *Pool) ActiveRoster(ctx context.Context) ([]store.Student, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT subject_id, full_name, group_label, email, phone
		FROM students WHERE status = 'active' ORDER BY full_name`)
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}
	defer rows.Close()

	var students []store.Student
	for rows.Next() {
		s := store.Student{Active: true}
		if err := rows.Scan(&s.SubjectID, &s.FullName, &s.GroupLabel, &s.Email, &s.Phone); err != nil {
			return nil, fmt.Errorf("scan roster row: %w", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roster rows: %w", err)
	}
	return students, nil
}

// RegisterStudent inserts a roster row, or refreshes the contact fields when
// the subject already exists.
func (p *Pool) RegisterStudent(ctx context.Context, s store.Student) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO students (subject_id, full_name, group_label, email, phone)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE full_name = ?, group_label = ?, email = ?, phone = ?`,
		s.SubjectID, s.FullName, s.GroupLabel, s.Email, s.Phone,
		s.FullName, s.GroupLabel, s.Email, s.Phone)
	if err != nil {
		return fmt.Errorf("register student %s: %w", s.SubjectID, err)
	}
	return nil
}

// LoadGallery returns entries for active students that have a stored
// embedding. Rows that fail embedding schema validation are skipped rather
// than aborting the whole load; the caller logs the count difference.
func (p *Pool) LoadGallery(ctx context.Context, wantDim int) ([]gallery.Entry, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT subject_id, full_name, group_label, face_encoding
		FROM students WHERE status = 'active' AND face_encoding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("query gallery: %w", err)
	}
	defer rows.Close()

	var entries []gallery.Entry
	for rows.Next() {
		var e gallery.Entry
		var blob []byte
		if err := rows.Scan(&e.SubjectID, &e.DisplayName, &e.GroupLabel, &blob); err != nil {
			return nil, fmt.Errorf("scan gallery row: %w", err)
		}
		emb, err := gallery.UnmarshalEmbedding(blob, wantDim)
		if err != nil {
			continue
		}
		e.Embedding = emb
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gallery rows: %w", err)
	}
	return entries, nil
}

// SaveEncoding stores the embedding blob for a subject.
func (p *Pool) SaveEncoding(ctx context.Context, subjectID string, emb gallery.Embedding) error {
	blob, err := gallery.MarshalEmbedding(emb)
	if err != nil {
		return fmt.Errorf("encode embedding for %s: %w", subjectID, err)
	}

	res, err := p.db.ExecContext(ctx,
		`UPDATE students SET face_encoding = ? WHERE subject_id = ?`, blob, subjectID)
	if err != nil {
		return fmt.Errorf("save encoding for %s: %w", subjectID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save encoding rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("save encoding: unknown subject %s", subjectID)
	}
	return nil
}
