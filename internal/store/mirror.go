package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/campuskit/facemark/internal/names"
)

var csvHeader = []string{"subject_id", "full_name", "group", "date", "time_in", "time_out", "status"}

// Mirror appends attendance rows to per-day CSV files so records stay
// readable without database access. Files are named attendance_YYYY-MM-DD.csv.
type Mirror struct {
	mu  sync.Mutex
	dir string
}

// NewMirror creates the target directory if needed.
func NewMirror(dir string) (*Mirror, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create csv dir: %w", err)
	}
	return &Mirror{dir: dir}, nil
}

// Append writes one record to its day file, creating the file with a header
// row when missing. Names are de-accented because the files end up in
// spreadsheet tools that mangle combining marks.
func (m *Mirror) Append(r AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := filepath.Join(m.dir, "attendance_"+r.Date+".csv")
	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open csv mirror: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
	}
	if err := w.Write(recordRow(r)); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv mirror: %w", err)
	}
	return nil
}

// WriteRollup writes a set of records to a single named CSV file,
// overwriting any previous rollup of the same name.
func (m *Mirror) WriteRollup(name string, records []AttendanceRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := filepath.Join(m.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create rollup: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return "", fmt.Errorf("write rollup header: %w", err)
	}
	for _, r := range records {
		if err := w.Write(recordRow(r)); err != nil {
			return "", fmt.Errorf("write rollup row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush rollup: %w", err)
	}
	return path, nil
}

func recordRow(r AttendanceRecord) []string {
	return []string{
		r.SubjectID,
		names.RemoveDiacritics(r.FullName),
		r.GroupLabel,
		r.Date,
		r.TimeIn,
		r.TimeOut,
		string(r.Status),
	}
}
