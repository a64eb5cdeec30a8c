// Package schedule runs background attendance tasks on a wall-clock
// schedule. Eligibility is recurrence-aware (daily, weekly, monthly) and the
// last-run marker advances before dispatch so a slow task is never started
// twice.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/campuskit/facemark/internal/config"
)

// Task is one schedulable unit of work. Run returns a short human-readable
// outcome summary for the activity log.
type Task interface {
	Name() string
	Run(ctx context.Context) (string, error)
}

// Recurrence of a scheduled task.
type Recurrence string

const (
	Daily   Recurrence = "daily"
	Weekly  Recurrence = "weekly"
	Monthly Recurrence = "monthly"
)

// Entry is one registered task plus its schedule.
type Entry struct {
	Task       Task
	Hour       int
	Minute     int
	Recurrence Recurrence
	Weekday    time.Weekday // weekly only
	DayOfMonth int          // monthly only
	Enabled    bool

	lastRun time.Time // zero until the first dispatch
}

// Registry maps task names to schedule entries.
type Registry struct {
	entries []*Entry
}

// NewRegistry binds the configured schedule to task implementations. Every
// configured task must have an implementation; extra implementations without
// a configured schedule are ignored.
func NewRegistry(tc *config.TasksConfig, tasks []Task) (*Registry, error) {
	byName := make(map[string]Task, len(tasks))
	for _, t := range tasks {
		byName[t.Name()] = t
	}

	reg := &Registry{}
	for _, c := range tc.Tasks {
		impl, ok := byName[c.Name]
		if !ok {
			return nil, fmt.Errorf("no implementation for scheduled task %q", c.Name)
		}
		reg.entries = append(reg.entries, &Entry{
			Task:       impl,
			Hour:       c.Hour,
			Minute:     c.Minute,
			Recurrence: Recurrence(c.Recurrence),
			Weekday:    time.Weekday(c.Weekday),
			DayOfMonth: c.DayOfMonth,
			Enabled:    c.Enabled,
		})
	}
	return reg, nil
}

// Entries returns the registered entries in configuration order.
func (r *Registry) Entries() []*Entry {
	return r.entries
}

// Find returns the entry for a task name.
func (r *Registry) Find(name string) (*Entry, bool) {
	for _, e := range r.entries {
		if e.Task.Name() == name {
			return e, true
		}
	}
	return nil, false
}
