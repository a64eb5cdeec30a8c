package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/campuskit/facemark/internal/config"
	"github.com/campuskit/facemark/internal/logger"
)

type fakeTask struct {
	name string
	mu   sync.Mutex
	runs int
	err  error
	pani bool
}

func (f *fakeTask) Name() string { return f.name }

func (f *fakeTask) Run(ctx context.Context) (string, error) {
	f.mu.Lock()
	f.runs++
	f.mu.Unlock()
	if f.pani {
		panic("boom")
	}
	return "ok", f.err
}

func (f *fakeTask) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

func mustParse(t *testing.T, layout, s string) time.Time {
	t.Helper()
	v, err := time.Parse(layout, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v
}

func TestEligibility(t *testing.T) {
	// 2026-03-06 is a Friday; 2026-03-01 is a Sunday.
	tests := []struct {
		name     string
		entry    Entry
		now      string
		expected bool
	}{
		{
			name:     "daily first run",
			entry:    Entry{Recurrence: Daily},
			now:      "2026-03-02 09:30:00",
			expected: true,
		},
		{
			name:     "daily already ran today",
			entry:    Entry{Recurrence: Daily, lastRun: mustParse(t, "2006-01-02 15:04:05", "2026-03-02 09:30:00")},
			now:      "2026-03-02 09:31:00",
			expected: false,
		},
		{
			name:     "daily ran yesterday",
			entry:    Entry{Recurrence: Daily, lastRun: mustParse(t, "2006-01-02 15:04:05", "2026-03-01 09:30:00")},
			now:      "2026-03-02 09:30:00",
			expected: true,
		},
		{
			name:     "weekly wrong weekday",
			entry:    Entry{Recurrence: Weekly, Weekday: time.Friday},
			now:      "2026-03-02 17:00:00",
			expected: false,
		},
		{
			name:     "weekly right weekday first run",
			entry:    Entry{Recurrence: Weekly, Weekday: time.Friday},
			now:      "2026-03-06 17:00:00",
			expected: true,
		},
		{
			name:     "weekly ran within the last day",
			entry:    Entry{Recurrence: Weekly, Weekday: time.Friday, lastRun: mustParse(t, "2006-01-02 15:04:05", "2026-03-06 10:00:00")},
			now:      "2026-03-06 17:00:00",
			expected: false,
		},
		{
			name:     "weekly ran last week",
			entry:    Entry{Recurrence: Weekly, Weekday: time.Friday, lastRun: mustParse(t, "2006-01-02 15:04:05", "2026-02-27 17:00:00")},
			now:      "2026-03-06 17:00:00",
			expected: true,
		},
		{
			name:     "monthly wrong day",
			entry:    Entry{Recurrence: Monthly, DayOfMonth: 1},
			now:      "2026-03-02 08:00:00",
			expected: false,
		},
		{
			name:     "monthly right day first run",
			entry:    Entry{Recurrence: Monthly, DayOfMonth: 1},
			now:      "2026-03-01 08:00:00",
			expected: true,
		},
		{
			name:     "monthly ran this month",
			entry:    Entry{Recurrence: Monthly, DayOfMonth: 1, lastRun: mustParse(t, "2006-01-02 15:04:05", "2026-03-01 08:00:00")},
			now:      "2026-03-01 08:05:00",
			expected: false,
		},
		{
			name:     "monthly ran last month",
			entry:    Entry{Recurrence: Monthly, DayOfMonth: 1, lastRun: mustParse(t, "2006-01-02 15:04:05", "2026-02-01 08:00:00")},
			now:      "2026-03-01 08:00:00",
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := mustParse(t, "2006-01-02 15:04:05", tt.now)
			if got := eligible(&tt.entry, now); got != tt.expected {
				t.Errorf("eligible() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func testScheduler(t *testing.T, entries []*Entry) *Scheduler {
	t.Helper()
	return &Scheduler{
		registry: &Registry{entries: entries},
		log:      logger.Discard(),
		interval: time.Minute,
		now:      time.Now,
	}
}

func TestTickDispatchesEligibleTasks(t *testing.T) {
	task := &fakeTask{name: "absent-alerts"}
	entry := &Entry{Task: task, Hour: 9, Minute: 30, Recurrence: Daily, Enabled: true}
	s := testScheduler(t, []*Entry{entry})
	s.now = func() time.Time {
		return mustParse(t, "2006-01-02 15:04:05", "2026-03-02 09:30:10")
	}

	s.tick(context.Background())
	s.wg.Wait()
	if got := task.count(); got != 1 {
		t.Fatalf("task ran %d times, want 1", got)
	}

	// The marker moved before dispatch, so a second tick in the same
	// minute must not start the task again.
	s.tick(context.Background())
	s.wg.Wait()
	if got := task.count(); got != 1 {
		t.Errorf("task ran %d times after second tick, want 1", got)
	}
}

func TestTickSkipsDisabledAndOffSchedule(t *testing.T) {
	disabled := &fakeTask{name: "disabled"}
	offTime := &fakeTask{name: "off-time"}
	s := testScheduler(t, []*Entry{
		{Task: disabled, Hour: 9, Minute: 30, Recurrence: Daily, Enabled: false},
		{Task: offTime, Hour: 10, Minute: 0, Recurrence: Daily, Enabled: true},
	})
	s.now = func() time.Time {
		return mustParse(t, "2006-01-02 15:04:05", "2026-03-02 09:30:00")
	}

	s.tick(context.Background())
	s.wg.Wait()
	if disabled.count() != 0 || offTime.count() != 0 {
		t.Errorf("unexpected runs: disabled=%d offTime=%d", disabled.count(), offTime.count())
	}
}

func TestPanickingTaskDoesNotStopOthers(t *testing.T) {
	bad := &fakeTask{name: "bad", pani: true}
	good := &fakeTask{name: "good"}
	s := testScheduler(t, []*Entry{
		{Task: bad, Hour: 9, Minute: 30, Recurrence: Daily, Enabled: true},
		{Task: good, Hour: 9, Minute: 30, Recurrence: Daily, Enabled: true},
	})
	s.now = func() time.Time {
		return mustParse(t, "2006-01-02 15:04:05", "2026-03-02 09:30:00")
	}

	s.tick(context.Background())
	s.wg.Wait()
	if bad.count() != 1 || good.count() != 1 {
		t.Errorf("runs: bad=%d good=%d, want 1 and 1", bad.count(), good.count())
	}
}

func TestRunNowBypassesEligibility(t *testing.T) {
	task := &fakeTask{name: "force-absent", err: errors.New("roster unavailable")}
	entry := &Entry{Task: task, Hour: 11, Minute: 15, Recurrence: Daily, Enabled: false}
	s := testScheduler(t, []*Entry{entry})

	if _, err := s.RunNow(context.Background(), "force-absent"); err == nil {
		t.Error("expected task error to propagate from RunNow")
	}
	if task.count() != 1 {
		t.Errorf("task ran %d times, want 1", task.count())
	}
	if !entry.lastRun.IsZero() {
		t.Error("RunNow mutated the last-run marker")
	}

	if _, err := s.RunNow(context.Background(), "no-such-task"); err == nil {
		t.Error("expected error for unknown task")
	}
}

func TestRegistryBinding(t *testing.T) {
	tc := &config.TasksConfig{Tasks: []config.TaskConfig{
		{Name: "absent-alerts", Hour: 9, Minute: 30, Recurrence: "daily", Enabled: true},
	}}

	if _, err := NewRegistry(tc, nil); err == nil {
		t.Error("expected error for missing task implementation")
	}

	reg, err := NewRegistry(tc, []Task{&fakeTask{name: "absent-alerts"}})
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	if _, ok := reg.Find("absent-alerts"); !ok {
		t.Error("registered task not found")
	}
}

func TestStartStop(t *testing.T) {
	s := testScheduler(t, nil)
	s.interval = 10 * time.Millisecond

	s.Start(context.Background())
	s.Start(context.Background()) // second start is a no-op
	time.Sleep(30 * time.Millisecond)
	s.Stop()
	s.Stop() // second stop is a no-op
}
