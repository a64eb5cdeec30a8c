package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/campuskit/facemark/internal/logger"
)

// LogSink receives one line per scheduler event for display surfaces.
type LogSink func(msg string)

// Scheduler polls the clock and dispatches eligible tasks.
type Scheduler struct {
	registry *Registry
	log      *logger.Logger
	sink     LogSink
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	running bool
	quit    chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
}

// New creates a scheduler with the default 60s poll interval. sink may be nil.
func New(registry *Registry, log *logger.Logger, sink LogSink) *Scheduler {
	return &Scheduler{
		registry: registry,
		log:      log,
		sink:     sink,
		interval: time.Minute,
		now:      time.Now,
	}
}

// Start launches the polling loop. A second Start while running is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.quit = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop(ctx)
	s.emit("scheduler started")
}

// Stop signals the loop to exit and waits for it and any in-flight tasks.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.quit)
	done := s.done
	s.mu.Unlock()

	<-done
	s.wg.Wait()
	s.emit("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.quit:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick checks every enabled entry against the current wall clock.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()
	for _, e := range s.registry.Entries() {
		if !e.Enabled {
			continue
		}
		if now.Hour() != e.Hour || now.Minute() != e.Minute {
			continue
		}
		if !eligible(e, now) {
			continue
		}
		// The marker moves before dispatch so a task still running on the
		// next tick is not started again.
		e.lastRun = now
		s.dispatch(ctx, e.Task)
	}
}

// eligible applies the recurrence rule for an entry whose configured time
// matches the current minute.
func eligible(e *Entry, now time.Time) bool {
	switch e.Recurrence {
	case Daily:
		return !sameDay(e.lastRun, now)
	case Weekly:
		if now.Weekday() != e.Weekday {
			return false
		}
		return e.lastRun.IsZero() || now.Sub(e.lastRun) > 24*time.Hour
	case Monthly:
		if now.Day() != e.DayOfMonth {
			return false
		}
		return e.lastRun.IsZero() ||
			e.lastRun.Month() != now.Month() || e.lastRun.Year() != now.Year()
	}
	return false
}

func sameDay(a, b time.Time) bool {
	if a.IsZero() {
		return false
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// dispatch runs one task on its own goroutine. A panic or error is logged
// and never stops the scheduler or affects other tasks.
func (s *Scheduler) dispatch(ctx context.Context, t Task) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("task %s panicked: %v", t.Name(), r)
				s.emit(fmt.Sprintf("task %s crashed: %v", t.Name(), r))
			}
		}()

		s.emit("running task " + t.Name())
		summary, err := t.Run(ctx)
		if err != nil {
			s.log.Error("task %s failed: %v", t.Name(), err)
			s.emit(fmt.Sprintf("task %s failed: %v", t.Name(), err))
			return
		}
		s.log.Info("task %s done: %s", t.Name(), summary)
		s.emit(fmt.Sprintf("task %s done: %s", t.Name(), summary))
	}()
}

// RunNow runs a task synchronously, bypassing the eligibility check and
// leaving the last-run marker untouched.
func (s *Scheduler) RunNow(ctx context.Context, name string) (string, error) {
	e, ok := s.registry.Find(name)
	if !ok {
		return "", fmt.Errorf("unknown task %q", name)
	}
	s.emit("manual run of task " + name)
	return e.Task.Run(ctx)
}

func (s *Scheduler) emit(msg string) {
	if s.sink != nil {
		s.sink(msg)
	}
}
