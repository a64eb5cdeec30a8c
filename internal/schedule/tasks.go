package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/campuskit/facemark/internal/notify"
	"github.com/campuskit/facemark/internal/store"
)

// taskStore is the persistence surface the built-in tasks need.
type taskStore interface {
	store.AttendanceStore
	store.RosterStore
	store.ActivityLogger
}

// AbsentAlertTask notifies guardians of every active student with no present
// or late record today. Notifier failures are counted, never fatal.
type AbsentAlertTask struct {
	Store    taskStore
	Notifier notify.Notifier
	Now      func() time.Time
}

func (t *AbsentAlertTask) Name() string { return "absent-alerts" }

func (t *AbsentAlertTask) Run(ctx context.Context) (string, error) {
	now := t.clock()
	roster, err := t.Store.ActiveRoster(ctx)
	if err != nil {
		return "", fmt.Errorf("load roster: %w", err)
	}
	records, err := t.Store.RecordsOn(ctx, now)
	if err != nil {
		return "", fmt.Errorf("load today's records: %w", err)
	}

	marked := make(map[string]bool)
	for _, r := range records {
		if r.Status == store.StatusPresent || r.Status == store.StatusLate {
			marked[r.SubjectID] = true
		}
	}

	var sent, failed, skipped int
	date := store.DateKey(now)
	for _, sub := range roster {
		if marked[sub.SubjectID] {
			continue
		}
		if strings.TrimSpace(sub.Phone) == "" {
			skipped++
			continue
		}
		if err := t.Notifier.NotifyAbsence(ctx, sub, date); err != nil {
			failed++
			continue
		}
		sent++
	}

	summary := fmt.Sprintf("alerts sent=%d failed=%d skipped=%d", sent, failed, skipped)
	_ = t.Store.LogActivity(ctx, "scheduler", "absent-alerts", summary)
	return summary, nil
}

func (t *AbsentAlertTask) clock() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// ForceAbsentTask writes an absent record for every active student with no
// record at all today. Students already marked are left untouched; the
// storage layer resolves any race with the capture loop.
type ForceAbsentTask struct {
	Store taskStore
	Now   func() time.Time
}

func (t *ForceAbsentTask) Name() string { return "force-absent" }

func (t *ForceAbsentTask) Run(ctx context.Context) (string, error) {
	now := t.clock()
	roster, err := t.Store.ActiveRoster(ctx)
	if err != nil {
		return "", fmt.Errorf("load roster: %w", err)
	}
	records, err := t.Store.RecordsOn(ctx, now)
	if err != nil {
		return "", fmt.Errorf("load today's records: %w", err)
	}

	seen := make(map[string]bool)
	for _, r := range records {
		seen[r.SubjectID] = true
	}

	var markedAbsent, failed int
	for _, sub := range roster {
		if seen[sub.SubjectID] {
			continue
		}
		inserted, err := t.Store.ForceAbsent(ctx, sub, now)
		if err != nil {
			failed++
			continue
		}
		if inserted {
			markedAbsent++
		}
	}

	summary := fmt.Sprintf("marked absent=%d failed=%d", markedAbsent, failed)
	_ = t.Store.LogActivity(ctx, "scheduler", "force-absent", summary)
	return summary, nil
}

func (t *ForceAbsentTask) clock() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// DailySummaryTask mails the day's attendance counts.
type DailySummaryTask struct {
	Store  taskStore
	Mailer notify.Mailer
	To     string
	Now    func() time.Time
}

func (t *DailySummaryTask) Name() string { return "daily-summary" }

func (t *DailySummaryTask) Run(ctx context.Context) (string, error) {
	if t.To == "" {
		return "skipped: no summary recipient configured", nil
	}
	now := t.clock()
	records, err := t.Store.RecordsOn(ctx, now)
	if err != nil {
		return "", fmt.Errorf("load today's records: %w", err)
	}

	var present, late, absent int
	for _, r := range records {
		switch r.Status {
		case store.StatusPresent:
			present++
		case store.StatusLate:
			late++
		case store.StatusAbsent:
			absent++
		}
	}

	date := store.DateKey(now)
	body := fmt.Sprintf(
		"Attendance summary for %s\n\nPresent: %d\nLate: %d\nAbsent: %d\nTotal marked: %d\n",
		date, present, late, absent, len(records))
	subject := "Daily attendance summary " + date
	if err := t.Mailer.SendSummary(ctx, t.To, subject, body); err != nil {
		return "", fmt.Errorf("send daily summary: %w", err)
	}

	summary := fmt.Sprintf("summary mailed: present=%d late=%d absent=%d", present, late, absent)
	_ = t.Store.LogActivity(ctx, "scheduler", "daily-summary", summary)
	return summary, nil
}

func (t *DailySummaryTask) clock() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// WeeklySummaryTask mails per-student attendance counts for the last 7 days.
type WeeklySummaryTask struct {
	Store  taskStore
	Mailer notify.Mailer
	To     string
	Now    func() time.Time
}

func (t *WeeklySummaryTask) Name() string { return "weekly-summary" }

func (t *WeeklySummaryTask) Run(ctx context.Context) (string, error) {
	if t.To == "" {
		return "skipped: no summary recipient configured", nil
	}
	now := t.clock()
	from := now.AddDate(0, 0, -6)
	records, err := t.Store.RecordsBetween(ctx, from, now)
	if err != nil {
		return "", fmt.Errorf("load week's records: %w", err)
	}

	type counts struct {
		name                  string
		present, late, absent int
	}
	perStudent := make(map[string]*counts)
	for _, r := range records {
		c, ok := perStudent[r.SubjectID]
		if !ok {
			c = &counts{name: r.FullName}
			perStudent[r.SubjectID] = c
		}
		switch r.Status {
		case store.StatusPresent:
			c.present++
		case store.StatusLate:
			c.late++
		case store.StatusAbsent:
			c.absent++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Weekly attendance %s to %s\n\n", store.DateKey(from), store.DateKey(now))
	roster, err := t.Store.ActiveRoster(ctx)
	if err != nil {
		return "", fmt.Errorf("load roster: %w", err)
	}
	for _, sub := range roster {
		c := perStudent[sub.SubjectID]
		if c == nil {
			c = &counts{}
		}
		fmt.Fprintf(&b, "%s (%s): present=%d late=%d absent=%d\n",
			sub.FullName, sub.SubjectID, c.present, c.late, c.absent)
	}

	subject := "Weekly attendance summary " + store.DateKey(now)
	if err := t.Mailer.SendSummary(ctx, t.To, subject, b.String()); err != nil {
		return "", fmt.Errorf("send weekly summary: %w", err)
	}

	summary := fmt.Sprintf("weekly summary mailed for %d students", len(roster))
	_ = t.Store.LogActivity(ctx, "scheduler", "weekly-summary", summary)
	return summary, nil
}

func (t *WeeklySummaryTask) clock() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// MonthlyRollupTask writes the previous month's records into a single CSV.
type MonthlyRollupTask struct {
	Store  taskStore
	Mirror *store.Mirror
	Now    func() time.Time
}

func (t *MonthlyRollupTask) Name() string { return "monthly-rollup" }

func (t *MonthlyRollupTask) Run(ctx context.Context) (string, error) {
	now := t.clock()
	firstOfThisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	from := firstOfThisMonth.AddDate(0, -1, 0)
	to := firstOfThisMonth.AddDate(0, 0, -1)

	records, err := t.Store.RecordsBetween(ctx, from, to)
	if err != nil {
		return "", fmt.Errorf("load month's records: %w", err)
	}

	name := fmt.Sprintf("attendance_%s.csv", from.Format("2006-01"))
	path, err := t.Mirror.WriteRollup(name, records)
	if err != nil {
		return "", fmt.Errorf("write rollup: %w", err)
	}

	summary := fmt.Sprintf("rollup of %d records written to %s", len(records), path)
	_ = t.Store.LogActivity(ctx, "scheduler", "monthly-rollup", summary)
	return summary, nil
}

func (t *MonthlyRollupTask) clock() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}
