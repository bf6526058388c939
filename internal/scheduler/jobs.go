// internal/scheduler/jobs.go
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"shelfwise/internal/circulation"
	"shelfwise/internal/inventory"
	"shelfwise/internal/notify"
	"shelfwise/internal/report"
)

const reminderSubject = "Overdue Book Reminder"

// ReminderJob scans for overdue items once a day and notifies each item's
// borrower. One bad address must not block reminders to other borrowers, so
// per-item failures are logged and the batch continues.
type ReminderJob struct {
	engine   circulation.Service
	repo     inventory.Repository
	notifier notify.Notifier
	log      *slog.Logger
	hour     int
}

func NewReminderJob(engine circulation.Service, repo inventory.Repository, notifier notify.Notifier, log *slog.Logger, hour int) *ReminderJob {
	return &ReminderJob{
		engine:   engine,
		repo:     repo,
		notifier: notifier,
		log:      log,
		hour:     hour,
	}
}

func (j *ReminderJob) Name() string { return "overdue-reminders" }

func (j *ReminderJob) Next(after time.Time) time.Time {
	return NextDaily(after, j.hour)
}

func (j *ReminderJob) Run(ctx context.Context, now time.Time) error {
	items, err := j.engine.ClassifyOverdue(ctx, now)
	if err != nil {
		return fmt.Errorf("classify overdue: %w", err)
	}
	j.log.Info("sending overdue reminders", "overdue", len(items))

	for _, item := range items {
		borrower, err := j.repo.GetBorrower(ctx, item.Loan.BorrowerID)
		if err != nil {
			j.log.Error("failed to resolve borrower for reminder",
				"item_id", item.ID, "borrower_id", item.Loan.BorrowerID, "error", err)
			continue
		}

		body := fmt.Sprintf("Your book '%s' is overdue.", item.Title)
		if err := j.notifier.Send(ctx, borrower.Email, reminderSubject, body); err != nil {
			j.log.Error("reminder delivery failed",
				"item_id", item.ID, "address", borrower.Email, "error", err)
			continue
		}
	}
	return nil
}

// ReportJob appends one aggregate line per weekly firing. The counts are a
// pure function of the snapshot, not of previously written reports.
type ReportJob struct {
	engine  circulation.Service
	sink    report.Sink
	log     *slog.Logger
	weekday time.Weekday
	hour    int
	minute  int
}

func NewReportJob(engine circulation.Service, sink report.Sink, log *slog.Logger, weekday time.Weekday, hour, minute int) *ReportJob {
	return &ReportJob{
		engine:  engine,
		sink:    sink,
		log:     log,
		weekday: weekday,
		hour:    hour,
		minute:  minute,
	}
}

func (j *ReportJob) Name() string { return "weekly-report" }

func (j *ReportJob) Next(after time.Time) time.Time {
	return NextWeekly(after, j.weekday, j.hour, j.minute)
}

func (j *ReportJob) Run(ctx context.Context, now time.Time) error {
	summary, err := j.engine.Aggregate(ctx, now)
	if err != nil {
		return fmt.Errorf("aggregate inventory: %w", err)
	}

	line := FormatReportLine(summary)
	j.log.Info("weekly book report", "report", line)

	if err := j.sink.Append(line); err != nil {
		return fmt.Errorf("append report: %w", err)
	}
	return nil
}

// FormatReportLine renders one report line.
func FormatReportLine(summary circulation.Summary) string {
	return fmt.Sprintf("%s - [ In library: %d | All: %d | With overdue: %d ]",
		summary.GeneratedAt.UTC().Format(time.RFC3339),
		summary.Available, summary.Total, summary.Overdue)
}
