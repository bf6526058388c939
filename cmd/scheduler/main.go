// cmd/scheduler/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"shelfwise/internal/circulation"
	"shelfwise/internal/clock"
	"shelfwise/internal/config"
	"shelfwise/internal/inventory"
	"shelfwise/internal/journal"
	"shelfwise/internal/notify"
	"shelfwise/internal/report"
	"shelfwise/internal/scheduler"
	"shelfwise/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := telemetry.NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, "shelfwise-scheduler", cfg.OTLPEndpoint)
	if err != nil {
		log.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	// The scheduler often starts before the database in a fresh deployment,
	// so keep retrying until it answers.
	db, err := backoff.Retry(ctx, func() (*sqlx.DB, error) {
		db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Warn("database not ready, retrying", "error", err)
			return nil, err
		}
		return db, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()))
	if err != nil {
		log.Error("giving up on database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	clk := clock.System()
	repo := inventory.NewPostgresRepository(db, journal.New(db))
	engine := circulation.NewService(repo, clk, cfg.CheckoutPeriodDays, log)

	var notifier notify.Notifier
	if cfg.SMTPAddr != "" {
		notifier = notify.WithBreaker(&notify.SMTPNotifier{Addr: cfg.SMTPAddr, From: cfg.SMTPFrom})
	} else {
		log.Info("no SMTP server configured, reminders will be logged")
		notifier = &notify.LogNotifier{Log: log}
	}

	sched := scheduler.New(clk, scheduler.NewPostgresJobStore(db), log, cfg.JobRunTimeout)
	sched.Register(scheduler.NewReminderJob(engine, repo, notifier, log, cfg.ReminderHour))
	sched.Register(scheduler.NewReportJob(engine, report.NewFileSink(cfg.ReportFile), log,
		time.Weekday(cfg.ReportWeekday), cfg.ReportHour, cfg.ReportMinute))

	log.Info("scheduler starting",
		"reminder_hour", cfg.ReminderHour,
		"report_weekday", cfg.ReportWeekday,
		"report_time", time.Date(0, 1, 1, cfg.ReportHour, cfg.ReportMinute, 0, 0, time.UTC).Format("15:04"))

	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("scheduler stopped", "error", err)
		os.Exit(1)
	}
	log.Info("scheduler stopped")
}
