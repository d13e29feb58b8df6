package services

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// SchedulerOptions configures the background jobs.
type SchedulerOptions struct {
	Location    *time.Location
	RestockCron string   // empty disables scheduled restocks
	Nightly     []func() // run shortly after midnight in Location
}

// StartScheduler registers the pool maintenance jobs and starts the scheduler.
// The caller owns Shutdown.
func (d *Dispenser) StartScheduler(opts SchedulerOptions) (gocron.Scheduler, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	sched, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	if err := d.registerJobs(sched, opts); err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	d.log.Info("⏰ scheduler started", zap.String("restock_cron", opts.RestockCron), zap.Int("nightly_jobs", len(opts.Nightly)))
	return sched, nil
}

func (d *Dispenser) registerJobs(sched gocron.Scheduler, opts SchedulerOptions) error {
	// Every minute: publish pool counts
	if _, err := sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			if err := d.Pool.RefreshStockGauge(); err != nil {
				d.log.Warn("[Scheduler] stock refresh failed", zap.Error(err))
			}
		}),
	); err != nil {
		return fmt.Errorf("register stock job: %w", err)
	}

	if opts.RestockCron != "" {
		if _, err := sched.NewJob(
			gocron.CronJob(opts.RestockCron, false),
			gocron.NewTask(func() {
				if _, err := d.Pool.Restock(); err != nil {
					d.log.Error("[Scheduler] scheduled restock failed", zap.Error(err))
				}
			}),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return fmt.Errorf("register restock job %q: %w", opts.RestockCron, err)
		}
	}

	for _, task := range opts.Nightly {
		if _, err := sched.NewJob(
			gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 5, 0))),
			gocron.NewTask(task),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return fmt.Errorf("register nightly job: %w", err)
		}
	}
	return nil
}
