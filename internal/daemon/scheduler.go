package daemon

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"git.home.luguber.info/inful/restockwatch/internal/config"
	"git.home.luguber.info/inful/restockwatch/internal/foundation/errors"
	"git.home.luguber.info/inful/restockwatch/internal/logfields"
)

// Scheduler runs the periodic check job on gocron.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a new scheduler instance.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryDaemon, "create scheduler").Build()
	}
	return &Scheduler{scheduler: s}, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop shuts the scheduler down and waits for running jobs.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// Schedule registers task according to the watch config. A cron expression
// takes precedence over the interval.
func (s *Scheduler) Schedule(name string, cfg config.WatchConfig, task func()) (string, error) {
	if cfg.Cron != "" {
		return s.ScheduleCron(name, cfg.Cron, task)
	}
	return s.ScheduleEvery(name, cfg.Interval, task)
}

// ScheduleEvery runs task now and then every interval. A tick that arrives
// while the same job is still running is skipped.
func (s *Scheduler) ScheduleEvery(name string, interval time.Duration, task func()) (string, error) {
	if interval <= 0 {
		return "", errors.DaemonError("watch interval must be positive").WithContext("interval", interval.String()).Build()
	}
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		s.jobOptions(name)...,
	)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryDaemon, "create interval job").Build()
	}
	slog.Info("Scheduled check", logfields.Schedule(interval.String()), slog.String("job", name))
	return job.ID().String(), nil
}

// ScheduleCron runs task now and then on the five-field cron expression.
func (s *Scheduler) ScheduleCron(name, expr string, task func()) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.CronJob(expr, false),
		gocron.NewTask(task),
		s.jobOptions(name)...,
	)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryDaemon, "create cron job").WithContext("cron", expr).Build()
	}
	slog.Info("Scheduled check", logfields.Schedule(expr), slog.String("job", name))
	return job.ID().String(), nil
}

// Remove unschedules a job by the ID returned from Schedule.
func (s *Scheduler) Remove(id string) error {
	jobID, err := uuid.Parse(id)
	if err != nil {
		return errors.WrapError(err, errors.CategoryDaemon, "invalid job id").WithContext("id", id).Build()
	}
	return s.scheduler.RemoveJob(jobID)
}

func (s *Scheduler) jobOptions(name string) []gocron.JobOption {
	return []gocron.JobOption{
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	}
}
