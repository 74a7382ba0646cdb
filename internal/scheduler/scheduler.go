package scheduler

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Scheduler runs background maintenance jobs on fixed intervals.
type Scheduler struct {
	scheduler *gocron.Scheduler
	logger    *slog.Logger
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	s.SingletonModeAll()

	return &Scheduler{scheduler: s, logger: logger}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// ScheduleInterval schedules a job to run at regular intervals. Job errors are logged;
// the job keeps its schedule.
func (s *Scheduler) ScheduleInterval(tag string, every time.Duration, job func() error) error {
	_, err := s.scheduler.Every(every).Tag(tag).Do(func() {
		if err := job(); err != nil {
			s.logger.Error("scheduled job failed", "job", tag, "error", err)
		}
	})
	return err
}

// RemoveJob removes a scheduled job by tag
func (s *Scheduler) RemoveJob(tag string) error {
	return s.scheduler.RemoveByTag(tag)
}

// Len returns the number of scheduled jobs.
func (s *Scheduler) Len() int {
	return s.scheduler.Len()
}
