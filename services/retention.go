package services

import (
	"context"
	"log/slog"
	"time"

	"resume-graph-service/internal/scheduler"
)

const sessionSweepJob = "session-retention-sweep"

// ExpiringRegistry is implemented by registries that need periodic cleanup.
type ExpiringRegistry interface {
	SweepExpired(ctx context.Context) (int, error)
}

// ScheduleSessionSweep registers the retention sweep on s. It is a no-op when the
// registry has no expiring state or every is not positive.
func ScheduleSessionSweep(s *scheduler.Scheduler, registry SessionRegistry, every time.Duration, logger *slog.Logger) (bool, error) {
	sweeper, ok := registry.(ExpiringRegistry)
	if !ok || every <= 0 {
		return false, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	err := s.ScheduleInterval(sessionSweepJob, every, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), every)
		defer cancel()

		removed, err := sweeper.SweepExpired(ctx)
		if err != nil {
			return err
		}
		if removed > 0 {
			logger.Info("expired sessions swept", "removed", removed)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
