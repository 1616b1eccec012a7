package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/pixelgate/pixelgate/internal/repository"
	"github.com/robfig/cron/v3"
)

// Scheduler fires the daily pool reset at 00:00 UTC. The reset itself
// runs inside the storage transaction boundary, so it cannot interleave
// with an in-flight allocation.
type Scheduler struct {
	c      *cron.Cron
	keys   *repository.ProviderKeyRepository
	logger *slog.Logger
}

func New(keys *repository.ProviderKeyRepository, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		c:      cron.New(cron.WithLocation(time.UTC)),
		keys:   keys,
		logger: logger.With("component", "scheduler"),
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.c.AddFunc("0 0 * * *", s.RunReset); err != nil {
		return err
	}

	s.c.Start()
	s.logger.Info("daily reset scheduled", "spec", "0 0 * * * UTC")
	return nil
}

// RunReset zeroes every credential's counter and clears rate-limit
// flags. Failures are logged and left for the next firing; the process
// never crashes over a missed reset.
func (s *Scheduler) RunReset() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	affected, err := s.keys.ResetAll(ctx)
	if err != nil {
		s.logger.Error("daily provider key reset failed", "error", err)
		return
	}

	s.logger.Info("daily provider key reset complete", "keys_reset", affected)
}

func (s *Scheduler) Stop() {
	s.c.Stop()
}
