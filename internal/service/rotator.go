package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pixelgate/pixelgate/internal/models"
	"github.com/pixelgate/pixelgate/internal/repository"
)

// RotatorService hands out provider credentials from the shared pool.
// Each allocation claims one request slot on the least-recently-used
// key that still has capacity; the claim is atomic against concurrent
// allocations and against the daily reset.
type RotatorService struct {
	repo    *repository.ProviderKeyRepository
	ceiling int
	logger  *slog.Logger
}

func NewRotatorService(repo *repository.ProviderKeyRepository, ceiling int, logger *slog.Logger) *RotatorService {
	return &RotatorService{
		repo:    repo,
		ceiling: ceiling,
		logger:  logger.With("component", "rotator"),
	}
}

func (s *RotatorService) AllocateCredential(ctx context.Context) (*models.ProviderKey, error) {
	key, err := s.repo.Allocate(ctx, s.ceiling)
	if err != nil {
		return nil, fmt.Errorf("allocate provider key: %w", err)
	}
	if key == nil {
		s.logger.Error("provider key pool exhausted", "ceiling", s.ceiling)
		return nil, ErrPoolExhausted
	}

	if key.RateLimited {
		s.logger.Warn("provider key reached ceiling",
			"key_suffix", key.Suffix(),
			"request_count", key.RequestCount)
	}

	return key, nil
}

func (s *RotatorService) Ceiling() int {
	return s.ceiling
}

// RemainingCapacity reports how many keys still have slots, for the
// admin status endpoint.
func (s *RotatorService) RemainingCapacity(ctx context.Context) (int64, error) {
	return s.repo.CountEligible(ctx, s.ceiling)
}
