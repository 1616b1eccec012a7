package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/pixelgate/pixelgate/internal/models"
	"github.com/pixelgate/pixelgate/internal/repository"
	"github.com/pixelgate/pixelgate/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *repository.ProviderKeyRepository {
	t.Helper()

	db, err := storage.NewDatabase("sqlite", ":memory:")
	require.NoError(t, err)
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { db.Close() })

	return repository.NewProviderKeyRepository(db)
}

func TestRunReset(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.ProviderKey{Key: "sk-a", RequestCount: 249, RateLimited: true}))
	require.NoError(t, repo.Create(ctx, &models.ProviderKey{Key: "sk-b", RequestCount: 42}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(repo, logger)
	s.RunReset()

	keys, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	for _, k := range keys {
		assert.Equal(t, 0, k.RequestCount)
		assert.False(t, k.RateLimited)
	}
}

func TestStartStop(t *testing.T) {
	repo := newTestRepo(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s := New(repo, logger)
	require.NoError(t, s.Start(), "cron spec must be valid")
	s.Stop()
}
