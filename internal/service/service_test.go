package service

import (
	"io"
	"log/slog"
	"testing"

	"github.com/pixelgate/pixelgate/internal/storage"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *storage.Database {
	t.Helper()

	db, err := storage.NewDatabase("sqlite", ":memory:")
	require.NoError(t, err)

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { db.Close() })

	return db
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
