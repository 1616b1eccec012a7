package middleware

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pixelgate/pixelgate/internal/models"
	"github.com/pixelgate/pixelgate/internal/repository"
	"github.com/pixelgate/pixelgate/internal/service"
	"github.com/pixelgate/pixelgate/internal/storage"
	"github.com/pixelgate/pixelgate/internal/usage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gateFixture struct {
	router   *gin.Engine
	recorder *usage.Recorder
	db       *storage.Database
	users    *repository.UserRepository
	usageLog *repository.UsageLogRepository
	keys     *service.ProductKeyService
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := storage.NewDatabase("sqlite", ":memory:")
	require.NoError(t, err)
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	usageRepo := repository.NewUsageLogRepository(db)
	keys := service.NewProductKeyService(
		repository.NewProductKeyRepository(db),
		repository.NewSubscriptionRepository(db),
		logger,
	)
	quota := service.NewQuotaService(usageRepo, 5, 30)
	recorder := usage.NewRecorder(usageRepo, 100, logger)

	router := gin.New()
	router.POST("/v1/images/generations",
		UsageLogger(recorder),
		QuotaGate(keys, quota),
		func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"created": true})
		},
	)

	return &gateFixture{
		router:   router,
		recorder: recorder,
		db:       db,
		users:    repository.NewUserRepository(db),
		usageLog: usageRepo,
		keys:     keys,
	}
}

func (f *gateFixture) do(authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/images/generations", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *gateFixture) ledgerCount(t *testing.T, user *models.User) int64 {
	t.Helper()
	f.recorder.Close()
	count, err := f.usageLog.CountByUserSince(context.Background(), user.ID, time.Time{})
	require.NoError(t, err)
	return count
}

func (f *gateFixture) createUser(t *testing.T, email string) (*models.User, string) {
	t.Helper()
	user := &models.User{Email: email, PasswordHash: "x", Status: models.UserStatusActive}
	require.NoError(t, f.users.Create(context.Background(), user))

	plaintext, _, err := f.keys.Create(context.Background(), user.ID, "test")
	require.NoError(t, err)
	return user, plaintext
}

func TestQuotaGateMissingCredential(t *testing.T) {
	f := newGateFixture(t)
	user, _ := f.createUser(t, "gate@example.com")

	w := f.do("")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do("Basic abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Rejections before user resolution leave no trace in the ledger.
	assert.Equal(t, int64(0), f.ledgerCount(t, user))
}

func TestQuotaGateInvalidCredential(t *testing.T) {
	f := newGateFixture(t)
	user, _ := f.createUser(t, "gate@example.com")

	w := f.do("Bearer pg_not-a-real-key")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, int64(0), f.ledgerCount(t, user))
}

func TestQuotaGateRevokedCredential(t *testing.T) {
	f := newGateFixture(t)
	user, token := f.createUser(t, "gate@example.com")

	keyList, err := f.keys.List(context.Background(), user.ID)
	require.NoError(t, err)
	require.NoError(t, f.keys.Revoke(context.Background(), keyList[0].ID, user.ID))

	w := f.do("Bearer " + token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, int64(0), f.ledgerCount(t, user))
}

func TestQuotaGateSuspendedAccount(t *testing.T) {
	f := newGateFixture(t)
	user, token := f.createUser(t, "gate@example.com")
	require.NoError(t, f.users.UpdateStatus(context.Background(), user.ID, models.UserStatusSuspended))

	w := f.do("Bearer " + token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, int64(0), f.ledgerCount(t, user))
}

func TestQuotaGateAdmitsAndLogs(t *testing.T) {
	f := newGateFixture(t)
	user, token := f.createUser(t, "gate@example.com")

	w := f.do("Bearer " + token)
	assert.Equal(t, http.StatusOK, w.Code)

	// Exactly one ledger entry, written after the response.
	assert.Equal(t, int64(1), f.ledgerCount(t, user))
}

func TestQuotaGateExceeded(t *testing.T) {
	f := newGateFixture(t)
	user, token := f.createUser(t, "gate@example.com")

	// Burn the whole free tier up front.
	entries := make([]models.UsageLog, 5)
	for i := range entries {
		entries[i] = models.UsageLog{
			Timestamp:    time.Now().UTC().Add(-time.Hour),
			UserID:       user.ID,
			ProductKeyID: user.ID,
			Credits:      1,
		}
	}
	require.NoError(t, f.usageLog.CreateBatch(context.Background(), entries))

	w := f.do("Bearer " + token)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var body struct {
		Error string `json:"error"`
		Limit int    `json:"limit"`
		Used  int64  `json:"used"`
		Plan  string `json:"plan"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "quota exceeded", body.Error)
	assert.Equal(t, 5, body.Limit)
	assert.Equal(t, int64(5), body.Used)
	assert.Equal(t, service.FreeTierPlanName, body.Plan)

	// The user was resolved, so even the 429 lands in the ledger.
	assert.Equal(t, int64(6), f.ledgerCount(t, user))
}
