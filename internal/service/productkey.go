package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/pixelgate/pixelgate/internal/models"
	"github.com/pixelgate/pixelgate/internal/repository"
)

const productKeyPrefix = "pg_"

type ProductKeyService struct {
	repo   *repository.ProductKeyRepository
	subs   *repository.SubscriptionRepository
	logger *slog.Logger
}

func NewProductKeyService(repo *repository.ProductKeyRepository, subs *repository.SubscriptionRepository, logger *slog.Logger) *ProductKeyService {
	return &ProductKeyService{
		repo:   repo,
		subs:   subs,
		logger: logger.With("component", "productkey"),
	}
}

// HashKey is the one-way mapping from a presented secret to its stored
// form. There is no salt: the input already has 256 bits of entropy.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Create issues a new key. The plaintext is returned here and nowhere
// else; only the hash and a display prefix are persisted.
func (s *ProductKeyService) Create(ctx context.Context, userID uuid.UUID, name string) (string, *models.ProductKey, error) {
	keyBytes := make([]byte, 32)
	if _, err := rand.Read(keyBytes); err != nil {
		return "", nil, fmt.Errorf("failed to generate random key: %w", err)
	}

	plaintext := productKeyPrefix + base64.URLEncoding.EncodeToString(keyBytes)

	key := &models.ProductKey{
		KeyHash:   HashKey(plaintext),
		KeyPrefix: plaintext[:len(productKeyPrefix)+8],
		Name:      name,
		UserID:    userID,
		Status:    models.ProductKeyStatusActive,
	}

	if err := s.repo.Create(ctx, key); err != nil {
		return "", nil, fmt.Errorf("failed to create product key: %w", err)
	}

	return plaintext, key, nil
}

// Authenticate resolves a presented token to its key, owning user and
// the user's current subscription (with plan). Errors follow the gate's
// taxonomy: ErrInvalidCredential, ErrRevokedCredential,
// ErrAccountSuspended.
func (s *ProductKeyService) Authenticate(ctx context.Context, token string) (*models.ProductKey, *models.User, *models.Subscription, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil, nil, ErrMissingCredential
	}

	key, err := s.repo.FindByHash(ctx, HashKey(token))
	if err != nil {
		return nil, nil, nil, err
	}
	if key == nil || key.User == nil {
		return nil, nil, nil, ErrInvalidCredential
	}

	if key.Status == models.ProductKeyStatusRevoked {
		return nil, nil, nil, ErrRevokedCredential
	}
	if key.User.Status == models.UserStatusSuspended {
		return nil, nil, nil, ErrAccountSuspended
	}

	var sub *models.Subscription
	if key.User.CurrentSubscriptionID != nil {
		sub, err = s.subs.FindByID(ctx, *key.User.CurrentSubscriptionID)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	return key, key.User, sub, nil
}

func (s *ProductKeyService) List(ctx context.Context, userID uuid.UUID) ([]models.ProductKey, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *ProductKeyService) Revoke(ctx context.Context, id, userID uuid.UUID) error {
	affected, err := s.repo.Revoke(ctx, id, userID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInvalidCredential
	}
	return nil
}

// TouchLastUsed updates the key's last-used timestamp. Best effort:
// runs off the request path, failures only reach the log.
func (s *ProductKeyService) TouchLastUsed(ctx context.Context, id uuid.UUID) {
	if err := s.repo.UpdateLastUsed(ctx, id); err != nil {
		s.logger.Warn("failed to update product key last-used", "key_id", id, "error", err)
	}
}
