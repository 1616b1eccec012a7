package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pixelgate/pixelgate/internal/models"
	"github.com/pixelgate/pixelgate/internal/storage"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *storage.Database
}

func NewUserRepository(db *storage.Database) *UserRepository {
	return &UserRepository{db: db}
}

// Inserts a new user into the database
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.DB.WithContext(ctx).Create(user).Error
}

// Retrieves user by email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.DB.WithContext(ctx).
		Where("email = ?", email).
		First(&user).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &user, err
}

// Retrieves user by id
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		First(&user).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &user, err
}

// Retrieves all users
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.DB.WithContext(ctx).
		Order("created_at DESC").
		Find(&users).Error

	return users, err
}

// SetCurrentSubscription moves or clears the user's live subscription
// pointer. Pass nil on cancellation.
func (r *UserRepository) SetCurrentSubscription(ctx context.Context, userID uuid.UUID, subID *uuid.UUID) error {
	return r.db.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("current_subscription_id", subID).Error
}

func (r *UserRepository) UpdateStatus(ctx context.Context, userID uuid.UUID, status string) error {
	return r.db.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("status", status).Error
}
