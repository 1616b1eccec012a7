package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pixelgate/pixelgate/internal/models"
	"github.com/pixelgate/pixelgate/internal/storage"
	"gorm.io/gorm"
)

type SubscriptionRepository struct {
	db *storage.Database
}

func NewSubscriptionRepository(db *storage.Database) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	return r.db.DB.WithContext(ctx).Create(sub).Error
}

func (r *SubscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.DB.WithContext(ctx).
		Preload("Plan").
		Where("id = ?", id).
		First(&sub).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &sub, err
}

func (r *SubscriptionRepository) FindByBillingRef(ctx context.Context, ref string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.DB.WithContext(ctx).
		Preload("Plan").
		Where("billing_ref = ?", ref).
		First(&sub).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &sub, err
}

func (r *SubscriptionRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	return r.db.DB.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// ListByUser returns a user's full subscription history, newest first.
func (r *SubscriptionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.DB.WithContext(ctx).
		Preload("Plan").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&subs).Error

	return subs, err
}

func (r *SubscriptionRepository) CreatePlan(ctx context.Context, plan *models.Plan) error {
	return r.db.DB.WithContext(ctx).Create(plan).Error
}

func (r *SubscriptionRepository) FindPlanByName(ctx context.Context, name string) (*models.Plan, error) {
	var plan models.Plan
	err := r.db.DB.WithContext(ctx).
		Where("name = ?", name).
		First(&plan).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &plan, err
}

func (r *SubscriptionRepository) ListPlans(ctx context.Context) ([]models.Plan, error) {
	var plans []models.Plan
	err := r.db.DB.WithContext(ctx).
		Order("price_cents ASC").
		Find(&plans).Error

	return plans, err
}
