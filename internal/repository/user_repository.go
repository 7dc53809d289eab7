package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *UserRepository) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "external_id = ?", externalID).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// UpsertByExternalID inserts u unless a row with the same external id (or
// email) already exists, then returns the stored row. Safe to call on every
// login or OTP verification.
func (r *UserRepository) UpsertByExternalID(ctx context.Context, u *models.User) (*models.User, error) {
	if u.ExternalID == nil || *u.ExternalID == "" {
		return nil, fmt.Errorf("upsert user: external id is required")
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = models.RoleAdult
	}
	if u.SubscriptionStatus == "" {
		u.SubscriptionStatus = models.SubscriptionFree
	}

	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(u).Error; err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	stored, err := r.GetByExternalID(ctx, *u.ExternalID)
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, ErrNotFound) || u.Email == nil {
		return nil, err
	}

	// An older row owns the email but predates the external link.
	var byEmail models.User
	if err := db.First(&byEmail, "email = ?", *u.Email).Error; err != nil {
		return nil, notFound(err)
	}
	result := db.Model(&byEmail).Where("external_id IS NULL").Update("external_id", *u.ExternalID)
	if result.Error != nil {
		return nil, fmt.Errorf("link external id: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("link external id: email is linked to another identity: %w", ErrDuplicate)
	}
	return &byEmail, nil
}

func (r *UserRepository) SetConsent(ctx context.Context, id uuid.UUID, consent bool) (*models.User, error) {
	return r.update(ctx, id, map[string]interface{}{
		"parent_consent_verified": consent,
	})
}

func (r *UserRepository) SetSubscription(ctx context.Context, id uuid.UUID, status string, expires *time.Time) (*models.User, error) {
	return r.update(ctx, id, map[string]interface{}{
		"subscription_status":  status,
		"subscription_expires": expires,
	})
}

// DowngradeExpired moves paid users whose subscription ran out back to free.
func (r *UserRepository) DowngradeExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("subscription_status <> ? AND subscription_expires IS NOT NULL AND subscription_expires < ?", models.SubscriptionFree, now).
		Updates(map[string]interface{}{
			"subscription_status": models.SubscriptionFree,
			"updated_at":          now,
		})
	return result.RowsAffected, result.Error
}

func (r *UserRepository) update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*models.User, error) {
	fields["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}
