package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrDuplicate = errors.New("record already exists")

// CredentialRepository stores accounts and passcodes for the local identity provider.
type CredentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) Create(ctx context.Context, c *models.Credential) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Create(c).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

// Delete removes an account that never completed registration.
func (r *CredentialRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Credential{}).Error
}

func (r *CredentialRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Credential, error) {
	var c models.Credential
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// FindByEmailOrPhone looks up by email when given, otherwise by phone.
func (r *CredentialRepository) FindByEmailOrPhone(ctx context.Context, email, phone string) (*models.Credential, error) {
	q := r.db.WithContext(ctx)
	if email != "" {
		q = q.Where("email = ?", email)
	} else {
		q = q.Where("phone = ?", phone)
	}
	var c models.Credential
	if err := q.First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *CredentialRepository) Confirm(ctx context.Context, id uuid.UUID, column string, at time.Time) error {
	if column != "email_confirmed_at" && column != "phone_confirmed_at" {
		return errors.New("unknown confirmation column")
	}
	return r.db.WithContext(ctx).Model(&models.Credential{}).
		Where("id = ? AND "+column+" IS NULL", id).
		Update(column, at).Error
}

func (r *CredentialRepository) SaveOTP(ctx context.Context, otp *models.OTPCode) error {
	if otp.ID == uuid.Nil {
		otp.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(otp).Error
}

// ActiveOTPs returns the unexpired codes for target, newest first.
func (r *CredentialRepository) ActiveOTPs(ctx context.Context, target string, now time.Time) ([]models.OTPCode, error) {
	var codes []models.OTPCode
	err := r.db.WithContext(ctx).
		Where("target = ? AND expires_at > ?", target, now).
		Order("created_at DESC").
		Limit(5).
		Find(&codes).Error
	return codes, err
}

// ConsumeOTP deletes the code and reports whether this call was the one that
// removed it.
func (r *CredentialRepository) ConsumeOTP(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.OTPCode{})
	return result.RowsAffected == 1, result.Error
}

// PurgeExpiredOTPs removes codes that expired before now.
func (r *CredentialRepository) PurgeExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.OTPCode{})
	return result.RowsAffected, result.Error
}
