package repository

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChildRepository struct {
	db *gorm.DB
}

func NewChildRepository(db *gorm.DB) *ChildRepository {
	return &ChildRepository{db: db}
}

func (r *ChildRepository) ListByParent(ctx context.Context, parentID uuid.UUID) ([]models.ChildProfile, error) {
	children := []models.ChildProfile{}
	err := r.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("created_at DESC").
		Find(&children).Error
	return children, err
}

func (r *ChildRepository) Create(ctx context.Context, child *models.ChildProfile) error {
	if child.ID == uuid.Nil {
		child.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(child).Error
}

func (r *ChildRepository) GetOwned(ctx context.Context, id, parentID uuid.UUID) (*models.ChildProfile, error) {
	var child models.ChildProfile
	err := r.db.WithContext(ctx).
		Where("id = ? AND parent_id = ?", id, parentID).
		First(&child).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &child, nil
}

// UpdateOwned applies fields only when parentID still owns the row.
func (r *ChildRepository) UpdateOwned(ctx context.Context, id, parentID uuid.UUID, fields map[string]interface{}) (*models.ChildProfile, error) {
	fields["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).Model(&models.ChildProfile{}).
		Where("id = ? AND parent_id = ?", id, parentID).
		Updates(fields)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetOwned(ctx, id, parentID)
}
