package repository

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StoryRepository struct {
	db *gorm.DB
}

func NewStoryRepository(db *gorm.DB) *StoryRepository {
	return &StoryRepository{db: db}
}

func (r *StoryRepository) Create(ctx context.Context, story *models.Story) error {
	if story.ID == uuid.Nil {
		story.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(story).Error
}

func (r *StoryRepository) GetOwned(ctx context.Context, id, userID uuid.UUID) (*models.Story, error) {
	var story models.Story
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&story).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &story, nil
}

func (r *StoryRepository) UpdateOwned(ctx context.Context, id, userID uuid.UUID, fields map[string]interface{}) (*models.Story, error) {
	fields["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).Model(&models.Story{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(fields)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetOwned(ctx, id, userID)
}

// SwapStatus moves the story from `from` to `to` only if its status is still
// `from`. It reports false when another writer changed the status first.
func (r *StoryRepository) SwapStatus(ctx context.Context, id, userID uuid.UUID, from, to models.StoryStatus) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Story{}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
