package dto

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/lifecycle"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/models"
	"github.com/google/uuid"
)

type CreateStoryRequest struct {
	ChildProfileID *uuid.UUID `json:"child_profile_id"`
	CharacterName  string     `json:"character_name"`
	CharacterType  string     `json:"character_type"`
	SpecialAbility string     `json:"special_ability"`
	CharacterStyle string     `json:"character_style"`
	StoryWorld     string     `json:"story_world"`
	AdventureType  string     `json:"adventure_type"`
}

type UploadImageRequest struct {
	ImageURL string `json:"image_url"`
}

// UpdateCharacterRequest fields are nil when absent from the body.
type UpdateCharacterRequest struct {
	CharacterName  *string `json:"character_name"`
	CharacterType  *string `json:"character_type"`
	SpecialAbility *string `json:"special_ability"`
	CharacterStyle *string `json:"character_style"`
}

// UpdateStoryConfigRequest fields are nil when absent. An empty story_title
// clears the stored title.
type UpdateStoryConfigRequest struct {
	StoryWorld     *string `json:"story_world"`
	AdventureType  *string `json:"adventure_type"`
	StoryTitle     *string `json:"story_title"`
	SpecialMessage *string `json:"special_message"`
	CoverDesign    *string `json:"cover_design"`
}

type UnlockRequest struct {
	PaymentMethodID string `json:"payment_method_id"`
}

// StoryView is a story as its owner may see it. Content and scenes past the
// free pages are dropped, and the PDF and audio links are omitted without
// full access.
type StoryView struct {
	ID               uuid.UUID                  `json:"id"`
	UserID           uuid.UUID                  `json:"user_id"`
	ChildProfileID   *uuid.UUID                 `json:"child_profile_id"`
	CharacterName    string                     `json:"character_name"`
	CharacterType    *string                    `json:"character_type"`
	SpecialAbility   *string                    `json:"special_ability"`
	CharacterStyle   *string                    `json:"character_style"`
	StoryWorld       *string                    `json:"story_world"`
	AdventureType    *string                    `json:"adventure_type"`
	OriginalImageURL *string                    `json:"original_image_url"`
	EnhancedImages   models.EnhancedImages      `json:"enhanced_images"`
	StoryContent     *lifecycle.FilteredContent `json:"story_content"`
	SceneImages      *models.SceneImages        `json:"scene_images"`
	StoryTitle       *string                    `json:"story_title"`
	SpecialMessage   *string                    `json:"special_message"`
	CoverDesign      *string                    `json:"cover_design"`
	PDFURL           *string                    `json:"pdf_url,omitempty"`
	AudioURL         *string                    `json:"audio_url,omitempty"`
	ConsistencyScore *float64                   `json:"consistency_score"`
	Status           models.StoryStatus         `json:"status"`
	UserAccessLevel  string                     `json:"user_access_level"`
	CreatedAt        time.Time                  `json:"created_at"`
	UpdatedAt        time.Time                  `json:"updated_at"`
}

type StoryEnvelope struct {
	Message string     `json:"message"`
	Story   *StoryView `json:"story"`
}

type StoryPreview struct {
	ID               uuid.UUID                  `json:"id"`
	CharacterName    string                     `json:"character_name"`
	CharacterType    *string                    `json:"character_type"`
	CharacterStyle   *string                    `json:"character_style"`
	StoryWorld       *string                    `json:"story_world"`
	AdventureType    *string                    `json:"adventure_type"`
	StoryTitle       *string                    `json:"story_title"`
	SpecialMessage   *string                    `json:"special_message"`
	ConsistencyScore *float64                   `json:"consistency_score"`
	StoryContent     *lifecycle.FilteredContent `json:"story_content"`
	SceneImages      *models.SceneImages        `json:"scene_images"`
	UserAccessLevel  string                     `json:"user_access_level"`
	CreatedAt        time.Time                  `json:"created_at"`
	UpdatedAt        time.Time                  `json:"updated_at"`
}

type PreviewResponse struct {
	Message string        `json:"message"`
	Story   *StoryPreview `json:"story"`
}

type PDFResponse struct {
	Message         string    `json:"message"`
	PDFURL          string    `json:"pdf_url"`
	DownloadExpires time.Time `json:"download_expires"`
}

type AudioStream struct {
	AudioURL        string `json:"audio_url"`
	Segment         string `json:"segment"`
	DurationSeconds *int   `json:"duration_seconds"`
	UserAccessLevel string `json:"user_access_level"`
}

type AudioResponse struct {
	Message string       `json:"message"`
	Audio   *AudioStream `json:"audio"`
}

type UnlockResponse struct {
	Message             string     `json:"message"`
	SubscriptionStatus  string     `json:"subscription_status"`
	SubscriptionExpires *time.Time `json:"subscription_expires"`
	StoryAccess         string     `json:"story_access"`
}
