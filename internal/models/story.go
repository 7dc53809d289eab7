package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// StoryStatus mirrors the generation pipeline stages.
type StoryStatus string

const (
	StatusDraft               StoryStatus = "draft"
	StatusProcessingCharacter StoryStatus = "processing_character"
	StatusExtractingFeatures  StoryStatus = "extracting_features"
	StatusGeneratingScenes    StoryStatus = "generating_scenes"
	StatusGeneratingStory     StoryStatus = "generating_story"
	StatusCompleted           StoryStatus = "completed"
	StatusFailed              StoryStatus = "failed"
)

// FreePageLimit is the last page number readable without full access.
const FreePageLimit = 2

type Story struct {
	ID                uuid.UUID                             `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID            uuid.UUID                             `gorm:"type:uuid;not null;index" json:"user_id"`
	ChildProfileID    *uuid.UUID                            `gorm:"type:uuid;index" json:"child_profile_id"`
	CharacterName     string                                `gorm:"size:100;not null" json:"character_name"`
	CharacterType     *string                               `gorm:"size:30" json:"character_type"`
	SpecialAbility    *string                               `gorm:"type:text" json:"special_ability"`
	CharacterStyle    *string                               `gorm:"size:20" json:"character_style"`
	StoryWorld        *string                               `gorm:"size:20" json:"story_world"`
	AdventureType     *string                               `gorm:"size:30" json:"adventure_type"`
	OriginalImageURL  *string                               `gorm:"size:1024" json:"original_image_url"`
	EnhancedImages    datatypes.JSONType[EnhancedImages]    `gorm:"type:jsonb;not null;default:'{}'" json:"enhanced_images"`
	CharacterFeatures datatypes.JSONType[CharacterFeatures] `gorm:"type:jsonb;not null;default:'{}'" json:"-"`
	StoryContent      datatypes.JSONType[StoryContent]      `gorm:"type:jsonb;not null;default:'{}'" json:"story_content"`
	SceneImages       datatypes.JSONType[SceneImages]       `gorm:"type:jsonb;not null;default:'{}'" json:"scene_images"`
	StoryTitle        *string                               `gorm:"size:200" json:"story_title"`
	SpecialMessage    *string                               `gorm:"type:text" json:"special_message"`
	CoverDesign       *string                               `gorm:"size:100" json:"cover_design"`
	PDFURL            *string                               `gorm:"column:pdf_url;size:1024" json:"pdf_url"`
	AudioURL          *string                               `gorm:"size:1024" json:"audio_url"`
	ConsistencyScore  *float64                              `gorm:"type:numeric(4,3)" json:"consistency_score"`
	Status            StoryStatus                           `gorm:"size:30;not null;default:'draft';index" json:"status"`
	CreatedAt         time.Time                             `json:"created_at"`
	UpdatedAt         time.Time                             `json:"updated_at"`
	User              User                                  `gorm:"foreignKey:UserID" json:"-"`
}

func (Story) TableName() string {
	return "stories"
}

// HasImage reports whether a source character image was uploaded.
func (s *Story) HasImage() bool {
	return s.OriginalImageURL != nil && *s.OriginalImageURL != ""
}

// EnhancedImages holds storage URLs per enhancement level.
type EnhancedImages struct {
	Minimal string `json:"minimal,omitempty"`
	Normal  string `json:"normal,omitempty"`
	High    string `json:"high,omitempty"`
}

// CharacterFeatures are the embeddings the pipeline uses for visual consistency.
type CharacterFeatures struct {
	ClipFeatures      []float64      `json:"clip_features,omitempty"`
	IPAdapterFeatures map[string]any `json:"ip_adapter_features,omitempty"`
	ConsistencyTokens []string       `json:"consistency_tokens,omitempty"`
}

type StoryPage struct {
	PageNumber       int    `json:"page_number"`
	Title            string `json:"title"`
	Content          string `json:"content"`
	SceneDescription string `json:"scene_description"`
	IsPremium        bool   `json:"is_premium"`
}

type StoryContent struct {
	Pages                []StoryPage `json:"pages"`
	TotalPages           int         `json:"total_pages"`
	EstimatedReadingTime int         `json:"estimated_reading_time"`
}

// Empty reports whether the pipeline has written any content yet.
func (c StoryContent) Empty() bool {
	return len(c.Pages) == 0 && c.TotalPages == 0
}

type SceneImage struct {
	PageNumber       int            `json:"page_number"`
	ImageURL         string         `json:"image_url"`
	ConsistencyScore float64        `json:"consistency_score"`
	GenerationParams map[string]any `json:"generation_params,omitempty"`
	IsPremium        bool           `json:"is_premium"`
}

type SceneImages struct {
	Scenes        []SceneImage `json:"scenes"`
	CoverImageURL string       `json:"cover_image_url"`
}

func (s SceneImages) Empty() bool {
	return len(s.Scenes) == 0 && s.CoverImageURL == ""
}

// AverageConsistency is the mean consistency score across scenes, or nil
// when there are no scenes.
func (s SceneImages) AverageConsistency() *float64 {
	if len(s.Scenes) == 0 {
		return nil
	}
	var sum float64
	for _, sc := range s.Scenes {
		sum += sc.ConsistencyScore
	}
	avg := sum / float64(len(s.Scenes))
	return &avg
}
