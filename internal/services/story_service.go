package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/lifecycle"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/queue"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/repository"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/validation"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
)

const (
	MsgStoryNotFound         = "Story not found or unauthorized"
	MsgCharacterNameRequired = "character_name is required"
	MsgImageURLRequired      = "image_url is required"
	MsgValidationFailed      = "Validation failed"
	MsgInvalidChildProfile   = "Invalid child_profile_id or unauthorized access"
	MsgPDFNotFound           = "PDF not found"
	MsgAudioNotFound         = "Audio not found"
	MsgPDFUpgrade            = "Premium subscription required to download complete PDF. Please upgrade your subscription."
	MsgAudioUpgrade          = "Premium subscription required for complete audio. Free users can access preview (pages 1-2)."
	MsgAlreadyFullAccess     = "You already have full access to this story with your current subscription."
	MsgSubscriptionUpdate    = "Payment processed but subscription update failed"

	msgPreviewStatus = "Story is not ready for preview. Current status"
	msgPDFStatus     = "PDF not available. Story status"
	msgAudioStatus   = "Audio not available. Story status"
	msgUnlockStatus  = "Story must be completed before purchase. Current status"

	SegmentFull    = "full"
	SegmentPreview = "preview"

	pdfLinkLifetime = 24 * time.Hour
	unlockPeriod    = 30 * 24 * time.Hour
)

type StoryStore interface {
	Create(ctx context.Context, story *models.Story) error
	GetOwned(ctx context.Context, id, userID uuid.UUID) (*models.Story, error)
	UpdateOwned(ctx context.Context, id, userID uuid.UUID, fields map[string]interface{}) (*models.Story, error)
	SwapStatus(ctx context.Context, id, userID uuid.UUID, from, to models.StoryStatus) (bool, error)
}

type SubscriptionStore interface {
	SetSubscription(ctx context.Context, id uuid.UUID, status string, expires *time.Time) (*models.User, error)
}

type TaskPublisher interface {
	PublishGeneration(ctx context.Context, task queue.GenerationTask) error
}

type StoryService struct {
	stories        StoryStore
	children       ChildStore
	users          SubscriptionStore
	publisher      TaskPublisher
	payments       PaymentProcessor
	moderation     *ModerationService
	publishTimeout time.Duration
	now            func() time.Time
}

type StoryDeps struct {
	Stories        StoryStore
	Children       ChildStore
	Users          SubscriptionStore
	Publisher      TaskPublisher
	Payments       PaymentProcessor
	Moderation     *ModerationService
	PublishTimeout time.Duration
}

func NewStoryService(d StoryDeps) *StoryService {
	if d.Payments == nil {
		d.Payments = StubPayments{}
	}
	if d.Moderation == nil {
		d.Moderation = NewModerationService()
	}
	if d.PublishTimeout <= 0 {
		d.PublishTimeout = 5 * time.Second
	}
	return &StoryService{
		stories:        d.Stories,
		children:       d.Children,
		users:          d.Users,
		publisher:      d.Publisher,
		payments:       d.Payments,
		moderation:     d.Moderation,
		publishTimeout: d.PublishTimeout,
		now:            time.Now,
	}
}

func (s *StoryService) CreateStory(ctx context.Context, p *identity.Principal, req *dto.CreateStoryRequest) (*dto.StoryView, error) {
	if strings.TrimSpace(req.CharacterName) == "" {
		return nil, apperr.Validation(MsgCharacterNameRequired)
	}
	result := validation.ValidateStoryData(validation.StoryData{
		CharacterName:  req.CharacterName,
		CharacterType:  req.CharacterType,
		CharacterStyle: req.CharacterStyle,
		StoryWorld:     req.StoryWorld,
		AdventureType:  req.AdventureType,
	})
	if !result.Valid {
		return nil, apperr.Validation(MsgValidationFailed, result.Errors...)
	}
	if err := s.moderation.CheckFields(TextField{Name: "special_ability", Value: optional(req.SpecialAbility)}); err != nil {
		return nil, err
	}

	if req.ChildProfileID != nil {
		if _, err := s.children.GetOwned(ctx, *req.ChildProfileID, p.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperr.Validation(MsgInvalidChildProfile)
			}
			return nil, apperr.Persistence("Failed to verify child profile", err)
		}
	}

	story := &models.Story{
		UserID:         p.ID,
		ChildProfileID: req.ChildProfileID,
		CharacterName:  strings.TrimSpace(req.CharacterName),
		CharacterType:  optional(req.CharacterType),
		SpecialAbility: optional(req.SpecialAbility),
		CharacterStyle: optional(req.CharacterStyle),
		StoryWorld:     optional(req.StoryWorld),
		AdventureType:  optional(req.AdventureType),
		Status:         models.StatusDraft,
	}
	if err := s.stories.Create(ctx, story); err != nil {
		return nil, apperr.Persistence("Failed to create story", err)
	}
	slog.Info("story created", "action", "story_create", "user_id", p.ID.String(), "story_id", story.ID.String())
	return project(story, p.SubscriptionStatus), nil
}

// UploadCharacterImage records the source image and restarts character
// processing. It applies from any status.
func (s *StoryService) UploadCharacterImage(ctx context.Context, p *identity.Principal, storyID uuid.UUID, imageURL string) (*dto.StoryView, error) {
	if strings.TrimSpace(imageURL) == "" {
		return nil, apperr.Validation(MsgImageURLRequired)
	}
	story, err := s.owned(ctx, storyID, p.ID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.ValidateTransition(story.Status, models.StatusProcessingCharacter); err != nil {
		return nil, err
	}
	return s.update(ctx, p, storyID, map[string]interface{}{
		"original_image_url": imageURL,
		"status":             models.StatusProcessingCharacter,
	}, "Failed to upload character image")
}

func (s *StoryService) UpdateCharacter(ctx context.Context, p *identity.Principal, storyID uuid.UUID, req *dto.UpdateCharacterRequest) (*dto.StoryView, error) {
	fields := map[string]interface{}{}

	if req.CharacterName != nil {
		if !validation.CharacterName(*req.CharacterName) {
			return nil, apperr.Validation(validation.MsgCharacterName)
		}
		fields["character_name"] = strings.TrimSpace(*req.CharacterName)
	}
	if req.CharacterType != nil {
		if r := validation.ValidateStoryData(validation.StoryData{CharacterType: *req.CharacterType}); !r.Valid {
			return nil, apperr.Validation(MsgValidationFailed, r.Errors...)
		}
		fields["character_type"] = optional(*req.CharacterType)
	}
	if req.SpecialAbility != nil {
		if err := s.moderation.CheckFields(TextField{Name: "special_ability", Value: req.SpecialAbility}); err != nil {
			return nil, err
		}
		fields["special_ability"] = optional(*req.SpecialAbility)
	}
	if req.CharacterStyle != nil {
		if r := validation.ValidateStoryData(validation.StoryData{CharacterStyle: *req.CharacterStyle}); !r.Valid {
			return nil, apperr.Validation(MsgValidationFailed, r.Errors...)
		}
		fields["character_style"] = optional(*req.CharacterStyle)
	}
	if len(fields) == 0 {
		return nil, apperr.NoOp(MsgNoFieldsToUpdate)
	}

	if _, err := s.owned(ctx, storyID, p.ID); err != nil {
		return nil, err
	}
	return s.update(ctx, p, storyID, fields, "Failed to update character details")
}

func (s *StoryService) UpdateStoryConfig(ctx context.Context, p *identity.Principal, storyID uuid.UUID, req *dto.UpdateStoryConfigRequest) (*dto.StoryView, error) {
	fields := map[string]interface{}{}

	if req.StoryWorld != nil {
		if r := validation.ValidateStoryData(validation.StoryData{StoryWorld: *req.StoryWorld}); !r.Valid {
			return nil, apperr.Validation(MsgValidationFailed, r.Errors...)
		}
		fields["story_world"] = optional(*req.StoryWorld)
	}
	if req.AdventureType != nil {
		if r := validation.ValidateStoryData(validation.StoryData{AdventureType: *req.AdventureType}); !r.Valid {
			return nil, apperr.Validation(MsgValidationFailed, r.Errors...)
		}
		fields["adventure_type"] = optional(*req.AdventureType)
	}
	if req.StoryTitle != nil {
		title := strings.TrimSpace(*req.StoryTitle)
		if title != "" && !validation.StoryTitle(title) {
			return nil, apperr.Validation(validation.MsgStoryTitle)
		}
		fields["story_title"] = optional(title)
	}
	if err := s.moderation.CheckFields(
		TextField{Name: "special_message", Value: req.SpecialMessage},
		TextField{Name: "cover_design", Value: req.CoverDesign},
	); err != nil {
		return nil, err
	}
	if req.SpecialMessage != nil {
		fields["special_message"] = optional(*req.SpecialMessage)
	}
	if req.CoverDesign != nil {
		fields["cover_design"] = optional(*req.CoverDesign)
	}
	if len(fields) == 0 {
		return nil, apperr.NoOp(MsgNoFieldsToUpdate)
	}

	if _, err := s.owned(ctx, storyID, p.ID); err != nil {
		return nil, err
	}
	return s.update(ctx, p, storyID, fields, "Failed to update story configuration")
}

// GenerateStory moves the story into the pipeline. The status change is a
// compare-and-swap on the status that was read, so of two concurrent calls
// exactly one succeeds. The task is published after the swap; a publish
// failure is logged and does not undo it.
func (s *StoryService) GenerateStory(ctx context.Context, p *identity.Principal, storyID uuid.UUID) (*dto.StoryView, error) {
	story, err := s.owned(ctx, storyID, p.ID)
	if err != nil {
		return nil, err
	}
	target, err := lifecycle.GenerationTarget(story)
	if err != nil {
		return nil, err
	}

	swapped, err := s.stories.SwapStatus(ctx, storyID, p.ID, story.Status, target)
	if err != nil {
		return nil, apperr.Persistence("Failed to start story generation", err)
	}
	if !swapped {
		return nil, apperr.Conflict(lifecycle.MsgGenerationRunning)
	}
	story.Status = target
	story.UpdatedAt = s.now()

	s.publishGeneration(ctx, story)
	return project(story, p.SubscriptionStatus), nil
}

func (s *StoryService) publishGeneration(ctx context.Context, story *models.Story) {
	task := queue.GenerationTask{
		TaskID:         uuid.New(),
		StoryID:        story.ID,
		UserID:         story.UserID,
		Stage:          string(story.Status),
		CharacterName:  story.CharacterName,
		CharacterType:  deref(story.CharacterType),
		CharacterStyle: deref(story.CharacterStyle),
		SpecialAbility: deref(story.SpecialAbility),
		StoryWorld:     deref(story.StoryWorld),
		AdventureType:  deref(story.AdventureType),
		RequestedAt:    s.now(),
	}
	if story.HasImage() {
		task.ImageURL = *story.OriginalImageURL
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	if err := s.publisher.PublishGeneration(pubCtx, task); err != nil {
		slog.Error("failed to publish generation task",
			"action", "story_generate",
			"story_id", story.ID.String(),
			"user_id", story.UserID.String(),
			"error", err,
		)
		sentry.CaptureException(err)
	}
}

func (s *StoryService) GetStoryPreview(ctx context.Context, p *identity.Principal, storyID uuid.UUID) (*dto.StoryPreview, error) {
	story, err := s.owned(ctx, storyID, p.ID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.RequireCompleted(story, msgPreviewStatus); err != nil {
		return nil, err
	}

	full := lifecycle.FullAccess(p.SubscriptionStatus)
	preview := &dto.StoryPreview{
		ID:               story.ID,
		CharacterName:    story.CharacterName,
		CharacterType:    story.CharacterType,
		CharacterStyle:   story.CharacterStyle,
		StoryWorld:       story.StoryWorld,
		AdventureType:    story.AdventureType,
		StoryTitle:       story.StoryTitle,
		SpecialMessage:   story.SpecialMessage,
		ConsistencyScore: story.ConsistencyScore,
		UserAccessLevel:  lifecycle.AccessLevel(p.SubscriptionStatus),
		CreatedAt:        story.CreatedAt,
		UpdatedAt:        story.UpdatedAt,
	}
	if content := story.StoryContent.Data(); !content.Empty() {
		filtered := lifecycle.FilterContent(content, full)
		preview.StoryContent = &filtered
	}
	if scenes := story.SceneImages.Data(); !scenes.Empty() {
		filtered := lifecycle.FilterScenes(scenes, full)
		preview.SceneImages = &filtered
		if preview.ConsistencyScore == nil {
			preview.ConsistencyScore = scenes.AverageConsistency()
		}
	}
	return preview, nil
}

func (s *StoryService) DownloadPDF(ctx context.Context, p *identity.Principal, storyID uuid.UUID) (string, time.Time, error) {
	story, err := s.owned(ctx, storyID, p.ID)
	if err != nil {
		return "", time.Time{}, err
	}
	if err := lifecycle.RequireCompleted(story, msgPDFStatus); err != nil {
		return "", time.Time{}, err
	}
	if story.PDFURL == nil || *story.PDFURL == "" {
		return "", time.Time{}, apperr.NotFound(MsgPDFNotFound)
	}
	if !lifecycle.FullAccess(p.SubscriptionStatus) {
		return "", time.Time{}, apperr.Forbidden(MsgPDFUpgrade, map[string]any{"upgrade_required": true})
	}
	return *story.PDFURL, s.now().Add(pdfLinkLifetime), nil
}

// GetAudio returns the narration. Any segment other than "full" is served
// as the preview.
func (s *StoryService) GetAudio(ctx context.Context, p *identity.Principal, storyID uuid.UUID, segment string) (*dto.AudioStream, error) {
	story, err := s.owned(ctx, storyID, p.ID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.RequireCompleted(story, msgAudioStatus); err != nil {
		return nil, err
	}
	if story.AudioURL == nil || *story.AudioURL == "" {
		return nil, apperr.NotFound(MsgAudioNotFound)
	}

	full := lifecycle.FullAccess(p.SubscriptionStatus)
	if segment == SegmentFull && !full {
		return nil, apperr.Forbidden(MsgAudioUpgrade, map[string]any{
			"upgrade_required":  true,
			"preview_available": true,
		})
	}

	out := &dto.AudioStream{
		AudioURL:        *story.AudioURL,
		Segment:         SegmentPreview,
		UserAccessLevel: lifecycle.AccessLevel(p.SubscriptionStatus),
	}
	if segment == SegmentFull {
		out.Segment = SegmentFull
	} else {
		seconds := lifecycle.PreviewAudioSeconds
		out.DurationSeconds = &seconds
	}
	return out, nil
}

// UnlockStory charges for full access and upgrades the caller to an
// individual subscription for thirty days.
func (s *StoryService) UnlockStory(ctx context.Context, p *identity.Principal, storyID uuid.UUID, paymentMethodID string) (*models.User, error) {
	story, err := s.owned(ctx, storyID, p.ID)
	if err != nil {
		return nil, err
	}
	if lifecycle.FullAccess(p.SubscriptionStatus) {
		return nil, apperr.AlreadyGranted(MsgAlreadyFullAccess)
	}
	if err := lifecycle.RequireCompleted(story, msgUnlockStatus); err != nil {
		return nil, err
	}

	ref, err := s.payments.Capture(ctx, p.ID, paymentMethodID)
	if err != nil {
		return nil, apperr.Internal("Payment processing failed", err)
	}

	expires := s.now().Add(unlockPeriod)
	user, err := s.users.SetSubscription(ctx, p.ID, models.SubscriptionIndividual, &expires)
	if err != nil {
		slog.Error("subscription update after payment failed",
			"action", "story_unlock",
			"user_id", p.ID.String(),
			"story_id", storyID.String(),
			"payment_ref", ref,
			"error", err,
		)
		return nil, apperr.Persistence(MsgSubscriptionUpdate, err)
	}
	slog.Info("story unlocked", "action", "story_unlock", "user_id", p.ID.String(), "story_id", storyID.String())
	return user, nil
}

func (s *StoryService) owned(ctx context.Context, storyID, userID uuid.UUID) (*models.Story, error) {
	story, err := s.stories.GetOwned(ctx, storyID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound(MsgStoryNotFound)
	}
	if err != nil {
		return nil, apperr.Persistence("Failed to fetch story", err)
	}
	return story, nil
}

func (s *StoryService) update(ctx context.Context, p *identity.Principal, storyID uuid.UUID, fields map[string]interface{}, failMsg string) (*dto.StoryView, error) {
	story, err := s.stories.UpdateOwned(ctx, storyID, p.ID, fields)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound(MsgStoryNotFound)
	}
	if err != nil {
		return nil, apperr.Persistence(failMsg, err)
	}
	return project(story, p.SubscriptionStatus), nil
}

// project narrows a stored story to what the given subscription may read.
// Every story returned to a client goes through here.
func project(story *models.Story, subscription string) *dto.StoryView {
	full := lifecycle.FullAccess(subscription)
	view := &dto.StoryView{
		ID:               story.ID,
		UserID:           story.UserID,
		ChildProfileID:   story.ChildProfileID,
		CharacterName:    story.CharacterName,
		CharacterType:    story.CharacterType,
		SpecialAbility:   story.SpecialAbility,
		CharacterStyle:   story.CharacterStyle,
		StoryWorld:       story.StoryWorld,
		AdventureType:    story.AdventureType,
		OriginalImageURL: story.OriginalImageURL,
		EnhancedImages:   story.EnhancedImages.Data(),
		StoryTitle:       story.StoryTitle,
		SpecialMessage:   story.SpecialMessage,
		CoverDesign:      story.CoverDesign,
		ConsistencyScore: story.ConsistencyScore,
		Status:           story.Status,
		UserAccessLevel:  lifecycle.AccessLevel(subscription),
		CreatedAt:        story.CreatedAt,
		UpdatedAt:        story.UpdatedAt,
	}
	if content := story.StoryContent.Data(); !content.Empty() {
		filtered := lifecycle.FilterContent(content, full)
		view.StoryContent = &filtered
	}
	if scenes := story.SceneImages.Data(); !scenes.Empty() {
		filtered := lifecycle.FilterScenes(scenes, full)
		view.SceneImages = &filtered
	}
	if full {
		view.PDFURL = story.PDFURL
		view.AudioURL = story.AudioURL
	}
	return view
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
