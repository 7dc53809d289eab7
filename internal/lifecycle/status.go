// Package lifecycle owns the story status machine and premium content gating.
// Every status mutation in the service layer goes through ValidateTransition.
package lifecycle

import (
	"fmt"

	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/models"
)

const (
	MsgMissingFields     = "Story is missing required fields. Please complete character_name, character_type, story_world, and adventure_type first."
	MsgGenerationRunning = "Story generation is already in progress"
	MsgAlreadyGenerated  = "Story has already been generated"
)

// transitions lists the statuses reachable from each status. Upload into
// processing_character is allowed from anywhere and handled separately.
var transitions = map[models.StoryStatus][]models.StoryStatus{
	models.StatusDraft: {
		models.StatusExtractingFeatures,
		models.StatusGeneratingScenes,
		models.StatusFailed,
	},
	models.StatusProcessingCharacter: {
		models.StatusExtractingFeatures,
		models.StatusGeneratingScenes,
		models.StatusFailed,
	},
	models.StatusExtractingFeatures: {
		models.StatusExtractingFeatures,
		models.StatusGeneratingScenes,
		models.StatusFailed,
	},
	models.StatusGeneratingScenes: {
		models.StatusGeneratingStory,
		models.StatusFailed,
	},
	models.StatusGeneratingStory: {
		models.StatusCompleted,
		models.StatusFailed,
	},
	models.StatusFailed: {
		models.StatusExtractingFeatures,
		models.StatusGeneratingScenes,
	},
	models.StatusCompleted: {},
}

// ValidateTransition returns a Conflict error when from → to is not a legal move.
func ValidateTransition(from, to models.StoryStatus) error {
	if _, ok := transitions[from]; !ok {
		return apperr.Validation(fmt.Sprintf("Unknown story status: %s", from))
	}
	if to == models.StatusProcessingCharacter {
		return nil
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	switch from {
	case models.StatusGeneratingScenes, models.StatusGeneratingStory:
		return apperr.Conflict(MsgGenerationRunning)
	case models.StatusCompleted:
		return apperr.Conflict(MsgAlreadyGenerated)
	}
	return apperr.Conflict(fmt.Sprintf("Cannot move story from %s to %s", from, to))
}

// MissingGenerationFields lists the descriptor fields generate still needs.
func MissingGenerationFields(s *models.Story) []string {
	var missing []string
	if s.CharacterName == "" {
		missing = append(missing, "character_name")
	}
	if empty(s.CharacterType) {
		missing = append(missing, "character_type")
	}
	if empty(s.StoryWorld) {
		missing = append(missing, "story_world")
	}
	if empty(s.AdventureType) {
		missing = append(missing, "adventure_type")
	}
	return missing
}

// GenerationTarget checks the generate preconditions against the observed
// story and returns the status to swap to.
func GenerationTarget(s *models.Story) (models.StoryStatus, error) {
	if missing := MissingGenerationFields(s); len(missing) > 0 {
		return "", apperr.Validation(MsgMissingFields, missing...)
	}

	to := models.StatusGeneratingScenes
	if s.HasImage() {
		to = models.StatusExtractingFeatures
	}
	if err := ValidateTransition(s.Status, to); err != nil {
		return "", err
	}
	return to, nil
}

// RequireCompleted fails with InvalidState unless the story finished generating.
// prefix is the client message lead, e.g. "PDF not available. Story status".
func RequireCompleted(s *models.Story, prefix string) error {
	if s.Status != models.StatusCompleted {
		return apperr.InvalidState(fmt.Sprintf("%s: %s", prefix, s.Status))
	}
	return nil
}

func empty(p *string) bool {
	return p == nil || *p == ""
}
