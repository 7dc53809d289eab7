package lifecycle

import (
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/models"
)

const (
	AccessFull = "full"
	AccessFree = "free"

	// PreviewAudioSeconds is the duration reported for preview audio. It is a
	// fixed figure, not measured from the file.
	PreviewAudioSeconds = 120
)

// FullAccess is the single entitlement check behind preview, PDF, audio and unlock.
func FullAccess(subscription string) bool {
	return subscription == models.SubscriptionIndividual || subscription == models.SubscriptionFamily
}

func AccessLevel(subscription string) string {
	if FullAccess(subscription) {
		return AccessFull
	}
	return AccessFree
}

// FilteredContent is story_content narrowed to what the reader may see.
type FilteredContent struct {
	Pages                []models.StoryPage `json:"pages"`
	TotalPages           int                `json:"total_pages"`
	EstimatedReadingTime int                `json:"estimated_reading_time"`
	HasPremiumContent    bool               `json:"has_premium_content"`
	UserAccessLevel      string             `json:"user_access_level"`
}

// FilterContent keeps pages up to FreePageLimit unless full is set.
// has_premium_content is computed over the unfiltered pages.
func FilterContent(c models.StoryContent, full bool) FilteredContent {
	out := FilteredContent{
		Pages:                make([]models.StoryPage, 0, len(c.Pages)),
		TotalPages:           c.TotalPages,
		EstimatedReadingTime: c.EstimatedReadingTime,
		UserAccessLevel:      AccessFree,
	}
	if full {
		out.UserAccessLevel = AccessFull
	}
	for _, p := range c.Pages {
		if p.IsPremium {
			out.HasPremiumContent = true
		}
		if full || p.PageNumber <= models.FreePageLimit {
			out.Pages = append(out.Pages, p)
		}
	}
	return out
}

// FilterScenes keeps scenes up to FreePageLimit unless full is set. The cover
// is always kept.
func FilterScenes(s models.SceneImages, full bool) models.SceneImages {
	out := models.SceneImages{
		Scenes:        make([]models.SceneImage, 0, len(s.Scenes)),
		CoverImageURL: s.CoverImageURL,
	}
	for _, sc := range s.Scenes {
		if full || sc.PageNumber <= models.FreePageLimit {
			out.Scenes = append(out.Scenes, sc)
		}
	}
	return out
}
