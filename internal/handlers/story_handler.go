package handlers

import (
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/lifecycle"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type StoryHandler struct {
	stories *services.StoryService
}

func NewStoryHandler(stories *services.StoryService) *StoryHandler {
	return &StoryHandler{stories: stories}
}

func (h *StoryHandler) Create(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return respondError(c, "story_create", err)
	}

	var req dto.CreateStoryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, MsgInvalidBody)
	}

	story, err := h.stories.CreateStory(c.UserContext(), p, &req)
	if err != nil {
		return respondError(c, "story_create", err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.StoryEnvelope{
		Message: "Story created successfully", Story: story,
	})
}

func (h *StoryHandler) UploadImage(c *fiber.Ctx) error {
	p, id, err := storyTarget(c)
	if err != nil {
		return respondError(c, "story_upload", err)
	}

	var req dto.UploadImageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, MsgInvalidBody)
	}

	story, err := h.stories.UploadCharacterImage(c.UserContext(), p, id, req.ImageURL)
	if err != nil {
		return respondError(c, "story_upload", err)
	}
	return c.JSON(dto.StoryEnvelope{
		Message: "Character image uploaded successfully. Processing started.", Story: story,
	})
}

func (h *StoryHandler) UpdateCharacter(c *fiber.Ctx) error {
	p, id, err := storyTarget(c)
	if err != nil {
		return respondError(c, "story_character", err)
	}

	var req dto.UpdateCharacterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, MsgInvalidBody)
	}

	story, err := h.stories.UpdateCharacter(c.UserContext(), p, id, &req)
	if err != nil {
		return respondError(c, "story_character", err)
	}
	return c.JSON(dto.StoryEnvelope{Message: "Character details updated successfully", Story: story})
}

func (h *StoryHandler) UpdateConfig(c *fiber.Ctx) error {
	p, id, err := storyTarget(c)
	if err != nil {
		return respondError(c, "story_config", err)
	}

	var req dto.UpdateStoryConfigRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, MsgInvalidBody)
	}

	story, err := h.stories.UpdateStoryConfig(c.UserContext(), p, id, &req)
	if err != nil {
		return respondError(c, "story_config", err)
	}
	return c.JSON(dto.StoryEnvelope{Message: "Story configuration updated successfully", Story: story})
}

func (h *StoryHandler) Generate(c *fiber.Ctx) error {
	p, id, err := storyTarget(c)
	if err != nil {
		return respondError(c, "story_generate", err)
	}

	story, err := h.stories.GenerateStory(c.UserContext(), p, id)
	if err != nil {
		return respondError(c, "story_generate", err)
	}
	return c.JSON(dto.StoryEnvelope{
		Message: "Story generation started successfully. This may take several minutes.", Story: story,
	})
}

func (h *StoryHandler) Preview(c *fiber.Ctx) error {
	p, id, err := storyTarget(c)
	if err != nil {
		return respondError(c, "story_preview", err)
	}

	preview, err := h.stories.GetStoryPreview(c.UserContext(), p, id)
	if err != nil {
		return respondError(c, "story_preview", err)
	}
	return c.JSON(dto.PreviewResponse{Message: "Story preview retrieved successfully", Story: preview})
}

func (h *StoryHandler) DownloadPDF(c *fiber.Ctx) error {
	p, id, err := storyTarget(c)
	if err != nil {
		return respondError(c, "story_pdf", err)
	}

	url, expires, err := h.stories.DownloadPDF(c.UserContext(), p, id)
	if err != nil {
		return respondError(c, "story_pdf", err)
	}
	return c.JSON(dto.PDFResponse{Message: "PDF download ready", PDFURL: url, DownloadExpires: expires})
}

func (h *StoryHandler) Audio(c *fiber.Ctx) error {
	p, id, err := storyTarget(c)
	if err != nil {
		return respondError(c, "story_audio", err)
	}

	audio, err := h.stories.GetAudio(c.UserContext(), p, id, c.Query("segment", services.SegmentPreview))
	if err != nil {
		return respondError(c, "story_audio", err)
	}
	return c.JSON(dto.AudioResponse{Message: "Audio stream ready", Audio: audio})
}

func (h *StoryHandler) Unlock(c *fiber.Ctx) error {
	p, id, err := storyTarget(c)
	if err != nil {
		return respondError(c, "story_unlock", err)
	}

	var req dto.UnlockRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, MsgInvalidBody)
		}
	}

	user, err := h.stories.UnlockStory(c.UserContext(), p, id, req.PaymentMethodID)
	if err != nil {
		return respondError(c, "story_unlock", err)
	}
	return c.JSON(dto.UnlockResponse{
		Message:             "Story unlocked successfully! You now have full access.",
		SubscriptionStatus:  user.SubscriptionStatus,
		SubscriptionExpires: user.SubscriptionExpires,
		StoryAccess:         lifecycle.AccessLevel(user.SubscriptionStatus),
	})
}

func storyTarget(c *fiber.Ctx) (*identity.Principal, uuid.UUID, error) {
	p, err := principal(c)
	if err != nil {
		return nil, uuid.Nil, err
	}
	id, err := pathID(c, services.MsgStoryNotFound)
	if err != nil {
		return nil, uuid.Nil, err
	}
	return p, id, nil
}
