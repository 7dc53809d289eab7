package handlers

import (
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	profiles *services.ProfileService
}

func NewUserHandler(profiles *services.ProfileService) *UserHandler {
	return &UserHandler{profiles: profiles}
}

// RecordConsent accepts only a JSON boolean. A body that fails to decode
// into one gets the same validation error as a missing value.
func (h *UserHandler) RecordConsent(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return respondError(c, "consent", err)
	}

	var req dto.ConsentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, services.MsgConsentRequired)
	}

	user, err := h.profiles.RecordConsent(c.UserContext(), p.ID, req.Consented)
	if err != nil {
		return respondError(c, "consent", err)
	}
	return c.JSON(dto.UserEnvelope{Message: "Consent recorded successfully", User: user})
}

func (h *UserHandler) ListChildren(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return respondError(c, "children_list", err)
	}

	children, err := h.profiles.ListChildren(c.UserContext(), p.ID)
	if err != nil {
		return respondError(c, "children_list", err)
	}
	return c.JSON(dto.ChildrenResponse{Message: "Child profiles retrieved successfully", Children: children})
}

func (h *UserHandler) CreateChild(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return respondError(c, "child_create", err)
	}

	var req dto.ChildRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, MsgInvalidBody)
	}

	child, err := h.profiles.CreateChild(c.UserContext(), p.ID, &req)
	if err != nil {
		return respondError(c, "child_create", err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ChildEnvelope{
		Message: "Child profile created successfully", Child: child,
	})
}

func (h *UserHandler) UpdateChild(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return respondError(c, "child_update", err)
	}
	childID, err := pathID(c, services.MsgChildNotFound)
	if err != nil {
		return respondError(c, "child_update", err)
	}

	var req dto.ChildRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, MsgInvalidBody)
	}

	child, err := h.profiles.UpdateChild(c.UserContext(), p.ID, childID, &req)
	if err != nil {
		return respondError(c, "child_update", err)
	}
	return c.JSON(dto.ChildEnvelope{Message: "Child profile updated successfully", Child: child})
}
