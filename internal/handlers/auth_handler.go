package handlers

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// IdentityGateway is the subset of identity.Gateway the auth routes use.
type IdentityGateway interface {
	Register(ctx context.Context, reg identity.Registration) (*identity.Authenticated, error)
	Login(ctx context.Context, email, password string) (*identity.Authenticated, error)
	SendOTP(ctx context.Context, target identity.OTPTarget) error
	VerifyOTP(ctx context.Context, target identity.OTPTarget, code string) (*identity.Authenticated, error)
	ResendVerification(ctx context.Context, email string) error
	Logout(ctx context.Context, token string)
}

type AuthHandler struct {
	gateway  IdentityGateway
	profiles *services.ProfileService
}

func NewAuthHandler(gateway IdentityGateway, profiles *services.ProfileService) *AuthHandler {
	return &AuthHandler{gateway: gateway, profiles: profiles}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, MsgInvalidBody)
	}

	auth, err := h.gateway.Register(c.UserContext(), identity.Registration{
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		return respondError(c, "register", err)
	}

	msg := "User registered successfully"
	if auth.Session == nil {
		msg = "User registered successfully. Please check your email to confirm your account."
	}
	return c.Status(fiber.StatusCreated).JSON(dto.AuthResponse{
		Message: msg, Session: auth.Session, User: auth.User,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, MsgInvalidBody)
	}

	auth, err := h.gateway.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, "login", err)
	}
	return c.JSON(dto.AuthResponse{
		Message: "Login successful", Session: auth.Session, User: auth.User,
	})
}

func (h *AuthHandler) SendOTP(c *fiber.Ctx) error {
	var req dto.SendOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, MsgInvalidBody)
	}

	if err := h.gateway.SendOTP(c.UserContext(), identity.OTPTarget{Email: req.Email, Phone: req.Phone}); err != nil {
		return respondError(c, "otp_send", err)
	}
	return c.JSON(dto.MessageResponse{Message: "OTP sent successfully"})
}

func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req dto.VerifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, MsgInvalidBody)
	}

	auth, err := h.gateway.VerifyOTP(c.UserContext(), identity.OTPTarget{Email: req.Email, Phone: req.Phone}, req.OTP)
	if err != nil {
		return respondError(c, "otp_verify", err)
	}
	return c.JSON(dto.AuthResponse{
		Message: "OTP verified successfully", Session: auth.Session, User: auth.User,
	})
}

func (h *AuthHandler) ResendVerification(c *fiber.Ctx) error {
	var req dto.ResendVerificationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, MsgInvalidBody)
	}

	if err := h.gateway.ResendVerification(c.UserContext(), req.Email); err != nil {
		return respondError(c, "resend_verification", err)
	}
	return c.JSON(dto.MessageResponse{Message: "Verification email sent successfully"})
}

// Logout always reports success. The client drops its token either way.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.gateway.Logout(c.UserContext(), middleware.BearerToken(c))
	return c.JSON(dto.MessageResponse{Message: "Logout successful"})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return respondError(c, "me", err)
	}

	user, err := h.profiles.GetMe(c.UserContext(), p.ID)
	if err != nil {
		return respondError(c, "me", err)
	}
	return c.JSON(dto.MeResponse{
		Message:       "User retrieved successfully",
		User:          user,
		EmailVerified: p.EmailVerified,
		PhoneVerified: p.PhoneVerified,
	})
}
