package dto

import (
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/models"
)

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SendOTPRequest struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type VerifyOTPRequest struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	OTP   string `json:"otp"`
}

type ResendVerificationRequest struct {
	Email string `json:"email"`
}

type AuthResponse struct {
	Message string            `json:"message"`
	Session *identity.Session `json:"session"`
	User    *models.User      `json:"user"`
}

type MeResponse struct {
	Message       string       `json:"message"`
	User          *models.User `json:"user"`
	EmailVerified bool         `json:"email_verified"`
	PhoneVerified bool         `json:"phone_verified"`
}

type ErrorResponse struct {
	Error   bool     `json:"error"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}
