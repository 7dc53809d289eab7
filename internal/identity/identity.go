// Package identity fronts the external credential provider. Callers get a
// Result or a *Failure and never see provider payloads.
package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Identity is what the provider knows about an account.
type Identity struct {
	ExternalID    string
	Email         string
	Phone         string
	EmailVerified bool
	PhoneVerified bool
	FirstName     string
	LastName      string
	Role          string
}

type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
}

// Result is a successful provider call. Session is nil when the provider
// requires confirmation before issuing one.
type Result struct {
	Session  *Session
	Identity Identity
}

type FailureKind string

const (
	FailureInvalidInput       FailureKind = "invalid_input"
	FailureInvalidCredentials FailureKind = "invalid_credentials"
	FailureInvalidToken       FailureKind = "invalid_token"
	FailureRateLimited        FailureKind = "rate_limited"
	FailureUnavailable        FailureKind = "unavailable"
)

// Failure is the only error type providers return.
type Failure struct {
	Kind   FailureKind
	Reason string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("identity %s: %s: %v", f.Kind, f.Reason, f.Err)
	}
	return fmt.Sprintf("identity %s: %s", f.Kind, f.Reason)
}

func (f *Failure) Unwrap() error { return f.Err }

func fail(kind FailureKind, reason string, err error) *Failure {
	return &Failure{Kind: kind, Reason: reason, Err: err}
}

type Registration struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role,omitempty"`
}

// OTPTarget addresses a passcode by email, or by phone when Email is empty.
type OTPTarget struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func (t OTPTarget) Empty() bool { return t.Email == "" && t.Phone == "" }

func (t OTPTarget) Value() string {
	if t.Email != "" {
		return t.Email
	}
	return t.Phone
}

// Provider is an external identity service.
type Provider interface {
	SignUp(ctx context.Context, reg Registration) (Result, error)
	SignInWithPassword(ctx context.Context, email, password string) (Result, error)
	SendOTP(ctx context.Context, target OTPTarget) error
	VerifyOTP(ctx context.Context, target OTPTarget, code string) (Result, error)
	ResendVerification(ctx context.Context, email string) error
	GetUser(ctx context.Context, accessToken string) (Identity, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Principal is the authenticated caller attached to a request. Verification
// flags come from the provider, everything else from the local profile.
type Principal struct {
	ID                    uuid.UUID  `json:"id"`
	Email                 string     `json:"email"`
	Phone                 string     `json:"phone"`
	Role                  string     `json:"role"`
	SubscriptionStatus    string     `json:"subscription_status"`
	SubscriptionExpires   *time.Time `json:"subscription_expires"`
	ParentConsentVerified bool       `json:"parent_consent_verified"`
	EmailVerified         bool       `json:"email_verified"`
	PhoneVerified         bool       `json:"phone_verified"`
}
