package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/repository"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/validation"
)

const (
	MsgInvalidToken       = "Invalid or expired token"
	MsgInvalidCredentials = "Invalid credentials"
	MsgInvalidOTP         = "Invalid or expired OTP"
	MsgTargetRequired     = "Email or phone is required"
	MsgVerifyRequired     = "Email/phone and OTP are required"
	MsgRegisterRequired   = "Email and password are required"
	MsgEmailRequired      = "Email is required"
	MsgProviderDown       = "Authentication service unavailable"
	MsgEmailLinked        = "Email is already linked to another account"
)

// ProfileStore reconciles provider identities with local user rows.
type ProfileStore interface {
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
	UpsertByExternalID(ctx context.Context, u *models.User) (*models.User, error)
}

// Authenticated is returned by every call that can issue a session.
type Authenticated struct {
	Session   *Session
	Principal *Principal
	User      *models.User
}

type Gateway struct {
	provider Provider
	profiles ProfileStore
}

func NewGateway(provider Provider, profiles ProfileStore) *Gateway {
	return &Gateway{provider: provider, profiles: profiles}
}

func (g *Gateway) Register(ctx context.Context, reg Registration) (*Authenticated, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	if reg.Email == "" || reg.Password == "" {
		return nil, apperr.Validation(MsgRegisterRequired)
	}
	check := validation.ValidateUserData(validation.UserData{
		Email:     reg.Email,
		Phone:     reg.Phone,
		Role:      reg.Role,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
	})
	if !check.Valid {
		return nil, apperr.Validation("Validation failed", check.Errors...)
	}

	res, err := g.provider.SignUp(ctx, reg)
	if err != nil {
		return nil, toAppError(err, apperr.KindValidation, "Registration failed")
	}
	if res.Identity.Role == "" {
		res.Identity.Role = reg.Role
	}
	return g.authenticated(ctx, res)
}

func (g *Gateway) Login(ctx context.Context, email, password string) (*Authenticated, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperr.Validation(MsgRegisterRequired)
	}
	res, err := g.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, toAppError(err, apperr.KindUnauthenticated, MsgInvalidCredentials)
	}
	return g.authenticated(ctx, res)
}

func (g *Gateway) SendOTP(ctx context.Context, target OTPTarget) error {
	target = normalize(target)
	if target.Empty() {
		return apperr.Validation(MsgTargetRequired)
	}
	if target.Email != "" && !validation.Email(target.Email) {
		return apperr.Validation(validation.MsgEmail)
	}
	if target.Email == "" && !validation.Phone(target.Phone) {
		return apperr.Validation(validation.MsgPhone)
	}
	if err := g.provider.SendOTP(ctx, target); err != nil {
		return toAppError(err, apperr.KindValidation, "Failed to send OTP")
	}
	return nil
}

// VerifyOTP exchanges a passcode for a session and makes sure exactly one
// local profile exists for the identity.
func (g *Gateway) VerifyOTP(ctx context.Context, target OTPTarget, code string) (*Authenticated, error) {
	target = normalize(target)
	code = strings.TrimSpace(code)
	if target.Empty() || code == "" {
		return nil, apperr.Validation(MsgVerifyRequired)
	}
	res, err := g.provider.VerifyOTP(ctx, target, code)
	if err != nil {
		return nil, toAppError(err, apperr.KindUnauthenticated, MsgInvalidOTP)
	}
	return g.authenticated(ctx, res)
}

func (g *Gateway) ResendVerification(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperr.Validation(MsgEmailRequired)
	}
	if err := g.provider.ResendVerification(ctx, email); err != nil {
		return toAppError(err, apperr.KindValidation, "Failed to resend verification email")
	}
	return nil
}

// Introspect resolves a bearer token to a Principal. A valid token without a
// local profile gets one created on the spot.
func (g *Gateway) Introspect(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, apperr.Unauthenticated(MsgInvalidToken, nil)
	}
	ident, err := g.provider.GetUser(ctx, token)
	if err != nil {
		var f *Failure
		if errors.As(err, &f) && f.Kind == FailureUnavailable {
			return nil, apperr.Internal(MsgProviderDown, err)
		}
		return nil, apperr.Unauthenticated(MsgInvalidToken, err)
	}

	user, err := g.profiles.GetByExternalID(ctx, ident.ExternalID)
	if errors.Is(err, repository.ErrNotFound) {
		user, err = g.reconcile(ctx, ident)
	}
	if err != nil {
		return nil, apperr.Internal("Failed to load user profile", err)
	}
	return NewPrincipal(user, ident), nil
}

// Logout never fails from the caller's point of view: discarding the token
// client-side is enough.
func (g *Gateway) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := g.provider.SignOut(ctx, token); err != nil {
		slog.Warn("identity sign out failed", "action", "logout", "error", err)
	}
}

func (g *Gateway) authenticated(ctx context.Context, res Result) (*Authenticated, error) {
	user, err := g.reconcile(ctx, res.Identity)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperr.Conflict(MsgEmailLinked)
	}
	if err != nil {
		return nil, apperr.Persistence("Failed to create user profile", err)
	}
	return &Authenticated{
		Session:   res.Session,
		Principal: NewPrincipal(user, res.Identity),
		User:      user,
	}, nil
}

func (g *Gateway) reconcile(ctx context.Context, ident Identity) (*models.User, error) {
	ext := ident.ExternalID
	role := ident.Role
	if !validation.Role(role) {
		role = models.RoleAdult
	}
	return g.profiles.UpsertByExternalID(ctx, &models.User{
		ExternalID:         &ext,
		Email:              optional(ident.Email),
		Phone:              optional(ident.Phone),
		Role:               role,
		SubscriptionStatus: models.SubscriptionFree,
	})
}

func NewPrincipal(user *models.User, ident Identity) *Principal {
	p := &Principal{
		ID:                    user.ID,
		Email:                 ident.Email,
		Phone:                 ident.Phone,
		Role:                  user.Role,
		SubscriptionStatus:    user.SubscriptionStatus,
		SubscriptionExpires:   user.SubscriptionExpires,
		ParentConsentVerified: user.ParentConsentVerified,
		EmailVerified:         ident.EmailVerified,
		PhoneVerified:         ident.PhoneVerified,
	}
	if p.Role == "" {
		p.Role = models.RoleAdult
	}
	if p.SubscriptionStatus == "" {
		p.SubscriptionStatus = models.SubscriptionFree
	}
	if p.Email == "" && user.Email != nil {
		p.Email = *user.Email
	}
	if p.Phone == "" && user.Phone != nil {
		p.Phone = *user.Phone
	}
	return p
}

// toAppError maps a provider failure onto the error taxonomy. fallback is
// the kind used for input and credential problems.
func toAppError(err error, fallback apperr.Kind, msg string) error {
	var f *Failure
	if !errors.As(err, &f) {
		return apperr.Internal(MsgProviderDown, err)
	}
	reason := msg
	if f.Reason != "" {
		reason = f.Reason
	}
	switch f.Kind {
	case FailureUnavailable:
		return apperr.Internal(MsgProviderDown, err)
	case FailureInvalidToken:
		return apperr.Unauthenticated(msg, err)
	}
	if fallback == apperr.KindUnauthenticated {
		return apperr.Unauthenticated(msg, err)
	}
	return apperr.Validation(reason)
}

func normalize(t OTPTarget) OTPTarget {
	return OTPTarget{Email: strings.TrimSpace(t.Email), Phone: strings.TrimSpace(t.Phone)}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
