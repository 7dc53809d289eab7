package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"time"

	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/queue"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	localIssuer       = "drawtopia"
)

type CredentialStore interface {
	Create(ctx context.Context, c *models.Credential) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Credential, error)
	FindByEmailOrPhone(ctx context.Context, email, phone string) (*models.Credential, error)
	Confirm(ctx context.Context, id uuid.UUID, column string, at time.Time) error
	SaveOTP(ctx context.Context, otp *models.OTPCode) error
	ActiveOTPs(ctx context.Context, target string, now time.Time) ([]models.OTPCode, error)
	ConsumeOTP(ctx context.Context, id uuid.UUID) (bool, error)
}

// Notifier delivers passcodes. Codes never appear in API responses.
type Notifier interface {
	PublishNotification(ctx context.Context, n queue.Notification) error
}

type LocalConfig struct {
	Secret       string
	AccessExpiry time.Duration
	OTPTTL       time.Duration
}

// LocalProvider is a self-hosted identity provider: bcrypt passwords,
// hashed single-use passcodes and HS256 access tokens.
type LocalProvider struct {
	store        CredentialStore
	notifier     Notifier
	revoker      Revoker
	secret       []byte
	accessExpiry time.Duration
	otpTTL       time.Duration
	now          func() time.Time
}

type accessClaims struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	jwt.RegisteredClaims
}

func NewLocalProvider(store CredentialStore, notifier Notifier, revoker Revoker, cfg LocalConfig) (*LocalProvider, error) {
	if cfg.Secret == "" {
		return nil, errors.New("local identity provider requires a signing secret")
	}
	if revoker == nil {
		revoker = NoopRevoker{}
	}
	if cfg.AccessExpiry <= 0 {
		cfg.AccessExpiry = 7 * 24 * time.Hour
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 10 * time.Minute
	}
	return &LocalProvider{
		store:        store,
		notifier:     notifier,
		revoker:      revoker,
		secret:       []byte(cfg.Secret),
		accessExpiry: cfg.AccessExpiry,
		otpTTL:       cfg.OTPTTL,
		now:          time.Now,
	}, nil
}

func (p *LocalProvider) SignUp(ctx context.Context, reg Registration) (Result, error) {
	if len(reg.Password) < minPasswordLength {
		return Result{}, fail(FailureInvalidInput, "Password must be at least 8 characters", nil)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return Result{}, fail(FailureUnavailable, "failed to hash password", err)
	}

	cred := &models.Credential{
		Email:        &reg.Email,
		PasswordHash: string(hash),
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		Role:         reg.Role,
	}
	if reg.Phone != "" {
		cred.Phone = &reg.Phone
	}
	if err := p.store.Create(ctx, cred); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return Result{}, fail(FailureInvalidInput, "Email already registered", err)
		}
		return Result{}, fail(FailureUnavailable, "failed to create account", err)
	}

	if err := p.issueOTP(ctx, OTPTarget{Email: reg.Email}, queue.TemplateVerify); err != nil {
		// Roll the account back so the caller can register again.
		if derr := p.store.Delete(context.WithoutCancel(ctx), cred.ID); derr != nil {
			slog.Error("failed to remove unverified account",
				"action", "signup_rollback",
				"credential_id", cred.ID.String(),
				"error", derr,
			)
		}
		return Result{}, err
	}
	return p.sessionFor(cred)
}

func (p *LocalProvider) SignInWithPassword(ctx context.Context, email, password string) (Result, error) {
	cred, err := p.store.FindByEmailOrPhone(ctx, email, "")
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Result{}, fail(FailureInvalidCredentials, "Invalid credentials", nil)
		}
		return Result{}, fail(FailureUnavailable, "credential lookup failed", err)
	}
	if cred.PasswordHash == "" {
		return Result{}, fail(FailureInvalidCredentials, "Invalid credentials", nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return Result{}, fail(FailureInvalidCredentials, "Invalid credentials", nil)
	}
	return p.sessionFor(cred)
}

func (p *LocalProvider) SendOTP(ctx context.Context, target OTPTarget) error {
	return p.issueOTP(ctx, target, queue.TemplateOTPCode)
}

// VerifyOTP consumes a matching code and signs the caller in, creating a
// passwordless account on first use.
func (p *LocalProvider) VerifyOTP(ctx context.Context, target OTPTarget, code string) (Result, error) {
	now := p.now()
	codes, err := p.store.ActiveOTPs(ctx, target.Value(), now)
	if err != nil {
		return Result{}, fail(FailureUnavailable, "otp lookup failed", err)
	}

	want := hashCode(code)
	var matched *models.OTPCode
	for i := range codes {
		if subtle.ConstantTimeCompare([]byte(codes[i].CodeHash), []byte(want)) == 1 {
			matched = &codes[i]
			break
		}
	}
	if matched == nil {
		return Result{}, fail(FailureInvalidCredentials, "Invalid or expired OTP", nil)
	}
	consumed, err := p.store.ConsumeOTP(ctx, matched.ID)
	if err != nil {
		return Result{}, fail(FailureUnavailable, "otp consume failed", err)
	}
	if !consumed {
		return Result{}, fail(FailureInvalidCredentials, "Invalid or expired OTP", nil)
	}

	cred, err := p.findOrCreate(ctx, target)
	if err != nil {
		return Result{}, err
	}
	column, at := "phone_confirmed_at", &cred.PhoneConfirmedAt
	if target.Email != "" {
		column, at = "email_confirmed_at", &cred.EmailConfirmedAt
	}
	if *at == nil {
		if err := p.store.Confirm(ctx, cred.ID, column, now); err != nil {
			return Result{}, fail(FailureUnavailable, "failed to confirm contact", err)
		}
		*at = &now
	}
	return p.sessionFor(cred)
}

// ResendVerification is silent for unknown or already confirmed emails so it
// cannot be used to probe for accounts.
func (p *LocalProvider) ResendVerification(ctx context.Context, email string) error {
	cred, err := p.store.FindByEmailOrPhone(ctx, email, "")
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fail(FailureUnavailable, "credential lookup failed", err)
	}
	if cred.EmailConfirmedAt != nil {
		return nil
	}
	return p.issueOTP(ctx, OTPTarget{Email: email}, queue.TemplateVerify)
}

func (p *LocalProvider) GetUser(ctx context.Context, accessToken string) (Identity, error) {
	claims, err := p.parse(accessToken)
	if err != nil {
		return Identity{}, err
	}
	revoked, err := p.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return Identity{}, fail(FailureUnavailable, "revocation check failed", err)
	}
	if revoked {
		return Identity{}, fail(FailureInvalidToken, "token revoked", nil)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, fail(FailureInvalidToken, "invalid subject", err)
	}
	cred, err := p.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Identity{}, fail(FailureInvalidToken, "account not found", nil)
		}
		return Identity{}, fail(FailureUnavailable, "credential lookup failed", err)
	}
	return credentialIdentity(cred), nil
}

func (p *LocalProvider) SignOut(ctx context.Context, accessToken string) error {
	claims, err := p.parse(accessToken)
	if err != nil {
		return err
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := p.revoker.Revoke(ctx, claims.ID, ttl); err != nil {
		return fail(FailureUnavailable, "failed to revoke token", err)
	}
	return nil
}

func (p *LocalProvider) issueOTP(ctx context.Context, target OTPTarget, template string) error {
	code, err := generateCode()
	if err != nil {
		return fail(FailureUnavailable, "failed to generate otp", err)
	}
	otp := &models.OTPCode{
		Target:    target.Value(),
		CodeHash:  hashCode(code),
		ExpiresAt: p.now().Add(p.otpTTL),
	}
	if err := p.store.SaveOTP(ctx, otp); err != nil {
		return fail(FailureUnavailable, "failed to store otp", err)
	}

	channel := queue.ChannelSMS
	if target.Email != "" {
		channel = queue.ChannelEmail
	}
	err = p.notifier.PublishNotification(ctx, queue.Notification{
		Channel:   channel,
		Recipient: target.Value(),
		Template:  template,
		Data: map[string]string{
			"code":               code,
			"expires_in_minutes": strconv.Itoa(int(p.otpTTL.Minutes())),
		},
		CreatedAt: p.now(),
	})
	if err != nil {
		return fail(FailureUnavailable, "failed to deliver otp", err)
	}
	return nil
}

func (p *LocalProvider) findOrCreate(ctx context.Context, target OTPTarget) (*models.Credential, error) {
	cred, err := p.store.FindByEmailOrPhone(ctx, target.Email, target.Phone)
	if err == nil {
		return cred, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fail(FailureUnavailable, "credential lookup failed", err)
	}

	cred = &models.Credential{Role: models.RoleAdult}
	if target.Email != "" {
		cred.Email = &target.Email
	} else {
		cred.Phone = &target.Phone
	}
	err = p.store.Create(ctx, cred)
	if errors.Is(err, repository.ErrDuplicate) {
		// Lost a race with a concurrent verification for the same target.
		cred, err = p.store.FindByEmailOrPhone(ctx, target.Email, target.Phone)
		if err != nil {
			return nil, fail(FailureUnavailable, "credential lookup failed", err)
		}
		return cred, nil
	}
	if err != nil {
		return nil, fail(FailureUnavailable, "failed to create account", err)
	}
	return cred, nil
}

func (p *LocalProvider) sessionFor(cred *models.Credential) (Result, error) {
	now := p.now()
	expires := now.Add(p.accessExpiry)
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    localIssuer,
			Subject:   cred.ID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	if cred.Email != nil {
		claims.Email = *cred.Email
	}
	if cred.Phone != nil {
		claims.Phone = *cred.Phone
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return Result{}, fail(FailureUnavailable, "failed to sign token", err)
	}
	return Result{
		Session: &Session{
			AccessToken: token,
			TokenType:   "bearer",
			ExpiresIn:   int(p.accessExpiry.Seconds()),
			ExpiresAt:   expires.Unix(),
		},
		Identity: credentialIdentity(cred),
	}, nil
}

func (p *LocalProvider) parse(token string) (*accessClaims, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(localIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, fail(FailureInvalidToken, "invalid or expired token", err)
	}
	return claims, nil
}

func credentialIdentity(c *models.Credential) Identity {
	ident := Identity{
		ExternalID:    c.ID.String(),
		EmailVerified: c.EmailConfirmedAt != nil,
		PhoneVerified: c.PhoneConfirmedAt != nil,
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		Role:          c.Role,
	}
	if c.Email != nil {
		ident.Email = *c.Email
	}
	if c.Phone != nil {
		ident.Phone = *c.Phone
	}
	return ident
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func hashCode(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}
