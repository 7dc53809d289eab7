package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SupabaseProvider talks to the GoTrue REST API under <project>/auth/v1.
type SupabaseProvider struct {
	authURL    string
	anonKey    string
	httpClient *http.Client
}

func NewSupabaseProvider(projectURL, anonKey string, timeout time.Duration) (*SupabaseProvider, error) {
	if projectURL == "" {
		return nil, fmt.Errorf("supabase project URL is required")
	}
	if anonKey == "" {
		return nil, fmt.Errorf("supabase anon key is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SupabaseProvider{
		authURL:    strings.TrimRight(projectURL, "/") + "/auth/v1",
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type gotrueUser struct {
	ID               string                 `json:"id"`
	Email            string                 `json:"email"`
	Phone            string                 `json:"phone"`
	EmailConfirmedAt *time.Time             `json:"email_confirmed_at"`
	PhoneConfirmedAt *time.Time             `json:"phone_confirmed_at"`
	UserMetadata     map[string]interface{} `json:"user_metadata"`
}

type gotrueSession struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int         `json:"expires_in"`
	ExpiresAt    int64       `json:"expires_at"`
	User         *gotrueUser `json:"user"`
}

type gotrueError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Code             any    `json:"code"`
}

func (p *SupabaseProvider) SignUp(ctx context.Context, reg Registration) (Result, error) {
	req := map[string]interface{}{
		"email":    reg.Email,
		"password": reg.Password,
		"data": map[string]string{
			"first_name": reg.FirstName,
			"last_name":  reg.LastName,
			"role":       reg.Role,
		},
	}
	if reg.Phone != "" {
		req["phone"] = reg.Phone
	}

	body, err := p.do(ctx, http.MethodPost, "/signup", req, "")
	if err != nil {
		return Result{}, err
	}

	// With email confirmation enabled GoTrue answers with the bare user.
	var session gotrueSession
	if err := json.Unmarshal(body, &session); err != nil {
		return Result{}, fail(FailureUnavailable, "malformed signup response", err)
	}
	if session.AccessToken != "" && session.User != nil {
		return session.result(), nil
	}
	var user gotrueUser
	if err := json.Unmarshal(body, &user); err != nil || user.ID == "" {
		return Result{}, fail(FailureUnavailable, "malformed signup response", err)
	}
	return Result{Identity: user.identity()}, nil
}

func (p *SupabaseProvider) SignInWithPassword(ctx context.Context, email, password string) (Result, error) {
	body, err := p.do(ctx, http.MethodPost, "/token?grant_type=password", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	if err != nil {
		return Result{}, err
	}
	return decodeSession(body)
}

func (p *SupabaseProvider) SendOTP(ctx context.Context, target OTPTarget) error {
	req := map[string]interface{}{"create_user": true}
	if target.Email != "" {
		req["email"] = target.Email
	} else {
		req["phone"] = target.Phone
	}
	_, err := p.do(ctx, http.MethodPost, "/otp", req, "")
	return err
}

func (p *SupabaseProvider) VerifyOTP(ctx context.Context, target OTPTarget, code string) (Result, error) {
	req := map[string]string{"token": code}
	if target.Email != "" {
		req["type"] = "email"
		req["email"] = target.Email
	} else {
		req["type"] = "sms"
		req["phone"] = target.Phone
	}
	body, err := p.do(ctx, http.MethodPost, "/verify", req, "")
	if err != nil {
		return Result{}, err
	}
	return decodeSession(body)
}

func (p *SupabaseProvider) ResendVerification(ctx context.Context, email string) error {
	_, err := p.do(ctx, http.MethodPost, "/resend", map[string]string{
		"type":  "signup",
		"email": email,
	}, "")
	return err
}

func (p *SupabaseProvider) GetUser(ctx context.Context, accessToken string) (Identity, error) {
	body, err := p.do(ctx, http.MethodGet, "/user", nil, accessToken)
	if err != nil {
		return Identity{}, err
	}
	var user gotrueUser
	if err := json.Unmarshal(body, &user); err != nil || user.ID == "" {
		return Identity{}, fail(FailureInvalidToken, "user not found for token", err)
	}
	return user.identity(), nil
}

func (p *SupabaseProvider) SignOut(ctx context.Context, accessToken string) error {
	_, err := p.do(ctx, http.MethodPost, "/logout", nil, accessToken)
	return err
}

// do sends a JSON request and returns the body of a 2xx response. Any other
// outcome is a *Failure.
func (p *SupabaseProvider) do(ctx context.Context, method, path string, payload interface{}, bearer string) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fail(FailureInvalidInput, "marshal request", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.authURL+path, reader)
	if err != nil {
		return nil, fail(FailureUnavailable, "build request", err)
	}
	req.Header.Set("apikey", p.anonKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer == "" {
		bearer = p.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fail(FailureUnavailable, "identity provider unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fail(FailureUnavailable, "read response", err)
	}
	if resp.StatusCode >= 400 {
		return nil, parseError(path, body, resp.StatusCode)
	}
	return body, nil
}

func parseError(path string, body []byte, status int) *Failure {
	var ge gotrueError
	_ = json.Unmarshal(body, &ge)
	reason := firstNonEmpty(ge.ErrorDescription, ge.Msg, ge.Message, ge.Error)
	if reason == "" {
		reason = http.StatusText(status)
	}
	cause := fmt.Errorf("gotrue %s returned %d", path, status)

	switch {
	case status == http.StatusTooManyRequests:
		return fail(FailureRateLimited, reason, cause)
	case status >= 500:
		return fail(FailureUnavailable, reason, cause)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fail(FailureInvalidToken, reason, cause)
	case strings.HasPrefix(path, "/token") || strings.HasPrefix(path, "/verify"):
		return fail(FailureInvalidCredentials, reason, cause)
	default:
		return fail(FailureInvalidInput, reason, cause)
	}
}

func decodeSession(body []byte) (Result, error) {
	var session gotrueSession
	if err := json.Unmarshal(body, &session); err != nil || session.User == nil {
		return Result{}, fail(FailureUnavailable, "malformed session response", err)
	}
	return session.result(), nil
}

func (s gotrueSession) result() Result {
	return Result{
		Session: &Session{
			AccessToken:  s.AccessToken,
			RefreshToken: s.RefreshToken,
			TokenType:    s.TokenType,
			ExpiresIn:    s.ExpiresIn,
			ExpiresAt:    s.ExpiresAt,
		},
		Identity: s.User.identity(),
	}
}

func (u gotrueUser) identity() Identity {
	return Identity{
		ExternalID:    u.ID,
		Email:         u.Email,
		Phone:         u.Phone,
		EmailVerified: u.EmailConfirmedAt != nil,
		PhoneVerified: u.PhoneConfirmedAt != nil,
		FirstName:     metaString(u.UserMetadata, "first_name"),
		LastName:      metaString(u.UserMetadata, "last_name"),
		Role:          metaString(u.UserMetadata, "role"),
	}
}

func metaString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
