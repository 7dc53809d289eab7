package identity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/queue"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/repository"
	"github.com/google/uuid"
)

type fakeProfiles struct {
	mu      sync.Mutex
	byExt     map[string]*models.User
	upserts   int
	upsertErr error
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{byExt: map[string]*models.User{}}
}

func (f *fakeProfiles) GetByExternalID(_ context.Context, ext string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byExt[ext]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeProfiles) UpsertByExternalID(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	if existing, ok := f.byExt[*u.ExternalID]; ok {
		cp := *existing
		return &cp, nil
	}
	stored := *u
	stored.ID = uuid.New()
	f.byExt[*u.ExternalID] = &stored
	cp := stored
	return &cp, nil
}

type fakeProvider struct {
	result   Result
	identity Identity
	err      error
	signOuts int
	signUps  int
	lastOTP  OTPTarget
}

func (f *fakeProvider) SignUp(context.Context, Registration) (Result, error) {
	f.signUps++
	return f.result, f.err
}

func (f *fakeProvider) SignInWithPassword(context.Context, string, string) (Result, error) {
	return f.result, f.err
}

func (f *fakeProvider) SendOTP(_ context.Context, t OTPTarget) error {
	f.lastOTP = t
	return f.err
}

func (f *fakeProvider) VerifyOTP(context.Context, OTPTarget, string) (Result, error) {
	return f.result, f.err
}

func (f *fakeProvider) ResendVerification(context.Context, string) error { return f.err }

func (f *fakeProvider) GetUser(context.Context, string) (Identity, error) {
	return f.identity, f.err
}

func (f *fakeProvider) SignOut(context.Context, string) error {
	f.signOuts++
	return f.err
}

type memCredentials struct {
	mu    sync.Mutex
	creds map[uuid.UUID]*models.Credential
	otps  map[uuid.UUID]models.OTPCode
}

func newMemCredentials() *memCredentials {
	return &memCredentials{
		creds: map[uuid.UUID]*models.Credential{},
		otps:  map[uuid.UUID]models.OTPCode{},
	}
}

func (m *memCredentials) Create(_ context.Context, c *models.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.creds {
		if c.Email != nil && existing.Email != nil && *c.Email == *existing.Email {
			return repository.ErrDuplicate
		}
		if c.Phone != nil && existing.Phone != nil && *c.Phone == *existing.Phone {
			return repository.ErrDuplicate
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	m.creds[c.ID] = &cp
	return nil
}

func (m *memCredentials) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.creds, id)
	return nil
}

func (m *memCredentials) GetByID(_ context.Context, id uuid.UUID) (*models.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.creds[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCredentials) FindByEmailOrPhone(_ context.Context, email, phone string) (*models.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.creds {
		if email != "" && c.Email != nil && *c.Email == email {
			cp := *c
			return &cp, nil
		}
		if email == "" && c.Phone != nil && *c.Phone == phone {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memCredentials) Confirm(_ context.Context, id uuid.UUID, column string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.creds[id]
	if column == "email_confirmed_at" {
		c.EmailConfirmedAt = &at
	} else {
		c.PhoneConfirmedAt = &at
	}
	return nil
}

func (m *memCredentials) SaveOTP(_ context.Context, otp *models.OTPCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	otp.ID = uuid.New()
	otp.CreatedAt = time.Now()
	m.otps[otp.ID] = *otp
	return nil
}

func (m *memCredentials) ActiveOTPs(_ context.Context, target string, now time.Time) ([]models.OTPCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.OTPCode
	for _, o := range m.otps {
		if o.Target == target && o.ExpiresAt.After(now) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memCredentials) ConsumeOTP(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.otps[id]; !ok {
		return false, nil
	}
	delete(m.otps, id)
	return true, nil
}

// captureNotifier records deliveries. The first failNext calls fail.
type captureNotifier struct {
	mu       sync.Mutex
	sent     []queue.Notification
	failNext int
}

func (c *captureNotifier) PublishNotification(_ context.Context, n queue.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failNext > 0 {
		c.failNext--
		return errors.New("notification queue unavailable")
	}
	c.sent = append(c.sent, n)
	return nil
}

func (c *captureNotifier) lastCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return ""
	}
	return c.sent[len(c.sent)-1].Data["code"]
}

type memRevoker struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func (m *memRevoker) Revoke(_ context.Context, id string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revoked == nil {
		m.revoked = map[string]bool{}
	}
	m.revoked[id] = true
	return nil
}

func (m *memRevoker) IsRevoked(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revoked[id], nil
}
