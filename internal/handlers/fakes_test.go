package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/queue"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/repository"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// tokens maps bearer tokens to principals.
type tokens map[string]*identity.Principal

func (t tokens) Introspect(_ context.Context, token string) (*identity.Principal, error) {
	if p, ok := t[token]; ok {
		return p, nil
	}
	return nil, apperr.Unauthenticated(identity.MsgInvalidToken, nil)
}

type memUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) SetConsent(_ context.Context, id uuid.UUID, consent bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.ParentConsentVerified = consent
	cp := *u
	return &cp, nil
}

func (m *memUsers) SetSubscription(_ context.Context, id uuid.UUID, status string, expires *time.Time) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.SubscriptionStatus = status
	u.SubscriptionExpires = expires
	cp := *u
	return &cp, nil
}

type memChildren struct {
	mu       sync.Mutex
	children []models.ChildProfile
}

func (m *memChildren) ListByParent(_ context.Context, parentID uuid.UUID) ([]models.ChildProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ChildProfile
	for i := len(m.children) - 1; i >= 0; i-- {
		if m.children[i].ParentID == parentID {
			out = append(out, m.children[i])
		}
	}
	return out, nil
}

func (m *memChildren) Create(_ context.Context, child *models.ChildProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	child.ID = uuid.New()
	child.CreatedAt = time.Now()
	m.children = append(m.children, *child)
	return nil
}

func (m *memChildren) GetOwned(_ context.Context, id, parentID uuid.UUID) (*models.ChildProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.children {
		if m.children[i].ID == id && m.children[i].ParentID == parentID {
			cp := m.children[i]
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memChildren) UpdateOwned(_ context.Context, id, parentID uuid.UUID, fields map[string]interface{}) (*models.ChildProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.children {
		c := &m.children[i]
		if c.ID != id || c.ParentID != parentID {
			continue
		}
		if v, ok := fields["first_name"].(string); ok {
			c.FirstName = v
		}
		if v, ok := fields["age_group"].(string); ok {
			c.AgeGroup = v
		}
		if v, ok := fields["relationship"].(string); ok {
			c.Relationship = v
		}
		cp := *c
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

type memStories struct {
	mu      sync.Mutex
	stories map[uuid.UUID]*models.Story
	err     error
}

func (m *memStories) put(s *models.Story) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stories[s.ID] = s
}

func (m *memStories) Create(_ context.Context, s *models.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	cp := *s
	m.stories[s.ID] = &cp
	return nil
}

func (m *memStories) GetOwned(_ context.Context, id, userID uuid.UUID) (*models.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.stories[id]
	if !ok || s.UserID != userID {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStories) UpdateOwned(_ context.Context, id, userID uuid.UUID, fields map[string]interface{}) (*models.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stories[id]
	if !ok || s.UserID != userID {
		return nil, repository.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "status":
			s.Status = v.(models.StoryStatus)
		case "original_image_url":
			url := v.(string)
			s.OriginalImageURL = &url
		case "character_name":
			s.CharacterName = v.(string)
		case "character_type":
			s.CharacterType = strPtr(v)
		case "story_world":
			s.StoryWorld = strPtr(v)
		case "adventure_type":
			s.AdventureType = strPtr(v)
		case "story_title":
			s.StoryTitle = strPtr(v)
		case "special_message":
			s.SpecialMessage = strPtr(v)
		}
	}
	cp := *s
	return &cp, nil
}

func (m *memStories) SwapStatus(_ context.Context, id, userID uuid.UUID, from, to models.StoryStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stories[id]
	if !ok || s.UserID != userID || s.Status != from {
		return false, nil
	}
	s.Status = to
	return true, nil
}

func strPtr(v interface{}) *string {
	switch s := v.(type) {
	case *string:
		return s
	case string:
		return &s
	}
	return nil
}

type capturePublisher struct {
	mu    sync.Mutex
	tasks []queue.GenerationTask
}

func (p *capturePublisher) PublishGeneration(_ context.Context, task queue.GenerationTask) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks = append(p.tasks, task)
	return nil
}

type fakeGateway struct {
	auth       *identity.Authenticated
	err        error
	loggedOut  []string
	lastTarget identity.OTPTarget
}

func (g *fakeGateway) Register(context.Context, identity.Registration) (*identity.Authenticated, error) {
	return g.auth, g.err
}

func (g *fakeGateway) Login(context.Context, string, string) (*identity.Authenticated, error) {
	return g.auth, g.err
}

func (g *fakeGateway) SendOTP(_ context.Context, target identity.OTPTarget) error {
	g.lastTarget = target
	return g.err
}

func (g *fakeGateway) VerifyOTP(_ context.Context, target identity.OTPTarget, _ string) (*identity.Authenticated, error) {
	g.lastTarget = target
	return g.auth, g.err
}

func (g *fakeGateway) ResendVerification(context.Context, string) error { return g.err }

func (g *fakeGateway) Logout(_ context.Context, token string) {
	g.loggedOut = append(g.loggedOut, token)
}

// testEnv is a full API wired over in-memory stores.
type testEnv struct {
	app       *fiber.App
	users     *memUsers
	children  *memChildren
	stories   *memStories
	publisher *capturePublisher
	gateway   *fakeGateway
	tokens    tokens
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		users:     &memUsers{users: map[uuid.UUID]*models.User{}},
		children:  &memChildren{},
		stories:   &memStories{stories: map[uuid.UUID]*models.Story{}},
		publisher: &capturePublisher{},
		gateway:   &fakeGateway{},
		tokens:    tokens{},
	}

	profiles := services.NewProfileService(env.users, env.children)
	stories := services.NewStoryService(services.StoryDeps{
		Stories:   env.stories,
		Children:  env.children,
		Users:     env.users,
		Publisher: env.publisher,
	})

	authH := NewAuthHandler(env.gateway, profiles)
	userH := NewUserHandler(profiles)
	storyH := NewStoryHandler(stories)
	protected := middleware.Authenticated(env.tokens)

	app := fiber.New()
	api := app.Group("/api")
	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)
	api.Post("/auth/otp/send", authH.SendOTP)
	api.Post("/auth/otp/verify", authH.VerifyOTP)
	api.Post("/auth/logout", protected, authH.Logout)
	api.Get("/auth/me", protected, authH.Me)
	api.Post("/users/consent", protected, userH.RecordConsent)
	api.Get("/users/children", protected, userH.ListChildren)
	api.Post("/users/children", protected, userH.CreateChild)
	api.Put("/users/children/:id", protected, userH.UpdateChild)
	api.Post("/stories", protected, storyH.Create)
	api.Post("/stories/:id/upload", protected, storyH.UploadImage)
	api.Put("/stories/:id/character", protected, storyH.UpdateCharacter)
	api.Put("/stories/:id/config", protected, storyH.UpdateConfig)
	api.Post("/stories/:id/generate", protected, storyH.Generate)
	api.Get("/stories/:id/preview", protected, storyH.Preview)
	api.Get("/stories/:id/pdf", protected, storyH.DownloadPDF)
	api.Get("/stories/:id/audio", protected, storyH.Audio)
	api.Post("/stories/:id/unlock", protected, storyH.Unlock)
	env.app = app
	return env
}

// signIn registers a user row and returns its bearer token.
func (e *testEnv) signIn(subscription string) (string, *models.User) {
	u := &models.User{ID: uuid.New(), Role: models.RoleAdult, SubscriptionStatus: subscription}
	e.users.users[u.ID] = u
	token := "tok-" + u.ID.String()
	e.tokens[token] = &identity.Principal{
		ID:                 u.ID,
		Role:               u.Role,
		SubscriptionStatus: subscription,
		EmailVerified:      true,
	}
	return token, u
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	out := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

var errBoom = errors.New("pq: relation \"stories\" does not exist")
