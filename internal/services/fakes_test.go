package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/queue"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/repository"
	"github.com/google/uuid"
)

var errStoreDown = errors.New("connection refused")

type memUsers struct {
	mu         sync.Mutex
	users      map[uuid.UUID]*models.User
	setSubErr  error
	downgraded int64
	sweptAt    time.Time
}

func newMemUsers(users ...*models.User) *memUsers {
	m := &memUsers{users: map[uuid.UUID]*models.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
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
	if m.setSubErr != nil {
		return nil, m.setSubErr
	}
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.SubscriptionStatus = status
	u.SubscriptionExpires = expires
	cp := *u
	return &cp, nil
}

func (m *memUsers) DowngradeExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweptAt = now
	var n int64
	for _, u := range m.users {
		if u.SubscriptionStatus != models.SubscriptionFree && u.SubscriptionExpires != nil && u.SubscriptionExpires.Before(now) {
			u.SubscriptionStatus = models.SubscriptionFree
			n++
		}
	}
	m.downgraded += n
	return n, nil
}

type memChildren struct {
	mu       sync.Mutex
	children map[uuid.UUID]*models.ChildProfile
	updates  int
	seq      int
}

func newMemChildren() *memChildren {
	return &memChildren{children: map[uuid.UUID]*models.ChildProfile{}}
}

func (m *memChildren) ListByParent(_ context.Context, parentID uuid.UUID) ([]models.ChildProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ChildProfile{}
	for _, c := range m.children {
		if c.ParentID == parentID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memChildren) Create(_ context.Context, child *models.ChildProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	child.ID = uuid.New()
	child.CreatedAt = time.Date(2026, 1, 1, 0, 0, m.seq, 0, time.UTC)
	cp := *child
	m.children[child.ID] = &cp
	return nil
}

func (m *memChildren) GetOwned(_ context.Context, id, parentID uuid.UUID) (*models.ChildProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.children[id]
	if !ok || c.ParentID != parentID {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memChildren) UpdateOwned(_ context.Context, id, parentID uuid.UUID, fields map[string]interface{}) (*models.ChildProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.children[id]
	if !ok || c.ParentID != parentID {
		return nil, repository.ErrNotFound
	}
	m.updates++
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

type memStories struct {
	mu      sync.Mutex
	stories map[uuid.UUID]*models.Story
	updates int
	// beforeSwap runs inside SwapStatus before the compare, to simulate a
	// concurrent writer.
	beforeSwap func(s *models.Story)
}

func newMemStories(stories ...*models.Story) *memStories {
	m := &memStories{stories: map[uuid.UUID]*models.Story{}}
	for _, s := range stories {
		m.stories[s.ID] = s
	}
	return m
}

func (m *memStories) Create(_ context.Context, story *models.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	story.ID = uuid.New()
	cp := *story
	m.stories[story.ID] = &cp
	return nil
}

func (m *memStories) GetOwned(_ context.Context, id, userID uuid.UUID) (*models.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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
	m.updates++
	for k, v := range fields {
		switch k {
		case "character_name":
			s.CharacterName = v.(string)
		case "character_type":
			s.CharacterType = v.(*string)
		case "special_ability":
			s.SpecialAbility = v.(*string)
		case "character_style":
			s.CharacterStyle = v.(*string)
		case "story_world":
			s.StoryWorld = v.(*string)
		case "adventure_type":
			s.AdventureType = v.(*string)
		case "story_title":
			s.StoryTitle = v.(*string)
		case "special_message":
			s.SpecialMessage = v.(*string)
		case "cover_design":
			s.CoverDesign = v.(*string)
		case "original_image_url":
			url := v.(string)
			s.OriginalImageURL = &url
		case "status":
			s.Status = v.(models.StoryStatus)
		}
	}
	cp := *s
	return &cp, nil
}

func (m *memStories) SwapStatus(_ context.Context, id, userID uuid.UUID, from, to models.StoryStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stories[id]
	if !ok || s.UserID != userID {
		return false, nil
	}
	if m.beforeSwap != nil {
		m.beforeSwap(s)
	}
	if s.Status != from {
		return false, nil
	}
	s.Status = to
	return true, nil
}

func (m *memStories) get(id uuid.UUID) *models.Story {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.stories[id]
	return &cp
}

type capturePublisher struct {
	mu    sync.Mutex
	tasks []queue.GenerationTask
	err   error
}

func (c *capturePublisher) PublishGeneration(ctx context.Context, task queue.GenerationTask) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	c.tasks = append(c.tasks, task)
	return c.err
}

type countingPayments struct {
	calls int
	err   error
}

func (c *countingPayments) Capture(context.Context, uuid.UUID, string) (string, error) {
	c.calls++
	return "ref_1", c.err
}
