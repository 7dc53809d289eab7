package services

import (
	"context"
	"errors"
	"strings"

	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/repository"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/validation"
	"github.com/google/uuid"
)

const (
	MsgConsentRequired    = "Consent value (true/false) is required"
	MsgChildFieldsMissing = "first_name, age_group, and relationship are required"
	MsgChildNotFound      = "Child profile not found or unauthorized"
	MsgNoFieldsToUpdate   = "No valid fields to update"
	MsgUserNotFound       = "User not found"
)

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetConsent(ctx context.Context, id uuid.UUID, consent bool) (*models.User, error)
}

type ChildStore interface {
	ListByParent(ctx context.Context, parentID uuid.UUID) ([]models.ChildProfile, error)
	Create(ctx context.Context, child *models.ChildProfile) error
	GetOwned(ctx context.Context, id, parentID uuid.UUID) (*models.ChildProfile, error)
	UpdateOwned(ctx context.Context, id, parentID uuid.UUID, fields map[string]interface{}) (*models.ChildProfile, error)
}

type ProfileService struct {
	users    UserStore
	children ChildStore
}

func NewProfileService(users UserStore, children ChildStore) *ProfileService {
	return &ProfileService{users: users, children: children}
}

func (s *ProfileService) GetMe(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound(MsgUserNotFound)
	}
	if err != nil {
		return nil, apperr.Persistence("Failed to fetch user", err)
	}
	return user, nil
}

// RecordConsent stores the parental consent flag. A nil value means the
// request did not carry a JSON boolean.
func (s *ProfileService) RecordConsent(ctx context.Context, userID uuid.UUID, consented *bool) (*models.User, error) {
	if consented == nil {
		return nil, apperr.Validation(MsgConsentRequired)
	}
	user, err := s.users.SetConsent(ctx, userID, *consented)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound(MsgUserNotFound)
	}
	if err != nil {
		return nil, apperr.Persistence("Failed to record consent", err)
	}
	return user, nil
}

func (s *ProfileService) ListChildren(ctx context.Context, parentID uuid.UUID) ([]models.ChildProfile, error) {
	children, err := s.children.ListByParent(ctx, parentID)
	if err != nil {
		return nil, apperr.Persistence("Failed to fetch child profiles", err)
	}
	return children, nil
}

func (s *ProfileService) CreateChild(ctx context.Context, parentID uuid.UUID, req *dto.ChildRequest) (*models.ChildProfile, error) {
	if req.FirstName == "" || req.AgeGroup == "" || req.Relationship == "" {
		return nil, apperr.Validation(MsgChildFieldsMissing)
	}
	if err := checkChildFields(req); err != nil {
		return nil, err
	}

	child := &models.ChildProfile{
		ParentID:     parentID,
		FirstName:    strings.TrimSpace(req.FirstName),
		AgeGroup:     req.AgeGroup,
		Relationship: req.Relationship,
	}
	if err := s.children.Create(ctx, child); err != nil {
		return nil, apperr.Persistence("Failed to create child profile", err)
	}
	return child, nil
}

// UpdateChild applies the non-empty fields of req. Ownership is checked
// before anything is written, and the write itself is filtered by parent.
func (s *ProfileService) UpdateChild(ctx context.Context, parentID, childID uuid.UUID, req *dto.ChildRequest) (*models.ChildProfile, error) {
	if err := checkChildFields(req); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.FirstName != "" {
		fields["first_name"] = strings.TrimSpace(req.FirstName)
	}
	if req.AgeGroup != "" {
		fields["age_group"] = req.AgeGroup
	}
	if req.Relationship != "" {
		fields["relationship"] = req.Relationship
	}
	if len(fields) == 0 {
		return nil, apperr.NoOp(MsgNoFieldsToUpdate)
	}

	if _, err := s.children.GetOwned(ctx, childID, parentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound(MsgChildNotFound)
		}
		return nil, apperr.Persistence("Failed to fetch child profile", err)
	}

	child, err := s.children.UpdateOwned(ctx, childID, parentID, fields)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound(MsgChildNotFound)
	}
	if err != nil {
		return nil, apperr.Persistence("Failed to update child profile", err)
	}
	return child, nil
}

// checkChildFields reports the first invalid supplied field in the order
// first_name, age_group, relationship.
func checkChildFields(req *dto.ChildRequest) error {
	if req.FirstName != "" && !validation.Name(req.FirstName) {
		return apperr.Validation(validation.MsgFirstName)
	}
	if req.AgeGroup != "" && !validation.AgeGroup(req.AgeGroup) {
		return apperr.Validation(validation.MsgAgeGroup)
	}
	if req.Relationship != "" && !validation.Relationship(req.Relationship) {
		return apperr.Validation(validation.MsgRelationship)
	}
	return nil
}
