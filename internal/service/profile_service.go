package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vedran77/careteam/internal/domain"
	"github.com/vedran77/careteam/internal/repository"
)

var ErrProfileNotFound = errors.New("profile not found")

type ProfileService struct {
	profileRepo repository.ProfileRepository
	clock       Clock
}

func NewProfileService(profileRepo repository.ProfileRepository, clock Clock) *ProfileService {
	return &ProfileService{profileRepo: profileRepo, clock: clock}
}

type UpsertProfileInput struct {
	FirstName   string  `json:"first_name" validate:"max=100"`
	LastName    string  `json:"last_name" validate:"max=100"`
	DisplayName string  `json:"display_name" validate:"max=100"`
	AvatarURL   *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

// ResolveSession maps an authenticated identity onto its profile. Every
// care-team operation needs the profile id, so a missing profile is an error.
func (s *ProfileService) ResolveSession(ctx context.Context, authIdentityID uuid.UUID) (domain.Session, error) {
	p, err := s.profileRepo.GetByUserID(ctx, authIdentityID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("resolving profile: %w", err)
	}
	if p == nil {
		return domain.Session{}, ErrProfileNotFound
	}
	return domain.Session{AuthIdentityID: authIdentityID, ProfileID: p.ID}, nil
}

func (s *ProfileService) Get(ctx context.Context, authIdentityID uuid.UUID) (*domain.Profile, error) {
	p, err := s.profileRepo.GetByUserID(ctx, authIdentityID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

// Upsert creates the caller's profile on first use and updates it afterwards.
func (s *ProfileService) Upsert(ctx context.Context, authIdentityID uuid.UUID, input UpsertProfileInput) (*domain.Profile, error) {
	now := s.clock.Now()
	p := &domain.Profile{
		ID:          uuid.New(),
		UserID:      authIdentityID,
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		DisplayName: input.DisplayName,
		AvatarURL:   input.AvatarURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.profileRepo.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("saving profile: %w", err)
	}
	return p, nil
}
