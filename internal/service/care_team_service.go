package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vedran77/careteam/internal/domain"
	"github.com/vedran77/careteam/internal/repository"
)

var (
	ErrCareTeamNotFound = errors.New("care team not found")
	ErrNotMember        = errors.New("profile is not a member of this care team")
	ErrNotOwner         = errors.New("only the care team owner can perform this action")
	ErrAlreadyMember    = errors.New("profile is already a member")
)

type CareTeamService struct {
	careTeamRepo repository.CareTeamRepository
	profileRepo  repository.ProfileRepository
	clock        Clock
}

func NewCareTeamService(careTeamRepo repository.CareTeamRepository, profileRepo repository.ProfileRepository, clock Clock) *CareTeamService {
	return &CareTeamService{
		careTeamRepo: careTeamRepo,
		profileRepo:  profileRepo,
		clock:        clock,
	}
}

type CreateCareTeamInput struct {
	Name              string `json:"name" validate:"required,min=2,max=100"`
	Description       string `json:"description" validate:"max=500"`
	CareRecipientName string `json:"care_recipient_name" validate:"max=100"`
}

type UpdateCareTeamInput struct {
	Name              *string `json:"name" validate:"omitempty,min=2,max=100"`
	Description       *string `json:"description" validate:"omitempty,max=500"`
	CareRecipientName *string `json:"care_recipient_name" validate:"omitempty,max=100"`
}

type AddMemberInput struct {
	ProfileID uuid.UUID `json:"profile_id" validate:"required"`
	Role      string    `json:"role" validate:"omitempty,oneof=member professional"`
}

func (s *CareTeamService) Create(ctx context.Context, sess domain.Session, input CreateCareTeamInput) (*domain.CareTeam, error) {
	now := s.clock.Now()

	var desc *string
	if d := strings.TrimSpace(input.Description); d != "" {
		desc = &d
	}

	team := &domain.CareTeam{
		ID:                uuid.New(),
		Name:              strings.TrimSpace(input.Name),
		Description:       desc,
		CareRecipientName: strings.TrimSpace(input.CareRecipientName),
		CreatedBy:         sess.ProfileID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.careTeamRepo.Create(ctx, team); err != nil {
		return nil, fmt.Errorf("creating care team: %w", err)
	}

	owner := &domain.CareTeamMember{
		CareTeamID: team.ID,
		ProfileID:  sess.ProfileID,
		Role:       domain.RoleOwner,
		JoinedAt:   now,
	}
	if err := s.careTeamRepo.AddMember(ctx, owner); err != nil {
		return nil, fmt.Errorf("adding owner as member: %w", err)
	}

	return team, nil
}

func (s *CareTeamService) Get(ctx context.Context, sess domain.Session, careTeamID uuid.UUID) (*domain.CareTeam, error) {
	team, _, err := requireMember(ctx, s.careTeamRepo, sess, careTeamID)
	return team, err
}

func (s *CareTeamService) ListMine(ctx context.Context, sess domain.Session) ([]domain.CareTeam, error) {
	return s.careTeamRepo.ListByProfile(ctx, sess.ProfileID)
}

// Update is open to every member; care teams are edited collaboratively.
func (s *CareTeamService) Update(ctx context.Context, sess domain.Session, careTeamID uuid.UUID, input UpdateCareTeamInput) (*domain.CareTeam, error) {
	team, _, err := requireMember(ctx, s.careTeamRepo, sess, careTeamID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		team.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		if d := strings.TrimSpace(*input.Description); d != "" {
			team.Description = &d
		} else {
			team.Description = nil
		}
	}
	if input.CareRecipientName != nil {
		team.CareRecipientName = strings.TrimSpace(*input.CareRecipientName)
	}
	team.UpdatedAt = s.clock.Now()

	if err := s.careTeamRepo.Update(ctx, team); err != nil {
		return nil, fmt.Errorf("updating care team: %w", err)
	}
	return team, nil
}

func (s *CareTeamService) AddMember(ctx context.Context, sess domain.Session, careTeamID uuid.UUID, input AddMemberInput) (*domain.CareTeamMember, error) {
	_, requester, err := requireMember(ctx, s.careTeamRepo, sess, careTeamID)
	if err != nil {
		return nil, err
	}
	if requester.Role != domain.RoleOwner {
		return nil, ErrNotOwner
	}

	profile, err := s.profileRepo.GetByID(ctx, input.ProfileID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}

	existing, err := s.careTeamRepo.GetMember(ctx, careTeamID, input.ProfileID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyMember
	}

	role := input.Role
	if role == "" {
		role = domain.RoleMember
	}
	member := &domain.CareTeamMember{
		CareTeamID: careTeamID,
		ProfileID:  input.ProfileID,
		Role:       role,
		JoinedAt:   s.clock.Now(),
		Profile:    profile,
	}
	if err := s.careTeamRepo.AddMember(ctx, member); err != nil {
		return nil, fmt.Errorf("adding member: %w", err)
	}
	return member, nil
}

func (s *CareTeamService) ListMembers(ctx context.Context, sess domain.Session, careTeamID uuid.UUID) ([]domain.CareTeamMember, error) {
	if _, _, err := requireMember(ctx, s.careTeamRepo, sess, careTeamID); err != nil {
		return nil, err
	}
	return s.careTeamRepo.ListMembers(ctx, careTeamID)
}

// RequireMember fails with ErrCareTeamNotFound or ErrNotMember unless the
// session's profile belongs to the care team.
func (s *CareTeamService) RequireMember(ctx context.Context, sess domain.Session, careTeamID uuid.UUID) error {
	_, _, err := requireMember(ctx, s.careTeamRepo, sess, careTeamID)
	return err
}

// requireMember stands in for the row-level security of the backing store:
// every care-team scoped read and write goes through it.
func requireMember(ctx context.Context, repo repository.CareTeamRepository, sess domain.Session, careTeamID uuid.UUID) (*domain.CareTeam, *domain.CareTeamMember, error) {
	team, err := repo.GetByID(ctx, careTeamID)
	if err != nil {
		return nil, nil, err
	}
	if team == nil {
		return nil, nil, ErrCareTeamNotFound
	}

	member, err := repo.GetMember(ctx, careTeamID, sess.ProfileID)
	if err != nil {
		return nil, nil, err
	}
	if member == nil {
		return nil, nil, ErrNotMember
	}
	return team, member, nil
}
