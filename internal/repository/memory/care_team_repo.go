package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/vedran77/careteam/internal/domain"
	"github.com/vedran77/careteam/internal/repository"
)

var _ repository.CareTeamRepository = (*CareTeamRepo)(nil)

type CareTeamRepo struct {
	s *Store
}

func NewCareTeamRepo(s *Store) *CareTeamRepo {
	return &CareTeamRepo{s: s}
}

func (r *CareTeamRepo) Create(_ context.Context, t *domain.CareTeam) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.teams[t.ID]; ok {
		return fmt.Errorf("care team %s already exists", t.ID)
	}
	r.s.teams[t.ID] = *t
	return nil
}

func (r *CareTeamRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.CareTeam, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.teams[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *CareTeamRepo) ListByProfile(_ context.Context, profileID uuid.UUID) ([]domain.CareTeam, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	teams := []domain.CareTeam{}
	for k := range r.s.members {
		if k.profile != profileID {
			continue
		}
		if t, ok := r.s.teams[k.team]; ok {
			teams = append(teams, t)
		}
	}
	sort.SliceStable(teams, func(i, j int) bool {
		return teams[i].CreatedAt.After(teams[j].CreatedAt)
	})
	return teams, nil
}

func (r *CareTeamRepo) Update(_ context.Context, t *domain.CareTeam) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.teams[t.ID]
	if !ok {
		return fmt.Errorf("care team %s not found", t.ID)
	}
	existing.Name = t.Name
	existing.Description = t.Description
	existing.CareRecipientName = t.CareRecipientName
	existing.UpdatedAt = t.UpdatedAt
	r.s.teams[t.ID] = existing
	return nil
}

func (r *CareTeamRepo) AddMember(_ context.Context, m *domain.CareTeamMember) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := memberKey{team: m.CareTeamID, profile: m.ProfileID}
	if existing, ok := r.s.members[k]; ok {
		existing.Role = m.Role
		r.s.members[k] = existing
		return nil
	}
	stored := *m
	stored.Profile = nil
	r.s.members[k] = stored
	return nil
}

func (r *CareTeamRepo) GetMember(_ context.Context, careTeamID, profileID uuid.UUID) (*domain.CareTeamMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.members[memberKey{team: careTeamID, profile: profileID}]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r *CareTeamRepo) ListMembers(_ context.Context, careTeamID uuid.UUID) ([]domain.CareTeamMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	members := []domain.CareTeamMember{}
	for k, m := range r.s.members {
		if k.team != careTeamID {
			continue
		}
		m.Profile = r.s.profileRef(m.ProfileID)
		members = append(members, m)
	}
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
	return members, nil
}
