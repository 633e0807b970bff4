package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/vedran77/careteam/internal/domain"
	"github.com/vedran77/careteam/internal/repository"
)

var _ repository.ProfileRepository = (*ProfileRepo)(nil)

type ProfileRepo struct {
	s *Store
}

func NewProfileRepo(s *Store) *ProfileRepo {
	return &ProfileRepo{s: s}
}

func (r *ProfileRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.profileRef(id), nil
}

func (r *ProfileRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*domain.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.profiles {
		if p.UserID == userID {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *ProfileRepo) Upsert(_ context.Context, p *domain.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, existing := range r.s.profiles {
		if existing.UserID == p.UserID {
			p.ID = id
			p.CreatedAt = existing.CreatedAt
			break
		}
	}
	r.s.profiles[p.ID] = *p
	return nil
}
