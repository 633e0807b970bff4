// Package memory holds in-process implementations of the repository
// interfaces. They back the "memory" database type and most tests.
package memory

import (
	"sync"

	"github.com/google/uuid"
	"github.com/vedran77/careteam/internal/domain"
)

type memberKey struct {
	team    uuid.UUID
	profile uuid.UUID
}

type reactionKey struct {
	message  uuid.UUID
	user     uuid.UUID
	reaction string
}

// Store is the shared state behind the memory repositories. Messages join
// author profiles, so every repository reads from the same Store.
// Store is safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	profiles    map[uuid.UUID]domain.Profile
	teams       map[uuid.UUID]domain.CareTeam
	members     map[memberKey]domain.CareTeamMember
	messages    map[uuid.UUID]domain.Message
	attachments map[uuid.UUID]domain.MessageAttachment
	reactions   map[reactionKey]domain.MessageReaction
}

func NewStore() *Store {
	return &Store{
		profiles:    make(map[uuid.UUID]domain.Profile),
		teams:       make(map[uuid.UUID]domain.CareTeam),
		members:     make(map[memberKey]domain.CareTeamMember),
		messages:    make(map[uuid.UUID]domain.Message),
		attachments: make(map[uuid.UUID]domain.MessageAttachment),
		reactions:   make(map[reactionKey]domain.MessageReaction),
	}
}

// profileRef returns a copy of the profile for joining. Caller holds mu.
func (s *Store) profileRef(id uuid.UUID) *domain.Profile {
	p, ok := s.profiles[id]
	if !ok {
		return nil
	}
	return &p
}
