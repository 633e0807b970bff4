package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/careteam/internal/domain"
	"github.com/vedran77/careteam/internal/repository"
)

var _ repository.MessageRepository = (*MessageRepo)(nil)

type MessageRepo struct {
	s *Store
}

func NewMessageRepo(s *Store) *MessageRepo {
	return &MessageRepo{s: s}
}

func (r *MessageRepo) Create(_ context.Context, msg *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.messages[msg.ID]; ok {
		return fmt.Errorf("message %s already exists", msg.ID)
	}
	if msg.ParentID != nil {
		parent, ok := r.s.messages[*msg.ParentID]
		if !ok {
			return fmt.Errorf("parent message %s not found", *msg.ParentID)
		}
		if parent.ParentID != nil {
			return fmt.Errorf("replies cannot be nested")
		}
	}

	stored := *msg
	stored.Author = nil
	stored.Attachments = nil
	stored.Reactions = nil
	r.s.messages[msg.ID] = stored
	return nil
}

func (r *MessageRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.messages[id]
	if !ok {
		return nil, nil
	}
	joined := r.join(m)
	return &joined, nil
}

func (r *MessageRepo) ListTopLevel(_ context.Context, careTeamID uuid.UUID) ([]domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	msgs := []domain.Message{}
	for _, m := range r.s.messages {
		if m.CareTeamID == careTeamID && m.ParentID == nil {
			msgs = append(msgs, r.join(m))
		}
	}
	domain.SortTopLevel(msgs)
	return msgs, nil
}

func (r *MessageRepo) ListReplies(_ context.Context, parentID uuid.UUID) ([]domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	msgs := []domain.Message{}
	for _, m := range r.s.messages {
		if m.ParentID != nil && *m.ParentID == parentID {
			msgs = append(msgs, r.join(m))
		}
	}
	domain.SortReplies(msgs)
	return msgs, nil
}

func (r *MessageRepo) UpdateFlags(_ context.Context, id uuid.UUID, isPinned, isUrgent bool, updatedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.messages[id]
	if !ok {
		return fmt.Errorf("message %s not found", id)
	}
	m.IsPinned, m.IsUrgent, m.UpdatedAt = isPinned, isUrgent, updatedAt
	r.s.messages[id] = m
	return nil
}

func (r *MessageRepo) CreateAttachment(_ context.Context, a *domain.MessageAttachment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.messages[a.MessageID]; !ok {
		return fmt.Errorf("message %s not found", a.MessageID)
	}
	r.s.attachments[a.ID] = *a
	return nil
}

func (r *MessageRepo) GetAttachment(_ context.Context, id uuid.UUID) (*domain.MessageAttachment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.attachments[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *MessageRepo) ToggleReaction(_ context.Context, re *domain.MessageReaction) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.messages[re.MessageID]; !ok {
		return false, fmt.Errorf("message %s not found", re.MessageID)
	}
	k := reactionKey{message: re.MessageID, user: re.UserID, reaction: re.ReactionType}
	if _, ok := r.s.reactions[k]; ok {
		delete(r.s.reactions, k)
		return false, nil
	}
	stored := *re
	stored.Profile = nil
	r.s.reactions[k] = stored
	return true, nil
}

// join attaches author, attachments and reactions. Caller holds mu.
func (r *MessageRepo) join(m domain.Message) domain.Message {
	m.Author = r.s.profileRef(m.AuthorID)

	m.Attachments = []domain.MessageAttachment{}
	for _, a := range r.s.attachments {
		if a.MessageID == m.ID {
			m.Attachments = append(m.Attachments, a)
		}
	}
	sort.SliceStable(m.Attachments, func(i, j int) bool {
		return m.Attachments[i].CreatedAt.Before(m.Attachments[j].CreatedAt)
	})

	m.Reactions = []domain.MessageReaction{}
	for _, re := range r.s.reactions {
		if re.MessageID == m.ID {
			re.Profile = r.s.profileRef(re.UserID)
			m.Reactions = append(m.Reactions, re)
		}
	}
	sort.SliceStable(m.Reactions, func(i, j int) bool {
		if !m.Reactions[i].CreatedAt.Equal(m.Reactions[j].CreatedAt) {
			return m.Reactions[i].CreatedAt.Before(m.Reactions[j].CreatedAt)
		}
		return m.Reactions[i].ID.String() < m.Reactions[j].ID.String()
	})
	return m
}
