package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/careteam/internal/domain"
)

// Lookups return (nil, nil) when the row does not exist.

type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)
	// Upsert inserts or updates the profile keyed by UserID.
	Upsert(ctx context.Context, profile *domain.Profile) error
}

type CareTeamRepository interface {
	Create(ctx context.Context, team *domain.CareTeam) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CareTeam, error)
	ListByProfile(ctx context.Context, profileID uuid.UUID) ([]domain.CareTeam, error)
	Update(ctx context.Context, team *domain.CareTeam) error
	AddMember(ctx context.Context, member *domain.CareTeamMember) error
	GetMember(ctx context.Context, careTeamID, profileID uuid.UUID) (*domain.CareTeamMember, error)
	ListMembers(ctx context.Context, careTeamID uuid.UUID) ([]domain.CareTeamMember, error)
}

// MessageRepository returns messages with Author, Attachments and Reactions
// joined in. Attachments and Reactions are never nil on returned messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	// ListTopLevel returns messages without a parent, pinned first then newest first.
	ListTopLevel(ctx context.Context, careTeamID uuid.UUID) ([]domain.Message, error)
	// ListReplies returns direct replies to parentID, oldest first.
	ListReplies(ctx context.Context, parentID uuid.UUID) ([]domain.Message, error)
	UpdateFlags(ctx context.Context, id uuid.UUID, isPinned, isUrgent bool, updatedAt time.Time) error

	CreateAttachment(ctx context.Context, att *domain.MessageAttachment) error
	GetAttachment(ctx context.Context, id uuid.UUID) (*domain.MessageAttachment, error)

	// ToggleReaction removes the (message, user, type) reaction if it exists and
	// inserts it otherwise, in one atomic step. It reports whether the reaction
	// is present afterwards.
	ToggleReaction(ctx context.Context, reaction *domain.MessageReaction) (bool, error)
}
