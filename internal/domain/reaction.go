package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	ReactionLike  = "like"
	ReactionHeart = "heart"

	MaxReactionTypeLen = 32
)

var ErrInvalidReactionType = errors.New("reaction type must be 1-32 characters")

// NormalizeReactionType trims s and checks its length. Any non-empty label is
// accepted; like and heart are the ones clients offer.
func NormalizeReactionType(s string) (string, error) {
	s = strings.TrimSpace(s)
	if n := utf8.RuneCountInString(s); n == 0 || n > MaxReactionTypeLen {
		return "", ErrInvalidReactionType
	}
	return s, nil
}

type MessageReaction struct {
	ID           uuid.UUID `json:"id"`
	MessageID    uuid.UUID `json:"message_id"`
	UserID       uuid.UUID `json:"user_id"`
	ReactionType string    `json:"reaction_type"`
	CreatedAt    time.Time `json:"created_at"`
	// Joined fields
	Profile *Profile `json:"profile,omitempty"`
}
