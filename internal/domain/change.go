package domain

import (
	"time"

	"github.com/google/uuid"
)

type ChangeOp string

const (
	ChangeInsert ChangeOp = "insert"
	ChangeUpdate ChangeOp = "update"
	ChangeDelete ChangeOp = "delete"
)

const (
	TableMessages    = "messages"
	TableReactions   = "message_reactions"
	TableAttachments = "message_attachments"
)

// ChangeEvent describes one committed write to a care team's messaging
// tables. Message, when present, is the full post-write state of the message
// the change touched.
type ChangeEvent struct {
	Op         ChangeOp   `json:"op"`
	Table      string     `json:"table"`
	CareTeamID uuid.UUID  `json:"care_team_id"`
	MessageID  uuid.UUID  `json:"message_id"`
	ParentID   *uuid.UUID `json:"parent_id,omitempty"`
	Message    *Message   `json:"message,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}
