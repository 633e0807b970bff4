package domain

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageTypeMessage      MessageType = "message"
	MessageTypeUpdate       MessageType = "update"
	MessageTypeAlert        MessageType = "alert"
	MessageTypeAnnouncement MessageType = "announcement"
)

// legacyTextType is what the standalone send dialog used to submit.
const legacyTextType = "text"

// AttachmentPlaceholder replaces empty content on attachment-only messages.
const AttachmentPlaceholder = "[Attachment]"

// ParseMessageType maps user input onto the canonical enumeration.
// Empty input defaults to "message"; the legacy "text" is folded into it.
func ParseMessageType(s string) (MessageType, error) {
	switch t := strings.ToLower(strings.TrimSpace(s)); t {
	case "", legacyTextType:
		return MessageTypeMessage, nil
	case string(MessageTypeMessage), string(MessageTypeUpdate), string(MessageTypeAlert), string(MessageTypeAnnouncement):
		return MessageType(t), nil
	default:
		return "", fmt.Errorf("unknown message type %q", s)
	}
}

type Message struct {
	ID         uuid.UUID   `json:"id"`
	CareTeamID uuid.UUID   `json:"care_team_id"`
	AuthorID   uuid.UUID   `json:"author_id"`
	Content    string      `json:"content"`
	Type       MessageType `json:"message_type"`
	ParentID   *uuid.UUID  `json:"parent_id,omitempty"`
	IsPinned   bool        `json:"is_pinned"`
	IsUrgent   bool        `json:"is_urgent"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	// Joined fields
	Author      *Profile            `json:"author,omitempty"`
	Attachments []MessageAttachment `json:"attachments"`
	Reactions   []MessageReaction   `json:"reactions"`
}

func (m *Message) IsTopLevel() bool {
	return m.ParentID == nil
}

// ReactionCounts derives per-type counts from the reaction list.
func (m *Message) ReactionCounts() map[string]int {
	counts := make(map[string]int)
	for _, r := range m.Reactions {
		counts[r.ReactionType]++
	}
	return counts
}

// Thread is a top-level message with its single level of replies.
// ReplyCount is always len(Replies) and is never persisted.
type Thread struct {
	Message
	Replies    []Message `json:"replies"`
	ReplyCount int       `json:"reply_count"`
}

func NewThread(top Message, replies []Message) Thread {
	if replies == nil {
		replies = []Message{}
	}
	return Thread{Message: top, Replies: replies, ReplyCount: len(replies)}
}

// SortTopLevel orders pinned messages first, then newest first.
func SortTopLevel(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].IsPinned != msgs[j].IsPinned {
			return msgs[i].IsPinned
		}
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
		}
		return idLess(msgs[j].ID, msgs[i].ID)
	})
}

// SortReplies orders replies oldest first.
func SortReplies(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		}
		return idLess(msgs[i].ID, msgs[j].ID)
	})
}

// SortThreads applies the top-level ordering to assembled threads.
func SortThreads(threads []Thread) {
	sort.SliceStable(threads, func(i, j int) bool {
		if threads[i].IsPinned != threads[j].IsPinned {
			return threads[i].IsPinned
		}
		if !threads[i].CreatedAt.Equal(threads[j].CreatedAt) {
			return threads[i].CreatedAt.After(threads[j].CreatedAt)
		}
		return idLess(threads[j].ID, threads[i].ID)
	})
}

// idLess breaks created_at ties the way postgres orders uuid columns.
func idLess(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}
