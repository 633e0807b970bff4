package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/careteam/internal/domain"
)

// Event types - Client → Server
const (
	EventTypeCareTeamSubscribe   = "care_team.subscribe"
	EventTypeCareTeamUnsubscribe = "care_team.unsubscribe"
	EventTypePing                = "ping"
)

// Event types - Server → Client
const (
	EventTypeThreadsSnapshot = "threads.snapshot"
	EventTypeChange          = "change"
	EventTypePong            = "pong"
	EventTypeError           = "error"
)

// Event is the base envelope for all WebSocket messages.
type Event struct {
	Type       string          `json:"type"`
	CareTeamID *uuid.UUID      `json:"care_team_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Timestamp  int64           `json:"ts,omitempty"`
}

// --- Client → Server payloads ---

type CareTeamPayload struct {
	CareTeamID uuid.UUID `json:"care_team_id"`
}

// --- Server → Client payloads ---

type SnapshotPayload struct {
	CareTeamID uuid.UUID       `json:"care_team_id"`
	Threads    []domain.Thread `json:"threads"`
}

type ChangePayload struct {
	domain.ChangeEvent
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType string, careTeamID *uuid.UUID, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:       eventType,
		CareTeamID: careTeamID,
		Payload:    data,
		Timestamp:  time.Now().Unix(),
	}, nil
}
