// Package realtime carries committed changes to a care team's messaging tables
// from writers to every interested listener.
package realtime

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vedran77/careteam/internal/domain"
)

// Bus fans change events out per care team.
type Bus interface {
	Publish(ctx context.Context, evt domain.ChangeEvent) error
	Subscribe(ctx context.Context, careTeamID uuid.UUID) (Subscription, error)
}

// Subscription delivers events for one care team until Close is called.
// Close is idempotent and closes the Events channel.
type Subscription interface {
	Events() <-chan domain.ChangeEvent
	Close() error
}

// ChannelName is the pub/sub topic for a care team.
func ChannelName(careTeamID uuid.UUID) string {
	return fmt.Sprintf("careteam:%s:changes", careTeamID)
}
