package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/vedran77/careteam/internal/domain"
)

const defaultSubscriptionBuffer = 64

var _ Bus = (*MemoryBus)(nil)

// MemoryBus is an in-process Bus. A subscriber whose buffer is full misses
// the event; listeners recover on the next refetch.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]map[*memorySubscription]struct{}
	buffer int
	logger *slog.Logger
}

func NewMemoryBus(logger *slog.Logger) *MemoryBus {
	return &MemoryBus{
		subs:   make(map[uuid.UUID]map[*memorySubscription]struct{}),
		buffer: defaultSubscriptionBuffer,
		logger: logger,
	}
}

func (b *MemoryBus) Publish(_ context.Context, evt domain.ChangeEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[evt.CareTeamID] {
		select {
		case sub.ch <- evt:
		default:
			b.logger.Warn("dropping change event for slow subscriber",
				"care_team_id", evt.CareTeamID, "message_id", evt.MessageID)
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, careTeamID uuid.UUID) (Subscription, error) {
	sub := &memorySubscription{
		bus:    b,
		teamID: careTeamID,
		ch:     make(chan domain.ChangeEvent, b.buffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[careTeamID] == nil {
		b.subs[careTeamID] = make(map[*memorySubscription]struct{})
	}
	b.subs[careTeamID][sub] = struct{}{}
	return sub, nil
}

// Subscribers reports how many subscriptions are open for a care team.
func (b *MemoryBus) Subscribers(careTeamID uuid.UUID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[careTeamID])
}

func (b *MemoryBus) remove(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs[sub.teamID], sub)
	if len(b.subs[sub.teamID]) == 0 {
		delete(b.subs, sub.teamID)
	}
	close(sub.ch)
}

type memorySubscription struct {
	bus    *MemoryBus
	teamID uuid.UUID
	ch     chan domain.ChangeEvent
	once   sync.Once
}

func (s *memorySubscription) Events() <-chan domain.ChangeEvent {
	return s.ch
}

func (s *memorySubscription) Close() error {
	s.once.Do(func() { s.bus.remove(s) })
	return nil
}
