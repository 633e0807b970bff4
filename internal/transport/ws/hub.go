package ws

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/careteam/internal/domain"
	"github.com/vedran77/careteam/internal/realtime"
)

// ThreadSource loads a care team's threads on behalf of a session.
type ThreadSource interface {
	ListThreads(ctx context.Context, sess domain.Session, careTeamID uuid.UUID) ([]domain.Thread, error)
}

// MembershipChecker fails unless the session belongs to the care team.
type MembershipChecker interface {
	RequireMember(ctx context.Context, sess domain.Session, careTeamID uuid.UUID) error
}

// Hub tracks connected clients and holds what their listeners share.
type Hub struct {
	bus     realtime.Bus
	threads ThreadSource
	members MembershipChecker
	mode    realtime.Mode
	logger  *slog.Logger
	now     func() time.Time

	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	count      chan chan int
	stopped    chan struct{}
}

func NewHub(bus realtime.Bus, threads ThreadSource, members MembershipChecker, mode realtime.Mode, logger *slog.Logger) *Hub {
	return &Hub{
		bus:        bus,
		threads:    threads,
		members:    members,
		mode:       mode,
		logger:     logger,
		now:        time.Now,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		count:      make(chan chan int),
		stopped:    make(chan struct{}),
	}
}

// WithClock sets the clock listeners version fetched snapshots with. It must
// agree with the clock that stamps change events.
func (h *Hub) WithClock(now func() time.Time) *Hub {
	h.now = now
	return h
}

// Run starts the Hub's main event loop. It disconnects every client when ctx
// is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.logger.Info("ws client connected", "profile_id", client.session.ProfileID, "clients", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
				h.logger.Info("ws client disconnected", "profile_id", client.session.ProfileID, "clients", len(h.clients))
			}

		case reply := <-h.count:
			reply <- len(h.clients)

		case <-ctx.Done():
			for client := range h.clients {
				client.close()
			}
			h.clients = make(map[*Client]struct{})
			return
		}
	}
}

// add registers c, reporting false once the hub has stopped.
func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.stopped:
		return false
	}
}

// Clients reports how many connections are registered.
func (h *Hub) Clients() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.stopped:
		return 0
	}
}

func (h *Hub) newListener(c *Client) *realtime.Listener {
	return realtime.NewListener(h.bus, func(ctx context.Context, careTeamID uuid.UUID) ([]domain.Thread, error) {
		return h.threads.ListThreads(ctx, c.session, careTeamID)
	}, realtime.ListenerOptions{
		Mode:   h.mode,
		Logger: h.logger,
		Now:    h.now,
		OnSnapshot: func(careTeamID uuid.UUID, threads []domain.Thread) {
			c.emit(EventTypeThreadsSnapshot, &careTeamID, SnapshotPayload{CareTeamID: careTeamID, Threads: threads})
		},
		OnEvent: func(evt domain.ChangeEvent) {
			c.emit(EventTypeChange, &evt.CareTeamID, ChangePayload{ChangeEvent: evt})
		},
	})
}
