package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/careteam/internal/domain"
	"github.com/vedran77/careteam/internal/realtime"
	"github.com/vedran77/careteam/internal/service"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 4096
	sendBufSize    = 256
)

// Client represents a single WebSocket connection. Each subscribed care team
// gets its own listener.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	session domain.Session

	ctx    context.Context
	cancel context.CancelFunc

	listeners map[uuid.UUID]*realtime.Listener
	mu        sync.Mutex

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, session domain.Session) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	conn.SetReadLimit(maxMessageSize)
	return &Client{
		hub:       hub,
		conn:      conn,
		session:   session,
		ctx:       ctx,
		cancel:    cancel,
		listeners: make(map[uuid.UUID]*realtime.Listener),
		send:      make(chan []byte, sendBufSize),
		done:      make(chan struct{}),
	}
}

// Subscriptions returns the care teams this client listens to.
func (c *Client) Subscriptions() []uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	return ids
}

// Subscribe starts a listener for careTeamID. Subscribing twice restarts it,
// which also delivers a fresh snapshot.
func (c *Client) Subscribe(careTeamID uuid.UUID) error {
	if err := c.hub.members.RequireMember(c.ctx, c.session, careTeamID); err != nil {
		return err
	}

	c.mu.Lock()
	l, ok := c.listeners[careTeamID]
	if !ok {
		l = c.hub.newListener(c)
		c.listeners[careTeamID] = l
	}
	c.mu.Unlock()

	if err := l.Start(c.ctx, careTeamID); err != nil {
		c.mu.Lock()
		delete(c.listeners, careTeamID)
		c.mu.Unlock()
		return err
	}
	return nil
}

// Unsubscribe stops the listener for careTeamID.
func (c *Client) Unsubscribe(careTeamID uuid.UUID) {
	c.mu.Lock()
	l, ok := c.listeners[careTeamID]
	delete(c.listeners, careTeamID)
	c.mu.Unlock()

	if ok {
		l.Stop()
	}
}

func (c *Client) stopAll() {
	c.mu.Lock()
	ls := c.listeners
	c.listeners = make(map[uuid.UUID]*realtime.Listener)
	c.mu.Unlock()

	for _, l := range ls {
		l.Stop()
	}
}

// close ends the connection's pumps. Safe to call more than once.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.done)
	})
}

// ReadPump reads client events until the connection drops.
func (c *Client) ReadPump() {
	defer func() {
		c.stopAll()
		select {
		case c.hub.unregister <- c:
		case <-c.done:
		case <-c.hub.stopped:
		}
		c.close()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var event Event
		err := wsjson.Read(c.ctx, c.conn, &event)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				c.hub.logger.Debug("ws client closed", "profile_id", c.session.ProfileID)
			} else {
				c.hub.logger.Warn("ws read error", "profile_id", c.session.ProfileID, "error", err)
			}
			return
		}

		c.handleEvent(&event)
	}
}

// WritePump writes queued events and keeps the connection alive.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message := <-c.send:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				c.hub.logger.Warn("ws write error", "profile_id", c.session.ProfileID, "error", err)
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				c.hub.logger.Warn("ws ping error", "profile_id", c.session.ProfileID, "error", err)
				return
			}

		case <-c.done:
			return
		}
	}
}

// handleEvent routes an incoming client event.
func (c *Client) handleEvent(event *Event) {
	switch event.Type {
	case EventTypeCareTeamSubscribe:
		var p CareTeamPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil || p.CareTeamID == uuid.Nil {
			c.sendError("INVALID_PAYLOAD", "invalid care_team.subscribe payload")
			return
		}
		if err := c.Subscribe(p.CareTeamID); err != nil {
			switch {
			case errors.Is(err, service.ErrNotMember), errors.Is(err, service.ErrCareTeamNotFound):
				c.sendError("FORBIDDEN", "You are not a member of this care team")
			default:
				c.hub.logger.Error("ws subscribe failed", "care_team_id", p.CareTeamID, "error", err)
				c.sendError("SUBSCRIBE_FAILED", "Could not load this care team")
			}
			return
		}
		c.hub.logger.Debug("ws subscribed", "profile_id", c.session.ProfileID, "care_team_id", p.CareTeamID)

	case EventTypeCareTeamUnsubscribe:
		var p CareTeamPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid care_team.unsubscribe payload")
			return
		}
		c.Unsubscribe(p.CareTeamID)

	case EventTypePing:
		c.sendPong()

	default:
		c.sendError("UNKNOWN_EVENT", "unknown event type: "+event.Type)
	}
}

// emit queues a server event. A full buffer drops it; the next snapshot
// carries the state anyway.
func (c *Client) emit(eventType string, careTeamID *uuid.UUID, payload any) {
	evt, err := NewEvent(eventType, careTeamID, payload)
	if err != nil {
		c.hub.logger.Error("ws marshal error", "type", eventType, "error", err)
		return
	}
	c.queue(evt)
}

func (c *Client) queue(evt *Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	default:
		c.hub.logger.Warn("ws send buffer full, dropping event", "profile_id", c.session.ProfileID, "type", evt.Type)
	}
}

func (c *Client) sendPong() {
	c.queue(&Event{Type: EventTypePong, Timestamp: time.Now().Unix()})
}

func (c *Client) sendError(code, message string) {
	c.emit(EventTypeError, nil, ErrorPayload{Code: code, Message: message})
}
