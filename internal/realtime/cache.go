package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/careteam/internal/domain"
)

type cacheEntry struct {
	msg     domain.Message
	version time.Time
}

// ThreadCache holds the last known state of one care team's messages, keyed
// by message id. Writes are last-write-wins on the event time, so an event
// that arrives late never overwrites newer state.
type ThreadCache struct {
	mu         sync.RWMutex
	careTeamID uuid.UUID
	entries    map[uuid.UUID]cacheEntry
	tombstones map[uuid.UUID]time.Time
}

func NewThreadCache(careTeamID uuid.UUID) *ThreadCache {
	return &ThreadCache{
		careTeamID: careTeamID,
		entries:    make(map[uuid.UUID]cacheEntry),
		tombstones: make(map[uuid.UUID]time.Time),
	}
}

// Reset replaces the cache with a fetched snapshot taken at fetchedAt.
func (c *ThreadCache) Reset(threads []domain.Thread, fetchedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[uuid.UUID]cacheEntry)
	c.tombstones = make(map[uuid.UUID]time.Time)
	for _, th := range threads {
		c.entries[th.ID] = cacheEntry{msg: th.Message, version: fetchedAt}
		for _, r := range th.Replies {
			c.entries[r.ID] = cacheEntry{msg: r, version: fetchedAt}
		}
	}
}

// Apply folds evt into the cache. changed reports whether visible state moved;
// needsRefetch reports that the event cannot be applied without a reload.
func (c *ThreadCache) Apply(evt domain.ChangeEvent) (changed, needsRefetch bool) {
	if evt.CareTeamID != c.careTeamID {
		return false, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if evt.Op == domain.ChangeDelete && evt.Table == domain.TableMessages {
		return c.remove(evt.MessageID, evt.OccurredAt), false
	}
	if evt.Message == nil {
		return false, true
	}

	id := evt.Message.ID
	if cur, ok := c.entries[id]; ok && cur.version.After(evt.OccurredAt) {
		return false, false
	}
	if at, ok := c.tombstones[id]; ok && !evt.OccurredAt.After(at) {
		return false, false
	}
	if evt.Message.ParentID != nil {
		if _, ok := c.entries[*evt.Message.ParentID]; !ok {
			// reply to a thread we have not seen
			return false, true
		}
	}

	delete(c.tombstones, id)
	c.entries[id] = cacheEntry{msg: *evt.Message, version: evt.OccurredAt}
	return true, false
}

// remove drops id and, for a top-level message, its replies. Caller holds mu.
func (c *ThreadCache) remove(id uuid.UUID, at time.Time) bool {
	if prev, ok := c.tombstones[id]; !ok || at.After(prev) {
		c.tombstones[id] = at
	}
	cur, ok := c.entries[id]
	if !ok || cur.version.After(at) {
		return false
	}
	delete(c.entries, id)
	if cur.msg.IsTopLevel() {
		for rid, e := range c.entries {
			if e.msg.ParentID != nil && *e.msg.ParentID == id {
				delete(c.entries, rid)
			}
		}
	}
	return true
}

// Threads assembles the cached messages in display order.
func (c *ThreadCache) Threads() []domain.Thread {
	c.mu.RLock()
	defer c.mu.RUnlock()

	top := []domain.Message{}
	replies := make(map[uuid.UUID][]domain.Message)
	for _, e := range c.entries {
		if e.msg.IsTopLevel() {
			top = append(top, e.msg)
			continue
		}
		replies[*e.msg.ParentID] = append(replies[*e.msg.ParentID], e.msg)
	}

	domain.SortTopLevel(top)
	threads := make([]domain.Thread, 0, len(top))
	for _, m := range top {
		rs := replies[m.ID]
		domain.SortReplies(rs)
		threads = append(threads, domain.NewThread(m, rs))
	}
	return threads
}

func (c *ThreadCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
