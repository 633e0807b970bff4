package realtime

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/careteam/internal/domain"
)

type cacheFixture struct {
	team uuid.UUID
	t0   time.Time
}

func newCacheFixture() cacheFixture {
	return cacheFixture{team: uuid.New(), t0: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (f cacheFixture) msg(content string, parent *uuid.UUID, at time.Time) domain.Message {
	return domain.Message{
		ID: uuid.New(), CareTeamID: f.team, Content: content, Type: domain.MessageTypeMessage,
		ParentID: parent, CreatedAt: at, UpdatedAt: at,
		Attachments: []domain.MessageAttachment{}, Reactions: []domain.MessageReaction{},
	}
}

func (f cacheFixture) upsert(m domain.Message, at time.Time) domain.ChangeEvent {
	mm := m
	return domain.ChangeEvent{Op: domain.ChangeUpdate, Table: domain.TableMessages, CareTeamID: f.team,
		MessageID: m.ID, ParentID: m.ParentID, Message: &mm, OccurredAt: at}
}

func TestThreadCache_ResetAndThreads(t *testing.T) {
	f := newCacheFixture()
	top := f.msg("top", nil, f.t0)
	r1 := f.msg("r1", &top.ID, f.t0.Add(time.Minute))
	r2 := f.msg("r2", &top.ID, f.t0.Add(2*time.Minute))

	c := NewThreadCache(f.team)
	c.Reset([]domain.Thread{domain.NewThread(top, []domain.Message{r2, r1})}, f.t0)

	threads := c.Threads()
	require.Len(t, threads, 1)
	assert.Equal(t, 2, threads[0].ReplyCount)
	assert.Equal(t, r1.ID, threads[0].Replies[0].ID)
	assert.Equal(t, 3, c.Len())
}

func TestThreadCache_InsertAndOrdering(t *testing.T) {
	f := newCacheFixture()
	c := NewThreadCache(f.team)
	old := f.msg("old", nil, f.t0)
	c.Reset([]domain.Thread{domain.NewThread(old, nil)}, f.t0)

	newer := f.msg("newer", nil, f.t0.Add(time.Hour))
	changed, refetch := c.Apply(f.upsert(newer, f.t0.Add(time.Hour)))
	assert.True(t, changed)
	assert.False(t, refetch)

	pinned := old
	pinned.IsPinned = true
	changed, _ = c.Apply(f.upsert(pinned, f.t0.Add(2*time.Hour)))
	assert.True(t, changed)

	threads := c.Threads()
	require.Len(t, threads, 2)
	assert.Equal(t, old.ID, threads[0].ID)
	assert.Equal(t, newer.ID, threads[1].ID)
}

func TestThreadCache_LastWriteWins(t *testing.T) {
	f := newCacheFixture()
	c := NewThreadCache(f.team)
	m := f.msg("v1", nil, f.t0)
	c.Reset([]domain.Thread{domain.NewThread(m, nil)}, f.t0)

	v3 := m
	v3.Content = "v3"
	changed, _ := c.Apply(f.upsert(v3, f.t0.Add(3*time.Second)))
	assert.True(t, changed)

	v2 := m
	v2.Content = "v2"
	changed, _ = c.Apply(f.upsert(v2, f.t0.Add(2*time.Second)))
	assert.False(t, changed, "older event must not overwrite newer state")
	assert.Equal(t, "v3", c.Threads()[0].Content)
}

func TestThreadCache_DeleteRemovesThreadAndReplies(t *testing.T) {
	f := newCacheFixture()
	c := NewThreadCache(f.team)
	top := f.msg("top", nil, f.t0)
	reply := f.msg("reply", &top.ID, f.t0)
	c.Reset([]domain.Thread{domain.NewThread(top, []domain.Message{reply})}, f.t0)

	changed, refetch := c.Apply(domain.ChangeEvent{Op: domain.ChangeDelete, Table: domain.TableMessages,
		CareTeamID: f.team, MessageID: top.ID, OccurredAt: f.t0.Add(time.Second)})
	assert.True(t, changed)
	assert.False(t, refetch)
	assert.Empty(t, c.Threads())
	assert.Equal(t, 0, c.Len())

	// a late update for the deleted message stays dead
	changed, _ = c.Apply(f.upsert(top, f.t0))
	assert.False(t, changed)
	assert.Empty(t, c.Threads())
}

func TestThreadCache_NeedsRefetch(t *testing.T) {
	f := newCacheFixture()
	c := NewThreadCache(f.team)
	c.Reset(nil, f.t0)

	_, refetch := c.Apply(domain.ChangeEvent{Op: domain.ChangeInsert, Table: domain.TableReactions,
		CareTeamID: f.team, MessageID: uuid.New(), OccurredAt: f.t0.Add(time.Second)})
	assert.True(t, refetch, "no payload")

	orphanParent := uuid.New()
	_, refetch = c.Apply(f.upsert(f.msg("reply", &orphanParent, f.t0), f.t0.Add(time.Second)))
	assert.True(t, refetch, "reply to unknown thread")
}

func TestThreadCache_IgnoresOtherTeams(t *testing.T) {
	f := newCacheFixture()
	c := NewThreadCache(f.team)
	other := newCacheFixture()

	changed, refetch := c.Apply(other.upsert(other.msg("x", nil, other.t0), other.t0))
	assert.False(t, changed)
	assert.False(t, refetch)
}
