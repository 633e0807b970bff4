package realtime

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/careteam/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func receive(t *testing.T, sub Subscription) domain.ChangeEvent {
	t.Helper()
	select {
	case evt, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return domain.ChangeEvent{}
	}
}

func TestChannelName(t *testing.T) {
	id := uuid.MustParse("6f1f5c1e-8d2b-4c62-9a43-0d6c1c0f9a11")
	assert.Equal(t, "careteam:6f1f5c1e-8d2b-4c62-9a43-0d6c1c0f9a11:changes", ChannelName(id))
}

func TestMemoryBus_FanOutPerTeam(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(discardLogger())
	teamA, teamB := uuid.New(), uuid.New()

	a1, err := bus.Subscribe(ctx, teamA)
	require.NoError(t, err)
	a2, err := bus.Subscribe(ctx, teamA)
	require.NoError(t, err)
	b1, err := bus.Subscribe(ctx, teamB)
	require.NoError(t, err)
	assert.Equal(t, 2, bus.Subscribers(teamA))

	evt := domain.ChangeEvent{Op: domain.ChangeInsert, Table: domain.TableMessages, CareTeamID: teamA, MessageID: uuid.New()}
	require.NoError(t, bus.Publish(ctx, evt))

	assert.Equal(t, evt.MessageID, receive(t, a1).MessageID)
	assert.Equal(t, evt.MessageID, receive(t, a2).MessageID)
	select {
	case <-b1.Events():
		t.Fatal("team B must not see team A events")
	default:
	}

	require.NoError(t, a1.Close())
	require.NoError(t, a1.Close())
	_, ok := <-a1.Events()
	assert.False(t, ok)
	assert.Equal(t, 1, bus.Subscribers(teamA))
}

func TestMemoryBus_DropsForSlowSubscriber(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(discardLogger())
	team := uuid.New()

	sub, err := bus.Subscribe(ctx, team)
	require.NoError(t, err)
	defer sub.Close()

	for range defaultSubscriptionBuffer + 10 {
		require.NoError(t, bus.Publish(ctx, domain.ChangeEvent{CareTeamID: team}))
	}
	assert.Len(t, sub.Events(), defaultSubscriptionBuffer)
}

func TestRedisBus_PublishSubscribe(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	bus := NewRedisBus(client, discardLogger())
	team := uuid.New()

	sub, err := bus.Subscribe(ctx, team)
	require.NoError(t, err)

	msgID := uuid.New()
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	evt := domain.ChangeEvent{
		Op: domain.ChangeUpdate, Table: domain.TableReactions, CareTeamID: team, MessageID: msgID,
		Message:    &domain.Message{ID: msgID, CareTeamID: team, Content: "hi", Type: domain.MessageTypeMessage},
		OccurredAt: at,
	}
	require.NoError(t, bus.Publish(ctx, evt))

	got := receive(t, sub)
	assert.Equal(t, domain.ChangeUpdate, got.Op)
	assert.Equal(t, domain.TableReactions, got.Table)
	require.NotNil(t, got.Message)
	assert.Equal(t, "hi", got.Message.Content)
	assert.True(t, at.Equal(got.OccurredAt))

	require.NoError(t, sub.Close())
	assert.NoError(t, sub.Close())
	_, ok := <-sub.Events()
	assert.False(t, ok)
}

func TestDialRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := DialRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	client.Close()

	_, err = DialRedis(context.Background(), "://bad")
	assert.Error(t, err)
}

func TestBusNotifier_LogsAndSwallowsErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	t.Cleanup(func() { client.Close() })

	n := NewBusNotifier(NewRedisBus(client, discardLogger()), discardLogger())
	assert.NotPanics(t, func() {
		n.Notify(context.Background(), domain.ChangeEvent{CareTeamID: uuid.New()})
	})
}
