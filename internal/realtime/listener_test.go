package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/careteam/internal/domain"
)

// snapshotRecorder collects OnSnapshot deliveries.
type snapshotRecorder struct {
	mu    sync.Mutex
	snaps [][]domain.Thread
	ch    chan struct{}
}

func newRecorder() *snapshotRecorder {
	return &snapshotRecorder{ch: make(chan struct{}, 100)}
}

func (r *snapshotRecorder) record(_ uuid.UUID, threads []domain.Thread) {
	r.mu.Lock()
	r.snaps = append(r.snaps, threads)
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *snapshotRecorder) wait(t *testing.T) []domain.Thread {
	t.Helper()
	select {
	case <-r.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snaps[len(r.snaps)-1]
}

type fakeFetcher struct {
	mu      sync.Mutex
	threads map[uuid.UUID][]domain.Thread
	err     error
	calls   atomic.Int32
}

func (f *fakeFetcher) fetch(_ context.Context, team uuid.UUID) ([]domain.Thread, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.threads[team], nil
}

func (f *fakeFetcher) set(team uuid.UUID, threads []domain.Thread) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads[team] = threads
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeReconcile, m)

	m, err = ParseMode("REFETCH")
	require.NoError(t, err)
	assert.Equal(t, ModeRefetch, m)

	_, err = ParseMode("poll")
	assert.Error(t, err)
}

func TestListener_ReconcileAppliesPayloadWithoutRefetch(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(discardLogger())
	f := newCacheFixture()
	top := f.msg("top", nil, f.t0)
	fetcher := &fakeFetcher{threads: map[uuid.UUID][]domain.Thread{f.team: {domain.NewThread(top, nil)}}}
	rec := newRecorder()

	l := NewListener(bus, fetcher.fetch, ListenerOptions{
		Mode:       ModeReconcile,
		OnSnapshot: rec.record,
		Logger:     discardLogger(),
		Now:        func() time.Time { return f.t0 },
	})
	require.NoError(t, l.Start(ctx, f.team))
	defer l.Stop()

	initial := rec.wait(t)
	require.Len(t, initial, 1)

	reply := f.msg("reply", &top.ID, f.t0.Add(time.Minute))
	evt := f.upsert(reply, f.t0.Add(time.Minute))
	evt.Op = domain.ChangeInsert
	require.NoError(t, bus.Publish(ctx, evt))

	snap := rec.wait(t)
	require.Len(t, snap, 1)
	assert.Equal(t, 1, snap[0].ReplyCount)
	assert.Equal(t, int32(1), fetcher.calls.Load(), "payload events must not refetch")
}

func TestListener_ReconcileRefetchesWithoutPayload(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(discardLogger())
	f := newCacheFixture()
	fetcher := &fakeFetcher{threads: map[uuid.UUID][]domain.Thread{}}
	rec := newRecorder()

	l := NewListener(bus, fetcher.fetch, ListenerOptions{OnSnapshot: rec.record, Logger: discardLogger()})
	require.NoError(t, l.Start(ctx, f.team))
	defer l.Stop()
	assert.Empty(t, rec.wait(t))

	fetcher.set(f.team, []domain.Thread{domain.NewThread(f.msg("new", nil, f.t0), nil)})
	require.NoError(t, bus.Publish(ctx, domain.ChangeEvent{Op: domain.ChangeInsert, Table: domain.TableMessages,
		CareTeamID: f.team, MessageID: uuid.New(), OccurredAt: time.Now()}))

	snap := rec.wait(t)
	assert.Len(t, snap, 1)
	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestListener_RefetchModeReloadsOnEveryEvent(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(discardLogger())
	f := newCacheFixture()
	top := f.msg("top", nil, f.t0)
	fetcher := &fakeFetcher{threads: map[uuid.UUID][]domain.Thread{f.team: {domain.NewThread(top, nil)}}}
	rec := newRecorder()
	var seen atomic.Int32

	l := NewListener(bus, fetcher.fetch, ListenerOptions{
		Mode:       ModeRefetch,
		OnSnapshot: rec.record,
		OnEvent:    func(domain.ChangeEvent) { seen.Add(1) },
		Logger:     discardLogger(),
	})
	require.NoError(t, l.Start(ctx, f.team))
	defer l.Stop()
	rec.wait(t)

	require.NoError(t, bus.Publish(ctx, f.upsert(top, time.Now())))
	rec.wait(t)
	assert.Equal(t, int32(2), fetcher.calls.Load())
	assert.Equal(t, int32(1), seen.Load())
}

func TestListener_RestartClosesPreviousSubscription(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(discardLogger())
	teamA, teamB := uuid.New(), uuid.New()
	fetcher := &fakeFetcher{threads: map[uuid.UUID][]domain.Thread{}}

	l := NewListener(bus, fetcher.fetch, ListenerOptions{Logger: discardLogger()})
	require.NoError(t, l.Start(ctx, teamA))
	assert.Equal(t, 1, bus.Subscribers(teamA))

	require.NoError(t, l.Start(ctx, teamA))
	assert.Equal(t, 1, bus.Subscribers(teamA), "remount must not leak a subscription")

	require.NoError(t, l.Start(ctx, teamB))
	assert.Equal(t, 0, bus.Subscribers(teamA))
	assert.Equal(t, 1, bus.Subscribers(teamB))
	assert.Equal(t, teamB, l.CareTeamID())

	l.Stop()
	assert.Equal(t, 0, bus.Subscribers(teamB))
	assert.Equal(t, uuid.Nil, l.CareTeamID())
	l.Stop()
}

func TestListener_InitialFetchFailureReleasesSubscription(t *testing.T) {
	bus := NewMemoryBus(discardLogger())
	team := uuid.New()
	fetcher := &fakeFetcher{threads: map[uuid.UUID][]domain.Thread{}, err: errors.New("db down")}

	l := NewListener(bus, fetcher.fetch, ListenerOptions{Logger: discardLogger()})
	err := l.Start(context.Background(), team)
	assert.Error(t, err)
	assert.Equal(t, 0, bus.Subscribers(team))
}

func TestListener_RefetchFailureKeepsPreviousState(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(discardLogger())
	f := newCacheFixture()
	top := f.msg("top", nil, f.t0)
	fetcher := &fakeFetcher{threads: map[uuid.UUID][]domain.Thread{f.team: {domain.NewThread(top, nil)}}}
	rec := newRecorder()

	l := NewListener(bus, fetcher.fetch, ListenerOptions{Mode: ModeRefetch, OnSnapshot: rec.record, Logger: discardLogger()})
	require.NoError(t, l.Start(ctx, f.team))
	defer l.Stop()
	rec.wait(t)

	fetcher.mu.Lock()
	fetcher.err = errors.New("timeout")
	fetcher.mu.Unlock()

	require.NoError(t, bus.Publish(ctx, f.upsert(top, time.Now())))
	require.Eventually(t, func() bool { return fetcher.calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)

	select {
	case <-rec.ch:
		t.Fatal("failed refetch must not emit a snapshot")
	case <-time.After(50 * time.Millisecond):
	}
}
