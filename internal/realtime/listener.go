package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/careteam/internal/domain"
)

type Mode string

const (
	// ModeReconcile applies change payloads to a local cache.
	ModeReconcile Mode = "reconcile"
	// ModeRefetch reloads every thread on any change.
	ModeRefetch Mode = "refetch"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeReconcile:
		return ModeReconcile, nil
	case ModeRefetch:
		return ModeRefetch, nil
	default:
		return "", fmt.Errorf("unknown realtime mode %q", s)
	}
}

// FetchFunc loads the assembled threads of a care team.
type FetchFunc func(ctx context.Context, careTeamID uuid.UUID) ([]domain.Thread, error)

type ListenerOptions struct {
	Mode Mode
	// OnSnapshot receives the full thread list after the initial load and
	// after every change that moved visible state. Required.
	OnSnapshot func(careTeamID uuid.UUID, threads []domain.Thread)
	// OnEvent, when set, sees every raw event before it is applied.
	OnEvent func(evt domain.ChangeEvent)
	Logger  *slog.Logger
	Now     func() time.Time
}

// Listener keeps one care team's threads current. Start opens exactly one
// subscription; starting again or calling Stop closes the previous one.
type Listener struct {
	bus   Bus
	fetch FetchFunc
	opts  ListenerOptions

	mu     sync.Mutex
	teamID uuid.UUID
	sub    Subscription
	cache  *ThreadCache
	cancel context.CancelFunc
	done   chan struct{}
}

func NewListener(bus Bus, fetch FetchFunc, opts ListenerOptions) *Listener {
	if opts.Mode == "" {
		opts.Mode = ModeReconcile
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.OnSnapshot == nil {
		opts.OnSnapshot = func(uuid.UUID, []domain.Thread) {}
	}
	return &Listener{bus: bus, fetch: fetch, opts: opts}
}

// Start subscribes to careTeamID, delivers the initial snapshot and keeps
// delivering until Stop or ctx is done. The subscription is opened before the
// initial fetch so no write between the two is lost.
func (l *Listener) Start(ctx context.Context, careTeamID uuid.UUID) error {
	l.Stop()

	sub, err := l.bus.Subscribe(ctx, careTeamID)
	if err != nil {
		return fmt.Errorf("subscribe to care team %s: %w", careTeamID, err)
	}

	cache := NewThreadCache(careTeamID)
	fetchedAt := l.opts.Now()
	threads, err := l.fetch(ctx, careTeamID)
	if err != nil {
		sub.Close()
		return fmt.Errorf("initial fetch for care team %s: %w", careTeamID, err)
	}
	cache.Reset(threads, fetchedAt)
	l.opts.OnSnapshot(careTeamID, cache.Threads())

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	l.mu.Lock()
	l.teamID, l.sub, l.cache, l.cancel, l.done = careTeamID, sub, cache, cancel, done
	l.mu.Unlock()

	go l.run(runCtx, careTeamID, sub, cache, done)
	return nil
}

// Stop closes the current subscription and waits for delivery to finish.
func (l *Listener) Stop() {
	l.mu.Lock()
	sub, cancel, done := l.sub, l.cancel, l.done
	l.sub, l.cancel, l.done, l.cache = nil, nil, nil, nil
	l.mu.Unlock()

	if sub == nil {
		return
	}
	cancel()
	sub.Close()
	<-done
}

// CareTeamID returns the team currently listened to, or uuid.Nil.
func (l *Listener) CareTeamID() uuid.UUID {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sub == nil {
		return uuid.Nil
	}
	return l.teamID
}

func (l *Listener) run(ctx context.Context, teamID uuid.UUID, sub Subscription, cache *ThreadCache, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-sub.Events():
			if !ok {
				return
			}
			l.handle(ctx, teamID, cache, evt)
		}
	}
}

func (l *Listener) handle(ctx context.Context, teamID uuid.UUID, cache *ThreadCache, evt domain.ChangeEvent) {
	if l.opts.OnEvent != nil {
		l.opts.OnEvent(evt)
	}

	if l.opts.Mode == ModeRefetch {
		l.refetch(ctx, teamID, cache)
		return
	}

	changed, needsRefetch := cache.Apply(evt)
	switch {
	case needsRefetch:
		l.refetch(ctx, teamID, cache)
	case changed:
		l.opts.OnSnapshot(teamID, cache.Threads())
	}
}

func (l *Listener) refetch(ctx context.Context, teamID uuid.UUID, cache *ThreadCache) {
	fetchedAt := l.opts.Now()
	threads, err := l.fetch(ctx, teamID)
	if err != nil {
		if ctx.Err() == nil {
			l.opts.Logger.Warn("refetch after change failed, keeping previous threads",
				"care_team_id", teamID, "error", err)
		}
		return
	}
	cache.Reset(threads, fetchedAt)
	l.opts.OnSnapshot(teamID, cache.Threads())
}
