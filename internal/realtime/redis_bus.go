package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vedran77/careteam/internal/domain"
)

var _ Bus = (*RedisBus)(nil)

// RedisBus publishes JSON-encoded events on one pub/sub channel per care team,
// so every server process sees every write.
type RedisBus struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisBus(client *redis.Client, logger *slog.Logger) *RedisBus {
	return &RedisBus{client: client, logger: logger}
}

// DialRedis parses url and pings the server.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func (b *RedisBus) Publish(ctx context.Context, evt domain.ChangeEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	if err := b.client.Publish(ctx, ChannelName(evt.CareTeamID), data).Err(); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, careTeamID uuid.UUID) (Subscription, error) {
	ps := b.client.Subscribe(ctx, ChannelName(careTeamID))
	// Wait for the confirmation so no publish after Subscribe returns is missed.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", ChannelName(careTeamID), err)
	}

	sub := &redisSubscription{
		ps:     ps,
		out:    make(chan domain.ChangeEvent, defaultSubscriptionBuffer),
		done:   make(chan struct{}),
		logger: b.logger,
	}
	sub.wg.Add(1)
	go sub.forward()
	return sub, nil
}

type redisSubscription struct {
	ps     *redis.PubSub
	out    chan domain.ChangeEvent
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	logger *slog.Logger
}

func (s *redisSubscription) forward() {
	defer s.wg.Done()
	defer close(s.out)

	for msg := range s.ps.Channel() {
		var evt domain.ChangeEvent
		if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
			s.logger.Warn("discarding malformed change event", "channel", msg.Channel, "error", err)
			continue
		}
		select {
		case s.out <- evt:
		case <-s.done:
			return
		}
	}
}

func (s *redisSubscription) Events() <-chan domain.ChangeEvent {
	return s.out
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
		s.wg.Wait()
	})
	return err
}
