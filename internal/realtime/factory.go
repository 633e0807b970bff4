package realtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vedran77/careteam/internal/config"
)

// NewBusFromConfig builds the Bus selected by cfg.Realtime.Type. The returned
// close func releases backend connections.
func NewBusFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Bus, func() error, error) {
	switch cfg.Realtime.Type {
	case "memory":
		return NewMemoryBus(logger), func() error { return nil }, nil
	case "redis":
		client, err := DialRedis(ctx, cfg.Realtime.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisBus(client, logger), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown realtime type: %s", cfg.Realtime.Type)
	}
}
