package realtime

import (
	"context"
	"log/slog"

	"github.com/vedran77/careteam/internal/domain"
)

// BusNotifier publishes service write notifications on a Bus. Publish
// failures are logged; the write they describe has already committed.
type BusNotifier struct {
	bus    Bus
	logger *slog.Logger
}

func NewBusNotifier(bus Bus, logger *slog.Logger) *BusNotifier {
	return &BusNotifier{bus: bus, logger: logger}
}

func (n *BusNotifier) Notify(ctx context.Context, evt domain.ChangeEvent) {
	if err := n.bus.Publish(ctx, evt); err != nil {
		n.logger.Warn("failed to publish change event",
			"care_team_id", evt.CareTeamID, "table", evt.Table, "op", evt.Op, "error", err)
	}
}
