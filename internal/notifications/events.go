package notifications

import (
	"context"
	"log/slog"

	"anchorage/internal/logging"
	"anchorage/internal/supervisor"
)

// LoopEvents adapts a Service to the loop's fire-and-forget notifier shape.
// Delivery failures are logged and swallowed; notifications never stall a
// cycle.
type LoopEvents struct {
	svc    Service
	logger *slog.Logger
}

// NewLoopEvents builds the loop adapter.
func NewLoopEvents(svc Service, logger *slog.Logger) *LoopEvents {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LoopEvents{svc: svc, logger: logging.NewComponentLogger(logger, "notifications")}
}

func (l *LoopEvents) NodeOnline(ctx context.Context, state supervisor.State) {
	if err := l.svc.NotifyNodeOnline(ctx, state.PeerID, state.Multiaddress); err != nil {
		l.logger.Warn("node online notification failed", logging.Error(err))
	}
}

func (l *LoopEvents) QueueProcessed(ctx context.Context, done, failed int) {
	if err := l.svc.NotifyQueueProcessed(ctx, done, failed); err != nil {
		l.logger.Warn("queue notification failed", logging.Error(err))
	}
}

func (l *LoopEvents) SnapshotPublished(ctx context.Context) {
	if err := l.svc.NotifySnapshotPublished(ctx, "", false); err != nil {
		l.logger.Warn("snapshot notification failed", logging.Error(err))
	}
}
