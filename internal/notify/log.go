package notify

import (
	"context"
	"log/slog"

	"github.com/dshills/roomservice/pkg/types"
)

// LogBridge writes the kitchen message to the log instead of sending it.
// It is the dry-run channel used when no provider is configured.
type LogBridge struct {
	logger   *slog.Logger
	currency string
}

// NewLogBridge creates a LogBridge
func NewLogBridge(logger *slog.Logger, currency string) *LogBridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogBridge{logger: logger, currency: currency}
}

func (l *LogBridge) Channel() string { return ChannelLog }

func (l *LogBridge) Send(ctx context.Context, o *types.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.logger.InfoContext(ctx, "kitchen message",
		"action", "kitchen_notified",
		"order_id", o.ID,
		"order_no", o.OrderNo,
		"message", RenderKitchenMessage(o, l.currency))
	return nil
}

func (l *LogBridge) Close() error { return nil }
