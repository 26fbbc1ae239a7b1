package notify

import (
	"context"
	"log/slog"

	"bizdir/pkg/requestcontext"
)

// LogNotifier writes notifications to the structured log. It is the default
// channel when no Redis is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, msg Notification) error {
	level := slog.LevelInfo
	if msg.Kind == KindFailure {
		level = slog.LevelWarn
	}
	n.logger.Log(ctx, level, "listing notification",
		"request_id", requestcontext.RequestID(ctx),
		"kind", msg.Kind,
		"title", msg.Title,
		"description", msg.Description,
		"action", msg.Action,
		"listing_id", msg.ListingID,
	)
	return nil
}
