package channel

import (
	"context"
	"log/slog"

	"github.com/bookwell/notify/pkg/logger"
	"github.com/bookwell/notify/pkg/notify"
)

// DevAdapter implements a channel adapter for local development: it logs
// each send instead of calling a provider, so the full dispatch path can be
// exercised without credentials.
type DevAdapter struct {
	channel notify.Channel
	logger  *slog.Logger
}

// NewDevAdapter creates a logging adapter for the given channel.
func NewDevAdapter(ch notify.Channel, log *slog.Logger) *DevAdapter {
	if log == nil {
		log = slog.Default()
	}
	return &DevAdapter{channel: ch, logger: log}
}

func (a *DevAdapter) Channel() notify.Channel {
	return a.channel
}

func (a *DevAdapter) Send(ctx context.Context, n notify.Notification, contact notify.Contact) error {
	a.logger.LogAttrs(ctx, slog.LevelInfo, "dev adapter delivery",
		logger.ChannelName(string(a.channel)),
		logger.NotificationID(n.ID),
		logger.RecipientID(n.RecipientID),
		slog.String("title", n.Title),
	)
	return nil
}
