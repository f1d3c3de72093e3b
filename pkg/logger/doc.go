// Package logger builds the subsystem's slog loggers and provides typed
// attribute helpers so that recipient ids, notification ids, and channel
// names are logged under consistent keys everywhere.
//
//	log := logger.New(logger.WithFormat(logger.FormatText), logger.WithLevel(slog.LevelDebug))
//	log.LogAttrs(ctx, slog.LevelWarn, "channel delivery failed",
//	    logger.NotificationID(id),
//	    logger.ChannelName("email"),
//	    logger.Error(err),
//	)
package logger
