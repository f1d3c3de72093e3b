package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// RecipientID records the notification recipient under the key "recipient_id".
func RecipientID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("recipient_id", id)
}

// NotificationID records the notification identifier under the key
// "notification_id".
func NotificationID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("notification_id", id)
}

// ChannelName records a delivery channel under the key "channel".
func ChannelName(ch string) slog.Attr {
	if ch == "" {
		return slog.Attr{}
	}
	return slog.String("channel", ch)
}

// Component records the emitting subsystem component under the key
// "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
