package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bookwell/notify/pkg/logger"
)

// joinFrame is the first message a websocket client sends, declaring which
// recipient the connection represents. Authenticating that declaration is an
// upstream concern applied before the connection reaches this handler.
type joinFrame struct {
	RecipientID string `json:"recipient_id"`
}

const (
	joinDeadline  = 10 * time.Second
	writeDeadline = 5 * time.Second
)

// WSHandler bridges websocket connections onto a Bus. One connection is one
// endpoint: the client joins a recipient with its first frame and then
// receives that recipient's events as JSON until either side disconnects.
type WSHandler struct {
	bus      Bus
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// WSOption configures a WSHandler.
type WSOption func(*WSHandler)

// WithWSLogger sets the logger for the handler.
func WithWSLogger(log *slog.Logger) WSOption {
	return func(h *WSHandler) {
		h.logger = log
	}
}

// WithCheckOrigin overrides the websocket origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) WSOption {
	return func(h *WSHandler) {
		h.upgrader.CheckOrigin = fn
	}
}

// NewWSHandler creates a websocket bridge for the given bus.
func NewWSHandler(bus Bus, opts ...WSOption) *WSHandler {
	h := &WSHandler{
		bus:    bus,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.LogAttrs(r.Context(), slog.LevelWarn, "websocket upgrade failed",
			logger.Error(err),
		)
		return
	}
	defer conn.Close()

	// The join declaration must arrive first; anything else ends the
	// connection.
	_ = conn.SetReadDeadline(time.Now().Add(joinDeadline))
	var join joinFrame
	if err := conn.ReadJSON(&join); err != nil || join.RecipientID == "" {
		if err == nil {
			err = ErrJoinRequired
		}
		h.logger.LogAttrs(r.Context(), slog.LevelDebug, "websocket closed before join",
			logger.Error(err),
		)
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	ep, err := h.bus.Join(r.Context(), join.RecipientID)
	if err != nil {
		h.logger.LogAttrs(r.Context(), slog.LevelWarn, "websocket join rejected",
			logger.RecipientID(join.RecipientID),
			logger.Error(err),
		)
		return
	}
	defer ep.Close()

	// Drain client frames so pings and the close handshake are processed;
	// disconnect tears the endpoint down.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-ep.Events():
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.LogAttrs(r.Context(), slog.LevelDebug, "websocket write failed, dropping endpoint",
					logger.RecipientID(join.RecipientID),
					logger.Error(err),
				)
				return
			}
		}
	}
}
