package api

import (
	"context"
	"time"

	"github.com/example/task-tracker/modules/activity"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
)

// snapshotTimeout bounds the feed read done while the hub holds a registration.
const snapshotTimeout = 5 * time.Second

// StreamHandler serves the live activity WebSocket. Each connection first
// receives a snapshot of the feed, then every new entry for its owner.
type StreamHandler struct {
	hub             *activity.Hub
	newClientID     func() string
	activityAdapter activity.ActivityPort
	snapshotSize    int
	logger          types.Logger
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(hub *activity.Hub, newClientID func() string, activityAdapter activity.ActivityPort, logger types.Logger) *StreamHandler {
	return &StreamHandler{
		hub:             hub,
		newClientID:     newClientID,
		activityAdapter: activityAdapter,
		snapshotSize:    defaultActivityLimit,
		logger:          logger,
	}
}

// HandleWebSocket handles WebSocket connections.
func (s *StreamHandler) HandleWebSocket(c *websocket.Conn) {
	userID, _ := c.Locals(UserIDContextKey).(string)
	client := &activity.Client{
		ID:    s.newClientID(),
		Owner: userID,
		Conn:  c,
	}
	// The hub writes the snapshot as part of registration, so no entry
	// recorded in between is missed.
	client.Greeting = func() (any, error) {
		return s.snapshot(userID)
	}

	s.hub.Register(client)
	s.logger.Info("WebSocket connected", "clientID", client.ID, "userID", userID)

	defer func() {
		s.hub.Unregister(client)
		_ = c.Close()
		s.logger.Info("WebSocket disconnected", "clientID", client.ID, "userID", userID)
	}()

	// Clients only listen; reading detects the close.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("WebSocket error", "clientID", client.ID, "error", err)
			}
			return
		}
	}
}

func (s *StreamHandler) snapshot(userID string) (SnapshotMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	entries, err := s.activityAdapter.ListActivity(ctx, userID, s.snapshotSize)
	if err != nil {
		return SnapshotMessage{}, err
	}
	if entries == nil {
		entries = []activity.Entry{}
	}
	return SnapshotMessage{Type: "snapshot", Entries: entries}, nil
}
