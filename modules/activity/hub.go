package activity

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
)

// Conn is the part of a WebSocket connection the hub writes to.
// *websocket.Conn satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one connected WebSocket, subscribed to its owner's entries.
type Client struct {
	ID    string
	Owner string
	Conn  Conn
	// Greeting, when set, is called on the hub goroutine at registration and
	// its result is written before any broadcast reaches the client. An
	// error closes the connection instead of registering it.
	Greeting func() (any, error)
}

type broadcastMessage struct {
	owner   string
	payload any
}

// Hub fans feed entries out to each owner's connections. All writes to a
// registered connection happen on the hub goroutine.
type Hub struct {
	clients    map[string]*Client
	owners     map[string]map[string]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMessage
	done       chan struct{}
	mu         sync.RWMutex
	logger     types.Logger
}

// NewHub creates a new Hub.
func NewHub(logger types.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		owners:     make(map[string]map[string]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMessage, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registrations and broadcasts until ctx is cancelled, then
// closes every connection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAllClients()
			close(h.done)
			return
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case msg := <-h.broadcast:
			h.handleBroadcast(msg)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

// Register subscribes client to its owner's entries.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes client.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues payload for every connection of owner.
func (h *Hub) Broadcast(owner string, payload any) {
	select {
	case h.broadcast <- &broadcastMessage{owner: owner, payload: payload}:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// OwnerClientCount returns the number of connections subscribed for owner.
func (h *Hub) OwnerClientCount(owner string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.owners[owner])
}

func (h *Hub) handleRegister(client *Client) {
	if client.Greeting != nil {
		if err := h.greet(client); err != nil {
			h.logger.Warn("Failed to greet activity client", "clientID", client.ID, "error", err)
			_ = client.Conn.Close()
			return
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	if h.owners[client.Owner] == nil {
		h.owners[client.Owner] = make(map[string]bool)
	}
	h.owners[client.Owner][client.ID] = true
	h.logger.Debug("Activity client registered", "clientID", client.ID, "owner", client.Owner)
}

func (h *Hub) greet(client *Client) error {
	payload, err := client.Greeting()
	if err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return client.Conn.WriteMessage(websocket.TextMessage, data)
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	if ids := h.owners[client.Owner]; ids != nil {
		delete(ids, client.ID)
		if len(ids) == 0 {
			delete(h.owners, client.Owner)
		}
	}
	h.logger.Debug("Activity client unregistered", "clientID", client.ID, "owner", client.Owner)
}

func (h *Hub) handleBroadcast(msg *broadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(msg.payload)
	if err != nil {
		h.logger.Error("Failed to marshal activity message", "error", err)
		return
	}

	for id := range h.owners[msg.owner] {
		client := h.clients[id]
		if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Warn("Failed to send activity to client", "clientID", id, "error", err)
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		_ = client.Conn.Close()
	}
	h.clients = make(map[string]*Client)
	h.owners = make(map[string]map[string]bool)
}
