package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"sitechat-backend/internal/models"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TokenParser resolves a session token to its session id.
type TokenParser interface {
	ParseToken(token string) (uuid.UUID, error)
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub fans session events out to the websocket connections of that session.
// With Redis configured, events travel through pub/sub so any instance can
// serve the socket; without it they are delivered in process.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID][]*client
	cancelFuncs map[uuid.UUID]context.CancelFunc
	publisher   *redis.Client
	subscriber  *redis.Client
	tokens      TokenParser
	exists      func(uuid.UUID) bool
}

// NewHub accepts nil Redis clients.
func NewHub(publisher, subscriber *redis.Client, tokens TokenParser) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID][]*client),
		cancelFuncs: make(map[uuid.UUID]context.CancelFunc),
		publisher:   publisher,
		subscriber:  subscriber,
		tokens:      tokens,
	}
}

// SetSessionLookup makes the hub refuse sockets for sessions the lookup does
// not know, such as deleted or evicted ones. Call it before serving.
func (h *Hub) SetSessionLookup(exists func(uuid.UUID) bool) {
	h.exists = exists
}

func sessionChannel(sessionID uuid.UUID) string {
	return "session_updates:" + sessionID.String()
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on websocket requests
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	sessionID, err := h.tokens.ParseToken(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if h.exists != nil && !h.exists(sessionID) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn}
	h.registerConnection(sessionID, c)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(sessionID, c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// Publish implements session.Publisher.
func (h *Hub) Publish(ctx context.Context, sessionID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to encode %s event for session %s: %v", msg.Type, sessionID, err)
		return
	}

	if h.publisher != nil {
		err := h.publisher.Publish(ctx, sessionChannel(sessionID), data).Err()
		if err == nil {
			return
		}
		log.Printf("Redis publish failed for session %s, delivering locally: %v", sessionID, err)
	}

	h.broadcast(sessionID, data)
}

func (h *Hub) ConnectionCount(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[sessionID])
}

// Disconnect closes every socket of a session, e.g. after it was deleted or
// evicted.
func (h *Hub) Disconnect(sessionID uuid.UUID) {
	h.mu.RLock()
	clients := append([]*client(nil), h.connections[sessionID]...)
	h.mu.RUnlock()

	for _, c := range clients {
		c.conn.Close()
	}
}

func (h *Hub) registerConnection(sessionID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[sessionID] = append(h.connections[sessionID], c)

	// Start pub/sub subscription if this is the first connection for this session
	if len(h.connections[sessionID]) == 1 && h.subscriber != nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[sessionID] = cancel
		go h.subscribeToPubSub(ctx, sessionID)
	}

	log.Printf("WebSocket connected: session %s (total: %d)", sessionID, len(h.connections[sessionID]))
}

func (h *Hub) unregisterConnection(sessionID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.conn.Close()

	clients := h.connections[sessionID]
	for i, existing := range clients {
		if existing == c {
			h.connections[sessionID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}

	if len(h.connections[sessionID]) == 0 {
		delete(h.connections, sessionID)
		if cancel, ok := h.cancelFuncs[sessionID]; ok {
			cancel()
			delete(h.cancelFuncs, sessionID)
		}
	}

	log.Printf("WebSocket disconnected: session %s", sessionID)
}

func (h *Hub) subscribeToPubSub(ctx context.Context, sessionID uuid.UUID) {
	pubsub := h.subscriber.Subscribe(ctx, sessionChannel(sessionID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(sessionID, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(sessionID uuid.UUID, data []byte) {
	h.mu.RLock()
	clients := append([]*client(nil), h.connections[sessionID]...)
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			log.Printf("WebSocket write failed for session %s: %v", sessionID, err)
		}
	}
}
