// ===============================
// internal/websocket/manager.go - WebSocket Connection Manager
// ===============================

package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"dramafeed/internal/logging"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
	maxMessage   = 4096
	sendBuffer   = 32
)

// Handler is called for every inbound message on a client
type Handler func(client *Client, payload []byte)

// ===============================
// CLIENT CONNECTION
// ===============================

type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte

	mutex  sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{
		ID:   uuid.New().String(),
		Conn: conn,
		Send: make(chan []byte, sendBuffer),
	}
}

// SendJSON queues v for the client; it reports false when the client is gone or too slow.
func (c *Client) SendJSON(v interface{}) bool {
	data, err := json.Marshal(v)
	if err != nil {
		return false
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

func (c *Client) readPump(handle Handler) {
	logger := logging.WithComponent("ws")

	c.Conn.SetReadLimit(maxMessage)
	_ = c.Conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug().Err(err).Str("client", c.ID).Msg("WebSocket read ended")
			}
			return
		}
		_ = c.Conn.SetReadDeadline(time.Now().Add(readTimeout))
		handle(c, message)
	}
}

// writePump owns all writes to the connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ===============================
// WEBSOCKET MANAGER
// ===============================

type Manager struct {
	clients map[string]*Client
	mutex   sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{clients: make(map[string]*Client)}
}

// Serve registers conn and blocks until the client disconnects.
// onOpen runs after registration and before the first read.
func (m *Manager) Serve(conn *websocket.Conn, onOpen func(*Client), handle Handler) {
	client := newClient(conn)
	m.register(client)

	written := make(chan struct{})
	go func() {
		defer close(written)
		client.writePump()
	}()

	if onOpen != nil {
		onOpen(client)
	}
	client.readPump(handle)

	m.unregister(client)
	<-written
}

func (m *Manager) register(client *Client) {
	m.mutex.Lock()
	m.clients[client.ID] = client
	m.mutex.Unlock()

	logger := logging.WithComponent("ws")
	logger.Debug().Str("client", client.ID).Msg("client registered")
}

func (m *Manager) unregister(client *Client) {
	m.mutex.Lock()
	delete(m.clients, client.ID)
	m.mutex.Unlock()
	client.close()

	logger := logging.WithComponent("ws")
	logger.Debug().Str("client", client.ID).Msg("client unregistered")
}

// Broadcast queues v for every connected client and returns how many accepted it
func (m *Manager) Broadcast(v interface{}) int {
	m.mutex.RLock()
	clients := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, c)
	}
	m.mutex.RUnlock()

	delivered := 0
	for _, c := range clients {
		if c.SendJSON(v) {
			delivered++
		}
	}
	return delivered
}

// GetActiveConnectionsCount returns the number of registered clients
func (m *Manager) GetActiveConnectionsCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients)
}
