package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chatsync/internal/livesync"
	"chatsync/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Presence flips a user's online flag.
type Presence interface {
	Login(ctx context.Context, uid string) error
	Logout(ctx context.Context, uid string) error
}

// TypingHandle debounces one user's typing flag in one chat.
type TypingHandle interface {
	Input(composing bool)
	Sent()
	Close()
}

type SessionFactory func(ctx context.Context) *livesync.Session

type TypistFactory func(chatID, uid string) TypingHandle

// Client represents a WebSocket connection client
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	session *livesync.Session
	typist  TypingHandle
}

// Manager tracks live connections. A user is online while at least one of
// their connections is open.
type Manager struct {
	presence   Presence
	newSession SessionFactory
	newTypist  TypistFactory

	mutex   sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewManager(presence Presence, newSession SessionFactory, newTypist TypistFactory) *Manager {
	return &Manager{
		presence:   presence,
		newSession: newSession,
		newTypist:  newTypist,
		clients:    make(map[string]map[*Client]struct{}),
	}
}

// register reports whether c is the user's first connection.
func (m *Manager) register(c *Client) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	conns, ok := m.clients[c.UserID]
	if !ok {
		conns = make(map[*Client]struct{})
		m.clients[c.UserID] = conns
	}
	conns[c] = struct{}{}
	return len(conns) == 1
}

// unregister reports whether c was the user's last connection.
func (m *Manager) unregister(c *Client) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	conns, ok := m.clients[c.UserID]
	if !ok {
		return false
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(m.clients, c.UserID)
		return true
	}
	return false
}

type Stats struct {
	Users       int `json:"users"`
	Connections int `json:"connections"`
}

func (m *Manager) Stats() Stats {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	s := Stats{Users: len(m.clients)}
	for _, conns := range m.clients {
		s.Connections += len(conns)
	}
	return s
}

// Serve runs the connection until the peer goes away or ctx ends. It owns conn
// and closes it before returning.
func (m *Manager) Serve(ctx context.Context, conn *websocket.Conn, userID string) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client := &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
	}

	if m.register(client) {
		if err := m.presence.Login(ctx, userID); err != nil {
			logger.Warn("WebSocket: failed to mark %s online: %v", userID, err)
		}
	}
	logger.Info("WebSocket: client connected: %s", userID)

	client.session = m.newSession(ctx)
	client.session.SetIdentity(userID)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		client.forwardEvents(ctx)
	}()
	go func() {
		defer wg.Done()
		client.WritePump(ctx, cancel)
	}()

	client.ReadPump(ctx, m)

	cancel()
	if client.typist != nil {
		client.typist.Close()
	}
	client.session.Close()
	wg.Wait()
	conn.Close()

	if m.unregister(client) {
		// The request context is gone by now.
		offCtx, offCancel := context.WithTimeout(context.Background(), writeWait)
		if err := m.presence.Logout(offCtx, userID); err != nil {
			logger.Warn("WebSocket: failed to mark %s offline: %v", userID, err)
		}
		offCancel()
	}
	logger.Info("WebSocket: client disconnected: %s", userID)
}

// ReadPump reads frames until the connection fails or ctx ends.
func (c *Client) ReadPump(ctx context.Context, m *Manager) {
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket: read error from %s: %v", c.UserID, err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		m.HandleClientMessage(ctx, c, message)
	}
}

// WritePump drains Send and keeps the connection alive with pings. A write
// failure cancels the connection.
func (c *Client) WritePump(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("WebSocket: write error to %s: %v", c.UserID, err)
				cancel()
				c.Conn.Close()
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cancel()
				c.Conn.Close()
				return
			}
		}
	}
}

func (c *Client) forwardEvents(ctx context.Context) {
	for ev := range c.session.Events() {
		c.enqueue(ctx, newFrame(MessageTypeEvent, ev.ChatID, ev))
	}
}
