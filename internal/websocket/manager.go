package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/logger"
	"github.com/gorilla/websocket"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/redis"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

// Manager tracks observer connections per room and fans out ledger events
type Manager struct {
	// room -> *sync.Map of *Client
	rooms sync.Map

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}
}

// Client is one observer connection
type Client struct {
	ID   string
	Room string
	Conn *websocket.Conn
	Send chan []byte
}

// BroadcastMessage is a payload addressed to every client in a room
type BroadcastMessage struct {
	Room    string
	Payload []byte
}

// NewManager creates a manager; call Run before registering clients
func NewManager() *Manager {
	return &Manager{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, sendBuffer),
		done:       make(chan struct{}),
	}
}

// Run owns room membership until ctx is cancelled, then closes every client
func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return
		case client := <-m.register:
			m.registerClient(client)
		case client := <-m.unregister:
			m.unregisterClient(client)
		case message := <-m.broadcast:
			m.broadcastToRoom(message.Room, message.Payload)
		}
	}
}

// Forward relays Pub/Sub messages into the manager until ctx is cancelled or in closes
func (m *Manager) Forward(ctx context.Context, in <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			m.Broadcast(msg.Room, []byte(msg.Payload))
		}
	}
}

// RegisterClient adds a client and starts its write pump
func (m *Manager) RegisterClient(client *Client) bool {
	select {
	case m.register <- client:
		return true
	case <-m.done:
		return false
	}
}

// UnregisterClient removes a client and closes its connection
func (m *Manager) UnregisterClient(client *Client) {
	select {
	case m.unregister <- client:
	case <-m.done:
	}
}

// Broadcast queues a payload for every client in room
func (m *Manager) Broadcast(room string, payload []byte) {
	select {
	case m.broadcast <- &BroadcastMessage{Room: room, Payload: payload}:
	case <-m.done:
	}
}

func (m *Manager) registerClient(client *Client) {
	members, _ := m.rooms.LoadOrStore(client.Room, &sync.Map{})
	members.(*sync.Map).Store(client, struct{}{})

	logger.Infof("[WS] client %s joined room %s", client.ID, client.Room)
	go client.writePump()
}

// unregisterClient is idempotent: a client dropped for being slow may still
// report its own disconnect later.
func (m *Manager) unregisterClient(client *Client) {
	members, ok := m.rooms.Load(client.Room)
	if !ok {
		return
	}
	if _, present := members.(*sync.Map).LoadAndDelete(client); !present {
		return
	}
	close(client.Send)
	logger.Infof("[WS] client %s left room %s", client.ID, client.Room)
}

func (m *Manager) broadcastToRoom(room string, payload []byte) {
	members, ok := m.rooms.Load(room)
	if !ok {
		return
	}

	count := 0
	members.(*sync.Map).Range(func(key, _ any) bool {
		client := key.(*Client)
		select {
		case client.Send <- payload:
			count++
		default:
			// slow client; drop it rather than stall the room
			m.unregisterClient(client)
		}
		return true
	})
	logger.V(1).Infof("[WS] broadcast to %d clients in room %s", count, room)
}

func (m *Manager) closeAll() {
	m.rooms.Range(func(_, members any) bool {
		members.(*sync.Map).Range(func(key, _ any) bool {
			client := key.(*Client)
			members.(*sync.Map).Delete(client)
			close(client.Send)
			return true
		})
		return true
	})
}

// GetSubscriberCount returns the number of clients in a room
func (m *Manager) GetSubscriberCount(room string) int {
	members, ok := m.rooms.Load(room)
	if !ok {
		return 0
	}
	count := 0
	members.(*sync.Map).Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only watches for disconnects; observers never send commands
func (c *Client) readPump(m *Manager) {
	defer m.UnregisterClient(c)

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warningf("[WS] client %s: %v", c.ID, err)
			}
			return
		}
	}
}
