package transport

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// Envelope is the wire frame for every message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handler receives inbound transport activity. OnEvent is called for
// every parsed frame; connect/disconnect bracket the session lifetime.
type Handler interface {
	OnConnect(sid string)
	OnDisconnect(sid string)
	OnEvent(sid string, event string, data json.RawMessage)
}

// Hub maintains active connections keyed by session id. Session ids are
// assigned here, one per live socket.
type Hub struct {
	handler Handler
	clients map[string]*Client
	mu      sync.RWMutex
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	sid  string
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// SetHandler wires the inbound event consumer. Must be called before the
// hub accepts its first connection.
func (h *Hub) SetHandler(handler Handler) {
	h.handler = handler
}

// HandleWebSocket upgrades the request and runs the session pumps.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		sid:  uuid.NewString(),
		send: make(chan []byte, 256),
	}

	h.mu.Lock()
	h.clients[client.sid] = client
	h.mu.Unlock()
	log.Printf("Client connected: sid=%s", client.sid)

	go client.writePump()
	h.handler.OnConnect(client.sid)
	client.readPump()
}

func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	if cur, ok := h.clients[c.sid]; ok && cur == c {
		delete(h.clients, c.sid)
		close(c.send)
	}
	h.mu.Unlock()
}

// push queues a frame for one recipient. Frames for unknown sids are
// dropped; a slow client that has filled its buffer is disconnected.
func (h *Hub) push(sid string, payload []byte) {
	h.mu.RLock()
	client, ok := h.clients[sid]
	h.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case client.send <- payload:
	default:
		log.Printf("Client send buffer full, dropping connection: sid=%s", sid)
		client.conn.Close()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.drop(c)
		c.conn.Close()
		c.hub.handler.OnDisconnect(c.sid)
		log.Printf("Client disconnected: sid=%s", c.sid)
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
			log.Printf("Malformed frame from sid=%s: %s", c.sid, raw)
			continue
		}
		c.hub.handler.OnEvent(c.sid, env.Event, env.Data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
