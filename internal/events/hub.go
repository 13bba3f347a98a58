// Package events is the internal pub/sub a Stats/Trace component uses to
// push decision-trace and change-predictor urgency events out to the
// (out-of-scope) inspection surface over a WebSocket connection.
//
// Adapted from the teacher's internal/websocket.Hub: same single-active-
// connection register/unregister/broadcast channel loop and
// Client.readPump/writePump pair, repurposed from forwarding raw analysis
// requests to forwarding typed Event values.
package events

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Kind names the category of Event pushed to the inspection surface.
type Kind string

const (
	KindDecisionTrace  Kind = "decision_trace"
	KindUrgencyChange  Kind = "urgency_change"
	KindWorkflowStatus Kind = "workflow_status"
)

// Event is one message the Hub broadcasts to its connected client.
type Event struct {
	Kind      Kind      `json:"kind"`
	TenantID  string    `json:"tenant_id,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub fans events out to a single active inspection-surface connection,
// same as the teacher's websocket.Hub: a new connection replaces whatever
// connection was previously registered rather than queueing behind it.
type Hub struct {
	client     *Client
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Client is one active inspection-surface WebSocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Run drives the Hub's register/unregister/broadcast loop. Callers start it
// in its own goroutine and let it run for the process lifetime.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			if h.client != nil {
				close(h.client.send)
			}
			h.client = client
			h.mutex.Unlock()
			log.Printf("events: inspection client connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			if h.client == client {
				close(h.client.send)
				h.client = nil
				log.Printf("events: inspection client disconnected")
			}
			h.mutex.Unlock()

		case event := <-h.broadcast:
			jsonData, err := json.Marshal(event)
			if err != nil {
				log.Printf("events: failed to marshal event: %v", err)
				continue
			}
			h.mutex.RLock()
			if h.client != nil {
				select {
				case h.client.send <- jsonData:
				default:
					log.Printf("events: client send buffer full, disconnecting")
					close(h.client.send)
					h.client = nil
				}
			}
			h.mutex.RUnlock()
		}
	}
}

// Publish enqueues an Event for delivery to the active client, if any. It
// never blocks on a slow or absent client.
func (h *Hub) Publish(kind Kind, tenantID string, data any, at time.Time) {
	h.mutex.RLock()
	connected := h.client != nil
	h.mutex.RUnlock()
	if !connected {
		return
	}

	select {
	case h.broadcast <- Event{Kind: kind, TenantID: tenantID, Data: data, Timestamp: at}:
	default:
		log.Printf("events: broadcast channel full, dropping %s event", kind)
	}
}

// ServeWS upgrades r into a WebSocket connection and registers it as the
// Hub's active client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("events: upgrade failed: %v", err)
		return
	}

	client := &Client{hub: h, conn: conn, send: make(chan []byte, 256)}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("events: readPump error: %v", err)
			}
			break
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for {
		message, ok := <-c.send
		if !ok {
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}
