// Package websocket pushes live job updates to subscribed clients, so a UI
// can render streaming progress without polling the status endpoint.
package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/moodtape/audiogen/pkg/audiogen"
)

// Message types pushed to subscribers.
const (
	MessageTypeStatus   = "status"
	MessageTypeComplete = "complete"
	MessageTypeError    = "error"
	MessageTypePing     = "ping"
	MessageTypePong     = "pong"
)

// StatusMessage carries a job status transition, including streaming
// progress while segments are being published.
type StatusMessage struct {
	Type      string                  `json:"type"`
	JobID     string                  `json:"job_id"`
	Status    audiogen.Status         `json:"status"`
	Streaming *audiogen.StreamingInfo `json:"streaming,omitempty"`
}

// CompleteMessage announces a finished job.
type CompleteMessage struct {
	Type   string      `json:"type"`
	JobID  string      `json:"job_id"`
	Result interface{} `json:"result,omitempty"`
}

// ErrorMessage announces a failed job.
type ErrorMessage struct {
	Type  string      `json:"type"`
	JobID string      `json:"job_id"`
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string `json:"code,omitempty"`
	Message   string `json:"message"`
	Retriable bool   `json:"retriable,omitempty"`
}

type controlMessage struct {
	Type string `json:"type"`
}

// Client represents one subscribed WebSocket connection.
type Client struct {
	JobID string
	Conn  *websocket.Conn
	Send  chan []byte
}

// Hub maintains active WebSocket connections grouped by job ID.
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMessage

	mu sync.RWMutex
}

type broadcastMessage struct {
	jobID   string
	message []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMessage, 256),
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.JobID] == nil {
				h.clients[client.JobID] = make(map[*Client]bool)
			}
			h.clients[client.JobID][client] = true
			h.mu.Unlock()
			log.Printf("Client subscribed to job %s", client.JobID)

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.JobID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(h.clients, client.JobID)
					}
				}
			}
			h.mu.Unlock()
			log.Printf("Client unsubscribed from job %s", client.JobID)

		case msg := <-h.broadcast:
			h.mu.RLock()
			if clients, ok := h.clients[msg.jobID]; ok {
				for client := range clients {
					select {
					case client.Send <- msg.message:
					default:
						close(client.Send)
						delete(clients, client)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BroadcastStatus sends a status transition to all job subscribers.
func (h *Hub) BroadcastStatus(jobID string, status audiogen.Status, streaming *audiogen.StreamingInfo) {
	h.send(jobID, StatusMessage{
		Type:      MessageTypeStatus,
		JobID:     jobID,
		Status:    status,
		Streaming: streaming,
	})
}

// BroadcastComplete sends a completion message to all job subscribers.
func (h *Hub) BroadcastComplete(jobID string, result interface{}) {
	h.send(jobID, CompleteMessage{
		Type:   MessageTypeComplete,
		JobID:  jobID,
		Result: result,
	})
}

// BroadcastError sends an error message to all job subscribers.
func (h *Hub) BroadcastError(jobID, code, message string, retriable bool) {
	h.send(jobID, ErrorMessage{
		Type:  MessageTypeError,
		JobID: jobID,
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			Retriable: retriable,
		},
	})
}

func (h *Hub) send(jobID string, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal ws message: %v", err)
		return
	}
	h.broadcast <- &broadcastMessage{jobID: jobID, message: data}
}

// HandleConnection handles a WebSocket connection for the duration of a
// subscription.
func (h *Hub) HandleConnection(c *websocket.Conn, jobID string) {
	client := &Client{
		JobID: jobID,
		Conn:  c,
		Send:  make(chan []byte, 256),
	}

	h.Register(client)
	defer h.Unregister(client)

	// Writer goroutine with keep-alive pings.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.Send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg controlMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Type == MessageTypePing {
			data, _ := json.Marshal(controlMessage{Type: MessageTypePong})
			client.Send <- data
		}
	}
}
