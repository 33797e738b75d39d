package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/sellersync/internal/common"
	"github.com/ternarybob/sellersync/internal/interfaces"
	"github.com/ternarybob/sellersync/internal/models"
	"golang.org/x/time/rate"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is the envelope of every message sent to clients
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// HelloMessage is sent once when a client connects
type HelloMessage struct {
	ServerInstanceID string   `json:"server_instance_id"` // changes on restart; clients clear state
	Version          string   `json:"version"`
	ActiveRuns       []string `json:"active_runs"`
}

// ActiveRunLister reports batch runs in progress
type ActiveRunLister interface {
	Active() []string
}

// WebSocketHandler streams batch and login events to connected clients
type WebSocketHandler struct {
	logger            arbor.ILogger
	clients           map[*websocket.Conn]*sync.Mutex
	mu                sync.RWMutex
	eventService      interfaces.EventService
	runs              ActiveRunLister
	allowedEvents     map[string]bool // empty allows all
	progressThrottler *rate.Limiter   // nil disables throttling
	serverInstanceID  string
	handler           interfaces.EventHandler
}

func NewWebSocketHandler(eventService interfaces.EventService, runs ActiveRunLister, logger arbor.ILogger, config *common.WebSocketConfig) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		clients:          make(map[*websocket.Conn]*sync.Mutex),
		eventService:     eventService,
		runs:             runs,
		allowedEvents:    make(map[string]bool),
		serverInstanceID: uuid.New().String(),
	}
	h.handler = h.handleEvent

	if config != nil {
		for _, eventType := range config.AllowedEvents {
			h.allowedEvents[eventType] = true
		}
		if interval := config.ProgressThrottle.D(); interval > 0 {
			h.progressThrottler = rate.NewLimiter(rate.Every(interval), 1)
		}
	}

	logger.Debug().
		Str("server_instance_id", h.serverInstanceID).
		Int("allowed_events", len(h.allowedEvents)).
		Bool("throttled", h.progressThrottler != nil).
		Msg("WebSocket handler initialized")

	if eventService != nil {
		h.subscribe()
	}
	return h
}

func (h *WebSocketHandler) allowed(eventType interfaces.EventType) bool {
	return len(h.allowedEvents) == 0 || h.allowedEvents[string(eventType)]
}

func (h *WebSocketHandler) subscribe() {
	for _, eventType := range interfaces.AllEventTypes {
		if !h.allowed(eventType) {
			continue
		}
		if err := h.eventService.Subscribe(eventType, h.handler); err != nil {
			h.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to subscribe websocket to event")
		}
	}
}

// Close unsubscribes from events and disconnects every client
func (h *WebSocketHandler) Close() {
	if h.eventService != nil {
		for _, eventType := range interfaces.AllEventTypes {
			if h.allowed(eventType) {
				_ = h.eventService.Unsubscribe(eventType, h.handler)
			}
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *WebSocketHandler) handleEvent(ctx context.Context, event interfaces.Event) error {
	if h.throttled(event) {
		return nil
	}
	h.Broadcast(string(event.Type), event.Payload)
	return nil
}

// throttled drops per-job progress messages above the configured rate.
// Run start, chunk start and completion are always delivered.
func (h *WebSocketHandler) throttled(event interfaces.Event) bool {
	if h.progressThrottler == nil || event.Type != interfaces.EventBatchProgress {
		return false
	}
	progress, ok := event.Payload.(models.Progress)
	if !ok || progress.Status == models.ProgressChunk || progress.Current == progress.Total {
		return false
	}
	return !h.progressThrottler.Allow()
}

// HandleWebSocket handles WebSocket connections
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	mutex := &sync.Mutex{}
	h.mu.Lock()
	h.clients[conn] = mutex
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("clients", clientCount).Msg("WebSocket client connected")

	hello := HelloMessage{
		ServerInstanceID: h.serverInstanceID,
		Version:          common.GetVersion(),
		ActiveRuns:       []string{},
	}
	if h.runs != nil {
		hello.ActiveRuns = h.runs.Active()
	}
	if data, err := json.Marshal(WSMessage{Type: "hello", Payload: hello}); err == nil {
		h.write(conn, mutex, data)
	}

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		remaining := len(h.clients)
		h.mu.Unlock()

		conn.Close()
		h.logger.Debug().Int("clients", remaining).Msg("WebSocket client disconnected")
	}()

	// Read until the client goes away; inbound messages are ignored
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			return
		}
	}
}

// Broadcast sends a {type, payload} message to all connected clients
func (h *WebSocketHandler) Broadcast(msgType string, payload interface{}) {
	data, err := json.Marshal(WSMessage{Type: msgType, Payload: payload})
	if err != nil {
		h.logger.Error().Err(err).Str("type", msgType).Msg("Failed to marshal websocket message")
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn, mutex := range h.clients {
		clients = append(clients, conn)
		mutexes = append(mutexes, mutex)
	}
	h.mu.RUnlock()

	for i, conn := range clients {
		if err := h.write(conn, mutexes[i], data); err != nil {
			h.logger.Warn().Err(err).Str("type", msgType).Msg("Failed to send message to client")
		}
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *WebSocketHandler) write(conn *websocket.Conn, mutex *sync.Mutex, data []byte) error {
	mutex.Lock()
	defer mutex.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
