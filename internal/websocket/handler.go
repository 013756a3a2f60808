package websocket

import (
	"encoding/json"
	"net/http"

	"github.com/google/logger"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler serves the observer endpoints of the broadcast service
type Handler struct {
	manager *Manager
}

// NewHandler creates a new WebSocket handler
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// SetupRoutes configures WebSocket routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/ws/rooms/{room}", h.HandleWebSocket)
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/stats/rooms/{room}", h.GetStats).Methods("GET")
	return router
}

type welcome struct {
	Type     string `json:"type"`
	Room     string `json:"room"`
	ClientID string `json:"clientId"`
}

// HandleWebSocket upgrades the connection and joins the client to its room
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	room := mux.Vars(r)["room"]
	if room == "" {
		http.Error(w, "room is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warningf("[WS] failed to upgrade connection: %v", err)
		return
	}

	client := &Client{
		ID:   uuid.New().String(),
		Room: room,
		Conn: conn,
		Send: make(chan []byte, sendBuffer),
	}

	// queue the welcome before the write pump starts so it is always first
	msg, _ := json.Marshal(welcome{Type: "connected", Room: room, ClientID: client.ID})
	client.Send <- msg

	if !h.manager.RegisterClient(client) {
		conn.Close()
		return
	}
	go client.readPump(h.manager)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "broadcast-service"})
}

// GetStats returns the number of observers in a room
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	room := mux.Vars(r)["room"]
	writeJSON(w, http.StatusOK, map[string]any{"room": room, "subscribers": h.manager.GetSubscriberCount(room)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
