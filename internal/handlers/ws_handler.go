package handlers

import (
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"calshare-server/internal/notify"
)

// WebSocketHandler upgrades viewer connections and hands them to the notify
// hub. Joining a room requires knowing its share code, which is the same
// capability the read surface requires.
type WebSocketHandler struct {
	hub      *notify.Hub
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(hub *notify.Hub) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// HandleConnection upgrades GET /ws. An optional deviceId query parameter
// lets the hub suppress echoing a device's own changes back to it.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	client := notify.NewClient(uuid.New().String(), r.URL.Query().Get("deviceId"), conn, h.hub)
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
