package notify

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

type ClientMessage struct {
	Client  *Client
	Message []byte
}

// Hub fans sync deltas out to connected viewers. Clients join rooms keyed by
// share code; a broadcast reaches every room member except the device that
// caused the change.
type Hub struct {
	clients      map[string]*Client
	rooms        map[string]map[string]bool
	clientsMutex sync.RWMutex
	Register     chan *Client
	Unregister   chan *Client
	Inbound      chan *ClientMessage
	done         chan struct{}
	stopOnce     sync.Once
	writeWait    time.Duration
	pongWait     time.Duration
	pingPeriod   time.Duration
}

func NewHub(writeWait, pongWait, pingPeriod time.Duration) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan *ClientMessage),
		done:       make(chan struct{}),
		writeWait:  writeWait,
		pongWait:   pongWait,
		pingPeriod: pingPeriod,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case clientMsg := <-h.Inbound:
			h.processMessage(clientMsg)

		case <-h.done:
			return
		}
	}
}

// Stop ends the Run loop. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) registerClient(client *Client) {
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()

	h.clients[client.ID] = client
	log.Printf("notify client connected: %s (device: %s)", client.ID, client.DeviceID)
}

func (h *Hub) unregisterClient(client *Client) {
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	for code, members := range h.rooms {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.rooms, code)
		}
	}
	close(client.Send)
	log.Printf("notify client disconnected: %s", client.ID)
}

func (h *Hub) processMessage(clientMsg *ClientMessage) {
	var msg Message
	if err := json.Unmarshal(clientMsg.Message, &msg); err != nil {
		log.Printf("error unmarshaling notify message: %v", err)
		return
	}
	if msg.ShareCode == "" {
		return
	}

	switch msg.Type {
	case TypeJoinCalendar:
		h.join(clientMsg.Client, msg.ShareCode)
	case TypeLeaveCalendar:
		h.leave(clientMsg.Client, msg.ShareCode)
	}
}

func (h *Hub) join(client *Client, shareCode string) {
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()

	if h.rooms[shareCode] == nil {
		h.rooms[shareCode] = make(map[string]bool)
	}
	h.rooms[shareCode][client.ID] = true
}

func (h *Hub) leave(client *Client, shareCode string) {
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()

	if members, ok := h.rooms[shareCode]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.rooms, shareCode)
		}
	}
}

// Broadcast sends a message to every subscriber of the share code except the
// device that triggered it. A client with a full send buffer is dropped
// rather than allowed to stall the hub.
func (h *Hub) Broadcast(shareCode string, message *Message, excludeDeviceID string) error {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	members, exists := h.rooms[shareCode]
	if !exists {
		return nil
	}

	for clientID := range members {
		client := h.clients[clientID]
		if client == nil || (excludeDeviceID != "" && client.DeviceID == excludeDeviceID) {
			continue
		}
		select {
		case client.Send <- messageBytes:
		default:
			log.Printf("notify client %s send buffer full, closing connection", clientID)
			go func(c *Client) { h.Unregister <- c }(client)
		}
	}

	return nil
}

// RoomSize reports the current subscriber count for a share code.
func (h *Hub) RoomSize(shareCode string) int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()

	return len(h.rooms[shareCode])
}
