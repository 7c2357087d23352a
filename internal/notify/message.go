package notify

import (
	"encoding/json"
	"fmt"
)

// Inbound message types (client -> server).
const (
	TypeJoinCalendar  = "join-calendar"
	TypeLeaveCalendar = "leave-calendar"
)

// Outbound message type (server -> subscribers of a share code).
const TypeCalendarUpdated = "calendar-updated"

// Message is the frame exchanged on the websocket. Subscriptions are keyed by
// share code, so a viewer only ever learns about calendars it already holds a
// code for.
type Message struct {
	Type      string          `json:"type"`
	ShareCode string          `json:"shareCode,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func NewMessage(msgType, shareCode string, payload interface{}) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notify payload: %w", err)
	}
	return &Message{Type: msgType, ShareCode: shareCode, Payload: raw}, nil
}
