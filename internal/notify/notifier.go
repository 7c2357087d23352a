package notify

import (
	"log"

	"calshare-server/internal/services"
)

// CalendarNotifier adapts the hub to the reconciliation core's notifier
// contract: a committed delta summary goes out to every other viewer of the
// share code.
type CalendarNotifier struct {
	hub *Hub
}

func NewCalendarNotifier(hub *Hub) *CalendarNotifier {
	return &CalendarNotifier{hub: hub}
}

func (n *CalendarNotifier) CalendarChanged(shareCode string, change services.CalendarChange) {
	msg, err := NewMessage(TypeCalendarUpdated, shareCode, change)
	if err != nil {
		log.Printf("failed to build calendar-updated message: %v", err)
		return
	}
	if err := n.hub.Broadcast(shareCode, msg, change.DeviceID); err != nil {
		log.Printf("failed to broadcast calendar-updated: %v", err)
	}
}
