package models

import (
	"time"
)

// Sync status markers carried by client change records. Anything other than
// SyncStatusDeleted is treated as an upsert intent.
const (
	SyncStatusNew     = "new"
	SyncStatusSynced  = "synced"
	SyncStatusUpdated = "updated"
	SyncStatusDeleted = "deleted"
)

// Schedule is one appointment or task belonging to exactly one calendar.
// The (CalendarID, LocalID) pair is the sole identity used during
// reconciliation; the server ID is never consulted for create-vs-update.
// A schedule is never physically removed by a sync operation, only
// tombstoned via IsDeleted, so replayed deletes stay idempotent.
type Schedule struct {
	ID          int64      `json:"id"`
	LocalID     string     `json:"localId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     time.Time  `json:"endTime"`
	IsAllDay    bool       `json:"isAllDay"`
	Color       string     `json:"color"`
	Reminder    *int       `json:"reminder,omitempty"`
	IsCompleted bool       `json:"isCompleted"`
	CalendarID  int64      `json:"calendarId"`
	DeviceID    string     `json:"deviceId"`
	SyncStatus  string     `json:"syncStatus"`
	LastSynced  *time.Time `json:"lastSynced,omitempty"`
	IsDeleted   bool       `json:"isDeleted"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}
