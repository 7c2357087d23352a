package services

import (
	"bytes"
	"time"
)

// Flag is a bool that also accepts the loose encodings mobile clients send:
// JSON true/false, "true"/"false", and 0/1. Anything else decodes to false.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	trimmed := bytes.Trim(bytes.TrimSpace(data), `"`)
	switch string(bytes.ToLower(trimmed)) {
	case "true", "1":
		*f = true
	default:
		*f = false
	}
	return nil
}

func (f Flag) Bool() bool { return bool(f) }

// ChangeRecord is one client-asserted schedule mutation inside a sync batch.
// LocalID is the reconciliation key; SyncStatus "deleted" marks a tombstone
// request and every other value is an upsert intent.
type ChangeRecord struct {
	LocalID     string    `json:"localId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	IsAllDay    Flag      `json:"isAllDay"`
	Color       string    `json:"color"`
	Reminder    *int      `json:"reminder"`
	IsCompleted Flag      `json:"isCompleted"`
	SyncStatus  string    `json:"syncStatus"`
}

// SyncResult is the per-classification tally of one reconciliation batch.
// LastSync is set only when at least one record took effect.
type SyncResult struct {
	Added    int        `json:"added"`
	Updated  int        `json:"updated"`
	Deleted  int        `json:"deleted"`
	Skipped  int        `json:"skipped"`
	LastSync *time.Time `json:"lastSync,omitempty"`
}
