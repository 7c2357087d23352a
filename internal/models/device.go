package models

import (
	"time"
)

// Device anchors the identity of one physical client install. DeviceID is
// generated by the client, globally unique, and never changes once stored.
type Device struct {
	ID         int64      `json:"-"`
	DeviceID   string     `json:"deviceId"`
	DeviceName string     `json:"deviceName"`
	Platform   string     `json:"platform"`
	LastActive time.Time  `json:"lastActive"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}
