package models

import (
	"time"
)

// DefaultCalendarColor is applied when a snapshot carries no color. Schedule
// items without a color inherit their calendar's color instead.
const DefaultCalendarColor = "#3498db"

// Calendar is a named, colored collection of schedule items. It is owned by
// the device that first published it but is readable and writable by any
// device holding a valid share code.
type Calendar struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Color        string     `json:"color"`
	DeviceID     string     `json:"deviceId"`
	IsShared     bool       `json:"isShared"`
	ShareCode    *string    `json:"shareCode,omitempty"`
	ShareExpire  *time.Time `json:"shareExpire,omitempty"`
	EditPassword *string    `json:"-"`
	LastSync     *time.Time `json:"lastSync,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

// ShareCodeValid reports whether the calendar is reachable through the
// sharing surface at the given instant. Expiry is a gate evaluated at access
// time; an expired calendar is never deleted here.
func (c *Calendar) ShareCodeValid(now time.Time) bool {
	return c.ShareCode != nil && *c.ShareCode != "" &&
		c.ShareExpire != nil && now.Before(*c.ShareExpire)
}

// RequiresPassword reports whether mutations must present the edit password.
func (c *Calendar) RequiresPassword() bool {
	return c.EditPassword != nil && *c.EditPassword != ""
}
