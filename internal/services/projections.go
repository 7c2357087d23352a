package services

import (
	"time"

	"calshare-server/internal/models"
)

// CalendarProjection is the public shape of a calendar. It never carries the
// edit password, only whether one is set.
type CalendarProjection struct {
	ID               int64      `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Color            string     `json:"color"`
	IsShared         bool       `json:"isShared"`
	ShareCode        string     `json:"shareCode,omitempty"`
	ShareExpire      *time.Time `json:"shareExpire,omitempty"`
	RequiresPassword bool       `json:"requiresPassword"`
	DeviceName       string     `json:"deviceName,omitempty"`
	LastSync         *time.Time `json:"lastSync,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        *time.Time `json:"updatedAt,omitempty"`
}

func projectCalendar(calendar *models.Calendar, ownerName string) CalendarProjection {
	projection := CalendarProjection{
		ID:               calendar.ID,
		Title:            calendar.Title,
		Description:      calendar.Description,
		Color:            calendar.Color,
		IsShared:         calendar.IsShared,
		ShareExpire:      calendar.ShareExpire,
		RequiresPassword: calendar.RequiresPassword(),
		DeviceName:       ownerName,
		LastSync:         calendar.LastSync,
		CreatedAt:        calendar.CreatedAt,
		UpdatedAt:        calendar.UpdatedAt,
	}
	if calendar.ShareCode != nil {
		projection.ShareCode = *calendar.ShareCode
	}
	return projection
}

// ScheduleProjection is the trimmed schedule shape handed to importing
// devices.
type ScheduleProjection struct {
	ID          int64     `json:"id"`
	LocalID     string    `json:"localId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	IsAllDay    bool      `json:"isAllDay"`
	Color       string    `json:"color"`
	Reminder    *int      `json:"reminder,omitempty"`
	IsCompleted bool      `json:"isCompleted"`
}

func projectSchedule(schedule *models.Schedule) ScheduleProjection {
	return ScheduleProjection{
		ID:          schedule.ID,
		LocalID:     schedule.LocalID,
		Title:       schedule.Title,
		Description: schedule.Description,
		Location:    schedule.Location,
		StartTime:   schedule.StartTime,
		EndTime:     schedule.EndTime,
		IsAllDay:    schedule.IsAllDay,
		Color:       schedule.Color,
		Reminder:    schedule.Reminder,
		IsCompleted: schedule.IsCompleted,
	}
}

// DeviceSummary identifies a device in responses without exposing row ids.
type DeviceSummary struct {
	DeviceID   string `json:"deviceId"`
	DeviceName string `json:"deviceName"`
}
