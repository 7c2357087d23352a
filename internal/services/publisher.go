package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"calshare-server/internal/models"
	"calshare-server/internal/repositories"
	"calshare-server/internal/utils"
)

// CalendarSnapshot is the client's full local view of a calendar at publish
// time. ID is the server id handed back by a previous publish; zero means the
// calendar has never been published from this device.
type CalendarSnapshot struct {
	ID          int64  `json:"id"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

type PublishInput struct {
	DeviceID     string `validate:"required"`
	DeviceName   string
	Platform     string
	DeviceToken  string
	Calendar     CalendarSnapshot
	Schedules    []ChangeRecord
	EditPassword string
	BaseURL      string
}

type PublishResult struct {
	Calendar    CalendarProjection `json:"calendar"`
	ShareURL    string             `json:"shareUrl"`
	DeviceToken string             `json:"deviceToken,omitempty"`
	Seeded      *SyncResult        `json:"seedResult,omitempty"`
}

// CalendarPublisher orchestrates publish and re-publish: resolve the device,
// create or refresh the calendar row, rotate the share code, and seed the
// schedule snapshot through the reconciler.
type CalendarPublisher struct {
	directory  *DeviceDirectory
	registry   *ShareCodeRegistry
	reconciler *ScheduleReconciler
	calendars  repositories.CalendarRepository
	locks      repositories.CalendarLocker
	gate       *DeviceGate
	ttlDays    int
	now        func() time.Time
}

func NewCalendarPublisher(
	directory *DeviceDirectory,
	registry *ShareCodeRegistry,
	reconciler *ScheduleReconciler,
	calendars repositories.CalendarRepository,
	locks repositories.CalendarLocker,
	gate *DeviceGate,
	ttlDays int,
) *CalendarPublisher {
	if ttlDays <= 0 {
		ttlDays = DefaultShareTTLDays
	}
	return &CalendarPublisher{
		directory:  directory,
		registry:   registry,
		reconciler: reconciler,
		calendars:  calendars,
		locks:      locks,
		gate:       gate,
		ttlDays:    ttlDays,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Publish uploads a device's local calendar. Re-publishing the same server id
// from the same device overwrites the row (last call wins) and always rotates
// the share code; it never extends the old one. Every snapshot item runs
// through the reconciler as an upsert intent, so a replayed publish updates
// rows instead of duplicating them.
func (p *CalendarPublisher) Publish(ctx context.Context, in PublishInput) (*PublishResult, error) {
	if err := p.gate.Check(in.DeviceID, in.DeviceToken); err != nil {
		return nil, err
	}

	device, err := p.directory.Resolve(ctx, in.DeviceID, in.DeviceName, in.Platform)
	if err != nil {
		return nil, err
	}

	var calendar *models.Calendar
	if in.Calendar.ID != 0 {
		calendar, err = p.calendars.GetByOwnerAndID(ctx, device.DeviceID, in.Calendar.ID)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
	}

	var editPassword *string
	if in.EditPassword != "" {
		hashed, err := utils.HashEditPassword(in.EditPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to hash edit password: %w", err)
		}
		editPassword = &hashed
	}

	now := p.now()
	if calendar == nil {
		calendar = &models.Calendar{
			Title:        in.Calendar.Title,
			Description:  in.Calendar.Description,
			Color:        valueOr(in.Calendar.Color, models.DefaultCalendarColor),
			DeviceID:     device.DeviceID,
			EditPassword: editPassword,
			LastSync:     &now,
		}
		if _, err := p.registry.Issue(ctx, calendar, p.ttlDays); err != nil {
			return nil, err
		}
		if err := p.calendars.Create(ctx, calendar); err != nil {
			return nil, err
		}
	} else {
		calendar.Title = in.Calendar.Title
		calendar.Description = in.Calendar.Description
		calendar.Color = valueOr(in.Calendar.Color, models.DefaultCalendarColor)
		calendar.EditPassword = editPassword
		calendar.LastSync = &now
		if _, err := p.registry.Issue(ctx, calendar, p.ttlDays); err != nil {
			return nil, err
		}
		if err := p.calendars.Update(ctx, calendar); err != nil {
			return nil, err
		}
	}

	var seeded *SyncResult
	if len(in.Schedules) > 0 {
		// The snapshot is the device's current state: every record is an
		// upsert intent, even one still carrying a stale deleted marker.
		records := make([]ChangeRecord, len(in.Schedules))
		copy(records, in.Schedules)
		for i := range records {
			if records[i].SyncStatus == models.SyncStatusDeleted {
				records[i].SyncStatus = models.SyncStatusSynced
			}
		}

		release, err := p.locks.Acquire(ctx, calendar.ID)
		if err != nil {
			return nil, err
		}
		seeded, err = p.reconciler.Apply(ctx, calendar, device, records)
		release()
		if err != nil {
			return nil, err
		}
	}

	token, err := p.gate.Mint(device.DeviceID)
	if err != nil {
		return nil, err
	}

	return &PublishResult{
		Calendar:    projectCalendar(calendar, device.DeviceName),
		ShareURL:    buildShareURL(in.BaseURL, *calendar.ShareCode),
		DeviceToken: token,
		Seeded:      seeded,
	}, nil
}

func buildShareURL(baseURL, code string) string {
	return strings.TrimSuffix(baseURL, "/") + "/calendar/" + code
}
