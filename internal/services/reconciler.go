package services

import (
	"context"
	"errors"
	"time"

	"calshare-server/internal/models"
	"calshare-server/internal/repositories"
)

// ScheduleReconciler merges client-submitted change batches into stored
// schedule state. (calendarId, localId) is the sole identity key; deletes are
// tombstones, so every record's effect is idempotent and a replayed batch is
// safe to retry after a partial failure.
type ScheduleReconciler struct {
	schedules repositories.ScheduleRepository
	calendars repositories.CalendarRepository
	now       func() time.Time
}

func NewScheduleReconciler(
	schedules repositories.ScheduleRepository,
	calendars repositories.CalendarRepository,
) *ScheduleReconciler {
	return &ScheduleReconciler{
		schedules: schedules,
		calendars: calendars,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Apply processes the change records in submission order against the
// calendar. A record without a localId is counted as skipped and never aborts
// the batch. When any record takes effect the calendar's lastSync is bumped
// exactly once, at the end.
func (r *ScheduleReconciler) Apply(
	ctx context.Context,
	calendar *models.Calendar,
	device *models.Device,
	changes []ChangeRecord,
) (*SyncResult, error) {
	result := &SyncResult{}
	changed := false

	for _, record := range changes {
		if record.LocalID == "" {
			result.Skipped++
			continue
		}

		existing, err := r.schedules.GetByLocalID(ctx, calendar.ID, record.LocalID)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}

		if record.SyncStatus == models.SyncStatusDeleted {
			// A delete for a missing or already-tombstoned item is a no-op,
			// not an error.
			if existing == nil || existing.IsDeleted {
				continue
			}
			now := r.now()
			existing.IsDeleted = true
			existing.SyncStatus = models.SyncStatusDeleted
			existing.LastSynced = &now
			if err := r.schedules.Update(ctx, existing); err != nil {
				return nil, err
			}
			result.Deleted++
			changed = true
			continue
		}

		if existing != nil {
			r.overwrite(existing, record, calendar, device)
			if err := r.schedules.Update(ctx, existing); err != nil {
				return nil, err
			}
			result.Updated++
			changed = true
			continue
		}

		now := r.now()
		schedule := &models.Schedule{
			LocalID:     record.LocalID,
			Title:       record.Title,
			Description: record.Description,
			Location:    record.Location,
			StartTime:   record.StartTime,
			EndTime:     record.EndTime,
			IsAllDay:    record.IsAllDay.Bool(),
			Color:       valueOr(record.Color, calendar.Color),
			Reminder:    record.Reminder,
			IsCompleted: record.IsCompleted.Bool(),
			CalendarID:  calendar.ID,
			DeviceID:    device.DeviceID,
			SyncStatus:  valueOr(record.SyncStatus, models.SyncStatusSynced),
			LastSynced:  &now,
			IsDeleted:   false,
		}
		if err := r.schedules.Create(ctx, schedule); err != nil {
			return nil, err
		}
		result.Added++
		changed = true
	}

	if changed {
		now := r.now()
		if err := r.calendars.TouchLastSync(ctx, calendar.ID, now); err != nil {
			return nil, err
		}
		calendar.LastSync = &now
		result.LastSync = &now
	}

	return result, nil
}

// overwrite applies an upsert record onto an existing item, last write wins
// at field-group granularity. An upsert against a tombstoned item revives it.
func (r *ScheduleReconciler) overwrite(
	existing *models.Schedule,
	record ChangeRecord,
	calendar *models.Calendar,
	device *models.Device,
) {
	now := r.now()
	existing.Title = record.Title
	existing.Description = record.Description
	existing.Location = record.Location
	existing.StartTime = record.StartTime
	existing.EndTime = record.EndTime
	existing.IsAllDay = record.IsAllDay.Bool()
	existing.Color = valueOr(record.Color, calendar.Color)
	existing.Reminder = record.Reminder
	existing.IsCompleted = record.IsCompleted.Bool()
	existing.DeviceID = device.DeviceID
	existing.SyncStatus = valueOr(record.SyncStatus, models.SyncStatusSynced)
	existing.LastSynced = &now
	existing.IsDeleted = false
}
