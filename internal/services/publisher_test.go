package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calshare-server/internal/models"
)

func TestPublishCreatesCalendarWithShareURL(t *testing.T) {
	env := newTestEnv()
	start := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)

	result, err := env.publisher.Publish(context.Background(), PublishInput{
		DeviceID:   "device-a",
		DeviceName: "Pixel 9",
		Platform:   "android",
		Calendar:   CalendarSnapshot{Title: "Trips", Color: "#112233"},
		Schedules: []ChangeRecord{
			upsertRecord("evt-1", "Flight", start),
			upsertRecord("evt-2", "Hotel", start.Add(4*time.Hour)),
		},
		BaseURL: "https://cal.example.com",
	})
	require.NoError(t, err)

	assert.True(t, result.Calendar.IsShared)
	assert.Len(t, result.Calendar.ShareCode, 12)
	assert.Equal(t, "https://cal.example.com/calendar/"+result.Calendar.ShareCode, result.ShareURL)
	require.NotNil(t, result.Calendar.ShareExpire)
	assert.WithinDuration(t, time.Now().UTC().Add(30*24*time.Hour), *result.Calendar.ShareExpire, time.Minute)

	require.NotNil(t, result.Seeded)
	assert.Equal(t, 2, result.Seeded.Added)
	assert.Equal(t, 2, env.schedules.count(result.Calendar.ID))
}

func TestPublishDefaultsCalendarColor(t *testing.T) {
	env := newTestEnv()

	result, err := env.publisher.Publish(context.Background(), PublishInput{
		DeviceID: "device-a",
		Calendar: CalendarSnapshot{Title: "Trips"},
		BaseURL:  "https://cal.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCalendarColor, result.Calendar.Color)
}

func TestRepublishOverwritesAndRotatesCode(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	start := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)

	first, err := env.publisher.Publish(ctx, PublishInput{
		DeviceID:  "device-a",
		Calendar:  CalendarSnapshot{Title: "Trips"},
		Schedules: []ChangeRecord{upsertRecord("evt-1", "Flight", start)},
		BaseURL:   "https://cal.example.com",
	})
	require.NoError(t, err)

	second, err := env.publisher.Publish(ctx, PublishInput{
		DeviceID:  "device-a",
		Calendar:  CalendarSnapshot{ID: first.Calendar.ID, Title: "Trips v2"},
		Schedules: []ChangeRecord{upsertRecord("evt-1", "Flight moved", start.Add(time.Hour))},
		BaseURL:   "https://cal.example.com",
	})
	require.NoError(t, err)

	// Same row, last write wins, fresh code.
	assert.Equal(t, first.Calendar.ID, second.Calendar.ID)
	assert.Equal(t, "Trips v2", second.Calendar.Title)
	assert.NotEqual(t, first.Calendar.ShareCode, second.Calendar.ShareCode)

	// The replayed snapshot updated the existing schedule instead of
	// duplicating it.
	require.NotNil(t, second.Seeded)
	assert.Equal(t, 0, second.Seeded.Added)
	assert.Equal(t, 1, second.Seeded.Updated)
	assert.Equal(t, 1, env.schedules.count(first.Calendar.ID))

	// The retired code no longer resolves.
	_, err = env.access.Get(ctx, first.Calendar.ShareCode)
	assert.ErrorIs(t, err, ErrCalendarNotFound)

	view, err := env.access.Get(ctx, second.Calendar.ShareCode)
	require.NoError(t, err)
	assert.Equal(t, "Flight moved", view.Schedules[0].Title)
}

func TestRepublishFromOtherDeviceCreatesNewCalendar(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	first, err := env.publisher.Publish(ctx, PublishInput{
		DeviceID: "device-a",
		Calendar: CalendarSnapshot{Title: "Trips"},
		BaseURL:  "https://cal.example.com",
	})
	require.NoError(t, err)

	second, err := env.publisher.Publish(ctx, PublishInput{
		DeviceID: "device-b",
		Calendar: CalendarSnapshot{ID: first.Calendar.ID, Title: "Not mine"},
		BaseURL:  "https://cal.example.com",
	})
	require.NoError(t, err)

	assert.NotEqual(t, first.Calendar.ID, second.Calendar.ID)

	original, err := env.calendars.GetByID(ctx, first.Calendar.ID)
	require.NoError(t, err)
	assert.Equal(t, "Trips", original.Title)
}

func TestPublishSetsAndClearsEditPassword(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	first, err := env.publisher.Publish(ctx, PublishInput{
		DeviceID:     "device-a",
		Calendar:     CalendarSnapshot{Title: "Trips"},
		EditPassword: "hunter2",
		BaseURL:      "https://cal.example.com",
	})
	require.NoError(t, err)
	assert.True(t, first.Calendar.RequiresPassword)

	stored, err := env.calendars.GetByID(ctx, first.Calendar.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.EditPassword)
	// Stored hashed, never verbatim.
	assert.NotEqual(t, "hunter2", *stored.EditPassword)

	second, err := env.publisher.Publish(ctx, PublishInput{
		DeviceID: "device-a",
		Calendar: CalendarSnapshot{ID: first.Calendar.ID, Title: "Trips"},
		BaseURL:  "https://cal.example.com",
	})
	require.NoError(t, err)
	assert.False(t, second.Calendar.RequiresPassword)
}

func TestPublishSeedsRecordsCarryingDeletedStatus(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	start := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)

	record := upsertRecord("evt-1", "Flight", start)
	record.SyncStatus = models.SyncStatusDeleted

	result, err := env.publisher.Publish(ctx, PublishInput{
		DeviceID:  "device-a",
		Calendar:  CalendarSnapshot{Title: "Trips"},
		Schedules: []ChangeRecord{record},
		BaseURL:   "https://cal.example.com",
	})
	require.NoError(t, err)

	// A snapshot item is created no matter what status the client left on it.
	require.NotNil(t, result.Seeded)
	assert.Equal(t, 1, result.Seeded.Added)
	assert.Equal(t, 0, result.Seeded.Deleted)
	assert.Equal(t, 1, env.schedules.count(result.Calendar.ID))

	stored, err := env.schedules.GetByLocalID(ctx, result.Calendar.ID, "evt-1")
	require.NoError(t, err)
	assert.False(t, stored.IsDeleted)
	assert.Equal(t, models.SyncStatusSynced, stored.SyncStatus)
}

func TestPublishRequiresDevice(t *testing.T) {
	env := newTestEnv()

	_, err := env.publisher.Publish(context.Background(), PublishInput{
		Calendar: CalendarSnapshot{Title: "Trips"},
		BaseURL:  "https://cal.example.com",
	})
	assert.ErrorIs(t, err, ErrDeviceRequired)
}
