package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calshare-server/internal/models"
)

func publishCalendar(t *testing.T, env *testEnv, deviceID, password string, records ...ChangeRecord) (*PublishResult, string) {
	t.Helper()

	result, err := env.publisher.Publish(context.Background(), PublishInput{
		DeviceID:     deviceID,
		DeviceName:   "Pixel 9",
		Platform:     "android",
		Calendar:     CalendarSnapshot{Title: "Trips", Description: "Summer trips", Color: "#112233"},
		Schedules:    records,
		EditPassword: password,
		BaseURL:      "https://cal.example.com",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Calendar.ShareCode)
	return result, result.Calendar.ShareCode
}

func expireCalendar(t *testing.T, env *testEnv, calendarID int64) {
	t.Helper()
	ctx := context.Background()

	calendar, err := env.calendars.GetByID(ctx, calendarID)
	require.NoError(t, err)
	expired := time.Now().UTC().Add(-time.Hour)
	calendar.ShareExpire = &expired
	require.NoError(t, env.calendars.Update(ctx, calendar))
}

func TestGetReturnsCalendarAndLiveSchedules(t *testing.T) {
	env := newTestEnv()
	start := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	_, code := publishCalendar(t, env, "device-a", "",
		upsertRecord("evt-2", "Later", start.Add(2*time.Hour)),
		upsertRecord("evt-1", "Earlier", start),
	)

	view, err := env.access.Get(context.Background(), code)
	require.NoError(t, err)

	assert.Equal(t, "Trips", view.Calendar.Title)
	assert.Equal(t, "Pixel 9", view.Calendar.DeviceName)
	assert.False(t, view.Calendar.RequiresPassword)
	require.Equal(t, 2, view.Count)
	assert.Equal(t, "Earlier", view.Schedules[0].Title)
	assert.Equal(t, "Later", view.Schedules[1].Title)
}

func TestGetUnknownCodeIsNotFound(t *testing.T) {
	env := newTestEnv()

	_, err := env.access.Get(context.Background(), "000000000000")
	assert.ErrorIs(t, err, ErrCalendarNotFound)
}

func TestGetExpiredCodeIsGone(t *testing.T) {
	env := newTestEnv()
	result, code := publishCalendar(t, env, "device-a", "")
	expireCalendar(t, env, result.Calendar.ID)

	_, err := env.access.Get(context.Background(), code)
	assert.ErrorIs(t, err, ErrShareCodeExpired)

	// The row survives; only the gate is closed.
	_, err = env.calendars.GetByID(context.Background(), result.Calendar.ID)
	assert.NoError(t, err)
}

func TestGetExcludesTombstonedSchedules(t *testing.T) {
	env := newTestEnv()
	start := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	result, code := publishCalendar(t, env, "device-a", "",
		upsertRecord("evt-1", "Keep", start),
		upsertRecord("evt-2", "Drop", start.Add(time.Hour)),
	)
	ctx := context.Background()

	_, err := env.access.Sync(ctx, code, SyncInput{
		Device:  DeviceDescriptor{DeviceID: "device-a"},
		Changes: []ChangeRecord{{LocalID: "evt-2", SyncStatus: models.SyncStatusDeleted}},
	})
	require.NoError(t, err)

	view, err := env.access.Get(ctx, code)
	require.NoError(t, err)
	require.Equal(t, 1, view.Count)
	assert.Equal(t, "Keep", view.Schedules[0].Title)

	// The tombstone is still in storage, just projected out.
	assert.Equal(t, 2, env.schedules.count(result.Calendar.ID))
}

func TestSyncRejectsWrongPassword(t *testing.T) {
	env := newTestEnv()
	start := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	result, code := publishCalendar(t, env, "device-a", "hunter2")
	ctx := context.Background()

	_, err := env.access.Sync(ctx, code, SyncInput{
		Device:   DeviceDescriptor{DeviceID: "device-b"},
		Password: "wrong",
		Changes:  []ChangeRecord{upsertRecord("evt-1", "Sneaky", start)},
	})
	assert.ErrorIs(t, err, ErrPasswordMismatch)
	assert.Equal(t, 0, env.schedules.count(result.Calendar.ID))

	outcome, err := env.access.Sync(ctx, code, SyncInput{
		Device:   DeviceDescriptor{DeviceID: "device-b"},
		Password: "hunter2",
		Changes:  []ChangeRecord{upsertRecord("evt-1", "Allowed", start)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Result.Added)
}

func TestSyncWithoutPasswordIsOpen(t *testing.T) {
	env := newTestEnv()
	start := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	_, code := publishCalendar(t, env, "device-a", "")

	outcome, err := env.access.Sync(context.Background(), code, SyncInput{
		Device:  DeviceDescriptor{DeviceID: "device-b", DeviceName: "iPhone", Platform: "ios"},
		Changes: []ChangeRecord{upsertRecord("evt-1", "From another device", start)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Result.Added)
}

func TestSyncAppliesMetadataPatch(t *testing.T) {
	env := newTestEnv()
	_, code := publishCalendar(t, env, "device-a", "")
	ctx := context.Background()

	title := "Renamed"
	emptyDescription := ""
	outcome, err := env.access.Sync(ctx, code, SyncInput{
		Device:   DeviceDescriptor{DeviceID: "device-a"},
		Changes:  nil,
		Metadata: &CalendarPatch{Title: &title, Description: &emptyDescription},
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", outcome.CalendarTitle)

	view, err := env.access.Get(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", view.Calendar.Title)
	assert.Equal(t, "", view.Calendar.Description)
	// Color was not in the patch and is untouched.
	assert.Equal(t, "#112233", view.Calendar.Color)
}

func TestSyncNotifiesConnectedViewers(t *testing.T) {
	env := newTestEnv()
	start := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	_, code := publishCalendar(t, env, "device-a", "")

	_, err := env.access.Sync(context.Background(), code, SyncInput{
		Device:  DeviceDescriptor{DeviceID: "device-b"},
		Changes: []ChangeRecord{upsertRecord("evt-1", "New", start)},
	})
	require.NoError(t, err)

	require.Len(t, env.notifier.events, 1)
	event := env.notifier.events[0]
	assert.Equal(t, code, event.code)
	assert.Equal(t, "sync", event.change.Action)
	assert.Equal(t, "device-b", event.change.DeviceID)
	require.NotNil(t, event.change.Result)
	assert.Equal(t, 1, event.change.Result.Added)
}

func TestSyncSerializesThroughCalendarLock(t *testing.T) {
	env := newTestEnv()
	start := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	_, code := publishCalendar(t, env, "device-a", "")

	_, err := env.access.Sync(context.Background(), code, SyncInput{
		Device:  DeviceDescriptor{DeviceID: "device-a"},
		Changes: []ChangeRecord{upsertRecord("evt-1", "New", start)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, env.locker.acquired)
}

func TestImportTagsOriginAndRegistersImporter(t *testing.T) {
	env := newTestEnv()
	start := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	_, code := publishCalendar(t, env, "device-a", "",
		upsertRecord("evt-1", "Flight", start),
	)
	ctx := context.Background()

	result, err := env.access.Import(ctx, code, DeviceDescriptor{
		DeviceID:   "device-b",
		DeviceName: "iPad",
		Platform:   "ios",
	})
	require.NoError(t, err)

	assert.Equal(t, "device-a", result.OriginalDeviceID)
	assert.Equal(t, "device-b", result.ImportedTo.DeviceID)
	assert.Equal(t, "iPad", result.ImportedTo.DeviceName)
	require.Len(t, result.Schedules, 1)
	assert.Equal(t, "evt-1", result.Schedules[0].LocalID)

	importer, err := env.devices.GetByDeviceID(ctx, "device-b")
	require.NoError(t, err)
	assert.Equal(t, "iPad", importer.DeviceName)
}

func TestImportExpiredCodeFails(t *testing.T) {
	env := newTestEnv()
	result, code := publishCalendar(t, env, "device-a", "")
	expireCalendar(t, env, result.Calendar.ID)

	_, err := env.access.Import(context.Background(), code, DeviceDescriptor{DeviceID: "device-b"})
	assert.ErrorIs(t, err, ErrShareCodeExpired)
}

func TestUpdateMetadataIsPasswordGated(t *testing.T) {
	env := newTestEnv()
	_, code := publishCalendar(t, env, "device-a", "hunter2")
	ctx := context.Background()

	title := "Renamed"
	_, err := env.access.UpdateMetadata(ctx, code, CalendarPatch{Title: &title}, "wrong", DeviceDescriptor{DeviceID: "device-a"})
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	projection, err := env.access.UpdateMetadata(ctx, code, CalendarPatch{Title: &title}, "hunter2", DeviceDescriptor{DeviceID: "device-a"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", projection.Title)
	assert.True(t, projection.RequiresPassword)
}

func TestAddScheduleGeneratesLocalID(t *testing.T) {
	env := newTestEnv()
	_, code := publishCalendar(t, env, "device-a", "")
	start := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)

	record := upsertRecord("", "Dentist", start)
	schedule, err := env.access.AddSchedule(context.Background(), code, record, "", DeviceDescriptor{DeviceID: "device-a"})
	require.NoError(t, err)

	assert.NotEmpty(t, schedule.LocalID)
	assert.Equal(t, "Dentist", schedule.Title)
	assert.False(t, schedule.IsDeleted)
}

func TestAddScheduleWithoutDescriptorActsAsOwner(t *testing.T) {
	env := newTestEnv()
	_, code := publishCalendar(t, env, "device-a", "")
	start := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)

	schedule, err := env.access.AddSchedule(context.Background(), code, upsertRecord("evt-1", "Dentist", start), "", DeviceDescriptor{})
	require.NoError(t, err)
	assert.Equal(t, "device-a", schedule.DeviceID)
}

func TestUpdateScheduleMissingIsNotFound(t *testing.T) {
	env := newTestEnv()
	_, code := publishCalendar(t, env, "device-a", "")
	start := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)

	_, err := env.access.UpdateSchedule(context.Background(), code, "ghost", upsertRecord("ghost", "x", start), "", DeviceDescriptor{DeviceID: "device-a"})
	assert.ErrorIs(t, err, ErrScheduleNotFound)
}

func TestUpdateScheduleOnTombstoneIsNotFound(t *testing.T) {
	env := newTestEnv()
	start := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	_, code := publishCalendar(t, env, "device-a", "", upsertRecord("evt-1", "Old", start))
	ctx := context.Background()

	require.NoError(t, env.access.DeleteSchedule(ctx, code, "evt-1", "", DeviceDescriptor{DeviceID: "device-a"}))

	_, err := env.access.UpdateSchedule(ctx, code, "evt-1", upsertRecord("evt-1", "New", start), "", DeviceDescriptor{DeviceID: "device-a"})
	assert.ErrorIs(t, err, ErrScheduleNotFound)
}

func TestDeleteScheduleTwiceIsNoOp(t *testing.T) {
	env := newTestEnv()
	start := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	result, code := publishCalendar(t, env, "device-a", "", upsertRecord("evt-1", "Old", start))
	ctx := context.Background()

	require.NoError(t, env.access.DeleteSchedule(ctx, code, "evt-1", "", DeviceDescriptor{DeviceID: "device-a"}))
	require.NoError(t, env.access.DeleteSchedule(ctx, code, "evt-1", "", DeviceDescriptor{DeviceID: "device-a"}))

	stored, err := env.schedules.GetByLocalID(ctx, result.Calendar.ID, "evt-1")
	require.NoError(t, err)
	assert.True(t, stored.IsDeleted)

	err = env.access.DeleteSchedule(ctx, code, "never-there", "", DeviceDescriptor{DeviceID: "device-a"})
	assert.ErrorIs(t, err, ErrScheduleNotFound)
}
