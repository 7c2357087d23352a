package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"calshare-server/internal/models"
	"calshare-server/internal/repositories"
)

// In-memory repositories for service tests. They store values, not pointers,
// so a mutation only sticks after an explicit Update, like the real store.

type memDeviceRepo struct {
	mu      sync.Mutex
	devices map[string]models.Device
	nextID  int64
}

func newMemDeviceRepo() *memDeviceRepo {
	return &memDeviceRepo{devices: make(map[string]models.Device)}
}

func (m *memDeviceRepo) GetByDeviceID(_ context.Context, deviceID string) (*models.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	device, ok := m.devices[deviceID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := device
	return &clone, nil
}

func (m *memDeviceRepo) Create(_ context.Context, device *models.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.devices[device.DeviceID]; exists {
		return fmt.Errorf("device %s already exists", device.DeviceID)
	}
	m.nextID++
	device.ID = m.nextID
	device.CreatedAt = time.Now().UTC()
	m.devices[device.DeviceID] = *device
	return nil
}

func (m *memDeviceRepo) Update(_ context.Context, device *models.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.devices[device.DeviceID]; !exists {
		return repositories.ErrNotFound
	}
	m.devices[device.DeviceID] = *device
	return nil
}

type memCalendarRepo struct {
	mu         sync.Mutex
	calendars  map[int64]models.Calendar
	nextID     int64
	touchCount int
}

func newMemCalendarRepo() *memCalendarRepo {
	return &memCalendarRepo{calendars: make(map[int64]models.Calendar)}
}

func (m *memCalendarRepo) GetByID(_ context.Context, id int64) (*models.Calendar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	calendar, ok := m.calendars[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := calendar
	return &clone, nil
}

func (m *memCalendarRepo) GetByShareCode(_ context.Context, code string) (*models.Calendar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, calendar := range m.calendars {
		if calendar.ShareCode != nil && *calendar.ShareCode == code {
			clone := calendar
			return &clone, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memCalendarRepo) GetByOwnerAndID(_ context.Context, deviceID string, id int64) (*models.Calendar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	calendar, ok := m.calendars[id]
	if !ok || calendar.DeviceID != deviceID {
		return nil, repositories.ErrNotFound
	}
	clone := calendar
	return &clone, nil
}

func (m *memCalendarRepo) Create(_ context.Context, calendar *models.Calendar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	calendar.ID = m.nextID
	calendar.CreatedAt = time.Now().UTC()
	m.calendars[calendar.ID] = *calendar
	return nil
}

func (m *memCalendarRepo) Update(_ context.Context, calendar *models.Calendar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.calendars[calendar.ID]; !exists {
		return repositories.ErrNotFound
	}
	m.calendars[calendar.ID] = *calendar
	return nil
}

func (m *memCalendarRepo) TouchLastSync(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	calendar, exists := m.calendars[id]
	if !exists {
		return repositories.ErrNotFound
	}
	calendar.LastSync = &at
	m.calendars[id] = calendar
	m.touchCount++
	return nil
}

func (m *memCalendarRepo) ShareCodeInUse(_ context.Context, code string, excludeCalendarID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, calendar := range m.calendars {
		if id == excludeCalendarID {
			continue
		}
		if calendar.ShareCode != nil && *calendar.ShareCode == code {
			return true, nil
		}
	}
	return false, nil
}

type memScheduleRepo struct {
	mu        sync.Mutex
	schedules map[string]models.Schedule
	nextID    int64
}

func newMemScheduleRepo() *memScheduleRepo {
	return &memScheduleRepo{schedules: make(map[string]models.Schedule)}
}

func scheduleKey(calendarID int64, localID string) string {
	return fmt.Sprintf("%d:%s", calendarID, localID)
}

func (m *memScheduleRepo) GetByLocalID(_ context.Context, calendarID int64, localID string) (*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	schedule, ok := m.schedules[scheduleKey(calendarID, localID)]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := schedule
	return &clone, nil
}

func (m *memScheduleRepo) ListByCalendar(_ context.Context, calendarID int64, includeDeleted bool) ([]*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var schedules []*models.Schedule
	for _, schedule := range m.schedules {
		if schedule.CalendarID != calendarID {
			continue
		}
		if schedule.IsDeleted && !includeDeleted {
			continue
		}
		clone := schedule
		schedules = append(schedules, &clone)
	}
	sort.Slice(schedules, func(i, j int) bool {
		return schedules[i].StartTime.Before(schedules[j].StartTime)
	})
	return schedules, nil
}

func (m *memScheduleRepo) Create(_ context.Context, schedule *models.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := scheduleKey(schedule.CalendarID, schedule.LocalID)
	if _, exists := m.schedules[key]; exists {
		return fmt.Errorf("duplicate (calendar_id, local_id): %s", key)
	}
	m.nextID++
	schedule.ID = m.nextID
	schedule.CreatedAt = time.Now().UTC()
	m.schedules[key] = *schedule
	return nil
}

func (m *memScheduleRepo) Update(_ context.Context, schedule *models.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := scheduleKey(schedule.CalendarID, schedule.LocalID)
	if _, exists := m.schedules[key]; !exists {
		return repositories.ErrNotFound
	}
	m.schedules[key] = *schedule
	return nil
}

func (m *memScheduleRepo) count(calendarID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, schedule := range m.schedules {
		if schedule.CalendarID == calendarID {
			n++
		}
	}
	return n
}

type noopLocker struct {
	acquired int
}

func (l *noopLocker) Acquire(_ context.Context, _ int64) (func(), error) {
	l.acquired++
	return func() {}, nil
}

type recordedChange struct {
	code   string
	change CalendarChange
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedChange
}

func (n *recordingNotifier) CalendarChanged(shareCode string, change CalendarChange) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedChange{code: shareCode, change: change})
}

// testEnv wires the full service stack over the in-memory repositories.
type testEnv struct {
	devices    *memDeviceRepo
	calendars  *memCalendarRepo
	schedules  *memScheduleRepo
	locker     *noopLocker
	notifier   *recordingNotifier
	directory  *DeviceDirectory
	registry   *ShareCodeRegistry
	reconciler *ScheduleReconciler
	publisher  *CalendarPublisher
	access     *ShareAccessService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		devices:   newMemDeviceRepo(),
		calendars: newMemCalendarRepo(),
		schedules: newMemScheduleRepo(),
		locker:    &noopLocker{},
		notifier:  &recordingNotifier{},
	}
	env.directory = NewDeviceDirectory(env.devices)
	env.registry = NewShareCodeRegistry(env.calendars)
	env.reconciler = NewScheduleReconciler(env.schedules, env.calendars)
	env.publisher = NewCalendarPublisher(env.directory, env.registry, env.reconciler, env.calendars, env.locker, nil, 0)
	env.access = NewShareAccessService(env.registry, env.directory, env.reconciler, env.calendars, env.devices, env.schedules, env.locker, nil, env.notifier)
	return env
}
