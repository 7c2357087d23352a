package repositories

import (
	"context"
	"errors"
	"time"

	"calshare-server/internal/models"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

type DeviceRepository interface {
	GetByDeviceID(ctx context.Context, deviceID string) (*models.Device, error)
	Create(ctx context.Context, device *models.Device) error
	Update(ctx context.Context, device *models.Device) error
}

type CalendarRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Calendar, error)
	GetByShareCode(ctx context.Context, code string) (*models.Calendar, error)
	GetByOwnerAndID(ctx context.Context, deviceID string, id int64) (*models.Calendar, error)
	Create(ctx context.Context, calendar *models.Calendar) error
	Update(ctx context.Context, calendar *models.Calendar) error
	TouchLastSync(ctx context.Context, id int64, at time.Time) error
	ShareCodeInUse(ctx context.Context, code string, excludeCalendarID int64) (bool, error)
}

type ScheduleRepository interface {
	GetByLocalID(ctx context.Context, calendarID int64, localID string) (*models.Schedule, error)
	ListByCalendar(ctx context.Context, calendarID int64, includeDeleted bool) ([]*models.Schedule, error)
	Create(ctx context.Context, schedule *models.Schedule) error
	Update(ctx context.Context, schedule *models.Schedule) error
}

// CalendarLocker serializes reconciliation passes so that at most one commits
// per calendar at a time. Reads never take the lock.
type CalendarLocker interface {
	Acquire(ctx context.Context, calendarID int64) (release func(), err error)
}
