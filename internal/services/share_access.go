package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"calshare-server/internal/models"
	"calshare-server/internal/repositories"
)

// ChangeNotifier receives a delta summary after a batch commits, so connected
// viewers of the same share code can refresh without polling.
type ChangeNotifier interface {
	CalendarChanged(shareCode string, change CalendarChange)
}

type CalendarChange struct {
	Action   string      `json:"action"`
	DeviceID string      `json:"deviceId,omitempty"`
	Result   *SyncResult `json:"syncResult,omitempty"`
	LastSync *time.Time  `json:"lastSync,omitempty"`
}

// DeviceDescriptor carries the identity fields every share-code request may
// attach.
type DeviceDescriptor struct {
	DeviceID    string `json:"deviceId"`
	DeviceName  string `json:"deviceName"`
	Platform    string `json:"platform"`
	DeviceToken string `json:"deviceToken"`
}

// CalendarPatch is a last-submitted-wins metadata update. Nil fields are left
// alone; Description may be set to the empty string deliberately.
type CalendarPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
}

func (p *CalendarPatch) empty() bool {
	return p == nil || (p.Title == nil && p.Description == nil && p.Color == nil)
}

type SharedCalendarView struct {
	Calendar  CalendarProjection `json:"calendar"`
	Schedules []*models.Schedule `json:"schedules"`
	Count     int                `json:"count"`
}

type ImportResult struct {
	Calendar         CalendarProjection   `json:"calendar"`
	OriginalDeviceID string               `json:"originalDeviceId"`
	Schedules        []ScheduleProjection `json:"schedules"`
	ImportedTo       DeviceSummary        `json:"importedToDevice"`
	DeviceToken      string               `json:"deviceToken,omitempty"`
}

type SyncInput struct {
	Device   DeviceDescriptor
	Password string
	Changes  []ChangeRecord
	Metadata *CalendarPatch
}

type SyncOutcome struct {
	CalendarID    int64       `json:"calendarId"`
	CalendarTitle string      `json:"calendarTitle"`
	LastSync      time.Time   `json:"lastSync"`
	Result        *SyncResult `json:"syncResult"`
}

// ShareAccessService is every operation reachable through a share code: read
// projections, import, the batch sync entry point, and the single-item CRUD
// the mobile clients use between full syncs.
type ShareAccessService struct {
	registry   *ShareCodeRegistry
	directory  *DeviceDirectory
	reconciler *ScheduleReconciler
	calendars  repositories.CalendarRepository
	devices    repositories.DeviceRepository
	schedules  repositories.ScheduleRepository
	locks      repositories.CalendarLocker
	gate       *DeviceGate
	notifier   ChangeNotifier
	now        func() time.Time
}

func NewShareAccessService(
	registry *ShareCodeRegistry,
	directory *DeviceDirectory,
	reconciler *ScheduleReconciler,
	calendars repositories.CalendarRepository,
	devices repositories.DeviceRepository,
	schedules repositories.ScheduleRepository,
	locks repositories.CalendarLocker,
	gate *DeviceGate,
	notifier ChangeNotifier,
) *ShareAccessService {
	return &ShareAccessService{
		registry:   registry,
		directory:  directory,
		reconciler: reconciler,
		calendars:  calendars,
		devices:    devices,
		schedules:  schedules,
		locks:      locks,
		gate:       gate,
		notifier:   notifier,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the calendar projection plus its live (non-tombstoned)
// schedules ordered by start time. Reads are lock-free.
func (s *ShareAccessService) Get(ctx context.Context, code string) (*SharedCalendarView, error) {
	calendar, err := s.registry.Validate(ctx, code)
	if err != nil {
		return nil, err
	}

	schedules, err := s.schedules.ListByCalendar(ctx, calendar.ID, false)
	if err != nil {
		return nil, err
	}

	return &SharedCalendarView{
		Calendar:  projectCalendar(calendar, s.ownerName(ctx, calendar)),
		Schedules: schedules,
		Count:     len(schedules),
	}, nil
}

// Metadata returns the calendar projection without its schedules.
func (s *ShareAccessService) Metadata(ctx context.Context, code string) (*CalendarProjection, error) {
	calendar, err := s.registry.Validate(ctx, code)
	if err != nil {
		return nil, err
	}
	projection := projectCalendar(calendar, s.ownerName(ctx, calendar))
	return &projection, nil
}

// Import hands a joining device the full live calendar, tagged with the
// originating device, and registers the importer in the directory.
func (s *ShareAccessService) Import(ctx context.Context, code string, device DeviceDescriptor) (*ImportResult, error) {
	calendar, err := s.registry.Validate(ctx, code)
	if err != nil {
		return nil, err
	}

	resolved, err := s.directory.Resolve(ctx, device.DeviceID, device.DeviceName, device.Platform)
	if err != nil {
		return nil, err
	}

	schedules, err := s.schedules.ListByCalendar(ctx, calendar.ID, false)
	if err != nil {
		return nil, err
	}

	projections := make([]ScheduleProjection, 0, len(schedules))
	for _, schedule := range schedules {
		projections = append(projections, projectSchedule(schedule))
	}

	token, err := s.gate.Mint(resolved.DeviceID)
	if err != nil {
		return nil, err
	}

	return &ImportResult{
		Calendar:         projectCalendar(calendar, s.ownerName(ctx, calendar)),
		OriginalDeviceID: calendar.DeviceID,
		Schedules:        projections,
		ImportedTo: DeviceSummary{
			DeviceID:   resolved.DeviceID,
			DeviceName: resolved.DeviceName,
		},
		DeviceToken: token,
	}, nil
}

// Sync merges a change batch into the calendar. Request-level failures
// (not found, expired, password mismatch) abort before any mutation; a
// malformed record inside the batch is skipped, never fatal. Reconciliation
// runs under the per-calendar lock so concurrent batches serialize.
func (s *ShareAccessService) Sync(ctx context.Context, code string, in SyncInput) (*SyncOutcome, error) {
	calendar, err := s.registry.Validate(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Check(in.Device.DeviceID, in.Device.DeviceToken); err != nil {
		return nil, err
	}
	if !s.registry.CheckPassword(calendar, in.Password) {
		return nil, ErrPasswordMismatch
	}

	device, err := s.directory.Resolve(ctx, in.Device.DeviceID, in.Device.DeviceName, in.Device.Platform)
	if err != nil {
		return nil, err
	}

	// Calendar metadata is not reconciled; the last submitted value wins.
	if !in.Metadata.empty() {
		if err := s.applyPatch(ctx, calendar, in.Metadata); err != nil {
			return nil, err
		}
	}

	release, err := s.locks.Acquire(ctx, calendar.ID)
	if err != nil {
		return nil, err
	}
	result, err := s.reconciler.Apply(ctx, calendar, device, in.Changes)
	release()
	if err != nil {
		return nil, err
	}

	lastSync := s.now()
	if calendar.LastSync != nil {
		lastSync = *calendar.LastSync
	}

	s.notify(code, CalendarChange{
		Action:   "sync",
		DeviceID: device.DeviceID,
		Result:   result,
		LastSync: calendar.LastSync,
	})

	return &SyncOutcome{
		CalendarID:    calendar.ID,
		CalendarTitle: calendar.Title,
		LastSync:      lastSync,
		Result:        result,
	}, nil
}

// UpdateMetadata applies a password-gated metadata patch outside of a sync
// batch.
func (s *ShareAccessService) UpdateMetadata(ctx context.Context, code string, patch CalendarPatch, password string, device DeviceDescriptor) (*CalendarProjection, error) {
	calendar, err := s.registry.Validate(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Check(device.DeviceID, device.DeviceToken); err != nil {
		return nil, err
	}
	if !s.registry.CheckPassword(calendar, password) {
		return nil, ErrPasswordMismatch
	}

	if !patch.empty() {
		if err := s.applyPatch(ctx, calendar, &patch); err != nil {
			return nil, err
		}
		s.notify(code, CalendarChange{
			Action:   "calendar-updated",
			DeviceID: device.DeviceID,
			LastSync: calendar.LastSync,
		})
	}

	projection := projectCalendar(calendar, s.ownerName(ctx, calendar))
	return &projection, nil
}

// ListSchedules returns the live schedules for a code, ordered by start time.
func (s *ShareAccessService) ListSchedules(ctx context.Context, code string) ([]*models.Schedule, error) {
	calendar, err := s.registry.Validate(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.schedules.ListByCalendar(ctx, calendar.ID, false)
}

// AddSchedule creates one schedule through the reconciler's upsert path. A
// record without a localId gets a generated one, so single-item adds from
// thin clients still end up reconcilable later.
func (s *ShareAccessService) AddSchedule(ctx context.Context, code string, record ChangeRecord, password string, device DeviceDescriptor) (*models.Schedule, error) {
	calendar, err := s.registry.Validate(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Check(device.DeviceID, device.DeviceToken); err != nil {
		return nil, err
	}
	if !s.registry.CheckPassword(calendar, password) {
		return nil, ErrPasswordMismatch
	}

	if record.LocalID == "" {
		record.LocalID = uuid.New().String()
	}
	if record.SyncStatus == models.SyncStatusDeleted {
		record.SyncStatus = models.SyncStatusSynced
	}

	acting, err := s.actingDevice(ctx, calendar, device)
	if err != nil {
		return nil, err
	}

	if err := s.applyOne(ctx, calendar, acting, record); err != nil {
		return nil, err
	}

	s.notify(code, CalendarChange{
		Action:   "schedule-added",
		DeviceID: acting.DeviceID,
		LastSync: calendar.LastSync,
	})

	return s.schedules.GetByLocalID(ctx, calendar.ID, record.LocalID)
}

// UpdateSchedule overwrites one schedule identified by localId.
func (s *ShareAccessService) UpdateSchedule(ctx context.Context, code, localID string, record ChangeRecord, password string, device DeviceDescriptor) (*models.Schedule, error) {
	calendar, err := s.registry.Validate(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Check(device.DeviceID, device.DeviceToken); err != nil {
		return nil, err
	}
	if !s.registry.CheckPassword(calendar, password) {
		return nil, ErrPasswordMismatch
	}

	existing, err := s.schedules.GetByLocalID(ctx, calendar.ID, localID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrScheduleNotFound
	}
	if err != nil {
		return nil, err
	}
	if existing.IsDeleted {
		return nil, ErrScheduleNotFound
	}

	record.LocalID = localID
	if record.SyncStatus == models.SyncStatusDeleted {
		record.SyncStatus = models.SyncStatusUpdated
	}

	acting, err := s.actingDevice(ctx, calendar, device)
	if err != nil {
		return nil, err
	}

	if err := s.applyOne(ctx, calendar, acting, record); err != nil {
		return nil, err
	}

	s.notify(code, CalendarChange{
		Action:   "schedule-updated",
		DeviceID: acting.DeviceID,
		LastSync: calendar.LastSync,
	})

	return s.schedules.GetByLocalID(ctx, calendar.ID, localID)
}

// DeleteSchedule tombstones one schedule. Deleting an already-tombstoned item
// succeeds as a no-op; a localId that never existed is NotFound.
func (s *ShareAccessService) DeleteSchedule(ctx context.Context, code, localID, password string, device DeviceDescriptor) error {
	calendar, err := s.registry.Validate(ctx, code)
	if err != nil {
		return err
	}
	if err := s.gate.Check(device.DeviceID, device.DeviceToken); err != nil {
		return err
	}
	if !s.registry.CheckPassword(calendar, password) {
		return ErrPasswordMismatch
	}

	existing, err := s.schedules.GetByLocalID(ctx, calendar.ID, localID)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrScheduleNotFound
	}
	if err != nil {
		return err
	}
	if existing.IsDeleted {
		return nil
	}

	acting, err := s.actingDevice(ctx, calendar, device)
	if err != nil {
		return err
	}

	record := ChangeRecord{LocalID: localID, SyncStatus: models.SyncStatusDeleted}
	if err := s.applyOne(ctx, calendar, acting, record); err != nil {
		return err
	}

	s.notify(code, CalendarChange{
		Action:   "schedule-deleted",
		DeviceID: acting.DeviceID,
		LastSync: calendar.LastSync,
	})
	return nil
}

func (s *ShareAccessService) applyOne(ctx context.Context, calendar *models.Calendar, device *models.Device, record ChangeRecord) error {
	release, err := s.locks.Acquire(ctx, calendar.ID)
	if err != nil {
		return err
	}
	defer release()

	_, err = s.reconciler.Apply(ctx, calendar, device, []ChangeRecord{record})
	return err
}

func (s *ShareAccessService) applyPatch(ctx context.Context, calendar *models.Calendar, patch *CalendarPatch) error {
	if patch.Title != nil && *patch.Title != "" {
		calendar.Title = *patch.Title
	}
	if patch.Description != nil {
		calendar.Description = *patch.Description
	}
	if patch.Color != nil && *patch.Color != "" {
		calendar.Color = *patch.Color
	}
	now := s.now()
	calendar.LastSync = &now
	return s.calendars.Update(ctx, calendar)
}

// actingDevice resolves the caller when a descriptor is supplied, otherwise
// the operation is attributed to the calendar's owner (thin web clients only
// send the share code).
func (s *ShareAccessService) actingDevice(ctx context.Context, calendar *models.Calendar, device DeviceDescriptor) (*models.Device, error) {
	if device.DeviceID == "" {
		owner, err := s.devices.GetByDeviceID(ctx, calendar.DeviceID)
		if err != nil {
			return nil, err
		}
		return owner, nil
	}
	return s.directory.Resolve(ctx, device.DeviceID, device.DeviceName, device.Platform)
}

func (s *ShareAccessService) ownerName(ctx context.Context, calendar *models.Calendar) string {
	owner, err := s.devices.GetByDeviceID(ctx, calendar.DeviceID)
	if err != nil {
		return defaultDeviceName
	}
	return owner.DeviceName
}

func (s *ShareAccessService) notify(code string, change CalendarChange) {
	if s.notifier == nil {
		return
	}
	s.notifier.CalendarChanged(code, change)
}
