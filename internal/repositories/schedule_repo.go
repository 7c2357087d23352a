package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"calshare-server/internal/models"
)

type PostgresScheduleRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresScheduleRepository(pool *pgxpool.Pool) *PostgresScheduleRepository {
	return &PostgresScheduleRepository{pool: pool}
}

const scheduleColumns = `id, local_id, title, description, location, start_time, end_time,
	is_all_day, color, reminder, is_completed, calendar_id, device_id,
	sync_status, last_synced, is_deleted, created_at, updated_at`

func scanSchedule(row pgx.Row) (*models.Schedule, error) {
	var schedule models.Schedule
	err := row.Scan(
		&schedule.ID,
		&schedule.LocalID,
		&schedule.Title,
		&schedule.Description,
		&schedule.Location,
		&schedule.StartTime,
		&schedule.EndTime,
		&schedule.IsAllDay,
		&schedule.Color,
		&schedule.Reminder,
		&schedule.IsCompleted,
		&schedule.CalendarID,
		&schedule.DeviceID,
		&schedule.SyncStatus,
		&schedule.LastSynced,
		&schedule.IsDeleted,
		&schedule.CreatedAt,
		&schedule.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan schedule: %w", err)
	}
	return &schedule, nil
}

func (r *PostgresScheduleRepository) GetByLocalID(ctx context.Context, calendarID int64, localID string) (*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + `
	          FROM schedules
	          WHERE calendar_id = $1 AND local_id = $2`
	return scanSchedule(r.pool.QueryRow(ctx, query, calendarID, localID))
}

func (r *PostgresScheduleRepository) ListByCalendar(ctx context.Context, calendarID int64, includeDeleted bool) ([]*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + `
	          FROM schedules
	          WHERE calendar_id = $1 AND ($2 OR NOT is_deleted)
	          ORDER BY start_time ASC`

	rows, err := r.pool.Query(ctx, query, calendarID, includeDeleted)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*models.Schedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedules: %w", err)
	}

	return schedules, nil
}

func (r *PostgresScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) error {
	query := `INSERT INTO schedules (local_id, title, description, location, start_time, end_time,
	                                 is_all_day, color, reminder, is_completed, calendar_id,
	                                 device_id, sync_status, last_synced, is_deleted)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	          RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		schedule.LocalID,
		schedule.Title,
		schedule.Description,
		schedule.Location,
		schedule.StartTime,
		schedule.EndTime,
		schedule.IsAllDay,
		schedule.Color,
		schedule.Reminder,
		schedule.IsCompleted,
		schedule.CalendarID,
		schedule.DeviceID,
		schedule.SyncStatus,
		schedule.LastSynced,
		schedule.IsDeleted,
	).Scan(&schedule.ID, &schedule.CreatedAt, &schedule.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}
	return nil
}

func (r *PostgresScheduleRepository) Update(ctx context.Context, schedule *models.Schedule) error {
	query := `UPDATE schedules
	          SET title = $1, description = $2, location = $3, start_time = $4, end_time = $5,
	              is_all_day = $6, color = $7, reminder = $8, is_completed = $9,
	              device_id = $10, sync_status = $11, last_synced = $12, is_deleted = $13,
	              updated_at = NOW()
	          WHERE calendar_id = $14 AND local_id = $15`

	result, err := r.pool.Exec(ctx, query,
		schedule.Title,
		schedule.Description,
		schedule.Location,
		schedule.StartTime,
		schedule.EndTime,
		schedule.IsAllDay,
		schedule.Color,
		schedule.Reminder,
		schedule.IsCompleted,
		schedule.DeviceID,
		schedule.SyncStatus,
		schedule.LastSynced,
		schedule.IsDeleted,
		schedule.CalendarID,
		schedule.LocalID,
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
