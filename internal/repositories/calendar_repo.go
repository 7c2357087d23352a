package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"calshare-server/internal/models"
)

type PostgresCalendarRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresCalendarRepository(pool *pgxpool.Pool) *PostgresCalendarRepository {
	return &PostgresCalendarRepository{pool: pool}
}

const calendarColumns = `id, title, description, color, device_id, is_shared,
	share_code, share_expire, edit_password, last_sync, created_at, updated_at`

func scanCalendar(row pgx.Row) (*models.Calendar, error) {
	var calendar models.Calendar
	err := row.Scan(
		&calendar.ID,
		&calendar.Title,
		&calendar.Description,
		&calendar.Color,
		&calendar.DeviceID,
		&calendar.IsShared,
		&calendar.ShareCode,
		&calendar.ShareExpire,
		&calendar.EditPassword,
		&calendar.LastSync,
		&calendar.CreatedAt,
		&calendar.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan calendar: %w", err)
	}
	return &calendar, nil
}

func (r *PostgresCalendarRepository) GetByID(ctx context.Context, id int64) (*models.Calendar, error) {
	query := `SELECT ` + calendarColumns + ` FROM calendars WHERE id = $1`
	return scanCalendar(r.pool.QueryRow(ctx, query, id))
}

func (r *PostgresCalendarRepository) GetByShareCode(ctx context.Context, code string) (*models.Calendar, error) {
	query := `SELECT ` + calendarColumns + ` FROM calendars WHERE share_code = $1`
	return scanCalendar(r.pool.QueryRow(ctx, query, code))
}

func (r *PostgresCalendarRepository) GetByOwnerAndID(ctx context.Context, deviceID string, id int64) (*models.Calendar, error) {
	query := `SELECT ` + calendarColumns + ` FROM calendars WHERE device_id = $1 AND id = $2`
	return scanCalendar(r.pool.QueryRow(ctx, query, deviceID, id))
}

func (r *PostgresCalendarRepository) Create(ctx context.Context, calendar *models.Calendar) error {
	query := `INSERT INTO calendars (title, description, color, device_id, is_shared,
	                                 share_code, share_expire, edit_password, last_sync)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		calendar.Title,
		calendar.Description,
		calendar.Color,
		calendar.DeviceID,
		calendar.IsShared,
		calendar.ShareCode,
		calendar.ShareExpire,
		calendar.EditPassword,
		calendar.LastSync,
	).Scan(&calendar.ID, &calendar.CreatedAt, &calendar.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create calendar: %w", err)
	}
	return nil
}

func (r *PostgresCalendarRepository) Update(ctx context.Context, calendar *models.Calendar) error {
	query := `UPDATE calendars
	          SET title = $1, description = $2, color = $3, is_shared = $4,
	              share_code = $5, share_expire = $6, edit_password = $7,
	              last_sync = $8, updated_at = NOW()
	          WHERE id = $9`

	result, err := r.pool.Exec(ctx, query,
		calendar.Title,
		calendar.Description,
		calendar.Color,
		calendar.IsShared,
		calendar.ShareCode,
		calendar.ShareExpire,
		calendar.EditPassword,
		calendar.LastSync,
		calendar.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update calendar: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresCalendarRepository) TouchLastSync(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE calendars SET last_sync = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to touch calendar last_sync: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ShareCodeInUse reports whether the code is currently bound to a calendar
// other than excludeCalendarID. Rotation frees the old value, so only the
// current binding counts.
func (r *PostgresCalendarRepository) ShareCodeInUse(ctx context.Context, code string, excludeCalendarID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM calendars WHERE share_code = $1 AND id <> $2)`

	var inUse bool
	err := r.pool.QueryRow(ctx, query, code, excludeCalendarID).Scan(&inUse)
	if err != nil {
		return false, fmt.Errorf("failed to check share code: %w", err)
	}
	return inUse, nil
}
