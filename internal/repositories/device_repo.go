package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"calshare-server/internal/models"
)

type PostgresDeviceRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresDeviceRepository(pool *pgxpool.Pool) *PostgresDeviceRepository {
	return &PostgresDeviceRepository{pool: pool}
}

func (r *PostgresDeviceRepository) GetByDeviceID(ctx context.Context, deviceID string) (*models.Device, error) {
	query := `SELECT id, device_id, device_name, platform, last_active, created_at, updated_at
	          FROM devices
	          WHERE device_id = $1`

	var device models.Device
	err := r.pool.QueryRow(ctx, query, deviceID).Scan(
		&device.ID,
		&device.DeviceID,
		&device.DeviceName,
		&device.Platform,
		&device.LastActive,
		&device.CreatedAt,
		&device.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return &device, nil
}

func (r *PostgresDeviceRepository) Create(ctx context.Context, device *models.Device) error {
	query := `INSERT INTO devices (device_id, device_name, platform, last_active)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		device.DeviceID,
		device.DeviceName,
		device.Platform,
		device.LastActive,
	).Scan(&device.ID, &device.CreatedAt, &device.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}
	return nil
}

func (r *PostgresDeviceRepository) Update(ctx context.Context, device *models.Device) error {
	query := `UPDATE devices
	          SET device_name = $1, platform = $2, last_active = $3, updated_at = NOW()
	          WHERE device_id = $4`

	result, err := r.pool.Exec(ctx, query,
		device.DeviceName,
		device.Platform,
		device.LastActive,
		device.DeviceID,
	)
	if err != nil {
		return fmt.Errorf("failed to update device: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
