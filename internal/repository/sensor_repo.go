package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrisense-io/crop-advisor/internal/models"
)

// SensorRepository handles data access for registered soil sensors.
type SensorRepository struct {
	pool *pgxpool.Pool
}

// NewSensorRepository creates a new sensor repository.
func NewSensorRepository(pool *pgxpool.Pool) *SensorRepository {
	return &SensorRepository{pool: pool}
}

// Create registers a new sensor.
func (r *SensorRepository) Create(ctx context.Context, s *models.Sensor) error {
	query := `
		INSERT INTO sensors (id, serial_code, type, activated_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.pool.Exec(ctx, query, s.ID, s.SerialCode, s.Type, s.ActivatedAt)
	return err
}

// GetByID retrieves a sensor by ID. Returns (nil, nil) when not found.
func (r *SensorRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Sensor, error) {
	query := `SELECT id, serial_code, type, activated_at FROM sensors WHERE id = $1`
	return r.get(ctx, query, id)
}

// GetBySerial retrieves a sensor by its serial code. Returns (nil, nil)
// when not found. Serial codes arrive on MQTT topics, so lookup by serial
// is the ingestion hot path.
func (r *SensorRepository) GetBySerial(ctx context.Context, serial string) (*models.Sensor, error) {
	query := `SELECT id, serial_code, type, activated_at FROM sensors WHERE serial_code = $1`
	return r.get(ctx, query, serial)
}

func (r *SensorRepository) get(ctx context.Context, query string, arg any) (*models.Sensor, error) {
	var s models.Sensor
	err := r.pool.QueryRow(ctx, query, arg).Scan(&s.ID, &s.SerialCode, &s.Type, &s.ActivatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// List retrieves all registered sensors, newest activation first.
func (r *SensorRepository) List(ctx context.Context) ([]models.Sensor, error) {
	query := `SELECT id, serial_code, type, activated_at FROM sensors ORDER BY activated_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sensors []models.Sensor
	for rows.Next() {
		var s models.Sensor
		if err := rows.Scan(&s.ID, &s.SerialCode, &s.Type, &s.ActivatedAt); err != nil {
			return nil, err
		}
		sensors = append(sensors, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sensors, nil
}
