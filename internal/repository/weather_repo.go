package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrisense-io/crop-advisor/internal/models"
)

// WeatherRepository mirrors provider forecasts so a stale copy survives
// provider outages.
type WeatherRepository struct {
	pool *pgxpool.Pool
}

// NewWeatherRepository creates a new weather repository.
func NewWeatherRepository(pool *pgxpool.Pool) *WeatherRepository {
	return &WeatherRepository{pool: pool}
}

// Upsert writes a batch of forecast rows, replacing any existing row for
// the same location and date.
func (r *WeatherRepository) Upsert(ctx context.Context, records []models.WeatherRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}

	query := `
		INSERT INTO weather_records (
			id, location, forecast_date, temperature, humidity,
			precipitation, wind_speed, description, last_updated
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (location, forecast_date) DO UPDATE SET
			temperature = EXCLUDED.temperature,
			humidity = EXCLUDED.humidity,
			precipitation = EXCLUDED.precipitation,
			wind_speed = EXCLUDED.wind_speed,
			description = EXCLUDED.description,
			last_updated = EXCLUDED.last_updated
	`

	for _, rec := range records {
		batch.Queue(
			query,
			rec.ID,
			rec.Location,
			rec.ForecastDate,
			rec.Temperature,
			rec.Humidity,
			rec.Precipitation,
			rec.WindSpeed,
			rec.Description,
			rec.LastUpdated,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(records); i++ {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}

	return nil
}

// GetByLocation retrieves mirrored forecasts for a location between two
// dates inclusive, oldest first.
func (r *WeatherRepository) GetByLocation(ctx context.Context, location string, from, to time.Time) ([]models.WeatherRecord, error) {
	query := `
		SELECT id, location, forecast_date, temperature, humidity,
		       precipitation, wind_speed, description, last_updated
		FROM weather_records
		WHERE location = $1 AND forecast_date BETWEEN $2 AND $3
		ORDER BY forecast_date ASC
	`

	rows, err := r.pool.Query(ctx, query, location, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.WeatherRecord
	for rows.Next() {
		var rec models.WeatherRecord
		err := rows.Scan(
			&rec.ID,
			&rec.Location,
			&rec.ForecastDate,
			&rec.Temperature,
			&rec.Humidity,
			&rec.Precipitation,
			&rec.WindSpeed,
			&rec.Description,
			&rec.LastUpdated,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
