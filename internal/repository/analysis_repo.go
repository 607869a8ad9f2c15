package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrisense-io/crop-advisor/internal/models"
)

const analysisColumns = `
	id, parcel_id, user_id, sensor_id,
	ph, humidity, temperature, conductivity,
	nitrogen, phosphorus, potassium,
	observations, analyzed_at
`

// AnalysisRepository handles data access for soil analyses. Analyses are
// append-only; there is no update path.
type AnalysisRepository struct {
	pool *pgxpool.Pool
}

// NewAnalysisRepository creates a new analysis repository.
func NewAnalysisRepository(pool *pgxpool.Pool) *AnalysisRepository {
	return &AnalysisRepository{pool: pool}
}

// Insert stores a new soil analysis.
func (r *AnalysisRepository) Insert(ctx context.Context, a *models.SoilAnalysis) error {
	query := `
		INSERT INTO soil_analyses (
			id, parcel_id, user_id, sensor_id,
			ph, humidity, temperature, conductivity,
			nitrogen, phosphorus, potassium,
			observations, analyzed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
	`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.ParcelID, a.UserID, a.SensorID,
		a.PH, a.Humidity, a.Temperature, a.Conductivity,
		a.Nitrogen, a.Phosphorus, a.Potassium,
		a.Observations, a.AnalyzedAt,
	)
	return err
}

// GetByID retrieves an analysis by ID. Returns (nil, nil) when not found.
func (r *AnalysisRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SoilAnalysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM soil_analyses WHERE id = $1`

	a, err := scanAnalysis(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// ListByParcel retrieves a parcel's analyses newest first, paginated.
func (r *AnalysisRepository) ListByParcel(ctx context.Context, parcelID uuid.UUID, page, pageSize int) ([]models.SoilAnalysis, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM soil_analyses WHERE parcel_id = $1`, parcelID,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + analysisColumns + `
		FROM soil_analyses
		WHERE parcel_id = $1
		ORDER BY analyzed_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, parcelID, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var analyses []models.SoilAnalysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, 0, err
		}
		analyses = append(analyses, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return analyses, total, nil
}

// LatestByParcel retrieves the most recent analysis for a parcel.
// Returns (nil, nil) when the parcel has no analyses.
func (r *AnalysisRepository) LatestByParcel(ctx context.Context, parcelID uuid.UUID) (*models.SoilAnalysis, error) {
	query := `
		SELECT ` + analysisColumns + `
		FROM soil_analyses
		WHERE parcel_id = $1
		ORDER BY analyzed_at DESC
		LIMIT 1
	`

	a, err := scanAnalysis(r.pool.QueryRow(ctx, query, parcelID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func scanAnalysis(row pgx.Row) (*models.SoilAnalysis, error) {
	var a models.SoilAnalysis
	err := row.Scan(
		&a.ID, &a.ParcelID, &a.UserID, &a.SensorID,
		&a.PH, &a.Humidity, &a.Temperature, &a.Conductivity,
		&a.Nitrogen, &a.Phosphorus, &a.Potassium,
		&a.Observations, &a.AnalyzedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
