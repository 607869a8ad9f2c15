package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrisense-io/crop-advisor/internal/models"
)

// RecommendationRepository handles data access for recommendation records.
type RecommendationRepository struct {
	pool *pgxpool.Pool
}

// NewRecommendationRepository creates a new recommendation repository.
func NewRecommendationRepository(pool *pgxpool.Pool) *RecommendationRepository {
	return &RecommendationRepository{pool: pool}
}

// BulkInsert performs a batch insert of recommendations using parameterized
// queries. One analysis produces one row per scored crop.
func (r *RecommendationRepository) BulkInsert(ctx context.Context, recs []models.Recommendation) error {
	if len(recs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}

	query := `
		INSERT INTO recommendations (
			id, analysis_id, crop_id, score, details, message, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	for _, rec := range recs {
		batch.Queue(
			query,
			rec.ID,
			rec.AnalysisID,
			rec.CropID,
			rec.Score,
			rec.Details,
			rec.Message,
			rec.CreatedAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(recs); i++ {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}

	return nil
}

// GetByAnalysis retrieves all recommendations for an analysis ordered by
// score descending. A zero or negative limit returns all rows.
func (r *RecommendationRepository) GetByAnalysis(ctx context.Context, analysisID uuid.UUID, limit int) ([]models.Recommendation, error) {
	query := `
		SELECT id, analysis_id, crop_id, score, details, message, created_at
		FROM recommendations
		WHERE analysis_id = $1
		ORDER BY score DESC, created_at ASC
	`
	args := []interface{}{analysisID}

	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []models.Recommendation
	for rows.Next() {
		var rec models.Recommendation
		err := rows.Scan(
			&rec.ID,
			&rec.AnalysisID,
			&rec.CropID,
			&rec.Score,
			&rec.Details,
			&rec.Message,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return recs, nil
}
