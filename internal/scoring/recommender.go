package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/agrisense-io/crop-advisor/internal/models"
)

// CropSource supplies the active crop catalog, in stable catalog order.
type CropSource interface {
	ListActive(ctx context.Context) ([]models.CropProfile, error)
}

// RecommendationStore persists generated recommendations.
type RecommendationStore interface {
	BulkInsert(ctx context.Context, recs []models.Recommendation) error
}

// RankedRecommendation is one scored crop in display order, carrying the
// crop attributes the advisory UI shows alongside the score.
type RankedRecommendation struct {
	CropID            uuid.UUID                  `json:"crop_id"`
	CropName          string                     `json:"crop_name"`
	Score             int                        `json:"score"`
	Details           map[string]CriterionDetail `json:"details"`
	Message           string                     `json:"message"`
	FertilizerType    string                     `json:"fertilizer_type,omitempty"`
	AverageYield      string                     `json:"average_yield,omitempty"`
	WaterNeeds        string                     `json:"water_needs,omitempty"`
	DroughtResistance string                     `json:"drought_resistance,omitempty"`
}

// Recommender scores a soil analysis against every active crop, persists
// all results, and returns them ranked by score descending.
type Recommender struct {
	crops CropSource
	store RecommendationStore
}

// NewRecommender creates a recommender over the given catalog and store.
func NewRecommender(crops CropSource, store RecommendationStore) *Recommender {
	return &Recommender{crops: crops, store: store}
}

// Generate runs the compatibility scorer for the analysis against every
// active crop. Every result is persisted regardless of score; the returned
// slice is sorted by score descending, with catalog order breaking ties.
func (r *Recommender) Generate(ctx context.Context, analysis *models.SoilAnalysis) ([]RankedRecommendation, error) {
	logger := slog.Default().With(
		slog.String("service", "recommender"),
		slog.String("analysis_id", analysis.ID.String()),
	)

	crops, err := r.crops.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active crops: %w", err)
	}

	now := time.Now().UTC()
	recs := make([]models.Recommendation, 0, len(crops))
	ranked := make([]RankedRecommendation, 0, len(crops))

	for _, crop := range crops {
		compat := Score(&crop, analysis)

		detailsJSON, err := json.Marshal(compat.Details)
		if err != nil {
			// Details are built from plain floats and strings; this
			// cannot realistically fail, but never persist a half-result.
			return nil, fmt.Errorf("marshal details for crop %s: %w", crop.ID, err)
		}

		recs = append(recs, models.Recommendation{
			ID:         uuid.New(),
			AnalysisID: analysis.ID,
			CropID:     crop.ID,
			Score:      compat.Score,
			Details:    detailsJSON,
			Message:    compat.Message,
			CreatedAt:  now,
		})
		ranked = append(ranked, RankedRecommendation{
			CropID:            crop.ID,
			CropName:          crop.Name,
			Score:             compat.Score,
			Details:           compat.Details,
			Message:           compat.Message,
			FertilizerType:    crop.FertilizerType,
			AverageYield:      crop.AverageYield,
			WaterNeeds:        crop.WaterNeeds,
			DroughtResistance: crop.DroughtResistance,
		})
	}

	if err := r.store.BulkInsert(ctx, recs); err != nil {
		return nil, fmt.Errorf("persist recommendations: %w", err)
	}

	// Stable: ties keep catalog order.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	logger.Info("recommendations generated", slog.Int("crop_count", len(ranked)))
	return ranked, nil
}
