package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agrisense-io/crop-advisor/internal/api/response"
	"github.com/agrisense-io/crop-advisor/internal/models"
	"github.com/agrisense-io/crop-advisor/internal/repository"
	"github.com/agrisense-io/crop-advisor/internal/scoring"
)

// AnalysisHandler handles soil analysis submission and retrieval.
type AnalysisHandler struct {
	analysisRepo *repository.AnalysisRepository
	fieldRepo    *repository.FieldRepository
	recRepo      *repository.RecommendationRepository
	idemRepo     *repository.IdempotencyRepository
	recommender  *scoring.Recommender
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(
	analysisRepo *repository.AnalysisRepository,
	fieldRepo *repository.FieldRepository,
	recRepo *repository.RecommendationRepository,
	idemRepo *repository.IdempotencyRepository,
	recommender *scoring.Recommender,
) *AnalysisHandler {
	return &AnalysisHandler{
		analysisRepo: analysisRepo,
		fieldRepo:    fieldRepo,
		recRepo:      recRepo,
		idemRepo:     idemRepo,
		recommender:  recommender,
	}
}

type createAnalysisRequest struct {
	ParcelID     uuid.UUID  `json:"parcel_id" binding:"required"`
	SensorID     *uuid.UUID `json:"sensor_id"`
	PH           *float64   `json:"ph"`
	Humidity     *float64   `json:"humidity"`
	Temperature  *float64   `json:"temperature"`
	Conductivity *float64   `json:"conductivity"`
	Nitrogen     *float64   `json:"nitrogen"`
	Phosphorus   *float64   `json:"phosphorus"`
	Potassium    *float64   `json:"potassium"`
	Observations string     `json:"observations"`
	AnalyzedAt   *time.Time `json:"analyzed_at"`
}

func (r *createAnalysisRequest) hasMeasurement() bool {
	return r.PH != nil || r.Humidity != nil || r.Temperature != nil ||
		r.Conductivity != nil || r.Nitrogen != nil || r.Phosphorus != nil ||
		r.Potassium != nil
}

// HandleCreateAnalysis handles POST /api/v1/analyses. A stored analysis is
// immediately scored against the active crop catalog; the response carries
// the analysis plus the ranked recommendations.
func (h *AnalysisHandler) HandleCreateAnalysis(c *gin.Context) {
	userID, _ := currentUser(c)

	var req createAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err.Error())
		return
	}
	if !req.hasMeasurement() {
		response.BadRequest(c, "at least one soil criterion is required", nil)
		return
	}

	owner, err := h.fieldRepo.ParcelOwner(c.Request.Context(), req.ParcelID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to resolve parcel: %v", err))
		return
	}
	if owner == uuid.Nil || (owner != userID && !isAdmin(c)) {
		response.NotFound(c, "parcel not found")
		return
	}

	analysisID := uuid.New()

	// Optional idempotent create: a replayed key returns the original
	// analysis instead of storing a duplicate.
	if key := c.GetHeader("X-Idempotency-Key"); key != "" {
		claim, err := h.idemRepo.Claim(c.Request.Context(), userID, key, "analysis", analysisID)
		if err != nil {
			response.InternalError(c, fmt.Sprintf("failed to claim idempotency key: %v", err))
			return
		}
		if claim.AlreadyExists {
			existing, err := h.analysisRepo.GetByID(c.Request.Context(), claim.ResourceID)
			if err != nil {
				response.InternalError(c, fmt.Sprintf("failed to load original analysis: %v", err))
				return
			}
			response.Duplicate(c, "analysis already created with this idempotency key", existing)
			return
		}
	}

	analyzedAt := time.Now().UTC()
	if req.AnalyzedAt != nil {
		analyzedAt = req.AnalyzedAt.UTC()
	}

	analysis := &models.SoilAnalysis{
		ID:           analysisID,
		ParcelID:     req.ParcelID,
		UserID:       owner,
		SensorID:     req.SensorID,
		PH:           req.PH,
		Humidity:     req.Humidity,
		Temperature:  req.Temperature,
		Conductivity: req.Conductivity,
		Nitrogen:     req.Nitrogen,
		Phosphorus:   req.Phosphorus,
		Potassium:    req.Potassium,
		Observations: req.Observations,
		AnalyzedAt:   analyzedAt,
	}

	if err := h.analysisRepo.Insert(c.Request.Context(), analysis); err != nil {
		response.InternalError(c, fmt.Sprintf("failed to store analysis: %v", err))
		return
	}

	ranked, err := h.recommender.Generate(c.Request.Context(), analysis)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to generate recommendations: %v", err))
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"analysis":        analysis,
		"recommendations": ranked,
	})
}

// HandleListByParcel handles GET /api/v1/parcels/:parcel_id/analyses.
func (h *AnalysisHandler) HandleListByParcel(c *gin.Context) {
	userID, _ := currentUser(c)

	parcelID, ok := uuidParam(c, "parcel_id")
	if !ok {
		return
	}

	owner, err := h.fieldRepo.ParcelOwner(c.Request.Context(), parcelID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to resolve parcel: %v", err))
		return
	}
	if owner == uuid.Nil || (owner != userID && !isAdmin(c)) {
		response.NotFound(c, "parcel not found")
		return
	}

	page := 1
	pageSize := 20
	if p := c.Query("page"); p != "" {
		var v int
		if _, err := fmt.Sscanf(p, "%d", &v); err == nil && v > 0 {
			page = v
		}
	}
	if ps := c.Query("page_size"); ps != "" {
		var v int
		if _, err := fmt.Sscanf(ps, "%d", &v); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	analyses, total, err := h.analysisRepo.ListByParcel(c.Request.Context(), parcelID, page, pageSize)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to list analyses: %v", err))
		return
	}

	// Each history entry carries its top recommendations.
	type analysisEntry struct {
		models.SoilAnalysis
		TopRecommendations []models.Recommendation `json:"top_recommendations"`
	}
	entries := make([]analysisEntry, 0, len(analyses))
	for _, a := range analyses {
		recs, err := h.recRepo.GetByAnalysis(c.Request.Context(), a.ID, 3)
		if err != nil {
			response.InternalError(c, fmt.Sprintf("failed to load recommendations: %v", err))
			return
		}
		entries = append(entries, analysisEntry{SoilAnalysis: a, TopRecommendations: recs})
	}

	totalPages := (total + pageSize - 1) / pageSize
	response.Success(c, http.StatusOK, gin.H{
		"analyses": entries,
		"pagination": models.Pagination{
			Page:         page,
			PageSize:     pageSize,
			TotalResults: total,
			TotalPages:   totalPages,
		},
	})
}

// HandleGetAnalysis handles GET /api/v1/analyses/:analysis_id. The stored
// recommendations come back ranked by score; ?top=N trims the list.
func (h *AnalysisHandler) HandleGetAnalysis(c *gin.Context) {
	userID, _ := currentUser(c)

	analysisID, ok := uuidParam(c, "analysis_id")
	if !ok {
		return
	}

	analysis, err := h.analysisRepo.GetByID(c.Request.Context(), analysisID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to retrieve analysis: %v", err))
		return
	}
	if analysis == nil || (analysis.UserID != userID && !isAdmin(c)) {
		response.NotFound(c, "analysis not found")
		return
	}

	limit := 0
	if top := c.Query("top"); top != "" {
		var v int
		if _, err := fmt.Sscanf(top, "%d", &v); err == nil && v > 0 {
			limit = v
		}
	}

	recs, err := h.recRepo.GetByAnalysis(c.Request.Context(), analysisID, limit)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to retrieve recommendations: %v", err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"analysis":        analysis,
		"recommendations": recs,
	})
}
