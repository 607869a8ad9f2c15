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
)

// FieldHandler handles field and parcel endpoints.
type FieldHandler struct {
	fieldRepo    *repository.FieldRepository
	analysisRepo *repository.AnalysisRepository
}

// NewFieldHandler creates a new field handler.
func NewFieldHandler(fieldRepo *repository.FieldRepository, analysisRepo *repository.AnalysisRepository) *FieldHandler {
	return &FieldHandler{fieldRepo: fieldRepo, analysisRepo: analysisRepo}
}

// HandleCreateField handles POST /api/v1/fields.
func (h *FieldHandler) HandleCreateField(c *gin.Context) {
	userID, _ := currentUser(c)

	var req struct {
		Name     string `json:"name" binding:"required"`
		Locality string `json:"locality"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	field := &models.Field{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      req.Name,
		Locality:  req.Locality,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.fieldRepo.CreateField(c.Request.Context(), field); err != nil {
		response.InternalError(c, fmt.Sprintf("failed to create field: %v", err))
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"field": field})
}

// HandleListFields handles GET /api/v1/fields, listing the caller's
// fields.
func (h *FieldHandler) HandleListFields(c *gin.Context) {
	userID, _ := currentUser(c)

	fields, err := h.fieldRepo.ListFieldsByUser(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to list fields: %v", err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"fields": fields})
}

// HandleCreateParcel handles POST /api/v1/fields/:field_id/parcels.
func (h *FieldHandler) HandleCreateParcel(c *gin.Context) {
	userID, _ := currentUser(c)

	fieldID, ok := uuidParam(c, "field_id")
	if !ok {
		return
	}

	field, err := h.fieldRepo.GetField(c.Request.Context(), fieldID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to retrieve field: %v", err))
		return
	}
	if field == nil || (field.UserID != userID && !isAdmin(c)) {
		response.NotFound(c, "field not found")
		return
	}

	var req struct {
		Name         string  `json:"name" binding:"required"`
		AreaHectares float64 `json:"area_hectares" binding:"gte=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	parcel := &models.Parcel{
		ID:           uuid.New(),
		FieldID:      fieldID,
		Name:         req.Name,
		AreaHectares: req.AreaHectares,
		CreatedAt:    time.Now().UTC(),
	}

	if err := h.fieldRepo.CreateParcel(c.Request.Context(), parcel); err != nil {
		response.InternalError(c, fmt.Sprintf("failed to create parcel: %v", err))
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"parcel": parcel})
}

// HandleGetParcel handles GET /api/v1/parcels/:parcel_id.
func (h *FieldHandler) HandleGetParcel(c *gin.Context) {
	userID, _ := currentUser(c)

	parcelID, ok := uuidParam(c, "parcel_id")
	if !ok {
		return
	}

	parcel, err := h.fieldRepo.GetParcel(c.Request.Context(), parcelID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to retrieve parcel: %v", err))
		return
	}
	if parcel == nil {
		response.NotFound(c, "parcel not found")
		return
	}

	owner, err := h.fieldRepo.ParcelOwner(c.Request.Context(), parcelID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to resolve parcel owner: %v", err))
		return
	}
	if owner != userID && !isAdmin(c) {
		response.NotFound(c, "parcel not found")
		return
	}

	latest, err := h.analysisRepo.LatestByParcel(c.Request.Context(), parcelID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to load latest analysis: %v", err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"parcel":          parcel,
		"latest_analysis": latest,
	})
}

// HandleListParcels handles GET /api/v1/fields/:field_id/parcels.
func (h *FieldHandler) HandleListParcels(c *gin.Context) {
	userID, _ := currentUser(c)

	fieldID, ok := uuidParam(c, "field_id")
	if !ok {
		return
	}

	field, err := h.fieldRepo.GetField(c.Request.Context(), fieldID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to retrieve field: %v", err))
		return
	}
	if field == nil || (field.UserID != userID && !isAdmin(c)) {
		response.NotFound(c, "field not found")
		return
	}

	parcels, err := h.fieldRepo.ListParcelsByField(c.Request.Context(), fieldID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to list parcels: %v", err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"parcels": parcels})
}
