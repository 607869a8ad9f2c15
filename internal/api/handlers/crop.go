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

// CropHandler handles the crop catalog endpoints.
type CropHandler struct {
	cropRepo *repository.CropRepository
}

// NewCropHandler creates a new crop handler.
func NewCropHandler(cropRepo *repository.CropRepository) *CropHandler {
	return &CropHandler{cropRepo: cropRepo}
}

// HandleListCrops handles GET /api/v1/crops. Farmers see the active
// catalog; admins may pass ?include_inactive=true for the full set.
func (h *CropHandler) HandleListCrops(c *gin.Context) {
	var crops []models.CropProfile
	var err error

	if c.Query("include_inactive") == "true" && isAdmin(c) {
		crops, err = h.cropRepo.List(c.Request.Context())
	} else {
		crops, err = h.cropRepo.ListActive(c.Request.Context())
	}
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to list crops: %v", err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"crops": crops})
}

// HandleGetCrop handles GET /api/v1/crops/:crop_id, returning the profile
// with its stage and task templates.
func (h *CropHandler) HandleGetCrop(c *gin.Context) {
	cropID, ok := uuidParam(c, "crop_id")
	if !ok {
		return
	}

	crop, err := h.cropRepo.GetByID(c.Request.Context(), cropID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to retrieve crop: %v", err))
		return
	}
	if crop == nil || (!crop.Active && !isAdmin(c)) {
		response.NotFound(c, "crop not found")
		return
	}

	stages, err := h.cropRepo.StageTemplates(c.Request.Context(), cropID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to retrieve stage templates: %v", err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"crop":            crop,
		"stage_templates": stages,
	})
}

type cropRequest struct {
	Name              string   `json:"name" binding:"required"`
	IdealSoilType     string   `json:"ideal_soil_type"`
	PHMin             *float64 `json:"ph_min"`
	PHMax             *float64 `json:"ph_max"`
	HumidityMin       *float64 `json:"humidity_min"`
	HumidityMax       *float64 `json:"humidity_max"`
	TemperatureMin    *float64 `json:"temperature_min"`
	TemperatureMax    *float64 `json:"temperature_max"`
	ECMin             *float64 `json:"ec_min"`
	ECMax             *float64 `json:"ec_max"`
	NitrogenMin       *float64 `json:"nitrogen_min"`
	NitrogenMax       *float64 `json:"nitrogen_max"`
	PhosphorusMin     *float64 `json:"phosphorus_min"`
	PhosphorusMax     *float64 `json:"phosphorus_max"`
	PotassiumMin      *float64 `json:"potassium_min"`
	PotassiumMax      *float64 `json:"potassium_max"`
	FertilizerType    string   `json:"fertilizer_type"`
	CycleWeeks        *int     `json:"cycle_weeks"`
	AverageYield      string   `json:"average_yield"`
	WaterNeeds        string   `json:"water_needs"`
	DroughtResistance string   `json:"drought_resistance"`
	IdealSeason       string   `json:"ideal_season"`
	ImageURL          string   `json:"image_url"`
}

func (r *cropRequest) validateRanges() error {
	ranges := []struct {
		name     string
		min, max *float64
	}{
		{"ph", r.PHMin, r.PHMax},
		{"humidity", r.HumidityMin, r.HumidityMax},
		{"temperature", r.TemperatureMin, r.TemperatureMax},
		{"ec", r.ECMin, r.ECMax},
		{"nitrogen", r.NitrogenMin, r.NitrogenMax},
		{"phosphorus", r.PhosphorusMin, r.PhosphorusMax},
		{"potassium", r.PotassiumMin, r.PotassiumMax},
	}
	for _, rng := range ranges {
		if rng.min != nil && rng.max != nil && *rng.min > *rng.max {
			return &models.ValidationError{Field: rng.name, Reason: "min exceeds max"}
		}
	}
	return nil
}

func (r *cropRequest) apply(crop *models.CropProfile) {
	crop.Name = r.Name
	crop.IdealSoilType = r.IdealSoilType
	crop.PHMin, crop.PHMax = r.PHMin, r.PHMax
	crop.HumidityMin, crop.HumidityMax = r.HumidityMin, r.HumidityMax
	crop.TemperatureMin, crop.TemperatureMax = r.TemperatureMin, r.TemperatureMax
	crop.ECMin, crop.ECMax = r.ECMin, r.ECMax
	crop.NitrogenMin, crop.NitrogenMax = r.NitrogenMin, r.NitrogenMax
	crop.PhosphorusMin, crop.PhosphorusMax = r.PhosphorusMin, r.PhosphorusMax
	crop.PotassiumMin, crop.PotassiumMax = r.PotassiumMin, r.PotassiumMax
	crop.FertilizerType = r.FertilizerType
	crop.CycleWeeks = r.CycleWeeks
	crop.AverageYield = r.AverageYield
	crop.WaterNeeds = r.WaterNeeds
	crop.DroughtResistance = r.DroughtResistance
	crop.IdealSeason = r.IdealSeason
	crop.ImageURL = r.ImageURL
}

// HandleCreateCrop handles POST /api/v1/crops (admin only).
func (h *CropHandler) HandleCreateCrop(c *gin.Context) {
	var req cropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err.Error())
		return
	}
	if err := req.validateRanges(); err != nil {
		writeError(c, err)
		return
	}

	now := time.Now().UTC()
	crop := &models.CropProfile{
		ID:        uuid.New(),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	req.apply(crop)

	if err := h.cropRepo.Create(c.Request.Context(), crop); err != nil {
		response.InternalError(c, fmt.Sprintf("failed to create crop: %v", err))
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"crop": crop})
}

// HandleUpdateCrop handles PUT /api/v1/crops/:crop_id (admin only).
func (h *CropHandler) HandleUpdateCrop(c *gin.Context) {
	cropID, ok := uuidParam(c, "crop_id")
	if !ok {
		return
	}

	var req cropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err.Error())
		return
	}
	if err := req.validateRanges(); err != nil {
		writeError(c, err)
		return
	}

	crop, err := h.cropRepo.GetByID(c.Request.Context(), cropID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to retrieve crop: %v", err))
		return
	}
	if crop == nil {
		response.NotFound(c, "crop not found")
		return
	}

	req.apply(crop)
	if err := h.cropRepo.Update(c.Request.Context(), crop); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"crop": crop})
}

// HandleDeactivateCrop handles DELETE /api/v1/crops/:crop_id (admin only).
// Deactivation hides the crop from scoring and new campaigns; history
// pointing at it stays intact.
func (h *CropHandler) HandleDeactivateCrop(c *gin.Context) {
	cropID, ok := uuidParam(c, "crop_id")
	if !ok {
		return
	}

	if err := h.cropRepo.SetActive(c.Request.Context(), cropID, false); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"crop_id": cropID, "active": false})
}

type stageTemplateRequest struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	DurationDays int    `json:"duration_days" binding:"required,gt=0"`
	Tasks        []struct {
		Description       string              `json:"description" binding:"required"`
		Priority          models.TaskPriority `json:"priority"`
		EstimatedHours    float64             `json:"estimated_hours"`
		RequiredMaterials []string            `json:"required_materials"`
	} `json:"tasks"`
}

// HandleReplaceStageTemplates handles PUT /api/v1/crops/:crop_id/stages
// (admin only). The submitted list replaces the crop's whole template set;
// order in the list becomes the stage order.
func (h *CropHandler) HandleReplaceStageTemplates(c *gin.Context) {
	cropID, ok := uuidParam(c, "crop_id")
	if !ok {
		return
	}

	var req []stageTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	crop, err := h.cropRepo.GetByID(c.Request.Context(), cropID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to retrieve crop: %v", err))
		return
	}
	if crop == nil {
		response.NotFound(c, "crop not found")
		return
	}

	stages := make([]models.StageTemplate, 0, len(req))
	for _, s := range req {
		st := models.StageTemplate{
			ID:           uuid.New(),
			CropID:       cropID,
			Name:         s.Name,
			Description:  s.Description,
			DurationDays: s.DurationDays,
		}
		for _, t := range s.Tasks {
			priority := t.Priority
			if priority == "" {
				priority = models.PriorityMedium
			}
			st.Tasks = append(st.Tasks, models.TaskTemplate{
				ID:                uuid.New(),
				StageTemplateID:   st.ID,
				Description:       t.Description,
				Priority:          priority,
				EstimatedHours:    t.EstimatedHours,
				RequiredMaterials: t.RequiredMaterials,
			})
		}
		stages = append(stages, st)
	}

	if err := h.cropRepo.ReplaceStageTemplates(c.Request.Context(), cropID, stages); err != nil {
		response.InternalError(c, fmt.Sprintf("failed to replace stage templates: %v", err))
		return
	}

	updated, err := h.cropRepo.StageTemplates(c.Request.Context(), cropID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to retrieve stage templates: %v", err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"crop_id":         cropID,
		"stage_templates": updated,
	})
}
