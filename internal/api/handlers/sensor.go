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

// SensorHandler handles sensor registration endpoints.
type SensorHandler struct {
	sensorRepo *repository.SensorRepository
}

// NewSensorHandler creates a new sensor handler.
func NewSensorHandler(sensorRepo *repository.SensorRepository) *SensorHandler {
	return &SensorHandler{sensorRepo: sensorRepo}
}

// HandleRegisterSensor handles POST /api/v1/sensors (admin only). Only
// registered serials are accepted on the ingestion topic.
func (h *SensorHandler) HandleRegisterSensor(c *gin.Context) {
	var req struct {
		SerialCode string `json:"serial_code" binding:"required"`
		Type       string `json:"type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	if req.Type == "" {
		req.Type = "fixed"
	}

	existing, err := h.sensorRepo.GetBySerial(c.Request.Context(), req.SerialCode)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to check serial: %v", err))
		return
	}
	if existing != nil {
		response.Conflict(c, "sensor serial already registered", gin.H{"sensor_id": existing.ID})
		return
	}

	sensor := &models.Sensor{
		ID:          uuid.New(),
		SerialCode:  req.SerialCode,
		Type:        req.Type,
		ActivatedAt: time.Now().UTC(),
	}

	if err := h.sensorRepo.Create(c.Request.Context(), sensor); err != nil {
		response.InternalError(c, fmt.Sprintf("failed to register sensor: %v", err))
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"sensor": sensor})
}

// HandleGetSensor handles GET /api/v1/sensors/:sensor_id (admin only).
func (h *SensorHandler) HandleGetSensor(c *gin.Context) {
	sensorID, ok := uuidParam(c, "sensor_id")
	if !ok {
		return
	}

	sensor, err := h.sensorRepo.GetByID(c.Request.Context(), sensorID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to retrieve sensor: %v", err))
		return
	}
	if sensor == nil {
		response.NotFound(c, "sensor not found")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sensor": sensor})
}

// HandleListSensors handles GET /api/v1/sensors (admin only).
func (h *SensorHandler) HandleListSensors(c *gin.Context) {
	sensors, err := h.sensorRepo.List(c.Request.Context())
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to list sensors: %v", err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sensors": sensors})
}
