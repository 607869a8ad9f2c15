package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agrisense-io/crop-advisor/internal/api/response"
	"github.com/agrisense-io/crop-advisor/internal/campaign"
	"github.com/agrisense-io/crop-advisor/internal/models"
	"github.com/agrisense-io/crop-advisor/internal/repository"
)

// CampaignHandler handles campaign lifecycle endpoints.
type CampaignHandler struct {
	scheduler    *campaign.Scheduler
	campaignRepo *repository.CampaignRepository
	fieldRepo    *repository.FieldRepository
	idemRepo     *repository.IdempotencyRepository
}

// NewCampaignHandler creates a new campaign handler.
func NewCampaignHandler(
	scheduler *campaign.Scheduler,
	campaignRepo *repository.CampaignRepository,
	fieldRepo *repository.FieldRepository,
	idemRepo *repository.IdempotencyRepository,
) *CampaignHandler {
	return &CampaignHandler{
		scheduler:    scheduler,
		campaignRepo: campaignRepo,
		fieldRepo:    fieldRepo,
		idemRepo:     idemRepo,
	}
}

type createCampaignRequest struct {
	CropID     uuid.UUID  `json:"crop_id" binding:"required"`
	ParcelID   uuid.UUID  `json:"parcel_id" binding:"required"`
	AnalysisID *uuid.UUID `json:"analysis_id"`
	StartDate  string     `json:"start_date" binding:"required"`
	Notes      string     `json:"notes"`
}

// HandleCreateCampaign handles POST /api/v1/campaigns.
func (h *CampaignHandler) HandleCreateCampaign(c *gin.Context) {
	userID, _ := currentUser(c)

	var req createCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		response.BadRequest(c, "start_date must be YYYY-MM-DD", nil)
		return
	}

	owner, err := h.fieldRepo.ParcelOwner(c.Request.Context(), req.ParcelID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to resolve parcel: %v", err))
		return
	}
	if owner == uuid.Nil || owner != userID {
		response.NotFound(c, "parcel not found")
		return
	}

	campaignID := uuid.New()

	// Optional idempotent create.
	if key := c.GetHeader("X-Idempotency-Key"); key != "" {
		claim, err := h.idemRepo.Claim(c.Request.Context(), userID, key, "campaign", campaignID)
		if err != nil {
			response.InternalError(c, fmt.Sprintf("failed to claim idempotency key: %v", err))
			return
		}
		if claim.AlreadyExists {
			existing, err := h.campaignRepo.GetByID(c.Request.Context(), claim.ResourceID)
			if err != nil {
				response.InternalError(c, fmt.Sprintf("failed to load original campaign: %v", err))
				return
			}
			response.Duplicate(c, "campaign already created with this idempotency key", existing)
			return
		}
		// A key claimed here dangles if the create below fails; the
		// expiry sweep reclaims it.
	}

	detail, err := h.scheduler.Create(c.Request.Context(), campaign.CreateParams{
		ID:         campaignID,
		CropID:     req.CropID,
		ParcelID:   req.ParcelID,
		UserID:     userID,
		AnalysisID: req.AnalysisID,
		StartDate:  startDate,
		Notes:      req.Notes,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, detail)
}

// HandleListCampaigns handles GET /api/v1/campaigns, optionally filtered
// by ?status=.
func (h *CampaignHandler) HandleListCampaigns(c *gin.Context) {
	userID, _ := currentUser(c)

	var status *models.CampaignStatus
	if s := c.Query("status"); s != "" {
		cs := models.CampaignStatus(s)
		switch cs {
		case models.CampaignPlanned, models.CampaignInProgress, models.CampaignCompleted, models.CampaignCancelled:
			status = &cs
		default:
			response.BadRequest(c, "invalid status filter", nil)
			return
		}
	}

	campaigns, err := h.campaignRepo.ListByUser(c.Request.Context(), userID, status)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to list campaigns: %v", err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"campaigns": campaigns})
}

// HandleGetCampaign handles GET /api/v1/campaigns/:campaign_id.
func (h *CampaignHandler) HandleGetCampaign(c *gin.Context) {
	userID, _ := currentUser(c)

	campaignID, ok := uuidParam(c, "campaign_id")
	if !ok {
		return
	}

	detail, err := h.scheduler.Get(c.Request.Context(), campaignID, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, detail)
}

// HandleCancelCampaign handles POST /api/v1/campaigns/:campaign_id/cancel.
func (h *CampaignHandler) HandleCancelCampaign(c *gin.Context) {
	userID, _ := currentUser(c)

	campaignID, ok := uuidParam(c, "campaign_id")
	if !ok {
		return
	}

	cancelled, err := h.scheduler.Cancel(c.Request.Context(), campaignID, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"campaign": cancelled})
}

// HandleDeleteCampaign handles DELETE /api/v1/campaigns/:campaign_id.
// Deletion removes the campaign with its stages and tasks; it is the
// cleanup path for abandoned plans, cancel is the auditable one.
func (h *CampaignHandler) HandleDeleteCampaign(c *gin.Context) {
	userID, _ := currentUser(c)

	campaignID, ok := uuidParam(c, "campaign_id")
	if !ok {
		return
	}

	camp, err := h.campaignRepo.GetByID(c.Request.Context(), campaignID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to retrieve campaign: %v", err))
		return
	}
	if camp == nil || (camp.UserID != userID && !isAdmin(c)) {
		response.NotFound(c, "campaign not found")
		return
	}

	if err := h.campaignRepo.Delete(c.Request.Context(), campaignID); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"campaign_id": campaignID, "deleted": true})
}

type stageStatusRequest struct {
	Status models.StageStatus `json:"status" binding:"required"`
}

// HandleUpdateStageStatus handles PATCH /api/v1/stages/:stage_id/status.
func (h *CampaignHandler) HandleUpdateStageStatus(c *gin.Context) {
	userID, _ := currentUser(c)

	stageID, ok := uuidParam(c, "stage_id")
	if !ok {
		return
	}

	var req stageStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err.Error())
		return
	}
	switch req.Status {
	case models.StageTodo, models.StageInProgress, models.StageDone, models.StageLate:
	default:
		response.BadRequest(c, "invalid stage status", nil)
		return
	}

	update, err := h.scheduler.UpdateStageStatus(c.Request.Context(), stageID, req.Status, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, update)
}

type taskStatusRequest struct {
	Status models.TaskStatus `json:"status" binding:"required"`
}

// HandleUpdateTaskStatus handles PATCH /api/v1/tasks/:task_id/status.
func (h *CampaignHandler) HandleUpdateTaskStatus(c *gin.Context) {
	userID, _ := currentUser(c)

	taskID, ok := uuidParam(c, "task_id")
	if !ok {
		return
	}

	var req taskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err.Error())
		return
	}
	switch req.Status {
	case models.TaskTodo, models.TaskDone:
	default:
		response.BadRequest(c, "invalid task status", nil)
		return
	}

	update, err := h.scheduler.UpdateTaskStatus(c.Request.Context(), taskID, req.Status, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, update)
}
