package campaign

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/agrisense-io/crop-advisor/internal/models"
)

// Catalog supplies crop profiles and their stage templates.
type Catalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.CropProfile, error)
	StageTemplates(ctx context.Context, cropID uuid.UUID) ([]models.StageTemplate, error)
}

// Store is the persistence contract the scheduler needs. InTx runs fn
// against a transaction-bound Store; every mutation of one campaign and its
// derived progress happens inside a single such transaction, with the
// campaign row locked for update, so racing updates serialize instead of
// losing writes.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	ActiveForParcel(ctx context.Context, parcelID uuid.UUID) (*models.Campaign, error)
	Insert(ctx context.Context, c *models.Campaign, stages []models.CampaignStage, tasks []models.CampaignTask) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	StageByID(ctx context.Context, id uuid.UUID) (*models.CampaignStage, error)
	TaskByID(ctx context.Context, id uuid.UUID) (*models.CampaignTask, error)
	StagesByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.CampaignStage, error)
	TasksByStage(ctx context.Context, stageID uuid.UUID) ([]models.CampaignTask, error)
	TasksByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.CampaignTask, error)

	SetStageStatus(ctx context.Context, stageID uuid.UUID, status models.StageStatus) error
	CompleteStageTasks(ctx context.Context, stageID uuid.UUID) error
	SetTaskStatus(ctx context.Context, taskID uuid.UUID, status models.TaskStatus) error
	SetProgress(ctx context.Context, campaignID uuid.UUID, progress int, status models.CampaignStatus, endDate *time.Time) error
}

// Clock supplies the current time for status-transition timestamps.
type Clock func() time.Time

// Scheduler turns a chosen crop into a dated campaign and maintains the
// derived progress and status as stages and tasks complete.
type Scheduler struct {
	catalog Catalog
	store   Store
	now     Clock
}

// NewScheduler creates a scheduler. A nil clock defaults to time.Now.
func NewScheduler(catalog Catalog, store Store, now Clock) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{catalog: catalog, store: store, now: now}
}

// CreateParams are the validated inputs for campaign creation. A zero ID
// means the scheduler allocates one; callers that claim idempotency keys
// pre-allocate it.
type CreateParams struct {
	ID         uuid.UUID
	CropID     uuid.UUID
	ParcelID   uuid.UUID
	UserID     uuid.UUID
	AnalysisID *uuid.UUID
	StartDate  time.Time
	Notes      string
}

// StageDetail pairs a stage with its tasks.
type StageDetail struct {
	models.CampaignStage
	Tasks []models.CampaignTask `json:"tasks"`
}

// Detail is a fully populated campaign aggregate.
type Detail struct {
	Campaign models.Campaign `json:"campaign"`
	Stages   []StageDetail   `json:"stages"`
}

// StatusUpdate reports the campaign-level outcome of a stage or task
// status change.
type StatusUpdate struct {
	CampaignID      uuid.UUID             `json:"campaign_id"`
	ProgressPercent int                   `json:"progress_percent"`
	CampaignStatus  models.CampaignStatus `json:"campaign_status"`
}

// Create instantiates a campaign from the crop's stage templates.
// The crop must exist and be active; the parcel must have no planned or
// in-progress campaign. The campaign row, all stages, and all tasks are
// written in one transaction.
func (s *Scheduler) Create(ctx context.Context, p CreateParams) (*Detail, error) {
	crop, err := s.catalog.GetByID(ctx, p.CropID)
	if err != nil {
		return nil, fmt.Errorf("load crop: %w", err)
	}
	if crop == nil || !crop.Active {
		return nil, models.ErrNotFound("active crop", p.CropID)
	}

	templates, err := s.catalog.StageTemplates(ctx, p.CropID)
	if err != nil {
		return nil, fmt.Errorf("load stage templates: %w", err)
	}

	campaignID := p.ID
	if campaignID == uuid.Nil {
		campaignID = uuid.New()
	}

	now := s.now().UTC()
	camp := &models.Campaign{
		ID:              campaignID,
		CropID:          p.CropID,
		ParcelID:        p.ParcelID,
		UserID:          p.UserID,
		AnalysisID:      p.AnalysisID,
		StartDate:       p.StartDate,
		Status:          models.CampaignPlanned,
		ProgressPercent: 0,
		Notes:           p.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	stages, tasks, endDate := BuildSchedule(camp.ID, p.StartDate, templates)
	camp.EndDate = &endDate

	err = s.store.InTx(ctx, func(ctx context.Context, tx Store) error {
		existing, err := tx.ActiveForParcel(ctx, p.ParcelID)
		if err != nil {
			return err
		}
		if existing != nil {
			return &models.ConflictError{
				Entity:     "campaign",
				BlockingID: existing.ID,
				Reason:     "parcel already has an active campaign",
			}
		}
		return tx.Insert(ctx, camp, stages, tasks)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("campaign created",
		"campaign_id", camp.ID,
		"crop_id", p.CropID,
		"parcel_id", p.ParcelID,
		"stage_count", len(stages),
	)

	return assemble(camp, stages, tasks), nil
}

// Get returns the campaign aggregate, scoped to the owning user. If the
// stored progress or status is stale relative to the stage statuses, it is
// recomputed and the correction persisted before returning.
func (s *Scheduler) Get(ctx context.Context, campaignID, userID uuid.UUID) (*Detail, error) {
	var detail *Detail
	err := s.store.InTx(ctx, func(ctx context.Context, tx Store) error {
		camp, err := tx.GetForUpdate(ctx, campaignID)
		if err != nil {
			return err
		}
		if camp == nil || camp.UserID != userID {
			return models.ErrNotFound("campaign", campaignID)
		}

		stages, err := tx.StagesByCampaign(ctx, campaignID)
		if err != nil {
			return err
		}
		tasks, err := tx.TasksByCampaign(ctx, campaignID)
		if err != nil {
			return err
		}

		if !camp.Status.Terminal() && len(stages) > 0 {
			progress := Progress(stages)
			status := NextStatus(camp.Status, progress)
			if progress != camp.ProgressPercent || status != camp.Status {
				var endDate *time.Time
				if status == models.CampaignCompleted {
					t := s.now().UTC()
					endDate = &t
					camp.EndDate = endDate
				}
				if err := tx.SetProgress(ctx, campaignID, progress, status, endDate); err != nil {
					return err
				}
				camp.ProgressPercent = progress
				camp.Status = status
			}
		}

		detail = assemble(camp, stages, tasks)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// UpdateStageStatus sets a stage's status and rolls the change up to the
// campaign. Marking a stage done bulk-completes its open tasks. A done
// stage cannot be reverted: progress never decreases.
func (s *Scheduler) UpdateStageStatus(ctx context.Context, stageID uuid.UUID, status models.StageStatus, userID uuid.UUID) (*StatusUpdate, error) {
	var result *StatusUpdate
	err := s.store.InTx(ctx, func(ctx context.Context, tx Store) error {
		stage, err := tx.StageByID(ctx, stageID)
		if err != nil {
			return err
		}
		if stage == nil {
			return models.ErrNotFound("stage", stageID)
		}

		camp, err := tx.GetForUpdate(ctx, stage.CampaignID)
		if err != nil {
			return err
		}
		if camp == nil || camp.UserID != userID {
			return models.ErrNotFound("stage", stageID)
		}
		if camp.Status.Terminal() {
			return &models.InvalidStateError{Entity: "campaign", ID: camp.ID, State: string(camp.Status)}
		}
		if stage.Status == models.StageDone && status != models.StageDone {
			return &models.InvalidStateError{Entity: "stage", ID: stageID, State: string(stage.Status)}
		}

		if stage.Status != status {
			if err := tx.SetStageStatus(ctx, stageID, status); err != nil {
				return err
			}
		}
		if status == models.StageDone {
			if err := tx.CompleteStageTasks(ctx, stageID); err != nil {
				return err
			}
		}

		return s.rollup(ctx, tx, camp, &result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateTaskStatus sets a task's status. Completing the last open task of a
// stage auto-completes the stage, which rolls up to campaign progress.
// Tasks under a done stage are frozen.
func (s *Scheduler) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status models.TaskStatus, userID uuid.UUID) (*StatusUpdate, error) {
	var result *StatusUpdate
	err := s.store.InTx(ctx, func(ctx context.Context, tx Store) error {
		task, err := tx.TaskByID(ctx, taskID)
		if err != nil {
			return err
		}
		if task == nil {
			return models.ErrNotFound("task", taskID)
		}
		stage, err := tx.StageByID(ctx, task.CampaignStageID)
		if err != nil {
			return err
		}
		if stage == nil {
			return models.ErrNotFound("stage", task.CampaignStageID)
		}

		camp, err := tx.GetForUpdate(ctx, stage.CampaignID)
		if err != nil {
			return err
		}
		if camp == nil || camp.UserID != userID {
			return models.ErrNotFound("task", taskID)
		}
		if camp.Status.Terminal() {
			return &models.InvalidStateError{Entity: "campaign", ID: camp.ID, State: string(camp.Status)}
		}
		if stage.Status == models.StageDone {
			return &models.InvalidStateError{Entity: "stage", ID: stage.ID, State: string(stage.Status)}
		}

		if task.Status != status {
			if err := tx.SetTaskStatus(ctx, taskID, status); err != nil {
				return err
			}
		}

		if status == models.TaskDone {
			siblings, err := tx.TasksByStage(ctx, stage.ID)
			if err != nil {
				return err
			}
			if AllDone(siblings) {
				if err := tx.SetStageStatus(ctx, stage.ID, models.StageDone); err != nil {
					return err
				}
			}
		}

		return s.rollup(ctx, tx, camp, &result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel terminally cancels a planned or in-progress campaign.
func (s *Scheduler) Cancel(ctx context.Context, campaignID, userID uuid.UUID) (*models.Campaign, error) {
	var cancelled *models.Campaign
	err := s.store.InTx(ctx, func(ctx context.Context, tx Store) error {
		camp, err := tx.GetForUpdate(ctx, campaignID)
		if err != nil {
			return err
		}
		if camp == nil || camp.UserID != userID {
			return models.ErrNotFound("campaign", campaignID)
		}
		if camp.Status.Terminal() {
			return &models.InvalidStateError{Entity: "campaign", ID: campaignID, State: string(camp.Status)}
		}
		if err := tx.SetProgress(ctx, campaignID, camp.ProgressPercent, models.CampaignCancelled, nil); err != nil {
			return err
		}
		camp.Status = models.CampaignCancelled
		cancelled = camp
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("campaign cancelled", "campaign_id", campaignID)
	return cancelled, nil
}

// rollup recomputes progress from the stage statuses and advances the
// campaign state machine, setting the end date on completion.
func (s *Scheduler) rollup(ctx context.Context, tx Store, camp *models.Campaign, out **StatusUpdate) error {
	stages, err := tx.StagesByCampaign(ctx, camp.ID)
	if err != nil {
		return err
	}

	progress := Progress(stages)
	status := NextStatus(camp.Status, progress)

	var endDate *time.Time
	if status == models.CampaignCompleted && camp.Status != models.CampaignCompleted {
		t := s.now().UTC()
		endDate = &t
	}

	if err := tx.SetProgress(ctx, camp.ID, progress, status, endDate); err != nil {
		return err
	}

	*out = &StatusUpdate{
		CampaignID:      camp.ID,
		ProgressPercent: progress,
		CampaignStatus:  status,
	}
	return nil
}

func assemble(camp *models.Campaign, stages []models.CampaignStage, tasks []models.CampaignTask) *Detail {
	byStage := make(map[uuid.UUID][]models.CampaignTask, len(stages))
	for _, t := range tasks {
		byStage[t.CampaignStageID] = append(byStage[t.CampaignStageID], t)
	}

	detail := &Detail{Campaign: *camp, Stages: make([]StageDetail, 0, len(stages))}
	for _, st := range stages {
		detail.Stages = append(detail.Stages, StageDetail{
			CampaignStage: st,
			Tasks:         byStage[st.ID],
		})
	}
	return detail
}
