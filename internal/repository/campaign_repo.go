package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrisense-io/crop-advisor/internal/campaign"
	"github.com/agrisense-io/crop-advisor/internal/models"
)

const campaignColumns = `
	id, crop_id, parcel_id, user_id, analysis_id,
	start_date, end_date, status, progress_percent, notes,
	created_at, updated_at
`

const stageColumns = `
	id, campaign_id, stage_template_id, name, description,
	duration_days, sort_order, start_date, end_date, status
`

const taskColumns = `
	id, campaign_stage_id, description, priority,
	estimated_hours, required_materials, status
`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the same query
// methods serve pooled and transactional access.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CampaignRepository handles data access for campaigns, their stages, and
// their tasks. It implements campaign.Store.
type CampaignRepository struct {
	pool *pgxpool.Pool
	q    querier
}

// NewCampaignRepository creates a new campaign repository.
func NewCampaignRepository(pool *pgxpool.Pool) *CampaignRepository {
	return &CampaignRepository{pool: pool, q: pool}
}

// InTx runs fn inside a transaction. The store handed to fn issues all its
// queries on that transaction; the transaction commits only when fn
// returns nil.
func (r *CampaignRepository) InTx(ctx context.Context, fn func(ctx context.Context, tx campaign.Store) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	txRepo := &CampaignRepository{pool: r.pool, q: tx}
	if err := fn(ctx, txRepo); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ActiveForParcel retrieves the parcel's planned or in-progress campaign.
// Returns (nil, nil) when the parcel has no open campaign.
func (r *CampaignRepository) ActiveForParcel(ctx context.Context, parcelID uuid.UUID) (*models.Campaign, error) {
	query := `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE parcel_id = $1 AND status IN ('planned', 'in_progress')
	`

	c, err := scanCampaign(r.q.QueryRow(ctx, query, parcelID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// Insert writes a campaign together with all its stages and tasks.
func (r *CampaignRepository) Insert(ctx context.Context, c *models.Campaign, stages []models.CampaignStage, tasks []models.CampaignTask) error {
	campaignQuery := `
		INSERT INTO campaigns (
			id, crop_id, parcel_id, user_id, analysis_id,
			start_date, end_date, status, progress_percent, notes,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`

	_, err := r.q.Exec(ctx, campaignQuery,
		c.ID, c.CropID, c.ParcelID, c.UserID, c.AnalysisID,
		c.StartDate, c.EndDate, c.Status, c.ProgressPercent, c.Notes,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return err
	}

	stageQuery := `
		INSERT INTO campaign_stages (
			id, campaign_id, stage_template_id, name, description,
			duration_days, sort_order, start_date, end_date, status
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`
	for _, st := range stages {
		_, err := r.q.Exec(ctx, stageQuery,
			st.ID, st.CampaignID, st.StageTemplateID, st.Name, st.Description,
			st.DurationDays, st.SortOrder, st.StartDate, st.EndDate, st.Status,
		)
		if err != nil {
			return err
		}
	}

	taskQuery := `
		INSERT INTO campaign_tasks (
			id, campaign_stage_id, description, priority,
			estimated_hours, required_materials, status
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`
	for _, t := range tasks {
		_, err := r.q.Exec(ctx, taskQuery,
			t.ID, t.CampaignStageID, t.Description, t.Priority,
			t.EstimatedHours, t.RequiredMaterials, t.Status,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// GetByID retrieves a campaign by ID. Returns (nil, nil) when not found.
func (r *CampaignRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`
	return r.getCampaign(ctx, query, id)
}

// GetForUpdate retrieves a campaign and locks its row for the duration of
// the enclosing transaction. Returns (nil, nil) when not found.
func (r *CampaignRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1 FOR UPDATE`
	return r.getCampaign(ctx, query, id)
}

func (r *CampaignRepository) getCampaign(ctx context.Context, query string, id uuid.UUID) (*models.Campaign, error) {
	c, err := scanCampaign(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// ListByUser retrieves a user's campaigns newest first, optionally
// filtered by status.
func (r *CampaignRepository) ListByUser(ctx context.Context, userID uuid.UUID, status *models.CampaignStatus) ([]models.Campaign, error) {
	query := `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE user_id = $1
	`
	args := []interface{}{userID}

	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return campaigns, nil
}

// Delete removes a campaign; stages and tasks cascade.
func (r *CampaignRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound("campaign", id)
	}
	return nil
}

// StageByID retrieves a campaign stage by ID. Returns (nil, nil) when not
// found.
func (r *CampaignRepository) StageByID(ctx context.Context, id uuid.UUID) (*models.CampaignStage, error) {
	query := `SELECT ` + stageColumns + ` FROM campaign_stages WHERE id = $1`

	st, err := scanStage(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return st, nil
}

// TaskByID retrieves a campaign task by ID. Returns (nil, nil) when not
// found.
func (r *CampaignRepository) TaskByID(ctx context.Context, id uuid.UUID) (*models.CampaignTask, error) {
	query := `SELECT ` + taskColumns + ` FROM campaign_tasks WHERE id = $1`

	t, err := scanTask(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

// StagesByCampaign retrieves a campaign's stages in sort order.
func (r *CampaignRepository) StagesByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.CampaignStage, error) {
	query := `
		SELECT ` + stageColumns + `
		FROM campaign_stages
		WHERE campaign_id = $1
		ORDER BY sort_order ASC
	`

	rows, err := r.q.Query(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stages []models.CampaignStage
	for rows.Next() {
		st, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		stages = append(stages, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stages, nil
}

// TasksByStage retrieves a stage's tasks.
func (r *CampaignRepository) TasksByStage(ctx context.Context, stageID uuid.UUID) ([]models.CampaignTask, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM campaign_tasks
		WHERE campaign_stage_id = $1
		ORDER BY id ASC
	`
	return r.listTasks(ctx, query, stageID)
}

// TasksByCampaign retrieves every task of a campaign in stage order.
func (r *CampaignRepository) TasksByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.CampaignTask, error) {
	query := `
		SELECT t.id, t.campaign_stage_id, t.description, t.priority,
		       t.estimated_hours, t.required_materials, t.status
		FROM campaign_tasks t
		JOIN campaign_stages s ON s.id = t.campaign_stage_id
		WHERE s.campaign_id = $1
		ORDER BY s.sort_order ASC, t.id ASC
	`
	return r.listTasks(ctx, query, campaignID)
}

func (r *CampaignRepository) listTasks(ctx context.Context, query string, arg any) ([]models.CampaignTask, error) {
	rows, err := r.q.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.CampaignTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tasks, nil
}

// SetStageStatus updates a single stage's status.
func (r *CampaignRepository) SetStageStatus(ctx context.Context, stageID uuid.UUID, status models.StageStatus) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE campaign_stages SET status = $2 WHERE id = $1`,
		stageID, status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound("stage", stageID)
	}
	return nil
}

// CompleteStageTasks marks every open task of a stage done.
func (r *CampaignRepository) CompleteStageTasks(ctx context.Context, stageID uuid.UUID) error {
	_, err := r.q.Exec(ctx,
		`UPDATE campaign_tasks SET status = 'done' WHERE campaign_stage_id = $1 AND status <> 'done'`,
		stageID,
	)
	return err
}

// SetTaskStatus updates a single task's status.
func (r *CampaignRepository) SetTaskStatus(ctx context.Context, taskID uuid.UUID, status models.TaskStatus) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE campaign_tasks SET status = $2 WHERE id = $1`,
		taskID, status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound("task", taskID)
	}
	return nil
}

// SetProgress updates a campaign's derived progress and status. A nil
// endDate leaves the stored end date untouched.
func (r *CampaignRepository) SetProgress(ctx context.Context, campaignID uuid.UUID, progress int, status models.CampaignStatus, endDate *time.Time) error {
	query := `
		UPDATE campaigns
		SET progress_percent = $2,
		    status = $3,
		    end_date = COALESCE($4, end_date),
		    updated_at = now()
		WHERE id = $1
	`

	tag, err := r.q.Exec(ctx, query, campaignID, progress, status, endDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound("campaign", campaignID)
	}
	return nil
}

func scanCampaign(row pgx.Row) (*models.Campaign, error) {
	var c models.Campaign
	err := row.Scan(
		&c.ID, &c.CropID, &c.ParcelID, &c.UserID, &c.AnalysisID,
		&c.StartDate, &c.EndDate, &c.Status, &c.ProgressPercent, &c.Notes,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanStage(row pgx.Row) (*models.CampaignStage, error) {
	var st models.CampaignStage
	err := row.Scan(
		&st.ID, &st.CampaignID, &st.StageTemplateID, &st.Name, &st.Description,
		&st.DurationDays, &st.SortOrder, &st.StartDate, &st.EndDate, &st.Status,
	)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func scanTask(row pgx.Row) (*models.CampaignTask, error) {
	var t models.CampaignTask
	err := row.Scan(
		&t.ID, &t.CampaignStageID, &t.Description, &t.Priority,
		&t.EstimatedHours, &t.RequiredMaterials, &t.Status,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
