package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrisense-io/crop-advisor/internal/models"
)

const cropColumns = `
	id, name, ideal_soil_type,
	ph_min, ph_max, humidity_min, humidity_max,
	temperature_min, temperature_max, ec_min, ec_max,
	nitrogen_min, nitrogen_max, phosphorus_min, phosphorus_max,
	potassium_min, potassium_max,
	fertilizer_type, cycle_weeks, average_yield, water_needs,
	drought_resistance, ideal_season, image_url, active,
	created_at, updated_at
`

// CropRepository handles data access for the crop catalog and its stage
// and task templates.
type CropRepository struct {
	pool *pgxpool.Pool
}

// NewCropRepository creates a new crop repository.
func NewCropRepository(pool *pgxpool.Pool) *CropRepository {
	return &CropRepository{pool: pool}
}

// Create inserts a new crop profile and returns the stored row.
func (r *CropRepository) Create(ctx context.Context, c *models.CropProfile) error {
	query := `
		INSERT INTO crops (
			id, name, ideal_soil_type,
			ph_min, ph_max, humidity_min, humidity_max,
			temperature_min, temperature_max, ec_min, ec_max,
			nitrogen_min, nitrogen_max, phosphorus_min, phosphorus_max,
			potassium_min, potassium_max,
			fertilizer_type, cycle_weeks, average_yield, water_needs,
			drought_resistance, ideal_season, image_url, active,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27
		)
	`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Name, c.IdealSoilType,
		c.PHMin, c.PHMax, c.HumidityMin, c.HumidityMax,
		c.TemperatureMin, c.TemperatureMax, c.ECMin, c.ECMax,
		c.NitrogenMin, c.NitrogenMax, c.PhosphorusMin, c.PhosphorusMax,
		c.PotassiumMin, c.PotassiumMax,
		c.FertilizerType, c.CycleWeeks, c.AverageYield, c.WaterNeeds,
		c.DroughtResistance, c.IdealSeason, c.ImageURL, c.Active,
		c.CreatedAt, c.UpdatedAt,
	)
	return err
}

// Update rewrites the mutable columns of a crop profile.
func (r *CropRepository) Update(ctx context.Context, c *models.CropProfile) error {
	query := `
		UPDATE crops SET
			name = $2, ideal_soil_type = $3,
			ph_min = $4, ph_max = $5, humidity_min = $6, humidity_max = $7,
			temperature_min = $8, temperature_max = $9, ec_min = $10, ec_max = $11,
			nitrogen_min = $12, nitrogen_max = $13,
			phosphorus_min = $14, phosphorus_max = $15,
			potassium_min = $16, potassium_max = $17,
			fertilizer_type = $18, cycle_weeks = $19, average_yield = $20,
			water_needs = $21, drought_resistance = $22, ideal_season = $23,
			image_url = $24, active = $25, updated_at = $26
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		c.ID, c.Name, c.IdealSoilType,
		c.PHMin, c.PHMax, c.HumidityMin, c.HumidityMax,
		c.TemperatureMin, c.TemperatureMax, c.ECMin, c.ECMax,
		c.NitrogenMin, c.NitrogenMax, c.PhosphorusMin, c.PhosphorusMax,
		c.PotassiumMin, c.PotassiumMax,
		c.FertilizerType, c.CycleWeeks, c.AverageYield, c.WaterNeeds,
		c.DroughtResistance, c.IdealSeason, c.ImageURL, c.Active,
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound("crop", c.ID)
	}
	return nil
}

// GetByID retrieves a crop by ID. Returns (nil, nil) when not found.
func (r *CropRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CropProfile, error) {
	query := `SELECT ` + cropColumns + ` FROM crops WHERE id = $1`

	crop, err := scanCrop(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return crop, nil
}

// ListActive retrieves all active crops in catalog order (name ascending).
func (r *CropRepository) ListActive(ctx context.Context) ([]models.CropProfile, error) {
	query := `SELECT ` + cropColumns + ` FROM crops WHERE active ORDER BY name ASC`
	return r.list(ctx, query)
}

// List retrieves the full catalog including deactivated crops.
func (r *CropRepository) List(ctx context.Context) ([]models.CropProfile, error) {
	query := `SELECT ` + cropColumns + ` FROM crops ORDER BY name ASC`
	return r.list(ctx, query)
}

func (r *CropRepository) list(ctx context.Context, query string) ([]models.CropProfile, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var crops []models.CropProfile
	for rows.Next() {
		crop, err := scanCrop(rows)
		if err != nil {
			return nil, err
		}
		crops = append(crops, *crop)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return crops, nil
}

// SetActive toggles a crop's catalog visibility. Deactivation is the only
// removal path; crops referenced by campaigns are never hard-deleted.
func (r *CropRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE crops SET active = $2, updated_at = now() WHERE id = $1`,
		id, active,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound("crop", id)
	}
	return nil
}

// StageTemplates retrieves a crop's stage templates in sort order, each
// populated with its task templates.
func (r *CropRepository) StageTemplates(ctx context.Context, cropID uuid.UUID) ([]models.StageTemplate, error) {
	query := `
		SELECT id, crop_id, name, description, duration_days, sort_order
		FROM stage_templates
		WHERE crop_id = $1
		ORDER BY sort_order ASC
	`

	rows, err := r.pool.Query(ctx, query, cropID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stages []models.StageTemplate
	for rows.Next() {
		var st models.StageTemplate
		err := rows.Scan(&st.ID, &st.CropID, &st.Name, &st.Description, &st.DurationDays, &st.SortOrder)
		if err != nil {
			return nil, err
		}
		stages = append(stages, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(stages) == 0 {
		return stages, nil
	}

	taskQuery := `
		SELECT t.id, t.stage_template_id, t.description, t.priority,
		       t.estimated_hours, t.required_materials
		FROM task_templates t
		JOIN stage_templates s ON s.id = t.stage_template_id
		WHERE s.crop_id = $1
		ORDER BY s.sort_order ASC, t.id ASC
	`

	taskRows, err := r.pool.Query(ctx, taskQuery, cropID)
	if err != nil {
		return nil, err
	}
	defer taskRows.Close()

	byStage := make(map[uuid.UUID][]models.TaskTemplate)
	for taskRows.Next() {
		var tt models.TaskTemplate
		err := taskRows.Scan(&tt.ID, &tt.StageTemplateID, &tt.Description, &tt.Priority,
			&tt.EstimatedHours, &tt.RequiredMaterials)
		if err != nil {
			return nil, err
		}
		byStage[tt.StageTemplateID] = append(byStage[tt.StageTemplateID], tt)
	}
	if err := taskRows.Err(); err != nil {
		return nil, err
	}

	for i := range stages {
		stages[i].Tasks = byStage[stages[i].ID]
	}

	return stages, nil
}

// ReplaceStageTemplates swaps a crop's full template set atomically. Sort
// orders are renumbered to a gapless 1..n sequence in input order.
func (r *CropRepository) ReplaceStageTemplates(ctx context.Context, cropID uuid.UUID, stages []models.StageTemplate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM stage_templates WHERE crop_id = $1`, cropID); err != nil {
		return err
	}

	stageQuery := `
		INSERT INTO stage_templates (id, crop_id, name, description, duration_days, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	taskQuery := `
		INSERT INTO task_templates (id, stage_template_id, description, priority, estimated_hours, required_materials)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for i, st := range stages {
		if st.ID == uuid.Nil {
			st.ID = uuid.New()
		}
		_, err := tx.Exec(ctx, stageQuery, st.ID, cropID, st.Name, st.Description, st.DurationDays, i+1)
		if err != nil {
			return err
		}
		for _, tt := range st.Tasks {
			if tt.ID == uuid.Nil {
				tt.ID = uuid.New()
			}
			_, err := tx.Exec(ctx, taskQuery, tt.ID, st.ID, tt.Description, tt.Priority, tt.EstimatedHours, tt.RequiredMaterials)
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}

func scanCrop(row pgx.Row) (*models.CropProfile, error) {
	var c models.CropProfile
	err := row.Scan(
		&c.ID, &c.Name, &c.IdealSoilType,
		&c.PHMin, &c.PHMax, &c.HumidityMin, &c.HumidityMax,
		&c.TemperatureMin, &c.TemperatureMax, &c.ECMin, &c.ECMax,
		&c.NitrogenMin, &c.NitrogenMax, &c.PhosphorusMin, &c.PhosphorusMax,
		&c.PotassiumMin, &c.PotassiumMax,
		&c.FertilizerType, &c.CycleWeeks, &c.AverageYield, &c.WaterNeeds,
		&c.DroughtResistance, &c.IdealSeason, &c.ImageURL, &c.Active,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
