package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CampaignStatus enumerates the campaign lifecycle states.
type CampaignStatus string

const (
	CampaignPlanned    CampaignStatus = "planned"
	CampaignInProgress CampaignStatus = "in_progress"
	CampaignCompleted  CampaignStatus = "completed"
	CampaignCancelled  CampaignStatus = "cancelled"
)

// Terminal reports whether the campaign accepts no further mutation.
func (s CampaignStatus) Terminal() bool {
	return s == CampaignCompleted || s == CampaignCancelled
}

// StageStatus enumerates campaign stage states.
type StageStatus string

const (
	StageTodo       StageStatus = "todo"
	StageInProgress StageStatus = "in_progress"
	StageDone       StageStatus = "done"
	StageLate       StageStatus = "late"
)

// TaskStatus enumerates campaign task states.
type TaskStatus string

const (
	TaskTodo TaskStatus = "todo"
	TaskDone TaskStatus = "done"
)

// TaskPriority enumerates task priorities.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Field represents a farmer's field, owned by one user.
// DB columns: id, user_id, name, locality, created_at
type Field struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Locality  string    `json:"locality"`
	CreatedAt time.Time `json:"created_at"`
}

// Parcel is a cultivated sub-division of a field.
// DB columns: id, field_id, name, area_hectares, created_at
type Parcel struct {
	ID           uuid.UUID `json:"id"`
	FieldID      uuid.UUID `json:"field_id"`
	Name         string    `json:"name"`
	AreaHectares float64   `json:"area_hectares"`
	CreatedAt    time.Time `json:"created_at"`
}

// Sensor is a registered soil sensor (fixed or handheld).
// DB columns: id, serial_code, type, activated_at
type Sensor struct {
	ID          uuid.UUID `json:"id"`
	SerialCode  string    `json:"serial_code"`
	Type        string    `json:"type"`
	ActivatedAt time.Time `json:"activated_at"`
}

// SoilAnalysis is one soil measurement event for a parcel. Immutable once
// created. Criterion values may be absent; partial sensor data is expected,
// not exceptional.
// DB columns: id, parcel_id, user_id, sensor_id, ph, humidity, temperature,
//
//	conductivity, nitrogen, phosphorus, potassium, observations, analyzed_at
type SoilAnalysis struct {
	ID           uuid.UUID  `json:"id"`
	ParcelID     uuid.UUID  `json:"parcel_id"`
	UserID       uuid.UUID  `json:"user_id"`
	SensorID     *uuid.UUID `json:"sensor_id,omitempty"`
	PH           *float64   `json:"ph,omitempty"`
	Humidity     *float64   `json:"humidity,omitempty"`
	Temperature  *float64   `json:"temperature,omitempty"`
	Conductivity *float64   `json:"conductivity,omitempty"`
	Nitrogen     *float64   `json:"nitrogen,omitempty"`
	Phosphorus   *float64   `json:"phosphorus,omitempty"`
	Potassium    *float64   `json:"potassium,omitempty"`
	Observations string     `json:"observations,omitempty"`
	AnalyzedAt   time.Time  `json:"analyzed_at"`
}

// CropProfile is a catalog entry describing a crop's ideal soil ranges.
// A nil min or max disables that criterion for scoring.
// DB columns: id, name, ideal_soil_type, ph_min, ph_max, humidity_min,
//
//	humidity_max, temperature_min, temperature_max, ec_min, ec_max,
//	nitrogen_min, nitrogen_max, phosphorus_min, phosphorus_max,
//	potassium_min, potassium_max, fertilizer_type, cycle_weeks,
//	average_yield, water_needs, drought_resistance, ideal_season,
//	image_url, active, created_at, updated_at
type CropProfile struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	IdealSoilType     string    `json:"ideal_soil_type,omitempty"`
	PHMin             *float64  `json:"ph_min,omitempty"`
	PHMax             *float64  `json:"ph_max,omitempty"`
	HumidityMin       *float64  `json:"humidity_min,omitempty"`
	HumidityMax       *float64  `json:"humidity_max,omitempty"`
	TemperatureMin    *float64  `json:"temperature_min,omitempty"`
	TemperatureMax    *float64  `json:"temperature_max,omitempty"`
	ECMin             *float64  `json:"ec_min,omitempty"`
	ECMax             *float64  `json:"ec_max,omitempty"`
	NitrogenMin       *float64  `json:"nitrogen_min,omitempty"`
	NitrogenMax       *float64  `json:"nitrogen_max,omitempty"`
	PhosphorusMin     *float64  `json:"phosphorus_min,omitempty"`
	PhosphorusMax     *float64  `json:"phosphorus_max,omitempty"`
	PotassiumMin      *float64  `json:"potassium_min,omitempty"`
	PotassiumMax      *float64  `json:"potassium_max,omitempty"`
	FertilizerType    string    `json:"fertilizer_type,omitempty"`
	CycleWeeks        *int      `json:"cycle_weeks,omitempty"`
	AverageYield      string    `json:"average_yield,omitempty"`
	WaterNeeds        string    `json:"water_needs,omitempty"`
	DroughtResistance string    `json:"drought_resistance,omitempty"`
	IdealSeason       string    `json:"ideal_season,omitempty"`
	ImageURL          string    `json:"image_url,omitempty"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// StageTemplate is a catalog cultivation phase for a crop. SortOrder values
// form a gapless ascending sequence per crop.
// DB columns: id, crop_id, name, description, duration_days, sort_order
type StageTemplate struct {
	ID           uuid.UUID      `json:"id"`
	CropID       uuid.UUID      `json:"crop_id"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	DurationDays int            `json:"duration_days"`
	SortOrder    int            `json:"sort_order"`
	Tasks        []TaskTemplate `json:"tasks,omitempty"`
}

// TaskTemplate is a catalog task under a stage template.
// DB columns: id, stage_template_id, description, priority, estimated_hours,
//
//	required_materials
type TaskTemplate struct {
	ID                uuid.UUID    `json:"id"`
	StageTemplateID   uuid.UUID    `json:"stage_template_id"`
	Description       string       `json:"description"`
	Priority          TaskPriority `json:"priority"`
	EstimatedHours    float64      `json:"estimated_hours"`
	RequiredMaterials []string     `json:"required_materials,omitempty"`
}

// Recommendation holds one compatibility result for an (analysis, crop)
// pair. Never mutated after creation; displayed ranked by score descending.
// DB columns: id, analysis_id, crop_id, score, details, message, created_at
type Recommendation struct {
	ID         uuid.UUID       `json:"id"`
	AnalysisID uuid.UUID       `json:"analysis_id"`
	CropID     uuid.UUID       `json:"crop_id"`
	Score      int             `json:"score"`
	Details    json.RawMessage `json:"details"`
	Message    string          `json:"message"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Campaign is a scheduled cultivation cycle for one crop on one parcel.
// At most one campaign with status planned|in_progress exists per parcel.
// DB columns: id, crop_id, parcel_id, user_id, analysis_id, start_date,
//
//	end_date, status, progress_percent, notes, created_at, updated_at
type Campaign struct {
	ID              uuid.UUID      `json:"id"`
	CropID          uuid.UUID      `json:"crop_id"`
	ParcelID        uuid.UUID      `json:"parcel_id"`
	UserID          uuid.UUID      `json:"user_id"`
	AnalysisID      *uuid.UUID     `json:"analysis_id,omitempty"`
	StartDate       time.Time      `json:"start_date"`
	EndDate         *time.Time     `json:"end_date,omitempty"`
	Status          CampaignStatus `json:"status"`
	ProgressPercent int            `json:"progress_percent"`
	Notes           string         `json:"notes,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// CampaignStage is a dated instantiation of a stage template.
// DB columns: id, campaign_id, stage_template_id, name, description,
//
//	duration_days, sort_order, start_date, end_date, status
type CampaignStage struct {
	ID              uuid.UUID   `json:"id"`
	CampaignID      uuid.UUID   `json:"campaign_id"`
	StageTemplateID uuid.UUID   `json:"stage_template_id"`
	Name            string      `json:"name"`
	Description     string      `json:"description,omitempty"`
	DurationDays    int         `json:"duration_days"`
	SortOrder       int         `json:"sort_order"`
	StartDate       time.Time   `json:"start_date"`
	EndDate         time.Time   `json:"end_date"`
	Status          StageStatus `json:"status"`
}

// CampaignTask is an actionable item instantiated from a task template.
// DB columns: id, campaign_stage_id, description, priority, estimated_hours,
//
//	required_materials, status
type CampaignTask struct {
	ID                uuid.UUID    `json:"id"`
	CampaignStageID   uuid.UUID    `json:"campaign_stage_id"`
	Description       string       `json:"description"`
	Priority          TaskPriority `json:"priority"`
	EstimatedHours    float64      `json:"estimated_hours"`
	RequiredMaterials []string     `json:"required_materials,omitempty"`
	Status            TaskStatus   `json:"status"`
}

// WeatherRecord mirrors one provider forecast row for a location.
// DB columns: id, location, forecast_date, temperature, humidity,
//
//	precipitation, wind_speed, description, last_updated
type WeatherRecord struct {
	ID            uuid.UUID `json:"id"`
	Location      string    `json:"location"`
	ForecastDate  time.Time `json:"forecast_date"`
	Temperature   float64   `json:"temperature"`
	Humidity      float64   `json:"humidity"`
	Precipitation float64   `json:"precipitation"`
	WindSpeed     float64   `json:"wind_speed"`
	Description   string    `json:"description,omitempty"`
	LastUpdated   time.Time `json:"last_updated"`
}

// Pagination holds pagination metadata.
type Pagination struct {
	Page         int `json:"page"`
	PageSize     int `json:"page_size"`
	TotalResults int `json:"total_results"`
	TotalPages   int `json:"total_pages"`
}
