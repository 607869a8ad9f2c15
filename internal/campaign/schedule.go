package campaign

import (
	"time"

	"github.com/google/uuid"

	"github.com/agrisense-io/crop-advisor/internal/models"
)

// transitionGapDays is the number of free days between the end of one
// stage and the start of the next. Stage windows are inclusive of their
// end date, so the next stage starts endDate + gap + 1.
const transitionGapDays = 1

// BuildSchedule expands a crop's stage templates into dated campaign stages
// and tasks, walking a cursor from startDate. Each stage spans its template
// duration; consecutive stages are separated by a one-day transition gap.
//
// The returned end date is the nominal cycle end: startDate plus the sum of
// all stage durations. The transition gaps deliberately do not extend it,
// so the last stage's window may end after the nominal end date.
func BuildSchedule(campaignID uuid.UUID, startDate time.Time, templates []models.StageTemplate) ([]models.CampaignStage, []models.CampaignTask, time.Time) {
	stages := make([]models.CampaignStage, 0, len(templates))
	var tasks []models.CampaignTask

	cursor := startDate
	totalDays := 0

	for _, tmpl := range templates {
		stageEnd := cursor.AddDate(0, 0, tmpl.DurationDays)
		stage := models.CampaignStage{
			ID:              uuid.New(),
			CampaignID:      campaignID,
			StageTemplateID: tmpl.ID,
			Name:            tmpl.Name,
			Description:     tmpl.Description,
			DurationDays:    tmpl.DurationDays,
			SortOrder:       tmpl.SortOrder,
			StartDate:       cursor,
			EndDate:         stageEnd,
			Status:          models.StageTodo,
		}
		stages = append(stages, stage)

		for _, tt := range tmpl.Tasks {
			tasks = append(tasks, models.CampaignTask{
				ID:                uuid.New(),
				CampaignStageID:   stage.ID,
				Description:       tt.Description,
				Priority:          tt.Priority,
				EstimatedHours:    tt.EstimatedHours,
				RequiredMaterials: tt.RequiredMaterials,
				Status:            models.TaskTodo,
			})
		}

		cursor = stageEnd.AddDate(0, 0, transitionGapDays+1)
		totalDays += tmpl.DurationDays
	}

	endDate := startDate.AddDate(0, 0, totalDays)
	return stages, tasks, endDate
}
