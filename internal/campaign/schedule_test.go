package campaign

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrisense-io/crop-advisor/internal/models"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestBuildSchedule_DatesAndGaps(t *testing.T) {
	campaignID := uuid.New()
	templates := []models.StageTemplate{
		{ID: uuid.New(), Name: "Germination", DurationDays: 10, SortOrder: 1},
		{ID: uuid.New(), Name: "Transplant", DurationDays: 5, SortOrder: 2},
		{ID: uuid.New(), Name: "Growth", DurationDays: 20, SortOrder: 3},
	}

	stages, tasks, endDate := BuildSchedule(campaignID, d(2024, 1, 1), templates)

	require.Len(t, stages, 3)
	assert.Empty(t, tasks)

	// Stage 1: 10 days from the start date.
	assert.Equal(t, d(2024, 1, 1), stages[0].StartDate)
	assert.Equal(t, d(2024, 1, 11), stages[0].EndDate)

	// Stage 2 starts after the free transition day (Jan 12).
	assert.Equal(t, d(2024, 1, 13), stages[1].StartDate)
	assert.Equal(t, d(2024, 1, 18), stages[1].EndDate)

	// Stage 3, after the Jan 19 gap.
	assert.Equal(t, d(2024, 1, 20), stages[2].StartDate)
	assert.Equal(t, d(2024, 2, 9), stages[2].EndDate)

	// Nominal end date is start plus the sum of durations (35 days),
	// without the transition gaps.
	assert.Equal(t, d(2024, 2, 5), endDate)
}

func TestBuildSchedule_StageFieldsFromTemplate(t *testing.T) {
	campaignID := uuid.New()
	tmplID := uuid.New()
	templates := []models.StageTemplate{
		{
			ID: tmplID, Name: "Germination", Description: "Seed beds",
			DurationDays: 7, SortOrder: 1,
			Tasks: []models.TaskTemplate{
				{
					ID: uuid.New(), Description: "Prepare seed beds",
					Priority: models.PriorityHigh, EstimatedHours: 4,
					RequiredMaterials: []string{"seeds", "compost"},
				},
				{
					ID: uuid.New(), Description: "Water daily",
					Priority: models.PriorityMedium, EstimatedHours: 0.5,
				},
			},
		},
	}

	stages, tasks, _ := BuildSchedule(campaignID, d(2024, 3, 1), templates)

	require.Len(t, stages, 1)
	st := stages[0]
	assert.NotEqual(t, uuid.Nil, st.ID)
	assert.Equal(t, campaignID, st.CampaignID)
	assert.Equal(t, tmplID, st.StageTemplateID)
	assert.Equal(t, "Germination", st.Name)
	assert.Equal(t, "Seed beds", st.Description)
	assert.Equal(t, 7, st.DurationDays)
	assert.Equal(t, 1, st.SortOrder)
	assert.Equal(t, models.StageTodo, st.Status)

	require.Len(t, tasks, 2)
	for _, task := range tasks {
		assert.Equal(t, st.ID, task.CampaignStageID)
		assert.Equal(t, models.TaskTodo, task.Status)
	}
	assert.Equal(t, "Prepare seed beds", tasks[0].Description)
	assert.Equal(t, models.PriorityHigh, tasks[0].Priority)
	assert.Equal(t, []string{"seeds", "compost"}, tasks[0].RequiredMaterials)
}

func TestBuildSchedule_NoTemplates(t *testing.T) {
	stages, tasks, endDate := BuildSchedule(uuid.New(), d(2024, 5, 1), nil)

	assert.Empty(t, stages)
	assert.Empty(t, tasks)
	assert.Equal(t, d(2024, 5, 1), endDate)
}

func TestBuildSchedule_SingleStageNoGap(t *testing.T) {
	templates := []models.StageTemplate{
		{ID: uuid.New(), Name: "Only", DurationDays: 14, SortOrder: 1},
	}

	stages, _, endDate := BuildSchedule(uuid.New(), d(2024, 6, 1), templates)

	require.Len(t, stages, 1)
	assert.Equal(t, d(2024, 6, 15), stages[0].EndDate)
	assert.Equal(t, d(2024, 6, 15), endDate)
}
