package campaign

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agrisense-io/crop-advisor/internal/models"
)

func stagesWith(statuses ...models.StageStatus) []models.CampaignStage {
	stages := make([]models.CampaignStage, len(statuses))
	for i, s := range statuses {
		stages[i].Status = s
	}
	return stages
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name   string
		stages []models.CampaignStage
		want   int
	}{
		{"no stages", nil, 0},
		{"none done", stagesWith(models.StageTodo, models.StageInProgress), 0},
		{"one of three", stagesWith(models.StageDone, models.StageTodo, models.StageTodo), 33},
		{"two of three", stagesWith(models.StageDone, models.StageDone, models.StageTodo), 67},
		{"all done", stagesWith(models.StageDone, models.StageDone), 100},
		{"late counts as open", stagesWith(models.StageDone, models.StageLate), 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Progress(tt.stages))
		})
	}
}

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name     string
		current  models.CampaignStatus
		progress int
		want     models.CampaignStatus
	}{
		{"planned stays at zero", models.CampaignPlanned, 0, models.CampaignPlanned},
		{"planned advances on progress", models.CampaignPlanned, 33, models.CampaignInProgress},
		{"in_progress holds", models.CampaignInProgress, 67, models.CampaignInProgress},
		{"completes at 100", models.CampaignInProgress, 100, models.CampaignCompleted},
		{"planned straight to completed", models.CampaignPlanned, 100, models.CampaignCompleted},
		{"completed is terminal", models.CampaignCompleted, 0, models.CampaignCompleted},
		{"cancelled is terminal", models.CampaignCancelled, 100, models.CampaignCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextStatus(tt.current, tt.progress))
		})
	}
}

func TestAllDone(t *testing.T) {
	assert.True(t, AllDone(nil))
	assert.True(t, AllDone([]models.CampaignTask{
		{Status: models.TaskDone},
		{Status: models.TaskDone},
	}))
	assert.False(t, AllDone([]models.CampaignTask{
		{Status: models.TaskDone},
		{Status: models.TaskTodo},
	}))
}
