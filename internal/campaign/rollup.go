package campaign

import (
	"math"

	"github.com/agrisense-io/crop-advisor/internal/models"
)

// Progress returns the campaign progress percentage: the share of stages
// marked done, rounded to the nearest integer. A campaign with no stages
// has progress 0 by convention.
func Progress(stages []models.CampaignStage) int {
	if len(stages) == 0 {
		return 0
	}
	done := 0
	for _, s := range stages {
		if s.Status == models.StageDone {
			done++
		}
	}
	return int(math.Round(float64(done) / float64(len(stages)) * 100))
}

// NextStatus applies the one-directional campaign state machine:
// planned moves to in_progress on first progress, any non-terminal status
// moves to completed at 100%. Terminal statuses never change, and no
// transition ever runs backwards.
func NextStatus(current models.CampaignStatus, progress int) models.CampaignStatus {
	if current.Terminal() {
		return current
	}
	if progress == 100 {
		return models.CampaignCompleted
	}
	if progress > 0 && current == models.CampaignPlanned {
		return models.CampaignInProgress
	}
	return current
}

// AllDone reports whether every task in the slice is done. True for an
// empty slice, matching the stage auto-completion cascade: a stage whose
// last open task closes is complete even if it never had other tasks.
func AllDone(tasks []models.CampaignTask) bool {
	for _, t := range tasks {
		if t.Status != models.TaskDone {
			return false
		}
	}
	return true
}
