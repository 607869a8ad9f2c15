package campaign

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrisense-io/crop-advisor/internal/models"
)

// memStore is an in-memory Store. InTx runs the closure against the same
// store; the transactional guarantees under test are the scheduler's
// decisions, not the storage engine's.
type memStore struct {
	campaigns map[uuid.UUID]*models.Campaign
	stages    map[uuid.UUID]*models.CampaignStage
	tasks     map[uuid.UUID]*models.CampaignTask
}

func newMemStore() *memStore {
	return &memStore{
		campaigns: make(map[uuid.UUID]*models.Campaign),
		stages:    make(map[uuid.UUID]*models.CampaignStage),
		tasks:     make(map[uuid.UUID]*models.CampaignTask),
	}
}

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return fn(ctx, m)
}

func (m *memStore) ActiveForParcel(ctx context.Context, parcelID uuid.UUID) (*models.Campaign, error) {
	for _, c := range m.campaigns {
		if c.ParcelID == parcelID && !c.Status.Terminal() {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) Insert(ctx context.Context, c *models.Campaign, stages []models.CampaignStage, tasks []models.CampaignTask) error {
	cp := *c
	m.campaigns[c.ID] = &cp
	for i := range stages {
		st := stages[i]
		m.stages[st.ID] = &st
	}
	for i := range tasks {
		tk := tasks[i]
		m.tasks[tk.ID] = &tk
	}
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	c, ok := m.campaigns[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	return m.GetByID(ctx, id)
}

func (m *memStore) StageByID(ctx context.Context, id uuid.UUID) (*models.CampaignStage, error) {
	s, ok := m.stages[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) TaskByID(ctx context.Context, id uuid.UUID) (*models.CampaignTask, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) StagesByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.CampaignStage, error) {
	var out []models.CampaignStage
	for _, s := range m.stages {
		if s.CampaignID == campaignID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (m *memStore) TasksByStage(ctx context.Context, stageID uuid.UUID) ([]models.CampaignTask, error) {
	var out []models.CampaignTask
	for _, t := range m.tasks {
		if t.CampaignStageID == stageID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memStore) TasksByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.CampaignTask, error) {
	var out []models.CampaignTask
	for _, t := range m.tasks {
		stage, ok := m.stages[t.CampaignStageID]
		if ok && stage.CampaignID == campaignID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memStore) SetStageStatus(ctx context.Context, stageID uuid.UUID, status models.StageStatus) error {
	m.stages[stageID].Status = status
	return nil
}

func (m *memStore) CompleteStageTasks(ctx context.Context, stageID uuid.UUID) error {
	for _, t := range m.tasks {
		if t.CampaignStageID == stageID {
			t.Status = models.TaskDone
		}
	}
	return nil
}

func (m *memStore) SetTaskStatus(ctx context.Context, taskID uuid.UUID, status models.TaskStatus) error {
	m.tasks[taskID].Status = status
	return nil
}

func (m *memStore) SetProgress(ctx context.Context, campaignID uuid.UUID, progress int, status models.CampaignStatus, endDate *time.Time) error {
	c := m.campaigns[campaignID]
	c.ProgressPercent = progress
	c.Status = status
	if endDate != nil {
		c.EndDate = endDate
	}
	return nil
}

type memCatalog struct {
	crops     map[uuid.UUID]*models.CropProfile
	templates map[uuid.UUID][]models.StageTemplate
}

func (m *memCatalog) GetByID(ctx context.Context, id uuid.UUID) (*models.CropProfile, error) {
	return m.crops[id], nil
}

func (m *memCatalog) StageTemplates(ctx context.Context, cropID uuid.UUID) ([]models.StageTemplate, error) {
	return m.templates[cropID], nil
}

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

// newTestScheduler builds a scheduler over a two-stage crop. The first
// stage carries two tasks, the second one.
func newTestScheduler(t *testing.T) (*Scheduler, *memStore, uuid.UUID) {
	t.Helper()

	cropID := uuid.New()
	catalog := &memCatalog{
		crops: map[uuid.UUID]*models.CropProfile{
			cropID: {ID: cropID, Name: "Tomato", Active: true},
		},
		templates: map[uuid.UUID][]models.StageTemplate{
			cropID: {
				{
					ID: uuid.New(), CropID: cropID, Name: "Germination",
					DurationDays: 10, SortOrder: 1,
					Tasks: []models.TaskTemplate{
						{ID: uuid.New(), Description: "Prepare beds", Priority: models.PriorityHigh},
						{ID: uuid.New(), Description: "Sow seeds", Priority: models.PriorityHigh},
					},
				},
				{
					ID: uuid.New(), CropID: cropID, Name: "Growth",
					DurationDays: 20, SortOrder: 2,
					Tasks: []models.TaskTemplate{
						{ID: uuid.New(), Description: "Fertilize", Priority: models.PriorityMedium},
					},
				},
			},
		},
	}

	store := newMemStore()
	return NewScheduler(catalog, store, func() time.Time { return fixedNow }), store, cropID
}

func createCampaign(t *testing.T, s *Scheduler, cropID, userID uuid.UUID) *Detail {
	t.Helper()
	detail, err := s.Create(context.Background(), CreateParams{
		CropID:    cropID,
		ParcelID:  uuid.New(),
		UserID:    userID,
		StartDate: d(2024, 6, 1),
	})
	require.NoError(t, err)
	return detail
}

func TestScheduler_Create(t *testing.T) {
	s, store, cropID := newTestScheduler(t)
	userID := uuid.New()

	detail := createCampaign(t, s, cropID, userID)

	camp := detail.Campaign
	assert.Equal(t, models.CampaignPlanned, camp.Status)
	assert.Equal(t, 0, camp.ProgressPercent)
	require.NotNil(t, camp.EndDate)
	assert.Equal(t, d(2024, 7, 1), *camp.EndDate) // 30 days of stages

	require.Len(t, detail.Stages, 2)
	assert.Equal(t, "Germination", detail.Stages[0].Name)
	assert.Len(t, detail.Stages[0].Tasks, 2)
	assert.Len(t, detail.Stages[1].Tasks, 1)

	assert.Len(t, store.campaigns, 1)
	assert.Len(t, store.stages, 2)
	assert.Len(t, store.tasks, 3)
}

func TestScheduler_Create_UsesPreallocatedID(t *testing.T) {
	s, _, cropID := newTestScheduler(t)
	id := uuid.New()

	detail, err := s.Create(context.Background(), CreateParams{
		ID:        id,
		CropID:    cropID,
		ParcelID:  uuid.New(),
		UserID:    uuid.New(),
		StartDate: d(2024, 6, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, id, detail.Campaign.ID)
}

func TestScheduler_Create_InactiveCrop(t *testing.T) {
	s, _, cropID := newTestScheduler(t)
	catalog := s.catalog.(*memCatalog)
	catalog.crops[cropID].Active = false

	_, err := s.Create(context.Background(), CreateParams{
		CropID: cropID, ParcelID: uuid.New(), UserID: uuid.New(),
		StartDate: d(2024, 6, 1),
	})

	var nf *models.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestScheduler_Create_UnknownCrop(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	_, err := s.Create(context.Background(), CreateParams{
		CropID: uuid.New(), ParcelID: uuid.New(), UserID: uuid.New(),
		StartDate: d(2024, 6, 1),
	})

	var nf *models.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestScheduler_Create_ParcelConflict(t *testing.T) {
	s, _, cropID := newTestScheduler(t)
	userID := uuid.New()
	first := createCampaign(t, s, cropID, userID)

	_, err := s.Create(context.Background(), CreateParams{
		CropID:    cropID,
		ParcelID:  first.Campaign.ParcelID,
		UserID:    userID,
		StartDate: d(2024, 7, 1),
	})

	var conflict *models.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, first.Campaign.ID, conflict.BlockingID)
}

func TestScheduler_Create_CancelledCampaignFreesParcel(t *testing.T) {
	s, _, cropID := newTestScheduler(t)
	userID := uuid.New()
	first := createCampaign(t, s, cropID, userID)

	_, err := s.Cancel(context.Background(), first.Campaign.ID, userID)
	require.NoError(t, err)

	_, err = s.Create(context.Background(), CreateParams{
		CropID:    cropID,
		ParcelID:  first.Campaign.ParcelID,
		UserID:    userID,
		StartDate: d(2024, 7, 1),
	})
	assert.NoError(t, err)
}

func TestScheduler_StageDone_RollsUp(t *testing.T) {
	s, store, cropID := newTestScheduler(t)
	userID := uuid.New()
	detail := createCampaign(t, s, cropID, userID)
	stage := detail.Stages[0]

	update, err := s.UpdateStageStatus(context.Background(), stage.ID, models.StageDone, userID)
	require.NoError(t, err)

	assert.Equal(t, 50, update.ProgressPercent)
	assert.Equal(t, models.CampaignInProgress, update.CampaignStatus)

	// Marking the stage done bulk-completes its open tasks.
	for _, task := range stage.Tasks {
		assert.Equal(t, models.TaskDone, store.tasks[task.ID].Status)
	}
}

func TestScheduler_AllStagesDone_CompletesCampaign(t *testing.T) {
	s, store, cropID := newTestScheduler(t)
	userID := uuid.New()
	detail := createCampaign(t, s, cropID, userID)

	for _, stage := range detail.Stages {
		_, err := s.UpdateStageStatus(context.Background(), stage.ID, models.StageDone, userID)
		require.NoError(t, err)
	}

	camp := store.campaigns[detail.Campaign.ID]
	assert.Equal(t, models.CampaignCompleted, camp.Status)
	assert.Equal(t, 100, camp.ProgressPercent)
	require.NotNil(t, camp.EndDate)
	assert.Equal(t, fixedNow, *camp.EndDate)
}

func TestScheduler_DoneStageDoneAgainChangesNothing(t *testing.T) {
	s, store, cropID := newTestScheduler(t)
	userID := uuid.New()
	detail := createCampaign(t, s, cropID, userID)
	stage := detail.Stages[0]

	first, err := s.UpdateStageStatus(context.Background(), stage.ID, models.StageDone, userID)
	require.NoError(t, err)

	// Re-marking a done stage done is a no-op: same progress, same
	// campaign status, tasks stay done.
	second, err := s.UpdateStageStatus(context.Background(), stage.ID, models.StageDone, userID)
	require.NoError(t, err)

	assert.Equal(t, first.ProgressPercent, second.ProgressPercent)
	assert.Equal(t, first.CampaignStatus, second.CampaignStatus)

	camp := store.campaigns[detail.Campaign.ID]
	assert.Equal(t, first.ProgressPercent, camp.ProgressPercent)
	assert.Equal(t, first.CampaignStatus, camp.Status)

	for _, task := range stage.Tasks {
		assert.Equal(t, models.TaskDone, store.tasks[task.ID].Status)
	}
}

func TestScheduler_DoneStageCannotRevert(t *testing.T) {
	s, _, cropID := newTestScheduler(t)
	userID := uuid.New()
	detail := createCampaign(t, s, cropID, userID)
	stage := detail.Stages[0]

	_, err := s.UpdateStageStatus(context.Background(), stage.ID, models.StageDone, userID)
	require.NoError(t, err)

	_, err = s.UpdateStageStatus(context.Background(), stage.ID, models.StageTodo, userID)
	var inv *models.InvalidStateError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, "stage", inv.Entity)
}

func TestScheduler_TerminalCampaignRejectsStageUpdate(t *testing.T) {
	s, _, cropID := newTestScheduler(t)
	userID := uuid.New()
	detail := createCampaign(t, s, cropID, userID)

	_, err := s.Cancel(context.Background(), detail.Campaign.ID, userID)
	require.NoError(t, err)

	_, err = s.UpdateStageStatus(context.Background(), detail.Stages[0].ID, models.StageInProgress, userID)
	var inv *models.InvalidStateError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, "campaign", inv.Entity)
}

func TestScheduler_LastTaskDone_CompletesStage(t *testing.T) {
	s, store, cropID := newTestScheduler(t)
	userID := uuid.New()
	detail := createCampaign(t, s, cropID, userID)
	stage := detail.Stages[0]
	require.Len(t, stage.Tasks, 2)

	update, err := s.UpdateTaskStatus(context.Background(), stage.Tasks[0].ID, models.TaskDone, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, update.ProgressPercent, "stage still has an open task")
	assert.Equal(t, models.StageTodo, store.stages[stage.ID].Status)

	update, err = s.UpdateTaskStatus(context.Background(), stage.Tasks[1].ID, models.TaskDone, userID)
	require.NoError(t, err)

	// Closing the last open task auto-completes the stage and rolls up.
	assert.Equal(t, models.StageDone, store.stages[stage.ID].Status)
	assert.Equal(t, 50, update.ProgressPercent)
	assert.Equal(t, models.CampaignInProgress, update.CampaignStatus)
}

func TestScheduler_TaskUnderDoneStageIsFrozen(t *testing.T) {
	s, _, cropID := newTestScheduler(t)
	userID := uuid.New()
	detail := createCampaign(t, s, cropID, userID)
	stage := detail.Stages[0]

	_, err := s.UpdateStageStatus(context.Background(), stage.ID, models.StageDone, userID)
	require.NoError(t, err)

	_, err = s.UpdateTaskStatus(context.Background(), stage.Tasks[0].ID, models.TaskTodo, userID)
	var inv *models.InvalidStateError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, "stage", inv.Entity)
}

func TestScheduler_Cancel(t *testing.T) {
	s, store, cropID := newTestScheduler(t)
	userID := uuid.New()
	detail := createCampaign(t, s, cropID, userID)

	cancelled, err := s.Cancel(context.Background(), detail.Campaign.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignCancelled, cancelled.Status)

	// The scheduled end date survives cancellation.
	stored := store.campaigns[detail.Campaign.ID]
	require.NotNil(t, stored.EndDate)
	assert.Equal(t, *detail.Campaign.EndDate, *stored.EndDate)

	_, err = s.Cancel(context.Background(), detail.Campaign.ID, userID)
	var inv *models.InvalidStateError
	require.ErrorAs(t, err, &inv)
}

func TestScheduler_OwnershipScoping(t *testing.T) {
	s, _, cropID := newTestScheduler(t)
	owner := uuid.New()
	stranger := uuid.New()
	detail := createCampaign(t, s, cropID, owner)

	var nf *models.NotFoundError

	_, err := s.Get(context.Background(), detail.Campaign.ID, stranger)
	require.ErrorAs(t, err, &nf)

	_, err = s.Cancel(context.Background(), detail.Campaign.ID, stranger)
	require.ErrorAs(t, err, &nf)

	_, err = s.UpdateStageStatus(context.Background(), detail.Stages[0].ID, models.StageDone, stranger)
	require.ErrorAs(t, err, &nf)

	_, err = s.UpdateTaskStatus(context.Background(), detail.Stages[0].Tasks[0].ID, models.TaskDone, stranger)
	require.ErrorAs(t, err, &nf)
}

func TestScheduler_Get_RepairsStaleProgress(t *testing.T) {
	s, store, cropID := newTestScheduler(t)
	userID := uuid.New()
	detail := createCampaign(t, s, cropID, userID)

	// Simulate a stage completed out of band: the stored campaign row
	// still says planned/0%.
	store.stages[detail.Stages[0].ID].Status = models.StageDone

	got, err := s.Get(context.Background(), detail.Campaign.ID, userID)
	require.NoError(t, err)

	assert.Equal(t, 50, got.Campaign.ProgressPercent)
	assert.Equal(t, models.CampaignInProgress, got.Campaign.Status)

	// The correction is persisted, not just reported.
	assert.Equal(t, 50, store.campaigns[detail.Campaign.ID].ProgressPercent)
	assert.Equal(t, models.CampaignInProgress, store.campaigns[detail.Campaign.ID].Status)
}
