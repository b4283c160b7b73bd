package services

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxofin/fluxo/pkg/eventbus"
	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/persistence"
	"github.com/fluxofin/fluxo/pkg/persistence/file"
	"github.com/fluxofin/fluxo/pkg/scheduler"
	"github.com/fluxofin/fluxo/pkg/testutil"
	"github.com/fluxofin/fluxo/pkg/validation"
)

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, eventbus.Event) error { return nil }

func setup(t *testing.T) (*WorkflowService, persistence.Persistence) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	store := file.NewPersistence(t.TempDir())
	trigger := scheduler.NewTriggerService(logger, store, noopPublisher{}, models.OverlapPolicyReject, 0)

	return NewWorkflowService(logger, store, validation.NewValidator(100), trigger), store
}

func validNodes() func(*models.Workflow) {
	return testutil.WithNodes(
		testutil.SourceNode("src", "a1"),
		testutil.ActionNode("a1", []string{"src"}, "dst"),
		testutil.DestinationNode("dst", "a1"),
	)
}

func TestWorkflowService_CreateStartsAsDraft(t *testing.T) {
	service, _ := setup(t)

	created, err := service.Create(t.Context(), testutil.CreateTestWorkflow(validNodes()))
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.WorkflowStatusDraft, created.Status)
	assert.Equal(t, 1, created.Version)
}

func TestWorkflowService_UpdateBumpsVersion(t *testing.T) {
	service, _ := setup(t)

	created, err := service.Create(t.Context(), testutil.CreateTestWorkflow(validNodes()))
	require.NoError(t, err)

	update := testutil.CreateTestWorkflow(validNodes())
	update.Name = "Renamed Workflow"

	updated, err := service.Update(t.Context(), created.ID, update)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "Renamed Workflow", updated.Name)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
}

func TestWorkflowService_UpdateRejectsActiveWorkflow(t *testing.T) {
	service, _ := setup(t)

	created, err := service.Create(t.Context(), testutil.CreateTestWorkflow(validNodes()))
	require.NoError(t, err)

	_, _, err = service.Activate(t.Context(), created.ID)
	require.NoError(t, err)

	_, err = service.Update(t.Context(), created.ID, testutil.CreateTestWorkflow(validNodes()))
	require.ErrorIs(t, err, ErrWorkflowNotEditable)
}

func TestWorkflowService_ActivateValidWorkflow(t *testing.T) {
	service, store := setup(t)

	created, err := service.Create(t.Context(), testutil.CreateTestWorkflow(
		validNodes(),
		testutil.WithTrigger(models.TriggerKindSchedule, map[string]any{"cron_expression": "0 9 * * *"}),
	))
	require.NoError(t, err)

	workflow, result, err := service.Activate(t.Context(), created.ID)
	require.NoError(t, err)
	assert.True(t, result.Valid())
	assert.Equal(t, models.WorkflowStatusActive, workflow.Status)

	// Activation registered the schedule entry.
	schedule, err := store.ScheduleRepository().GetByWorkflow(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "0 9 * * *", schedule.CronExpression)
}

func TestWorkflowService_ActivateInvalidWorkflowKeepsStatus(t *testing.T) {
	service, store := setup(t)

	// a1 has no outbound edge, which is a dead end.
	created, err := service.Create(t.Context(), testutil.CreateTestWorkflow(testutil.WithNodes(
		testutil.SourceNode("src", "a1", "a2"),
		testutil.ActionNode("a1", []string{"src"}),
		testutil.ActionNode("a2", []string{"src"}, "dst"),
		testutil.DestinationNode("dst", "a2"),
	)))
	require.NoError(t, err)

	_, result, err := service.Activate(t.Context(), created.ID)
	require.Error(t, err)
	require.ErrorIs(t, err, validation.ErrValidationFailed)
	assert.False(t, result.Valid())

	stored, err := store.WorkflowRepository().GetByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusDraft, stored.Status)
}

func TestWorkflowService_PauseRemovesSchedule(t *testing.T) {
	service, store := setup(t)

	created, err := service.Create(t.Context(), testutil.CreateTestWorkflow(
		validNodes(),
		testutil.WithTrigger(models.TriggerKindSchedule, map[string]any{"cron_expression": "0 9 * * *"}),
	))
	require.NoError(t, err)

	_, _, err = service.Activate(t.Context(), created.ID)
	require.NoError(t, err)

	paused, err := service.Pause(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusPaused, paused.Status)

	_, err = store.ScheduleRepository().GetByWorkflow(t.Context(), created.ID)
	require.ErrorIs(t, err, persistence.ErrScheduleNotFound)
}

func TestWorkflowService_PauseRequiresActive(t *testing.T) {
	service, _ := setup(t)

	created, err := service.Create(t.Context(), testutil.CreateTestWorkflow(validNodes()))
	require.NoError(t, err)

	_, err = service.Pause(t.Context(), created.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestWorkflowService_ArchivedIsImmutable(t *testing.T) {
	service, _ := setup(t)

	created, err := service.Create(t.Context(), testutil.CreateTestWorkflow(validNodes()))
	require.NoError(t, err)

	archived, err := service.Archive(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusArchived, archived.Status)

	_, _, err = service.Activate(t.Context(), created.ID)
	require.ErrorIs(t, err, ErrWorkflowArchived)

	_, err = service.Update(t.Context(), created.ID, testutil.CreateTestWorkflow(validNodes()))
	require.ErrorIs(t, err, ErrWorkflowNotEditable)
}

func TestWorkflowService_DeleteRejectsActive(t *testing.T) {
	service, _ := setup(t)

	created, err := service.Create(t.Context(), testutil.CreateTestWorkflow(validNodes()))
	require.NoError(t, err)

	_, _, err = service.Activate(t.Context(), created.ID)
	require.NoError(t, err)

	require.ErrorIs(t, service.Delete(t.Context(), created.ID), ErrInvalidTransition)

	_, err = service.Pause(t.Context(), created.ID)
	require.NoError(t, err)

	require.NoError(t, service.Delete(t.Context(), created.ID))

	_, err = service.FetchByID(t.Context(), created.ID)
	require.ErrorIs(t, err, ErrWorkflowNotFound)
}

func TestWorkflowService_RunAndHistory(t *testing.T) {
	service, _ := setup(t)

	created, err := service.Create(t.Context(), testutil.CreateTestWorkflow(validNodes()))
	require.NoError(t, err)

	_, _, err = service.Activate(t.Context(), created.ID)
	require.NoError(t, err)

	execution, err := service.Run(t.Context(), created.ID, map[string]any{"user": "u-1"}, nil)
	require.NoError(t, err)
	require.NotNil(t, execution)

	history, err := service.History(t.Context(), created.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, execution.ID, history[0].ID)

	fetched, err := service.FetchExecution(t.Context(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, fetched.Status)
}
