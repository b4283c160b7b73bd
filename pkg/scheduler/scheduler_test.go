package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxofin/fluxo/pkg/eventbus"
	"github.com/fluxofin/fluxo/pkg/events"
	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/persistence"
	"github.com/fluxofin/fluxo/pkg/persistence/file"
	"github.com/fluxofin/fluxo/pkg/testutil"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *capturePublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)

	return nil
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.events)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setup(t *testing.T, policy models.OverlapPolicy, queueDepth int) (*TriggerService, *capturePublisher, persistence.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	publisher := &capturePublisher{}
	service := NewTriggerService(testLogger(), store, publisher, policy, queueDepth)

	return service, publisher, store
}

func activeWorkflow(t *testing.T, store persistence.Persistence, overrides ...func(*models.Workflow)) *models.Workflow {
	t.Helper()

	overrides = append([]func(*models.Workflow){testutil.WithStatus(models.WorkflowStatusActive)}, overrides...)
	workflow := testutil.CreateTestWorkflow(overrides...)
	require.NoError(t, store.WorkflowRepository().Save(t.Context(), workflow))

	return workflow
}

func TestTriggerService_TriggerClaimsAndPublishes(t *testing.T) {
	service, publisher, store := setup(t, models.OverlapPolicyReject, 0)
	workflow := activeWorkflow(t, store)

	execution, err := service.Trigger(t.Context(), workflow.ID, models.TriggerKindManual, map[string]any{"user": "u-1"}, models.Payload{"hint": "now"})
	require.NoError(t, err)
	require.NotNil(t, execution)

	assert.Equal(t, models.ExecutionStatusRunning, execution.Status)
	assert.Equal(t, workflow.Version, execution.WorkflowVersion)

	stored, err := store.ExecutionRepository().GetByID(t.Context(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TriggerKindManual, stored.TriggeredBy)

	require.Equal(t, 1, publisher.count())

	triggered, ok := publisher.events[0].(events.WorkflowTriggered)
	require.True(t, ok)
	assert.Equal(t, execution.ID, triggered.ExecutionID)
	assert.Equal(t, models.Payload{"hint": "now"}, triggered.InputData)
}

func TestTriggerService_RejectsInactiveWorkflow(t *testing.T) {
	service, publisher, store := setup(t, models.OverlapPolicyReject, 0)
	workflow := testutil.CreateTestWorkflow() // draft
	require.NoError(t, store.WorkflowRepository().Save(t.Context(), workflow))

	_, err := service.Trigger(t.Context(), workflow.ID, models.TriggerKindManual, nil, nil)
	require.ErrorIs(t, err, ErrWorkflowNotActive)
	assert.Equal(t, 0, publisher.count())
}

func TestTriggerService_OverlapReject(t *testing.T) {
	service, _, store := setup(t, models.OverlapPolicyReject, 0)
	workflow := activeWorkflow(t, store)

	first, err := service.Trigger(t.Context(), workflow.ID, models.TriggerKindManual, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, first)

	_, err = service.Trigger(t.Context(), workflow.ID, models.TriggerKindManual, nil, nil)
	require.Error(t, err)
	assert.True(t, persistence.IsConcurrentExecution(err))

	// The conflict left no second execution record behind.
	list, err := store.ExecutionRepository().ListByWorkflow(t.Context(), workflow.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTriggerService_OverlapQueueDrains(t *testing.T) {
	service, publisher, store := setup(t, models.OverlapPolicyQueue, 2)
	workflow := activeWorkflow(t, store)

	first, err := service.Trigger(t.Context(), workflow.ID, models.TriggerKindManual, nil, nil)
	require.NoError(t, err)

	// Two triggers park behind the running execution, the third overflows.
	for range 2 {
		queued, err := service.Trigger(t.Context(), workflow.ID, models.TriggerKindManual, nil, nil)
		require.NoError(t, err)
		assert.Nil(t, queued)
	}

	assert.Equal(t, 2, service.PendingCount(workflow.ID))

	_, err = service.Trigger(t.Context(), workflow.ID, models.TriggerKindManual, nil, nil)
	require.ErrorIs(t, err, ErrTriggerQueueFull)

	// Finish the running execution; the next queued trigger fires FIFO.
	first.Finish(models.ExecutionStatusCompleted, "", time.Now().UTC())
	require.NoError(t, store.ExecutionRepository().Update(t.Context(), first))

	service.ExecutionFinished(t.Context(), workflow.ID)

	assert.Equal(t, 1, service.PendingCount(workflow.ID))

	list, err := store.ExecutionRepository().ListByWorkflow(t.Context(), workflow.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, 2, publisher.count())
}

// failingPublisher rejects every publish until err is cleared.
type failingPublisher struct {
	err error
}

func (p *failingPublisher) Publish(context.Context, string, eventbus.Event) error {
	return p.err
}

func TestTriggerService_PublishFailureReleasesSlot(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	flaky := &failingPublisher{err: errors.New("broker unavailable")}
	service := NewTriggerService(testLogger(), store, flaky, models.OverlapPolicyReject, 0)
	workflow := activeWorkflow(t, store)

	_, err := service.Trigger(t.Context(), workflow.ID, models.TriggerKindManual, nil, nil)
	require.Error(t, err)

	// The claimed execution was finished, not left running forever.
	list, err := store.ExecutionRepository().ListByWorkflow(t.Context(), workflow.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.ExecutionStatusFailed, list[0].Status)
	assert.Contains(t, list[0].ErrorMessage, "publish failed")

	// The single-flight slot is free again once the broker recovers.
	flaky.err = nil

	execution, err := service.Trigger(t.Context(), workflow.ID, models.TriggerKindManual, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, execution)
	assert.Equal(t, models.ExecutionStatusRunning, execution.Status)
}

func TestPoller_FiresDueSchedules(t *testing.T) {
	service, publisher, store := setup(t, models.OverlapPolicyReject, 0)
	workflow := activeWorkflow(t, store,
		testutil.WithTrigger(models.TriggerKindSchedule, map[string]any{"cron_expression": "0 9 * * *"}))

	poller := NewPoller(testLogger(), store.ScheduleRepository(), service, DefaultPollInterval)

	due := &models.Schedule{
		ID:             "sched-1",
		WorkflowID:     workflow.ID,
		CronExpression: "0 9 * * *",
		NextDueAt:      time.Now().UTC().Add(-time.Minute),
		Active:         true,
	}
	require.NoError(t, store.ScheduleRepository().Save(t.Context(), due))

	poller.processDueSchedules(t.Context())

	list, err := store.ExecutionRepository().ListByWorkflow(t.Context(), workflow.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.TriggerKindSchedule, list[0].TriggeredBy)
	assert.Equal(t, "0 9 * * *", list[0].TriggerDetails["cron_expression"])
	assert.Equal(t, 1, publisher.count())

	// The schedule advanced past now, so the next poll does not refire.
	updated, err := store.ScheduleRepository().GetByWorkflow(t.Context(), workflow.ID)
	require.NoError(t, err)
	assert.True(t, updated.NextDueAt.After(time.Now().UTC()))

	poller.processDueSchedules(t.Context())

	list, err = store.ExecutionRepository().ListByWorkflow(t.Context(), workflow.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPoller_OverlapConflictConsumesTick(t *testing.T) {
	service, _, store := setup(t, models.OverlapPolicyReject, 0)
	workflow := activeWorkflow(t, store)

	// Occupy the single-flight slot.
	_, err := service.Trigger(t.Context(), workflow.ID, models.TriggerKindManual, nil, nil)
	require.NoError(t, err)

	poller := NewPoller(testLogger(), store.ScheduleRepository(), service, DefaultPollInterval)

	due := &models.Schedule{
		ID:             "sched-1",
		WorkflowID:     workflow.ID,
		CronExpression: "* * * * *",
		NextDueAt:      time.Now().UTC().Add(-time.Hour),
		Active:         true,
	}
	require.NoError(t, store.ScheduleRepository().Save(t.Context(), due))

	poller.processDueSchedules(t.Context())

	// No second execution, but the tick was consumed: no backfill later.
	list, err := store.ExecutionRepository().ListByWorkflow(t.Context(), workflow.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	updated, err := store.ScheduleRepository().GetByWorkflow(t.Context(), workflow.ID)
	require.NoError(t, err)
	assert.True(t, updated.NextDueAt.After(time.Now().UTC().Add(-time.Minute)))
}

func TestSyncSchedule(t *testing.T) {
	_, _, store := setup(t, models.OverlapPolicyReject, 0)
	schedules := store.ScheduleRepository()

	workflow := activeWorkflow(t, store,
		testutil.WithTrigger(models.TriggerKindSchedule, map[string]any{"cron_expression": "0 9 * * 1"}))

	require.NoError(t, SyncSchedule(t.Context(), schedules, workflow))

	created, err := schedules.GetByWorkflow(t.Context(), workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, "0 9 * * 1", created.CronExpression)
	assert.True(t, created.Active)
	assert.True(t, created.NextDueAt.After(time.Now().UTC()))

	// Updating the cron expression reconciles the existing entry.
	workflow.Trigger.Config["cron_expression"] = "30 8 * * *"
	require.NoError(t, SyncSchedule(t.Context(), schedules, workflow))

	updated, err := schedules.GetByWorkflow(t.Context(), workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, "30 8 * * *", updated.CronExpression)

	// Pausing the workflow removes its entry.
	workflow.Status = models.WorkflowStatusPaused
	require.NoError(t, SyncSchedule(t.Context(), schedules, workflow))

	_, err = schedules.GetByWorkflow(t.Context(), workflow.ID)
	require.ErrorIs(t, err, persistence.ErrScheduleNotFound)
}
