package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/persistence"
	"github.com/fluxofin/fluxo/pkg/persistence/postgresql"
	"github.com/fluxofin/fluxo/pkg/testutil"
)

var postgresContainer *postgres.PostgresContainer

func dropDB(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	// Children first, parents last.
	for _, table := range []string{"workflow_schedules", "workflow_executions", "workflows", "engine_schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	require.NoError(t, db.Close())
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("fluxo_test"),
			postgres.WithUsername("fluxo"),
			postgres.WithPassword("fluxo"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDB(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDB(ctx, t, databaseURL)
		require.NoError(t, p.Close(ctx))
		cancel()
	})

	return p, ctx, databaseURL
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, db.Close())
	}()

	var exists bool

	for _, table := range []string{"workflows", "workflow_executions", "workflow_schedules", "engine_schema_migrations"} {
		err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = $1)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "%s table should exist", table)
	}
}

func TestNewPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	assert.NoError(t, p.HealthCheck(ctx))
}

func TestWorkflowRepository_SaveAndRetrieve(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.WorkflowRepository()

	workflow := testutil.CreateTestWorkflow(
		testutil.WithDiamondNodes(),
		testutil.WithStatus(models.WorkflowStatusActive),
	)
	require.NoError(t, repo.Save(ctx, workflow))

	loaded, err := repo.GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, loaded.Name)
	assert.Equal(t, models.WorkflowStatusActive, loaded.Status)
	require.Len(t, loaded.Nodes, 6)
	assert.Equal(t, workflow.Nodes[1].Outputs, loaded.Nodes[1].Outputs)

	actives, err := repo.ListByStatus(ctx, models.WorkflowStatusActive)
	require.NoError(t, err)
	assert.Len(t, actives, 1)
}

func TestWorkflowRepository_GetByIDNotFound(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	_, err := p.WorkflowRepository().GetByID(ctx, uuid.New().String())
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowRepository_DeleteCascades(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := testutil.CreateTestWorkflow()
	require.NoError(t, p.WorkflowRepository().Save(ctx, workflow))

	execution := &models.WorkflowExecution{
		ID:         uuid.New().String(),
		WorkflowID: workflow.ID,
		Status:     models.ExecutionStatusCompleted,
		StartedAt:  time.Now().UTC(),
	}
	require.NoError(t, p.ExecutionRepository().Claim(ctx, execution))

	schedule, err := models.NewSchedule(uuid.New().String(), workflow.ID, "*/5 * * * *")
	require.NoError(t, err)
	require.NoError(t, p.ScheduleRepository().Save(ctx, schedule))

	require.NoError(t, p.WorkflowRepository().Delete(ctx, workflow.ID))

	_, err = p.ExecutionRepository().GetByID(ctx, execution.ID)
	assert.True(t, persistence.IsExecutionNotFound(err))

	_, err = p.ScheduleRepository().GetByWorkflow(ctx, workflow.ID)
	assert.ErrorIs(t, err, persistence.ErrScheduleNotFound)
}

func TestExecutionRepository_ClaimSingleFlight(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := testutil.CreateTestWorkflow()
	require.NoError(t, p.WorkflowRepository().Save(ctx, workflow))

	repo := p.ExecutionRepository()

	first := &models.WorkflowExecution{
		ID:         uuid.New().String(),
		WorkflowID: workflow.ID,
		Status:     models.ExecutionStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	require.NoError(t, repo.Claim(ctx, first))

	second := &models.WorkflowExecution{
		ID:         uuid.New().String(),
		WorkflowID: workflow.ID,
		Status:     models.ExecutionStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	err := repo.Claim(ctx, second)
	require.Error(t, err)
	assert.True(t, persistence.IsConcurrentExecution(err))

	// The rejected claim left no row behind.
	_, err = repo.GetByID(ctx, second.ID)
	assert.True(t, persistence.IsExecutionNotFound(err))

	// Finishing the first run frees the slot.
	first.Finish(models.ExecutionStatusCompleted, "", time.Now().UTC())
	require.NoError(t, repo.Update(ctx, first))
	assert.NoError(t, repo.Claim(ctx, second))
}

func TestExecutionRepository_SaveNodeExecution(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := testutil.CreateTestWorkflow()
	require.NoError(t, p.WorkflowRepository().Save(ctx, workflow))

	repo := p.ExecutionRepository()

	execution := &models.WorkflowExecution{
		ID:         uuid.New().String(),
		WorkflowID: workflow.ID,
		Status:     models.ExecutionStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	require.NoError(t, repo.Claim(ctx, execution))

	startedAt := time.Now().UTC()
	completedAt := startedAt.Add(50 * time.Millisecond)
	require.NoError(t, repo.SaveNodeExecution(ctx, execution.ID, &models.NodeExecution{
		NodeID:      "src",
		Status:      models.NodeStatusSucceeded,
		StartedAt:   &startedAt,
		CompletedAt: &completedAt,
		Output:      models.Payload{"transactions": []any{}},
		Attempts:    1,
	}))

	loaded, err := repo.GetByID(ctx, execution.ID)
	require.NoError(t, err)
	require.Contains(t, loaded.NodeExecutions, "src")
	assert.Equal(t, models.NodeStatusSucceeded, loaded.NodeExecutions["src"].Status)
	assert.Equal(t, 1, loaded.NodeExecutions["src"].Attempts)
}

func TestScheduleRepository_ListDue(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	dueWorkflow := testutil.CreateTestWorkflow()
	futureWorkflow := testutil.CreateTestWorkflow()
	require.NoError(t, p.WorkflowRepository().Save(ctx, dueWorkflow))
	require.NoError(t, p.WorkflowRepository().Save(ctx, futureWorkflow))

	repo := p.ScheduleRepository()

	due, err := models.NewSchedule(uuid.New().String(), dueWorkflow.ID, "* * * * *")
	require.NoError(t, err)
	due.NextDueAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, repo.Save(ctx, due))

	future, err := models.NewSchedule(uuid.New().String(), futureWorkflow.ID, "0 0 1 1 *")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, future))

	schedules, err := repo.ListDue(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, dueWorkflow.ID, schedules[0].WorkflowID)
}
