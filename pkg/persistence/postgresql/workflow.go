package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/persistence"
)

// WorkflowRepository handles workflow definition storage. The node graph is
// stored as one JSONB document; the engine always loads and saves the graph
// whole, so normalizing nodes into rows would only add joins.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const workflowColumns = `
	id
  , name
  , description
  , owner_id
  , status
  , trigger_kind
  , trigger_config
  , max_retries
  , timeout_seconds
  , version
  , nodes
  , variables
  , created_at
  , updated_at
  , last_executed_at
  , execution_count
`

func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	triggerConfigJSON, err := json.Marshal(workflow.Trigger.Config)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	nodesJSON, err := json.Marshal(workflow.Nodes)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	variablesJSON, err := json.Marshal(workflow.Variables)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	query := `
		INSERT INTO workflows (
			id, name, description, owner_id, status, trigger_kind, trigger_config,
			max_retries, timeout_seconds, version, nodes, variables,
			created_at, updated_at, last_executed_at, execution_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			owner_id = EXCLUDED.owner_id,
			status = EXCLUDED.status,
			trigger_kind = EXCLUDED.trigger_kind,
			trigger_config = EXCLUDED.trigger_config,
			max_retries = EXCLUDED.max_retries,
			timeout_seconds = EXCLUDED.timeout_seconds,
			version = EXCLUDED.version,
			nodes = EXCLUDED.nodes,
			variables = EXCLUDED.variables,
			updated_at = EXCLUDED.updated_at,
			last_executed_at = EXCLUDED.last_executed_at,
			execution_count = EXCLUDED.execution_count
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID, workflow.Name, workflow.Description, workflow.OwnerID,
		workflow.Status, workflow.Trigger.Kind, triggerConfigJSON,
		workflow.MaxRetries, workflow.TimeoutSeconds, workflow.Version,
		nodesJSON, variablesJSON, workflow.CreatedAt, workflow.UpdatedAt,
		workflow.LastExecutedAt, workflow.ExecutionCount)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM workflows WHERE id = $1", workflowColumns), id)

	workflow, err := scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return workflow, nil
}

func (r *WorkflowRepository) List(ctx context.Context) ([]*models.Workflow, error) {
	return r.queryWorkflows(ctx,
		fmt.Sprintf("SELECT %s FROM workflows ORDER BY created_at DESC", workflowColumns))
}

func (r *WorkflowRepository) ListByStatus(ctx context.Context, status models.WorkflowStatus) ([]*models.Workflow, error) {
	return r.queryWorkflows(ctx,
		fmt.Sprintf("SELECT %s FROM workflows WHERE status = $1 ORDER BY created_at DESC", workflowColumns),
		status)
}

func (r *WorkflowRepository) UpdateStatus(ctx context.Context, id string, status models.WorkflowStatus) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE workflows SET status = $1, updated_at = $2 WHERE id = $3",
		status, time.Now().UTC(), id)
	if err != nil {
		return persistence.NewWorkflowError("UpdateStatus", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError("UpdateStatus", id, err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("UpdateStatus", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

// Delete removes the workflow row; executions and schedules cascade via
// foreign keys.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func (r *WorkflowRepository) queryWorkflows(ctx context.Context, query string, args ...any) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence.NewWorkflowError("List", "", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, persistence.NewWorkflowError("List", "", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewWorkflowError("List", "", err)
	}

	return workflows, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow          models.Workflow
		triggerConfigJSON []byte
		nodesJSON         []byte
		variablesJSON     []byte
	)

	err := row.Scan(
		&workflow.ID, &workflow.Name, &workflow.Description, &workflow.OwnerID,
		&workflow.Status, &workflow.Trigger.Kind, &triggerConfigJSON,
		&workflow.MaxRetries, &workflow.TimeoutSeconds, &workflow.Version,
		&nodesJSON, &variablesJSON, &workflow.CreatedAt, &workflow.UpdatedAt,
		&workflow.LastExecutedAt, &workflow.ExecutionCount)
	if err != nil {
		return nil, err
	}

	if len(triggerConfigJSON) > 0 {
		if err := json.Unmarshal(triggerConfigJSON, &workflow.Trigger.Config); err != nil {
			return nil, fmt.Errorf("failed to decode trigger config: %w", err)
		}
	}

	if err := json.Unmarshal(nodesJSON, &workflow.Nodes); err != nil {
		return nil, fmt.Errorf("failed to decode nodes: %w", err)
	}

	if len(variablesJSON) > 0 {
		if err := json.Unmarshal(variablesJSON, &workflow.Variables); err != nil {
			return nil, fmt.Errorf("failed to decode variables: %w", err)
		}
	}

	return &workflow, nil
}
