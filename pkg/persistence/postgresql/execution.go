package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/persistence"
)

// ExecutionRepository handles run record storage. The per-node trace lives in
// a JSONB column updated as each node completes.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const executionColumns = `
	id
  , workflow_id
  , workflow_version
  , status
  , triggered_by
  , trigger_details
  , input_data
  , output_data
  , node_executions
  , started_at
  , completed_at
  , total_duration_ms
  , error_message
`

const uniqueViolationCode = "23505"

// Claim inserts the running execution. The partial unique index on
// (workflow_id) WHERE status = 'running' makes the database reject a second
// concurrent claim, so no explicit check-then-insert transaction is needed.
func (r *ExecutionRepository) Claim(ctx context.Context, execution *models.WorkflowExecution) error {
	if err := r.insert(ctx, execution); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode &&
			pqErr.Constraint == "idx_workflow_executions_single_flight" {
			return persistence.NewExecutionError("Claim", execution.ID, persistence.ErrConcurrentExecution)
		}

		return persistence.NewExecutionError("Claim", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM workflow_executions WHERE id = $1", executionColumns), id)

	execution, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	return execution, nil
}

func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM workflow_executions WHERE workflow_id = $1 ORDER BY started_at DESC",
		executionColumns)

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, persistence.NewExecutionError("ListByWorkflow", "", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	executions := make([]*models.WorkflowExecution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, persistence.NewExecutionError("ListByWorkflow", "", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewExecutionError("ListByWorkflow", "", err)
	}

	return executions, nil
}

func (r *ExecutionRepository) HasRunning(ctx context.Context, workflowID string) (bool, error) {
	var running bool

	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM workflow_executions WHERE workflow_id = $1 AND status = 'running')",
		workflowID).Scan(&running)
	if err != nil {
		return false, persistence.NewExecutionError("HasRunning", "", err)
	}

	return running, nil
}

func (r *ExecutionRepository) SaveNodeExecution(ctx context.Context, executionID string, nodeExecution *models.NodeExecution) error {
	nodeJSON, err := json.Marshal(nodeExecution)
	if err != nil {
		return persistence.NewExecutionError("SaveNodeExecution", executionID, err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE workflow_executions
		SET node_executions = jsonb_set(node_executions, ARRAY[$1], $2::jsonb)
		WHERE id = $3
	`, nodeExecution.NodeID, nodeJSON, executionID)
	if err != nil {
		return persistence.NewExecutionError("SaveNodeExecution", executionID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewExecutionError("SaveNodeExecution", executionID, err)
	}

	if affected == 0 {
		return persistence.NewExecutionError("SaveNodeExecution", executionID, persistence.ErrExecutionNotFound)
	}

	return nil
}

func (r *ExecutionRepository) Update(ctx context.Context, execution *models.WorkflowExecution) error {
	triggerDetailsJSON, inputJSON, outputJSON, nodesJSON, err := marshalExecutionFields(execution)
	if err != nil {
		return persistence.NewExecutionError("Update", execution.ID, err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE workflow_executions SET
			status = $1,
			trigger_details = $2,
			input_data = $3,
			output_data = $4,
			node_executions = $5,
			completed_at = $6,
			total_duration_ms = $7,
			error_message = $8
		WHERE id = $9
	`, execution.Status, triggerDetailsJSON, inputJSON, outputJSON, nodesJSON,
		execution.CompletedAt, execution.TotalDurationMs, execution.ErrorMessage,
		execution.ID)
	if err != nil {
		return persistence.NewExecutionError("Update", execution.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewExecutionError("Update", execution.ID, err)
	}

	if affected == 0 {
		return persistence.NewExecutionError("Update", execution.ID, persistence.ErrExecutionNotFound)
	}

	return nil
}

func (r *ExecutionRepository) insert(ctx context.Context, execution *models.WorkflowExecution) error {
	triggerDetailsJSON, inputJSON, outputJSON, nodesJSON, err := marshalExecutionFields(execution)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflow_executions (
			id, workflow_id, workflow_version, status, triggered_by,
			trigger_details, input_data, output_data, node_executions,
			started_at, completed_at, total_duration_ms, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, execution.ID, execution.WorkflowID, execution.WorkflowVersion,
		execution.Status, execution.TriggeredBy, triggerDetailsJSON,
		inputJSON, outputJSON, nodesJSON, execution.StartedAt,
		execution.CompletedAt, execution.TotalDurationMs, execution.ErrorMessage)

	return err
}

func marshalExecutionFields(execution *models.WorkflowExecution) (triggerDetails, input, output, nodes []byte, err error) {
	triggerDetails, err = json.Marshal(execution.TriggerDetails)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to encode trigger details: %w", err)
	}

	input, err = json.Marshal(execution.InputData)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to encode input data: %w", err)
	}

	output, err = json.Marshal(execution.OutputData)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to encode output data: %w", err)
	}

	nodeExecutions := execution.NodeExecutions
	if nodeExecutions == nil {
		nodeExecutions = map[string]*models.NodeExecution{}
	}

	nodes, err = json.Marshal(nodeExecutions)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to encode node executions: %w", err)
	}

	return triggerDetails, input, output, nodes, nil
}

func scanExecution(row rowScanner) (*models.WorkflowExecution, error) {
	var (
		execution          models.WorkflowExecution
		triggerDetailsJSON []byte
		inputJSON          []byte
		outputJSON         []byte
		nodesJSON          []byte
	)

	err := row.Scan(
		&execution.ID, &execution.WorkflowID, &execution.WorkflowVersion,
		&execution.Status, &execution.TriggeredBy, &triggerDetailsJSON,
		&inputJSON, &outputJSON, &nodesJSON, &execution.StartedAt,
		&execution.CompletedAt, &execution.TotalDurationMs, &execution.ErrorMessage)
	if err != nil {
		return nil, err
	}

	if len(triggerDetailsJSON) > 0 {
		if err := json.Unmarshal(triggerDetailsJSON, &execution.TriggerDetails); err != nil {
			return nil, fmt.Errorf("failed to decode trigger details: %w", err)
		}
	}

	if len(inputJSON) > 0 {
		if err := json.Unmarshal(inputJSON, &execution.InputData); err != nil {
			return nil, fmt.Errorf("failed to decode input data: %w", err)
		}
	}

	if len(outputJSON) > 0 {
		if err := json.Unmarshal(outputJSON, &execution.OutputData); err != nil {
			return nil, fmt.Errorf("failed to decode output data: %w", err)
		}
	}

	if err := json.Unmarshal(nodesJSON, &execution.NodeExecutions); err != nil {
		return nil, fmt.Errorf("failed to decode node executions: %w", err)
	}

	return &execution, nil
}
