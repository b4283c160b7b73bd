package file

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"

	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/persistence"
)

const executionsDir = "executions"

// ExecutionRepository stores run records as JSON files, one per execution.
type ExecutionRepository struct {
	persistence *Persistence
	mu          *sync.Mutex
}

// Claim performs the single-flight check and insert under the repository
// lock so two triggers cannot both observe "not running".
func (r *ExecutionRepository) Claim(ctx context.Context, execution *models.WorkflowExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	running, err := r.hasRunningLocked(execution.WorkflowID)
	if err != nil {
		return persistence.NewExecutionError("Claim", execution.ID, err)
	}

	if running {
		return persistence.NewExecutionError("Claim", execution.ID, persistence.ErrConcurrentExecution)
	}

	if err := r.persistence.writeJSON(executionsDir, execution.ID, execution); err != nil {
		return persistence.NewExecutionError("Claim", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	var execution models.WorkflowExecution

	err := r.persistence.readJSON(executionsDir, id, &execution)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	return &execution, nil
}

func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	var executions []*models.WorkflowExecution

	err := r.persistence.eachJSON(executionsDir, func(data []byte) error {
		var execution models.WorkflowExecution
		if err := json.Unmarshal(data, &execution); err != nil {
			return err
		}

		if execution.WorkflowID == workflowID {
			executions = append(executions, &execution)
		}

		return nil
	})
	if err != nil {
		return nil, persistence.NewExecutionError("ListByWorkflow", "", err)
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	return executions, nil
}

func (r *ExecutionRepository) HasRunning(ctx context.Context, workflowID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.hasRunningLocked(workflowID)
}

func (r *ExecutionRepository) SaveNodeExecution(ctx context.Context, executionID string, nodeExecution *models.NodeExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var execution models.WorkflowExecution

	err := r.persistence.readJSON(executionsDir, executionID, &execution)
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.NewExecutionError("SaveNodeExecution", executionID, persistence.ErrExecutionNotFound)
		}

		return persistence.NewExecutionError("SaveNodeExecution", executionID, err)
	}

	if execution.NodeExecutions == nil {
		execution.NodeExecutions = make(map[string]*models.NodeExecution)
	}

	execution.NodeExecutions[nodeExecution.NodeID] = nodeExecution

	if err := r.persistence.writeJSON(executionsDir, executionID, &execution); err != nil {
		return persistence.NewExecutionError("SaveNodeExecution", executionID, err)
	}

	return nil
}

func (r *ExecutionRepository) Update(ctx context.Context, execution *models.WorkflowExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.persistence.writeJSON(executionsDir, execution.ID, execution); err != nil {
		return persistence.NewExecutionError("Update", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) hasRunningLocked(workflowID string) (bool, error) {
	running := false

	err := r.persistence.eachJSON(executionsDir, func(data []byte) error {
		var execution models.WorkflowExecution
		if err := json.Unmarshal(data, &execution); err != nil {
			return err
		}

		if execution.WorkflowID == workflowID && execution.Status == models.ExecutionStatusRunning {
			running = true
		}

		return nil
	})

	return running, err
}
