package file

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/persistence"
)

const workflowsDir = "workflows"

// WorkflowRepository stores each workflow, nodes included, as one JSON file.
type WorkflowRepository struct {
	persistence *Persistence
	mu          *sync.Mutex
}

func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.persistence.writeJSON(workflowsDir, workflow.ID, workflow); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	var workflow models.Workflow

	err := r.persistence.readJSON(workflowsDir, id, &workflow)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return &workflow, nil
}

func (r *WorkflowRepository) List(ctx context.Context) ([]*models.Workflow, error) {
	var workflows []*models.Workflow

	err := r.persistence.eachJSON(workflowsDir, func(data []byte) error {
		var workflow models.Workflow
		if err := json.Unmarshal(data, &workflow); err != nil {
			return err
		}

		workflows = append(workflows, &workflow)

		return nil
	})
	if err != nil {
		return nil, persistence.NewWorkflowError("List", "", err)
	}

	return workflows, nil
}

func (r *WorkflowRepository) ListByStatus(ctx context.Context, status models.WorkflowStatus) ([]*models.Workflow, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	var workflows []*models.Workflow

	for _, workflow := range all {
		if workflow.Status == status {
			workflows = append(workflows, workflow)
		}
	}

	return workflows, nil
}

func (r *WorkflowRepository) UpdateStatus(ctx context.Context, id string, status models.WorkflowStatus) error {
	workflow, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	workflow.Status = status

	if err := r.persistence.writeJSON(workflowsDir, id, workflow); err != nil {
		return persistence.NewWorkflowError("UpdateStatus", id, err)
	}

	return nil
}

// Delete removes the workflow and cascades to its executions and schedule.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	executions, err := r.persistence.executionRepo.ListByWorkflow(ctx, id)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, execution := range executions {
		if err := r.persistence.remove(executionsDir, execution.ID); err != nil {
			return persistence.NewWorkflowError("Delete", id, err)
		}
	}

	if err := r.persistence.remove(schedulesDir, id); err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	if err := r.persistence.remove(workflowsDir, id); err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}
