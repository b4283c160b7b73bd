package file

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/persistence"
)

const schedulesDir = "schedules"

// ScheduleRepository stores schedule entries keyed by workflow ID.
type ScheduleRepository struct {
	persistence *Persistence
	mu          *sync.Mutex
}

func (r *ScheduleRepository) Save(ctx context.Context, schedule *models.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.persistence.writeJSON(schedulesDir, schedule.WorkflowID, schedule)
}

func (r *ScheduleRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Schedule, error) {
	var due []*models.Schedule

	err := r.persistence.eachJSON(schedulesDir, func(data []byte) error {
		var schedule models.Schedule
		if err := json.Unmarshal(data, &schedule); err != nil {
			return err
		}

		if schedule.IsDue(now) {
			due = append(due, &schedule)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return due, nil
}

func (r *ScheduleRepository) GetByWorkflow(ctx context.Context, workflowID string) (*models.Schedule, error) {
	var schedule models.Schedule

	err := r.persistence.readJSON(schedulesDir, workflowID, &schedule)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrScheduleNotFound
		}

		return nil, err
	}

	return &schedule, nil
}

func (r *ScheduleRepository) DeleteByWorkflow(ctx context.Context, workflowID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.persistence.remove(schedulesDir, workflowID)
}
