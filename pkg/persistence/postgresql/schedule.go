package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/persistence"
)

// ScheduleRepository stores one cron schedule entry per workflow.
type ScheduleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *ScheduleRepository) Save(ctx context.Context, schedule *models.Schedule) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO workflow_schedules (
			id, workflow_id, cron_expression, next_due_at, active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (workflow_id) DO UPDATE SET
			cron_expression = EXCLUDED.cron_expression,
			next_due_at = EXCLUDED.next_due_at,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`, schedule.ID, schedule.WorkflowID, schedule.CronExpression,
		schedule.NextDueAt, schedule.Active, schedule.CreatedAt, schedule.UpdatedAt)

	return err
}

func (r *ScheduleRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, workflow_id, cron_expression, next_due_at, active, created_at, updated_at
		FROM workflow_schedules
		WHERE active AND next_due_at <= $1
	`, now)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	schedules := make([]*models.Schedule, 0)

	for rows.Next() {
		var schedule models.Schedule

		err := rows.Scan(&schedule.ID, &schedule.WorkflowID, &schedule.CronExpression,
			&schedule.NextDueAt, &schedule.Active, &schedule.CreatedAt, &schedule.UpdatedAt)
		if err != nil {
			return nil, err
		}

		schedules = append(schedules, &schedule)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return schedules, nil
}

func (r *ScheduleRepository) GetByWorkflow(ctx context.Context, workflowID string) (*models.Schedule, error) {
	var schedule models.Schedule

	err := r.db.QueryRowContext(ctx, `
		SELECT id, workflow_id, cron_expression, next_due_at, active, created_at, updated_at
		FROM workflow_schedules
		WHERE workflow_id = $1
	`, workflowID).Scan(&schedule.ID, &schedule.WorkflowID, &schedule.CronExpression,
		&schedule.NextDueAt, &schedule.Active, &schedule.CreatedAt, &schedule.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrScheduleNotFound
		}

		return nil, err
	}

	return &schedule, nil
}

func (r *ScheduleRepository) DeleteByWorkflow(ctx context.Context, workflowID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM workflow_schedules WHERE workflow_id = $1", workflowID)

	return err
}
