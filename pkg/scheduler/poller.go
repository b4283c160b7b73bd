package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/persistence"
)

// DefaultPollInterval is how often the poller scans for due schedules. Cron
// resolution is one minute, so polling faster buys nothing.
const DefaultPollInterval = 1 * time.Minute

// Poller is the centralized schedule orchestrator: one ticker polls the
// store for all due schedules regardless of their individual cron
// expressions, so no per-workflow timers exist anywhere.
type Poller struct {
	logger    *slog.Logger
	schedules persistence.ScheduleRepository
	trigger   *TriggerService
	interval  time.Duration

	ticker  *time.Ticker
	done    chan struct{}
	started bool
	mu      sync.Mutex
}

func NewPoller(logger *slog.Logger, schedules persistence.ScheduleRepository, trigger *TriggerService, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return &Poller{
		logger:    logger.With("module", "scheduler"),
		schedules: schedules,
		trigger:   trigger,
		interval:  interval,
	}
}

// Start begins the polling loop. It is idempotent.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return nil
	}

	p.logger.InfoContext(ctx, "Starting schedule poller", "interval", p.interval)

	p.ticker = time.NewTicker(p.interval)
	p.done = make(chan struct{})
	p.started = true

	go p.poll(ctx)

	return nil
}

// Stop shuts the polling loop down.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return nil
	}

	p.ticker.Stop()
	close(p.done)
	p.started = false

	p.logger.InfoContext(ctx, "Schedule poller stopped")

	return nil
}

func (p *Poller) poll(ctx context.Context) {
	for {
		select {
		case <-p.done:
			return
		case <-ctx.Done():
			return
		case <-p.ticker.C:
			p.processDueSchedules(ctx)
		}
	}
}

// processDueSchedules fires every schedule whose due time has passed and
// advances it to its next tick. Ticks missed during downtime collapse into
// one firing; there is no backfill.
func (p *Poller) processDueSchedules(ctx context.Context) {
	now := time.Now().UTC()

	due, err := p.schedules.ListDue(ctx, now)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to list due schedules", "error", err)

		return
	}

	if len(due) > 0 {
		p.logger.InfoContext(ctx, "Processing due schedules", "count", len(due))
	}

	for _, schedule := range due {
		details := map[string]any{
			"cron_expression": schedule.CronExpression,
			"due_at":          schedule.NextDueAt.Format(time.RFC3339),
		}

		_, err := p.trigger.Trigger(ctx, schedule.WorkflowID, models.TriggerKindSchedule, details, nil)
		if err != nil && !expectedTriggerFailure(err) {
			// Transient failure: leave NextDueAt alone so the next tick retries.
			p.logger.ErrorContext(ctx, "Failed to trigger scheduled workflow",
				"workflow_id", schedule.WorkflowID, "error", err)

			continue
		}

		if err != nil {
			p.logger.WarnContext(ctx, "Scheduled trigger not started",
				"workflow_id", schedule.WorkflowID, "reason", err)
		}

		if err := schedule.UpdateNextDueAt(); err != nil {
			p.logger.ErrorContext(ctx, "Failed to compute next due time",
				"workflow_id", schedule.WorkflowID, "error", err)

			continue
		}

		if err := p.schedules.Save(ctx, schedule); err != nil {
			p.logger.ErrorContext(ctx, "Failed to save schedule",
				"workflow_id", schedule.WorkflowID, "error", err)
		}
	}
}

// expectedTriggerFailure marks the conflicts that should consume the tick
// rather than retry it: a rejected overlap or an inactive workflow is not a
// transient fault, and firing it again next tick would be a backfill.
func expectedTriggerFailure(err error) bool {
	return persistence.IsConcurrentExecution(err) ||
		errors.Is(err, ErrWorkflowNotActive) ||
		errors.Is(err, ErrTriggerQueueFull)
}

// SyncSchedule reconciles the schedule entry with the workflow's lifecycle:
// active schedule-triggered workflows get an entry, everything else loses
// theirs.
func SyncSchedule(ctx context.Context, schedules persistence.ScheduleRepository, workflow *models.Workflow) error {
	scheduled := workflow.Status == models.WorkflowStatusActive &&
		workflow.Trigger.Kind == models.TriggerKindSchedule

	if !scheduled {
		return schedules.DeleteByWorkflow(ctx, workflow.ID)
	}

	cronExpression, _ := workflow.Trigger.Config["cron_expression"].(string)

	existing, err := schedules.GetByWorkflow(ctx, workflow.ID)

	switch {
	case err == nil:
		existing.CronExpression = cronExpression
		existing.Active = true

		if err := existing.UpdateNextDueAt(); err != nil {
			return err
		}

		return schedules.Save(ctx, existing)
	case errors.Is(err, persistence.ErrScheduleNotFound):
		schedule, err := models.NewSchedule(uuid.New().String(), workflow.ID, cronExpression)
		if err != nil {
			return err
		}

		return schedules.Save(ctx, schedule)
	default:
		return err
	}
}
