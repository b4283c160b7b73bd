package models

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidSchedule is returned when schedule validation fails.
var ErrInvalidSchedule = errors.New("invalid schedule configuration")

// Schedule is a scheduled trigger entry for an active workflow. The next
// execution time is precomputed so a centralized poller can query due
// schedules without keeping per-workflow timers.
type Schedule struct {
	// ID uniquely identifies this schedule entry
	ID string `json:"id" validate:"required"`

	// WorkflowID identifies the workflow this schedule triggers
	WorkflowID string `json:"workflow_id" validate:"required"`

	// CronExpression uses the standard 5-field format (minute hour day month weekday)
	CronExpression string `json:"cron_expression" validate:"required"`

	// NextDueAt is the precomputed next execution time
	NextDueAt time.Time `json:"next_due_at" validate:"required"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Active schedules are the only ones the poller considers
	Active bool `json:"active"`
}

// NewSchedule creates a Schedule with its first due time computed from now.
func NewSchedule(id, workflowID, cronExpression string) (*Schedule, error) {
	now := time.Now().UTC()
	schedule := &Schedule{
		ID:             id,
		WorkflowID:     workflowID,
		CronExpression: cronExpression,
		CreatedAt:      now,
		UpdatedAt:      now,
		Active:         true,
	}

	if err := schedule.calculateNextDueAt(now); err != nil {
		return nil, err
	}

	return schedule, nil
}

// UpdateNextDueAt recomputes the due time from the current clock. Ticks
// missed during downtime are not backfilled; only the next future tick fires.
func (s *Schedule) UpdateNextDueAt() error {
	return s.calculateNextDueAt(time.Now().UTC())
}

func (s *Schedule) calculateNextDueAt(referenceTime time.Time) error {
	cronSchedule, err := cron.ParseStandard(s.CronExpression)
	if err != nil {
		return err
	}

	s.NextDueAt = cronSchedule.Next(referenceTime)
	s.UpdatedAt = time.Now().UTC()

	return nil
}

// IsDue checks whether this schedule should fire at the given time.
func (s *Schedule) IsDue(now time.Time) bool {
	return s.Active && !s.NextDueAt.After(now)
}

// Validate performs validation on the schedule fields.
func (s *Schedule) Validate() error {
	if s.ID == "" || s.WorkflowID == "" || s.CronExpression == "" {
		return ErrInvalidSchedule
	}

	_, err := cron.ParseStandard(s.CronExpression)

	return err
}
