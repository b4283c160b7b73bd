package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchedule(t *testing.T) {
	schedule, err := NewSchedule("sched-1", "wf-1", "*/5 * * * *")
	require.NoError(t, err)

	assert.Equal(t, "sched-1", schedule.ID)
	assert.Equal(t, "wf-1", schedule.WorkflowID)
	assert.True(t, schedule.Active)
	assert.True(t, schedule.NextDueAt.After(time.Now().UTC().Add(-time.Second)))
}

func TestNewSchedule_InvalidCron(t *testing.T) {
	_, err := NewSchedule("sched-1", "wf-1", "every five minutes")
	require.Error(t, err)
}

func TestSchedule_IsDue(t *testing.T) {
	schedule, err := NewSchedule("sched-1", "wf-1", "0 0 * * *")
	require.NoError(t, err)

	assert.False(t, schedule.IsDue(time.Now().UTC()))
	assert.True(t, schedule.IsDue(schedule.NextDueAt.Add(time.Minute)))

	schedule.Active = false
	assert.False(t, schedule.IsDue(schedule.NextDueAt.Add(time.Minute)))
}

func TestSchedule_UpdateNextDueAt(t *testing.T) {
	schedule, err := NewSchedule("sched-1", "wf-1", "* * * * *")
	require.NoError(t, err)

	// Simulate a missed tick: the recomputed due time must be in the future,
	// not a backfill of the past tick.
	schedule.NextDueAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, schedule.UpdateNextDueAt())
	assert.True(t, schedule.NextDueAt.After(time.Now().UTC().Add(-time.Second)))
}

func TestSchedule_Validate(t *testing.T) {
	schedule := &Schedule{ID: "s", WorkflowID: "w", CronExpression: "* * * * *"}
	assert.NoError(t, schedule.Validate())

	schedule.WorkflowID = ""
	assert.ErrorIs(t, schedule.Validate(), ErrInvalidSchedule)
}

func TestExecution_Finish(t *testing.T) {
	started := time.Now().UTC().Add(-2 * time.Second)
	execution := &WorkflowExecution{
		ID:        "exec-1",
		Status:    ExecutionStatusRunning,
		StartedAt: started,
	}

	finishedAt := started.Add(1500 * time.Millisecond)
	execution.Finish(ExecutionStatusCompleted, "", finishedAt)

	assert.Equal(t, ExecutionStatusCompleted, execution.Status)
	require.NotNil(t, execution.CompletedAt)
	assert.Equal(t, int64(1500), execution.TotalDurationMs)
	assert.True(t, execution.Status.Terminal())
}
