// Package services implements the workflow lifecycle operations exposed to
// the API: create, edit, activate, pause, archive, run, and history.
package services

import (
	"errors"

	"github.com/fluxofin/fluxo/pkg/persistence"
)

var (
	// ErrWorkflowNotFound is returned when a workflow is not found.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

	// ErrWorkflowNotEditable indicates a structural edit was attempted on a
	// workflow that is not in draft or paused status.
	ErrWorkflowNotEditable = errors.New("workflow is not editable in its current status")

	// ErrInvalidTransition indicates a lifecycle change the status machine
	// does not allow, such as pausing a draft.
	ErrInvalidTransition = errors.New("invalid workflow status transition")

	// ErrWorkflowArchived indicates an operation on an archived workflow.
	// Archived workflows are immutable history.
	ErrWorkflowArchived = errors.New("workflow is archived")
)
