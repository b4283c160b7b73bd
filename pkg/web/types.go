// Package web provides the REST API for workflow management: lifecycle
// operations, manual runs, and execution history.
package web

import (
	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/validation"
)

// CreateWorkflowRequest is the request body for creating a new workflow.
// The workflow is created in draft status; the node graph is validated at
// activation, not here.
type CreateWorkflowRequest struct {
	Name           string                   `json:"name"            validate:"required,min=3"`
	Description    string                   `json:"description"`
	OwnerID        string                   `json:"owner_id"        validate:"required"`
	Trigger        models.TriggerDescriptor `json:"trigger"`
	MaxRetries     int                      `json:"max_retries"     validate:"min=0,max=10"`
	TimeoutSeconds int                      `json:"timeout_seconds" validate:"min=0,max=3600"`
	Nodes          []*models.WorkflowNode   `json:"nodes"`
	Variables      map[string]any           `json:"variables,omitempty"`
}

// UpdateWorkflowRequest is the request body for a structural edit. Fields
// are optional to support partial updates; nodes, when present, replace the
// whole graph.
type UpdateWorkflowRequest struct {
	Name           *string                   `json:"name,omitempty"            validate:"omitempty,min=3"`
	Description    *string                   `json:"description,omitempty"`
	Trigger        *models.TriggerDescriptor `json:"trigger,omitempty"`
	MaxRetries     *int                      `json:"max_retries,omitempty"     validate:"omitempty,min=0,max=10"`
	TimeoutSeconds *int                      `json:"timeout_seconds,omitempty" validate:"omitempty,min=0,max=3600"`
	Nodes          []*models.WorkflowNode    `json:"nodes,omitempty"`
	Variables      map[string]any            `json:"variables,omitempty"`
}

// RunWorkflowRequest is the request body for a manual trigger.
type RunWorkflowRequest struct {
	Details map[string]any `json:"details,omitempty"`
	Input   models.Payload `json:"input,omitempty"`
}

// ActivateResponse reports the activation outcome. On validation failure the
// violations list every problem found, not just the first.
type ActivateResponse struct {
	Workflow   *models.Workflow       `json:"workflow"`
	Valid      bool                   `json:"valid"`
	Violations []validation.Violation `json:"violations,omitempty"`
}

// NodeKindResponse describes one registered node kind for graph editors.
type NodeKindResponse struct {
	Kind        string         `json:"kind"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
}

func (r *CreateWorkflowRequest) toWorkflow() *models.Workflow {
	return &models.Workflow{
		Name:           r.Name,
		Description:    r.Description,
		OwnerID:        r.OwnerID,
		Trigger:        r.Trigger,
		MaxRetries:     r.MaxRetries,
		TimeoutSeconds: r.TimeoutSeconds,
		Nodes:          r.Nodes,
		Variables:      r.Variables,
	}
}

func (r *UpdateWorkflowRequest) apply(workflow *models.Workflow) {
	if r.Name != nil {
		workflow.Name = *r.Name
	}

	if r.Description != nil {
		workflow.Description = *r.Description
	}

	if r.Trigger != nil {
		workflow.Trigger = *r.Trigger
	}

	if r.MaxRetries != nil {
		workflow.MaxRetries = *r.MaxRetries
	}

	if r.TimeoutSeconds != nil {
		workflow.TimeoutSeconds = *r.TimeoutSeconds
	}

	if r.Nodes != nil {
		workflow.Nodes = r.Nodes
	}

	if r.Variables != nil {
		workflow.Variables = r.Variables
	}
}
