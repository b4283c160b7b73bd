package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/registry"
	"github.com/fluxofin/fluxo/pkg/services"
)

type APIHandlers struct {
	workflowService *services.WorkflowService
	validator       *validator.Validate
	registry        *registry.Registry
}

func NewAPIHandlers(
	workflowService *services.WorkflowService,
	validate *validator.Validate,
	reg *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		workflowService: workflowService,
		validator:       validate,
		registry:        reg,
	}
}

// Register mounts every route on the app.
func (h *APIHandlers) Register(app *fiber.App) {
	app.Get("/health", h.HealthCheck)
	app.Get("/node-kinds", h.GetNodeKinds)

	app.Get("/workflows", h.GetWorkflows)
	app.Post("/workflows", h.CreateWorkflow)
	app.Get("/workflows/:id", h.GetWorkflow)
	app.Put("/workflows/:id", h.UpdateWorkflow)
	app.Delete("/workflows/:id", h.DeleteWorkflow)

	app.Post("/workflows/:id/activate", h.ActivateWorkflow)
	app.Post("/workflows/:id/pause", h.PauseWorkflow)
	app.Post("/workflows/:id/archive", h.ArchiveWorkflow)
	app.Post("/workflows/:id/run", h.RunWorkflow)

	app.Get("/workflows/:id/executions", h.GetWorkflowExecutions)
	app.Get("/executions/:id", h.GetExecution)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// GetNodeKinds lists every registered node kind with its config schema, for
// graph editors to build palettes from.
func (h *APIHandlers) GetNodeKinds(c fiber.Ctx) error {
	kinds := h.registry.Kinds()
	response := make([]NodeKindResponse, 0, len(kinds))

	for _, kind := range kinds {
		factory, ok := h.registry.Factory(kind)
		if !ok {
			continue
		}

		response = append(response, NodeKindResponse{
			Kind:        string(kind),
			Name:        factory.Name(),
			Description: factory.Description(),
			Schema:      factory.Schema(),
		})
	}

	return c.JSON(response)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	var status *models.WorkflowStatus

	if statusQuery := c.Query("status"); statusQuery != "" {
		s := models.WorkflowStatus(statusQuery)
		status = &s
	}

	workflows, err := h.workflowService.List(c.Context(), status)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows": workflows,
		"count":     len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.workflowService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflowService.Create(c.Context(), req.toWorkflow())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.workflowService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	req.apply(existing)

	updated, err := h.workflowService.Update(c.Context(), id, existing)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.workflowService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ActivateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, result, err := h.workflowService.Activate(c.Context(), id)
	if err != nil && result.Valid() {
		return handleServiceError(c, err)
	}

	response := ActivateResponse{
		Workflow:   workflow,
		Valid:      result.Valid(),
		Violations: result.Violations,
	}

	if !result.Valid() {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(response)
	}

	return c.JSON(response)
}

func (h *APIHandlers) PauseWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.workflowService.Pause(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) ArchiveWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.workflowService.Archive(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

// RunWorkflow triggers a manual execution. The run is claimed and dispatched
// asynchronously; 202 means a worker will pick it up, not that it finished.
func (h *APIHandlers) RunWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req RunWorkflowRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	execution, err := h.workflowService.Run(c.Context(), id, req.Details, req.Input)
	if err != nil {
		return handleServiceError(c, err)
	}

	if execution == nil {
		// Parked under the queue overlap policy.
		return c.SendStatus(fiber.StatusAccepted)
	}

	return c.Status(fiber.StatusAccepted).JSON(execution)
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	executions, err := h.workflowService.History(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions": executions,
		"count":      len(executions),
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	execution, err := h.workflowService.FetchExecution(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}
