package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/fluxofin/fluxo/pkg/persistence"
	"github.com/fluxofin/fluxo/pkg/scheduler"
	"github.com/fluxofin/fluxo/pkg/services"
	"github.com/fluxofin/fluxo/pkg/validation"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps service layer errors onto problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case persistence.IsWorkflowNotFound(err):
		return notFound(c, "workflow not found")

	case persistence.IsExecutionNotFound(err):
		return notFound(c, "execution not found")

	case persistence.IsConcurrentExecution(err):
		return conflict(c, "workflow already has a running execution")

	case errors.Is(err, services.ErrWorkflowNotEditable),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrWorkflowArchived),
		errors.Is(err, scheduler.ErrWorkflowNotActive),
		errors.Is(err, scheduler.ErrTriggerQueueFull):
		return conflict(c, err.Error())

	case errors.Is(err, validation.ErrValidationFailed):
		return badRequest(c, err.Error())

	default:
		return internalError(c, err)
	}
}
