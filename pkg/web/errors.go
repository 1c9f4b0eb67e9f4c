package web

import (
	"errors"

	"github.com/dukex/crate/pkg/persistence"
	"github.com/dukex/crate/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func respondProblem(c fiber.Ctx, status int, problemType, detail string) error {
	problem := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(status).JSON(problem)
}

func badRequest(c fiber.Ctx, detail string) error {
	return respondProblem(c, fiber.StatusBadRequest, "validation_error", detail)
}

// handleServiceError maps service layer errors to problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsValidationError(err):
		return respondProblem(c, fiber.StatusBadRequest, "validation_error", err.Error())
	case services.IsConflictError(err):
		return respondProblem(c, fiber.StatusConflict, "conflict", err.Error())
	case persistence.IsWorkspaceNotFound(err):
		return respondProblem(c, fiber.StatusNotFound, "workspace_not_found", "workspace not found")
	case persistence.IsAutomationNotFound(err):
		return respondProblem(c, fiber.StatusNotFound, "automation_not_found", "automation not found")
	case errors.Is(err, services.ErrTickUnavailable):
		return respondProblem(c, fiber.StatusServiceUnavailable, "tick_unavailable", err.Error())
	}

	problem := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}
