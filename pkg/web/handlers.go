package web

import (
	"net/http"

	"github.com/dukex/crate/pkg/registry"
	"github.com/dukex/crate/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	workspaces  *services.Workspaces
	automations *services.Automations
	validator   *validator.Validate
	registry    *registry.Registry
}

func NewAPIHandlers(
	workspaces *services.Workspaces,
	automations *services.Automations,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		workspaces:  workspaces,
		automations: automations,
		validator:   validator,
		registry:    registry,
	}
}

// Register mounts every API route on router.
func (h *APIHandlers) Register(router fiber.Router) {
	w := router.Group("/workspaces")
	w.Get("/", h.GetWorkspaces)
	w.Post("/", h.CreateWorkspace)
	w.Get("/:id", h.GetWorkspace)
	w.Delete("/:id", h.DeleteWorkspace)
	w.Put("/:id/settings", h.UpdateSettings)
	w.Post("/:id/apps", h.AddApp)
	w.Post("/:id/tick", h.TickWorkspace)
	w.Get("/:id/automations", h.GetAutomations)
	w.Post("/:id/automations", h.CreateAutomation)

	a := router.Group("/automations")
	a.Get("/:id", h.GetAutomation)
	a.Delete("/:id", h.DeleteAutomation)
	a.Post("/:id/actions", h.AddAction)
	a.Post("/:id/pause", h.PauseAutomation)
	a.Post("/:id/resume", h.ResumeAutomation)
	a.Post("/:id/execute", h.ExecuteAutomation)

	router.Get("/actions", h.GetActionKinds)
	router.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := "Registry is healthy", true
	if err := h.registry.HealthCheck(c.Context()); err != nil {
		registryCheck, regOk = "Registry is unhealthy: "+err.Error(), false
	}

	repositoryCheck, repOk := h.workspaces.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Crate API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Crate API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
	})
}

func (h *APIHandlers) GetActionKinds(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"actions": h.registry.Kinds()})
}

func (h *APIHandlers) GetWorkspaces(c fiber.Ctx) error {
	workspaces, err := h.workspaces.List(c.Context(), c.Query("owner"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"workspaces": workspaces})
}

func (h *APIHandlers) CreateWorkspace(c fiber.Ctx) error {
	var req CreateWorkspaceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workspaces.Create(c.Context(), services.CreateWorkspaceRequest{
		Owner:       req.Owner,
		Name:        req.Name,
		Description: req.Description,
		Settings:    req.Settings,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetWorkspace(c fiber.Ctx) error {
	workspace, err := h.workspaces.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workspace)
}

func (h *APIHandlers) DeleteWorkspace(c fiber.Ctx) error {
	if err := h.workspaces.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) UpdateSettings(c fiber.Ctx) error {
	var req UpdateSettingsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workspace, err := h.workspaces.UpdateSettings(c.Context(), c.Params("id"), req.Settings())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workspace)
}

func (h *APIHandlers) AddApp(c fiber.Ctx) error {
	var req AddAppRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	app, err := h.workspaces.AddApp(c.Context(), c.Params("id"), services.AddAppRequest{
		AppType: req.AppType,
		Config:  req.Config,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(app)
}

func (h *APIHandlers) TickWorkspace(c fiber.Ctx) error {
	report, err := h.workspaces.Tick(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(report)
}

func (h *APIHandlers) ExecuteAutomation(c fiber.Ctx) error {
	outcome, err := h.automations.Execute(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(outcome)
}

func (h *APIHandlers) GetAutomations(c fiber.Ctx) error {
	automations, err := h.automations.ListByWorkspace(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"automations": automations})
}

func (h *APIHandlers) CreateAutomation(c fiber.Ctx) error {
	var req CreateAutomationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.automations.Create(c.Context(), services.CreateAutomationRequest{
		WorkspaceID: c.Params("id"),
		Owner:       req.Owner,
		Name:        req.Name,
		Trigger:     req.Trigger,
		Actions:     req.Actions,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetAutomation(c fiber.Ctx) error {
	automation, err := h.automations.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(automation)
}

func (h *APIHandlers) DeleteAutomation(c fiber.Ctx) error {
	if err := h.automations.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) AddAction(c fiber.Ctx) error {
	var req ActionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	automation, err := h.automations.AddAction(c.Context(), c.Params("id"), req.Action())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(automation)
}

func (h *APIHandlers) PauseAutomation(c fiber.Ctx) error {
	automation, err := h.automations.Pause(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(automation)
}

func (h *APIHandlers) ResumeAutomation(c fiber.Ctx) error {
	automation, err := h.automations.Resume(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(automation)
}
