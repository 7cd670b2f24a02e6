package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/guildops/ticket-engine/internal/api/dto"
	"github.com/guildops/ticket-engine/internal/domain"
	"github.com/guildops/ticket-engine/internal/service"
	apperrors "github.com/guildops/ticket-engine/pkg/util"
)

// DepartmentsHandler exposes department administration.
type DepartmentsHandler struct {
	service *service.DepartmentService
}

// NewDepartmentsHandler constructs handler.
func NewDepartmentsHandler(departmentService *service.DepartmentService) *DepartmentsHandler {
	return &DepartmentsHandler{service: departmentService}
}

// Create POST /departments.
func (h *DepartmentsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateDepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	autoClose, err := parseOptionalDuration(req.AutoCloseAfter)
	if err != nil {
		return apperrors.NewValidationError("invalid auto_close_after duration", map[string]any{"auto_close_after": req.AutoCloseAfter})
	}

	dept, err := h.service.CreateDepartment(c.UserContext(), service.DepartmentCreateInput{
		GuildID:                req.GuildID,
		Name:                   req.Name,
		Description:            req.Description,
		ResponderRoleIDs:       req.ResponderRoleIDs,
		WelcomeMessage:         req.WelcomeMessage,
		MaxTicketsPerRequester: req.MaxTicketsPerRequester,
		RequirePriority:        req.RequirePriority,
		AutoAssignResponder:    req.AutoAssignResponder,
		AutoCloseAfter:         autoClose,
		TranscriptEnabled:      req.TranscriptEnabled,
		RatingEnabled:          req.RatingEnabled,
		CategoryRef:            req.CategoryRef,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromDepartment(dept)})
}

// Get GET /departments/:id.
func (h *DepartmentsHandler) Get(c *fiber.Ctx) error {
	dept, err := h.service.GetDepartment(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromDepartment(dept)})
}

// List GET /departments?guild_id=...
func (h *DepartmentsHandler) List(c *fiber.Ctx) error {
	guildID := c.Query("guild_id")
	if guildID == "" {
		return apperrors.NewValidationError("guild_id required", nil)
	}
	depts, err := h.service.ListDepartments(c.UserContext(), guildID)
	if err != nil {
		return err
	}
	items := make([]dto.DepartmentResponse, 0, len(depts))
	for i := range depts {
		items = append(items, dto.FromDepartment(&depts[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Update PATCH /departments/:id.
func (h *DepartmentsHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateDepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	patch := domain.DepartmentPatch{
		Name:                   req.Name,
		Description:            req.Description,
		ResponderRoleIDs:       req.ResponderRoleIDs,
		WelcomeMessage:         req.WelcomeMessage,
		MaxTicketsPerRequester: req.MaxTicketsPerRequester,
		RequirePriority:        req.RequirePriority,
		AutoAssignResponder:    req.AutoAssignResponder,
		TranscriptEnabled:      req.TranscriptEnabled,
		RatingEnabled:          req.RatingEnabled,
		CategoryRef:            req.CategoryRef,
	}
	if req.AutoCloseAfter != nil {
		autoClose, err := parseOptionalDuration(*req.AutoCloseAfter)
		if err != nil {
			return apperrors.NewValidationError("invalid auto_close_after duration", map[string]any{"auto_close_after": *req.AutoCloseAfter})
		}
		patch.AutoCloseAfter = &autoClose
	}

	dept, err := h.service.UpdateDepartment(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromDepartment(dept)})
}

// Delete DELETE /departments/:id.
func (h *DepartmentsHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.DeleteDepartment(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func parseOptionalDuration(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	return time.ParseDuration(raw)
}
