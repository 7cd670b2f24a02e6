package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/guildops/ticket-engine/internal/api/dto"
	"github.com/guildops/ticket-engine/internal/auth"
	"github.com/guildops/ticket-engine/internal/domain"
	"github.com/guildops/ticket-engine/internal/repository"
	"github.com/guildops/ticket-engine/internal/service"
	apperrors "github.com/guildops/ticket-engine/pkg/util"
)

// TicketsHandler exposes lifecycle operations to the bot gateway.
type TicketsHandler struct {
	engine  *service.TicketService
	ratings *service.RatingService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(engine *service.TicketService, ratings *service.RatingService) *TicketsHandler {
	return &TicketsHandler{engine: engine, ratings: ratings}
}

// Create POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.DepartmentID == "" || req.Title == "" {
		return apperrors.NewValidationError("department_id and title required", nil)
	}

	ticket, err := h.engine.CreateTicket(c.UserContext(), service.TicketCreateInput{
		DepartmentID: req.DepartmentID,
		RequesterID:  principal.SubjectID,
		Title:        req.Title,
		Description:  req.Description,
		Priority:     req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// List GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := repository.TicketFilter{
		GuildID: &principal.GuildID,
		Limit:   c.QueryInt("limit", 20),
		Offset:  c.QueryInt("offset", 0),
	}
	if !principal.Staff {
		filter.RequesterID = &principal.SubjectID
	}
	if dept := c.Query("department_id"); dept != "" {
		filter.DepartmentID = &dept
	}
	if status := c.Query("status"); status != "" {
		filter.Statuses = []domain.TicketStatus{domain.TicketStatus(status)}
	}

	tickets, err := h.engine.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.FromTicket(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetByNumber GET /tickets/:number.
func (h *TicketsHandler) GetByNumber(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	number, err := strconv.ParseInt(c.Params("number"), 10, 64)
	if err != nil {
		return apperrors.NewValidationError("invalid ticket number", nil)
	}
	ticket, err := h.engine.GetTicketByNumber(c.UserContext(), principal.GuildID, number)
	if err != nil {
		return err
	}
	if !principal.Staff && ticket.RequesterID != principal.SubjectID {
		return apperrors.NewNotAuthorized("not your ticket")
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// Claim POST /tickets/:id/claim.
func (h *TicketsHandler) Claim(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.engine.Claim(c.UserContext(), c.Params("id"), principal.SubjectID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// Transfer POST /tickets/:id/transfer.
func (h *TicketsHandler) Transfer(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ToResponderID == "" {
		return apperrors.NewValidationError("to_responder_id required", nil)
	}
	ticket, err := h.engine.Transfer(c.UserContext(), c.Params("id"), principal.SubjectID, req.ToResponderID, principal.Staff)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// Reprioritize POST /tickets/:id/priority.
func (h *TicketsHandler) Reprioritize(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ReprioritizeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.engine.Reprioritize(c.UserContext(), c.Params("id"), req.Priority, principal.SubjectID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// Pending POST /tickets/:id/pending.
func (h *TicketsHandler) Pending(c *fiber.Ctx) error {
	ticket, err := h.engine.MarkPending(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// Touch POST /tickets/:id/activity. Invoked by the gateway on every
// inbound channel message.
func (h *TicketsHandler) Touch(c *fiber.Ctx) error {
	if err := h.engine.TouchActivity(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Close POST /tickets/:id/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CloseTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.engine.Close(c.UserContext(), service.TicketCloseInput{
		TicketID: c.Params("id"),
		ClosedBy: principal.SubjectID,
		Reason:   req.Reason,
		Solution: req.Solution,
		Resolved: req.Resolved,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// Reopen POST /tickets/:id/reopen.
func (h *TicketsHandler) Reopen(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.engine.Reopen(c.UserContext(), c.Params("id"), principal.SubjectID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// Rate POST /tickets/:id/rating.
func (h *TicketsHandler) Rate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.SubmitRatingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	rating, err := h.ratings.SubmitRating(c.UserContext(), c.Params("id"), principal.SubjectID, req.Score)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.RatingResponse{
		ID:        rating.ID,
		TicketID:  rating.TicketID,
		Score:     rating.Score,
		CreatedAt: rating.CreatedAt,
	}})
}
