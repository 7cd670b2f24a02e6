package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/guildops/ticket-engine/internal/auth"
	"github.com/guildops/ticket-engine/internal/service"
	apperrors "github.com/guildops/ticket-engine/pkg/util"
)

// StatsHandler exposes the read-only aggregates.
type StatsHandler struct {
	service *service.StatsService
}

// NewStatsHandler constructs handler.
func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{service: statsService}
}

// Guild GET /stats/guild.
func (h *StatsHandler) Guild(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	stats, err := h.service.GuildStats(c.UserContext(), principal.GuildID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// User GET /stats/me.
func (h *StatsHandler) User(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	stats, err := h.service.UserStats(c.UserContext(), principal.GuildID, principal.SubjectID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}
