package service

import (
	"context"

	"github.com/guildops/ticket-engine/internal/domain"
	"github.com/guildops/ticket-engine/internal/repository"
	apperrors "github.com/guildops/ticket-engine/pkg/util"
)

// StatsService is the read-only statistics aggregator. It never
// mutates tickets; all derivation happens repository-side.
type StatsService struct {
	tickets repository.TicketRepository
}

// NewStatsService constructs the aggregator.
func NewStatsService(tickets repository.TicketRepository) *StatsService {
	return &StatsService{tickets: tickets}
}

// GuildStats returns guild-wide ticket and rating metrics.
func (s *StatsService) GuildStats(ctx context.Context, guildID string) (*domain.GuildStats, error) {
	stats, err := s.tickets.GuildStats(ctx, guildID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return stats, nil
}

// UserStats returns one requester's counts and the average score they
// have given as a rater.
func (s *StatsService) UserStats(ctx context.Context, guildID, userID string) (*domain.UserStats, error) {
	stats, err := s.tickets.UserStats(ctx, guildID, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return stats, nil
}
