package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildops/ticket-engine/internal/domain"
)

func TestGuildStatsAggregation(t *testing.T) {
	fx, ratings := newRatingFixture(t)
	stats := NewStatsService(fx.tickets)
	dept := fx.seedDepartment(t, nil)

	first := fx.createTicket(t, dept, "user-1")
	fx.createTicket(t, dept, "user-2")
	third := fx.createTicket(t, dept, "user-3")

	_, err := fx.engine.Claim(context.Background(), first.ID, "responder-1")
	require.NoError(t, err)
	closeTicket(t, fx, first.ID)
	_, err = ratings.SubmitRating(context.Background(), first.ID, "user-1", 4)
	require.NoError(t, err)

	closeTicket(t, fx, third.ID)

	guild, err := stats.GuildStats(context.Background(), dept.GuildID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), guild.TotalTickets)
	assert.Equal(t, int64(1), guild.ActiveTickets)
	assert.Equal(t, int64(2), guild.ClosedTickets)
	assert.Equal(t, int64(2), guild.ResolvedTickets)
	assert.Equal(t, int64(1), guild.RatingCount)
	assert.InDelta(t, 4.0, guild.AverageRating, 0.001)
	assert.Equal(t, int64(1), guild.StatusCounts[domain.TicketStatusOpen])
	assert.Equal(t, int64(1), guild.StatusCounts[domain.TicketStatusArchived])
	assert.Equal(t, int64(1), guild.ClosedByResponder["responder-1"])
}

func TestGuildStatsEmptyGuild(t *testing.T) {
	fx := newEngineFixture(t)
	stats := NewStatsService(fx.tickets)

	guild, err := stats.GuildStats(context.Background(), "guild-empty")
	require.NoError(t, err)
	assert.Equal(t, int64(0), guild.TotalTickets)
	assert.Zero(t, guild.AverageRating)
	assert.Zero(t, guild.AvgResolutionHours)
}

func TestUserStatsAggregation(t *testing.T) {
	fx, ratings := newRatingFixture(t)
	stats := NewStatsService(fx.tickets)
	dept := fx.seedDepartment(t, nil)

	first := fx.createTicket(t, dept, "user-1")
	fx.createTicket(t, dept, "user-1")
	fx.createTicket(t, dept, "user-2")

	closeTicket(t, fx, first.ID)
	_, err := ratings.SubmitRating(context.Background(), first.ID, "user-1", 2)
	require.NoError(t, err)

	user, err := stats.UserStats(context.Background(), dept.GuildID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ActiveTickets)
	assert.Equal(t, int64(1), user.ClosedTickets)
	assert.Equal(t, int64(1), user.RatingsSubmitted)
	assert.InDelta(t, 2.0, user.AverageGiven, 0.001)
}
