package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildops/ticket-engine/internal/domain"
	"github.com/guildops/ticket-engine/internal/service"
	apperrors "github.com/guildops/ticket-engine/pkg/util"
)

// Full lifecycle: create, hit the creation limit, claim, go idle,
// get swept, rate, end archived with the rating reflected in stats.
func TestTicketLifecycleEndToEnd(t *testing.T) {
	fx := newSweepFixture(t, 72*time.Hour)
	ratings := service.NewRatingService(fx.tickets, fx.departments, fx.engine, nil)
	stats := service.NewStatsService(fx.tickets)

	dept := fx.seedDepartment(t, 24*time.Hour, true)
	dept.MaxTicketsPerRequester = 1
	require.NoError(t, fx.departments.Update(context.Background(), dept))

	ticket := fx.createTicket(t, dept, "user-1")
	assert.Equal(t, int64(1), ticket.Number)

	_, err := fx.engine.CreateTicket(context.Background(), service.TicketCreateInput{
		DepartmentID: dept.ID,
		RequesterID:  "user-1",
		Title:        "another one",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "LIMIT_EXCEEDED"))

	claimed, err := fx.engine.Claim(context.Background(), ticket.ID, "responder-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAssigned, claimed.Status)

	fx.backdateActivity(t, ticket.ID, 25*time.Hour)

	result := fx.worker.RunOnce(context.Background())
	assert.Equal(t, 1, result.Closed)

	swept, err := fx.engine.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, swept.Status)
	require.NotNil(t, swept.ClosedBy)
	assert.Equal(t, domain.SystemActorID, *swept.ClosedBy)

	// The closed ticket no longer counts against the limit.
	second, err := fx.engine.CreateTicket(context.Background(), service.TicketCreateInput{
		DepartmentID: dept.ID,
		RequesterID:  "user-1",
		Title:        "follow up",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Number)

	rating, err := ratings.SubmitRating(context.Background(), ticket.ID, "user-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, rating.Score)

	archived, err := fx.engine.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusArchived, archived.Status)

	guild, err := stats.GuildStats(context.Background(), dept.GuildID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), guild.TotalTickets)
	assert.Equal(t, int64(1), guild.ActiveTickets)
	assert.Equal(t, int64(1), guild.RatingCount)
	assert.InDelta(t, 5.0, guild.AverageRating, 0.001)
	assert.Equal(t, int64(1), guild.ClosedByResponder["responder-1"])
}
