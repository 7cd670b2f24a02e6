package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildops/ticket-engine/internal/domain"
	"github.com/guildops/ticket-engine/internal/events"
	apperrors "github.com/guildops/ticket-engine/pkg/util"
)

func newRatingFixture(t *testing.T) (*engineFixture, *RatingService) {
	t.Helper()
	fx := newEngineFixture(t)
	ratings := NewRatingService(fx.tickets, fx.departments, fx.engine, fx.dispatcher)
	return fx, ratings
}

func closeTicket(t *testing.T, fx *engineFixture, ticketID string) {
	t.Helper()
	_, err := fx.engine.Close(context.Background(), TicketCloseInput{
		TicketID: ticketID,
		ClosedBy: "responder-1",
		Reason:   "done",
		Resolved: true,
	})
	require.NoError(t, err)
}

func TestSubmitRatingArchivesTicket(t *testing.T) {
	fx, ratings := newRatingFixture(t)
	dept := fx.seedDepartment(t, nil)
	ticket := fx.createTicket(t, dept, "user-1")
	closeTicket(t, fx, ticket.ID)

	rating, err := ratings.SubmitRating(context.Background(), ticket.ID, "user-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, rating.Score)
	assert.Equal(t, ticket.ID, rating.TicketID)

	stored, err := fx.engine.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusArchived, stored.Status)
	assert.Len(t, fx.recorded.ofType(events.EventRatingSubmitted), 1)
}

func TestSubmitRatingScoreBounds(t *testing.T) {
	fx, ratings := newRatingFixture(t)
	dept := fx.seedDepartment(t, nil)
	ticket := fx.createTicket(t, dept, "user-1")
	closeTicket(t, fx, ticket.ID)

	for _, score := range []int{0, 6, -1} {
		_, err := ratings.SubmitRating(context.Background(), ticket.ID, "user-1", score)
		assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"), "score %d", score)
	}
}

func TestSubmitRatingRequiresClosedTicket(t *testing.T) {
	fx, ratings := newRatingFixture(t)
	dept := fx.seedDepartment(t, nil)
	ticket := fx.createTicket(t, dept, "user-1")

	_, err := ratings.SubmitRating(context.Background(), ticket.ID, "user-1", 4)
	assert.True(t, apperrors.IsCode(err, "INVALID_STATE"))
}

func TestSubmitRatingRequesterOnly(t *testing.T) {
	fx, ratings := newRatingFixture(t)
	dept := fx.seedDepartment(t, nil)
	ticket := fx.createTicket(t, dept, "user-1")
	closeTicket(t, fx, ticket.ID)

	_, err := ratings.SubmitRating(context.Background(), ticket.ID, "user-2", 4)
	assert.True(t, apperrors.IsCode(err, "NOT_AUTHORIZED"))
}

func TestSubmitRatingOnlyOnce(t *testing.T) {
	fx, ratings := newRatingFixture(t)
	dept := fx.seedDepartment(t, nil)
	ticket := fx.createTicket(t, dept, "user-1")
	closeTicket(t, fx, ticket.ID)

	_, err := ratings.SubmitRating(context.Background(), ticket.ID, "user-1", 3)
	require.NoError(t, err)

	// The ticket is archived after the first rating, so a second
	// attempt fails on status before it ever reaches the dedupe check.
	_, err = ratings.SubmitRating(context.Background(), ticket.ID, "user-1", 5)
	assert.True(t, apperrors.IsCode(err, "INVALID_STATE"))
}

func TestSubmitRatingDepartmentDisabled(t *testing.T) {
	fx, ratings := newRatingFixture(t)
	enabled := fx.seedDepartment(t, nil)
	ticket := fx.createTicket(t, enabled, "user-1")
	closeTicket(t, fx, ticket.ID)

	// Flip ratings off between closure and submission.
	off := false
	_, err := NewDepartmentService(fx.departments).UpdateDepartment(context.Background(), enabled.ID, domain.DepartmentPatch{RatingEnabled: &off})
	require.NoError(t, err)

	_, err = ratings.SubmitRating(context.Background(), ticket.ID, "user-1", 4)
	assert.True(t, apperrors.IsCode(err, "INVALID_STATE"))
}

func TestSubmitRatingUnknownTicket(t *testing.T) {
	_, ratings := newRatingFixture(t)
	_, err := ratings.SubmitRating(context.Background(), "missing", "user-1", 4)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}
