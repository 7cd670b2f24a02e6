package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/guildops/ticket-engine/internal/domain"
	"github.com/guildops/ticket-engine/internal/events"
	"github.com/guildops/ticket-engine/internal/repository"
	apperrors "github.com/guildops/ticket-engine/pkg/util"
)

// RatingService collects the one-shot post-closure rating.
type RatingService struct {
	tickets     repository.TicketRepository
	departments repository.DepartmentRepository
	engine      *TicketService
	dispatcher  events.Dispatcher
}

// NewRatingService constructs the collector.
func NewRatingService(tickets repository.TicketRepository, departments repository.DepartmentRepository, engine *TicketService, dispatcher events.Dispatcher) *RatingService {
	return &RatingService{
		tickets:     tickets,
		departments: departments,
		engine:      engine,
		dispatcher:  dispatcher,
	}
}

// SubmitRating records a 1-5 score for a closed ticket. Only the
// original requester may rate, only once, and only while the ticket
// sits in CLOSED waiting for its rating window. Success archives the
// ticket.
func (s *RatingService) SubmitRating(ctx context.Context, ticketID, requesterID string, score int) (*domain.Rating, error) {
	if score < domain.RatingMin || score > domain.RatingMax {
		return nil, apperrors.NewValidationError("score must be between 1 and 5", map[string]any{"score": score})
	}

	ticket, err := s.engine.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusClosed {
		return nil, apperrors.NewInvalidState("ticket must be closed before rating", map[string]any{"status": ticket.Status})
	}
	if ticket.RequesterID != requesterID {
		return nil, apperrors.NewNotAuthorized("only the requester may rate this ticket")
	}
	if !s.ratingEnabled(ctx, ticket.DepartmentID) {
		return nil, apperrors.NewInvalidState("ratings are disabled for this department", nil)
	}

	existing, err := s.tickets.GetRating(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if existing != nil {
		return nil, apperrors.NewAlreadyRated("ticket already rated", map[string]any{"rating_id": existing.ID})
	}

	rating := &domain.Rating{
		ID:          uuid.NewString(),
		TicketID:    ticket.ID,
		GuildID:     ticket.GuildID,
		RequesterID: requesterID,
		Score:       score,
		CreatedAt:   time.Now(),
	}
	if err := s.tickets.InsertRating(ctx, rating); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventRatingSubmitted,
			GuildID:   ticket.GuildID,
			TicketID:  ticket.ID,
			Actor:     userActor(requesterID),
			Timestamp: time.Now(),
			Payload:   events.RatingSubmittedPayload{Number: ticket.Number, Score: score},
		})
	}

	if _, err := s.engine.Archive(ctx, ticket.ID); err != nil {
		return nil, err
	}
	return rating, nil
}

func (s *RatingService) ratingEnabled(ctx context.Context, departmentID string) bool {
	dept, err := s.departments.GetByID(ctx, departmentID)
	if err != nil {
		return false
	}
	return dept.RatingEnabled
}
