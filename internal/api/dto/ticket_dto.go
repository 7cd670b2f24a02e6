package dto

import (
	"time"

	"github.com/guildops/ticket-engine/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	DepartmentID string                `json:"department_id"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Priority     domain.TicketPriority `json:"priority,omitempty"`
}

// TransferRequest payload.
type TransferRequest struct {
	ToResponderID string `json:"to_responder_id"`
}

// ReprioritizeRequest payload.
type ReprioritizeRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}

// CloseTicketRequest payload.
type CloseTicketRequest struct {
	Reason   string  `json:"reason"`
	Solution *string `json:"solution,omitempty"`
	Resolved bool    `json:"resolved"`
}

// SubmitRatingRequest payload.
type SubmitRatingRequest struct {
	Score int `json:"score"`
}

// TicketResponse serializes a ticket.
type TicketResponse struct {
	ID             string                `json:"id"`
	GuildID        string                `json:"guild_id"`
	Number         int64                 `json:"number"`
	RequesterID    string                `json:"requester_id"`
	DepartmentID   string                `json:"department_id"`
	DepartmentName string                `json:"department_name"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Status         domain.TicketStatus   `json:"status"`
	Priority       domain.TicketPriority `json:"priority"`
	AssigneeID     *string               `json:"assignee_id,omitempty"`
	ChannelRef     *string               `json:"channel_ref,omitempty"`
	MessageCount   int64                 `json:"message_count"`
	CreatedAt      time.Time             `json:"created_at"`
	LastActivityAt time.Time             `json:"last_activity_at"`
	Resolved       bool                  `json:"resolved"`
	ClosedAt       *time.Time            `json:"closed_at,omitempty"`
	ClosedBy       *string               `json:"closed_by,omitempty"`
	CloseReason    string                `json:"close_reason,omitempty"`
	Solution       *string               `json:"solution,omitempty"`
}

// FromTicket maps a domain ticket to its response form.
func FromTicket(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:             ticket.ID,
		GuildID:        ticket.GuildID,
		Number:         ticket.Number,
		RequesterID:    ticket.RequesterID,
		DepartmentID:   ticket.DepartmentID,
		DepartmentName: ticket.DepartmentName,
		Title:          ticket.Title,
		Description:    ticket.Description,
		Status:         ticket.Status,
		Priority:       ticket.Priority,
		AssigneeID:     ticket.AssigneeID,
		ChannelRef:     ticket.ChannelRef,
		MessageCount:   ticket.MessageCount,
		CreatedAt:      ticket.CreatedAt,
		LastActivityAt: ticket.LastActivityAt,
		Resolved:       ticket.Resolved,
		ClosedAt:       ticket.ClosedAt,
		ClosedBy:       ticket.ClosedBy,
		CloseReason:    ticket.CloseReason,
		Solution:       ticket.Solution,
	}
}

// RatingResponse serializes a rating.
type RatingResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}
