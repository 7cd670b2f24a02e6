package events

import (
	"time"

	"github.com/guildops/ticket-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketClaimed         EventType = "ticket_claimed"
	EventTicketTransferred     EventType = "ticket_transferred"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketClosed          EventType = "ticket_closed"
	EventTicketReopened        EventType = "ticket_reopened"
	EventTicketArchived        EventType = "ticket_archived"
	EventRatingRequested       EventType = "rating_requested"
	EventRatingSubmitted       EventType = "rating_submitted"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type    domain.SubjectType `json:"type"`
	UserID  *string            `json:"user_id,omitempty"`
	StaffID *string            `json:"staff_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	GuildID   string      `json:"guild_id"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Number         int64                 `json:"number"`
	DepartmentID   string                `json:"department_id"`
	DepartmentName string                `json:"department_name"`
	RequesterID    string                `json:"requester_id"`
	Priority       domain.TicketPriority `json:"priority"`
	Title          string                `json:"title"`
	WelcomeMessage string                `json:"welcome_message,omitempty"`
	CategoryRef    *string               `json:"category_ref,omitempty"`
	AssigneeID     *string               `json:"assignee_id,omitempty"`
}

// TicketClaimedPayload payload.
type TicketClaimedPayload struct {
	Number      int64  `json:"number"`
	ResponderID string `json:"responder_id"`
}

// TicketTransferredPayload payload.
type TicketTransferredPayload struct {
	Number          int64  `json:"number"`
	FromResponderID string `json:"from_responder_id"`
	ToResponderID   string `json:"to_responder_id"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	Number      int64                 `json:"number"`
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	Number     int64   `json:"number"`
	ClosedBy   string  `json:"closed_by"`
	Reason     string  `json:"reason"`
	Solution   *string `json:"solution,omitempty"`
	Resolved   bool    `json:"resolved"`
	Auto       bool    `json:"auto"`
	ChannelRef *string `json:"channel_ref,omitempty"`
}

// TicketReopenedPayload payload.
type TicketReopenedPayload struct {
	Number     int64  `json:"number"`
	ReopenedBy string `json:"reopened_by"`
}

// TicketArchivedPayload payload.
type TicketArchivedPayload struct {
	Number int64 `json:"number"`
}

// RatingRequestedPayload payload.
type RatingRequestedPayload struct {
	Number      int64  `json:"number"`
	RequesterID string `json:"requester_id"`
}

// RatingSubmittedPayload payload.
type RatingSubmittedPayload struct {
	Number int64 `json:"number"`
	Score  int   `json:"score"`
}
