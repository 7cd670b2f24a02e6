package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "OPEN"
	TicketStatusAssigned TicketStatus = "ASSIGNED"
	TicketStatusPending  TicketStatus = "PENDING"
	TicketStatusClosed   TicketStatus = "CLOSED"
	TicketStatusArchived TicketStatus = "ARCHIVED"
)

// OpenStatuses are the non-terminal states counted against the
// per-requester ticket limit.
var OpenStatuses = []TicketStatus{TicketStatusOpen, TicketStatusAssigned, TicketStatusPending}

// IsOpen reports whether the status counts as non-terminal.
func (s TicketStatus) IsOpen() bool {
	return s == TicketStatusOpen || s == TicketStatusAssigned || s == TicketStatusPending
}

// IsTerminal reports whether the ticket can no longer be mutated
// through normal lifecycle operations.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusClosed || s == TicketStatusArchived
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityNormal TicketPriority = "NORMAL"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// ValidPriority reports whether p is one of the enumerated values.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityNormal, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests. Number is unique and
// strictly increasing per guild; it survives reopen and archival.
type Ticket struct {
	ID             string
	GuildID        string
	Number         int64
	RequesterID    string
	DepartmentID   string
	DepartmentName string
	Title          string
	Description    string
	Status         TicketStatus
	Priority       TicketPriority
	AssigneeID     *string
	ChannelRef     *string
	MessageCount   int64
	CreatedAt      time.Time
	LastActivityAt time.Time
	UpdatedAt      time.Time

	// Close metadata, populated only once Status reaches CLOSED.
	Resolved    bool
	ClosedAt    *time.Time
	ClosedBy    *string
	CloseReason string
	Solution    *string
}
