package service

import (
	"context"

	"github.com/guildops/ticket-engine/internal/domain"
)

// ChannelProvider is implemented by the surrounding bot. The engine
// never creates or deletes communication channels itself.
type ChannelProvider interface {
	// CreateChannel provisions a private channel for the ticket and
	// returns an opaque reference to it.
	CreateChannel(ctx context.Context, ticket *domain.Ticket, dept *domain.Department) (string, error)
	// RevokeWrite removes the requester's write access after closure.
	RevokeWrite(ctx context.Context, channelRef string) error
	// DeleteChannel removes the channel entirely.
	DeleteChannel(ctx context.Context, channelRef string) error
}

// Notifier delivers human-readable announcements for ticket events.
// The engine supplies structured data only; rendering is the bot's
// concern.
type Notifier interface {
	NotifyTicketCreated(ctx context.Context, ticket *domain.Ticket, welcomeMessage string) error
	NotifyTicketClaimed(ctx context.Context, ticket *domain.Ticket, responderID string) error
	NotifyTicketTransferred(ctx context.Context, ticket *domain.Ticket, fromResponderID, toResponderID string) error
	NotifyTicketClosed(ctx context.Context, ticket *domain.Ticket, closedBy, reason string) error
	RequestRating(ctx context.Context, ticket *domain.Ticket) error
}

// ResponderDirectory resolves responder role membership. Auto
// assignment picks the first member of the first role that has any;
// there is no load balancing, which mirrors the product behavior.
type ResponderDirectory interface {
	FirstMemberOf(ctx context.Context, guildID string, roleIDs []string) (string, error)
}
