package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/guildops/ticket-engine/internal/events"
)

// NotificationService bridges domain events to the external channel
// provider and notifier. It is the only place the engine's events turn
// into chat-platform side effects.
type NotificationService struct {
	dispatcher events.Dispatcher
	engine     *TicketService
	deptSvc    *DepartmentService
	channels   ChannelProvider
	notifier   Notifier
	logger     *zap.Logger
}

// NewNotificationService creates the service. Both channels and
// notifier may be nil; the corresponding side effects are then skipped.
func NewNotificationService(dispatcher events.Dispatcher, engine *TicketService, deptSvc *DepartmentService, channels ChannelProvider, notifier Notifier, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		engine:     engine,
		deptSvc:    deptSvc,
		channels:   channels,
		notifier:   notifier,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to engine events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketClaimed, n.handleTicketClaimed)
	n.dispatcher.Subscribe(events.EventTicketTransferred, n.handleTicketTransferred)
	n.dispatcher.Subscribe(events.EventTicketClosed, n.handleTicketClosed)
	n.dispatcher.Subscribe(events.EventRatingRequested, n.handleRatingRequested)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	ticket, err := n.engine.GetTicket(ctx, event.TicketID)
	if err != nil {
		n.logger.Warn("ticket vanished before channel creation", zap.String("ticket_id", event.TicketID), zap.Error(err))
		return err
	}
	if n.channels != nil {
		dept, err := n.deptSvc.GetDepartment(ctx, payload.DepartmentID)
		if err == nil {
			channelRef, err := n.channels.CreateChannel(ctx, ticket, dept)
			if err != nil {
				n.logger.Error("channel creation failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
			} else {
				if err := n.engine.SetChannelRef(ctx, ticket.ID, channelRef); err != nil {
					n.logger.Error("failed to record channel ref", zap.String("ticket_id", ticket.ID), zap.Error(err))
				}
				ticket.ChannelRef = &channelRef
			}
		}
	}
	if n.notifier != nil {
		if err := n.notifier.NotifyTicketCreated(ctx, ticket, payload.WelcomeMessage); err != nil {
			n.logger.Warn("create notification failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	return nil
}

func (n *NotificationService) handleTicketClaimed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketClaimedPayload)
	if !ok || n.notifier == nil {
		return nil
	}
	ticket, err := n.engine.GetTicket(ctx, event.TicketID)
	if err != nil {
		return err
	}
	if err := n.notifier.NotifyTicketClaimed(ctx, ticket, payload.ResponderID); err != nil {
		n.logger.Warn("claim notification failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
	return nil
}

func (n *NotificationService) handleTicketTransferred(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketTransferredPayload)
	if !ok || n.notifier == nil {
		return nil
	}
	ticket, err := n.engine.GetTicket(ctx, event.TicketID)
	if err != nil {
		return err
	}
	if err := n.notifier.NotifyTicketTransferred(ctx, ticket, payload.FromResponderID, payload.ToResponderID); err != nil {
		n.logger.Warn("transfer notification failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
	return nil
}

func (n *NotificationService) handleTicketClosed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketClosedPayload)
	if !ok {
		return nil
	}
	ticket, err := n.engine.GetTicket(ctx, event.TicketID)
	if err != nil {
		return err
	}
	if n.channels != nil && payload.ChannelRef != nil {
		if err := n.channels.RevokeWrite(ctx, *payload.ChannelRef); err != nil {
			n.logger.Warn("write revoke failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	if n.notifier != nil {
		if err := n.notifier.NotifyTicketClosed(ctx, ticket, payload.ClosedBy, payload.Reason); err != nil {
			n.logger.Warn("close notification failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	return nil
}

func (n *NotificationService) handleRatingRequested(ctx context.Context, event events.Event) error {
	if n.notifier == nil {
		return nil
	}
	ticket, err := n.engine.GetTicket(ctx, event.TicketID)
	if err != nil {
		return err
	}
	if err := n.notifier.RequestRating(ctx, ticket); err != nil {
		n.logger.Warn("rating prompt failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
	return nil
}
