package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/guildops/ticket-engine/internal/domain"
	"github.com/guildops/ticket-engine/internal/events"
	"github.com/guildops/ticket-engine/internal/locking"
	"github.com/guildops/ticket-engine/internal/repository"
	apperrors "github.com/guildops/ticket-engine/pkg/util"
)

// TicketService is the ticket lifecycle engine: creation with limit
// enforcement and per-guild numbering, claim/transfer/reprioritize,
// close, reopen and archival. It emits domain events and never talks
// to the chat platform directly.
type TicketService struct {
	tickets     repository.TicketRepository
	departments repository.DepartmentRepository
	locker      locking.Locker
	directory   ResponderDirectory
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	lockTTL     time.Duration
}

// TicketDependencies bundles collaborators for the engine.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	DepartmentRepo repository.DepartmentRepository
	Locker         locking.Locker
	Directory      ResponderDirectory
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	LockTTL        time.Duration
}

// NewTicketService constructs the engine.
func NewTicketService(deps TicketDependencies) *TicketService {
	lockTTL := deps.LockTTL
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		departments: deps.DepartmentRepo,
		locker:      deps.Locker,
		directory:   deps.Directory,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		lockTTL:     lockTTL,
	}
}

// TicketCreateInput describes ticket creation payload. Priority is
// optional; see CreateTicket for how it interacts with the
// department's RequirePriority policy.
type TicketCreateInput struct {
	DepartmentID string
	RequesterID  string
	Title        string
	Description  string
	Priority     domain.TicketPriority
}

// CreateTicket opens a ticket, enforcing the per-requester limit and
// allocating the next guild-wide number. The count-then-insert
// sequence runs under a lock keyed by (guild, requester, department)
// so concurrent creations cannot both slip under the limit.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	dept, err := s.departments.GetByID(ctx, input.DepartmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("department", map[string]any{"department_id": input.DepartmentID})
		}
		return nil, apperrors.MapError(err)
	}

	priority, err := resolveCreationPriority(dept, input.Priority)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}

	release, err := s.locker.Acquire(ctx, locking.CreationKey(dept.GuildID, input.RequesterID, dept.ID), s.lockTTL)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	defer release()

	open, err := s.tickets.FindOpenByRequester(ctx, dept.GuildID, input.RequesterID, dept.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(open) >= dept.MaxTicketsPerRequester {
		return nil, apperrors.NewLimitExceeded("open ticket limit reached for this department", map[string]any{
			"limit":           dept.MaxTicketsPerRequester,
			"existing_number": open[0].Number,
		})
	}

	number, err := s.tickets.AllocateNumber(ctx, dept.GuildID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	now := time.Now()
	ticket := &domain.Ticket{
		ID:             uuid.NewString(),
		GuildID:        dept.GuildID,
		Number:         number,
		RequesterID:    input.RequesterID,
		DepartmentID:   dept.ID,
		DepartmentName: dept.Name,
		Title:          title,
		Description:    strings.TrimSpace(input.Description),
		Status:         domain.TicketStatusOpen,
		Priority:       priority,
		CreatedAt:      now,
		LastActivityAt: now,
	}

	if dept.AutoAssignResponder {
		s.autoAssign(ctx, dept, ticket)
	}

	if err := s.tickets.Insert(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		GuildID:  ticket.GuildID,
		TicketID: ticket.ID,
		Actor:    userActor(input.RequesterID),
		Payload: events.TicketCreatedPayload{
			Number:         ticket.Number,
			DepartmentID:   dept.ID,
			DepartmentName: dept.Name,
			RequesterID:    ticket.RequesterID,
			Priority:       ticket.Priority,
			Title:          ticket.Title,
			WelcomeMessage: dept.WelcomeMessage,
			CategoryRef:    dept.CategoryRef,
			AssigneeID:     ticket.AssigneeID,
		},
	})
	return ticket, nil
}

// Claim assigns the ticket to the calling responder.
func (s *TicketService) Claim(ctx context.Context, ticketID, responderID string) (*domain.Ticket, error) {
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status.IsTerminal() {
		return nil, invalidStateError(ticket)
	}
	if ticket.AssigneeID != nil && *ticket.AssigneeID != responderID {
		return nil, apperrors.NewAlreadyAssigned("ticket already assigned", map[string]any{"assignee_id": *ticket.AssigneeID})
	}
	ticket.Status = domain.TicketStatusAssigned
	ticket.AssigneeID = &responderID
	ticket.LastActivityAt = time.Now()
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketClaimed,
		GuildID:  ticket.GuildID,
		TicketID: ticket.ID,
		Actor:    staffActor(responderID),
		Payload:  events.TicketClaimedPayload{Number: ticket.Number, ResponderID: responderID},
	})
	return ticket, nil
}

// Transfer hands an assigned ticket from one responder to another.
// isStaff is the caller-resolved elevated-authority flag; when false
// the transfer must be initiated by the current assignee.
func (s *TicketService) Transfer(ctx context.Context, ticketID, fromResponderID, toResponderID string, isStaff bool) (*domain.Ticket, error) {
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusAssigned {
		return nil, invalidStateError(ticket)
	}
	if !isStaff && (ticket.AssigneeID == nil || *ticket.AssigneeID != fromResponderID) {
		return nil, apperrors.NewNotAuthorized("only the current assignee may transfer this ticket")
	}
	ticket.AssigneeID = &toResponderID
	ticket.LastActivityAt = time.Now()
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketTransferred,
		GuildID:  ticket.GuildID,
		TicketID: ticket.ID,
		Actor:    staffActor(fromResponderID),
		Payload: events.TicketTransferredPayload{
			Number:          ticket.Number,
			FromResponderID: fromResponderID,
			ToResponderID:   toResponderID,
		},
	})
	return ticket, nil
}

// Reprioritize updates the stored priority of a live ticket.
func (s *TicketService) Reprioritize(ctx context.Context, ticketID string, newPriority domain.TicketPriority, actorID string) (*domain.Ticket, error) {
	if !domain.ValidPriority(newPriority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": newPriority})
	}
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status.IsTerminal() {
		return nil, invalidStateError(ticket)
	}
	oldPriority := ticket.Priority
	ticket.Priority = newPriority
	ticket.LastActivityAt = time.Now()
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketPriorityChanged,
		GuildID:  ticket.GuildID,
		TicketID: ticket.ID,
		Actor:    staffActor(actorID),
		Payload: events.TicketPriorityChangedPayload{
			Number:      ticket.Number,
			OldPriority: oldPriority,
			NewPriority: newPriority,
		},
	})
	return ticket, nil
}

// MarkPending parks an assigned ticket while the responder waits on the
// requester. The next inbound message returns it to ASSIGNED.
func (s *TicketService) MarkPending(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusAssigned {
		return nil, invalidStateError(ticket)
	}
	ticket.Status = domain.TicketStatusPending
	ticket.LastActivityAt = time.Now()
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// TouchActivity records an inbound channel message: bumps the activity
// timestamp the sweeper watches and increments the message counter. A
// pending ticket wakes back up to ASSIGNED.
func (s *TicketService) TouchActivity(ctx context.Context, ticketID string) error {
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.Status.IsTerminal() {
		return nil
	}
	if ticket.Status == domain.TicketStatusPending {
		ticket.Status = domain.TicketStatusAssigned
	}
	ticket.LastActivityAt = time.Now()
	ticket.MessageCount++
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// TicketCloseInput describes a close request.
type TicketCloseInput struct {
	TicketID string
	ClosedBy string
	Reason   string
	Solution *string
	Resolved bool
	Auto     bool
}

// Close terminates a ticket. A second close of the same ticket fails
// with INVALID_STATE, which keeps the operation idempotent in effect.
// When the department has ratings disabled (or no longer exists) the
// ticket is archived immediately; otherwise a rating is requested.
func (s *TicketService) Close(ctx context.Context, input TicketCloseInput) (*domain.Ticket, error) {
	ticket, err := s.fetchTicket(ctx, input.TicketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status.IsTerminal() {
		return nil, invalidStateError(ticket)
	}

	closedBy := input.ClosedBy
	reason := input.Reason
	if input.Auto {
		closedBy = domain.SystemActorID
		reason = domain.AutoCloseReason
	}

	now := time.Now()
	ticket.Status = domain.TicketStatusClosed
	ticket.Resolved = input.Resolved
	ticket.ClosedAt = &now
	ticket.ClosedBy = &closedBy
	ticket.CloseReason = reason
	ticket.Solution = input.Solution
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	actor := staffActor(closedBy)
	if input.Auto {
		actor = systemActor()
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketClosed,
		GuildID:  ticket.GuildID,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketClosedPayload{
			Number:     ticket.Number,
			ClosedBy:   closedBy,
			Reason:     reason,
			Solution:   ticket.Solution,
			Resolved:   ticket.Resolved,
			Auto:       input.Auto,
			ChannelRef: ticket.ChannelRef,
		},
	})

	if s.ratingEnabledFor(ctx, ticket.DepartmentID) {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventRatingRequested,
			GuildID:  ticket.GuildID,
			TicketID: ticket.ID,
			Actor:    actor,
			Payload:  events.RatingRequestedPayload{Number: ticket.Number, RequesterID: ticket.RequesterID},
		})
	} else {
		if archived, err := s.Archive(ctx, ticket.ID); err == nil {
			ticket = archived
		}
	}
	return ticket, nil
}

// Reopen returns a closed ticket to OPEN, clearing its close metadata.
// The ticket number and message count survive. The assignee is cleared
// so the ticket can be claimed afresh.
func (s *TicketService) Reopen(ctx context.Context, ticketID, reopenedBy string) (*domain.Ticket, error) {
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusClosed {
		return nil, invalidStateError(ticket)
	}
	ticket.Status = domain.TicketStatusOpen
	ticket.Resolved = false
	ticket.ClosedAt = nil
	ticket.ClosedBy = nil
	ticket.CloseReason = ""
	ticket.Solution = nil
	ticket.AssigneeID = nil
	ticket.LastActivityAt = time.Now()
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketReopened,
		GuildID:  ticket.GuildID,
		TicketID: ticket.ID,
		Actor:    staffActor(reopenedBy),
		Payload:  events.TicketReopenedPayload{Number: ticket.Number, ReopenedBy: reopenedBy},
	})
	return ticket, nil
}

// Archive moves a closed ticket to the terminal archived partition.
func (s *TicketService) Archive(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusClosed {
		return nil, invalidStateError(ticket)
	}
	if err := s.tickets.MoveToArchive(ctx, ticket.ID); err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket.Status = domain.TicketStatusArchived
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketArchived,
		GuildID:  ticket.GuildID,
		TicketID: ticket.ID,
		Actor:    systemActor(),
		Payload:  events.TicketArchivedPayload{Number: ticket.Number},
	})
	return ticket, nil
}

// SetChannelRef records the communication channel provisioned by the
// surrounding bot for this ticket.
func (s *TicketService) SetChannelRef(ctx context.Context, ticketID, channelRef string) error {
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	ticket.ChannelRef = &channelRef
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// GetTicket fetches a ticket by record id.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return s.fetchTicket(ctx, ticketID)
}

// GetTicketByNumber fetches a ticket by its guild-wide number.
func (s *TicketService) GetTicketByNumber(ctx context.Context, guildID string, number int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByNumber(ctx, guildID, number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"guild_id": guildID, "number": number})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// ListTickets returns tickets matching the filter.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

func (s *TicketService) fetchTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// ratingEnabledFor treats a deleted department as rating-disabled so
// orphaned tickets still reach the archived terminal state.
func (s *TicketService) ratingEnabledFor(ctx context.Context, departmentID string) bool {
	dept, err := s.departments.GetByID(ctx, departmentID)
	if err != nil {
		return false
	}
	return dept.RatingEnabled
}

func (s *TicketService) autoAssign(ctx context.Context, dept *domain.Department, ticket *domain.Ticket) {
	if s.directory == nil {
		s.logger.Warn("auto assignment enabled but no responder directory configured",
			zap.String("department_id", dept.ID))
		return
	}
	responderID, err := s.directory.FirstMemberOf(ctx, dept.GuildID, dept.ResponderRoleIDs)
	if err != nil || responderID == "" {
		s.logger.Warn("auto assignment failed; leaving ticket unassigned",
			zap.String("department_id", dept.ID), zap.Error(err))
		return
	}
	ticket.AssigneeID = &responderID
	ticket.Status = domain.TicketStatusAssigned
}

// resolveCreationPriority applies the department priority policy: when
// RequirePriority is set the requester must pick one; otherwise the
// creation path always yields NORMAL and escalation goes through
// Reprioritize.
func resolveCreationPriority(dept *domain.Department, input domain.TicketPriority) (domain.TicketPriority, error) {
	if dept.RequirePriority {
		if input == "" {
			return "", apperrors.NewValidationError("priority required by department", nil)
		}
		if !domain.ValidPriority(input) {
			return "", apperrors.NewValidationError("unknown priority", map[string]any{"priority": input})
		}
		return input, nil
	}
	return domain.TicketPriorityNormal, nil
}

func invalidStateError(ticket *domain.Ticket) error {
	return apperrors.NewInvalidState("operation not allowed in current status", map[string]any{
		"ticket_id": ticket.ID,
		"status":    ticket.Status,
	})
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func userActor(userID string) events.Actor {
	return events.Actor{Type: domain.SubjectTypeUser, UserID: &userID}
}

func staffActor(staffID string) events.Actor {
	return events.Actor{Type: domain.SubjectTypeStaff, StaffID: &staffID}
}

func systemActor() events.Actor {
	id := domain.SystemActorID
	return events.Actor{Type: domain.SubjectTypeStaff, StaffID: &id}
}
