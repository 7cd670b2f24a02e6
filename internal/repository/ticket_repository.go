package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guildops/ticket-engine/internal/domain"
)

// TicketFilter captures listing parameters for the gateway UI.
type TicketFilter struct {
	GuildID      *string
	RequesterID  *string
	DepartmentID *string
	AssigneeID   *string
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	Limit        int
	Offset       int
}

// TicketRepository encapsulates ticket, rating and sequence persistence.
// GetRating returns (nil, nil) when no rating exists for the ticket.
type TicketRepository interface {
	AllocateNumber(ctx context.Context, guildID string) (int64, error)
	Insert(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, guildID string, number int64) (*domain.Ticket, error)
	FindOpenByRequester(ctx context.Context, guildID, requesterID, departmentID string) ([]domain.Ticket, error)
	QueryOpenOlderThan(ctx context.Context, departmentID string, cutoff time.Time) ([]domain.Ticket, error)
	QueryClosedUnratedBefore(ctx context.Context, cutoff time.Time) ([]domain.Ticket, error)
	MoveToArchive(ctx context.Context, id string) error
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	InsertRating(ctx context.Context, rating *domain.Rating) error
	GetRating(ctx context.Context, ticketID string) (*domain.Rating, error)
	GuildStats(ctx context.Context, guildID string) (*domain.GuildStats, error)
	UserStats(ctx context.Context, guildID, userID string) (*domain.UserStats, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the Postgres-backed repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

// AllocateNumber atomically increments the per-guild sequence. The
// upsert form makes concurrent calls serialize on the sequence row, so
// two creations in the same guild can never observe the same number.
func (r *ticketRepository) AllocateNumber(ctx context.Context, guildID string) (int64, error) {
	const query = `
        INSERT INTO ticket_sequences (guild_id, current_number)
        VALUES ($1, 1)
        ON CONFLICT (guild_id)
        DO UPDATE SET current_number = ticket_sequences.current_number + 1
        RETURNING current_number`
	var number int64
	if err := r.pool.QueryRow(ctx, query, guildID).Scan(&number); err != nil {
		return 0, err
	}
	return number, nil
}

const ticketColumns = `id, guild_id, number, requester_id, department_id, department_name,
       title, description, status, priority, assignee_id, channel_ref, message_count,
       created_at, last_activity_at, updated_at,
       resolved, closed_at, closed_by, close_reason, solution`

func (r *ticketRepository) Insert(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, guild_id, number, requester_id, department_id, department_name,
            title, description, status, priority, assignee_id, channel_ref, message_count,
            created_at, last_activity_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.GuildID,
		ticket.Number,
		ticket.RequesterID,
		ticket.DepartmentID,
		ticket.DepartmentName,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.AssigneeID,
		ticket.ChannelRef,
		ticket.MessageCount,
		ticket.CreatedAt,
		ticket.LastActivityAt,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, priority=$2, assignee_id=$3, channel_ref=$4,
            message_count=$5, last_activity_at=$6, resolved=$7, closed_at=$8,
            closed_by=$9, close_reason=$10, solution=$11, updated_at=NOW()
        WHERE id=$12`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Status,
		ticket.Priority,
		ticket.AssigneeID,
		ticket.ChannelRef,
		ticket.MessageCount,
		ticket.LastActivityAt,
		ticket.Resolved,
		ticket.ClosedAt,
		ticket.ClosedBy,
		ticket.CloseReason,
		ticket.Solution,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByNumber(ctx context.Context, guildID string, number int64) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE guild_id=$1 AND number=$2`, ticketColumns)
	return r.fetchSingle(ctx, query, guildID, number)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, args...), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) FindOpenByRequester(ctx context.Context, guildID, requesterID, departmentID string) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM tickets
        WHERE guild_id=$1 AND requester_id=$2 AND department_id=$3
          AND status = ANY($4)
        ORDER BY number`, ticketColumns)
	rows, err := r.pool.Query(ctx, query, guildID, requesterID, departmentID, statusStrings(domain.OpenStatuses))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) QueryOpenOlderThan(ctx context.Context, departmentID string, cutoff time.Time) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM tickets
        WHERE department_id=$1 AND status = ANY($2) AND last_activity_at < $3
        ORDER BY last_activity_at`, ticketColumns)
	rows, err := r.pool.Query(ctx, query, departmentID, statusStrings(domain.OpenStatuses), cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) QueryClosedUnratedBefore(ctx context.Context, cutoff time.Time) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM tickets t
        WHERE t.status=$1 AND t.closed_at < $2
          AND NOT EXISTS (SELECT 1 FROM ratings r WHERE r.ticket_id = t.id)
        ORDER BY t.closed_at`, prefixedTicketColumns("t"))
	rows, err := r.pool.Query(ctx, query, domain.TicketStatusClosed, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// MoveToArchive flips the ticket into the terminal archived partition.
// The ticket row is retained; the core never deletes tickets.
func (r *ticketRepository) MoveToArchive(ctx context.Context, id string) error {
	const query = `UPDATE tickets SET status=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, domain.TicketStatusArchived, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := fmt.Sprintf(`SELECT %s FROM tickets`, ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.GuildID != nil {
		args = append(args, *filter.GuildID)
		clauses = append(clauses, fmt.Sprintf("guild_id=$%d", len(args)))
	}
	if filter.RequesterID != nil {
		args = append(args, *filter.RequesterID)
		clauses = append(clauses, fmt.Sprintf("requester_id=$%d", len(args)))
	}
	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("department_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		args = append(args, statusStrings(filter.Statuses))
		clauses = append(clauses, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if len(filter.Priorities) > 0 {
		priorities := make([]string, len(filter.Priorities))
		for i, p := range filter.Priorities {
			priorities[i] = string(p)
		}
		args = append(args, priorities)
		clauses = append(clauses, fmt.Sprintf("priority = ANY($%d)", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY number DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) InsertRating(ctx context.Context, rating *domain.Rating) error {
	const query = `
        INSERT INTO ratings (id, ticket_id, guild_id, requester_id, score, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		rating.ID,
		rating.TicketID,
		rating.GuildID,
		rating.RequesterID,
		rating.Score,
		rating.CreatedAt,
	).Scan(&rating.CreatedAt)
}

func (r *ticketRepository) GetRating(ctx context.Context, ticketID string) (*domain.Rating, error) {
	const query = `
        SELECT id, ticket_id, guild_id, requester_id, score, created_at
        FROM ratings WHERE ticket_id=$1`
	var rating domain.Rating
	err := r.pool.QueryRow(ctx, query, ticketID).Scan(
		&rating.ID,
		&rating.TicketID,
		&rating.GuildID,
		&rating.RequesterID,
		&rating.Score,
		&rating.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

func (r *ticketRepository) GuildStats(ctx context.Context, guildID string) (*domain.GuildStats, error) {
	stats := &domain.GuildStats{
		GuildID:           guildID,
		StatusCounts:      make(map[domain.TicketStatus]int64),
		PriorityCounts:    make(map[domain.TicketPriority]int64),
		ClosedByResponder: make(map[string]int64),
	}

	const breakdownQuery = `
        SELECT status, priority, COUNT(*) FROM tickets
        WHERE guild_id=$1 GROUP BY status, priority`
	rows, err := r.pool.Query(ctx, breakdownQuery, guildID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var status domain.TicketStatus
		var priority domain.TicketPriority
		var count int64
		if err := rows.Scan(&status, &priority, &count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.TotalTickets += count
		stats.StatusCounts[status] += count
		stats.PriorityCounts[priority] += count
		if status.IsOpen() {
			stats.ActiveTickets += count
		} else {
			stats.ClosedTickets += count
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const closeQuery = `
        SELECT COUNT(*) FILTER (WHERE resolved),
               COALESCE(AVG(EXTRACT(EPOCH FROM closed_at - created_at) / 3600.0), 0)
        FROM tickets
        WHERE guild_id=$1 AND closed_at IS NOT NULL`
	if err := r.pool.QueryRow(ctx, closeQuery, guildID).Scan(&stats.ResolvedTickets, &stats.AvgResolutionHours); err != nil {
		return nil, err
	}

	const responderQuery = `
        SELECT assignee_id, COUNT(*) FROM tickets
        WHERE guild_id=$1 AND closed_at IS NOT NULL AND assignee_id IS NOT NULL
        GROUP BY assignee_id`
	responderRows, err := r.pool.Query(ctx, responderQuery, guildID)
	if err != nil {
		return nil, err
	}
	for responderRows.Next() {
		var assignee string
		var count int64
		if err := responderRows.Scan(&assignee, &count); err != nil {
			responderRows.Close()
			return nil, err
		}
		stats.ClosedByResponder[assignee] = count
	}
	responderRows.Close()
	if err := responderRows.Err(); err != nil {
		return nil, err
	}

	const ratingQuery = `
        SELECT COUNT(*), COALESCE(AVG(score), 0) FROM ratings WHERE guild_id=$1`
	if err := r.pool.QueryRow(ctx, ratingQuery, guildID).Scan(&stats.RatingCount, &stats.AverageRating); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *ticketRepository) UserStats(ctx context.Context, guildID, userID string) (*domain.UserStats, error) {
	stats := &domain.UserStats{GuildID: guildID, UserID: userID}

	const ticketQuery = `
        SELECT COUNT(*) FILTER (WHERE status = ANY($3)),
               COUNT(*) FILTER (WHERE NOT (status = ANY($3)))
        FROM tickets
        WHERE guild_id=$1 AND requester_id=$2`
	if err := r.pool.QueryRow(ctx, ticketQuery, guildID, userID, statusStrings(domain.OpenStatuses)).
		Scan(&stats.ActiveTickets, &stats.ClosedTickets); err != nil {
		return nil, err
	}

	const ratingQuery = `
        SELECT COUNT(*), COALESCE(AVG(score), 0) FROM ratings
        WHERE guild_id=$1 AND requester_id=$2`
	if err := r.pool.QueryRow(ctx, ratingQuery, guildID, userID).Scan(&stats.RatingsSubmitted, &stats.AverageGiven); err != nil {
		return nil, err
	}
	return stats, nil
}

func statusStrings(statuses []domain.TicketStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func prefixedTicketColumns(alias string) string {
	cols := strings.Split(ticketColumns, ",")
	for i, col := range cols {
		cols[i] = alias + "." + strings.TrimSpace(col)
	}
	return strings.Join(cols, ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.GuildID,
		&ticket.Number,
		&ticket.RequesterID,
		&ticket.DepartmentID,
		&ticket.DepartmentName,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.AssigneeID,
		&ticket.ChannelRef,
		&ticket.MessageCount,
		&ticket.CreatedAt,
		&ticket.LastActivityAt,
		&ticket.UpdatedAt,
		&ticket.Resolved,
		&ticket.ClosedAt,
		&ticket.ClosedBy,
		&ticket.CloseReason,
		&ticket.Solution,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
