package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/guildops/ticket-engine/internal/domain"
)

// MemoryStore holds tickets, departments, ratings and sequences in
// process memory. It backs tests and DSN-less development runs; the
// Tickets and Departments views implement the repository interfaces.
// Not-found conditions surface as pgx.ErrNoRows so callers map errors
// the same way for both backends.
type MemoryStore struct {
	mu          sync.Mutex
	sequences   map[string]int64
	tickets     map[string]*domain.Ticket
	departments map[string]*domain.Department
	ratings     map[string]*domain.Rating
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sequences:   make(map[string]int64),
		tickets:     make(map[string]*domain.Ticket),
		departments: make(map[string]*domain.Department),
		ratings:     make(map[string]*domain.Rating),
	}
}

// Tickets returns the TicketRepository view of the store.
func (m *MemoryStore) Tickets() TicketRepository {
	return &memoryTicketRepo{store: m}
}

// Departments returns the DepartmentRepository view of the store.
func (m *MemoryStore) Departments() DepartmentRepository {
	return &memoryDepartmentRepo{store: m}
}

type memoryTicketRepo struct {
	store *MemoryStore
}

var _ TicketRepository = (*memoryTicketRepo)(nil)

func (r *memoryTicketRepo) AllocateNumber(ctx context.Context, guildID string) (int64, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequences[guildID]++
	return m.sequences[guildID], nil
}

func (r *memoryTicketRepo) Insert(ctx context.Context, ticket *domain.Ticket) error {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = now
	}
	ticket.UpdatedAt = now
	copied := *ticket
	m.tickets[ticket.ID] = &copied
	return nil
}

func (r *memoryTicketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	copied := *ticket
	m.tickets[ticket.ID] = &copied
	return nil
}

func (r *memoryTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *memoryTicketRepo) GetByNumber(ctx context.Context, guildID string, number int64) (*domain.Ticket, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ticket := range m.tickets {
		if ticket.GuildID == guildID && ticket.Number == number {
			copied := *ticket
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memoryTicketRepo) FindOpenByRequester(ctx context.Context, guildID, requesterID, departmentID string) ([]domain.Ticket, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range m.tickets {
		if ticket.GuildID == guildID && ticket.RequesterID == requesterID &&
			ticket.DepartmentID == departmentID && ticket.Status.IsOpen() {
			result = append(result, *ticket)
		}
	}
	sortByNumber(result)
	return result, nil
}

func (r *memoryTicketRepo) QueryOpenOlderThan(ctx context.Context, departmentID string, cutoff time.Time) ([]domain.Ticket, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range m.tickets {
		if ticket.DepartmentID == departmentID && ticket.Status.IsOpen() && ticket.LastActivityAt.Before(cutoff) {
			result = append(result, *ticket)
		}
	}
	sortByNumber(result)
	return result, nil
}

func (r *memoryTicketRepo) QueryClosedUnratedBefore(ctx context.Context, cutoff time.Time) ([]domain.Ticket, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range m.tickets {
		if ticket.Status != domain.TicketStatusClosed || ticket.ClosedAt == nil || !ticket.ClosedAt.Before(cutoff) {
			continue
		}
		if _, rated := m.ratings[ticket.ID]; rated {
			continue
		}
		result = append(result, *ticket)
	}
	sortByNumber(result)
	return result, nil
}

func (r *memoryTicketRepo) MoveToArchive(ctx context.Context, id string) error {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.Status = domain.TicketStatusArchived
	ticket.UpdatedAt = time.Now()
	return nil
}

func (r *memoryTicketRepo) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range m.tickets {
		if filter.GuildID != nil && ticket.GuildID != *filter.GuildID {
			continue
		}
		if filter.RequesterID != nil && ticket.RequesterID != *filter.RequesterID {
			continue
		}
		if filter.DepartmentID != nil && ticket.DepartmentID != *filter.DepartmentID {
			continue
		}
		if filter.AssigneeID != nil && (ticket.AssigneeID == nil || *ticket.AssigneeID != *filter.AssigneeID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
			continue
		}
		result = append(result, *ticket)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number > result[j].Number })

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(result) {
		return []domain.Ticket{}, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], nil
}

func (r *memoryTicketRepo) InsertRating(ctx context.Context, rating *domain.Rating) error {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if rating.CreatedAt.IsZero() {
		rating.CreatedAt = time.Now()
	}
	copied := *rating
	m.ratings[rating.TicketID] = &copied
	return nil
}

func (r *memoryTicketRepo) GetRating(ctx context.Context, ticketID string) (*domain.Rating, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	rating, ok := m.ratings[ticketID]
	if !ok {
		return nil, nil
	}
	copied := *rating
	return &copied, nil
}

func (r *memoryTicketRepo) GuildStats(ctx context.Context, guildID string) (*domain.GuildStats, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.GuildStats{
		GuildID:           guildID,
		StatusCounts:      make(map[domain.TicketStatus]int64),
		PriorityCounts:    make(map[domain.TicketPriority]int64),
		ClosedByResponder: make(map[string]int64),
	}
	var resolutionHours float64
	var resolutionSamples int64
	for _, ticket := range m.tickets {
		if ticket.GuildID != guildID {
			continue
		}
		stats.TotalTickets++
		stats.StatusCounts[ticket.Status]++
		stats.PriorityCounts[ticket.Priority]++
		if ticket.Status.IsOpen() {
			stats.ActiveTickets++
		} else {
			stats.ClosedTickets++
		}
		if ticket.ClosedAt != nil {
			if ticket.Resolved {
				stats.ResolvedTickets++
			}
			resolutionHours += ticket.ClosedAt.Sub(ticket.CreatedAt).Hours()
			resolutionSamples++
			if ticket.AssigneeID != nil {
				stats.ClosedByResponder[*ticket.AssigneeID]++
			}
		}
	}
	if resolutionSamples > 0 {
		stats.AvgResolutionHours = resolutionHours / float64(resolutionSamples)
	}
	var scoreSum int64
	for _, rating := range m.ratings {
		if rating.GuildID != guildID {
			continue
		}
		stats.RatingCount++
		scoreSum += int64(rating.Score)
	}
	if stats.RatingCount > 0 {
		stats.AverageRating = float64(scoreSum) / float64(stats.RatingCount)
	}
	return stats, nil
}

func (r *memoryTicketRepo) UserStats(ctx context.Context, guildID, userID string) (*domain.UserStats, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.UserStats{GuildID: guildID, UserID: userID}
	for _, ticket := range m.tickets {
		if ticket.GuildID != guildID || ticket.RequesterID != userID {
			continue
		}
		if ticket.Status.IsOpen() {
			stats.ActiveTickets++
		} else {
			stats.ClosedTickets++
		}
	}
	var scoreSum int64
	for _, rating := range m.ratings {
		if rating.GuildID != guildID || rating.RequesterID != userID {
			continue
		}
		stats.RatingsSubmitted++
		scoreSum += int64(rating.Score)
	}
	if stats.RatingsSubmitted > 0 {
		stats.AverageGiven = float64(scoreSum) / float64(stats.RatingsSubmitted)
	}
	return stats, nil
}

type memoryDepartmentRepo struct {
	store *MemoryStore
}

var _ DepartmentRepository = (*memoryDepartmentRepo)(nil)

func (r *memoryDepartmentRepo) Create(ctx context.Context, dept *domain.Department) error {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if dept.CreatedAt.IsZero() {
		dept.CreatedAt = now
	}
	dept.UpdatedAt = now
	copied := *dept
	m.departments[dept.ID] = &copied
	return nil
}

func (r *memoryDepartmentRepo) Update(ctx context.Context, dept *domain.Department) error {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.departments[dept.ID]; !ok {
		return pgx.ErrNoRows
	}
	dept.UpdatedAt = time.Now()
	copied := *dept
	m.departments[dept.ID] = &copied
	return nil
}

func (r *memoryDepartmentRepo) GetByID(ctx context.Context, id string) (*domain.Department, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	dept, ok := m.departments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *dept
	return &copied, nil
}

func (r *memoryDepartmentRepo) ListByGuild(ctx context.Context, guildID string) ([]domain.Department, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.Department
	for _, dept := range m.departments {
		if dept.GuildID == guildID {
			result = append(result, *dept)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *memoryDepartmentRepo) ListAutoClosable(ctx context.Context) ([]domain.Department, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.Department
	for _, dept := range m.departments {
		if dept.AutoCloseAfter > 0 {
			result = append(result, *dept)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *memoryDepartmentRepo) Delete(ctx context.Context, id string) error {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.departments[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.departments, id)
	return nil
}

func sortByNumber(tickets []domain.Ticket) {
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].Number < tickets[j].Number })
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func containsPriority(priorities []domain.TicketPriority, priority domain.TicketPriority) bool {
	for _, p := range priorities {
		if p == priority {
			return true
		}
	}
	return false
}
