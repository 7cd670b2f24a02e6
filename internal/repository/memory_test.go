package repository

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildops/ticket-engine/internal/domain"
)

func seedTicket(t *testing.T, repo TicketRepository, mutate func(*domain.Ticket)) *domain.Ticket {
	t.Helper()
	now := time.Now()
	ticket := &domain.Ticket{
		ID:             uuid.NewString(),
		GuildID:        "guild-1",
		RequesterID:    "user-1",
		DepartmentID:   "dept-1",
		Title:          "help",
		Status:         domain.TicketStatusOpen,
		Priority:       domain.TicketPriorityNormal,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	number, err := repo.AllocateNumber(context.Background(), ticket.GuildID)
	require.NoError(t, err)
	ticket.Number = number
	if mutate != nil {
		mutate(ticket)
	}
	require.NoError(t, repo.Insert(context.Background(), ticket))
	return ticket
}

func TestAllocateNumberConcurrent(t *testing.T) {
	repo := NewMemoryStore().Tickets()

	const n = 50
	numbers := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number, err := repo.AllocateNumber(context.Background(), "guild-1")
			assert.NoError(t, err)
			numbers <- number
		}()
	}
	wg.Wait()
	close(numbers)

	var got []int64
	for number := range numbers {
		got = append(got, number)
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	require.Len(t, got, n)
	for i, number := range got {
		assert.Equal(t, int64(i+1), number)
	}
}

func TestAllocateNumberPerGuild(t *testing.T) {
	repo := NewMemoryStore().Tickets()

	first, err := repo.AllocateNumber(context.Background(), "guild-1")
	require.NoError(t, err)
	second, err := repo.AllocateNumber(context.Background(), "guild-2")
	require.NoError(t, err)

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(1), second)
}

func TestGetByIDReturnsCopy(t *testing.T) {
	repo := NewMemoryStore().Tickets()
	ticket := seedTicket(t, repo, nil)

	loaded, err := repo.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	loaded.Title = "mutated"

	again, err := repo.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "help", again.Title)
}

func TestNotFoundSurfacesAsNoRows(t *testing.T) {
	store := NewMemoryStore()
	tickets := store.Tickets()
	departments := store.Departments()

	_, err := tickets.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	_, err = tickets.GetByNumber(context.Background(), "guild-1", 42)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	err = tickets.Update(context.Background(), &domain.Ticket{ID: "missing"})
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	err = tickets.MoveToArchive(context.Background(), "missing")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	_, err = departments.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	err = departments.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestFindOpenByRequesterExcludesTerminal(t *testing.T) {
	repo := NewMemoryStore().Tickets()
	seedTicket(t, repo, nil)
	seedTicket(t, repo, func(tk *domain.Ticket) {
		tk.Status = domain.TicketStatusAssigned
	})
	seedTicket(t, repo, func(tk *domain.Ticket) {
		tk.Status = domain.TicketStatusClosed
	})
	seedTicket(t, repo, func(tk *domain.Ticket) {
		tk.RequesterID = "user-2"
	})

	open, err := repo.FindOpenByRequester(context.Background(), "guild-1", "user-1", "dept-1")
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, int64(1), open[0].Number)
	assert.Equal(t, int64(2), open[1].Number)
}

func TestQueryOpenOlderThan(t *testing.T) {
	repo := NewMemoryStore().Tickets()
	stale := seedTicket(t, repo, func(tk *domain.Ticket) {
		tk.LastActivityAt = time.Now().Add(-48 * time.Hour)
	})
	seedTicket(t, repo, nil)
	seedTicket(t, repo, func(tk *domain.Ticket) {
		tk.Status = domain.TicketStatusClosed
		tk.LastActivityAt = time.Now().Add(-48 * time.Hour)
	})

	found, err := repo.QueryOpenOlderThan(context.Background(), "dept-1", time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, stale.ID, found[0].ID)
}

func TestQueryClosedUnratedBefore(t *testing.T) {
	repo := NewMemoryStore().Tickets()
	cutoff := time.Now().Add(-72 * time.Hour)

	expired := seedTicket(t, repo, func(tk *domain.Ticket) {
		tk.Status = domain.TicketStatusClosed
		closedAt := time.Now().Add(-80 * time.Hour)
		tk.ClosedAt = &closedAt
	})
	rated := seedTicket(t, repo, func(tk *domain.Ticket) {
		tk.Status = domain.TicketStatusClosed
		closedAt := time.Now().Add(-80 * time.Hour)
		tk.ClosedAt = &closedAt
	})
	seedTicket(t, repo, func(tk *domain.Ticket) {
		tk.Status = domain.TicketStatusClosed
		closedAt := time.Now().Add(-time.Hour)
		tk.ClosedAt = &closedAt
	})
	require.NoError(t, repo.InsertRating(context.Background(), &domain.Rating{
		ID:       uuid.NewString(),
		TicketID: rated.ID,
		GuildID:  "guild-1",
		Score:    5,
	}))

	found, err := repo.QueryClosedUnratedBefore(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, expired.ID, found[0].ID)
}

func TestGetRatingAbsentReturnsNil(t *testing.T) {
	repo := NewMemoryStore().Tickets()
	rating, err := repo.GetRating(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, rating)
}

func TestListWithFilterPagination(t *testing.T) {
	repo := NewMemoryStore().Tickets()
	for i := 0; i < 5; i++ {
		seedTicket(t, repo, nil)
	}

	guild := "guild-1"
	page, err := repo.ListWithFilter(context.Background(), TicketFilter{GuildID: &guild, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	// Newest first.
	assert.Equal(t, int64(5), page[0].Number)
	assert.Equal(t, int64(4), page[1].Number)

	page, err = repo.ListWithFilter(context.Background(), TicketFilter{GuildID: &guild, Limit: 2, Offset: 4})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(1), page[0].Number)

	page, err = repo.ListWithFilter(context.Background(), TicketFilter{GuildID: &guild, Limit: 2, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestListWithFilterByAssigneeAndStatus(t *testing.T) {
	repo := NewMemoryStore().Tickets()
	assignee := "responder-1"
	seedTicket(t, repo, func(tk *domain.Ticket) {
		tk.Status = domain.TicketStatusAssigned
		tk.AssigneeID = &assignee
	})
	seedTicket(t, repo, nil)

	guild := "guild-1"
	found, err := repo.ListWithFilter(context.Background(), TicketFilter{
		GuildID:    &guild,
		AssigneeID: &assignee,
		Statuses:   []domain.TicketStatus{domain.TicketStatusAssigned},
	})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.NotNil(t, found[0].AssigneeID)
	assert.Equal(t, assignee, *found[0].AssigneeID)
}
