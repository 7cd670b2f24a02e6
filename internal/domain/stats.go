package domain

// GuildStats aggregates ticket metrics across a guild.
type GuildStats struct {
	GuildID            string                   `json:"guild_id"`
	TotalTickets       int64                    `json:"total_tickets"`
	ActiveTickets      int64                    `json:"active_tickets"`
	ClosedTickets      int64                    `json:"closed_tickets"`
	ResolvedTickets    int64                    `json:"resolved_tickets"`
	RatingCount        int64                    `json:"rating_count"`
	AverageRating      float64                  `json:"average_rating"`
	AvgResolutionHours float64                  `json:"avg_resolution_hours"`
	StatusCounts       map[TicketStatus]int64   `json:"status_counts"`
	PriorityCounts     map[TicketPriority]int64 `json:"priority_counts"`
	// ClosedByResponder groups closed tickets by the assignee at close
	// time; tickets unassigned at close are excluded.
	ClosedByResponder map[string]int64 `json:"closed_by_responder"`
}

// UserStats aggregates a single requester's ticket metrics.
type UserStats struct {
	GuildID          string  `json:"guild_id"`
	UserID           string  `json:"user_id"`
	ActiveTickets    int64   `json:"active_tickets"`
	ClosedTickets    int64   `json:"closed_tickets"`
	RatingsSubmitted int64   `json:"ratings_submitted"`
	AverageGiven     float64 `json:"average_given"`
}
