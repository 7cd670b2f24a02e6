package domain

import "time"

// Rating score bounds.
const (
	RatingMin = 1
	RatingMax = 5
)

// Rating records a requester's verdict on a closed ticket. At most one
// rating exists per ticket and it never changes afterwards.
type Rating struct {
	ID          string
	TicketID    string
	GuildID     string
	RequesterID string
	Score       int
	CreatedAt   time.Time
}
