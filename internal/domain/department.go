package domain

import "time"

// Department is a configured routing target for tickets with its own
// responders, limits and policies.
type Department struct {
	ID                     string
	GuildID                string
	Name                   string
	Description            string
	ResponderRoleIDs       []string
	WelcomeMessage         string
	MaxTicketsPerRequester int
	RequirePriority        bool
	AutoAssignResponder    bool
	AutoCloseAfter         time.Duration
	TranscriptEnabled      bool
	RatingEnabled          bool
	CategoryRef            *string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// DepartmentPatch carries a partial update; nil fields are untouched.
type DepartmentPatch struct {
	Name                   *string
	Description            *string
	ResponderRoleIDs       *[]string
	WelcomeMessage         *string
	MaxTicketsPerRequester *int
	RequirePriority        *bool
	AutoAssignResponder    *bool
	AutoCloseAfter         *time.Duration
	TranscriptEnabled      *bool
	RatingEnabled          *bool
	CategoryRef            *string
}
