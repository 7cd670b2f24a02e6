package dto

import (
	"time"

	"github.com/guildops/ticket-engine/internal/domain"
)

// CreateDepartmentRequest payload. AutoCloseAfter uses Go duration
// syntax ("24h"); empty disables auto-closing.
type CreateDepartmentRequest struct {
	GuildID                string   `json:"guild_id"`
	Name                   string   `json:"name"`
	Description            string   `json:"description"`
	ResponderRoleIDs       []string `json:"responder_role_ids"`
	WelcomeMessage         string   `json:"welcome_message"`
	MaxTicketsPerRequester int      `json:"max_tickets_per_requester"`
	RequirePriority        bool     `json:"require_priority"`
	AutoAssignResponder    bool     `json:"auto_assign_responder"`
	AutoCloseAfter         string   `json:"auto_close_after"`
	TranscriptEnabled      bool     `json:"transcript_enabled"`
	RatingEnabled          bool     `json:"rating_enabled"`
	CategoryRef            *string  `json:"category_ref,omitempty"`
}

// UpdateDepartmentRequest carries a partial update; absent fields are
// untouched.
type UpdateDepartmentRequest struct {
	Name                   *string   `json:"name,omitempty"`
	Description            *string   `json:"description,omitempty"`
	ResponderRoleIDs       *[]string `json:"responder_role_ids,omitempty"`
	WelcomeMessage         *string   `json:"welcome_message,omitempty"`
	MaxTicketsPerRequester *int      `json:"max_tickets_per_requester,omitempty"`
	RequirePriority        *bool     `json:"require_priority,omitempty"`
	AutoAssignResponder    *bool     `json:"auto_assign_responder,omitempty"`
	AutoCloseAfter         *string   `json:"auto_close_after,omitempty"`
	TranscriptEnabled      *bool     `json:"transcript_enabled,omitempty"`
	RatingEnabled          *bool     `json:"rating_enabled,omitempty"`
	CategoryRef            *string   `json:"category_ref,omitempty"`
}

// DepartmentResponse serializes a department.
type DepartmentResponse struct {
	ID                     string    `json:"id"`
	GuildID                string    `json:"guild_id"`
	Name                   string    `json:"name"`
	Description            string    `json:"description"`
	ResponderRoleIDs       []string  `json:"responder_role_ids"`
	WelcomeMessage         string    `json:"welcome_message"`
	MaxTicketsPerRequester int       `json:"max_tickets_per_requester"`
	RequirePriority        bool      `json:"require_priority"`
	AutoAssignResponder    bool      `json:"auto_assign_responder"`
	AutoCloseAfter         string    `json:"auto_close_after"`
	TranscriptEnabled      bool      `json:"transcript_enabled"`
	RatingEnabled          bool      `json:"rating_enabled"`
	CategoryRef            *string   `json:"category_ref,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// FromDepartment maps a domain department to its response form.
func FromDepartment(dept *domain.Department) DepartmentResponse {
	return DepartmentResponse{
		ID:                     dept.ID,
		GuildID:                dept.GuildID,
		Name:                   dept.Name,
		Description:            dept.Description,
		ResponderRoleIDs:       dept.ResponderRoleIDs,
		WelcomeMessage:         dept.WelcomeMessage,
		MaxTicketsPerRequester: dept.MaxTicketsPerRequester,
		RequirePriority:        dept.RequirePriority,
		AutoAssignResponder:    dept.AutoAssignResponder,
		AutoCloseAfter:         dept.AutoCloseAfter.String(),
		TranscriptEnabled:      dept.TranscriptEnabled,
		RatingEnabled:          dept.RatingEnabled,
		CategoryRef:            dept.CategoryRef,
		CreatedAt:              dept.CreatedAt,
		UpdatedAt:              dept.UpdatedAt,
	}
}
