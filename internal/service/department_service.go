package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/guildops/ticket-engine/internal/domain"
	"github.com/guildops/ticket-engine/internal/repository"
	apperrors "github.com/guildops/ticket-engine/pkg/util"
)

// DepartmentService manages department configuration.
type DepartmentService struct {
	departments repository.DepartmentRepository
}

// NewDepartmentService constructs the service.
func NewDepartmentService(departments repository.DepartmentRepository) *DepartmentService {
	return &DepartmentService{departments: departments}
}

// DepartmentCreateInput describes department creation payload.
type DepartmentCreateInput struct {
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
}

// CreateDepartment validates and persists a new department.
func (s *DepartmentService) CreateDepartment(ctx context.Context, input DepartmentCreateInput) (*domain.Department, error) {
	dept := &domain.Department{
		ID:                     uuid.NewString(),
		GuildID:                input.GuildID,
		Name:                   strings.TrimSpace(input.Name),
		Description:            strings.TrimSpace(input.Description),
		ResponderRoleIDs:       input.ResponderRoleIDs,
		WelcomeMessage:         input.WelcomeMessage,
		MaxTicketsPerRequester: input.MaxTicketsPerRequester,
		RequirePriority:        input.RequirePriority,
		AutoAssignResponder:    input.AutoAssignResponder,
		AutoCloseAfter:         input.AutoCloseAfter,
		TranscriptEnabled:      input.TranscriptEnabled,
		RatingEnabled:          input.RatingEnabled,
		CategoryRef:            input.CategoryRef,
	}
	if dept.MaxTicketsPerRequester == 0 {
		dept.MaxTicketsPerRequester = 1
	}
	if dept.ResponderRoleIDs == nil {
		dept.ResponderRoleIDs = []string{}
	}
	if err := validateDepartment(dept); err != nil {
		return nil, err
	}
	if err := s.departments.Create(ctx, dept); err != nil {
		return nil, apperrors.MapError(err)
	}
	return dept, nil
}

// GetDepartment fetches a department by id.
func (s *DepartmentService) GetDepartment(ctx context.Context, id string) (*domain.Department, error) {
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("department", map[string]any{"department_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return dept, nil
}

// ListDepartments returns all departments configured for a guild.
func (s *DepartmentService) ListDepartments(ctx context.Context, guildID string) ([]domain.Department, error) {
	depts, err := s.departments.ListByGuild(ctx, guildID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return depts, nil
}

// UpdateDepartment applies a partial update and re-validates the
// resulting configuration.
func (s *DepartmentService) UpdateDepartment(ctx context.Context, id string, patch domain.DepartmentPatch) (*domain.Department, error) {
	dept, err := s.GetDepartment(ctx, id)
	if err != nil {
		return nil, err
	}
	applyPatch(dept, patch)
	if err := validateDepartment(dept); err != nil {
		return nil, err
	}
	if err := s.departments.Update(ctx, dept); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("department", map[string]any{"department_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return dept, nil
}

// DeleteDepartment removes a department. Existing tickets keep their
// department reference and name snapshot.
func (s *DepartmentService) DeleteDepartment(ctx context.Context, id string) error {
	if err := s.departments.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("department", map[string]any{"department_id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

func applyPatch(dept *domain.Department, patch domain.DepartmentPatch) {
	if patch.Name != nil {
		dept.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		dept.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.ResponderRoleIDs != nil {
		dept.ResponderRoleIDs = *patch.ResponderRoleIDs
	}
	if patch.WelcomeMessage != nil {
		dept.WelcomeMessage = *patch.WelcomeMessage
	}
	if patch.MaxTicketsPerRequester != nil {
		dept.MaxTicketsPerRequester = *patch.MaxTicketsPerRequester
	}
	if patch.RequirePriority != nil {
		dept.RequirePriority = *patch.RequirePriority
	}
	if patch.AutoAssignResponder != nil {
		dept.AutoAssignResponder = *patch.AutoAssignResponder
	}
	if patch.AutoCloseAfter != nil {
		dept.AutoCloseAfter = *patch.AutoCloseAfter
	}
	if patch.TranscriptEnabled != nil {
		dept.TranscriptEnabled = *patch.TranscriptEnabled
	}
	if patch.RatingEnabled != nil {
		dept.RatingEnabled = *patch.RatingEnabled
	}
	if patch.CategoryRef != nil {
		dept.CategoryRef = patch.CategoryRef
	}
}

func validateDepartment(dept *domain.Department) error {
	details := map[string]any{}
	if dept.GuildID == "" {
		details["guild_id"] = "required"
	}
	if dept.Name == "" {
		details["name"] = "required"
	}
	if dept.MaxTicketsPerRequester < 1 {
		details["max_tickets_per_requester"] = "must be at least 1"
	}
	if dept.AutoCloseAfter < 0 {
		details["auto_close_after"] = "must not be negative"
	}
	if dept.AutoAssignResponder && len(dept.ResponderRoleIDs) == 0 {
		details["responder_role_ids"] = "required when auto assignment is enabled"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid department configuration", details)
	}
	return nil
}
