package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildops/ticket-engine/internal/domain"
	"github.com/guildops/ticket-engine/internal/repository"
	apperrors "github.com/guildops/ticket-engine/pkg/util"
)

func newDepartmentService() (*DepartmentService, repository.DepartmentRepository) {
	store := repository.NewMemoryStore()
	repo := store.Departments()
	return NewDepartmentService(repo), repo
}

func TestCreateDepartmentDefaults(t *testing.T) {
	svc, _ := newDepartmentService()

	dept, err := svc.CreateDepartment(context.Background(), DepartmentCreateInput{
		GuildID: "guild-1",
		Name:    "  support  ",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, dept.ID)
	assert.Equal(t, "support", dept.Name)
	assert.Equal(t, 1, dept.MaxTicketsPerRequester)
	assert.NotNil(t, dept.ResponderRoleIDs)
}

func TestCreateDepartmentValidation(t *testing.T) {
	svc, _ := newDepartmentService()

	cases := []struct {
		name  string
		input DepartmentCreateInput
	}{
		{"missing guild", DepartmentCreateInput{Name: "support"}},
		{"missing name", DepartmentCreateInput{GuildID: "guild-1"}},
		{"negative limit", DepartmentCreateInput{GuildID: "guild-1", Name: "support", MaxTicketsPerRequester: -1}},
		{"negative auto close", DepartmentCreateInput{GuildID: "guild-1", Name: "support", AutoCloseAfter: -time.Hour}},
		{"auto assign without roles", DepartmentCreateInput{GuildID: "guild-1", Name: "support", AutoAssignResponder: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateDepartment(context.Background(), tc.input)
			assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
		})
	}
}

func TestUpdateDepartmentPartial(t *testing.T) {
	svc, _ := newDepartmentService()
	dept, err := svc.CreateDepartment(context.Background(), DepartmentCreateInput{
		GuildID:                "guild-1",
		Name:                   "support",
		MaxTicketsPerRequester: 2,
	})
	require.NoError(t, err)

	limit := 5
	autoClose := 48 * time.Hour
	updated, err := svc.UpdateDepartment(context.Background(), dept.ID, domain.DepartmentPatch{
		MaxTicketsPerRequester: &limit,
		AutoCloseAfter:         &autoClose,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.MaxTicketsPerRequester)
	assert.Equal(t, 48*time.Hour, updated.AutoCloseAfter)
	// Untouched fields survive the patch.
	assert.Equal(t, "support", updated.Name)
}

func TestUpdateDepartmentRevalidates(t *testing.T) {
	svc, _ := newDepartmentService()
	dept, err := svc.CreateDepartment(context.Background(), DepartmentCreateInput{
		GuildID: "guild-1",
		Name:    "support",
	})
	require.NoError(t, err)

	on := true
	_, err = svc.UpdateDepartment(context.Background(), dept.ID, domain.DepartmentPatch{AutoAssignResponder: &on})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestDepartmentNotFound(t *testing.T) {
	svc, _ := newDepartmentService()

	_, err := svc.GetDepartment(context.Background(), "missing")
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	name := "renamed"
	_, err = svc.UpdateDepartment(context.Background(), "missing", domain.DepartmentPatch{Name: &name})
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	err = svc.DeleteDepartment(context.Background(), "missing")
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestListDepartmentsScopedToGuild(t *testing.T) {
	svc, _ := newDepartmentService()
	_, err := svc.CreateDepartment(context.Background(), DepartmentCreateInput{GuildID: "guild-1", Name: "support"})
	require.NoError(t, err)
	_, err = svc.CreateDepartment(context.Background(), DepartmentCreateInput{GuildID: "guild-1", Name: "billing"})
	require.NoError(t, err)
	_, err = svc.CreateDepartment(context.Background(), DepartmentCreateInput{GuildID: "guild-2", Name: "other"})
	require.NoError(t, err)

	depts, err := svc.ListDepartments(context.Background(), "guild-1")
	require.NoError(t, err)
	require.Len(t, depts, 2)
	assert.Equal(t, "billing", depts[0].Name)
	assert.Equal(t, "support", depts[1].Name)
}

func TestDeleteDepartment(t *testing.T) {
	svc, _ := newDepartmentService()
	dept, err := svc.CreateDepartment(context.Background(), DepartmentCreateInput{GuildID: "guild-1", Name: "support"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteDepartment(context.Background(), dept.ID))
	_, err = svc.GetDepartment(context.Background(), dept.ID)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}
