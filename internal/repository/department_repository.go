package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guildops/ticket-engine/internal/domain"
)

// DepartmentRepository manages department persistence.
type DepartmentRepository interface {
	Create(ctx context.Context, dept *domain.Department) error
	Update(ctx context.Context, dept *domain.Department) error
	GetByID(ctx context.Context, id string) (*domain.Department, error)
	ListByGuild(ctx context.Context, guildID string) ([]domain.Department, error)
	ListAutoClosable(ctx context.Context) ([]domain.Department, error)
	Delete(ctx context.Context, id string) error
}

type departmentRepository struct {
	pool *pgxpool.Pool
}

// NewDepartmentRepository builds the Postgres-backed repository.
func NewDepartmentRepository(pool *pgxpool.Pool) DepartmentRepository {
	return &departmentRepository{pool: pool}
}

const departmentColumns = `id, guild_id, name, description, responder_role_ids, welcome_message,
       max_tickets_per_requester, require_priority, auto_assign_responder, auto_close_after_seconds,
       transcript_enabled, rating_enabled, category_ref, created_at, updated_at`

func (r *departmentRepository) Create(ctx context.Context, dept *domain.Department) error {
	const query = `
        INSERT INTO departments (id, guild_id, name, description, responder_role_ids, welcome_message,
            max_tickets_per_requester, require_priority, auto_assign_responder, auto_close_after_seconds,
            transcript_enabled, rating_enabled, category_ref)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		dept.ID,
		dept.GuildID,
		dept.Name,
		dept.Description,
		dept.ResponderRoleIDs,
		dept.WelcomeMessage,
		dept.MaxTicketsPerRequester,
		dept.RequirePriority,
		dept.AutoAssignResponder,
		int64(dept.AutoCloseAfter/time.Second),
		dept.TranscriptEnabled,
		dept.RatingEnabled,
		dept.CategoryRef,
	).Scan(&dept.CreatedAt, &dept.UpdatedAt)
}

func (r *departmentRepository) Update(ctx context.Context, dept *domain.Department) error {
	const query = `
        UPDATE departments SET name=$1, description=$2, responder_role_ids=$3, welcome_message=$4,
            max_tickets_per_requester=$5, require_priority=$6, auto_assign_responder=$7,
            auto_close_after_seconds=$8, transcript_enabled=$9, rating_enabled=$10, category_ref=$11,
            updated_at=NOW()
        WHERE id=$12`
	cmd, err := r.pool.Exec(ctx, query,
		dept.Name,
		dept.Description,
		dept.ResponderRoleIDs,
		dept.WelcomeMessage,
		dept.MaxTicketsPerRequester,
		dept.RequirePriority,
		dept.AutoAssignResponder,
		int64(dept.AutoCloseAfter/time.Second),
		dept.TranscriptEnabled,
		dept.RatingEnabled,
		dept.CategoryRef,
		dept.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *departmentRepository) GetByID(ctx context.Context, id string) (*domain.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE id=$1`
	var dept domain.Department
	if err := scanDepartment(r.pool.QueryRow(ctx, query, id), &dept); err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *departmentRepository) ListByGuild(ctx context.Context, guildID string) ([]domain.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE guild_id=$1 ORDER BY name`
	rows, err := r.pool.Query(ctx, query, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDepartments(rows)
}

func (r *departmentRepository) ListAutoClosable(ctx context.Context) ([]domain.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE auto_close_after_seconds > 0`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDepartments(rows)
}

// Delete removes the department config only; existing tickets keep
// their department reference and name snapshot.
func (r *departmentRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM departments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanDepartment(row rowScanner, dept *domain.Department) error {
	var autoCloseSeconds int64
	if err := row.Scan(
		&dept.ID,
		&dept.GuildID,
		&dept.Name,
		&dept.Description,
		&dept.ResponderRoleIDs,
		&dept.WelcomeMessage,
		&dept.MaxTicketsPerRequester,
		&dept.RequirePriority,
		&dept.AutoAssignResponder,
		&autoCloseSeconds,
		&dept.TranscriptEnabled,
		&dept.RatingEnabled,
		&dept.CategoryRef,
		&dept.CreatedAt,
		&dept.UpdatedAt,
	); err != nil {
		return err
	}
	dept.AutoCloseAfter = time.Duration(autoCloseSeconds) * time.Second
	return nil
}

func scanDepartments(rows pgx.Rows) ([]domain.Department, error) {
	var result []domain.Department
	for rows.Next() {
		var dept domain.Department
		if err := scanDepartment(rows, &dept); err != nil {
			return nil, err
		}
		result = append(result, dept)
	}
	return result, rows.Err()
}
