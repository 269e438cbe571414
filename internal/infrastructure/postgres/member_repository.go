package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/clubverde/trazabilidad-api/internal/domain"
	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
	"github.com/clubverde/trazabilidad-api/internal/domain/repository"
)

var _ repository.MemberRepository = (*MemberRepo)(nil)

// MemberRepo implementación del puerto MemberRepository sobre PostgreSQL.
type MemberRepo struct {
	q Querier
}

// NewMemberRepository construye el adaptador de persistencia para miembros.
func NewMemberRepository(q Querier) *MemberRepo {
	return &MemberRepo{q: q}
}

const memberColumns = `id, email, password_hash, display_name, role, status, created_at, updated_at`

// Create persiste un miembro nuevo.
func (r *MemberRepo) Create(ctx context.Context, m *entity.Member) error {
	query := `
		INSERT INTO members (id, email, password_hash, display_name, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.Email, m.PasswordHash, m.DisplayName, m.Role, m.Status,
		m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailAlreadyExists
		}
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// GetByID obtiene un miembro por ID. Devuelve (nil, nil) si no existe.
func (r *MemberRepo) GetByID(ctx context.Context, id string) (*entity.Member, error) {
	return r.getBy(ctx, `id = $1`, id)
}

// GetByEmail obtiene un miembro por email (case insensitive).
func (r *MemberRepo) GetByEmail(ctx context.Context, email string) (*entity.Member, error) {
	return r.getBy(ctx, `LOWER(email) = LOWER($1)`, email)
}

func (r *MemberRepo) getBy(ctx context.Context, cond string, arg any) (*entity.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE ` + cond
	var m entity.Member
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&m.ID, &m.Email, &m.PasswordHash, &m.DisplayName, &m.Role, &m.Status,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	return &m, nil
}

// List miembros paginados por email.
func (r *MemberRepo) List(ctx context.Context, limit, offset int) ([]*entity.Member, int, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + memberColumns + `, COUNT(*) OVER() AS total
		FROM members ORDER BY email LIMIT $1 OFFSET $2`
	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []*entity.Member
	var total int
	for rows.Next() {
		var m entity.Member
		err := rows.Scan(
			&m.ID, &m.Email, &m.PasswordHash, &m.DisplayName, &m.Role, &m.Status,
			&m.CreatedAt, &m.UpdatedAt, &total,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list members: %w", err)
	}
	return out, total, nil
}
