package repository

import (
	"context"

	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
)

// MemberRepository puerto de miembros del club (actores del ledger).
type MemberRepository interface {
	Create(ctx context.Context, m *entity.Member) error
	GetByID(ctx context.Context, id string) (*entity.Member, error)
	GetByEmail(ctx context.Context, email string) (*entity.Member, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Member, int, error)
}
