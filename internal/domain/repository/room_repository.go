package repository

import (
	"context"

	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
)

// RoomRepository puerto de salas de cultivo.
type RoomRepository interface {
	Create(ctx context.Context, r *entity.Room) error
	GetByID(ctx context.Context, id string) (*entity.Room, error)
	List(ctx context.Context) ([]*entity.Room, error)
}
