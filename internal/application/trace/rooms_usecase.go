package trace

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clubverde/trazabilidad-api/internal/application/dto"
	"github.com/clubverde/trazabilidad-api/internal/domain"
	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
	"github.com/clubverde/trazabilidad-api/internal/domain/repository"
)

// RoomUseCase gestión de salas de cultivo.
type RoomUseCase struct {
	rooms repository.RoomRepository
}

// NewRoomUseCase construye el caso de uso de salas.
func NewRoomUseCase(rooms repository.RoomRepository) *RoomUseCase {
	return &RoomUseCase{rooms: rooms}
}

// Create da de alta una sala.
func (uc *RoomUseCase) Create(ctx context.Context, in dto.CreateRoomRequest) (*dto.RoomResponse, error) {
	room := &entity.Room{
		ID:        uuid.New().String(),
		Name:      in.Name,
		RoomType:  in.RoomType,
		Capacity:  in.Capacity,
		CreatedAt: time.Now(),
	}
	if err := uc.rooms.Create(ctx, room); err != nil {
		return nil, err
	}
	return dto.RoomFromEntity(room), nil
}

// Get devuelve una sala por id.
func (uc *RoomUseCase) Get(ctx context.Context, id string) (*dto.RoomResponse, error) {
	room, err := uc.rooms.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, domain.ErrNotFound
	}
	return dto.RoomFromEntity(room), nil
}

// List todas las salas.
func (uc *RoomUseCase) List(ctx context.Context) ([]*dto.RoomResponse, error) {
	rooms, err := uc.rooms.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.RoomResponse, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, dto.RoomFromEntity(r))
	}
	return out, nil
}
