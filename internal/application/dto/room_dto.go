package dto

import (
	"time"

	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
)

// CreateRoomRequest alta de una sala de cultivo.
type CreateRoomRequest struct {
	Name     string `json:"name" validate:"required"`
	RoomType string `json:"room_type" validate:"required,oneof=mothers vegetation blooming drying processing storage"`
	Capacity int    `json:"capacity" validate:"omitempty,min=0"`
}

// RoomResponse sala de cultivo.
type RoomResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	RoomType  string    `json:"room_type"`
	Capacity  int       `json:"capacity"`
	CreatedAt time.Time `json:"created_at"`
}

// RoomFromEntity mapea la sala al DTO.
func RoomFromEntity(r *entity.Room) *RoomResponse {
	return &RoomResponse{
		ID:        r.ID,
		Name:      r.Name,
		RoomType:  r.RoomType,
		Capacity:  r.Capacity,
		CreatedAt: r.CreatedAt,
	}
}
