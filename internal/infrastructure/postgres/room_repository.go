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

var _ repository.RoomRepository = (*RoomRepo)(nil)

// RoomRepo implementación del puerto RoomRepository sobre PostgreSQL.
type RoomRepo struct {
	q Querier
}

// NewRoomRepository construye el adaptador de persistencia para salas.
func NewRoomRepository(q Querier) *RoomRepo {
	return &RoomRepo{q: q}
}

// Create persiste una sala de cultivo.
func (r *RoomRepo) Create(ctx context.Context, room *entity.Room) error {
	query := `
		INSERT INTO rooms (id, name, room_type, capacity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query,
		room.ID, room.Name, room.RoomType, room.Capacity, room.CreatedAt, room.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

// GetByID obtiene una sala por ID. Devuelve (nil, nil) si no existe.
func (r *RoomRepo) GetByID(ctx context.Context, id string) (*entity.Room, error) {
	query := `SELECT id, name, room_type, capacity, created_at, updated_at FROM rooms WHERE id = $1`
	var room entity.Room
	err := r.q.QueryRow(ctx, query, id).Scan(
		&room.ID, &room.Name, &room.RoomType, &room.Capacity, &room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get room: %w", err)
	}
	return &room, nil
}

// List todas las salas ordenadas por nombre.
func (r *RoomRepo) List(ctx context.Context) ([]*entity.Room, error) {
	query := `SELECT id, name, room_type, capacity, created_at, updated_at FROM rooms ORDER BY name`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var out []*entity.Room
	for rows.Next() {
		var room entity.Room
		err := rows.Scan(&room.ID, &room.Name, &room.RoomType, &room.Capacity, &room.CreatedAt, &room.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		out = append(out, &room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return out, nil
}
