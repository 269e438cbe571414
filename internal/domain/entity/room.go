package entity

import "time"

// Room representa una sala de cultivo (madres, floración, secado, etc.).
type Room struct {
	ID        string
	Name      string
	RoomType  string // mothers, vegetation, blooming, drying, processing, storage
	Capacity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}
