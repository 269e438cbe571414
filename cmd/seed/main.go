// seed inicializa una instalación nueva: crea el miembro administrador y las
// salas de cultivo por defecto si todavía no existen.
//
// Uso: go run ./cmd/seed -email admin@club.local -password <pass>
// La conexión a la DB sale de la misma configuración que usa la API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
	"github.com/clubverde/trazabilidad-api/internal/infrastructure/postgres"
	"github.com/clubverde/trazabilidad-api/pkg/config"
)

// defaultRooms salas mínimas para operar el pipeline completo.
var defaultRooms = []struct {
	name     string
	roomType string
	capacity int
}{
	{"Sala madres", "mothers", 50},
	{"Vegetativo 1", "vegetation", 200},
	{"Floración 1", "blooming", 200},
	{"Secado", "drying", 0},
	{"Procesado", "processing", 0},
	{"Almacén", "storage", 0},
}

func main() {
	email := flag.String("email", "admin@club.local", "email del administrador inicial")
	password := flag.String("password", "", "password del administrador inicial (obligatorio)")
	name := flag.String("name", "Administrador", "nombre visible del administrador")
	flag.Parse()

	if *password == "" {
		fmt.Fprintln(os.Stderr, "falta -password")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "conexión a PostgreSQL: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	members := postgres.NewMemberRepository(pool)
	rooms := postgres.NewRoomRepository(pool)

	existing, err := members.GetByEmail(ctx, *email)
	if err != nil {
		fmt.Fprintf(os.Stderr, "consultar miembro: %v\n", err)
		os.Exit(1)
	}
	if existing != nil {
		fmt.Printf("miembro %s ya existe, se omite\n", *email)
	} else {
		hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
		if err != nil {
			fmt.Fprintf(os.Stderr, "hashear password: %v\n", err)
			os.Exit(1)
		}
		now := time.Now()
		admin := &entity.Member{
			ID:           uuid.New().String(),
			Email:        *email,
			PasswordHash: string(hash),
			DisplayName:  *name,
			Role:         entity.RoleAdmin,
			Status:       "active",
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := members.Create(ctx, admin); err != nil {
			fmt.Fprintf(os.Stderr, "crear administrador: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("administrador creado: %s (%s)\n", admin.Email, admin.ID)
	}

	current, err := rooms.List(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "listar salas: %v\n", err)
		os.Exit(1)
	}
	if len(current) > 0 {
		fmt.Printf("%d salas existentes, no se crean las de defecto\n", len(current))
		return
	}
	for _, r := range defaultRooms {
		now := time.Now()
		room := &entity.Room{
			ID:        uuid.New().String(),
			Name:      r.name,
			RoomType:  r.roomType,
			Capacity:  r.capacity,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := rooms.Create(ctx, room); err != nil {
			fmt.Fprintf(os.Stderr, "crear sala %s: %v\n", r.name, err)
			os.Exit(1)
		}
		fmt.Printf("sala creada: %s (%s)\n", room.Name, room.RoomType)
	}
}
