package entity

import "time"

// Roles válidos para Member.
const (
	RoleAdmin      = "admin"
	RoleCultivador = "cultivador"
	RoleDispensa   = "dispensa"
)

// Member representa un miembro del club con acceso al sistema. Todo asiento
// del ledger (conversión, destrucción, distribución) referencia al miembro
// que lo autorizó.
type Member struct {
	ID           string
	Email        string
	PasswordHash string // bcrypt, nunca en claro después de persistir
	DisplayName  string
	Role         string // admin, cultivador, dispensa
	Status       string // active, inactive, suspended
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
