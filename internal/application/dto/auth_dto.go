package dto

import "time"

// LoginRequest credenciales de acceso de un miembro.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginResponse token JWT y datos del miembro autenticado.
type LoginResponse struct {
	Token  string          `json:"token"`
	Member *MemberResponse `json:"member"`
}

// RegisterMemberRequest alta de un miembro (solo admin).
type RegisterMemberRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"display_name" validate:"required"`
	Role        string `json:"role" validate:"required,oneof=admin cultivador dispensa"`
}

// MemberResponse miembro sin campos sensibles.
type MemberResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}
