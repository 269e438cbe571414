package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound             = errors.New("recurso no encontrado")
	ErrInvalidInput         = errors.New("entrada inválida")
	ErrDuplicate            = errors.New("recurso duplicado")
	ErrUnauthorized         = errors.New("no autorizado")
	ErrForbidden            = errors.New("acceso denegado")
	ErrConflict             = errors.New("conflicto de versión, reintentar")
	ErrInsufficientQuantity = errors.New("cantidad activa insuficiente")
	ErrInvalidTransition    = errors.New("transición de etapa inválida")
	ErrAlreadyDestroyed     = errors.New("la unidad ya fue destruida")
	ErrAlreadyConverted     = errors.New("la unidad ya fue convertida")
	ErrLabNotPassed         = errors.New("el lote no tiene resultado de laboratorio aprobado")
	ErrMemberNotFound       = errors.New("miembro no encontrado")
	ErrEmailAlreadyExists   = errors.New("el email ya está registrado")
)
