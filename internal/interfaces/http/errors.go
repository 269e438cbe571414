package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/clubverde/trazabilidad-api/internal/application/dto"
	"github.com/clubverde/trazabilidad-api/internal/domain"
)

// handleError mapea errores de dominio a códigos HTTP en un único lugar.
// El cuerpo es siempre {"error": "..."}; la UI lo muestra tal cual.
//
// Un PartialError de conversión llega aquí envuelto: errors.Is atraviesa su
// Unwrap para el código, y el mensaje completo (que describe la destrucción
// ya asentada) viaja en el cuerpo.
func handleError(c *fiber.Ctx, err error) error {
	return c.Status(errorStatus(err)).JSON(dto.ErrorResponse{Error: err.Error()})
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrMemberNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientQuantity),
		errors.Is(err, domain.ErrDuplicate),
		errors.Is(err, domain.ErrEmailAlreadyExists):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrAlreadyDestroyed),
		errors.Is(err, domain.ErrAlreadyConverted),
		errors.Is(err, domain.ErrLabNotPassed):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden
	default:
		// Incluye ErrConflict: agotar los reintentos optimistas es un fallo
		// del servidor, no del llamador.
		return fiber.StatusInternalServerError
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: msg})
}
