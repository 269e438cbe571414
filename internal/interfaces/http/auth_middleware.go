package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/clubverde/trazabilidad-api/internal/application/dto"
	"github.com/clubverde/trazabilidad-api/pkg/jwt"
)

// Locals keys para MemberID y rol en Fiber.
const (
	LocalMemberID   = "member_id"
	LocalMemberRole = "member_role"
)

// AuthMiddleware valida el Bearer Token JWT y deja MemberID y rol en c.Locals.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "Authorization header requerido"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "formato: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "token vacío"})
		}
		memberID, role, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "token inválido o expirado"})
		}
		c.Locals(LocalMemberID, memberID)
		c.Locals(LocalMemberRole, role)
		return c.Next()
	}
}

// RequireRole exige uno de los roles indicados (después de AuthMiddleware).
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := GetMemberRole(c)
		for _, r := range roles {
			if role == r {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: "rol sin permiso para esta operación"})
	}
}

// GetMemberID devuelve el MemberID del contexto (después del middleware de auth).
func GetMemberID(c *fiber.Ctx) string {
	v := c.Locals(LocalMemberID)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// GetMemberRole devuelve el rol del contexto.
func GetMemberRole(c *fiber.Ctx) string {
	v := c.Locals(LocalMemberRole)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
