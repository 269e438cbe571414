package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/clubverde/trazabilidad-api/internal/application/auth"
	"github.com/clubverde/trazabilidad-api/internal/application/dto"
)

// AuthHandler maneja registro de miembros y login.
type AuthHandler struct {
	uc *auth.AuthUseCase
}

// NewAuthHandler construye el handler de auth.
func NewAuthHandler(uc *auth.AuthUseCase) *AuthHandler {
	return &AuthHandler{uc: uc}
}

// Register godoc
// @Summary      Registrar miembro (solo admin)
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMemberRequest  true  "email, password, display_name, role"
// @Success      201   {object}  dto.MemberResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var in dto.RegisterMemberRequest
	if err := parseBody(c, &in); err != nil {
		return badRequest(c, err.Error())
	}
	member, err := h.uc.RegisterMember(c.Context(), in)
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(member)
}

// Login godoc
// @Summary      Iniciar sesión
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.LoginRequest  true  "email, password"
// @Success      200   {object}  dto.LoginResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in dto.LoginRequest
	if err := parseBody(c, &in); err != nil {
		return badRequest(c, err.Error())
	}
	out, err := h.uc.Login(c.Context(), in)
	if err != nil {
		// Credenciales inválidas y miembro inexistente responden igual.
		if errorStatus(err) == fiber.StatusNotFound {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "credenciales inválidas"})
		}
		return handleError(c, err)
	}
	return c.JSON(out)
}
