package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/clubverde/trazabilidad-api/internal/application/auth"
	"github.com/clubverde/trazabilidad-api/internal/application/dto"
)

// MemberHandler listados de miembros para los selectores de la UI.
type MemberHandler struct {
	uc *auth.AuthUseCase
}

// NewMemberHandler construye el handler de miembros.
func NewMemberHandler(uc *auth.AuthUseCase) *MemberHandler {
	return &MemberHandler{uc: uc}
}

// List godoc
// @Summary      Listar miembros
// @Tags         members
// @Produce      json
// @Param        page       query  int  false  "página (desde 1)"
// @Param        page_size  query  int  false  "tamaño de página"
// @Success      200  {object}  dto.ListResponse
// @Security     BearerAuth
// @Router       /api/members [get]
func (h *MemberHandler) List(c *fiber.Ctx) error {
	page := dto.PageRequest{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 50),
	}
	out, err := h.uc.ListMembers(c.Context(), page)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(out)
}
