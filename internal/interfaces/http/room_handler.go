package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/clubverde/trazabilidad-api/internal/application/dto"
	"github.com/clubverde/trazabilidad-api/internal/application/trace"
)

// RoomHandler salas de cultivo.
type RoomHandler struct {
	uc *trace.RoomUseCase
}

// NewRoomHandler construye el handler de salas.
func NewRoomHandler(uc *trace.RoomUseCase) *RoomHandler {
	return &RoomHandler{uc: uc}
}

// Create godoc
// @Summary      Crear sala de cultivo
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateRoomRequest  true  "name, room_type, capacity"
// @Success      201   {object}  dto.RoomResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/rooms [post]
func (h *RoomHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateRoomRequest
	if err := parseBody(c, &in); err != nil {
		return badRequest(c, err.Error())
	}
	room, err := h.uc.Create(c.Context(), in)
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(room)
}

// List godoc
// @Summary      Listar salas
// @Tags         rooms
// @Produce      json
// @Success      200  {array}  dto.RoomResponse
// @Security     BearerAuth
// @Router       /api/rooms [get]
func (h *RoomHandler) List(c *fiber.Ctx) error {
	rooms, err := h.uc.List(c.Context())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(rooms)
}

// GetByID godoc
// @Summary      Obtener sala
// @Tags         rooms
// @Produce      json
// @Param        id  path  string  true  "room id"
// @Success      200  {object}  dto.RoomResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/rooms/{id} [get]
func (h *RoomHandler) GetByID(c *fiber.Ctx) error {
	room, err := h.uc.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(room)
}
