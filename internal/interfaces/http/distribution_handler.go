package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/clubverde/trazabilidad-api/internal/application/dto"
	"github.com/clubverde/trazabilidad-api/internal/application/trace"
	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
)

// DistributionHandler entrega de envases a miembros.
type DistributionHandler struct {
	convert *trace.ConvertUseCase
	query   *trace.QueryUseCase
}

// NewDistributionHandler construye el handler de distribuciones.
func NewDistributionHandler(convert *trace.ConvertUseCase, query *trace.QueryUseCase) *DistributionHandler {
	return &DistributionHandler{convert: convert, query: query}
}

// List godoc
// @Summary      Listar distribuciones por fecha
// @Tags         trackandtrace
// @Produce      json
// @Param        year   query  int  false  "año"
// @Param        month  query  int  false  "mes"
// @Param        day    query  int  false  "día"
// @Success      200  {object}  dto.ListResponse
// @Security     BearerAuth
// @Router       /api/trackandtrace/distributions [get]
func (h *DistributionHandler) List(c *fiber.Ctx) error {
	out, err := h.query.ListDistributions(c.Context(), batchFilter(c, entity.StageDistribution))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(out)
}

// Create godoc
// @Summary      Distribuir envases a un miembro
// @Tags         trackandtrace
// @Accept       json
// @Produce      json
// @Param        body  body  dto.DistributeRequest  true  "unit_ids, recipient_id, member_id"
// @Success      201  {object}  dto.DistributeResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/trackandtrace/distributions [post]
func (h *DistributionHandler) Create(c *fiber.Ctx) error {
	var in dto.DistributeRequest
	if err := parseBody(c, &in); err != nil {
		return badRequest(c, err.Error())
	}
	out, err := h.convert.Distribute(c.Context(), in)
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// AvailableUnits godoc
// @Summary      Envases de empaque disponibles para distribución
// @Tags         trackandtrace
// @Produce      json
// @Success      200  {array}  dto.AvailableUnitResponse
// @Security     BearerAuth
// @Router       /api/trackandtrace/distributions/available_units [get]
func (h *DistributionHandler) AvailableUnits(c *fiber.Ctx) error {
	out, err := h.query.AvailableUnits(c.Context())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(out)
}
