package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/clubverde/trazabilidad-api/internal/application/dto"
	"github.com/clubverde/trazabilidad-api/internal/application/trace"
	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
	"github.com/clubverde/trazabilidad-api/internal/domain/repository"
)

// TraceHandler endpoints del pipeline de trazabilidad: listados por etapa,
// conteos, conversiones, destrucciones y linaje.
type TraceHandler struct {
	seed    *trace.SeedUseCase
	convert *trace.ConvertUseCase
	destroy *trace.DestroyUseCase
	lab     *trace.LabResultsUseCase
	query   *trace.QueryUseCase
	counts  *trace.CountsUseCase
}

// NewTraceHandler construye el handler del pipeline.
func NewTraceHandler(
	seed *trace.SeedUseCase,
	convert *trace.ConvertUseCase,
	destroy *trace.DestroyUseCase,
	lab *trace.LabResultsUseCase,
	query *trace.QueryUseCase,
	counts *trace.CountsUseCase,
) *TraceHandler {
	return &TraceHandler{
		seed:    seed,
		convert: convert,
		destroy: destroy,
		lab:     lab,
		query:   query,
		counts:  counts,
	}
}

// batchFilter arma el filtro de listado desde los query params de la UI.
func batchFilter(c *fiber.Ctx, stage entity.Stage) repository.BatchFilter {
	return repository.BatchFilter{
		Stage:        stage,
		Year:         c.QueryInt("year"),
		Month:        c.QueryInt("month"),
		Day:          c.QueryInt("day"),
		ProductType:  c.Query("product_type"),
		Strain:       c.Query("strain"),
		LabStatus:    c.Query("status"),
		HasActive:    triState(c, "has_active"),
		HasConverted: triState(c, "has_converted"),
		HasDestroyed: triState(c, "has_destroyed"),
		Page:         c.QueryInt("page", 1),
		PageSize:     c.QueryInt("page_size", 10),
	}
}

// triState devuelve nil cuando el parámetro no viene (sin filtrar).
func triState(c *fiber.Ctx, key string) *bool {
	v := c.Query(key)
	if v == "" {
		return nil
	}
	b := v == "true" || v == "1"
	return &b
}

// ListStage devuelve el handler de listado de una etapa.
//
// @Summary  Listar lotes de una etapa
// @Tags     trackandtrace
// @Produce  json
// @Success  200  {object}  dto.ListResponse
// @Security BearerAuth
func (h *TraceHandler) ListStage(stage entity.Stage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		out, err := h.query.ListBatches(c.Context(), batchFilter(c, stage))
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(out)
	}
}

// GetBatch godoc
// @Summary      Obtener un lote con sus unidades activas
// @Tags         trackandtrace
// @Produce      json
// @Param        id  path  string  true  "batch id"
// @Success      200  {object}  dto.BatchResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Security     BearerAuth
func (h *TraceHandler) GetBatch(c *fiber.Ctx) error {
	out, err := h.query.GetBatch(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(out)
}

// ListChildren unidades hijas de un lote (plantas, esquejes o envases).
//
// @Summary  Listar unidades de un lote
// @Tags     trackandtrace
// @Produce  json
// @Success  200  {object}  dto.ListResponse
// @Security BearerAuth
func (h *TraceHandler) ListChildren(c *fiber.Ctx) error {
	f := repository.UnitFilter{
		BatchID:   c.Params("id"),
		Destroyed: triState(c, "destroyed"),
		Converted: triState(c, "converted"),
		Page:      c.QueryInt("page", 1),
		PageSize:  c.QueryInt("page_size", 10),
	}
	out, err := h.query.ListUnits(c.Context(), f)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(out)
}

// Lineage godoc
// @Summary      Cadena de custodia completa de un lote
// @Tags         trackandtrace
// @Produce      json
// @Param        id  path  string  true  "batch id"
// @Success      200  {object}  dto.LineageResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Security     BearerAuth
func (h *TraceHandler) Lineage(c *fiber.Ctx) error {
	out, err := h.query.Lineage(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(out)
}

// Convert godoc
// @Summary      Convertir un lote a la etapa siguiente del pipeline
// @Tags         trackandtrace
// @Accept       json
// @Produce      json
// @Param        id    path  string              true  "batch id origen"
// @Param        body  body  dto.ConvertRequest  true  "política según el par de etapas"
// @Success      201  {object}  dto.ConvertResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Security     BearerAuth
func (h *TraceHandler) Convert(c *fiber.Ctx) error {
	var in dto.ConvertRequest
	if err := parseBody(c, &in); err != nil {
		return badRequest(c, err.Error())
	}
	out, err := h.convert.Convert(c.Context(), c.Params("id"), in)
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Destroy godoc
// @Summary      Destruir unidades o cantidad de un lote
// @Tags         trackandtrace
// @Accept       json
// @Produce      json
// @Param        id    path  string              true  "batch id"
// @Param        body  body  dto.DestroyRequest  true  "reason, destroyed_by_id, unidades o cantidad"
// @Success      200  {object}  dto.DestroyResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Security     BearerAuth
func (h *TraceHandler) Destroy(c *fiber.Ctx) error {
	var in dto.DestroyRequest
	if err := parseBody(c, &in); err != nil {
		return badRequest(c, err.Error())
	}
	out, err := h.destroy.Destroy(c.Context(), c.Params("id"), in)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(out)
}

// UpdateLabResults godoc
// @Summary      Registrar resultados de laboratorio de un lote
// @Tags         trackandtrace
// @Accept       json
// @Produce      json
// @Param        id    path  string                      true  "batch id en labtesting"
// @Param        body  body  dto.UpdateLabResultsRequest true  "status, thc_content, cbd_content"
// @Success      200  {object}  dto.BatchResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Security     BearerAuth
func (h *TraceHandler) UpdateLabResults(c *fiber.Ctx) error {
	var in dto.UpdateLabResultsRequest
	if err := parseBody(c, &in); err != nil {
		return badRequest(c, err.Error())
	}
	out, err := h.lab.UpdateResults(c.Context(), c.Params("id"), in)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(out)
}

// CreateSeed godoc
// @Summary      Crear lote raíz de plantas madre
// @Tags         trackandtrace
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateSeedRequest  true  "strain, quantity, member_id"
// @Success      201  {object}  dto.BatchResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/trackandtrace/seeds [post]
func (h *TraceHandler) CreateSeed(c *fiber.Ctx) error {
	var in dto.CreateSeedRequest
	if err := parseBody(c, &in); err != nil {
		return badRequest(c, err.Error())
	}
	out, err := h.seed.CreateRoot(c.Context(), in)
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// StrainOptions godoc
// @Summary      Variedades registradas
// @Tags         trackandtrace
// @Produce      json
// @Success      200  {array}  string
// @Security     BearerAuth
// @Router       /api/trackandtrace/seeds/strain_options [get]
func (h *TraceHandler) StrainOptions(c *fiber.Ctx) error {
	out, err := h.query.StrainOptions(c.Context())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(out)
}
