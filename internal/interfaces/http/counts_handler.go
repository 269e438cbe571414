package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/clubverde/trazabilidad-api/internal/application/trace"
	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
)

// CountsHandler conteos por etapa. Cada respuesta se calcula bajo demanda
// desde el store: estos números son de cumplimiento normativo y nunca se
// sirven desde un cache.
type CountsHandler struct {
	counts *trace.CountsUseCase
}

// NewCountsHandler construye el handler de conteos.
func NewCountsHandler(counts *trace.CountsUseCase) *CountsHandler {
	return &CountsHandler{counts: counts}
}

// StageCounts devuelve el handler de conteos de la etapa. El query param
// type= solo aplica a madres (active|destroyed|cutting).
//
// @Summary  Conteos agregados de una etapa
// @Tags     trackandtrace
// @Produce  json
// @Security BearerAuth
func (h *CountsHandler) StageCounts(stage entity.Stage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var (
			out any
			err error
		)
		ctx := c.Context()
		switch stage {
		case entity.StageMotherPlant:
			if c.Query("type") == "cutting" {
				out, err = h.counts.MotherCuttingCounts(ctx)
			} else {
				out, err = h.counts.MotherCounts(ctx, c.Query("type"))
			}
		case entity.StageCutting:
			out, err = h.counts.CuttingCounts(ctx)
		case entity.StageBlooming:
			out, err = h.counts.BloomingCounts(ctx)
		case entity.StageDrying:
			out, err = h.counts.DryingCounts(ctx)
		case entity.StageProcessing:
			out, err = h.counts.ProcessingCounts(ctx)
		case entity.StageLabTesting:
			out, err = h.counts.LabTestingCounts(ctx)
		case entity.StagePackaging:
			out, err = h.counts.PackagingCounts(ctx)
		default:
			return badRequest(c, "etapa sin conteos")
		}
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(out)
	}
}
