package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/clubverde/trazabilidad-api/internal/application/trace"
)

// Header con la huella C14N SHA-256 del manifiesto de destrucciones.
const HeaderManifestFingerprint = "X-Manifest-Fingerprint"

// ReportHandler reportes de cumplimiento: manifiesto XML, certificado PDF y
// exportación del ledger a Excel.
type ReportHandler struct {
	uc *trace.ReportUseCase
}

// NewReportHandler construye el handler de reportes.
func NewReportHandler(uc *trace.ReportUseCase) *ReportHandler {
	return &ReportHandler{uc: uc}
}

// DestructionManifest godoc
// @Summary      Manifiesto XML canónico de destrucciones
// @Description  La huella C14N SHA-256 viaja en el header X-Manifest-Fingerprint.
// @Tags         reports
// @Produce      xml
// @Param        from  query  string  false  "fecha inicial (YYYY-MM-DD)"
// @Param        to    query  string  false  "fecha final (YYYY-MM-DD)"
// @Success      200  {string}  string
// @Security     BearerAuth
// @Router       /api/trackandtrace/reports/destructions.xml [get]
func (h *ReportHandler) DestructionManifest(c *fiber.Ctx) error {
	from, to, err := dateRange(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	doc, fingerprint, err := h.uc.DestructionManifest(c.Context(), from, to)
	if err != nil {
		return handleError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/xml; charset=utf-8")
	c.Set(HeaderManifestFingerprint, fingerprint)
	return c.Send(doc)
}

// DestructionCertificate godoc
// @Summary      Certificado PDF de una destrucción
// @Tags         reports
// @Produce      application/pdf
// @Param        id  path  string  true  "destruction record id"
// @Success      200  {string}  string
// @Failure      404  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/trackandtrace/reports/destructions/{id}/certificate.pdf [get]
func (h *ReportHandler) DestructionCertificate(c *fiber.Ctx) error {
	pdf, err := h.uc.DestructionCertificate(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="certificado_destruccion.pdf"`)
	return c.Send(pdf)
}

// LedgerWorkbook godoc
// @Summary      Exportar el ledger completo como Excel
// @Tags         reports
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        from  query  string  false  "fecha inicial (YYYY-MM-DD)"
// @Param        to    query  string  false  "fecha final (YYYY-MM-DD)"
// @Success      200  {string}  string
// @Security     BearerAuth
// @Router       /api/trackandtrace/reports/ledger.xlsx [get]
func (h *ReportHandler) LedgerWorkbook(c *fiber.Ctx) error {
	from, to, err := dateRange(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	data, err := h.uc.LedgerWorkbook(c.Context(), from, to)
	if err != nil {
		return handleError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="ledger.xlsx"`)
	return c.Send(data)
}

// dateRange parsea from/to (YYYY-MM-DD); to es inclusivo (fin del día).
func dateRange(c *fiber.Ctx) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if v := c.Query("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, nil, err
		}
		from = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, nil, err
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}
	return from, to, nil
}
