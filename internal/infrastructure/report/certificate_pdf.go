// Certificado de destrucción en PDF (Maroto v2). Una página A4 por asiento:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Nombre del club  │  N° de asiento + Fecha          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  LOTE: charge, etapa, cepa, tipo de producto                │
//	│  DESTRUCCIÓN: cantidad, motivo, unidades                    │
//	│  AUTORIZACIÓN: miembro que autorizó                         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  QR de verificación + líneas de firma                       │
//	└─────────────────────────────────────────────────────────────┘
package report

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/clubverde/trazabilidad-api/internal/application/trace"
	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
)

var (
	colorPrimary = &props.Color{Red: 27, Green: 94, Blue: 32}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// CertificatePDFGenerator implementa trace.CertificateGenerator usando Maroto v2.
type CertificatePDFGenerator struct {
	clubName string
}

// NewCertificatePDFGenerator construye el generador.
func NewCertificatePDFGenerator(clubName string) *CertificatePDFGenerator {
	return &CertificatePDFGenerator{clubName: clubName}
}

// GenerateDestructionCertificate genera el PDF y devuelve sus bytes.
func (g *CertificatePDFGenerator) GenerateDestructionCertificate(_ context.Context, entry trace.DestructionReportEntry) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Certificado de Destrucción", true).
		WithAuthor(g.clubName, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(g.headerRow(entry))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(batchRows(entry)...)
	m.AddRows(destructionRows(entry)...)
	m.AddRows(authorizationRow(entry))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(verificationRows(entry)...)
	m.AddRows(signatureRow())

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("report: generar certificado: %w", err)
	}
	return doc.GetBytes(), nil
}

// headerRow: club (izq) y N° de asiento + fecha (der).
func (g *CertificatePDFGenerator) headerRow(entry trace.DestructionReportEntry) core.Row {
	fecha := entry.Record.DestroyedAt.Format("02/01/2006 15:04")

	return row.New(18).Add(
		col.New(7).Add(
			text.New(g.clubName, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Registro de trazabilidad seed-to-sale", props.Text{
				Size: 8, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("CERTIFICADO DE DESTRUCCIÓN", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(entry.Record.ID, props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right, Top: 7,
			}),
			text.New("Fecha: "+fecha, props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

// batchRows: identificación del lote destruido.
func batchRows(entry trace.DestructionReportEntry) []core.Row {
	charge, stage, strain, product := "—", "—", "—", "—"
	if b := entry.Batch; b != nil {
		charge = b.ChargeNumber
		stage = string(b.Stage)
		strain = b.Strain
		if b.ProductType != "" {
			product = b.ProductType
		}
	}
	return []core.Row{
		row.New(8).Add(col.New(12).Add(
			text.New("LOTE", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 2,
			}),
		)),
		row.New(12).Add(col.New(12).Add(
			text.New(fmt.Sprintf("Charge: %s   |   Etapa: %s   |   Cepa: %s   |   Producto: %s",
				charge, stage, strain, product,
			), props.Text{Size: 9, Top: 1}),
			text.New("ID interno: "+entry.Record.BatchID, props.Text{
				Size: 7, Top: 7, Color: colorGray,
			}),
		)),
	}
}

// destructionRows: cantidad, medida, motivo y unidades destruidas.
func destructionRows(entry trace.DestructionReportEntry) []core.Row {
	measure := "—"
	if entry.Batch != nil {
		measure = string(entry.Batch.Stage.Measure())
	}
	rows := []core.Row{
		row.New(8).Add(col.New(12).Add(
			text.New("DESTRUCCIÓN", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 2,
			}),
		)),
		row.New(8).Add(
			col.New(4).Add(text.New(
				fmt.Sprintf("Cantidad: %s %s", entry.Record.Quantity.String(), measure),
				props.Text{Style: fontstyle.Bold, Size: 10, Top: 1},
			)),
			col.New(8).Add(text.New(
				"Motivo: "+entry.Record.Reason,
				props.Text{Size: 9, Top: 1},
			)),
		),
	}
	if n := len(entry.Record.UnitIDs); n > 0 {
		rows = append(rows, row.New(6).Add(col.New(12).Add(
			text.New(fmt.Sprintf("Unidades destruidas: %d (detalle en el manifiesto XML)", n),
				props.Text{Size: 8, Top: 1, Color: colorGray}),
		)))
	}
	return rows
}

// authorizationRow: miembro que autorizó la destrucción.
func authorizationRow(entry trace.DestructionReportEntry) core.Row {
	name := entry.Record.AuthorizedBy
	if entry.AuthorizedBy != nil {
		name = fmt.Sprintf("%s (%s)", displayName(entry.AuthorizedBy), entry.AuthorizedBy.Email)
	}
	return row.New(14).Add(col.New(12).Add(
		text.New("AUTORIZACIÓN", props.Text{
			Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 2,
		}),
		text.New("Autorizado por: "+name, props.Text{Size: 9, Top: 8}),
	))
}

// verificationRows: QR con el ID del asiento para contrastar contra el ledger.
func verificationRows(entry trace.DestructionReportEntry) []core.Row {
	qrData := fmt.Sprintf("destruction:%s;batch:%s;qty:%s",
		entry.Record.ID, entry.Record.BatchID, entry.Record.Quantity.String())

	return []core.Row{
		row.New(40).Add(
			col.New(4).Add(code.NewQr(qrData, props.Rect{
				Percent: 90,
				Center:  true,
			})),
			col.New(8).Add(
				text.New("Escanea el código QR para contrastar este\ncertificado contra el ledger de trazabilidad.", props.Text{
					Size: 8, Top: 4, Left: 3, Color: colorGray,
				}),
				text.New("El asiento correspondiente es inmutable:\nno admite corrección ni borrado.", props.Text{
					Style: fontstyle.Bold, Size: 9, Top: 18, Left: 3, Color: colorPrimary,
				}),
			),
		),
	}
}

// signatureRow: líneas de firma del responsable y del testigo.
func signatureRow() core.Row {
	sigLine := func(label string) core.Col {
		return col.New(6).Add(
			text.New("_________________________", props.Text{
				Size: 9, Align: align.Center, Top: 10,
			}),
			text.New(label, props.Text{
				Size: 8, Align: align.Center, Top: 16, Color: colorGray,
			}),
		)
	}
	return row.New(24).Add(
		sigLine("Responsable de la destrucción"),
		sigLine("Testigo"),
	)
}

func displayName(m *entity.Member) string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.Email
}

var _ trace.CertificateGenerator = (*CertificatePDFGenerator)(nil)
