package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/clubverde/trazabilidad-api/internal/application/trace"
	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
)

// LedgerExcelExporter exporta el ledger como libro .xlsx con una hoja de
// conversiones y otra de destrucciones.
type LedgerExcelExporter struct{}

// NewLedgerExcelExporter crea el exportador.
func NewLedgerExcelExporter() *LedgerExcelExporter { return &LedgerExcelExporter{} }

// Export implementa trace.LedgerExporter.
func (e *LedgerExcelExporter) Export(conversions []*entity.ConversionRecord, destructions []*entity.DestructionRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheetConv = "Conversiones"
	const sheetDest = "Destrucciones"

	// La hoja por defecto se renombra; la segunda se crea.
	if err := f.SetSheetName("Sheet1", sheetConv); err != nil {
		return nil, fmt.Errorf("report: renombrar hoja: %w", err)
	}
	if _, err := f.NewSheet(sheetDest); err != nil {
		return nil, fmt.Errorf("report: crear hoja: %w", err)
	}

	writeHeader(f, sheetConv, []string{"ID", "Lote origen", "Lote destino", "Tipo", "Cantidad movida", "Ejecutado por", "Fecha"})
	for i, c := range conversions {
		rowNum := i + 2
		f.SetCellValue(sheetConv, cell("A", rowNum), c.ID)
		f.SetCellValue(sheetConv, cell("B", rowNum), c.SourceBatchID)
		f.SetCellValue(sheetConv, cell("C", rowNum), c.TargetBatchID)
		f.SetCellValue(sheetConv, cell("D", rowNum), c.ConversionType)
		f.SetCellValue(sheetConv, cell("E", rowNum), c.QuantityMoved.String())
		f.SetCellValue(sheetConv, cell("F", rowNum), c.PerformedBy)
		f.SetCellValue(sheetConv, cell("G", rowNum), c.PerformedAt.UTC().Format(time.RFC3339))
	}

	writeHeader(f, sheetDest, []string{"ID", "Lote", "Cantidad", "Motivo", "Unidades", "Autorizado por", "Fecha"})
	for i, d := range destructions {
		rowNum := i + 2
		f.SetCellValue(sheetDest, cell("A", rowNum), d.ID)
		f.SetCellValue(sheetDest, cell("B", rowNum), d.BatchID)
		f.SetCellValue(sheetDest, cell("C", rowNum), d.Quantity.String())
		f.SetCellValue(sheetDest, cell("D", rowNum), d.Reason)
		f.SetCellValue(sheetDest, cell("E", rowNum), strings.Join(d.UnitIDs, ","))
		f.SetCellValue(sheetDest, cell("F", rowNum), d.AuthorizedBy)
		f.SetCellValue(sheetDest, cell("G", rowNum), d.DestroyedAt.UTC().Format(time.RFC3339))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("report: serializar xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, titles []string) {
	for i, title := range titles {
		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetCellValue(sheet, colName+"1", title)
	}
}

func cell(col string, rowNum int) string {
	return fmt.Sprintf("%s%d", col, rowNum)
}

var _ trace.LedgerExporter = (*LedgerExcelExporter)(nil)
