package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
)

// BatchFilter filtros de listado, espejo de los query params de la UI.
type BatchFilter struct {
	Stage       entity.Stage
	Year        int
	Month       int
	Day         int
	ProductType string
	Strain      string
	LabStatus   string
	// Filtros tri-estado: nil = sin filtrar.
	HasActive    *bool
	HasConverted *bool
	HasDestroyed *bool
	Page         int
	PageSize     int
}

// StageTotals agregados de una etapa, calculados bajo demanda desde el store
// (nunca desde un cache aparte: los conteos son de cumplimiento normativo).
type StageTotals struct {
	TotalBatches     int64
	ActiveBatches    int64
	DestroyedBatches int64
	ConvertedBatches int64

	TotalQuantity decimal.Decimal

	// Sumas en la medida de la etapa (unidades o gramos).
	ActiveQuantity    decimal.Decimal
	DestroyedQuantity decimal.Decimal
	ConvertedQuantity decimal.Decimal

	// Sumas de pesos medidos, solo pobladas donde la etapa los registra.
	ActiveInitialWeight    decimal.Decimal
	ActiveFinalWeight      decimal.Decimal
	ActiveInputWeight      decimal.Decimal
	ActiveOutputWeight     decimal.Decimal
	DestroyedInitialWeight decimal.Decimal
	DestroyedOutputWeight  decimal.Decimal
	ActiveUnits            int64 // envases activos (packaging)

	// Gramos envasados aún activos: SUM(active_quantity * unit_weight).
	// Solo es significativo en etapas contadas por envases.
	ActivePackedWeight decimal.Decimal
}

// BatchRepository puerto del Batch Store y del grafo de linaje.
//
// ApplyDelta es el único mutador de cantidades: UPDATE condicionado a la
// versión leída (concurrencia optimista). Con versión desactualizada devuelve
// domain.ErrConflict; si el delta violaría I1-I3 devuelve
// domain.ErrInsufficientQuantity. Nunca persiste un estado inválido.
type BatchRepository interface {
	Create(ctx context.Context, b *entity.Batch) error
	GetByID(ctx context.Context, id string) (*entity.Batch, error)
	List(ctx context.Context, f BatchFilter) ([]*entity.Batch, int, error)

	ApplyDelta(ctx context.Context, batchID string, version int64, destroyedDelta, convertedDelta decimal.Decimal) (*entity.Batch, error)

	// SetQuantities reestablece los contadores derivándolos del estado de las
	// unidades (solo etapas con seguimiento por unidad, misma transacción que
	// el marcado de unidades). Condicionado a versión igual que ApplyDelta.
	SetQuantities(ctx context.Context, batchID string, version int64, active, destroyed, converted decimal.Decimal) (*entity.Batch, error)

	// UpdateLabResults persiste estado y porcentajes medidos, condicionado a
	// la versión leída igual que ApplyDelta.
	UpdateLabResults(ctx context.Context, batchID string, version int64, status string, thc, cbd *decimal.Decimal) (*entity.Batch, error)

	// Linaje: Ancestors devuelve la cadena raíz-primero (sin incluir el lote
	// consultado); Descendants el subárbol completo, sin orden garantizado.
	Ancestors(ctx context.Context, batchID string) ([]*entity.Batch, error)
	Descendants(ctx context.Context, batchID string) ([]*entity.Batch, error)

	Totals(ctx context.Context, stage entity.Stage, f BatchFilter) (*StageTotals, error)
	TotalsByProductType(ctx context.Context, stage entity.Stage) (map[string]*StageTotals, error)
	TotalsByLabStatus(ctx context.Context) (map[string]*StageTotals, error)

	// StrainOptions variedades distintas registradas en lotes raíz.
	StrainOptions(ctx context.Context) ([]string, error)
}
