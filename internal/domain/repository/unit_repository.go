package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
)

// UnitFilter filtros para listar unidades de un lote.
type UnitFilter struct {
	BatchID   string
	Destroyed *bool
	Converted *bool
	Page      int
	PageSize  int
}

// UnitCounts contadores derivados del estado de las unidades de un lote.
type UnitCounts struct {
	Active    int64
	Destroyed int64
	Converted int64
}

// AvailableUnit envase activo listo para distribución, con los datos del lote
// que la UI necesita mostrar sin una segunda consulta.
type AvailableUnit struct {
	Unit         *entity.Unit
	BatchID      string
	ChargeNumber string
	Strain       string
	ProductType  string
	UnitWeight   decimal.Decimal
}

// UnitRepository puerto para unidades individuales (plantas, esquejes,
// envases). Las unidades nunca se borran, solo se marcan.
type UnitRepository interface {
	CreateBulk(ctx context.Context, units []*entity.Unit) error
	List(ctx context.Context, f UnitFilter) ([]*entity.Unit, int, error)

	// GetByIDs devuelve solo unidades que pertenecen al lote indicado; ids
	// ajenos simplemente no aparecen en el resultado.
	GetByIDs(ctx context.Context, batchID string, ids []string) ([]*entity.Unit, error)

	// MarkDestroyed / MarkConverted marcan únicamente unidades todavía
	// activas y devuelven cuántas filas cambiaron, para que el caso de uso
	// detecte re-destrucciones (domain.ErrAlreadyDestroyed).
	MarkDestroyed(ctx context.Context, batchID string, ids []string, reason, authorizedBy string, at time.Time) (int64, error)
	MarkConverted(ctx context.Context, batchID string, ids []string, targetBatchID string, at time.Time) (int64, error)

	CountByBatch(ctx context.Context, batchID string) (*UnitCounts, error)

	// ActiveIDsByBatch ids de unidades activas por lote, para exponerlos
	// directamente en el recurso Batch (la UI nunca sintetiza placeholders).
	ActiveIDsByBatch(ctx context.Context, batchIDs []string) (map[string][]string, error)

	// AvailablePackagingUnits envases activos de lotes de empaque, para
	// /distributions/available_units/.
	AvailablePackagingUnits(ctx context.Context) ([]*AvailableUnit, error)
}
