package repository

import (
	"context"
	"time"

	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
)

// LedgerRepository puerto de los asientos inmutables del ledger. Solo append y
// lectura: ninguna implementación expone update ni delete.
type LedgerRepository interface {
	AppendConversion(ctx context.Context, rec *entity.ConversionRecord) error
	AppendDestruction(ctx context.Context, rec *entity.DestructionRecord) error

	ConversionsByBatch(ctx context.Context, batchID string) ([]*entity.ConversionRecord, error)
	DestructionsByBatch(ctx context.Context, batchID string) ([]*entity.DestructionRecord, error)

	GetDestruction(ctx context.Context, id string) (*entity.DestructionRecord, error)

	// Listados por rango de fechas para los reportes de cumplimiento.
	ListConversions(ctx context.Context, from, to *time.Time) ([]*entity.ConversionRecord, error)
	ListDestructions(ctx context.Context, from, to *time.Time) ([]*entity.DestructionRecord, error)
}
