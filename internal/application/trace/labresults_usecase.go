package trace

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/clubverde/trazabilidad-api/internal/application/dto"
	"github.com/clubverde/trazabilidad-api/internal/domain"
	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
	"github.com/clubverde/trazabilidad-api/internal/domain/repository"
)

// LabResultsUseCase registra resultados de laboratorio de un lote en
// labtesting. No toca cantidades: solo el estado y los porcentajes medidos.
type LabResultsUseCase struct {
	batches repository.BatchRepository
}

// NewLabResultsUseCase construye el caso de uso.
func NewLabResultsUseCase(batches repository.BatchRepository) *LabResultsUseCase {
	return &LabResultsUseCase{batches: batches}
}

// UpdateResults valida y persiste estado, THC y CBD.
func (uc *LabResultsUseCase) UpdateResults(ctx context.Context, batchID string, in dto.UpdateLabResultsRequest) (*dto.BatchResponse, error) {
	switch in.Status {
	case entity.LabStatusPending, entity.LabStatusPassed, entity.LabStatusFailed:
	default:
		return nil, domain.ErrInvalidInput
	}
	if !percentageOK(in.THCContent) || !percentageOK(in.CBDContent) {
		return nil, domain.ErrInvalidInput
	}

	batch, err := uc.batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, domain.ErrNotFound
	}
	if batch.Stage != entity.StageLabTesting {
		return nil, domain.ErrInvalidInput
	}

	updated, err := uc.batches.UpdateLabResults(ctx, batchID, batch.Version, in.Status, in.THCContent, in.CBDContent)
	if err != nil {
		return nil, err
	}
	return dto.BatchFromEntity(updated), nil
}

func percentageOK(d *decimal.Decimal) bool {
	if d == nil {
		return true
	}
	return !d.IsNegative() && d.LessThanOrEqual(decimal.NewFromInt(100))
}
