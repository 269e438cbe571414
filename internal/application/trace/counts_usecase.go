package trace

import (
	"context"

	"github.com/clubverde/trazabilidad-api/internal/application/dto"
	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
	"github.com/clubverde/trazabilidad-api/internal/domain/repository"
)

// CountsUseCase arma los agregados por etapa. Todos los conteos se calculan
// bajo demanda contra el store; no existe ningún contador cacheado que pueda
// desincronizarse del libro.
type CountsUseCase struct {
	batches repository.BatchRepository
}

func NewCountsUseCase(batches repository.BatchRepository) *CountsUseCase {
	return &CountsUseCase{batches: batches}
}

// MotherCounts contadores de lotes madre para las pestañas activo/destruido.
func (uc *CountsUseCase) MotherCounts(ctx context.Context, typ string) (*dto.MotherCountsResponse, error) {
	t, err := uc.batches.Totals(ctx, entity.StageMotherPlant, repository.BatchFilter{})
	if err != nil {
		return nil, err
	}
	resp := &dto.MotherCountsResponse{}
	switch typ {
	case "destroyed":
		resp.BatchesCount = t.DestroyedBatches
		resp.PlantsCount = t.DestroyedQuantity.IntPart()
	default: // active
		resp.BatchesCount = t.ActiveBatches
		resp.PlantsCount = t.ActiveQuantity.IntPart()
	}
	return resp, nil
}

// MotherCuttingCounts esquejes propagados desde madres: la pestaña cuenta
// todos los lotes de esqueje existentes, cualquiera sea su estado actual.
func (uc *CountsUseCase) MotherCuttingCounts(ctx context.Context) (*dto.MotherCuttingCountsResponse, error) {
	t, err := uc.batches.Totals(ctx, entity.StageCutting, repository.BatchFilter{})
	if err != nil {
		return nil, err
	}
	return &dto.MotherCuttingCountsResponse{
		BatchCount:   t.TotalBatches,
		CuttingCount: t.TotalQuantity.IntPart(),
	}, nil
}

func (uc *CountsUseCase) CuttingCounts(ctx context.Context) (*dto.CuttingCountsResponse, error) {
	t, err := uc.batches.Totals(ctx, entity.StageCutting, repository.BatchFilter{})
	if err != nil {
		return nil, err
	}
	return &dto.CuttingCountsResponse{
		ActiveBatchesCount:    t.ActiveBatches,
		ActiveCount:           t.ActiveQuantity.IntPart(),
		DestroyedBatchesCount: t.DestroyedBatches,
		DestroyedCount:        t.DestroyedQuantity.IntPart(),
		ConvertedBatchesCount: t.ConvertedBatches,
		ConvertedCount:        t.ConvertedQuantity.IntPart(),
	}, nil
}

func (uc *CountsUseCase) BloomingCounts(ctx context.Context) (*dto.BloomingCountsResponse, error) {
	t, err := uc.batches.Totals(ctx, entity.StageBlooming, repository.BatchFilter{})
	if err != nil {
		return nil, err
	}
	return &dto.BloomingCountsResponse{
		ActiveBatchesCount:    t.ActiveBatches,
		ActivePlantsCount:     t.ActiveQuantity.IntPart(),
		DestroyedBatchesCount: t.DestroyedBatches,
		DestroyedPlantsCount:  t.DestroyedQuantity.IntPart(),
		HarvestedBatchesCount: t.ConvertedBatches,
		HarvestedPlantsCount:  t.ConvertedQuantity.IntPart(),
	}, nil
}

func (uc *CountsUseCase) DryingCounts(ctx context.Context) (*dto.DryingCountsResponse, error) {
	t, err := uc.batches.Totals(ctx, entity.StageDrying, repository.BatchFilter{})
	if err != nil {
		return nil, err
	}
	return &dto.DryingCountsResponse{
		ActiveCount:                 t.ActiveBatches,
		TotalActiveInitialWeight:    t.ActiveInitialWeight,
		TotalActiveFinalWeight:      t.ActiveFinalWeight,
		ProcessedCount:              t.ConvertedBatches,
		ProcessedWeight:             t.ConvertedQuantity,
		DestroyedCount:              t.DestroyedBatches,
		TotalDestroyedInitialWeight: t.DestroyedInitialWeight,
	}, nil
}

func (uc *CountsUseCase) ProcessingCounts(ctx context.Context) (*dto.ProcessingCountsResponse, error) {
	t, err := uc.batches.Totals(ctx, entity.StageProcessing, repository.BatchFilter{})
	if err != nil {
		return nil, err
	}
	byType, err := uc.batches.TotalsByProductType(ctx, entity.StageProcessing)
	if err != nil {
		return nil, err
	}
	mari := totalsOrZero(byType[entity.ProductTypeMarijuana])
	hash := totalsOrZero(byType[entity.ProductTypeHashish])
	return &dto.ProcessingCountsResponse{
		ActiveCount:                t.ActiveBatches,
		TotalActiveInputWeight:     t.ActiveInputWeight,
		TotalActiveOutputWeight:    t.ActiveOutputWeight,
		MarijuanaCount:             mari.ConvertedBatches,
		MarijuanaWeight:            mari.ConvertedQuantity,
		HashishCount:               hash.ConvertedBatches,
		HashishWeight:              hash.ConvertedQuantity,
		DestroyedCount:             t.DestroyedBatches,
		TotalDestroyedOutputWeight: t.DestroyedOutputWeight,
	}, nil
}

func (uc *CountsUseCase) LabTestingCounts(ctx context.Context) (*dto.LabTestingCountsResponse, error) {
	t, err := uc.batches.Totals(ctx, entity.StageLabTesting, repository.BatchFilter{})
	if err != nil {
		return nil, err
	}
	byStatus, err := uc.batches.TotalsByLabStatus(ctx)
	if err != nil {
		return nil, err
	}
	pending := totalsOrZero(byStatus[entity.LabStatusPending])
	passed := totalsOrZero(byStatus[entity.LabStatusPassed])
	failed := totalsOrZero(byStatus[entity.LabStatusFailed])
	return &dto.LabTestingCountsResponse{
		PendingCount:       pending.ActiveBatches,
		TotalPendingWeight: pending.ActiveQuantity,
		PassedCount:        passed.ActiveBatches,
		TotalPassedWeight:  passed.ActiveQuantity,
		FailedCount:        failed.ActiveBatches,
		TotalFailedWeight:  failed.ActiveQuantity,
		DestroyedCount:     t.DestroyedBatches,
	}, nil
}

func (uc *CountsUseCase) PackagingCounts(ctx context.Context) (*dto.PackagingCountsResponse, error) {
	t, err := uc.batches.Totals(ctx, entity.StagePackaging, repository.BatchFilter{})
	if err != nil {
		return nil, err
	}
	byType, err := uc.batches.TotalsByProductType(ctx, entity.StagePackaging)
	if err != nil {
		return nil, err
	}
	mari := totalsOrZero(byType[entity.ProductTypeMarijuana])
	hash := totalsOrZero(byType[entity.ProductTypeHashish])
	// Los lotes de empaque se cuentan en envases; el peso activo se deriva
	// de envases por peso de envase.
	return &dto.PackagingCountsResponse{
		ActiveCount:       t.ActiveBatches,
		TotalActiveWeight: t.ActivePackedWeight,
		TotalActiveUnits:  t.ActiveUnits,
		MarijuanaCount:    mari.ActiveBatches,
		MarijuanaWeight:   mari.ActivePackedWeight,
		MarijuanaUnits:    mari.ActiveUnits,
		HashishCount:      hash.ActiveBatches,
		HashishWeight:     hash.ActivePackedWeight,
		HashishUnits:      hash.ActiveUnits,
	}, nil
}

func totalsOrZero(t *repository.StageTotals) *repository.StageTotals {
	if t == nil {
		return &repository.StageTotals{}
	}
	return t
}
