package trace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clubverde/trazabilidad-api/internal/application/dto"
	"github.com/clubverde/trazabilidad-api/internal/domain"
	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
)

// Distribute entrega envases activos a un miembro receptor. Los envases
// pueden venir de varios lotes de empaque: cada lote se procesa como una
// operación independiente y reintentable (nunca una transacción que abarque
// varios lotes), así un fallo en un lote no revierte los demás.
func (uc *ConvertUseCase) Distribute(ctx context.Context, in dto.DistributeRequest) (*dto.DistributeResponse, error) {
	if _, err := uc.resolveMember(ctx, in.MemberID); err != nil {
		return nil, err
	}
	recipient, err := uc.members.GetByID(ctx, in.RecipientID)
	if err != nil {
		return nil, err
	}
	if recipient == nil {
		return nil, domain.ErrMemberNotFound
	}
	if len(in.UnitIDs) == 0 {
		return nil, domain.ErrInvalidInput
	}

	// Resolver a qué lote pertenece cada envase solicitado.
	available, err := uc.units.AvailablePackagingUnits(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]string, len(available)) // unitID -> batchID
	for _, u := range available {
		byID[u.Unit.ID] = u.BatchID
	}
	perBatch := make(map[string][]string)
	for _, id := range in.UnitIDs {
		batchID, ok := byID[id]
		if !ok {
			return nil, domain.ErrNotFound // no existe o ya no está disponible
		}
		perBatch[batchID] = append(perBatch[batchID], id)
	}

	resp := &dto.DistributeResponse{}
	for batchID, ids := range perBatch {
		dist, err := uc.distributeFromBatch(ctx, batchID, ids, in.RecipientID, in.MemberID)
		if err != nil {
			resp.Errors = append(resp.Errors, fmt.Sprintf("lote %s: %v", batchID, err))
			continue
		}
		resp.Distributions = append(resp.Distributions, dto.BatchFromEntity(dist))
		resp.CreatedCount += len(ids)
	}
	if len(resp.Distributions) == 0 && len(resp.Errors) > 0 {
		return resp, domain.ErrConflict
	}
	return resp, nil
}

// distributeFromBatch convierte los envases de UN lote de empaque en un
// registro de distribución, con reintento ante conflicto optimista.
func (uc *ConvertUseCase) distributeFromBatch(ctx context.Context, batchID string, unitIDs []string, recipientID, memberID string) (*entity.Batch, error) {
	var lastErr error
	for attempt := 0; attempt < uc.retries; attempt++ {
		dist, err := uc.distributeOnce(ctx, batchID, unitIDs, recipientID, memberID)
		if err == nil {
			return dist, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (uc *ConvertUseCase) distributeOnce(ctx context.Context, batchID string, unitIDs []string, recipientID, memberID string) (*entity.Batch, error) {
	var target *entity.Batch
	err := uc.txRunner.Run(ctx, func(r Repos) error {
		source, err := r.Batches.GetByID(ctx, batchID)
		if err != nil {
			return err
		}
		if source == nil {
			return domain.ErrNotFound
		}
		if source.Stage != entity.StagePackaging {
			return domain.ErrInvalidTransition
		}
		if err := uc.checkUnitsActive(ctx, r, batchID, unitIDs); err != nil {
			return err
		}

		now := time.Now()
		n := int64(len(unitIDs))
		weight := source.UnitWeight.Mul(decimal.NewFromInt(n))

		// El registro de distribución vive como lote terminal por peso.
		target = uc.newChild(source, entity.StageDistribution, weight, "", memberID, now)
		target.UnitCount = len(unitIDs)
		target.UnitWeight = source.UnitWeight
		target.RecipientID = recipientID
		if err := r.Batches.Create(ctx, target); err != nil {
			return err
		}
		if _, err := uc.markConvertedAndRecount(ctx, r, source, unitIDs, target.ID, now); err != nil {
			return err
		}
		rec := &entity.ConversionRecord{
			ID:             uuid.New().String(),
			SourceBatchID:  source.ID,
			TargetBatchID:  target.ID,
			ConversionType: entity.ConversionCount,
			QuantityMoved:  decimal.NewFromInt(n),
			PerformedBy:    memberID,
			PerformedAt:    now,
		}
		return r.Ledger.AppendConversion(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	return target, nil
}
