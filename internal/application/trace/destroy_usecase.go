package trace

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clubverde/trazabilidad-api/internal/application/dto"
	"github.com/clubverde/trazabilidad-api/internal/domain"
	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
	"github.com/clubverde/trazabilidad-api/internal/domain/repository"
)

// DestroyUseCase asienta destrucciones parciales o totales de un lote.
// Nunca borra nada: marca unidades, decrementa la cantidad activa bajo
// concurrencia optimista y agrega el asiento al ledger.
type DestroyUseCase struct {
	txRunner TxRunner
	members  repository.MemberRepository
	retries  int
}

// NewDestroyUseCase construye el caso de uso. retries acota los reintentos
// ante conflicto optimista (<=0 usa DefaultConvertRetries).
func NewDestroyUseCase(txRunner TxRunner, members repository.MemberRepository, retries int) *DestroyUseCase {
	if retries <= 0 {
		retries = DefaultConvertRetries
	}
	return &DestroyUseCase{txRunner: txRunner, members: members, retries: retries}
}

// Destroy ejecuta una destrucción autorizada sobre un lote. Para etapas con
// seguimiento por unidad el cuerpo trae ids de unidades; para etapas de peso,
// una cantidad en gramos. El motivo y el miembro autorizante son obligatorios.
func (uc *DestroyUseCase) Destroy(ctx context.Context, batchID string, in dto.DestroyRequest) (*dto.DestroyResponse, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, domain.ErrInvalidInput
	}
	member, err := uc.members.GetByID(ctx, in.DestroyedByID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, domain.ErrMemberNotFound
	}

	unitIDs := firstNonEmpty(in.PlantIDs, in.CuttingIDs, in.UnitIDs)

	var lastErr error
	for attempt := 0; attempt < uc.retries; attempt++ {
		batch, rec, err := uc.destroyOnce(ctx, batchID, unitIDs, in.Quantity, reason, member.ID)
		if err == nil {
			return &dto.DestroyResponse{
				Batch:       dto.BatchFromEntity(batch),
				Destruction: dto.DestructionFromEntity(rec),
			}, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// destroyOnce un intento completo dentro de una transacción. Un conflicto
// optimista aborta la transacción entera; el llamador reintenta desde una
// lectura fresca.
func (uc *DestroyUseCase) destroyOnce(
	ctx context.Context,
	batchID string,
	unitIDs []string,
	quantity *decimal.Decimal,
	reason, authorizedBy string,
) (*entity.Batch, *entity.DestructionRecord, error) {
	var (
		updated *entity.Batch
		rec     *entity.DestructionRecord
	)
	err := uc.txRunner.Run(ctx, func(r Repos) error {
		batch, err := r.Batches.GetByID(ctx, batchID)
		if err != nil {
			return err
		}
		if batch == nil {
			return domain.ErrNotFound
		}

		now := time.Now()
		var qty decimal.Decimal

		if batch.Stage.UnitGranular() {
			if len(unitIDs) == 0 {
				return domain.ErrInvalidInput
			}
			units, err := r.Units.GetByIDs(ctx, batchID, unitIDs)
			if err != nil {
				return err
			}
			if len(units) != len(unitIDs) {
				return domain.ErrNotFound // alguna unidad no existe o es de otro lote
			}
			for _, u := range units {
				if u.IsDestroyed {
					return domain.ErrAlreadyDestroyed
				}
				if u.IsConverted {
					return domain.ErrAlreadyConverted
				}
			}
			marked, err := r.Units.MarkDestroyed(ctx, batchID, unitIDs, reason, authorizedBy, now)
			if err != nil {
				return err
			}
			if marked != int64(len(unitIDs)) {
				// Otra transacción marcó alguna unidad entre la lectura y el update.
				return domain.ErrConflict
			}
			counts, err := r.Units.CountByBatch(ctx, batchID)
			if err != nil {
				return err
			}
			// Los contadores del lote siempre se derivan del estado de sus unidades.
			updated, err = r.Batches.SetQuantities(ctx, batchID, batch.Version,
				decimal.NewFromInt(counts.Active),
				decimal.NewFromInt(counts.Destroyed),
				decimal.NewFromInt(counts.Converted),
			)
			if err != nil {
				return err
			}
			qty = decimal.NewFromInt(int64(len(unitIDs)))
		} else {
			if quantity == nil || !quantity.IsPositive() {
				return domain.ErrInvalidInput
			}
			qty = *quantity
			if qty.GreaterThan(batch.ActiveQuantity) {
				return domain.ErrInsufficientQuantity
			}
			updated, err = r.Batches.ApplyDelta(ctx, batchID, batch.Version, qty, decimal.Zero)
			if err != nil {
				return err
			}
		}

		rec = &entity.DestructionRecord{
			ID:           uuid.New().String(),
			BatchID:      batchID,
			UnitIDs:      unitIDs,
			Quantity:     qty,
			Reason:       reason,
			AuthorizedBy: authorizedBy,
			DestroyedAt:  now,
		}
		return r.Ledger.AppendDestruction(ctx, rec)
	})
	if err != nil {
		return nil, nil, err
	}
	return updated, rec, nil
}

// destroyForTransition asiento interno con motivo fijo (merma de secado o
// procesamiento, muestra de laboratorio). Solo cantidades, nunca unidades, y
// siempre como paso visible del ledger previo a la conversión.
func (uc *DestroyUseCase) destroyForTransition(
	ctx context.Context,
	batchID string,
	quantity decimal.Decimal,
	reason, authorizedBy string,
) (*entity.DestructionRecord, error) {
	var lastErr error
	for attempt := 0; attempt < uc.retries; attempt++ {
		_, rec, err := uc.destroyOnce(ctx, batchID, nil, &quantity, reason, authorizedBy)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// firstNonEmpty devuelve la primera lista con elementos (plant_ids,
// cutting_ids o unit_ids según la etapa; la UI usa un solo nombre por vista).
func firstNonEmpty(lists ...[]string) []string {
	for _, l := range lists {
		if len(l) > 0 {
			return l
		}
	}
	return nil
}
