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
	"github.com/clubverde/trazabilidad-api/internal/domain/pipeline"
	"github.com/clubverde/trazabilidad-api/internal/domain/repository"
)

// ConvertUseCase ejecuta conversiones entre etapas adyacentes del pipeline:
// decrementa el origen bajo concurrencia optimista, crea el lote destino,
// enlaza el linaje y asienta el registro de conversión, todo en una
// transacción por paso. Las políticas con pasos previos (merma, muestra de
// laboratorio) los asientan como destrucciones propias antes de convertir.
type ConvertUseCase struct {
	txRunner  TxRunner
	batches   repository.BatchRepository
	units     repository.UnitRepository
	members   repository.MemberRepository
	rooms     repository.RoomRepository
	ledger    repository.LedgerRepository
	charges   ChargeNumberGenerator
	destroyer *DestroyUseCase
	retries   int
}

// NewConvertUseCase construye el motor de transición.
func NewConvertUseCase(
	txRunner TxRunner,
	batches repository.BatchRepository,
	units repository.UnitRepository,
	members repository.MemberRepository,
	rooms repository.RoomRepository,
	ledger repository.LedgerRepository,
	charges ChargeNumberGenerator,
	destroyer *DestroyUseCase,
	retries int,
) *ConvertUseCase {
	if retries <= 0 {
		retries = DefaultConvertRetries
	}
	return &ConvertUseCase{
		txRunner:  txRunner,
		batches:   batches,
		units:     units,
		members:   members,
		rooms:     rooms,
		ledger:    ledger,
		charges:   charges,
		destroyer: destroyer,
		retries:   retries,
	}
}

// PartialError señala que un paso previo de la conversión (merma o muestra)
// ya quedó comprometido en el ledger pero el paso de conversión falló. La
// destrucción es real y auditada; no se revierte. Una compensación, si se
// desea, es una operación nueva con su propio asiento.
type PartialError struct {
	Destruction *entity.DestructionRecord
	Err         error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("conversión incompleta: la destrucción de %s quedó asentada pero la conversión falló: %v",
		e.Destruction.Quantity, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// Convert convierte (parte de) la cantidad activa del lote origen hacia la
// etapa sucesora definida por la tabla de adyacencia. La etapa destino nunca
// la elige el llamador.
func (uc *ConvertUseCase) Convert(ctx context.Context, sourceID string, in dto.ConvertRequest) (*dto.ConvertResponse, error) {
	member, err := uc.resolveMember(ctx, in.MemberID)
	if err != nil {
		return nil, err
	}
	if in.RoomID != "" {
		room, err := uc.rooms.GetByID(ctx, in.RoomID)
		if err != nil {
			return nil, err
		}
		if room == nil {
			return nil, domain.ErrNotFound
		}
	}

	source, err := uc.batches.GetByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, domain.ErrNotFound
	}
	if source.Stage == entity.StagePackaging {
		// Empaque -> distribución va por Distribute (POST /distributions/),
		// que acepta envases de varios lotes a la vez.
		return nil, domain.ErrInvalidTransition
	}
	tr, err := pipeline.Next(source.Stage)
	if err != nil {
		return nil, err
	}

	// Merma y muestra se asientan como destrucción propia, comprometida
	// antes de la conversión: quedan dos asientos separados en el ledger.
	// Si la conversión posterior falla, el estado parcial es un estado
	// válido y auditado.
	var preStep *entity.DestructionRecord
	switch {
	case tr.Lossy():
		preStep, err = uc.bookProcessLoss(ctx, source, in, member.ID)
	case tr.Type == entity.ConversionSampled:
		preStep, err = uc.bookLabSample(ctx, source, member.ID)
	}
	if err != nil {
		return nil, err
	}

	resp, err := uc.convertWithRetry(ctx, sourceID, tr, in, member.ID)
	if err != nil {
		if preStep != nil {
			return nil, &PartialError{Destruction: preStep, Err: err}
		}
		return nil, err
	}
	return resp, nil
}

// bookProcessLoss asienta la merma de peso (secado o procesamiento) como
// destrucción con motivo fijo. El peso medido de salida nunca puede superar
// la cantidad activa: el material se encoge, jamás crece.
func (uc *ConvertUseCase) bookProcessLoss(ctx context.Context, source *entity.Batch, in dto.ConvertRequest, memberID string) (*entity.DestructionRecord, error) {
	measured := measuredOutput(source.Stage, in)
	if measured == nil || !measured.IsPositive() {
		return nil, domain.ErrInvalidInput
	}
	if measured.GreaterThan(source.ActiveQuantity) {
		return nil, domain.ErrInvalidInput
	}
	waste := source.ActiveQuantity.Sub(*measured)
	if waste.IsZero() {
		return nil, nil // sin merma, nada que asentar
	}
	reason := entity.ReasonDryingLoss
	if source.Stage == entity.StageProcessing {
		reason = entity.ReasonProcessingLoss
	}
	return uc.destroyer.destroyForTransition(ctx, source.ID, waste, reason, memberID)
}

// bookLabSample destruye la muestra consumida por el análisis antes de
// permitir la conversión a empaque. Exige resultado de laboratorio aprobado.
// Idempotente: si el asiento de muestra ya existe (reintento tras una
// finalización parcial), no se consume por segunda vez.
func (uc *ConvertUseCase) bookLabSample(ctx context.Context, source *entity.Batch, memberID string) (*entity.DestructionRecord, error) {
	if source.LabStatus != entity.LabStatusPassed {
		return nil, domain.ErrLabNotPassed
	}
	if !source.SampleWeight.IsPositive() {
		return nil, nil // lote sin muestra declarada
	}
	prev, err := uc.ledger.DestructionsByBatch(ctx, source.ID)
	if err != nil {
		return nil, err
	}
	for _, rec := range prev {
		if rec.Reason == entity.ReasonLabSample {
			return nil, nil
		}
	}
	if source.SampleWeight.GreaterThan(source.ActiveQuantity) {
		return nil, domain.ErrInsufficientQuantity
	}
	return uc.destroyer.destroyForTransition(ctx, source.ID, source.SampleWeight, entity.ReasonLabSample, memberID)
}

// convertWithRetry reintenta la transacción de conversión completa desde una
// lectura fresca ante conflicto optimista, acotado por retries.
func (uc *ConvertUseCase) convertWithRetry(ctx context.Context, sourceID string, tr pipeline.Transition, in dto.ConvertRequest, memberID string) (*dto.ConvertResponse, error) {
	var lastErr error
	for attempt := 0; attempt < uc.retries; attempt++ {
		resp, err := uc.convertOnce(ctx, sourceID, tr, in, memberID)
		if err == nil {
			return resp, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// convertOnce un intento: una transacción que lee el origen, aplica la
// política del par de etapas, crea el destino y asienta la conversión.
func (uc *ConvertUseCase) convertOnce(ctx context.Context, sourceID string, tr pipeline.Transition, in dto.ConvertRequest, memberID string) (*dto.ConvertResponse, error) {
	var (
		target       *entity.Batch
		updatedSrc   *entity.Batch
		createdCount int
	)
	err := uc.txRunner.Run(ctx, func(r Repos) error {
		source, err := r.Batches.GetByID(ctx, sourceID)
		if err != nil {
			return err
		}
		if source == nil {
			return domain.ErrNotFound
		}
		// La etapa es inmutable, pero otra transacción pudo agotar el lote.
		if _, err := pipeline.Validate(source.Stage, tr.To); err != nil {
			return err
		}

		now := time.Now()
		switch tr.Type {
		case entity.ConversionPropagation:
			target, updatedSrc, createdCount, err = uc.propagate(ctx, r, source, in, memberID, now)
		case entity.ConversionCount:
			target, updatedSrc, createdCount, err = uc.convertUnits(ctx, r, source, tr, in, memberID, now)
		case entity.ConversionHarvest:
			target, updatedSrc, createdCount, err = uc.harvest(ctx, r, source, in, memberID, now)
		case entity.ConversionLossyWeight:
			target, updatedSrc, createdCount, err = uc.convertWholeWeight(ctx, r, source, tr, in, memberID, now)
		case entity.ConversionSampled:
			target, updatedSrc, createdCount, err = uc.packageRemainder(ctx, r, source, in, memberID, now)
		default:
			err = domain.ErrInvalidTransition
		}
		if err != nil {
			return err
		}

		rec := &entity.ConversionRecord{
			ID:             uuid.New().String(),
			SourceBatchID:  source.ID,
			TargetBatchID:  target.ID,
			ConversionType: tr.Type,
			QuantityMoved:  conversionQuantity(tr, target, createdCount),
			PerformedBy:    memberID,
			PerformedAt:    now,
		}
		return r.Ledger.AppendConversion(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	resp := &dto.ConvertResponse{
		Batch:        dto.BatchFromEntity(target),
		CreatedCount: createdCount,
	}
	if updatedSrc != nil {
		resp.SourceBatch = dto.BatchFromEntity(updatedSrc)
	}
	return resp, nil
}

// propagate madres -> esquejes: crea el lote de esquejes sin decrementar a
// las madres (siguen vivas). El linaje queda en ParentBatchID y el asiento.
func (uc *ConvertUseCase) propagate(ctx context.Context, r Repos, source *entity.Batch, in dto.ConvertRequest, memberID string, now time.Time) (*entity.Batch, *entity.Batch, int, error) {
	if in.Quantity <= 0 {
		return nil, nil, 0, domain.ErrInvalidInput
	}
	if source.ActiveQuantity.IsZero() {
		return nil, nil, 0, domain.ErrInsufficientQuantity // lote de madres agotado
	}
	n := in.Quantity
	target := uc.newChild(source, entity.StageCutting, decimal.NewFromInt(int64(n)), in.RoomID, memberID, now)
	if err := r.Batches.Create(ctx, target); err != nil {
		return nil, nil, 0, err
	}
	if err := uc.createUnits(ctx, r, target, n, now); err != nil {
		return nil, nil, 0, err
	}
	return target, source, n, nil
}

// convertUnits conservación exacta por unidades (esquejes -> floración).
func (uc *ConvertUseCase) convertUnits(ctx context.Context, r Repos, source *entity.Batch, tr pipeline.Transition, in dto.ConvertRequest, memberID string, now time.Time) (*entity.Batch, *entity.Batch, int, error) {
	ids := firstNonEmpty(in.CuttingIDs, in.PlantIDs)
	if len(ids) == 0 {
		return nil, nil, 0, domain.ErrInvalidInput
	}
	if err := uc.checkUnitsActive(ctx, r, source.ID, ids); err != nil {
		return nil, nil, 0, err
	}
	n := len(ids)
	target := uc.newChild(source, tr.To, decimal.NewFromInt(int64(n)), in.RoomID, memberID, now)
	if err := r.Batches.Create(ctx, target); err != nil {
		return nil, nil, 0, err
	}
	updatedSrc, err := uc.markConvertedAndRecount(ctx, r, source, ids, target.ID, now)
	if err != nil {
		return nil, nil, 0, err
	}
	if err := uc.createUnits(ctx, r, target, n, now); err != nil {
		return nil, nil, 0, err
	}
	return target, updatedSrc, n, nil
}

// harvest frontera unidades -> peso: plantas cosechadas salen del lote de
// floración por conteo; el lote de secado nace con el peso fresco medido.
func (uc *ConvertUseCase) harvest(ctx context.Context, r Repos, source *entity.Batch, in dto.ConvertRequest, memberID string, now time.Time) (*entity.Batch, *entity.Batch, int, error) {
	ids := firstNonEmpty(in.PlantIDs, in.CuttingIDs)
	if len(ids) == 0 || in.InitialWeight == nil || !in.InitialWeight.IsPositive() {
		return nil, nil, 0, domain.ErrInvalidInput
	}
	if err := uc.checkUnitsActive(ctx, r, source.ID, ids); err != nil {
		return nil, nil, 0, err
	}
	target := uc.newChild(source, entity.StageDrying, *in.InitialWeight, in.RoomID, memberID, now)
	target.InitialWeight = *in.InitialWeight
	if err := r.Batches.Create(ctx, target); err != nil {
		return nil, nil, 0, err
	}
	updatedSrc, err := uc.markConvertedAndRecount(ctx, r, source, ids, target.ID, now)
	if err != nil {
		return nil, nil, 0, err
	}
	return target, updatedSrc, len(ids), nil
}

// convertWholeWeight política con merma: toda la cantidad activa restante
// avanza como una unidad (la merma ya quedó asentada como destrucción).
func (uc *ConvertUseCase) convertWholeWeight(ctx context.Context, r Repos, source *entity.Batch, tr pipeline.Transition, in dto.ConvertRequest, memberID string, now time.Time) (*entity.Batch, *entity.Batch, int, error) {
	qty := source.ActiveQuantity
	if !qty.IsPositive() {
		return nil, nil, 0, domain.ErrInsufficientQuantity
	}
	target := uc.newChild(source, tr.To, qty, in.RoomID, memberID, now)
	switch tr.To {
	case entity.StageProcessing:
		if in.ProductType != entity.ProductTypeMarijuana && in.ProductType != entity.ProductTypeHashish {
			return nil, nil, 0, domain.ErrInvalidInput
		}
		target.ProductType = in.ProductType
		target.InputWeight = qty
	case entity.StageLabTesting:
		target.InputWeight = qty
		target.LabStatus = entity.LabStatusPending
		if in.SampleWeight != nil && in.SampleWeight.IsPositive() {
			if in.SampleWeight.GreaterThanOrEqual(qty) {
				return nil, nil, 0, domain.ErrInvalidInput
			}
			target.SampleWeight = *in.SampleWeight
		}
	}
	if err := r.Batches.Create(ctx, target); err != nil {
		return nil, nil, 0, err
	}
	updatedSrc, err := r.Batches.ApplyDelta(ctx, source.ID, source.Version, decimal.Zero, qty)
	if err != nil {
		return nil, nil, 0, err
	}
	return target, updatedSrc, 1, nil
}

// packageRemainder laboratorio -> empaque: la muestra ya fue destruida; el
// resto activo se envasa en unit_count envases de unit_weight gramos.
func (uc *ConvertUseCase) packageRemainder(ctx context.Context, r Repos, source *entity.Batch, in dto.ConvertRequest, memberID string, now time.Time) (*entity.Batch, *entity.Batch, int, error) {
	if source.LabStatus != entity.LabStatusPassed {
		return nil, nil, 0, domain.ErrLabNotPassed
	}
	qty := source.ActiveQuantity
	if !qty.IsPositive() {
		return nil, nil, 0, domain.ErrInsufficientQuantity
	}
	if in.UnitCount <= 0 {
		return nil, nil, 0, domain.ErrInvalidInput
	}
	unitWeight := qty.DivRound(decimal.NewFromInt(int64(in.UnitCount)), 4)
	if in.UnitWeight != nil && in.UnitWeight.IsPositive() {
		unitWeight = *in.UnitWeight
		// Los envases declarados no pueden contener más de lo que hay.
		if unitWeight.Mul(decimal.NewFromInt(int64(in.UnitCount))).GreaterThan(qty) {
			return nil, nil, 0, domain.ErrInvalidInput
		}
	}

	// El lote de empaque se contabiliza en envases; los gramos envasados
	// quedan registrados como peso de salida y en unit_weight.
	target := uc.newChild(source, entity.StagePackaging, decimal.NewFromInt(int64(in.UnitCount)), in.RoomID, memberID, now)
	target.UnitCount = in.UnitCount
	target.UnitWeight = unitWeight
	target.OutputWeight = qty
	if err := r.Batches.Create(ctx, target); err != nil {
		return nil, nil, 0, err
	}
	if err := uc.createUnits(ctx, r, target, in.UnitCount, now); err != nil {
		return nil, nil, 0, err
	}
	updatedSrc, err := r.Batches.ApplyDelta(ctx, source.ID, source.Version, decimal.Zero, qty)
	if err != nil {
		return nil, nil, 0, err
	}
	return target, updatedSrc, in.UnitCount, nil
}

// checkUnitsActive valida que todos los ids existan, pertenezcan al lote y
// sigan activos.
func (uc *ConvertUseCase) checkUnitsActive(ctx context.Context, r Repos, batchID string, ids []string) error {
	units, err := r.Units.GetByIDs(ctx, batchID, ids)
	if err != nil {
		return err
	}
	if len(units) != len(ids) {
		return domain.ErrNotFound
	}
	for _, u := range units {
		if u.IsDestroyed {
			return domain.ErrAlreadyDestroyed
		}
		if u.IsConverted {
			return domain.ErrAlreadyConverted
		}
	}
	return nil
}

// markConvertedAndRecount marca las unidades convertidas y deriva los
// contadores del lote origen desde el estado de sus unidades.
func (uc *ConvertUseCase) markConvertedAndRecount(ctx context.Context, r Repos, source *entity.Batch, ids []string, targetID string, now time.Time) (*entity.Batch, error) {
	marked, err := r.Units.MarkConverted(ctx, source.ID, ids, targetID, now)
	if err != nil {
		return nil, err
	}
	if marked != int64(len(ids)) {
		return nil, domain.ErrConflict
	}
	counts, err := r.Units.CountByBatch(ctx, source.ID)
	if err != nil {
		return nil, err
	}
	return r.Batches.SetQuantities(ctx, source.ID, source.Version,
		decimal.NewFromInt(counts.Active),
		decimal.NewFromInt(counts.Destroyed),
		decimal.NewFromInt(counts.Converted),
	)
}

// createUnits crea n unidades nuevas para el lote destino.
func (uc *ConvertUseCase) createUnits(ctx context.Context, r Repos, batch *entity.Batch, n int, now time.Time) error {
	units := make([]*entity.Unit, 0, n)
	for i := 0; i < n; i++ {
		units = append(units, &entity.Unit{
			ID:        uuid.New().String(),
			BatchID:   batch.ID,
			CreatedAt: now,
		})
	}
	return r.Units.CreateBulk(ctx, units)
}

// newChild arma el lote destino heredando variedad y tipo de producto.
func (uc *ConvertUseCase) newChild(source *entity.Batch, stage entity.Stage, total decimal.Decimal, roomID, memberID string, now time.Time) *entity.Batch {
	return &entity.Batch{
		ID:             uuid.New().String(),
		ChargeNumber:   uc.charges.Next(),
		Stage:          stage,
		ParentBatchID:  source.ID,
		Strain:         source.Strain,
		ProductType:    source.ProductType,
		RoomID:         roomID,
		TotalQuantity:  total,
		ActiveQuantity: total,
		CreatedAt:      now,
		CreatedBy:      memberID,
	}
}

func (uc *ConvertUseCase) resolveMember(ctx context.Context, id string) (*entity.Member, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}
	m, err := uc.members.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.ErrMemberNotFound
	}
	return m, nil
}

// measuredOutput peso medido de salida según la etapa origen: final_weight
// para secado, output_weight para procesamiento.
func measuredOutput(stage entity.Stage, in dto.ConvertRequest) *decimal.Decimal {
	switch stage {
	case entity.StageDrying:
		if in.FinalWeight != nil {
			return in.FinalWeight
		}
		return in.InputWeight // la UI de procesamiento lo llama input_weight
	case entity.StageProcessing:
		return in.OutputWeight
	}
	return nil
}

// conversionQuantity cantidad movida en la medida del lote ORIGEN.
func conversionQuantity(tr pipeline.Transition, target *entity.Batch, createdCount int) decimal.Decimal {
	switch tr.Type {
	case entity.ConversionPropagation, entity.ConversionCount, entity.ConversionHarvest:
		return decimal.NewFromInt(int64(createdCount))
	case entity.ConversionSampled:
		// El origen (laboratorio) se mide en gramos aunque el destino
		// se contabilice en envases.
		return target.OutputWeight
	default:
		return target.TotalQuantity
	}
}
