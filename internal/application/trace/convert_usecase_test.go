package trace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubverde/trazabilidad-api/internal/application/dto"
	"github.com/clubverde/trazabilidad-api/internal/domain"
	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
)

func TestFullPipeline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mother := f.mustSeed(t, "Critical Kush", 3)
	assert.Equal(t, string(entity.StageMotherPlant), mother.Stage)
	assert.Len(t, f.activeUnits(mother.ID), 3)

	// Propagación: las madres siguen vivas después de sacar esquejes.
	cuttings := f.mustPropagate(t, mother.ID, 10).Batch
	assert.Equal(t, string(entity.StageCutting), cuttings.Stage)
	assert.Equal(t, mother.ID, cuttings.ParentBatchID)
	assert.Equal(t, "Critical Kush", cuttings.Strain)
	motherNow := f.batch(t, mother.ID)
	assert.True(t, motherNow.ActiveQuantity.Equal(d("3")))
	assert.True(t, motherNow.ConvertedQuantity.IsZero())

	blooming := f.mustBloom(t, cuttings.ID, f.activeUnits(cuttings.ID)[:8]).Batch
	assert.Equal(t, string(entity.StageBlooming), blooming.Stage)
	assert.True(t, blooming.TotalQuantity.Equal(d("8")))
	cuttingsNow := f.batch(t, cuttings.ID)
	assert.True(t, cuttingsNow.ActiveQuantity.Equal(d("2")))
	assert.True(t, cuttingsNow.ConvertedQuantity.Equal(d("8")))

	// Cosecha: frontera de unidades a gramos.
	drying := f.mustHarvest(t, blooming.ID, f.activeUnits(blooming.ID)[:6], "1200").Batch
	assert.Equal(t, string(entity.StageDrying), drying.Stage)
	assert.True(t, drying.TotalQuantity.Equal(d("1200")))
	require.NotNil(t, drying.InitialWeight)
	assert.True(t, drying.InitialWeight.Equal(d("1200")))

	// Secado -> procesamiento: la merma queda asentada como destrucción.
	processing := f.mustProcess(t, drying.ID, "300", entity.ProductTypeMarijuana).Batch
	assert.True(t, processing.TotalQuantity.Equal(d("300")))
	assert.Equal(t, entity.ProductTypeMarijuana, processing.ProductType)
	dryingNow := f.batch(t, drying.ID)
	assert.True(t, dryingNow.ActiveQuantity.IsZero())
	assert.True(t, dryingNow.DestroyedQuantity.Equal(d("900")))
	assert.True(t, dryingNow.ConvertedQuantity.Equal(d("300")))
	recs, err := f.store.DestructionsByBatch(ctx, drying.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, entity.ReasonDryingLoss, recs[0].Reason)
	assert.True(t, recs[0].Quantity.Equal(d("900")))

	lab := f.mustSendToLab(t, processing.ID, "280", "5").Batch
	assert.Equal(t, entity.LabStatusPending, lab.LabStatus)
	f.mustPassLab(t, lab.ID)

	// Empaque: la muestra se consume antes de envasar el resto.
	packaging := f.mustPackage(t, lab.ID, 55, "5").Batch
	assert.Equal(t, 55, packaging.UnitCount)
	assert.True(t, packaging.TotalQuantity.Equal(d("55")), "el empaque se cuenta en envases")
	require.NotNil(t, packaging.OutputWeight)
	assert.True(t, packaging.OutputWeight.Equal(d("275")), "los gramos envasados quedan como peso de salida")
	assert.Len(t, f.activeUnits(packaging.ID), 55)
	labNow := f.batch(t, lab.ID)
	assert.True(t, labNow.DestroyedQuantity.Equal(d("5")))
	assert.True(t, labNow.ConvertedQuantity.Equal(d("275")))

	for _, id := range []string{mother.ID, cuttings.ID, blooming.ID, drying.ID, processing.ID, lab.ID, packaging.ID} {
		f.requireConserved(t, id)
	}

	// Cada conversión dejó su asiento; las destrucciones internas también.
	conversions, err := f.store.ListConversions(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, conversions, 6)
	destructions, err := f.store.ListDestructions(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, destructions, 3) // merma secado, merma procesamiento, muestra
}

// Secado -> procesamiento toma el peso seco medido de final_weight; la UI
// de procesamiento también lo manda como input_weight y ambos valen.
func TestProcessDryWeightFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mother := f.mustSeed(t, "Amnesia Haze", 2)
	cuttings := f.mustPropagate(t, mother.ID, 4).Batch
	blooming := f.mustBloom(t, cuttings.ID, f.activeUnits(cuttings.ID)).Batch
	drying := f.mustHarvest(t, blooming.ID, f.activeUnits(blooming.ID), "500").Batch

	resp, err := f.convert.Convert(ctx, drying.ID, dto.ConvertRequest{
		MemberID:    f.member.ID,
		FinalWeight: dp("180"),
		ProductType: entity.ProductTypeMarijuana,
	})
	require.NoError(t, err)
	assert.True(t, resp.Batch.TotalQuantity.Equal(d("180")))
	dryingNow := f.batch(t, drying.ID)
	assert.True(t, dryingNow.DestroyedQuantity.Equal(d("320")), "la merma sale de final_weight")

	motherB := f.mustSeed(t, "Amnesia Haze", 2)
	cuttingsB := f.mustPropagate(t, motherB.ID, 4).Batch
	bloomingB := f.mustBloom(t, cuttingsB.ID, f.activeUnits(cuttingsB.ID)).Batch
	dryingB := f.mustHarvest(t, bloomingB.ID, f.activeUnits(bloomingB.ID), "500").Batch

	respB, err := f.convert.Convert(ctx, dryingB.ID, dto.ConvertRequest{
		MemberID:    f.member.ID,
		InputWeight: dp("200"),
		ProductType: entity.ProductTypeMarijuana,
	})
	require.NoError(t, err)
	assert.True(t, respB.Batch.TotalQuantity.Equal(d("200")))
}

func TestConvertRejectsStageSkips(t *testing.T) {
	f := newFixture(t)
	mother := f.mustSeed(t, "Amnesia Haze", 2)

	// La etapa destino sale de la tabla de adyacencia, nunca del llamador:
	// una madre solo puede propagar esquejes, aunque el cuerpo traiga los
	// campos de una cosecha.
	resp := f.mustPropagate(t, mother.ID, 4)
	assert.Equal(t, string(entity.StageCutting), resp.Batch.Stage)
}

func TestConvertPackagingGoesThroughDistribute(t *testing.T) {
	f := newFixture(t)
	packaging := f.growToPackaging(t)

	_, err := f.convert.Convert(context.Background(), packaging.ID, dto.ConvertRequest{
		MemberID: f.member.ID,
		Quantity: 3,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestConvertDistributionIsFinal(t *testing.T) {
	f := newFixture(t)
	packaging := f.growToPackaging(t)
	recipient := f.newMember(t, "socio@clubverde.example", entity.RoleDispensa)

	resp, err := f.convert.Distribute(context.Background(), dto.DistributeRequest{
		UnitIDs:     f.activeUnits(packaging.ID)[:2],
		RecipientID: recipient.ID,
		MemberID:    f.member.ID,
	})
	require.NoError(t, err)
	require.Len(t, resp.Distributions, 1)

	_, err = f.convert.Convert(context.Background(), resp.Distributions[0].ID, dto.ConvertRequest{
		MemberID: f.member.ID,
		Quantity: 1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

// Escenario de esquejes: de 100, convertir 40, destruir 10, intentar 55
// (imposible, quedan 50) y cerrar con los 50 exactos.
func TestCuttingConservationScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mother := f.mustSeed(t, "White Widow", 5)
	cuttings := f.mustPropagate(t, mother.ID, 100).Batch
	ids := f.activeUnits(cuttings.ID)
	require.Len(t, ids, 100)

	f.mustBloom(t, cuttings.ID, ids[:40])
	b := f.batch(t, cuttings.ID)
	assert.True(t, b.ActiveQuantity.Equal(d("60")))

	_, err := f.destroy.Destroy(ctx, cuttings.ID, dto.DestroyRequest{
		Reason:        "plaga de araña roja",
		DestroyedByID: f.member.ID,
		CuttingIDs:    ids[40:50],
	})
	require.NoError(t, err)
	b = f.batch(t, cuttings.ID)
	assert.True(t, b.ActiveQuantity.Equal(d("50")))

	// 55 ids incluyen 5 ya destruidos: la conversión se rechaza entera.
	_, err = f.convert.Convert(ctx, cuttings.ID, dto.ConvertRequest{
		MemberID:   f.member.ID,
		CuttingIDs: ids[45:100],
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyDestroyed)
	b = f.batch(t, cuttings.ID)
	assert.True(t, b.ActiveQuantity.Equal(d("50")), "el intento fallido no debe mover cantidades")

	f.mustBloom(t, cuttings.ID, ids[50:100])
	b = f.batch(t, cuttings.ID)
	assert.True(t, b.ActiveQuantity.IsZero())
	assert.True(t, b.DestroyedQuantity.Equal(d("10")))
	assert.True(t, b.ConvertedQuantity.Equal(d("90")))
	assert.True(t, b.IsTerminal())
	f.requireConserved(t, cuttings.ID)
}

// Escenario de laboratorio: 500 g analizados con muestra de 20 g terminan en
// 480 g envasados, 20 g destruidos, 0 g activos.
func TestLabSampleScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mother := f.mustSeed(t, "Gorilla Glue", 2)
	cuttings := f.mustPropagate(t, mother.ID, 6).Batch
	blooming := f.mustBloom(t, cuttings.ID, f.activeUnits(cuttings.ID)[:4]).Batch
	drying := f.mustHarvest(t, blooming.ID, f.activeUnits(blooming.ID), "1000").Batch
	processing := f.mustProcess(t, drying.ID, "520", entity.ProductTypeHashish).Batch
	lab := f.mustSendToLab(t, processing.ID, "500", "20").Batch
	f.mustPassLab(t, lab.ID)

	packaging := f.mustPackage(t, lab.ID, 96, "5").Batch
	assert.True(t, packaging.TotalQuantity.Equal(d("96")))
	require.NotNil(t, packaging.OutputWeight)
	assert.True(t, packaging.OutputWeight.Equal(d("480")))

	labNow := f.batch(t, lab.ID)
	assert.True(t, labNow.ActiveQuantity.IsZero())
	assert.True(t, labNow.DestroyedQuantity.Equal(d("20")))
	assert.True(t, labNow.ConvertedQuantity.Equal(d("480")))
	f.requireConserved(t, lab.ID)

	recs, err := f.store.DestructionsByBatch(ctx, lab.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, entity.ReasonLabSample, recs[0].Reason)
	assert.True(t, recs[0].Quantity.Equal(d("20")))

	// El asiento de conversión registra los gramos movidos, en la medida
	// del lote de laboratorio.
	convs, err := f.store.ConversionsByBatch(ctx, lab.ID)
	require.NoError(t, err)
	require.Len(t, convs, 2) // entrada desde procesamiento y salida a empaque
	var sampled *entity.ConversionRecord
	for _, c := range convs {
		if c.ConversionType == entity.ConversionSampled {
			sampled = c
		}
	}
	require.NotNil(t, sampled)
	assert.True(t, sampled.QuantityMoved.Equal(d("480")))
}

func TestPackagingRequiresPassedLab(t *testing.T) {
	f := newFixture(t)
	mother := f.mustSeed(t, "Jack Herer", 2)
	cuttings := f.mustPropagate(t, mother.ID, 4).Batch
	blooming := f.mustBloom(t, cuttings.ID, f.activeUnits(cuttings.ID)).Batch
	drying := f.mustHarvest(t, blooming.ID, f.activeUnits(blooming.ID), "800").Batch
	processing := f.mustProcess(t, drying.ID, "200", entity.ProductTypeMarijuana).Batch
	lab := f.mustSendToLab(t, processing.ID, "190", "5").Batch

	// Pendiente y reprobado bloquean por igual.
	_, err := f.convert.Convert(context.Background(), lab.ID, dto.ConvertRequest{
		MemberID:  f.member.ID,
		UnitCount: 37,
	})
	assert.ErrorIs(t, err, domain.ErrLabNotPassed)

	_, err = f.lab.UpdateResults(context.Background(), lab.ID, dto.UpdateLabResultsRequest{Status: entity.LabStatusFailed})
	require.NoError(t, err)
	_, err = f.convert.Convert(context.Background(), lab.ID, dto.ConvertRequest{
		MemberID:  f.member.ID,
		UnitCount: 37,
	})
	assert.ErrorIs(t, err, domain.ErrLabNotPassed)
}

// Finalización parcial: la muestra de laboratorio ya quedó destruida y
// asentada cuando el paso de conversión falla. El estado intermedio es
// válido, auditado y visible para el llamador.
func TestPartialCompletionKeepsSampleDestruction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mother := f.mustSeed(t, "Northern Lights", 2)
	cuttings := f.mustPropagate(t, mother.ID, 4).Batch
	blooming := f.mustBloom(t, cuttings.ID, f.activeUnits(cuttings.ID)).Batch
	drying := f.mustHarvest(t, blooming.ID, f.activeUnits(blooming.ID), "900").Batch
	processing := f.mustProcess(t, drying.ID, "300", entity.ProductTypeMarijuana).Batch
	lab := f.mustSendToLab(t, processing.ID, "280", "10").Batch
	f.mustPassLab(t, lab.ID)

	f.store.failCreates = 1 // el alta del lote de empaque fallará
	_, err := f.convert.Convert(ctx, lab.ID, dto.ConvertRequest{
		MemberID:   f.member.ID,
		UnitCount:  54,
		UnitWeight: dp("5"),
	})
	require.Error(t, err)

	var partial *PartialError
	require.True(t, errors.As(err, &partial), "la falla debe reportarse como finalización parcial")
	require.NotNil(t, partial.Destruction)
	assert.Equal(t, entity.ReasonLabSample, partial.Destruction.Reason)
	assert.True(t, partial.Destruction.Quantity.Equal(d("10")))
	assert.ErrorIs(t, err, errBoom)

	// La destrucción quedó comprometida; la conversión no.
	labNow := f.batch(t, lab.ID)
	assert.True(t, labNow.ActiveQuantity.Equal(d("270")))
	assert.True(t, labNow.DestroyedQuantity.Equal(d("10")))
	assert.True(t, labNow.ConvertedQuantity.IsZero())
	f.requireConserved(t, lab.ID)
	recs, err := f.store.DestructionsByBatch(ctx, lab.ID)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	// Reintentar la operación completa (sin muestra restante no hay segundo
	// asiento: SampleWeight ya se consumió una vez y el lote lo refleja).
	resp, err := f.convert.Convert(ctx, lab.ID, dto.ConvertRequest{
		MemberID:   f.member.ID,
		UnitCount:  54,
		UnitWeight: dp("5"),
	})
	require.NoError(t, err)
	assert.True(t, resp.Batch.TotalQuantity.Equal(d("54")))
	require.NotNil(t, resp.Batch.OutputWeight)
	assert.True(t, resp.Batch.OutputWeight.Equal(d("270")))
}

func TestConvertRetriesOnConflict(t *testing.T) {
	f := newFixture(t)
	mother := f.mustSeed(t, "Blue Dream", 2)
	cuttings := f.mustPropagate(t, mother.ID, 4).Batch
	blooming := f.mustBloom(t, cuttings.ID, f.activeUnits(cuttings.ID)).Batch
	drying := f.mustHarvest(t, blooming.ID, f.activeUnits(blooming.ID), "600").Batch

	// Dos conflictos consecutivos caben dentro del presupuesto de reintentos.
	f.store.conflictNext = 2
	resp, err := f.convert.Convert(context.Background(), drying.ID, dto.ConvertRequest{
		MemberID:    f.member.ID,
		FinalWeight: dp("600"), // sin merma: un solo ApplyDelta por intento
		ProductType: entity.ProductTypeMarijuana,
	})
	require.NoError(t, err)
	assert.True(t, resp.Batch.TotalQuantity.Equal(d("600")))
}

func TestConvertGivesUpAfterRetryBudget(t *testing.T) {
	f := newFixture(t)
	mother := f.mustSeed(t, "Blue Dream", 2)
	cuttings := f.mustPropagate(t, mother.ID, 4).Batch
	blooming := f.mustBloom(t, cuttings.ID, f.activeUnits(cuttings.ID)).Batch
	drying := f.mustHarvest(t, blooming.ID, f.activeUnits(blooming.ID), "600").Batch

	f.store.conflictNext = DefaultConvertRetries
	_, err := f.convert.Convert(context.Background(), drying.ID, dto.ConvertRequest{
		MemberID:    f.member.ID,
		FinalWeight: dp("600"),
		ProductType: entity.ProductTypeMarijuana,
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	// Nada se movió.
	b := f.batch(t, drying.ID)
	assert.True(t, b.ActiveQuantity.Equal(d("600")))
	f.requireConserved(t, drying.ID)
}

func TestConvertValidatesActor(t *testing.T) {
	f := newFixture(t)
	mother := f.mustSeed(t, "Critical Kush", 2)

	_, err := f.convert.Convert(context.Background(), mother.ID, dto.ConvertRequest{
		MemberID: uuid.New().String(),
		Quantity: 2,
	})
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)

	_, err = f.convert.Convert(context.Background(), mother.ID, dto.ConvertRequest{
		MemberID: f.member.ID,
		RoomID:   uuid.New().String(),
		Quantity: 2,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConvertMeasuredOutputCannotGrow(t *testing.T) {
	f := newFixture(t)
	mother := f.mustSeed(t, "Critical Kush", 2)
	cuttings := f.mustPropagate(t, mother.ID, 4).Batch
	blooming := f.mustBloom(t, cuttings.ID, f.activeUnits(cuttings.ID)).Batch
	drying := f.mustHarvest(t, blooming.ID, f.activeUnits(blooming.ID), "500").Batch

	// El material se encoge al secarse, nunca crece.
	_, err := f.convert.Convert(context.Background(), drying.ID, dto.ConvertRequest{
		MemberID:    f.member.ID,
		FinalWeight: dp("501"),
		ProductType: entity.ProductTypeMarijuana,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// newMember da de alta un miembro adicional para pruebas de distribución.
func (f *fixture) newMember(t *testing.T, email, role string) *entity.Member {
	t.Helper()
	m := &entity.Member{
		ID:        uuid.New().String(),
		Email:     email,
		Role:      role,
		Status:    "active",
		CreatedAt: time.Now(),
	}
	require.NoError(t, memMembers{f.store}.Create(context.Background(), m))
	return m
}
