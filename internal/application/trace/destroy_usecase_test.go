package trace

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubverde/trazabilidad-api/internal/application/dto"
	"github.com/clubverde/trazabilidad-api/internal/domain"
)

func TestDestroyUnits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mother := f.mustSeed(t, "Critical Kush", 5)
	ids := f.activeUnits(mother.ID)

	resp, err := f.destroy.Destroy(ctx, mother.ID, dto.DestroyRequest{
		Reason:        "oídio en hojas",
		DestroyedByID: f.member.ID,
		PlantIDs:      ids[:2],
	})
	require.NoError(t, err)
	assert.True(t, resp.Batch.ActiveQuantity.Equal(d("3")))
	assert.True(t, resp.Batch.DestroyedQuantity.Equal(d("2")))
	require.NotNil(t, resp.Destruction)
	assert.Equal(t, "oídio en hojas", resp.Destruction.Reason)
	assert.Equal(t, f.member.ID, resp.Destruction.AuthorizedBy)
	assert.ElementsMatch(t, ids[:2], resp.Destruction.UnitIDs)
	f.requireConserved(t, mother.ID)

	// Las unidades quedan marcadas, nunca borradas.
	units, err := memUnits{f.store}.GetByIDs(ctx, mother.ID, ids[:2])
	require.NoError(t, err)
	require.Len(t, units, 2)
	for _, u := range units {
		assert.True(t, u.IsDestroyed)
		assert.Equal(t, f.member.ID, u.DestroyedBy)
	}
}

func TestDestroyRejectsRepeatedUnits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mother := f.mustSeed(t, "Amnesia Haze", 3)
	ids := f.activeUnits(mother.ID)

	_, err := f.destroy.Destroy(ctx, mother.ID, dto.DestroyRequest{
		Reason:        "hermafroditismo",
		DestroyedByID: f.member.ID,
		PlantIDs:      ids[:1],
	})
	require.NoError(t, err)

	_, err = f.destroy.Destroy(ctx, mother.ID, dto.DestroyRequest{
		Reason:        "hermafroditismo",
		DestroyedByID: f.member.ID,
		PlantIDs:      ids[:1],
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyDestroyed)

	b := f.batch(t, mother.ID)
	assert.True(t, b.DestroyedQuantity.Equal(d("1")), "el rechazo no debe duplicar el conteo")
	f.requireConserved(t, mother.ID)
}

// Los lotes de empaque se contabilizan en envases: destruir uno debe
// decrementar los contadores en unidades y conservar I1.
func TestDestroyPackagedUnit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	packaging := f.growToPackaging(t)
	ids := f.activeUnits(packaging.ID)

	resp, err := f.destroy.Destroy(ctx, packaging.ID, dto.DestroyRequest{
		Reason:        "envase con sello roto",
		DestroyedByID: f.member.ID,
		UnitIDs:       ids[:1],
	})
	require.NoError(t, err)
	assert.True(t, resp.Batch.ActiveQuantity.Equal(d("54")))
	assert.True(t, resp.Batch.DestroyedQuantity.Equal(d("1")))
	assert.Len(t, f.activeUnits(packaging.ID), 54)
	f.requireConserved(t, packaging.ID)
}

func TestDestroyQuantityOverActive(t *testing.T) {
	f := newFixture(t)
	mother := f.mustSeed(t, "White Widow", 2)
	cuttings := f.mustPropagate(t, mother.ID, 4).Batch
	blooming := f.mustBloom(t, cuttings.ID, f.activeUnits(cuttings.ID)).Batch
	drying := f.mustHarvest(t, blooming.ID, f.activeUnits(blooming.ID), "400").Batch

	_, err := f.destroy.Destroy(context.Background(), drying.ID, dto.DestroyRequest{
		Reason:        "contaminación por moho",
		DestroyedByID: f.member.ID,
		Quantity:      dp("400.01"),
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientQuantity)

	resp, err := f.destroy.Destroy(context.Background(), drying.ID, dto.DestroyRequest{
		Reason:        "contaminación por moho",
		DestroyedByID: f.member.ID,
		Quantity:      dp("400"),
	})
	require.NoError(t, err)
	assert.True(t, resp.Batch.ActiveQuantity.IsZero())
	assert.True(t, f.batch(t, drying.ID).IsTerminal())
}

func TestDestroyValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mother := f.mustSeed(t, "Jack Herer", 2)
	ids := f.activeUnits(mother.ID)

	cases := []struct {
		name string
		req  dto.DestroyRequest
		want error
	}{
		{
			name: "sin motivo",
			req:  dto.DestroyRequest{DestroyedByID: f.member.ID, PlantIDs: ids[:1]},
			want: domain.ErrInvalidInput,
		},
		{
			name: "miembro inexistente",
			req:  dto.DestroyRequest{Reason: "plaga", DestroyedByID: uuid.New().String(), PlantIDs: ids[:1]},
			want: domain.ErrMemberNotFound,
		},
		{
			name: "etapa por unidades sin ids",
			req:  dto.DestroyRequest{Reason: "plaga", DestroyedByID: f.member.ID, Quantity: dp("1")},
			want: domain.ErrInvalidInput,
		},
		{
			name: "unidad de otro lote",
			req:  dto.DestroyRequest{Reason: "plaga", DestroyedByID: f.member.ID, PlantIDs: []string{uuid.New().String()}},
			want: domain.ErrNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.destroy.Destroy(ctx, mother.ID, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

// Destrucciones concurrentes sobre el mismo lote: solo cabe el subconjunto
// que no sobregira la cantidad activa, y la conservación se mantiene exacta.
func TestConcurrentDestroysNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mother := f.mustSeed(t, "Gorilla Glue", 2)
	cuttings := f.mustPropagate(t, mother.ID, 4).Batch
	blooming := f.mustBloom(t, cuttings.ID, f.activeUnits(cuttings.ID)).Batch
	drying := f.mustHarvest(t, blooming.ID, f.activeUnits(blooming.ID), "1200").Batch

	const workers = 10
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.destroy.Destroy(ctx, drying.ID, dto.DestroyRequest{
				Reason:        "purga de material vencido",
				DestroyedByID: f.member.ID,
				Quantity:      dp("200"),
			})
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientQuantity):
			insufficient++
		default:
			t.Fatalf("error inesperado: %v", err)
		}
	}
	assert.Equal(t, 6, ok, "1200 g admiten exactamente 6 destrucciones de 200 g")
	assert.Equal(t, workers-6, insufficient)

	b := f.batch(t, drying.ID)
	assert.True(t, b.ActiveQuantity.IsZero())
	assert.True(t, b.DestroyedQuantity.Equal(d("1200")))
	f.requireConserved(t, drying.ID)

	recs, err := f.store.DestructionsByBatch(ctx, drying.ID)
	require.NoError(t, err)
	assert.Len(t, recs, 6, "solo las destrucciones comprometidas dejan asiento")
}

func TestDestroyRetryExhaustion(t *testing.T) {
	f := newFixture(t)
	mother := f.mustSeed(t, "Blue Dream", 2)
	cuttings := f.mustPropagate(t, mother.ID, 4).Batch
	blooming := f.mustBloom(t, cuttings.ID, f.activeUnits(cuttings.ID)).Batch
	drying := f.mustHarvest(t, blooming.ID, f.activeUnits(blooming.ID), "300").Batch

	f.store.conflictNext = DefaultConvertRetries
	_, err := f.destroy.Destroy(context.Background(), drying.ID, dto.DestroyRequest{
		Reason:        "purga",
		DestroyedByID: f.member.ID,
		Quantity:      dp("100"),
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	b := f.batch(t, drying.ID)
	assert.True(t, b.ActiveQuantity.Equal(d("300")))
	assert.True(t, b.DestroyedQuantity.IsZero())
}

func TestDestroyedUnitCannotConvert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mother := f.mustSeed(t, "Northern Lights", 2)
	cuttings := f.mustPropagate(t, mother.ID, 6).Batch
	ids := f.activeUnits(cuttings.ID)

	_, err := f.destroy.Destroy(ctx, cuttings.ID, dto.DestroyRequest{
		Reason:        "raíces podridas",
		DestroyedByID: f.member.ID,
		CuttingIDs:    ids[:2],
	})
	require.NoError(t, err)

	_, err = f.convert.Convert(ctx, cuttings.ID, dto.ConvertRequest{
		MemberID:   f.member.ID,
		CuttingIDs: ids[:3], // incluye dos destruidos
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyDestroyed)

	var converted int
	for _, id := range ids {
		if f.store.units[id].IsConverted {
			converted++
		}
	}
	assert.Zero(t, converted, "la conversión rechazada no debe marcar unidades")
}
