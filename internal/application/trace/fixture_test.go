package trace

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/clubverde/trazabilidad-api/internal/application/dto"
	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

// fixture arma el grafo de casos de uso completo sobre el store en memoria,
// con un miembro y una sala ya dados de alta.
type fixture struct {
	store   *memStore
	runner  *memTxRunner
	seed    *SeedUseCase
	convert *ConvertUseCase
	destroy *DestroyUseCase
	counts  *CountsUseCase
	lab     *LabResultsUseCase
	query   *QueryUseCase
	member  *entity.Member
	room    *entity.Room
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	runner := &memTxRunner{s: store}
	members := memMembers{store}
	rooms := memRooms{store}
	charges := &seqCharges{}

	destroy := NewDestroyUseCase(runner, members, 0)
	f := &fixture{
		store:   store,
		runner:  runner,
		seed:    NewSeedUseCase(runner, members, rooms, charges),
		convert: NewConvertUseCase(runner, store, memUnits{store}, members, rooms, store, charges, destroy, 0),
		destroy: destroy,
		counts:  NewCountsUseCase(store),
		lab:     NewLabResultsUseCase(store),
		query:   NewQueryUseCase(store, memUnits{store}, store),
	}

	f.member = &entity.Member{
		ID:        uuid.New().String(),
		Email:     "cultivador@clubverde.example",
		Role:      entity.RoleCultivador,
		Status:    "active",
		CreatedAt: time.Now(),
	}
	require.NoError(t, members.Create(context.Background(), f.member))

	f.room = &entity.Room{
		ID:       uuid.New().String(),
		Name:     "Sala Madres",
		RoomType: "mothers",
		Capacity: 50,
	}
	require.NoError(t, rooms.Create(context.Background(), f.room))
	return f
}

// activeUnits ids de unidades activas del lote, en orden de creación.
func (f *fixture) activeUnits(batchID string) []string {
	var out []string
	for _, id := range f.store.unitOrder[batchID] {
		if f.store.units[id].Active() {
			out = append(out, id)
		}
	}
	return out
}

func (f *fixture) batch(t *testing.T, id string) *entity.Batch {
	t.Helper()
	b, err := f.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, b)
	return b
}

func (f *fixture) mustSeed(t *testing.T, strain string, quantity int) *dto.BatchResponse {
	t.Helper()
	resp, err := f.seed.CreateRoot(context.Background(), dto.CreateSeedRequest{
		Strain:   strain,
		Quantity: quantity,
		MemberID: f.member.ID,
		RoomID:   f.room.ID,
	})
	require.NoError(t, err)
	return resp
}

func (f *fixture) mustPropagate(t *testing.T, motherID string, n int) *dto.ConvertResponse {
	t.Helper()
	resp, err := f.convert.Convert(context.Background(), motherID, dto.ConvertRequest{
		MemberID: f.member.ID,
		Quantity: n,
	})
	require.NoError(t, err)
	return resp
}

func (f *fixture) mustBloom(t *testing.T, cuttingBatchID string, ids []string) *dto.ConvertResponse {
	t.Helper()
	resp, err := f.convert.Convert(context.Background(), cuttingBatchID, dto.ConvertRequest{
		MemberID:   f.member.ID,
		CuttingIDs: ids,
	})
	require.NoError(t, err)
	return resp
}

func (f *fixture) mustHarvest(t *testing.T, bloomingID string, ids []string, freshWeight string) *dto.ConvertResponse {
	t.Helper()
	resp, err := f.convert.Convert(context.Background(), bloomingID, dto.ConvertRequest{
		MemberID:      f.member.ID,
		PlantIDs:      ids,
		InitialWeight: dp(freshWeight),
	})
	require.NoError(t, err)
	return resp
}

func (f *fixture) mustProcess(t *testing.T, dryingID, dryWeight, productType string) *dto.ConvertResponse {
	t.Helper()
	resp, err := f.convert.Convert(context.Background(), dryingID, dto.ConvertRequest{
		MemberID:    f.member.ID,
		FinalWeight: dp(dryWeight),
		ProductType: productType,
	})
	require.NoError(t, err)
	return resp
}

func (f *fixture) mustSendToLab(t *testing.T, processingID, outputWeight, sampleWeight string) *dto.ConvertResponse {
	t.Helper()
	req := dto.ConvertRequest{
		MemberID:     f.member.ID,
		OutputWeight: dp(outputWeight),
	}
	if sampleWeight != "" {
		req.SampleWeight = dp(sampleWeight)
	}
	resp, err := f.convert.Convert(context.Background(), processingID, req)
	require.NoError(t, err)
	return resp
}

func (f *fixture) mustPassLab(t *testing.T, labID string) {
	t.Helper()
	_, err := f.lab.UpdateResults(context.Background(), labID, dto.UpdateLabResultsRequest{
		Status:     entity.LabStatusPassed,
		THCContent: dp("18.5"),
		CBDContent: dp("0.7"),
	})
	require.NoError(t, err)
}

func (f *fixture) mustPackage(t *testing.T, labID string, unitCount int, unitWeight string) *dto.ConvertResponse {
	t.Helper()
	req := dto.ConvertRequest{
		MemberID:  f.member.ID,
		UnitCount: unitCount,
	}
	if unitWeight != "" {
		req.UnitWeight = dp(unitWeight)
	}
	resp, err := f.convert.Convert(context.Background(), labID, req)
	require.NoError(t, err)
	return resp
}

// growToPackaging recorre el pipeline completo desde semilla y devuelve el
// lote de empaque resultante: 55 envases de 5 g (275 g netos tras una merma
// de secado de 900 g, una de procesamiento de 20 g y una muestra de 5 g).
func (f *fixture) growToPackaging(t *testing.T) *dto.BatchResponse {
	t.Helper()
	mother := f.mustSeed(t, "Critical Kush", 3)
	cuttings := f.mustPropagate(t, mother.ID, 10).Batch
	blooming := f.mustBloom(t, cuttings.ID, f.activeUnits(cuttings.ID)[:8]).Batch
	drying := f.mustHarvest(t, blooming.ID, f.activeUnits(blooming.ID)[:6], "1200").Batch
	processing := f.mustProcess(t, drying.ID, "300", entity.ProductTypeMarijuana).Batch
	lab := f.mustSendToLab(t, processing.ID, "280", "5").Batch
	f.mustPassLab(t, lab.ID)
	return f.mustPackage(t, lab.ID, 55, "5").Batch
}

// requireConserved verifica I1 sobre el estado persistido del lote.
func (f *fixture) requireConserved(t *testing.T, batchID string) {
	t.Helper()
	b := f.batch(t, batchID)
	sum := b.ActiveQuantity.Add(b.DestroyedQuantity).Add(b.ConvertedQuantity)
	require.True(t, sum.Equal(b.TotalQuantity),
		"lote %s: active %s + destroyed %s + converted %s != total %s",
		b.ChargeNumber, b.ActiveQuantity, b.DestroyedQuantity, b.ConvertedQuantity, b.TotalQuantity)
}
