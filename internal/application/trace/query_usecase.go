package trace

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/clubverde/trazabilidad-api/internal/application/dto"
	"github.com/clubverde/trazabilidad-api/internal/domain"
	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
	"github.com/clubverde/trazabilidad-api/internal/domain/repository"
)

// QueryUseCase lecturas del ledger: listados paginados, unidades hijas,
// linaje y envases disponibles. Nunca bloquea a los escritores.
type QueryUseCase struct {
	batches repository.BatchRepository
	units   repository.UnitRepository
	ledger  repository.LedgerRepository
}

// NewQueryUseCase construye el caso de uso de lectura.
func NewQueryUseCase(batches repository.BatchRepository, units repository.UnitRepository, ledger repository.LedgerRepository) *QueryUseCase {
	return &QueryUseCase{batches: batches, units: units, ledger: ledger}
}

// ListBatches lista lotes de una etapa con los filtros de la UI. Para etapas
// con seguimiento por unidad, cada lote expone los ids de sus unidades
// activas (relación 1:1 de madres incluida).
func (uc *QueryUseCase) ListBatches(ctx context.Context, f repository.BatchFilter) (*dto.ListResponse, error) {
	if !f.Stage.Valid() {
		return nil, domain.ErrInvalidInput
	}
	batches, total, err := uc.batches.List(ctx, f)
	if err != nil {
		return nil, err
	}

	results := make([]*dto.BatchResponse, 0, len(batches))
	var unitIDs map[string][]string
	if f.Stage.UnitGranular() && len(batches) > 0 {
		ids := make([]string, 0, len(batches))
		for _, b := range batches {
			ids = append(ids, b.ID)
		}
		unitIDs, err = uc.units.ActiveIDsByBatch(ctx, ids)
		if err != nil {
			return nil, err
		}
	}
	for _, b := range batches {
		r := dto.BatchFromEntity(b)
		if unitIDs != nil {
			r.PlantIDs = unitIDs[b.ID]
		}
		results = append(results, r)
	}
	return &dto.ListResponse{Count: total, Results: results}, nil
}

// GetBatch un lote con sus ids de unidades activas.
func (uc *QueryUseCase) GetBatch(ctx context.Context, id string) (*dto.BatchResponse, error) {
	b, err := uc.batches.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.ErrNotFound
	}
	r := dto.BatchFromEntity(b)
	if b.Stage.UnitGranular() {
		ids, err := uc.units.ActiveIDsByBatch(ctx, []string{b.ID})
		if err != nil {
			return nil, err
		}
		r.PlantIDs = ids[b.ID]
	}
	return r, nil
}

// ListUnits unidades hijas de un lote, filtrables por destruidas/convertidas.
func (uc *QueryUseCase) ListUnits(ctx context.Context, f repository.UnitFilter) (*dto.ListResponse, error) {
	if f.BatchID == "" {
		return nil, domain.ErrInvalidInput
	}
	units, total, err := uc.units.List(ctx, f)
	if err != nil {
		return nil, err
	}
	results := make([]*dto.UnitResponse, 0, len(units))
	for _, u := range units {
		results = append(results, dto.UnitFromEntity(u))
	}
	return &dto.ListResponse{Count: total, Results: results}, nil
}

// Lineage cadena de custodia completa de un lote: ancestros raíz-primero y
// descendientes. Siempre termina: un hijo nace estrictamente después de su
// padre y lo referencia una sola vez, de forma inmutable.
func (uc *QueryUseCase) Lineage(ctx context.Context, batchID string) (*dto.LineageResponse, error) {
	b, err := uc.batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.ErrNotFound
	}
	ancestors, err := uc.batches.Ancestors(ctx, batchID)
	if err != nil {
		return nil, err
	}
	descendants, err := uc.batches.Descendants(ctx, batchID)
	if err != nil {
		return nil, err
	}
	resp := &dto.LineageResponse{Batch: dto.BatchFromEntity(b)}
	for _, a := range ancestors {
		resp.Ancestors = append(resp.Ancestors, dto.BatchFromEntity(a))
	}
	for _, d := range descendants {
		resp.Descendants = append(resp.Descendants, dto.BatchFromEntity(d))
	}
	return resp, nil
}

// AvailableUnits envases de empaque listos para distribución.
func (uc *QueryUseCase) AvailableUnits(ctx context.Context) ([]*dto.AvailableUnitResponse, error) {
	units, err := uc.units.AvailablePackagingUnits(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]*dto.AvailableUnitResponse, 0, len(units))
	for _, u := range units {
		results = append(results, &dto.AvailableUnitResponse{
			ID:           u.Unit.ID,
			BatchID:      u.BatchID,
			ChargeNumber: u.ChargeNumber,
			Strain:       u.Strain,
			ProductType:  u.ProductType,
			UnitWeight:   u.UnitWeight,
		})
	}
	return results, nil
}

// ListDistributions distribuciones filtradas por fecha (año/mes/día).
func (uc *QueryUseCase) ListDistributions(ctx context.Context, f repository.BatchFilter) (*dto.ListResponse, error) {
	f.Stage = entity.StageDistribution
	return uc.ListBatches(ctx, f)
}

// StrainOptions variedades registradas, para el selector de alta de semillas.
// Deduplica variantes con acentos distintos ("Kalí Mist" y "Kali Mist" son la
// misma variedad); gana la primera grafía en orden alfabético.
func (uc *QueryUseCase) StrainOptions(ctx context.Context) ([]string, error) {
	raw, err := uc.batches.StrainOptions(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(raw))
	options := make([]string, 0, len(raw))
	for _, s := range raw {
		key := foldStrain(s)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		options = append(options, s)
	}
	return options, nil
}

// foldStrain normaliza una variedad para comparación: minúsculas, sin acentos.
func foldStrain(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
