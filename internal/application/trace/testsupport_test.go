package trace

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clubverde/trazabilidad-api/internal/domain"
	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
	"github.com/clubverde/trazabilidad-api/internal/domain/repository"
)

// errBoom falla inyectada no reintentable, para probar finalización parcial.
var errBoom = errors.New("boom")

// memStore almacén en memoria que implementa los cinco puertos de
// repositorio. Los métodos no toman locks: memTxRunner serializa las
// transacciones con el mutex del store, y fuera de transacción los tests solo
// hacen lecturas que no compiten con escrituras.
type memStore struct {
	mu sync.Mutex

	batches   map[string]*entity.Batch
	units     map[string]*entity.Unit
	unitOrder map[string][]string // batchID -> ids en orden de creación

	conversions  []*entity.ConversionRecord
	destructions []*entity.DestructionRecord

	members map[string]*entity.Member
	rooms   map[string]*entity.Room

	// Inyección de fallas.
	conflictNext int // próximos n ApplyDelta/SetQuantities devuelven ErrConflict
	failCreates  int // próximos n Create de lote devuelven errBoom
}

func newMemStore() *memStore {
	return &memStore{
		batches:   make(map[string]*entity.Batch),
		units:     make(map[string]*entity.Unit),
		unitOrder: make(map[string][]string),
		members:   make(map[string]*entity.Member),
		rooms:     make(map[string]*entity.Room),
	}
}

// memTxRunner serializa cada transacción bajo el mutex del store y restaura
// un snapshot si el callback falla, imitando el commit/rollback real.
type memTxRunner struct{ s *memStore }

func (t *memTxRunner) Run(_ context.Context, fn func(r Repos) error) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	snap := t.s.snapshot()
	err := fn(Repos{Batches: t.s, Units: memUnits{t.s}, Ledger: t.s})
	if err != nil {
		t.s.restore(snap)
	}
	return err
}

type storeSnapshot struct {
	batches       map[string]*entity.Batch
	units         map[string]*entity.Unit
	unitOrder     map[string][]string
	nConversions  int
	nDestructions int
}

func (s *memStore) snapshot() storeSnapshot {
	snap := storeSnapshot{
		batches:       make(map[string]*entity.Batch, len(s.batches)),
		units:         make(map[string]*entity.Unit, len(s.units)),
		unitOrder:     make(map[string][]string, len(s.unitOrder)),
		nConversions:  len(s.conversions),
		nDestructions: len(s.destructions),
	}
	for id, b := range s.batches {
		cp := *b
		snap.batches[id] = &cp
	}
	for id, u := range s.units {
		cp := *u
		snap.units[id] = &cp
	}
	for id, order := range s.unitOrder {
		snap.unitOrder[id] = append([]string(nil), order...)
	}
	return snap
}

func (s *memStore) restore(snap storeSnapshot) {
	s.batches = snap.batches
	s.units = snap.units
	s.unitOrder = snap.unitOrder
	s.conversions = s.conversions[:snap.nConversions]
	s.destructions = s.destructions[:snap.nDestructions]
}

// --- BatchRepository ---

func (s *memStore) Create(_ context.Context, b *entity.Batch) error {
	if s.failCreates > 0 {
		s.failCreates--
		return errBoom
	}
	if _, ok := s.batches[b.ID]; ok {
		return domain.ErrDuplicate
	}
	cp := *b
	s.batches[b.ID] = &cp
	return nil
}

func (s *memStore) GetByID(_ context.Context, id string) (*entity.Batch, error) {
	b, ok := s.batches[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (s *memStore) List(_ context.Context, f repository.BatchFilter) ([]*entity.Batch, int, error) {
	var out []*entity.Batch
	for _, b := range s.batches {
		if !matchesFilter(b, f) {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChargeNumber < out[j].ChargeNumber })
	return out, len(out), nil
}

func matchesFilter(b *entity.Batch, f repository.BatchFilter) bool {
	if f.Stage != "" && b.Stage != f.Stage {
		return false
	}
	if f.ProductType != "" && b.ProductType != f.ProductType {
		return false
	}
	if f.Strain != "" && b.Strain != f.Strain {
		return false
	}
	if f.LabStatus != "" && b.LabStatus != f.LabStatus {
		return false
	}
	if f.HasActive != nil && b.ActiveQuantity.IsPositive() != *f.HasActive {
		return false
	}
	if f.HasDestroyed != nil && b.DestroyedQuantity.IsPositive() != *f.HasDestroyed {
		return false
	}
	if f.HasConverted != nil && b.ConvertedQuantity.IsPositive() != *f.HasConverted {
		return false
	}
	return true
}

func (s *memStore) ApplyDelta(_ context.Context, batchID string, version int64, destroyedDelta, convertedDelta decimal.Decimal) (*entity.Batch, error) {
	if s.conflictNext > 0 {
		s.conflictNext--
		return nil, domain.ErrConflict
	}
	b, ok := s.batches[batchID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if b.Version != version {
		return nil, domain.ErrConflict
	}
	cp := *b
	if err := cp.ApplyDelta(destroyedDelta, convertedDelta); err != nil {
		return nil, err
	}
	cp.Version++
	s.batches[batchID] = &cp
	out := cp
	return &out, nil
}

func (s *memStore) SetQuantities(_ context.Context, batchID string, version int64, active, destroyed, converted decimal.Decimal) (*entity.Batch, error) {
	if s.conflictNext > 0 {
		s.conflictNext--
		return nil, domain.ErrConflict
	}
	b, ok := s.batches[batchID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if b.Version != version {
		return nil, domain.ErrConflict
	}
	cp := *b
	cp.ActiveQuantity = active
	cp.DestroyedQuantity = destroyed
	cp.ConvertedQuantity = converted
	if err := cp.CheckInvariants(); err != nil {
		return nil, err
	}
	cp.Version++
	s.batches[batchID] = &cp
	out := cp
	return &out, nil
}

func (s *memStore) UpdateLabResults(_ context.Context, batchID string, version int64, status string, thc, cbd *decimal.Decimal) (*entity.Batch, error) {
	b, ok := s.batches[batchID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if b.Version != version {
		return nil, domain.ErrConflict
	}
	cp := *b
	cp.LabStatus = status
	cp.THCContent = thc
	cp.CBDContent = cbd
	cp.Version++
	s.batches[batchID] = &cp
	out := cp
	return &out, nil
}

func (s *memStore) Ancestors(_ context.Context, batchID string) ([]*entity.Batch, error) {
	b, ok := s.batches[batchID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	var chain []*entity.Batch
	for b.ParentBatchID != "" {
		parent, ok := s.batches[b.ParentBatchID]
		if !ok {
			break
		}
		cp := *parent
		chain = append([]*entity.Batch{&cp}, chain...) // raíz primero
		b = parent
	}
	return chain, nil
}

func (s *memStore) Descendants(_ context.Context, batchID string) ([]*entity.Batch, error) {
	if _, ok := s.batches[batchID]; !ok {
		return nil, domain.ErrNotFound
	}
	var out []*entity.Batch
	frontier := []string{batchID}
	for len(frontier) > 0 {
		next := frontier[:0:0]
		for _, b := range s.batches {
			for _, parent := range frontier {
				if b.ParentBatchID == parent {
					cp := *b
					out = append(out, &cp)
					next = append(next, b.ID)
				}
			}
		}
		frontier = next
	}
	return out, nil
}

func (s *memStore) Totals(_ context.Context, stage entity.Stage, f repository.BatchFilter) (*repository.StageTotals, error) {
	t := &repository.StageTotals{}
	for _, b := range s.batches {
		if b.Stage != stage || !matchesFilter(b, f) {
			continue
		}
		s.accumulate(t, b)
	}
	return t, nil
}

func (s *memStore) TotalsByProductType(_ context.Context, stage entity.Stage) (map[string]*repository.StageTotals, error) {
	out := make(map[string]*repository.StageTotals)
	for _, b := range s.batches {
		if b.Stage != stage {
			continue
		}
		t, ok := out[b.ProductType]
		if !ok {
			t = &repository.StageTotals{}
			out[b.ProductType] = t
		}
		s.accumulate(t, b)
	}
	return out, nil
}

func (s *memStore) TotalsByLabStatus(_ context.Context) (map[string]*repository.StageTotals, error) {
	out := make(map[string]*repository.StageTotals)
	for _, b := range s.batches {
		if b.Stage != entity.StageLabTesting {
			continue
		}
		t, ok := out[b.LabStatus]
		if !ok {
			t = &repository.StageTotals{}
			out[b.LabStatus] = t
		}
		s.accumulate(t, b)
	}
	return out, nil
}

func (s *memStore) accumulate(t *repository.StageTotals, b *entity.Batch) {
	t.TotalBatches++
	t.TotalQuantity = t.TotalQuantity.Add(b.TotalQuantity)
	t.ActiveQuantity = t.ActiveQuantity.Add(b.ActiveQuantity)
	t.DestroyedQuantity = t.DestroyedQuantity.Add(b.DestroyedQuantity)
	t.ConvertedQuantity = t.ConvertedQuantity.Add(b.ConvertedQuantity)
	if b.ActiveQuantity.IsPositive() {
		t.ActiveBatches++
		t.ActiveInitialWeight = t.ActiveInitialWeight.Add(b.InitialWeight)
		t.ActiveFinalWeight = t.ActiveFinalWeight.Add(b.FinalWeight)
		t.ActiveInputWeight = t.ActiveInputWeight.Add(b.InputWeight)
		t.ActiveOutputWeight = t.ActiveOutputWeight.Add(b.OutputWeight)
		t.ActivePackedWeight = t.ActivePackedWeight.Add(b.ActiveQuantity.Mul(b.UnitWeight))
		for _, id := range s.unitOrder[b.ID] {
			if s.units[id].Active() {
				t.ActiveUnits++
			}
		}
	}
	if b.DestroyedQuantity.IsPositive() {
		t.DestroyedBatches++
		if b.ActiveQuantity.IsZero() {
			t.DestroyedInitialWeight = t.DestroyedInitialWeight.Add(b.InitialWeight)
			t.DestroyedOutputWeight = t.DestroyedOutputWeight.Add(b.OutputWeight)
		}
	}
	if b.ConvertedQuantity.IsPositive() {
		t.ConvertedBatches++
	}
}

func (s *memStore) StrainOptions(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	for _, b := range s.batches {
		if b.IsRoot() && b.Strain != "" {
			seen[b.Strain] = true
		}
	}
	out := make([]string, 0, len(seen))
	for strain := range seen {
		out = append(out, strain)
	}
	sort.Strings(out)
	return out, nil
}

// --- UnitRepository ---

// memUnits vista del store como repositorio de unidades (los nombres de
// método chocan con los del repositorio de lotes).
type memUnits struct{ s *memStore }

func (m memUnits) CreateBulk(_ context.Context, units []*entity.Unit) error {
	for _, u := range units {
		cp := *u
		m.s.units[u.ID] = &cp
		m.s.unitOrder[u.BatchID] = append(m.s.unitOrder[u.BatchID], u.ID)
	}
	return nil
}

func (m memUnits) List(_ context.Context, f repository.UnitFilter) ([]*entity.Unit, int, error) {
	var out []*entity.Unit
	for _, id := range m.s.unitOrder[f.BatchID] {
		u := m.s.units[id]
		if f.Destroyed != nil && u.IsDestroyed != *f.Destroyed {
			continue
		}
		if f.Converted != nil && u.IsConverted != *f.Converted {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m memUnits) GetByIDs(_ context.Context, batchID string, ids []string) ([]*entity.Unit, error) {
	var out []*entity.Unit
	for _, id := range ids {
		u, ok := m.s.units[id]
		if !ok || u.BatchID != batchID {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (m memUnits) MarkDestroyed(_ context.Context, batchID string, ids []string, reason, authorizedBy string, at time.Time) (int64, error) {
	var marked int64
	for _, id := range ids {
		u, ok := m.s.units[id]
		if !ok || u.BatchID != batchID || !u.Active() {
			continue
		}
		at := at
		u.IsDestroyed = true
		u.DestroyedAt = &at
		u.DestroyedBy = authorizedBy
		u.DestroyReason = reason
		marked++
	}
	return marked, nil
}

func (m memUnits) MarkConverted(_ context.Context, batchID string, ids []string, targetBatchID string, at time.Time) (int64, error) {
	var marked int64
	for _, id := range ids {
		u, ok := m.s.units[id]
		if !ok || u.BatchID != batchID || !u.Active() {
			continue
		}
		at := at
		u.IsConverted = true
		u.ConvertedAt = &at
		u.ConvertedBatchID = targetBatchID
		marked++
	}
	return marked, nil
}

func (m memUnits) CountByBatch(_ context.Context, batchID string) (*repository.UnitCounts, error) {
	c := &repository.UnitCounts{}
	for _, id := range m.s.unitOrder[batchID] {
		switch u := m.s.units[id]; {
		case u.IsDestroyed:
			c.Destroyed++
		case u.IsConverted:
			c.Converted++
		default:
			c.Active++
		}
	}
	return c, nil
}

func (m memUnits) ActiveIDsByBatch(_ context.Context, batchIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(batchIDs))
	for _, batchID := range batchIDs {
		for _, id := range m.s.unitOrder[batchID] {
			if m.s.units[id].Active() {
				out[batchID] = append(out[batchID], id)
			}
		}
	}
	return out, nil
}

func (m memUnits) AvailablePackagingUnits(_ context.Context) ([]*repository.AvailableUnit, error) {
	var batchIDs []string
	for id, b := range m.s.batches {
		if b.Stage == entity.StagePackaging {
			batchIDs = append(batchIDs, id)
		}
	}
	sort.Strings(batchIDs)
	var out []*repository.AvailableUnit
	for _, batchID := range batchIDs {
		b := m.s.batches[batchID]
		for _, id := range m.s.unitOrder[batchID] {
			u := m.s.units[id]
			if !u.Active() {
				continue
			}
			cp := *u
			out = append(out, &repository.AvailableUnit{
				Unit:         &cp,
				BatchID:      b.ID,
				ChargeNumber: b.ChargeNumber,
				Strain:       b.Strain,
				ProductType:  b.ProductType,
				UnitWeight:   b.UnitWeight,
			})
		}
	}
	return out, nil
}

// --- LedgerRepository ---

func (s *memStore) AppendConversion(_ context.Context, rec *entity.ConversionRecord) error {
	cp := *rec
	s.conversions = append(s.conversions, &cp)
	return nil
}

func (s *memStore) AppendDestruction(_ context.Context, rec *entity.DestructionRecord) error {
	cp := *rec
	s.destructions = append(s.destructions, &cp)
	return nil
}

func (s *memStore) ConversionsByBatch(_ context.Context, batchID string) ([]*entity.ConversionRecord, error) {
	var out []*entity.ConversionRecord
	for _, rec := range s.conversions {
		if rec.SourceBatchID == batchID || rec.TargetBatchID == batchID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) DestructionsByBatch(_ context.Context, batchID string) ([]*entity.DestructionRecord, error) {
	var out []*entity.DestructionRecord
	for _, rec := range s.destructions {
		if rec.BatchID == batchID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) GetDestruction(_ context.Context, id string) (*entity.DestructionRecord, error) {
	for _, rec := range s.destructions {
		if rec.ID == id {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memStore) ListConversions(_ context.Context, from, to *time.Time) ([]*entity.ConversionRecord, error) {
	var out []*entity.ConversionRecord
	for _, rec := range s.conversions {
		if inRange(rec.PerformedAt, from, to) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) ListDestructions(_ context.Context, from, to *time.Time) ([]*entity.DestructionRecord, error) {
	var out []*entity.DestructionRecord
	for _, rec := range s.destructions {
		if inRange(rec.DestroyedAt, from, to) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func inRange(at time.Time, from, to *time.Time) bool {
	if from != nil && at.Before(*from) {
		return false
	}
	if to != nil && at.After(*to) {
		return false
	}
	return true
}

// --- MemberRepository / RoomRepository ---

type memMembers struct{ s *memStore }

func (m memMembers) Create(_ context.Context, member *entity.Member) error {
	for _, existing := range m.s.members {
		if strings.EqualFold(existing.Email, member.Email) {
			return domain.ErrEmailAlreadyExists
		}
	}
	cp := *member
	m.s.members[member.ID] = &cp
	return nil
}

func (m memMembers) GetByID(_ context.Context, id string) (*entity.Member, error) {
	member, ok := m.s.members[id]
	if !ok {
		return nil, nil
	}
	cp := *member
	return &cp, nil
}

func (m memMembers) GetByEmail(_ context.Context, email string) (*entity.Member, error) {
	for _, member := range m.s.members {
		if strings.EqualFold(member.Email, email) {
			cp := *member
			return &cp, nil
		}
	}
	return nil, nil
}

func (m memMembers) List(_ context.Context, limit, offset int) ([]*entity.Member, int, error) {
	var out []*entity.Member
	for _, member := range m.s.members {
		cp := *member
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, len(out), nil
}

type memRooms struct{ s *memStore }

func (m memRooms) Create(_ context.Context, room *entity.Room) error {
	cp := *room
	m.s.rooms[room.ID] = &cp
	return nil
}

func (m memRooms) GetByID(_ context.Context, id string) (*entity.Room, error) {
	room, ok := m.s.rooms[id]
	if !ok {
		return nil, nil
	}
	cp := *room
	return &cp, nil
}

func (m memRooms) List(_ context.Context) ([]*entity.Room, error) {
	var out []*entity.Room
	for _, room := range m.s.rooms {
		cp := *room
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// seqCharges generador secuencial determinista para los tests.
type seqCharges struct {
	mu sync.Mutex
	n  int
}

func (g *seqCharges) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("CH-%04d", g.n)
}
