package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/clubverde/trazabilidad-api/internal/domain"
)

// Tipos de producto válidos a partir de la etapa de procesamiento.
const (
	ProductTypeMarijuana = "marijuana"
	ProductTypeHashish   = "hashish"
)

// Estados de laboratorio de un lote en labtesting.
const (
	LabStatusPending = "pending"
	LabStatusPassed  = "passed"
	LabStatusFailed  = "failed"
)

// Batch representa una charge (lote) de material de cultivo en una etapa fija
// del pipeline. La etapa nunca cambia: una conversión crea un lote nuevo en la
// etapa siguiente en lugar de mutar este registro.
//
// Invariantes de cantidades, verificados en cada ApplyDelta:
//
//	I1: Active + Destroyed + Converted == Total
//	I2: Active nunca crece
//	I3: las tres cantidades son >= 0
type Batch struct {
	ID            string
	ChargeNumber  string // número legible de charge (snowflake), distinto del UUID
	Stage         Stage
	ParentBatchID string // vacío solo para lotes raíz (madres / semillas)
	Strain        string
	ProductType   string // marijuana | hashish, desde processing en adelante
	RoomID        string

	// Cantidades en la medida de la etapa: unidades (plantas, esquejes,
	// envases) o gramos según Stage.Measure().
	TotalQuantity     decimal.Decimal
	ActiveQuantity    decimal.Decimal
	DestroyedQuantity decimal.Decimal
	ConvertedQuantity decimal.Decimal

	// Pesos medidos por etapa (gramos). InitialWeight: peso fresco al entrar
	// (drying). FinalWeight: peso seco medido (drying). InputWeight /
	// OutputWeight: antes/después del procesamiento. SampleWeight: muestra
	// consumida por el laboratorio. UnitWeight: gramos por envase (packaging).
	InitialWeight decimal.Decimal
	FinalWeight   decimal.Decimal
	InputWeight   decimal.Decimal
	OutputWeight  decimal.Decimal
	SampleWeight  decimal.Decimal
	UnitWeight    decimal.Decimal
	UnitCount     int

	// RecipientID: miembro que recibe el producto (solo distribution).
	RecipientID string

	// Resultados de laboratorio (solo labtesting).
	LabStatus  string
	THCContent *decimal.Decimal // porcentaje 0..100
	CBDContent *decimal.Decimal

	// Concurrencia optimista: el repositorio incrementa Version en cada
	// ApplyDelta comprometido; un UPDATE condicionado a la versión leída
	// detecta escrituras concurrentes.
	Version int64

	CreatedAt time.Time
	CreatedBy string // MemberID
}

// IsRoot indica si el lote no proviene de una conversión.
func (b *Batch) IsRoot() bool { return b.ParentBatchID == "" }

// IsTerminal indica si el lote ya no admite operaciones: cantidad activa
// agotada o etapa final del pipeline.
func (b *Batch) IsTerminal() bool {
	return b.ActiveQuantity.IsZero() || b.Stage == StageDistribution
}

// CheckInvariants verifica I1-I3 sobre el estado actual.
func (b *Batch) CheckInvariants() error {
	if b.ActiveQuantity.IsNegative() || b.DestroyedQuantity.IsNegative() || b.ConvertedQuantity.IsNegative() {
		return domain.ErrInvalidInput
	}
	sum := b.ActiveQuantity.Add(b.DestroyedQuantity).Add(b.ConvertedQuantity)
	if !sum.Equal(b.TotalQuantity) {
		return domain.ErrConflict
	}
	return nil
}

// ApplyDelta aplica los deltas de destrucción/conversión sobre las cantidades
// y valida que los invariantes se mantengan. El delta activo se deriva de los
// otros dos (todo lo destruido o convertido sale de la cantidad activa), de
// modo que I1 se cumple por construcción y solo hay que validar I2/I3.
// Devuelve ErrInsufficientQuantity si el delta excede la cantidad activa.
func (b *Batch) ApplyDelta(destroyedDelta, convertedDelta decimal.Decimal) error {
	if destroyedDelta.IsNegative() || convertedDelta.IsNegative() {
		return domain.ErrInvalidInput
	}
	out := destroyedDelta.Add(convertedDelta)
	if out.IsZero() {
		return domain.ErrInvalidInput
	}
	if out.GreaterThan(b.ActiveQuantity) {
		return domain.ErrInsufficientQuantity
	}
	b.ActiveQuantity = b.ActiveQuantity.Sub(out)
	b.DestroyedQuantity = b.DestroyedQuantity.Add(destroyedDelta)
	b.ConvertedQuantity = b.ConvertedQuantity.Add(convertedDelta)
	return b.CheckInvariants()
}
