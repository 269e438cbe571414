package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Motivos fijos usados por el motor de transición para asientos de merma y
// consumo de muestra. Los motivos de destrucción manual los escribe el operador.
const (
	ReasonDryingLoss     = "merma de peso por secado"
	ReasonProcessingLoss = "merma de peso por procesamiento"
	ReasonLabSample      = "muestra consumida por análisis de laboratorio"
)

// DestructionRecord es un asiento inmutable de destrucción. El motivo y el
// miembro que autoriza son obligatorios siempre (cumplimiento normativo).
type DestructionRecord struct {
	ID      string
	BatchID string
	// UnitIDs solo para etapas con seguimiento por unidad.
	UnitIDs      []string
	Quantity     decimal.Decimal
	Reason       string
	AuthorizedBy string // MemberID
	DestroyedAt  time.Time
}
