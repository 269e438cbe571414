package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de conversión entre pares de etapas. La tabla de adyacencia del
// pipeline selecciona el tipo; nunca lo decide el llamador.
const (
	// ConversionPropagation: esquejes tomados de plantas madre vivas. No
	// decrementa el lote origen (las madres siguen activas).
	ConversionPropagation = "propagation"
	// ConversionCount: conservación exacta por unidades (esquejes -> floración,
	// envases -> distribución).
	ConversionCount = "count"
	// ConversionHarvest: frontera unidades -> peso (floración -> secado). El
	// origen se conserva en plantas; el destino registra el peso fresco medido.
	ConversionHarvest = "harvest"
	// ConversionLossyWeight: peso con merma esperada (secado -> procesamiento,
	// procesamiento -> laboratorio). La merma se asienta como destrucción
	// propia antes de convertir; el balance de masa queda exacto.
	ConversionLossyWeight = "lossy_weight"
	// ConversionSampled: laboratorio -> empaque. Destruye primero la muestra
	// consumida por el análisis y convierte el resto en un segundo paso.
	ConversionSampled = "sampled"
)

// ConversionRecord es un asiento inmutable del ledger: junto con
// Batch.ParentBatchID forma las aristas del grafo de linaje.
type ConversionRecord struct {
	ID             string
	SourceBatchID  string
	TargetBatchID  string
	ConversionType string
	// QuantityMoved en la medida del lote origen (unidades o gramos).
	QuantityMoved decimal.Decimal
	PerformedBy   string // MemberID
	PerformedAt   time.Time
}
