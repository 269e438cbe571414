package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
)

// BatchResponse representación de un lote en la API. Los endpoints de
// escritura devuelven siempre el lote mutado completo para que la UI pueda
// refrescar su vista sin una lectura extra.
type BatchResponse struct {
	ID            string `json:"id"`
	ChargeNumber  string `json:"charge_number"`
	Stage         string `json:"stage"`
	ParentBatchID string `json:"parent_batch_id,omitempty"`
	Strain        string `json:"strain,omitempty"`
	ProductType   string `json:"product_type,omitempty"`
	RoomID        string `json:"room_id,omitempty"`

	TotalQuantity     decimal.Decimal `json:"total_quantity"`
	ActiveQuantity    decimal.Decimal `json:"active_quantity"`
	DestroyedQuantity decimal.Decimal `json:"destroyed_quantity"`
	ConvertedQuantity decimal.Decimal `json:"converted_quantity"`

	InitialWeight *decimal.Decimal `json:"initial_weight,omitempty"`
	FinalWeight   *decimal.Decimal `json:"final_weight,omitempty"`
	InputWeight   *decimal.Decimal `json:"input_weight,omitempty"`
	OutputWeight  *decimal.Decimal `json:"output_weight,omitempty"`
	SampleWeight  *decimal.Decimal `json:"sample_weight,omitempty"`
	UnitWeight    *decimal.Decimal `json:"unit_weight,omitempty"`
	UnitCount     int              `json:"unit_count,omitempty"`

	LabStatus  string           `json:"status,omitempty"`
	THCContent *decimal.Decimal `json:"thc_content,omitempty"`
	CBDContent *decimal.Decimal `json:"cbd_content,omitempty"`

	RecipientID string `json:"recipient_id,omitempty"`

	// PlantIDs ids de las unidades del lote, expuestos directamente para que
	// la UI nunca tenga que sintetizar placeholders (relación 1:1 en madres).
	PlantIDs []string `json:"plant_ids,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by"`
}

// BatchFromEntity mapea la entidad al DTO de respuesta.
func BatchFromEntity(b *entity.Batch) *BatchResponse {
	optional := func(d decimal.Decimal) *decimal.Decimal {
		if d.IsZero() {
			return nil
		}
		return &d
	}
	return &BatchResponse{
		ID:                b.ID,
		ChargeNumber:      b.ChargeNumber,
		Stage:             string(b.Stage),
		ParentBatchID:     b.ParentBatchID,
		Strain:            b.Strain,
		ProductType:       b.ProductType,
		RoomID:            b.RoomID,
		TotalQuantity:     b.TotalQuantity,
		ActiveQuantity:    b.ActiveQuantity,
		DestroyedQuantity: b.DestroyedQuantity,
		ConvertedQuantity: b.ConvertedQuantity,
		InitialWeight:     optional(b.InitialWeight),
		FinalWeight:       optional(b.FinalWeight),
		InputWeight:       optional(b.InputWeight),
		OutputWeight:      optional(b.OutputWeight),
		SampleWeight:      optional(b.SampleWeight),
		UnitWeight:        optional(b.UnitWeight),
		UnitCount:         b.UnitCount,
		LabStatus:         b.LabStatus,
		THCContent:        b.THCContent,
		CBDContent:        b.CBDContent,
		RecipientID:       b.RecipientID,
		CreatedAt:         b.CreatedAt,
		CreatedBy:         b.CreatedBy,
	}
}

// UnitResponse unidad individual de un lote.
type UnitResponse struct {
	ID               string     `json:"id"`
	BatchID          string     `json:"batch_id"`
	IsDestroyed      bool       `json:"is_destroyed"`
	DestroyedAt      *time.Time `json:"destroyed_at,omitempty"`
	DestroyedBy      string     `json:"destroyed_by,omitempty"`
	DestroyReason    string     `json:"destroy_reason,omitempty"`
	IsConverted      bool       `json:"is_converted"`
	ConvertedAt      *time.Time `json:"converted_at,omitempty"`
	ConvertedBatchID string     `json:"converted_batch_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// UnitFromEntity mapea la unidad al DTO.
func UnitFromEntity(u *entity.Unit) *UnitResponse {
	return &UnitResponse{
		ID:               u.ID,
		BatchID:          u.BatchID,
		IsDestroyed:      u.IsDestroyed,
		DestroyedAt:      u.DestroyedAt,
		DestroyedBy:      u.DestroyedBy,
		DestroyReason:    u.DestroyReason,
		IsConverted:      u.IsConverted,
		ConvertedAt:      u.ConvertedAt,
		ConvertedBatchID: u.ConvertedBatchID,
		CreatedAt:        u.CreatedAt,
	}
}

// CreateSeedRequest alta manual de un lote raíz de plantas madre.
type CreateSeedRequest struct {
	Strain   string `json:"strain" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
	MemberID string `json:"member_id" validate:"required,uuid4"`
	RoomID   string `json:"room_id" validate:"omitempty,uuid4"`
}

// ConvertRequest cuerpo de los POST convert_to_*. Qué campos son obligatorios
// depende de la política del par de etapas; el caso de uso lo valida.
type ConvertRequest struct {
	MemberID string `json:"member_id" validate:"required,uuid4"`
	RoomID   string `json:"room_id" validate:"omitempty,uuid4"`

	// Conversiones por unidades.
	Quantity   int      `json:"quantity"`
	CuttingIDs []string `json:"cutting_ids"`
	PlantIDs   []string `json:"plant_ids"`

	// Conversiones por peso (gramos).
	InitialWeight *decimal.Decimal `json:"initial_weight"`
	InputWeight   *decimal.Decimal `json:"input_weight"`
	FinalWeight   *decimal.Decimal `json:"final_weight"`
	OutputWeight  *decimal.Decimal `json:"output_weight"`
	SampleWeight  *decimal.Decimal `json:"sample_weight"`
	TotalWeight   *decimal.Decimal `json:"total_weight"`
	UnitWeight    *decimal.Decimal `json:"unit_weight"`
	UnitCount     int              `json:"unit_count"`

	ProductType string `json:"product_type" validate:"omitempty,oneof=marijuana hashish"`
}

// ConvertResponse resultado de una conversión. Partial se llena cuando un
// paso previo (merma o muestra) quedó comprometido pero la conversión falló:
// esa destrucción es real y auditada, no se revierte.
type ConvertResponse struct {
	Batch        *BatchResponse `json:"batch"`
	SourceBatch  *BatchResponse `json:"source_batch"`
	CreatedCount int            `json:"created_count"`
	Partial      string         `json:"partial,omitempty"`
}

// DestroyRequest cuerpo de los POST destroy_*.
type DestroyRequest struct {
	Reason        string `json:"reason" validate:"required"`
	DestroyedByID string `json:"destroyed_by_id" validate:"required,uuid4"`

	// Por unidades (etapas granulares) o por cantidad (etapas de peso).
	PlantIDs   []string         `json:"plant_ids"`
	CuttingIDs []string         `json:"cutting_ids"`
	UnitIDs    []string         `json:"unit_ids"`
	Quantity   *decimal.Decimal `json:"quantity"`
}

// DestroyResponse devuelve el lote mutado y el asiento creado.
type DestroyResponse struct {
	Batch       *BatchResponse       `json:"batch"`
	Destruction *DestructionResponse `json:"destruction"`
}

// DestructionResponse asiento de destrucción.
type DestructionResponse struct {
	ID           string          `json:"id"`
	BatchID      string          `json:"batch_id"`
	UnitIDs      []string        `json:"unit_ids,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	Reason       string          `json:"reason"`
	AuthorizedBy string          `json:"authorized_by"`
	DestroyedAt  time.Time       `json:"destroyed_at"`
}

// DestructionFromEntity mapea el asiento al DTO.
func DestructionFromEntity(d *entity.DestructionRecord) *DestructionResponse {
	return &DestructionResponse{
		ID:           d.ID,
		BatchID:      d.BatchID,
		UnitIDs:      d.UnitIDs,
		Quantity:     d.Quantity,
		Reason:       d.Reason,
		AuthorizedBy: d.AuthorizedBy,
		DestroyedAt:  d.DestroyedAt,
	}
}

// UpdateLabResultsRequest resultados de laboratorio de un lote en labtesting.
type UpdateLabResultsRequest struct {
	Status     string           `json:"status" validate:"required,oneof=pending passed failed"`
	THCContent *decimal.Decimal `json:"thc_content" validate:"omitempty"`
	CBDContent *decimal.Decimal `json:"cbd_content" validate:"omitempty"`
}

// DistributeRequest entrega de envases a un miembro.
type DistributeRequest struct {
	UnitIDs     []string `json:"unit_ids" validate:"required,min=1"`
	RecipientID string   `json:"recipient_id" validate:"required,uuid4"`
	MemberID    string   `json:"member_id" validate:"required,uuid4"`
}

// DistributeResponse resultado de una entrega. Cada lote de empaque se
// procesa como operación independiente: los que fallan quedan en Errors sin
// revertir los que ya se comprometieron.
type DistributeResponse struct {
	Distributions []*BatchResponse `json:"distributions"`
	CreatedCount  int              `json:"created_count"`
	Errors        []string         `json:"errors,omitempty"`
}

// AvailableUnitResponse envase disponible para distribución.
type AvailableUnitResponse struct {
	ID           string          `json:"id"`
	BatchID      string          `json:"batch_id"`
	ChargeNumber string          `json:"charge_number"`
	Strain       string          `json:"strain"`
	ProductType  string          `json:"product_type"`
	UnitWeight   decimal.Decimal `json:"unit_weight"`
}

// LineageResponse cadena de custodia de un lote.
type LineageResponse struct {
	Batch       *BatchResponse   `json:"batch"`
	Ancestors   []*BatchResponse `json:"ancestors"`   // raíz primero
	Descendants []*BatchResponse `json:"descendants"` // sin orden garantizado
}
