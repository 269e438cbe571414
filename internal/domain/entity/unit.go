package entity

import "time"

// Unit es una unidad individual dentro de un lote con seguimiento por unidad
// (planta madre, esqueje, planta en floración o envase). Nunca se borra: la
// destrucción solo marca el flag y la conversión registra el lote destino.
type Unit struct {
	ID      string
	BatchID string

	IsDestroyed   bool
	DestroyedAt   *time.Time
	DestroyedBy   string // MemberID que autorizó
	DestroyReason string

	IsConverted      bool
	ConvertedAt      *time.Time
	ConvertedBatchID string // lote destino de la conversión

	CreatedAt time.Time
}

// Active indica si la unidad sigue viva en su lote.
func (u *Unit) Active() bool { return !u.IsDestroyed && !u.IsConverted }
