package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/clubverde/trazabilidad-api/internal/domain"
	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
	"github.com/clubverde/trazabilidad-api/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// LedgerRepo asientos inmutables de conversión y destrucción sobre
// PostgreSQL. Solo INSERT y SELECT: este adaptador no tiene updates.
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

// AppendConversion agrega un asiento de conversión.
func (r *LedgerRepo) AppendConversion(ctx context.Context, rec *entity.ConversionRecord) error {
	query := `
		INSERT INTO conversion_records (id, source_batch_id, target_batch_id, conversion_type, quantity_moved, performed_by, performed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		rec.ID, rec.SourceBatchID, rec.TargetBatchID, rec.ConversionType,
		rec.QuantityMoved, rec.PerformedBy, rec.PerformedAt,
	)
	if err != nil {
		return fmt.Errorf("append conversion: %w", err)
	}
	return nil
}

// AppendDestruction agrega un asiento de destrucción.
func (r *LedgerRepo) AppendDestruction(ctx context.Context, rec *entity.DestructionRecord) error {
	query := `
		INSERT INTO destruction_records (id, batch_id, unit_ids, quantity, reason, authorized_by, destroyed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		rec.ID, rec.BatchID, rec.UnitIDs, rec.Quantity, rec.Reason,
		rec.AuthorizedBy, rec.DestroyedAt,
	)
	if err != nil {
		return fmt.Errorf("append destruction: %w", err)
	}
	return nil
}

const conversionColumns = `id, source_batch_id, target_batch_id, conversion_type, quantity_moved, performed_by, performed_at`

func (r *LedgerRepo) queryConversions(ctx context.Context, op, query string, args ...any) ([]*entity.ConversionRecord, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []*entity.ConversionRecord
	for rows.Next() {
		var rec entity.ConversionRecord
		err := rows.Scan(
			&rec.ID, &rec.SourceBatchID, &rec.TargetBatchID, &rec.ConversionType,
			&rec.QuantityMoved, &rec.PerformedBy, &rec.PerformedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

const destructionColumns = `id, batch_id, unit_ids, quantity, reason, authorized_by, destroyed_at`

func (r *LedgerRepo) queryDestructions(ctx context.Context, op, query string, args ...any) ([]*entity.DestructionRecord, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []*entity.DestructionRecord
	for rows.Next() {
		var rec entity.DestructionRecord
		err := rows.Scan(
			&rec.ID, &rec.BatchID, &rec.UnitIDs, &rec.Quantity, &rec.Reason,
			&rec.AuthorizedBy, &rec.DestroyedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// ConversionsByBatch asientos donde el lote participa como origen o destino.
func (r *LedgerRepo) ConversionsByBatch(ctx context.Context, batchID string) ([]*entity.ConversionRecord, error) {
	query := `SELECT ` + conversionColumns + `
		FROM conversion_records
		WHERE source_batch_id = $1 OR target_batch_id = $1
		ORDER BY performed_at`
	return r.queryConversions(ctx, "conversions by batch", query, batchID)
}

// DestructionsByBatch asientos de destrucción del lote, en orden cronológico.
func (r *LedgerRepo) DestructionsByBatch(ctx context.Context, batchID string) ([]*entity.DestructionRecord, error) {
	query := `SELECT ` + destructionColumns + `
		FROM destruction_records WHERE batch_id = $1 ORDER BY destroyed_at`
	return r.queryDestructions(ctx, "destructions by batch", query, batchID)
}

// GetDestruction un asiento de destrucción por ID.
func (r *LedgerRepo) GetDestruction(ctx context.Context, id string) (*entity.DestructionRecord, error) {
	query := `SELECT ` + destructionColumns + ` FROM destruction_records WHERE id = $1`
	var rec entity.DestructionRecord
	err := r.q.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.BatchID, &rec.UnitIDs, &rec.Quantity, &rec.Reason,
		&rec.AuthorizedBy, &rec.DestroyedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get destruction: %w", err)
	}
	return &rec, nil
}

// ListConversions asientos de conversión por rango de fechas (para reportes).
func (r *LedgerRepo) ListConversions(ctx context.Context, from, to *time.Time) ([]*entity.ConversionRecord, error) {
	where, args := buildDateRange("performed_at", from, to)
	query := `SELECT ` + conversionColumns + ` FROM conversion_records` + where + ` ORDER BY performed_at`
	return r.queryConversions(ctx, "list conversions", query, args...)
}

// ListDestructions asientos de destrucción por rango de fechas.
func (r *LedgerRepo) ListDestructions(ctx context.Context, from, to *time.Time) ([]*entity.DestructionRecord, error) {
	where, args := buildDateRange("destroyed_at", from, to)
	query := `SELECT ` + destructionColumns + ` FROM destruction_records` + where + ` ORDER BY destroyed_at`
	return r.queryDestructions(ctx, "list destructions", query, args...)
}

func buildDateRange(col string, from, to *time.Time) (string, []any) {
	var conds []string
	var args []any
	if from != nil {
		args = append(args, *from)
		conds = append(conds, fmt.Sprintf("%s >= $%d", col, len(args)))
	}
	if to != nil {
		args = append(args, *to)
		conds = append(conds, fmt.Sprintf("%s <= $%d", col, len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
