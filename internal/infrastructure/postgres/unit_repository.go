package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
	"github.com/clubverde/trazabilidad-api/internal/domain/repository"
)

var _ repository.UnitRepository = (*UnitRepo)(nil)

// UnitRepo implementación del puerto de unidades sobre PostgreSQL (usable con
// pool o tx). Las unidades nunca se borran: destruir o convertir solo marca.
type UnitRepo struct {
	q Querier
}

// NewUnitRepository construye el adaptador. Pasar pool o tx (Querier).
func NewUnitRepository(q Querier) *UnitRepo {
	return &UnitRepo{q: q}
}

const unitColumns = `
	id, batch_id, is_destroyed, destroyed_at, destroyed_by, destroy_reason,
	is_converted, converted_at, converted_batch_id, created_at`

func scanUnit(row batchScanner) (*entity.Unit, error) {
	var u entity.Unit
	var destroyedBy, destroyReason, convertedBatchID *string
	err := row.Scan(
		&u.ID, &u.BatchID, &u.IsDestroyed, &u.DestroyedAt, &destroyedBy, &destroyReason,
		&u.IsConverted, &u.ConvertedAt, &convertedBatchID, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.DestroyedBy = deref(destroyedBy)
	u.DestroyReason = deref(destroyReason)
	u.ConvertedBatchID = deref(convertedBatchID)
	return &u, nil
}

// CreateBulk inserta todas las unidades nuevas de un lote en un solo INSERT.
func (r *UnitRepo) CreateBulk(ctx context.Context, units []*entity.Unit) error {
	if len(units) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO units (id, batch_id, created_at) VALUES `)
	args := make([]any, 0, len(units)*3)
	for i, u := range units {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "($%d, $%d, $%d)", len(args)+1, len(args)+2, len(args)+3)
		args = append(args, u.ID, u.BatchID, u.CreatedAt)
	}
	if _, err := r.q.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("create units: %w", err)
	}
	return nil
}

// List unidades de un lote, filtrables por destruidas/convertidas.
func (r *UnitRepo) List(ctx context.Context, f repository.UnitFilter) ([]*entity.Unit, int, error) {
	conds := []string{"batch_id = $1"}
	args := []any{f.BatchID}
	if f.Destroyed != nil {
		args = append(args, *f.Destroyed)
		conds = append(conds, fmt.Sprintf("is_destroyed = $%d", len(args)))
	}
	if f.Converted != nil {
		args = append(args, *f.Converted)
		conds = append(conds, fmt.Sprintf("is_converted = $%d", len(args)))
	}
	query := `SELECT ` + unitColumns + `, COUNT(*) OVER() AS total FROM units WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY created_at, id`
	if f.PageSize > 0 {
		page := f.Page
		if page <= 0 {
			page = 1
		}
		args = append(args, f.PageSize, (page-1)*f.PageSize)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	var out []*entity.Unit
	var total int
	for rows.Next() {
		var u entity.Unit
		var destroyedBy, destroyReason, convertedBatchID *string
		err := rows.Scan(
			&u.ID, &u.BatchID, &u.IsDestroyed, &u.DestroyedAt, &destroyedBy, &destroyReason,
			&u.IsConverted, &u.ConvertedAt, &convertedBatchID, &u.CreatedAt, &total,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan unit: %w", err)
		}
		u.DestroyedBy = deref(destroyedBy)
		u.DestroyReason = deref(destroyReason)
		u.ConvertedBatchID = deref(convertedBatchID)
		out = append(out, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list units: %w", err)
	}
	return out, total, nil
}

// GetByIDs devuelve solo las unidades que pertenecen al lote; ids ajenos no
// aparecen en el resultado.
func (r *UnitRepo) GetByIDs(ctx context.Context, batchID string, ids []string) ([]*entity.Unit, error) {
	query := `SELECT ` + unitColumns + ` FROM units WHERE batch_id = $1 AND id = ANY($2)`
	rows, err := r.q.Query(ctx, query, batchID, ids)
	if err != nil {
		return nil, fmt.Errorf("get units by ids: %w", err)
	}
	defer rows.Close()

	var out []*entity.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("get units by ids: scan: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get units by ids: %w", err)
	}
	return out, nil
}

// MarkDestroyed marca como destruidas solo unidades todavía activas y
// devuelve cuántas filas cambiaron; el caso de uso detecta así carreras.
func (r *UnitRepo) MarkDestroyed(ctx context.Context, batchID string, ids []string, reason, authorizedBy string, at time.Time) (int64, error) {
	query := `
		UPDATE units SET is_destroyed = TRUE, destroyed_at = $3, destroyed_by = $4, destroy_reason = $5
		WHERE batch_id = $1 AND id = ANY($2)
			AND NOT is_destroyed AND NOT is_converted`
	tag, err := r.q.Exec(ctx, query, batchID, ids, at, authorizedBy, reason)
	if err != nil {
		return 0, fmt.Errorf("mark units destroyed: %w", err)
	}
	return tag.RowsAffected(), nil
}

// MarkConverted marca como convertidas solo unidades todavía activas.
func (r *UnitRepo) MarkConverted(ctx context.Context, batchID string, ids []string, targetBatchID string, at time.Time) (int64, error) {
	query := `
		UPDATE units SET is_converted = TRUE, converted_at = $3, converted_batch_id = $4
		WHERE batch_id = $1 AND id = ANY($2)
			AND NOT is_destroyed AND NOT is_converted`
	tag, err := r.q.Exec(ctx, query, batchID, ids, at, targetBatchID)
	if err != nil {
		return 0, fmt.Errorf("mark units converted: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountByBatch contadores derivados del estado de las unidades del lote.
func (r *UnitRepo) CountByBatch(ctx context.Context, batchID string) (*repository.UnitCounts, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE NOT is_destroyed AND NOT is_converted),
			COUNT(*) FILTER (WHERE is_destroyed),
			COUNT(*) FILTER (WHERE is_converted)
		FROM units WHERE batch_id = $1`
	c := &repository.UnitCounts{}
	if err := r.q.QueryRow(ctx, query, batchID).Scan(&c.Active, &c.Destroyed, &c.Converted); err != nil {
		return nil, fmt.Errorf("count units: %w", err)
	}
	return c, nil
}

// ActiveIDsByBatch ids de unidades activas agrupados por lote.
func (r *UnitRepo) ActiveIDsByBatch(ctx context.Context, batchIDs []string) (map[string][]string, error) {
	query := `
		SELECT batch_id, id FROM units
		WHERE batch_id = ANY($1) AND NOT is_destroyed AND NOT is_converted
		ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, batchIDs)
	if err != nil {
		return nil, fmt.Errorf("active unit ids: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string, len(batchIDs))
	for rows.Next() {
		var batchID, id string
		if err := rows.Scan(&batchID, &id); err != nil {
			return nil, fmt.Errorf("active unit ids: scan: %w", err)
		}
		out[batchID] = append(out[batchID], id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("active unit ids: %w", err)
	}
	return out, nil
}

// AvailablePackagingUnits envases activos de lotes de empaque con los datos
// del lote que la UI muestra en la vista de distribución.
func (r *UnitRepo) AvailablePackagingUnits(ctx context.Context) ([]*repository.AvailableUnit, error) {
	query := `
		SELECT u.id, u.batch_id, u.created_at,
			b.charge_number, b.strain, COALESCE(b.product_type, ''), b.unit_weight
		FROM units u
		JOIN batches b ON b.id = u.batch_id
		WHERE b.stage = $1 AND NOT u.is_destroyed AND NOT u.is_converted
		ORDER BY b.charge_number, u.created_at, u.id`
	rows, err := r.q.Query(ctx, query, string(entity.StagePackaging))
	if err != nil {
		return nil, fmt.Errorf("available packaging units: %w", err)
	}
	defer rows.Close()

	var out []*repository.AvailableUnit
	for rows.Next() {
		u := &entity.Unit{}
		a := &repository.AvailableUnit{Unit: u}
		if err := rows.Scan(
			&u.ID, &u.BatchID, &u.CreatedAt,
			&a.ChargeNumber, &a.Strain, &a.ProductType, &a.UnitWeight,
		); err != nil {
			return nil, fmt.Errorf("available packaging units: scan: %w", err)
		}
		a.BatchID = u.BatchID
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("available packaging units: %w", err)
	}
	return out, nil
}
