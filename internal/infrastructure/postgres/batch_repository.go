package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/clubverde/trazabilidad-api/internal/domain"
	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
	"github.com/clubverde/trazabilidad-api/internal/domain/repository"
)

var _ repository.BatchRepository = (*BatchRepo)(nil)

// BatchRepo implementación del Batch Store sobre PostgreSQL (usable con pool o tx).
type BatchRepo struct {
	q Querier
}

// NewBatchRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBatchRepository(q Querier) *BatchRepo {
	return &BatchRepo{q: q}
}

const batchColumns = `
	id, charge_number, stage, parent_batch_id, strain, product_type, room_id,
	total_quantity, active_quantity, destroyed_quantity, converted_quantity,
	initial_weight, final_weight, input_weight, output_weight, sample_weight,
	unit_weight, unit_count, recipient_id, lab_status, thc_content, cbd_content,
	version, created_at, created_by`

type batchScanner interface {
	Scan(dest ...any) error
}

func scanBatch(row batchScanner) (*entity.Batch, error) {
	var b entity.Batch
	var parentID, productType, roomID, recipientID, labStatus *string
	err := row.Scan(
		&b.ID, &b.ChargeNumber, &b.Stage, &parentID, &b.Strain, &productType, &roomID,
		&b.TotalQuantity, &b.ActiveQuantity, &b.DestroyedQuantity, &b.ConvertedQuantity,
		&b.InitialWeight, &b.FinalWeight, &b.InputWeight, &b.OutputWeight, &b.SampleWeight,
		&b.UnitWeight, &b.UnitCount, &recipientID, &labStatus, &b.THCContent, &b.CBDContent,
		&b.Version, &b.CreatedAt, &b.CreatedBy,
	)
	if err != nil {
		return nil, err
	}
	b.ParentBatchID = deref(parentID)
	b.ProductType = deref(productType)
	b.RoomID = deref(roomID)
	b.RecipientID = deref(recipientID)
	b.LabStatus = deref(labStatus)
	return &b, nil
}

// Create persiste un lote nuevo.
func (r *BatchRepo) Create(ctx context.Context, b *entity.Batch) error {
	query := `
		INSERT INTO batches (
			id, charge_number, stage, parent_batch_id, strain, product_type, room_id,
			total_quantity, active_quantity, destroyed_quantity, converted_quantity,
			initial_weight, final_weight, input_weight, output_weight, sample_weight,
			unit_weight, unit_count, recipient_id, lab_status, thc_content, cbd_content,
			version, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`
	_, err := r.q.Exec(ctx, query,
		b.ID, b.ChargeNumber, string(b.Stage), nullable(b.ParentBatchID), b.Strain,
		nullable(b.ProductType), nullable(b.RoomID),
		b.TotalQuantity, b.ActiveQuantity, b.DestroyedQuantity, b.ConvertedQuantity,
		b.InitialWeight, b.FinalWeight, b.InputWeight, b.OutputWeight, b.SampleWeight,
		b.UnitWeight, b.UnitCount, nullable(b.RecipientID), nullable(b.LabStatus),
		b.THCContent, b.CBDContent, b.Version, b.CreatedAt, b.CreatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// GetByID obtiene un lote por ID. Devuelve (nil, nil) si no existe.
func (r *BatchRepo) GetByID(ctx context.Context, id string) (*entity.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE id = $1`
	b, err := scanBatch(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get batch by id: %w", err)
	}
	return b, nil
}

// List lista lotes según el filtro, ordenados del más reciente al más viejo.
func (r *BatchRepo) List(ctx context.Context, f repository.BatchFilter) ([]*entity.Batch, int, error) {
	where, args := buildBatchWhere(f)
	query := `SELECT ` + batchColumns + `, COUNT(*) OVER() AS total FROM batches` + where +
		` ORDER BY created_at DESC, charge_number DESC`
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
		return nil, 0, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var out []*entity.Batch
	var total int
	for rows.Next() {
		var b entity.Batch
		var parentID, productType, roomID, recipientID, labStatus *string
		err := rows.Scan(
			&b.ID, &b.ChargeNumber, &b.Stage, &parentID, &b.Strain, &productType, &roomID,
			&b.TotalQuantity, &b.ActiveQuantity, &b.DestroyedQuantity, &b.ConvertedQuantity,
			&b.InitialWeight, &b.FinalWeight, &b.InputWeight, &b.OutputWeight, &b.SampleWeight,
			&b.UnitWeight, &b.UnitCount, &recipientID, &labStatus, &b.THCContent, &b.CBDContent,
			&b.Version, &b.CreatedAt, &b.CreatedBy, &total,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan batch: %w", err)
		}
		b.ParentBatchID = deref(parentID)
		b.ProductType = deref(productType)
		b.RoomID = deref(roomID)
		b.RecipientID = deref(recipientID)
		b.LabStatus = deref(labStatus)
		out = append(out, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list batches: %w", err)
	}
	return out, total, nil
}

func buildBatchWhere(f repository.BatchFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Stage != "" {
		add("stage = $%d", string(f.Stage))
	}
	if f.Year > 0 {
		add("EXTRACT(YEAR FROM created_at) = $%d", f.Year)
	}
	if f.Month > 0 {
		add("EXTRACT(MONTH FROM created_at) = $%d", f.Month)
	}
	if f.Day > 0 {
		add("EXTRACT(DAY FROM created_at) = $%d", f.Day)
	}
	if f.ProductType != "" {
		add("product_type = $%d", f.ProductType)
	}
	if f.Strain != "" {
		add("strain = $%d", f.Strain)
	}
	if f.LabStatus != "" {
		add("lab_status = $%d", f.LabStatus)
	}
	if f.HasActive != nil {
		if *f.HasActive {
			conds = append(conds, "active_quantity > 0")
		} else {
			conds = append(conds, "active_quantity = 0")
		}
	}
	if f.HasDestroyed != nil {
		if *f.HasDestroyed {
			conds = append(conds, "destroyed_quantity > 0")
		} else {
			conds = append(conds, "destroyed_quantity = 0")
		}
	}
	if f.HasConverted != nil {
		if *f.HasConverted {
			conds = append(conds, "converted_quantity > 0")
		} else {
			conds = append(conds, "converted_quantity = 0")
		}
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ApplyDelta decrementa la cantidad activa bajo concurrencia optimista: un
// único UPDATE condicionado a la versión leída y a que el delta quepa en lo
// activo. Nunca puede persistir un estado que viole I1-I3.
func (r *BatchRepo) ApplyDelta(ctx context.Context, batchID string, version int64, destroyedDelta, convertedDelta decimal.Decimal) (*entity.Batch, error) {
	if destroyedDelta.IsNegative() || convertedDelta.IsNegative() || destroyedDelta.Add(convertedDelta).IsZero() {
		return nil, domain.ErrInvalidInput
	}
	query := `
		UPDATE batches SET
			active_quantity    = active_quantity - $3 - $4,
			destroyed_quantity = destroyed_quantity + $3,
			converted_quantity = converted_quantity + $4,
			version            = version + 1
		WHERE id = $1 AND version = $2 AND active_quantity >= $3 + $4
		RETURNING ` + batchColumns
	b, err := scanBatch(r.q.QueryRow(ctx, query, batchID, version, destroyedDelta, convertedDelta))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.classifyUpdateMiss(ctx, batchID, version)
		}
		return nil, fmt.Errorf("apply delta: %w", err)
	}
	return b, nil
}

// SetQuantities reestablece los contadores derivados del estado de las
// unidades, condicionado a versión y a que la suma conserve el total (I1).
func (r *BatchRepo) SetQuantities(ctx context.Context, batchID string, version int64, active, destroyed, converted decimal.Decimal) (*entity.Batch, error) {
	if active.IsNegative() || destroyed.IsNegative() || converted.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	query := `
		UPDATE batches SET
			active_quantity    = $3,
			destroyed_quantity = $4,
			converted_quantity = $5,
			version            = version + 1
		WHERE id = $1 AND version = $2
			AND total_quantity = $3 + $4 + $5
			AND active_quantity >= $3
		RETURNING ` + batchColumns
	b, err := scanBatch(r.q.QueryRow(ctx, query, batchID, version, active, destroyed, converted))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.classifyUpdateMiss(ctx, batchID, version)
		}
		return nil, fmt.Errorf("set quantities: %w", err)
	}
	return b, nil
}

// classifyUpdateMiss distingue por qué un UPDATE condicionado no tocó filas.
func (r *BatchRepo) classifyUpdateMiss(ctx context.Context, batchID string, version int64) error {
	var current int64
	err := r.q.QueryRow(ctx, `SELECT version FROM batches WHERE id = $1`, batchID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("classify update miss: %w", err)
	}
	if current != version {
		return domain.ErrConflict
	}
	return domain.ErrInsufficientQuantity
}

// UpdateLabResults persiste estado y porcentajes medidos de laboratorio,
// condicionado a la versión leída igual que los demás mutadores.
func (r *BatchRepo) UpdateLabResults(ctx context.Context, batchID string, version int64, status string, thc, cbd *decimal.Decimal) (*entity.Batch, error) {
	query := `
		UPDATE batches SET lab_status = $3, thc_content = $4, cbd_content = $5, version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING ` + batchColumns
	b, err := scanBatch(r.q.QueryRow(ctx, query, batchID, version, status, thc, cbd))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.classifyUpdateMiss(ctx, batchID, version)
		}
		return nil, fmt.Errorf("update lab results: %w", err)
	}
	return b, nil
}

// Ancestors devuelve la cadena de ancestros raíz-primero, sin incluir al lote.
func (r *BatchRepo) Ancestors(ctx context.Context, batchID string) ([]*entity.Batch, error) {
	query := `
		WITH RECURSIVE chain AS (
			SELECT b.*, 0 AS depth
			FROM batches b
			WHERE b.id = (SELECT parent_batch_id FROM batches WHERE id = $1)
			UNION ALL
			SELECT p.*, c.depth + 1
			FROM batches p
			JOIN chain c ON p.id = c.parent_batch_id
		)
		SELECT ` + batchColumns + ` FROM chain ORDER BY depth DESC`
	return r.queryBatches(ctx, "ancestors", query, batchID)
}

// Descendants devuelve el subárbol completo bajo el lote, sin orden garantizado.
func (r *BatchRepo) Descendants(ctx context.Context, batchID string) ([]*entity.Batch, error) {
	query := `
		WITH RECURSIVE sub AS (
			SELECT b.* FROM batches b WHERE b.parent_batch_id = $1
			UNION ALL
			SELECT b.* FROM batches b JOIN sub s ON b.parent_batch_id = s.id
		)
		SELECT ` + batchColumns + ` FROM sub`
	return r.queryBatches(ctx, "descendants", query, batchID)
}

func (r *BatchRepo) queryBatches(ctx context.Context, op, query string, args ...any) ([]*entity.Batch, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []*entity.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

const totalsAggregates = `
	COUNT(*),
	COUNT(*) FILTER (WHERE active_quantity > 0),
	COUNT(*) FILTER (WHERE destroyed_quantity > 0),
	COUNT(*) FILTER (WHERE converted_quantity > 0),
	COALESCE(SUM(total_quantity), 0),
	COALESCE(SUM(active_quantity), 0),
	COALESCE(SUM(destroyed_quantity), 0),
	COALESCE(SUM(converted_quantity), 0),
	COALESCE(SUM(initial_weight) FILTER (WHERE active_quantity > 0), 0),
	COALESCE(SUM(final_weight) FILTER (WHERE active_quantity > 0), 0),
	COALESCE(SUM(input_weight) FILTER (WHERE active_quantity > 0), 0),
	COALESCE(SUM(output_weight) FILTER (WHERE active_quantity > 0), 0),
	COALESCE(SUM(initial_weight) FILTER (WHERE destroyed_quantity > 0 AND active_quantity = 0), 0),
	COALESCE(SUM(output_weight) FILTER (WHERE destroyed_quantity > 0 AND active_quantity = 0), 0),
	COALESCE(SUM(active_quantity * unit_weight) FILTER (WHERE active_quantity > 0), 0)`

func scanTotals(row batchScanner, t *repository.StageTotals) error {
	return row.Scan(
		&t.TotalBatches, &t.ActiveBatches, &t.DestroyedBatches, &t.ConvertedBatches,
		&t.TotalQuantity, &t.ActiveQuantity, &t.DestroyedQuantity, &t.ConvertedQuantity,
		&t.ActiveInitialWeight, &t.ActiveFinalWeight, &t.ActiveInputWeight, &t.ActiveOutputWeight,
		&t.DestroyedInitialWeight, &t.DestroyedOutputWeight, &t.ActivePackedWeight,
	)
}

// Totals agregados de una etapa, siempre calculados sobre el estado actual
// del store (los contadores nunca se cachean aparte).
func (r *BatchRepo) Totals(ctx context.Context, stage entity.Stage, f repository.BatchFilter) (*repository.StageTotals, error) {
	f.Stage = stage
	where, args := buildBatchWhere(f)
	t := &repository.StageTotals{}
	if err := scanTotals(r.q.QueryRow(ctx, `SELECT`+totalsAggregates+` FROM batches`+where, args...), t); err != nil {
		return nil, fmt.Errorf("stage totals: %w", err)
	}

	if stage.UnitGranular() {
		unitsQuery := `
			SELECT COUNT(*)
			FROM units u
			JOIN batches b ON b.id = u.batch_id
			WHERE b.stage = $1 AND b.active_quantity > 0
				AND NOT u.is_destroyed AND NOT u.is_converted`
		if err := r.q.QueryRow(ctx, unitsQuery, string(stage)).Scan(&t.ActiveUnits); err != nil {
			return nil, fmt.Errorf("stage totals: active units: %w", err)
		}
	}
	return t, nil
}

// TotalsByProductType agregados de una etapa desglosados por tipo de producto.
func (r *BatchRepo) TotalsByProductType(ctx context.Context, stage entity.Stage) (map[string]*repository.StageTotals, error) {
	query := `SELECT product_type,` + totalsAggregates + `
		FROM batches WHERE stage = $1 AND product_type IS NOT NULL
		GROUP BY product_type`
	rows, err := r.q.Query(ctx, query, string(stage))
	if err != nil {
		return nil, fmt.Errorf("totals by product type: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*repository.StageTotals)
	for rows.Next() {
		var productType string
		t := &repository.StageTotals{}
		if err := rows.Scan(
			&productType,
			&t.TotalBatches, &t.ActiveBatches, &t.DestroyedBatches, &t.ConvertedBatches,
			&t.TotalQuantity, &t.ActiveQuantity, &t.DestroyedQuantity, &t.ConvertedQuantity,
			&t.ActiveInitialWeight, &t.ActiveFinalWeight, &t.ActiveInputWeight, &t.ActiveOutputWeight,
			&t.DestroyedInitialWeight, &t.DestroyedOutputWeight, &t.ActivePackedWeight,
		); err != nil {
			return nil, fmt.Errorf("totals by product type: scan: %w", err)
		}
		out[productType] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("totals by product type: %w", err)
	}

	if stage.UnitGranular() {
		unitsQuery := `
			SELECT b.product_type, COUNT(*)
			FROM units u
			JOIN batches b ON b.id = u.batch_id
			WHERE b.stage = $1 AND b.active_quantity > 0 AND b.product_type IS NOT NULL
				AND NOT u.is_destroyed AND NOT u.is_converted
			GROUP BY b.product_type`
		unitRows, err := r.q.Query(ctx, unitsQuery, string(stage))
		if err != nil {
			return nil, fmt.Errorf("totals by product type: active units: %w", err)
		}
		defer unitRows.Close()
		for unitRows.Next() {
			var productType string
			var n int64
			if err := unitRows.Scan(&productType, &n); err != nil {
				return nil, fmt.Errorf("totals by product type: scan units: %w", err)
			}
			if t, ok := out[productType]; ok {
				t.ActiveUnits = n
			}
		}
		if err := unitRows.Err(); err != nil {
			return nil, fmt.Errorf("totals by product type: %w", err)
		}
	}
	return out, nil
}

// TotalsByLabStatus agregados de laboratorio desglosados por estado.
func (r *BatchRepo) TotalsByLabStatus(ctx context.Context) (map[string]*repository.StageTotals, error) {
	query := `SELECT lab_status,` + totalsAggregates + `
		FROM batches WHERE stage = $1 AND lab_status IS NOT NULL
		GROUP BY lab_status`
	rows, err := r.q.Query(ctx, query, string(entity.StageLabTesting))
	if err != nil {
		return nil, fmt.Errorf("totals by lab status: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*repository.StageTotals)
	for rows.Next() {
		var status string
		t := &repository.StageTotals{}
		if err := rows.Scan(
			&status,
			&t.TotalBatches, &t.ActiveBatches, &t.DestroyedBatches, &t.ConvertedBatches,
			&t.TotalQuantity, &t.ActiveQuantity, &t.DestroyedQuantity, &t.ConvertedQuantity,
			&t.ActiveInitialWeight, &t.ActiveFinalWeight, &t.ActiveInputWeight, &t.ActiveOutputWeight,
			&t.DestroyedInitialWeight, &t.DestroyedOutputWeight, &t.ActivePackedWeight,
		); err != nil {
			return nil, fmt.Errorf("totals by lab status: scan: %w", err)
		}
		out[status] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("totals by lab status: %w", err)
	}
	return out, nil
}

// StrainOptions variedades distintas registradas en lotes raíz.
func (r *BatchRepo) StrainOptions(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT strain FROM batches
		WHERE parent_batch_id IS NULL AND strain <> ''
		ORDER BY strain`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("strain options: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var strain string
		if err := rows.Scan(&strain); err != nil {
			return nil, fmt.Errorf("strain options: scan: %w", err)
		}
		out = append(out, strain)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("strain options: %w", err)
	}
	return out, nil
}

// nullable mapea string vacío a NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
