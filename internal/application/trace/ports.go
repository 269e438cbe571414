package trace

import (
	"context"

	"github.com/clubverde/trazabilidad-api/internal/domain/repository"
)

// Repos repositorios atados a una misma transacción.
type Repos struct {
	Batches repository.BatchRepository
	Units   repository.UnitRepository
	Ledger  repository.LedgerRepository
}

// TxRunner ejecuta un callback dentro de una transacción: Commit si fn
// devuelve nil, Rollback en caso contrario. Implementado en infraestructura
// (PostgreSQL) y con un runner trivial en los tests.
type TxRunner interface {
	Run(ctx context.Context, fn func(r Repos) error) error
}

// ChargeNumberGenerator genera números de charge legibles y únicos.
type ChargeNumberGenerator interface {
	Next() string
}

// DefaultConvertRetries reintentos ante conflicto optimista antes de rendirse.
const DefaultConvertRetries = 3
