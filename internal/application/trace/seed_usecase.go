package trace

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clubverde/trazabilidad-api/internal/application/dto"
	"github.com/clubverde/trazabilidad-api/internal/domain"
	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
	"github.com/clubverde/trazabilidad-api/internal/domain/repository"
)

// SeedUseCase alta manual de lotes raíz: plantas madre sembradas desde
// semilla. Único punto del sistema donde nace material sin lote padre.
type SeedUseCase struct {
	txRunner TxRunner
	members  repository.MemberRepository
	rooms    repository.RoomRepository
	charges  ChargeNumberGenerator
}

// NewSeedUseCase construye el caso de uso.
func NewSeedUseCase(txRunner TxRunner, members repository.MemberRepository, rooms repository.RoomRepository, charges ChargeNumberGenerator) *SeedUseCase {
	return &SeedUseCase{txRunner: txRunner, members: members, rooms: rooms, charges: charges}
}

// CreateRoot crea un lote de plantas madre con sus unidades.
func (uc *SeedUseCase) CreateRoot(ctx context.Context, in dto.CreateSeedRequest) (*dto.BatchResponse, error) {
	strain := strings.TrimSpace(in.Strain)
	if strain == "" || in.Quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	member, err := uc.members.GetByID(ctx, in.MemberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, domain.ErrMemberNotFound
	}
	if in.RoomID != "" {
		room, err := uc.rooms.GetByID(ctx, in.RoomID)
		if err != nil {
			return nil, err
		}
		if room == nil {
			return nil, domain.ErrNotFound
		}
	}

	now := time.Now()
	total := decimal.NewFromInt(int64(in.Quantity))
	batch := &entity.Batch{
		ID:             uuid.New().String(),
		ChargeNumber:   uc.charges.Next(),
		Stage:          entity.StageMotherPlant,
		Strain:         strain,
		RoomID:         in.RoomID,
		TotalQuantity:  total,
		ActiveQuantity: total,
		CreatedAt:      now,
		CreatedBy:      member.ID,
	}

	err = uc.txRunner.Run(ctx, func(r Repos) error {
		if err := r.Batches.Create(ctx, batch); err != nil {
			return err
		}
		units := make([]*entity.Unit, 0, in.Quantity)
		for i := 0; i < in.Quantity; i++ {
			units = append(units, &entity.Unit{
				ID:        uuid.New().String(),
				BatchID:   batch.ID,
				CreatedAt: now,
			})
		}
		return r.Units.CreateBulk(ctx, units)
	})
	if err != nil {
		return nil, err
	}
	return dto.BatchFromEntity(batch), nil
}
