package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clubverde/trazabilidad-api/internal/application/dto"
	"github.com/clubverde/trazabilidad-api/internal/domain"
	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
	"github.com/clubverde/trazabilidad-api/internal/domain/repository"
	"github.com/clubverde/trazabilidad-api/pkg/jwt"
)

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// AuthUseCase casos de uso de autenticación: alta de miembros y login.
type AuthUseCase struct {
	members repository.MemberRepository
	jwtCfg  JWTConfig
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(members repository.MemberRepository, jwtCfg JWTConfig) *AuthUseCase {
	return &AuthUseCase{members: members, jwtCfg: jwtCfg}
}

// RegisterMember da de alta un miembro: hashea el password con bcrypt y
// persiste. Devuelve ErrEmailAlreadyExists si el email ya está registrado.
func (uc *AuthUseCase) RegisterMember(ctx context.Context, in dto.RegisterMemberRequest) (*dto.MemberResponse, error) {
	existing, err := uc.members.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrEmailAlreadyExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = entity.RoleCultivador
	}
	now := time.Now()
	member := &entity.Member{
		ID:           uuid.New().String(),
		Email:        in.Email,
		PasswordHash: string(hash),
		DisplayName:  in.DisplayName,
		Role:         role,
		Status:       "active",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.members.Create(ctx, member); err != nil {
		return nil, err
	}
	return toMemberResponse(member), nil
}

// Login verifica email/password, genera JWT y retorna token + miembro.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	member, err := uc.members.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, domain.ErrMemberNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	if member.Status != "active" {
		return nil, domain.ErrForbidden
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, member.ID, member.Role, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		Token:  token,
		Member: toMemberResponse(member),
	}, nil
}

// ListMembers listado paginado para los selectores de la UI (quién autoriza,
// quién recibe una distribución).
func (uc *AuthUseCase) ListMembers(ctx context.Context, page dto.PageRequest) (*dto.ListResponse, error) {
	page.DefaultPage()
	members, total, err := uc.members.List(ctx, page.PageSize, page.Offset())
	if err != nil {
		return nil, err
	}
	results := make([]*dto.MemberResponse, 0, len(members))
	for _, m := range members {
		results = append(results, toMemberResponse(m))
	}
	return &dto.ListResponse{Count: total, Results: results}, nil
}

func toMemberResponse(m *entity.Member) *dto.MemberResponse {
	if m == nil {
		return nil
	}
	return &dto.MemberResponse{
		ID:          m.ID,
		Email:       m.Email,
		DisplayName: m.DisplayName,
		Role:        m.Role,
		Status:      m.Status,
		CreatedAt:   m.CreatedAt,
	}
}
