package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubverde/trazabilidad-api/internal/application/dto"
	"github.com/clubverde/trazabilidad-api/internal/domain"
	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
	"github.com/clubverde/trazabilidad-api/pkg/jwt"
)

type fakeMembers struct {
	byID map[string]*entity.Member
}

func newFakeMembers() *fakeMembers {
	return &fakeMembers{byID: make(map[string]*entity.Member)}
}

func (f *fakeMembers) Create(_ context.Context, m *entity.Member) error {
	f.byID[m.ID] = m
	return nil
}

func (f *fakeMembers) GetByID(_ context.Context, id string) (*entity.Member, error) {
	return f.byID[id], nil
}

func (f *fakeMembers) GetByEmail(_ context.Context, email string) (*entity.Member, error) {
	for _, m := range f.byID {
		if strings.EqualFold(m.Email, email) {
			return m, nil
		}
	}
	return nil, nil
}

func (f *fakeMembers) List(_ context.Context, limit, offset int) ([]*entity.Member, int, error) {
	out := make([]*entity.Member, 0, len(f.byID))
	for _, m := range f.byID {
		out = append(out, m)
	}
	return out, len(out), nil
}

func testConfig() JWTConfig {
	return JWTConfig{Secret: "secreto-de-test", ExpMinutes: 60, Issuer: "trazabilidad-test"}
}

func TestRegisterAndLogin(t *testing.T) {
	members := newFakeMembers()
	uc := NewAuthUseCase(members, testConfig())
	ctx := context.Background()

	reg, err := uc.RegisterMember(ctx, dto.RegisterMemberRequest{
		Email:       "admin@clubverde.example",
		Password:    "contraseña-larga",
		DisplayName: "Admin",
		Role:        entity.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, reg.Role)
	assert.Equal(t, "active", reg.Status)

	// El hash nunca viaja en la respuesta y nunca es el password en claro.
	stored, err := members.GetByEmail(ctx, "admin@clubverde.example")
	require.NoError(t, err)
	assert.NotEqual(t, "contraseña-larga", stored.PasswordHash)

	resp, err := uc.Login(ctx, dto.LoginRequest{Email: "admin@clubverde.example", Password: "contraseña-larga"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	memberID, role, err := jwt.Parse(testConfig().Secret, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.ID, memberID)
	assert.Equal(t, entity.RoleAdmin, role)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	uc := NewAuthUseCase(newFakeMembers(), testConfig())
	ctx := context.Background()

	_, err := uc.RegisterMember(ctx, dto.RegisterMemberRequest{
		Email: "socio@clubverde.example", Password: "contraseña-larga", DisplayName: "Socio",
	})
	require.NoError(t, err)
	_, err = uc.RegisterMember(ctx, dto.RegisterMemberRequest{
		Email: "socio@clubverde.example", Password: "otra-contraseña", DisplayName: "Socio 2",
	})
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
}

func TestLoginRejections(t *testing.T) {
	members := newFakeMembers()
	uc := NewAuthUseCase(members, testConfig())
	ctx := context.Background()

	reg, err := uc.RegisterMember(ctx, dto.RegisterMemberRequest{
		Email: "socio@clubverde.example", Password: "contraseña-larga", DisplayName: "Socio",
	})
	require.NoError(t, err)

	_, err = uc.Login(ctx, dto.LoginRequest{Email: "nadie@clubverde.example", Password: "x"})
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)

	_, err = uc.Login(ctx, dto.LoginRequest{Email: "socio@clubverde.example", Password: "incorrecta"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	members.byID[reg.ID].Status = "suspended"
	_, err = uc.Login(ctx, dto.LoginRequest{Email: "socio@clubverde.example", Password: "contraseña-larga"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
