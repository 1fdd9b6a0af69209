package usuario

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestaozabele/denuncias/internal/acesso"
	"github.com/gestaozabele/denuncias/internal/apperr"
	"github.com/gestaozabele/denuncias/internal/empresa"
)

type stubRepo struct {
	usuarios map[uuid.UUID]*Usuario
}

func (s *stubRepo) GetByID(ctx context.Context, id uuid.UUID) (*Usuario, error) {
	u, ok := s.usuarios[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *stubRepo) ExistsEmail(ctx context.Context, email string, except *uuid.UUID) (bool, error) {
	for _, u := range s.usuarios {
		if strings.EqualFold(u.Email, email) && (except == nil || *except != u.ID) {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubRepo) List(ctx context.Context, filtro Filtro) ([]Usuario, error) {
	out := []Usuario{}
	for _, u := range s.usuarios {
		if filtro.EmpresaID != nil && (u.EmpresaID == nil || *u.EmpresaID != *filtro.EmpresaID) {
			continue
		}
		out = append(out, *u)
	}
	return out, nil
}

func (s *stubRepo) Create(ctx context.Context, p createParams) (*Usuario, error) {
	for _, u := range s.usuarios {
		if strings.EqualFold(u.Email, p.Email) {
			return nil, errEmailDuplicado
		}
	}
	u := &Usuario{
		ID:        uuid.New(),
		Email:     p.Email,
		Nome:      p.Nome,
		SenhaHash: p.SenhaHash,
		Perfil:    p.Perfil,
		EmpresaID: p.EmpresaID,
		Ativo:     p.Ativo,
		CreatedAt: time.Now(),
	}
	s.usuarios[u.ID] = u
	cp := *u
	return &cp, nil
}

func (s *stubRepo) Update(ctx context.Context, id uuid.UUID, p updateParams) (*Usuario, error) {
	u, ok := s.usuarios[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Nome != nil {
		u.Nome = *p.Nome
	}
	if p.SenhaHash != nil {
		u.SenhaHash = *p.SenhaHash
	}
	if p.Perfil != nil {
		u.Perfil = *p.Perfil
	}
	if p.EmpresaID != nil {
		u.EmpresaID = p.EmpresaID
	} else if p.ClearEmpresa {
		u.EmpresaID = nil
	}
	if p.Ativo != nil {
		u.Ativo = *p.Ativo
	}
	cp := *u
	return &cp, nil
}

func (s *stubRepo) Count(ctx context.Context) (Contagem, error) {
	c := Contagem{Total: len(s.usuarios)}
	for _, u := range s.usuarios {
		if u.Ativo {
			c.Ativos++
		}
	}
	return c, nil
}

type stubEmpresas struct {
	ids map[uuid.UUID]bool
}

func (s stubEmpresas) Resolve(ctx context.Context, id uuid.UUID) (*empresa.Empresa, error) {
	if !s.ids[id] {
		return nil, empresa.ErrNotFound
	}
	return &empresa.Empresa{ID: id, Status: empresa.StatusAtiva}, nil
}

type stubRevoker struct {
	revoked []uuid.UUID
}

func (s *stubRevoker) RevokeAll(ctx context.Context, id uuid.UUID) error {
	s.revoked = append(s.revoked, id)
	return nil
}

type fixture struct {
	svc      *Service
	repo     *stubRepo
	revoker  *stubRevoker
	t1, t2   uuid.UUID
	super    *acesso.Ator
	adminT1  *Usuario
	superUsr *Usuario
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:    &stubRepo{usuarios: map[uuid.UUID]*Usuario{}},
		revoker: &stubRevoker{},
		t1:      uuid.New(),
		t2:      uuid.New(),
	}
	f.svc = &Service{
		repo:     f.repo,
		empresas: stubEmpresas{ids: map[uuid.UUID]bool{f.t1: true, f.t2: true}},
		sessions: f.revoker,
	}

	var err error
	f.superUsr, err = f.svc.Register(context.Background(), CreateInput{
		Email: "root@plataforma.com", Nome: "Root", Senha: "SenhaForte123", Perfil: "super_admin",
	})
	require.NoError(t, err)
	f.super = f.superUsr.Ator()

	t1 := f.t1
	f.adminT1, err = f.svc.Create(context.Background(), f.super, CreateInput{
		Email: "admin@techcorp.com", Nome: "Admin", Senha: "SenhaForte123", Perfil: "admin_cliente", EmpresaID: &t1,
	})
	require.NoError(t, err)
	return f
}

func TestCreateDuplicateEmailCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	t1 := f.t1

	_, err := f.svc.Create(context.Background(), f.super, CreateInput{
		Email: "  ADMIN@TechCorp.com ", Nome: "Outro", Senha: "SenhaForte123", Perfil: "gerente", EmpresaID: &t1,
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCreateNormalizesAndHashes(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "admin@techcorp.com", f.adminT1.Email)
	assert.NotEqual(t, "SenhaForte123", f.adminT1.SenhaHash)
	assert.True(t, strings.HasPrefix(f.adminT1.SenhaHash, "$argon2id$"))
	assert.True(t, f.adminT1.Ativo)
	assert.Nil(t, f.superUsr.EmpresaID)
}

func TestCreateRequiresTenantForNonSuperAdmin(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), f.super, CreateInput{
		Email: "sem@empresa.com", Nome: "Sem", Senha: "SenhaForte123", Perfil: "cliente",
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	ghost := uuid.New()
	_, err = f.svc.Create(context.Background(), f.super, CreateInput{
		Email: "ghost@empresa.com", Nome: "Ghost", Senha: "SenhaForte123", Perfil: "cliente", EmpresaID: &ghost,
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAdminClienteCreatesOnlyNonPrivilegedInOwnTenant(t *testing.T) {
	f := newFixture(t)
	admin := f.adminT1.Ator()
	t2 := f.t2

	u, err := f.svc.Create(context.Background(), admin, CreateInput{
		Email: "gerente@techcorp.com", Nome: "Gerente", Senha: "SenhaForte123", Perfil: "gerente", EmpresaID: &t2,
	})
	require.NoError(t, err)
	require.NotNil(t, u.EmpresaID)
	assert.Equal(t, f.t1, *u.EmpresaID, "tenant of admin_cliente overrides requested tenant")

	for _, perfil := range []string{"admin_cliente", "super_admin"} {
		_, err := f.svc.Create(context.Background(), admin, CreateInput{
			Email: perfil + "@techcorp.com", Nome: "X", Senha: "SenhaForte123", Perfil: perfil,
		})
		assert.ErrorIs(t, err, apperr.ErrForbidden, perfil)
	}
}

func TestNonAdminRolesCannotManageIdentities(t *testing.T) {
	f := newFixture(t)
	t1 := f.t1
	for _, p := range []acesso.Papel{acesso.Auditoria, acesso.Gerente, acesso.Cliente} {
		ator := &acesso.Ator{ID: uuid.New(), Papel: p, EmpresaID: &t1}
		_, err := f.svc.Create(context.Background(), ator, CreateInput{
			Email: "x@y.com", Nome: "X", Senha: "SenhaForte123", Perfil: "cliente",
		})
		assert.ErrorIs(t, err, apperr.ErrForbidden, p)

		_, err = f.svc.List(context.Background(), ator, nil)
		assert.ErrorIs(t, err, apperr.ErrForbidden, p)
	}
}

func TestAdminClienteCannotEditOtherPrivilegedUsers(t *testing.T) {
	f := newFixture(t)
	t1 := f.t1
	outroAdmin, err := f.svc.Create(context.Background(), f.super, CreateInput{
		Email: "admin2@techcorp.com", Nome: "Admin 2", Senha: "SenhaForte123", Perfil: "admin_cliente", EmpresaID: &t1,
	})
	require.NoError(t, err)

	nome := "Novo Nome"
	_, err = f.svc.Update(context.Background(), f.adminT1.Ator(), outroAdmin.ID, UpdateInput{Nome: &nome})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	self, err := f.svc.Update(context.Background(), f.adminT1.Ator(), f.adminT1.ID, UpdateInput{Nome: &nome})
	require.NoError(t, err)
	assert.Equal(t, "Novo Nome", self.Nome)

	perfil := "super_admin"
	_, err = f.svc.Update(context.Background(), f.adminT1.Ator(), f.adminT1.ID, UpdateInput{Perfil: &perfil})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestAdminClienteCannotTouchOtherTenant(t *testing.T) {
	f := newFixture(t)
	t2 := f.t2
	outro, err := f.svc.Create(context.Background(), f.super, CreateInput{
		Email: "cliente@outra.com", Nome: "Cliente", Senha: "SenhaForte123", Perfil: "cliente", EmpresaID: &t2,
	})
	require.NoError(t, err)

	nome := "X"
	_, err = f.svc.Update(context.Background(), f.adminT1.Ator(), outro.ID, UpdateInput{Nome: &nome})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Get(context.Background(), f.adminT1.Ator(), outro.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Get(context.Background(), f.adminT1.Ator(), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSelfDeactivationRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Deactivate(context.Background(), f.adminT1.Ator(), f.adminT1.ID)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	inativo := false
	_, err = f.svc.Update(context.Background(), f.adminT1.Ator(), f.adminT1.ID, UpdateInput{Ativo: &inativo})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, f.revoker.revoked)
}

func TestDeactivateRevokesSessions(t *testing.T) {
	f := newFixture(t)
	t1 := f.t1
	cliente, err := f.svc.Create(context.Background(), f.adminT1.Ator(), CreateInput{
		Email: "cliente@techcorp.com", Nome: "Cliente", Senha: "SenhaForte123", Perfil: "cliente", EmpresaID: &t1,
	})
	require.NoError(t, err)

	u, err := f.svc.Deactivate(context.Background(), f.adminT1.Ator(), cliente.ID)
	require.NoError(t, err)
	assert.False(t, u.Ativo)
	assert.Equal(t, []uuid.UUID{cliente.ID}, f.revoker.revoked)
	assert.Contains(t, f.repo.usuarios, cliente.ID)
}

func TestSuperAdminMovesUserAcrossTenants(t *testing.T) {
	f := newFixture(t)
	t1, t2 := f.t1, f.t2
	u, err := f.svc.Create(context.Background(), f.super, CreateInput{
		Email: "gerente@techcorp.com", Nome: "Gerente", Senha: "SenhaForte123", Perfil: "gerente", EmpresaID: &t1,
	})
	require.NoError(t, err)

	_, err = f.svc.Update(context.Background(), f.adminT1.Ator(), u.ID, UpdateInput{EmpresaID: &t2})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	moved, err := f.svc.Update(context.Background(), f.super, u.ID, UpdateInput{EmpresaID: &t2})
	require.NoError(t, err)
	assert.Equal(t, t2, *moved.EmpresaID)

	promoted := "super_admin"
	moved, err = f.svc.Update(context.Background(), f.super, u.ID, UpdateInput{Perfil: &promoted})
	require.NoError(t, err)
	assert.Equal(t, acesso.SuperAdmin, moved.Perfil)
	assert.Nil(t, moved.EmpresaID)

	demoted := "cliente"
	_, err = f.svc.Update(context.Background(), f.super, u.ID, UpdateInput{Perfil: &demoted})
	assert.ErrorIs(t, err, apperr.ErrValidation, "non-super_admin must reference a tenant")
}

func TestUpdateEmailUniquenessExcludesSelf(t *testing.T) {
	f := newFixture(t)

	same := "ADMIN@techcorp.com"
	_, err := f.svc.Update(context.Background(), f.adminT1.Ator(), f.adminT1.ID, UpdateInput{Email: &same})
	require.NoError(t, err)

	taken := "root@plataforma.com"
	_, err = f.svc.Update(context.Background(), f.adminT1.Ator(), f.adminT1.ID, UpdateInput{Email: &taken})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestListScopes(t *testing.T) {
	f := newFixture(t)
	t2 := f.t2
	_, err := f.svc.Create(context.Background(), f.super, CreateInput{
		Email: "cliente@outra.com", Nome: "Cliente", Senha: "SenhaForte123", Perfil: "cliente", EmpresaID: &t2,
	})
	require.NoError(t, err)

	all, err := f.svc.List(context.Background(), f.super, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	filtered, err := f.svc.List(context.Background(), f.super, &t2)
	require.NoError(t, err)
	assert.Len(t, filtered, 1)

	own, err := f.svc.List(context.Background(), f.adminT1.Ator(), &t2)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, f.adminT1.ID, own[0].ID)
}
