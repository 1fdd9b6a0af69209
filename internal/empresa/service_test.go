package empresa

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestaozabele/denuncias/internal/acesso"
	"github.com/gestaozabele/denuncias/internal/apperr"
	"github.com/gestaozabele/denuncias/internal/storage"
)

type stubRepo struct {
	empresas map[uuid.UUID]*Empresa
}

func newStubRepo() *stubRepo {
	return &stubRepo{empresas: map[uuid.UUID]*Empresa{}}
}

func (s *stubRepo) GetByID(ctx context.Context, id uuid.UUID) (*Empresa, error) {
	e, ok := s.empresas[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *stubRepo) ExistsCNPJ(ctx context.Context, cnpj string, except *uuid.UUID) (bool, error) {
	for _, e := range s.empresas {
		if e.CNPJ == cnpj && (except == nil || *except != e.ID) {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubRepo) List(ctx context.Context, ids []uuid.UUID) ([]Empresa, error) {
	out := []Empresa{}
	for _, e := range s.empresas {
		if ids == nil {
			out = append(out, *e)
			continue
		}
		for _, id := range ids {
			if id == e.ID {
				out = append(out, *e)
			}
		}
	}
	return out, nil
}

func (s *stubRepo) Create(ctx context.Context, input CreateInput) (*Empresa, error) {
	e := &Empresa{
		ID:                  uuid.New(),
		Nome:                input.Nome,
		CNPJ:                input.CNPJ,
		Status:              input.Status,
		CoresPersonalizadas: input.CoresPersonalizadas,
		CreatedAt:           time.Now(),
		UpdatedAt:           time.Now(),
	}
	s.empresas[e.ID] = e
	cp := *e
	return &cp, nil
}

func (s *stubRepo) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*Empresa, error) {
	e, ok := s.empresas[id]
	if !ok {
		return nil, ErrNotFound
	}
	if input.Nome != nil {
		e.Nome = *input.Nome
	}
	if input.CNPJ != nil {
		e.CNPJ = *input.CNPJ
	}
	if input.Status != nil {
		e.Status = *input.Status
	}
	if input.LogoURL != nil {
		e.LogoURL = input.LogoURL
	}
	if input.CoresPersonalizadas != nil {
		e.CoresPersonalizadas = input.CoresPersonalizadas
	}
	cp := *e
	return &cp, nil
}

func (s *stubRepo) Count(ctx context.Context) (Contagem, error) {
	c := Contagem{Total: len(s.empresas)}
	for _, e := range s.empresas {
		if e.Ativa() {
			c.Ativas++
		}
	}
	return c, nil
}

type stubUploader struct {
	last storage.UploadInput
	err  error
}

func (u *stubUploader) Upload(ctx context.Context, input storage.UploadInput) (*storage.UploadResult, error) {
	u.last = input
	if u.err != nil {
		return nil, u.err
	}
	return &storage.UploadResult{URL: "https://cdn.exemplo.com.br/" + input.Key}, nil
}

func superAdmin() *acesso.Ator {
	return &acesso.Ator{ID: uuid.New(), Papel: acesso.SuperAdmin}
}

func membro(p acesso.Papel, empresaID uuid.UUID) *acesso.Ator {
	id := empresaID
	return &acesso.Ator{ID: uuid.New(), Papel: p, EmpresaID: &id}
}

func newTestService() (*Service, *stubRepo, *stubUploader) {
	repo := newStubRepo()
	up := &stubUploader{}
	return &Service{repo: repo, uploader: up}, repo, up
}

func TestCreateRequiresSuperAdmin(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	techCorp, err := svc.Create(ctx, superAdmin(), CreateInput{Nome: " TechCorp ", CNPJ: " 12.345.678/0001-90 "})
	require.NoError(t, err)
	assert.Equal(t, "TechCorp", techCorp.Nome)
	assert.Equal(t, "12.345.678/0001-90", techCorp.CNPJ)
	assert.Equal(t, StatusAtiva, techCorp.Status)

	_, err = svc.Create(ctx, membro(acesso.AdminCliente, techCorp.ID), CreateInput{Nome: "Outra", CNPJ: "1"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestCreateRejectsDuplicateCNPJ(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, superAdmin(), CreateInput{Nome: "A", CNPJ: "12.345.678/0001-90"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, superAdmin(), CreateInput{Nome: "B", CNPJ: "12.345.678/0001-90"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCreateValidatesFields(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(context.Background(), superAdmin(), CreateInput{CNPJ: "1"})
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
	assert.Equal(t, "nome", appErr.Field)

	_, err = svc.Create(context.Background(), superAdmin(), CreateInput{Nome: "X", CNPJ: "1", Status: "suspensa"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateAdminClienteOwnTenantOnly(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	a, _ := svc.Create(ctx, superAdmin(), CreateInput{Nome: "A", CNPJ: "1"})
	b, _ := svc.Create(ctx, superAdmin(), CreateInput{Nome: "B", CNPJ: "2"})
	admin := membro(acesso.AdminCliente, a.ID)

	nome := "A Renomeada"
	updated, err := svc.Update(ctx, admin, a.ID, UpdateInput{Nome: &nome, CoresPersonalizadas: map[string]any{"primaria": "#112233"}})
	require.NoError(t, err)
	assert.Equal(t, "A Renomeada", updated.Nome)
	assert.Equal(t, "#112233", updated.CoresPersonalizadas["primaria"])

	_, err = svc.Update(ctx, admin, b.ID, UpdateInput{Nome: &nome})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	cnpj := "99"
	_, err = svc.Update(ctx, admin, a.ID, UpdateInput{CNPJ: &cnpj})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	status := StatusInativa
	_, err = svc.Update(ctx, admin, a.ID, UpdateInput{Status: &status})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Update(ctx, membro(acesso.Auditoria, a.ID), a.ID, UpdateInput{Nome: &nome})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestUpdateCNPJUniquenessExcludesSelf(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	a, _ := svc.Create(ctx, superAdmin(), CreateInput{Nome: "A", CNPJ: "1"})
	_, _ = svc.Create(ctx, superAdmin(), CreateInput{Nome: "B", CNPJ: "2"})

	same := "1"
	_, err := svc.Update(ctx, superAdmin(), a.ID, UpdateInput{CNPJ: &same})
	require.NoError(t, err)

	taken := "2"
	_, err = svc.Update(ctx, superAdmin(), a.ID, UpdateInput{CNPJ: &taken})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestNotFoundBeforeForbidden(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	a, _ := svc.Create(ctx, superAdmin(), CreateInput{Nome: "A", CNPJ: "1"})
	gerente := membro(acesso.Gerente, a.ID)

	_, err := svc.Get(ctx, gerente, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.Get(ctx, gerente, a.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestDeactivateIsSoft(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	a, _ := svc.Create(ctx, superAdmin(), CreateInput{Nome: "A", CNPJ: "1"})

	_, err := svc.Deactivate(ctx, membro(acesso.AdminCliente, a.ID), a.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	e, err := svc.Deactivate(ctx, superAdmin(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInativa, e.Status)
	assert.Contains(t, repo.empresas, a.ID)
}

func TestListScopesByRole(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	a, _ := svc.Create(ctx, superAdmin(), CreateInput{Nome: "A", CNPJ: "1"})
	_, _ = svc.Create(ctx, superAdmin(), CreateInput{Nome: "B", CNPJ: "2"})

	all, err := svc.List(ctx, superAdmin())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := svc.List(ctx, membro(acesso.Auditoria, a.ID))
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, a.ID, own[0].ID)

	_, err = svc.List(ctx, membro(acesso.Cliente, a.ID))
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestPersonalizacaoVisibleToAnyMember(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	a, _ := svc.Create(ctx, superAdmin(), CreateInput{Nome: "A", CNPJ: "1", CoresPersonalizadas: map[string]any{"fundo": "#fff"}})
	b, _ := svc.Create(ctx, superAdmin(), CreateInput{Nome: "B", CNPJ: "2"})

	p, err := svc.Personalizacao(ctx, membro(acesso.Cliente, a.ID), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "#fff", p.CoresPersonalizadas["fundo"])

	_, err = svc.Personalizacao(ctx, membro(acesso.Cliente, a.ID), b.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestUploadLogo(t *testing.T) {
	svc, _, up := newTestService()
	ctx := context.Background()
	a, _ := svc.Create(ctx, superAdmin(), CreateInput{Nome: "A", CNPJ: "1"})
	admin := membro(acesso.AdminCliente, a.ID)

	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
	e, err := svc.UploadLogo(ctx, admin, a.ID, LogoUpload{Filename: "logo.png", Body: strings.NewReader(string(png))})
	require.NoError(t, err)
	require.NotNil(t, e.LogoURL)
	assert.True(t, strings.HasSuffix(*e.LogoURL, ".png"))
	assert.Equal(t, "image/png", up.last.ContentType)

	_, err = svc.UploadLogo(ctx, admin, a.ID, LogoUpload{Filename: "x.txt", ContentType: "text/plain", Body: strings.NewReader("texto")})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	big := strings.NewReader(strings.Repeat("a", MaxLogoBytes+10))
	_, err = svc.UploadLogo(ctx, admin, a.ID, LogoUpload{ContentType: "image/png", Body: big})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	up.err = storage.ErrNotConfigured
	_, err = svc.UploadLogo(ctx, admin, a.ID, LogoUpload{ContentType: "image/png", Body: strings.NewReader(string(png))})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestContarRequiresSuperAdmin(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	a, _ := svc.Create(ctx, superAdmin(), CreateInput{Nome: "A", CNPJ: "1"})
	_, _ = svc.Deactivate(ctx, superAdmin(), a.ID)
	_, _ = svc.Create(ctx, superAdmin(), CreateInput{Nome: "B", CNPJ: "2"})

	c, err := svc.Contar(ctx, superAdmin())
	require.NoError(t, err)
	assert.Equal(t, Contagem{Total: 2, Ativas: 1}, c)

	_, err = svc.Contar(ctx, membro(acesso.AdminCliente, a.ID))
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}
