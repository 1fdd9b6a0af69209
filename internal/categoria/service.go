package categoria

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/denuncias/internal/acesso"
	"github.com/gestaozabele/denuncias/internal/apperr"
	"github.com/gestaozabele/denuncias/internal/empresa"
)

type categoriaRepository interface {
	ListCategorias(ctx context.Context, filtro Filtro) ([]Categoria, error)
	ListSubcategorias(ctx context.Context, categoriaIDs []uuid.UUID, somenteAtivas bool) ([]Subcategoria, error)
	GetCategoria(ctx context.Context, id uuid.UUID) (*Categoria, error)
	GetSubcategoria(ctx context.Context, id uuid.UUID) (*Subcategoria, error)
	ExistsCategoriaNome(ctx context.Context, nome string, except *uuid.UUID) (bool, error)
	ExistsSubcategoriaNome(ctx context.Context, categoriaID uuid.UUID, nome string, except *uuid.UUID) (bool, error)
	CreateCategoria(ctx context.Context, input CreateCategoriaInput, ativa bool) (*Categoria, error)
	CreateSubcategoria(ctx context.Context, categoriaID uuid.UUID, input CreateSubcategoriaInput, ativa bool) (*Subcategoria, error)
	UpdateCategoria(ctx context.Context, id uuid.UUID, input UpdateInput) (*Categoria, error)
	UpdateSubcategoria(ctx context.Context, id uuid.UUID, input UpdateInput) (*Subcategoria, error)
}

type empresaResolver interface {
	Resolve(ctx context.Context, id uuid.UUID) (*empresa.Empresa, error)
}

// Service contém as regras da taxonomia de denúncias.
type Service struct {
	repo     categoriaRepository
	empresas empresaResolver
}

// NewService cria uma nova instância de Service.
func NewService(repo *Repository, empresas *empresa.Service) *Service {
	return &Service{repo: repo, empresas: empresas}
}

// ListPublic devolve as categorias ativas globais e, se informado, as do tenant.
func (s *Service) ListPublic(ctx context.Context, empresaID *uuid.UUID) ([]Categoria, error) {
	if empresaID != nil {
		if _, err := s.empresas.Resolve(ctx, *empresaID); err != nil {
			return nil, err
		}
	}
	return s.list(ctx, Filtro{SomenteAtivas: true, EmpresaID: empresaID}, true)
}

// ListAdmin devolve todas as categorias visíveis ao ator, inclusive inativas.
func (s *Service) ListAdmin(ctx context.Context, ator *acesso.Ator) ([]Categoria, error) {
	if ator == nil {
		return nil, apperr.Unauthenticated("usuário não autenticado")
	}
	filtro := Filtro{EmpresaID: ator.EmpresaID}
	if acesso.AlcanceDe(ator.Papel, acesso.GerenciarCategoria) == acesso.Todas {
		filtro = Filtro{Todas: true}
	}
	return s.list(ctx, filtro, false)
}

func (s *Service) list(ctx context.Context, filtro Filtro, somenteAtivas bool) ([]Categoria, error) {
	categorias, err := s.repo.ListCategorias(ctx, filtro)
	if err != nil {
		return nil, err
	}
	if len(categorias) == 0 {
		return categorias, nil
	}

	ids := make([]uuid.UUID, 0, len(categorias))
	pos := make(map[uuid.UUID]int, len(categorias))
	for i, c := range categorias {
		ids = append(ids, c.ID)
		pos[c.ID] = i
	}
	subs, err := s.repo.ListSubcategorias(ctx, ids, somenteAtivas)
	if err != nil {
		return nil, err
	}
	for _, sub := range subs {
		if i, ok := pos[sub.CategoriaID]; ok {
			categorias[i].Subcategorias = append(categorias[i].Subcategorias, sub)
		}
	}
	return categorias, nil
}

// CreateCategoria cria categoria global ou do tenant informado.
func (s *Service) CreateCategoria(ctx context.Context, ator *acesso.Ator, input CreateCategoriaInput) (*Categoria, error) {
	if ator == nil {
		return nil, apperr.Unauthenticated("usuário não autenticado")
	}
	if !acesso.CanAccess(ator, acesso.GerenciarCategoria, acesso.Alvo{EmpresaID: input.EmpresaID}) {
		return nil, apperr.Forbidden("acesso negado")
	}

	input.Nome = strings.TrimSpace(input.Nome)
	input.Descricao = strings.TrimSpace(input.Descricao)
	if input.Nome == "" {
		return nil, apperr.Validation("nome", "Nome é obrigatório")
	}

	exists, err := s.repo.ExistsCategoriaNome(ctx, input.Nome, nil)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errNomeCategoria
	}

	if input.EmpresaID != nil {
		if _, err := s.empresas.Resolve(ctx, *input.EmpresaID); err != nil {
			return nil, err
		}
	}

	c, err := s.repo.CreateCategoria(ctx, input, ativaOuPadrao(input.Ativa))
	if err != nil {
		return nil, err
	}
	log.Info().Str("categoria_id", c.ID.String()).Str("nome", c.Nome).Msg("categoria criada")
	return c, nil
}

// UpdateCategoria aplica alteração parcial; renomear revalida unicidade.
func (s *Service) UpdateCategoria(ctx context.Context, ator *acesso.Ator, id uuid.UUID, input UpdateInput) (*Categoria, error) {
	if ator == nil {
		return nil, apperr.Unauthenticated("usuário não autenticado")
	}
	current, err := s.repo.GetCategoria(ctx, id)
	if err != nil {
		return nil, err
	}
	if !acesso.CanAccess(ator, acesso.GerenciarCategoria, acesso.Alvo{EmpresaID: current.EmpresaID}) {
		return nil, apperr.Forbidden("acesso negado")
	}

	if err := normalizeUpdate(&input); err != nil {
		return nil, err
	}
	if input.Nome != nil && !strings.EqualFold(*input.Nome, current.Nome) {
		exists, err := s.repo.ExistsCategoriaNome(ctx, *input.Nome, &current.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, errNomeCategoria
		}
	}

	return s.repo.UpdateCategoria(ctx, id, input)
}

// CreateSubcategoria cria subcategoria sob uma categoria existente.
func (s *Service) CreateSubcategoria(ctx context.Context, ator *acesso.Ator, input CreateSubcategoriaInput) (*Subcategoria, error) {
	if ator == nil {
		return nil, apperr.Unauthenticated("usuário não autenticado")
	}

	input.Nome = strings.TrimSpace(input.Nome)
	input.Descricao = strings.TrimSpace(input.Descricao)
	if input.Nome == "" || input.CategoriaID == nil {
		return nil, apperr.Validation("nome", "Nome e categoria_id são obrigatórios")
	}

	parent, err := s.repo.GetCategoria(ctx, *input.CategoriaID)
	if err != nil {
		return nil, err
	}
	if !acesso.CanAccess(ator, acesso.GerenciarCategoria, acesso.Alvo{EmpresaID: parent.EmpresaID}) {
		return nil, apperr.Forbidden("acesso negado")
	}

	exists, err := s.repo.ExistsSubcategoriaNome(ctx, parent.ID, input.Nome, nil)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errNomeSubcategoria
	}

	return s.repo.CreateSubcategoria(ctx, parent.ID, input, ativaOuPadrao(input.Ativa))
}

// UpdateSubcategoria aplica alteração parcial dentro da mesma categoria.
func (s *Service) UpdateSubcategoria(ctx context.Context, ator *acesso.Ator, id uuid.UUID, input UpdateInput) (*Subcategoria, error) {
	if ator == nil {
		return nil, apperr.Unauthenticated("usuário não autenticado")
	}
	current, err := s.repo.GetSubcategoria(ctx, id)
	if err != nil {
		return nil, err
	}
	parent, err := s.repo.GetCategoria(ctx, current.CategoriaID)
	if err != nil {
		return nil, err
	}
	if !acesso.CanAccess(ator, acesso.GerenciarCategoria, acesso.Alvo{EmpresaID: parent.EmpresaID}) {
		return nil, apperr.Forbidden("acesso negado")
	}

	if err := normalizeUpdate(&input); err != nil {
		return nil, err
	}
	if input.Nome != nil && !strings.EqualFold(*input.Nome, current.Nome) {
		exists, err := s.repo.ExistsSubcategoriaNome(ctx, parent.ID, *input.Nome, &current.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, errNomeSubcategoria
		}
	}

	return s.repo.UpdateSubcategoria(ctx, id, input)
}

func normalizeUpdate(input *UpdateInput) error {
	if input.Nome != nil {
		nome := strings.TrimSpace(*input.Nome)
		if nome == "" {
			return apperr.Validation("nome", "Nome é obrigatório")
		}
		input.Nome = &nome
	}
	if input.Descricao != nil {
		desc := strings.TrimSpace(*input.Descricao)
		input.Descricao = &desc
	}
	if input.Ordem != nil && *input.Ordem < 0 {
		return apperr.Validation("ordem", "ordem inválida")
	}
	return nil
}

func ativaOuPadrao(v *bool) bool {
	if v == nil {
		return true
	}
	return *v
}
