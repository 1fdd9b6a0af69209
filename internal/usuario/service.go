package usuario

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/denuncias/internal/acesso"
	"github.com/gestaozabele/denuncias/internal/apperr"
	"github.com/gestaozabele/denuncias/internal/auth"
	"github.com/gestaozabele/denuncias/internal/empresa"
	"github.com/gestaozabele/denuncias/internal/util"
)

type usuarioRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Usuario, error)
	ExistsEmail(ctx context.Context, email string, except *uuid.UUID) (bool, error)
	List(ctx context.Context, filtro Filtro) ([]Usuario, error)
	Create(ctx context.Context, p createParams) (*Usuario, error)
	Update(ctx context.Context, id uuid.UUID, p updateParams) (*Usuario, error)
	Count(ctx context.Context) (Contagem, error)
}

type empresaResolver interface {
	Resolve(ctx context.Context, id uuid.UUID) (*empresa.Empresa, error)
}

type sessionRevoker interface {
	RevokeAll(ctx context.Context, usuarioID uuid.UUID) error
}

// Service centraliza o cadastro de identidades.
type Service struct {
	repo     usuarioRepository
	empresas empresaResolver
	sessions sessionRevoker
}

// NewService cria nova instância do serviço.
func NewService(repo *Repository, empresas *empresa.Service, sessions *auth.SessionStore) *Service {
	svc := &Service{repo: repo, empresas: empresas}
	if sessions != nil {
		svc.sessions = sessions
	}
	return svc
}

// List retorna as identidades visíveis ao ator. empresaID só é considerado
// para quem enxerga todos os tenants.
func (s *Service) List(ctx context.Context, ator *acesso.Ator, empresaID *uuid.UUID) ([]Usuario, error) {
	if ator == nil {
		return nil, apperr.Unauthenticated("usuário não autenticado")
	}
	switch acesso.AlcanceDe(ator.Papel, acesso.VerUsuario) {
	case acesso.Todas:
		return s.repo.List(ctx, Filtro{EmpresaID: empresaID})
	case acesso.Empresa:
		if ator.EmpresaID == nil {
			return []Usuario{}, nil
		}
		return s.repo.List(ctx, Filtro{EmpresaID: ator.EmpresaID})
	}
	return nil, apperr.Forbidden("acesso negado")
}

// Get busca uma identidade; o próprio usuário sempre se enxerga.
func (s *Service) Get(ctx context.Context, ator *acesso.Ator, id uuid.UUID) (*Usuario, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ator != nil && u.ID == ator.ID {
		return u, nil
	}
	if !acesso.CanAccess(ator, acesso.VerUsuario, acesso.Alvo{EmpresaID: u.EmpresaID}) {
		return nil, apperr.Forbidden("acesso negado")
	}
	return u, nil
}

// Create cadastra uma identidade a pedido de um administrador.
func (s *Service) Create(ctx context.Context, ator *acesso.Ator, input CreateInput) (*Usuario, error) {
	if ator == nil {
		return nil, apperr.Unauthenticated("usuário não autenticado")
	}
	alcance := acesso.AlcanceDe(ator.Papel, acesso.GerenciarUsuario)
	if alcance == acesso.Nenhum {
		return nil, apperr.Forbidden("acesso negado")
	}
	if alcance != acesso.Todas {
		input.EmpresaID = ator.EmpresaID
	}

	perfil, err := validateCreate(&input)
	if err != nil {
		return nil, err
	}
	if !acesso.CanAccess(ator, acesso.AtribuirPapel, acesso.Alvo{EmpresaID: input.EmpresaID, Papel: perfil}) {
		return nil, apperr.Forbidden("acesso negado para criar este tipo de usuário")
	}

	return s.create(ctx, input, perfil)
}

// Register cadastra sem ator; usado pela CLI para o primeiro super_admin.
func (s *Service) Register(ctx context.Context, input CreateInput) (*Usuario, error) {
	perfil, err := validateCreate(&input)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, input, perfil)
}

func (s *Service) create(ctx context.Context, input CreateInput, perfil acesso.Papel) (*Usuario, error) {
	if perfil == acesso.SuperAdmin {
		input.EmpresaID = nil
	} else {
		if input.EmpresaID == nil {
			return nil, apperr.Validation("empresa_id", "empresa_id é obrigatório para este perfil")
		}
		if _, err := s.empresas.Resolve(ctx, *input.EmpresaID); err != nil {
			return nil, err
		}
	}

	exists, err := s.repo.ExistsEmail(ctx, input.Email, nil)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errEmailDuplicado
	}

	hash, err := auth.Hash(input.Senha)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	ativo := true
	if input.Ativo != nil {
		ativo = *input.Ativo
	}

	u, err := s.repo.Create(ctx, createParams{
		Email:     input.Email,
		Nome:      input.Nome,
		SenhaHash: hash,
		Perfil:    perfil,
		EmpresaID: input.EmpresaID,
		Ativo:     ativo,
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("usuario_id", u.ID.String()).Str("perfil", string(perfil)).Msg("usuário cadastrado")
	return u, nil
}

// Update altera uma identidade existente.
func (s *Service) Update(ctx context.Context, ator *acesso.Ator, id uuid.UUID, input UpdateInput) (*Usuario, error) {
	target, err := s.loadGerenciavel(ctx, ator, id)
	if err != nil {
		return nil, err
	}

	var p updateParams

	if input.Nome != nil {
		nome := strings.TrimSpace(*input.Nome)
		if nome == "" {
			return nil, apperr.Validation("nome", "nome não pode ser vazio")
		}
		p.Nome = &nome
	}

	if input.Email != nil {
		email := NormalizeEmail(*input.Email)
		if err := util.ValidateEmail(email); err != nil {
			return nil, apperr.Validation("email", err.Error())
		}
		if email != NormalizeEmail(target.Email) {
			exists, err := s.repo.ExistsEmail(ctx, email, &target.ID)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, errEmailDuplicado
			}
		}
		p.Email = &email
	}

	if input.Senha != nil {
		if err := util.ValidatePassword(*input.Senha); err != nil {
			return nil, apperr.Validation("senha", err.Error())
		}
		hash, err := auth.Hash(*input.Senha)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		p.SenhaHash = &hash
	}

	if err := s.applyPapel(ctx, ator, target, input, &p); err != nil {
		return nil, err
	}

	if input.Ativo != nil {
		if !*input.Ativo && target.ID == ator.ID {
			return nil, apperr.Validation("ativo", "Não é possível desativar seu próprio usuário")
		}
		p.Ativo = input.Ativo
	}

	updated, err := s.repo.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	if target.Ativo && !updated.Ativo {
		s.revokeSessions(ctx, updated.ID)
	}
	return updated, nil
}

// Deactivate desativa a identidade (soft delete) e encerra suas sessões.
func (s *Service) Deactivate(ctx context.Context, ator *acesso.Ator, id uuid.UUID) (*Usuario, error) {
	target, err := s.loadGerenciavel(ctx, ator, id)
	if err != nil {
		return nil, err
	}
	if target.ID == ator.ID {
		return nil, apperr.Validation("id", "Não é possível desativar seu próprio usuário")
	}

	inativo := false
	updated, err := s.repo.Update(ctx, id, updateParams{Ativo: &inativo})
	if err != nil {
		return nil, err
	}
	s.revokeSessions(ctx, id)
	log.Info().Str("usuario_id", id.String()).Msg("usuário desativado")
	return updated, nil
}

// Contar resume o cadastro; restrito a super_admin.
func (s *Service) Contar(ctx context.Context, ator *acesso.Ator) (Contagem, error) {
	if !acesso.CanAccess(ator, acesso.RelatorioGlobal, acesso.Alvo{}) {
		return Contagem{}, apperr.Forbidden("acesso negado - apenas Super Admin")
	}
	return s.repo.Count(ctx)
}

func (s *Service) loadGerenciavel(ctx context.Context, ator *acesso.Ator, id uuid.UUID) (*Usuario, error) {
	if ator == nil {
		return nil, apperr.Unauthenticated("usuário não autenticado")
	}
	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	alvo := acesso.Alvo{EmpresaID: target.EmpresaID, UsuarioID: &target.ID, Papel: target.Perfil}
	if !acesso.CanAccess(ator, acesso.GerenciarUsuario, alvo) {
		return nil, apperr.Forbidden("acesso negado")
	}
	return target, nil
}

// applyPapel trata mudança de perfil e de empresa, mantendo a regra de que
// toda identidade fora do super_admin pertence a exatamente uma empresa.
func (s *Service) applyPapel(ctx context.Context, ator *acesso.Ator, target *Usuario, input UpdateInput, p *updateParams) error {
	perfil := target.Perfil
	if input.Perfil != nil {
		parsed, err := acesso.ParsePapel(*input.Perfil)
		if err != nil {
			return apperr.Validation("perfil", "perfil inválido")
		}
		perfil = parsed
	}

	empresaID := target.EmpresaID
	if input.EmpresaID != nil && (target.EmpresaID == nil || *input.EmpresaID != *target.EmpresaID) {
		if acesso.AlcanceDe(ator.Papel, acesso.AtribuirPapel) != acesso.Todas {
			return apperr.Forbidden("apenas super_admin altera a empresa do usuário")
		}
		empresaID = input.EmpresaID
	}

	perfilMudou := perfil != target.Perfil
	empresaMudou := !sameID(empresaID, target.EmpresaID)
	if !perfilMudou && !empresaMudou {
		return nil
	}

	if !acesso.CanAccess(ator, acesso.AtribuirPapel, acesso.Alvo{EmpresaID: empresaID, Papel: perfil}) {
		return apperr.Forbidden("acesso negado para atribuir este perfil")
	}

	if perfil == acesso.SuperAdmin {
		p.ClearEmpresa = target.EmpresaID != nil
	} else {
		if empresaID == nil {
			return apperr.Validation("empresa_id", "empresa_id é obrigatório para este perfil")
		}
		if empresaMudou {
			if _, err := s.empresas.Resolve(ctx, *empresaID); err != nil {
				return err
			}
			p.EmpresaID = empresaID
		}
	}
	if perfilMudou {
		p.Perfil = &perfil
	}
	return nil
}

func (s *Service) revokeSessions(ctx context.Context, id uuid.UUID) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.RevokeAll(ctx, id); err != nil {
		log.Error().Err(err).Str("usuario_id", id.String()).Msg("falha ao revogar sessões")
	}
}

func validateCreate(input *CreateInput) (acesso.Papel, error) {
	input.Email = NormalizeEmail(input.Email)
	input.Nome = strings.TrimSpace(input.Nome)

	if err := util.RequireString(input.Email, "email"); err != nil {
		return "", apperr.Validation("email", "Campo email é obrigatório")
	}
	if err := util.RequireString(input.Nome, "nome"); err != nil {
		return "", apperr.Validation("nome", "Campo nome é obrigatório")
	}
	if err := util.RequireString(input.Senha, "senha"); err != nil {
		return "", apperr.Validation("senha", "Campo senha é obrigatório")
	}
	if err := util.RequireString(input.Perfil, "perfil"); err != nil {
		return "", apperr.Validation("perfil", "Campo perfil é obrigatório")
	}
	if err := util.ValidateEmail(input.Email); err != nil {
		return "", apperr.Validation("email", err.Error())
	}
	if err := util.ValidatePassword(input.Senha); err != nil {
		return "", apperr.Validation("senha", err.Error())
	}
	perfil, err := acesso.ParsePapel(input.Perfil)
	if err != nil {
		return "", apperr.Validation("perfil", "perfil inválido")
	}
	return perfil, nil
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
