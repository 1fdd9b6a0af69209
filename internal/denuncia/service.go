package denuncia

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/denuncias/internal/acesso"
	"github.com/gestaozabele/denuncias/internal/alerta"
	"github.com/gestaozabele/denuncias/internal/apperr"
	"github.com/gestaozabele/denuncias/internal/empresa"
	"github.com/gestaozabele/denuncias/internal/util"
)

const (
	// maxColisoesProtocolo limita a regeração quando o protocolo já existe.
	maxColisoesProtocolo = 10
	// maxTentativasInsert cobre a corrida entre a checagem e o índice único.
	maxTentativasInsert = 3

	alertaTimeout = 5 * time.Second
)

type denunciaRepository interface {
	Store
	InTx(ctx context.Context, fn func(store Store) error) error
}

type empresaResolver interface {
	Resolve(ctx context.Context, id uuid.UUID) (*empresa.Empresa, error)
}

// Service concentra o ciclo de vida das denúncias e sua trilha de auditoria.
type Service struct {
	repo      denunciaRepository
	empresas  empresaResolver
	alertas   alerta.Notifier
	now       func() time.Time
	protocolo func(time.Time) (string, error)
}

// NewService cria uma nova instância de Service. alertas pode ser nil.
func NewService(repo *Repository, empresas *empresa.Service, alertas alerta.Notifier) *Service {
	if alertas == nil {
		alertas = alerta.Noop{}
	}
	return &Service{
		repo:      repo,
		empresas:  empresas,
		alertas:   alertas,
		now:       time.Now,
		protocolo: GerarProtocolo,
	}
}

// Create registra a denúncia e a entrada "criada" do histórico na mesma transação.
// ator é nil para envios sem sessão.
func (s *Service) Create(ctx context.Context, ator *acesso.Ator, input CreateInput) (*Denuncia, error) {
	d, err := s.validateCreate(ator, input)
	if err != nil {
		return nil, err
	}

	empresaID := input.EmpresaID
	if ator != nil && ator.EmpresaID != nil {
		empresaID = ator.EmpresaID
	}
	if empresaID == nil {
		return nil, apperr.Validation("empresa_id", "Empresa deve ser especificada para denúncia anônima")
	}
	e, err := s.empresas.Resolve(ctx, *empresaID)
	if err != nil {
		return nil, err
	}
	if !e.Ativa() {
		return nil, apperr.Validation("empresa_id", "Empresa inativa")
	}
	d.EmpresaID = e.ID

	var autor *uuid.UUID
	if ator != nil && !d.Anonima {
		id := ator.ID
		autor = &id
	}
	d.UsuarioID = autor

	var created *Denuncia
	for tentativa := 1; ; tentativa++ {
		created, err = s.insert(ctx, d, autor)
		if errors.Is(err, errProtocoloDuplicado) && tentativa < maxTentativasInsert {
			log.Warn().Int("tentativa", tentativa).Msg("protocolo duplicado na gravação, gerando outro")
			continue
		}
		break
	}
	if err != nil {
		return nil, err
	}

	ev := log.Info().Str("protocolo", created.Protocolo).Str("empresa_id", created.EmpresaID.String()).Bool("anonima", created.Anonima)
	if created.UsuarioID != nil {
		ev = ev.Str("usuario_id", created.UsuarioID.String())
	}
	ev.Msg("denúncia registrada")

	if created.Prioridade == PrioridadeCritica {
		s.alertar(ctx, created)
	}
	return created.ParaAtor(ator), nil
}

func (s *Service) insert(ctx context.Context, d Denuncia, autor *uuid.UUID) (*Denuncia, error) {
	var created *Denuncia
	err := s.repo.InTx(ctx, func(store Store) error {
		protocolo, err := s.novoProtocolo(ctx, store)
		if err != nil {
			return err
		}
		d.Protocolo = protocolo

		created, err = store.Insert(ctx, &d)
		if err != nil {
			return err
		}

		status := StatusRecebida
		_, err = store.InsertHistorico(ctx, &Historico{
			DenunciaID: created.ID,
			UsuarioID:  autor,
			Acao:       AcaoCriada,
			Descricao:  "Denúncia criada",
			StatusNovo: &status,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) novoProtocolo(ctx context.Context, store Store) (string, error) {
	for i := 0; i < maxColisoesProtocolo; i++ {
		protocolo, err := s.protocolo(s.now())
		if err != nil {
			return "", apperr.Internal(err)
		}
		exists, err := store.ExistsProtocolo(ctx, protocolo)
		if err != nil {
			return "", err
		}
		if !exists {
			return protocolo, nil
		}
	}
	return "", apperr.Internalf("não foi possível gerar protocolo único após %d tentativas", maxColisoesProtocolo)
}

func (s *Service) validateCreate(ator *acesso.Ator, input CreateInput) (Denuncia, error) {
	d := Denuncia{
		Titulo:       strings.TrimSpace(input.Titulo),
		Descricao:    strings.TrimSpace(input.Descricao),
		Categoria:    strings.TrimSpace(input.Categoria),
		Subcategoria: util.TrimmedOrNil(input.Subcategoria),
		Prioridade:   NormalizePrioridade(input.Prioridade),
		Anonima:      input.Anonima,
		Origem:       strings.TrimSpace(input.Origem),
		Status:       StatusRecebida,
	}
	if err := util.RequireString(d.Titulo, "titulo"); err != nil {
		return d, apperr.Validation("titulo", err.Error())
	}
	if err := util.RequireString(d.Descricao, "descricao"); err != nil {
		return d, apperr.Validation("descricao", err.Error())
	}
	if err := util.RequireString(d.Categoria, "categoria"); err != nil {
		return d, apperr.Validation("categoria", err.Error())
	}
	if !IsValidPrioridade(d.Prioridade) {
		return d, apperr.Validation("prioridade", "Prioridade inválida")
	}
	if d.Origem == "" {
		d.Origem = OrigemPadrao
	}
	if ip := strings.TrimSpace(input.IPOrigem); ip != "" {
		d.IPOrigem = &ip
	}
	if !d.Anonima && ator == nil {
		return d, apperr.Unauthenticated("Usuário deve estar logado para denúncia não anônima")
	}
	return d, nil
}

func (s *Service) alertar(ctx context.Context, d *Denuncia) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertaTimeout)
	defer cancel()

	err := s.alertas.Notify(ctx, alerta.Evento{
		DenunciaID: d.ID,
		Protocolo:  d.Protocolo,
		EmpresaID:  d.EmpresaID,
		Categoria:  d.Categoria,
		Prioridade: d.Prioridade,
		CriadaEm:   d.CreatedAt,
	})
	if err != nil {
		log.Warn().Err(err).Str("protocolo", d.Protocolo).Msg("falha ao enviar alerta de denúncia crítica")
	}
}

// List devolve a página de denúncias dentro do escopo do ator.
func (s *Service) List(ctx context.Context, ator *acesso.Ator, filtro Filtro) (*Pagina, error) {
	escopo, err := escopoLeitura(ator)
	if err != nil {
		return nil, err
	}

	filtro.Status = NormalizeStatus(filtro.Status)
	filtro.Prioridade = strings.ToLower(strings.TrimSpace(filtro.Prioridade))
	filtro.Categoria = strings.TrimSpace(filtro.Categoria)
	if filtro.Page < 1 {
		filtro.Page = 1
	}
	if filtro.PerPage < 1 {
		filtro.PerPage = PerPagePadrao
	}
	if filtro.PerPage > PerPageMaximo {
		filtro.PerPage = PerPageMaximo
	}
	if filtro.Page > PageMaxima {
		return nil, apperr.Validation("page", "Página fora do intervalo permitido")
	}

	denuncias, total, err := s.repo.List(ctx, escopo, filtro)
	if err != nil {
		return nil, err
	}
	RedigirOrigem(ator, denuncias)
	return &Pagina{
		Denuncias:   denuncias,
		Total:       total,
		Pages:       int(math.Ceil(float64(total) / float64(filtro.PerPage))),
		CurrentPage: filtro.Page,
		PerPage:     filtro.PerPage,
	}, nil
}

// Get devolve a denúncia e o histórico. Existência é checada antes da permissão.
func (s *Service) Get(ctx context.Context, ator *acesso.Ator, id uuid.UUID) (*Detalhe, error) {
	if ator == nil {
		return nil, apperr.Unauthenticated("Usuário não autenticado")
	}
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !acesso.CanAccess(ator, acesso.VerDenuncia, d.Alvo()) {
		return nil, apperr.Forbidden("Acesso negado")
	}
	historico, err := s.repo.ListHistorico(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detalhe{Denuncia: d.ParaAtor(ator), Historico: historico}, nil
}

// AlterarStatus troca o status, registra o responsável e grava o histórico
// na mesma transação.
func (s *Service) AlterarStatus(ctx context.Context, ator *acesso.Ator, id uuid.UUID, input StatusInput) (*Denuncia, error) {
	if ator == nil {
		return nil, apperr.Unauthenticated("Usuário não autenticado")
	}

	var updated *Denuncia
	var anterior string
	err := s.repo.InTx(ctx, func(store Store) error {
		d, err := store.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !acesso.CanAccess(ator, acesso.AlterarStatusDenuncia, d.Alvo()) {
			log.Warn().Str("usuario_id", ator.ID.String()).Str("denuncia_id", id.String()).Msg("alteração de status negada")
			return apperr.Forbidden("Acesso negado")
		}

		novo := NormalizeStatus(input.Status)
		if novo == "" {
			return apperr.Validation("status", "Status é obrigatório")
		}
		if !IsValidStatus(novo) {
			return apperr.Validation("status", "Status inválido")
		}

		var resolucao *time.Time
		if novo == StatusConcluida {
			now := s.now().UTC()
			resolucao = &now
		}

		anterior = d.Status
		updated, err = store.UpdateStatus(ctx, id, novo, ator.ID, resolucao)
		if err != nil {
			return err
		}

		descricao := fmt.Sprintf("Status alterado de %q para %q.", anterior, novo)
		if comentario := strings.TrimSpace(input.Comentario); comentario != "" {
			descricao += " " + comentario
		}
		autor := ator.ID
		_, err = store.InsertHistorico(ctx, &Historico{
			DenunciaID:     id,
			UsuarioID:      &autor,
			Acao:           AcaoStatusAlterado,
			Descricao:      descricao,
			StatusAnterior: &anterior,
			StatusNovo:     &novo,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("protocolo", updated.Protocolo).
		Str("status_anterior", anterior).
		Str("status_novo", updated.Status).
		Str("responsavel_id", ator.ID.String()).
		Msg("status de denúncia alterado")
	return updated.ParaAtor(ator), nil
}

// Estatisticas conta as denúncias visíveis ao ator.
func (s *Service) Estatisticas(ctx context.Context, ator *acesso.Ator) (*Estatisticas, error) {
	escopo, err := escopoLeitura(ator)
	if err != nil {
		return nil, err
	}
	return s.repo.Estatisticas(ctx, escopo)
}

func escopoLeitura(ator *acesso.Ator) (acesso.Escopo, error) {
	if ator == nil {
		return acesso.Escopo{}, apperr.Unauthenticated("Usuário não autenticado")
	}
	if acesso.AlcanceDe(ator.Papel, acesso.VerDenuncia) == acesso.Nenhum {
		return acesso.Escopo{}, apperr.Forbidden("Acesso negado")
	}
	return acesso.EscopoPara(ator), nil
}
