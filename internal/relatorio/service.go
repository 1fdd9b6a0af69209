package relatorio

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gestaozabele/denuncias/internal/acesso"
	"github.com/gestaozabele/denuncias/internal/apperr"
	"github.com/gestaozabele/denuncias/internal/denuncia"
	"github.com/gestaozabele/denuncias/internal/empresa"
	"github.com/gestaozabele/denuncias/internal/usuario"
)

type relatorioRepository interface {
	Contar(ctx context.Context, c Consulta) (int, error)
	Agrupar(ctx context.Context, c Consulta, dim Dimensao) (map[string]int, error)
	PorDia(ctx context.Context, c Consulta, desde time.Time) (map[string]int, error)
	TempoMedioResolucao(ctx context.Context, c Consulta) (*float64, error)
	Listar(ctx context.Context, c Consulta, limite int) ([]denuncia.Denuncia, error)
	MetricasPorEmpresa(ctx context.Context, desde time.Time) (map[uuid.UUID]*EstatisticasEmpresa, error)
}

type empresaLister interface {
	List(ctx context.Context, ator *acesso.Ator) ([]empresa.Empresa, error)
	Contar(ctx context.Context, ator *acesso.Ator) (empresa.Contagem, error)
}

type usuarioCounter interface {
	Contar(ctx context.Context, ator *acesso.Ator) (usuario.Contagem, error)
}

// Service calcula relatórios sempre a partir do escopo do ator.
type Service struct {
	repo     relatorioRepository
	empresas empresaLister
	usuarios usuarioCounter
	ambiente string
	now      func() time.Time
}

// NewService cria uma nova instância de Service.
func NewService(repo *Repository, empresas *empresa.Service, usuarios *usuario.Service, ambiente string) *Service {
	return &Service{repo: repo, empresas: empresas, usuarios: usuarios, ambiente: ambiente, now: time.Now}
}

// Dashboard resume totais, distribuições e a tendência dos últimos 30 dias.
func (s *Service) Dashboard(ctx context.Context, ator *acesso.Ator) (*Dashboard, error) {
	escopo, err := escopoLeitura(ator)
	if err != nil {
		return nil, err
	}
	c := Consulta{Escopo: escopo}

	out := &Dashboard{}
	if out.PorStatus, err = s.repo.Agrupar(ctx, c, DimStatus); err != nil {
		return nil, err
	}
	if out.PorPrioridade, err = s.repo.Agrupar(ctx, c, DimPrioridade); err != nil {
		return nil, err
	}
	if out.PorCategoria, err = s.repo.Agrupar(ctx, c, DimCategoria); err != nil {
		return nil, err
	}
	for _, n := range out.PorStatus {
		out.TotalDenuncias += n
	}

	now := s.now().UTC()
	hoje := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	desde := hoje.AddDate(0, 0, -(DiasTendencia - 1))
	porDia, err := s.repo.PorDia(ctx, c, desde)
	if err != nil {
		return nil, err
	}
	out.Tendencia30Dias = make(map[string]int, DiasTendencia)
	for i := 0; i < DiasTendencia; i++ {
		dia := desde.AddDate(0, 0, i).Format("2006-01-02")
		out.Tendencia30Dias[dia] = porDia[dia]
	}
	out.PeriodoAnalise = Periodo{Inicio: now.AddDate(0, 0, -DiasTendencia), Fim: now}
	return out, nil
}

// Detalhado aplica filtros avançados e devolve agregados e as primeiras 100 denúncias.
func (s *Service) Detalhado(ctx context.Context, ator *acesso.Ator, entrada Entrada) (*Detalhado, error) {
	escopo, err := escopoLeitura(ator)
	if err != nil {
		return nil, err
	}
	c, aplicados, err := entrada.consulta(escopo)
	if err != nil {
		return nil, err
	}

	out := &Detalhado{FiltrosAplicados: aplicados}
	est := &out.Estatisticas
	if est.TotalDenuncias, err = s.repo.Contar(ctx, c); err != nil {
		return nil, err
	}
	if est.PorStatus, err = s.repo.Agrupar(ctx, c, DimStatus); err != nil {
		return nil, err
	}
	if est.PorCategoria, err = s.repo.Agrupar(ctx, c, DimCategoria); err != nil {
		return nil, err
	}
	if est.PorPrioridade, err = s.repo.Agrupar(ctx, c, DimPrioridade); err != nil {
		return nil, err
	}
	if est.TempoMedioResolucaoDias, err = s.repo.TempoMedioResolucao(ctx, c); err != nil {
		return nil, err
	}
	if out.Denuncias, err = s.repo.Listar(ctx, c, LimiteDetalhado); err != nil {
		return nil, err
	}
	denuncia.RedigirOrigem(ator, out.Denuncias)
	return out, nil
}

// Exportar gera json, csv ou xlsx com as denúncias filtradas.
func (s *Service) Exportar(ctx context.Context, ator *acesso.Ator, pedido PedidoExportacao) (*Exportacao, error) {
	escopo, err := escopoLeitura(ator)
	if err != nil {
		return nil, err
	}
	formato := strings.ToLower(strings.TrimSpace(pedido.Formato))
	if formato == "" {
		formato = FormatoJSON
	}
	switch formato {
	case FormatoJSON, FormatoCSV, FormatoXLSX:
	default:
		return nil, apperr.Validation("formato", "Formato não suportado")
	}

	c, _, err := pedido.Filtros.consulta(escopo)
	if err != nil {
		return nil, err
	}
	denuncias, err := s.repo.Listar(ctx, c, 0)
	if err != nil {
		return nil, err
	}
	denuncia.RedigirOrigem(ator, denuncias)

	now := s.now()
	out := &Exportacao{Formato: formato}
	switch formato {
	case FormatoJSON:
		out.JSON = &ExportacaoJSON{Denuncias: denuncias, Total: len(denuncias), DataExportacao: now.UTC()}
	case FormatoCSV:
		conteudo, err := GerarCSV(denuncias)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		out.Arquivo = &Arquivo{Nome: nomeArquivo(formato, now), ContentType: "text/csv; charset=utf-8", Conteudo: conteudo}
	case FormatoXLSX:
		conteudo, err := GerarXLSX(denuncias)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		out.Arquivo = &Arquivo{
			Nome:        nomeArquivo(formato, now),
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Conteudo:    conteudo,
		}
	}
	return out, nil
}

// MetricasEmpresa devolve métricas de cada tenant ativo; apenas super_admin.
func (s *Service) MetricasEmpresa(ctx context.Context, ator *acesso.Ator) (*MetricasEmpresas, error) {
	if ator == nil {
		return nil, apperr.Unauthenticated("Usuário não autenticado")
	}
	if !acesso.CanAccess(ator, acesso.RelatorioGlobal, acesso.Alvo{}) {
		return nil, apperr.Forbidden("Acesso negado - apenas Super Admin")
	}

	empresas, err := s.empresas.List(ctx, ator)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	porEmpresa, err := s.repo.MetricasPorEmpresa(ctx, now.AddDate(0, 0, -DiasTendencia))
	if err != nil {
		return nil, err
	}

	out := &MetricasEmpresas{MetricasEmpresas: []MetricaEmpresa{}, DataConsulta: now}
	for _, e := range empresas {
		if !e.Ativa() {
			continue
		}
		est := EstatisticasEmpresa{PorStatus: map[string]int{}}
		if m, ok := porEmpresa[e.ID]; ok {
			est = *m
		}
		out.MetricasEmpresas = append(out.MetricasEmpresas, MetricaEmpresa{Empresa: e, Estatisticas: est})
	}
	out.TotalEmpresas = len(out.MetricasEmpresas)
	return out, nil
}

// Sistema resume o cadastro da instalação; apenas super_admin.
func (s *Service) Sistema(ctx context.Context, ator *acesso.Ator) (*Sistema, error) {
	if ator == nil {
		return nil, apperr.Unauthenticated("Usuário não autenticado")
	}
	empresas, err := s.empresas.Contar(ctx, ator)
	if err != nil {
		return nil, err
	}
	usuarios, err := s.usuarios.Contar(ctx, ator)
	if err != nil {
		return nil, err
	}
	return &Sistema{
		Estatisticas: EstatisticasSistema{
			TotalEmpresas:  empresas.Total,
			EmpresasAtivas: empresas.Ativas,
			TotalUsuarios:  usuarios.Total,
			UsuariosAtivos: usuarios.Ativos,
		},
		Configuracoes: ConfiguracoesSistema{VersaoSistema: VersaoSistema, Ambiente: s.ambiente},
	}, nil
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
