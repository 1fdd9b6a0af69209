package relatorio

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/gestaozabele/denuncias/internal/acesso"
	"github.com/gestaozabele/denuncias/internal/apperr"
	"github.com/gestaozabele/denuncias/internal/denuncia"
	"github.com/gestaozabele/denuncias/internal/empresa"
	"github.com/gestaozabele/denuncias/internal/usuario"
)

var agora = time.Date(2024, 3, 30, 15, 0, 0, 0, time.UTC)

func aceita(c Consulta, d *denuncia.Denuncia) bool {
	if !c.Escopo.Permite(d.Alvo()) {
		return false
	}
	if c.DataInicio != nil && d.CreatedAt.Before(*c.DataInicio) {
		return false
	}
	if c.DataFim != nil && d.CreatedAt.After(*c.DataFim) {
		return false
	}
	return (c.Categoria == "" || d.Categoria == c.Categoria) &&
		(c.Status == "" || d.Status == c.Status) &&
		(c.Prioridade == "" || d.Prioridade == c.Prioridade)
}

type stubRepo struct {
	denuncias      []denuncia.Denuncia
	usuariosAtivos map[uuid.UUID]int
	ultimaConsulta Consulta
}

func (s *stubRepo) filtrar(c Consulta) []denuncia.Denuncia {
	s.ultimaConsulta = c
	out := []denuncia.Denuncia{}
	for i := range s.denuncias {
		if aceita(c, &s.denuncias[i]) {
			out = append(out, s.denuncias[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *stubRepo) Contar(ctx context.Context, c Consulta) (int, error) {
	return len(s.filtrar(c)), nil
}

func (s *stubRepo) Agrupar(ctx context.Context, c Consulta, dim Dimensao) (map[string]int, error) {
	out := map[string]int{}
	for _, d := range s.filtrar(c) {
		switch dim {
		case DimStatus:
			out[d.Status]++
		case DimPrioridade:
			out[d.Prioridade]++
		case DimCategoria:
			out[d.Categoria]++
		}
	}
	return out, nil
}

func (s *stubRepo) PorDia(ctx context.Context, c Consulta, desde time.Time) (map[string]int, error) {
	out := map[string]int{}
	for _, d := range s.filtrar(c) {
		if !d.CreatedAt.Before(desde) {
			out[d.CreatedAt.UTC().Format("2006-01-02")]++
		}
	}
	return out, nil
}

func (s *stubRepo) TempoMedioResolucao(ctx context.Context, c Consulta) (*float64, error) {
	var soma, n float64
	for _, d := range s.filtrar(c) {
		if d.Status == denuncia.StatusConcluida && d.DataResolucao != nil {
			soma += math.Floor(d.DataResolucao.Sub(d.CreatedAt).Hours() / 24)
			n++
		}
	}
	if n == 0 {
		return nil, nil
	}
	media := soma / n
	return &media, nil
}

func (s *stubRepo) Listar(ctx context.Context, c Consulta, limite int) ([]denuncia.Denuncia, error) {
	out := s.filtrar(c)
	if limite > 0 && len(out) > limite {
		out = out[:limite]
	}
	return out, nil
}

func (s *stubRepo) MetricasPorEmpresa(ctx context.Context, desde time.Time) (map[uuid.UUID]*EstatisticasEmpresa, error) {
	out := map[uuid.UUID]*EstatisticasEmpresa{}
	for _, d := range s.denuncias {
		m, ok := out[d.EmpresaID]
		if !ok {
			m = &EstatisticasEmpresa{PorStatus: map[string]int{}}
			out[d.EmpresaID] = m
		}
		m.TotalDenuncias++
		m.PorStatus[d.Status]++
		if !d.CreatedAt.Before(desde) {
			m.Denuncias30Dias++
		}
	}
	for id, n := range s.usuariosAtivos {
		if m, ok := out[id]; ok {
			m.TotalUsuarios = n
		}
	}
	return out, nil
}

type stubEmpresas struct {
	empresas []empresa.Empresa
}

func (s stubEmpresas) List(ctx context.Context, ator *acesso.Ator) ([]empresa.Empresa, error) {
	return s.empresas, nil
}

func (s stubEmpresas) Contar(ctx context.Context, ator *acesso.Ator) (empresa.Contagem, error) {
	if ator.Papel != acesso.SuperAdmin {
		return empresa.Contagem{}, apperr.Forbidden("acesso negado - apenas Super Admin")
	}
	return empresa.Contagem{Total: len(s.empresas), Ativas: 1}, nil
}

type stubUsuarios struct{}

func (stubUsuarios) Contar(ctx context.Context, ator *acesso.Ator) (usuario.Contagem, error) {
	return usuario.Contagem{Total: 4, Ativos: 3}, nil
}

type fixture struct {
	svc    *Service
	repo   *stubRepo
	t1, t2 uuid.UUID
}

func ptr[T any](v T) *T { return &v }

func newFixture() *fixture {
	t1, t2 := uuid.New(), uuid.New()
	autor := uuid.New()
	dias := func(n int) time.Time { return agora.AddDate(0, 0, -n) }

	repo := &stubRepo{
		usuariosAtivos: map[uuid.UUID]int{t1: 3},
		denuncias: []denuncia.Denuncia{
			{ID: uuid.New(), Protocolo: "DEN20240330AAAAAAA1", Titulo: "Vazamento", Categoria: "Segurança", Status: denuncia.StatusRecebida, Prioridade: denuncia.PrioridadeAlta, EmpresaID: t1, UsuarioID: &autor, CreatedAt: dias(0), Origem: "web"},
			{ID: uuid.New(), Protocolo: "DEN20240325AAAAAAA2", Titulo: "Assédio na linha 2", Categoria: "Conduta", Subcategoria: ptr("Assédio moral"), Status: denuncia.StatusConcluida, Prioridade: denuncia.PrioridadeCritica, Anonima: true, EmpresaID: t1, CreatedAt: dias(5), DataResolucao: ptr(dias(5).Add(50 * time.Hour)), Origem: "telefone", IPOrigem: ptr("203.0.113.77")},
			{ID: uuid.New(), Protocolo: "DEN20240320AAAAAAA3", Titulo: "Fraude em notas", Categoria: "Fraude", Status: denuncia.StatusConcluida, Prioridade: denuncia.PrioridadeMedia, EmpresaID: t1, CreatedAt: dias(10), DataResolucao: ptr(dias(10).Add(4*24*time.Hour + time.Hour)), Origem: "web"},
			{ID: uuid.New(), Protocolo: "DEN20240101AAAAAAA4", Titulo: "Antiga", Categoria: "Fraude", Status: denuncia.StatusArquivada, Prioridade: denuncia.PrioridadeBaixa, EmpresaID: t1, CreatedAt: dias(89), Origem: "web"},
			{ID: uuid.New(), Protocolo: "DEN20240329AAAAAAA5", Titulo: "Outra empresa", Categoria: "Segurança", Status: denuncia.StatusEmAnalise, Prioridade: denuncia.PrioridadeMedia, EmpresaID: t2, CreatedAt: dias(1), Origem: "web"},
		},
	}
	return &fixture{
		svc: &Service{
			repo: repo,
			empresas: stubEmpresas{empresas: []empresa.Empresa{
				{ID: t1, Nome: "TechCorp", Status: empresa.StatusAtiva},
				{ID: t2, Nome: "Encerrada", Status: empresa.StatusInativa},
			}},
			usuarios: stubUsuarios{},
			ambiente: "test",
			now:      func() time.Time { return agora },
		},
		repo: repo,
		t1:   t1,
		t2:   t2,
	}
}

func membro(p acesso.Papel, empresaID uuid.UUID) *acesso.Ator {
	id := empresaID
	return &acesso.Ator{ID: uuid.New(), Papel: p, EmpresaID: &id}
}

func superAdmin() *acesso.Ator {
	return &acesso.Ator{ID: uuid.New(), Papel: acesso.SuperAdmin}
}

func TestDashboardScopedToTenant(t *testing.T) {
	f := newFixture()

	d, err := f.svc.Dashboard(context.Background(), membro(acesso.Gerente, f.t1))
	require.NoError(t, err)

	assert.Equal(t, 4, d.TotalDenuncias)
	assert.Equal(t, map[string]int{"recebida": 1, "concluida": 2, "arquivada": 1}, d.PorStatus)
	assert.Equal(t, 2, d.PorCategoria["Fraude"])
	assert.Equal(t, 1, d.PorPrioridade["critica"])

	require.Len(t, d.Tendencia30Dias, DiasTendencia)
	assert.Equal(t, 1, d.Tendencia30Dias["2024-03-30"])
	assert.Equal(t, 1, d.Tendencia30Dias["2024-03-25"])
	assert.Equal(t, 0, d.Tendencia30Dias["2024-03-29"], "denúncia de outro tenant não entra")
	assert.Contains(t, d.Tendencia30Dias, "2024-03-01")
	assert.NotContains(t, d.Tendencia30Dias, "2024-02-29")
	assert.Equal(t, agora, d.PeriodoAnalise.Fim)
	assert.Equal(t, agora.AddDate(0, 0, -30), d.PeriodoAnalise.Inicio)
}

func TestDashboardAuth(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Dashboard(context.Background(), nil)
	assert.True(t, errors.Is(err, apperr.ErrUnauthenticated))

	d, err := f.svc.Dashboard(context.Background(), superAdmin())
	require.NoError(t, err)
	assert.Equal(t, 5, d.TotalDenuncias)
}

func TestDashboardClienteSeesOwnAndTenantAnonymous(t *testing.T) {
	f := newFixture()

	d, err := f.svc.Dashboard(context.Background(), membro(acesso.Cliente, f.t1))
	require.NoError(t, err)
	assert.Equal(t, 1, d.TotalDenuncias, "apenas a anônima do próprio tenant")
	assert.Equal(t, map[string]int{"concluida": 1}, d.PorStatus)
}

func TestDetalhadoFiltersAndResolutionTime(t *testing.T) {
	f := newFixture()

	out, err := f.svc.Detalhado(context.Background(), membro(acesso.AdminCliente, f.t1), Entrada{
		DataInicio: "2024-03-15",
		EmpresaID:  f.t2.String(),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, out.Estatisticas.TotalDenuncias)
	require.NotNil(t, out.Estatisticas.TempoMedioResolucaoDias)
	assert.InDelta(t, 3.0, *out.Estatisticas.TempoMedioResolucaoDias, 0.001, "média de 2 e 4 dias inteiros")
	assert.Len(t, out.Denuncias, 3)
	require.NotNil(t, out.FiltrosAplicados.DataInicio)
	assert.Nil(t, out.FiltrosAplicados.EmpresaID, "empresa_id ignorado fora do super_admin")
	assert.Nil(t, out.FiltrosAplicados.Categoria)

	out, err = f.svc.Detalhado(context.Background(), superAdmin(), Entrada{EmpresaID: f.t2.String()})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Estatisticas.TotalDenuncias)
	assert.Nil(t, out.Estatisticas.TempoMedioResolucaoDias)
	require.NotNil(t, out.FiltrosAplicados.EmpresaID)
	assert.Equal(t, f.t2.String(), *out.FiltrosAplicados.EmpresaID)
}

func TestDetalhadoRejectsBadInput(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Detalhado(ctx, superAdmin(), Entrada{DataInicio: "30/03/2024"})
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "data_inicio", appErr.Field)

	_, err = f.svc.Detalhado(ctx, superAdmin(), Entrada{DataFim: "ontem"})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "data_fim", appErr.Field)

	_, err = f.svc.Detalhado(ctx, superAdmin(), Entrada{EmpresaID: "abc"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestDetalhadoDateBounds(t *testing.T) {
	f := newFixture()

	out, err := f.svc.Detalhado(context.Background(), superAdmin(), Entrada{
		DataInicio: "2024-03-20T00:00:00Z",
		DataFim:    "2024-03-29T18:00:00-03:00",
		Status:     " CONCLUIDA ",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Estatisticas.TotalDenuncias)
	require.NotNil(t, f.repo.ultimaConsulta.DataFim)
	assert.Equal(t, time.Date(2024, 3, 29, 21, 0, 0, 0, time.UTC), *f.repo.ultimaConsulta.DataFim)
	assert.Equal(t, "concluida", *out.FiltrosAplicados.Status)
}

func TestExportarFormats(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	admin := membro(acesso.AdminCliente, f.t1)

	out, err := f.svc.Exportar(ctx, admin, PedidoExportacao{})
	require.NoError(t, err)
	require.NotNil(t, out.JSON)
	assert.Equal(t, 4, out.JSON.Total)

	out, err = f.svc.Exportar(ctx, admin, PedidoExportacao{Formato: "CSV", Filtros: Entrada{Categoria: "Conduta"}})
	require.NoError(t, err)
	require.NotNil(t, out.Arquivo)
	assert.Equal(t, "denuncias_20240330_150000.csv", out.Arquivo.Nome)

	body := bytes.TrimPrefix(out.Arquivo.Conteudo, []byte("\ufeff"))
	records, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, Cabecalho, records[0])
	assert.Equal(t, []string{
		"DEN20240325AAAAAAA2", "Assédio na linha 2", "Conduta", "Assédio moral",
		"concluida", "critica", "25/03/2024 15:00", "Sim", "telefone",
	}, records[1])

	_, err = f.svc.Exportar(ctx, admin, PedidoExportacao{Formato: "pdf"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = f.svc.Exportar(ctx, nil, PedidoExportacao{})
	assert.True(t, errors.Is(err, apperr.ErrUnauthenticated))
}

func TestOrigemAnonimaOcultaNosRelatorios(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	conduta := Entrada{Categoria: "Conduta"}

	for _, ator := range []*acesso.Ator{membro(acesso.Gerente, f.t1), membro(acesso.Cliente, f.t1)} {
		out, err := f.svc.Exportar(ctx, ator, PedidoExportacao{Filtros: conduta})
		require.NoError(t, err, ator.Papel)
		require.Len(t, out.JSON.Denuncias, 1, ator.Papel)
		assert.Nil(t, out.JSON.Denuncias[0].IPOrigem, ator.Papel)

		det, err := f.svc.Detalhado(ctx, ator, conduta)
		require.NoError(t, err, ator.Papel)
		require.Len(t, det.Denuncias, 1, ator.Papel)
		assert.Nil(t, det.Denuncias[0].IPOrigem, ator.Papel)
	}

	out, err := f.svc.Exportar(ctx, membro(acesso.Auditoria, f.t1), PedidoExportacao{Filtros: conduta})
	require.NoError(t, err)
	require.Len(t, out.JSON.Denuncias, 1)
	require.NotNil(t, out.JSON.Denuncias[0].IPOrigem)
	assert.Equal(t, "203.0.113.77", *out.JSON.Denuncias[0].IPOrigem)
	require.NotNil(t, f.repo.denuncias[1].IPOrigem, "o registro armazenado não é alterado")
}

func TestExportarXLSX(t *testing.T) {
	f := newFixture()

	out, err := f.svc.Exportar(context.Background(), membro(acesso.Auditoria, f.t1), PedidoExportacao{Formato: FormatoXLSX})
	require.NoError(t, err)
	require.NotNil(t, out.Arquivo)
	assert.Contains(t, out.Arquivo.ContentType, "spreadsheetml")

	x, err := excelize.OpenReader(bytes.NewReader(out.Arquivo.Conteudo))
	require.NoError(t, err)
	defer x.Close()

	rows, err := x.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, Cabecalho, rows[0])
	assert.Equal(t, "DEN20240330AAAAAAA1", rows[1][0])
	assert.Equal(t, "Não", rows[1][7])
}

func TestMetricasEmpresa(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.MetricasEmpresa(ctx, membro(acesso.AdminCliente, f.t1))
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	out, err := f.svc.MetricasEmpresa(ctx, superAdmin())
	require.NoError(t, err)
	require.Equal(t, 1, out.TotalEmpresas, "apenas empresas ativas")
	m := out.MetricasEmpresas[0]
	assert.Equal(t, f.t1, m.Empresa.ID)
	assert.Equal(t, 4, m.Estatisticas.TotalDenuncias)
	assert.Equal(t, 3, m.Estatisticas.Denuncias30Dias)
	assert.Equal(t, 3, m.Estatisticas.TotalUsuarios)
	assert.Equal(t, 2, m.Estatisticas.PorStatus["concluida"])
}

func TestSistema(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	out, err := f.svc.Sistema(ctx, superAdmin())
	require.NoError(t, err)
	assert.Equal(t, EstatisticasSistema{TotalEmpresas: 2, EmpresasAtivas: 1, TotalUsuarios: 4, UsuariosAtivos: 3}, out.Estatisticas)
	assert.Equal(t, ConfiguracoesSistema{VersaoSistema: VersaoSistema, Ambiente: "test"}, out.Configuracoes)

	_, err = f.svc.Sistema(ctx, membro(acesso.AdminCliente, f.t1))
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
}

func TestConsultaWhere(t *testing.T) {
	empresaID := uuid.New()
	inicio := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	c := Consulta{
		Escopo:     acesso.Escopo{EmpresaID: &empresaID},
		DataInicio: &inicio,
		Categoria:  "Fraude",
	}
	w := c.Where()
	assert.Equal(t, " WHERE empresa_id = $1 AND created_at >= $2 AND categoria = $3", w.SQL())
	assert.Equal(t, []any{empresaID, inicio, "Fraude"}, w.Args())
}
