package relatorio

import (
	"strings"
	"time"

	"github.com/gestaozabele/denuncias/internal/acesso"
	"github.com/gestaozabele/denuncias/internal/apperr"
	"github.com/gestaozabele/denuncias/internal/denuncia"
	"github.com/gestaozabele/denuncias/internal/empresa"
	"github.com/gestaozabele/denuncias/internal/util"
)

const (
	FormatoJSON = "json"
	FormatoCSV  = "csv"
	FormatoXLSX = "xlsx"

	// LimiteDetalhado é o máximo de denúncias devolvidas no relatório detalhado.
	LimiteDetalhado = 100
	// DiasTendencia é a janela do gráfico de tendência.
	DiasTendencia = 30

	VersaoSistema = "1.0.0"
)

// Entrada são os filtros como chegam da query string ou do corpo da exportação.
type Entrada struct {
	DataInicio string `json:"data_inicio"`
	DataFim    string `json:"data_fim"`
	Categoria  string `json:"categoria"`
	Status     string `json:"status"`
	Prioridade string `json:"prioridade"`
	EmpresaID  string `json:"empresa_id"`
}

// Consulta é o recorte de denúncias sobre o qual os agregados são calculados.
type Consulta struct {
	Escopo     acesso.Escopo
	DataInicio *time.Time
	DataFim    *time.Time
	Categoria  string
	Status     string
	Prioridade string
}

// FiltrosAplicados ecoa os filtros aceitos.
type FiltrosAplicados struct {
	DataInicio *string `json:"data_inicio"`
	DataFim    *string `json:"data_fim"`
	Categoria  *string `json:"categoria"`
	Status     *string `json:"status"`
	Prioridade *string `json:"prioridade"`
	EmpresaID  *string `json:"empresa_id"`
}

// Periodo delimita a janela analisada.
type Periodo struct {
	Inicio time.Time `json:"inicio"`
	Fim    time.Time `json:"fim"`
}

// Dashboard resume as denúncias visíveis ao ator.
type Dashboard struct {
	TotalDenuncias  int            `json:"total_denuncias"`
	PorStatus       map[string]int `json:"por_status"`
	PorPrioridade   map[string]int `json:"por_prioridade"`
	PorCategoria    map[string]int `json:"por_categoria"`
	Tendencia30Dias map[string]int `json:"tendencia_30_dias"`
	PeriodoAnalise  Periodo        `json:"periodo_analise"`
}

// EstatisticasDetalhadas são os agregados do relatório detalhado.
type EstatisticasDetalhadas struct {
	TotalDenuncias          int            `json:"total_denuncias"`
	PorStatus               map[string]int `json:"por_status"`
	PorCategoria            map[string]int `json:"por_categoria"`
	PorPrioridade           map[string]int `json:"por_prioridade"`
	TempoMedioResolucaoDias *float64       `json:"tempo_medio_resolucao_dias"`
}

// Detalhado é a resposta do relatório com filtros.
type Detalhado struct {
	FiltrosAplicados FiltrosAplicados       `json:"filtros_aplicados"`
	Estatisticas     EstatisticasDetalhadas `json:"estatisticas"`
	Denuncias        []denuncia.Denuncia    `json:"denuncias"`
}

// ExportacaoJSON é o corpo da exportação em json.
type ExportacaoJSON struct {
	Denuncias      []denuncia.Denuncia `json:"denuncias"`
	Total          int                 `json:"total"`
	DataExportacao time.Time           `json:"data_exportacao"`
}

// Arquivo é um download gerado pela exportação.
type Arquivo struct {
	Nome        string
	ContentType string
	Conteudo    []byte
}

// Exportacao traz JSON ou Arquivo, conforme o formato pedido.
type Exportacao struct {
	Formato string
	JSON    *ExportacaoJSON
	Arquivo *Arquivo
}

// PedidoExportacao é o corpo de POST /relatorios/exportar.
type PedidoExportacao struct {
	Formato string  `json:"formato"`
	Filtros Entrada `json:"filtros"`
}

// EstatisticasEmpresa são as métricas de um tenant.
type EstatisticasEmpresa struct {
	TotalDenuncias  int            `json:"total_denuncias"`
	TotalUsuarios   int            `json:"total_usuarios"`
	Denuncias30Dias int            `json:"denuncias_30_dias"`
	PorStatus       map[string]int `json:"por_status"`
}

// MetricaEmpresa associa o tenant às suas métricas.
type MetricaEmpresa struct {
	Empresa      empresa.Empresa     `json:"empresa"`
	Estatisticas EstatisticasEmpresa `json:"estatisticas"`
}

// MetricasEmpresas é a resposta de /relatorios/metricas-empresa.
type MetricasEmpresas struct {
	MetricasEmpresas []MetricaEmpresa `json:"metricas_empresas"`
	TotalEmpresas    int              `json:"total_empresas"`
	DataConsulta     time.Time        `json:"data_consulta"`
}

// EstatisticasSistema agrega as contagens do cadastro.
type EstatisticasSistema struct {
	TotalEmpresas  int `json:"total_empresas"`
	EmpresasAtivas int `json:"empresas_ativas"`
	TotalUsuarios  int `json:"total_usuarios"`
	UsuariosAtivos int `json:"usuarios_ativos"`
}

// ConfiguracoesSistema descreve a instalação.
type ConfiguracoesSistema struct {
	VersaoSistema string `json:"versao_sistema"`
	Ambiente      string `json:"ambiente"`
}

// Sistema é a resposta de /configuracoes/sistema.
type Sistema struct {
	Estatisticas  EstatisticasSistema  `json:"estatisticas"`
	Configuracoes ConfiguracoesSistema `json:"configuracoes"`
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseData aceita ISO 8601 com ou sem fuso; sem fuso assume UTC.
func parseData(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperr.ErrValidation
}

// consulta converte a entrada em Consulta e no eco de filtros aplicados.
// empresa_id só é honrado quando o escopo é irrestrito.
func (in Entrada) consulta(escopo acesso.Escopo) (Consulta, FiltrosAplicados, error) {
	c := Consulta{
		Escopo:     escopo,
		Categoria:  strings.TrimSpace(in.Categoria),
		Status:     denuncia.NormalizeStatus(in.Status),
		Prioridade: strings.ToLower(strings.TrimSpace(in.Prioridade)),
	}
	aplicados := FiltrosAplicados{
		DataInicio: util.TrimmedOrNil(&in.DataInicio),
		DataFim:    util.TrimmedOrNil(&in.DataFim),
		Categoria:  util.TrimmedOrNil(&c.Categoria),
		Status:     util.TrimmedOrNil(&c.Status),
		Prioridade: util.TrimmedOrNil(&c.Prioridade),
	}

	if aplicados.DataInicio != nil {
		t, err := parseData(*aplicados.DataInicio)
		if err != nil {
			return c, aplicados, apperr.Validation("data_inicio", "Formato de data_inicio inválido")
		}
		c.DataInicio = &t
	}
	if aplicados.DataFim != nil {
		t, err := parseData(*aplicados.DataFim)
		if err != nil {
			return c, aplicados, apperr.Validation("data_fim", "Formato de data_fim inválido")
		}
		c.DataFim = &t
	}

	if escopo.Todas {
		id, err := util.ParseOptionalUUID(in.EmpresaID)
		if err != nil {
			return c, aplicados, apperr.Validation("empresa_id", "empresa_id inválido")
		}
		if id != nil {
			c.Escopo = escopo.RestringirEmpresa(*id)
			s := id.String()
			aplicados.EmpresaID = &s
		}
	}
	return c, aplicados, nil
}

// Where traduz a consulta para SQL, partindo sempre do escopo.
func (c Consulta) Where() *denuncia.Where {
	w := denuncia.NovoWhere(c.Escopo, "")
	if c.DataInicio != nil {
		w.Add("created_at >= $%d", *c.DataInicio)
	}
	if c.DataFim != nil {
		w.Add("created_at <= $%d", *c.DataFim)
	}
	if c.Categoria != "" {
		w.Add("categoria = $%d", c.Categoria)
	}
	if c.Status != "" {
		w.Add("status = $%d", c.Status)
	}
	if c.Prioridade != "" {
		w.Add("prioridade = $%d", c.Prioridade)
	}
	return w
}
