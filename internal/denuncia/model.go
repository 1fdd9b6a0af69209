package denuncia

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gestaozabele/denuncias/internal/acesso"
	"github.com/gestaozabele/denuncias/internal/apperr"
)

const (
	StatusRecebida  = "recebida"
	StatusEmAnalise = "em_analise"
	StatusConcluida = "concluida"
	StatusArquivada = "arquivada"
)

const (
	PrioridadeBaixa   = "baixa"
	PrioridadeMedia   = "media"
	PrioridadeAlta    = "alta"
	PrioridadeCritica = "critica"
)

const (
	AcaoCriada         = "criada"
	AcaoStatusAlterado = "status_alterado"

	// OrigemPadrao é o canal assumido quando nenhum é informado.
	OrigemPadrao = "web"
)

const (
	PerPagePadrao = 20
	PerPageMaximo = 100
	// PageMaxima mantém o OFFSET calculado longe de estouro.
	PageMaxima = 1_000_000
)

var (
	// ErrNotFound indica denúncia inexistente.
	ErrNotFound = apperr.NotFound("Denúncia não encontrada")

	errProtocoloDuplicado = apperr.Conflict("protocolo já utilizado")
)

// Denuncia é o relato registrado por um usuário ou anonimamente.
type Denuncia struct {
	ID            uuid.UUID  `json:"id"`
	Protocolo     string     `json:"protocolo"`
	Titulo        string     `json:"titulo"`
	Descricao     string     `json:"descricao"`
	Categoria     string     `json:"categoria"`
	Subcategoria  *string    `json:"subcategoria"`
	Status        string     `json:"status"`
	Prioridade    string     `json:"prioridade"`
	Anonima       bool       `json:"anonima"`
	UsuarioID     *uuid.UUID `json:"usuario_id"`
	EmpresaID     uuid.UUID  `json:"empresa_id"`
	ResponsavelID *uuid.UUID `json:"responsavel_id"`
	CreatedAt     time.Time  `json:"data_criacao"`
	UpdatedAt     time.Time  `json:"data_atualizacao"`
	DataResolucao *time.Time `json:"data_resolucao"`
	Origem        string     `json:"origem"`
	IPOrigem      *string    `json:"ip_origem"`
}

// Alvo descreve a denúncia para o predicado de acesso.
func (d *Denuncia) Alvo() acesso.Alvo {
	empresaID := d.EmpresaID
	return acesso.Alvo{EmpresaID: &empresaID, AutorID: d.UsuarioID, Anonima: d.Anonima}
}

// ParaAtor apaga o ip_origem de denúncia anônima quando o ator não pode vê-lo.
func (d *Denuncia) ParaAtor(ator *acesso.Ator) *Denuncia {
	if d.Anonima && !acesso.CanAccess(ator, acesso.VerOrigemDenuncia, d.Alvo()) {
		d.IPOrigem = nil
	}
	return d
}

// RedigirOrigem aplica ParaAtor a cada denúncia da lista.
func RedigirOrigem(ator *acesso.Ator, denuncias []Denuncia) {
	for i := range denuncias {
		denuncias[i].ParaAtor(ator)
	}
}

// Historico é uma entrada imutável da trilha de auditoria.
type Historico struct {
	ID             uuid.UUID  `json:"id"`
	DenunciaID     uuid.UUID  `json:"denuncia_id"`
	UsuarioID      *uuid.UUID `json:"usuario_id"`
	Acao           string     `json:"acao"`
	Descricao      string     `json:"descricao"`
	StatusAnterior *string    `json:"status_anterior"`
	StatusNovo     *string    `json:"status_novo"`
	CreatedAt      time.Time  `json:"data_acao"`
}

// CreateInput chega do handler; IPOrigem é preenchido a partir da requisição.
type CreateInput struct {
	Titulo       string     `json:"titulo"`
	Descricao    string     `json:"descricao"`
	Categoria    string     `json:"categoria"`
	Subcategoria *string    `json:"subcategoria"`
	Prioridade   string     `json:"prioridade"`
	Anonima      bool       `json:"anonima"`
	Origem       string     `json:"origem"`
	EmpresaID    *uuid.UUID `json:"empresa_id"`
	IPOrigem     string     `json:"-"`
}

// StatusInput altera o status com comentário opcional.
type StatusInput struct {
	Status     string `json:"status"`
	Comentario string `json:"comentario"`
}

// Filtro restringe a listagem paginada.
type Filtro struct {
	Status     string
	Categoria  string
	Prioridade string
	Page       int
	PerPage    int
}

// Pagina é o resultado paginado da listagem.
type Pagina struct {
	Denuncias   []Denuncia `json:"denuncias"`
	Total       int        `json:"total"`
	Pages       int        `json:"pages"`
	CurrentPage int        `json:"current_page"`
	PerPage     int        `json:"per_page"`
}

// Detalhe reúne a denúncia e seu histórico, do mais recente ao mais antigo.
type Detalhe struct {
	Denuncia  *Denuncia   `json:"denuncia"`
	Historico []Historico `json:"historico"`
}

// Criada é a resposta da criação.
type Criada struct {
	Message   string    `json:"message"`
	Denuncia  *Denuncia `json:"denuncia"`
	Protocolo string    `json:"protocolo"`
}

// PorStatus conta denúncias em cada etapa do ciclo.
type PorStatus struct {
	Recebidas  int `json:"recebidas"`
	EmAnalise  int `json:"em_analise"`
	Concluidas int `json:"concluidas"`
	Arquivadas int `json:"arquivadas"`
}

// Add soma n ao contador do status.
func (p *PorStatus) Add(status string, n int) {
	switch status {
	case StatusRecebida:
		p.Recebidas += n
	case StatusEmAnalise:
		p.EmAnalise += n
	case StatusConcluida:
		p.Concluidas += n
	case StatusArquivada:
		p.Arquivadas += n
	}
}

// Total por rótulo agregado.
type Total struct {
	Categoria string `json:"categoria"`
	Total     int    `json:"total"`
}

// Estatisticas resume as denúncias visíveis ao ator.
type Estatisticas struct {
	Total        int       `json:"total"`
	PorStatus    PorStatus `json:"por_status"`
	PorCategoria []Total   `json:"por_categoria"`
}

// NormalizeStatus padroniza o status informado.
func NormalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// IsValidStatus verifica se o status é suportado.
func IsValidStatus(status string) bool {
	switch status {
	case StatusRecebida, StatusEmAnalise, StatusConcluida, StatusArquivada:
		return true
	}
	return false
}

// NormalizePrioridade padroniza a prioridade, aplicando o padrão media.
func NormalizePrioridade(prioridade string) string {
	prioridade = strings.ToLower(strings.TrimSpace(prioridade))
	if prioridade == "" {
		return PrioridadeMedia
	}
	return prioridade
}

// IsValidPrioridade verifica se a prioridade é suportada.
func IsValidPrioridade(prioridade string) bool {
	switch prioridade {
	case PrioridadeBaixa, PrioridadeMedia, PrioridadeAlta, PrioridadeCritica:
		return true
	}
	return false
}

// Statuses devolve o ciclo de vida em ordem.
func Statuses() []string {
	return []string{StatusRecebida, StatusEmAnalise, StatusConcluida, StatusArquivada}
}
