package empresa

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	StatusAtiva   = "ativa"
	StatusInativa = "inativa"
)

var validStatus = map[string]struct{}{
	StatusAtiva:   {},
	StatusInativa: {},
}

// Empresa é o tenant: raiz do particionamento dos dados.
type Empresa struct {
	ID                  uuid.UUID      `json:"id"`
	Nome                string         `json:"nome"`
	CNPJ                string         `json:"cnpj"`
	Status              string         `json:"status"`
	LogoURL             *string        `json:"logo_url"`
	CoresPersonalizadas map[string]any `json:"cores_personalizadas"`
	CreatedAt           time.Time      `json:"data_criacao"`
	UpdatedAt           time.Time      `json:"data_atualizacao"`
}

// Ativa informa se a empresa aceita novas denúncias.
func (e *Empresa) Ativa() bool {
	return e.Status == StatusAtiva
}

// Personalizacao expõe somente a identidade visual.
type Personalizacao struct {
	LogoURL             *string        `json:"logo_url"`
	CoresPersonalizadas map[string]any `json:"cores_personalizadas"`
}

// CreateInput contém os campos necessários para registrar uma empresa.
type CreateInput struct {
	Nome                string         `json:"nome"`
	CNPJ                string         `json:"cnpj"`
	Status              string         `json:"status"`
	CoresPersonalizadas map[string]any `json:"cores_personalizadas"`
}

// UpdateInput aplica substituição parcial; nil mantém o valor atual.
type UpdateInput struct {
	Nome                *string        `json:"nome"`
	CNPJ                *string        `json:"cnpj"`
	Status              *string        `json:"status"`
	LogoURL             *string        `json:"logo_url"`
	CoresPersonalizadas map[string]any `json:"cores_personalizadas"`
}

// Vazio indica ausência de campos para atualizar.
func (in UpdateInput) Vazio() bool {
	return in.Nome == nil && in.CNPJ == nil && in.Status == nil && in.LogoURL == nil && in.CoresPersonalizadas == nil
}

// Contagem resume o cadastro para o painel do sistema.
type Contagem struct {
	Total  int `json:"total_empresas"`
	Ativas int `json:"empresas_ativas"`
}

// NormalizeStatus padroniza o status recebido.
func NormalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// IsValidStatus valida status conhecido.
func IsValidStatus(status string) bool {
	_, ok := validStatus[status]
	return ok
}

// NormalizeCNPJ remove espaços nas bordas; a máscara é preservada.
func NormalizeCNPJ(cnpj string) string {
	return strings.TrimSpace(cnpj)
}
