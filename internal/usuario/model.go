package usuario

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gestaozabele/denuncias/internal/acesso"
	"github.com/gestaozabele/denuncias/internal/apperr"
)

// ErrNotFound indica identidade inexistente.
var ErrNotFound = apperr.NotFound("usuário não encontrado")

// Usuario é uma identidade autenticável.
type Usuario struct {
	ID          uuid.UUID    `json:"id"`
	Email       string       `json:"email"`
	Nome        string       `json:"nome"`
	SenhaHash   string       `json:"-"`
	Perfil      acesso.Papel `json:"perfil"`
	EmpresaID   *uuid.UUID   `json:"empresa_id"`
	Ativo       bool         `json:"ativo"`
	UltimoLogin *time.Time   `json:"ultimo_login"`
	CreatedAt   time.Time    `json:"data_criacao"`
	UpdatedAt   time.Time    `json:"data_atualizacao"`
}

// Ator converte a identidade no ator da requisição.
func (u *Usuario) Ator() *acesso.Ator {
	a := &acesso.Ator{ID: u.ID, Papel: u.Perfil}
	if u.EmpresaID != nil {
		id := *u.EmpresaID
		a.EmpresaID = &id
	}
	return a
}

// CreateInput chega do handler com os campos brutos.
type CreateInput struct {
	Email     string     `json:"email"`
	Nome      string     `json:"nome"`
	Senha     string     `json:"senha"`
	Perfil    string     `json:"perfil"`
	EmpresaID *uuid.UUID `json:"empresa_id"`
	Ativo     *bool      `json:"ativo"`
}

// UpdateInput aplica substituição parcial; nil mantém o valor atual.
type UpdateInput struct {
	Email     *string    `json:"email"`
	Nome      *string    `json:"nome"`
	Senha     *string    `json:"senha"`
	Perfil    *string    `json:"perfil"`
	EmpresaID *uuid.UUID `json:"empresa_id"`
	Ativo     *bool      `json:"ativo"`
}

// Filtro restringe a listagem.
type Filtro struct {
	EmpresaID *uuid.UUID
}

// Contagem resume o cadastro de identidades.
type Contagem struct {
	Total  int `json:"total_usuarios"`
	Ativos int `json:"usuarios_ativos"`
}

type createParams struct {
	Email     string
	Nome      string
	SenhaHash string
	Perfil    acesso.Papel
	EmpresaID *uuid.UUID
	Ativo     bool
}

type updateParams struct {
	Email        *string
	Nome         *string
	SenhaHash    *string
	Perfil       *acesso.Papel
	EmpresaID    *uuid.UUID
	ClearEmpresa bool
	Ativo        *bool
}

// NormalizeEmail aplica trim e minúsculas.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
