// Package acesso concentra papéis, a matriz de capacidades e o predicado de
// acesso aplicado antes de qualquer leitura ou mutação.
package acesso

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrPapelInvalido indica papel fora da enumeração.
var ErrPapelInvalido = errors.New("perfil inválido")

// Papel é um dos cinco níveis fixos de capacidade.
type Papel string

const (
	SuperAdmin   Papel = "super_admin"
	AdminCliente Papel = "admin_cliente"
	Auditoria    Papel = "auditoria"
	Gerente      Papel = "gerente"
	Cliente      Papel = "cliente"
)

var papeisValidos = map[Papel]struct{}{
	SuperAdmin:   {},
	AdminCliente: {},
	Auditoria:    {},
	Gerente:      {},
	Cliente:      {},
}

// Papeis lista todos os papéis em ordem decrescente de autoridade.
func Papeis() []Papel {
	return []Papel{SuperAdmin, AdminCliente, Auditoria, Gerente, Cliente}
}

// ParsePapel normaliza e valida o texto recebido.
func ParsePapel(raw string) (Papel, error) {
	p := Papel(strings.ToLower(strings.TrimSpace(raw)))
	if !p.Valido() {
		return "", ErrPapelInvalido
	}
	return p, nil
}

// Valido informa se o papel pertence à enumeração.
func (p Papel) Valido() bool {
	_, ok := papeisValidos[p]
	return ok
}

// Privilegiado identifica papéis com autoridade administrativa.
func (p Papel) Privilegiado() bool {
	return p == SuperAdmin || p == AdminCliente
}

func (p Papel) String() string {
	return string(p)
}

// Ator é a identidade resolvida para a requisição corrente.
type Ator struct {
	ID        uuid.UUID
	Papel     Papel
	EmpresaID *uuid.UUID
}

// MesmaEmpresa compara o tenant do ator com o informado.
func (a *Ator) MesmaEmpresa(empresaID *uuid.UUID) bool {
	if a == nil || a.EmpresaID == nil || empresaID == nil {
		return false
	}
	return *a.EmpresaID == *empresaID
}
