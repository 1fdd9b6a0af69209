package denuncia

import (
	"fmt"
	"strings"

	"github.com/gestaozabele/denuncias/internal/acesso"
)

// Where acumula condições com placeholders posicionais do Postgres.
// Cada $%d do formato recebe o índice do argumento correspondente.
type Where struct {
	clauses []string
	args    []any
}

// Add inclui uma condição.
func (w *Where) Add(format string, vals ...any) {
	idx := make([]any, len(vals))
	for i, v := range vals {
		w.args = append(w.args, v)
		idx[i] = len(w.args)
	}
	w.clauses = append(w.clauses, fmt.Sprintf(format, idx...))
}

// SQL devolve " WHERE ..." ou vazio.
func (w *Where) SQL() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// Args devolve os argumentos na ordem dos placeholders.
func (w *Where) Args() []any {
	return w.args
}

// Next é o próximo índice livre de placeholder.
func (w *Where) Next() int {
	return len(w.args) + 1
}

// NovoWhere parte do escopo do ator; toda leitura de denúncias começa aqui.
// prefix qualifica as colunas quando a consulta usa alias (ex.: "d.").
func NovoWhere(escopo acesso.Escopo, prefix string) *Where {
	w := &Where{}
	switch {
	case escopo.Nenhuma:
		w.Add("FALSE")
	case escopo.Todas:
	default:
		if escopo.EmpresaID != nil {
			w.Add(prefix+"empresa_id = $%d", *escopo.EmpresaID)
		} else {
			w.Add("FALSE")
		}
		if escopo.AutorID != nil {
			w.Add("("+prefix+"usuario_id = $%d OR "+prefix+"anonima)", *escopo.AutorID)
		}
	}
	return w
}
