package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gestaozabele/denuncias/internal/relatorio"
)

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.Relatorios.Dashboard(r.Context(), atorFrom(r))
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, d)
}

// RelatorioDetalhado aplica os filtros da query string.
func (h *Handler) RelatorioDetalhado(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entrada := relatorio.Entrada{
		DataInicio: q.Get("data_inicio"),
		DataFim:    q.Get("data_fim"),
		Categoria:  q.Get("categoria"),
		Status:     q.Get("status"),
		Prioridade: q.Get("prioridade"),
		EmpresaID:  q.Get("empresa_id"),
	}
	d, err := h.Relatorios.Detalhado(r.Context(), atorFrom(r), entrada)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, d)
}

// Exportar devolve JSON ou o arquivo CSV/XLSX como download.
func (h *Handler) Exportar(w http.ResponseWriter, r *http.Request) {
	var pedido relatorio.PedidoExportacao
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &pedido); err != nil {
			WriteAppError(w, r, err)
			return
		}
	}

	exp, err := h.Relatorios.Exportar(r.Context(), atorFrom(r), pedido)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}

	if exp.Arquivo == nil {
		WriteJSON(w, http.StatusOK, exp.JSON)
		return
	}

	w.Header().Set("Content-Type", exp.Arquivo.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exp.Arquivo.Nome))
	w.Header().Set("Content-Length", strconv.Itoa(len(exp.Arquivo.Conteudo)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(exp.Arquivo.Conteudo)
}

func (h *Handler) MetricasEmpresa(w http.ResponseWriter, r *http.Request) {
	m, err := h.Relatorios.MetricasEmpresa(r.Context(), atorFrom(r))
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, m)
}
