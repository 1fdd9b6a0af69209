package http

import (
	"net/http"
	"strings"

	"github.com/gestaozabele/denuncias/internal/denuncia"
	httpmiddleware "github.com/gestaozabele/denuncias/internal/http/middleware"
)

// CreateDenuncia registra uma denúncia; aceita requisição anônima.
func (h *Handler) CreateDenuncia(w http.ResponseWriter, r *http.Request) {
	var input denuncia.CreateInput
	if err := decodeJSON(r, &input); err != nil {
		WriteAppError(w, r, err)
		return
	}
	input.IPOrigem = httpmiddleware.ClientIP(r)

	d, err := h.Denuncias.Create(r.Context(), atorFrom(r), input)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, denuncia.Criada{
		Message:   "Denúncia criada com sucesso",
		Denuncia:  d,
		Protocolo: d.Protocolo,
	})
}

// ListDenuncias pagina as denúncias visíveis ao ator.
func (h *Handler) ListDenuncias(w http.ResponseWriter, r *http.Request) {
	page, err := intQuery(r, "page")
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	perPage, err := intQuery(r, "per_page")
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	q := r.URL.Query()
	filtro := denuncia.Filtro{
		Status:     strings.TrimSpace(q.Get("status")),
		Categoria:  strings.TrimSpace(q.Get("categoria")),
		Prioridade: strings.TrimSpace(q.Get("prioridade")),
		Page:       page,
		PerPage:    perPage,
	}

	pagina, err := h.Denuncias.List(r.Context(), atorFrom(r), filtro)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, pagina)
}

// GetDenuncia devolve a denúncia com o histórico.
func (h *Handler) GetDenuncia(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	detalhe, err := h.Denuncias.Get(r.Context(), atorFrom(r), id)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, detalhe)
}

func (h *Handler) AlterarStatusDenuncia(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	var input denuncia.StatusInput
	if err := decodeJSON(r, &input); err != nil {
		WriteAppError(w, r, err)
		return
	}
	d, err := h.Denuncias.AlterarStatus(r.Context(), atorFrom(r), id, input)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"message": "Status atualizado com sucesso", "denuncia": d})
}

func (h *Handler) EstatisticasDenuncias(w http.ResponseWriter, r *http.Request) {
	est, err := h.Denuncias.Estatisticas(r.Context(), atorFrom(r))
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, est)
}
