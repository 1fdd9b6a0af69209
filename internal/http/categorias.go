package http

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/gestaozabele/denuncias/internal/categoria"
)

// ListCategoriasPublicas serve o formulário de denúncia: só itens ativos,
// globais mais os da empresa informada (ou a do ator).
func (h *Handler) ListCategoriasPublicas(w http.ResponseWriter, r *http.Request) {
	empresaID, err := optionalUUIDQuery(r, "empresa_id")
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	if empresaID == nil {
		if ator := atorFrom(r); ator != nil && ator.EmpresaID != nil {
			id := *ator.EmpresaID
			empresaID = &id
		}
	}
	items, err := h.Categorias.ListPublic(r.Context(), empresaID)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"categorias": items})
}

func (h *Handler) ListCategoriasAdmin(w http.ResponseWriter, r *http.Request) {
	items, err := h.Categorias.ListAdmin(r.Context(), atorFrom(r))
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"categorias": items})
}

func (h *Handler) CreateCategoria(w http.ResponseWriter, r *http.Request) {
	var input categoria.CreateCategoriaInput
	if err := decodeJSON(r, &input); err != nil {
		WriteAppError(w, r, err)
		return
	}
	c, err := h.Categorias.CreateCategoria(r.Context(), atorFrom(r), input)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"message": "Categoria criada com sucesso", "categoria": c})
}

func (h *Handler) UpdateCategoria(w http.ResponseWriter, r *http.Request) {
	id, input, err := parseCategoriaUpdate(r)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	c, err := h.Categorias.UpdateCategoria(r.Context(), atorFrom(r), id, input)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"message": "Categoria atualizada com sucesso", "categoria": c})
}

func (h *Handler) CreateSubcategoria(w http.ResponseWriter, r *http.Request) {
	var input categoria.CreateSubcategoriaInput
	if err := decodeJSON(r, &input); err != nil {
		WriteAppError(w, r, err)
		return
	}
	s, err := h.Categorias.CreateSubcategoria(r.Context(), atorFrom(r), input)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"message": "Subcategoria criada com sucesso", "subcategoria": s})
}

func (h *Handler) UpdateSubcategoria(w http.ResponseWriter, r *http.Request) {
	id, input, err := parseCategoriaUpdate(r)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	s, err := h.Categorias.UpdateSubcategoria(r.Context(), atorFrom(r), id, input)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"message": "Subcategoria atualizada com sucesso", "subcategoria": s})
}

func parseCategoriaUpdate(r *http.Request) (uuid.UUID, categoria.UpdateInput, error) {
	var input categoria.UpdateInput
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		return uuid.Nil, input, err
	}
	if err := decodeJSON(r, &input); err != nil {
		return uuid.Nil, input, err
	}
	return id, input, nil
}

// ConfiguracoesSistema resume o cadastro para o super_admin.
func (h *Handler) ConfiguracoesSistema(w http.ResponseWriter, r *http.Request) {
	s, err := h.Relatorios.Sistema(r.Context(), atorFrom(r))
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, s)
}
