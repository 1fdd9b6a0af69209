package http

import (
	"net/http"

	"github.com/gestaozabele/denuncias/internal/usuario"
)

// ListUsuarios lista identidades; super_admin pode filtrar por empresa_id.
func (h *Handler) ListUsuarios(w http.ResponseWriter, r *http.Request) {
	empresaID, err := optionalUUIDQuery(r, "empresa_id")
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	items, err := h.Usuarios.List(r.Context(), atorFrom(r), empresaID)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"usuarios": items})
}

func (h *Handler) GetUsuario(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	u, err := h.Usuarios.Get(r.Context(), atorFrom(r), id)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"usuario": u})
}

func (h *Handler) CreateUsuario(w http.ResponseWriter, r *http.Request) {
	var input usuario.CreateInput
	if err := decodeJSON(r, &input); err != nil {
		WriteAppError(w, r, err)
		return
	}
	u, err := h.Usuarios.Create(r.Context(), atorFrom(r), input)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"message": "Usuário criado com sucesso", "usuario": u})
}

func (h *Handler) UpdateUsuario(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	var input usuario.UpdateInput
	if err := decodeJSON(r, &input); err != nil {
		WriteAppError(w, r, err)
		return
	}
	u, err := h.Usuarios.Update(r.Context(), atorFrom(r), id, input)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"message": "Usuário atualizado com sucesso", "usuario": u})
}

// DeleteUsuario desativa a identidade; o registro é mantido.
func (h *Handler) DeleteUsuario(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	if _, err := h.Usuarios.Deactivate(r.Context(), atorFrom(r), id); err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"message": "Usuário desativado com sucesso"})
}
