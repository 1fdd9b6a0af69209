package http

import (
	"net/http"

	"github.com/gestaozabele/denuncias/internal/apperr"
	"github.com/gestaozabele/denuncias/internal/empresa"
)

// ListEmpresas lista as empresas visíveis ao ator.
func (h *Handler) ListEmpresas(w http.ResponseWriter, r *http.Request) {
	items, err := h.Empresas.List(r.Context(), atorFrom(r))
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"empresas": items})
}

// GetEmpresa detalha uma empresa.
func (h *Handler) GetEmpresa(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	e, err := h.Empresas.Get(r.Context(), atorFrom(r), id)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"empresa": e})
}

// CreateEmpresa cadastra uma empresa.
func (h *Handler) CreateEmpresa(w http.ResponseWriter, r *http.Request) {
	var input empresa.CreateInput
	if err := decodeJSON(r, &input); err != nil {
		WriteAppError(w, r, err)
		return
	}
	e, err := h.Empresas.Create(r.Context(), atorFrom(r), input)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"message": "Empresa criada com sucesso", "empresa": e})
}

// UpdateEmpresa altera parcialmente uma empresa.
func (h *Handler) UpdateEmpresa(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	var input empresa.UpdateInput
	if err := decodeJSON(r, &input); err != nil {
		WriteAppError(w, r, err)
		return
	}
	e, err := h.Empresas.Update(r.Context(), atorFrom(r), id, input)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"message": "Empresa atualizada com sucesso", "empresa": e})
}

// DeleteEmpresa desativa a empresa.
func (h *Handler) DeleteEmpresa(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	e, err := h.Empresas.Deactivate(r.Context(), atorFrom(r), id)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"message": "Empresa desativada com sucesso", "empresa": e})
}

// GetPersonalizacao devolve logo e cores da empresa.
func (h *Handler) GetPersonalizacao(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	p, err := h.Empresas.Personalizacao(r.Context(), atorFrom(r), id)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

// UploadLogo recebe o multipart com o campo arquivo.
func (h *Handler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		WriteAppError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, empresa.MaxLogoBytes+(1<<20))
	if err := r.ParseMultipartForm(empresa.MaxLogoBytes + (1 << 20)); err != nil {
		WriteAppError(w, r, apperr.Validation("arquivo", "form inválido"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("arquivo")
	if err != nil {
		WriteAppError(w, r, apperr.Validation("arquivo", "Nenhum arquivo enviado"))
		return
	}
	defer file.Close()

	e, err := h.Empresas.UploadLogo(r.Context(), atorFrom(r), id, empresa.LogoUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"message": "Logo atualizado com sucesso", "logo_url": e.LogoURL})
}
