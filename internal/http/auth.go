package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gestaozabele/denuncias/internal/apperr"
	"github.com/gestaozabele/denuncias/internal/service"
)

const refreshCookieName = "refresh_token"

type refreshPayload struct {
	RefreshToken string `json:"refresh_token"`
}

// Login autentica por e-mail e senha.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
		Senha string `json:"senha"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		WriteAppError(w, r, err)
		return
	}

	result, err := h.Auth.Login(r.Context(), payload.Email, payload.Senha)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}

	h.writeLoginSuccess(w, result)
}

// Refresh rotaciona o par de tokens. Aceita o refresh no corpo ou no cookie.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := refreshFromRequest(r)
	if token == "" {
		WriteError(w, http.StatusUnauthorized, string(apperr.KindUnauthenticated), "refresh ausente", nil)
		return
	}

	result, err := h.Auth.Refresh(r.Context(), token)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindUnauthenticated {
			h.clearRefreshCookie(w)
		}
		WriteAppError(w, r, err)
		return
	}

	h.writeLoginSuccess(w, result)
}

// Logout revoga o refresh token atual.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := refreshFromRequest(r); token != "" {
		if err := h.Auth.Logout(r.Context(), token); err != nil {
			WriteAppError(w, r, err)
			return
		}
	}

	h.clearRefreshCookie(w)
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Logout realizado com sucesso"})
}

// Me retorna o usuário autenticado.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.Auth.Me(r.Context(), atorFrom(r))
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"usuario": u})
}

// Sessao informa se há identidade válida; nunca responde 401.
func (h *Handler) Sessao(w http.ResponseWriter, r *http.Request) {
	sessao, err := h.Auth.Sessao(r.Context(), atorFrom(r))
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, sessao)
}

func (h *Handler) writeLoginSuccess(w http.ResponseWriter, result *service.LoginResult) {
	h.setRefreshCookie(w, result.RefreshToken, result.RefreshExpiry)
	WriteJSON(w, http.StatusOK, result)
}

func refreshFromRequest(r *http.Request) string {
	if r.Body != nil && r.ContentLength != 0 {
		var payload refreshPayload
		if err := decodeJSON(r, &payload); err == nil {
			if token := strings.TrimSpace(payload.RefreshToken); token != "" {
				return token
			}
		}
	}
	if c, err := r.Cookie(refreshCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return ""
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, h.refreshCookie(token, expires, 0))
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, h.refreshCookie("", time.Time{}, -1))
}

func (h *Handler) refreshCookie(value string, expires time.Time, maxAge int) *http.Cookie {
	sameSite := http.SameSiteNoneMode
	if h.devCookies {
		sameSite = http.SameSiteLaxMode
	}
	return &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     "/auth",
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   !h.devCookies,
		SameSite: sameSite,
	}
}
