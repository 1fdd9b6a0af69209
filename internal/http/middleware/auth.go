package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/denuncias/internal/acesso"
	"github.com/gestaozabele/denuncias/internal/apperr"
)

type contextKey string

const (
	ContextKeyAtor       contextKey = "ator"
	ContextKeyTokenState contextKey = "token_state"
)

type tokenState int

const (
	tokenAusente tokenState = iota
	tokenValido
	tokenInvalido
)

// AtorResolver valida o token de acesso e devolve a identidade ativa.
type AtorResolver interface {
	ResolveAtor(ctx context.Context, accessToken string) (*acesso.Ator, error)
}

// Session resolve o ator uma única vez por requisição. Sem token a requisição
// segue anônima; token inválido também segue, mas RequireAuth a recusa.
func Session(resolver AtorResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ContextKeyTokenState, tokenAusente)))
				return
			}

			ator, err := resolver.ResolveAtor(r.Context(), token)
			if err != nil {
				if apperr.KindOf(err) != apperr.KindUnauthenticated {
					log.Error().Err(err).Msg("falha ao resolver sessão")
					writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno")
					return
				}
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ContextKeyTokenState, tokenInvalido)))
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyTokenState, tokenValido)
			ctx = context.WithValue(ctx, ContextKeyAtor, ator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth exige ator resolvido pelo Session.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetAtor(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}
		state, _ := r.Context().Value(ContextKeyTokenState).(tokenState)
		if state == tokenInvalido {
			writeError(w, http.StatusUnauthorized, "AUTH", "token inválido")
			return
		}
		writeError(w, http.StatusUnauthorized, "AUTH", "token ausente")
	})
}

// GetAtor recupera o ator da requisição; nil quando anônima.
func GetAtor(ctx context.Context) *acesso.Ator {
	val, _ := ctx.Value(ContextKeyAtor).(*acesso.Ator)
	return val
}

// WithAtor injeta o ator no contexto.
func WithAtor(ctx context.Context, ator *acesso.Ator) context.Context {
	return context.WithValue(ctx, ContextKeyAtor, ator)
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": nil,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
