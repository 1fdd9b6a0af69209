package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/denuncias/internal/acesso"
	"github.com/gestaozabele/denuncias/internal/apperr"
	"github.com/gestaozabele/denuncias/internal/auth"
	"github.com/gestaozabele/denuncias/internal/usuario"
)

var (
	// ErrInvalidCredentials indica falha na autenticação.
	ErrInvalidCredentials = apperr.Unauthenticated("credenciais inválidas")
	// ErrAccountDisabled indica conta desativada.
	ErrAccountDisabled = apperr.Unauthenticated("usuário inativo")
	// ErrRefreshInvalid indica refresh token inválido ou expirado.
	ErrRefreshInvalid = apperr.Unauthenticated("refresh token inválido")
	// ErrSessionInvalid indica token de acesso ausente, expirado ou de identidade inativa.
	ErrSessionInvalid = apperr.Unauthenticated("sessão inválida")
)

type authRepository interface {
	GetByEmail(ctx context.Context, email string) (*usuario.Usuario, error)
	GetByID(ctx context.Context, id uuid.UUID) (*usuario.Usuario, error)
	TouchLogin(ctx context.Context, id uuid.UUID) error
}

type sessionStore interface {
	Issue(ctx context.Context, usuarioID uuid.UUID) (string, time.Time, error)
	Resolve(ctx context.Context, raw string) (uuid.UUID, error)
	Revoke(ctx context.Context, raw string) error
}

type tokenManager interface {
	GenerateAccessToken(subject uuid.UUID, papel string, empresaID *uuid.UUID) (string, string, error)
	ParseAndValidate(token string) (*auth.Claims, error)
	AccessTTL() time.Duration
}

// AuthService concentra regras de autenticação e sessões.
type AuthService struct {
	repo     authRepository
	sessions sessionStore
	jwt      tokenManager
}

// NewAuthService cria novo serviço.
func NewAuthService(repo *usuario.Repository, sessions *auth.SessionStore, jwtMgr *auth.JWTManager) *AuthService {
	return &AuthService{repo: repo, sessions: sessions, jwt: jwtMgr}
}

// LoginResult representa o retorno de login e refresh.
type LoginResult struct {
	AccessToken   string           `json:"access_token"`
	RefreshToken  string           `json:"refresh_token"`
	TokenType     string           `json:"token_type"`
	ExpiresIn     int              `json:"expires_in"`
	RefreshExpiry time.Time        `json:"refresh_expires_at"`
	Usuario       *usuario.Usuario `json:"usuario"`
}

// Sessao informa se a requisição carrega uma identidade válida.
type Sessao struct {
	Autenticado bool             `json:"autenticado"`
	Usuario     *usuario.Usuario `json:"usuario,omitempty"`
}

// Login autentica por e-mail e senha.
func (s *AuthService) Login(ctx context.Context, email, senha string) (*LoginResult, error) {
	email = usuario.NormalizeEmail(email)
	if email == "" || senha == "" {
		return nil, apperr.Validation("email", "Email e senha são obrigatórios")
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, usuario.ErrNotFound) {
		return nil, err
	}

	hash := ""
	if u != nil {
		hash = u.SenhaHash
	}
	if !auth.VerifyOrDummy(senha, hash) {
		log.Warn().Msg("login: credenciais inválidas")
		return nil, ErrInvalidCredentials
	}
	if !u.Ativo {
		log.Warn().Str("usuario_id", u.ID.String()).Msg("login: usuário inativo")
		return nil, ErrAccountDisabled
	}

	if err := s.repo.TouchLogin(ctx, u.ID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u.UltimoLogin = &now

	result, err := s.emitir(ctx, u)
	if err != nil {
		return nil, err
	}
	log.Info().Str("usuario_id", u.ID.String()).Str("perfil", u.Perfil.String()).Msg("login realizado")
	return result, nil
}

// Refresh troca o refresh token por um novo par; o token usado é revogado.
func (s *AuthService) Refresh(ctx context.Context, rawToken string) (*LoginResult, error) {
	id, err := s.sessions.Resolve(ctx, rawToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRefresh) {
			return nil, ErrRefreshInvalid
		}
		return nil, apperr.Internal(err)
	}
	if err := s.sessions.Revoke(ctx, rawToken); err != nil {
		return nil, apperr.Internal(err)
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, usuario.ErrNotFound) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}
	if !u.Ativo {
		return nil, ErrAccountDisabled
	}
	return s.emitir(ctx, u)
}

// Logout revoga o refresh token informado. Token desconhecido não é erro.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	if err := s.sessions.Revoke(ctx, rawToken); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// Me devolve a identidade do ator.
func (s *AuthService) Me(ctx context.Context, ator *acesso.Ator) (*usuario.Usuario, error) {
	if ator == nil {
		return nil, apperr.Unauthenticated("usuário não autenticado")
	}
	u, err := s.repo.GetByID(ctx, ator.ID)
	if err != nil {
		if errors.Is(err, usuario.ErrNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	return u, nil
}

// Sessao nunca falha por falta de autenticação.
func (s *AuthService) Sessao(ctx context.Context, ator *acesso.Ator) (*Sessao, error) {
	if ator == nil {
		return &Sessao{}, nil
	}
	u, err := s.Me(ctx, ator)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindUnauthenticated {
			return &Sessao{}, nil
		}
		return nil, err
	}
	return &Sessao{Autenticado: true, Usuario: u}, nil
}

// ResolveAtor valida o token de acesso e relê a identidade, garantindo que
// usuários desativados percam acesso antes de o token expirar.
func (s *AuthService) ResolveAtor(ctx context.Context, accessToken string) (*acesso.Ator, error) {
	if accessToken == "" {
		return nil, ErrSessionInvalid
	}
	claims, err := s.jwt.ParseAndValidate(accessToken)
	if err != nil {
		return nil, ErrSessionInvalid
	}
	id, err := claims.SubjectID()
	if err != nil {
		return nil, ErrSessionInvalid
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, usuario.ErrNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	if !u.Ativo || !u.Perfil.Valido() {
		return nil, ErrSessionInvalid
	}
	return u.Ator(), nil
}

func (s *AuthService) emitir(ctx context.Context, u *usuario.Usuario) (*LoginResult, error) {
	token, _, err := s.jwt.GenerateAccessToken(u.ID, u.Perfil.String(), u.EmpresaID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	rawRefresh, expires, err := s.sessions.Issue(ctx, u.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &LoginResult{
		AccessToken:   token,
		RefreshToken:  rawRefresh,
		TokenType:     "Bearer",
		ExpiresIn:     int(s.jwt.AccessTTL().Seconds()),
		RefreshExpiry: expires,
		Usuario:       u,
	}, nil
}
