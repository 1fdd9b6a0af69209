package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/gestaozabele/denuncias/internal/acesso"
	"github.com/gestaozabele/denuncias/internal/categoria"
	"github.com/gestaozabele/denuncias/internal/config"
	"github.com/gestaozabele/denuncias/internal/denuncia"
	"github.com/gestaozabele/denuncias/internal/empresa"
	httpmiddleware "github.com/gestaozabele/denuncias/internal/http/middleware"
	"github.com/gestaozabele/denuncias/internal/relatorio"
	"github.com/gestaozabele/denuncias/internal/service"
	"github.com/gestaozabele/denuncias/internal/usuario"
)

type authService interface {
	httpmiddleware.AtorResolver
	Login(ctx context.Context, email, senha string) (*service.LoginResult, error)
	Refresh(ctx context.Context, rawToken string) (*service.LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	Me(ctx context.Context, ator *acesso.Ator) (*usuario.Usuario, error)
	Sessao(ctx context.Context, ator *acesso.Ator) (*service.Sessao, error)
}

type empresaService interface {
	List(ctx context.Context, ator *acesso.Ator) ([]empresa.Empresa, error)
	Get(ctx context.Context, ator *acesso.Ator, id uuid.UUID) (*empresa.Empresa, error)
	Personalizacao(ctx context.Context, ator *acesso.Ator, id uuid.UUID) (*empresa.Personalizacao, error)
	Create(ctx context.Context, ator *acesso.Ator, input empresa.CreateInput) (*empresa.Empresa, error)
	Update(ctx context.Context, ator *acesso.Ator, id uuid.UUID, input empresa.UpdateInput) (*empresa.Empresa, error)
	Deactivate(ctx context.Context, ator *acesso.Ator, id uuid.UUID) (*empresa.Empresa, error)
	UploadLogo(ctx context.Context, ator *acesso.Ator, id uuid.UUID, upload empresa.LogoUpload) (*empresa.Empresa, error)
}

type usuarioService interface {
	List(ctx context.Context, ator *acesso.Ator, empresaID *uuid.UUID) ([]usuario.Usuario, error)
	Get(ctx context.Context, ator *acesso.Ator, id uuid.UUID) (*usuario.Usuario, error)
	Create(ctx context.Context, ator *acesso.Ator, input usuario.CreateInput) (*usuario.Usuario, error)
	Update(ctx context.Context, ator *acesso.Ator, id uuid.UUID, input usuario.UpdateInput) (*usuario.Usuario, error)
	Deactivate(ctx context.Context, ator *acesso.Ator, id uuid.UUID) (*usuario.Usuario, error)
}

type categoriaService interface {
	ListPublic(ctx context.Context, empresaID *uuid.UUID) ([]categoria.Categoria, error)
	ListAdmin(ctx context.Context, ator *acesso.Ator) ([]categoria.Categoria, error)
	CreateCategoria(ctx context.Context, ator *acesso.Ator, input categoria.CreateCategoriaInput) (*categoria.Categoria, error)
	UpdateCategoria(ctx context.Context, ator *acesso.Ator, id uuid.UUID, input categoria.UpdateInput) (*categoria.Categoria, error)
	CreateSubcategoria(ctx context.Context, ator *acesso.Ator, input categoria.CreateSubcategoriaInput) (*categoria.Subcategoria, error)
	UpdateSubcategoria(ctx context.Context, ator *acesso.Ator, id uuid.UUID, input categoria.UpdateInput) (*categoria.Subcategoria, error)
}

type denunciaService interface {
	Create(ctx context.Context, ator *acesso.Ator, input denuncia.CreateInput) (*denuncia.Denuncia, error)
	List(ctx context.Context, ator *acesso.Ator, filtro denuncia.Filtro) (*denuncia.Pagina, error)
	Get(ctx context.Context, ator *acesso.Ator, id uuid.UUID) (*denuncia.Detalhe, error)
	AlterarStatus(ctx context.Context, ator *acesso.Ator, id uuid.UUID, input denuncia.StatusInput) (*denuncia.Denuncia, error)
	Estatisticas(ctx context.Context, ator *acesso.Ator) (*denuncia.Estatisticas, error)
}

type relatorioService interface {
	Dashboard(ctx context.Context, ator *acesso.Ator) (*relatorio.Dashboard, error)
	Detalhado(ctx context.Context, ator *acesso.Ator, entrada relatorio.Entrada) (*relatorio.Detalhado, error)
	Exportar(ctx context.Context, ator *acesso.Ator, pedido relatorio.PedidoExportacao) (*relatorio.Exportacao, error)
	MetricasEmpresa(ctx context.Context, ator *acesso.Ator) (*relatorio.MetricasEmpresas, error)
	Sistema(ctx context.Context, ator *acesso.Ator) (*relatorio.Sistema, error)
}

// Pinger verifica uma dependência externa para o /ready.
type Pinger func(ctx context.Context) error

// Deps agrupa os serviços servidos pela API.
type Deps struct {
	Auth       authService
	Empresas   empresaService
	Usuarios   usuarioService
	Categorias categoriaService
	Denuncias  denunciaService
	Relatorios relatorioService
	// Checks é consultado pelo /ready; a chave nomeia a dependência.
	Checks map[string]Pinger
}

// Handler concentra os handlers HTTP.
type Handler struct {
	Deps
	entrada    *httpmiddleware.Limiter
	painel     *httpmiddleware.Limiter
	devCookies bool
}

// NewRouter devolve roteador configurado.
func NewRouter(cfg *config.Config, deps Deps) http.Handler {
	devCookies := false
	for _, origin := range cfg.CORS.AllowOrigins {
		if strings.Contains(origin, "localhost") {
			devCookies = true
			break
		}
	}

	h := &Handler{
		Deps:       deps,
		entrada:    httpmiddleware.NewLimiter("entrada", cfg.RateLimitIntake),
		painel:     httpmiddleware.NewLimiter("painel", cfg.RateLimitAuth),
		devCookies: devCookies,
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(httpmiddleware.ClientIPContext(httpmiddleware.NewIPResolver(cfg.TrustedProxies)))
	r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.CORS))
	r.Use(httpmiddleware.Session(deps.Auth))
	r.Use(httpmiddleware.Logging)

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Get("/categorias", h.ListCategoriasPublicas)

	// Canal anônimo: registro de denúncias e autenticação, limitados por IP.
	r.Group(func(entrada chi.Router) {
		entrada.Use(httpmiddleware.RateLimitByIP(h.entrada))

		entrada.Post("/auth/login", h.Login)
		entrada.Post("/auth/refresh", h.Refresh)
		entrada.Post("/auth/logout", h.Logout)
		entrada.Get("/auth/sessao", h.Sessao)

		entrada.Post("/denuncias", h.CreateDenuncia)
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.RequireAuth)
		private.Use(httpmiddleware.RateLimitByAtor(h.painel))

		private.Get("/auth/me", h.Me)

		private.Route("/empresas", func(e chi.Router) {
			e.Get("/", h.ListEmpresas)
			e.Post("/", h.CreateEmpresa)
			e.Get("/{id}", h.GetEmpresa)
			e.Put("/{id}", h.UpdateEmpresa)
			e.Delete("/{id}", h.DeleteEmpresa)
			e.Get("/{id}/personalizacao", h.GetPersonalizacao)
			e.Post("/{id}/logo", h.UploadLogo)
		})

		private.Route("/usuarios", func(u chi.Router) {
			u.Get("/", h.ListUsuarios)
			u.Post("/", h.CreateUsuario)
			u.Get("/{id}", h.GetUsuario)
			u.Put("/{id}", h.UpdateUsuario)
			u.Delete("/{id}", h.DeleteUsuario)
		})

		private.Route("/configuracoes", func(c chi.Router) {
			c.Get("/categorias", h.ListCategoriasAdmin)
			c.Post("/categorias", h.CreateCategoria)
			c.Put("/categorias/{id}", h.UpdateCategoria)
			c.Post("/subcategorias", h.CreateSubcategoria)
			c.Put("/subcategorias/{id}", h.UpdateSubcategoria)
			c.Get("/sistema", h.ConfiguracoesSistema)
		})

		private.Get("/denuncias", h.ListDenuncias)
		private.Get("/denuncias/estatisticas", h.EstatisticasDenuncias)
		private.Get("/denuncias/{id}", h.GetDenuncia)
		private.Put("/denuncias/{id}/status", h.AlterarStatusDenuncia)

		private.Route("/relatorios", func(rel chi.Router) {
			rel.Get("/dashboard", h.Dashboard)
			rel.Get("/detalhado", h.RelatorioDetalhado)
			rel.Post("/exportar", h.Exportar)
			rel.Get("/metricas-empresa", h.MetricasEmpresa)
		})
	})

	return r
}

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready valida conexões com Postgres e Redis.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failures := map[string]any{}
	for name, check := range h.Checks {
		if err := check(ctx); err != nil {
			failures[name] = err.Error()
		}
	}

	if len(failures) > 0 {
		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			hub.CaptureMessage("dependências indisponíveis")
		}
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "dependências indisponíveis", failures)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}
