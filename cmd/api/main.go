package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/denuncias/internal/alerta"
	"github.com/gestaozabele/denuncias/internal/auth"
	"github.com/gestaozabele/denuncias/internal/categoria"
	"github.com/gestaozabele/denuncias/internal/config"
	"github.com/gestaozabele/denuncias/internal/db"
	"github.com/gestaozabele/denuncias/internal/denuncia"
	"github.com/gestaozabele/denuncias/internal/empresa"
	internalhttp "github.com/gestaozabele/denuncias/internal/http"
	"github.com/gestaozabele/denuncias/internal/relatorio"
	"github.com/gestaozabele/denuncias/internal/service"
	"github.com/gestaozabele/denuncias/internal/storage"
	"github.com/gestaozabele/denuncias/internal/usuario"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api encerrada com erro")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.AppEnv,
			Release:          "denuncias@" + relatorio.VersaoSistema,
			AttachStacktrace: true,
		}); err != nil {
			log.Error().Err(err).Msg("sentry: falha ao inicializar")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info().Msg("schema aplicado")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis parse: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	uploader, err := storage.New(cfg.Storage)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	var notifier alerta.Notifier = alerta.Noop{}
	if webhook := alerta.NewWebhookNotifier(cfg.AlertaWebhook); webhook != nil {
		notifier = webhook
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL)
	sessions := auth.NewSessionStore(redisClient, cfg.JWTRefreshTTL)

	usuarioRepo := usuario.NewRepository(pool)

	empresaService := empresa.NewService(empresa.NewRepository(pool), uploader)
	usuarioService := usuario.NewService(usuarioRepo, empresaService, sessions)
	categoriaService := categoria.NewService(categoria.NewRepository(pool), empresaService)
	denunciaService := denuncia.NewService(denuncia.NewRepository(pool), empresaService, notifier)
	relatorioService := relatorio.NewService(relatorio.NewRepository(pool), empresaService, usuarioService, cfg.AppEnv)
	authService := service.NewAuthService(usuarioRepo, sessions, jwtManager)

	handler := internalhttp.NewRouter(cfg, internalhttp.Deps{
		Auth:       authService,
		Empresas:   empresaService,
		Usuarios:   usuarioService,
		Categorias: categoriaService,
		Denuncias:  denunciaService,
		Relatorios: relatorioService,
		Checks: map[string]internalhttp.Pinger{
			"db":    pool.Ping,
			"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("ambiente", cfg.AppEnv).Msgf("API ouvindo em :%d", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("encerrando...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
