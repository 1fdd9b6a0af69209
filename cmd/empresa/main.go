package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/denuncias/internal/acesso"
	"github.com/gestaozabele/denuncias/internal/auth"
	"github.com/gestaozabele/denuncias/internal/db"
	"github.com/gestaozabele/denuncias/internal/empresa"
	"github.com/gestaozabele/denuncias/internal/storage"
	"github.com/gestaozabele/denuncias/internal/usuario"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	if cmd == "hash" {
		if err := runHash(args); err != nil {
			log.Fatal().Err(err).Msg("falha ao gerar hash")
		}
		return
	}

	_ = godotenv.Load()

	ctx := context.Background()

	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dsn == "" {
		log.Fatal().Msg("defina DB_DSN ou DATABASE_URL")
	}

	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("não foi possível conectar ao banco")
	}
	defer pool.Close()

	empresaRepo := empresa.NewRepository(pool)
	empresas := empresa.NewService(empresaRepo, storage.NoopUploader{})
	usuarios := usuario.NewService(usuario.NewRepository(pool), empresas, nil)

	switch cmd {
	case "migrate":
		if err := db.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("falha ao aplicar schema")
		}
		log.Info().Msg("schema aplicado")
	case "create":
		if err := runCreate(ctx, empresas, args); err != nil {
			log.Fatal().Err(err).Msg("falha ao criar empresa")
		}
	case "list":
		if err := runList(ctx, empresaRepo); err != nil {
			log.Fatal().Err(err).Msg("falha ao listar empresas")
		}
	case "superadmin":
		if err := runSuperAdmin(ctx, usuarios, args); err != nil {
			log.Fatal().Err(err).Msg("falha ao criar super_admin")
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "empresa CLI")
	fmt.Fprintln(os.Stderr, "uso:")
	fmt.Fprintln(os.Stderr, "  empresa migrate")
	fmt.Fprintln(os.Stderr, "  empresa create --nome \"TechCorp\" --cnpj 12.345.678/0001-90 [--cores '{\\\"primaria\\\":\\\"#123456\\\"}']")
	fmt.Fprintln(os.Stderr, "  empresa list")
	fmt.Fprintln(os.Stderr, "  empresa superadmin --email admin@exemplo.com.br --nome \"Administrador\" --senha ********")
	fmt.Fprintln(os.Stderr, "  empresa hash <senha>")
}

func runCreate(ctx context.Context, service *empresa.Service, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		nome  = fs.String("nome", "", "razão social ou nome fantasia")
		cnpj  = fs.String("cnpj", "", "CNPJ da empresa")
		cores = fs.String("cores", "", "JSON literal com cores personalizadas")
	)

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *nome == "" || *cnpj == "" {
		return errors.New("nome e cnpj são obrigatórios")
	}

	var coresPersonalizadas map[string]any
	if *cores != "" {
		if err := json.Unmarshal([]byte(*cores), &coresPersonalizadas); err != nil {
			return fmt.Errorf("parse cores: %w", err)
		}
	}

	created, err := service.Register(ctx, empresa.CreateInput{
		Nome:                *nome,
		CNPJ:                *cnpj,
		CoresPersonalizadas: coresPersonalizadas,
	})
	if err != nil {
		return err
	}

	output, _ := json.MarshalIndent(created, "", "  ")
	fmt.Println(string(output))
	return nil
}

func runList(ctx context.Context, repo *empresa.Repository) error {
	empresas, err := repo.List(ctx, nil)
	if err != nil {
		return err
	}

	if len(empresas) == 0 {
		fmt.Println("nenhuma empresa cadastrada")
		return nil
	}

	encoded, _ := json.MarshalIndent(empresas, "", "  ")
	fmt.Println(string(encoded))
	return nil
}

func runSuperAdmin(ctx context.Context, service *usuario.Service, args []string) error {
	fs := flag.NewFlagSet("superadmin", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		email = fs.String("email", "", "e-mail de acesso")
		nome  = fs.String("nome", "", "nome exibido")
		senha = fs.String("senha", "", "senha inicial (mínimo 8 caracteres)")
	)

	if err := fs.Parse(args); err != nil {
		return err
	}

	u, err := service.Register(ctx, usuario.CreateInput{
		Email:  *email,
		Nome:   *nome,
		Senha:  *senha,
		Perfil: string(acesso.SuperAdmin),
	})
	if err != nil {
		return err
	}

	log.Info().Str("usuario_id", u.ID.String()).Str("email", u.Email).Msg("super_admin criado")
	return nil
}

func runHash(args []string) error {
	if len(args) < 1 {
		return errors.New("uso: empresa hash <senha>")
	}
	hash, err := auth.Hash(args[0])
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
