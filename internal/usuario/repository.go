package usuario

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gestaozabele/denuncias/internal/acesso"
	"github.com/gestaozabele/denuncias/internal/apperr"
	"github.com/gestaozabele/denuncias/internal/db"
)

const usuarioColumns = `id, email, nome, senha_hash, perfil, empresa_id, ativo, ultimo_login, created_at, updated_at`

var errEmailDuplicado = apperr.Conflict("Email já cadastrado")

// Repository provê acesso à tabela de usuários.
type Repository struct {
	db db.DBTX
}

// NewRepository cria instância do repositório.
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// GetByID busca usuário pelo identificador.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Usuario, error) {
	query := `SELECT ` + usuarioColumns + ` FROM usuarios WHERE id = $1`
	return scanUsuario(r.db.QueryRow(ctx, query, id))
}

// GetByEmail busca usuário por e-mail sem diferenciar caixa.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Usuario, error) {
	query := `SELECT ` + usuarioColumns + ` FROM usuarios WHERE lower(email) = lower($1)`
	return scanUsuario(r.db.QueryRow(ctx, query, strings.TrimSpace(email)))
}

// ExistsEmail verifica e-mail em uso, ignorando a própria identidade.
func (r *Repository) ExistsEmail(ctx context.Context, email string, except *uuid.UUID) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM usuarios WHERE lower(email) = lower($1) AND ($2::uuid IS NULL OR id <> $2))`
	var exists bool
	if err := r.db.QueryRow(ctx, query, strings.TrimSpace(email), except).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// List lista usuários ordenados por nome.
func (r *Repository) List(ctx context.Context, filtro Filtro) ([]Usuario, error) {
	query := `SELECT ` + usuarioColumns + ` FROM usuarios`
	var args []any
	if filtro.EmpresaID != nil {
		query += ` WHERE empresa_id = $1`
		args = append(args, *filtro.EmpresaID)
	}
	query += ` ORDER BY nome ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	usuarios := []Usuario{}
	for rows.Next() {
		u, err := scanUsuario(rows)
		if err != nil {
			return nil, err
		}
		usuarios = append(usuarios, *u)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return usuarios, nil
}

// Create insere a identidade; e-mail duplicado vira Conflict.
func (r *Repository) Create(ctx context.Context, p createParams) (*Usuario, error) {
	query := `
        INSERT INTO usuarios (email, nome, senha_hash, perfil, empresa_id, ativo)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING ` + usuarioColumns

	u, err := scanUsuario(r.db.QueryRow(ctx, query, p.Email, p.Nome, p.SenhaHash, string(p.Perfil), p.EmpresaID, p.Ativo))
	if db.IsUniqueViolation(err, "usuarios_email_key") {
		return nil, errEmailDuplicado
	}
	return u, err
}

// Update aplica os campos presentes.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, p updateParams) (*Usuario, error) {
	setParts := []string{}
	args := []any{}
	idx := 1

	add := func(column string, value any) {
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, idx))
		args = append(args, value)
		idx++
	}

	if p.Email != nil {
		add("email", *p.Email)
	}
	if p.Nome != nil {
		add("nome", *p.Nome)
	}
	if p.SenhaHash != nil {
		add("senha_hash", *p.SenhaHash)
	}
	if p.Perfil != nil {
		add("perfil", string(*p.Perfil))
	}
	if p.EmpresaID != nil {
		add("empresa_id", *p.EmpresaID)
	} else if p.ClearEmpresa {
		setParts = append(setParts, "empresa_id = NULL")
	}
	if p.Ativo != nil {
		add("ativo", *p.Ativo)
	}

	if len(setParts) == 0 {
		return r.GetByID(ctx, id)
	}

	setParts = append(setParts, "updated_at = now()")
	args = append(args, id)
	query := fmt.Sprintf(`
        UPDATE usuarios
        SET %s
        WHERE id = $%d
        RETURNING `+usuarioColumns, strings.Join(setParts, ", "), idx)

	u, err := scanUsuario(r.db.QueryRow(ctx, query, args...))
	if db.IsUniqueViolation(err, "usuarios_email_key") {
		return nil, errEmailDuplicado
	}
	return u, err
}

// TouchLogin registra o instante do último login.
func (r *Repository) TouchLogin(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE usuarios SET ultimo_login = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Count totaliza identidades cadastradas e ativas.
func (r *Repository) Count(ctx context.Context) (Contagem, error) {
	const query = `SELECT count(*), count(*) FILTER (WHERE ativo) FROM usuarios`
	var c Contagem
	err := r.db.QueryRow(ctx, query).Scan(&c.Total, &c.Ativos)
	return c, err
}

func scanUsuario(row pgx.Row) (*Usuario, error) {
	var (
		u      Usuario
		perfil string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Nome, &u.SenhaHash, &perfil, &u.EmpresaID, &u.Ativo, &u.UltimoLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Perfil = acesso.Papel(perfil)
	return &u, nil
}
