package empresa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gestaozabele/denuncias/internal/apperr"
	"github.com/gestaozabele/denuncias/internal/db"
)

const empresaColumns = `id, nome, cnpj, status, logo_url, cores_personalizadas, created_at, updated_at`

// Repository provê acesso ao armazenamento de empresas.
type Repository struct {
	db db.DBTX
}

// NewRepository cria um novo repositório de empresas.
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// GetByID busca empresa pelo identificador.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Empresa, error) {
	query := `SELECT ` + empresaColumns + ` FROM empresas WHERE id = $1`
	return scanEmpresa(r.db.QueryRow(ctx, query, id))
}

// ExistsCNPJ verifica CNPJ já cadastrado, ignorando a própria empresa.
func (r *Repository) ExistsCNPJ(ctx context.Context, cnpj string, except *uuid.UUID) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM empresas WHERE cnpj = $1 AND ($2::uuid IS NULL OR id <> $2))`
	var exists bool
	if err := r.db.QueryRow(ctx, query, cnpj, except).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// List devolve empresas ordenadas por nome; ids restringe o resultado.
func (r *Repository) List(ctx context.Context, ids []uuid.UUID) ([]Empresa, error) {
	query := `SELECT ` + empresaColumns + ` FROM empresas`
	var args []any
	if ids != nil {
		query += ` WHERE id = ANY($1)`
		args = append(args, ids)
	}
	query += ` ORDER BY nome ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	empresas := []Empresa{}
	for rows.Next() {
		e, err := scanEmpresa(rows)
		if err != nil {
			return nil, err
		}
		empresas = append(empresas, *e)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return empresas, nil
}

// Create insere uma nova empresa e devolve os dados persistidos.
func (r *Repository) Create(ctx context.Context, input CreateInput) (*Empresa, error) {
	query := `
        INSERT INTO empresas (nome, cnpj, status, cores_personalizadas)
        VALUES ($1, $2, $3, $4)
        RETURNING ` + empresaColumns

	cores, err := jsonMarshalMap(input.CoresPersonalizadas)
	if err != nil {
		return nil, err
	}

	e, err := scanEmpresa(r.db.QueryRow(ctx, query,
		strings.TrimSpace(input.Nome),
		NormalizeCNPJ(input.CNPJ),
		NormalizeStatus(input.Status),
		cores,
	))
	if db.IsUniqueViolation(err, "empresas_cnpj_key") {
		return nil, apperr.Conflict("CNPJ já cadastrado")
	}
	return e, err
}

// Update aplica os campos presentes em input.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*Empresa, error) {
	setParts := []string{}
	args := []any{}
	idx := 1

	if input.Nome != nil {
		setParts = append(setParts, fmt.Sprintf("nome = $%d", idx))
		args = append(args, strings.TrimSpace(*input.Nome))
		idx++
	}
	if input.CNPJ != nil {
		setParts = append(setParts, fmt.Sprintf("cnpj = $%d", idx))
		args = append(args, NormalizeCNPJ(*input.CNPJ))
		idx++
	}
	if input.Status != nil {
		setParts = append(setParts, fmt.Sprintf("status = $%d", idx))
		args = append(args, NormalizeStatus(*input.Status))
		idx++
	}
	if input.LogoURL != nil {
		setParts = append(setParts, fmt.Sprintf("logo_url = $%d", idx))
		args = append(args, *input.LogoURL)
		idx++
	}
	if input.CoresPersonalizadas != nil {
		cores, err := jsonMarshalMap(input.CoresPersonalizadas)
		if err != nil {
			return nil, err
		}
		setParts = append(setParts, fmt.Sprintf("cores_personalizadas = $%d", idx))
		args = append(args, cores)
		idx++
	}

	if len(setParts) == 0 {
		return r.GetByID(ctx, id)
	}

	setParts = append(setParts, "updated_at = now()")
	args = append(args, id)
	query := fmt.Sprintf(`
        UPDATE empresas
        SET %s
        WHERE id = $%d
        RETURNING `+empresaColumns, strings.Join(setParts, ", "), idx)

	e, err := scanEmpresa(r.db.QueryRow(ctx, query, args...))
	if db.IsUniqueViolation(err, "empresas_cnpj_key") {
		return nil, apperr.Conflict("CNPJ já cadastrado")
	}
	return e, err
}

// Count totaliza empresas cadastradas e ativas.
func (r *Repository) Count(ctx context.Context) (Contagem, error) {
	const query = `SELECT count(*), count(*) FILTER (WHERE status = 'ativa') FROM empresas`
	var c Contagem
	err := r.db.QueryRow(ctx, query).Scan(&c.Total, &c.Ativas)
	return c, err
}

func scanEmpresa(row pgx.Row) (*Empresa, error) {
	var (
		e        Empresa
		coresRaw []byte
	)
	if err := row.Scan(&e.ID, &e.Nome, &e.CNPJ, &e.Status, &e.LogoURL, &coresRaw, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	cores, err := decodeJSONMap(coresRaw)
	if err != nil {
		return nil, err
	}
	e.CoresPersonalizadas = cores
	return &e, nil
}

func decodeJSONMap(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return map[string]any{}, nil
	}
	return result, nil
}

func jsonMarshalMap(m map[string]any) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}
