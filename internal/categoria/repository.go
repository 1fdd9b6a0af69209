package categoria

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gestaozabele/denuncias/internal/db"
)

const (
	categoriaColumns    = `id, empresa_id, nome, descricao, ativa, ordem, created_at`
	subcategoriaColumns = `id, categoria_id, nome, descricao, ativa, ordem, created_at`
)

// Repository provê acesso às tabelas de taxonomia.
type Repository struct {
	db db.DBTX
}

// NewRepository cria instância do repositório.
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// ListCategorias lista categorias por ordem de exibição.
func (r *Repository) ListCategorias(ctx context.Context, filtro Filtro) ([]Categoria, error) {
	var (
		clauses []string
		args    []any
		idx     = 1
	)

	if filtro.SomenteAtivas {
		clauses = append(clauses, "ativa")
	}
	if !filtro.Todas {
		if filtro.EmpresaID != nil {
			clauses = append(clauses, fmt.Sprintf("(empresa_id IS NULL OR empresa_id = $%d)", idx))
			args = append(args, *filtro.EmpresaID)
			idx++
		} else {
			clauses = append(clauses, "empresa_id IS NULL")
		}
	}

	query := `SELECT ` + categoriaColumns + ` FROM categorias`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY ordem ASC, nome ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categorias := []Categoria{}
	for rows.Next() {
		c, err := scanCategoria(rows)
		if err != nil {
			return nil, err
		}
		categorias = append(categorias, *c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return categorias, nil
}

// ListSubcategorias lista subcategorias das categorias informadas.
func (r *Repository) ListSubcategorias(ctx context.Context, categoriaIDs []uuid.UUID, somenteAtivas bool) ([]Subcategoria, error) {
	if len(categoriaIDs) == 0 {
		return []Subcategoria{}, nil
	}
	query := `SELECT ` + subcategoriaColumns + ` FROM subcategorias WHERE categoria_id = ANY($1)`
	if somenteAtivas {
		query += " AND ativa"
	}
	query += " ORDER BY ordem ASC, nome ASC"

	rows, err := r.db.Query(ctx, query, categoriaIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []Subcategoria{}
	for rows.Next() {
		s, err := scanSubcategoria(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return subs, nil
}

// GetCategoria busca categoria pelo identificador.
func (r *Repository) GetCategoria(ctx context.Context, id uuid.UUID) (*Categoria, error) {
	query := `SELECT ` + categoriaColumns + ` FROM categorias WHERE id = $1`
	return scanCategoria(r.db.QueryRow(ctx, query, id))
}

// GetSubcategoria busca subcategoria pelo identificador.
func (r *Repository) GetSubcategoria(ctx context.Context, id uuid.UUID) (*Subcategoria, error) {
	query := `SELECT ` + subcategoriaColumns + ` FROM subcategorias WHERE id = $1`
	return scanSubcategoria(r.db.QueryRow(ctx, query, id))
}

// ExistsCategoriaNome verifica nome em uso, ignorando except.
func (r *Repository) ExistsCategoriaNome(ctx context.Context, nome string, except *uuid.UUID) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM categorias WHERE lower(nome) = lower($1) AND ($2::uuid IS NULL OR id <> $2))`
	var exists bool
	err := r.db.QueryRow(ctx, query, nome, except).Scan(&exists)
	return exists, err
}

// ExistsSubcategoriaNome verifica nome em uso dentro da categoria.
func (r *Repository) ExistsSubcategoriaNome(ctx context.Context, categoriaID uuid.UUID, nome string, except *uuid.UUID) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM subcategorias WHERE categoria_id = $1 AND lower(nome) = lower($2) AND ($3::uuid IS NULL OR id <> $3))`
	var exists bool
	err := r.db.QueryRow(ctx, query, categoriaID, nome, except).Scan(&exists)
	return exists, err
}

// CreateCategoria insere com ordem = max(ordem)+1 entre todas as categorias.
func (r *Repository) CreateCategoria(ctx context.Context, input CreateCategoriaInput, ativa bool) (*Categoria, error) {
	query := `
        INSERT INTO categorias (empresa_id, nome, descricao, ativa, ordem)
        SELECT $1, $2, $3, $4, COALESCE(MAX(ordem), 0) + 1 FROM categorias
        RETURNING ` + categoriaColumns

	c, err := scanCategoria(r.db.QueryRow(ctx, query, input.EmpresaID, input.Nome, input.Descricao, ativa))
	if db.IsUniqueViolation(err, "categorias_nome_key") {
		return nil, errNomeCategoria
	}
	return c, err
}

// CreateSubcategoria insere com ordem = max(ordem)+1 entre as irmãs.
func (r *Repository) CreateSubcategoria(ctx context.Context, categoriaID uuid.UUID, input CreateSubcategoriaInput, ativa bool) (*Subcategoria, error) {
	query := `
        INSERT INTO subcategorias (categoria_id, nome, descricao, ativa, ordem)
        SELECT $1, $2, $3, $4, COALESCE(MAX(ordem), 0) + 1 FROM subcategorias WHERE categoria_id = $1
        RETURNING ` + subcategoriaColumns

	s, err := scanSubcategoria(r.db.QueryRow(ctx, query, categoriaID, input.Nome, input.Descricao, ativa))
	if db.IsUniqueViolation(err, "subcategorias_nome_key") {
		return nil, errNomeSubcategoria
	}
	return s, err
}

// UpdateCategoria aplica substituição parcial.
func (r *Repository) UpdateCategoria(ctx context.Context, id uuid.UUID, input UpdateInput) (*Categoria, error) {
	setClause, args, idx := buildUpdate(input)
	if setClause == "" {
		return r.GetCategoria(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE categorias SET %s WHERE id = $%d RETURNING `+categoriaColumns, setClause, idx)

	c, err := scanCategoria(r.db.QueryRow(ctx, query, args...))
	if db.IsUniqueViolation(err, "categorias_nome_key") {
		return nil, errNomeCategoria
	}
	return c, err
}

// UpdateSubcategoria aplica substituição parcial.
func (r *Repository) UpdateSubcategoria(ctx context.Context, id uuid.UUID, input UpdateInput) (*Subcategoria, error) {
	setClause, args, idx := buildUpdate(input)
	if setClause == "" {
		return r.GetSubcategoria(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE subcategorias SET %s WHERE id = $%d RETURNING `+subcategoriaColumns, setClause, idx)

	s, err := scanSubcategoria(r.db.QueryRow(ctx, query, args...))
	if db.IsUniqueViolation(err, "subcategorias_nome_key") {
		return nil, errNomeSubcategoria
	}
	return s, err
}

func buildUpdate(input UpdateInput) (string, []any, int) {
	setParts := []string{}
	args := []any{}
	idx := 1

	if input.Nome != nil {
		setParts = append(setParts, fmt.Sprintf("nome = $%d", idx))
		args = append(args, *input.Nome)
		idx++
	}
	if input.Descricao != nil {
		setParts = append(setParts, fmt.Sprintf("descricao = $%d", idx))
		args = append(args, *input.Descricao)
		idx++
	}
	if input.Ativa != nil {
		setParts = append(setParts, fmt.Sprintf("ativa = $%d", idx))
		args = append(args, *input.Ativa)
		idx++
	}
	if input.Ordem != nil {
		setParts = append(setParts, fmt.Sprintf("ordem = $%d", idx))
		args = append(args, *input.Ordem)
		idx++
	}
	return strings.Join(setParts, ", "), args, idx
}

func scanCategoria(row pgx.Row) (*Categoria, error) {
	var c Categoria
	if err := row.Scan(&c.ID, &c.EmpresaID, &c.Nome, &c.Descricao, &c.Ativa, &c.Ordem, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	c.Subcategorias = []Subcategoria{}
	return &c, nil
}

func scanSubcategoria(row pgx.Row) (*Subcategoria, error) {
	var s Subcategoria
	if err := row.Scan(&s.ID, &s.CategoriaID, &s.Nome, &s.Descricao, &s.Ativa, &s.Ordem, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubNotFound
		}
		return nil, err
	}
	return &s, nil
}
