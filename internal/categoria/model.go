package categoria

import (
	"time"

	"github.com/google/uuid"

	"github.com/gestaozabele/denuncias/internal/apperr"
)

var (
	// ErrNotFound indica categoria inexistente.
	ErrNotFound = apperr.NotFound("Categoria não encontrada")
	// ErrSubNotFound indica subcategoria inexistente.
	ErrSubNotFound = apperr.NotFound("Subcategoria não encontrada")

	errNomeCategoria    = apperr.Conflict("Já existe uma categoria com este nome")
	errNomeSubcategoria = apperr.Conflict("Já existe uma subcategoria com este nome nesta categoria")
)

// Categoria agrupa denúncias; sem empresa é global.
type Categoria struct {
	ID            uuid.UUID      `json:"id"`
	EmpresaID     *uuid.UUID     `json:"empresa_id"`
	Nome          string         `json:"nome"`
	Descricao     string         `json:"descricao"`
	Ativa         bool           `json:"ativa"`
	Ordem         int            `json:"ordem"`
	CreatedAt     time.Time      `json:"data_criacao"`
	Subcategorias []Subcategoria `json:"subcategorias"`
}

// Subcategoria pertence a exatamente uma categoria.
type Subcategoria struct {
	ID          uuid.UUID `json:"id"`
	CategoriaID uuid.UUID `json:"categoria_id"`
	Nome        string    `json:"nome"`
	Descricao   string    `json:"descricao"`
	Ativa       bool      `json:"ativa"`
	Ordem       int       `json:"ordem"`
	CreatedAt   time.Time `json:"data_criacao"`
}

// CreateCategoriaInput chega do handler.
type CreateCategoriaInput struct {
	Nome      string     `json:"nome"`
	Descricao string     `json:"descricao"`
	Ativa     *bool      `json:"ativa"`
	EmpresaID *uuid.UUID `json:"empresa_id"`
}

// CreateSubcategoriaInput chega do handler.
type CreateSubcategoriaInput struct {
	CategoriaID *uuid.UUID `json:"categoria_id"`
	Nome        string     `json:"nome"`
	Descricao   string     `json:"descricao"`
	Ativa       *bool      `json:"ativa"`
}

// UpdateInput serve para categorias e subcategorias; nil mantém o valor.
type UpdateInput struct {
	Nome      *string `json:"nome"`
	Descricao *string `json:"descricao"`
	Ativa     *bool   `json:"ativa"`
	Ordem     *int    `json:"ordem"`
}

// Filtro restringe a listagem de categorias.
type Filtro struct {
	SomenteAtivas bool
	// Todas ignora EmpresaID e devolve categorias de todos os tenants.
	Todas bool
	// EmpresaID inclui as categorias desse tenant além das globais.
	EmpresaID *uuid.UUID
}
