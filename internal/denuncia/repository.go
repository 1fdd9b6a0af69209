package denuncia

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gestaozabele/denuncias/internal/acesso"
	"github.com/gestaozabele/denuncias/internal/db"
)

const (
	// Colunas é a projeção completa de denuncias, na ordem de ScanDenuncia.
	Colunas = `id, protocolo, titulo, descricao, categoria, subcategoria, status, prioridade, anonima, usuario_id, empresa_id, responsavel_id, created_at, updated_at, data_resolucao, origem, ip_origem`

	historicoColumns = `id, denuncia_id, usuario_id, acao, descricao, status_anterior, status_novo, created_at`
)

// Store reúne as operações usadas dentro e fora de transação.
type Store interface {
	ExistsProtocolo(ctx context.Context, protocolo string) (bool, error)
	Insert(ctx context.Context, d *Denuncia) (*Denuncia, error)
	InsertHistorico(ctx context.Context, h *Historico) (*Historico, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Denuncia, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Denuncia, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, responsavelID uuid.UUID, resolucao *time.Time) (*Denuncia, error)
	List(ctx context.Context, escopo acesso.Escopo, filtro Filtro) ([]Denuncia, int, error)
	ListHistorico(ctx context.Context, denunciaID uuid.UUID) ([]Historico, error)
	Estatisticas(ctx context.Context, escopo acesso.Escopo) (*Estatisticas, error)
}

// Conn é satisfeito por *pgxpool.Pool.
type Conn interface {
	db.DBTX
	db.TxBeginner
}

// Repository provê acesso às tabelas de denúncias e histórico.
type Repository struct {
	db   db.DBTX
	pool db.TxBeginner
}

// NewRepository cria instância do repositório.
func NewRepository(pool Conn) *Repository {
	return &Repository{db: pool, pool: pool}
}

// InTx executa fn com um repositório ligado a uma transação única.
func (r *Repository) InTx(ctx context.Context, fn func(store Store) error) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		return fn(&Repository{db: tx})
	})
}

// ExistsProtocolo verifica se o protocolo já foi emitido.
func (r *Repository) ExistsProtocolo(ctx context.Context, protocolo string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM denuncias WHERE protocolo = $1)`
	var exists bool
	err := r.db.QueryRow(ctx, query, protocolo).Scan(&exists)
	return exists, err
}

// Insert grava a denúncia; status inicia em recebida pelo default da tabela.
func (r *Repository) Insert(ctx context.Context, d *Denuncia) (*Denuncia, error) {
	query := `
        INSERT INTO denuncias (protocolo, titulo, descricao, categoria, subcategoria, prioridade, anonima, usuario_id, empresa_id, origem, ip_origem)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING ` + Colunas

	row := r.db.QueryRow(ctx, query,
		d.Protocolo,
		d.Titulo,
		d.Descricao,
		d.Categoria,
		d.Subcategoria,
		d.Prioridade,
		d.Anonima,
		d.UsuarioID,
		d.EmpresaID,
		d.Origem,
		d.IPOrigem,
	)
	created, err := ScanDenuncia(row)
	if db.IsUniqueViolation(err, "denuncias_protocolo_key") {
		return nil, errProtocoloDuplicado
	}
	return created, err
}

// InsertHistorico acrescenta uma entrada à trilha de auditoria.
func (r *Repository) InsertHistorico(ctx context.Context, h *Historico) (*Historico, error) {
	query := `
        INSERT INTO historico_denuncias (denuncia_id, usuario_id, acao, descricao, status_anterior, status_novo)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING ` + historicoColumns

	return scanHistorico(r.db.QueryRow(ctx, query, h.DenunciaID, h.UsuarioID, h.Acao, h.Descricao, h.StatusAnterior, h.StatusNovo))
}

// GetByID busca a denúncia pelo identificador.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Denuncia, error) {
	query := `SELECT ` + Colunas + ` FROM denuncias WHERE id = $1`
	return ScanDenuncia(r.db.QueryRow(ctx, query, id))
}

// GetForUpdate busca a denúncia travando a linha até o fim da transação.
func (r *Repository) GetForUpdate(ctx context.Context, id uuid.UUID) (*Denuncia, error) {
	query := `SELECT ` + Colunas + ` FROM denuncias WHERE id = $1 FOR UPDATE`
	return ScanDenuncia(r.db.QueryRow(ctx, query, id))
}

// UpdateStatus grava o novo status, o responsável e a data de resolução.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, responsavelID uuid.UUID, resolucao *time.Time) (*Denuncia, error) {
	query := `
        UPDATE denuncias
        SET status = $1, responsavel_id = $2, data_resolucao = $3, updated_at = now()
        WHERE id = $4
        RETURNING ` + Colunas

	return ScanDenuncia(r.db.QueryRow(ctx, query, status, responsavelID, resolucao, id))
}

// List aplica escopo, filtros e paginação; devolve a página e o total.
func (r *Repository) List(ctx context.Context, escopo acesso.Escopo, filtro Filtro) ([]Denuncia, int, error) {
	where := NovoWhere(escopo, "")
	if filtro.Status != "" {
		where.Add("status = $%d", filtro.Status)
	}
	if filtro.Categoria != "" {
		where.Add("categoria = $%d", filtro.Categoria)
	}
	if filtro.Prioridade != "" {
		where.Add("prioridade = $%d", filtro.Prioridade)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM denuncias`+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	idx := where.Next()
	query := `SELECT ` + Colunas + ` FROM denuncias` + where.SQL() +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args := append(where.Args(), filtro.PerPage, (filtro.Page-1)*filtro.PerPage)

	denuncias, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return denuncias, total, nil
}

// query executa uma consulta que projeta Colunas.
func (r *Repository) query(ctx context.Context, query string, args ...any) ([]Denuncia, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	denuncias := []Denuncia{}
	for rows.Next() {
		d, err := ScanDenuncia(rows)
		if err != nil {
			return nil, err
		}
		denuncias = append(denuncias, *d)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return denuncias, nil
}

// ListHistorico lista a trilha do mais recente ao mais antigo.
func (r *Repository) ListHistorico(ctx context.Context, denunciaID uuid.UUID) ([]Historico, error) {
	query := `SELECT ` + historicoColumns + ` FROM historico_denuncias WHERE denuncia_id = $1 ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, denunciaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	historico := []Historico{}
	for rows.Next() {
		h, err := scanHistorico(rows)
		if err != nil {
			return nil, err
		}
		historico = append(historico, *h)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return historico, nil
}

// Estatisticas conta denúncias do escopo por status e por categoria.
func (r *Repository) Estatisticas(ctx context.Context, escopo acesso.Escopo) (*Estatisticas, error) {
	where := NovoWhere(escopo, "")
	stats := &Estatisticas{PorCategoria: []Total{}}

	rows, err := r.db.Query(ctx, `SELECT status, count(*) FROM denuncias`+where.SQL()+` GROUP BY status`, where.Args()...)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, err
		}
		stats.Total += n
		stats.PorStatus.Add(status, n)
	}
	rows.Close()
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	rows, err = r.db.Query(ctx, `SELECT categoria, count(*) FROM denuncias`+where.SQL()+` GROUP BY categoria ORDER BY count(*) DESC, categoria`, where.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var t Total
		if err := rows.Scan(&t.Categoria, &t.Total); err != nil {
			return nil, err
		}
		stats.PorCategoria = append(stats.PorCategoria, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return stats, nil
}

// ScanDenuncia lê uma linha projetada com Colunas.
func ScanDenuncia(row pgx.Row) (*Denuncia, error) {
	var d Denuncia
	if err := row.Scan(
		&d.ID, &d.Protocolo, &d.Titulo, &d.Descricao, &d.Categoria, &d.Subcategoria,
		&d.Status, &d.Prioridade, &d.Anonima, &d.UsuarioID, &d.EmpresaID, &d.ResponsavelID,
		&d.CreatedAt, &d.UpdatedAt, &d.DataResolucao, &d.Origem, &d.IPOrigem,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func scanHistorico(row pgx.Row) (*Historico, error) {
	var h Historico
	if err := row.Scan(&h.ID, &h.DenunciaID, &h.UsuarioID, &h.Acao, &h.Descricao, &h.StatusAnterior, &h.StatusNovo, &h.CreatedAt); err != nil {
		return nil, err
	}
	return &h, nil
}
