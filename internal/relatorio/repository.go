package relatorio

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gestaozabele/denuncias/internal/db"
	"github.com/gestaozabele/denuncias/internal/denuncia"
)

// Dimensao é uma coluna de agrupamento permitida.
type Dimensao string

const (
	DimStatus     Dimensao = "status"
	DimPrioridade Dimensao = "prioridade"
	DimCategoria  Dimensao = "categoria"
)

// Repository executa as consultas agregadas sobre denúncias.
type Repository struct {
	db db.DBTX
}

// NewRepository cria instância do repositório.
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// Contar conta as denúncias da consulta.
func (r *Repository) Contar(ctx context.Context, c Consulta) (int, error) {
	where := c.Where()
	var total int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM denuncias`+where.SQL(), where.Args()...).Scan(&total)
	return total, err
}

// Agrupar conta as denúncias da consulta por dimensão.
func (r *Repository) Agrupar(ctx context.Context, c Consulta, dim Dimensao) (map[string]int, error) {
	switch dim {
	case DimStatus, DimPrioridade, DimCategoria:
	default:
		return nil, fmt.Errorf("dimensão inválida: %s", dim)
	}
	where := c.Where()
	query := fmt.Sprintf(`SELECT %s, count(*) FROM denuncias%s GROUP BY %s`, dim, where.SQL(), dim)
	return r.contagens(ctx, query, where.Args()...)
}

// PorDia conta denúncias criadas a partir de desde, por dia UTC (YYYY-MM-DD).
func (r *Repository) PorDia(ctx context.Context, c Consulta, desde time.Time) (map[string]int, error) {
	where := c.Where()
	where.Add("created_at >= $%d", desde)
	query := `SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD'), count(*) FROM denuncias` + where.SQL() + ` GROUP BY 1`
	return r.contagens(ctx, query, where.Args()...)
}

// TempoMedioResolucao é a média de dias inteiros entre criação e resolução das
// denúncias concluídas; nil quando não há nenhuma.
func (r *Repository) TempoMedioResolucao(ctx context.Context, c Consulta) (*float64, error) {
	where := c.Where()
	where.Add("status = $%d", denuncia.StatusConcluida)
	where.Add("data_resolucao IS NOT NULL")
	query := `SELECT avg(floor(extract(epoch FROM data_resolucao - created_at) / 86400))::float8 FROM denuncias` + where.SQL()

	var media *float64
	err := r.db.QueryRow(ctx, query, where.Args()...).Scan(&media)
	return media, err
}

// Listar devolve as denúncias da consulta, mais recentes primeiro. limite <= 0 devolve todas.
func (r *Repository) Listar(ctx context.Context, c Consulta, limite int) ([]denuncia.Denuncia, error) {
	where := c.Where()
	query := `SELECT ` + denuncia.Colunas + ` FROM denuncias` + where.SQL() + ` ORDER BY created_at DESC`
	args := where.Args()
	if limite > 0 {
		query += fmt.Sprintf(" LIMIT $%d", where.Next())
		args = append(args, limite)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	denuncias := []denuncia.Denuncia{}
	for rows.Next() {
		d, err := denuncia.ScanDenuncia(rows)
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

// MetricasPorEmpresa agrega denúncias e usuários ativos por tenant.
func (r *Repository) MetricasPorEmpresa(ctx context.Context, desde time.Time) (map[uuid.UUID]*EstatisticasEmpresa, error) {
	out := map[uuid.UUID]*EstatisticasEmpresa{}
	get := func(id uuid.UUID) *EstatisticasEmpresa {
		m, ok := out[id]
		if !ok {
			m = &EstatisticasEmpresa{PorStatus: map[string]int{}}
			out[id] = m
		}
		return m
	}

	const denunciasQuery = `
        SELECT empresa_id, status, count(*), count(*) FILTER (WHERE created_at >= $1)
        FROM denuncias
        GROUP BY empresa_id, status`

	rows, err := r.db.Query(ctx, denunciasQuery, desde)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			id              uuid.UUID
			status          string
			total, recentes int
		)
		if err := rows.Scan(&id, &status, &total, &recentes); err != nil {
			rows.Close()
			return nil, err
		}
		m := get(id)
		m.TotalDenuncias += total
		m.Denuncias30Dias += recentes
		m.PorStatus[status] = total
	}
	rows.Close()
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	const usuariosQuery = `SELECT empresa_id, count(*) FROM usuarios WHERE ativo AND empresa_id IS NOT NULL GROUP BY empresa_id`
	rows, err = r.db.Query(ctx, usuariosQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id    uuid.UUID
			total int
		)
		if err := rows.Scan(&id, &total); err != nil {
			return nil, err
		}
		get(id).TotalUsuarios = total
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) contagens(ctx context.Context, query string, args ...any) (map[string]int, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var (
			chave string
			n     int
		)
		if err := rows.Scan(&chave, &n); err != nil {
			return nil, err
		}
		out[chave] = n
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
