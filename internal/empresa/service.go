package empresa

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/denuncias/internal/acesso"
	"github.com/gestaozabele/denuncias/internal/apperr"
	"github.com/gestaozabele/denuncias/internal/storage"
)

// MaxLogoBytes limita o tamanho do logo enviado.
const MaxLogoBytes = 2 << 20

var (
	// ErrNotFound indica empresa inexistente.
	ErrNotFound = apperr.NotFound("empresa não encontrada")

	logoTypes = map[string]string{
		"image/png":     "png",
		"image/jpeg":    "jpg",
		"image/svg+xml": "svg",
		"image/webp":    "webp",
	}
)

type empresaRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Empresa, error)
	ExistsCNPJ(ctx context.Context, cnpj string, except *uuid.UUID) (bool, error)
	List(ctx context.Context, ids []uuid.UUID) ([]Empresa, error)
	Create(ctx context.Context, input CreateInput) (*Empresa, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*Empresa, error)
	Count(ctx context.Context) (Contagem, error)
}

// Service contém as regras de negócio do cadastro de empresas.
type Service struct {
	repo     empresaRepository
	uploader storage.Uploader
}

// NewService cria uma nova instância de Service.
func NewService(repo *Repository, uploader storage.Uploader) *Service {
	if uploader == nil {
		uploader = storage.NoopUploader{}
	}
	return &Service{repo: repo, uploader: uploader}
}

// Resolve carrega a empresa sem checagem de acesso; uso interno entre serviços.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID) (*Empresa, error) {
	return s.repo.GetByID(ctx, id)
}

// List devolve as empresas visíveis ao ator.
func (s *Service) List(ctx context.Context, ator *acesso.Ator) ([]Empresa, error) {
	if ator == nil {
		return nil, apperr.Unauthenticated("usuário não autenticado")
	}
	switch acesso.AlcanceDe(ator.Papel, acesso.VerEmpresa) {
	case acesso.Todas:
		return s.repo.List(ctx, nil)
	case acesso.Empresa:
		if ator.EmpresaID == nil {
			return []Empresa{}, nil
		}
		return s.repo.List(ctx, []uuid.UUID{*ator.EmpresaID})
	}
	return nil, apperr.Forbidden("acesso negado")
}

// Get busca uma empresa respeitando existência antes de permissão.
func (s *Service) Get(ctx context.Context, ator *acesso.Ator, id uuid.UUID) (*Empresa, error) {
	return s.load(ctx, ator, acesso.VerEmpresa, id)
}

// Personalizacao devolve logo e cores para qualquer membro da empresa.
func (s *Service) Personalizacao(ctx context.Context, ator *acesso.Ator, id uuid.UUID) (*Personalizacao, error) {
	e, err := s.load(ctx, ator, acesso.VerPersonalizacao, id)
	if err != nil {
		return nil, err
	}
	return &Personalizacao{LogoURL: e.LogoURL, CoresPersonalizadas: e.CoresPersonalizadas}, nil
}

// Create registra uma nova empresa; apenas super_admin.
func (s *Service) Create(ctx context.Context, ator *acesso.Ator, input CreateInput) (*Empresa, error) {
	if !acesso.CanAccess(ator, acesso.CriarEmpresa, acesso.Alvo{}) {
		return nil, apperr.Forbidden("acesso negado")
	}
	return s.Register(ctx, input)
}

// Register valida e insere a empresa. Usado também pela CLI de operação.
func (s *Service) Register(ctx context.Context, input CreateInput) (*Empresa, error) {
	input.Nome = strings.TrimSpace(input.Nome)
	input.CNPJ = NormalizeCNPJ(input.CNPJ)
	input.Status = NormalizeStatus(input.Status)
	if input.Status == "" {
		input.Status = StatusAtiva
	}

	if input.Nome == "" {
		return nil, apperr.Validation("nome", "Campo nome é obrigatório")
	}
	if input.CNPJ == "" {
		return nil, apperr.Validation("cnpj", "Campo cnpj é obrigatório")
	}
	if !IsValidStatus(input.Status) {
		return nil, apperr.Validation("status", "status inválido")
	}

	exists, err := s.repo.ExistsCNPJ(ctx, input.CNPJ, nil)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.Conflict("CNPJ já cadastrado")
	}

	e, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	log.Info().Str("empresa_id", e.ID.String()).Msg("empresa cadastrada")
	return e, nil
}

// Update altera a empresa. CNPJ e status exigem super_admin.
func (s *Service) Update(ctx context.Context, ator *acesso.Ator, id uuid.UUID, input UpdateInput) (*Empresa, error) {
	current, err := s.load(ctx, ator, acesso.AtualizarEmpresa, id)
	if err != nil {
		return nil, err
	}

	if (input.CNPJ != nil || input.Status != nil) &&
		!acesso.CanAccess(ator, acesso.AlterarCadastroEmpresa, acesso.Alvo{EmpresaID: &current.ID}) {
		return nil, apperr.Forbidden("apenas super_admin altera CNPJ ou status")
	}

	if input.Nome != nil {
		nome := strings.TrimSpace(*input.Nome)
		if nome == "" {
			return nil, apperr.Validation("nome", "nome não pode ser vazio")
		}
		input.Nome = &nome
	}
	if input.Status != nil {
		status := NormalizeStatus(*input.Status)
		if !IsValidStatus(status) {
			return nil, apperr.Validation("status", "status inválido")
		}
		input.Status = &status
	}
	if input.CNPJ != nil {
		cnpj := NormalizeCNPJ(*input.CNPJ)
		if cnpj == "" {
			return nil, apperr.Validation("cnpj", "cnpj não pode ser vazio")
		}
		if cnpj != current.CNPJ {
			exists, err := s.repo.ExistsCNPJ(ctx, cnpj, &current.ID)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, apperr.Conflict("CNPJ já cadastrado")
			}
		}
		input.CNPJ = &cnpj
	}

	return s.repo.Update(ctx, id, input)
}

// Deactivate marca a empresa como inativa; nunca remove o registro.
func (s *Service) Deactivate(ctx context.Context, ator *acesso.Ator, id uuid.UUID) (*Empresa, error) {
	if _, err := s.load(ctx, ator, acesso.AlterarCadastroEmpresa, id); err != nil {
		return nil, err
	}
	status := StatusInativa
	e, err := s.repo.Update(ctx, id, UpdateInput{Status: &status})
	if err != nil {
		return nil, err
	}
	log.Info().Str("empresa_id", id.String()).Msg("empresa desativada")
	return e, nil
}

// LogoUpload descreve o arquivo recebido no multipart.
type LogoUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// UploadLogo envia o arquivo ao storage e grava a URL pública.
func (s *Service) UploadLogo(ctx context.Context, ator *acesso.Ator, id uuid.UUID, upload LogoUpload) (*Empresa, error) {
	if _, err := s.load(ctx, ator, acesso.AtualizarEmpresa, id); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(upload.Body, MaxLogoBytes+1))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(body) == 0 {
		return nil, apperr.Validation("arquivo", "arquivo vazio")
	}
	if len(body) > MaxLogoBytes {
		return nil, apperr.Validation("arquivo", "arquivo excede 2MB")
	}

	contentType := logoContentType(upload, body)
	ext, ok := logoTypes[contentType]
	if !ok {
		return nil, apperr.Validation("arquivo", "formato de imagem não suportado")
	}

	res, err := s.uploader.Upload(ctx, storage.UploadInput{
		Key:          storage.LogoKey(id, ext),
		Body:         body,
		ContentType:  contentType,
		CacheControl: "public, max-age=86400",
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotConfigured) {
			return nil, apperr.Validation("arquivo", "armazenamento de arquivos não configurado")
		}
		return nil, apperr.Internal(err)
	}

	return s.repo.Update(ctx, id, UpdateInput{LogoURL: &res.URL})
}

// Contar resume o cadastro; restrito a super_admin.
func (s *Service) Contar(ctx context.Context, ator *acesso.Ator) (Contagem, error) {
	if !acesso.CanAccess(ator, acesso.RelatorioGlobal, acesso.Alvo{}) {
		return Contagem{}, apperr.Forbidden("acesso negado - apenas Super Admin")
	}
	return s.repo.Count(ctx)
}

func (s *Service) load(ctx context.Context, ator *acesso.Ator, op acesso.Operacao, id uuid.UUID) (*Empresa, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !acesso.CanAccess(ator, op, acesso.Alvo{EmpresaID: &e.ID}) {
		return nil, apperr.Forbidden("acesso negado")
	}
	return e, nil
}

func logoContentType(upload LogoUpload, body []byte) string {
	ct := strings.ToLower(strings.TrimSpace(upload.ContentType))
	if idx := strings.Index(ct, ";"); idx != -1 {
		ct = strings.TrimSpace(ct[:idx])
	}
	if _, ok := logoTypes[ct]; ok {
		return ct
	}
	if strings.EqualFold(filepath.Ext(upload.Filename), ".svg") && bytes.Contains(body[:min(len(body), 512)], []byte("<svg")) {
		return "image/svg+xml"
	}
	return http.DetectContentType(body)
}
