package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// S3Config descreve parâmetros necessários para assinar requisições compatíveis com S3.
type S3Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	PublicDomain string
	Client       *resty.Client
}

// S3Uploader envia objetos para buckets S3/R2 com assinatura SigV4.
type S3Uploader struct {
	cfg    S3Config
	client *resty.Client
	now    func() time.Time
}

// NewS3Uploader cria um uploader pronto para enviar arquivos a um endpoint S3/R2.
func NewS3Uploader(cfg S3Config) (*S3Uploader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	client := cfg.Client
	if client == nil {
		client = resty.New().
			SetTimeout(15 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(500 * time.Millisecond)
	}

	return &S3Uploader{cfg: cfg, client: client, now: time.Now}, nil
}

// Upload envia o arquivo e retorna a URL pública (domínio público quando configurado).
func (u *S3Uploader) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	if strings.TrimSpace(input.Key) == "" {
		return nil, errors.New("storage: chave do objeto obrigatória")
	}
	if len(input.Body) == 0 {
		return nil, errors.New("storage: corpo vazio")
	}

	contentType := strings.TrimSpace(input.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	endpoint := strings.TrimRight(u.cfg.Endpoint, "/")
	escapedKey := (&url.URL{Path: strings.TrimLeft(input.Key, "/")}).EscapedPath()
	targetURL := fmt.Sprintf("%s/%s/%s", endpoint, u.cfg.Bucket, escapedKey)

	parsed, err := url.Parse(targetURL)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(input.Body)
	payloadHex := hex.EncodeToString(sum[:])

	headers := http.Header{}
	headers.Set("Content-Type", contentType)
	headers.Set("x-amz-content-sha256", payloadHex)
	if cc := strings.TrimSpace(input.CacheControl); cc != "" {
		headers.Set("Cache-Control", cc)
	}
	authorization := signV4(http.MethodPut, parsed, headers, payloadHex, u.cfg, u.now().UTC())

	req := u.client.R().
		SetContext(ctx).
		SetBody(input.Body).
		SetHeader("Authorization", authorization)
	for key := range headers {
		req.SetHeader(key, headers.Get(key))
	}

	resp, err := req.Put(targetURL)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		body := resp.String()
		if len(body) > 4096 {
			body = body[:4096]
		}
		return nil, fmt.Errorf("storage: upload falhou (%d): %s", resp.StatusCode(), strings.TrimSpace(body))
	}

	publicURL := targetURL
	if strings.TrimSpace(u.cfg.PublicDomain) != "" {
		publicURL = fmt.Sprintf("%s/%s", strings.TrimRight(u.cfg.PublicDomain, "/"), escapedKey)
	}

	return &UploadResult{URL: publicURL, ETag: strings.Trim(resp.Header().Get("ETag"), "\"")}, nil
}

func (cfg S3Config) validate() error {
	switch {
	case strings.TrimSpace(cfg.Endpoint) == "":
		return errors.New("storage: endpoint do S3 ausente")
	case strings.TrimSpace(cfg.Region) == "":
		return errors.New("storage: região do S3 ausente")
	case strings.TrimSpace(cfg.Bucket) == "":
		return errors.New("storage: bucket do S3 ausente")
	case strings.TrimSpace(cfg.AccessKey) == "":
		return errors.New("storage: access key ausente")
	case strings.TrimSpace(cfg.SecretKey) == "":
		return errors.New("storage: secret key ausente")
	case !strings.HasPrefix(cfg.Endpoint, "http://") && !strings.HasPrefix(cfg.Endpoint, "https://"):
		return errors.New("storage: endpoint deve incluir protocolo http/https")
	}
	return nil
}
