// Package alerta envia avisos de denúncias críticas para canais externos.
package alerta

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// ErrNaoConfigurado indica webhook ausente.
var ErrNaoConfigurado = errors.New("webhook de alerta não configurado")

// Notifier envia alertas para canais externos.
type Notifier interface {
	Notify(ctx context.Context, evento Evento) error
}

// Evento descreve a denúncia que originou o alerta. Nunca carrega a
// identidade do denunciante.
type Evento struct {
	DenunciaID uuid.UUID
	Protocolo  string
	EmpresaID  uuid.UUID
	Categoria  string
	Prioridade string
	CriadaEm   time.Time
}

// Noop descarta alertas quando nenhum webhook está configurado.
type Noop struct{}

func (Noop) Notify(context.Context, Evento) error { return nil }

// WebhookNotifier publica o alerta em um webhook no formato de mensagem do Slack.
type WebhookNotifier struct {
	webhookURL string
	client     *resty.Client
}

// NewWebhookNotifier devolve nil quando a URL está vazia.
func NewWebhookNotifier(webhookURL string) *WebhookNotifier {
	if webhookURL == "" {
		return nil
	}
	return NewWebhookNotifierWithClient(webhookURL, resty.New().
		SetTimeout(5*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("Content-Type", "application/json"))
}

// NewWebhookNotifierWithClient permite injetar o cliente HTTP.
func NewWebhookNotifierWithClient(webhookURL string, client *resty.Client) *WebhookNotifier {
	return &WebhookNotifier{webhookURL: webhookURL, client: client}
}

func (w *WebhookNotifier) Notify(ctx context.Context, evento Evento) error {
	if w == nil || w.webhookURL == "" {
		return ErrNaoConfigurado
	}

	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"text":         formatMessage(evento),
			"protocolo":    evento.Protocolo,
			"empresa_id":   evento.EmpresaID.String(),
			"categoria":    evento.Categoria,
			"prioridade":   evento.Prioridade,
			"data_criacao": evento.CriadaEm.UTC().Format(time.RFC3339),
		}).
		Post(w.webhookURL)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("webhook de alerta respondeu %d", resp.StatusCode())
	}
	return nil
}

func formatMessage(evento Evento) string {
	return fmt.Sprintf(":rotating_light: *Denúncia %s recebida*\nProtocolo %s, categoria %s",
		evento.Prioridade, evento.Protocolo, evento.Categoria)
}
