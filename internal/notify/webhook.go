package notify

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/oszuidwest/diario-bordo/internal/types"
	"github.com/oszuidwest/diario-bordo/internal/util"
)

// Webhook event names.
const (
	EventEventoFinalized = "evento_finalized"
	EventTest            = "test"
)

const webhookTimeout = 10000 * time.Millisecond

// ErrWebhookNotConfigured is returned when testing without a webhook URL.
var ErrWebhookNotConfigured = errors.New("webhook URL not configured")

// WebhookPayload represents the data sent to webhook endpoints.
type WebhookPayload struct {
	Event     string `json:"event"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`

	// Diary fields (evento_finalized only)
	EventoID              string   `json:"evento_id,omitempty"`
	Etiqueta              string   `json:"etiqueta,omitempty"`
	CodDefeito            string   `json:"cod_defeito,omitempty"`
	DescDefeito           string   `json:"desc_defeito,omitempty"`
	CodProduto            string   `json:"cod_produto,omitempty"`
	OP                    string   `json:"op,omitempty"`
	CentroCusto           string   `json:"centro_custo,omitempty"`
	UsuarioNome           string   `json:"usuario_nome,omitempty"`
	TranscricaoDetalhe    *string  `json:"transcricao_detalhe,omitempty"`
	TranscricaoObservacao *string  `json:"transcricao_observacao,omitempty"`
	MediaURLs             []string `json:"media_urls,omitempty"`
}

// SendEventoWebhook notifies the configured webhook that a diary event was finalized.
func SendEventoWebhook(webhookURL string, e *types.Evento) error {
	payload := &WebhookPayload{
		Event:                 EventEventoFinalized,
		Timestamp:             timestampUTC(),
		EventoID:              e.EventoID,
		Etiqueta:              e.Etiqueta,
		CodDefeito:            e.CodDefeito,
		DescDefeito:           e.DescDefeito,
		CodProduto:            e.CodProduto,
		OP:                    e.OP,
		CentroCusto:           e.CentroCusto,
		UsuarioNome:           e.UsuarioNome,
		TranscricaoDetalhe:    e.TranscricaoDetalhe,
		TranscricaoObservacao: e.TranscricaoObservacao,
	}
	for _, m := range e.Midias {
		payload.MediaURLs = append(payload.MediaURLs, m.ArquivoURL)
	}
	return sendWebhook(webhookURL, payload)
}

// SendTestWebhook sends a test webhook notification.
func SendTestWebhook(webhookURL string) error {
	if webhookURL == "" {
		return ErrWebhookNotConfigured
	}

	return sendWebhook(webhookURL, &WebhookPayload{
		Event:     EventTest,
		Message:   "This is a test notification from " + AppName,
		Timestamp: timestampUTC(),
	})
}

// sendWebhook delivers a notification to the configured webhook endpoint.
func sendWebhook(webhookURL string, payload *WebhookPayload) error {
	if !util.IsConfigured(webhookURL) {
		return nil // Silently skip if not configured
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return util.WrapError("marshal payload", err)
	}

	client := &http.Client{Timeout: webhookTimeout}
	resp, err := client.Post(webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return util.WrapError("send webhook request", err)
	}
	defer util.SafeCloseFunc(resp.Body, "webhook response body")()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
