// Package notify delivers outbound notifications for diary events.
package notify

import (
	"sync"

	"github.com/oszuidwest/diario-bordo/internal/config"
	"github.com/oszuidwest/diario-bordo/internal/types"
	"github.com/oszuidwest/diario-bordo/internal/util"
)

// EventoNotifier sends notifications when diary events are finalized.
type EventoNotifier struct {
	cfg *config.Config
	wg  sync.WaitGroup
}

// NewEventoNotifier returns an EventoNotifier configured with the given config.
func NewEventoNotifier(cfg *config.Config) *EventoNotifier {
	return &EventoNotifier{cfg: cfg}
}

// HandleFinalized sends the finalization webhook in the background when a
// webhook is configured.
func (n *EventoNotifier) HandleFinalized(e *types.Evento) {
	cfg := n.cfg.Snapshot()
	if !cfg.HasWebhook() {
		return
	}

	n.wg.Go(func() {
		util.LogNotifyResult("webhook", e.EventoID, func() error {
			return SendEventoWebhook(cfg.WebhookURL, e)
		})
	})
}

// SendTest sends a test notification to the configured webhook.
func (n *EventoNotifier) SendTest() error {
	return SendTestWebhook(n.cfg.Snapshot().WebhookURL)
}

// Wait blocks until in-flight notifications have completed.
func (n *EventoNotifier) Wait() {
	n.wg.Wait()
}
