package util

import "log/slog"

// LogNotifyResult runs a notification for a diary event and logs whether it
// was delivered. Failures are logged only; finalizing an event never fails
// because a notification did.
func LogNotifyResult(kind, eventoID string, fn func() error) {
	if err := fn(); err != nil {
		slog.Error("notification failed", "type", kind, "evento_id", eventoID, "error", err)
		return
	}
	slog.Info("notification sent", "type", kind, "evento_id", eventoID)
}
