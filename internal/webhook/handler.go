package webhook

import (
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-billing/internal/common"
	"github.com/noah-isme/backend-billing/internal/obs"
)

// Handler processes inbound provider notifications.
//
// Only signature verification failure rejects a delivery. Everything after
// that point acknowledges with 200 regardless of outcome: re-sending a
// notification cannot fix a storage fault, and a non-2xx response would
// only trigger a retry storm from the provider.
type Handler struct {
	Verifier Verifier
	Recorder Recorder
	Replay   *ReplayGuard
	Log      zerolog.Logger
}

// Handle implements POST /webhook.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "unable to read payload", nil)
		return
	}

	event, err := h.Verifier.Verify(body, r.Header.Get(SignatureHeader))
	if err != nil {
		h.Log.Warn().Err(err).Msg("webhook signature verification failed")
		countEvent("unknown", "signature_rejected")
		common.JSONError(w, http.StatusBadRequest, "INVALID_SIGNATURE", "signature verification failed", nil)
		return
	}

	domainEvent, ok := Classify(event)
	if !ok {
		h.Log.Debug().Str("event_type", string(event.Type)).Msg("ignoring unmapped event type")
		countEvent("unknown", "ignored")
		common.JSON(w, http.StatusOK, map[string]any{"received": true, "ignored": true})
		return
	}

	if h.Replay.Enabled() {
		seen, err := h.Replay.Seen(r.Context(), body)
		if err != nil {
			// Dedup is best effort: prefer a duplicate record over a
			// dropped notification when the replay store is down.
			h.Log.Error().Err(err).Msg("replay guard unavailable")
		} else if seen {
			countEvent(string(domainEvent.Kind), "duplicate")
			common.JSON(w, http.StatusOK, map[string]any{"received": true, "duplicate": true})
			return
		}
	}

	if _, err := h.Recorder.Record(r.Context(), domainEvent); err != nil {
		h.Log.Error().Err(err).Str("kind", string(domainEvent.Kind)).Msg("event log append failed")
		countEvent(string(domainEvent.Kind), "storage_failed")
		common.JSON(w, http.StatusOK, map[string]any{"received": true})
		return
	}

	h.Log.Info().Str("kind", string(domainEvent.Kind)).Msg("notification recorded")
	countEvent(string(domainEvent.Kind), "recorded")
	common.JSON(w, http.StatusOK, map[string]any{"received": true})
}

func countEvent(kind, result string) {
	if obs.WebhookEventTotal == nil {
		return
	}
	obs.WebhookEventTotal.WithLabelValues(kind, result).Inc()
}
