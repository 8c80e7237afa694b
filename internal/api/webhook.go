package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/GuilhermePossari/Lilabot/internal/whatsapp"
	"github.com/go-chi/chi/v5/middleware"
)

// Verify answers the subscription handshake: it echoes hub.challenge when
// hub.mode is "subscribe" and hub.verify_token matches.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode != "subscribe" || h.verifyToken == "" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(h.verifyToken)) != 1 {
		h.logger.Warn("Webhook verification rejected", "mode", mode)
		Error(w, http.StatusForbidden, "verification failed")
		return
	}

	h.logger.Info("Webhook verified")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(challenge))
}

// Receive handles one event delivery synchronously and always acknowledges
// it with 200, whatever happened while handling it.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	var payload whatsapp.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Warn("Ignoring undecodable webhook body", "request_id", reqID, "error", err)
		JSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	ev, ok := payload.Event()
	if !ok {
		JSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	start := time.Now()
	// A provider-side disconnect must not abort a conversion halfway.
	h.events.Handle(context.WithoutCancel(r.Context()), ev)
	h.logger.Info("Webhook event handled",
		"request_id", reqID,
		"event_id", ev.ID,
		"sender", ev.Sender,
		"type", string(ev.Type),
		"took", time.Since(start),
	)

	JSON(w, http.StatusOK, map[string]string{"status": "received"})
}
