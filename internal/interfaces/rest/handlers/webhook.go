package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"

	"github.com/DanielPopoola/ocrbot/internal/application"
	"github.com/DanielPopoola/ocrbot/internal/infrastructure/telegram"
	"github.com/DanielPopoola/ocrbot/internal/interfaces/rest"
)

const (
	maxUpdateBytes    = 1 << 20
	secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"
)

// Webhook accepts a Telegram update and answers 200 before the message is
// processed. Telegram retries anything else, so only a bad secret or an
// undecodable body is refused.
func (h *Handlers) Webhook(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		rest.WriteError(w, application.NewUnauthorizedError(), h.logger)
		return
	}

	var update telegram.Update
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUpdateBytes)).Decode(&update); err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		h.accept(ctx, update)
	}()

	rest.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handlers) accept(ctx context.Context, update telegram.Update) {
	msg, err := h.translator.Inbound(ctx, update)
	if err != nil {
		h.logger.Warn("dropping update",
			"update_id", update.UpdateID,
			"error", err,
		)
		return
	}
	if msg == nil {
		return
	}
	h.submitter.Submit(ctx, msg)
}

// authorized compares the path secret and, when Telegram sent one, the
// secret token header in constant time.
func (h *Handlers) authorized(r *http.Request) bool {
	if !secretEqual(r.PathValue("secret"), h.webhookSecret) {
		return false
	}
	if header := r.Header.Get(secretTokenHeader); header != "" && !secretEqual(header, h.webhookSecret) {
		return false
	}
	return true
}

func secretEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
