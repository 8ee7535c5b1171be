package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/DanielPopoola/ocrbot/internal/application"
	"github.com/DanielPopoola/ocrbot/internal/application/services"
	"github.com/DanielPopoola/ocrbot/internal/domain"
	"github.com/DanielPopoola/ocrbot/internal/interfaces/rest"
)

// multipart framing and the lang field on top of the image itself
const formOverhead = 64 << 10

// Extract runs an uploaded image through the same pipeline as chat messages.
// Uploads have no chat, so nothing is replied; the outcome is the response.
func (h *Handlers) Extract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxImageBytes+formOverhead)

	if err := r.ParseMultipartForm(h.maxImageBytes); err != nil {
		rest.WriteError(w, h.uploadError(err), h.logger)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("image")
	if err != nil {
		rest.WriteError(w, domain.NewMissingRequiredFieldError("image"), h.logger)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxImageBytes+1))
	if err != nil {
		rest.WriteError(w, h.uploadError(err), h.logger)
		return
	}
	if int64(len(data)) > h.maxImageBytes {
		rest.WriteError(w, application.NewPayloadTooLargeError(h.maxImageBytes), h.logger)
		return
	}

	lang := ""
	if raw := r.FormValue("lang"); raw != "" {
		normalized, ok := services.NormalizeLanguage(raw)
		if !ok {
			rest.WriteError(w, application.NewInvalidInputError(fmt.Errorf("unsupported language code %q", raw)), h.logger)
			return
		}
		lang = normalized
	}

	id := domain.MessageID("upload-" + uuid.NewString())
	msg, err := domain.NewInboundMessage(id, 0, 0, "", &domain.ImagePayload{
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	msg = msg.WithLanguageHint(lang)

	out := h.pipeline.Process(r.Context(), msg)

	h.logger.Info("upload processed",
		"message_id", id,
		"state", out.State,
		"failure", out.Failure,
		"bytes", len(data),
	)

	rest.WriteJSON(w, rest.OutcomeStatus(out), rest.ToExtractResponse(out))
}

func (h *Handlers) uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return application.NewPayloadTooLargeError(h.maxImageBytes)
	}
	return application.NewInvalidInputError(err)
}
