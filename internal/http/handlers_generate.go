package http

import (
	"errors"
	"log/slog"
	"net/http"

	"notas/internal/gemini"
)

// handleGenerate turns a few keywords into a service description draft.
// The response is plain text the UI drops into the description textarea.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid form data").Write(w)
		return
	}

	keywords := sanitizeInput(r.Form.Get("keywords"))
	if keywords == "" {
		UnprocessableEntityError("Enter a few keywords first").Write(w)
		return
	}
	if s.generator == nil || !s.generator.Enabled() {
		UnprocessableEntityError("Description generation is not configured").Write(w)
		return
	}

	text, err := s.generator.Generate(r.Context(), keywords)
	if err != nil {
		if errors.Is(err, gemini.ErrNotConfigured) {
			UnprocessableEntityError("Description generation is not configured").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Description generation error", "error", err)
		InternalServerError("Generation failed, write the description manually").Write(w)
		return
	}

	NewHTMXResponse().
		Header("Content-Type", "text/plain; charset=utf-8").
		TriggerSuccessNotification("Descripción generada").
		BodyString(text).
		Write(w)
}
