package http

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"notas/internal/core"
	"notas/internal/store"
)

// handleNotes accepts a service note submission. An empty ID creates a new
// note; a known ID updates it in place.
func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}

	note, err := ParseNoteRequest(r)
	if err != nil {
		slog.ErrorContext(r.Context(), "Note parse error", "error", err, "method", r.Method, "url", r.URL.Path)
		BadRequestError("Invalid note data: " + err.Error()).Write(w)
		return
	}

	saved, err := s.backend.SaveNote(r.Context(), note)
	if err != nil {
		if isValidationError(err) {
			UnprocessableEntityError("Incomplete note: " + err.Error()).Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Note save error", "error", err, "note_id", note.ID)
		InternalServerError("Could not save the note").Write(w)
		return
	}

	s.structLog.LogNoteSaved(r.Context(), saved.ID, saved.ClientID, saved.ProjectID, saved.ConsultantID)
	s.invalidateCaches()

	NewHTMXResponse().
		TriggerNoteSaved(saved.Date.Year, int(saved.Date.Month)).
		TriggerFormReset().
		TriggerSuccessNotification("Nota de servicio guardada").
		BodyHTML(`<div class="success">Nota guardada (` + template.HTMLEscapeString(saved.ID) + `) para el ` +
			template.HTMLEscapeString(saved.Date.String()) + `</div>`).
		Write(w)
}

// handleNoteSubroutes dispatches /notes/{id}/pdf and /notes/{id}/email.
func (s *Server) handleNoteSubroutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}

	segs := pathSegments(r.URL.Path, "/notes/")
	if len(segs) != 2 {
		NotFoundError("Unknown note resource").Write(w)
		return
	}
	id, action := segs[0], segs[1]

	note, err := s.backend.GetNote(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFoundError("Note not found").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Note lookup error", "error", err, "note_id", id)
		InternalServerError("Could not load the note").Write(w)
		return
	}

	switch action {
	case "pdf":
		s.writeNotePDF(w, r, note)
	case "email":
		s.writeNoteEmail(w, r, note)
	default:
		NotFoundError("Unknown note resource").Write(w)
	}
}

// isValidationError reports whether the save failed because the note is
// incomplete rather than because of infrastructure trouble.
func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrEmptyName,
		core.ErrMissingClient,
		core.ErrMissingProject,
		core.ErrMissingConsultant,
		core.ErrInvalidFormat,
		core.ErrEmptyRepresentative,
		core.ErrEmptyDescription,
		core.ErrMissingSignature,
		core.ErrInvalidDate,
		core.ErrInvalidClock,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
