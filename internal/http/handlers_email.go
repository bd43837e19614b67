package http

import (
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"notas/internal/core"
	"notas/internal/mail"
)

// Email handlers do not send anything; they draft the message and hand the
// browser a mailto link, so the operator's own mail client does the sending.

// writeNoteEmail drafts the email for one service note.
func (s *Server) writeNoteEmail(w http.ResponseWriter, r *http.Request, note core.ServiceNote) {
	resolver, err := s.loadResolver(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Resolver load error", "error", err, "note_id", note.ID)
		InternalServerError("Could not load reference lists").Write(w)
		return
	}

	draft := mail.NoteDraft(note,
		resolver.ClientName(note),
		resolver.ProjectName(note.ProjectID),
		resolver.ConsultantName(note.ConsultantID))
	writeDraft(w, r, draft)
}

// handleSummaryEmail drafts the email for the monthly report.
func (s *Server) handleSummaryEmail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}

	year, month := parseYearMonth(r)
	report, err := s.getReport(r.Context(), year, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Summary email error", "error", err, "year", year, "month", int(month))
		InternalServerError("Could not build the monthly report").Write(w)
		return
	}

	writeDraft(w, r, mail.SummaryDraft(report))
}

// writeDraft renders a draft either as JSON (scripting) or as a mailto
// anchor the UI swaps in next to the export buttons.
func writeDraft(w http.ResponseWriter, r *http.Request, draft mail.Draft) {
	to := strings.TrimSpace(r.URL.Query().Get("to"))
	link := mail.MailtoLink(to, draft)

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		NewHTMXResponse().BodyJSON(struct {
			Subject string `json:"subject"`
			Body    string `json:"body"`
			Mailto  string `json:"mailto"`
		}{Subject: draft.Subject, Body: draft.Body, Mailto: link}).Write(w)
		return
	}

	NewHTMXResponse().BodyHTML(`<a class="mailto" href="` + template.HTMLEscapeString(link) + `">` +
		template.HTMLEscapeString(draft.Subject) + `</a>`).Write(w)
}
