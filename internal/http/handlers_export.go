package http

import (
	"bytes"
	"log/slog"
	"net/http"

	"notas/internal/core"
	"notas/internal/export"
)

// writeNotePDF streams a single note as a PDF attachment.
func (s *Server) writeNotePDF(w http.ResponseWriter, r *http.Request, note core.ServiceNote) {
	resolver, err := s.loadResolver(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Resolver load error", "error", err, "note_id", note.ID)
		InternalServerError("Could not load reference lists").Write(w)
		return
	}

	doc := export.NoteDocument{
		Note:           note,
		ClientName:     resolver.ClientName(note),
		ProjectName:    resolver.ProjectName(note.ProjectID),
		ConsultantName: resolver.ConsultantName(note.ConsultantID),
		CompanyName:    s.companyName,
	}

	var buf bytes.Buffer
	if err := export.WriteNotePDF(&buf, doc); err != nil {
		slog.ErrorContext(r.Context(), "Note PDF error", "error", err, "note_id", note.ID)
		InternalServerError("Could not generate the PDF").Write(w)
		return
	}

	writePDF(w, export.NoteFilename(doc.ProjectName), buf.Bytes())
}

// handleSummaryPDF streams the monthly report as a PDF attachment.
func (s *Server) handleSummaryPDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}

	year, month := parseYearMonth(r)
	report, err := s.getReport(r.Context(), year, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Summary PDF error", "error", err, "year", year, "month", int(month))
		InternalServerError("Could not build the monthly report").Write(w)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteReportPDF(&buf, report, s.companyName); err != nil {
		slog.ErrorContext(r.Context(), "Summary PDF render error", "error", err, "year", year, "month", int(month))
		InternalServerError("Could not generate the PDF").Write(w)
		return
	}

	writePDF(w, export.SummaryFilename(year, month), buf.Bytes())
}

func writePDF(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
