package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"notas/internal/core"
)

// handleMonthlySummary renders the monthly report partial: one row per
// service note of the selected period plus the running total.
func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	year, month := parseYearMonth(r)
	report, err := s.getReport(r.Context(), year, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Monthly summary error", "error", err, "year", year, "month", int(month))
		_, _ = w.Write([]byte(`<section id="monthly-summary" class="monthly-summary"><div class="placeholder">Error cargando el resumen</div></section>`))
		return
	}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="monthly-summary" class="monthly-summary"><div class="placeholder">Total: ` +
			formatHours(report.TotalHours) + ` h</div></section>`))
		return
	}

	type row struct {
		NoteID         string
		Date           string
		ClientName     string
		ProjectName    string
		ConsultantName string
		Hours          string
	}
	data := struct {
		Year       int
		Month      int
		Period     string
		Rows       []row
		TotalHours string
		Warnings   []string
		Empty      bool
	}{
		Year:       report.Year,
		Month:      int(report.Month),
		Period:     report.Period,
		TotalHours: formatHours(report.TotalHours),
		Warnings:   report.Warnings,
		Empty:      len(report.Rows) == 0,
	}
	for _, rr := range report.Rows {
		data.Rows = append(data.Rows, row{
			NoteID:         rr.NoteID,
			Date:           rr.Date.String(),
			ClientName:     rr.ClientName,
			ProjectName:    rr.ProjectName,
			ConsultantName: rr.ConsultantName,
			Hours:          formatHours(rr.Hours),
		})
	}

	if err := s.templates.ExecuteTemplate(w, "monthly_summary.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "monthly_summary.html", "year", year, "month", int(month))
		_, _ = w.Write([]byte(`<section id="monthly-summary" class="monthly-summary"><div class="placeholder">Error generando el resumen</div></section>`))
	}
}

// handleYears renders <option> elements for the year selector: every year
// that has notes plus the current one, newest first.
func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}

	notes, err := s.backend.ListNotes(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Year list error", "error", err)
		InternalServerError("Could not load years").Write(w)
		return
	}

	selected := time.Now().Year()
	if v := strings.TrimSpace(r.URL.Query().Get("selected")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			selected = y
		}
	}

	var b strings.Builder
	for _, y := range core.AvailableYears(notes, time.Now()) {
		b.WriteString(`<option value="` + strconv.Itoa(y) + `"`)
		if y == selected {
			b.WriteString(` selected`)
		}
		b.WriteString(`>` + strconv.Itoa(y) + `</option>`)
	}
	NewHTMXResponse().BodyHTML(b.String()).Write(w)
}
