package http

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"notas/internal/adapters"
	"notas/internal/backend"
	"notas/internal/core"
	"notas/internal/memory"
	"notas/internal/services"
)

// tinyPNG is a valid 1x1 PNG, standing in for a signature pad export.
const tinyPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg=="

type fakeGenerator struct {
	enabled bool
	text    string
	err     error
}

func (g *fakeGenerator) Enabled() bool { return g.enabled }

func (g *fakeGenerator) Generate(_ context.Context, _ string) (string, error) {
	return g.text, g.err
}

func newTestBackend() backend.Backend {
	mem := memory.NewStore()
	return adapters.NewServiceStore(mem, services.NewNoteService(mem, nil))
}

func newTestServer(t *testing.T, b backend.Backend, gen Generator) *Server {
	t.Helper()
	s := NewServer(":0", b, gen, "Acme Consulting")
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

// seedReferences creates one client, project and consultant and returns them.
func seedReferences(t *testing.T, b backend.Backend) (core.Client, core.Project, core.Consultant) {
	t.Helper()
	ctx := context.Background()

	client, err := b.CreateClient(ctx, core.Client{Name: "Iberdatos SL", TaxID: "B12345678"})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	project, err := b.CreateProject(ctx, core.Project{Name: "Migración ERP", ClientID: client.ID})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	consultant, err := b.CreateConsultant(ctx, core.Consultant{Name: "Laura Gómez"})
	if err != nil {
		t.Fatalf("CreateConsultant: %v", err)
	}
	return client, project, consultant
}

func seedNote(t *testing.T, b backend.Backend, clientID, projectID, consultantID, date string) core.ServiceNote {
	t.Helper()

	d, err := core.ParseDate(date)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", date, err)
	}
	start, _ := core.ParseClock("09:00")
	end, _ := core.ParseClock("13:30")
	png, err := base64.StdEncoding.DecodeString(tinyPNG)
	if err != nil {
		t.Fatalf("decode signature fixture: %v", err)
	}

	saved, err := b.SaveNote(context.Background(), core.ServiceNote{
		ClientID:             clientID,
		ProjectID:            projectID,
		ConsultantID:         consultantID,
		Format:               core.OnSite,
		Date:                 d,
		Start:                start,
		End:                  end,
		ClientRepresentative: "Sr. Ruiz",
		Description:          "Ajustes del módulo de facturación",
		ConsultantSignature:  png,
		ClientSignature:      png,
	})
	if err != nil {
		t.Fatalf("SaveNote: %v", err)
	}
	return saved
}

func noteForm(clientID, projectID, consultantID string) url.Values {
	return url.Values{
		"client_id":             {clientID},
		"project_id":            {projectID},
		"consultant_id":         {consultantID},
		"format":                {"onsite"},
		"date":                  {"2024-03-15"},
		"start":                 {"09:00"},
		"end":                   {"18:00"},
		"client_representative": {"Sr. Ruiz"},
		"description":           {"Sesión de soporte en sitio"},
		"consultant_signature":  {"data:image/png;base64," + tinyPNG},
		"client_signature":      {tinyPNG},
	}
}

func postForm(s *Server, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateNote(t *testing.T) {
	b := newTestBackend()
	s := newTestServer(t, b, nil)
	client, project, consultant := seedReferences(t, b)

	rec := postForm(s, "/notes", noteForm(client.ID, project.ID, consultant.ID))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	trigger := rec.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, "note:saved") {
		t.Errorf("HX-Trigger = %q, want note:saved", trigger)
	}
	if !strings.Contains(rec.Body.String(), "Nota guardada") {
		t.Errorf("body = %q, want success message", rec.Body.String())
	}

	notes, err := b.ListNotes(context.Background())
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("len(notes) = %d, want 1", len(notes))
	}
	if notes[0].ID == "" {
		t.Error("saved note should have an assigned ID")
	}
}

func TestCreateNoteIncomplete(t *testing.T) {
	b := newTestBackend()
	s := newTestServer(t, b, nil)
	client, project, consultant := seedReferences(t, b)

	form := noteForm(client.ID, project.ID, consultant.ID)
	form.Del("client_signature")

	rec := postForm(s, "/notes", form)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if notes, _ := b.ListNotes(context.Background()); len(notes) != 0 {
		t.Errorf("incomplete note was persisted: %d notes", len(notes))
	}
}

func TestCreateNoteBadDate(t *testing.T) {
	b := newTestBackend()
	s := newTestServer(t, b, nil)
	client, project, consultant := seedReferences(t, b)

	form := noteForm(client.ID, project.ID, consultant.ID)
	form.Set("date", "15/03/2024")

	rec := postForm(s, "/notes", form)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMonthlySummaryPartial(t *testing.T) {
	b := newTestBackend()
	s := newTestServer(t, b, nil)
	client, project, consultant := seedReferences(t, b)
	seedNote(t, b, client.ID, project.ID, consultant.ID, "2024-03-10")
	seedNote(t, b, client.ID, project.ID, consultant.ID, "2024-03-20")
	seedNote(t, b, client.ID, project.ID, consultant.ID, "2024-04-01")

	rec := get(s, "/ui/monthly-summary?year=2024&month=3")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Marzo 2024") {
		t.Errorf("body missing period label: %s", body)
	}
	if !strings.Contains(body, "Iberdatos SL") {
		t.Errorf("body missing client name")
	}
	// Two notes of 4.5 h each; the April note must not leak in.
	if !strings.Contains(body, "9.00") {
		t.Errorf("body missing period total: %s", body)
	}
}

func TestMonthlySummaryEmptyPeriod(t *testing.T) {
	b := newTestBackend()
	s := newTestServer(t, b, nil)

	rec := get(s, "/ui/monthly-summary?year=2019&month=1")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Sin notas de servicio") {
		t.Errorf("body = %q, want empty-period placeholder", rec.Body.String())
	}
}

func TestSummaryReflectsClientRename(t *testing.T) {
	b := newTestBackend()
	s := newTestServer(t, b, nil)
	client, project, consultant := seedReferences(t, b)
	seedNote(t, b, client.ID, project.ID, consultant.ID, "2024-03-10")

	if rec := get(s, "/ui/monthly-summary?year=2024&month=3"); !strings.Contains(rec.Body.String(), "Iberdatos SL") {
		t.Fatalf("summary missing original client name")
	}

	form := url.Values{"name": {"Iberdatos Group"}, "tax_id": {client.TaxID}}
	req := httptest.NewRequest(http.MethodPut, "/clients/"+client.ID, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("rename status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// The cached report must have been invalidated by the rename.
	if rec := get(s, "/ui/monthly-summary?year=2024&month=3"); !strings.Contains(rec.Body.String(), "Iberdatos Group") {
		t.Errorf("summary still shows the old client name: %s", rec.Body.String())
	}
}

func TestDeleteClientBlockedThenCascade(t *testing.T) {
	b := newTestBackend()
	s := newTestServer(t, b, nil)
	client, project, consultant := seedReferences(t, b)
	note := seedNote(t, b, client.ID, project.ID, consultant.ID, "2024-03-10")

	req := httptest.NewRequest(http.MethodDelete, "/clients/"+client.ID, nil)
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "still reference it") {
		t.Errorf("body = %q, want reference count message", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodDelete, "/clients/"+client.ID+"?cascade=true", nil)
	rec = httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("cascade status = %d, body = %s", rec.Code, rec.Body.String())
	}

	got, err := b.GetNote(context.Background(), note.ID)
	if err != nil {
		t.Fatalf("GetNote after cascade: %v", err)
	}
	if got.ClientID != "" {
		t.Errorf("note still references deleted client %q", got.ClientID)
	}
}

func TestClientsOptionsPartial(t *testing.T) {
	b := newTestBackend()
	s := newTestServer(t, b, nil)
	client, _, _ := seedReferences(t, b)

	rec := get(s, "/clients")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `value="`+client.ID+`"`) || !strings.Contains(body, "Iberdatos SL") {
		t.Errorf("options = %q, want client entry", body)
	}
}

func TestNotePDF(t *testing.T) {
	b := newTestBackend()
	s := newTestServer(t, b, nil)
	client, project, consultant := seedReferences(t, b)
	note := seedNote(t, b, client.ID, project.ID, consultant.ID, "2024-03-10")

	rec := get(s, "/notes/"+note.ID+"/pdf")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "service-note-migraci-n-erp.pdf") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF") {
		t.Errorf("body is not a PDF")
	}
}

func TestSummaryPDF(t *testing.T) {
	b := newTestBackend()
	s := newTestServer(t, b, nil)
	client, project, consultant := seedReferences(t, b)
	seedNote(t, b, client.ID, project.ID, consultant.ID, "2024-03-10")

	rec := get(s, "/summary/pdf?year=2024&month=3")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "monthly-summary-marzo-2024.pdf") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF") {
		t.Errorf("body is not a PDF")
	}
}

func TestSummaryEmailJSON(t *testing.T) {
	b := newTestBackend()
	s := newTestServer(t, b, nil)
	client, project, consultant := seedReferences(t, b)
	seedNote(t, b, client.ID, project.ID, consultant.ID, "2024-03-10")

	req := httptest.NewRequest(http.MethodGet, "/summary/email?year=2024&month=3", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Monthly Service Summary - Marzo 2024") {
		t.Errorf("body = %q, want summary subject", body)
	}
	if !strings.Contains(body, "mailto:") {
		t.Errorf("body missing mailto link")
	}
}

func TestNoteEmailAnchor(t *testing.T) {
	b := newTestBackend()
	s := newTestServer(t, b, nil)
	client, project, consultant := seedReferences(t, b)
	note := seedNote(t, b, client.ID, project.ID, consultant.ID, "2024-03-10")

	rec := get(s, "/notes/"+note.ID+"/email")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "mailto:") || !strings.Contains(body, "Service Note: Project Migración ERP") {
		t.Errorf("body = %q, want mailto anchor with note subject", body)
	}
}

func TestNoteNotFound(t *testing.T) {
	b := newTestBackend()
	s := newTestServer(t, b, nil)

	rec := get(s, "/notes/missing/pdf")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGenerateNotConfigured(t *testing.T) {
	b := newTestBackend()
	s := newTestServer(t, b, nil)

	rec := postForm(s, "/generate", url.Values{"keywords": {"migración erp soporte"}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "not configured") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestGenerate(t *testing.T) {
	b := newTestBackend()
	gen := &fakeGenerator{enabled: true, text: "Se realizaron ajustes en el módulo de facturación."}
	s := newTestServer(t, b, gen)

	rec := postForm(s, "/generate", url.Values{"keywords": {"facturación ajustes"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != gen.text {
		t.Errorf("body = %q, want generated text", rec.Body.String())
	}
}

func TestYearsPartial(t *testing.T) {
	b := newTestBackend()
	s := newTestServer(t, b, nil)
	client, project, consultant := seedReferences(t, b)
	seedNote(t, b, client.ID, project.ID, consultant.ID, "2021-06-10")

	rec := get(s, "/ui/years?selected=2021")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `value="2021" selected`) {
		t.Errorf("body = %q, want 2021 selected", body)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, newTestBackend(), nil)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := get(s, path)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}
}

func TestMetrics(t *testing.T) {
	b := newTestBackend()
	s := newTestServer(t, b, nil)
	client, project, consultant := seedReferences(t, b)
	seedNote(t, b, client.ID, project.ID, consultant.ID, "2024-03-10")

	// Populate the report cache, then confirm /metrics sees the entry.
	if rec := get(s, "/ui/monthly-summary?year=2024&month=3"); rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d", rec.Code)
	}

	rec := get(s, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"report_cache_entries":1`) {
		t.Errorf("metrics = %s, want one cached report", rec.Body.String())
	}
}
