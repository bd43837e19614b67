package http

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"notas/internal/core"
	"notas/internal/store"
)

// Reference-list handlers. Clients, projects and consultants share the same
// surface: GET renders <option> elements for the note form selects, POST
// creates, PUT /{id} renames, DELETE /{id} removes. A delete that would
// orphan notes is rejected with 409 unless ?cascade=true is set.

func (s *Server) handleClients(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		clients, err := s.backend.ListClients(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "Client list error", "error", err)
			InternalServerError("Could not load clients").Write(w)
			return
		}
		opts := make([]option, 0, len(clients))
		for _, c := range clients {
			opts = append(opts, option{ID: c.ID, Name: c.Name})
		}
		writeOptions(w, opts)
	case http.MethodPost:
		req, err := ParseReferenceRequest(r)
		if err != nil {
			BadRequestError(err.Error()).Write(w)
			return
		}
		created, err := s.backend.CreateClient(r.Context(), core.Client{Name: req.Name, TaxID: req.TaxID})
		if err != nil {
			s.writeReferenceError(w, r, "client", err)
			return
		}
		s.invalidateCaches()
		NewHTMXResponse().
			Status(http.StatusCreated).
			TriggerReferenceChanged("clients").
			BodyHTML(`<div class="success">Cliente creado: ` + template.HTMLEscapeString(created.Name) + `</div>`).
			Write(w)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleClientByID(w http.ResponseWriter, r *http.Request) {
	id := referenceID(r, "/clients/")
	if id == "" {
		NotFoundError("Client not found").Write(w)
		return
	}
	switch r.Method {
	case http.MethodPut:
		req, err := ParseReferenceRequest(r)
		if err != nil {
			BadRequestError(err.Error()).Write(w)
			return
		}
		err = s.backend.UpdateClient(r.Context(), core.Client{ID: id, Name: req.Name, TaxID: req.TaxID})
		s.finishReferenceWrite(w, r, "clients", "client", err)
	case http.MethodDelete:
		err := s.backend.DeleteClient(r.Context(), id, cascadeRequested(r))
		s.finishReferenceWrite(w, r, "clients", "client", err)
	default:
		MethodNotAllowedError("PUT, DELETE").Write(w)
	}
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		projects, err := s.backend.ListProjects(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "Project list error", "error", err)
			InternalServerError("Could not load projects").Write(w)
			return
		}
		opts := make([]option, 0, len(projects))
		for _, p := range projects {
			opts = append(opts, option{ID: p.ID, Name: p.Name})
		}
		writeOptions(w, opts)
	case http.MethodPost:
		req, err := ParseReferenceRequest(r)
		if err != nil {
			BadRequestError(err.Error()).Write(w)
			return
		}
		created, err := s.backend.CreateProject(r.Context(), core.Project{Name: req.Name, ClientID: req.ClientID})
		if err != nil {
			s.writeReferenceError(w, r, "project", err)
			return
		}
		s.invalidateCaches()
		NewHTMXResponse().
			Status(http.StatusCreated).
			TriggerReferenceChanged("projects").
			BodyHTML(`<div class="success">Proyecto creado: ` + template.HTMLEscapeString(created.Name) + `</div>`).
			Write(w)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleProjectByID(w http.ResponseWriter, r *http.Request) {
	id := referenceID(r, "/projects/")
	if id == "" {
		NotFoundError("Project not found").Write(w)
		return
	}
	switch r.Method {
	case http.MethodPut:
		req, err := ParseReferenceRequest(r)
		if err != nil {
			BadRequestError(err.Error()).Write(w)
			return
		}
		err = s.backend.UpdateProject(r.Context(), core.Project{ID: id, Name: req.Name, ClientID: req.ClientID})
		s.finishReferenceWrite(w, r, "projects", "project", err)
	case http.MethodDelete:
		err := s.backend.DeleteProject(r.Context(), id, cascadeRequested(r))
		s.finishReferenceWrite(w, r, "projects", "project", err)
	default:
		MethodNotAllowedError("PUT, DELETE").Write(w)
	}
}

func (s *Server) handleConsultants(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		consultants, err := s.backend.ListConsultants(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "Consultant list error", "error", err)
			InternalServerError("Could not load consultants").Write(w)
			return
		}
		opts := make([]option, 0, len(consultants))
		for _, c := range consultants {
			opts = append(opts, option{ID: c.ID, Name: c.Name})
		}
		writeOptions(w, opts)
	case http.MethodPost:
		req, err := ParseReferenceRequest(r)
		if err != nil {
			BadRequestError(err.Error()).Write(w)
			return
		}
		created, err := s.backend.CreateConsultant(r.Context(), core.Consultant{Name: req.Name})
		if err != nil {
			s.writeReferenceError(w, r, "consultant", err)
			return
		}
		s.invalidateCaches()
		NewHTMXResponse().
			Status(http.StatusCreated).
			TriggerReferenceChanged("consultants").
			BodyHTML(`<div class="success">Consultor creado: ` + template.HTMLEscapeString(created.Name) + `</div>`).
			Write(w)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleConsultantByID(w http.ResponseWriter, r *http.Request) {
	id := referenceID(r, "/consultants/")
	if id == "" {
		NotFoundError("Consultant not found").Write(w)
		return
	}
	switch r.Method {
	case http.MethodPut:
		req, err := ParseReferenceRequest(r)
		if err != nil {
			BadRequestError(err.Error()).Write(w)
			return
		}
		err = s.backend.UpdateConsultant(r.Context(), core.Consultant{ID: id, Name: req.Name})
		s.finishReferenceWrite(w, r, "consultants", "consultant", err)
	case http.MethodDelete:
		err := s.backend.DeleteConsultant(r.Context(), id, cascadeRequested(r))
		s.finishReferenceWrite(w, r, "consultants", "consultant", err)
	default:
		MethodNotAllowedError("PUT, DELETE").Write(w)
	}
}

// finishReferenceWrite maps the store error (or success) of an update or
// delete onto the shared response shape.
func (s *Server) finishReferenceWrite(w http.ResponseWriter, r *http.Request, kind, label string, err error) {
	if err != nil {
		s.writeReferenceError(w, r, label, err)
		return
	}
	s.invalidateCaches()
	NewHTMXResponse().
		TriggerReferenceChanged(kind).
		BodyHTML(`<div class="success">Listo</div>`).
		Write(w)
}

func (s *Server) writeReferenceError(w http.ResponseWriter, r *http.Request, label string, err error) {
	var refErr *store.ReferencedError
	switch {
	case errors.As(err, &refErr):
		// Deleting would orphan notes; the UI offers cascade as a second step.
		ConflictError("Cannot delete " + label + ": " + strconv.Itoa(refErr.Dependents) +
			" service note(s) still reference it. Retry with cascade to clear them.").Write(w)
	case errors.Is(err, store.ErrNotFound):
		NotFoundError("No such " + label).Write(w)
	case errors.Is(err, core.ErrEmptyName):
		UnprocessableEntityError("Name is required").Write(w)
	default:
		slog.ErrorContext(r.Context(), "Reference write error", "error", err, "kind", label)
		InternalServerError("Could not update " + label).Write(w)
	}
}

func cascadeRequested(r *http.Request) bool {
	v := strings.TrimSpace(r.URL.Query().Get("cascade"))
	cascade, err := strconv.ParseBool(v)
	return err == nil && cascade
}

func referenceID(r *http.Request, prefix string) string {
	segs := pathSegments(r.URL.Path, prefix)
	if len(segs) != 1 {
		return ""
	}
	return segs[0]
}

type option struct {
	ID   string
	Name string
}

// writeOptions renders <option> elements for an HTMX-refreshed select.
func writeOptions(w http.ResponseWriter, opts []option) {
	var b strings.Builder
	b.WriteString(`<option value="">--</option>`)
	for _, o := range opts {
		b.WriteString(`<option value="` + template.HTMLEscapeString(o.ID) + `">` +
			template.HTMLEscapeString(o.Name) + `</option>`)
	}
	NewHTMXResponse().BodyHTML(b.String()).Write(w)
}
