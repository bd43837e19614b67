// Package memory provides an in-memory store. It is the default backend and
// the test double used by the handler tests.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"notas/internal/core"
	"notas/internal/store"
)

// Store keeps everything in maps guarded by one mutex. Reads return copies
// so callers can never mutate internal state.
type Store struct {
	mu          sync.RWMutex
	notes       map[string]core.ServiceNote
	clients     map[string]core.Client
	projects    map[string]core.Project
	consultants map[string]core.Consultant
	noteOrder   []string
}

func NewStore() *Store {
	return &Store{
		notes:       make(map[string]core.ServiceNote),
		clients:     make(map[string]core.Client),
		projects:    make(map[string]core.Project),
		consultants: make(map[string]core.Consultant),
	}
}

func (s *Store) ListNotes(ctx context.Context) ([]core.ServiceNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.ServiceNote, 0, len(s.noteOrder))
	for _, id := range s.noteOrder {
		out = append(out, s.notes[id])
	}
	return out, nil
}

func (s *Store) GetNote(ctx context.Context, id string) (core.ServiceNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	if !ok {
		return core.ServiceNote{}, store.ErrNotFound
	}
	return n, nil
}

func (s *Store) UpsertNote(ctx context.Context, note core.ServiceNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.notes[note.ID]; !exists {
		s.noteOrder = append(s.noteOrder, note.ID)
	}
	s.notes[note.ID] = note
	return nil
}

func (s *Store) ListClients(ctx context.Context) ([]core.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) CreateClient(ctx context.Context, c core.Client) (core.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.clients[c.ID] = c
	return c, nil
}

func (s *Store) UpdateClient(ctx context.Context, c core.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c.ID]; !ok {
		return store.ErrNotFound
	}
	s.clients[c.ID] = c
	return nil
}

func (s *Store) DeleteClient(ctx context.Context, id string, cascade bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[id]; !ok {
		return store.ErrNotFound
	}

	dependents := 0
	for _, n := range s.notes {
		if n.ClientID == id {
			dependents++
		}
	}
	for _, p := range s.projects {
		if p.ClientID == id {
			dependents++
		}
	}
	if dependents > 0 && !cascade {
		return &store.ReferencedError{Kind: "client", ID: id, Dependents: dependents}
	}
	if cascade {
		for nid, n := range s.notes {
			if n.ClientID == id {
				n.ClientID = ""
				s.notes[nid] = n
			}
		}
		for pid, p := range s.projects {
			if p.ClientID == id {
				p.ClientID = ""
				s.projects[pid] = p
			}
		}
	}
	delete(s.clients, id)
	return nil
}

func (s *Store) ListProjects(ctx context.Context) ([]core.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	s.projects[p.ID] = p
	return p, nil
}

func (s *Store) UpdateProject(ctx context.Context, p core.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; !ok {
		return store.ErrNotFound
	}
	s.projects[p.ID] = p
	return nil
}

func (s *Store) DeleteProject(ctx context.Context, id string, cascade bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return store.ErrNotFound
	}

	dependents := 0
	for _, n := range s.notes {
		if n.ProjectID == id {
			dependents++
		}
	}
	if dependents > 0 && !cascade {
		return &store.ReferencedError{Kind: "project", ID: id, Dependents: dependents}
	}
	if cascade {
		for nid, n := range s.notes {
			if n.ProjectID == id {
				n.ProjectID = ""
				s.notes[nid] = n
			}
		}
	}
	delete(s.projects, id)
	return nil
}

func (s *Store) ListConsultants(ctx context.Context) ([]core.Consultant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Consultant, 0, len(s.consultants))
	for _, c := range s.consultants {
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) CreateConsultant(ctx context.Context, c core.Consultant) (core.Consultant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.consultants[c.ID] = c
	return c, nil
}

func (s *Store) UpdateConsultant(ctx context.Context, c core.Consultant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.consultants[c.ID]; !ok {
		return store.ErrNotFound
	}
	s.consultants[c.ID] = c
	return nil
}

func (s *Store) DeleteConsultant(ctx context.Context, id string, cascade bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.consultants[id]; !ok {
		return store.ErrNotFound
	}

	dependents := 0
	for _, n := range s.notes {
		if n.ConsultantID == id {
			dependents++
		}
	}
	if dependents > 0 && !cascade {
		return &store.ReferencedError{Kind: "consultant", ID: id, Dependents: dependents}
	}
	if cascade {
		for nid, n := range s.notes {
			if n.ConsultantID == id {
				n.ConsultantID = ""
				s.notes[nid] = n
			}
		}
	}
	delete(s.consultants, id)
	return nil
}
