// Package store defines the persistence ports the HTTP layer and services
// depend on. Backends (memory, sqlite) implement these interfaces.
package store

import (
	"context"
	"errors"
	"fmt"

	"notas/internal/core"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ReferencedError blocks the deletion of a reference record that service
// notes still point at. Callers may retry with cascade=true, which clears
// the dangling references instead.
type ReferencedError struct {
	Kind       string
	ID         string
	Dependents int
}

func (e *ReferencedError) Error() string {
	return fmt.Sprintf("%s %s is referenced by %d service note(s)", e.Kind, e.ID, e.Dependents)
}

// NoteStore persists service notes. UpsertNote is keyed by ID: the caller
// assigns IDs, so an existing ID updates in place and a new one inserts.
type NoteStore interface {
	ListNotes(ctx context.Context) ([]core.ServiceNote, error)
	GetNote(ctx context.Context, id string) (core.ServiceNote, error)
	UpsertNote(ctx context.Context, note core.ServiceNote) error
}

// ClientStore manages the client reference list.
type ClientStore interface {
	ListClients(ctx context.Context) ([]core.Client, error)
	CreateClient(ctx context.Context, c core.Client) (core.Client, error)
	UpdateClient(ctx context.Context, c core.Client) error
	// DeleteClient fails with *ReferencedError when notes or projects still
	// reference the client, unless cascade is set.
	DeleteClient(ctx context.Context, id string, cascade bool) error
}

// ProjectStore manages the project reference list.
type ProjectStore interface {
	ListProjects(ctx context.Context) ([]core.Project, error)
	CreateProject(ctx context.Context, p core.Project) (core.Project, error)
	UpdateProject(ctx context.Context, p core.Project) error
	DeleteProject(ctx context.Context, id string, cascade bool) error
}

// ConsultantStore manages the consultant reference list.
type ConsultantStore interface {
	ListConsultants(ctx context.Context) ([]core.Consultant, error)
	CreateConsultant(ctx context.Context, c core.Consultant) (core.Consultant, error)
	UpdateConsultant(ctx context.Context, c core.Consultant) error
	DeleteConsultant(ctx context.Context, id string, cascade bool) error
}

// Store is the full persistence surface a backend provides.
type Store interface {
	NoteStore
	ClientStore
	ProjectStore
	ConsultantStore
}
