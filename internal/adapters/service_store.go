// Package adapters glues storage implementations and the note workflow into
// the single backend surface the HTTP handlers consume.
package adapters

import (
	"context"

	"notas/internal/core"
	"notas/internal/services"
	"notas/internal/store"
)

// ServiceStore exposes a store.Store whose note saves run through the
// NoteService workflow (validation, ID assignment, sync publish) instead of
// hitting the store directly.
type ServiceStore struct {
	store.Store
	service *services.NoteService
}

func NewServiceStore(s store.Store, service *services.NoteService) *ServiceStore {
	return &ServiceStore{
		Store:   s,
		service: service,
	}
}

// SaveNote runs the full validate-then-commit workflow and returns the note
// with its assigned ID.
func (a *ServiceStore) SaveNote(ctx context.Context, note core.ServiceNote) (core.ServiceNote, error) {
	return a.service.SaveNote(ctx, note)
}

// Close releases the service's resources (storage and publisher).
func (a *ServiceStore) Close() error {
	return a.service.Close()
}
