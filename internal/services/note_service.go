package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"notas/internal/core"
	"notas/internal/store"
)

// SyncPublisher publishes queue messages for notes that need mirroring.
type SyncPublisher interface {
	PublishNoteSync(ctx context.Context, id string, version int64) error
	Close() error
}

// NoteService runs the validate-then-commit workflow for service notes. The
// local save is authoritative; the sync publish is best effort.
type NoteService struct {
	notes     store.NoteStore
	publisher SyncPublisher
}

func NewNoteService(notes store.NoteStore, publisher SyncPublisher) *NoteService {
	return &NoteService{
		notes:     notes,
		publisher: publisher,
	}
}

// SaveNote validates and persists a note. An empty ID means a new note and
// gets a fresh UUID; an existing ID updates in place (last write wins).
func (s *NoteService) SaveNote(ctx context.Context, note core.ServiceNote) (core.ServiceNote, error) {
	if err := note.Validate(); err != nil {
		return core.ServiceNote{}, fmt.Errorf("validate note: %w", err)
	}

	if note.ID == "" {
		note.ID = uuid.NewString()
	}

	if err := s.notes.UpsertNote(ctx, note); err != nil {
		return core.ServiceNote{}, fmt.Errorf("save note: %w", err)
	}

	// Publish async sync message. The note is already saved locally, so a
	// publish failure only logs.
	if s.publisher == nil {
		slog.WarnContext(ctx, "Sync publisher not available, skipping sync message", "id", note.ID)
		return note, nil
	}
	if err := s.publisher.PublishNoteSync(ctx, note.ID, 1); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", note.ID, "error", err)
	}

	return note, nil
}

func (s *NoteService) GetNote(ctx context.Context, id string) (core.ServiceNote, error) {
	return s.notes.GetNote(ctx, id)
}

func (s *NoteService) ListNotes(ctx context.Context) ([]core.ServiceNote, error) {
	return s.notes.ListNotes(ctx)
}

// Close releases the publisher and, when the store owns resources, the store.
func (s *NoteService) Close() error {
	var errs []error

	if closer, ok := s.notes.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close note service: %v", errs)
	}
	return nil
}
