package worker

import (
	"context"
	"fmt"
	"log/slog"

	"notas/internal/amqp"
	"notas/internal/core"
	"notas/internal/export"
	"notas/internal/sheets"
	"notas/internal/storage"
)

// SyncWorker mirrors saved service notes from SQLite to the spreadsheet.
// The AMQP consumer is the primary path; the pending scan is the backup for
// lost messages and downtime.
type SyncWorker struct {
	storage     *storage.SQLiteRepository
	writer      sheets.NoteWriter
	companyName string
	batchSize   int
}

func NewSyncWorker(storage *storage.SQLiteRepository, writer sheets.NoteWriter, companyName string, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:     storage,
		writer:      writer,
		companyName: companyName,
		batchSize:   batchSize,
	}
}

// HandleSyncMessage processes a single note sync message from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.NoteSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	note, err := w.storage.GetNote(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get note from storage: %w", err)
	}

	return w.syncNoteToSheets(ctx, note)
}

// ProcessPendingNotes mirrors any notes that haven't been synced yet. This
// is the backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPendingNotes(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncNotes(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending notes: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending notes", "count", len(pending))

	for _, p := range pending {
		note, err := w.storage.GetNote(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get note", "id", p.ID, "error", err)
			if err := w.storage.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			continue
		}

		if err := w.syncNoteToSheets(ctx, note); err != nil {
			slog.ErrorContext(ctx, "Failed to sync note", "id", p.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupSyncCheck drains the pending queue once at worker startup, with a
// larger batch, to recover from missed messages or downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncNotes(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending notes for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending notes found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending notes on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, p := range pending {
		note, err := w.storage.GetNote(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get note for startup sync",
				"id", p.ID, "error", err)
			if err := w.storage.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			errorCount++
			continue
		}

		if err := w.syncNoteToSheets(ctx, note); err != nil {
			slog.ErrorContext(ctx, "Failed to sync note during startup",
				"id", p.ID, "error", err)
			errorCount++
			continue
		}

		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)

	return nil
}

func (w *SyncWorker) syncNoteToSheets(ctx context.Context, note core.ServiceNote) error {
	doc, err := w.resolveNote(ctx, note)
	if err != nil {
		return err
	}

	ref, err := w.writer.AppendNote(ctx, doc)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, note.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", note.ID, "error", markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, note.ID); err != nil {
		// The mirror actually worked, so don't fail the message.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", note.ID, "error", err)
	}

	slog.InfoContext(ctx, "Successfully synced note",
		"id", note.ID,
		"sheets_ref", ref,
		"date", note.Date.String())

	return nil
}

// resolveNote enriches reference IDs to display names so the spreadsheet
// stays readable even after a reference is deleted.
func (w *SyncWorker) resolveNote(ctx context.Context, note core.ServiceNote) (export.NoteDocument, error) {
	clients, err := w.storage.ListClients(ctx)
	if err != nil {
		return export.NoteDocument{}, fmt.Errorf("list clients: %w", err)
	}
	projects, err := w.storage.ListProjects(ctx)
	if err != nil {
		return export.NoteDocument{}, fmt.Errorf("list projects: %w", err)
	}
	consultants, err := w.storage.ListConsultants(ctx)
	if err != nil {
		return export.NoteDocument{}, fmt.Errorf("list consultants: %w", err)
	}

	resolver := core.NewResolver(clients, projects, consultants)
	row := resolver.Enrich(note)

	return export.NoteDocument{
		Note:           note,
		ClientName:     row.ClientName,
		ProjectName:    row.ProjectName,
		ConsultantName: row.ConsultantName,
		CompanyName:    w.companyName,
	}, nil
}
