package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"notas/internal/amqp"
	"notas/internal/core"
	"notas/internal/export"
	"notas/internal/storage"
)

type fakeNoteWriter struct {
	docs []export.NoteDocument
	err  error
}

func (f *fakeNoteWriter) AppendNote(_ context.Context, doc export.NoteDocument) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.docs = append(f.docs, doc)
	return "Notas!A2", nil
}

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "notas.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

// seedNote stores a client/project/consultant triple plus one unsynced note.
func seedNote(t *testing.T, repo *storage.SQLiteRepository, id string) core.ServiceNote {
	t.Helper()
	ctx := context.Background()

	c, err := repo.CreateClient(ctx, core.Client{Name: "Iberdatos SL", TaxID: "B12345678"})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	p, err := repo.CreateProject(ctx, core.Project{Name: "Migración ERP", ClientID: c.ID})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	k, err := repo.CreateConsultant(ctx, core.Consultant{Name: "Laura Gómez"})
	if err != nil {
		t.Fatalf("CreateConsultant: %v", err)
	}

	note := core.ServiceNote{
		ID:                   id,
		ClientID:             c.ID,
		ProjectID:            p.ID,
		ConsultantID:         k.ID,
		Format:               core.OnSite,
		Date:                 core.Date{Year: 2024, Month: time.March, Day: 15},
		Start:                core.Clock{Minutes: 9 * 60},
		End:                  core.Clock{Minutes: 13*60 + 30},
		ClientRepresentative: "Carlos Ruiz",
		Description:          "Data load rehearsal.",
		ConsultantSignature:  []byte{0x89, 0x50},
		ClientSignature:      []byte{0x89, 0x50},
	}
	if err := repo.UpsertNote(ctx, note); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	return note
}

func pendingIDs(t *testing.T, repo *storage.SQLiteRepository) []string {
	t.Helper()
	pending, err := repo.GetPendingSyncNotes(context.Background(), 50)
	if err != nil {
		t.Fatalf("GetPendingSyncNotes: %v", err)
	}
	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestProcessPendingNotes(t *testing.T) {
	repo := newTestRepo(t)
	seedNote(t, repo, "n1")
	writer := &fakeNoteWriter{}
	w := NewSyncWorker(repo, writer, "Acme Consulting", 10)

	if err := w.ProcessPendingNotes(context.Background()); err != nil {
		t.Fatalf("ProcessPendingNotes: %v", err)
	}

	if len(writer.docs) != 1 {
		t.Fatalf("AppendNote called %d times, want 1", len(writer.docs))
	}
	doc := writer.docs[0]
	if doc.ClientName != "Iberdatos SL" || doc.ProjectName != "Migración ERP" || doc.ConsultantName != "Laura Gómez" {
		t.Errorf("resolved names = %q/%q/%q", doc.ClientName, doc.ProjectName, doc.ConsultantName)
	}
	if doc.CompanyName != "Acme Consulting" {
		t.Errorf("CompanyName = %q, want Acme Consulting", doc.CompanyName)
	}
	if doc.Note.ID != "n1" {
		t.Errorf("Note.ID = %q, want n1", doc.Note.ID)
	}

	if ids := pendingIDs(t, repo); len(ids) != 0 {
		t.Errorf("pending after sync = %v, want empty", ids)
	}
}

func TestProcessPendingNotesAppendFailure(t *testing.T) {
	repo := newTestRepo(t)
	seedNote(t, repo, "n1")
	writer := &fakeNoteWriter{err: errors.New("quota exceeded")}
	w := NewSyncWorker(repo, writer, "Acme Consulting", 10)

	// Append failures are per-note, not fatal for the scan.
	if err := w.ProcessPendingNotes(context.Background()); err != nil {
		t.Fatalf("ProcessPendingNotes: %v", err)
	}

	// The note is flagged with sync_error and leaves the pending set so the
	// ticker doesn't hammer the spreadsheet with the same failing row.
	if ids := pendingIDs(t, repo); len(ids) != 0 {
		t.Errorf("pending after failed append = %v, want empty", ids)
	}
}

func TestProcessPendingNotesEmpty(t *testing.T) {
	repo := newTestRepo(t)
	writer := &fakeNoteWriter{}
	w := NewSyncWorker(repo, writer, "", 10)

	if err := w.ProcessPendingNotes(context.Background()); err != nil {
		t.Fatalf("ProcessPendingNotes: %v", err)
	}
	if len(writer.docs) != 0 {
		t.Errorf("AppendNote called on empty pending set")
	}
}

func TestHandleSyncMessage(t *testing.T) {
	repo := newTestRepo(t)
	seedNote(t, repo, "n1")
	writer := &fakeNoteWriter{}
	w := NewSyncWorker(repo, writer, "Acme Consulting", 10)

	msg := amqp.NewNoteSyncMessage("n1", 1)
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleSyncMessage: %v", err)
	}
	if len(writer.docs) != 1 || writer.docs[0].Note.ID != "n1" {
		t.Fatalf("docs = %+v, want one row for n1", writer.docs)
	}
	if ids := pendingIDs(t, repo); len(ids) != 0 {
		t.Errorf("pending after message sync = %v, want empty", ids)
	}
}

func TestHandleSyncMessageMissingNote(t *testing.T) {
	repo := newTestRepo(t)
	writer := &fakeNoteWriter{}
	w := NewSyncWorker(repo, writer, "", 10)

	msg := amqp.NewNoteSyncMessage("ghost", 1)
	if err := w.HandleSyncMessage(context.Background(), msg); err == nil {
		t.Fatal("HandleSyncMessage(ghost) = nil, want error so the message is requeued")
	}
	if len(writer.docs) != 0 {
		t.Errorf("AppendNote called for a missing note")
	}
}

func TestHandleSyncMessageDeletedReferences(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	note := seedNote(t, repo, "n1")

	if err := repo.DeleteConsultant(ctx, note.ConsultantID, true); err != nil {
		t.Fatalf("DeleteConsultant cascade: %v", err)
	}

	writer := &fakeNoteWriter{}
	w := NewSyncWorker(repo, writer, "", 10)
	if err := w.HandleSyncMessage(ctx, amqp.NewNoteSyncMessage("n1", 2)); err != nil {
		t.Fatalf("HandleSyncMessage: %v", err)
	}
	if len(writer.docs) != 1 {
		t.Fatalf("AppendNote called %d times, want 1", len(writer.docs))
	}
	if writer.docs[0].ConsultantName != "unassigned" {
		t.Errorf("ConsultantName = %q, want placeholder after cascade", writer.docs[0].ConsultantName)
	}
}

func TestStartupSyncCheck(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	note := seedNote(t, repo, "n1")

	note.ID = "n2"
	note.Description = "Follow-up session."
	if err := repo.UpsertNote(ctx, note); err != nil {
		t.Fatalf("UpsertNote n2: %v", err)
	}

	writer := &fakeNoteWriter{}
	w := NewSyncWorker(repo, writer, "Acme Consulting", 2)

	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("StartupSyncCheck: %v", err)
	}
	if len(writer.docs) != 2 {
		t.Fatalf("AppendNote called %d times, want 2", len(writer.docs))
	}
	if ids := pendingIDs(t, repo); len(ids) != 0 {
		t.Errorf("pending after startup check = %v, want empty", ids)
	}
}
