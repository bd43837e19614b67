package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"notas/internal/core"
	"notas/internal/memory"
)

type fakePublisher struct {
	published []string
	fail      bool
	closed    bool
}

func (f *fakePublisher) PublishNoteSync(ctx context.Context, id string, version int64) error {
	if f.fail {
		return errors.New("broker unavailable")
	}
	f.published = append(f.published, id)
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func testNote() core.ServiceNote {
	return core.ServiceNote{
		ClientID:             "c1",
		ProjectID:            "p1",
		ConsultantID:         "k1",
		Format:               core.OnSite,
		Date:                 core.Date{Year: 2024, Month: time.March, Day: 15},
		Start:                core.Clock{Minutes: 9 * 60},
		End:                  core.Clock{Minutes: 17 * 60},
		ClientRepresentative: "Jane Doe",
		Description:          "Capacity planning workshop.",
		ConsultantSignature:  []byte{1},
		ClientSignature:      []byte{1},
	}
}

func TestSaveNoteAssignsID(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewNoteService(memory.NewStore(), pub)

	saved, err := svc.SaveNote(context.Background(), testNote())
	if err != nil {
		t.Fatalf("SaveNote: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("SaveNote did not assign an ID")
	}
	if len(pub.published) != 1 || pub.published[0] != saved.ID {
		t.Errorf("published = %v, want [%s]", pub.published, saved.ID)
	}
}

func TestSaveNotePreservesExistingID(t *testing.T) {
	svc := NewNoteService(memory.NewStore(), &fakePublisher{})

	note := testNote()
	note.ID = "existing"
	saved, err := svc.SaveNote(context.Background(), note)
	if err != nil {
		t.Fatalf("SaveNote: %v", err)
	}
	if saved.ID != "existing" {
		t.Errorf("ID = %q, want existing", saved.ID)
	}

	saved.Description = "Updated scope."
	if _, err := svc.SaveNote(context.Background(), saved); err != nil {
		t.Fatalf("SaveNote update: %v", err)
	}

	notes, _ := svc.ListNotes(context.Background())
	if len(notes) != 1 {
		t.Fatalf("ListNotes returned %d notes, want 1", len(notes))
	}
	if notes[0].Description != "Updated scope." {
		t.Errorf("Description = %q, want updated text", notes[0].Description)
	}
}

func TestSaveNoteRejectsIncomplete(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewNoteService(memory.NewStore(), pub)

	note := testNote()
	note.ClientSignature = nil
	if _, err := svc.SaveNote(context.Background(), note); !errors.Is(err, core.ErrMissingSignature) {
		t.Fatalf("SaveNote = %v, want ErrMissingSignature", err)
	}
	if len(pub.published) != 0 {
		t.Error("invalid note must not be published")
	}
}

func TestSaveNoteSurvivesPublishFailure(t *testing.T) {
	svc := NewNoteService(memory.NewStore(), &fakePublisher{fail: true})

	saved, err := svc.SaveNote(context.Background(), testNote())
	if err != nil {
		t.Fatalf("SaveNote with failing publisher: %v", err)
	}

	if _, err := svc.GetNote(context.Background(), saved.ID); err != nil {
		t.Errorf("note not persisted after publish failure: %v", err)
	}
}

func TestSaveNoteWithoutPublisher(t *testing.T) {
	svc := NewNoteService(memory.NewStore(), nil)
	if _, err := svc.SaveNote(context.Background(), testNote()); err != nil {
		t.Fatalf("SaveNote without publisher: %v", err)
	}
}

func TestCloseClosesPublisher(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewNoteService(memory.NewStore(), pub)
	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !pub.closed {
		t.Error("publisher not closed")
	}
}
