package amqp

import (
	"testing"
	"time"
)

func TestNewNoteSyncMessage(t *testing.T) {
	msg := NewNoteSyncMessage("note-123", 2)

	if msg.ID != "note-123" {
		t.Errorf("ID = %v, want note-123", msg.ID)
	}
	if msg.Version != 2 {
		t.Errorf("Version = %v, want 2", msg.Version)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestNoteSyncMessageJSON(t *testing.T) {
	timestamp := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &NoteSyncMessage{
		ID:        "note-123",
		Version:   2,
		Timestamp: timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := NoteSyncMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("NoteSyncMessageFromJSON() error = %v", err)
	}

	if parsed.ID != msg.ID {
		t.Errorf("Parsed ID = %v, want %v", parsed.ID, msg.ID)
	}
	if parsed.Version != msg.Version {
		t.Errorf("Parsed Version = %v, want %v", parsed.Version, msg.Version)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestNoteSyncMessageInvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{"id": 42, "version": "not_a_number"}`)

	if _, err := NoteSyncMessageFromJSON(invalidJSON); err == nil {
		t.Error("NoteSyncMessageFromJSON() should fail with invalid JSON")
	}
}
