package amqp

import (
	"encoding/json"
	"time"
)

// NoteSyncMessage is the lightweight queue payload for mirroring a saved
// service note. It carries only the ID and version; the worker fetches the
// full note from the database.
type NoteSyncMessage struct {
	ID        string    `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewNoteSyncMessage(id string, version int64) *NoteSyncMessage {
	return &NoteSyncMessage{
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *NoteSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func NoteSyncMessageFromJSON(data []byte) (*NoteSyncMessage, error) {
	var msg NoteSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
