package amqp

import (
	"encoding/json"
	"time"
)

// BillSyncMessage asks the worker to push one bill to the remote store.
// It carries only the id; the worker reads the current row from SQLite so
// a stale queue never resurrects old field values.
type BillSyncMessage struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// BillDeleteMessage asks the worker to remove one bill from the remote
// store.
type BillDeleteMessage struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBillSyncMessage(id string) *BillSyncMessage {
	return &BillSyncMessage{ID: id, Timestamp: time.Now()}
}

func NewBillDeleteMessage(id string) *BillDeleteMessage {
	return &BillDeleteMessage{ID: id, Timestamp: time.Now()}
}

func (m *BillSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func (m *BillDeleteMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BillSyncMessageFromJSON(data []byte) (*BillSyncMessage, error) {
	var msg BillSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func BillDeleteMessageFromJSON(data []byte) (*BillDeleteMessage, error) {
	var msg BillDeleteMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
