package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ItemID is a backend key for a memory entry or task. The backend emits
// positional integers; strings are accepted as well. Empty means absent.
type ItemID string

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (id *ItemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ItemID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("item id: %w", err)
	}
	*id = ItemID(n.String())
	return nil
}

// MemoryCategory is the backend class name of a memory entry.
type MemoryCategory string

const (
	CategoryMessage    MemoryCategory = "Message"
	CategoryThought    MemoryCategory = "Thought"
	CategoryTask       MemoryCategory = "Task"
	CategoryCmdRun     MemoryCategory = "CmdRun"
	CategoryIPythonRun MemoryCategory = "IPythonRun"
)

// MemoryEntry is produced only by the backend and is immutable once observed.
type MemoryEntry struct {
	ID       ItemID         `json:"id"`
	Category MemoryCategory `json:"category"`
	Thought  string         `json:"thought,omitempty"`
	Content  string         `json:"content,omitempty"`
	Result   string         `json:"result,omitempty"`
}

// HasThought reports whether the entry carries renderable thought text.
func (m MemoryEntry) HasThought() bool {
	return m.Thought != ""
}

// IsMessage reports whether the entry is an agent message awaiting the user.
func (m MemoryEntry) IsMessage() bool {
	return m.Category == CategoryMessage
}
