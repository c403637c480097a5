// Package types holds the data model shared by the console sync layer:
// snapshots pulled or pushed from the agent backend, the items they carry,
// and the view-local chat and status values derived from them.
package types

import (
	"bytes"
	"encoding/json"
)

// =============================================================================
// FEEDS
// =============================================================================

// Feed is one optional list inside a snapshot. Present distinguishes a field
// the backend sent (possibly as an empty list) from a field it left out.
// An absent feed means "no update for this feed in this tick".
type Feed[T any] struct {
	Present bool
	Items   []T
}

// Some builds a present feed.
func Some[T any](items ...T) Feed[T] {
	if items == nil {
		items = []T{}
	}
	return Feed[T]{Present: true, Items: items}
}

// None builds an absent feed.
func None[T any]() Feed[T] {
	return Feed[T]{}
}

// UnmarshalJSON marks the feed present for any non-null value.
// A JSON null is treated the same as a missing key.
func (f *Feed[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = Feed[T]{}
		return nil
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	if items == nil {
		items = []T{}
	}
	*f = Feed[T]{Present: true, Items: items}
	return nil
}

// MarshalJSON writes absent feeds as null so that round trips keep the
// present/absent distinction when paired with omitzero.
func (f Feed[T]) MarshalJSON() ([]byte, error) {
	if !f.Present {
		return []byte("null"), nil
	}
	if f.Items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(f.Items)
}

// IsZero reports whether the feed is absent.
func (f Feed[T]) IsZero() bool {
	return !f.Present
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// SnapshotSource records which monitor produced a snapshot.
type SnapshotSource string

const (
	SourcePoll    SnapshotSource = "poll"
	SourceStream  SnapshotSource = "stream"
	SourceRefresh SnapshotSource = "refresh"
)

// Snapshot is a structured, possibly partial view of server-side agent state.
type Snapshot struct {
	Tasks    Feed[TaskItem]     `json:"tasks,omitzero"`
	Commands Feed[CommandEntry] `json:"commands,omitzero"`
	Codes    Feed[NotebookCell] `json:"codes,omitzero"`
	Memories Feed[MemoryEntry]  `json:"memories,omitzero"`

	Source SnapshotSource `json:"-"`
}

// Empty reports whether the snapshot carries no feed at all.
func (s Snapshot) Empty() bool {
	return !s.Tasks.Present && !s.Commands.Present && !s.Codes.Present && !s.Memories.Present
}
