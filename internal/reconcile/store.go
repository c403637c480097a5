// Package reconcile turns raw backend snapshots into the minimal set of
// view effects. The Store is single-writer: only its owner calls Apply and
// Reset, so it carries no locks.
package reconcile

import (
	"slices"
	"strings"

	"agentconsole/internal/logging"
	"agentconsole/internal/types"
)

// LogUpdate replaces a log panel's text and scrolls it to the end.
type LogUpdate struct {
	Text string
}

// Effects is what one snapshot changed. The zero value means nothing did.
type Effects struct {
	// Messages are system chat messages to surface, in arrival order.
	Messages []string
	// AwaitingInput is set when an unseen Message-category entry arrived.
	AwaitingInput bool

	Tasks    *TaskList
	Commands *LogUpdate
	Notebook *LogUpdate
}

// Empty reports whether the snapshot produced no effect at all.
func (e Effects) Empty() bool {
	return len(e.Messages) == 0 && !e.AwaitingInput && e.Tasks == nil && e.Commands == nil && e.Notebook == nil
}

// Store owns the dedup set and the last-rendered caches for one session.
type Store struct {
	// surfaced is the dedup set: ids whose thought has been shown.
	surfaced map[types.ItemID]struct{}
	// awaited holds Message-category ids that already triggered
	// awaiting-input, so an old agent message never pre-empts a newer
	// outbound request.
	awaited map[types.ItemID]struct{}

	tasks         TaskList
	tasksRendered bool
	commands      string
	notebook      string

	mutations uint64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		surfaced: make(map[types.ItemID]struct{}),
		awaited:  make(map[types.ItemID]struct{}),
	}
}

// Apply reconciles one snapshot. Absent feeds are left untouched.
func (s *Store) Apply(snap types.Snapshot) Effects {
	var fx Effects

	if snap.Memories.Present {
		s.applyMemories(snap.Memories.Items, &fx)
	}
	if snap.Tasks.Present {
		s.applyTasks(snap.Tasks.Items, &fx)
	}
	if snap.Commands.Present {
		text := ConcatCommands(snap.Commands.Items)
		if text != s.commands {
			s.commands = text
			fx.Commands = &LogUpdate{Text: text}
			s.mutations++
		}
	}
	if snap.Codes.Present {
		text := ConcatNotebook(snap.Codes.Items)
		if text != s.notebook {
			s.notebook = text
			fx.Notebook = &LogUpdate{Text: text}
			s.mutations++
		}
	}

	if !fx.Empty() {
		logging.ReconcileDebug("%s snapshot: %d messages, awaiting=%v, tasks=%v, commands=%v, notebook=%v",
			snap.Source, len(fx.Messages), fx.AwaitingInput, fx.Tasks != nil, fx.Commands != nil, fx.Notebook != nil)
	}
	return fx
}

func (s *Store) applyMemories(entries []types.MemoryEntry, fx *Effects) {
	for _, m := range entries {
		if _, seen := s.surfaced[m.ID]; seen {
			continue
		}
		if m.IsMessage() {
			if _, done := s.awaited[m.ID]; !done {
				s.awaited[m.ID] = struct{}{}
				fx.AwaitingInput = true
			}
		}
		if m.HasThought() {
			fx.Messages = append(fx.Messages, m.Thought)
			s.surfaced[m.ID] = struct{}{}
			s.mutations++
		}
	}
}

// applyTasks regenerates the list, and skips the view update when the
// regenerated rows match what is already on screen.
func (s *Store) applyTasks(items []types.TaskItem, fx *Effects) {
	list := BuildTaskList(items)
	if s.tasksRendered && list.Placeholder == s.tasks.Placeholder && slices.Equal(list.Rows, s.tasks.Rows) {
		return
	}
	s.tasks = list
	s.tasksRendered = true
	fx.Tasks = &list
	s.mutations++
}

// Reset clears the dedup set so memory entries can surface again. Call it
// only once the backend has acknowledged a conversation reset.
func (s *Store) Reset() {
	logging.Reconcile("dedup reset: forgetting %d surfaced entries", len(s.surfaced))
	clear(s.surfaced)
	clear(s.awaited)
}

// Surfaced reports whether id is in the dedup set.
func (s *Store) Surfaced(id types.ItemID) bool {
	_, ok := s.surfaced[id]
	return ok
}

// SurfacedCount returns the dedup set size.
func (s *Store) SurfacedCount() int {
	return len(s.surfaced)
}

// Mutations counts view mutations issued so far.
func (s *Store) Mutations() uint64 {
	return s.mutations
}

// Tasks returns the last rendered task list and whether one was rendered.
func (s *Store) Tasks() (TaskList, bool) {
	return s.tasks, s.tasksRendered
}

// Commands returns the last rendered terminal log text.
func (s *Store) Commands() string { return s.commands }

// Notebook returns the last rendered notebook log text.
func (s *Store) Notebook() string { return s.notebook }

// ConcatCommands renders the terminal log as one string.
func ConcatCommands(entries []types.CommandEntry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Text())
	}
	return b.String()
}

// ConcatNotebook renders the notebook log as one string.
func ConcatNotebook(cells []types.NotebookCell) string {
	var b strings.Builder
	for _, c := range cells {
		b.WriteString(c.Text())
	}
	return b.String()
}
