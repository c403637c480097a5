package reconcile

import (
	"encoding/json"
	"testing"

	"agentconsole/internal/types"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) types.Snapshot {
	t.Helper()
	var snap types.Snapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &snap))
	return snap
}

func TestApply_MessageWithThoughtSurfacesOnce(t *testing.T) {
	s := NewStore()
	snap := decode(t, `{"memories":[{"id":"m1","category":"Message","thought":"Task complete"}]}`)

	fx := s.Apply(snap)
	want := Effects{Messages: []string{"Task complete"}, AwaitingInput: true}
	if diff := cmp.Diff(want, fx); diff != "" {
		t.Errorf("first apply mismatch (-want +got):\n%s", diff)
	}

	fx = s.Apply(snap)
	assert.True(t, fx.Empty(), "replay must produce no message and no status change: %+v", fx)
	assert.True(t, s.Surfaced("m1"))
}

func TestApply_ChecksAreIndependent(t *testing.T) {
	s := NewStore()
	fx := s.Apply(decode(t, `{"memories":[
		{"id":0,"category":"Message","content":"hi"},
		{"id":1,"category":"Thought","thought":"thinking"},
		{"id":2,"category":"CmdRun","content":"ls"}
	]}`))

	assert.True(t, fx.AwaitingInput)
	assert.Equal(t, []string{"thinking"}, fx.Messages)
	assert.False(t, s.Surfaced("0"), "entries without a thought are not recorded")
	assert.True(t, s.Surfaced("1"))
	assert.False(t, s.Surfaced("2"))
}

func TestApply_MessageWithoutThoughtAwaitsOnlyOnce(t *testing.T) {
	s := NewStore()
	snap := decode(t, `{"memories":[{"id":5,"category":"Message","content":"done"}]}`)

	assert.True(t, s.Apply(snap).AwaitingInput)
	assert.False(t, s.Apply(snap).AwaitingInput)
}

func TestApply_DedupIdempotence(t *testing.T) {
	s := NewStore()
	first := decode(t, `{"memories":[{"id":"a","category":"Thought","thought":"one"},{"id":"b","category":"Message","thought":"two"}]}`)
	s.Apply(first)

	// Reappearing ids, reordered and mixed with a new one.
	next := decode(t, `{"memories":[{"id":"b","category":"Message","thought":"two"},{"id":"c","category":"Thought","thought":"three"},{"id":"a","category":"Thought","thought":"one"}]}`)
	fx := s.Apply(next)
	assert.Equal(t, []string{"three"}, fx.Messages)
	assert.False(t, fx.AwaitingInput)
	assert.Equal(t, 3, s.SurfacedCount())
}

func TestReset_ResurfacesExactlyOnce(t *testing.T) {
	s := NewStore()
	snap := decode(t, `{"memories":[{"id":"m1","category":"Thought","thought":"again"}]}`)
	s.Apply(snap)
	require.Empty(t, s.Apply(snap).Messages)

	s.Reset()
	assert.Equal(t, 0, s.SurfacedCount())
	assert.Equal(t, []string{"again"}, s.Apply(snap).Messages)
	assert.Empty(t, s.Apply(snap).Messages)
}

func TestApply_AbsentFeedsUntouched(t *testing.T) {
	s := NewStore()
	s.Apply(decode(t, `{"tasks":[{"id":1,"name":"Build"}],"commands":[{"command":"ls","result":"a"}]}`))
	before := s.Mutations()

	fx := s.Apply(decode(t, `{"memories":[]}`))
	assert.True(t, fx.Empty())
	assert.Equal(t, before, s.Mutations())

	list, ok := s.Tasks()
	assert.True(t, ok)
	assert.Len(t, list.Rows, 1)
	assert.Equal(t, "$ ls\na\n", s.Commands())
}

func TestApply_EmptyTasksRendersPlaceholder(t *testing.T) {
	s := NewStore()
	fx := s.Apply(decode(t, `{"tasks":[]}`))
	require.NotNil(t, fx.Tasks)
	assert.True(t, fx.Tasks.Empty())
	assert.Equal(t, "No tasks yet", fx.Tasks.Placeholder)

	// Null means "no update", not "empty".
	assert.Nil(t, NewStore().Apply(decode(t, `{"tasks":null}`)).Tasks)
}

func TestApply_PendingTaskRow(t *testing.T) {
	s := NewStore()
	fx := s.Apply(decode(t, `{"tasks":[{"id":1,"name":"Build","status":"pending"}]}`))
	require.NotNil(t, fx.Tasks)

	want := []TaskRow{{Key: "1", Name: "Build", Status: types.TaskPending, CanComplete: true, CanDelete: true}}
	if diff := cmp.Diff(want, fx.Tasks.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, fx.Tasks.Rows[0].Completed())
}

func TestBuildTaskList_Fallbacks(t *testing.T) {
	list := BuildTaskList([]types.TaskItem{
		{Status: types.TaskCompleted},
		{ID: "x", Name: "Deploy", Status: types.TaskRunning, Description: "prod"},
	})

	want := []TaskRow{
		{Key: "0", Name: "Unnamed task", Status: types.TaskCompleted, CanComplete: false, CanDelete: true},
		{Key: "x", Name: "Deploy", Status: types.TaskRunning, Description: "prod", CanComplete: true, CanDelete: true},
	}
	if diff := cmp.Diff(want, list.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, list.Rows[0].Completed())
	assert.True(t, list.Rows[1].Running())
}

func TestApply_TaskListRegeneratedOnChange(t *testing.T) {
	s := NewStore()
	s.Apply(decode(t, `{"tasks":[{"id":1,"name":"Build","status":"pending"}]}`))

	// Identical content: no re-render.
	assert.Nil(t, s.Apply(decode(t, `{"tasks":[{"id":1,"name":"Build","status":"pending"}]}`)).Tasks)

	// Status changed in place: the full list is regenerated.
	fx := s.Apply(decode(t, `{"tasks":[{"id":1,"name":"Build","status":"completed"},{"id":2,"name":"Test"}]}`))
	require.NotNil(t, fx.Tasks)
	assert.Len(t, fx.Tasks.Rows, 2)
	assert.False(t, fx.Tasks.Rows[0].CanComplete)
}

func TestApply_NoOpLogSnapshotSkipped(t *testing.T) {
	s := NewStore()
	snap := decode(t, `{"commands":[{"command":"ls","result":"a.txt"},{"command":"pwd"}],"codes":[{"code":"print(1)","result":"1"}]}`)

	fx := s.Apply(snap)
	require.NotNil(t, fx.Commands)
	require.NotNil(t, fx.Notebook)
	assert.Equal(t, "$ ls\na.txt\n$ pwd\n", fx.Commands.Text)
	assert.Equal(t, "print(1)1", fx.Notebook.Text)

	before := s.Mutations()
	fx = s.Apply(snap)
	assert.True(t, fx.Empty())
	assert.Equal(t, before, s.Mutations(), "identical concatenation must not mutate the view")

	fx = s.Apply(decode(t, `{"commands":[{"command":"ls","result":"a.txt"},{"command":"pwd","result":"/w"}]}`))
	require.NotNil(t, fx.Commands)
	assert.Equal(t, "$ ls\na.txt\n$ pwd\n/w\n", fx.Commands.Text)
	assert.Nil(t, fx.Notebook)
	assert.Equal(t, before+1, s.Mutations())
}

func TestConcatNotebook_NoSeparator(t *testing.T) {
	got := ConcatNotebook([]types.NotebookCell{{Code: "a=1\n"}, {Code: "a\n", Result: "1\n"}})
	assert.Equal(t, "a=1\na\n1\n", got)
}
