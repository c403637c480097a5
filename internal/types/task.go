package types

import (
	"strconv"
	"strings"
)

// TaskStatus is the server-side lifecycle of a planner task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
)

// TaskItem is mutable server-side: identity, status and ordering may all
// change between snapshots.
type TaskItem struct {
	ID          ItemID     `json:"id,omitempty"`
	Name        string     `json:"name,omitempty"`
	Task        string     `json:"task,omitempty"`
	Status      TaskStatus `json:"status,omitempty"`
	Description string     `json:"description,omitempty"`
	CreatedAt   string     `json:"created_at,omitempty"`
	CompletedAt string     `json:"completed_at,omitempty"`
	UpdatedAt   string     `json:"updated_at,omitempty"`
}

// Key returns the task id, or its position in the snapshot when the backend
// sent none.
func (t TaskItem) Key(index int) string {
	if t.ID != "" {
		return string(t.ID)
	}
	return strconv.Itoa(index)
}

// DisplayName is the name shown in the task list.
func (t TaskItem) DisplayName() string {
	if strings.TrimSpace(t.Name) != "" {
		return t.Name
	}
	return "Unnamed task"
}

// DisplayStatus defaults unknown or missing status to pending.
func (t TaskItem) DisplayStatus() TaskStatus {
	if t.Status == "" {
		return TaskPending
	}
	return t.Status
}

// CommandEntry is one shell command run by the agent.
type CommandEntry struct {
	Command string `json:"command"`
	Result  string `json:"result,omitempty"`
}

// Text renders the entry the way the terminal panel shows it.
func (c CommandEntry) Text() string {
	if c.Result != "" {
		return "$ " + c.Command + "\n" + c.Result + "\n"
	}
	return "$ " + c.Command + "\n"
}

// NotebookCell is one code cell executed by the agent.
type NotebookCell struct {
	Code   string `json:"code"`
	Result string `json:"result,omitempty"`
}

// Text renders the cell as code followed directly by its output.
func (c NotebookCell) Text() string {
	return c.Code + c.Result
}
