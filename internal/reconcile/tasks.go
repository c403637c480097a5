package reconcile

import "agentconsole/internal/types"

// NoTasksPlaceholder is shown, in italics, when the task list is empty.
const NoTasksPlaceholder = "No tasks yet"

// TaskRow is one rendered line of the task list.
type TaskRow struct {
	Key         string
	Name        string
	Status      types.TaskStatus
	Description string

	// CanComplete is false once the task is completed. Delete is always offered.
	CanComplete bool
	CanDelete   bool
}

// Completed reports whether the row carries the completed style.
func (r TaskRow) Completed() bool {
	return r.Status == types.TaskCompleted
}

// Running reports whether the row carries the running style.
func (r TaskRow) Running() bool {
	return r.Status == types.TaskRunning
}

// TaskList is a full regeneration of the task panel.
type TaskList struct {
	Rows []TaskRow
	// Placeholder is set, and Rows empty, when there are no tasks.
	Placeholder string
}

// Empty reports whether the list renders the placeholder.
func (l TaskList) Empty() bool {
	return len(l.Rows) == 0
}

// BuildTaskList regenerates the whole list from a snapshot's tasks.
func BuildTaskList(tasks []types.TaskItem) TaskList {
	if len(tasks) == 0 {
		return TaskList{Placeholder: NoTasksPlaceholder}
	}

	rows := make([]TaskRow, 0, len(tasks))
	for i, t := range tasks {
		status := t.DisplayStatus()
		rows = append(rows, TaskRow{
			Key:         t.Key(i),
			Name:        t.DisplayName(),
			Status:      status,
			Description: t.Description,
			CanComplete: status != types.TaskCompleted,
			CanDelete:   true,
		})
	}
	return TaskList{Rows: rows}
}
